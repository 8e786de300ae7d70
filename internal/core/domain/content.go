package domain

import (
	"fmt"
	"strings"
	"time"
)

// UnitType identifies the kind of content unit
type UnitType string

const (
	UnitTypePage       UnitType = "page"
	UnitTypeAttachment UnitType = "attachment"
	UnitTypeObject     UnitType = "object"
	UnitTypeProperty   UnitType = "property"
)

// Valid reports whether t is a known unit type.
func (t UnitType) Valid() bool {
	switch t {
	case UnitTypePage, UnitTypeAttachment, UnitTypeObject, UnitTypeProperty:
		return true
	}
	return false
}

// ContentRef points at a content unit in the host wiki.
// Attachments set Filename; objects set ObjectType and ObjectNumber;
// properties additionally set PropertyName.
type ContentRef struct {
	Type         UnitType `json:"type"`
	Wiki         string   `json:"wiki"`
	Space        string   `json:"space"`
	Page         string   `json:"page"`
	Language     string   `json:"language,omitempty"`
	Filename     string   `json:"filename,omitempty"`
	ObjectType   string   `json:"object_type,omitempty"`
	ObjectNumber int      `json:"object_number,omitempty"`
	PropertyName string   `json:"property_name,omitempty"`
}

// PageRef returns the reference of the page owning this unit.
func (r ContentRef) PageRef() ContentRef {
	return ContentRef{
		Type:     UnitTypePage,
		Wiki:     r.Wiki,
		Space:    r.Space,
		Page:     r.Page,
		Language: r.Language,
	}
}

// FullName returns the page's full name in the host's "Space.Page" notation.
func (r ContentRef) FullName() string {
	return r.Space + "." + r.Page
}

// DocRef returns the "wiki:Space.Page" reference of the owning page.
func (r ContentRef) DocRef() string {
	return r.Wiki + ":" + r.FullName()
}

// Scope returns the wiki+space scope the unit lives in.
func (r ContentRef) Scope() Scope {
	return Scope{Wiki: r.Wiki, Space: r.Space}
}

// Validate checks the reference carries the fields its type needs.
func (r ContentRef) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown unit type %q", ErrInvalidInput, r.Type)
	}
	if r.Wiki == "" || r.Space == "" || r.Page == "" {
		return fmt.Errorf("%w: wiki, space and page are required", ErrInvalidInput)
	}
	switch r.Type {
	case UnitTypeAttachment:
		if r.Filename == "" {
			return fmt.Errorf("%w: attachment reference without filename", ErrInvalidInput)
		}
	case UnitTypeObject:
		if r.ObjectType == "" {
			return fmt.Errorf("%w: object reference without object type", ErrInvalidInput)
		}
	case UnitTypeProperty:
		if r.ObjectType == "" || r.PropertyName == "" {
			return fmt.Errorf("%w: property reference without object type or name", ErrInvalidInput)
		}
	}
	return nil
}

func (r ContentRef) String() string {
	var b strings.Builder
	b.WriteString(string(r.Type))
	b.WriteString(":")
	b.WriteString(r.DocRef())
	if r.Language != "" {
		b.WriteString("(" + r.Language + ")")
	}
	switch r.Type {
	case UnitTypeAttachment:
		b.WriteString("@" + r.Filename)
	case UnitTypeObject:
		fmt.Fprintf(&b, "^%s[%d]", r.ObjectType, r.ObjectNumber)
	case UnitTypeProperty:
		fmt.Fprintf(&b, "^%s[%d].%s", r.ObjectType, r.ObjectNumber, r.PropertyName)
	}
	return b.String()
}

// Scope narrows an operation to a wiki, or to one space of a wiki when Space is set.
type Scope struct {
	Wiki  string `json:"wiki"`
	Space string `json:"space,omitempty"`
}

// IsZero reports whether the scope selects nothing in particular.
func (s Scope) IsZero() bool {
	return s.Wiki == "" && s.Space == ""
}

// Contains reports whether ref lies inside the scope.
func (s Scope) Contains(ref ContentRef) bool {
	if s.Wiki != "" && !strings.EqualFold(s.Wiki, ref.Wiki) {
		return false
	}
	if s.Space != "" && !strings.EqualFold(s.Space, ref.Space) {
		return false
	}
	return true
}

// Validate requires a wiki whenever a space is given.
func (s Scope) Validate() error {
	if s.Wiki == "" {
		return fmt.Errorf("%w: scope requires a wiki", ErrInvalidInput)
	}
	return nil
}

// Property is one name/value pair of a structured object.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ContentUnit is a loaded unit of content. The core never mutates it.
type ContentUnit struct {
	Ref ContentRef `json:"ref"`

	Title        string    `json:"title,omitempty"`
	Version      string    `json:"version,omitempty"`
	Author       string    `json:"author,omitempty"`
	Creator      string    `json:"creator,omitempty"`
	Date         time.Time `json:"date"`
	CreationDate time.Time `json:"creation_date"`
	Hidden       bool      `json:"hidden"`

	// Pages: raw rich-text content and its syntax (a MIME type)
	Content string `json:"content,omitempty"`
	Syntax  string `json:"syntax,omitempty"`

	// Attachments: binary payload
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Data     []byte `json:"-"`

	// Objects: every property of the object. Properties: the single value.
	Properties []Property `json:"properties,omitempty"`
	Value      string     `json:"value,omitempty"`
}
