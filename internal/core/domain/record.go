package domain

import (
	"sort"
	"strings"
)

// Index field vocabulary. Fields marked localized are stored per language as
// "<field>_<lang>"; the rest are stored as-is.
const (
	FieldID           = "id"
	FieldWiki         = "wiki"
	FieldTitle        = "title"    // localized
	FieldName         = "name"     // localized
	FieldSpace        = "space"
	FieldFullName     = "fullname" // localized
	FieldVersion      = "version"
	FieldLang         = "lang"
	FieldType         = "type"
	FieldFilename     = "filename" // localized
	FieldObject       = "object"
	FieldAuthor       = "author"
	FieldCreator      = "creator"
	FieldDate         = "date"
	FieldCreationDate = "creationdate"
	FieldHidden       = "hidden"
	FieldFullText     = "ft" // localized, not stored
	FieldKeyword      = "kw" // reserved
	FieldMimeType     = "mimetype"
	FieldDocRef       = "docref" // localized

	// Structured object extensions
	FieldNumber        = "number"
	FieldPropertyName  = "propname"
	FieldPropertyValue = "propvalue" // localized
)

// LocalizedFields lists the base names stored once per language.
var LocalizedFields = []string{
	FieldTitle,
	FieldName,
	FieldFullName,
	FieldFilename,
	FieldFullText,
	FieldDocRef,
	FieldPropertyValue,
}

// IsLocalizedField reports whether field is stored per language.
func IsLocalizedField(field string) bool {
	for _, f := range LocalizedFields {
		if f == field {
			return true
		}
	}
	return false
}

// LocalizedField returns "<field>_<lang>".
func LocalizedField(field, lang string) string {
	return field + "_" + lang
}

// BaseField strips a language suffix from a localized field name.
func BaseField(field string) string {
	i := strings.LastIndexByte(field, '_')
	if i <= 0 {
		return field
	}
	if IsLocalizedField(field[:i]) {
		return field[:i]
	}
	return field
}

// IndexRecord maps field names to one or more values.
type IndexRecord map[string][]string

// Set replaces the values of field. Empty values are dropped.
func (r IndexRecord) Set(field string, values ...string) {
	kept := values[:0:0]
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(r, field)
		return
	}
	r[field] = kept
}

// Add appends a value to field.
func (r IndexRecord) Add(field, value string) {
	if value == "" {
		return
	}
	r[field] = append(r[field], value)
}

// Get returns the first value of field, or "".
func (r IndexRecord) Get(field string) string {
	if v := r[field]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// ID returns the record's identifier.
func (r IndexRecord) ID() string {
	return r.Get(FieldID)
}

// Fields returns the record's field names in sorted order.
func (r IndexRecord) Fields() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
