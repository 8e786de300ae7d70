package domain

import (
	"errors"
	"testing"
)

func TestContentRefValidate(t *testing.T) {
	base := ContentRef{Type: UnitTypePage, Wiki: "xwiki", Space: "Main", Page: "WebHome"}

	tests := []struct {
		name    string
		mutate  func(r *ContentRef)
		wantErr bool
	}{
		{"page", func(r *ContentRef) {}, false},
		{"unknown type", func(r *ContentRef) { r.Type = "blob" }, true},
		{"missing page", func(r *ContentRef) { r.Page = "" }, true},
		{"attachment without file", func(r *ContentRef) { r.Type = UnitTypeAttachment }, true},
		{"attachment", func(r *ContentRef) { r.Type = UnitTypeAttachment; r.Filename = "a.pdf" }, false},
		{"object without type", func(r *ContentRef) { r.Type = UnitTypeObject }, true},
		{"property without name", func(r *ContentRef) { r.Type = UnitTypeProperty; r.ObjectType = "Blog.BlogPostClass" }, true},
		{"property", func(r *ContentRef) {
			r.Type = UnitTypeProperty
			r.ObjectType = "Blog.BlogPostClass"
			r.PropertyName = "summary"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := base
			tt.mutate(&ref)
			err := ref.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestContentRefHelpers(t *testing.T) {
	ref := ContentRef{Type: UnitTypeAttachment, Wiki: "xwiki", Space: "Sandbox", Page: "TestPage", Language: "fr", Filename: "logo.png"}

	if got := ref.FullName(); got != "Sandbox.TestPage" {
		t.Errorf("FullName = %q", got)
	}
	if got := ref.DocRef(); got != "xwiki:Sandbox.TestPage" {
		t.Errorf("DocRef = %q", got)
	}
	page := ref.PageRef()
	if page.Type != UnitTypePage || page.Filename != "" || page.Language != "fr" {
		t.Errorf("unexpected page ref %+v", page)
	}
	if got := ref.String(); got != "attachment:xwiki:Sandbox.TestPage(fr)@logo.png" {
		t.Errorf("String = %q", got)
	}
}

func TestScopeContains(t *testing.T) {
	ref := ContentRef{Type: UnitTypePage, Wiki: "xwiki", Space: "Main", Page: "WebHome"}

	if !(Scope{Wiki: "xwiki"}).Contains(ref) {
		t.Error("wiki scope should contain page")
	}
	if !(Scope{Wiki: "XWiki", Space: "main"}).Contains(ref) {
		t.Error("scope comparison should ignore case")
	}
	if (Scope{Wiki: "xwiki", Space: "Sandbox"}).Contains(ref) {
		t.Error("other space should not contain page")
	}
	if err := (Scope{Space: "Main"}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected space-only scope to be invalid, got %v", err)
	}
}

func TestIndexRecord(t *testing.T) {
	rec := IndexRecord{}
	rec.Set(FieldID, "xwiki.main.webhome.en")
	rec.Set(FieldAuthor, "")
	rec.Add(FieldTitle+"_en", "Home")
	rec.Add(FieldTitle+"_en", "")

	if rec.ID() != "xwiki.main.webhome.en" {
		t.Errorf("unexpected id %q", rec.ID())
	}
	if _, ok := rec[FieldAuthor]; ok {
		t.Error("empty values should not be stored")
	}
	if len(rec["title_en"]) != 1 {
		t.Errorf("expected one title value, got %v", rec["title_en"])
	}
	if got := rec.Fields(); len(got) != 2 || got[0] != "id" {
		t.Errorf("unexpected fields %v", got)
	}
}

func TestBaseField(t *testing.T) {
	tests := map[string]string{
		"title_en":     "title",
		"ft_en":        "ft",
		"sort_en":      "sort_en",
		"propvalue_de": "propvalue",
		"lang":         "lang",
		"creationdate": "creationdate",
		"_en":          "_en",
	}
	for in, want := range tests {
		if got := BaseField(in); got != want {
			t.Errorf("BaseField(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContentEventValidate(t *testing.T) {
	ref := ContentRef{Type: UnitTypePage, Wiki: "xwiki", Space: "Main", Page: "WebHome"}
	if err := (ContentEvent{Kind: EventUpdated, Ref: ref}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (ContentEvent{Kind: EventAttachmentChanged, Ref: ref}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected attachment event on page to be rejected, got %v", err)
	}
	if err := (ContentEvent{Kind: "renamed", Ref: ref}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected unknown kind to be rejected, got %v", err)
	}
}
