package services

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven/mocks"
)

func TestFieldMapper_IdentifierOf(t *testing.T) {
	m := newTestMapper()

	tests := []struct {
		name string
		ref  domain.ContentRef
		want string
	}{
		{
			name: "page",
			ref:  pageRef("Main", "WebHome", "en"),
			want: "xwiki.main.webhome.en",
		},
		{
			name: "page without language",
			ref:  pageRef("Main", "WebHome", ""),
			want: "xwiki.main.webhome.en",
		},
		{
			name: "page with non-alphabetic language",
			ref:  pageRef("Main", "WebHome", "pt_BR"),
			want: "xwiki.main.webhome.en",
		},
		{
			name: "translated page",
			ref:  pageRef("Main", "WebHome", "FR"),
			want: "xwiki.main.webhome.fr",
		},
		{
			name: "attachment",
			ref:  domain.ContentRef{Type: domain.UnitTypeAttachment, Wiki: "xwiki", Space: "Main", Page: "WebHome", Filename: "Report.PDF"},
			want: "xwiki.main.webhome.en.file.report\\.pdf",
		},
		{
			name: "object",
			ref:  domain.ContentRef{Type: domain.UnitTypeObject, Wiki: "xwiki", Space: "Blog", Page: "Post", ObjectType: "Blog.BlogPostClass", ObjectNumber: 2},
			want: "xwiki.blog.post.en.blog\\.blogpostclass.2",
		},
		{
			name: "property",
			ref:  domain.ContentRef{Type: domain.UnitTypeProperty, Wiki: "xwiki", Space: "Blog", Page: "Post", ObjectType: "Blog.BlogPostClass", ObjectNumber: 2, PropertyName: "summary"},
			want: "xwiki.blog.post.en.summary.blog\\.blogpostclass#2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.IdentifierOf(tt.ref)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if again := m.IdentifierOf(tt.ref); again != got {
				t.Errorf("identifier not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestFieldMapper_IdentifierInjective(t *testing.T) {
	m := newTestMapper()

	refs := []domain.ContentRef{
		pageRef("Main", "WebHome", "en"),
		pageRef("Main", "WebHome", "fr"),
		pageRef("Main.Sub", "Page", "en"),
		pageRef("Main", "Sub.Page", "en"),
		{Type: domain.UnitTypeAttachment, Wiki: "xwiki", Space: "Main", Page: "WebHome", Filename: "0"},
		{Type: domain.UnitTypeAttachment, Wiki: "xwiki", Space: "Main", Page: "WebHome", Filename: "a-1"},
		{Type: domain.UnitTypeAttachment, Wiki: "xwiki", Space: "Main", Page: "WebHome", Filename: "x#1"},
		{Type: domain.UnitTypeObject, Wiki: "xwiki", Space: "Main", Page: "WebHome", ObjectType: "file", ObjectNumber: 0},
		{Type: domain.UnitTypeObject, Wiki: "xwiki", Space: "Main", Page: "WebHome", ObjectType: "XWiki.Tag", ObjectNumber: 0},
		{Type: domain.UnitTypeObject, Wiki: "xwiki", Space: "Main", Page: "WebHome", ObjectType: "XWiki.Tag", ObjectNumber: 1},
		{Type: domain.UnitTypeProperty, Wiki: "xwiki", Space: "Main", Page: "WebHome", ObjectType: "x", ObjectNumber: 1, PropertyName: "file"},
		{Type: domain.UnitTypeProperty, Wiki: "xwiki", Space: "Main", Page: "WebHome", ObjectType: "XWiki.Tag", ObjectNumber: 0, PropertyName: "tags"},
		{Type: domain.UnitTypeProperty, Wiki: "xwiki", Space: "Main", Page: "WebHome", ObjectType: "XWiki.Tag", ObjectNumber: 1, PropertyName: "tags"},
	}

	seen := make(map[string]domain.ContentRef)
	for _, ref := range refs {
		id := m.IdentifierOf(ref)
		if prev, dup := seen[id]; dup {
			t.Errorf("identifier %q shared by %s and %s", id, prev, ref)
		}
		seen[id] = ref
	}
}

func TestFieldMapper_PageRecord(t *testing.T) {
	m := NewFieldMapper(FieldMapperConfig{
		Renderer: &mocks.MockRenderer{RenderFn: func(content, syntax string) (string, error) {
			return "rendered " + content, nil
		}},
		DefaultLanguage: "en",
		Logger:          discardLogger(),
	})

	unit := pageUnit("Main", "WebHome", "de", "Hallo")
	unit.Hidden = true

	rec, err := m.RecordOf(context.Background(), unit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"id":          "xwiki.main.webhome.de",
		"wiki":        "xwiki",
		"space":       "Main",
		"lang":        "de",
		"type":        "page",
		"name_de":     "WebHome",
		"fullname_de": "Main.WebHome",
		"docref_de":   "xwiki:Main.WebHome",
		"title_de":    "WebHome title",
		"ft_de":       "rendered Hallo",
		"author":      "XWiki.Admin",
		"version":     "1.1",
		"date":        "2024-03-01T12:00:00Z",
		"hidden":      "true",
	}
	for field, value := range want {
		if got := rec.Get(field); got != value {
			t.Errorf("%s: expected %q, got %q", field, value, got)
		}
	}
	if _, ok := rec["creationdate"]; ok {
		t.Error("zero creation date should not be indexed")
	}
}

func TestFieldMapper_RenderFailureIsMappingError(t *testing.T) {
	m := NewFieldMapper(FieldMapperConfig{
		Renderer: &mocks.MockRenderer{RenderFn: func(content, syntax string) (string, error) {
			return "", errors.New("macro exploded")
		}},
		Logger: discardLogger(),
	})

	_, err := m.RecordOf(context.Background(), pageUnit("Main", "WebHome", "en", "{{boom/}}"))
	if !domain.IsMappingError(err) {
		t.Fatalf("expected mapping error, got %v", err)
	}
}

func TestFieldMapper_AttachmentRecord(t *testing.T) {
	m := newTestMapper()

	unit := &domain.ContentUnit{
		Ref:      domain.ContentRef{Type: domain.UnitTypeAttachment, Wiki: "xwiki", Space: "Main", Page: "WebHome", Filename: "notes.txt"},
		MimeType: "text/plain",
		Data:     []byte("meeting notes"),
	}
	rec, err := m.RecordOf(context.Background(), unit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Get("filename_en") != "notes.txt" {
		t.Errorf("unexpected filename %q", rec.Get("filename_en"))
	}
	if rec.Get("mimetype") != "text/plain" {
		t.Errorf("unexpected mimetype %q", rec.Get("mimetype"))
	}
	if rec.Get("ft_en") != "meeting notes" {
		t.Errorf("unexpected full text %q", rec.Get("ft_en"))
	}

	binary := &domain.ContentUnit{
		Ref:      domain.ContentRef{Type: domain.UnitTypeAttachment, Wiki: "xwiki", Space: "Main", Page: "WebHome", Filename: "logo.png"},
		MimeType: "image/png",
		Data:     []byte{0x89, 0x50},
	}
	rec, err = m.RecordOf(context.Background(), binary)
	if err != nil {
		t.Fatalf("unsupported MIME type should index metadata only, got %v", err)
	}
	if _, ok := rec["ft_en"]; ok {
		t.Error("expected no full text for unsupported MIME type")
	}
	if rec.Get("filename_en") != "logo.png" {
		t.Errorf("expected filename to be indexed, got %q", rec.Get("filename_en"))
	}
}

func TestFieldMapper_ObjectExcludesProperties(t *testing.T) {
	m := NewFieldMapper(FieldMapperConfig{
		DefaultLanguage:    "en",
		ExcludedProperties: []string{"password", "Secret"},
		Logger:             discardLogger(),
	})

	unit := &domain.ContentUnit{
		Ref: domain.ContentRef{Type: domain.UnitTypeObject, Wiki: "xwiki", Space: "XWiki", Page: "Alice", ObjectType: "XWiki.XWikiUsers"},
		Properties: []domain.Property{
			{Name: "first_name", Value: "Alice"},
			{Name: "password", Value: "hash:abc"},
			{Name: "secret", Value: "s3cr3t"},
		},
	}
	rec, err := m.RecordOf(context.Background(), unit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for field, values := range rec {
		for _, v := range values {
			if v == "hash:abc" || v == "s3cr3t" {
				t.Errorf("excluded property value leaked into %s", field)
			}
		}
	}
	if rec.Get("object") != "XWiki.XWikiUsers" || rec.Get("number") != "0" {
		t.Errorf("unexpected object fields %v / %v", rec["object"], rec["number"])
	}
	if rec.Get("ft_en") != "first_name: Alice" {
		t.Errorf("unexpected full text %q", rec.Get("ft_en"))
	}
}

func TestFieldMapper_ExcludedPropertyUnit(t *testing.T) {
	m := newTestMapper()

	unit := &domain.ContentUnit{
		Ref:   domain.ContentRef{Type: domain.UnitTypeProperty, Wiki: "xwiki", Space: "XWiki", Page: "Alice", ObjectType: "XWiki.XWikiUsers", PropertyName: "Password"},
		Value: "hash:abc",
	}
	_, err := m.RecordOf(context.Background(), unit)
	if !errors.Is(err, domain.ErrExcludedProperty) {
		t.Fatalf("expected ErrExcludedProperty, got %v", err)
	}
	if !domain.IsMappingError(err) {
		t.Error("expected excluded property to surface as mapping error")
	}

	unit.Ref.PropertyName = "email"
	unit.Value = "alice@example.com"
	rec, err := m.RecordOf(context.Background(), unit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Get("propname") != "email" || rec.Get("propvalue_en") != "alice@example.com" {
		t.Errorf("unexpected property record %v", rec)
	}
}

func TestFieldMapper_InvalidRef(t *testing.T) {
	m := newTestMapper()
	_, err := m.RecordOf(context.Background(), &domain.ContentUnit{Ref: domain.ContentRef{Type: domain.UnitTypePage}})
	if !domain.IsMappingError(err) || !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected mapping error wrapping ErrInvalidInput, got %v", err)
	}
}
