package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

var englishFields = []string{"title_en", "ft_en", "name_en", "lang", "wiki", "space", "type"}

func TestQueryBuilder_LocalizesKnownFields(t *testing.T) {
	b := NewQueryBuilder(discardLogger())

	q, err := b.Build(&domain.SearchRequest{Query: "title:foo"}, "en", englishFields)
	require.NoError(t, err)
	assert.Equal(t, "title_en:foo lang:en", q.Query)

	// title_fr is unknown, so nothing is rewritten in French
	q, err = b.Build(&domain.SearchRequest{Query: "title:foo"}, "fr", englishFields)
	require.NoError(t, err)
	assert.Equal(t, "title:foo lang:fr", q.Query)
}

func TestQueryBuilder_IntrospectionUnavailable(t *testing.T) {
	b := NewQueryBuilder(discardLogger())

	q, err := b.Build(&domain.SearchRequest{Query: "title:foo  bar"}, "en", nil)
	require.NoError(t, err)
	assert.Equal(t, "title:foo bar lang:en", q.Query)
}

func TestQueryBuilder_KeepsPrefixesAndUnknownFields(t *testing.T) {
	b := NewQueryBuilder(discardLogger())

	q, err := b.Build(&domain.SearchRequest{Query: "+title:foo -ft:bar http://example.com author:XWiki.Admin"}, "en", englishFields)
	require.NoError(t, err)
	assert.Equal(t, "+title_en:foo -ft_en:bar http://example.com author:XWiki.Admin lang:en", q.Query)
}

func TestQueryBuilder_AppendsFiltersAndScope(t *testing.T) {
	b := NewQueryBuilder(discardLogger())

	req := &domain.SearchRequest{
		Query:   "release notes",
		Filters: map[string]string{"type": "attachment", "title": "Road map"},
		Scope:   &domain.Scope{Wiki: "xwiki", Space: "Dev"},
	}
	q, err := b.Build(req, "en", englishFields)
	require.NoError(t, err)
	assert.Equal(t, `release notes space:Dev title_en:"Road map" type:attachment wiki:xwiki lang:en`, q.Query)
}

func TestQueryBuilder_ExplicitLanguage(t *testing.T) {
	b := NewQueryBuilder(discardLogger())

	q, err := b.Build(&domain.SearchRequest{Query: "foo lang:de"}, "en", englishFields)
	require.NoError(t, err)
	assert.Equal(t, "foo lang:de", q.Query)

	q, err = b.Build(&domain.SearchRequest{Query: "foo", Filters: map[string]string{"lang": "fr"}}, "en", englishFields)
	require.NoError(t, err)
	assert.Equal(t, "foo lang:fr", q.Query)
}

func TestQueryBuilder_MultipleLanguages(t *testing.T) {
	b := NewQueryBuilder(discardLogger())

	q, err := b.Build(&domain.SearchRequest{Query: "foo", Languages: []string{"EN", "fr", "en"}}, "en", englishFields)
	require.NoError(t, err)
	assert.Equal(t, "foo", q.Query)
	assert.Equal(t, []string{"en", "fr"}, q.Languages)
	assert.Contains(t, q.HighlightFields, "ft_fr")
	assert.Contains(t, q.HighlightFields, "title_en")
}

func TestQueryBuilder_FieldWeights(t *testing.T) {
	b := NewQueryBuilder(discardLogger())

	req := &domain.SearchRequest{
		Query:  "foo +bar title:baz",
		Params: map[string]string{"qf": "title:4, ft  kw:0.5"},
	}
	q, err := b.Build(req, "en", englishFields)
	require.NoError(t, err)
	assert.Equal(t,
		"title_en:foo^4 title_en:bar^4 ft_en:foo^1 ft_en:bar^1 kw:foo^0.5 kw:bar^0.5",
		q.BoostQuery,
	)
	assert.Nil(t, q.Params, "qf must not be passed through")

	_, err = b.Build(&domain.SearchRequest{Query: "foo", Params: map[string]string{"qf": "title:high"}}, "en", englishFields)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestQueryBuilder_Parameters(t *testing.T) {
	b := NewQueryBuilder(discardLogger())

	q, err := b.Build(&domain.SearchRequest{Query: "foo"}, "en", englishFields)
	require.NoError(t, err)
	assert.Equal(t, domain.OperatorAnd, q.Operator)
	assert.Equal(t, 0, q.Offset)
	assert.Equal(t, domain.DefaultRows, q.Limit)

	req := &domain.SearchRequest{
		Query: "foo",
		Params: map[string]string{
			"q.op":  "or",
			"start": "40",
			"rows":  "500",
			"fl":    "id,score",
		},
	}
	q, err = b.Build(req, "en", englishFields)
	require.NoError(t, err)
	assert.Equal(t, domain.OperatorOr, q.Operator)
	assert.Equal(t, 40, q.Offset)
	assert.Equal(t, domain.MaxRows, q.Limit)
	assert.Equal(t, map[string]string{"fl": "id,score"}, q.Params)

	_, err = b.Build(&domain.SearchRequest{Query: "foo", Params: map[string]string{"q.op": "XOR"}}, "en", englishFields)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryBuilder_EmptyQuery(t *testing.T) {
	b := NewQueryBuilder(discardLogger())

	q, err := b.Build(&domain.SearchRequest{}, "en", englishFields)
	require.NoError(t, err)
	assert.Equal(t, "lang:en", q.Query)
	assert.Empty(t, q.BoostQuery)
}

func TestQueryBuilder_QuotesFilterSyntax(t *testing.T) {
	b := NewQueryBuilder(discardLogger())

	req := &domain.SearchRequest{
		Query: "roadmap",
		Filters: map[string]string{
			"docref": "xwiki:Main.Alpha",
			"date":   "2024-05-01T10:00:00Z",
			"title":  `say "hi" \o/`,
		},
	}
	known := []string{"title_en", "docref_en", "lang"}
	q, err := b.Build(req, "en", known)
	require.NoError(t, err)
	assert.Equal(t,
		`roadmap date:"2024-05-01T10:00:00Z" docref_en:"xwiki:Main.Alpha" title_en:"say \"hi\" \\o/" lang:en`,
		q.Query)
}

func TestQueryBuilder_QuotedValueMentioningLang(t *testing.T) {
	b := NewQueryBuilder(discardLogger())

	req := &domain.SearchRequest{Query: "notes", Filters: map[string]string{"title": "see lang:fr"}}
	q, err := b.Build(req, "en", englishFields)
	require.NoError(t, err)
	assert.Equal(t, `notes title_en:"see lang:fr" lang:en`, q.Query)
}

func TestQuoteValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"attachment", "attachment"},
		{"XWiki.Admin", "XWiki.Admin"},
		{"", `""`},
		{"Road map", `"Road map"`},
		{"xwiki:Main.Alpha", `"xwiki:Main.Alpha"`},
		{"a+b", `"a+b"`},
		{"(draft)", `"(draft)"`},
		{"C:\\temp", `"C:\\temp"`},
		{`say "hi"`, `"say \"hi\""`},
		{"wild*", `"wild*"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quoteValue(tt.in), tt.in)
	}
}
