package services

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// Fields highlighted in every query, localized per language.
var highlightFields = []string{
	domain.FieldTitle,
	domain.FieldFullText,
	domain.FieldFilename,
	domain.FieldPropertyValue,
}

// Parameters consumed by the builder instead of being passed through.
var builderParams = map[string]bool{
	domain.ParamFieldWeights: true,
	domain.ParamOperator:     true,
	domain.ParamStart:        true,
	domain.ParamRows:         true,
}

// QueryBuilder translates a SearchRequest into an EngineQuery.
type QueryBuilder struct {
	logger *slog.Logger
}

// NewQueryBuilder creates a new query builder.
func NewQueryBuilder(logger *slog.Logger) *QueryBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryBuilder{logger: logger}
}

// Build constructs the engine query for req in activeLanguage.
//
// Exact-match filters are appended as " field:value" clauses. Any
// "field:value" token whose field exists in knownFields as
// "field_<activeLanguage>" is rewritten to the localized field. A nil
// knownFields disables rewriting. When the query does not mention the
// language field and a single language is in play, "lang:<activeLanguage>"
// is appended. The "qf" parameter ("field[:boost]" entries) becomes a
// disjunction of weighted field clauses used only for ranking.
func (b *QueryBuilder) Build(req *domain.SearchRequest, activeLanguage string, knownFields []string) (*domain.EngineQuery, error) {
	known := make(map[string]bool, len(knownFields))
	for _, f := range knownFields {
		known[f] = true
	}

	query := appendFilters(req.Query, filtersOf(req))
	query = rewriteFields(query, activeLanguage, known)

	languages := requestLanguages(req)
	if len(languages) <= 1 && !referencesField(query, domain.FieldLang) {
		query = strings.TrimSpace(query + " " + domain.FieldLang + ":" + activeLanguage)
	}

	boost, err := boostQuery(req.Param(domain.ParamFieldWeights, ""), freeTerms(req.Query), activeLanguage, known)
	if err != nil {
		return nil, err
	}

	operator := strings.ToUpper(req.Param(domain.ParamOperator, domain.OperatorAnd))
	if operator != domain.OperatorAnd && operator != domain.OperatorOr {
		return nil, fmt.Errorf("%w: unknown operator %q", domain.ErrInvalidInput, operator)
	}

	offset, limit := pageOf(req)

	q := &domain.EngineQuery{
		Query:      query,
		BoostQuery: boost,
		Operator:   operator,
		Offset:     offset,
		Limit:      limit,
		Params:     passthroughParams(req.Params),
	}
	if len(languages) > 1 {
		q.Languages = languages
	}
	q.HighlightFields = highlightsFor(activeLanguage, languages)

	b.logger.Debug("built engine query",
		"query", q.Query,
		"boost_query", q.BoostQuery,
		"operator", q.Operator,
		"languages", q.Languages,
	)
	return q, nil
}

// filtersOf merges request filters with the request scope.
func filtersOf(req *domain.SearchRequest) map[string]string {
	filters := make(map[string]string, len(req.Filters)+2)
	for k, v := range req.Filters {
		filters[k] = v
	}
	if req.Scope != nil {
		if _, set := filters[domain.FieldWiki]; !set && req.Scope.Wiki != "" {
			filters[domain.FieldWiki] = req.Scope.Wiki
		}
		if _, set := filters[domain.FieldSpace]; !set && req.Scope.Space != "" {
			filters[domain.FieldSpace] = req.Scope.Space
		}
	}
	return filters
}

// appendFilters appends " field:value" for each filter, in field order.
func appendFilters(query string, filters map[string]string) string {
	if len(filters) == 0 {
		return query
	}
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(query)
	for _, name := range names {
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(quoteValue(filters[name]))
	}
	return b.String()
}

// rewriteFields splits on whitespace and localizes known fields.
func rewriteFields(query, lang string, known map[string]bool) string {
	tokens := queryTokens(query)
	if len(known) == 0 {
		return strings.Join(tokens, " ")
	}
	for i, tok := range tokens {
		prefix, field, rest, ok := splitFieldToken(tok)
		if !ok {
			continue
		}
		localized := domain.LocalizedField(field, lang)
		if known[localized] {
			tokens[i] = prefix + localized + rest
		}
	}
	return strings.Join(tokens, " ")
}

// splitFieldToken splits "+title:foo" into "+", "title", ":foo".
func splitFieldToken(tok string) (prefix, field, rest string, ok bool) {
	start := 0
	for start < len(tok) && strings.ContainsRune("+-(", rune(tok[start])) {
		start++
	}
	colon := strings.IndexByte(tok[start:], ':')
	if colon <= 0 {
		return "", "", "", false
	}
	colon += start
	return tok[:start], tok[start:colon], tok[colon:], true
}

// queryTokens splits on whitespace outside double-quoted phrases, so a
// quoted filter value stays one token.
func queryTokens(query string) []string {
	var (
		tokens  []string
		current strings.Builder
		quoted  bool
		escaped bool
	)
	for _, r := range query {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case !quoted && unicode.IsSpace(r):
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// referencesField reports whether any token targets field.
func referencesField(query, field string) bool {
	for _, tok := range queryTokens(query) {
		if _, f, _, ok := splitFieldToken(tok); ok && f == field {
			return true
		}
	}
	return false
}

// freeTerms returns the bare terms of the raw query, without fields,
// operators or phrases.
func freeTerms(query string) []string {
	var terms []string
	for _, tok := range strings.Fields(query) {
		if _, _, _, ok := splitFieldToken(tok); ok {
			continue
		}
		if strings.ContainsAny(tok, `"()`) {
			continue
		}
		tok = strings.TrimLeft(tok, "+-")
		switch tok {
		case "", "AND", "OR", "NOT", "&&", "||":
			continue
		}
		terms = append(terms, tok)
	}
	return terms
}

// boostQuery turns "title:4 ft" into "title_en:foo^4 ft_en:foo^1".
func boostQuery(weights string, terms []string, lang string, known map[string]bool) (string, error) {
	if weights == "" || len(terms) == 0 {
		return "", nil
	}

	entries := strings.FieldsFunc(weights, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})

	var clauses []string
	for _, entry := range entries {
		field, boostStr, hasBoost := strings.Cut(entry, ":")
		if field == "" {
			continue
		}
		boost := 1.0
		if hasBoost {
			parsed, err := strconv.ParseFloat(boostStr, 64)
			if err != nil || parsed < 0 {
				return "", fmt.Errorf("%w: bad boost in %q", domain.ErrInvalidInput, entry)
			}
			boost = parsed
		}
		if localized := domain.LocalizedField(field, lang); known[localized] {
			field = localized
		}
		for _, term := range terms {
			clauses = append(clauses, field+":"+term+"^"+strconv.FormatFloat(boost, 'f', -1, 64))
		}
	}
	return strings.Join(clauses, " "), nil
}

// requestLanguages returns the requested languages, lower-cased and de-duplicated.
func requestLanguages(req *domain.SearchRequest) []string {
	seen := make(map[string]bool, len(req.Languages))
	var langs []string
	for _, l := range req.Languages {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		langs = append(langs, l)
	}
	return langs
}

func pageOf(req *domain.SearchRequest) (offset, limit int) {
	offset, err := strconv.Atoi(req.Param(domain.ParamStart, "0"))
	if err != nil || offset < domain.FirstIndex {
		offset = domain.FirstIndex
	}
	limit, err = strconv.Atoi(req.Param(domain.ParamRows, strconv.Itoa(domain.DefaultRows)))
	if err != nil || limit <= 0 {
		limit = domain.DefaultRows
	}
	if limit > domain.MaxRows {
		limit = domain.MaxRows
	}
	return offset, limit
}

func passthroughParams(params map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range params {
		if !builderParams[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func highlightsFor(active string, languages []string) []string {
	langs := languages
	if len(langs) == 0 {
		langs = []string{active}
	}
	fields := make([]string, 0, len(highlightFields)*len(langs))
	for _, l := range langs {
		for _, f := range highlightFields {
			fields = append(fields, domain.LocalizedField(f, l))
		}
	}
	return fields
}

// querySyntax lists the characters the query parser treats specially.
// Document references ("wiki:Space.Page") and dates carry a colon.
const querySyntax = " \t\n:+-()\"\\^~*?!{}[]&|/<>="

var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quoteValue turns a filter value into a phrase when it contains query
// syntax, escaping backslashes and quotes inside it.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, querySyntax) {
		return v
	}
	return `"` + phraseEscaper.Replace(v) + `"`
}
