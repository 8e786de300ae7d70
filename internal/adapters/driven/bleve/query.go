package bleve

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// buildQuery translates an EngineQuery into a bleve query: the main query
// string is required, boost clauses only add to the score, and a language
// list becomes a required disjunction on the lang field.
func buildQuery(q *domain.EngineQuery) (query.Query, error) {
	main, err := parseQueryString(q.Query, q.Operator)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(q.BoostQuery) == "" && len(q.Languages) == 0 {
		return main, nil
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(main)

	if len(q.Languages) > 0 {
		langs := bleve.NewDisjunctionQuery()
		for _, lang := range q.Languages {
			tq := bleve.NewTermQuery(lang)
			tq.SetField(domain.FieldLang)
			langs.AddQuery(tq)
		}
		bq.AddMust(langs)
	}

	if strings.TrimSpace(q.BoostQuery) != "" {
		boost, err := parseQueryString(q.BoostQuery, domain.OperatorOr)
		if err != nil {
			return nil, err
		}
		bq.AddShould(boost)
	}
	return bq, nil
}

// parseQueryString validates s as a bleve query string. Under AND every
// top-level clause without a + or - prefix becomes required, except that
// clauses joined by OR form one required disjunction.
func parseQueryString(s, operator string) (query.Query, error) {
	if strings.TrimSpace(s) == "" {
		return bleve.NewMatchAllQuery(), nil
	}
	if !strings.EqualFold(operator, domain.OperatorAnd) {
		return parseClauses(s)
	}

	var (
		required     []string
		alternatives [][]string
	)
	for _, group := range orGroups(splitClauses(s)) {
		if len(group) == 1 {
			required = append(required, requireClause(group[0]))
			continue
		}
		alternatives = append(alternatives, group)
	}
	if len(alternatives) == 0 {
		return parseClauses(strings.Join(required, " "))
	}

	bq := bleve.NewBooleanQuery()
	if len(required) > 0 {
		q, err := parseClauses(strings.Join(required, " "))
		if err != nil {
			return nil, err
		}
		bq.AddMust(q)
	}
	for _, group := range alternatives {
		q, err := parseClauses(strings.Join(group, " "))
		if err != nil {
			return nil, err
		}
		bq.AddMust(q)
	}
	return bq, nil
}

func parseClauses(s string) (query.Query, error) {
	qsq := bleve.NewQueryStringQuery(s)
	if _, err := qsq.Parse(); err != nil {
		return nil, fmt.Errorf("%w: invalid query %q: %v", domain.ErrInvalidInput, s, err)
	}
	return qsq, nil
}

// orGroups groups clauses joined by OR or ||. AND and && are dropped since
// adjacent clauses are already conjunctive.
func orGroups(clauses []string) [][]string {
	var (
		groups [][]string
		join   bool
	)
	for _, c := range clauses {
		switch c {
		case "AND", "&&":
			continue
		case "OR", "||":
			join = len(groups) > 0
			continue
		}
		if join {
			groups[len(groups)-1] = append(groups[len(groups)-1], c)
		} else {
			groups = append(groups, []string{c})
		}
		join = false
	}
	return groups
}

// requireClause prefixes + to a clause that has no prefix.
func requireClause(c string) string {
	if strings.HasPrefix(c, "+") || strings.HasPrefix(c, "-") {
		return c
	}
	return "+" + c
}

// splitClauses splits on whitespace outside double quotes.
func splitClauses(s string) []string {
	var (
		clauses []string
		current strings.Builder
		quoted  bool
		escaped bool
	)
	flush := func() {
		if current.Len() > 0 {
			clauses = append(clauses, current.String())
			current.Reset()
		}
	}

	for _, r := range s {
		switch {
		case escaped:
			escaped = false
			current.WriteRune(r)
		case r == '\\':
			escaped = true
			current.WriteRune(r)
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case !quoted && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return clauses
}

// sortOrder turns "date desc, title_en asc" into bleve's ["-date", "title_en"].
func sortOrder(param string) []string {
	if strings.TrimSpace(param) == "" {
		return nil
	}
	var order []string
	for _, part := range strings.Split(param, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		field := fields[0]
		desc := false
		if field == "score" || field == "_score" {
			field = "_score"
			desc = true
		}
		if len(fields) > 1 {
			desc = strings.EqualFold(fields[1], "desc")
		}
		if desc {
			field = "-" + field
		}
		order = append(order, field)
	}
	return order
}
