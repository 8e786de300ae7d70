package domain

import (
	"strings"
	"time"
)

// Backend parameters understood by the query pipeline. Everything else in
// SearchRequest.Params is passed to the engine verbatim.
const (
	// ParamFieldWeights lists "field[:boost]" entries separated by spaces or commas
	ParamFieldWeights = "qf"
	// ParamOperator is the default operator between top-level terms (AND|OR)
	ParamOperator = "q.op"
	// ParamStart is the zero-based offset of the first hit
	ParamStart = "start"
	// ParamRows is the maximum number of hits to return
	ParamRows = "rows"
)

const (
	OperatorAnd = "AND"
	OperatorOr  = "OR"
)

// Search limits
const (
	FirstIndex  = 0
	DefaultRows = 20
	MaxRows     = 100
)

// SearchRequest is a query as submitted by a caller.
type SearchRequest struct {
	Query     string            `json:"query"`
	Params    map[string]string `json:"params,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
	Languages []string          `json:"languages,omitempty"`
	Scope     *Scope            `json:"scope,omitempty"`
}

// Param returns the named backend parameter, or def when unset.
func (r *SearchRequest) Param(name, def string) string {
	if r.Params != nil {
		if v, ok := r.Params[name]; ok && v != "" {
			return v
		}
	}
	return def
}

// EngineQuery is the backend-ready form of a SearchRequest.
type EngineQuery struct {
	// Query is the rewritten query string
	Query string `json:"query"`
	// BoostQuery holds weighted-field clauses that only affect ranking
	BoostQuery string `json:"boost_query,omitempty"`
	// Languages restricts hits to these languages when more than one is requested
	Languages []string `json:"languages,omitempty"`
	// Operator is AND or OR
	Operator string `json:"operator"`
	// Params are the remaining backend parameters, passed through verbatim
	Params map[string]string `json:"params,omitempty"`

	Offset          int      `json:"offset"`
	Limit           int      `json:"limit"`
	HighlightFields []string `json:"highlight_fields,omitempty"`
}

// RawHit is one engine hit before response processing.
type RawHit struct {
	ID     string              `json:"id"`
	Score  float64             `json:"score"`
	Fields map[string][]string `json:"fields"`
}

// Field returns the first stored value of name, or "".
func (h RawHit) Field(name string) string {
	if v := h.Fields[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// RawResponse is what an engine returns for a query.
type RawResponse struct {
	Hits []RawHit `json:"hits"`
	// Highlights maps hit ID -> field name -> fragments encoded as "[frag1, frag2]"
	Highlights map[string]map[string]string `json:"highlights,omitempty"`
	TotalCount int64                        `json:"total_count"`
	MaxScore   float64                      `json:"max_score"`
	Took       time.Duration                `json:"took"`
}

// SearchResult is a single visible result. Treat as immutable.
type SearchResult struct {
	ID       string   `json:"id"`
	Type     UnitType `json:"type"`
	Wiki     string   `json:"wiki"`
	Space    string   `json:"space"`
	Page     string   `json:"page"`
	FullName string   `json:"fullname"`
	Language string   `json:"language"`
	Title    string   `json:"title"`
	Content  string   `json:"content,omitempty"`
	Score    float64  `json:"score"`
	Author   string   `json:"author,omitempty"`
	Date     string   `json:"date,omitempty"`

	// Attachments
	Filename    string `json:"filename,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`

	// Objects and properties
	ObjectType    string `json:"object_type,omitempty"`
	ObjectNumber  int    `json:"object_number,omitempty"`
	PropertyName  string `json:"property_name,omitempty"`
	PropertyValue string `json:"property_value,omitempty"`
}

// PageRef returns the reference of the page owning the result.
func (r SearchResult) PageRef() ContentRef {
	return ContentRef{
		Type:     UnitTypePage,
		Wiki:     r.Wiki,
		Space:    r.Space,
		Page:     r.Page,
		Language: r.Language,
	}
}

// SearchResponse is the public answer to a query.
// TotalCount and MaxScore come straight from the engine, before visibility
// filtering; VisibleCount is the number of results after it.
type SearchResponse struct {
	Query        string         `json:"query"`
	EngineQuery  string         `json:"engine_query"`
	Language     string         `json:"language"`
	Results      []SearchResult `json:"results"`
	TotalCount   int64          `json:"total_count"`
	VisibleCount int            `json:"visible_count"`
	MaxScore     float64        `json:"max_score"`
	Offset       int            `json:"offset"`
	Limit        int            `json:"limit"`
	Took         time.Duration  `json:"took"`
}

// Slice returns up to count results starting at begin.
func (r *SearchResponse) Slice(begin, count int) []SearchResult {
	if begin < FirstIndex {
		begin = FirstIndex
	}
	if count < 0 || begin >= len(r.Results) {
		return []SearchResult{}
	}
	end := begin + count
	if end > len(r.Results) {
		end = len(r.Results)
	}
	return r.Results[begin:end]
}

// HasNext reports whether results exist past begin+count.
func (r *SearchResponse) HasNext(begin, count int) bool {
	return r.TotalCount > int64(begin+count)
}

// HasPrevious reports whether results exist before begin.
func (r *SearchResponse) HasPrevious(begin int) bool {
	return begin > FirstIndex
}

// EncodeHighlight joins highlight fragments into the "[frag1 ... frag2]"
// form engines report.
func EncodeHighlight(fragments []string) string {
	if len(fragments) == 0 {
		return ""
	}
	return "[" + strings.Join(fragments, " ... ") + "]"
}

// StripHighlight removes the single leading "[" and trailing "]" of an
// encoded highlight.
func StripHighlight(s string) string {
	s = strings.TrimPrefix(s, "[")
	return strings.TrimSuffix(s, "]")
}
