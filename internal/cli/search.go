package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
)

// searchOptions holds the flags of the search command
type searchOptions struct {
	languages []string
	rows      int
	start     int
	wiki      string
	space     string
	filters   map[string]string
	params    map[string]string
	user      string
	groups    []string
	admin     bool
	jsonOut   bool
}

var searchOpts searchOptions

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a query against the index",
	Long: `Run a query through the search pipeline and print the visible results.

Results are filtered for the user given with --user (guest by default).

Examples:
  sercha-wiki search "release notes"
  sercha-wiki search installation --lang fr --wiki xwiki --space Admin
  sercha-wiki search title:roadmap --filter type=DOCUMENT --user XWiki.Alice`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringSliceVarP(&searchOpts.languages, "lang", "l", nil, "languages to search (repeatable)")
	f.IntVarP(&searchOpts.rows, "rows", "n", 10, "number of results")
	f.IntVar(&searchOpts.start, "start", 0, "offset of the first result")
	f.StringVar(&searchOpts.wiki, "wiki", "", "restrict to a wiki")
	f.StringVar(&searchOpts.space, "space", "", "restrict to a space (requires --wiki)")
	f.StringToStringVar(&searchOpts.filters, "filter", nil, "field=value filter (repeatable)")
	f.StringToStringVar(&searchOpts.params, "param", nil, "engine parameter such as qf or sort (repeatable)")
	f.StringVarP(&searchOpts.user, "user", "u", "", "search as this wiki user")
	f.StringSliceVar(&searchOpts.groups, "group", nil, "groups of --user (repeatable)")
	f.BoolVar(&searchOpts.admin, "admin", false, "search with admin rights")
	f.BoolVar(&searchOpts.jsonOut, "json", false, "print the response as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	req, err := searchOpts.request(strings.Join(args, " "))
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx = domain.WithRequester(ctx, searchOpts.requester())
	resp, err := a.search.SearchRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if searchOpts.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	printResults(cmd.OutOrStdout(), resp)
	return nil
}

// request builds the SearchRequest the flags describe.
func (o searchOptions) request(query string) (*domain.SearchRequest, error) {
	req := &domain.SearchRequest{
		Query:     query,
		Params:    map[string]string{},
		Filters:   o.filters,
		Languages: o.languages,
	}
	for k, v := range o.params {
		req.Params[k] = v
	}
	req.Params[domain.ParamRows] = strconv.Itoa(o.rows)
	if o.start > 0 {
		req.Params[domain.ParamStart] = strconv.Itoa(o.start)
	}

	if o.wiki != "" || o.space != "" {
		scope := domain.Scope{Wiki: o.wiki, Space: o.space}
		if err := scope.Validate(); err != nil {
			return nil, err
		}
		req.Scope = &scope
	}
	return req, nil
}

func (o searchOptions) requester() *domain.Requester {
	if o.user == "" && !o.admin {
		return domain.Guest()
	}
	user := o.user
	if user == "" {
		user = "XWiki.Admin"
	}
	return &domain.Requester{UserID: user, Groups: o.groups, Admin: o.admin}
}

func printResults(w io.Writer, resp *domain.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintf(w, "No results for %q\n", resp.Query)
		return
	}

	fmt.Fprintf(w, "%d visible of %d matches (%s, %s)\n\n",
		resp.VisibleCount, resp.TotalCount, resp.Language, resp.Took.Round(time.Millisecond))
	for i, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.FullName
		}
		fmt.Fprintf(w, "%d. %s [%s] %.3f\n", resp.Offset+i+1, title, r.Type, r.Score)
		fmt.Fprintf(w, "   %s:%s (%s)\n", r.Wiki, r.FullName, r.Language)
		if r.DownloadURL != "" {
			fmt.Fprintf(w, "   %s\n", r.DownloadURL)
		}
	}
}
