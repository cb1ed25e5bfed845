package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nonibytes/textindex/textindex"
	"github.com/nonibytes/textindex/textindex/document"
)

type searchFlags struct {
	kind        string
	limit       int
	startswith  bool
	stemming    bool
	matchAny    bool
	noStopwords bool
	orderBy     string
	format      string
}

func newSearchCmd(a *app) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the index",
		Long: `Search the index. Terms separated by spaces must all match; "or" separates
alternatives; "field:term" scopes a term to one field.`,
		Example: `  textindex search --kind note "tomato water"
  textindex search --startswith "tom or cucu"
  textindex search --order-by title --format json "title:care"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFmt, err := ParseOutputFormat(f.format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			schema, err := s.schema(f.kind)
			if err != nil {
				return usageErrorf("%v", err)
			}

			q := strings.Join(args, " ")
			start := time.Now()
			res, err := s.index.Search(ctx, q, schema, textindex.WithSearchOptions(f.options(a.cfg.SearchOptions())))
			if err != nil {
				return err
			}
			resp := newSearchResponse(q, schema, res, time.Since(start))
			if outFmt == FormatJSON {
				return PrintJSON(cmd.OutOrStdout(), resp)
			}
			printSearchText(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.kind, "kind", "", "Document kind to rebuild matches as")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum number of results (0 uses the configured default)")
	cmd.Flags().BoolVar(&f.startswith, "startswith", false, "Match terms as token prefixes")
	cmd.Flags().BoolVar(&f.stemming, "stemming", false, "Request stemmed matching")
	cmd.Flags().BoolVar(&f.matchAny, "any", false, "Rank documents that match only some terms of a branch")
	cmd.Flags().BoolVar(&f.noStopwords, "no-stopwords", false, "Drop stop words from the query")
	cmd.Flags().StringVar(&f.orderBy, "order-by", "", "Sort results by this field instead of by score")
	cmd.Flags().StringVar(&f.format, "format", string(FormatText), "Output format: text|json")

	return cmd
}

// options layers the flags over the configured defaults.
func (f searchFlags) options(so textindex.SearchOptions) textindex.SearchOptions {
	if f.limit > 0 {
		so.Limit = f.limit
	}
	if f.startswith {
		so.UseStartswith = true
	}
	if f.stemming {
		so.UseStemming = true
	}
	if f.matchAny {
		so.MatchAll = false
	}
	if f.noStopwords {
		so.MatchStopwords = false
	}
	if f.orderBy != "" {
		so.OrderBy = f.orderBy
	}
	return so
}

type searchHit struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`
}

type searchResponse struct {
	Query  string      `json:"query"`
	Kind   string      `json:"kind"`
	Total  int         `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []searchHit `json:"hits"`

	names []string
}

func newSearchResponse(q string, schema *document.Schema, res *textindex.Results, took time.Duration) searchResponse {
	resp := searchResponse{
		Query:  q,
		Kind:   schema.Kind(),
		Total:  res.Len(),
		TookMs: took.Milliseconds(),
		Hits:   make([]searchHit, 0, res.Len()),
		names:  schema.Names(),
	}
	for i, d := range res.All() {
		resp.Hits = append(resp.Hits, searchHit{ID: d.ID, Score: res.Score(i), Fields: d.Values()})
	}
	return resp
}

func printSearchText(w io.Writer, resp searchResponse) {
	fmt.Fprintf(w, "Found %d documents in %dms\n", resp.Total, resp.TookMs)
	for _, h := range resp.Hits {
		var b strings.Builder
		fmt.Fprintf(&b, "- %s (%.2f)", h.ID, h.Score)
		for _, name := range resp.names {
			v := h.Fields[name]
			if v == nil {
				continue
			}
			fmt.Fprintf(&b, " %s=%v", name, v)
		}
		fmt.Fprintln(w, b.String())
	}
}
