package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nonibytes/textindex/textindex/document"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		kind      string
		id        string
		sets      []string
		jsonLines bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update documents",
		Long: `Add one document built from --set field=value pairs, or one document per
JSON object line read from stdin with --json. A document whose id already
exists is updated in place.`,
		Example: `  textindex add --kind note --set title="Tomato care" --set body="Water daily"
  cat notes.jsonl | textindex add --kind note --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case jsonLines && (len(sets) > 0 || id != ""):
				return usageErrorf("--json cannot be combined with --set or --id")
			case !jsonLines && len(sets) == 0:
				return usageErrorf("provide --set field=value or --json")
			}

			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			schema, err := s.schema(kind)
			if err != nil {
				return usageErrorf("%v", err)
			}

			var docs []*document.Document
			if jsonLines {
				docs, err = readJSONLines(cmd.InOrStdin(), schema)
			} else {
				docs, err = docFromSets(schema, id, sets)
			}
			if err != nil {
				return err
			}

			created, err := s.index.Add(ctx, docs...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range docs {
				fmt.Fprintln(out, d.ID)
			}
			s.logger.Info("documents_added",
				"kind", schema.Kind(),
				"created", len(created),
				"updated", len(docs)-len(created),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Document kind (optional when only one is configured)")
	cmd.Flags().StringVar(&id, "id", "", "Document id; assigned by the index when empty")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field value as field=value (repeatable)")
	cmd.Flags().BoolVar(&jsonLines, "json", false, "Read JSON object lines from stdin")

	return cmd
}

func docFromSets(schema *document.Schema, id string, sets []string) ([]*document.Document, error) {
	values := make(map[string]any, len(sets))
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, usageErrorf("--set wants field=value, got %q", kv)
		}
		values[k] = v
	}
	var opts []document.Option
	if id != "" {
		opts = append(opts, document.WithID(id))
	}
	d, err := schema.New(values, opts...)
	if err != nil {
		return nil, err
	}
	return []*document.Document{d}, nil
}

func readJSONLines(r io.Reader, schema *document.Schema) ([]*document.Document, error) {
	var docs []*document.Document
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var values map[string]any
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		d, err := schema.New(values)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
