package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCountCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of documents in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outFmt, err := ParseOutputFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.index.DocumentCount(ctx)
			if err != nil {
				return err
			}
			if outFmt == FormatJSON {
				return PrintJSON(cmd.OutOrStdout(), countResponse{Index: s.index.ID(), Documents: n})
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(FormatText), "Output format: text|json")
	return cmd
}

type countResponse struct {
	Index     string `json:"index"`
	Documents int    `json:"documents"`
}
