package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nonibytes/textindex/textindex/storage"
	"github.com/nonibytes/textindex/textindex/storage/sqlite"
	"github.com/nonibytes/textindex/textindex/storage/sqlkv"
)

func newOptimizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Compact the database file (sqlite only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			kv, ok := s.store.(*sqlkv.Store)
			if !ok || kv.Backend() != storage.BackendSQLite {
				return usageErrorf("optimize is not supported for backend %s", s.store.Backend())
			}
			if err := sqlite.Optimize(ctx, kv); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "optimized")
			return nil
		},
	}
}
