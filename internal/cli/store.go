package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ctxfeed/internal/storage"
	"ctxfeed/internal/storage/migrations"
	"ctxfeed/pkg/logger"
)

// NewStoreCmd 创建 store 命令组
func NewStoreCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the fixture store",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "fixture store path (default storage.path)")

	cmd.AddCommand(&cobra.Command{
		Use:   "import <fixtures.yaml>",
		Short: "Load tasks, tickets, plans and sessions from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}
			db, err := cliCtx.Storage(dbPath)
			if err != nil {
				return err
			}
			f, err := storage.LoadFixtures(args[0])
			if err != nil {
				return err
			}
			st, err := db.Import(f)
			if err != nil {
				return err
			}
			logger.Info().Str("file", args[0]).Str("db", db.Path()).Msg("fixtures imported")
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks, %d tickets, %d plans, %d history entries, %d supplementary values\n",
				st.Tasks, st.Tickets, st.Plans, st.HistoryEntries, st.Supplementary)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show schema version and stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}
			db, err := cliCtx.Storage(dbPath)
			if err != nil {
				return err
			}
			version, err := migrations.Version(db.DB)
			if err != nil {
				return err
			}
			latest, err := migrations.Latest()
			if err != nil {
				return err
			}
			pending, err := migrations.Pending(db.DB)
			if err != nil {
				return err
			}
			sessions, err := db.Sessions()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Store:    %s\n", db.Path())
			fmt.Fprintf(out, "Schema:   v%d (latest v%d, %d pending)\n", version, latest, len(pending))
			if len(sessions) == 0 {
				fmt.Fprintln(out, "Sessions: none")
			} else {
				fmt.Fprintf(out, "Sessions: %s\n", strings.Join(sessions, ", "))
			}
			return nil
		},
	})

	return cmd
}
