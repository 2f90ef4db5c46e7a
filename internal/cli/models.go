package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ctxfeed/internal/models"
)

// NewModelsCmd 创建 models 命令
func NewModelsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "models [id]",
		Short: "List model profiles, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}
			reg, err := cliCtx.Registry()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				p, err := reg.Get(args[0])
				if err != nil {
					return err
				}
				return printJSON(out, p)
			}

			profiles := reg.List()
			if wantJSON(out, jsonOutput) {
				return printJSON(out, profiles)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tWINDOW\tMAX OUTPUT\tTEXT CPT\tCODE CPT\tDEFAULT")
			for _, p := range profiles {
				mark := ""
				if p.ID == cliCtx.Config.Models.Default {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f\t%.1f\t%s\n",
					p.ID, p.DisplayName, p.ContextWindow, p.MaxOutputTokens,
					p.CharsPerToken[models.ContentText], p.CharsPerToken[models.ContentCode], mark)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
