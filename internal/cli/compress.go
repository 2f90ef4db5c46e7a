package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ctxfeed/internal/budget"
	"ctxfeed/internal/compaction"
	"ctxfeed/internal/models"
)

// NewCompressCmd 创建 compress 命令
func NewCompressCmd() *cobra.Command {
	var (
		model      string
		typeFlag   string
		target     int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "compress [file|-] --target N",
		Short: "Compress content to a token target",
		Long: `Run the compression cascade over a file or stdin until the estimated
token count is at most --target. The result goes to stdout and the
strategies applied are reported on stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}
			if target <= 0 {
				return fmt.Errorf("--target must be positive")
			}
			profile, err := cliCtx.Model(model)
			if err != nil {
				return err
			}
			ct, err := models.ParseContentType(typeFlag)
			if err != nil {
				return err
			}
			data, err := readInput(cmd.InOrStdin(), firstArg(args))
			if err != nil {
				return err
			}

			cascade := compaction.NewCascade(cliCtx.Config.Compaction, budget.NewEstimator(profile))
			res := cascade.Compress(string(data), ct, target)

			cliCtx.Logger.Debug().
				Int("original_tokens", res.OriginalTokens).
				Int("tokens", res.Tokens).
				Int("target", target).
				Bool("reached", res.ReachedTarget).
				Msg("compressed")

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), res)
			}

			fmt.Fprint(cmd.OutOrStdout(), res.Content)
			if !strings.HasSuffix(res.Content, "\n") {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			if !cliCtx.Quiet {
				applied := "none"
				if len(res.Applied) > 0 {
					parts := make([]string, len(res.Applied))
					for i, s := range res.Applied {
						parts[i] = string(s)
					}
					applied = strings.Join(parts, ", ")
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d -> %d tokens (target %d), applied: %s\n",
					res.OriginalTokens, res.Tokens, target, applied)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "model id (default from config)")
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "content type (default: detect)")
	cmd.Flags().IntVar(&target, "target", 0, "target token count")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the full result as JSON")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
