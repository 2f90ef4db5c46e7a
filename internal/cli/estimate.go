package cli

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"ctxfeed/internal/budget"
	"ctxfeed/internal/models"
)

// EstimateResult is the output of `ctxfeed estimate`.
type EstimateResult struct {
	Model         string             `json:"model"`
	ContentType   models.ContentType `json:"content_type"`
	Detected      bool               `json:"detected"`
	Chars         int                `json:"chars"`
	Tokens        int                `json:"tokens"`
	CharsPerToken float64            `json:"chars_per_token"`
}

// NewEstimateCmd 创建 estimate 命令
func NewEstimateCmd() *cobra.Command {
	var (
		model      string
		typeFlag   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "estimate [file|-]",
		Short: "Estimate the token count of a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
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
			text := string(data)

			res := EstimateResult{Model: profile.ID, ContentType: ct, Chars: utf8.RuneCountInString(text)}
			if ct == models.ContentAuto {
				res.ContentType = budget.DetectContentType(text)
				res.Detected = true
			}
			est := budget.NewEstimator(profile)
			res.Tokens = est.Estimate(text, res.ContentType)
			res.CharsPerToken = est.CharsPerToken(res.ContentType)

			out := cmd.OutOrStdout()
			if wantJSON(out, jsonOutput) {
				return printJSON(out, res)
			}
			how := "given"
			if res.Detected {
				how = "detected"
			}
			fmt.Fprintf(out, "%d tokens (%d chars, %s %s, %.1f chars/token, %s)\n",
				res.Tokens, res.Chars, how, res.ContentType, res.CharsPerToken, res.Model)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "model id (default from config)")
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "content type: code, text, structured, formatted, mixed (default: detect)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
