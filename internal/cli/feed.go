package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	feedctx "ctxfeed/internal/context"
	"ctxfeed/internal/server"
	"ctxfeed/internal/storage"
)

// FeedOptions feed 命令选项
type FeedOptions struct {
	RequestFile  string
	Model        string
	System       string
	Message      string
	DBPath       string
	Query        storage.ContextQuery
	JSON         bool
	ShowMessages bool
}

// NewFeedCmd 创建 feed 命令
func NewFeedCmd() *cobra.Command {
	opts := &FeedOptions{}

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Assemble a budgeted context and print it",
		Long: `Build, score, pack and assemble the context for one request.

The request is read from --request (YAML when the file ends in .yaml or
.yml, JSON with comments otherwise; "-" reads stdin). --task, --ticket,
--plan and --session fill the agent context from the fixture store;
values in the request file take precedence.`,
		Example: `  ctxfeed feed --request req.yaml --model gpt-4o-mini
  ctxfeed feed --message "fix the login bug" --task T-12 --session s1 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}
			return RunFeed(cmd, cliCtx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.RequestFile, "request", "r", "", "request file (.yaml, .yml or .json; - for stdin)")
	f.StringVarP(&opts.Model, "model", "m", "", "model id (overrides the request; default from config)")
	f.StringVar(&opts.System, "system", "", "system prompt (overrides the request)")
	f.StringVar(&opts.Message, "message", "", "user message (overrides the request)")
	f.StringVar(&opts.DBPath, "db", "", "fixture store path (default storage.path)")
	f.StringVar(&opts.Query.TaskID, "task", "", "load this task from the fixture store")
	f.IntVar(&opts.Query.TicketNumber, "ticket", 0, "load this ticket from the fixture store")
	f.StringVar(&opts.Query.PlanName, "plan", "", "load this plan from the fixture store")
	f.StringVar(&opts.Query.SessionID, "session", "", "load this session's history and supplementary data")
	f.IntVar(&opts.Query.HistoryLimit, "history-limit", 0, "latest session turns to load (0 = all)")
	f.BoolVar(&opts.JSON, "json", false, "output the full result as JSON")
	f.BoolVar(&opts.ShowMessages, "messages", true, "print assembled messages in the human summary")
	return cmd
}

// RunFeed 执行 feed
func RunFeed(cmd *cobra.Command, cliCtx *CLIContext, opts *FeedOptions) error {
	var req feedctx.Request
	if opts.RequestFile != "" {
		data, err := readInput(cmd.InOrStdin(), opts.RequestFile)
		if err != nil {
			return err
		}
		if req, err = ParseRequest(opts.RequestFile, data); err != nil {
			return err
		}
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if req.Model == "" {
		req.Model = cliCtx.Config.Models.Default
	}
	if opts.System != "" {
		req.SystemPrompt = opts.System
	}
	if opts.Message != "" {
		req.UserMessage = opts.Message
	}

	if opts.Query != (storage.ContextQuery{}) {
		db, err := cliCtx.Storage(opts.DBPath)
		if err != nil {
			return err
		}
		stored, err := db.LoadAgentContext(opts.Query)
		if err != nil {
			return err
		}
		req.Context = req.Context.Merge(stored)
	}

	reg, err := cliCtx.Registry()
	if err != nil {
		return err
	}
	res, err := server.NewFeeder(cliCtx.Config, reg, cliCtx.Logger).Feed(req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if wantJSON(out, opts.JSON) {
		return printJSON(out, res)
	}
	return printFeedSummary(out, res, opts.ShowMessages)
}

// ParseRequest decodes a feed request. The format follows the file
// extension; anything that is not YAML is read as JSON with comments.
func ParseRequest(name string, data []byte) (feedctx.Request, error) {
	var req feedctx.Request
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("parse request %s: %w", name, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("parse request %s: %w", name, err)
		}
	}
	return req, nil
}

func printFeedSummary(w io.Writer, res *feedctx.FeedResult, showMessages bool) error {
	b := res.Budget
	fmt.Fprintf(w, "Model:    %s (request %s)\n", res.Model, res.RequestID)
	fmt.Fprintf(w, "Budget:   %d / %d input tokens (%s), %d reserved for output\n",
		b.Consumed, b.AvailableForInput, b.WarningLevel, b.ReservedForOutput)
	fmt.Fprintf(w, "Items:    %d included, %d excluded of %d", len(res.IncludedItems), len(res.ExcludedItems), res.TotalItemsConsidered)
	if res.CompressionApplied {
		fmt.Fprint(w, ", compression applied")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tID\tTIER\tRELEVANCE\tTOKENS\tTYPE")
	for _, it := range res.IncludedItems {
		status := "included"
		if it.Compressed {
			status = "compressed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", status, it.ID, it.Tier, it.Relevance, it.EstimatedTokens, it.ContentType)
	}
	for _, it := range res.ExcludedItems {
		fmt.Fprintf(tw, "excluded\t%s\t%s\t%d\t%d\t%s\n", it.ID, it.Tier, it.Relevance, it.EstimatedTokens, it.ContentType)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !showMessages {
		return nil
	}
	for i, m := range res.Messages {
		fmt.Fprintf(w, "\n--- [%d] %s ---\n%s\n", i, m.Role, m.Content)
	}
	return nil
}
