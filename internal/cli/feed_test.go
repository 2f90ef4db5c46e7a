package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	feedctx "ctxfeed/internal/context"
	"ctxfeed/internal/provider"
	"ctxfeed/internal/storage"
)

const fixturesYAML = `
tasks:
  - id: T-1
    title: Add rate limiting
    priority: high
    modified_files: [api/limit.go]
sessions:
  - id: s1
    history:
      - role: user
        content: please add a limiter
        task_id: T-1
      - role: assistant
        content: on it
    supplementary:
      sync_state: clean
`

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		want    feedctx.Request
		wantErr bool
	}{
		{
			name: "yaml",
			file: "req.yaml",
			data: "model: gpt-4o\nsystem_prompt: Be brief.\nuser_message: hi\ncontext:\n  task:\n    id: T-9\n    title: Ship it\n",
			want: feedctx.Request{
				Model:        "gpt-4o",
				SystemPrompt: "Be brief.",
				UserMessage:  "hi",
				Context:      feedctx.AgentContext{Task: &feedctx.Task{ID: "T-9", Title: "Ship it"}},
			},
		},
		{
			name: "带注释的 json",
			file: "req.json",
			data: "{\n  // which model\n  \"model\": \"gpt-4o\",\n  \"user_message\": \"hi\", /* trailing */\n}",
			want: feedctx.Request{Model: "gpt-4o", UserMessage: "hi"},
		},
		{
			name:    "未知字段",
			file:    "req.json",
			data:    `{"modle": "gpt-4o"}`,
			wantErr: true,
		},
		{
			name:    "非法 yaml",
			file:    "req.yml",
			data:    "model: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest(tt.file, []byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func decodeFeed(t *testing.T, out string) feedctx.FeedResult {
	t.Helper()
	var res feedctx.FeedResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	return res
}

func includedIDs(res feedctx.FeedResult) []string {
	ids := make([]string, len(res.IncludedItems))
	for i, it := range res.IncludedItems {
		ids[i] = it.ID
	}
	return ids
}

func TestFeedCmd_RequestFile(t *testing.T) {
	env := newTestEnv(t)
	req := env.writeFile(t, "req.yaml", `
system_prompt: You are a careful engineer.
user_message: add a limiter to the api
context:
  plan:
    name: q3
    status: active
    configuration: '{"limit": 100}'
`)

	out, _, err := env.run(t, "", "feed", "--request", req, "--json")
	require.NoError(t, err)

	res := decodeFeed(t, out)
	assert.Equal(t, "gpt-4o-mini", res.Model, "falls back to models.default")
	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, 3, res.TotalItemsConsidered)
	assert.Contains(t, includedIDs(res), "plan:q3")

	require.NotEmpty(t, res.Messages)
	assert.Equal(t, provider.Message{Role: provider.RoleSystem, Content: "You are a careful engineer."}, res.Messages[0])
	last := res.Messages[len(res.Messages)-1]
	assert.Equal(t, provider.Message{Role: provider.RoleUser, Content: "add a limiter to the api"}, last)
}

func TestFeedCmd_FlagsOverrideRequest(t *testing.T) {
	env := newTestEnv(t)
	req := env.writeFile(t, "req.json", `{"model": "gpt-4o-mini", "user_message": "from file"}`)

	out, _, err := env.run(t, "", "feed", "-r", req, "--model", "gpt-4o", "--message", "from flag")
	require.NoError(t, err)

	res := decodeFeed(t, out)
	assert.Equal(t, "gpt-4o", res.Model)
	assert.Equal(t, "from flag", res.Messages[len(res.Messages)-1].Content)
}

func TestFeedCmd_StoreContext(t *testing.T) {
	env := newTestEnv(t)
	fixtures := env.writeFile(t, "fixtures.yaml", fixturesYAML)

	out, _, err := env.run(t, "", "store", "import", fixtures)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 tasks, 0 tickets, 0 plans, 2 history entries, 1 supplementary values")

	out, _, err = env.run(t, "", "feed", "--message", "continue the limiter", "--task", "T-1", "--session", "s1")
	require.NoError(t, err)

	res := decodeFeed(t, out)
	ids := includedIDs(res)
	assert.Contains(t, ids, "task:T-1")
	assert.Contains(t, ids, feedctx.IDRecentHistory)
	assert.Contains(t, ids, "supplementary:sync_state")

	out, _, err = env.run(t, "", "store", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Sessions: s1")
	assert.Contains(t, out, "Schema:   v2 (latest v2, 0 pending)")
}

func TestFeedCmd_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		is   error
	}{
		{name: "未知模型", args: []string{"feed", "--model", "nope", "--message", "hi"}},
		{name: "缺失任务", args: []string{"feed", "--message", "hi", "--task", "T-404"}, is: storage.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.run(t, "", tt.args...)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestPrintFeedSummary(t *testing.T) {
	res := &feedctx.FeedResult{
		RequestID: "r-1",
		Model:     "gpt-4o",
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "sys"},
			{Role: provider.RoleUser, Content: "hi"},
		},
		IncludedItems: []feedctx.ItemSummary{
			{ID: "user_message", Tier: feedctx.TierMandatory, Relevance: 100, EstimatedTokens: 1},
			{ID: "ticket:7", Tier: feedctx.TierImportant, Relevance: 40, EstimatedTokens: 90, Compressed: true},
		},
		ExcludedItems:        []feedctx.ItemSummary{{ID: "older_history", Tier: feedctx.TierOptional}},
		CompressionApplied:   true,
		TotalItemsConsidered: 3,
	}

	var buf bytes.Buffer
	require.NoError(t, printFeedSummary(&buf, res, true))
	out := buf.String()

	assert.Contains(t, out, "Model:    gpt-4o (request r-1)")
	assert.Contains(t, out, "2 included, 1 excluded of 3, compression applied")
	assert.Contains(t, out, "compressed  ticket:7")
	assert.Contains(t, out, "excluded    older_history")
	assert.Contains(t, out, "--- [1] user ---\nhi")

	buf.Reset()
	require.NoError(t, printFeedSummary(&buf, res, false))
	assert.NotContains(t, buf.String(), "--- [0]")
}
