package context

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ctxfeed/internal/budget"
)

// Deterministic item ids.
const (
	IDSystemPrompt  = "system-prompt"
	IDUserMessage   = "user-message"
	IDRecentHistory = "history:recent"
	IDOlderHistory  = "history:older"
)

// BuilderConfig controls how an AgentContext is split into items.
type BuilderConfig struct {
	// RecentHistoryCount is the number of trailing history entries packed
	// as the recent block. Earlier entries form the older block.
	// Default: 10
	RecentHistoryCount int `json:"recent_history_count" yaml:"recent_history_count" mapstructure:"recent_history_count" validate:"gt=0"`

	// StaleAfter marks the older history block stale when its newest entry
	// is older than this.
	// Default: 168h
	StaleAfter time.Duration `json:"stale_after" yaml:"stale_after" mapstructure:"stale_after" validate:"gt=0"`
}

// DefaultBuilderConfig returns a BuilderConfig with default values.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		RecentHistoryCount: 10,
		StaleAfter:         7 * 24 * time.Hour,
	}
}

// supplementaryCategories routes well-known supplementary keys to their own
// categories. Any other key is plain supplementary data.
var supplementaryCategories = map[string]Category{
	string(CategoryDesignComponents): CategoryDesignComponents,
	string(CategoryComponentSchemas): CategoryComponentSchemas,
	string(CategoryEthicsRules):      CategoryEthicsRules,
	string(CategorySyncState):        CategorySyncState,
}

// Builder converts a Request into candidate items with token estimates.
type Builder struct {
	cfg BuilderConfig
	est budget.Estimator
}

// NewBuilder creates a Builder that estimates with est.
func NewBuilder(cfg BuilderConfig, est budget.Estimator) *Builder {
	d := DefaultBuilderConfig()
	if cfg.RecentHistoryCount <= 0 {
		cfg.RecentHistoryCount = d.RecentHistoryCount
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = d.StaleAfter
	}
	return &Builder{cfg: cfg, est: est}
}

// Build returns the candidate items of req. The system prompt and user
// message items are always present, even when empty; every other item is
// skipped when its content is empty.
func (b *Builder) Build(req Request, now time.Time) []Item {
	items := []Item{b.item(IDSystemPrompt, "System Prompt", req.SystemPrompt,
		CategorySystemPrompt, Metadata{SourceType: "request"})}
	items = append(items, b.item(IDUserMessage, "User Message", req.UserMessage,
		CategoryUserMessage, Metadata{SourceType: "request", CreatedAt: now}))

	actx := req.Context
	if actx.Task != nil {
		items = appendNonEmpty(items, b.taskItem(actx.Task))
	}
	if actx.Ticket != nil {
		items = appendNonEmpty(items, b.ticketItem(actx.Ticket))
	}
	if actx.Plan != nil {
		items = appendNonEmpty(items, b.planItem(actx.Plan))
	}
	items = append(items, b.historyItems(actx.History, now)...)
	items = append(items, b.supplementaryItems(actx.Supplementary)...)

	for _, extra := range req.ExtraItems {
		items = appendNonEmpty(items, b.extraItem(extra))
	}
	return items
}

// extraItem normalizes a caller-supplied item. The system prompt and user
// message categories belong to the request's own fields, so extra items
// claiming them are demoted to supplementary.
func (b *Builder) extraItem(it Item) Item {
	if it.Category == CategorySystemPrompt || it.Category == CategoryUserMessage {
		it.Category = CategorySupplementary
	}
	return b.normalize(it)
}

func appendNonEmpty(items []Item, it Item) []Item {
	if strings.TrimSpace(it.Content) == "" {
		return items
	}
	return append(items, it)
}

func (b *Builder) item(id, label, content string, cat Category, meta Metadata) Item {
	it := Item{
		ID:       id,
		Label:    label,
		Content:  content,
		Category: cat,
		Metadata: meta,
	}
	return b.normalize(it)
}

// normalize fills the derived fields of it: id, tier, content type and
// token estimate. Unknown categories are treated as supplementary.
func (b *Builder) normalize(it Item) Item {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if !it.Category.Valid() {
		it.Category = CategorySupplementary
	}
	if it.Label == "" {
		it.Label = string(it.Category)
	}
	it.Tier = TierFor(it.Category)
	if !it.ContentType.Valid() {
		it.ContentType = budget.DetectContentType(it.Content)
	}
	it.EstimatedTokens = b.est.Estimate(it.Content, it.ContentType)
	it.Compressed = false
	return it
}

func (b *Builder) taskItem(t *Task) Item {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", t.Title)
	if t.Priority != "" {
		fmt.Fprintf(&sb, "Priority: %s\n", t.Priority)
	}
	if t.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", t.Description)
	}
	writeList(&sb, "Acceptance Criteria", t.AcceptanceCriteria)
	writeList(&sb, "Modified Files", t.ModifiedFiles)

	return b.item("task:"+t.ID, "Current Task: "+t.Title, strings.TrimRight(sb.String(), "\n"),
		CategoryCurrentTask, Metadata{
			SourceType:          "task",
			SourceID:            t.ID,
			CreatedAt:           t.CreatedAt,
			RelatedTaskIDs:      nonEmpty([]string{t.ID}),
			RelatedFilePatterns: append([]string(nil), t.ModifiedFiles...),
		})
}

func (b *Builder) ticketItem(t *Ticket) Item {
	content := t.Title
	if t.Body != "" {
		content += "\n\n" + t.Body
	}
	return b.item(fmt.Sprintf("ticket:%d", t.Number), fmt.Sprintf("Ticket #%d: %s", t.Number, t.Title), content,
		CategoryRelatedTicket, Metadata{
			SourceType:     "ticket",
			SourceID:       fmt.Sprintf("%d", t.Number),
			CreatedAt:      t.CreatedAt,
			RelatedTaskIDs: append([]string(nil), t.TaskIDs...),
		})
}

func (b *Builder) planItem(p *Plan) Item {
	var sb strings.Builder
	if p.Status != "" {
		fmt.Fprintf(&sb, "Status: %s\n\n", p.Status)
	}
	sb.WriteString(p.Configuration)
	return b.item("plan:"+p.Name, "Active Plan: "+p.Name, strings.TrimSpace(sb.String()),
		CategoryActivePlan, Metadata{
			SourceType: "plan",
			SourceID:   p.Name,
			CreatedAt:  p.CreatedAt,
		})
}

// historyItems packs the trailing RecentHistoryCount entries as one recent
// block and the rest as one older block, preserving order.
func (b *Builder) historyItems(history []HistoryEntry, now time.Time) []Item {
	if len(history) == 0 {
		return nil
	}
	split := len(history) - b.cfg.RecentHistoryCount
	if split < 0 {
		split = 0
	}

	var items []Item
	if split > 0 {
		older := b.historyBlock(IDOlderHistory, "Earlier Conversation", history[:split], CategoryOlderHistory)
		if !older.Metadata.CreatedAt.IsZero() && now.Sub(older.Metadata.CreatedAt) > b.cfg.StaleAfter {
			older.Metadata.IsStale = true
		}
		items = appendNonEmpty(items, older)
	}
	items = appendNonEmpty(items, b.historyBlock(IDRecentHistory, "Recent Conversation", history[split:], CategoryRecentHistory))
	return items
}

func (b *Builder) historyBlock(id, label string, entries []HistoryEntry, cat Category) Item {
	var (
		lines   []string
		newest  time.Time
		taskIDs []string
		seen    = map[string]bool{}
	)
	for _, e := range entries {
		if strings.TrimSpace(e.Content) == "" {
			continue
		}
		role := e.Role
		if role == "" {
			role = "user"
		}
		lines = append(lines, role+": "+e.Content)
		if e.Timestamp.After(newest) {
			newest = e.Timestamp
		}
		if e.TaskID != "" && !seen[e.TaskID] {
			seen[e.TaskID] = true
			taskIDs = append(taskIDs, e.TaskID)
		}
	}
	return b.item(id, label, strings.Join(lines, "\n"), cat, Metadata{
		SourceType:     "history",
		CreatedAt:      newest,
		RelatedTaskIDs: taskIDs,
	})
}

// supplementaryItems emits one item per key in sorted order. Strings are
// used verbatim; other values are rendered as indented JSON.
func (b *Builder) supplementaryItems(data map[string]any) []Item {
	if len(data) == 0 {
		return nil
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var items []Item
	for _, k := range keys {
		content, ok := renderValue(data[k])
		if !ok {
			continue
		}
		cat, known := supplementaryCategories[k]
		if !known {
			cat = CategorySupplementary
		}
		items = appendNonEmpty(items, b.item("supplementary:"+k, k, content, cat, Metadata{
			SourceType: "supplementary",
			SourceID:   k,
		}))
	}
	return items
}

func renderValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	default:
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return fmt.Sprint(t), true
		}
		return string(data), true
	}
}

func writeList(sb *strings.Builder, title string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", title)
	for _, v := range values {
		fmt.Fprintf(sb, "- %s\n", v)
	}
}

func nonEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

