package context

import (
	"time"

	"ctxfeed/internal/budget"
	"ctxfeed/internal/models"
	"ctxfeed/internal/provider"
)

// Category identifies where a context item came from.
type Category string

const (
	CategorySystemPrompt     Category = "system_prompt"
	CategoryCurrentTask      Category = "current_task"
	CategoryUserMessage      Category = "user_message"
	CategoryActivePlan       Category = "active_plan"
	CategoryRelatedTicket    Category = "related_ticket"
	CategoryRecentHistory    Category = "recent_history"
	CategoryOlderHistory     Category = "older_history"
	CategoryDesignComponents Category = "design_components"
	CategoryComponentSchemas Category = "component_schemas"
	CategoryEthicsRules      Category = "ethics_rules"
	CategorySyncState        Category = "sync_state"
	CategorySupplementary    Category = "supplementary"
)

// Tier is a packing priority class. Lower tiers are packed first.
type Tier int

const (
	TierMandatory     Tier = 1
	TierImportant     Tier = 2
	TierSupplementary Tier = 3
	TierOptional      Tier = 4
)

func (t Tier) String() string {
	switch t {
	case TierMandatory:
		return "mandatory"
	case TierImportant:
		return "important"
	case TierSupplementary:
		return "supplementary"
	case TierOptional:
		return "optional"
	default:
		return "unknown"
	}
}

// TierFor returns the fixed tier of c. Unknown categories are optional.
func TierFor(c Category) Tier {
	switch c {
	case CategorySystemPrompt, CategoryCurrentTask, CategoryUserMessage:
		return TierMandatory
	case CategoryActivePlan, CategoryRelatedTicket, CategoryRecentHistory:
		return TierImportant
	case CategoryDesignComponents, CategoryComponentSchemas, CategoryEthicsRules, CategorySyncState:
		return TierSupplementary
	default:
		return TierOptional
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySystemPrompt, CategoryCurrentTask, CategoryUserMessage,
		CategoryActivePlan, CategoryRelatedTicket, CategoryRecentHistory,
		CategoryOlderHistory, CategoryDesignComponents, CategoryComponentSchemas,
		CategoryEthicsRules, CategorySyncState, CategorySupplementary:
		return true
	default:
		return false
	}
}

// IsHistory reports whether c is a conversation history block.
func (c Category) IsHistory() bool {
	return c == CategoryRecentHistory || c == CategoryOlderHistory
}

// Metadata describes an item's provenance.
type Metadata struct {
	SourceType          string    `json:"source_type,omitempty" yaml:"source_type"`
	SourceID            string    `json:"source_id,omitempty" yaml:"source_id"`
	CreatedAt           time.Time `json:"created_at,omitempty" yaml:"created_at"`
	IsStale             bool      `json:"is_stale,omitempty" yaml:"is_stale"`
	RelatedTaskIDs      []string  `json:"related_task_ids,omitempty" yaml:"related_task_ids"`
	RelatedFilePatterns []string  `json:"related_file_patterns,omitempty" yaml:"related_file_patterns"`
}

// Item is one candidate piece of context. Items are built per request and
// never shared between requests.
type Item struct {
	ID              string             `json:"id" yaml:"id"`
	Label           string             `json:"label" yaml:"label"`
	Content         string             `json:"content" yaml:"content"`
	ContentType     models.ContentType `json:"content_type,omitempty" yaml:"content_type"`
	Category        Category           `json:"category" yaml:"category"`
	Tier            Tier               `json:"tier" yaml:"tier"`
	Relevance       int                `json:"relevance" yaml:"relevance"`
	EstimatedTokens int                `json:"estimated_tokens" yaml:"estimated_tokens"`
	Compressed      bool               `json:"compressed,omitempty" yaml:"compressed"`
	Metadata        Metadata           `json:"metadata" yaml:"metadata"`
}

// Task is the unit of work the agent is currently on.
type Task struct {
	ID                 string    `json:"id" yaml:"id"`
	Title              string    `json:"title" yaml:"title"`
	Description        string    `json:"description,omitempty" yaml:"description"`
	Priority           string    `json:"priority,omitempty" yaml:"priority"`
	AcceptanceCriteria []string  `json:"acceptance_criteria,omitempty" yaml:"acceptance_criteria"`
	ModifiedFiles      []string  `json:"modified_files,omitempty" yaml:"modified_files"`
	CreatedAt          time.Time `json:"created_at,omitempty" yaml:"created_at"`
}

// Ticket is the issue a task belongs to.
type Ticket struct {
	Number    int       `json:"number" yaml:"number"`
	Title     string    `json:"title" yaml:"title"`
	Body      string    `json:"body,omitempty" yaml:"body"`
	TaskIDs   []string  `json:"task_ids,omitempty" yaml:"task_ids"`
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at"`
}

// Plan is the active execution plan. Configuration is free text, usually
// JSON or YAML.
type Plan struct {
	Name          string    `json:"name" yaml:"name"`
	Status        string    `json:"status,omitempty" yaml:"status"`
	Configuration string    `json:"configuration,omitempty" yaml:"configuration"`
	CreatedAt     time.Time `json:"created_at,omitempty" yaml:"created_at"`
}

// HistoryEntry is one turn of prior conversation.
type HistoryEntry struct {
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	TaskID    string    `json:"task_id,omitempty" yaml:"task_id"`
	TicketID  int       `json:"ticket_id,omitempty" yaml:"ticket_id"`
	Timestamp time.Time `json:"timestamp,omitempty" yaml:"timestamp"`
}

// AgentContext is everything the caller knows about the agent's situation.
type AgentContext struct {
	Task          *Task          `json:"task,omitempty" yaml:"task"`
	Ticket        *Ticket        `json:"ticket,omitempty" yaml:"ticket"`
	Plan          *Plan          `json:"plan,omitempty" yaml:"plan"`
	History       []HistoryEntry `json:"history,omitempty" yaml:"history"`
	Supplementary map[string]any `json:"supplementary,omitempty" yaml:"supplementary"`
}

// Request is the input to Feed.
type Request struct {
	Model        string       `json:"model" yaml:"model"`
	SystemPrompt string       `json:"system_prompt" yaml:"system_prompt"`
	UserMessage  string       `json:"user_message" yaml:"user_message"`
	Context      AgentContext `json:"context" yaml:"context"`
	ExtraItems   []Item       `json:"extra_items,omitempty" yaml:"extra_items"`
	// ReservedForOutput overrides the model's output reservation.
	ReservedForOutput *int `json:"reserved_for_output,omitempty" yaml:"reserved_for_output" validate:"omitempty,gte=0"`
}

// ItemSummary is the content-free view of an item reported in results.
type ItemSummary struct {
	ID              string             `json:"id"`
	Label           string             `json:"label"`
	Category        Category           `json:"category"`
	Tier            Tier               `json:"tier"`
	ContentType     models.ContentType `json:"content_type"`
	Relevance       int                `json:"relevance"`
	EstimatedTokens int                `json:"estimated_tokens"`
	Compressed      bool               `json:"compressed,omitempty"`
}

// Summary returns the content-free view of it.
func (it Item) Summary() ItemSummary {
	return ItemSummary{
		ID:              it.ID,
		Label:           it.Label,
		Category:        it.Category,
		Tier:            it.Tier,
		ContentType:     it.ContentType,
		Relevance:       it.Relevance,
		EstimatedTokens: it.EstimatedTokens,
		Compressed:      it.Compressed,
	}
}

// FeedResult is the outcome of one Feed call.
type FeedResult struct {
	RequestID            string             `json:"request_id"`
	Model                string             `json:"model"`
	Messages             []provider.Message `json:"messages"`
	Budget               budget.TokenBudget `json:"budget"`
	IncludedItems        []ItemSummary      `json:"included_items"`
	ExcludedItems        []ItemSummary      `json:"excluded_items"`
	CompressionApplied   bool               `json:"compression_applied"`
	TotalItemsConsidered int                `json:"total_items_considered"`
}
