package budget

import (
	"fmt"
	"unicode/utf8"

	"ctxfeed/internal/models"
)

// WarningLevel reports how much of the input budget has been consumed.
type WarningLevel string

// Warning levels, in increasing severity.
const (
	LevelOK       WarningLevel = "ok"
	LevelWarning  WarningLevel = "warning"
	LevelCritical WarningLevel = "critical"
	LevelExceeded WarningLevel = "exceeded"
)

// Thresholds are fractions of AvailableForInput at which the warning level
// escalates. Consumption at or above 1.0 is always LevelExceeded.
type Thresholds struct {
	Warning  float64 `json:"warning" yaml:"warning"`
	Critical float64 `json:"critical" yaml:"critical"`
}

// DefaultThresholds returns warning at 75% and critical at 90%.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 0.75, Critical: 0.90}
}

func (t Thresholds) validate() error {
	if t.Warning <= 0 || t.Critical <= t.Warning || t.Critical > 1 {
		return models.NewConfigurationError("", fmt.Sprintf("invalid budget thresholds warning=%.2f critical=%.2f", t.Warning, t.Critical), nil)
	}
	return nil
}

// Options tune budget creation.
type Options struct {
	// ReservedForOutput overrides the profile's MaxOutputTokens when set.
	ReservedForOutput *int
	// Thresholds defaults to DefaultThresholds when zero.
	Thresholds Thresholds
}

// TokenBudgetItem is one audit row of a budget.
type TokenBudgetItem struct {
	Label           string             `json:"label"`
	ContentType     models.ContentType `json:"content_type"`
	CharCount       int                `json:"char_count"`
	EstimatedTokens int                `json:"estimated_tokens"`
	Priority        int                `json:"priority"`
	Included        bool               `json:"included"`
}

// TokenBudget is the per-request accumulator. It has a single owner; all
// mutation goes through its methods so Remaining and WarningLevel stay
// derived from Consumed.
type TokenBudget struct {
	Model              string            `json:"model"`
	TotalContextWindow int               `json:"total_context_window"`
	ReservedForOutput  int               `json:"reserved_for_output"`
	AvailableForInput  int               `json:"available_for_input"`
	Consumed           int               `json:"consumed"`
	Remaining          int               `json:"remaining"`
	WarningLevel       WarningLevel      `json:"warning_level"`
	Items              []TokenBudgetItem `json:"items"`

	est        Estimator
	thresholds Thresholds
}

// New creates a budget for p. It fails with *models.ConfigurationError when
// the profile or thresholds are unusable.
func New(p *models.Profile, opts Options) (*TokenBudget, error) {
	if p == nil {
		return nil, models.NewConfigurationError("", "profile is nil", nil)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	thresholds := opts.Thresholds
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	if err := thresholds.validate(); err != nil {
		return nil, err
	}

	reserved := p.MaxOutputTokens
	if opts.ReservedForOutput != nil {
		reserved = *opts.ReservedForOutput
	}
	if reserved < 0 {
		return nil, models.NewConfigurationError(p.ID, fmt.Sprintf("negative output reservation %d", reserved), nil)
	}
	available := p.ContextWindow - reserved
	if available < 0 {
		available = 0
	}

	b := &TokenBudget{
		Model:              p.ID,
		TotalContextWindow: p.ContextWindow,
		ReservedForOutput:  reserved,
		AvailableForInput:  available,
		Items:              []TokenBudgetItem{},
		est:                NewEstimator(p),
		thresholds:         thresholds,
	}
	b.recompute()
	return b, nil
}

// Estimator returns the estimator bound to the budget's profile.
func (b *TokenBudget) Estimator() Estimator {
	return b.est
}

// Estimate is shorthand for b.Estimator().Estimate.
func (b *TokenBudget) Estimate(text string, ct models.ContentType) int {
	return b.est.Estimate(text, ct)
}

// CanFit reports whether text's estimated cost fits the remaining budget.
func (b *TokenBudget) CanFit(text string, ct models.ContentType) bool {
	return b.CanFitTokens(b.est.Estimate(text, ct))
}

// CanFitTokens reports whether tokens fit the remaining budget.
func (b *TokenBudget) CanFitTokens(tokens int) bool {
	return tokens <= b.Remaining
}

// AddItem records content as included and charges its estimated cost plus
// the per-message overhead. It does not check the budget; call CanFit first.
func (b *TokenBudget) AddItem(label, content string, priority int, ct models.ContentType) TokenBudgetItem {
	if ct == models.ContentAuto {
		ct = DetectContentType(content)
	}
	return b.AddEstimated(label, utf8.RuneCountInString(content), b.est.Estimate(content, ct), priority, ct)
}

// AddEstimated is AddItem for callers that already hold the estimate.
func (b *TokenBudget) AddEstimated(label string, chars, tokens, priority int, ct models.ContentType) TokenBudgetItem {
	item := TokenBudgetItem{
		Label:           label,
		ContentType:     ct,
		CharCount:       chars,
		EstimatedTokens: tokens,
		Priority:        priority,
		Included:        true,
	}
	b.Items = append(b.Items, item)
	b.Consumed += tokens + b.est.MessageOverhead()
	b.recompute()
	return item
}

// RecordExcluded appends an audit row for content that was not packed.
// Nothing is consumed.
func (b *TokenBudget) RecordExcluded(label string, chars, tokens, priority int, ct models.ContentType) {
	b.Items = append(b.Items, TokenBudgetItem{
		Label:           label,
		ContentType:     ct,
		CharCount:       chars,
		EstimatedTokens: tokens,
		Priority:        priority,
	})
}

// GetRemaining returns the unconsumed input budget, never negative.
func (b *TokenBudget) GetRemaining() int {
	return b.Remaining
}

// Utilization returns Consumed / AvailableForInput.
func (b *TokenBudget) Utilization() float64 {
	if b.AvailableForInput <= 0 {
		if b.Consumed > 0 {
			return 1
		}
		return 0
	}
	return float64(b.Consumed) / float64(b.AvailableForInput)
}

// Snapshot returns a deep copy safe to hand to other goroutines or log.
func (b *TokenBudget) Snapshot() TokenBudget {
	cp := *b
	cp.Items = append([]TokenBudgetItem(nil), b.Items...)
	return cp
}

// IncludedCount returns the number of included audit rows.
func (b *TokenBudget) IncludedCount() int {
	n := 0
	for _, it := range b.Items {
		if it.Included {
			n++
		}
	}
	return n
}

func (b *TokenBudget) recompute() {
	b.Remaining = b.AvailableForInput - b.Consumed
	if b.Remaining < 0 {
		b.Remaining = 0
	}
	b.WarningLevel = b.levelFor()
}

func (b *TokenBudget) levelFor() WarningLevel {
	if b.AvailableForInput <= 0 {
		if b.Consumed > 0 {
			return LevelExceeded
		}
		return LevelOK
	}
	ratio := float64(b.Consumed) / float64(b.AvailableForInput)
	switch {
	case ratio >= 1:
		return LevelExceeded
	case ratio >= b.thresholds.Critical:
		return LevelCritical
	case ratio >= b.thresholds.Warning:
		return LevelWarning
	default:
		return LevelOK
	}
}
