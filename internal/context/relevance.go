package context

import (
	"math"
	"strings"
	"time"
)

// RelevanceConfig holds the scoring weights. The defaults are tuning values,
// not derived limits.
type RelevanceConfig struct {
	TitleWeight       float64 `json:"title_weight" yaml:"title_weight" mapstructure:"title_weight" validate:"gte=0"`
	DescriptionWeight float64 `json:"description_weight" yaml:"description_weight" mapstructure:"description_weight" validate:"gte=0"`
	ContentWeight     float64 `json:"content_weight" yaml:"content_weight" mapstructure:"content_weight" validate:"gte=0"`
	FilePathWeight    float64 `json:"file_path_weight" yaml:"file_path_weight" mapstructure:"file_path_weight" validate:"gte=0"`
	SameTaskBonus     float64 `json:"same_task_bonus" yaml:"same_task_bonus" mapstructure:"same_task_bonus" validate:"gte=0"`

	// DescriptionChars is how much of the content counts as description.
	DescriptionChars int `json:"description_chars" yaml:"description_chars" mapstructure:"description_chars" validate:"gt=0"`

	HourBonus float64 `json:"hour_bonus" yaml:"hour_bonus" mapstructure:"hour_bonus" validate:"gte=0"`
	DayBonus  float64 `json:"day_bonus" yaml:"day_bonus" mapstructure:"day_bonus" validate:"gte=0"`
	WeekBonus float64 `json:"week_bonus" yaml:"week_bonus" mapstructure:"week_bonus" validate:"gte=0"`

	// StaleFlagPenalty applies to items flagged stale. Items older than
	// StaleAfter lose up to StaleAgePenalty more, ramping over StaleRamp.
	// The total is capped at StalePenaltyCap.
	StaleFlagPenalty float64       `json:"stale_flag_penalty" yaml:"stale_flag_penalty" mapstructure:"stale_flag_penalty" validate:"gte=0"`
	StaleAgePenalty  float64       `json:"stale_age_penalty" yaml:"stale_age_penalty" mapstructure:"stale_age_penalty" validate:"gte=0"`
	StaleAfter       time.Duration `json:"stale_after" yaml:"stale_after" mapstructure:"stale_after" validate:"gt=0"`
	StaleRamp        time.Duration `json:"stale_ramp" yaml:"stale_ramp" mapstructure:"stale_ramp" validate:"gt=0"`
	StalePenaltyCap  float64       `json:"stale_penalty_cap" yaml:"stale_penalty_cap" mapstructure:"stale_penalty_cap" validate:"gte=0"`

	// The normalization denominator is max(PerKeywordCeiling*keywords, MinDenominator).
	PerKeywordCeiling float64 `json:"per_keyword_ceiling" yaml:"per_keyword_ceiling" mapstructure:"per_keyword_ceiling" validate:"gt=0"`
	MinDenominator    float64 `json:"min_denominator" yaml:"min_denominator" mapstructure:"min_denominator" validate:"gt=0"`

	// NeutralScore is returned when there are no keywords.
	NeutralScore int `json:"neutral_score" yaml:"neutral_score" mapstructure:"neutral_score" validate:"gte=0,lte=100"`
}

// DefaultRelevanceConfig returns a RelevanceConfig with default values.
func DefaultRelevanceConfig() RelevanceConfig {
	return RelevanceConfig{
		TitleWeight:       3,
		DescriptionWeight: 2,
		ContentWeight:     1,
		FilePathWeight:    4,
		SameTaskBonus:     8,
		DescriptionChars:  500,
		HourBonus:         10,
		DayBonus:          5,
		WeekBonus:         2,
		StaleFlagPenalty:  5,
		StaleAgePenalty:   10,
		StaleAfter:        7 * 24 * time.Hour,
		StaleRamp:         21 * 24 * time.Hour,
		StalePenaltyCap:   15,
		PerKeywordCeiling: 3,
		MinDenominator:    20,
		NeutralScore:      50,
	}
}

// Scorer computes 0-100 relevance scores.
type Scorer struct {
	cfg RelevanceConfig
}

// NewScorer creates a Scorer. A zero cfg uses the defaults.
func NewScorer(cfg RelevanceConfig) *Scorer {
	if cfg == (RelevanceConfig{}) {
		cfg = DefaultRelevanceConfig()
	}
	return &Scorer{cfg: cfg}
}

// Score rates how relevant it is to keywords at time now.
func (s *Scorer) Score(it Item, kw KeywordSet, now time.Time) int {
	if kw.Empty() {
		return s.cfg.NeutralScore
	}
	raw := s.Raw(it, kw, now)
	denom := math.Max(s.cfg.PerKeywordCeiling*float64(kw.Count()), s.cfg.MinDenominator)
	score := raw / denom * 100
	return int(math.Round(math.Min(100, math.Max(0, score))))
}

// Raw returns the unnormalized score.
func (s *Scorer) Raw(it Item, kw KeywordSet, now time.Time) float64 {
	label := strings.ToLower(it.Label)
	content := strings.ToLower(it.Content)
	description := content
	if rs := []rune(content); len(rs) > s.cfg.DescriptionChars {
		description = string(rs[:s.cfg.DescriptionChars])
	}

	var titleHits, descHits, contentHits, fileHits int
	for _, k := range kw.textKeywords() {
		if strings.Contains(label, k) {
			titleHits++
		}
		if strings.Contains(description, k) {
			descHits++
		}
		if strings.Contains(content, k) {
			contentHits++
		}
	}
	for _, k := range kw.File {
		for _, p := range it.Metadata.RelatedFilePatterns {
			if strings.Contains(strings.ToLower(p), k) {
				fileHits++
				break
			}
		}
	}

	raw := s.cfg.TitleWeight*float64(titleHits) +
		s.cfg.DescriptionWeight*float64(descHits) +
		s.cfg.ContentWeight*float64(contentHits) +
		s.cfg.FilePathWeight*float64(fileHits)
	raw += s.recencyBonus(it.Metadata.CreatedAt, now)
	if s.sameTask(it, kw) {
		raw += s.cfg.SameTaskBonus
	}
	raw -= s.stalenessPenalty(it.Metadata, now)
	return raw
}

func (s *Scorer) recencyBonus(created, now time.Time) float64 {
	if created.IsZero() {
		return 0
	}
	age := now.Sub(created)
	switch {
	case age <= time.Hour:
		return s.cfg.HourBonus
	case age <= 24*time.Hour:
		return s.cfg.DayBonus
	case age <= 7*24*time.Hour:
		return s.cfg.WeekBonus
	default:
		return 0
	}
}

func (s *Scorer) sameTask(it Item, kw KeywordSet) bool {
	for _, id := range it.Metadata.RelatedTaskIDs {
		lid := strings.ToLower(id)
		for _, k := range kw.Task {
			if strings.Contains(lid, k) {
				return true
			}
		}
	}
	return false
}

func (s *Scorer) stalenessPenalty(meta Metadata, now time.Time) float64 {
	var penalty float64
	if meta.IsStale {
		penalty += s.cfg.StaleFlagPenalty
	}
	if !meta.CreatedAt.IsZero() {
		if over := now.Sub(meta.CreatedAt) - s.cfg.StaleAfter; over > 0 {
			penalty += s.cfg.StaleAgePenalty * math.Min(1, float64(over)/float64(s.cfg.StaleRamp))
		}
	}
	return math.Min(penalty, s.cfg.StalePenaltyCap)
}

// ScoreAll sets the Relevance of every item. Mandatory request items keep
// the maximum score since they are never ranked.
func (s *Scorer) ScoreAll(items []Item, kw KeywordSet, now time.Time) {
	for i := range items {
		switch items[i].Category {
		case CategorySystemPrompt, CategoryUserMessage:
			items[i].Relevance = 100
		default:
			items[i].Relevance = s.Score(items[i], kw, now)
		}
	}
}
