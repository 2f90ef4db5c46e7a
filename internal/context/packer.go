package context

import (
	"math"
	"sort"
	"unicode/utf8"

	"ctxfeed/internal/budget"
	"ctxfeed/internal/compaction"
)

// PackerConfig holds the compression thresholds used while packing.
type PackerConfig struct {
	// MinRemainingForCompression is the remaining budget below which no
	// compression is attempted.
	// Default: 50
	MinRemainingForCompression int `json:"min_remaining_for_compression" yaml:"min_remaining_for_compression" mapstructure:"min_remaining_for_compression" validate:"gte=0"`

	// CompressionTargetRatio is the share of the remaining budget a
	// compressed item may target.
	// Default: 0.8
	CompressionTargetRatio float64 `json:"compression_target_ratio" yaml:"compression_target_ratio" mapstructure:"compression_target_ratio" validate:"gt=0,lte=1"`

	// CompressionMargin is the budget a compressed item must leave free.
	// Default: 10
	CompressionMargin int `json:"compression_margin" yaml:"compression_margin" mapstructure:"compression_margin" validate:"gte=0"`

	// MaxCompressibleTier is the highest tier eligible for compression.
	// Default: 3
	MaxCompressibleTier Tier `json:"max_compressible_tier" yaml:"max_compressible_tier" mapstructure:"max_compressible_tier" validate:"gte=1,lte=4"`
}

// DefaultPackerConfig returns a PackerConfig with default values.
func DefaultPackerConfig() PackerConfig {
	return PackerConfig{
		MinRemainingForCompression: 50,
		CompressionTargetRatio:     0.8,
		CompressionMargin:          10,
		MaxCompressibleTier:        TierSupplementary,
	}
}

// PackResult lists packed items in inclusion order.
type PackResult struct {
	Included           []Item
	Excluded           []Item
	CompressionApplied bool
}

// Packer fits items into a budget by tier, compressing where worthwhile.
type Packer struct {
	cfg     PackerConfig
	cascade *compaction.Cascade
}

// NewPacker creates a Packer. A zero cfg uses the defaults.
func NewPacker(cfg PackerConfig, cascade *compaction.Cascade) *Packer {
	if cfg == (PackerConfig{}) {
		cfg = DefaultPackerConfig()
	}
	return &Packer{cfg: cfg, cascade: cascade}
}

func isForced(it Item) bool {
	return it.Category == CategorySystemPrompt || it.Category == CategoryUserMessage
}

// Order returns items in processing order: the system prompt and user
// message first, then the rest by ascending tier and descending relevance.
// Ties keep their input order. items is not modified.
func (p *Packer) Order(items []Item) []Item {
	var sys, user, rest []Item
	for _, it := range items {
		switch it.Category {
		case CategorySystemPrompt:
			sys = append(sys, it)
		case CategoryUserMessage:
			user = append(user, it)
		default:
			rest = append(rest, it)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].Tier != rest[j].Tier {
			return rest[i].Tier < rest[j].Tier
		}
		return rest[i].Relevance > rest[j].Relevance
	})

	out := make([]Item, 0, len(items))
	out = append(out, sys...)
	out = append(out, user...)
	return append(out, rest...)
}

// Pack charges items against b in processing order. The system prompt and
// user message are always included uncompressed, whatever the budget.
func (p *Packer) Pack(b *budget.TokenBudget, items []Item) PackResult {
	res := PackResult{Included: []Item{}, Excluded: []Item{}}
	overhead := b.Estimator().MessageOverhead()

	for _, it := range p.Order(items) {
		if isForced(it) {
			p.include(b, &res, it)
			continue
		}
		if b.CanFitTokens(it.EstimatedTokens + overhead) {
			p.include(b, &res, it)
			continue
		}
		if compressed, ok := p.compress(b, it, overhead); ok {
			res.CompressionApplied = true
			p.include(b, &res, compressed)
			continue
		}
		b.RecordExcluded(it.Label, utf8.RuneCountInString(it.Content), it.EstimatedTokens, int(it.Tier), it.ContentType)
		res.Excluded = append(res.Excluded, it)
	}
	return res
}

func (p *Packer) include(b *budget.TokenBudget, res *PackResult, it Item) {
	b.AddEstimated(it.Label, utf8.RuneCountInString(it.Content), it.EstimatedTokens, int(it.Tier), it.ContentType)
	res.Included = append(res.Included, it)
}

// compress tries to shrink it into the remaining budget. Optional items and
// nearly exhausted budgets are not worth the effort.
func (p *Packer) compress(b *budget.TokenBudget, it Item, overhead int) (Item, bool) {
	remaining := b.GetRemaining()
	if p.cascade == nil || it.Tier > p.cfg.MaxCompressibleTier || remaining <= p.cfg.MinRemainingForCompression {
		return it, false
	}

	target := int(math.Floor(p.cfg.CompressionTargetRatio * float64(remaining)))
	r := p.cascade.Compress(it.Content, it.ContentType, target)
	if r.Tokens > remaining-p.cfg.CompressionMargin || r.Tokens+overhead > remaining {
		return it, false
	}

	it.Content = r.Content
	it.EstimatedTokens = r.Tokens
	it.Compressed = true
	return it, true
}
