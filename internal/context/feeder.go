package context

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ctxfeed/internal/budget"
	"ctxfeed/internal/compaction"
	"ctxfeed/internal/models"
	"ctxfeed/pkg/logger"
)

// Options configures a Feeder. Zero values take their defaults.
type Options struct {
	Thresholds budget.Thresholds
	Builder    BuilderConfig
	Relevance  RelevanceConfig
	Packer     PackerConfig
	Compaction compaction.Config

	// Logger defaults to the global logger.
	Logger *zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Feeder assembles budgeted message sequences. It is safe for concurrent
// use: the registry is read-only and every call owns its own budget.
type Feeder struct {
	registry *models.Registry
	opts     Options
	scorer   *Scorer
	log      *zerolog.Logger
	now      func() time.Time
}

// NewFeeder creates a Feeder over registry.
func NewFeeder(registry *models.Registry, opts Options) *Feeder {
	log := opts.Logger
	if log == nil {
		log = logger.Component("feeder")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Feeder{
		registry: registry,
		opts:     opts,
		scorer:   NewScorer(opts.Relevance),
		log:      log,
		now:      now,
	}
}

// Registry returns the model registry the feeder resolves against.
func (f *Feeder) Registry() *models.Registry {
	return f.registry
}

// Feed builds, scores, packs and assembles the context for req. Only an
// unusable model is an error; items that cannot fit are reported in the
// result.
func (f *Feeder) Feed(req Request) (*FeedResult, error) {
	if req.Model == "" {
		return nil, ErrEmptyModel
	}
	if f.registry == nil {
		return nil, ErrNilRegistry
	}
	profile, err := f.registry.Get(req.Model)
	if err != nil {
		return nil, err
	}

	b, err := budget.New(profile, budget.Options{
		ReservedForOutput: req.ReservedForOutput,
		Thresholds:        f.opts.Thresholds,
	})
	if err != nil {
		return nil, fmt.Errorf("create budget for %s: %w", req.Model, err)
	}

	now := f.now()
	est := b.Estimator()
	items := NewBuilder(f.opts.Builder, est).Build(req, now)
	kw := ExtractKeywords(req.Context.Task, req.UserMessage, req.Context.Plan)
	f.scorer.ScoreAll(items, kw, now)

	packer := NewPacker(f.opts.Packer, compaction.NewCascade(f.opts.Compaction, est))
	packed := packer.Pack(b, items)

	result := &FeedResult{
		RequestID:            uuid.NewString(),
		Model:                profile.ID,
		Messages:             Assemble(packed.Included),
		Budget:               b.Snapshot(),
		IncludedItems:        summaries(packed.Included),
		ExcludedItems:        summaries(packed.Excluded),
		CompressionApplied:   packed.CompressionApplied,
		TotalItemsConsidered: len(items),
	}

	f.log.Debug().
		Str("request_id", result.RequestID).
		Str("model", result.Model).
		Int("items", result.TotalItemsConsidered).
		Int("included", len(result.IncludedItems)).
		Int("excluded", len(result.ExcludedItems)).
		Int("consumed", result.Budget.Consumed).
		Int("available", result.Budget.AvailableForInput).
		Bool("compressed", result.CompressionApplied).
		Int("keywords", kw.Count()).
		Msg("context fed")

	switch result.Budget.WarningLevel {
	case budget.LevelCritical, budget.LevelExceeded:
		f.log.Warn().
			Str("request_id", result.RequestID).
			Str("model", result.Model).
			Str("warning_level", string(result.Budget.WarningLevel)).
			Int("consumed", result.Budget.Consumed).
			Int("available", result.Budget.AvailableForInput).
			Msg("context budget nearly exhausted")
	}
	return result, nil
}

func summaries(items []Item) []ItemSummary {
	out := make([]ItemSummary, 0, len(items))
	for _, it := range items {
		out = append(out, it.Summary())
	}
	return out
}
