// Package compaction shrinks content toward a token target through an
// ordered cascade of lossy, deterministic strategies.
//
// Strategies run in a fixed order per content type. Each one works on the
// output of the previous one, and the cascade stops as soon as the estimate
// is at or below the target. Output is never larger than input.
package compaction

import (
	"unicode/utf8"

	"ctxfeed/internal/budget"
	"ctxfeed/internal/models"
)

// Strategy names a compression step.
type Strategy string

const (
	StrategyStripComments Strategy = "strip_comments"
	StrategyAbbreviate    Strategy = "abbreviate_structured"
	StrategyCollapse      Strategy = "collapse_patterns"
	StrategyHeadTail      Strategy = "head_tail"
	StrategyHardTruncate  Strategy = "hard_truncate"
)

// Estimator is the subset of budget.Estimator the cascade needs.
type Estimator interface {
	Estimate(text string, ct models.ContentType) int
	CharsPerToken(ct models.ContentType) float64
}

// Result is the outcome of Compress.
type Result struct {
	Content        string     `json:"content"`
	Tokens         int        `json:"tokens"`
	OriginalTokens int        `json:"original_tokens"`
	Applied        []Strategy `json:"applied"`
	ReachedTarget  bool       `json:"reached_target"`
}

// Cascade applies strategies in order until content fits a target.
type Cascade struct {
	cfg Config
	est Estimator
}

// NewCascade creates a Cascade. Zero fields of cfg take their defaults.
func NewCascade(cfg Config, est Estimator) *Cascade {
	return &Cascade{cfg: cfg.withDefaults(), est: est}
}

// Config returns the effective configuration.
func (c *Cascade) Config() Config {
	return c.cfg
}

// StrategiesFor returns the cascade order for ct.
func StrategiesFor(ct models.ContentType) []Strategy {
	switch ct {
	case models.ContentCode, models.ContentMixed:
		return []Strategy{StrategyStripComments, StrategyCollapse, StrategyHeadTail, StrategyHardTruncate}
	case models.ContentStructured:
		return []Strategy{StrategyAbbreviate, StrategyCollapse, StrategyHeadTail, StrategyHardTruncate}
	default:
		return []Strategy{StrategyCollapse, StrategyHeadTail, StrategyHardTruncate}
	}
}

// Compress shrinks content toward target tokens. An empty ct is detected
// from the content. A stage whose output is not smaller is discarded and
// not reported in Applied.
func (c *Cascade) Compress(content string, ct models.ContentType, target int) Result {
	if ct == models.ContentAuto {
		ct = budget.DetectContentType(content)
	}
	if target < 0 {
		target = 0
	}

	tokens := c.est.Estimate(content, ct)
	res := Result{
		Content:        content,
		Tokens:         tokens,
		OriginalTokens: tokens,
		Applied:        []Strategy{},
	}
	if tokens <= target {
		res.ReachedTarget = true
		return res
	}

	for _, st := range StrategiesFor(ct) {
		out := c.apply(st, res.Content, ct, target)
		outTokens := c.est.Estimate(out, ct)
		if !smaller(out, outTokens, res.Content, res.Tokens) {
			continue
		}
		res.Content = out
		res.Tokens = outTokens
		res.Applied = append(res.Applied, st)
		if res.Tokens <= target {
			res.ReachedTarget = true
			break
		}
	}
	return res
}

func (c *Cascade) apply(st Strategy, content string, ct models.ContentType, target int) string {
	switch st {
	case StrategyStripComments:
		return StripComments(content, c.cfg.MaxBlankLines)
	case StrategyAbbreviate:
		return AbbreviateStructured(content, c.cfg.MaxStringLength, c.cfg.MaxArrayItems)
	case StrategyCollapse:
		return CollapsePatterns(content, c.cfg.MinRunLength)
	case StrategyHeadTail:
		return HeadTail(content, target, c.cfg)
	case StrategyHardTruncate:
		return HardTruncate(content, target, c.est.CharsPerToken(ct))
	default:
		return content
	}
}

func smaller(out string, outTokens int, in string, inTokens int) bool {
	if outTokens != inTokens {
		return outTokens < inTokens
	}
	return utf8.RuneCountInString(out) < utf8.RuneCountInString(in)
}
