// Package budget models a model's context window as a depletable token
// budget and estimates the token cost of text per content type.
package budget

import (
	"math"
	"unicode/utf8"

	"ctxfeed/internal/models"
)

// ceilEpsilon absorbs float error so that 32/3.2 estimates 10, not 11.
const ceilEpsilon = 1e-9

// Estimator estimates token counts from a model profile's cost table.
type Estimator struct {
	profile *models.Profile
}

// NewEstimator creates an Estimator for p.
func NewEstimator(p *models.Profile) Estimator {
	return Estimator{profile: p}
}

// Estimate returns ceil(characters / charsPerToken[ct]). An empty ct is
// detected from the text. Per-message overhead is not included.
func (e Estimator) Estimate(text string, ct models.ContentType) int {
	if text == "" {
		return 0
	}
	if ct == models.ContentAuto {
		ct = DetectContentType(text)
	}
	return e.TokensForChars(utf8.RuneCountInString(text), ct)
}

// TokensForChars converts a character count to tokens for ct.
func (e Estimator) TokensForChars(chars int, ct models.ContentType) int {
	if chars <= 0 {
		return 0
	}
	return int(math.Ceil(float64(chars)/e.CharsPerToken(ct) - ceilEpsilon))
}

// CharsPerToken returns the cost ratio used for ct.
func (e Estimator) CharsPerToken(ct models.ContentType) float64 {
	if e.profile == nil {
		return 4
	}
	return e.profile.CostFor(ct)
}

// MessageOverhead returns the fixed per-message token overhead.
func (e Estimator) MessageOverhead() int {
	if e.profile == nil {
		return 0
	}
	return e.profile.MessageOverhead
}
