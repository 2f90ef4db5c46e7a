// Package models holds the static per-model facts the budget tracker reads:
// context window sizes, reserved output space and per-content-type token costs.
package models

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// ContentType classifies text for token-cost estimation and compression.
type ContentType string

// Content types. An empty ContentType means "detect from the text".
const (
	ContentAuto       ContentType = ""
	ContentCode       ContentType = "code"
	ContentText       ContentType = "text"
	ContentStructured ContentType = "structured"
	ContentFormatted  ContentType = "formatted"
	ContentMixed      ContentType = "mixed"
)

// ContentTypes lists every concrete content type in a stable order.
var ContentTypes = []ContentType{
	ContentCode,
	ContentText,
	ContentStructured,
	ContentFormatted,
	ContentMixed,
}

// Valid reports whether ct is one of the concrete content types.
func (ct ContentType) Valid() bool {
	switch ct {
	case ContentCode, ContentText, ContentStructured, ContentFormatted, ContentMixed:
		return true
	default:
		return false
	}
}

// ParseContentType converts a user supplied name into a ContentType.
// "auto" and "" map to ContentAuto.
func ParseContentType(s string) (ContentType, error) {
	switch s {
	case "", "auto":
		return ContentAuto, nil
	case "json":
		return ContentStructured, nil
	case "markdown", "md":
		return ContentFormatted, nil
	}
	ct := ContentType(s)
	if !ct.Valid() {
		return ContentAuto, fmt.Errorf("unknown content type %q", s)
	}
	return ct, nil
}

// Profile describes one model. Profiles are immutable after the registry
// that owns them has been built.
type Profile struct {
	ID              string                  `json:"id" yaml:"id" validate:"required"`
	DisplayName     string                  `json:"display_name" yaml:"display_name"`
	ContextWindow   int                     `json:"context_window" yaml:"context_window" validate:"gt=0"`
	MaxOutputTokens int                     `json:"max_output_tokens" yaml:"max_output_tokens" validate:"gte=0,ltfield=ContextWindow"`
	CharsPerToken   map[ContentType]float64 `json:"chars_per_token" yaml:"chars_per_token" validate:"required,dive,gt=0"`
	MessageOverhead int                     `json:"message_overhead" yaml:"message_overhead" validate:"gte=0"`
}

// profileValidate is shared by every registry; validator caches struct metadata.
var profileValidate = validator.New()

// Validate checks the profile and returns a *ConfigurationError when it is
// unusable.
func (p *Profile) Validate() error {
	if p == nil {
		return newConfigError("", "profile is nil", nil)
	}
	if err := profileValidate.Struct(p); err != nil {
		return newConfigError(p.ID, "invalid profile", err)
	}
	for _, ct := range ContentTypes {
		if _, ok := p.CharsPerToken[ct]; !ok {
			return newConfigError(p.ID, fmt.Sprintf("missing chars_per_token entry for %q", ct), nil)
		}
	}
	for ct := range p.CharsPerToken {
		if !ct.Valid() {
			return newConfigError(p.ID, fmt.Sprintf("unknown content type %q in chars_per_token", ct), nil)
		}
	}
	return nil
}

// CostFor returns the characters-per-token ratio for ct. Unknown or auto
// types fall back to the mixed ratio.
func (p *Profile) CostFor(ct ContentType) float64 {
	if v, ok := p.CharsPerToken[ct]; ok && v > 0 {
		return v
	}
	if v, ok := p.CharsPerToken[ContentMixed]; ok && v > 0 {
		return v
	}
	return 4
}

func (p Profile) clone() Profile {
	costs := make(map[ContentType]float64, len(p.CharsPerToken))
	for k, v := range p.CharsPerToken {
		costs[k] = v
	}
	p.CharsPerToken = costs
	return p
}

// sortedIDs returns profile ids in lexical order.
func sortedIDs(m map[string]*Profile) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
