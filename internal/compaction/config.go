package compaction

// Config tunes the compression strategies.
type Config struct {
	// MaxStringLength is the longest string value kept whole by
	// abbreviate_structured.
	// Default: 50
	MaxStringLength int `json:"max_string_length" yaml:"max_string_length" mapstructure:"max_string_length" validate:"gt=0"`

	// MaxArrayItems is the number of array elements kept by
	// abbreviate_structured.
	// Default: 5
	MaxArrayItems int `json:"max_array_items" yaml:"max_array_items" mapstructure:"max_array_items" validate:"gt=0"`

	// MinRunLength is the shortest run of similar lines collapse_patterns
	// will fold.
	// Default: 3
	MinRunLength int `json:"min_run_length" yaml:"min_run_length" mapstructure:"min_run_length" validate:"gte=3"`

	// HeadRatio is the share of kept lines taken from the head by head_tail.
	// Default: 0.6
	HeadRatio float64 `json:"head_ratio" yaml:"head_ratio" mapstructure:"head_ratio" validate:"gt=0,lt=1"`

	// CharsPerTokenHint converts a token target to a line count in head_tail.
	// Default: 4
	CharsPerTokenHint int `json:"chars_per_token_hint" yaml:"chars_per_token_hint" mapstructure:"chars_per_token_hint" validate:"gt=0"`

	// MinLines is the floor on lines kept by head_tail.
	// Default: 5
	MinLines int `json:"min_lines" yaml:"min_lines" mapstructure:"min_lines" validate:"gt=0"`

	// MaxBlankLines is the longest run of blank lines strip_comments leaves.
	// Default: 2
	MaxBlankLines int `json:"max_blank_lines" yaml:"max_blank_lines" mapstructure:"max_blank_lines" validate:"gte=0"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		MaxStringLength:   50,
		MaxArrayItems:     5,
		MinRunLength:      3,
		HeadRatio:         0.6,
		CharsPerTokenHint: 4,
		MinLines:          5,
		MaxBlankLines:     2,
	}
}

// withDefaults fills zero fields so a partially populated Config is usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxStringLength <= 0 {
		c.MaxStringLength = d.MaxStringLength
	}
	if c.MaxArrayItems <= 0 {
		c.MaxArrayItems = d.MaxArrayItems
	}
	if c.MinRunLength < 3 {
		c.MinRunLength = d.MinRunLength
	}
	if c.HeadRatio <= 0 || c.HeadRatio >= 1 {
		c.HeadRatio = d.HeadRatio
	}
	if c.CharsPerTokenHint <= 0 {
		c.CharsPerTokenHint = d.CharsPerTokenHint
	}
	if c.MinLines <= 0 {
		c.MinLines = d.MinLines
	}
	if c.MaxBlankLines < 0 {
		c.MaxBlankLines = d.MaxBlankLines
	}
	return c
}
