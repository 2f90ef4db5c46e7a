package compaction

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// TruncationNotice is appended by HardTruncate.
const TruncationNotice = "\n[... truncated to fit token budget ...]"

// HeadTail keeps the first and last lines of src that fit target tokens,
// split by cfg.HeadRatio, with an omission marker between them. The line
// allowance is derived from the average line length and never drops below
// cfg.MinLines.
func HeadTail(src string, target int, cfg Config) string {
	cfg = cfg.withDefaults()
	lines := strings.Split(src, "\n")
	total := utf8.RuneCountInString(src)

	avg := total / len(lines)
	if avg < 1 {
		avg = 1
	}
	maxLines := target * cfg.CharsPerTokenHint / avg
	if maxLines < cfg.MinLines {
		maxLines = cfg.MinLines
	}
	if len(lines) <= maxLines {
		return src
	}

	head := int(float64(maxLines) * cfg.HeadRatio)
	if head < 1 {
		head = 1
	}
	tail := maxLines - head
	if tail < 1 {
		tail = 1
		head = maxLines - 1
	}
	omitted := len(lines) - head - tail

	var sb strings.Builder
	sb.WriteString(strings.Join(lines[:head], "\n"))
	fmt.Fprintf(&sb, "\n[... %d lines omitted ...]\n", omitted)
	sb.WriteString(strings.Join(lines[len(lines)-tail:], "\n"))

	out := sb.String()
	if utf8.RuneCountInString(out) >= total {
		return src
	}
	return out
}

// HardTruncate cuts src so that the result, notice included, is at most
// floor(target*charsPerToken) characters. The cut backs up to the last
// newline when one lies in the second half of the kept text.
func HardTruncate(src string, target int, charsPerToken float64) string {
	limit := int(math.Floor(float64(target)*charsPerToken + 1e-9))
	rs := []rune(src)
	if len(rs) <= limit {
		return src
	}

	keep := limit - utf8.RuneCountInString(TruncationNotice)
	if keep <= 0 {
		return strings.TrimPrefix(TruncationNotice, "\n")
	}

	kept := string(rs[:keep])
	if idx := strings.LastIndexByte(kept, '\n'); idx > len(kept)/2 {
		kept = kept[:idx]
	}
	return kept + TruncationNotice
}
