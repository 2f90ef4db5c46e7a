package budget

import (
	"encoding/json"
	"regexp"
	"strings"

	"ctxfeed/internal/models"
)

const (
	// codePunctDensity is the share of non-space characters that must be
	// code punctuation before a text is considered code.
	codePunctDensity = 0.04
	// codeLineRatio is the share of non-empty lines that must look like code.
	codeLineRatio = 0.3
)

var (
	mdHeading  = regexp.MustCompile(`^#{1,6}\s+\S`)
	mdList     = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+\S`)
	mdQuote    = regexp.MustCompile(`^>\s?`)
	mdTable    = regexp.MustCompile(`^\s*\|.*\|\s*$`)
	mdEmphasis = regexp.MustCompile(`\*\*[^*\n]+\*\*|__[^_\n]+__|\[[^\]\n]+\]\([^)\n]+\)`)

	codeKeyword = regexp.MustCompile(`^\s*(func|function|def|class|import|package|return|const|let|var|if\s*\(|for\s*\(|while\s*\(|switch|case\s|public|private|protected|static|#include|using|namespace|struct|interface|type\s+\w+\s+(struct|interface)|export|async|await|fn|impl|pub)\b`)
	codeOperator = regexp.MustCompile(`=>|:=|==|!=|&&|\|\||->|\+\+|<<|>>`)
	codeCall     = regexp.MustCompile(`^[\w.]+\(.*\)$`)
)

// DetectContentType classifies text as structured, code, formatted, mixed or
// natural text. Mixed is returned when both code and markdown signals fire.
func DetectContentType(text string) models.ContentType {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.ContentText
	}
	if looksStructured(trimmed) {
		return models.ContentStructured
	}

	code := hasCodeSignal(trimmed)
	md := hasMarkdownSignal(trimmed)
	switch {
	case code && md:
		return models.ContentMixed
	case code:
		return models.ContentCode
	case md:
		return models.ContentFormatted
	default:
		return models.ContentText
	}
}

func looksStructured(trimmed string) bool {
	first := trimmed[0]
	if first != '{' && first != '[' {
		return false
	}
	return json.Valid([]byte(trimmed))
}

func hasCodeSignal(text string) bool {
	punct, nonSpace := 0, 0
	for _, r := range text {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '}', '(', ')', ';', '=', '<', '>', '[', ']':
			punct++
		}
		nonSpace++
	}
	if nonSpace == 0 || float64(punct)/float64(nonSpace) < codePunctDensity {
		return false
	}

	lines, codeLines := 0, 0
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "```") {
			continue
		}
		lines++
		if looksLikeCodeLine(t) {
			codeLines++
		}
	}
	return lines > 0 && float64(codeLines)/float64(lines) >= codeLineRatio
}

func looksLikeCodeLine(t string) bool {
	switch t[len(t)-1] {
	case ';', '{', '}':
		return true
	}
	return codeKeyword.MatchString(t) || codeOperator.MatchString(t) || codeCall.MatchString(t)
}

func hasMarkdownSignal(text string) bool {
	markers := 0
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(strings.TrimSpace(line), "```"):
			return true
		case mdHeading.MatchString(line):
			markers += 2
		case mdList.MatchString(line), mdQuote.MatchString(line), mdTable.MatchString(line):
			markers++
		case mdEmphasis.MatchString(line):
			markers++
		}
		if markers >= 2 {
			return true
		}
	}
	return false
}
