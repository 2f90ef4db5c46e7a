package context

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// minKeywordLen is the shortest keyword kept; shorter tokens are noise.
const minKeywordLen = 3

// KeywordSet holds disjoint keyword groups used for relevance scoring.
type KeywordSet struct {
	Task   []string `json:"task"`
	File   []string `json:"file"`
	Domain []string `json:"domain"`
}

// Count returns the total number of keywords across all groups.
func (k KeywordSet) Count() int {
	return len(k.Task) + len(k.File) + len(k.Domain)
}

// Empty reports whether k has no keywords at all.
func (k KeywordSet) Empty() bool {
	return k.Count() == 0
}

// textKeywords returns the task and domain groups, the ones matched against
// labels and content.
func (k KeywordSet) textKeywords() []string {
	out := make([]string, 0, len(k.Task)+len(k.Domain))
	out = append(out, k.Task...)
	return append(out, k.Domain...)
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "any": true, "can": true, "had": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true, "have": true,
	"this": true, "that": true, "with": true, "from": true, "they": true, "will": true,
	"would": true, "there": true, "their": true, "what": true, "about": true,
	"which": true, "when": true, "make": true, "like": true, "into": true, "than": true,
	"then": true, "them": true, "these": true, "those": true, "some": true,
	"could": true, "should": true, "been": true, "being": true, "were": true,
	"also": true, "just": true, "only": true, "over": true, "such": true, "very": true,
	"more": true, "most": true, "other": true, "after": true, "before": true,
	"where": true, "while": true, "does": true, "did": true, "its": true, "how": true,
	"why": true, "who": true, "whom": true, "each": true, "both": true, "few": true,
	"same": true, "own": true, "too": true, "here": true, "because": true,
	"between": true, "through": true, "during": true, "above": true, "below": true,
	"again": true, "further": true, "once": true, "under": true, "until": true,
	"your": true, "yours": true, "his": true, "she": true, "him": true, "himself": true,
	"itself": true, "ours": true, "let": true, "get": true, "got": true, "use": true,
	"please": true, "need": true, "want": true, "now": true, "yes": true,
}

// ExtractKeywords builds the keyword groups for a request. Task title,
// description and acceptance criteria feed the task group; the base names
// of modified files feed the file group; the user message, plan name and
// string values of the plan configuration feed the domain group. A keyword
// belongs to the first group that claims it.
func ExtractKeywords(task *Task, message string, plan *Plan) KeywordSet {
	seen := map[string]bool{}
	claim := func(words []string) []string {
		var out []string
		for _, w := range words {
			if seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
		}
		return out
	}

	var ks KeywordSet
	if task != nil {
		parts := []string{task.Title, task.Description}
		parts = append(parts, task.AcceptanceCriteria...)
		ks.Task = claim(Tokenize(strings.Join(parts, "\n")))

		var files []string
		for _, f := range task.ModifiedFiles {
			base := filepath.Base(filepath.ToSlash(f))
			base = strings.TrimSuffix(base, filepath.Ext(base))
			files = append(files, Tokenize(base)...)
		}
		ks.File = claim(files)
	}

	domain := Tokenize(message)
	if plan != nil {
		domain = append(domain, Tokenize(plan.Name)...)
		for _, s := range planStrings(plan.Configuration) {
			domain = append(domain, Tokenize(s)...)
		}
	}
	ks.Domain = claim(domain)
	return ks
}

// Tokenize splits text into lower-case keywords. camelCase, snake_case and
// kebab-case compounds yield their parts plus the whole compound. Stop
// words and tokens shorter than three characters are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-'
	})

	var out []string
	seen := map[string]bool{}
	add := func(w string) {
		w = strings.ToLower(strings.Trim(w, "_-"))
		if len([]rune(w)) < minKeywordLen || stopWords[w] || seen[w] || isNumber(w) {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	for _, f := range fields {
		parts := splitCompound(f)
		if len(parts) > 1 {
			add(f)
		}
		for _, p := range parts {
			add(p)
		}
	}
	return out
}

// splitCompound splits on '_' and '-' and at lower-to-upper case changes.
// An acronym followed by a word ("HTTPServer") splits before the last capital.
func splitCompound(s string) []string {
	var parts []string
	for _, chunk := range strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' }) {
		rs := []rune(chunk)
		start := 0
		for i := 1; i < len(rs); i++ {
			prev, cur := rs[i-1], rs[i]
			boundary := unicode.IsLower(prev) && unicode.IsUpper(cur)
			if !boundary && unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(rs) && unicode.IsLower(rs[i+1]) {
				boundary = true
			}
			if boundary {
				parts = append(parts, string(rs[start:i]))
				start = i
			}
		}
		parts = append(parts, string(rs[start:]))
	}
	return parts
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// planStrings returns every string value in a plan configuration. JSON
// (comments and trailing commas allowed) is tried first, then a YAML mapping
// or sequence; anything else is returned as a single raw string.
func planStrings(cfg string) []string {
	trimmed := strings.TrimSpace(cfg)
	if trimmed == "" {
		return nil
	}

	var v any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(trimmed)), &v); err == nil && isContainer(v) {
		return collectStrings(v, nil)
	}
	v = nil
	if err := yaml.Unmarshal([]byte(trimmed), &v); err == nil && isContainer(v) {
		return collectStrings(v, nil)
	}
	return []string{trimmed}
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

func collectStrings(v any, out []string) []string {
	switch t := v.(type) {
	case string:
		return append(out, t)
	case []any:
		for _, e := range t {
			out = collectStrings(e, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = collectStrings(t[k], out)
		}
	}
	return out
}
