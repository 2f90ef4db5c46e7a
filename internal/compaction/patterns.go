package compaction

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// linePrefix captures indentation plus the leading run of structural
// characters, stopping at the first digit, quote or space.
var linePrefix = regexp.MustCompile(`^([ \t]*)([^0-9"'\x60\s]+)`)

// CollapsePatterns replaces each run of at least minRun consecutive lines
// sharing a structural prefix with the first line, a "[N similar entries]"
// marker and the last line. Runs where the marker would not save space are
// left alone.
func CollapsePatterns(src string, minRun int) string {
	lines := strings.Split(src, "\n")
	if len(lines) < minRun {
		return src
	}

	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		key := prefixOf(lines[i])
		j := i + 1
		if key != "" {
			for j < len(lines) && prefixOf(lines[j]) == key {
				j++
			}
		}
		run := j - i
		if key == "" || run < minRun {
			out = append(out, lines[i:j]...)
			i = j
			continue
		}

		indent := linePrefix.FindStringSubmatch(lines[i])[1]
		marker := fmt.Sprintf("%s[%d similar entries]", indent, run-2)
		if interiorLen(lines[i+1:j-1]) <= utf8.RuneCountInString(marker) {
			out = append(out, lines[i:j]...)
		} else {
			out = append(out, lines[i], marker, lines[j-1])
		}
		i = j
	}
	return strings.Join(out, "\n")
}

func prefixOf(line string) string {
	m := linePrefix.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1] + m[2]
}

func interiorLen(lines []string) int {
	n := 0
	for _, l := range lines {
		n += utf8.RuneCountInString(l) + 1
	}
	return n - 1
}
