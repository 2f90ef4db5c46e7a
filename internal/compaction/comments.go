package compaction

import "strings"

// StripComments removes // line comments and /* */ block comments while
// leaving string literals intact. Single and double quoted strings end at a
// newline; backtick strings may span lines. A line that held only a comment
// is dropped. Trailing whitespace is trimmed and runs of blank lines longer
// than maxBlank are shortened.
func StripComments(src string, maxBlank int) string {
	rs := []rune(src)
	n := len(rs)
	out := make([]rune, 0, n)
	lineStart := 0
	var quote rune

	blankSoFar := func() bool {
		for _, r := range out[lineStart:] {
			if r != ' ' && r != '\t' {
				return false
			}
		}
		return true
	}

	for i := 0; i < n; i++ {
		r := rs[i]

		if quote != 0 {
			out = append(out, r)
			switch {
			case r == '\\' && quote != '`' && i+1 < n && rs[i+1] != '\n':
				i++
				out = append(out, rs[i])
			case r == quote:
				quote = 0
			case r == '\n':
				if quote != '`' {
					quote = 0
				}
				lineStart = len(out)
			}
			continue
		}

		if r == '/' && i+1 < n && rs[i+1] == '/' {
			whole := blankSoFar()
			for i < n && rs[i] != '\n' {
				i++
			}
			if whole {
				out = out[:lineStart]
				continue
			}
			if i < n {
				out = append(out, '\n')
				lineStart = len(out)
			}
			continue
		}

		if r == '/' && i+1 < n && rs[i+1] == '*' {
			whole := blankSoFar()
			end := indexRunes(rs, i+2, '*', '/')
			if end < 0 {
				i = n
				if whole {
					out = out[:lineStart]
				}
				continue
			}
			i = end + 1
			if whole && restIsBlank(rs, i+1) {
				out = out[:lineStart]
				for i+1 < n && rs[i+1] != '\n' {
					i++
				}
				if i+1 < n {
					i++
				}
			}
			continue
		}

		switch r {
		case '"', '\'', '`':
			quote = r
		case '\n':
			lineStart = len(out) + 1
		}
		out = append(out, r)
	}

	return tidyLines(string(out), maxBlank)
}

// indexRunes returns the index of the first a immediately followed by b at
// or after from, or -1.
func indexRunes(rs []rune, from int, a, b rune) int {
	for j := from; j+1 < len(rs); j++ {
		if rs[j] == a && rs[j+1] == b {
			return j
		}
	}
	return -1
}

func restIsBlank(rs []rune, from int) bool {
	for j := from; j < len(rs) && rs[j] != '\n'; j++ {
		if rs[j] != ' ' && rs[j] != '\t' && rs[j] != '\r' {
			return false
		}
	}
	return true
}

// tidyLines trims trailing whitespace and caps consecutive blank lines.
func tidyLines(s string, maxBlank int) string {
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			blank++
			if blank > maxBlank {
				continue
			}
		} else {
			blank = 0
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
