package cli

import (
	"encoding/json"
	"io"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// wantJSON is true when asked for, or when stdout is not a terminal.
func wantJSON(w io.Writer, flag bool) bool {
	return flag || !isTerminal(w)
}
