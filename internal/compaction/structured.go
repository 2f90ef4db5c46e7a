package compaction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/tidwall/jsonc"
)

// AbbreviateStructured parses src as JSON (comments and trailing commas
// allowed), drops null fields, shortens long strings and arrays, and
// re-encodes compactly with object keys in their source order. Input that
// does not parse is returned unchanged, as is any result that would not be
// shorter.
func AbbreviateStructured(src string, maxString, maxItems int) string {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON([]byte(src))))
	dec.UseNumber()

	v, err := decodeOrdered(dec)
	if err != nil {
		return src
	}
	if _, err := dec.Token(); err != io.EOF {
		return src
	}

	out, err := encodeCompact(abbreviate(v, maxString, maxItems))
	if err != nil {
		return src
	}
	if utf8.RuneCount(out) >= utf8.RuneCountInString(src) {
		return src
	}
	return string(out)
}

// object is a decoded JSON object that remembers its key order. A repeated
// key keeps its first position and its last value.
type object struct {
	keys []string
	vals map[string]any
}

func (o *object) set(k string, v any) {
	if _, dup := o.vals[k]; !dup {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := encodeCompact(k)
		if err != nil {
			return nil, err
		}
		vb, err := encodeCompact(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeOrdered reads one JSON value from dec, decoding objects as *object.
func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		o := &object{vals: make(map[string]any)}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			k, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v", kt)
			}
			v, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			o.set(k, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return o, nil
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected %v", delim)
	}
}

func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func abbreviate(v any, maxString, maxItems int) any {
	switch t := v.(type) {
	case *object:
		out := &object{vals: make(map[string]any, len(t.keys))}
		for _, k := range t.keys {
			val := t.vals[k]
			if val == nil {
				continue
			}
			out.set(k, abbreviate(val, maxString, maxItems))
		}
		return out
	case []any:
		n := len(t)
		if n > maxItems {
			n = maxItems
		}
		out := make([]any, 0, n+1)
		for _, val := range t[:n] {
			out = append(out, abbreviate(val, maxString, maxItems))
		}
		if len(t) > maxItems {
			out = append(out, fmt.Sprintf("+%d more", len(t)-maxItems))
		}
		return out
	case string:
		rs := []rune(t)
		if len(rs) > maxString {
			return string(rs[:maxString]) + "..."
		}
		return t
	default:
		return v
	}
}
