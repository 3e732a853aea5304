package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Payload is a content record as delivered by the catalog or a navigation
// state token. Every field is optional.
type Payload map[string]any

var ErrNotObject = errors.New("payload must be a JSON object")

// DecodePayload parses a JSON object. Numbers are kept as json.Number so
// years and ratings render exactly as they were sent.
func DecodePayload(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Payload(m), nil
}

// lookup walks a dotted path. Numeric segments index into lists.
func (p Payload) lookup(path string) (any, bool) {
	var cur any = map[string]any(p)
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case Payload:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Text returns the value at path when it is a present scalar, rendered for
// display. Absent, empty, zero and non-scalar values report false.
func (p Payload) Text(path string) (string, bool) {
	v, ok := p.lookup(path)
	if !ok {
		return "", false
	}
	return scalarText(v)
}

// String is Text restricted to JSON strings. URLs use it.
func (p Payload) String(path string) (string, bool) {
	v, ok := p.lookup(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// FirstText returns the first present value among paths.
func (p Payload) FirstText(paths ...string) (string, bool) {
	for _, path := range paths {
		if s, ok := p.Text(path); ok {
			return s, true
		}
	}
	return "", false
}

// FirstString is FirstText for string-only fields.
func (p Payload) FirstString(paths ...string) (string, bool) {
	for _, path := range paths {
		if s, ok := p.String(path); ok {
			return s, true
		}
	}
	return "", false
}

// Present reports whether path holds a truthy value. Objects and lists
// count even when empty.
func (p Payload) Present(path string) bool {
	v, ok := p.lookup(path)
	if !ok {
		return false
	}
	switch val := v.(type) {
	case map[string]any, []any:
		return true
	case bool:
		return val
	}
	_, ok = scalarText(v)
	return ok
}

// Len returns the length of the list or string at path, or 0.
func (p Payload) Len(path string) int {
	v, ok := p.lookup(path)
	if !ok {
		return 0
	}
	switch val := v.(type) {
	case []any:
		return len(val)
	case string:
		return len(val)
	}
	return 0
}

// Raw returns the untyped value at path.
func (p Payload) Raw(path string) (any, bool) {
	return p.lookup(path)
}

func scalarText(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case json.Number:
		f, err := val.Float64()
		if err != nil || f == 0 {
			return "", false
		}
		return formatNumber(f), true
	case float64:
		if val == 0 {
			return "", false
		}
		return formatNumber(val), true
	case int:
		if val == 0 {
			return "", false
		}
		return strconv.Itoa(val), true
	case int64:
		if val == 0 {
			return "", false
		}
		return strconv.FormatInt(val, 10), true
	default:
		return "", false
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
