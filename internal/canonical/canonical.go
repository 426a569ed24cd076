// Package canonical produces a deterministic byte encoding of JSON-like
// values. Two values that are deeply equal modulo map key order and number
// formatting always encode to identical bytes, which makes them hash
// identically. This is the sole input format for every digest in the
// evidence chain, so the encoding must stay byte-stable across platforms
// and independent re-implementations.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf8"
)

// Marshal encodes v canonically:
//   - map keys are emitted in lexicographic byte order
//   - sequence order is preserved
//   - non-finite floats encode as null
//   - nil encodes as null
//   - strings use plain JSON escaping without HTML escaping
//
// Values that are not directly JSON-like (structs, typed slices and maps)
// are first round-tripped through encoding/json, so json struct tags apply.
// Cyclic values are rejected with an error rather than collapsed; a cycle in
// evidence input is a caller bug, and silently hashing a placeholder would
// let two different cyclic inputs hash equal.
func Marshal(v any) ([]byte, error) {
	buf := make([]byte, 0, 256)
	return appendValue(buf, v)
}

func appendValue(buf []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return append(buf, "null"...), nil
	case bool:
		return strconv.AppendBool(buf, val), nil
	case string:
		return appendString(buf, val), nil
	case json.Number:
		return append(buf, val.String()...), nil
	case float64:
		return appendFloat(buf, val), nil
	case float32:
		return appendFloat(buf, float64(val)), nil
	case int:
		return strconv.AppendInt(buf, int64(val), 10), nil
	case int8:
		return strconv.AppendInt(buf, int64(val), 10), nil
	case int16:
		return strconv.AppendInt(buf, int64(val), 10), nil
	case int32:
		return strconv.AppendInt(buf, int64(val), 10), nil
	case int64:
		return strconv.AppendInt(buf, val, 10), nil
	case uint:
		return strconv.AppendUint(buf, uint64(val), 10), nil
	case uint8:
		return strconv.AppendUint(buf, uint64(val), 10), nil
	case uint16:
		return strconv.AppendUint(buf, uint64(val), 10), nil
	case uint32:
		return strconv.AppendUint(buf, uint64(val), 10), nil
	case uint64:
		return strconv.AppendUint(buf, val, 10), nil
	case []any:
		return appendArray(buf, val)
	case map[string]any:
		return appendObject(buf, val)
	default:
		generic, err := normalize(v)
		if err != nil {
			return nil, err
		}
		return appendValue(buf, generic)
	}
}

// normalize round-trips an arbitrary Go value through encoding/json into the
// generic any representation, preserving number text via json.Number.
// encoding/json detects cycles and unsupported values for us.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: not a JSON-like value: %w", err)
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical: re-decode: %w", err)
	}
	return generic, nil
}

func appendArray(buf []byte, arr []any) ([]byte, error) {
	var err error
	buf = append(buf, '[')
	for i, item := range arr {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf, err = appendValue(buf, item)
		if err != nil {
			return nil, err
		}
	}
	return append(buf, ']'), nil
}

func appendObject(buf []byte, obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var err error
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendString(buf, k)
		buf = append(buf, ':')
		buf, err = appendValue(buf, obj[k])
		if err != nil {
			return nil, err
		}
	}
	return append(buf, '}'), nil
}

// appendFloat matches the number formatting encoding/json uses, which in
// turn mirrors ECMAScript shortest-round-trip formatting. Digests produced
// here must agree with canonicalizers in other runtimes, so this cannot be
// a plain %g.
func appendFloat(buf []byte, f float64) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(buf, "null"...)
	}
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	out := strconv.AppendFloat(buf, f, format, -1, 64)
	if format == 'e' {
		// Trim the leading zero encoding/json strips from exponents: 1e+07 -> 1e+7.
		n := len(out)
		if n >= 4 && out[n-4] == 'e' && out[n-2] == '0' {
			out[n-2] = out[n-1]
			out = out[:n-1]
		}
	}
	return out
}

const hexDigits = "0123456789abcdef"

// appendString emits a JSON string literal. Only the characters the JSON
// grammar requires are escaped; HTML-significant characters pass through
// untouched so output matches canonicalizers that do not HTML-escape.
func appendString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for _, r := range s {
		switch r {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		case '\b':
			buf = append(buf, '\\', 'b')
		case '\f':
			buf = append(buf, '\\', 'f')
		default:
			if r < 0x20 {
				buf = append(buf, '\\', 'u', '0', '0', hexDigits[r>>4], hexDigits[r&0xf])
			} else {
				buf = utf8.AppendRune(buf, r)
			}
		}
	}
	return append(buf, '"')
}
