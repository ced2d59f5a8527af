package yampi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Canonicalize re-serializes a JSON document the way the webhook sender does
// before signing. Array-index keys ("0", "7", "10") come first in ascending
// numeric order, the remaining members keep the order they arrived in, and a
// repeated key keeps its first position and its last value. Whitespace is
// dropped. Strings only escape quotes, backslashes, control characters and
// unpaired surrogates. Numbers use the shortest round-trip form with exponents
// outside [1e-6, 1e21).
func Canonicalize(body []byte) ([]byte, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	value, err := readValue(&tokenReader{decoder: decoder, body: body})
	if err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}

	var out bytes.Buffer
	out.Grow(len(body))
	if err := writeValue(&out, value); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type member struct {
	key   string
	value any
}

type object struct {
	members []member
	index   map[string]int
}

// tokenReader pairs decoder tokens with their raw bytes. The decoder
// replaces unpaired surrogate escapes with U+FFFD, so string tokens are
// re-read from the source.
type tokenReader struct {
	decoder *json.Decoder
	body    []byte
}

func (r *tokenReader) Token() (json.Token, error) {
	start := r.decoder.InputOffset()
	token, err := r.decoder.Token()
	if err != nil {
		return nil, err
	}
	if _, ok := token.(string); !ok {
		return token, nil
	}
	raw := r.body[start:r.decoder.InputOffset()]
	quote := bytes.IndexByte(raw, '"')
	if quote < 0 {
		return nil, fmt.Errorf("string token without quotes")
	}
	return unquote(raw[quote:])
}

func (r *tokenReader) More() bool {
	return r.decoder.More()
}

func readValue(decoder *tokenReader) (any, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	switch typed := token.(type) {
	case json.Delim:
		switch typed {
		case '{':
			return readObject(decoder)
		case '[':
			return readArray(decoder)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", typed)
		}
	default:
		return typed, nil
	}
}

func readObject(decoder *tokenReader) (*object, error) {
	obj := &object{index: map[string]int{}}
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyToken.(string)
		if !ok {
			return nil, fmt.Errorf("object key is not a string")
		}
		value, err := readValue(decoder)
		if err != nil {
			return nil, err
		}
		if pos, seen := obj.index[key]; seen {
			obj.members[pos].value = value
			continue
		}
		obj.index[key] = len(obj.members)
		obj.members = append(obj.members, member{key: key, value: value})
	}
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func readArray(decoder *tokenReader) ([]any, error) {
	items := make([]any, 0)
	for decoder.More() {
		value, err := readValue(decoder)
		if err != nil {
			return nil, err
		}
		items = append(items, value)
	}
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	return items, nil
}

func writeValue(out *bytes.Buffer, value any) error {
	switch typed := value.(type) {
	case nil:
		out.WriteString("null")
	case bool:
		out.WriteString(strconv.FormatBool(typed))
	case string:
		writeString(out, typed)
	case json.Number:
		formatted, err := formatNumber(typed)
		if err != nil {
			return err
		}
		out.WriteString(formatted)
	case []any:
		out.WriteByte('[')
		for i, item := range typed {
			if i > 0 {
				out.WriteByte(',')
			}
			if err := writeValue(out, item); err != nil {
				return err
			}
		}
		out.WriteByte(']')
	case *object:
		out.WriteByte('{')
		for i, m := range typed.ordered() {
			if i > 0 {
				out.WriteByte(',')
			}
			writeString(out, m.key)
			out.WriteByte(':')
			if err := writeValue(out, m.value); err != nil {
				return err
			}
		}
		out.WriteByte('}')
	default:
		return fmt.Errorf("unsupported json token %T", value)
	}
	return nil
}

// ordered returns the members in property enumeration order: array-index
// keys ascending, then the rest in insertion order.
func (o *object) ordered() []member {
	var indexed, named []member
	for _, m := range o.members {
		if _, ok := arrayIndex(m.key); ok {
			indexed = append(indexed, m)
		} else {
			named = append(named, m)
		}
	}
	if len(indexed) == 0 {
		return o.members
	}
	sort.SliceStable(indexed, func(i, j int) bool {
		a, _ := arrayIndex(indexed[i].key)
		b, _ := arrayIndex(indexed[j].key)
		return a < b
	})
	return append(indexed, named...)
}

const maxArrayIndex = 1<<32 - 2

// arrayIndex reports whether key is a canonical array index: decimal digits
// without leading zeros, at most 2^32-2.
func arrayIndex(key string) (uint64, bool) {
	if key == "" || len(key) > 10 || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(key, 10, 64)
	if err != nil || n > maxArrayIndex {
		return 0, false
	}
	return n, true
}

// unquote decodes a JSON string literal. Unpaired surrogate escapes are kept
// as their 3-byte generalized UTF-8 form so writeString can re-escape them.
// Invalid UTF-8 decodes as U+FFFD.
func unquote(literal []byte) (string, error) {
	if len(literal) < 2 || literal[0] != '"' || literal[len(literal)-1] != '"' {
		return "", fmt.Errorf("invalid string literal")
	}
	s := literal[1 : len(literal)-1]
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' {
			r, size := utf8.DecodeRune(s[i:])
			out = utf8.AppendRune(out, r)
			i += size
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("truncated escape")
		}
		switch s[i+1] {
		case '"', '\\', '/':
			out = append(out, s[i+1])
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'u':
			unit, ok := hexUnit(s[i+2:])
			if !ok {
				return "", fmt.Errorf("invalid unicode escape")
			}
			i += 6
			if utf16.IsSurrogate(rune(unit)) {
				if unit < 0xDC00 && i+1 < len(s) && s[i] == '\\' && s[i+1] == 'u' {
					if low, ok := hexUnit(s[i+2:]); ok && low >= 0xDC00 && low <= 0xDFFF {
						out = utf8.AppendRune(out, utf16.DecodeRune(rune(unit), rune(low)))
						i += 6
						continue
					}
				}
				out = append(out, 0xED, 0x80|byte(unit>>6)&0x3F, 0x80|byte(unit)&0x3F)
				continue
			}
			out = utf8.AppendRune(out, rune(unit))
			continue
		default:
			return "", fmt.Errorf("invalid escape %q", s[i+1])
		}
		i += 2
	}
	return string(out), nil
}

func hexUnit(s []byte) (uint16, bool) {
	if len(s) < 4 {
		return 0, false
	}
	n, err := strconv.ParseUint(string(s[:4]), 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

const hexDigits = "0123456789abcdef"

func writeString(out *bytes.Buffer, value string) {
	out.WriteByte('"')
	for i := 0; i < len(value); i++ {
		c := value[i]
		// 0xED 0xA0-0xBF starts an unpaired surrogate; valid UTF-8 never does.
		if c == 0xED && i+2 < len(value) && value[i+1] >= 0xA0 && value[i+1] <= 0xBF {
			unit := 0xD000 | uint16(value[i+1]&0x3F)<<6 | uint16(value[i+2]&0x3F)
			out.WriteString(`\u`)
			out.WriteByte(hexDigits[unit>>12])
			out.WriteByte(hexDigits[unit>>8&0xf])
			out.WriteByte(hexDigits[unit>>4&0xf])
			out.WriteByte(hexDigits[unit&0xf])
			i += 2
			continue
		}
		switch c {
		case '"':
			out.WriteString(`\"`)
		case '\\':
			out.WriteString(`\\`)
		case '\b':
			out.WriteString(`\b`)
		case '\f':
			out.WriteString(`\f`)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\t':
			out.WriteString(`\t`)
		default:
			if c < 0x20 {
				out.WriteString(`\u00`)
				out.WriteByte(hexDigits[c>>4])
				out.WriteByte(hexDigits[c&0xf])
				continue
			}
			out.WriteByte(c)
		}
	}
	out.WriteByte('"')
}

func formatNumber(number json.Number) (string, error) {
	f, err := strconv.ParseFloat(number.String(), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return "", fmt.Errorf("invalid number %q: %w", number.String(), err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "null", nil
	}
	if f == 0 {
		return "0", nil
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	formatted := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exponent, _ := strings.Cut(formatted, "e")
	sign := exponent[:1]
	digits := strings.TrimLeft(exponent[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits, nil
}
