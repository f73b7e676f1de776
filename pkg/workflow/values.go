package workflow

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Str returns v as a string. Only actual JSON strings qualify; numbers and
// booleans are not stringified here (see [Display] for that).
func Str(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Float returns v as a float64. JSON numbers decode as [json.Number] when
// the graph came through [Decode], but plain float64 and int values are
// accepted too so tests can build graphs by hand.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Int returns v as an int, accepting integral floats. Fractional values are
// rejected rather than truncated.
func Int(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
			return int(f), true
		}
		return 0, false
	case float64:
		if n == float64(int64(n)) {
			return int(n), true
		}
		return 0, false
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

// Bool returns v as a bool.
func Bool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// Display renders a literal value in its canonical text form for parameter
// output: strings pass through unchanged, booleans become "true"/"false",
// and numbers drop insignificant trailing zeros ("7.0" becomes "7",
// "7.50" becomes "7.5"). Large integers such as 64-bit seeds keep their
// exact digits because [Decode] preserves numbers as [json.Number].
func Display(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	case json.Number:
		return trimNumber(n.String())
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// trimNumber strips a trailing fractional zero run from a decimal literal
// so "7.0" and "7.50" display as "7" and "7.5". Exponent forms and plain
// integers pass through unchanged.
func trimNumber(s string) string {
	if !strings.Contains(s, ".") || strings.ContainsAny(s, "eE") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
