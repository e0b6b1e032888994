package modifier

import (
	"math"
)

// Well-known config keys.
const (
	KeyEnabled = "enabled"
	KeyOrder   = "order"
)

// Config is a set's view of its node's config document for the set's
// kind. It is re-derived on every Refresh.
type Config map[string]any

// Enabled reports the enabled key, false when absent.
func (c Config) Enabled() bool {
	return c.Bool(KeyEnabled, false)
}

// Bool returns key as a bool, or def if absent or not a bool.
func (c Config) Bool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// Int returns key as an int, or def if absent or not a whole number.
// Decoders disagree on numeric types, so every integer width and whole
// floats are accepted.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case uint64:
		if v <= math.MaxInt {
			return int(v)
		}
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int(v)
		}
	}
	return def
}

// Strings returns key as a string list. Non-string entries are skipped.
func (c Config) Strings(key string) []string {
	switch v := c[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
