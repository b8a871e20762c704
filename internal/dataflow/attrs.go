package dataflow

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Attrs holds instruction attributes. Values are string, int64, float64,
// bool or []any of those.
type Attrs map[string]any

func (a Attrs) Str(key string) (string, bool) {
	s, ok := a[key].(string)
	return s, ok
}

func (a Attrs) Int(key string) (int64, bool) {
	n, ok := a[key].(int64)
	return n, ok
}

func (a Attrs) Float(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (a Attrs) Bool(key string) (bool, bool) {
	b, ok := a[key].(bool)
	return b, ok
}

// Strings returns a list attribute whose elements are all strings
func (a Attrs) Strings(key string) ([]string, bool) {
	list, ok := a[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// Keys returns the attribute names in sorted order
func (a Attrs) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

// Without returns a copy of the attributes minus the given keys
func (a Attrs) Without(keys ...string) Attrs {
	out := make(Attrs, len(a))
	for k, v := range a {
		if !slices.Contains(keys, k) {
			out[k] = v
		}
	}
	return out
}

func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		if list, ok := v.([]any); ok {
			v = slices.Clone(list)
		}
		out[k] = v
	}
	return out
}

// Canonical renders the attributes deterministically, used as a hashing key
func (a Attrs) Canonical() string {
	var b strings.Builder
	for i, k := range a.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(" = ")
		b.WriteString(FormatValue(a[k]))
	}
	return b.String()
}

// FormatValue prints an attribute value in source syntax
func FormatValue(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = FormatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
