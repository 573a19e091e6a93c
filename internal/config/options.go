package config

// Options holds the type-specific panel keys (fill_opacity, calcs,
// legend_mode, ...). Accessors return the default when a key is absent or
// holds a value of the wrong shape.
type Options map[string]any

// String returns the string at key, or def.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Int returns the integer at key, or def. Floats are truncated.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// Float returns the number at key, or def.
func (o Options) Float(key string, def float64) float64 {
	switch n := o[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// Bool returns the boolean at key, or def.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Strings returns the string list at key, or def. Non-string items are skipped.
func (o Options) Strings(key string, def []string) []string {
	raw, ok := o[key].([]any)
	if !ok {
		if def == nil {
			return []string{}
		}
		return def
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// List returns the raw list at key unchanged, or an empty list.
func (o Options) List(key string) []any {
	if l, ok := o[key].([]any); ok {
		return l
	}
	return []any{}
}
