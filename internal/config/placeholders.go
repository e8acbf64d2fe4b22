package config

import (
	"os"
	"regexp"
	"sort"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// EnvTable returns the process environment as a lookup table for
// placeholder resolution.
func EnvTable() map[string]string {
	table := make(map[string]string)
	for _, entry := range os.Environ() {
		if key, value, ok := strings.Cut(entry, "="); ok {
			table[key] = value
		}
	}
	return table
}

// ResolvePlaceholders substitutes every ${VAR} placeholder in the snapshot
// from the given environment table and returns a new snapshot. If any
// placeholder has no entry in the table, resolution fails with an
// *UnresolvedPlaceholderError naming all of them. A snapshot containing no
// placeholders is returned unchanged.
func ResolvePlaceholders(s *Snapshot, env map[string]string) (*Snapshot, error) {
	if !containsPlaceholder(s.tree) {
		return s, nil
	}

	missing := make(map[string]bool)
	resolved := resolveValue(s.tree, env, missing).(map[string]any)

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, &UnresolvedPlaceholderError{Variables: names}
	}

	cfg, err := decodeConfig(resolved)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	cfg.Environment = s.cfg.Environment

	if findings := cfg.validate(); len(findings) > 0 {
		return nil, &ValidationError{Findings: findings}
	}

	return &Snapshot{tree: resolved, cfg: cfg, layers: s.layers}, nil
}

// containsPlaceholder reports whether any string in the tree references an
// environment variable.
func containsPlaceholder(v any) bool {
	switch val := v.(type) {
	case map[string]any:
		for _, item := range val {
			if containsPlaceholder(item) {
				return true
			}
		}
	case []any:
		for _, item := range val {
			if containsPlaceholder(item) {
				return true
			}
		}
	case string:
		return placeholderPattern.MatchString(val)
	}
	return false
}

// resolveValue substitutes placeholders in v, recording unresolved variable
// names in missing. It always returns a fresh value, leaving the input
// untouched.
func resolveValue(v any, env map[string]string, missing map[string]bool) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = resolveValue(item, env, missing)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, env, missing)
		}
		return out
	case string:
		return placeholderPattern.ReplaceAllStringFunc(val, func(match string) string {
			name := match[2 : len(match)-1]
			if value, ok := env[name]; ok {
				return value
			}
			missing[name] = true
			return match
		})
	default:
		return v
	}
}

// isPlaceholder reports whether a value still carries placeholder syntax.
// Validation tolerates such values until resolution has run.
func isPlaceholder(s string) bool {
	return placeholderPattern.MatchString(s)
}
