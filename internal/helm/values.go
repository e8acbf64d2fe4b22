package helm

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Values represents helm chart values as a map.
type Values map[string]any

// Merge deep-merges override into base, returning a fresh map. Nested maps
// merge key by key; any other value in override replaces the base value.
func Merge(base, override Values) Values {
	result := make(Values, len(base))
	for key, value := range base {
		result[key] = value
	}
	for key, value := range override {
		if existing, ok := result[key]; ok {
			existingMap, existingOK := asValues(existing)
			overrideMap, overrideOK := asValues(value)
			if existingOK && overrideOK {
				result[key] = Merge(existingMap, overrideMap)
				continue
			}
		}
		result[key] = value
	}
	return result
}

func asValues(v any) (Values, bool) {
	switch m := v.(type) {
	case Values:
		return m, true
	case map[string]any:
		return Values(m), true
	}
	return nil, false
}

// ToMap converts values to plain nested map[string]any. The helm value
// coalescing code type-asserts on map[string]interface{}, so named map
// types must be unwrapped before rendering.
func (v Values) ToMap() map[string]any {
	result := make(map[string]any, len(v))
	for key, value := range v {
		result[key] = plainValue(value)
	}
	return result
}

func plainValue(v any) any {
	switch t := v.(type) {
	case Values:
		return t.ToMap()
	case map[string]any:
		return Values(t).ToMap()
	case []any:
		result := make([]any, len(t))
		for i, item := range t {
			result[i] = plainValue(item)
		}
		return result
	case []Values:
		result := make([]any, len(t))
		for i, item := range t {
			result[i] = plainValue(item)
		}
		return result
	}
	return v
}

// ToYAML converts values to YAML bytes.
func (v Values) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(v.ToMap()); err != nil {
		return nil, fmt.Errorf("failed to encode values to YAML: %w", err)
	}

	return buf.Bytes(), nil
}

// FromYAML parses YAML bytes into Values.
func FromYAML(data []byte) (Values, error) {
	var values Values
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML values: %w", err)
	}
	return values, nil
}
