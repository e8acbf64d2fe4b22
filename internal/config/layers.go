package config

import (
	"gopkg.in/yaml.v3"
)

// Layer is one configuration source in the merge order.
type Layer struct {
	Name string // base, env:<name>, private
	Path string // file it came from, empty for in-memory layers
	Data []byte
}

// LoadLayers parses and merges configuration layers in increasing priority
// order (base first) and returns the resulting snapshot. A malformed layer
// fails with *LoadError; a merged result that does not satisfy the schema
// fails with *ValidationError.
func LoadLayers(layers []Layer) (*Snapshot, error) {
	merged := make(map[string]any)
	names := make([]string, 0, len(layers))

	for _, layer := range layers {
		tree, err := parseLayer(layer)
		if err != nil {
			return nil, err
		}
		deepMerge(merged, tree)
		names = append(names, layer.Name)
	}

	cfg, err := decodeConfig(merged)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if findings := cfg.validate(); len(findings) > 0 {
		return nil, &ValidationError{Findings: findings}
	}

	return &Snapshot{tree: merged, cfg: cfg, layers: names}, nil
}

// parseLayer parses one YAML layer into a tree.
func parseLayer(layer Layer) (map[string]any, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(layer.Data, &tree); err != nil {
		return nil, &LoadError{Layer: layer.Name, Path: layer.Path, Err: err}
	}
	if tree == nil {
		tree = make(map[string]any)
	}
	return tree, nil
}

// decodeConfig decodes a merged tree into the typed Config. Type mismatches
// are schema violations, reported together as a *ValidationError.
func decodeConfig(tree map[string]any) (*Config, error) {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, &ValidationError{Findings: []string{err.Error()}}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		if typeErr, ok := err.(*yaml.TypeError); ok {
			return nil, &ValidationError{Findings: typeErr.Errors}
		}
		return nil, &ValidationError{Findings: []string{err.Error()}}
	}
	return &cfg, nil
}

// deepMerge merges src into dst. Mappings merge key by key recursively;
// scalars and lists from src replace dst values wholesale, which keeps
// override semantics predictable across layers.
func deepMerge(dst, src map[string]any) {
	for key, srcVal := range src {
		if dstVal, exists := dst[key]; exists {
			srcMap, srcIsMap := srcVal.(map[string]any)
			dstMap, dstIsMap := dstVal.(map[string]any)
			if srcIsMap && dstIsMap {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = srcVal
	}
}

// cloneTree returns a deep copy of a configuration tree.
func cloneTree(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneTree(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
