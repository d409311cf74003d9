package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/velum-io/tabular/pkg/errors"
	"github.com/velum-io/tabular/pkg/logger"
	"github.com/velum-io/tabular/pkg/reader"
	"github.com/velum-io/tabular/pkg/table"
)

// pathKeys are the descriptor keys whose values may hold filesystem paths
// relative to the descriptor file.
var pathKeys = []string{"source", "path", "metadata_file"}

// FromYAML creates a DataSource from a YAML descriptor file.
func FromYAML(ctx context.Context, path string, opts ...Option) (*DataSource, error) {
	cfg, err := LoadDescriptor(path)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, opts...)
}

// LoadDescriptor parses a YAML descriptor into a Config. Relative paths
// under recognized keys are rewritten relative to the descriptor's own
// directory, and legacy key shapes are normalized.
func LoadDescriptor(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, errors.ErrorTypeFile, "failed to read descriptor "+path)
	}

	raw := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse descriptor "+path)
	}

	MakePathsRelative(filepath.Dir(path), raw, pathKeys)

	mapping, ok := popMap(raw, "mapping")
	if !ok {
		if mapping, ok = popMap(raw, "forward"); ok {
			logger.Get().Warn("the 'forward' key is deprecated, use 'mapping' instead",
				zap.String("descriptor", path))
		}
	}
	if mapping != nil {
		if mapping, err = normalizeLegacyMapping(mapping); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Source:  popStrings(raw, "source"),
		Format:  popString(raw, "format"),
		Mapping: toMapping(mapping),
	}
	if cfg.Source == nil {
		cfg.Source = popStrings(raw, "path")
	}
	if attrs, ok := popMap(raw, "attributes"); ok {
		cfg.Attributes = reader.Params(attrs)
	}

	// stray top-level keys are the old keyword-argument construction path
	if len(raw) > 0 {
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		logger.Get().Warn("loose descriptor keys are deprecated, use 'attributes' instead",
			zap.Strings("keys", keys), zap.String("descriptor", path))
		if cfg.Attributes == nil {
			cfg.Attributes = reader.Params{}
		}
		for k, v := range raw {
			if _, exists := cfg.Attributes[k]; !exists {
				cfg.Attributes[k] = v
			}
		}
	}

	return cfg, nil
}

// normalizeLegacyMapping rewrites pre-1.0 mapping shapes into the current
// one: "target" becomes "label", and an object-valued "label" is resolved
// to a single key.
func normalizeLegacyMapping(mapping map[string]interface{}) (map[string]interface{}, error) {
	if _, hasLabel := mapping["label"]; !hasLabel {
		if target, hasTarget := mapping["target"]; hasTarget {
			logger.Get().Warn("the 'target' key is deprecated, use 'label' instead")
			mapping["label"] = target
			delete(mapping, "target")
		}
	}

	labelDict, ok := mapping["label"].(map[string]interface{})
	if !ok {
		return mapping, nil
	}
	logger.Get().Warn("object-valued 'label' mappings are deprecated, use a column name instead")

	var labelKey interface{}
	for _, k := range []string{"name", "label", "gold_label", "field"} {
		if v, ok := labelDict[k]; ok && v != nil {
			labelKey = v
			break
		}
	}
	if labelKey == nil {
		return nil, errors.New(errors.ErrorTypeConfig,
			"cannot resolve the 'label' value from the legacy mapping shape")
	}
	if _, hasMeta := labelDict["metadata_file"]; hasMeta {
		return nil, errors.New(errors.ErrorTypeConfig,
			"the 'metadata_file' option was removed; modify your source file directly")
	}
	mapping["label"] = labelKey
	return mapping, nil
}

// toMapping converts descriptor mapping values (a column name or a list of
// names) into a table.Mapping.
func toMapping(raw map[string]interface{}) table.Mapping {
	if len(raw) == 0 {
		return nil
	}
	m := make(table.Mapping, len(raw))
	for field, v := range raw {
		switch cols := v.(type) {
		case []interface{}:
			for _, c := range cols {
				m[field] = append(m[field], fmt.Sprintf("%v", c))
			}
		default:
			m[field] = []string{fmt.Sprintf("%v", v)}
		}
	}
	return m
}

// MakePathsRelative rewrites relative filesystem paths found under the
// given keys, at any nesting depth, to be relative to dir instead of the
// working directory.
func MakePathsRelative(dir string, cfg map[string]interface{}, keys []string) {
	recognized := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		recognized[k] = struct{}{}
	}
	rewritePaths(dir, cfg, recognized)
}

func rewritePaths(dir string, cfg map[string]interface{}, keys map[string]struct{}) {
	for k, v := range cfg {
		if nested, ok := v.(map[string]interface{}); ok {
			rewritePaths(dir, nested, keys)
		}

		if len(keys) > 0 {
			if _, ok := keys[k]; !ok {
				continue
			}
		}

		switch value := v.(type) {
		case string:
			if IsRelativeFileSystemPath(value) {
				cfg[k] = filepath.Join(dir, value)
			}
		case []interface{}:
			out := make([]interface{}, len(value))
			for i, e := range value {
				if s, ok := e.(string); ok && IsRelativeFileSystemPath(s) {
					out[i] = filepath.Join(dir, s)
				} else {
					out[i] = e
				}
			}
			cfg[k] = out
		}
	}
}

// IsRelativeFileSystemPath reports whether a string looks like a relative
// filesystem path: it must carry a file extension, not be a recognized URI
// scheme, and not already be absolute.
func IsRelativeFileSystemPath(s string) bool {
	if reader.ExtensionOf(s) == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, scheme := range []string{"http", "ftp", "s3:", "gs:", "hdfs:"} {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	return !filepath.IsAbs(s)
}

// SaveDescriptor writes a descriptor dictionary to path as YAML, creating
// intermediate directories when createDirs is set.
func SaveDescriptor(cfg map[string]interface{}, path string, createDirs bool) (string, error) {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if !createDirs {
			return "", errors.Newf(errors.ErrorTypeFile, "path %q does not exist", dir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to create "+dir)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "failed to encode descriptor")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to write "+path)
	}
	return path, nil
}

// NestedValue looks up a dotted property key in nested descriptor data:
// NestedValue(data, "a.b") is data["a"]["b"]. It returns nil when any
// segment is missing.
func NestedValue(data map[string]interface{}, key string) interface{} {
	if data == nil {
		return nil
	}
	if v, ok := data[key]; ok {
		return v
	}
	head, rest, found := strings.Cut(key, ".")
	if !found {
		return nil
	}
	nested, ok := data[head].(map[string]interface{})
	if !ok {
		return nil
	}
	return NestedValue(nested, rest)
}

// popMap removes and returns a map-valued key.
func popMap(raw map[string]interface{}, key string) (map[string]interface{}, bool) {
	v, ok := raw[key]
	if !ok {
		return nil, false
	}
	delete(raw, key)
	m, ok := v.(map[string]interface{})
	return m, ok
}

func popString(raw map[string]interface{}, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	delete(raw, key)
	s, _ := v.(string)
	return s
}

func popStrings(raw map[string]interface{}, key string) []string {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	delete(raw, key)
	switch value := v.(type) {
	case string:
		return []string{value}
	case []interface{}:
		out := make([]string, 0, len(value))
		for _, e := range value {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
