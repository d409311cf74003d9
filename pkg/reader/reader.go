// Package reader implements the format readers that load CSV, JSON/JSONL,
// Excel, Parquet and Elasticsearch data into lazy partitioned tables.
//
// Every reader is a pure function from (paths, parameters) to a
// *table.Table whose rows carry a "resource" column recording the
// originating file or index. Readers build partitions; no I/O happens
// until the table is computed.
package reader

import (
	"context"

	"github.com/velum-io/tabular/pkg/table"
)

// ResourceColumn is the per-row provenance column every reader attaches.
const ResourceColumn = "resource"

// Func is the reader contract: paths may be empty for non-file backends.
type Func func(ctx context.Context, paths []string, params Params) (*table.Table, error)

// Params carries reader-specific parameters with typed accessors.
type Params map[string]interface{}

// Merge overlays params on top of defaults without mutating either.
func Merge(defaults, overrides Params) Params {
	out := make(Params, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// String returns the string parameter under key, or def when absent.
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Int returns the integer parameter under key, or def when absent. YAML
// and JSON decoders deliver numbers in several widths.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the boolean parameter under key, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Map returns the map parameter under key, or nil.
func (p Params) Map(key string) map[string]interface{} {
	if v, ok := p[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// Strings returns the string-list parameter under key. A single string
// becomes a one-element list.
func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case string:
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
