package table

import (
	"context"
	"sort"

	"github.com/velum-io/tabular/pkg/metrics"
)

// FlattenFrame expands nested cell values into new flat columns until no
// column holds a record or a list of records, and drops the expanded
// originals. Record columns produce "<name>.<key>" columns; record-list
// columns are pivoted into record-of-lists form and produce
// "<name>.*.<key>" columns. Rows whose contents cannot be pivoted yield no
// contribution. The transform never fails on malformed nested content.
func FlattenFrame(f *Frame) *Frame {
	out, depth := flattenFrame(f, 0)
	if depth > 0 {
		metrics.FlattenDepth.Observe(float64(depth))
	}
	return out
}

func flattenFrame(f *Frame, depth int) (*Frame, int) {
	records, recordLists, scalars := classifyColumns(f)
	if len(records) == 0 && len(recordLists) == 0 {
		return f, depth
	}

	produced := NewFrame(nil)
	produced.index = f.index

	for _, c := range recordLists {
		col, _ := f.Column(c)
		pivoted := make([]map[string]interface{}, len(col))
		keys := newKeySet()
		for i, v := range col {
			list, ok := v.([]interface{})
			if !ok {
				continue
			}
			p := pivotRecords(list)
			if p == nil {
				continue
			}
			pivoted[i] = p
			for k := range p {
				keys.add(k)
			}
		}
		for _, k := range keys.ordered() {
			values := make([]interface{}, len(col))
			for i, p := range pivoted {
				if p != nil {
					values[i] = p[k]
				}
			}
			_ = produced.SetColumn(c+".*."+k, values)
		}
	}

	for _, c := range records {
		col, _ := f.Column(c)
		keys := newKeySet()
		for _, v := range col {
			if rec, ok := v.(map[string]interface{}); ok {
				for k := range rec {
					keys.add(k)
				}
			}
		}
		for _, k := range keys.ordered() {
			values := make([]interface{}, len(col))
			for i, v := range col {
				if rec, ok := v.(map[string]interface{}); ok {
					values[i] = rec[k]
				}
			}
			_ = produced.SetColumn(c+"."+k, values)
		}
	}

	// produced columns may themselves hold nested values
	flat, depth := flattenFrame(produced, depth+1)

	kept, _ := f.Select(scalars)
	return kept.ConcatColumns(flat), depth
}

// pivotRecords converts a list of records into one record of ordered value
// lists, descending into a nested list if the elements carry one. It
// returns nil when the contents are not uniform records.
func pivotRecords(list []interface{}) map[string]interface{} {
	for _, e := range list {
		if inner, ok := e.([]interface{}); ok {
			list = inner
		}
	}
	keys := newKeySet()
	for _, e := range list {
		rec, ok := e.(map[string]interface{})
		if !ok {
			return nil
		}
		for k := range rec {
			keys.add(k)
		}
	}
	if keys.len() == 0 {
		return nil
	}
	out := make(map[string]interface{}, keys.len())
	for _, k := range keys.ordered() {
		values := make([]interface{}, 0, len(list))
		for _, e := range list {
			rec := e.(map[string]interface{})
			values = append(values, rec[k])
		}
		out[k] = values
	}
	return out
}

// Flatten returns a lazy table whose partitions are structurally flattened.
//
// Partitioned engines need the post-transform column layout before any
// partition runs, so the layout is computed from a one-row sample first.
// Each partition is then flattened, augmented with the newly produced
// columns and cut down to exactly the sampled layout; partitions missing a
// sampled column hold nil there.
func Flatten(ctx context.Context, t *Table) (*Table, error) {
	sample, err := t.Sample(ctx, 1)
	if err != nil {
		return nil, err
	}
	meta := FlattenFrame(sample)
	layout := meta.Columns()

	return t.MapPartitions(layout, func(ctx context.Context, f *Frame) (*Frame, error) {
		flat := FlattenFrame(f)
		augmented := f.ConcatColumns(flat)
		return augmented.Reindex(layout), nil
	}), nil
}

// Reindex returns a frame with exactly the given column layout; columns the
// frame lacks are filled with nil.
func (f *Frame) Reindex(columns []string) *Frame {
	out := NewFrame(columns)
	out.index = f.index
	for _, c := range columns {
		if col, ok := f.data[c]; ok {
			out.data[c] = col
		} else {
			out.data[c] = make([]interface{}, f.Len())
		}
	}
	return out
}

// keySet collects keys in insertion order with sorted output for
// deterministic column layouts.
type keySet struct {
	seen map[string]struct{}
	keys []string
}

func newKeySet() *keySet {
	return &keySet{seen: make(map[string]struct{})}
}

func (s *keySet) add(k string) {
	if _, ok := s.seen[k]; !ok {
		s.seen[k] = struct{}{}
		s.keys = append(s.keys, k)
	}
}

func (s *keySet) len() int { return len(s.keys) }

func (s *keySet) ordered() []string {
	out := append([]string(nil), s.keys...)
	sort.Strings(out)
	return out
}
