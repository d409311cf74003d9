package table

import (
	"context"
	"sort"
	"strings"

	"github.com/velum-io/tabular/pkg/errors"
)

// Mapping projects source columns into named logical fields. A field backed
// by a single source column takes that column's value; a field backed by
// several becomes a record keyed by the source column names.
type Mapping map[string][]string

// Fields returns the logical field names in a stable order.
func (m Mapping) Fields() []string {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// sources returns every referenced source column, de-duplicated.
func (m Mapping) sources() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, cols := range m {
		for _, c := range cols {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	return out
}

// validate checks every referenced source column against the given layout.
func (m Mapping) validate(columns []string) error {
	if len(m) == 0 {
		return errors.New(errors.ErrorTypeMapping,
			"no mapping configured; supply a mapping of logical fields to source columns")
	}
	have := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		have[c] = struct{}{}
	}
	var missing []string
	for _, c := range m.sources() {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Newf(errors.ErrorTypeMapping,
			"mapped columns not found in the data source: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ProjectFrame applies the mapping to one frame, producing exactly the
// logical columns.
func ProjectFrame(f *Frame, m Mapping) (*Frame, error) {
	if err := m.validate(f.Columns()); err != nil {
		return nil, err
	}
	out := NewFrame(nil)
	out.index = f.index
	for _, field := range m.Fields() {
		sources := m[field]
		values := make([]interface{}, f.Len())
		if len(sources) == 1 {
			col, _ := f.Column(sources[0])
			for i, v := range col {
				values[i] = stripString(v)
			}
		} else {
			for i := 0; i < f.Len(); i++ {
				rec := make(map[string]interface{}, len(sources))
				for _, s := range sources {
					rec[s] = f.Value(i, s)
				}
				values[i] = rec
			}
		}
		if err := out.SetColumn(field, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Project returns a lazy view containing exactly the mapped logical
// columns. The mapping is validated eagerly against the table layout so a
// bad mapping fails before any partition runs.
func Project(t *Table, m Mapping) (*Table, error) {
	if len(m) == 0 {
		return nil, errors.New(errors.ErrorTypeMapping,
			"no mapping configured; supply a mapping of logical fields to source columns")
	}
	// a table with an unknown layout is validated partition by partition
	if cols := t.Columns(); len(cols) > 0 {
		if err := m.validate(cols); err != nil {
			return nil, err
		}
	}
	return t.MapPartitions(m.Fields(), func(ctx context.Context, f *Frame) (*Frame, error) {
		return ProjectFrame(f, m)
	}), nil
}

func stripString(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}
