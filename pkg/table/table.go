package table

import (
	"context"

	"github.com/velum-io/tabular/pkg/metrics"
)

// Partition produces one chunk of rows when the table is computed.
type Partition func(ctx context.Context) (*Frame, error)

// Table is a lazily evaluated, partitioned table. Constructing or
// transforming a Table performs no I/O; partitions run when the caller
// computes. Tables are immutable: every transform returns a new Table over
// a copy of the partition list.
type Table struct {
	parts   []Partition
	columns []string
}

// New creates a table over the given partitions with a known column layout.
func New(columns []string, parts ...Partition) *Table {
	return &Table{
		parts:   append([]Partition(nil), parts...),
		columns: append([]string(nil), columns...),
	}
}

// FromFrame wraps an already materialized frame as a single-partition table.
func FromFrame(f *Frame) *Table {
	return New(f.Columns(), func(context.Context) (*Frame, error) { return f, nil })
}

// Columns returns the declared column layout.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// NumPartitions returns the partition count.
func (t *Table) NumPartitions() int {
	return len(t.parts)
}

// Partition returns the i-th partition function.
func (t *Table) Partition(i int) Partition {
	return t.parts[i]
}

// Append concatenates another table's partitions after this table's,
// leaving both inputs untouched. The layout becomes the union of both.
func (t *Table) Append(other *Table) *Table {
	seen := make(map[string]struct{}, len(t.columns))
	columns := append([]string(nil), t.columns...)
	for _, c := range t.columns {
		seen[c] = struct{}{}
	}
	for _, c := range other.columns {
		if _, ok := seen[c]; !ok {
			columns = append(columns, c)
		}
	}
	parts := make([]Partition, 0, len(t.parts)+len(other.parts))
	parts = append(parts, t.parts...)
	parts = append(parts, other.parts...)
	return &Table{parts: parts, columns: columns}
}

// MapPartitions returns a new table applying fn to every partition when
// computed. The receiver is never mutated. columns declares the
// post-transform layout.
func (t *Table) MapPartitions(columns []string, fn func(context.Context, *Frame) (*Frame, error)) *Table {
	parts := make([]Partition, len(t.parts))
	for i, part := range t.parts {
		part := part
		parts[i] = func(ctx context.Context) (*Frame, error) {
			f, err := part(ctx)
			if err != nil {
				return nil, err
			}
			return fn(ctx, f)
		}
	}
	return &Table{parts: parts, columns: append([]string(nil), columns...)}
}

// Sample materializes at most n rows from the first partition yielding any,
// for schema inference ahead of a full compute.
func (t *Table) Sample(ctx context.Context, n int) (*Frame, error) {
	for _, part := range t.parts {
		f, err := part(ctx)
		if err != nil {
			return nil, err
		}
		if f.Len() > 0 {
			return f.Head(n), nil
		}
	}
	return NewFrame(t.columns), nil
}

// Compute materializes every partition sequentially and concatenates the
// results. Concurrent execution lives in the session package.
func (t *Table) Compute(ctx context.Context) (*Frame, error) {
	frames := make([]*Frame, 0, len(t.parts))
	for _, part := range t.parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := part(ctx)
		if err != nil {
			metrics.PartitionsComputed.WithLabelValues("failure").Inc()
			return nil, err
		}
		metrics.PartitionsComputed.WithLabelValues("success").Inc()
		frames = append(frames, f)
	}
	return ConcatRows(frames...), nil
}
