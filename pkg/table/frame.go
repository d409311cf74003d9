// Package table implements the lazy partitioned tabular representation
// shared by all format readers.
//
// A Frame is one materialized chunk of rows: ordered named columns stored
// column-major plus a string row index. A Table is an ordered list of lazy
// partitions, each producing a Frame when computed. Transforms on a Table
// (flattening, projection) build new Tables without mutating the original
// and without executing any I/O until the caller computes.
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/velum-io/tabular/pkg/errors"
)

// Frame holds one in-memory chunk of rows.
type Frame struct {
	columns []string
	data    map[string][]interface{}
	index   []string
}

// NewFrame creates an empty frame with the given column layout and no rows.
func NewFrame(columns []string) *Frame {
	f := &Frame{
		columns: append([]string(nil), columns...),
		data:    make(map[string][]interface{}, len(columns)),
	}
	for _, c := range f.columns {
		f.data[c] = nil
	}
	return f
}

// FromRows builds a frame from row maps. The column layout is the sorted
// union of keys (Go maps carry no order); rows missing a column hold nil.
// The index is positional.
func FromRows(rows []map[string]interface{}) *Frame {
	f := &Frame{data: make(map[string][]interface{})}
	for _, row := range rows {
		for k := range row {
			if _, ok := f.data[k]; !ok {
				f.columns = append(f.columns, k)
				f.data[k] = nil
			}
		}
	}
	// second pass keeps all columns row-aligned
	for i, row := range rows {
		for _, c := range f.columns {
			f.data[c] = append(f.data[c], row[c])
		}
		f.index = append(f.index, strconv.Itoa(i))
	}
	// deterministic column order for map-sourced rows
	sortColumnsStable(f)
	return f
}

func sortColumnsStable(f *Frame) {
	// FromRows over Go maps would otherwise give a random layout
	for i := 1; i < len(f.columns); i++ {
		for j := i; j > 0 && f.columns[j] < f.columns[j-1]; j-- {
			f.columns[j], f.columns[j-1] = f.columns[j-1], f.columns[j]
		}
	}
}

// Columns returns the ordered column names.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// HasColumn reports whether the frame holds the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.index)
}

// Index returns the row keys.
func (f *Frame) Index() []string {
	return append([]string(nil), f.index...)
}

// Column returns the values of the named column.
func (f *Frame) Column(name string) ([]interface{}, bool) {
	v, ok := f.data[name]
	return v, ok
}

// Value returns the cell at (row, column), nil if the column is absent.
func (f *Frame) Value(row int, column string) interface{} {
	col, ok := f.data[column]
	if !ok || row >= len(col) {
		return nil
	}
	return col[row]
}

// SetColumn sets or appends a column. The value count must match the row
// count unless the frame is empty.
func (f *Frame) SetColumn(name string, values []interface{}) error {
	if f.Len() > 0 && len(values) != f.Len() {
		return errors.Newf(errors.ErrorTypeData,
			"column %q has %d values for %d rows", name, len(values), f.Len())
	}
	if _, ok := f.data[name]; !ok {
		f.columns = append(f.columns, name)
	}
	if f.Len() == 0 && f.index == nil {
		for i := range values {
			f.index = append(f.index, strconv.Itoa(i))
		}
	}
	f.data[name] = values
	return nil
}

// SetConst sets or appends a column holding the same value in every row.
func (f *Frame) SetConst(name string, value interface{}) {
	values := make([]interface{}, f.Len())
	for i := range values {
		values[i] = value
	}
	_ = f.SetColumn(name, values)
}

// SetIndex replaces the row keys. The count must match the row count.
func (f *Frame) SetIndex(index []string) error {
	if len(index) != f.Len() {
		return errors.Newf(errors.ErrorTypeData,
			"index has %d keys for %d rows", len(index), f.Len())
	}
	f.index = append([]string(nil), index...)
	return nil
}

// Row returns one row as a map keyed by column name.
func (f *Frame) Row(i int) map[string]interface{} {
	row := make(map[string]interface{}, len(f.columns))
	for _, c := range f.columns {
		row[c] = f.data[c][i]
	}
	return row
}

// Rows returns all rows as maps, in index order.
func (f *Frame) Rows() []map[string]interface{} {
	rows := make([]map[string]interface{}, f.Len())
	for i := range rows {
		rows[i] = f.Row(i)
	}
	return rows
}

// Head returns a frame holding at most n leading rows.
func (f *Frame) Head(n int) *Frame {
	if n > f.Len() {
		n = f.Len()
	}
	out := NewFrame(f.columns)
	for _, c := range f.columns {
		out.data[c] = append([]interface{}(nil), f.data[c][:n]...)
	}
	out.index = append([]string(nil), f.index[:n]...)
	return out
}

// Select returns a frame holding exactly the named columns, in the given
// order. Unknown names are reported together in the error.
func (f *Frame) Select(columns []string) (*Frame, error) {
	var missing []string
	for _, c := range columns {
		if _, ok := f.data[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Newf(errors.ErrorTypeData,
			"columns not found: %s", strings.Join(missing, ", "))
	}
	out := NewFrame(columns)
	for _, c := range columns {
		out.data[c] = f.data[c]
	}
	out.index = f.index
	return out, nil
}

// Copy returns a frame sharing column data but with independent layout and
// index slices, so transforms never mutate their input.
func (f *Frame) Copy() *Frame {
	out := &Frame{
		columns: append([]string(nil), f.columns...),
		data:    make(map[string][]interface{}, len(f.columns)),
		index:   append([]string(nil), f.index...),
	}
	for _, c := range f.columns {
		out.data[c] = f.data[c]
	}
	return out
}

// TrimColumnNames strips surrounding whitespace from every column name.
// Names colliding after the trim get a positional suffix; the separator is
// an underscore rather than a dot so generated names stay out of the
// flattened-column namespace.
func (f *Frame) TrimColumnNames() *Frame {
	out := &Frame{data: make(map[string][]interface{}, len(f.columns)), index: f.index}
	seen := make(map[string]int, len(f.columns))
	for _, c := range f.columns {
		name := strings.TrimSpace(c)
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n)
		}
		if _, dup := seen[name]; !dup {
			seen[name] = 1
		}
		out.columns = append(out.columns, name)
		out.data[name] = f.data[c]
	}
	return out
}

// DropEmptyRows removes rows whose every cell is nil or an empty string.
func (f *Frame) DropEmptyRows() *Frame {
	keep := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		empty := true
		for _, c := range f.columns {
			switch v := f.data[c][i].(type) {
			case nil:
			case string:
				if v != "" {
					empty = false
				}
			default:
				empty = false
			}
			if !empty {
				break
			}
		}
		if !empty {
			keep = append(keep, i)
		}
	}
	if len(keep) == f.Len() {
		return f
	}
	out := NewFrame(f.columns)
	for _, c := range f.columns {
		col := make([]interface{}, 0, len(keep))
		for _, i := range keep {
			col = append(col, f.data[c][i])
		}
		out.data[c] = col
	}
	for _, i := range keep {
		out.index = append(out.index, f.index[i])
	}
	return out
}

// PromoteIndex replaces the row keys with the stringified values of the
// named column and drops that column. A missing column is a no-op.
func (f *Frame) PromoteIndex(column string) *Frame {
	col, ok := f.data[column]
	if !ok {
		return f
	}
	out := &Frame{data: make(map[string][]interface{}, len(f.columns))}
	for _, c := range f.columns {
		if c == column {
			continue
		}
		out.columns = append(out.columns, c)
		out.data[c] = f.data[c]
	}
	out.index = make([]string, len(col))
	for i, v := range col {
		out.index[i] = fmt.Sprintf("%v", v)
	}
	return out
}

// ConcatRows concatenates frames vertically. Columns are the union in
// first-seen order; missing cells hold nil; indexes are concatenated.
func ConcatRows(frames ...*Frame) *Frame {
	out := &Frame{data: make(map[string][]interface{})}
	total := 0
	for _, f := range frames {
		total += f.Len()
		for _, c := range f.columns {
			if _, ok := out.data[c]; !ok {
				out.columns = append(out.columns, c)
				out.data[c] = nil
			}
		}
	}
	out.index = make([]string, 0, total)
	for _, f := range frames {
		for _, c := range out.columns {
			src, ok := f.data[c]
			for i := 0; i < f.Len(); i++ {
				if ok {
					out.data[c] = append(out.data[c], src[i])
				} else {
					out.data[c] = append(out.data[c], nil)
				}
			}
		}
		out.index = append(out.index, f.index...)
	}
	return out
}

// ConcatColumns joins another frame's columns onto f, row-aligned by index.
// Rows of other that carry an index key absent from f are dropped; rows of
// f absent from other hold nil. Duplicate column names keep f's values.
func (f *Frame) ConcatColumns(other *Frame) *Frame {
	if other == nil || len(other.columns) == 0 {
		return f
	}
	pos := make(map[string]int, other.Len())
	for i, key := range other.index {
		if _, ok := pos[key]; !ok {
			pos[key] = i
		}
	}
	out := f.Copy()
	for _, c := range other.columns {
		if _, ok := out.data[c]; ok {
			continue
		}
		col := make([]interface{}, out.Len())
		for i, key := range out.index {
			if j, ok := pos[key]; ok {
				col[i] = other.data[c][j]
			}
		}
		out.columns = append(out.columns, c)
		out.data[c] = col
	}
	return out
}
