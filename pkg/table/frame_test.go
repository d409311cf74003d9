package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRows(t *testing.T) {
	t.Run("union of keys", func(t *testing.T) {
		f := FromRows([]map[string]interface{}{
			{"a": 1, "b": "x"},
			{"b": "y", "c": true},
		})

		assert.Equal(t, []string{"a", "b", "c"}, f.Columns())
		assert.Equal(t, 2, f.Len())
		assert.Equal(t, []string{"0", "1"}, f.Index())
		assert.Nil(t, f.Value(1, "a"))
		assert.Nil(t, f.Value(0, "c"))
		assert.Equal(t, "y", f.Value(1, "b"))
	})

	t.Run("empty input", func(t *testing.T) {
		f := FromRows(nil)
		assert.Equal(t, 0, f.Len())
		assert.Empty(t, f.Columns())
	})
}

func TestFrameSetColumn(t *testing.T) {
	f := NewFrame([]string{"a"})
	require.NoError(t, f.SetColumn("a", []interface{}{1, 2, 3}))
	assert.Equal(t, 3, f.Len())

	err := f.SetColumn("b", []interface{}{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 values for 3 rows")

	require.NoError(t, f.SetColumn("b", []interface{}{4, 5, 6}))
	assert.Equal(t, []string{"a", "b"}, f.Columns())
}

func TestFrameSetConst(t *testing.T) {
	f := FromRows([]map[string]interface{}{{"a": 1}, {"a": 2}})
	f.SetConst("src", "file.csv")

	col, ok := f.Column("src")
	require.True(t, ok)
	assert.Equal(t, []interface{}{"file.csv", "file.csv"}, col)
}

func TestFrameSelect(t *testing.T) {
	f := FromRows([]map[string]interface{}{{"a": 1, "b": 2, "c": 3}})

	t.Run("keeps requested order", func(t *testing.T) {
		sel, err := f.Select([]string{"c", "a"})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a"}, sel.Columns())
	})

	t.Run("reports all missing columns", func(t *testing.T) {
		_, err := f.Select([]string{"a", "x", "y"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "x, y")
	})
}

func TestFrameHead(t *testing.T) {
	f := FromRows([]map[string]interface{}{{"a": 1}, {"a": 2}, {"a": 3}})

	h := f.Head(2)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, 1, h.Value(0, "a"))

	assert.Equal(t, 3, f.Head(10).Len())
}

func TestFrameTrimColumnNames(t *testing.T) {
	t.Run("strips whitespace", func(t *testing.T) {
		f := NewFrame(nil)
		require.NoError(t, f.SetColumn("  name ", []interface{}{"x"}))
		require.NoError(t, f.SetColumn("age", []interface{}{1}))

		trimmed := f.TrimColumnNames()
		assert.Equal(t, []string{"name", "age"}, trimmed.Columns())
		assert.Equal(t, "x", trimmed.Value(0, "name"))
	})

	t.Run("collisions get a positional suffix", func(t *testing.T) {
		f := NewFrame(nil)
		require.NoError(t, f.SetColumn("a", []interface{}{1}))
		require.NoError(t, f.SetColumn(" a", []interface{}{2}))

		trimmed := f.TrimColumnNames()
		assert.Equal(t, []string{"a", "a_1"}, trimmed.Columns())
	})
}

func TestFrameDropEmptyRows(t *testing.T) {
	f := FromRows([]map[string]interface{}{
		{"a": "x", "b": nil},
		{"a": "", "b": nil},
		{"a": nil, "b": 0},
	})

	out := f.DropEmptyRows()
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, "x", out.Value(0, "a"))
	assert.Equal(t, 0, out.Value(1, "b"))
}

func TestFramePromoteIndex(t *testing.T) {
	t.Run("stringifies values and drops the column", func(t *testing.T) {
		f := FromRows([]map[string]interface{}{
			{"id": 7, "a": "x"},
			{"id": "doc-2", "a": "y"},
		})

		out := f.PromoteIndex("id")
		assert.Equal(t, []string{"7", "doc-2"}, out.Index())
		assert.False(t, out.HasColumn("id"))
		assert.Equal(t, "y", out.Value(1, "a"))
	})

	t.Run("missing column is a no-op", func(t *testing.T) {
		f := FromRows([]map[string]interface{}{{"a": 1}})
		assert.Same(t, f, f.PromoteIndex("id"))
	})
}

func TestConcatRows(t *testing.T) {
	a := FromRows([]map[string]interface{}{{"x": 1}})
	b := FromRows([]map[string]interface{}{{"x": 2, "y": "b"}})

	out := ConcatRows(a, b)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, []string{"x", "y"}, out.Columns())
	assert.Nil(t, out.Value(0, "y"))
	assert.Equal(t, "b", out.Value(1, "y"))
}

func TestFrameConcatColumns(t *testing.T) {
	left := FromRows([]map[string]interface{}{
		{"a": 1},
		{"a": 2},
	})

	t.Run("aligns by index key", func(t *testing.T) {
		right := NewFrame(nil)
		require.NoError(t, right.SetColumn("b", []interface{}{"second"}))
		require.NoError(t, right.SetIndex([]string{"1"}))

		out := left.ConcatColumns(right)
		assert.Nil(t, out.Value(0, "b"))
		assert.Equal(t, "second", out.Value(1, "b"))
	})

	t.Run("duplicate columns keep the left values", func(t *testing.T) {
		right := FromRows([]map[string]interface{}{{"a": 99}, {"a": 98}})
		out := left.ConcatColumns(right)
		assert.Equal(t, 1, out.Value(0, "a"))
	})

	t.Run("nil other is the frame itself", func(t *testing.T) {
		assert.Same(t, left, left.ConcatColumns(nil))
	})
}
