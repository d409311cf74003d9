package table

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want Kind
	}{
		{"nil", nil, KindScalar},
		{"string", "x", KindScalar},
		{"number", 3.5, KindScalar},
		{"record", map[string]interface{}{"k": 1}, KindRecord},
		{"scalar list", []interface{}{1, 2, 3}, KindScalar},
		{"record list", []interface{}{map[string]interface{}{"k": 1}}, KindRecordList},
		{"nested list", []interface{}{[]interface{}{map[string]interface{}{"k": 1}}}, KindRecordList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.in))
		})
	}
}

func TestFlattenFrame(t *testing.T) {
	t.Run("record column produces dotted columns", func(t *testing.T) {
		f := FromRows([]map[string]interface{}{
			{"text": "hi", "meta": map[string]interface{}{"author": "ann", "year": 2020}},
			{"text": "yo", "meta": map[string]interface{}{"author": "bob"}},
		})

		out := FlattenFrame(f)
		assert.ElementsMatch(t, []string{"text", "meta.author", "meta.year"}, out.Columns())
		assert.Equal(t, "ann", out.Value(0, "meta.author"))
		assert.Nil(t, out.Value(1, "meta.year"))
		assert.False(t, out.HasColumn("meta"))
	})

	t.Run("record list column pivots into list columns", func(t *testing.T) {
		f := FromRows([]map[string]interface{}{
			{"tokens": []interface{}{
				map[string]interface{}{"text": "a", "start": 0},
				map[string]interface{}{"text": "b", "start": 2},
			}},
		})

		out := FlattenFrame(f)
		assert.ElementsMatch(t, []string{"tokens.*.text", "tokens.*.start"}, out.Columns())
		assert.Equal(t, []interface{}{"a", "b"}, out.Value(0, "tokens.*.text"))
		assert.Equal(t, []interface{}{0, 2}, out.Value(0, "tokens.*.start"))
	})

	t.Run("nested records flatten recursively", func(t *testing.T) {
		f := FromRows([]map[string]interface{}{
			{"doc": map[string]interface{}{
				"meta": map[string]interface{}{"lang": "en"},
				"id":   1,
			}},
		})

		out := FlattenFrame(f)
		assert.ElementsMatch(t, []string{"doc.id", "doc.meta.lang"}, out.Columns())
		assert.Equal(t, "en", out.Value(0, "doc.meta.lang"))
	})

	t.Run("rows that cannot pivot contribute nothing", func(t *testing.T) {
		f := FromRows([]map[string]interface{}{
			{"spans": []interface{}{map[string]interface{}{"label": "ORG"}}},
			{"spans": []interface{}{"not", "records"}},
		})

		out := FlattenFrame(f)
		require.True(t, out.HasColumn("spans.*.label"))
		assert.Equal(t, []interface{}{"ORG"}, out.Value(0, "spans.*.label"))
		assert.Nil(t, out.Value(1, "spans.*.label"))
	})

	t.Run("flat frames pass through unchanged", func(t *testing.T) {
		f := FromRows([]map[string]interface{}{{"a": 1, "b": "x"}})
		assert.Same(t, f, FlattenFrame(f))
	})

	t.Run("idempotent", func(t *testing.T) {
		f := FromRows([]map[string]interface{}{
			{"meta": map[string]interface{}{"author": "ann"}},
		})
		once := FlattenFrame(f)
		twice := FlattenFrame(once)
		assert.Equal(t, once.Columns(), twice.Columns())
		assert.Equal(t, once.Rows(), twice.Rows())
	})
}

func TestFlatten(t *testing.T) {
	ctx := context.Background()

	t.Run("lazy layout from a sample", func(t *testing.T) {
		f := FromRows([]map[string]interface{}{
			{"text": "hi", "meta": map[string]interface{}{"author": "ann"}},
		})
		flat, err := Flatten(ctx, FromFrame(f))
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"text", "meta.author"}, flat.Columns())

		out, err := flat.Compute(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ann", out.Value(0, "meta.author"))
	})

	t.Run("partitions missing sampled columns hold nil", func(t *testing.T) {
		first := FromRows([]map[string]interface{}{
			{"meta": map[string]interface{}{"author": "ann", "year": 2020}},
		})
		second := FromRows([]map[string]interface{}{
			{"meta": map[string]interface{}{"author": "bob"}},
		})

		flat, err := Flatten(ctx, FromFrame(first).Append(FromFrame(second)))
		require.NoError(t, err)
		out, err := flat.Compute(ctx)
		require.NoError(t, err)

		assert.Equal(t, 2, out.Len())
		assert.Equal(t, 2020, out.Value(0, "meta.year"))
		assert.Nil(t, out.Value(1, "meta.year"))
	})
}
