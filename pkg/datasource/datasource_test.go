package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velum-io/tabular/pkg/reader"
	"github.com/velum-io/tabular/pkg/table"
	"github.com/velum-io/tabular/pkg/testutil"
)

func TestNewDataSource(t *testing.T) {
	ctx := context.Background()

	t.Run("format inferred from the extension", func(t *testing.T) {
		dir := t.TempDir()
		path := testutil.WriteFile(t, dir, "reviews.csv", "text,stars\ngreat,5\n")

		ds, err := New(ctx, Config{Source: []string{path}})
		require.NoError(t, err)
		assert.Equal(t, "csv", ds.Format())

		rows, err := ds.Rows(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "great", rows[0]["text"])
	})

	t.Run("explicit format wins", func(t *testing.T) {
		dir := t.TempDir()
		path := testutil.WriteFile(t, dir, "reviews.txt", "text\nhello\n")

		ds, err := New(ctx, Config{Source: []string{path}, Format: "csv"})
		require.NoError(t, err)
		assert.Equal(t, "csv", ds.Format())
	})

	t.Run("neither format nor source", func(t *testing.T) {
		_, err := New(ctx, Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "either a format or at least one source path")
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := New(ctx, Config{Source: []string{"data.avro"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not supported")
	})

	t.Run("column names are trimmed lazily", func(t *testing.T) {
		dir := t.TempDir()
		path := testutil.WriteFile(t, dir, "ws.csv", "  name ,age\nann,33\n")

		ds, err := New(ctx, Config{Source: []string{path}})
		require.NoError(t, err)
		assert.Contains(t, ds.Table().Columns(), "name")

		rows, err := ds.Rows(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ann", rows[0]["name"])
	})

	t.Run("empty rows are dropped", func(t *testing.T) {
		dir := t.TempDir()
		path := testutil.WriteFile(t, dir, "gaps.jsonl",
			"{\"a\":\"x\"}\n{\"a\":\"\"}\n")

		ds, err := New(ctx, Config{Source: []string{path}})
		require.NoError(t, err)
		rows, err := ds.Rows(ctx)
		require.NoError(t, err)
		// the second row still carries the resource column, so it stays
		assert.Len(t, rows, 2)
	})

	t.Run("id column becomes the row key", func(t *testing.T) {
		dir := t.TempDir()
		path := testutil.WriteFile(t, dir, "keyed.csv", "id,text\ndoc-1,hi\ndoc-2,yo\n")

		ds, err := New(ctx, Config{Source: []string{path}})
		require.NoError(t, err)
		assert.NotContains(t, ds.Table().Columns(), "id")

		f, err := ds.Table().Compute(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"doc-1", "doc-2"}, f.Index())
		assert.False(t, f.HasColumn("id"))
	})

	t.Run("reader defaults merge under attributes", func(t *testing.T) {
		dir := t.TempDir()
		path := testutil.WriteFile(t, dir, "semi.csv", "a;b\n1;2\n")

		ds, err := New(ctx, Config{
			Source:     []string{path},
			Attributes: reader.Params{"delimiter": ";"},
		})
		require.NoError(t, err)
		rows, err := ds.Rows(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2", rows[0]["b"])
	})

	t.Run("custom registry", func(t *testing.T) {
		r := NewRegistry()
		r.Register("fake", func(context.Context, []string, reader.Params) (*table.Table, error) {
			return table.FromFrame(table.FromRows([]map[string]interface{}{{"a": 1}})), nil
		}, nil)

		ds, err := New(ctx, Config{Format: "fake"}, WithRegistry(r))
		require.NoError(t, err)
		rows, err := ds.Rows(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestDataSourceViews(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "reviews.jsonl",
		`{"body":"great phone","stars":5,"meta":{"lang":"en"}}
{"body":"meh","stars":2,"meta":{"lang":"de"}}
`)

	t.Run("flattened view", func(t *testing.T) {
		ds, err := New(ctx, Config{Source: []string{path}, Attributes: reader.Params{"flatten": false}})
		require.NoError(t, err)

		flat, err := ds.FlattenedTable(ctx)
		require.NoError(t, err)
		f, err := flat.Compute(ctx)
		require.NoError(t, err)
		assert.Equal(t, "en", f.Value(0, "meta.lang"))
	})

	t.Run("mapped view", func(t *testing.T) {
		ds, err := New(ctx, Config{
			Source:  []string{path},
			Mapping: table.Mapping{"text": {"body"}, "label": {"stars"}},
		})
		require.NoError(t, err)

		rows, err := ds.MappedRows(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "great phone", rows[0]["text"])
		assert.Equal(t, float64(5), rows[0]["label"])
		assert.NotContains(t, rows[0], "body")
	})

	t.Run("mapped view without a mapping", func(t *testing.T) {
		ds, err := New(ctx, Config{Source: []string{path}})
		require.NoError(t, err)

		_, err = ds.MappedTable()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no mapping configured")
	})

	t.Run("mapped view with an absent column", func(t *testing.T) {
		ds, err := New(ctx, Config{
			Source:  []string{path},
			Mapping: table.Mapping{"text": {"nope"}},
		})
		require.NoError(t, err)

		_, err = ds.MappedTable()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope")
	})
}
