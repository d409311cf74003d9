// Package datasource provides the façade over the format readers: format
// dispatch, row/column normalization, YAML descriptors and the mapped
// logical view consumed by downstream training pipelines.
package datasource

import (
	"context"

	"go.uber.org/zap"

	"github.com/velum-io/tabular/pkg/errors"
	"github.com/velum-io/tabular/pkg/logger"
	"github.com/velum-io/tabular/pkg/reader"
	"github.com/velum-io/tabular/pkg/table"
)

// idColumn, when present in a source, is promoted to the row key.
const idColumn = "id"

// Config declares a data source.
type Config struct {
	// Source names the input file paths or glob patterns; empty for
	// non-file backends such as elasticsearch.
	Source []string
	// Format is the registry key; inferred from the shared file extension
	// of Source when empty.
	Format string
	// Attributes override the registered reader defaults.
	Attributes reader.Params
	// Mapping projects source columns into logical fields.
	Mapping table.Mapping
}

// Option customizes DataSource construction.
type Option func(*options)

type options struct {
	registry *Registry
}

// WithRegistry uses an explicit format registry instead of the default.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// DataSource reads a declared source into a lazy partitioned table and
// offers raw, flattened and mapped views of it.
type DataSource struct {
	config Config
	table  *table.Table
	logger *zap.Logger
}

// New constructs a DataSource: resolves the format, runs the registered
// reader and normalizes the result. Rows that are entirely empty are
// dropped, column names are trimmed, and a literal "id" column becomes the
// row key. The table itself stays lazy.
func New(ctx context.Context, cfg Config, opts ...Option) (*DataSource, error) {
	o := options{registry: defaultRegistry}
	for _, opt := range opts {
		opt(&o)
	}

	format := cfg.Format
	if format == "" {
		if len(cfg.Source) == 0 {
			return nil, errors.New(errors.ErrorTypeValidation,
				"either a format or at least one source path is required")
		}
		ext, err := reader.CommonExtension(cfg.Source)
		if err != nil {
			return nil, err
		}
		format = ext
	}

	entry, err := o.registry.Lookup(format)
	if err != nil {
		return nil, err
	}
	params := reader.Merge(entry.Defaults, cfg.Attributes)

	log := logger.Get().With(
		zap.String("format", format),
		zap.Strings("source", cfg.Source))

	t, err := entry.Reader(ctx, cfg.Source, params)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read source")
	}

	t = normalize(t)
	log.Debug("data source created", zap.Int("partitions", t.NumPartitions()))

	cfg.Format = format
	return &DataSource{config: cfg, table: t, logger: log}, nil
}

// normalize applies the post-read invariants lazily to every partition.
func normalize(t *table.Table) *table.Table {
	columns := normalizeColumns(t.Columns())
	return t.MapPartitions(columns, func(_ context.Context, f *table.Frame) (*table.Frame, error) {
		return f.DropEmptyRows().TrimColumnNames().PromoteIndex(idColumn), nil
	})
}

func normalizeColumns(columns []string) []string {
	trimmed := table.NewFrame(columns).TrimColumnNames().Columns()
	out := trimmed[:0]
	for _, c := range trimmed {
		if c != idColumn {
			out = append(out, c)
		}
	}
	return out
}

// Format returns the resolved format key.
func (ds *DataSource) Format() string {
	return ds.config.Format
}

// Mapping returns the configured mapping, nil when absent.
func (ds *DataSource) Mapping() table.Mapping {
	return ds.config.Mapping
}

// Table returns the underlying lazy table.
func (ds *DataSource) Table() *table.Table {
	return ds.table
}

// FlattenedTable returns a lazy view with every nested cell value expanded
// into flat dotted columns.
func (ds *DataSource) FlattenedTable(ctx context.Context) (*table.Table, error) {
	return table.Flatten(ctx, ds.table)
}

// MappedTable returns a lazy view holding exactly the mapped logical
// columns. It fails when no mapping is configured or when a mapped source
// column is absent.
func (ds *DataSource) MappedTable() (*table.Table, error) {
	return table.Project(ds.table, ds.config.Mapping)
}

// Rows computes the table and returns its rows as column-keyed maps.
func (ds *DataSource) Rows(ctx context.Context) ([]map[string]interface{}, error) {
	f, err := ds.table.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return f.Rows(), nil
}

// MappedRows computes the mapped view and returns its rows.
func (ds *DataSource) MappedRows(ctx context.Context) ([]map[string]interface{}, error) {
	mapped, err := ds.MappedTable()
	if err != nil {
		return nil, err
	}
	f, err := mapped.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return f.Rows(), nil
}
