// Package tabular provides uniform, lazy access to heterogeneous tabular
// data sources: CSV, JSON and JSON Lines, Excel workbooks, Parquet files,
// and Elasticsearch indices.
//
// Every source is read into the same representation: a Table made of lazy
// partitions, where nothing touches the underlying files or network until
// a partition is computed. On top of that representation tabular offers
// two transformations:
//
// 1. Flattening: nested record and record-list cell values are recursively
// expanded into dotted scalar columns ("meta.author", "tokens.*.text"), so
// arbitrarily nested documents end up as flat frames.
//
// 2. Projection: a caller-supplied mapping from logical field names to
// source columns selects and renames columns, materializing a record
// column when one field draws from several sources.
//
// # Quick Start
//
// Load a data source from a YAML descriptor and inspect its rows:
//
//	import (
//	    "context"
//	    "github.com/velum-io/tabular/pkg/datasource"
//	    "github.com/velum-io/tabular/pkg/session"
//	)
//
//	ds, err := datasource.FromYAML(context.Background(), "reviews.yml")
//	if err != nil { ... }
//
//	mapped, err := ds.MappedTable()
//	if err != nil { ... }
//
//	sess, _ := session.Default()
//	defer session.CloseDefault()
//	frame, err := sess.Compute(context.Background(), mapped)
//
// Or construct one directly:
//
//	ds, err := datasource.New(ctx, datasource.Config{
//	    Source:  []string{"data/*.jsonl"},
//	    Mapping: table.Mapping{"text": {"review_body"}, "label": {"stars"}},
//	})
//
// # Key Packages
//
//	pkg/table       - Lazy partitioned tables, frames, flattening, projection
//	pkg/reader      - Format readers (CSV, JSON, Excel, Parquet, Elasticsearch)
//	pkg/datasource  - Format registry, YAML descriptors, the DataSource facade
//	pkg/session     - Concurrent compute sessions with result caching
//	pkg/errors      - Structured error handling
//	pkg/logger      - Structured logging
//	pkg/metrics     - Metrics collection
//
// # Formats
//
// Formats are resolved from an explicit descriptor field or inferred from
// the source file extensions. The built-in registry covers csv, xls, xlsx,
// json, jsonl, parquet and elasticsearch; additional readers can be
// registered at runtime with datasource.Register.
package tabular
