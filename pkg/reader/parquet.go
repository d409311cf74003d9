package reader

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/velum-io/tabular/pkg/errors"
	"github.com/velum-io/tabular/pkg/logger"
	"github.com/velum-io/tabular/pkg/metrics"
	"github.com/velum-io/tabular/pkg/table"
)

// FromParquet reads one or several Parquet files through the Arrow
// columnar engine, one partition per glob-matched file. Arrow structs
// become record cells and Arrow lists become list cells, so the
// structural flattening transform applies to Parquet data unchanged.
func FromParquet(ctx context.Context, paths []string, params Params) (*table.Table, error) {
	files, err := ExpandGlobs(paths)
	if err != nil {
		return nil, err
	}

	var t *table.Table
	for _, path := range files {
		path := path
		part := table.New(nil, func(ctx context.Context) (*table.Frame, error) {
			return readParquetFile(ctx, path)
		})
		if t == nil {
			t = part
		} else {
			t = t.Append(part)
		}
	}

	sample, err := t.Sample(ctx, 1)
	if err != nil {
		return nil, err
	}
	return table.New(sample.Columns(), partitionsOf(t)...), nil
}

func readParquetFile(ctx context.Context, path string) (*table.Frame, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		metrics.RowsRead.WithLabelValues("parquet", "failure").Inc()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open "+path)
	}
	defer rdr.Close()

	arrowRdr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to open arrow reader for "+path)
	}

	tbl, err := arrowRdr.ReadTable(ctx)
	if err != nil {
		metrics.RowsRead.WithLabelValues("parquet", "failure").Inc()
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read "+path)
	}
	defer tbl.Release()

	frame := table.NewFrame(nil)
	schema := tbl.Schema()
	for i := 0; i < int(tbl.NumCols()); i++ {
		values := make([]interface{}, 0, tbl.NumRows())
		for _, chunk := range tbl.Column(i).Data().Chunks() {
			for row := 0; row < chunk.Len(); row++ {
				values = append(values, arrowValue(chunk, row))
			}
		}
		if err := frame.SetColumn(schema.Field(i).Name, values); err != nil {
			return nil, err
		}
	}
	frame.SetConst(ResourceColumn, path)

	metrics.RowsRead.WithLabelValues("parquet", "success").Add(float64(frame.Len()))
	logger.Get().Debug("parquet file read",
		zap.String("path", path), zap.Int("rows", frame.Len()))
	return frame, nil
}

// arrowValue converts one Arrow array cell to a Go value.
func arrowValue(arr arrow.Array, index int) interface{} {
	if arr.IsNull(index) {
		return nil
	}

	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(index)
	case *array.Int8:
		return int64(a.Value(index))
	case *array.Int16:
		return int64(a.Value(index))
	case *array.Int32:
		return int64(a.Value(index))
	case *array.Int64:
		return a.Value(index)
	case *array.Uint8:
		return int64(a.Value(index))
	case *array.Uint16:
		return int64(a.Value(index))
	case *array.Uint32:
		return int64(a.Value(index))
	case *array.Uint64:
		return int64(a.Value(index))
	case *array.Float32:
		return float64(a.Value(index))
	case *array.Float64:
		return a.Value(index)
	case *array.String:
		return a.Value(index)
	case *array.LargeString:
		return a.Value(index)
	case *array.Binary:
		return a.Value(index)
	case *array.Date32:
		days := a.Value(index)
		return time.Unix(int64(days)*86400, 0).UTC()
	case *array.Timestamp:
		ts := a.Value(index)
		tsType := a.DataType().(*arrow.TimestampType)
		switch tsType.Unit {
		case arrow.Second:
			return time.Unix(int64(ts), 0).UTC()
		case arrow.Millisecond:
			return time.Unix(0, int64(ts)*1e6).UTC()
		case arrow.Microsecond:
			return time.Unix(0, int64(ts)*1e3).UTC()
		case arrow.Nanosecond:
			return time.Unix(0, int64(ts)).UTC()
		}
		return nil
	case *array.List:
		start, end := a.ValueOffsets(index)
		valueArr := a.ListValues()
		values := make([]interface{}, end-start)
		for i := start; i < end; i++ {
			values[i-start] = arrowValue(valueArr, int(i))
		}
		return values
	case *array.Struct:
		structType := a.DataType().(*arrow.StructType)
		result := make(map[string]interface{}, structType.NumFields())
		for i, field := range structType.Fields() {
			result[field.Name] = arrowValue(a.Field(i), index)
		}
		return result
	default:
		logger.Get().Warn("unsupported arrow type",
			zap.String("type", arr.DataType().String()))
		return nil
	}
}
