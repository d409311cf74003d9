package reader

import (
	"context"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/velum-io/tabular/pkg/errors"
	"github.com/velum-io/tabular/pkg/logger"
	"github.com/velum-io/tabular/pkg/metrics"
	"github.com/velum-io/tabular/pkg/table"
)

// FromExcel reads one or several Excel workbooks into a lazy table. There
// is no streaming Excel reader, so each workbook is read whole when its
// partition runs and wrapped as a single partition. Missing cells become
// empty strings.
//
// Parameters: "sheet" (sheet name, default: the workbook's first sheet).
func FromExcel(ctx context.Context, paths []string, params Params) (*table.Table, error) {
	files, err := ExpandGlobs(paths)
	if err != nil {
		return nil, err
	}

	sheet := params.String("sheet", "")

	var t *table.Table
	for _, path := range files {
		path := path
		part := table.New(nil, func(ctx context.Context) (*table.Frame, error) {
			return readExcelFile(path, sheet)
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

func readExcelFile(path, sheet string) (*table.Frame, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		metrics.RowsRead.WithLabelValues("excel", "failure").Inc()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open "+path)
	}
	defer book.Close()

	if sheet == "" {
		sheet = book.GetSheetName(0)
	}
	rows, err := book.GetRows(sheet)
	if err != nil {
		metrics.RowsRead.WithLabelValues("excel", "failure").Inc()
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read sheet "+sheet+" of "+path)
	}
	if len(rows) == 0 {
		return table.NewFrame([]string{ResourceColumn}), nil
	}

	header := rows[0]
	columns := make([][]interface{}, len(header))
	for _, row := range rows[1:] {
		for i := range header {
			// short rows mean trailing empty cells
			if i < len(row) {
				columns[i] = append(columns[i], row[i])
			} else {
				columns[i] = append(columns[i], "")
			}
		}
	}

	frame := table.NewFrame(nil)
	for i, name := range header {
		if err := frame.SetColumn(name, columns[i]); err != nil {
			return nil, err
		}
	}
	frame.SetConst(ResourceColumn, path)

	metrics.RowsRead.WithLabelValues("excel", "success").Add(float64(frame.Len()))
	logger.Get().Debug("excel file read",
		zap.String("path", path), zap.String("sheet", sheet), zap.Int("rows", frame.Len()))
	return frame, nil
}
