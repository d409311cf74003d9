package reader

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/velum-io/tabular/pkg/errors"
	"github.com/velum-io/tabular/pkg/logger"
	"github.com/velum-io/tabular/pkg/metrics"
	"github.com/velum-io/tabular/pkg/table"
)

// FromCSV reads one or several delimited text files into a lazy table, one
// partition per glob-matched file. All values are read as strings and an
// empty cell stays an empty string; no missing-value inference happens.
//
// Parameters: "delimiter" (single-char string, default ","), "comment"
// (single-char string, default none).
func FromCSV(ctx context.Context, paths []string, params Params) (*table.Table, error) {
	files, err := ExpandGlobs(paths)
	if err != nil {
		return nil, err
	}

	delimiter := firstRune(params.String("delimiter", ","), ',')
	comment := firstRune(params.String("comment", ""), 0)

	var t *table.Table
	for _, path := range files {
		path := path
		part := table.New(nil, func(ctx context.Context) (*table.Frame, error) {
			return readCSVFile(path, delimiter, comment)
		})
		if t == nil {
			t = part
		} else {
			t = t.Append(part)
		}
	}

	// the layout has to be known before compute; the header row is cheap
	header, err := readCSVHeader(files[0], delimiter, comment)
	if err != nil {
		return nil, err
	}
	return table.New(append(header, ResourceColumn), partitionsOf(t)...), nil
}

func readCSVHeader(path string, delimiter, comment rune) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open "+path)
	}
	defer f.Close()

	r := newCSVReader(f, delimiter, comment)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read header of "+path)
	}
	return header, nil
}

func readCSVFile(path string, delimiter, comment rune) (*table.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		metrics.RowsRead.WithLabelValues("csv", "failure").Inc()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open "+path)
	}
	defer f.Close()

	r := newCSVReader(f, delimiter, comment)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read header of "+path)
	}

	columns := make([][]interface{}, len(header))
	rows := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			metrics.RowsRead.WithLabelValues("csv", "failure").Inc()
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read "+path)
		}
		for i := range header {
			if i < len(record) {
				columns[i] = append(columns[i], record[i])
			} else {
				columns[i] = append(columns[i], "")
			}
		}
		rows++
	}

	frame := table.NewFrame(nil)
	for i, name := range header {
		if err := frame.SetColumn(name, columns[i]); err != nil {
			return nil, err
		}
	}
	frame.SetConst(ResourceColumn, path)

	metrics.RowsRead.WithLabelValues("csv", "success").Add(float64(rows))
	logger.Get().Debug("csv file read",
		zap.String("path", path), zap.Int("rows", rows))
	return frame, nil
}

func newCSVReader(f *os.File, delimiter, comment rune) *csv.Reader {
	r := csv.NewReader(f)
	r.Comma = delimiter
	r.Comment = comment
	r.FieldsPerRecord = -1
	return r
}

func firstRune(s string, def rune) rune {
	for _, r := range s {
		return r
	}
	return def
}

func partitionsOf(t *table.Table) []table.Partition {
	parts := make([]table.Partition, t.NumPartitions())
	for i := range parts {
		parts[i] = t.Partition(i)
	}
	return parts
}
