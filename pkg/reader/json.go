package reader

import (
	"bufio"
	"bytes"
	"context"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/velum-io/tabular/pkg/errors"
	"github.com/velum-io/tabular/pkg/logger"
	"github.com/velum-io/tabular/pkg/metrics"
	"github.com/velum-io/tabular/pkg/table"
)

// FromJSON reads one or several JSON or JSON-Lines files into a lazy
// table. Each matched file is its own partition so the optional
// structural flatten (parameter "flatten", default true) runs per file
// before the partitions are concatenated.
//
// Parameters: "flatten" (bool), "format" ("lines" or "array"; by default
// a file whose first non-space byte is '[' is treated as an array).
func FromJSON(ctx context.Context, paths []string, params Params) (*table.Table, error) {
	files, err := ExpandGlobs(paths)
	if err != nil {
		return nil, err
	}

	flatten := params.Bool("flatten", true)
	format := params.String("format", "")

	var t *table.Table
	for _, path := range files {
		path := path
		part := table.New(nil, func(ctx context.Context) (*table.Frame, error) {
			return readJSONFile(path, format, flatten)
		})
		if t == nil {
			t = part
		} else {
			t = t.Append(part)
		}
	}

	// materialize a one-row sample for the post-flatten layout
	sample, err := t.Sample(ctx, 1)
	if err != nil {
		return nil, err
	}
	return table.New(sample.Columns(), partitionsOf(t)...), nil
}

func readJSONFile(path, format string, flatten bool) (*table.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		metrics.RowsRead.WithLabelValues("json", "failure").Inc()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read "+path)
	}

	var rows []map[string]interface{}
	if isJSONArray(data, format) {
		rows, err = decodeJSONArray(data)
	} else {
		rows, err = decodeJSONLines(data)
	}
	if err != nil {
		metrics.RowsRead.WithLabelValues("json", "failure").Inc()
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse "+path)
	}

	frame := table.FromRows(rows)
	if flatten {
		frame = table.FlattenFrame(frame)
	}
	frame.SetConst(ResourceColumn, path)

	metrics.RowsRead.WithLabelValues("json", "success").Add(float64(frame.Len()))
	logger.Get().Debug("json file read",
		zap.String("path", path), zap.Int("rows", frame.Len()), zap.Bool("flatten", flatten))
	return frame, nil
}

func isJSONArray(data []byte, format string) bool {
	switch format {
	case "array":
		return true
	case "lines", "jsonl", "json-l":
		return false
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

func decodeJSONArray(data []byte) ([]map[string]interface{}, error) {
	var raw []map[string]interface{}
	if err := gojson.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func decodeJSONLines(data []byte) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		parsed := gjson.ParseBytes(line)
		row, ok := parsed.Value().(map[string]interface{})
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData,
				"line %d is not a JSON object", len(rows)+1)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
