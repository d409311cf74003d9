package reader

import (
	"bytes"
	"context"
	"fmt"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/velum-io/tabular/pkg/errors"
	"github.com/velum-io/tabular/pkg/logger"
	"github.com/velum-io/tabular/pkg/metrics"
	"github.com/velum-io/tabular/pkg/table"
)

// minSlices is the smallest slice count the scroll API accepts.
const minSlices = 2

// ClientFactory builds an Elasticsearch client. Clients hold live
// connections and cannot cross partition boundaries, so every partition
// creates its own through the factory.
type ClientFactory func() (*elasticsearch.Client, error)

// FromElasticsearch reads documents through a sliced scrolling search, one
// lazy partition per slice. Documents are sorted by internal order (_doc)
// unless the query says otherwise. Each hit's source fields are flattened
// with a "." delimiter and combined with synthetic "id" and "resource"
// fields from the hit metadata; the result is indexed by "id".
//
// Parameters: "query" (search body), "npartitions" (slice count, minimum
// 2), "index", "scroll" (keep-alive, default "5m"), "size" (per-fetch
// batch, default 1000), "addresses" (cluster URLs), "client_factory"
// (ClientFactory, overrides addresses).
func FromElasticsearch(ctx context.Context, _ []string, params Params) (*table.Table, error) {
	npartitions := params.Int("npartitions", minSlices)
	if npartitions < minSlices {
		logger.Get().Warn("elasticsearch scan slices need at least 2 partitions, coercing",
			zap.Int("requested", npartitions))
		npartitions = minSlices
	}

	factory := clientFactory(params)
	index := params.String("index", "")
	scroll := params.String("scroll", "5m")
	size := params.Int("size", 1000)
	query := params.Map("query")

	parts := make([]table.Partition, npartitions)
	for i := 0; i < npartitions; i++ {
		body, err := sliceQuery(query, i, npartitions)
		if err != nil {
			return nil, err
		}
		parts[i] = func(ctx context.Context) (*table.Frame, error) {
			return scanSlice(ctx, factory, index, scroll, size, body)
		}
	}

	return table.New(nil, parts...), nil
}

func clientFactory(params Params) ClientFactory {
	if f, ok := params["client_factory"].(ClientFactory); ok {
		return f
	}
	if f, ok := params["client_factory"].(func() (*elasticsearch.Client, error)); ok {
		return f
	}
	addresses := params.Strings("addresses")
	return func() (*elasticsearch.Client, error) {
		return elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	}
}

// sliceQuery marshals the search body for one scroll slice, defaulting the
// sort to _doc, which is the cheapest order for scrolling.
func sliceQuery(query map[string]interface{}, id, max int) ([]byte, error) {
	body := make(map[string]interface{}, len(query)+2)
	for k, v := range query {
		body[k] = v
	}
	body["slice"] = map[string]interface{}{"id": id, "max": max}
	if _, ok := body["sort"]; !ok {
		body["sort"] = []interface{}{"_doc"}
	}
	data, err := gojson.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to encode search query")
	}
	return data, nil
}

type scrollResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Hits []scrollHit `json:"hits"`
	} `json:"hits"`
}

type scrollHit struct {
	ID     string                 `json:"_id"`
	Index  string                 `json:"_index"`
	Source map[string]interface{} `json:"_source"`
}

func scanSlice(ctx context.Context, factory ClientFactory, index, scroll string, size int, body []byte) (*table.Frame, error) {
	client, err := factory()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create elasticsearch client")
	}

	keepAlive, err := time.ParseDuration(scroll)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "bad scroll keep-alive "+scroll)
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(index),
		client.Search.WithBody(bytes.NewReader(body)),
		client.Search.WithScroll(keepAlive),
		client.Search.WithSize(size),
	)
	if err != nil {
		metrics.RowsRead.WithLabelValues("elasticsearch", "failure").Inc()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "search request failed")
	}

	var rows []map[string]interface{}
	scrollID := ""
	for {
		page, err := decodeScrollResponse(res)
		if err != nil {
			return nil, err
		}
		scrollID = page.ScrollID
		if len(page.Hits.Hits) == 0 {
			break
		}
		for _, hit := range page.Hits.Hits {
			row := flattenKeys(hit.Source, "")
			row["id"] = hit.ID
			row[ResourceColumn] = hit.Index
			rows = append(rows, row)
		}
		res, err = client.Scroll(
			client.Scroll.WithContext(ctx),
			client.Scroll.WithScrollID(scrollID),
			client.Scroll.WithScroll(keepAlive),
		)
		if err != nil {
			metrics.RowsRead.WithLabelValues("elasticsearch", "failure").Inc()
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "scroll request failed")
		}
	}

	if scrollID != "" {
		if _, err := client.ClearScroll(client.ClearScroll.WithScrollID(scrollID)); err != nil {
			logger.Get().Debug("failed to clear scroll", zap.Error(err))
		}
	}

	frame := table.FromRows(rows).PromoteIndex("id")
	metrics.RowsRead.WithLabelValues("elasticsearch", "success").Add(float64(frame.Len()))
	return frame, nil
}

func decodeScrollResponse(res *esapi.Response) (*scrollResponse, error) {
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.Newf(errors.ErrorTypeConnection, "elasticsearch error: %s", res.String())
	}
	var page scrollResponse
	if err := gojson.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode scroll response")
	}
	return &page, nil
}

// flattenKeys flattens nested records into dotted keys. This is the
// shallow, delimiter-based flattening of raw documents; lists are left
// alone for the structural transform.
func flattenKeys(src map[string]interface{}, prefix string) map[string]interface{} {
	out := make(map[string]interface{}, len(src))
	for k, v := range src {
		key := k
		if prefix != "" {
			key = fmt.Sprintf("%s.%s", prefix, k)
		}
		if nested, ok := v.(map[string]interface{}); ok {
			for nk, nv := range flattenKeys(nested, key) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}
