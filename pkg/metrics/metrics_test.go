package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRowsRead(t *testing.T) {
	before := testutil.ToFloat64(RowsRead.WithLabelValues("csv", "success"))
	RowsRead.WithLabelValues("csv", "success").Add(42)
	after := testutil.ToFloat64(RowsRead.WithLabelValues("csv", "success"))
	assert.Equal(t, float64(42), after-before)
}

func TestCacheBytes(t *testing.T) {
	CacheBytes.Set(1024)
	assert.Equal(t, float64(1024), testutil.ToFloat64(CacheBytes))
	CacheBytes.Set(0)
}
