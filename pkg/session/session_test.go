package session

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velum-io/tabular/pkg/errors"
	"github.com/velum-io/tabular/pkg/table"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1GB", 1 << 30, false},
		{"512MB", 512 << 20, false},
		{"2kb", 2048, false},
		{"1.5GB", 1610612736, false},
		{"100", 100, false},
		{"100B", 100, false},
		{"", 0, false},
		{"  2 GB ", 2 << 30, false},
		{"abc", 0, true},
		{"-1GB", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseByteSize(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionCompute(t *testing.T) {
	ctx := context.Background()

	newTable := func(n int, calls *int32) *table.Table {
		parts := make([]table.Partition, n)
		for i := 0; i < n; i++ {
			i := i
			parts[i] = func(context.Context) (*table.Frame, error) {
				if calls != nil {
					atomic.AddInt32(calls, 1)
				}
				return table.FromRows([]map[string]interface{}{{"part": i}}), nil
			}
		}
		return table.New([]string{"part"}, parts...)
	}

	t.Run("preserves partition order", func(t *testing.T) {
		s, err := New(Config{Workers: 2, CacheSize: "0"})
		require.NoError(t, err)
		defer s.Close()

		out, err := s.Compute(ctx, newTable(8, nil))
		require.NoError(t, err)
		require.Equal(t, 8, out.Len())
		for i := 0; i < 8; i++ {
			assert.Equal(t, i, out.Value(i, "part"))
		}
	})

	t.Run("aggregates partition failures", func(t *testing.T) {
		s, err := New(Config{Workers: 4, CacheSize: "0"})
		require.NoError(t, err)
		defer s.Close()

		boom := func(context.Context) (*table.Frame, error) {
			return nil, errors.New(errors.ErrorTypeData, "bad partition")
		}
		tbl := table.New(nil, boom, boom)

		_, err = s.Compute(ctx, tbl)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad partition")
	})

	t.Run("caches by table identity", func(t *testing.T) {
		s, err := New(Config{Workers: 2, CacheSize: "10MB"})
		require.NoError(t, err)
		defer s.Close()

		var calls int32
		tbl := newTable(3, &calls)

		first, err := s.Compute(ctx, tbl)
		require.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

		second, err := s.Compute(ctx, tbl)
		require.NoError(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "cached result must not recompute")
		assert.Same(t, first, second)
	})

	t.Run("closed session refuses work", func(t *testing.T) {
		s, err := New(Config{Workers: 1, CacheSize: "0"})
		require.NoError(t, err)
		s.Close()

		_, err = s.Compute(ctx, newTable(1, nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "closed")
	})

	t.Run("close is idempotent", func(t *testing.T) {
		s, err := New(Config{Workers: 1})
		require.NoError(t, err)
		s.Close()
		s.Close()
	})
}

func TestDefaultSession(t *testing.T) {
	s1, err := Default()
	require.NoError(t, err)
	s2, err := Default()
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	CloseDefault()

	s3, err := Default()
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
	CloseDefault()
}
