package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrorTypeValidation, "bad input")
	assert.Equal(t, "validation: bad input", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeFormat, "format %q not supported", "avro")
	assert.Contains(t, err.Error(), `"avro"`)
}

func TestWrap(t *testing.T) {
	t.Run("wraps and unwraps", func(t *testing.T) {
		cause := fmt.Errorf("disk full")
		err := Wrap(cause, ErrorTypeFile, "failed to write")

		assert.Contains(t, err.Error(), "failed to write")
		assert.Contains(t, err.Error(), "disk full")
		assert.Equal(t, cause, stderrors.Unwrap(err))
	})

	t.Run("nil cause returns nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrorTypeFile, "whatever"))
	})

	t.Run("preserves the original stack", func(t *testing.T) {
		inner := New(ErrorTypeData, "inner")
		outer := Wrap(inner, ErrorTypeInternal, "outer")
		assert.Equal(t, inner.Stack, outer.Stack)
	})
}

func TestWrapf(t *testing.T) {
	err := Wrapf(fmt.Errorf("boom"), ErrorTypeData, "partition %d failed", 3)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "partition 3 failed")
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeMapping, "no mapping")

	assert.True(t, IsType(err, ErrorTypeMapping))
	assert.False(t, IsType(err, ErrorTypeFile))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrorTypeMapping))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsType(wrapped, ErrorTypeMapping))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeConnection, "refused").
		WithDetail("host", "localhost").
		WithDetail("port", 9200)

	assert.Equal(t, "localhost", err.Details["host"])
	assert.Equal(t, 9200, err.Details["port"])
}
