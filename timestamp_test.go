package influxrel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTimestampNumeric(t *testing.T) {
	cases := []struct {
		precision string
		want      int64
	}{
		{"ns", 1420000000000000000},
		{"u", 1420000000000000},
		{"ms", 1420000000000},
		{"s", 1420000000},
	}

	for _, tc := range cases {
		t.Run(tc.precision, func(t *testing.T) {
			got, err := writeTimestamp(1420000000, tc.precision)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWriteTimestampTime(t *testing.T) {
	at := time.Date(2018, 1, 1, 12, 0, 0, 0, time.UTC)

	got, err := writeTimestamp(at, "ns")
	require.NoError(t, err)
	assert.Equal(t, int64(1514808000000000000), got)

	got, err = writeTimestamp(at, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(1514808000), got)
}

func TestWriteTimestampString(t *testing.T) {
	cases := []struct {
		input string
		want  int64
	}{
		{"2018-01-01T12:00:00Z", 1514808000000000000},
		{"2018-01-01 12:00:00", 1514808000000000000},
		{"2018-01-01", 1514764800000000000},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := writeTimestamp(tc.input, "ns")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWriteTimestampUnparseableString(t *testing.T) {
	_, err := writeTimestamp("not a time", "ns")
	require.Error(t, err)
}

func TestWriteTimestampUnsupportedPrecision(t *testing.T) {
	// Numeric values keep their scale; the caller owns the unit.
	got, err := writeTimestamp(99, "h")
	require.NoError(t, err)
	assert.Equal(t, int64(99), got)

	// Everything else fails loudly on the write path.
	_, err = writeTimestamp("2018-01-01", "h")
	assert.True(t, IsUnsupportedPrecisionError(err))

	_, err = writeTimestamp(time.Now(), "h")
	assert.True(t, IsUnsupportedPrecisionError(err))
}

func TestQueryTimestamp(t *testing.T) {
	assert.Equal(t, "1420000000000000000", queryTimestamp(1420000000, "ns"))
	assert.Equal(t, "1420000000000", queryTimestamp(1420000000, "ms"))

	// The read path degrades to a verbatim passthrough.
	assert.Equal(t, "2018-01-01", queryTimestamp("2018-01-01", "h"))
	assert.Equal(t, "not a time", queryTimestamp("not a time", "ns"))
}

func TestAsInt64(t *testing.T) {
	for _, val := range []any{int(1), int32(1), int64(1), uint(1), uint32(1), uint64(1), float32(1), float64(1)} {
		got, ok := asInt64(val)
		assert.True(t, ok)
		assert.Equal(t, int64(1), got)
	}

	_, ok := asInt64("1")
	assert.False(t, ok)
	_, ok = asInt64(time.Now())
	assert.False(t, ok)
}
