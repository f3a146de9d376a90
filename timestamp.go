package influxrel

import (
	"fmt"
	"strconv"
	"time"
)

// precisionFactors maps a client precision to the factor that converts a
// seconds-scale value into that precision.
var precisionFactors = map[string]int64{
	"ns": 1_000_000_000,
	"u":  1_000_000,
	"ms": 1_000,
	"s":  1,
}

// timestampLayouts are tried in order when normalizing string timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// writeTimestamp converts a timestamp value into an integer in the unit
// demanded by precision. Numeric inputs are assumed seconds-scale and
// multiplied by the precision factor; times and parseable strings convert
// exactly.
//
// Under an unsupported precision a numeric value passes through unconverted
// (the caller already owns its scale) and anything else is an
// UnsupportedPrecisionError: writes must not silently corrupt timestamps.
func writeTimestamp(val any, precision string) (int64, error) {
	factor, supported := precisionFactors[precision]

	if num, ok := asInt64(val); ok {
		if !supported {
			return num, nil
		}
		return num * factor, nil
	}

	if !supported {
		return 0, &UnsupportedPrecisionError{Precision: precision, Value: val}
	}

	switch v := val.(type) {
	case time.Time:
		return scaleTime(v, precision), nil
	case string:
		t, err := parseTimestamp(v)
		if err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", v, err)
		}
		return scaleTime(t, precision), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to a timestamp", val)
	}
}

// queryTimestamp renders a timestamp for use inside a query filter. Read
// filters are advisory, so an inconvertible value degrades to a warning and
// a verbatim passthrough instead of an error.
func queryTimestamp(val any, precision string) string {
	ts, err := writeTimestamp(val, precision)
	if err != nil {
		logger.Warn().
			Str("precision", precision).
			Interface("value", val).
			Msg("timestamp left unconverted in query filter")
		return fmt.Sprintf("%v", val)
	}
	return strconv.FormatInt(ts, 10)
}

// scaleTime converts a time.Time into the given supported precision.
func scaleTime(t time.Time, precision string) int64 {
	switch precision {
	case "ns":
		return t.UnixNano()
	case "u":
		return t.UnixMicro()
	case "ms":
		return t.UnixMilli()
	default:
		return t.Unix()
	}
}

// parseTimestamp parses a string timestamp using the known layouts.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized layout")
}

// asInt64 reports whether val is a plain numeric and returns it truncated to
// seconds-scale integer semantics.
func asInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
