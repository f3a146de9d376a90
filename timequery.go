package influxrel

import (
	"fmt"
	"strconv"
	"time"
)

// Unit is a symbolic time-bucket alias resolved through the fixed alias
// table. Unknown units render as "1" plus the unit name, so "1custom" style
// buckets pass through untouched.
type Unit string

// Symbolic duration aliases.
const (
	Hour        Unit = "hour"
	Minute      Unit = "minute"
	Second      Unit = "second"
	Millisecond Unit = "ms"
	Microsecond Unit = "u"
	Week        Unit = "week"
	Day         Unit = "day"
	Month       Unit = "month"
	Year        Unit = "year"
)

var timeAliases = map[Unit]string{
	Hour:        "1h",
	Minute:      "1m",
	Second:      "1s",
	Millisecond: "1ms",
	Microsecond: "1u",
	Week:        "1w",
	Day:         "1d",
	Month:       "30d",
	Year:        "365d",
}

// resolveUnit maps a symbolic alias to its duration literal.
func resolveUnit(u Unit) string {
	if alias, ok := timeAliases[u]; ok {
		return alias
	}
	return "1" + string(u)
}

// Time sets the time-bucket for the group-by clause; only one bucket exists
// per relation, last call wins. The spec is either a Unit alias or a literal
// duration string. An optional fill value may follow:
//
//	metrics.All(ctx).Time(influxrel.Hour)
//	// select * from "metrics" group by time(1h)
//
//	metrics.All(ctx).Time("4d", 0)
//	// select * from "metrics" group by time(4d) fill(0)
func (r *Relation) Time(spec any, fill ...any) *Relation {
	switch v := spec.(type) {
	case Unit:
		r.values.SetSingle(keyTime, resolveUnit(v))
	case string:
		r.values.SetSingle(keyTime, v)
	default:
		r.values.SetSingle(keyTime, fmt.Sprintf("%v", spec))
	}
	if len(fill) > 0 {
		r.buildFill(fill[0])
	}
	return r
}

// fillReserved are the fill words rendered unquoted as-is.
var fillReserved = map[string]struct{}{
	"null": {}, "previous": {}, "none": {},
}

// buildFill normalizes a fill option: reserved words stay literal words,
// anything else coerces to an integer.
func (r *Relation) buildFill(val any) {
	if val == nil {
		return
	}
	if s, ok := val.(string); ok {
		if _, reserved := fillReserved[s]; reserved {
			r.Fill(s)
			return
		}
		n, _ := strconv.Atoi(s)
		r.Fill(n)
		return
	}
	if n, ok := asInt64(val); ok {
		r.Fill(n)
		return
	}
	r.Fill(0)
}

// Past adds a relative time predicate: time > now() - duration. Unit
// aliases resolve through the alias table, strings pass through verbatim,
// and durations or numerics render as integer seconds:
//
//	metrics.All(ctx).Past(influxrel.Hour)    // time > now() - 1h
//	metrics.All(ctx).Past("3d")              // time > now() - 3d
//	metrics.All(ctx).Past(2 * 24 * time.Hour) // time > now() - 172800s
func (r *Relation) Past(spec any) *Relation {
	switch v := spec.(type) {
	case Unit:
		return r.Where(fmt.Sprintf("time > now() - %s", resolveUnit(v)))
	case string:
		return r.Where(fmt.Sprintf("time > now() - %s", v))
	case time.Duration:
		return r.Where(fmt.Sprintf("time > now() - %ds", int64(v.Seconds())))
	default:
		if n, ok := asInt64(spec); ok {
			return r.Where(fmt.Sprintf("time > now() - %ds", n))
		}
		return r.Where(fmt.Sprintf("time > now() - %v", spec))
	}
}

// Since adds a lower time bound as integer seconds:
//
//	metrics.All(ctx).Since(time.Date(2014, 12, 31, 0, 0, 0, 0, time.UTC))
//	// time > 1419984000s
func (r *Relation) Since(val any) *Relation {
	switch v := val.(type) {
	case time.Time:
		return r.Where(fmt.Sprintf("time > %ds", v.Unix()))
	default:
		if n, ok := asInt64(val); ok {
			return r.Where(fmt.Sprintf("time > %ds", n))
		}
		return r.Where(fmt.Sprintf("time > %vs", val))
	}
}
