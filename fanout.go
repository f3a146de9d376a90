package influxrel

import (
	"fmt"
	"regexp"
	"strings"
)

// buildFanout folds a where-condition on a declared fanout key into the
// series name instead of the where clause. A pattern value flips the whole
// constructed name into a regex.
func (r *Relation) buildFanout(key string, val any) {
	r.values.SetSingle(keyHasFanout, true)
	if re, ok := val.(*regexp.Regexp); ok {
		r.values.SetSingle(keyFanoutRegexp, true)
		r.values.Map(keyFanout)[key] = re.String()
		r.values.Map(keyFanoutPattern)[key] = "1"
		return
	}
	r.values.Map(keyFanout)[key] = fmt.Sprintf("%v", val)
}

// fanoutSeriesName builds the sharded series name: the base series suffixed
// with key/value pairs in declared-key order, keys absent from this query
// skipped. With any pattern value the result is an anchored, delimiter-
// escaped regex instead of a quoted literal.
func (r *Relation) fanoutSeriesName() string {
	base := r.metrics.rawSeries(r.instance)
	vals := r.values.Map(keyFanout)
	patterns := r.values.Map(keyFanoutPattern)
	delim := r.metrics.fanoutDelim

	if r.values.Bool(keyFanoutRegexp) {
		parts := []string{regexp.QuoteMeta(base)}
		for _, name := range r.metrics.fanouts {
			val, ok := vals[name]
			if !ok {
				continue
			}
			parts = append(parts, regexp.QuoteMeta(name))
			if patterns[name] != "" {
				parts = append(parts, val)
			} else {
				parts = append(parts, regexp.QuoteMeta(val))
			}
		}
		return "/^" + strings.Join(parts, regexp.QuoteMeta(delim)) + "$/"
	}

	parts := []string{base}
	for _, name := range r.metrics.fanouts {
		if val, ok := vals[name]; ok {
			parts = append(parts, name, val)
		}
	}
	return quoteIdent(strings.Join(parts, delim))
}

// fanoutDecodeRe compiles the pattern that recovers fanout key values from a
// shard's series name. Every declared key is an optional named capture, so
// one pattern decodes shards regardless of which keys this query specified.
func (m *Metrics) fanoutDecodeRe(base string) (*regexp.Regexp, error) {
	delim := regexp.QuoteMeta(m.fanoutDelim)
	var b strings.Builder
	b.WriteString("^")
	b.WriteString(regexp.QuoteMeta(base))
	for _, name := range m.fanouts {
		fmt.Fprintf(&b, "(?:%s%s%s(?P<%s>.+?))?", delim, regexp.QuoteMeta(name), delim, name)
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// fanoutCaptures matches a shard name against the decode pattern and
// returns the captured key/value pairs to inject into that shard's records.
// A shard that doesn't match contributes nothing.
func (m *Metrics) fanoutCaptures(shardName string, p *Point) map[string]string {
	re, err := m.fanoutDecodeRe(m.rawSeries(p))
	if err != nil {
		logger.Warn().Err(err).Str("series", shardName).Msg("fanout decode pattern failed to compile")
		return nil
	}
	match := re.FindStringSubmatch(shardName)
	if match == nil {
		return nil
	}
	captures := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name == "" || i >= len(match) || match[i] == "" {
			continue
		}
		captures[name] = match[i]
	}
	return captures
}
