// Package stats aggregates and renders per-rule pattern statistics.
package stats

import (
	"time"
)

// Bucket is a count of observations and their cumulative duration.
type Bucket struct {
	Count    int64
	Duration time.Duration
}

// Add returns the sum of two buckets.
func (b Bucket) Add(o Bucket) Bucket {
	return Bucket{Count: b.Count + o.Count, Duration: b.Duration + o.Duration}
}

// Average is zero for an empty bucket.
func (b Bucket) Average() time.Duration {
	if b.Count == 0 {
		return 0
	}
	return b.Duration / time.Duration(b.Count)
}

// PatternStats holds the hit and miss buckets of one pattern.
type PatternStats struct {
	Hits   Bucket
	Misses Bucket
}

// Total combines hits and misses.
func (p PatternStats) Total() Bucket {
	return p.Hits.Add(p.Misses)
}

// Add returns the bucket-wise sum.
func (p PatternStats) Add(o PatternStats) PatternStats {
	return PatternStats{Hits: p.Hits.Add(o.Hits), Misses: p.Misses.Add(o.Misses)}
}

// RuleStats is a snapshot of one rule's documentation and counters.
type RuleStats struct {
	Title        string
	Description  string
	Example      string
	Pattern      string
	ShortPattern string // empty when the rule has no short pattern
	Full         PatternStats
	Short        PatternStats
}

// HasShort reports whether the rule was configured with a short pattern.
func (r RuleStats) HasShort() bool {
	return r.ShortPattern != ""
}

// Summary is the global aggregate over a rule set.
type Summary struct {
	Rules int
	Full  PatternStats
	Short PatternStats
}

// Summarize sums the counters of every rule.
func Summarize(rules []RuleStats) Summary {
	s := Summary{Rules: len(rules)}
	for _, r := range rules {
		s.Full = s.Full.Add(r.Full)
		s.Short = s.Short.Add(r.Short)
	}
	return s
}
