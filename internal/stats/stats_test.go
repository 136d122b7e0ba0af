package stats

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketAverage(t *testing.T) {
	p := PatternStats{
		Hits:   Bucket{Count: 3, Duration: 30 * time.Millisecond},
		Misses: Bucket{Count: 2, Duration: 20 * time.Millisecond},
	}
	total := p.Total()
	assert.Equal(t, int64(5), total.Count)
	assert.Equal(t, 50*time.Millisecond, total.Duration)
	assert.Equal(t, 10*time.Millisecond, total.Average())

	assert.Equal(t, time.Duration(0), Bucket{}.Average())
	assert.Equal(t, time.Duration(0), PatternStats{}.Total().Average())
}

func TestSummarize(t *testing.T) {
	rules := []RuleStats{
		{Full: PatternStats{Hits: Bucket{Count: 1, Duration: time.Millisecond}}},
		{
			Full:  PatternStats{Misses: Bucket{Count: 4, Duration: 4 * time.Millisecond}},
			Short: PatternStats{Hits: Bucket{Count: 4}, Misses: Bucket{Count: 6}},
		},
	}
	sum := Summarize(rules)
	assert.Equal(t, 2, sum.Rules)
	assert.Equal(t, int64(1), sum.Full.Hits.Count)
	assert.Equal(t, int64(4), sum.Full.Misses.Count)
	assert.Equal(t, int64(10), sum.Short.Total().Count)
	assert.Equal(t, time.Millisecond, sum.Full.Total().Average())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{1500 * time.Microsecond, "00:00:00.0015000"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{26 * time.Hour, "1.02:00:00"},
		{150 * time.Nanosecond, "00:00:00.0000001"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

func TestRenderLayout(t *testing.T) {
	rules := []RuleStats{{
		Title:   "T",
		Pattern: "abc",
		Full: PatternStats{
			Hits:   Bucket{Count: 3, Duration: 30 * time.Millisecond},
			Misses: Bucket{Count: 2, Duration: 20 * time.Millisecond},
		},
	}}

	want := strings.Join([]string{
		"Number of Rules: 1",
		"Title: T",
		"Pattern: abc",
		"  Hits:   3 Duration 00:00:00.0300000 (Avg: 00:00:00.0100000)",
		"  Misses: 2 Duration 00:00:00.0200000 (Avg: 00:00:00.0100000)",
		"  Total:  5 Duration 00:00:00.0500000 (Avg: 00:00:00.0100000)",
		"Pattern Hits:         3 Duration 00:00:00.0300000 (Avg: 00:00:00.0100000)",
		"Pattern Misses:       2 Duration 00:00:00.0200000 (Avg: 00:00:00.0100000)",
		"Pattern Total:        5 Duration 00:00:00.0500000 (Avg: 00:00:00.0100000)",
		"Short Pattern Hits:   0 Duration 00:00:00 (Avg: 00:00:00)",
		"Short Pattern Misses: 0 Duration 00:00:00 (Avg: 00:00:00)",
		"Short Pattern Total:  0 Duration 00:00:00 (Avg: 00:00:00)",
	}, "\n") + "\n"

	assert.Equal(t, want, String(rules))
}

func TestRenderShortPatternAndWidth(t *testing.T) {
	rules := []RuleStats{{
		Description:  "d",
		Example:      "e",
		Pattern:      "p",
		ShortPattern: "s",
		Full:         PatternStats{Hits: Bucket{Count: 10}},
		Short:        PatternStats{Hits: Bucket{Count: 10}, Misses: Bucket{Count: 90}},
	}}
	out := String(rules)

	assert.Contains(t, out, "Description: d\nExample: e\nPattern: p\n")
	assert.NotContains(t, out, "Title:")
	assert.Contains(t, out, "  Hits:   10 Duration")
	assert.Contains(t, out, "  Short Pattern: s\n")
	assert.Contains(t, out, "    Hits:    10 Duration")
	assert.Contains(t, out, "    Misses:  90 Duration")
	assert.Contains(t, out, "    Total:  100 Duration")
	assert.Contains(t, out, "Short Pattern Total:  100 Duration")
	assert.Contains(t, out, "Pattern Hits:          10 Duration")
}

func TestRenderNoRules(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Render(&sb, nil))
	assert.Equal(t, "Number of Rules: 0\n", sb.String())
}
