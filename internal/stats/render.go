package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Render writes the statistics report: the rule count, per-rule detail and,
// when there is at least one rule, the global totals.
func Render(w io.Writer, rules []RuleStats) error {
	ew := &errWriter{w: w}

	ew.printf("Number of Rules: %d\n", len(rules))
	for _, r := range rules {
		renderRule(ew, r)
	}

	if len(rules) > 0 {
		sum := Summarize(rules)
		width := digits(sum.Full.Total().Count + sum.Short.Total().Count)
		line := func(label string, b Bucket) {
			ew.printf("%-21s %*d Duration %s (Avg: %s)\n", label, width, b.Count, FormatDuration(b.Duration), FormatDuration(b.Average()))
		}
		line("Pattern Hits:", sum.Full.Hits)
		line("Pattern Misses:", sum.Full.Misses)
		line("Pattern Total:", sum.Full.Total())
		line("Short Pattern Hits:", sum.Short.Hits)
		line("Short Pattern Misses:", sum.Short.Misses)
		line("Short Pattern Total:", sum.Short.Total())
	}
	return ew.err
}

// String renders into a string.
func String(rules []RuleStats) string {
	var sb strings.Builder
	_ = Render(&sb, rules)
	return sb.String()
}

func renderRule(ew *errWriter, r RuleStats) {
	if r.Title != "" {
		ew.printf("Title: %s\n", r.Title)
	}
	if r.Description != "" {
		ew.printf("Description: %s\n", r.Description)
	}
	if r.Example != "" {
		ew.printf("Example: %s\n", r.Example)
	}
	ew.printf("Pattern: %s\n", r.Pattern)
	renderPattern(ew, "  ", r.Full)

	if r.HasShort() {
		ew.printf("  Short Pattern: %s\n", r.ShortPattern)
		renderPattern(ew, "    ", r.Short)
	}
}

func renderPattern(ew *errWriter, indent string, p PatternStats) {
	width := digits(p.Total().Count)
	line := func(label string, b Bucket) {
		ew.printf("%s%-7s %*d Duration %s (Avg: %s)\n", indent, label, width, b.Count, FormatDuration(b.Duration), FormatDuration(b.Average()))
	}
	line("Hits:", p.Hits)
	line("Misses:", p.Misses)
	line("Total:", p.Total())
}

// FormatDuration prints d as [d.]hh:mm:ss[.fffffff] with 100ns resolution.
// The fraction is omitted when it is zero.
func FormatDuration(d time.Duration) string {
	var sb strings.Builder
	if d < 0 {
		sb.WriteByte('-')
		d = -d
	}
	ticks := int64(d / 100)
	const (
		ticksPerSecond = int64(time.Second / 100)
		ticksPerMinute = 60 * ticksPerSecond
		ticksPerHour   = 60 * ticksPerMinute
		ticksPerDay    = 24 * ticksPerHour
	)
	days := ticks / ticksPerDay
	hours := ticks % ticksPerDay / ticksPerHour
	minutes := ticks % ticksPerHour / ticksPerMinute
	seconds := ticks % ticksPerMinute / ticksPerSecond
	fraction := ticks % ticksPerSecond

	if days > 0 {
		fmt.Fprintf(&sb, "%d.", days)
	}
	fmt.Fprintf(&sb, "%02d:%02d:%02d", hours, minutes, seconds)
	if fraction > 0 {
		fmt.Fprintf(&sb, ".%07d", fraction)
	}
	return sb.String()
}

func digits(n int64) int {
	return len(strconv.FormatInt(n, 10))
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
