package rules

import (
	"time"

	"cmdrunner/internal/logging"
	"cmdrunner/internal/stats"

	"github.com/dlclark/regexp2"
)

// CompileOptions control how rule patterns are compiled.
type CompileOptions struct {
	IgnoreCase bool
	// Timeout bounds a single pattern evaluation. Zero means no limit.
	// A timed out evaluation counts as a miss.
	Timeout time.Duration
}

func compilePattern(expr string, opts CompileOptions) (*regexp2.Regexp, error) {
	var flags regexp2.RegexOptions
	if opts.IgnoreCase {
		flags |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(expr, flags)
	if err != nil {
		return nil, err
	}
	if opts.Timeout > 0 {
		re.MatchTimeout = opts.Timeout
	}
	return re, nil
}

// Prefilter is a gate evaluated before a rule's full pattern. A line the
// prefilter rejects never reaches the full pattern.
type Prefilter interface {
	Allow(line string) bool
	Stats() stats.PatternStats
	String() string
}

// RegexPrefilter gates on a regular expression. It is how a rule's short
// pattern is evaluated.
type RegexPrefilter struct {
	re      *regexp2.Regexp
	counter Counter
}

var _ Prefilter = &RegexPrefilter{}

// NewRegexPrefilter compiles expr into a prefilter.
func NewRegexPrefilter(expr string, opts CompileOptions) (*RegexPrefilter, error) {
	re, err := compilePattern(expr, opts)
	if err != nil {
		return nil, err
	}
	return &RegexPrefilter{re: re}, nil
}

func (p *RegexPrefilter) Allow(line string) bool {
	start := time.Now()
	ok, err := p.re.MatchString(line)
	elapsed := time.Since(start)
	if err != nil {
		logMatchError(p.re, err)
		ok = false
	}
	p.counter.Observe(ok, elapsed)
	return ok
}

func (p *RegexPrefilter) Stats() stats.PatternStats {
	return p.counter.Snapshot()
}

func (p *RegexPrefilter) String() string {
	return p.re.String()
}

func logMatchError(re *regexp2.Regexp, err error) {
	logger := logging.GetLogger("rules")
	logger.Warn().Err(err).Str("pattern", re.String()).Msg("Pattern evaluation failed, counting as miss")
}
