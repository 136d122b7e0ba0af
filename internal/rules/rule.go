package rules

import (
	"time"

	"cmdrunner/internal/errors"
	"cmdrunner/internal/stats"

	"github.com/dlclark/regexp2"
)

// Definition is a rule as written in a rule file. Unset flags take their
// defaults when compiled: passOutput, stopProcessing, processStdOut and
// processStdErr default to true, setError to false.
type Definition struct {
	Title          string `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Example        string `json:"example,omitempty" yaml:"example,omitempty" toml:"example,omitempty"`
	ShortPattern   string `json:"shortPattern,omitempty" yaml:"shortPattern,omitempty" toml:"shortPattern,omitempty"`
	Pattern        string `json:"pattern" yaml:"pattern" toml:"pattern"`
	IgnoreCase     *bool  `json:"ignoreCase,omitempty" yaml:"ignoreCase,omitempty" toml:"ignoreCase,omitempty"`
	PassOutput     *bool  `json:"passOutput,omitempty" yaml:"passOutput,omitempty" toml:"passOutput,omitempty"`
	StopProcessing *bool  `json:"stopProcessing,omitempty" yaml:"stopProcessing,omitempty" toml:"stopProcessing,omitempty"`
	SetError       *bool  `json:"setError,omitempty" yaml:"setError,omitempty" toml:"setError,omitempty"`
	ProcessStdOut  *bool  `json:"processStdOut,omitempty" yaml:"processStdOut,omitempty" toml:"processStdOut,omitempty"`
	ProcessStdErr  *bool  `json:"processStdErr,omitempty" yaml:"processStdErr,omitempty" toml:"processStdErr,omitempty"`
	StdoutFormat   string `json:"stdoutFormat,omitempty" yaml:"stdoutFormat,omitempty" toml:"stdoutFormat,omitempty"`
	StderrFormat   string `json:"stderrFormat,omitempty" yaml:"stderrFormat,omitempty" toml:"stderrFormat,omitempty"`
	ReportFormat   string `json:"reportFormat,omitempty" yaml:"reportFormat,omitempty" toml:"reportFormat,omitempty"`
}

// Bool returns a pointer to v, for filling Definition flags.
func Bool(v bool) *bool {
	return &v
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Validate checks the definition without compiling it.
func (d Definition) Validate() error {
	if d.Pattern == "" {
		return errors.New(errors.ErrRuleInvalid, "rule has no pattern").
			WithDetail("title", d.Title)
	}
	return nil
}

// Compile validates the definition and compiles its patterns.
func (d Definition) Compile(opts CompileOptions) (*Rule, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	r := &Rule{
		Title:          d.Title,
		Description:    d.Description,
		Example:        d.Example,
		Pattern:        d.Pattern,
		ShortPattern:   d.ShortPattern,
		IgnoreCase:     boolOr(d.IgnoreCase, opts.IgnoreCase),
		PassOutput:     boolOr(d.PassOutput, true),
		StopProcessing: boolOr(d.StopProcessing, true),
		SetError:       boolOr(d.SetError, false),
		ProcessStdOut:  boolOr(d.ProcessStdOut, true),
		ProcessStdErr:  boolOr(d.ProcessStdErr, true),
		StdoutFormat:   d.StdoutFormat,
		StderrFormat:   d.StderrFormat,
		ReportFormat:   d.ReportFormat,
	}
	opts.IgnoreCase = r.IgnoreCase

	full, err := compilePattern(d.Pattern, opts)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRuleInvalid, "invalid pattern %q", d.Pattern).
			WithDetail("title", d.Title)
	}
	r.full = full

	if d.ShortPattern != "" {
		short, err := NewRegexPrefilter(d.ShortPattern, opts)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrRuleInvalid, "invalid short pattern %q", d.ShortPattern).
				WithDetail("title", d.Title)
		}
		r.short = short
		r.prefilters = append(r.prefilters, short)
	}
	return r, nil
}

// Rule is a compiled matching unit. Its configuration is read-only after
// Compile; only the statistics counters change.
type Rule struct {
	Title          string
	Description    string
	Example        string
	Pattern        string
	ShortPattern   string
	IgnoreCase     bool
	PassOutput     bool
	StopProcessing bool
	SetError       bool
	ProcessStdOut  bool
	ProcessStdErr  bool
	StdoutFormat   string
	StderrFormat   string
	ReportFormat   string

	short      *RegexPrefilter
	prefilters []Prefilter
	full       *regexp2.Regexp
	fullStats  Counter
}

// AddPrefilter appends a gate after the existing ones. It must be called
// before the rule is used for matching.
func (r *Rule) AddPrefilter(p Prefilter) {
	r.prefilters = append(r.prefilters, p)
}

// Match runs the prefilter chain and then the full pattern. On success it
// returns the capture groups: group 0 is the whole match, followed by the
// groups of the pattern in definition order. An empty line never matches and
// records nothing.
func (r *Rule) Match(line string) ([]string, bool) {
	if line == "" {
		return nil, false
	}

	for _, p := range r.prefilters {
		if !p.Allow(line) {
			return nil, false
		}
	}

	start := time.Now()
	m, err := r.full.FindStringMatch(line)
	elapsed := time.Since(start)
	if err != nil {
		logMatchError(r.full, err)
		m = nil
	}
	r.fullStats.Observe(m != nil, elapsed)
	if m == nil {
		return nil, false
	}

	groups := m.Groups()
	captures := make([]string, len(groups))
	for i := range groups {
		captures[i] = groups[i].String()
	}
	return captures, true
}

// Stats snapshots the rule's documentation and counters.
func (r *Rule) Stats() stats.RuleStats {
	s := stats.RuleStats{
		Title:        r.Title,
		Description:  r.Description,
		Example:      r.Example,
		Pattern:      r.Pattern,
		ShortPattern: r.ShortPattern,
		Full:         r.fullStats.Snapshot(),
	}
	if r.short != nil {
		s.Short = r.short.Stats()
	}
	return s
}

// Definition converts the rule back to its file form with every flag set.
func (r *Rule) Definition() Definition {
	d := Definition{
		Title:          r.Title,
		Description:    r.Description,
		Example:        r.Example,
		ShortPattern:   r.ShortPattern,
		Pattern:        r.Pattern,
		PassOutput:     Bool(r.PassOutput),
		StopProcessing: Bool(r.StopProcessing),
		SetError:       Bool(r.SetError),
		ProcessStdOut:  Bool(r.ProcessStdOut),
		ProcessStdErr:  Bool(r.ProcessStdErr),
		StdoutFormat:   r.StdoutFormat,
		StderrFormat:   r.StderrFormat,
		ReportFormat:   r.ReportFormat,
	}
	if r.IgnoreCase {
		d.IgnoreCase = Bool(true)
	}
	return d
}

// Set is an ordered list of compiled rules.
type Set []*Rule

// Stats snapshots every rule in order.
func (s Set) Stats() []stats.RuleStats {
	out := make([]stats.RuleStats, len(s))
	for i, r := range s {
		out[i] = r.Stats()
	}
	return out
}

// Definitions converts every rule back to its file form.
func (s Set) Definitions() []Definition {
	out := make([]Definition, len(s))
	for i, r := range s {
		out[i] = r.Definition()
	}
	return out
}
