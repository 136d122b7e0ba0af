// Package engine decides, line by line, what happens to a command's output:
// which rules match, what is echoed, what is rendered to stdout or stderr and
// what ends up in the report.
package engine

import (
	"io"
	"sync"
	"sync/atomic"

	"cmdrunner/internal/errors"
	"cmdrunner/internal/format"
	"cmdrunner/internal/logging"
	"cmdrunner/internal/rules"
	"cmdrunner/internal/stats"
)

// Stream identifies where a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Options are the run-wide output switches.
type Options struct {
	// MissPass echoes lines that no rule matched.
	MissPass bool
	// MatchPass lets matching rules with passOutput echo the line.
	MatchPass bool
	// MatchStdout enables stdoutFormat output.
	MatchStdout bool
	// MatchStderr enables stderrFormat output.
	MatchStderr bool
}

// DefaultOptions has every switch on.
func DefaultOptions() Options {
	return Options{MissPass: true, MatchPass: true, MatchStdout: true, MatchStderr: true}
}

type compiledRule struct {
	*rules.Rule
	stdout *format.Template
	stderr *format.Template
	report *format.Template
}

// Engine is safe for concurrent use by one goroutine per stream.
type Engine struct {
	rules []compiledRule
	set   rules.Set
	opts  Options

	stdout *lineWriter
	stderr *lineWriter

	reportMu sync.Mutex
	report   []string

	failed atomic.Bool
}

// New compiles the output templates of every rule. stdout and report
// templates go through the interpreter; stderr templates are plain
// positional templates and their spec text is not interpreted.
func New(set rules.Set, in *format.Interpreter, opts Options, stdout, stderr io.Writer) (*Engine, error) {
	if in == nil {
		in = format.NewInterpreter(nil)
	}
	e := &Engine{
		set:    set,
		opts:   opts,
		stdout: &lineWriter{w: stdout},
		stderr: &lineWriter{w: stderr},
	}

	for i, r := range set {
		cr := compiledRule{Rule: r}
		var err error
		if r.StdoutFormat != "" {
			if cr.stdout, err = in.Compile(r.StdoutFormat); err != nil {
				return nil, ruleError(err, i, r, "stdoutFormat")
			}
		}
		if r.StderrFormat != "" {
			if cr.stderr, err = format.Parse(r.StderrFormat); err != nil {
				return nil, ruleError(err, i, r, "stderrFormat")
			}
		}
		if r.ReportFormat != "" {
			if cr.report, err = in.Compile(r.ReportFormat); err != nil {
				return nil, ruleError(err, i, r, "reportFormat")
			}
		}
		e.rules = append(e.rules, cr)
	}

	logger := logging.GetLogger("engine")
	logger.Debug().Int("rules", len(e.rules)).Msg("Engine ready")
	return e, nil
}

func ruleError(err error, index int, r *rules.Rule, field string) error {
	if re, ok := err.(*errors.RunnerError); ok {
		return re.WithDetail("rule", index).WithDetail("pattern", r.Pattern).WithDetail("field", field)
	}
	return err
}

// Process evaluates one line. Empty lines are dropped. A returned error is
// fatal for the whole run: either a template did not fit the captures of its
// pattern or an output could not be written.
func (e *Engine) Process(line string, stream Stream) error {
	if line == "" {
		return nil
	}

	matched := false
	passed := false

	for _, r := range e.rules {
		if stream == Stdout && !r.ProcessStdOut || stream == Stderr && !r.ProcessStdErr {
			continue
		}

		captures, ok := r.Match(line)
		if !ok {
			continue
		}
		matched = true

		if r.PassOutput && e.opts.MatchPass && !passed {
			passed = true
			if err := e.pass(line, stream); err != nil {
				return err
			}
		}

		if r.stdout != nil && e.opts.MatchStdout {
			out, err := r.stdout.Render(captures)
			if err != nil {
				return renderError(err, r, "stdout")
			}
			if err := e.stdout.WriteLine(out); err != nil {
				return writeError(err, Stdout)
			}
		}

		if r.stderr != nil && e.opts.MatchStderr {
			out, err := r.stderr.Render(captures)
			if err != nil {
				return renderError(err, r, "stderr")
			}
			if err := e.stderr.WriteLine(out); err != nil {
				return writeError(err, Stderr)
			}
		}

		if r.report != nil {
			if err := e.appendReport(r, captures); err != nil {
				return err
			}
		}

		if r.SetError {
			e.MarkError()
		}

		if r.StopProcessing {
			break
		}
	}

	if !matched && e.opts.MissPass {
		return e.pass(line, stream)
	}
	return nil
}

func (e *Engine) appendReport(r compiledRule, captures []string) error {
	e.reportMu.Lock()
	defer e.reportMu.Unlock()

	out, err := r.report.Render(captures)
	if err != nil {
		return renderError(err, r, "report")
	}
	e.report = append(e.report, out)
	return nil
}

func (e *Engine) pass(line string, stream Stream) error {
	w := e.stdout
	if stream == Stderr {
		w = e.stderr
	}
	if err := w.WriteLine(line); err != nil {
		return writeError(err, stream)
	}
	return nil
}

func renderError(err error, r compiledRule, output string) error {
	return errors.Wrapf(err, errors.GetErrorCode(err), "%s format is incorrect", output).
		WithDetail("pattern", r.Pattern).
		WithDetail("output", output)
}

func writeError(err error, stream Stream) error {
	return errors.Wrapf(err, errors.ErrInternal, "writing %s", stream)
}

// MarkError sets the sticky error flag. It is never cleared.
func (e *Engine) MarkError() {
	e.failed.Store(true)
}

// Failed reports whether any setError rule has matched.
func (e *Engine) Failed() bool {
	return e.failed.Load()
}

// Report returns a copy of the report log in insertion order.
func (e *Engine) Report() []string {
	e.reportMu.Lock()
	defer e.reportMu.Unlock()
	return append([]string(nil), e.report...)
}

// Rules returns the rule set the engine evaluates.
func (e *Engine) Rules() rules.Set {
	return e.set
}

// StatsSnapshot returns the current counters of every rule.
func (e *Engine) StatsSnapshot() []stats.RuleStats {
	return e.set.Stats()
}

// Statistics renders the statistics report.
func (e *Engine) Statistics() string {
	return stats.String(e.StatsSnapshot())
}

// lineWriter serializes whole-line writes from both stream goroutines.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lineWriter) WriteLine(s string) error {
	if lw.w == nil {
		return nil
	}
	lw.mu.Lock()
	defer lw.mu.Unlock()

	buf := make([]byte, 0, len(s)+1)
	buf = append(buf, s...)
	buf = append(buf, '\n')
	_, err := lw.w.Write(buf)
	return err
}
