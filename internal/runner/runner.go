// Package runner runs shell commands and feeds their output, line by line,
// through the engine.
package runner

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cmdrunner/internal/engine"
	"cmdrunner/internal/errors"
	"cmdrunner/internal/logging"
	"cmdrunner/internal/sysmon"
	"cmdrunner/pkg/outputlog"

	"golang.org/x/sync/errgroup"
)

// Options configure how commands are started.
type Options struct {
	Policy

	// Shell runs each command as Shell -c command.
	Shell string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Stdin is passed to every command. Nil means no input.
	Stdin io.Reader
	// PTY gives commands a pseudo-terminal as stdout.
	PTY bool
	// Sample polls the resource usage of each command.
	Sample bool
	// Capture, when set, records every line and exit status.
	Capture *outputlog.Writer
}

// Runner runs commands against one engine, so rule statistics, the report
// and the sticky error accumulate over all of them.
type Runner struct {
	engine *engine.Engine
	opts   Options
}

func New(e *engine.Engine, opts Options) *Runner {
	if opts.Shell == "" {
		opts.Shell = "sh"
	}
	return &Runner{engine: e, opts: opts}
}

type line struct {
	stream engine.Stream
	text   string
}

// Run runs the commands in order. The returned error is fatal: a rule could
// not render its output. Commands that fail to start are not fatal; they
// count as status 1.
func (r *Runner) Run(ctx context.Context, commands []string) (Summary, error) {
	start := time.Now()
	t := tracker{policy: r.opts.Policy, engine: r.engine}
	var summary Summary

	for i, command := range commands {
		res, err := r.RunCommand(ctx, command)
		if err != nil {
			summary.Results = append(summary.Results, res)
			summary.Elapsed = time.Since(start)
			return summary, err
		}
		stop := t.add(&res)
		summary.Results = append(summary.Results, res)

		if stop {
			logger := logging.GetLogger("runner")
			logger.Info().
				Int("status", res.Status).
				Int("skipped", len(commands)-i-1).
				Msg("Stopping after failed command")
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	summary.ExitCode = t.final()
	summary.Elapsed = time.Since(start)
	return summary, nil
}

// RunCommand runs one command to completion.
func (r *Runner) RunCommand(ctx context.Context, command string) (res Result, err error) {
	logger := logging.GetLogger("runner")
	res.Command = command
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.opts.Capture != nil {
		r.opts.Capture.RecordLine(outputlog.StreamCommand, command)
	}

	stdoutR, stdoutW, err := stdoutPipe(r.opts.PTY)
	if err != nil {
		return res, errors.Wrap(err, errors.ErrInternal, "failed to create stdout pipe")
	}
	defer func() { _ = stdoutR.Close() }()
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdoutW.Close()
		return res, errors.Wrap(err, errors.ErrInternal, "failed to create stderr pipe")
	}
	defer func() { _ = stderrR.Close() }()

	cmd := exec.CommandContext(ctx, r.opts.Shell, "-c", command)
	cmd.Dir = r.opts.Dir
	cmd.Stdin = r.opts.Stdin
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	// New session, so cancellation can kill everything the command started.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	logger.Info().Str("command", command).Str("dir", r.opts.Dir).Bool("pty", r.opts.PTY).Msg("Starting command")
	startErr := cmd.Start()
	// The child holds its own copies; ours must go so readers see EOF.
	_ = stdoutW.Close()
	_ = stderrW.Close()
	if startErr != nil {
		res.ExitCode = 1
		res.StartErr = errors.Wrapf(startErr, errors.ErrCommandStart, "could not start %q", command)
		logger.Error().Err(startErr).Str("command", command).Msg("Could not start command")
		r.recordExit(res.ExitCode)
		return res, nil
	}

	var sampler *sysmon.Sampler
	if r.opts.Sample {
		sampler = sysmon.Start(cmd.Process.Pid, 0)
	}

	intake := make(chan line, 100)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return readLines(gctx, stdoutR, engine.Stdout, intake) })
	g.Go(func() error { return readLines(gctx, stderrR, engine.Stderr, intake) })
	go func() {
		if err := g.Wait(); err != nil && !stderrors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("Reading command output failed")
		}
		close(intake)
	}()

	var fatal error
	for l := range intake {
		if fatal != nil {
			continue
		}
		if r.opts.Capture != nil {
			r.opts.Capture.RecordLine(l.stream.String(), l.text)
		}
		if err := r.engine.Process(l.text, l.stream); err != nil {
			fatal = err
			logger.Debug().Err(err).Msg("Aborting command")
			cancel()
		}
	}

	waitErr := cmd.Wait()
	if sampler != nil {
		res.Usage = sampler.Stop()
	}
	if cmd.ProcessState != nil {
		res.UserTime = cmd.ProcessState.UserTime()
		res.SystemTime = cmd.ProcessState.SystemTime()
	}
	if fatal != nil {
		res.ExitCode = 1
		return res, fatal
	}

	res.ExitCode, res.Signal = exitStatus(waitErr)
	logger.Debug().
		Str("command", command).
		Int("exit_code", res.ExitCode).
		Str("signal", res.Signal).
		Dur("duration", time.Since(start)).
		Msg("Command finished")
	r.recordExit(res.ExitCode)
	return res, nil
}

func (r *Runner) recordExit(code int) {
	if r.opts.Capture != nil {
		r.opts.Capture.RecordLine(outputlog.StreamExit, strconv.Itoa(code))
	}
}

// readLines sends every line of rd to out. A final line without a newline
// is sent as well.
func readLines(ctx context.Context, rd io.Reader, stream engine.Stream, out chan<- line) error {
	br := bufio.NewReader(rd)
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			select {
			case out <- line{stream: stream, text: trimEOL(text)}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err != nil {
			if err == io.EOF || endOfStream(err) {
				return nil
			}
			return fmt.Errorf("reading %s: %w", stream, err)
		}
	}
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// exitStatus extracts the exit code and, for signaled commands, the signal
// name from the error returned by Wait.
func exitStatus(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var exitErr *exec.ExitError
	if !stderrors.As(err, &exitErr) {
		return 1, ""
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal()), status.Signal().String()
	}
	return exitErr.ExitCode(), ""
}
