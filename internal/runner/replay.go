package runner

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"cmdrunner/internal/engine"
	"cmdrunner/internal/errors"
	"cmdrunner/internal/logging"
	"cmdrunner/pkg/outputlog"
)

// Replay feeds a capture file through the engine as if its commands ran
// again. Exit statuses come from the capture; a command without a recorded
// exit status counts as 0.
func Replay(ctx context.Context, e *engine.Engine, r *outputlog.Reader, policy Policy) (Summary, error) {
	logger := logging.GetLogger("replay")
	start := time.Now()
	t := tracker{policy: policy, engine: e}
	var summary Summary

	var current *Result
	finish := func() bool {
		if current == nil {
			return false
		}
		stop := t.add(current)
		summary.Results = append(summary.Results, *current)
		current = nil
		return stop
	}
	done := func() (Summary, error) {
		summary.ExitCode = t.final()
		summary.Elapsed = time.Since(start)
		return summary, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		chunk, err := r.Next()
		if err == io.EOF {
			finish()
			return done()
		}
		if err != nil {
			return summary, errors.Wrap(err, errors.ErrCapture, "cannot read capture")
		}

		switch chunk.Stream {
		case outputlog.StreamCommand:
			if finish() {
				return done()
			}
			current = &Result{Command: strings.TrimSuffix(string(chunk.Line), "\n")}
			logger.Debug().Str("command", current.Command).Msg("Replaying command")

		case outputlog.StreamStdout, outputlog.StreamStderr:
			if current == nil {
				current = &Result{}
			}
			stream := engine.Stdout
			if chunk.Stream == outputlog.StreamStderr {
				stream = engine.Stderr
			}
			for _, text := range splitLines(chunk.Line) {
				if err := e.Process(text, stream); err != nil {
					return summary, err
				}
			}

		case outputlog.StreamExit:
			if current == nil {
				current = &Result{}
			}
			code, err := strconv.Atoi(strings.TrimSpace(string(chunk.Line)))
			if err != nil {
				return summary, errors.Wrapf(err, errors.ErrCapture, "invalid exit status %q", chunk.Line)
			}
			current.ExitCode = code
			if finish() {
				return done()
			}

		default:
			logger.Debug().Str("stream", chunk.Stream).Msg("Ignoring capture stream")
		}
	}
}

func splitLines(data []byte) []string {
	s := strings.TrimSuffix(string(data), "\n")
	if s == "" {
		return []string{""}
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines
}
