package runner

import (
	"bytes"
	"context"
	"testing"
	"time"

	"cmdrunner/internal/errors"
	"cmdrunner/internal/rules"
	"cmdrunner/pkg/outputlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOf(chunks ...outputlog.Chunk) *outputlog.Reader {
	var buf bytes.Buffer
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, c := range chunks {
		c.Timestamp = ts
		buf.Write(outputlog.FormatChunk(c))
	}
	return outputlog.NewReader(&buf)
}

func chunk(stream, data string) outputlog.Chunk {
	return outputlog.Chunk{Stream: stream, Line: []byte(data)}
}

func TestReplayMatchesLiveRun(t *testing.T) {
	def := rules.Definition{
		Pattern:      `^warn: (.+)$`,
		StdoutFormat: "W {1}",
		ReportFormat: "{1}",
		PassOutput:   rules.Bool(false),
	}
	commands := []string{
		"echo one; echo 'warn: disk' >&2; echo two",
		"echo 'warn: late'; exit 3",
	}

	live := newHarness(t, def)
	var capture bytes.Buffer
	w := outputlog.NewWriter(&capture)
	summary := live.run(t, Options{Capture: w}, commands...)
	require.NoError(t, w.Close())

	replayed := newHarness(t, def)
	got, err := Replay(context.Background(), replayed.engine, outputlog.NewReader(&capture), Policy{})
	require.NoError(t, err)

	assert.Equal(t, live.stdout.String(), replayed.stdout.String())
	assert.Equal(t, live.stderr.String(), replayed.stderr.String())
	assert.Equal(t, live.engine.Report(), replayed.engine.Report())
	assert.Equal(t, summary.ExitCode, got.ExitCode)
	require.Len(t, got.Results, 2)
	assert.Equal(t, commands[0], got.Results[0].Command)
	assert.Equal(t, 3, got.Results[1].ExitCode)
}

func TestReplayPolicies(t *testing.T) {
	h := newHarness(t)
	r := captureOf(
		chunk(outputlog.StreamCommand, "first\n"),
		chunk(outputlog.StreamStdout, "a\n"),
		chunk(outputlog.StreamExit, "2\n"),
		chunk(outputlog.StreamCommand, "second\n"),
		chunk(outputlog.StreamStdout, "b\n"),
		chunk(outputlog.StreamExit, "0\n"),
	)
	summary, err := Replay(context.Background(), h.engine, r, Policy{StopOnError: true})
	require.NoError(t, err)

	assert.Equal(t, "a\n", h.stdout.String())
	assert.Equal(t, 2, summary.ExitCode)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "first", summary.Results[0].Command)
}

func TestReplayWithoutExitChunk(t *testing.T) {
	h := newHarness(t, rules.Definition{Pattern: "^ERROR", SetError: rules.Bool(true)})
	r := captureOf(
		chunk(outputlog.StreamStdout, "x\r\nERROR y\n"),
		chunk("note", "ignored\n"),
	)
	summary, err := Replay(context.Background(), h.engine, r, Policy{})
	require.NoError(t, err)

	assert.Equal(t, "x\nERROR y\n", h.stdout.String())
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 0, summary.Results[0].ExitCode)
	assert.Equal(t, 1, summary.ExitCode)
}

func TestReplayErrors(t *testing.T) {
	t.Run("invalid_exit_status", func(t *testing.T) {
		h := newHarness(t)
		_, err := Replay(context.Background(), h.engine, captureOf(chunk(outputlog.StreamExit, "nope\n")), Policy{})
		assert.True(t, errors.IsErrorCode(err, errors.ErrCapture))
	})

	t.Run("truncated", func(t *testing.T) {
		h := newHarness(t)
		r := outputlog.NewReader(bytes.NewBufferString("stdout 2026-01-02T03:04:05.000000000Z 10: abc"))
		_, err := Replay(context.Background(), h.engine, r, Policy{})
		assert.True(t, errors.IsErrorCode(err, errors.ErrCapture))
	})

	t.Run("cancelled", func(t *testing.T) {
		h := newHarness(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Replay(ctx, h.engine, captureOf(chunk(outputlog.StreamStdout, "a\n")), Policy{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
