package outputlog

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// readAll concatenates the data of every chunk per stream until the first
// error or the end of the input.
func readAll(r *Reader) (map[string][]byte, error) {
	result := make(map[string][]byte)
	for {
		chunk, err := r.Next()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return result, err
		}
		result[chunk.Stream] = append(result[chunk.Stream], chunk.Line...)
	}
}

func TestFormatChunk(t *testing.T) {
	chunk := Chunk{
		Stream:    "stdout",
		Timestamp: time.Date(2025, 1, 7, 12, 34, 56, 789000000, time.UTC),
		Line:      []byte("Hello world\n"),
	}
	require.Equal(t, "stdout 2025-01-07T12:34:56.789000000Z 12: Hello world\n\n", string(FormatChunk(chunk)))

	chunk.Line = []byte("prompt>")
	require.Equal(t, "stdout 2025-01-07T12:34:56.789000000Z 7: prompt>\n", string(FormatChunk(chunk)))
}

func TestValidStream(t *testing.T) {
	require.True(t, ValidStream("stdout"))
	require.True(t, ValidStream("a.b/c-d_e"))
	require.False(t, ValidStream(""))
	require.False(t, ValidStream("has space"))
	require.False(t, ValidStream(strings.Repeat("x", 65)))
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.RecordLine(StreamCommand, "make all")
	w.Record(StreamStdout, []byte("line1\n"))
	w.RecordLine(StreamStderr, "warning")
	w.Record(StreamStdout, []byte{0x00, 0x01, 0xFF, '\n', 'x'})
	w.RecordLine(StreamExit, "2")
	require.NoError(t, w.Close())

	r := NewReader(&buf)
	var chunks []Chunk
	for {
		chunk, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}

	require.Len(t, chunks, 5)
	require.Equal(t, StreamCommand, chunks[0].Stream)
	require.Equal(t, "make all\n", string(chunks[0].Line))
	require.Equal(t, "line1\n", string(chunks[1].Line))
	require.Equal(t, StreamStderr, chunks[2].Stream)
	require.Equal(t, []byte{0x00, 0x01, 0xFF, '\n', 'x'}, chunks[3].Line)
	require.Equal(t, "2\n", string(chunks[4].Line))
	require.False(t, chunks[0].Timestamp.IsZero())
}

func TestWriterConcurrentStreams(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for _, stream := range []string{StreamStdout, StreamStderr} {
		wg.Add(1)
		go func(stream string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				w.RecordLine(stream, stream)
			}
		}(stream)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	all, err := readAll(NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("stdout\n", 50), string(all[StreamStdout]))
	require.Equal(t, strings.Repeat("stderr\n", 50), string(all[StreamStderr]))
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriterReportsFirstError(t *testing.T) {
	w := NewWriter(failingWriter{})
	w.RecordLine(StreamStdout, "a")
	w.RecordLine(StreamStdout, "b")

	err := w.Close()
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
}

func TestReaderAcceptsShortTimestamps(t *testing.T) {
	r := NewReader(strings.NewReader("stderr 2025-01-07T10:20:30Z 5: Error\n"))
	chunk, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "stderr", chunk.Stream)
	require.Equal(t, "Error", string(chunk.Line))
	require.True(t, chunk.Timestamp.Equal(time.Date(2025, 1, 7, 10, 20, 30, 0, time.UTC)))

	_, err = r.Next()
	require.Equal(t, io.EOF, err)
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"truncated content", "stdout 2025-01-07T10:20:30Z 10: short\n"},
		{"missing newline", "stdout 2025-01-07T10:20:30Z 2: abX"},
		{"bad timestamp", "stdout yesterday 2: ab\n"},
		{"bad length", "stdout 2025-01-07T10:20:30Z x: ab\n"},
		{"negative length", "stdout 2025-01-07T10:20:30Z -1: ab\n"},
		{"no space after colon", "stdout 2025-01-07T10:20:30Z 2:ab\n"},
		{"bad stream", "std@out 2025-01-07T10:20:30Z 2: ab\n"},
		{"truncated header", "stdout 2025-01-07"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tt.input)).Next()
			require.Error(t, err)
			require.NotEqual(t, io.EOF, err)
		})
	}
}

func TestReaderStopsAtTruncatedChunk(t *testing.T) {
	input := "stdout 2025-01-07T10:20:30Z 3: ok\n\nstdout 2025-01-07T10:20:30Z 9: cut"
	all, err := readAll(NewReader(strings.NewReader(input)))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Equal(t, "ok\n", string(all[StreamStdout]))
}
