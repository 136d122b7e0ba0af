package outputlog

import (
	"fmt"
	"time"
)

// Stream names written by cmdrunner.
const (
	StreamStdout  = "stdout"
	StreamStderr  = "stderr"
	StreamCommand = "command"
	StreamExit    = "exit"
)

// TimestampFormat is the layout used when writing chunks.
const TimestampFormat = "2006-01-02T15:04:05.000000000Z"

// Chunk is one record of the capture file.
type Chunk struct {
	Stream    string
	Timestamp time.Time // UTC
	Line      []byte    // may include a trailing newline
}

// FormatChunk encodes a chunk.
func FormatChunk(chunk Chunk) []byte {
	timestamp := chunk.Timestamp.UTC().Format(TimestampFormat)
	out := fmt.Appendf(nil, "%s %s %d: ", chunk.Stream, timestamp, len(chunk.Line))
	out = append(out, chunk.Line...)
	return append(out, '\n')
}

// ValidStream reports whether name can be used as a stream name.
func ValidStream(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_', c == '.', c == '/', c == '-':
		default:
			return false
		}
	}
	return true
}
