package outputlog

import (
	"fmt"
	"io"
	"time"
)

// Writer records chunks. A single goroutine owns the underlying io.Writer;
// Record and RecordLine may be called from any goroutine until Close.
type Writer struct {
	chunks chan Chunk
	done   chan struct{}
	err    error
	now    func() time.Time
}

// NewWriter starts the goroutine that writes to w. It runs until Close.
func NewWriter(w io.Writer) *Writer {
	ow := &Writer{
		chunks: make(chan Chunk, 100),
		done:   make(chan struct{}),
		now:    func() time.Time { return time.Now().UTC() },
	}

	go func() {
		defer close(ow.done)
		for chunk := range ow.chunks {
			if ow.err != nil {
				continue
			}
			if _, err := w.Write(FormatChunk(chunk)); err != nil {
				ow.err = fmt.Errorf("writing %s chunk: %w", chunk.Stream, err)
			}
		}
	}()

	return ow
}

// Record queues one chunk with the current time. data is copied.
func (o *Writer) Record(stream string, data []byte) {
	o.chunks <- Chunk{
		Stream:    stream,
		Timestamp: o.now(),
		Line:      append([]byte(nil), data...),
	}
}

// RecordLine records line followed by a newline.
func (o *Writer) RecordLine(stream, line string) {
	data := make([]byte, 0, len(line)+1)
	data = append(data, line...)
	o.Record(stream, append(data, '\n'))
}

// Close flushes pending chunks and returns the first write error.
func (o *Writer) Close() error {
	close(o.chunks)
	<-o.done
	return o.err
}
