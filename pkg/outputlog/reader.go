package outputlog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Reader decodes chunks one at a time.
type Reader struct {
	br    *bufio.Reader
	chunk int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// Next returns the next chunk, or io.EOF after the last complete one. A file
// that ends in the middle of a chunk yields io.ErrUnexpectedEOF.
func (r *Reader) Next() (Chunk, error) {
	var chunk Chunk

	stream, err := r.br.ReadString(' ')
	if err != nil {
		if err == io.EOF && stream == "" {
			return chunk, io.EOF
		}
		return chunk, r.errorf("reading stream", unexpected(err))
	}
	chunk.Stream = stream[:len(stream)-1]
	if !ValidStream(chunk.Stream) {
		return chunk, r.errorf("reading stream", fmt.Errorf("invalid stream name %q", chunk.Stream))
	}

	timestamp, err := r.br.ReadString(' ')
	if err != nil {
		return chunk, r.errorf("reading timestamp", unexpected(err))
	}
	chunk.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp[:len(timestamp)-1])
	if err != nil {
		return chunk, r.errorf("parsing timestamp", err)
	}

	length, err := r.br.ReadString(':')
	if err != nil {
		return chunk, r.errorf("reading length", unexpected(err))
	}
	n, err := strconv.Atoi(length[:len(length)-1])
	if err != nil || n < 0 {
		return chunk, r.errorf("parsing length", fmt.Errorf("invalid length %q", length[:len(length)-1]))
	}

	if b, err := r.br.ReadByte(); err != nil {
		return chunk, r.errorf("reading separator", unexpected(err))
	} else if b != ' ' {
		return chunk, r.errorf("reading separator", fmt.Errorf("expected space after colon, got %q", b))
	}

	chunk.Line = make([]byte, n)
	if _, err := io.ReadFull(r.br, chunk.Line); err != nil {
		return chunk, r.errorf(fmt.Sprintf("reading content (%d bytes)", n), unexpected(err))
	}

	if b, err := r.br.ReadByte(); err != nil {
		return chunk, r.errorf("reading final newline", unexpected(err))
	} else if b != '\n' {
		return chunk, r.errorf("reading final newline", fmt.Errorf("expected newline separator, got %q", b))
	}

	r.chunk++
	return chunk, nil
}

func (r *Reader) errorf(step string, err error) error {
	return fmt.Errorf("chunk %d: %s: %w", r.chunk+1, step, err)
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
