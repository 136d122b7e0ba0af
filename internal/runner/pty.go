package runner

import (
	stderrors "errors"
	"os"
	"syscall"

	"cmdrunner/internal/config"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// ResolvePTY decides whether a command's stdout should be a pseudo-terminal.
// In auto mode that is the case when out is a terminal itself, so programs
// that color or page their output behave as they would without cmdrunner.
func ResolvePTY(mode string, out *os.File) bool {
	switch mode {
	case config.PTYAlways:
		return true
	case config.PTYAuto:
		return out != nil && term.IsTerminal(int(out.Fd()))
	default:
		return false
	}
}

// stdoutPipe returns the read and write ends for the command's stdout.
func stdoutPipe(usePTY bool) (*os.File, *os.File, error) {
	if usePTY {
		ptmx, tty, err := pty.Open()
		if err != nil {
			return nil, nil, err
		}
		_ = pty.Setsize(ptmx, &pty.Winsize{Rows: 50, Cols: 1000})
		return ptmx, tty, nil
	}
	return os.Pipe()
}

// endOfStream reports whether a read error just means the writer is gone. On
// Linux the pty master returns EIO once the last slave descriptor closes.
func endOfStream(err error) bool {
	return stderrors.Is(err, syscall.EIO) || stderrors.Is(err, os.ErrClosed)
}
