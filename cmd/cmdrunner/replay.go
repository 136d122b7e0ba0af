package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cmdrunner/internal/errors"
	"cmdrunner/internal/runner"
	"cmdrunner/pkg/outputlog"

	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Feed a recorded capture through the rules again",
	Long: `replay reads a file written by --capture and sends every recorded line
through the rules as if the commands were running now. Exit statuses come
from the capture, so --stop-on-error, --sum-returns and the report behave as
in the recorded run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		e, err := buildEngine(cmd, s, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrapf(err, errors.ErrCapture, "cannot open capture %s", args[0])
		}
		defer func() { _ = f.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := runner.Replay(ctx, e, outputlog.NewReader(f), statusPolicy(cmd, s))
		if err != nil {
			return err
		}
		return finish(cmd, e, summary)
	},
}
