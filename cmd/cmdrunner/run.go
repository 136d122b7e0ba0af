package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cmdrunner/internal/config"
	"cmdrunner/internal/errors"
	"cmdrunner/internal/logging"
	"cmdrunner/internal/runner"
	"cmdrunner/pkg/outputlog"

	"github.com/spf13/cobra"
)

func runCommands(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	list, err := collectCommands(args)
	if err != nil {
		return err
	}
	e, err := buildEngine(cmd, s, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	opts := runner.Options{
		Policy: statusPolicy(cmd, s),
		Shell:  s.Run.Shell,
		Dir:    s.Run.Dir,
		Stdin:  os.Stdin,
		PTY:    runner.ResolvePTY(s.Run.PTY, os.Stdout),
		Sample: showTime || metricsFile != "",
	}

	var capture *outputlog.Writer
	if captureFile != "" {
		f, err := os.Create(captureFile)
		if err != nil {
			return errors.Wrapf(err, errors.ErrCapture, "cannot create capture file %s", captureFile)
		}
		defer func() { _ = f.Close() }()
		capture = outputlog.NewWriter(f)
		opts.Capture = capture
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := runner.New(e, opts).Run(ctx, list)
	if capture != nil {
		if err := capture.Close(); err != nil && runErr == nil {
			return errors.Wrap(err, errors.ErrCapture, "cannot write capture file")
		}
		logger := logging.GetLogger("cli")
		logger.Info().Str("file", captureFile).Msg("Capture written")
	}
	if runErr != nil {
		return runErr
	}
	return finish(cmd, e, summary)
}

// collectCommands gathers --command values, the lines of every
// --command-file and the remaining arguments, in that order.
func collectCommands(args []string) ([]string, error) {
	list := append([]string(nil), commands...)
	for _, path := range commandFiles {
		lines, err := readCommandFile(path)
		if err != nil {
			return nil, err
		}
		list = append(list, lines...)
	}
	if len(args) > 0 {
		list = append(list, strings.Join(args, " "))
	}
	return list, nil
}

func readCommandFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot find command file %s", path)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read command file %s", path)
	}
	return lines, nil
}

// ptyModes feeds shell completion of --pty.
var ptyModes = []string{config.PTYAuto, config.PTYAlways, config.PTYNever}

func init() {
	_ = rootCmd.RegisterFlagCompletionFunc("pty", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return ptyModes, cobra.ShellCompDirectiveNoFileComp
	})
}
