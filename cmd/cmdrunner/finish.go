package main

import (
	"fmt"
	"io"
	"os"

	"cmdrunner/internal/engine"
	"cmdrunner/internal/errors"
	"cmdrunner/internal/logging"
	"cmdrunner/internal/metrics"
	"cmdrunner/internal/runner"
	"cmdrunner/internal/stats"
	"cmdrunner/pkg/markdown"

	"github.com/spf13/cobra"
)

const reportTitle = "cmdrunner report"

// finish prints the end-of-run sections, writes the report and metrics files
// and turns a non-zero final status into an exitError.
func finish(cmd *cobra.Command, e *engine.Engine, summary runner.Summary) error {
	out := cmd.OutOrStdout()
	report := e.Report()

	if showReport {
		for _, entry := range report {
			if _, err := fmt.Fprintln(out, entry); err != nil {
				return errors.Wrap(err, errors.ErrInternal, "cannot write report")
			}
		}
	}
	if showStats {
		if _, err := io.WriteString(out, e.Statistics()); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "cannot write statistics")
		}
	}
	if showTime {
		if err := printTime(out, summary); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "cannot write time")
		}
	}

	if reportHTML != "" {
		page := markdown.ReportPage(reportTitle, report)
		if err := os.WriteFile(reportHTML, []byte(page), 0o644); err != nil {
			return errors.Wrapf(err, errors.ErrInternal, "cannot write report page %s", reportHTML)
		}
		logger := logging.GetLogger("cli")
		logger.Info().Str("file", reportHTML).Int("entries", len(report)).Msg("Report page written")
	}

	if metricsFile != "" {
		user, system := summary.CPUTime()
		c := metrics.New()
		c.Record(e.StatsSnapshot(), metrics.Run{
			ExitCode:      summary.ExitCode,
			Elapsed:       summary.Elapsed,
			Commands:      len(summary.Results),
			ReportEntries: len(report),
			Failed:        e.Failed(),
			PeakRSS:       summary.PeakRSS(),
			UserTime:      user,
			SystemTime:    system,
		})
		if err := c.WriteFile(metricsFile); err != nil {
			return err
		}
		logger := logging.GetLogger("cli")
		logger.Info().Str("file", metricsFile).Msg("Metrics written")
	}

	if summary.ExitCode != 0 {
		return &exitError{code: summary.ExitCode}
	}
	return nil
}

func printTime(w io.Writer, summary runner.Summary) error {
	if _, err := fmt.Fprintf(w, "Time elapsed: %s\n", stats.FormatDuration(summary.Elapsed)); err != nil {
		return err
	}
	user, system := summary.CPUTime()
	_, err := fmt.Fprintf(w, "CPU time: user %s, system %s\nPeak memory: %.1f MB\n",
		stats.FormatDuration(user), stats.FormatDuration(system), float64(summary.PeakRSS())/(1024*1024))
	return err
}
