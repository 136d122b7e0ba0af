// Package metrics exports rule statistics and the run outcome in the
// Prometheus text format, for node_exporter's textfile collector or any
// other scraper of .prom files.
package metrics

import (
	"strconv"
	"time"

	"cmdrunner/internal/errors"
	"cmdrunner/internal/stats"

	"github.com/prometheus/client_golang/prometheus"
)

// Run is the outcome of a run.
type Run struct {
	ExitCode      int
	Elapsed       time.Duration
	Commands      int
	ReportEntries int
	Failed        bool

	// Resource usage of the commands; zero when sampling was off.
	PeakRSS    uint64
	UserTime   time.Duration
	SystemTime time.Duration
}

// Collector holds one snapshot of a run. Record is meant to be called once.
type Collector struct {
	registry *prometheus.Registry

	lines         *prometheus.CounterVec
	seconds       *prometheus.CounterVec
	rules         prometheus.Gauge
	exitStatus    prometheus.Gauge
	runSeconds    prometheus.Gauge
	commands      prometheus.Gauge
	reportEntries prometheus.Gauge
	stickyError   prometheus.Gauge
	peakRSS       prometheus.Gauge
	cpuSeconds    *prometheus.GaugeVec
}

var ruleLabels = []string{"rule", "title", "pattern", "result"}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmdrunner_rule_lines_total",
				Help: "Lines evaluated per rule, by pattern (full or short) and result (hit or miss)",
			}, ruleLabels,
		),
		seconds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmdrunner_rule_match_seconds_total",
				Help: "Time spent matching per rule, by pattern and result",
			}, ruleLabels,
		),
		rules: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cmdrunner_rules",
			Help: "Number of rules in the run",
		}),
		exitStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cmdrunner_exit_status",
			Help: "Final exit status of the run",
		}),
		runSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cmdrunner_run_duration_seconds",
			Help: "Wall time of the run",
		}),
		commands: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cmdrunner_commands",
			Help: "Commands run",
		}),
		reportEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cmdrunner_report_entries",
			Help: "Entries in the report log",
		}),
		stickyError: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cmdrunner_sticky_error",
			Help: "1 if a setError rule matched",
		}),
		peakRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cmdrunner_peak_rss_bytes",
			Help: "Largest resident set size of any command's process tree",
		}),
		cpuSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cmdrunner_cpu_seconds",
			Help: "CPU time of all commands by mode",
		}, []string{"mode"}),
	}
	c.registry.MustRegister(c.lines, c.seconds, c.rules, c.exitStatus, c.runSeconds, c.commands, c.reportEntries, c.stickyError, c.peakRSS, c.cpuSeconds)
	return c
}

// Record stores the rule statistics and the run outcome.
func (c *Collector) Record(rules []stats.RuleStats, run Run) {
	c.rules.Set(float64(len(rules)))
	for i, r := range rules {
		index := strconv.Itoa(i)
		c.recordPattern(index, r.Title, "full", r.Full)
		if r.HasShort() {
			c.recordPattern(index, r.Title, "short", r.Short)
		}
	}

	c.exitStatus.Set(float64(run.ExitCode))
	c.runSeconds.Set(run.Elapsed.Seconds())
	c.commands.Set(float64(run.Commands))
	c.reportEntries.Set(float64(run.ReportEntries))
	if run.Failed {
		c.stickyError.Set(1)
	} else {
		c.stickyError.Set(0)
	}
	c.peakRSS.Set(float64(run.PeakRSS))
	c.cpuSeconds.WithLabelValues("user").Set(run.UserTime.Seconds())
	c.cpuSeconds.WithLabelValues("system").Set(run.SystemTime.Seconds())
}

func (c *Collector) recordPattern(index, title, pattern string, p stats.PatternStats) {
	for _, b := range []struct {
		result string
		bucket stats.Bucket
	}{
		{"hit", p.Hits},
		{"miss", p.Misses},
	} {
		c.lines.WithLabelValues(index, title, pattern, b.result).Add(float64(b.bucket.Count))
		c.seconds.WithLabelValues(index, title, pattern, b.result).Add(b.bucket.Duration.Seconds())
	}
}

// Registry exposes the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteFile writes all metrics to path atomically.
func (c *Collector) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "cannot write metrics file %s", path)
	}
	return nil
}
