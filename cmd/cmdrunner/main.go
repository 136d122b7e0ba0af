package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"cmdrunner/internal/logging"

	"github.com/spf13/cobra"
)

// Set by the release build.
var version = "dev"

var (
	verbosity  int
	configFile string

	// Rule and replacement sources
	ruleFiles    []string
	replaceFiles []string
	ignoreCase   bool
	regexTimeout time.Duration

	// Ad hoc rule
	rulePattern      string
	ruleShortPattern string
	ruleStdout       string
	ruleStderr       string
	ruleReport       string
	rulePass         bool
	ruleStop         bool
	ruleError        bool
	ruleStdoutStream bool
	ruleStderrStream bool

	// Commands
	commands     []string
	commandFiles []string
	shell        string
	workDir      string
	ptyMode      string
	captureFile  string

	// Output switches
	quiet       bool
	missPass    bool
	matchPass   bool
	matchStdout bool
	matchStderr bool

	// End of run
	showReport  bool
	showStats   bool
	showTime    bool
	reportHTML  string
	metricsFile string

	// Exit status
	stopOnError bool
	sumReturns  bool
	forceReturn int
)

var rootCmd = &cobra.Command{
	Use:   "cmdrunner [flags] [command words...]",
	Short: "Run commands and filter, rewrite and report on their output with regex rules",
	Long: `cmdrunner runs shell commands and passes every line of their stdout and
stderr through an ordered list of regex rules. A rule can echo the line,
print a rewritten version of it to stdout or stderr, add an entry to the end
of run report and mark the run as failed.

Commands come from --command, --command-file and the remaining arguments,
which are joined with spaces into one more command. They run one after the
other with the same rules, report and error state.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbosity)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommands(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "cmdrunner", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.CountVarP(&verbosity, "verbose", "v", "Log more to stderr (repeat for debug and trace)")
	pf.StringVar(&configFile, "config", "", "Settings file (TOML or YAML)")

	pf.StringSliceVar(&ruleFiles, "rule-file", nil, "Rule file (JSON, YAML or TOML by extension); repeatable")
	pf.StringSliceVar(&replaceFiles, "replace-file", nil, "Search/replace map file; repeatable, later maps replace earlier ones")
	pf.BoolVar(&ignoreCase, "ignore-case", false, "Match all patterns case-insensitively unless a rule says otherwise")
	pf.DurationVar(&regexTimeout, "regex-timeout", 0, "Abandon a single regex evaluation after this long; 0 disables")

	pf.StringVar(&rulePattern, "rule-pattern", "", "Ad hoc rule: regex to match")
	pf.StringVar(&ruleShortPattern, "rule-short-pattern", "", "Ad hoc rule: cheap regex checked before the pattern")
	pf.StringVar(&ruleStdout, "rule-stdout", "", "Ad hoc rule: stdout format on match")
	pf.StringVar(&ruleStderr, "rule-stderr", "", "Ad hoc rule: stderr format on match")
	pf.StringVar(&ruleReport, "rule-report", "", "Ad hoc rule: report format on match")
	pf.BoolVar(&rulePass, "rule-pass", true, "Ad hoc rule: echo the matched line")
	pf.BoolVar(&ruleStop, "rule-stop", true, "Ad hoc rule: stop evaluating later rules on match")
	pf.BoolVar(&ruleError, "rule-error", false, "Ad hoc rule: mark the run as failed on match")
	pf.BoolVar(&ruleStdoutStream, "rule-stdout-stream", true, "Ad hoc rule: evaluate stdout lines")
	pf.BoolVar(&ruleStderrStream, "rule-stderr-stream", true, "Ad hoc rule: evaluate stderr lines")

	pf.BoolVarP(&quiet, "quiet", "q", false, "Turn off all four output switches")
	pf.BoolVar(&missPass, "miss-pass", true, "Echo lines no rule matched")
	pf.BoolVar(&matchPass, "match-pass", true, "Let matching rules echo the line")
	pf.BoolVar(&matchStdout, "match-stdout", true, "Print stdout formats of matching rules")
	pf.BoolVar(&matchStderr, "match-stderr", true, "Print stderr formats of matching rules")

	pf.BoolVarP(&showReport, "report", "r", false, "Print the report at the end")
	pf.BoolVarP(&showStats, "stats", "s", false, "Print rule statistics at the end")
	pf.BoolVarP(&showTime, "time", "t", false, "Print the elapsed time and resource usage at the end")
	pf.StringVar(&reportHTML, "report-html", "", "Write the report as an HTML page to this file")
	pf.StringVar(&metricsFile, "metrics-file", "", "Write rule statistics in Prometheus text format to this file")

	pf.BoolVar(&stopOnError, "stop-on-error", false, "Stop after the first failing command")
	pf.BoolVar(&sumReturns, "sum-returns", false, "Exit with the sum of all command statuses instead of the last")
	pf.IntVar(&forceReturn, "force-return", 0, "Exit with this status no matter what")

	f := rootCmd.Flags()
	f.StringArrayVarP(&commands, "command", "c", nil, "Command to run; repeatable")
	f.StringSliceVar(&commandFiles, "command-file", nil, "File with one command per line; repeatable")
	f.StringVar(&shell, "shell", "sh", "Shell that runs each command with -c")
	f.StringVar(&workDir, "dir", "", "Working directory of the commands")
	f.StringVar(&ptyMode, "pty", "never", "Give commands a terminal as stdout: auto, always or never")
	f.StringVar(&captureFile, "capture", "", "Record the raw command output to this file for replay")
	// Command words after the first positional argument belong to the command.
	f.SetInterspersed(false)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(replacementsCmd)
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exit *exitError
	if stderrors.As(err, &exit) {
		os.Exit(exit.code)
	}
	printError(os.Stderr, err)
	os.Exit(1)
}
