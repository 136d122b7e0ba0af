package main

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"cmdrunner/internal/errors"
	"cmdrunner/internal/rules"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag of cmd and its subcommands back to its default
// so that tests sharing rootCmd do not see each other's arguments.
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			require.NoError(t, sv.Replace(nil))
		} else {
			require.NoError(t, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(t, c)
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, args ...string) result {
	t.Helper()
	resetFlags(t, rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags(t, rootCmd)
	})
	err := rootCmd.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *exitError
	if stderrors.As(err, &exit) {
		return exit.code
	}
	return -1
}

func TestCollectCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.txt")
	require.NoError(t, os.WriteFile(path, []byte("echo one\necho two\n"), 0o644))

	commands = []string{"echo first"}
	commandFiles = []string{path}
	t.Cleanup(func() { commands, commandFiles = nil, nil })

	got, err := collectCommands([]string{"echo", "last"})
	require.NoError(t, err)
	assert.Equal(t, []string{"echo first", "echo one", "echo two", "echo last"}, got)
}

func TestCollectCommandsMissingFile(t *testing.T) {
	commandFiles = []string{filepath.Join(t.TempDir(), "missing")}
	t.Cleanup(func() { commandFiles = nil })

	_, err := collectCommands(nil)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestAdhocRuleOnlyFromChangedFlags(t *testing.T) {
	resetFlags(t, rootCmd)
	t.Cleanup(func() { resetFlags(t, rootCmd) })
	assert.Nil(t, adhocRule(rootCmd))

	require.NoError(t, rootCmd.ParseFlags([]string{"--rule-pattern", "^x", "--rule-error"}))
	d := adhocRule(rootCmd)
	require.NotNil(t, d)
	assert.Equal(t, "^x", d.Pattern)
	assert.Equal(t, rules.Bool(true), d.SetError)
	assert.Nil(t, d.PassOutput)
	assert.Nil(t, d.StopProcessing)
	assert.Nil(t, d.ProcessStdOut)
}

func TestRunPassesOutputThrough(t *testing.T) {
	res := execute(t, "-c", "echo out; echo err >&2")
	require.NoError(t, res.err)
	assert.Equal(t, "out\n", res.stdout)
	assert.Equal(t, "err\n", res.stderr)
}

func TestRunTrailingArgumentsAreOneCommand(t *testing.T) {
	res := execute(t, "echo", "a", "b")
	require.NoError(t, res.err)
	assert.Equal(t, "a b\n", res.stdout)
}

func TestRunAdhocRuleComesFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"pattern": "=", "reportFormat": "file rule"}]`), 0o644))

	res := execute(t,
		"--rule-file", path,
		"--rule-pattern", `^(\w+)=(\d+)$`,
		"--rule-report", "{1} is {2}",
		"--rule-pass=false",
		"-r",
		"-c", `printf 'a=1\nplain\nb=x\n'`,
	)
	require.NoError(t, res.err)
	assert.Equal(t, "plain\nb=x\na is 1\nfile rule\n", res.stdout)
}

func TestRunQuietTurnsOffOutput(t *testing.T) {
	args := []string{"--rule-pattern", "hi", "--rule-stdout", "matched {0}", "--rule-stderr", "seen {0}", "-c", "echo hi; echo miss"}

	res := execute(t, args...)
	require.NoError(t, res.err)
	assert.Equal(t, "hi\nmatched hi\nmiss\n", res.stdout)
	assert.Equal(t, "seen hi\n", res.stderr)

	res = execute(t, append([]string{"-q"}, args...)...)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
	assert.Empty(t, res.stderr)
}

func TestRunEndOfRunSections(t *testing.T) {
	res := execute(t,
		"--rule-pattern", "^total (\\d+)$",
		"--rule-report", "Total: {1}",
		"-r", "-s", "-t",
		"-c", "echo 'total 42'",
	)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "total 42\nTotal: 42\nNumber of Rules: 1\n")
	assert.Contains(t, res.stdout, "Pattern Hits:")
	assert.Contains(t, res.stdout, "Time elapsed: ")
	assert.Contains(t, res.stdout, "Peak memory: ")
}

func TestRunWritesMetricsAndReportFiles(t *testing.T) {
	dir := t.TempDir()
	prom := filepath.Join(dir, "run.prom")
	page := filepath.Join(dir, "report.html")

	res := execute(t,
		"--rule-pattern", "^warn (.+)$", "--rule-report", "**{1}**",
		"--metrics-file", prom, "--report-html", page,
		"-c", "echo 'warn disk'",
	)
	require.NoError(t, res.err)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cmdrunner_peak_rss_bytes")
	assert.Contains(t, string(data), `cmdrunner_cpu_seconds{mode="user"}`)
	assert.Contains(t, string(data), "cmdrunner_report_entries 1")

	data, err = os.ReadFile(page)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<strong>disk</strong>")
}

func TestRunExitStatus(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"success", []string{"-c", "true"}, 0},
		{"last command", []string{"-c", "exit 2", "-c", "exit 3"}, 3},
		{"sum returns", []string{"--sum-returns", "-c", "exit 2", "-c", "exit 3"}, 5},
		{"stop on error", []string{"--stop-on-error", "-c", "exit 2", "-c", "exit 3"}, 2},
		{"force return", []string{"--force-return", "0", "-c", "exit 4"}, 0},
		{"sticky error", []string{"--rule-pattern", "boom", "--rule-error", "-c", "echo boom"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, tt.args...)
			assert.Equal(t, tt.want, exitCode(res.err), "err: %v", res.err)
		})
	}
}

func TestRunInvalidRuleIsConfigError(t *testing.T) {
	res := execute(t, "--rule-pattern", "(", "-c", "echo never")
	assert.True(t, errors.IsErrorCode(res.err, errors.ErrRuleInvalid))
	assert.Empty(t, res.stdout)
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.New(errors.ErrRuleInvalid, "rule has no pattern").WithDetail("title", "build"))

	assert.Contains(t, buf.String(), "Configuration error:")
	assert.Contains(t, buf.String(), "[RULE_INVALID] rule has no pattern")
	assert.Contains(t, buf.String(), "title:")
	assert.Contains(t, buf.String(), "build")
}

func TestExitError(t *testing.T) {
	assert.Equal(t, "exit status 3", (&exitError{code: 3}).Error())
}

func TestRulesExample(t *testing.T) {
	res := execute(t, "rules", "example", "--format", "yaml")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "pattern:")
}

func TestReplacementsExample(t *testing.T) {
	res := execute(t, "replacements", "example", "--format", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"html_reserved"`)
	assert.Contains(t, res.stdout, `"html_unsafe"`)
}

func TestVersion(t *testing.T) {
	res := execute(t, "version")
	require.NoError(t, res.err)
	assert.Equal(t, "cmdrunner dev\n", res.stdout)
}
