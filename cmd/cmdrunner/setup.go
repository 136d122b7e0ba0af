package main

import (
	"io"

	"cmdrunner/internal/config"
	"cmdrunner/internal/engine"
	"cmdrunner/internal/format"
	"cmdrunner/internal/logging"
	"cmdrunner/internal/rules"
	"cmdrunner/internal/runner"

	"github.com/spf13/cobra"
)

func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	s, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := logging.GetLogger("cli")
	logger.Debug().Str("settings", s.String()).Msg("Settings loaded")
	return s, nil
}

func engineOptions(s *config.Settings) engine.Options {
	if quiet {
		return engine.Options{}
	}
	return engine.Options{
		MissPass:    s.Output.MissPass,
		MatchPass:   s.Output.MatchPass,
		MatchStdout: s.Output.MatchStdout,
		MatchStderr: s.Output.MatchStderr,
	}
}

// adhocRule returns the rule given by --rule-* flags, or nil if none is set.
func adhocRule(cmd *cobra.Command) *rules.Definition {
	f := cmd.Flags()
	set := false
	for _, name := range []string{
		"rule-pattern", "rule-short-pattern", "rule-stdout", "rule-stderr", "rule-report",
		"rule-pass", "rule-stop", "rule-error", "rule-stdout-stream", "rule-stderr-stream",
	} {
		if f.Changed(name) {
			set = true
			break
		}
	}
	if !set {
		return nil
	}

	d := &rules.Definition{
		Title:        "command line rule",
		Pattern:      rulePattern,
		ShortPattern: ruleShortPattern,
		StdoutFormat: ruleStdout,
		StderrFormat: ruleStderr,
		ReportFormat: ruleReport,
	}
	if f.Changed("rule-pass") {
		d.PassOutput = rules.Bool(rulePass)
	}
	if f.Changed("rule-stop") {
		d.StopProcessing = rules.Bool(ruleStop)
	}
	if f.Changed("rule-error") {
		d.SetError = rules.Bool(ruleError)
	}
	if f.Changed("rule-stdout-stream") {
		d.ProcessStdOut = rules.Bool(ruleStdoutStream)
	}
	if f.Changed("rule-stderr-stream") {
		d.ProcessStdErr = rules.Bool(ruleStderrStream)
	}
	return d
}

func compileOptions(s *config.Settings) rules.CompileOptions {
	return rules.CompileOptions{IgnoreCase: s.Rules.IgnoreCase, Timeout: s.Run.RegexTimeout}
}

// loadRules builds the rule set: the ad hoc rule first, then every rule file
// in order.
func loadRules(cmd *cobra.Command, s *config.Settings) (rules.Set, error) {
	logger := logging.GetLogger("cli")
	defer logging.LogOperationStart(logger, "load rules")()
	set, err := rules.Build(adhocRule(cmd), s.Rules.Files, compileOptions(s))
	if err != nil {
		return nil, err
	}
	logger.Info().Int("rules", len(set)).Msg("Rules loaded")
	return set, nil
}

func loadMaps(s *config.Settings) (*format.Store, error) {
	store, err := format.LoadMapFiles(s.Replace.Files)
	if err != nil {
		return nil, err
	}
	logger := logging.GetLogger("cli")
	logger.Info().Int("maps", store.Len()).Msg("Search/replace maps loaded")
	return store, nil
}

func buildEngine(cmd *cobra.Command, s *config.Settings, stdout, stderr io.Writer) (*engine.Engine, error) {
	set, err := loadRules(cmd, s)
	if err != nil {
		return nil, err
	}
	store, err := loadMaps(s)
	if err != nil {
		return nil, err
	}
	return engine.New(set, format.NewInterpreter(store), engineOptions(s), stdout, stderr)
}

func statusPolicy(cmd *cobra.Command, s *config.Settings) runner.Policy {
	p := runner.Policy{
		StopOnError: s.Run.StopOnError,
		SumReturns:  s.Run.SumReturns,
	}
	if cmd.Flags().Changed("force-return") {
		v := forceReturn
		p.ForceReturn = &v
	}
	return p
}
