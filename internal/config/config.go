// Package config layers the run settings: built-in defaults, an optional
// settings file, CMDRUNNER_ environment variables and finally the command
// line flags the user actually set.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cmdrunner/internal/errors"
	"cmdrunner/internal/logging"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// CMDRUNNER_OUTPUT_MISS_PASS=false or CMDRUNNER_RULES_FILES=a.json,b.json.
const EnvPrefix = "CMDRUNNER_"

// PTY modes.
const (
	PTYAuto   = "auto"
	PTYAlways = "always"
	PTYNever  = "never"
)

type Settings struct {
	Output  Output  `koanf:"output"`
	Run     Run     `koanf:"run"`
	Rules   Rules   `koanf:"rules"`
	Replace Replace `koanf:"replace"`
}

// Output holds the run-wide output switches.
type Output struct {
	MissPass    bool `koanf:"miss_pass"`
	MatchPass   bool `koanf:"match_pass"`
	MatchStdout bool `koanf:"match_stdout"`
	MatchStderr bool `koanf:"match_stderr"`
}

type Run struct {
	Shell        string        `koanf:"shell"`
	Dir          string        `koanf:"dir"`
	PTY          string        `koanf:"pty"`
	StopOnError  bool          `koanf:"stop_on_error"`
	SumReturns   bool          `koanf:"sum_returns"`
	RegexTimeout time.Duration `koanf:"regex_timeout"`
}

type Rules struct {
	Files      []string `koanf:"files"`
	IgnoreCase bool     `koanf:"ignore_case"`
}

type Replace struct {
	Files []string `koanf:"files"`
}

// Defaults are the lowest layer.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"output.miss_pass":    true,
		"output.match_pass":   true,
		"output.match_stdout": true,
		"output.match_stderr": true,
		"run.shell":           "sh",
		"run.dir":             "",
		"run.pty":             PTYNever,
		"run.stop_on_error":   false,
		"run.sum_returns":     false,
		"run.regex_timeout":   "0s",
		"rules.files":         []string{},
		"rules.ignore_case":   false,
		"replace.files":       []string{},
	}
}

// FlagKeys maps command line flag names to settings keys. Flags not listed
// here are not settings.
var FlagKeys = map[string]string{
	"miss-pass":     "output.miss_pass",
	"match-pass":    "output.match_pass",
	"match-stdout":  "output.match_stdout",
	"match-stderr":  "output.match_stderr",
	"shell":         "run.shell",
	"dir":           "run.dir",
	"pty":           "run.pty",
	"stop-on-error": "run.stop_on_error",
	"sum-returns":   "run.sum_returns",
	"regex-timeout": "run.regex_timeout",
	"rule-file":     "rules.files",
	"ignore-case":   "rules.ignore_case",
	"replace-file":  "replace.files",
}

// Load builds the settings. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Settings, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load defaults")
	}

	// 2. Settings file
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read settings file %s", path)
		}
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "cannot parse settings file %s", path)
		}
		logger.Debug().Str("file", path).Msg("Loaded settings file")
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment")
	}

	// 4. Flags the user set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load flags")
		}
	}

	var s Settings
	conf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &s,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &s, conf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "invalid settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks values koanf cannot type-check.
func (s *Settings) Validate() error {
	switch s.Run.PTY {
	case PTYAuto, PTYAlways, PTYNever:
	default:
		return errors.Newf(errors.ErrConfigParse, "run.pty must be auto, always or never, got %q", s.Run.PTY)
	}
	if s.Run.Shell == "" {
		return errors.New(errors.ErrConfigParse, "run.shell must not be empty")
	}
	if s.Run.RegexTimeout < 0 {
		return errors.Newf(errors.ErrConfigParse, "run.regex_timeout must not be negative, got %s", s.Run.RegexTimeout)
	}
	return nil
}

// parserFor picks the settings file parser. JSON is parsed as YAML.
func parserFor(path string) koanf.Parser {
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		return toml.Parser()
	}
	return yaml.Parser()
}

// envKey turns CMDRUNNER_OUTPUT_MISS_PASS into output.miss_pass. Only the
// first underscore separates the section.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + key
}

func flagKey(flags *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		key, ok := FlagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}
}

// String renders the effective settings for debug logging.
func (s *Settings) String() string {
	return fmt.Sprintf("output=%+v run=%+v rules=%+v replace=%+v", s.Output, s.Run, s.Rules, s.Replace)
}
