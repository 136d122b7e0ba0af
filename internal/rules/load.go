package rules

import (
	"bytes"
	"io"
	"os"

	"cmdrunner/internal/codec"
	"cmdrunner/internal/errors"
	"cmdrunner/internal/logging"
)

// tomlDocument wraps rules in a TOML file, written as [[rule]] tables.
type tomlDocument struct {
	Rules []Definition `toml:"rule"`
}

// Decode reads rule definitions in the given format.
func Decode(r io.Reader, f codec.Format) ([]Definition, error) {
	if f == codec.TOML {
		var doc tomlDocument
		if err := codec.Decode(r, f, &doc); err != nil {
			return nil, err
		}
		return doc.Rules, nil
	}
	var defs []Definition
	if err := codec.Decode(r, f, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// Encode writes rule definitions in the given format.
func Encode(w io.Writer, f codec.Format, defs []Definition) error {
	if f == codec.TOML {
		return codec.Encode(w, f, tomlDocument{Rules: defs})
	}
	if defs == nil {
		defs = []Definition{}
	}
	return codec.Encode(w, f, defs)
}

// LoadFile reads and compiles the rules of one file, in file order.
func LoadFile(path string, opts CompileOptions) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read rule file %s", path)
	}

	defs, err := Decode(bytes.NewReader(data), codec.FromPath(path))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "cannot parse rule file %s", path)
	}

	set := make(Set, 0, len(defs))
	for i, d := range defs {
		r, err := d.Compile(opts)
		if err != nil {
			if re, ok := err.(*errors.RunnerError); ok {
				re.WithDetail("file", path).WithDetail("index", i)
			}
			return nil, err
		}
		set = append(set, r)
	}

	logger := logging.GetLogger("rules")
	logger.Debug().Str("file", path).Int("rules", len(set)).Msg("Loaded rule file")
	return set, nil
}

// Build assembles the rule set in evaluation order: the ad hoc rule first (if
// any), then the rules of each file in the order the files are given.
func Build(adhoc *Definition, files []string, opts CompileOptions) (Set, error) {
	var set Set
	if adhoc != nil {
		r, err := adhoc.Compile(opts)
		if err != nil {
			if re, ok := err.(*errors.RunnerError); ok {
				re.WithDetail("source", "command line")
			}
			return nil, err
		}
		set = append(set, r)
	}
	for _, path := range files {
		loaded, err := LoadFile(path, opts)
		if err != nil {
			return nil, err
		}
		set = append(set, loaded...)
	}
	return set, nil
}
