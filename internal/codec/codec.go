// Package codec picks the document format of rule, replacement and settings
// files and encodes or decodes them.
package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a supported document format.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// ParseFormat accepts a format name as given on the command line.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "toml":
		return TOML, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, yaml or toml)", name)
}

// FromPath picks the format by file extension. Unknown extensions are JSON.
func FromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	case ".toml":
		return TOML
	default:
		return JSON
	}
}

// Decode reads one document from r into v.
func Decode(r io.Reader, f Format, v interface{}) error {
	switch f {
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil && err != io.EOF {
			return err
		}
		return nil
	case TOML:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	default:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	}
}

// Encode writes v to w as one indented document.
func Encode(w io.Writer, f Format, v interface{}) error {
	switch f {
	case YAML:
		node, ok := v.(*yaml.Node)
		if !ok {
			node = &yaml.Node{}
			if err := node.Encode(v); err != nil {
				return err
			}
		}
		quoteUnsafeScalars(node)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return err
		}
		return enc.Close()
	case TOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(v)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}
}

// quoteUnsafeScalars double-quotes strings that a block scalar cannot hold
// exactly: yaml.v3 drops a leading newline and carriage returns there.
func quoteUnsafeScalars(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && (n.Tag == "!!str" || n.Tag == "") &&
		(strings.HasPrefix(n.Value, "\n") || strings.Contains(n.Value, "\r")) {
		n.Style = yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		quoteUnsafeScalars(c)
	}
}
