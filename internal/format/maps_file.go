package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"cmdrunner/internal/codec"
	"cmdrunner/internal/errors"
	"cmdrunner/internal/logging"

	"gopkg.in/yaml.v3"
)

// DecodeMaps reads replacement maps. JSON and YAML accept either an ordered
// object of search/replace entries or a list of [search, replace] pairs per
// map; TOML accepts pair lists only, since TOML tables carry no order.
func DecodeMaps(r io.Reader, f codec.Format) ([]Map, error) {
	var (
		maps []Map
		err  error
	)
	switch f {
	case codec.YAML:
		maps, err = decodeYAMLMaps(r)
	case codec.TOML:
		maps, err = decodeTOMLMaps(r)
	default:
		maps, err = decodeJSONMaps(r)
	}
	if err != nil {
		return nil, err
	}
	for _, m := range maps {
		for _, p := range m.Pairs {
			if p.Search == "" {
				return nil, fmt.Errorf("map %q: empty search string", m.Name)
			}
		}
	}
	return maps, nil
}

// EncodeMaps writes maps as ordered search/replace objects (JSON, YAML) or
// pair lists (TOML).
func EncodeMaps(w io.Writer, f codec.Format, maps []Map) error {
	switch f {
	case codec.YAML:
		return encodeYAMLMaps(w, maps)
	case codec.TOML:
		doc := make(map[string][][]string, len(maps))
		for _, m := range maps {
			pairs := make([][]string, 0, len(m.Pairs))
			for _, p := range m.Pairs {
				pairs = append(pairs, []string{p.Search, p.Replace})
			}
			doc[m.Name] = pairs
		}
		return codec.Encode(w, f, doc)
	default:
		return encodeJSONMaps(w, maps)
	}
}

// LoadMapFile reads one replacement file into the store. Maps already in the
// store with the same name are replaced.
func LoadMapFile(store *Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigLoad, "cannot read search/replace file %s", path)
	}
	maps, err := DecodeMaps(bytes.NewReader(data), codec.FromPath(path))
	if err != nil {
		return errors.Wrapf(err, errors.ErrConfigParse, "cannot parse search/replace file %s", path)
	}

	logger := logging.GetLogger("format")
	for _, m := range maps {
		if _, exists := store.Get(m.Name); exists {
			logger.Debug().Str("map", m.Name).Str("file", path).Msg("Replacing search/replace map")
		}
		store.Set(m)
	}
	logger.Debug().Str("file", path).Int("maps", len(maps)).Msg("Loaded search/replace file")
	return nil
}

// LoadMapFiles builds a store from files, later files overriding earlier ones.
func LoadMapFiles(paths []string) (*Store, error) {
	store := NewStore()
	for _, path := range paths {
		if err := LoadMapFile(store, path); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func decodeJSONMaps(r io.Reader) ([]Map, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var maps []Map
	for dec.More() {
		name, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		m := Map{Name: name}

		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch tok {
		case json.Delim('{'):
			for dec.More() {
				search, err := stringToken(dec)
				if err != nil {
					return nil, err
				}
				replace, err := stringToken(dec)
				if err != nil {
					return nil, err
				}
				m.Pairs = append(m.Pairs, Pair{search, replace})
			}
			if err := expectDelim(dec, '}'); err != nil {
				return nil, err
			}
		case json.Delim('['):
			for dec.More() {
				var pair []string
				if err := dec.Decode(&pair); err != nil {
					return nil, err
				}
				if len(pair) != 2 {
					return nil, fmt.Errorf("map %q: pair must have two strings, got %d", name, len(pair))
				}
				m.Pairs = append(m.Pairs, Pair{pair[0], pair[1]})
			}
			if err := expectDelim(dec, ']'); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("map %q: expected object or array, got %v", name, tok)
		}
		maps = append(maps, m)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return maps, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %v", tok)
	}
	return s, nil
}

func encodeJSONMaps(w io.Writer, maps []Map) error {
	var buf bytes.Buffer
	quote := func(s string) {
		var b bytes.Buffer
		enc := json.NewEncoder(&b)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(s)
		buf.Write(bytes.TrimRight(b.Bytes(), "\n"))
	}

	buf.WriteString("{")
	for i, m := range maps {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		quote(m.Name)
		buf.WriteString(": {")
		for j, p := range m.Pairs {
			if j > 0 {
				buf.WriteString(",")
			}
			buf.WriteString("\n    ")
			quote(p.Search)
			buf.WriteString(": ")
			quote(p.Replace)
		}
		if len(m.Pairs) > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteString("}")
	}
	if len(maps) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	_, err := w.Write(buf.Bytes())
	return err
}

func decodeYAMLMaps(r io.Reader) ([]Map, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of map names", root.Line)
	}

	var maps []Map
	for i := 0; i+1 < len(root.Content); i += 2 {
		m := Map{Name: root.Content[i].Value}
		value := root.Content[i+1]
		switch value.Kind {
		case yaml.MappingNode:
			for j := 0; j+1 < len(value.Content); j += 2 {
				m.Pairs = append(m.Pairs, Pair{value.Content[j].Value, value.Content[j+1].Value})
			}
		case yaml.SequenceNode:
			for _, item := range value.Content {
				var pair []string
				if err := item.Decode(&pair); err != nil {
					return nil, err
				}
				if len(pair) != 2 {
					return nil, fmt.Errorf("line %d: pair must have two strings, got %d", item.Line, len(pair))
				}
				m.Pairs = append(m.Pairs, Pair{pair[0], pair[1]})
			}
		default:
			return nil, fmt.Errorf("line %d: map %q must be a mapping or a list of pairs", value.Line, m.Name)
		}
		maps = append(maps, m)
	}
	return maps, nil
}

func encodeYAMLMaps(w io.Writer, maps []Map) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, m := range maps {
		value := &yaml.Node{Kind: yaml.MappingNode}
		for _, p := range m.Pairs {
			value.Content = append(value.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Search},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Replace},
			)
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Name}, value)
	}
	return codec.Encode(w, codec.YAML, root)
}

func decodeTOMLMaps(r io.Reader) ([]Map, error) {
	var doc map[string][][]string
	if err := codec.Decode(r, codec.TOML, &doc); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	maps := make([]Map, 0, len(names))
	for _, name := range names {
		m := Map{Name: name}
		for _, pair := range doc[name] {
			if len(pair) != 2 {
				return nil, fmt.Errorf("map %q: pair must have two strings, got %d", name, len(pair))
			}
			m.Pairs = append(m.Pairs, Pair{pair[0], pair[1]})
		}
		maps = append(maps, m)
	}
	return maps, nil
}
