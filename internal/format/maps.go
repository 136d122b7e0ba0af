package format

import (
	"strings"
)

// Pair is one literal substitution.
type Pair struct {
	Search  string
	Replace string
}

// Map is a named, ordered list of substitutions. Pairs apply one after the
// other, so a later pair sees the output of the earlier ones.
type Map struct {
	Name  string
	Pairs []Pair
}

// Apply runs every pair of the map over value, in order.
func (m *Map) Apply(value string) string {
	for _, p := range m.Pairs {
		if p.Search == "" {
			continue
		}
		value = strings.ReplaceAll(value, p.Search, p.Replace)
	}
	return value
}

// Store holds replacement maps by name. It is built before a run and read
// only while lines are processed.
type Store struct {
	maps  map[string]*Map
	order []string
}

func NewStore() *Store {
	return &Store{maps: make(map[string]*Map)}
}

// Set adds m, replacing any map with the same name. A replaced map keeps its
// original position in Names.
func (s *Store) Set(m Map) {
	if _, exists := s.maps[m.Name]; !exists {
		s.order = append(s.order, m.Name)
	}
	s.maps[m.Name] = &m
}

// Get looks up a map by name.
func (s *Store) Get(name string) (*Map, bool) {
	m, ok := s.maps[name]
	return m, ok
}

// Names lists the map names in the order they were first added.
func (s *Store) Names() []string {
	return append([]string(nil), s.order...)
}

// Maps returns copies of all maps in Names order.
func (s *Store) Maps() []Map {
	out := make([]Map, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.maps[name])
	}
	return out
}

// Len is the number of maps.
func (s *Store) Len() int {
	return len(s.order)
}

// Examples returns the sample maps printed by `cmdrunner replacements example`.
func Examples() []Map {
	return []Map{
		{
			Name: "html_reserved",
			Pairs: []Pair{
				{"$", "%24"},
				{"&", "%26"},
				{"+", "%2B"},
				{",", "%2C"},
				{"/", "%2F"},
				{":", "%3A"},
				{";", "%3B"},
				{"=", "%3D"},
				{"?", "%3F"},
				{"@", "%40"},
			},
		},
		{
			Name: "html_unsafe",
			Pairs: []Pair{
				{"%", "%25"},
				{"<", "%3C"},
				{">", "%3E"},
				{" ", "%20"},
				{"#", "%23"},
				{"{", "%7B"},
				{"}", "%7D"},
				{"|", "%7C"},
				{"\\", "%5C"},
				{"^", "%5E"},
				{"~", "%7E"},
				{"[", "%5B"},
				{"]", "%5D"},
				{"`", "%60"},
			},
		},
	}
}
