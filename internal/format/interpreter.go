package format

import (
	"sort"
	"strings"

	"cmdrunner/internal/errors"
)

// Function transforms a placeholder value. Check validates the arguments
// once when a template is compiled; Apply runs for every rendered value.
type Function interface {
	Check(args []string) error
	Apply(value string, args []string) (string, error)
}

// Call is one name(arg,...) expression from a placeholder spec.
type Call struct {
	Name string
	Args []string
}

type boundCall struct {
	fn   Function
	args []string
}

// Interpreter compiles templates whose placeholder specs contain function
// calls, for example "{1:replace(html_reserved,html_unsafe)}".
type Interpreter struct {
	functions map[string]Function
	maps      *Store
}

// NewInterpreter returns an interpreter with the built-in functions
// registered against the given replacement maps.
func NewInterpreter(maps *Store) *Interpreter {
	if maps == nil {
		maps = NewStore()
	}
	in := &Interpreter{
		functions: make(map[string]Function),
		maps:      maps,
	}
	in.Register("replace", replaceFunc{store: maps})
	return in
}

// Register adds or replaces a function.
func (in *Interpreter) Register(name string, fn Function) {
	in.functions[name] = fn
}

// Functions lists the registered function names.
func (in *Interpreter) Functions() []string {
	names := make([]string, 0, len(in.functions))
	for name := range in.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Maps returns the replacement store the interpreter resolves names against.
func (in *Interpreter) Maps() *Store {
	return in.maps
}

// Compile parses source and binds every function call in its placeholder
// specs. Unknown functions and bad arguments fail here, before any line is
// rendered.
func (in *Interpreter) Compile(source string) (*Template, error) {
	t, err := Parse(source)
	if err != nil {
		return nil, err
	}
	for i := range t.segments {
		seg := &t.segments[i]
		if !seg.hole || strings.TrimSpace(seg.spec) == "" {
			continue
		}
		calls, err := ParseCalls(seg.spec)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFormatInvalid, "invalid format spec in template %q", source).
				WithDetail("template", source)
		}
		for _, c := range calls {
			fn, ok := in.functions[c.Name]
			if !ok {
				return nil, errors.Newf(errors.ErrFunctionUnknown, "specified format function does not exist: %s", c.Name).
					WithDetail("template", source)
			}
			if err := fn.Check(c.Args); err != nil {
				return nil, err
			}
			seg.calls = append(seg.calls, boundCall{fn: fn, args: c.Args})
		}
	}
	return t, nil
}

// ParseCalls parses a spec of the form  name(arg, ...) name(arg, ...) ...
// Whitespace may appear between tokens; arguments are trimmed.
func ParseCalls(spec string) ([]Call, error) {
	p := callParser{src: spec}
	var calls []Call
	for {
		p.skipSpace()
		if p.done() {
			return calls, nil
		}
		c, err := p.call()
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
}

type callParser struct {
	src string
	pos int
}

func (p *callParser) done() bool {
	return p.pos >= len(p.src)
}

func (p *callParser) skipSpace() {
	for !p.done() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *callParser) call() (Call, error) {
	start := p.pos
	for !p.done() && isIdentByte(p.src[p.pos], p.pos == start) {
		p.pos++
	}
	if p.pos == start {
		return Call{}, p.errorf("expected function name")
	}
	c := Call{Name: p.src[start:p.pos]}

	p.skipSpace()
	if p.done() || p.src[p.pos] != '(' {
		return Call{}, p.errorf("expected '(' after " + c.Name)
	}
	p.pos++

	end := strings.IndexByte(p.src[p.pos:], ')')
	if end < 0 {
		return Call{}, p.errorf("missing ')'")
	}
	body := p.src[p.pos : p.pos+end]
	if strings.ContainsRune(body, '(') {
		return Call{}, p.errorf("nested calls are not supported")
	}
	p.pos += end + 1

	if strings.TrimSpace(body) != "" {
		for _, arg := range strings.Split(body, ",") {
			arg = strings.TrimSpace(arg)
			if arg == "" {
				return Call{}, p.errorf("empty argument to " + c.Name)
			}
			c.Args = append(c.Args, arg)
		}
	}
	return c, nil
}

func (p *callParser) errorf(msg string) error {
	return errors.Newf(errors.ErrFormatInvalid, "%s at offset %d in %q", msg, p.pos, p.src)
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case !first && (c >= '0' && c <= '9'):
		return true
	}
	return false
}

// replaceFunc applies named replacement maps in argument order.
type replaceFunc struct {
	store *Store
}

func (f replaceFunc) Check(args []string) error {
	if len(args) == 0 {
		return errors.New(errors.ErrFormatInvalid, "replace needs at least one map name")
	}
	for _, name := range args {
		if _, ok := f.store.Get(name); !ok {
			return errors.Newf(errors.ErrMapUnknown, "specified format replace group does not exist: %s", name).
				WithDetail("map", name)
		}
	}
	return nil
}

func (f replaceFunc) Apply(value string, args []string) (string, error) {
	for _, name := range args {
		m, ok := f.store.Get(name)
		if !ok {
			return "", errors.Newf(errors.ErrMapUnknown, "specified format replace group does not exist: %s", name).
				WithDetail("map", name)
		}
		value = m.Apply(value)
	}
	return value, nil
}
