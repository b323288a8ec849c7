// Package pathtree implements the path parser (spec.md §4.2): an
// iterative, allocation-free walk over a UTF-8, '/'-separated path,
// optionally absolute, yielding (name, isLast) pairs. Empty components
// are rejected; components longer than MaxNameLength are rejected.
package pathtree

import (
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/result"
)

// MaxNameLength bounds a single path component, matching the "bounded
// UTF-8 string" constraint on Entry.name in spec.md §3.
const MaxNameLength = 64

// Segment is one (name, isLast) pair yielded while walking a path.
type Segment struct {
	Name   string
	IsLast bool
}

// Parser iterates the components of a path without allocating.
type Parser struct {
	path  string
	pos   int
	limit int
}

// NewParser returns a Parser over path, stripping one leading '/' if
// present (an absolute path and a relative one walk identically).
// Components are bounded by MaxNameLength.
func NewParser(path string) *Parser {
	return NewParserWithLimit(path, MaxNameLength)
}

// NewParserWithLimit is NewParser with a caller-supplied component
// length bound, for deployments that configure a tighter or looser
// name limit than MaxNameLength's default (spec.md §3's "bounded
// UTF-8 string" leaves the bound itself a deployment knob).
func NewParserWithLimit(path string, limit int) *Parser {
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if limit <= 0 {
		limit = MaxNameLength
	}
	return &Parser{path: path, limit: limit}
}

// Next returns the next path segment. ok is false once the path is
// exhausted. err is non-nil (result.BadParameter) for an empty
// component or a component longer than the parser's name limit.
func (p *Parser) Next() (seg Segment, ok bool, err error) {
	if p.pos == len(p.path) && p.pos > 0 && p.path[p.pos-1] == '/' {
		// A trailing slash leaves an empty final component pending;
		// advance past it so a second call doesn't report it twice.
		p.pos++
		return Segment{}, false, result.New(result.BadParameter, "pathtree", "Next", "empty path component")
	}
	if p.pos >= len(p.path) {
		return Segment{}, false, nil
	}

	start := p.pos
	end := start
	for end < len(p.path) && p.path[end] != '/' {
		end++
	}

	name := p.path[start:end]
	if name == "" {
		return Segment{}, false, result.New(result.BadParameter, "pathtree", "Next", "empty path component")
	}
	if len(name) > p.limit {
		return Segment{}, false, result.New(result.BadParameter, "pathtree", "Next", "path component too long")
	}

	isLast := end >= len(p.path)
	p.pos = end + 1

	return Segment{Name: name, IsLast: isLast}, true, nil
}

// Split parses path fully into an ordered slice of names, for callers
// that want the whole path at once rather than iterating. It validates
// every component the same way Next does.
func Split(path string) ([]string, error) {
	p := NewParser(path)
	var names []string
	for {
		seg, ok, err := p.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		names = append(names, seg.Name)
	}
	if len(names) == 0 {
		return nil, result.New(result.BadParameter, "pathtree", "Split", "empty path")
	}
	return names, nil
}
