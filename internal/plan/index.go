package plan

import (
	"maps"
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"axc/grammar"
	"axc/internal/dataflow"
)

// Index resolves plan references. Lookup returns nil when the reference
// has no physical backing.
type Index interface {
	Lookup(ref string) *Entry
}

// MapIndex is an immutable Index backed by a map
type MapIndex struct {
	entries map[string]*Entry
}

// NewMapIndex validates and indexes entries. Duplicate references are rejected.
func NewMapIndex(entries ...*Entry) (*MapIndex, error) {
	idx := &MapIndex{entries: make(map[string]*Entry, len(entries))}
	var errs error
	for _, e := range entries {
		if _, dup := idx.entries[e.Ref]; dup {
			errs = multierr.Append(errs, errors.Errorf("plan %q declared twice", e.Ref))
			continue
		}
		if err := e.Validate(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		idx.entries[e.Ref] = e
	}
	if errs != nil {
		return nil, errs
	}
	return idx, nil
}

func (m *MapIndex) Lookup(ref string) *Entry {
	return m.entries[ref]
}

// Refs returns all references in sorted order
func (m *MapIndex) Refs() []string {
	return slices.Sorted(maps.Keys(m.entries))
}

func (m *MapIndex) Len() int {
	return len(m.entries)
}

// FromGrammar converts a parsed plan declaration
func FromGrammar(p *grammar.Plan) (*Entry, error) {
	var (
		axes    []dataflow.Axis
		head    []string
		between [][]string
	)
	for i, l := range p.Loops {
		switch {
		case i == 0 && l.Source != "input":
			return nil, errors.Errorf("plan %q: the first loop must read from input", p.Ref)
		case i > 0 && l.Source != "field":
			return nil, errors.Errorf("plan %q: loop %d must read from a field of the enclosing element", p.Ref, i)
		}
		axes = append(axes, dataflow.Axis(l.Axis))
		if i == 0 {
			head = l.Keys
		} else {
			between = append(between, l.Keys)
		}
	}
	return NewEntry(p.Ref, axes, head, between, p.Tail, p.Element), nil
}

// IndexFromFile builds an index from every plan declared in a file
func IndexFromFile(file *grammar.File) (*MapIndex, error) {
	var (
		entries []*Entry
		errs    error
	)
	for _, p := range file.Plans() {
		e, err := FromGrammar(p)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		entries = append(entries, e)
	}
	idx, err := NewMapIndex(entries...)
	errs = multierr.Append(errs, err)
	if errs != nil {
		return nil, errs
	}
	return idx, nil
}
