package lower

import (
	"strings"

	"axc/internal/builtins"
	"axc/internal/dataflow"
	"axc/internal/loopir"
	"axc/internal/plan"
)

// ensureContext makes the open loops match the scope of inst. The longest
// common prefix of open and required axes stays open, except that a loop
// holding a deferred input must close first so the input is loaded.
func (s *Session) ensureContext(inst *dataflow.Instruction) error {
	target := inst.Scope()
	open := s.env.Axes()

	keep := 0
	for keep < len(open) && keep < len(target) && open[keep] == target[keep] {
		keep++
	}
	for _, in := range inst.Inputs {
		if f, ok := s.pending[in]; ok {
			if d := s.env.DepthOf(f); d > 0 && d-1 < keep {
				keep = d - 1
			}
		}
	}

	for s.env.Depth() > keep {
		if err := s.closeFrame(); err != nil {
			return err
		}
	}
	for _, axis := range target[keep:] {
		if err := s.openAxis(inst, axis); err != nil {
			return err
		}
	}
	return nil
}

// closeFrame closes the innermost loop and releases its deferred results
func (s *Session) closeFrame() error {
	closed, err := s.env.Close()
	if err != nil {
		return err
	}
	parent := s.env.Top()
	for _, inst := range closed.After {
		for _, d := range inst.Defs() {
			s.defFrame[d] = parent
		}
	}
	for df, f := range s.pending {
		if f == closed {
			delete(s.pending, df)
		}
	}
	log.Debugf("%s: closed loop over %s", s.fn.Name, closed.Axis)
	return nil
}

// openAxis pushes a loop over axis, iterating the collection given by the
// first plan entry reachable from inst that opens the axis
func (s *Session) openAxis(inst *dataflow.Instruction, axis dataflow.Axis) error {
	refs := s.planRefs(inst)
	entry, li := s.planFor(refs, axis)
	if entry == nil {
		return &UnresolvedAxisError{Axis: axis, Op: inst.Op, Tried: refs}
	}

	var collection loopir.Reg
	if li == 0 {
		collection = s.headCollection(entry)
	} else {
		outer := entry.LoopAxes[li-1]
		el, ok := s.env.ElementFor(outer)
		if !ok {
			return &UnresolvedAxisError{
				Axis:   axis,
				Op:     inst.Op,
				Tried:  refs,
				Reason: "plan " + entry.Ref + " walks it from " + string(outer) + ", which is not open",
			}
		}
		collection = s.walk(s.env.Top(), el, entry.Between(li), builtins.List)
	}

	f := &Frame{
		Axis:       axis,
		Collection: collection,
		Element:    s.fresh("el"),
		Index:      s.fresh("ix"),
	}
	s.env.Push(f)
	s.defFrame[f.Element] = f
	s.defFrame[f.Index] = f
	log.Debugf("%s: opened loop over %s using plan %s", s.fn.Name, axis, entry.Ref)
	return nil
}

func (s *Session) planFor(refs []string, axis dataflow.Axis) (*plan.Entry, int) {
	for _, ref := range refs {
		entry := s.lookupPlan(ref)
		if entry == nil {
			continue
		}
		if li, ok := entry.Opens(axis); ok {
			return entry, li
		}
	}
	return nil, -1
}

// headCollection returns the root load of the path backing loop 0,
// reusing an earlier load of the same path
func (s *Session) headCollection(entry *plan.Entry) loopir.Reg {
	path := strings.Join(entry.HeadPathByLoop[0], ".")
	if r, ok := s.heads[path]; ok && s.visible(r) {
		return r
	}
	r := s.fresh("t")
	s.emit(s.env.Root(), &loopir.Instruction{
		Op:     loopir.OpLoadInput,
		Result: r,
		DType:  builtins.List,
		Attrs:  dataflow.Attrs{"path": path},
	})
	s.heads[path] = r
	return r
}

// walk emits one load_field per key starting at base and returns the
// final register. The last load gets dtype last, the others object.
func (s *Session) walk(f *Frame, base loopir.Reg, keys []string, last builtins.DType) loopir.Reg {
	r := base
	for i, key := range keys {
		dtype := builtins.Object
		if i == len(keys)-1 {
			dtype = last
		}
		next := s.fresh("t")
		s.emit(f, &loopir.Instruction{
			Op:     loopir.OpLoadField,
			Result: next,
			Args:   []loopir.Reg{r},
			DType:  dtype,
			Attrs:  dataflow.Attrs{"key": key},
		})
		r = next
	}
	return r
}
