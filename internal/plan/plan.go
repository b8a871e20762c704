package plan

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"

	"axc/internal/dataflow"
)

// LoopPair names two consecutive loops of an access path
type LoopPair struct {
	Outer int
	Inner int
}

// Entry describes how one access path is walked: which axis each loop
// opens, where the outermost collection lives and which field keys lead
// from one loop's element to the next loop's collection.
type Entry struct {
	Ref             string
	AxisToLoop      map[dataflow.Axis]int
	HeadPathByLoop  map[int][]string // only loop 0
	BetweenLoops    map[LoopPair][]string
	LoopAxes        []dataflow.Axis
	LastLoop        int // -1 when the path opens no loop
	TailKeys        []string
	ElementTerminal bool // the path ends at the last loop's element itself
}

// NewEntry builds an entry from its loop axes, the head path of the first
// loop and the keys walked between consecutive loops.
func NewEntry(ref string, axes []dataflow.Axis, head []string, between [][]string, tail []string, element bool) *Entry {
	e := &Entry{
		Ref:             ref,
		AxisToLoop:      make(map[dataflow.Axis]int, len(axes)),
		HeadPathByLoop:  make(map[int][]string),
		BetweenLoops:    make(map[LoopPair][]string),
		LoopAxes:        slices.Clone(axes),
		LastLoop:        len(axes) - 1,
		TailKeys:        slices.Clone(tail),
		ElementTerminal: element,
	}
	for i, a := range axes {
		e.AxisToLoop[a] = i
	}
	if len(axes) > 0 {
		e.HeadPathByLoop[0] = slices.Clone(head)
	}
	for i, keys := range between {
		e.BetweenLoops[LoopPair{Outer: i, Inner: i + 1}] = slices.Clone(keys)
	}
	return e
}

// Validate checks the entry invariants
func (e *Entry) Validate() error {
	if e.LastLoop != len(e.LoopAxes)-1 {
		return errors.Errorf("plan %q: last loop %d does not match %d loop axes", e.Ref, e.LastLoop, len(e.LoopAxes))
	}
	if len(e.AxisToLoop) != len(e.LoopAxes) {
		return errors.Errorf("plan %q: %d axes mapped for %d loops", e.Ref, len(e.AxisToLoop), len(e.LoopAxes))
	}
	for i, a := range e.LoopAxes {
		li, ok := e.AxisToLoop[a]
		if !ok || li != i {
			return errors.Errorf("plan %q: axis %s is not mapped to loop %d", e.Ref, a, i)
		}
	}
	for li := range e.HeadPathByLoop {
		if li != 0 {
			return errors.Errorf("plan %q: head path given for loop %d", e.Ref, li)
		}
	}
	if len(e.LoopAxes) > 0 && len(e.HeadPathByLoop[0]) == 0 {
		return errors.Errorf("plan %q: first loop has no head path", e.Ref)
	}
	for pair := range e.BetweenLoops {
		if pair.Inner != pair.Outer+1 || pair.Outer < 0 || pair.Inner > e.LastLoop {
			return errors.Errorf("plan %q: keys between loops %d and %d", e.Ref, pair.Outer, pair.Inner)
		}
	}
	if e.ElementTerminal && len(e.TailKeys) > 0 {
		return errors.Errorf("plan %q: element terminal path has tail keys", e.Ref)
	}
	if e.ElementTerminal && len(e.LoopAxes) == 0 {
		return errors.Errorf("plan %q: element terminal path opens no loop", e.Ref)
	}
	return nil
}

// Opens reports the loop index at which the entry opens an axis
func (e *Entry) Opens(axis dataflow.Axis) (int, bool) {
	li, ok := e.AxisToLoop[axis]
	return li, ok
}

// LastAxis returns the axis of the last loop, or "" for a loop free path
func (e *Entry) LastAxis() dataflow.Axis {
	if e.LastLoop < 0 {
		return ""
	}
	return e.LoopAxes[e.LastLoop]
}

// Between returns the field keys that lead from the element of loop li-1
// to the collection of loop li
func (e *Entry) Between(li int) []string {
	return e.BetweenLoops[LoopPair{Outer: li - 1, Inner: li}]
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s: loops [%s], tail %v, element %t", e.Ref, dataflow.JoinAxes(e.LoopAxes), e.TailKeys, e.ElementTerminal)
}
