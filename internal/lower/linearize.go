package lower

import (
	"axc/internal/loopir"
)

// linearize flattens the closed frame tree under the root into one block,
// numbering loops in emission order
func (s *Session) linearize(outputs []loopir.Reg) (*loopir.Function, error) {
	b := loopir.NewBuilder(s.fn.Name)
	if err := s.linearizeFrame(b, s.env.Root()); err != nil {
		return nil, err
	}
	if err := b.Yield(outputs...); err != nil {
		return nil, &StructuralError{Msg: "yield", Err: err}
	}
	fn, err := b.Function()
	if err != nil {
		return nil, &StructuralError{Msg: "linearize", Err: err}
	}
	return fn, nil
}

func (s *Session) linearizeFrame(b *loopir.Builder, f *Frame) error {
	for _, it := range f.Items {
		if it.frame == nil {
			if err := b.Emit(it.inst); err != nil {
				return &StructuralError{Msg: "emit", Err: err}
			}
			continue
		}
		sub := it.frame
		id := s.freshLoop()
		if err := b.LoopStart(sub.Axis, sub.Collection, sub.Element, sub.Index, id); err != nil {
			return &StructuralError{Msg: "loop_start", Err: err}
		}
		if err := s.linearizeFrame(b, sub); err != nil {
			return err
		}
		if err := b.LoopEnd(id); err != nil {
			return &StructuralError{Msg: "loop_end", Err: err}
		}
	}
	return nil
}
