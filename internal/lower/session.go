package lower

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"

	"axc/internal/dataflow"
	"axc/internal/loopir"
	"axc/internal/plan"
	"axc/internal/registry"
)

var log = commonlog.GetLogger("axc.lower")

// Registry resolves kernel names. Lowering only reads it, to find fold
// result dtypes and default shift policies.
type Registry interface {
	ResolveFunction(name string) (registry.FuncID, error)
	FunctionOptions(id registry.FuncID) (map[string]any, error)
}

// Session lowers one dataflow function. It owns all state of the pass;
// nothing is shared between sessions.
type Session struct {
	fn       *dataflow.Function
	plans    plan.Index
	registry Registry
	env      *Env

	defs     map[dataflow.Reg]*dataflow.Instruction
	regs     map[dataflow.Reg]loopir.Reg // where each result landed
	origins  map[dataflow.Reg][]string   // plan references a value was walked from
	defFrame map[loopir.Reg]*Frame       // frame whose body defines the register
	pending  map[dataflow.Reg]*Frame     // results deferred until the frame closes
	heads    map[string]loopir.Reg       // root loads of input paths

	names int
	loops int
}

// NewSession prepares the lowering of fn. plans and reg may be nil.
func NewSession(fn *dataflow.Function, plans plan.Index, reg Registry) *Session {
	return &Session{
		fn:       fn,
		plans:    plans,
		registry: reg,
		env:      NewEnv(),
		defs:     fn.Definitions(),
		regs:     make(map[dataflow.Reg]loopir.Reg),
		origins:  make(map[dataflow.Reg][]string),
		defFrame: make(map[loopir.Reg]*Frame),
		pending:  make(map[dataflow.Reg]*Frame),
		heads:    make(map[string]loopir.Reg),
	}
}

// Lower turns a dataflow function into a loop IR function
func Lower(fn *dataflow.Function, plans plan.Index, reg Registry) (*loopir.Function, error) {
	return NewSession(fn, plans, reg).Run()
}

// Run consumes the function body once and returns the loop program
func (s *Session) Run() (*loopir.Function, error) {
	for _, inst := range s.fn.Body {
		if err := s.lowerInstruction(inst); err != nil {
			return nil, &Error{Func: s.fn.Name, Pos: inst.Pos, Err: errors.Wrapf(err, "%s", inst)}
		}
	}
	for s.env.Depth() > 0 {
		if err := s.closeFrame(); err != nil {
			return nil, &Error{Func: s.fn.Name, Pos: s.fn.Pos, Err: err}
		}
	}

	outputs := make([]loopir.Reg, 0, len(s.fn.Outputs))
	for _, out := range s.fn.Outputs {
		r, err := s.operand(out)
		if err != nil {
			return nil, &Error{Func: s.fn.Name, Pos: s.fn.Pos, Err: errors.Wrapf(err, "output %s", out)}
		}
		outputs = append(outputs, r)
	}

	fn, err := s.linearize(outputs)
	if err != nil {
		return nil, &Error{Func: s.fn.Name, Pos: s.fn.Pos, Err: err}
	}
	log.Debugf("%s: lowered %d instructions into %d", s.fn.Name, len(s.fn.Body), len(fn.Body))
	return fn, nil
}

func (s *Session) lowerInstruction(inst *dataflow.Instruction) error {
	if inst.Op.Valid() && !inst.Op.AcceptsInputs(len(inst.Inputs)) {
		return structuralf("%s %s has %d inputs", inst.Op, inst.Result, len(inst.Inputs))
	}
	if isScopeFree(inst) {
		// scope independent values go to the root without closing loops
		if err := s.translate(inst, s.env.Root()); err != nil {
			return err
		}
	} else {
		if err := s.ensureContext(inst); err != nil {
			return err
		}
		var err error
		if inst.Op == dataflow.OpReduce {
			err = s.lowerReduce(inst)
		} else {
			err = s.translate(inst, s.env.Top())
		}
		if err != nil {
			return err
		}
	}
	if inst.Result != "" {
		s.origins[inst.Result] = s.planRefs(inst)
	}
	return nil
}

func isScopeFree(inst *dataflow.Instruction) bool {
	return inst.Op.IsScopeFree() && len(inst.Inputs) == 0 && inst.IsScalar()
}

func (s *Session) fresh(prefix string) loopir.Reg {
	r := loopir.Reg(fmt.Sprintf("%%%s%d", prefix, s.names))
	s.names++
	return r
}

func (s *Session) freshLoop() string {
	id := fmt.Sprintf("L%d", s.loops)
	s.loops++
	return id
}

// emit appends an instruction to f and records where its registers live
func (s *Session) emit(f *Frame, inst *loopir.Instruction) {
	f.add(inst)
	for _, d := range inst.Defs() {
		s.defFrame[d] = f
	}
}

func (s *Session) bind(df dataflow.Reg, r loopir.Reg) {
	if df != "" {
		s.regs[df] = r
	}
}

func (s *Session) visible(r loopir.Reg) bool {
	f, ok := s.defFrame[r]
	return ok && s.env.Contains(f)
}

// operand returns the loop register holding a dataflow value in the
// current context, recomputing it when it was defined in a closed loop
func (s *Session) operand(df dataflow.Reg) (loopir.Reg, error) {
	r, ok := s.regs[df]
	if !ok {
		return "", structuralf("%s has no lowered value", df)
	}
	if s.visible(r) {
		return r, nil
	}
	return s.rematerialize(df)
}

func (s *Session) operands(dfs []dataflow.Reg) ([]loopir.Reg, error) {
	out := make([]loopir.Reg, 0, len(dfs))
	for _, df := range dfs {
		r, err := s.operand(df)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Session) rematerialize(df dataflow.Reg) (loopir.Reg, error) {
	def, ok := s.defs[df]
	if !ok {
		return "", structuralf("%s is not defined", df)
	}
	if def.Op != dataflow.OpReduce && !dataflow.IsRecomputable(def) {
		return "", structuralf("%s (%s) is read outside of its loop and cannot be recomputed", df, def.Op)
	}
	target := s.env.Root()
	if !def.IsScalar() {
		target = s.env.FrameFor(def.Axes[len(def.Axes)-1])
		if target == nil {
			return "", structuralf("%s is read outside of every loop over %s", df, def.Axes[len(def.Axes)-1])
		}
	}
	log.Debugf("%s: recomputing %s in the loop over %s", s.fn.Name, df, target.Axis)
	if def.Op == dataflow.OpReduce {
		if err := s.rematerializeReduce(def, target); err != nil {
			return "", err
		}
		return s.regs[df], nil
	}
	if err := s.translate(def, target); err != nil {
		return "", err
	}
	return s.regs[df], nil
}

// rematerializeReduce runs a reduction again inside target. Loops deeper
// than target are set aside, fresh loops over the reduced axes are opened
// under it, and the loaded result lands in target once they close.
func (s *Session) rematerializeReduce(def *dataflow.Instruction, target *Frame) error {
	above, err := s.env.Suspend(target)
	if err != nil {
		return err
	}
	depth := s.env.Depth()
	for _, axis := range def.Over {
		if err := s.openAxis(def, axis); err != nil {
			return err
		}
	}

	operand, err := s.operand(def.Inputs[0])
	if err != nil {
		return err
	}
	fn, _ := def.Attrs.Str("fn")
	acc := s.fresh("acc")
	s.emit(target, &loopir.Instruction{
		Op:     loopir.OpDeclareAccumulator,
		Result: acc,
		Axes:   def.Axes,
		DType:  def.DType,
		Attrs:  dataflow.Attrs{"fn": fn},
	})
	s.emit(s.env.Top(), &loopir.Instruction{
		Op:   loopir.OpAccumulate,
		Args: []loopir.Reg{acc, operand},
	})
	for s.env.Depth() > depth {
		if err := s.closeFrame(); err != nil {
			return err
		}
	}

	load := &loopir.Instruction{
		Op:     loopir.OpLoadAccumulator,
		Result: s.fresh("t"),
		Args:   []loopir.Reg{acc},
		DType:  def.DType,
	}
	s.emit(target, load)
	s.bind(def.Result, load.Result)
	s.env.Resume(above)
	return nil
}

func (s *Session) lookupPlan(ref string) *plan.Entry {
	if s.plans == nil || ref == "" {
		return nil
	}
	return s.plans.Lookup(ref)
}

// planRefs lists the plan references reachable from an instruction: its
// own first, then those inherited through its inputs in order
func (s *Session) planRefs(inst *dataflow.Instruction) []string {
	var refs []string
	seen := make(map[string]bool)
	add := func(ref string) {
		if ref != "" && !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	add(inst.PlanRef())
	for _, in := range inst.Inputs {
		for _, ref := range s.origins[in] {
			add(ref)
		}
	}
	return refs
}
