package dataflow

import (
	"math"
	"strings"

	"github.com/tliron/commonlog"

	"axc/internal/builtins"
)

// Local rewrites over a single dataflow function. They keep the graph in
// the same form so lowering can run with or without them.

var log = commonlog.GetLogger("axc.dataflow")

// Pass is a single rewrite over a function
type Pass interface {
	Name() string
	Description() string
	Apply(fn *Function) bool // Returns true if changes were made
}

// Pipeline runs passes in order
type Pipeline struct {
	passes []Pass
}

// NewPipeline creates a pipeline with the default passes
func NewPipeline() *Pipeline {
	p := &Pipeline{}
	p.AddPass(&ConstantFolding{})
	p.AddPass(&CommonSubexpressionElimination{})
	p.AddPass(&DeadCodeElimination{}) // after CSE, which leaves unused loads
	return p
}

func (p *Pipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
}

// Run applies every pass once and reports whether any changed the function
func (p *Pipeline) Run(fn *Function) bool {
	changed := false
	for _, pass := range p.passes {
		if pass.Apply(fn) {
			log.Debugf("%s: %s changed the function", fn.Name, pass.Name())
			changed = true
		} else {
			log.Debugf("%s: %s made no changes", fn.Name, pass.Name())
		}
	}
	return changed
}

// ConstantFolding evaluates map kernels whose inputs are all scalar constants
type ConstantFolding struct{}

func (cf *ConstantFolding) Name() string {
	return "Constant Folding"
}

func (cf *ConstantFolding) Description() string {
	return "Evaluates scalar map kernels over constants and replaces them with literals"
}

func (cf *ConstantFolding) Apply(fn *Function) bool {
	changed := false
	constants := make(map[Reg]any)

	for idx, inst := range fn.Body {
		switch inst.Op {
		case OpConstant:
			if v, ok := inst.Attrs["value"]; ok && inst.IsScalar() {
				constants[inst.Result] = v
			}
		case OpMap:
			if !inst.IsScalar() {
				continue
			}
			kernel, _ := inst.Attrs.Str("fn")
			args := make([]any, 0, len(inst.Inputs))
			for _, in := range inst.Inputs {
				v, ok := constants[in]
				if !ok {
					break
				}
				args = append(args, v)
			}
			if len(args) != len(inst.Inputs) {
				continue
			}
			result := cf.computeKernel(kernel, args)
			if result == nil {
				continue
			}
			dtype := inst.DType
			if dtype == builtins.Unknown {
				dtype = dtypeOf(result)
			}
			fn.Body[idx] = &Instruction{
				Op:     OpConstant,
				Result: inst.Result,
				Attrs:  Attrs{"value": result},
				DType:  dtype,
				Pos:    inst.Pos,
			}
			constants[inst.Result] = result
			changed = true
		}
	}
	return changed
}

// computeKernel evaluates an elementwise kernel, nil when it cannot be folded
func (cf *ConstantFolding) computeKernel(kernel string, args []any) any {
	kernel = strings.TrimPrefix(kernel, "core.")
	switch len(args) {
	case 1:
		return cf.computeUnary(kernel, args[0])
	case 2:
		return cf.computeBinary(kernel, args[0], args[1])
	}
	return nil
}

func (cf *ConstantFolding) computeUnary(kernel string, v any) any {
	switch x := v.(type) {
	case int64:
		switch kernel {
		case "neg":
			return -x
		case "abs":
			if x < 0 {
				return -x
			}
			return x
		}
	case float64:
		switch kernel {
		case "neg":
			return -x
		case "abs":
			return math.Abs(x)
		}
	case bool:
		if kernel == "not" {
			return !x
		}
	}
	return nil
}

func (cf *ConstantFolding) computeBinary(kernel string, left, right any) any {
	leftInt, leftIsInt := left.(int64)
	rightInt, rightIsInt := right.(int64)

	if leftIsInt && rightIsInt {
		switch kernel {
		case "add":
			return leftInt + rightInt
		case "sub":
			return leftInt - rightInt
		case "mul":
			return leftInt * rightInt
		case "mod":
			if rightInt != 0 {
				return leftInt % rightInt
			}
			return nil
		}
	}

	leftFloat, leftIsNum := asFloat(left)
	rightFloat, rightIsNum := asFloat(right)
	if leftIsNum && rightIsNum {
		switch kernel {
		case "add":
			return leftFloat + rightFloat
		case "sub":
			return leftFloat - rightFloat
		case "mul":
			return leftFloat * rightFloat
		case "div":
			if rightFloat != 0 {
				return leftFloat / rightFloat
			}
		case "eq":
			return leftFloat == rightFloat
		case "ne":
			return leftFloat != rightFloat
		case "lt":
			return leftFloat < rightFloat
		case "le":
			return leftFloat <= rightFloat
		case "gt":
			return leftFloat > rightFloat
		case "ge":
			return leftFloat >= rightFloat
		}
		return nil
	}

	leftBool, leftIsBool := left.(bool)
	rightBool, rightIsBool := right.(bool)
	if leftIsBool && rightIsBool {
		switch kernel {
		case "and":
			return leftBool && rightBool
		case "or":
			return leftBool || rightBool
		case "eq":
			return leftBool == rightBool
		case "ne":
			return leftBool != rightBool
		}
	}

	leftStr, leftIsStr := left.(string)
	rightStr, rightIsStr := right.(string)
	if leftIsStr && rightIsStr {
		switch kernel {
		case "eq":
			return leftStr == rightStr
		case "ne":
			return leftStr != rightStr
		}
	}

	return nil // Cannot fold
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func dtypeOf(v any) builtins.DType {
	switch v.(type) {
	case int64:
		return builtins.Int
	case float64:
		return builtins.Float
	case bool:
		return builtins.Bool
	case string:
		return builtins.String
	}
	return builtins.Unknown
}

// CommonSubexpressionElimination merges identical pure instructions.
// Repeated loads of the same input path or field are the common case.
type CommonSubexpressionElimination struct{}

func (cse *CommonSubexpressionElimination) Name() string {
	return "Common Subexpression Elimination"
}

func (cse *CommonSubexpressionElimination) Description() string {
	return "Replaces recomputations of identical pure instructions with the first result"
}

func (cse *CommonSubexpressionElimination) Apply(fn *Function) bool {
	available := make(map[string]Reg)
	renamed := make(map[Reg]Reg)
	kept := fn.Body[:0]

	for _, inst := range fn.Body {
		for i, in := range inst.Inputs {
			if r, ok := renamed[in]; ok {
				inst.Inputs[i] = r
			}
		}
		if inst.Result == "" || !IsPure(inst) {
			kept = append(kept, inst)
			continue
		}
		key := cse.key(inst)
		if first, ok := available[key]; ok {
			renamed[inst.Result] = first
			continue
		}
		available[key] = inst.Result
		kept = append(kept, inst)
	}
	fn.Body = kept

	for i, out := range fn.Outputs {
		if r, ok := renamed[out]; ok {
			fn.Outputs[i] = r
		}
	}
	return len(renamed) > 0
}

func (cse *CommonSubexpressionElimination) key(inst *Instruction) string {
	var b strings.Builder
	b.WriteString(inst.Op.String())
	b.WriteString("(")
	for i, in := range inst.Inputs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(string(in))
	}
	b.WriteString(")[")
	b.WriteString(JoinAxes(inst.Axes))
	b.WriteString("][")
	b.WriteString(JoinAxes(inst.Over))
	b.WriteString("]:")
	b.WriteString(string(inst.DType))
	b.WriteString("{")
	b.WriteString(inst.Attrs.Canonical())
	b.WriteString("}")
	return b.String()
}

// DeadCodeElimination removes pure instructions whose results are unused
type DeadCodeElimination struct{}

func (dce *DeadCodeElimination) Name() string {
	return "Dead Code Elimination"
}

func (dce *DeadCodeElimination) Description() string {
	return "Removes pure instructions whose results are never read"
}

func (dce *DeadCodeElimination) Apply(fn *Function) bool {
	changed := false
	for {
		uses := fn.Uses()
		kept := make([]*Instruction, 0, len(fn.Body))
		removed := false
		for _, inst := range fn.Body {
			if dce.shouldKeepInstruction(inst, uses) {
				kept = append(kept, inst)
			} else {
				removed = true
			}
		}
		fn.Body = kept
		if !removed {
			return changed
		}
		changed = true
	}
}

func (dce *DeadCodeElimination) shouldKeepInstruction(inst *Instruction, uses map[Reg]int) bool {
	if !IsPure(inst) {
		return true
	}
	return inst.Result != "" && uses[inst.Result] > 0
}
