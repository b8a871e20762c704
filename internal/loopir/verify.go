package loopir

import (
	"fmt"

	"go.uber.org/multierr"
)

// Verify checks a lowered function: loops are stack matched, yield is the
// single last instruction, every register is read inside the loop scope
// that defines it and accumulators are declared before they are used.
func Verify(fn *Function) error {
	var errs error
	fail := func(idx int, format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf("%s: #%d: %s", fn.Name, idx, fmt.Sprintf(format, args...)))
	}

	// scopes[0] is the function body, one more per open loop
	scopes := []map[Reg]bool{{}}
	var loops []string
	visible := func(r Reg) bool {
		for _, s := range scopes {
			if s[r] {
				return true
			}
		}
		return false
	}
	defined := make(map[Reg]bool)
	accumulators := make(map[Reg]bool)
	yields := 0

	for idx, inst := range fn.Body {
		for _, arg := range inst.Args {
			if !visible(arg) {
				fail(idx, "%s reads %s outside of its scope", inst.Op, arg)
			}
		}

		switch inst.Op {
		case OpLoopStart:
			loops = append(loops, inst.Loop)
			scopes = append(scopes, map[Reg]bool{})
		case OpLoopEnd:
			if len(loops) == 0 || loops[len(loops)-1] != inst.Loop {
				fail(idx, "unmatched loop_end %s", inst.Loop)
				continue
			}
			loops = loops[:len(loops)-1]
			scopes = scopes[:len(scopes)-1]
		case OpDeclareAccumulator:
			accumulators[inst.Result] = true
		case OpAccumulate, OpLoadAccumulator:
			if len(inst.Args) == 0 || !accumulators[inst.Args[0]] {
				fail(idx, "%s without a declared accumulator", inst.Op)
			}
		case OpYield:
			yields++
			if idx != len(fn.Body)-1 {
				fail(idx, "yield is not the last instruction")
			}
		}

		for _, def := range inst.Defs() {
			if defined[def] {
				fail(idx, "%s is defined twice", def)
			}
			defined[def] = true
			scopes[len(scopes)-1][def] = true
		}
	}

	if len(loops) > 0 {
		fail(len(fn.Body), "loop %s is never closed", loops[len(loops)-1])
	}
	if yields != 1 {
		fail(len(fn.Body), "expected exactly one yield, found %d", yields)
	}
	return errs
}
