package loopir

import (
	"fmt"
	"strings"

	"axc/internal/builtins"
	"axc/internal/dataflow"
)

// Printer provides pretty-printing for loop IR
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates a new loop IR printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// Print returns the text form of a function, loop bodies indented
func Print(fn *Function) string {
	p := NewPrinter()
	p.printFunction(fn)
	return p.output.String()
}

// PrintAll prints functions separated by blank lines
func PrintAll(fns []*Function) string {
	parts := make([]string, len(fns))
	for i, fn := range fns {
		parts[i] = Print(fn)
	}
	return strings.Join(parts, "\n")
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...any) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printFunction(fn *Function) {
	if len(fn.Outputs) > 0 {
		p.writeLine("fn %s -> %s {", fn.Name, joinRegs(fn.Outputs))
	} else {
		p.writeLine("fn %s {", fn.Name)
	}
	p.indent++
	for _, inst := range fn.Body {
		if inst.Op == OpLoopEnd {
			p.indent--
		}
		p.writeLine("%s", inst.String())
		if inst.Op == OpLoopStart {
			p.indent++
		}
	}
	p.indent--
	p.writeLine("}")
}

func (i *Instruction) String() string {
	switch i.Op {
	case OpLoopStart:
		return fmt.Sprintf("loop_start %s %s: %s, %s in %s", i.Loop, i.Axis, i.Result, i.Index, joinRegs(i.Args))
	case OpLoopEnd:
		return "loop_end " + i.Loop
	case OpYield:
		return "yield " + joinRegs(i.Args)
	}

	var b strings.Builder
	if i.Result != "" {
		b.WriteString(string(i.Result) + " = ")
	}
	b.WriteString(fmt.Sprintf("%s(%s)", i.Op, joinRegs(i.Args)))
	if i.Axis != "" {
		b.WriteString(" @" + string(i.Axis))
	}
	if i.Op == OpDeclareAccumulator {
		b.WriteString(fmt.Sprintf(" @[%s]", dataflow.JoinAxes(i.Axes)))
	}
	if i.DType != builtins.Unknown {
		b.WriteString(" : " + i.DType.String())
	}
	if len(i.Attrs) > 0 {
		b.WriteString(" {" + i.Attrs.Canonical() + "}")
	}
	return b.String()
}

func joinRegs(regs []Reg) string {
	parts := make([]string, len(regs))
	for i, r := range regs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
