package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

func indent(level int) string {
	return strings.Repeat("    ", level)
}

func (f *File) String() string {
	var b strings.Builder
	if f.Graph != "" {
		b.WriteString(fmt.Sprintf("graph %s\n\n", f.Graph))
	}
	for i, d := range f.Decls {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case d.Plan != nil:
			b.WriteString(d.Plan.String())
		case d.Func != nil:
			b.WriteString(d.Func.String())
		}
	}
	return b.String()
}

func (p *Plan) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("plan %s {\n", strconv.Quote(p.Ref)))
	for _, l := range p.Loops {
		b.WriteString(indent(1) + l.String() + "\n")
	}
	if len(p.Tail) > 0 {
		b.WriteString(indent(1) + "tail " + quoteAll(p.Tail) + "\n")
	}
	if p.Element {
		b.WriteString(indent(1) + "element\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func (l *PlanLoop) String() string {
	s := fmt.Sprintf("loop %s from %s", l.Axis, l.Source)
	if len(l.Keys) > 0 {
		s += " " + quoteAll(l.Keys)
	}
	return s
}

func (f *Func) String() string {
	var b strings.Builder
	b.WriteString("fn " + f.Name)
	if len(f.Outputs) > 0 {
		b.WriteString(" -> " + strings.Join(f.Outputs, ", "))
	}
	b.WriteString(" {\n")
	for _, inst := range f.Body {
		b.WriteString(indent(1) + inst.String() + "\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func (i *Instr) String() string {
	var b strings.Builder
	if i.Result != "" {
		b.WriteString(i.Result + " = ")
	}
	b.WriteString(fmt.Sprintf("%s(%s)", i.Op, strings.Join(i.Inputs, ", ")))
	b.WriteString(fmt.Sprintf(" @[%s]", strings.Join(i.Axes, ", ")))
	if len(i.Over) > 0 {
		b.WriteString(fmt.Sprintf(" over [%s]", strings.Join(i.Over, ", ")))
	}
	if i.DType != "" {
		b.WriteString(" : " + i.DType)
	}
	if len(i.Attrs) > 0 {
		var attrs []string
		for _, a := range i.Attrs {
			attrs = append(attrs, a.String())
		}
		b.WriteString(" {" + strings.Join(attrs, ", ") + "}")
	}
	return b.String()
}

func (a *Attr) String() string {
	return fmt.Sprintf("%s = %s", a.Key, a.Value.String())
}

func (v *Value) String() string {
	switch {
	case v == nil:
		return "[]"
	case v.Str != nil:
		return strconv.Quote(*v.Str)
	case v.Float != nil:
		return FormatFloat(*v.Float)
	case v.Int != nil:
		return strconv.FormatInt(*v.Int, 10)
	case v.Bool != nil:
		return *v.Bool
	case v.Ident != nil:
		return *v.Ident
	default:
		var elems []string
		for _, e := range v.List {
			elems = append(elems, e.String())
		}
		return "[" + strings.Join(elems, ", ") + "]"
	}
}

// FormatFloat prints a float so that it lexes back as a Float token.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func quoteAll(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = strconv.Quote(s)
	}
	return strings.Join(quoted, " ")
}
