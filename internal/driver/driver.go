package driver

import (
	"context"
	"runtime"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"axc/grammar"
	"axc/internal/dataflow"
	"axc/internal/diag"
	"axc/internal/loopir"
	"axc/internal/lower"
	"axc/internal/plan"
	"axc/internal/registry"
)

var log = commonlog.GetLogger("axc.driver")

// Options configure one compilation
type Options struct {
	Optimize bool // run the dataflow pipeline before lowering
	Workers  int  // functions lowered at once, 0 for GOMAXPROCS
}

// Unit is one function of the graph and what became of it
type Unit struct {
	Name string
	DF   *dataflow.Function
	Loop *loopir.Function
	Err  error
}

// Result holds everything a compilation produced. Units keep the order of
// the functions in the source.
type Result struct {
	Path        string
	File        *grammar.File
	Graph       *dataflow.Graph
	Plans       *plan.MapIndex
	Units       []*Unit
	Diagnostics []diag.CompilerError
	Elapsed     time.Duration
}

// HasErrors reports whether any diagnostic is an error
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Level == diag.Error {
			return true
		}
	}
	return false
}

// Unit returns the unit of the named function, nil if there is none
func (r *Result) Unit(name string) *Unit {
	for _, u := range r.Units {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// Err combines the errors of every unit
func (r *Result) Err() error {
	var errs error
	for _, u := range r.Units {
		errs = multierr.Append(errs, u.Err)
	}
	return errs
}

// DataflowSource prints the graph, after optimization when it ran
func (r *Result) DataflowSource() string {
	if r.Graph == nil || r.File == nil {
		return ""
	}
	return dataflow.GraphToGrammar(r.Graph, r.File.Plans()).String()
}

// LoopSource prints every lowered function in source order
func (r *Result) LoopSource() string {
	var fns []*loopir.Function
	for _, u := range r.Units {
		if u.Loop != nil {
			fns = append(fns, u.Loop)
		}
	}
	return loopir.PrintAll(fns)
}

func (r *Result) report(d diag.CompilerError) {
	if d.Position.Filename == "" {
		d.Position.Filename = r.Path
	}
	if d.Position.Line == 0 {
		d.Position.Line, d.Position.Column = 1, 1
	}
	r.Diagnostics = append(r.Diagnostics, d)
}

// Compile parses, checks and lowers a .dfg source. Each function is lowered
// in its own session; up to Options.Workers sessions run at once.
func Compile(ctx context.Context, path, src string, opts Options) *Result {
	start := time.Now()
	r := &Result{Path: path}
	defer func() {
		r.Elapsed = time.Since(start)
		log.Infof("compiled %s in %s: %d functions, %d diagnostics", path, r.Elapsed, len(r.Units), len(r.Diagnostics))
	}()

	file, err := grammar.ParseString(path, src)
	if err != nil {
		r.reportParseError(err)
		return r
	}
	r.File = file

	plans, ok := r.buildPlans(file)
	graph, err := dataflow.FromGrammar(file)
	if err != nil {
		r.reportConversionErrors(err)
		return r
	}
	r.Graph = graph
	r.Plans = plans

	r.checkFunctions(graph)
	if opts.Optimize {
		for _, u := range r.Units {
			if u.Err == nil {
				dataflow.NewPipeline().Run(u.DF)
			}
		}
	}
	if !ok {
		for _, u := range r.Units {
			if u.Err == nil {
				u.Err = errors.New("plans are invalid")
				r.report(diag.SkippedFunction(u.Name, u.DF.Pos))
			}
		}
		return r
	}

	if err := r.lowerAll(ctx, opts); err != nil {
		log.Warningf("lowering of %s stopped: %s", path, err)
		r.report(diag.Lowering("", err.Error(), dataflow.Position{}))
		return r
	}
	for _, u := range r.Units {
		if u.Err != nil && u.Loop == nil {
			r.reportLowerError(u)
		}
	}
	return r
}

// buildPlans converts each plan declaration on its own so that every bad
// plan is reported at its position
func (r *Result) buildPlans(file *grammar.File) (*plan.MapIndex, bool) {
	var entries []*plan.Entry
	ok := true
	seen := make(map[string]bool)
	for _, p := range file.Plans() {
		pos := dataflow.PositionOf(p.Pos)
		if seen[p.Ref] {
			r.report(diag.InvalidPlan("plan \""+p.Ref+"\" is declared twice", pos))
			ok = false
			continue
		}
		seen[p.Ref] = true
		e, err := plan.FromGrammar(p)
		if err == nil {
			err = e.Validate()
		}
		if err != nil {
			r.report(diag.InvalidPlan(err.Error(), pos))
			ok = false
			continue
		}
		entries = append(entries, e)
	}
	idx, err := plan.NewMapIndex(entries...)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			r.report(diag.InvalidPlan(e.Error(), dataflow.Position{}))
		}
		return nil, false
	}
	return idx, ok
}

// checkFunctions creates one unit per function and validates it. Units
// that fail validation are not lowered.
func (r *Result) checkFunctions(g *dataflow.Graph) {
	seen := make(map[string]bool)
	for _, fn := range g.Functions {
		u := &Unit{Name: fn.Name, DF: fn}
		r.Units = append(r.Units, u)

		if seen[fn.Name] {
			u.Err = errors.Errorf("function %s is declared twice", fn.Name)
			r.report(diag.DuplicateFunction(fn.Name, fn.Pos))
			continue
		}
		seen[fn.Name] = true

		if err := dataflow.Validate(fn); err != nil {
			u.Err = err
			for _, e := range multierr.Errors(err) {
				var ve *dataflow.ValidationError
				if errors.As(e, &ve) {
					r.report(diag.InvalidInstruction(ve.Func, ve.Msg, ve.Pos))
				} else {
					r.report(diag.InvalidInstruction(fn.Name, e.Error(), fn.Pos))
				}
			}
		}
	}
}

func (r *Result) lowerAll(ctx context.Context, opts Options) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	reg := registry.New()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, u := range r.Units {
		if u.Err != nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			u.Loop, u.Err = lower.Lower(u.DF, r.Plans, reg)
			if u.Err != nil {
				log.Debugf("%s: %s", u.Name, u.Err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Result) reportParseError(err error) {
	var pe participle.Error
	if errors.As(err, &pe) {
		r.report(diag.SyntaxError(pe.Message(), dataflow.PositionOf(pe.Position())))
		return
	}
	r.report(diag.SyntaxError(err.Error(), dataflow.Position{}))
}

func (r *Result) reportConversionErrors(err error) {
	known := dataflow.OpcodeNames()
	for _, e := range multierr.Errors(err) {
		var ce *dataflow.ConversionError
		switch {
		case errors.As(e, &ce) && ce.Opcode != "":
			r.report(diag.UnknownOpcode(ce.Opcode, ce.Pos, known))
		case errors.As(e, &ce):
			r.report(diag.MalformedInstruction(ce.Msg, ce.Pos))
		default:
			r.report(diag.MalformedInstruction(e.Error(), dataflow.Position{}))
		}
	}
}

// reportLowerError maps the typed lowering errors to diagnostics
func (r *Result) reportLowerError(u *Unit) {
	pos := u.DF.Pos
	var le *lower.Error
	if errors.As(u.Err, &le) && le.Pos.Line > 0 {
		pos = le.Pos
	}
	cause := errors.Cause(u.Err)
	if le != nil {
		cause = errors.Cause(le.Err)
	}

	var (
		ua *lower.UnresolvedAxisError
		ni *lower.NotImplementedError
		ml *lower.MalformedLiteralError
		se *lower.StructuralError
		d  diag.CompilerError
	)
	switch {
	case errors.As(u.Err, &ua):
		d = diag.UnresolvedAxis(u.Name, string(ua.Axis), ua.Tried, ua.Error(), pos)
	case errors.As(u.Err, &ni):
		d = diag.NotImplemented(u.Name, ni.Op.String(), pos)
	case errors.As(u.Err, &ml):
		d = diag.MalformedLiteral(u.Name, ml.Error(), pos)
	case errors.As(u.Err, &se):
		d = diag.Structural(u.Name, se.Error(), pos)
	default:
		d = diag.Lowering(u.Name, cause.Error(), pos)
	}
	if inst := instructionAt(u.DF, pos); inst != nil {
		d.Notes = append(d.Notes, "while lowering "+inst.String())
	}
	r.report(d)
}

func instructionAt(fn *dataflow.Function, pos dataflow.Position) *dataflow.Instruction {
	for _, inst := range fn.Body {
		if inst.Pos.Line == pos.Line && inst.Pos.Column == pos.Column {
			return inst
		}
	}
	return nil
}
