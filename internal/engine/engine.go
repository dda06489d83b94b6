// Completion: 100% - Single-shot and batch drivers complete
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/xyproto/mulgen/internal/cost"
	"github.com/xyproto/mulgen/internal/diag"
	"github.com/xyproto/mulgen/internal/emit"
	"github.com/xyproto/mulgen/internal/memo"
	"github.com/xyproto/mulgen/internal/render"
	"github.com/xyproto/mulgen/internal/search"
)

// MaxBatch caps the number of constants in one batch
const MaxBatch = 1 << 16

// ErrTooManyErrors stops a batch once the diagnostics collector reaches its error limit
var ErrTooManyErrors = errors.New("too many errors")

// Options configure a code generation run
type Options struct {
	Model   cost.Model
	Lang    render.Lang
	Input   string // name of the input parameter, "n" when empty
	Unit    string
	Package string
	Harness bool
	Check   bool // evaluate every program before rendering it
	Jobs    int  // batch parallelism, GOMAXPROCS when zero
	Logger  *slog.Logger
	Diags   *diag.Collector
}

// Result is the outcome for one constant
type Result struct {
	Constant int64
	Plan     search.Plan
	Program  *emit.Program
	Stats    search.Stats
	Chain    []memo.Node
	Skipped  bool // 0 or 1 in a batch
}

// Engine drives search, emission and rendering
type Engine struct {
	opts  Options
	log   *slog.Logger
	diags *diag.Collector
}

// New returns an engine for opts, filling in defaults
func New(opts Options) (*Engine, error) {
	if err := opts.Model.Validate(); err != nil {
		return nil, err
	}
	if opts.Lang == render.LangUnknown {
		opts.Lang = render.LangC
	}
	if opts.Input == "" {
		opts.Input = "n"
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	e := &Engine{opts: opts, log: opts.Logger, diags: opts.Diags}
	if e.log == nil {
		e.log = slog.Default()
	}
	if opts.Harness && opts.Lang.IsAsm() {
		e.log.Warn("assembly listings have no self-check harness", "lang", opts.Lang)
		e.opts.Harness = false
	}
	if e.diags == nil {
		e.diags = diag.NewCollector(0)
	}
	return e, nil
}

// Diagnostics returns the collector the engine reports to
func (e *Engine) Diagnostics() *diag.Collector {
	return e.diags
}

// Compile searches for the cheapest sequence for c and emits it.
// Every call uses a fresh memo table, so the result does not depend on earlier calls.
func (e *Engine) Compile(c int64) (Result, error) {
	ctx := search.NewContext(e.opts.Model)
	res := Result{Constant: c}

	plan, err := ctx.Multiply(c)
	res.Plan = plan
	res.Stats = ctx.Stats()
	switch {
	case errors.Is(err, search.ErrNoImprovingSequence):
		e.diags.Add(diag.NativeFallback(c, plan.Baseline))
		e.log.Debug("native fallback", "constant", c, "baseline", plan.Baseline)
		res.Program = emit.Native(c, e.opts.Input, plan.Baseline)
	case err != nil:
		return res, err
	default:
		chain, err := ctx.Table().Chain(plan.Root)
		if err != nil {
			e.diags.Add(diag.Internal(c, err))
			return res, err
		}
		res.Chain = chain
		p, err := emit.Compile(ctx.Table(), plan, e.opts.Input)
		if err != nil {
			e.diags.Add(diag.Internal(c, err))
			return res, fmt.Errorf("emit %d: %w", c, err)
		}
		res.Program = p
	}

	if e.opts.Check {
		if err := res.Program.Check(render.DefaultInputs...); err != nil {
			e.diags.Add(diag.Internal(c, err))
			return res, err
		}
	}
	e.log.Debug("compiled",
		"constant", c,
		"cost", res.Program.Cost,
		"baseline", plan.Baseline,
		"steps", len(res.Program.Steps),
		"native", res.Program.Native,
		"searches", res.Stats.Searches,
		"probes", res.Stats.Probes)
	return res, nil
}

func (e *Engine) renderOptions(batch bool) render.Options {
	return render.Options{
		Unit:    e.opts.Unit,
		Package: e.opts.Package,
		Batch:   batch,
		Harness: e.opts.Harness,
	}
}

// Single compiles one constant and renders it as a function called multiply
func (e *Engine) Single(c int64) ([]render.File, Result, error) {
	res, err := e.Compile(c)
	if err != nil {
		return nil, res, err
	}
	files, err := render.Render(e.opts.Lang, []*emit.Program{res.Program}, e.renderOptions(false))
	if err != nil {
		return nil, res, err
	}
	return files, res, nil
}

// Range returns the constants from..to inclusive, in either direction
func Range(from, to int64) ([]int64, error) {
	step := int64(1)
	if to < from {
		step = -1
	}
	count := (to-from)*step + 1
	if count > MaxBatch {
		return nil, fmt.Errorf("range %d..%d has %d constants, at most %d are allowed", from, to, count, MaxBatch)
	}
	out := make([]int64, 0, count)
	for c := from; ; c += step {
		out = append(out, c)
		if c == to {
			break
		}
	}
	return out, nil
}

// Compiled returns the results that carry a program, in input order
func Compiled(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Skipped && r.Program != nil {
			out = append(out, r)
		}
	}
	return out
}

// BatchResults compiles constants in parallel. Results keep the input order;
// 0 and 1 are skipped with a warning. A constant out of range cancels the rest.
// Internal failures are reported to the collector and the constant is skipped,
// until the collector's error limit stops the batch.
func (e *Engine) BatchResults(ctx context.Context, constants []int64) ([]Result, error) {
	results := make([]Result, len(constants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Jobs)

	for i, c := range constants {
		if c == 0 || c == 1 {
			e.diags.Add(diag.InvalidConstant(c, fmt.Sprintf("multiplication by %d needs no sequence", c)))
			e.log.Warn("skipping constant", "constant", c)
			results[i] = Result{Constant: c, Skipped: true}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if e.diags.ShouldStop() {
				return fmt.Errorf("batch: %w (%d reported)", ErrTooManyErrors, e.diags.ErrorCount())
			}
			res, err := e.Compile(c)
			switch {
			case err == nil:
				results[i] = res
			case errors.Is(err, search.ErrInvalidConstant):
				return fmt.Errorf("constant %d: %w", c, err)
			default:
				// Compile has already reported it
				e.log.Error("skipping constant", "constant", c, "err", err)
				results[i] = Result{Constant: c, Skipped: true}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Batch compiles constants and renders them into one compilation unit
func (e *Engine) Batch(ctx context.Context, constants []int64) ([]render.File, []Result, error) {
	results, err := e.BatchResults(ctx, constants)
	if err != nil {
		return nil, nil, err
	}
	compiled := Compiled(results)
	if len(compiled) == 0 {
		return nil, results, errors.New("batch: no constant left to compile")
	}
	progs := make([]*emit.Program, len(compiled))
	for i, r := range compiled {
		progs[i] = r.Program
	}
	files, err := render.Render(e.opts.Lang, progs, e.renderOptions(true))
	if err != nil {
		return nil, results, err
	}
	e.log.Info("batch rendered", "constants", len(compiled), "skipped", len(results)-len(compiled), "files", len(files))
	return files, results, nil
}

// Explain describes the derivation chosen for c
func (e *Engine) Explain(c int64) (string, error) {
	res, err := e.Compile(c)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	p := res.Program
	if p.Native {
		fmt.Fprintf(&sb, "%d: no sequence beats the multiply baseline %d\n", c, res.Plan.Baseline)
		return sb.String(), nil
	}
	if res.Plan.Shift > 0 {
		fmt.Fprintf(&sb, "%d = %d << %d (cost %d, multiply baseline %d)\n", c, res.Plan.Odd, res.Plan.Shift, p.Cost, res.Plan.Baseline)
	} else {
		fmt.Fprintf(&sb, "%d (cost %d, multiply baseline %d)\n", c, p.Cost, res.Plan.Baseline)
	}

	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  value\top\tcost\tsource")
	for i, n := range res.Chain {
		source := "-"
		if i+1 < len(res.Chain) {
			source = fmt.Sprintf("%d", res.Chain[i+1].Value)
		}
		fmt.Fprintf(tw, "  %d\t%s\t%d\t%s\n", n.Value, n.Op, n.Cost, source)
	}
	tw.Flush()

	sb.WriteString("\n")
	sb.WriteString(p.Listing())
	fmt.Fprintf(&sb, "\nsearches=%d probes=%d improvements=%d\n", res.Stats.Searches, res.Stats.Probes, res.Stats.Improvements)
	return sb.String(), nil
}
