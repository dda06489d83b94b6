// Completion: 100% - Subcommands complete
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xyproto/mulgen/internal/config"
	"github.com/xyproto/mulgen/internal/diag"
	"github.com/xyproto/mulgen/internal/engine"
	"github.com/xyproto/mulgen/internal/render"
)

// cli.go - command line interface for mulgen
//
// Subcommands:
// - mulgen gen <constant> (one function, to stdout or -o file)
// - mulgen batch --from A --to B (one compilation unit for a range)
// - mulgen explain <constant> (show the derivation chain)
// - mulgen watch <job.yaml> (rerun a job file whenever it changes)
// - mulgen version
//
// Negative constants go after "--" or through --constant: mulgen gen -- -82

// CommandContext holds the flags shared by every subcommand
type CommandContext struct {
	ConfigPath string
	Verbose    bool
	Lang       string
	MultCost   int
	Profile    string
	Input      string
	Harness    bool

	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
	diags  *diag.Collector
}

// resolve merges defaults, the job file, the environment and the flags, in that order
func (ctx *CommandContext) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if ctx.ConfigPath != "" {
		loaded, err := config.Load(ctx.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("lang") {
		cfg.Lang = ctx.Lang
	}
	if flags.Changed("mult-cost") {
		cfg.Costs.Multiply = ctx.MultCost
	}
	if flags.Changed("profile") {
		cfg.Costs.Profile = ctx.Profile
	}
	if flags.Changed("input") {
		cfg.Input = ctx.Input
	}
	if flags.Changed("harness") {
		cfg.Harness = ctx.Harness
	}
	if flags.Changed("verbose") {
		cfg.Verbose = ctx.Verbose
	}
	return cfg, nil
}

// setup resolves the configuration and builds an engine for it
func (ctx *CommandContext) setup(cmd *cobra.Command, edit func(*config.Config)) (*engine.Engine, config.Config, error) {
	cfg, err := ctx.resolve(cmd)
	if err != nil {
		return nil, cfg, err
	}
	if edit != nil {
		edit(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfg, err
	}
	ctx.log = newLogger(ctx.stderr, cfg.Verbose)
	slog.SetDefault(ctx.log)

	e, err := newEngine(cfg, ctx.log, ctx.diags)
	return e, cfg, err
}

func newEngine(cfg config.Config, log *slog.Logger, diags *diag.Collector) (*engine.Engine, error) {
	model, err := cfg.Model()
	if err != nil {
		return nil, err
	}
	lang, err := cfg.LangValue()
	if err != nil {
		return nil, err
	}
	jobs := 0
	if cfg.Batch != nil {
		jobs = cfg.Batch.Jobs
	}
	return engine.New(engine.Options{
		Model:   model,
		Lang:    lang,
		Input:   cfg.Input,
		Unit:    cfg.Unit,
		Package: cfg.Package,
		Harness: cfg.Harness,
		Check:   cfg.Check,
		Jobs:    jobs,
		Logger:  log,
		Diags:   diags,
	})
}

// report prints the collected diagnostics and returns err, or an error when
// the collector holds errors, so that the exit status reflects them
func (ctx *CommandContext) report(err error) error {
	useColor := false
	if f, ok := ctx.stderr.(*os.File); ok {
		useColor = diag.UseColor(f)
	}
	if out := ctx.diags.Report(useColor); out != "" {
		fmt.Fprint(ctx.stderr, out)
	}
	switch {
	case err != nil:
		return err
	case ctx.diags.HasFatal():
		return fmt.Errorf("internal error while generating code (%d error(s) reported)", ctx.diags.ErrorCount())
	case ctx.diags.HasErrors():
		return fmt.Errorf("%d error(s) reported", ctx.diags.ErrorCount())
	}
	return nil
}

// parseConstant accepts decimal, 0x/0b/0o prefixed and "m82" spellings
func parseConstant(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "m") {
		s = "-" + s[1:]
	}
	c, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid constant %q", s)
	}
	return c, nil
}

// writeFiles writes rendered files. A single file goes to stdout when path is
// empty, to path when it names a file, and into path when it is a directory.
func (ctx *CommandContext) writeFiles(files []render.File, path string, asDir bool) error {
	if path == "" {
		for i, f := range files {
			if i > 0 {
				ctx.log.Warn("companion file not written, use -o to keep it", "file", f.Name)
				continue
			}
			fmt.Fprint(ctx.stdout, f.Content)
		}
		return nil
	}

	dir, first := path, ""
	if !asDir {
		dir, first = filepath.Dir(path), filepath.Base(path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for i, f := range files {
		name := f.Name
		if i == 0 && first != "" {
			name = first
		}
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		ctx.log.Info("wrote file", "path", target, "bytes", len(f.Content))
	}
	return nil
}

// constantArg returns the constant given as --constant or as the only argument
func constantArg(cmd *cobra.Command, args []string) (int64, error) {
	if cmd.Flags().Changed("constant") {
		if len(args) > 0 {
			return 0, errors.New("give the constant either as an argument or with --constant")
		}
		return cmd.Flags().GetInt64("constant")
	}
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: mulgen %s <constant>", cmd.Name())
	}
	return parseConstant(args[0])
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	ctx := &CommandContext{
		stdout: stdout,
		stderr: stderr,
		log:    newLogger(stderr, false),
		diags:  diag.NewCollector(0),
	}

	root := &cobra.Command{
		Use:   "mulgen",
		Short: "Replace multiplication by a constant with shifts, additions and subtractions",
		Long: `mulgen searches for the cheapest sequence of shift, add, subtract and negate
operations that multiplies its input by a constant, using Bernstein's
algorithm, and renders it as C, Go, Python, Rust or assembly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&ctx.ConfigPath, "config", "", "YAML job file with defaults")
	pf.BoolVarP(&ctx.Verbose, "verbose", "v", false, "log search statistics and written files")
	pf.StringVarP(&ctx.Lang, "lang", "l", "c", "output language: "+strings.Join(render.LangNames(), ", "))
	pf.IntVar(&ctx.MultCost, "mult-cost", 0, "cost of a native multiply (default from the profile)")
	pf.StringVar(&ctx.Profile, "profile", "generic", "cost profile")
	pf.StringVar(&ctx.Input, "input", "n", "name of the input parameter")
	pf.BoolVar(&ctx.Harness, "harness", false, "append self-checks to the generated code")

	root.AddCommand(
		newGenCmd(ctx),
		newBatchCmd(ctx),
		newExplainCmd(ctx),
		newWatchCmd(ctx),
		newVersionCmd(ctx),
	)
	return root
}

func newGenCmd(ctx *CommandContext) *cobra.Command {
	var output string
	var check bool
	cmd := &cobra.Command{
		Use:   "gen <constant>",
		Short: "Generate one function that multiplies by the constant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := constantArg(cmd, args)
			if err != nil {
				return err
			}
			e, cfg, err := ctx.setup(cmd, func(cfg *config.Config) {
				cfg.Constant = &c
				cfg.Batch = nil
				if cmd.Flags().Changed("output") || cfg.Output == "" {
					cfg.Output = output
				}
				if check {
					cfg.Check = true
				}
			})
			if err != nil {
				return err
			}

			files, _, err := e.Single(c)
			if err == nil {
				err = ctx.writeFiles(files, cfg.Output, false)
			}
			return ctx.report(err)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	cmd.Flags().BoolVar(&check, "check", false, "evaluate the sequence before writing it")
	cmd.Flags().Int64P("constant", "c", 0, "the constant, for negative values without --")
	return cmd
}

func newBatchCmd(ctx *CommandContext) *cobra.Command {
	var from, to int64
	var output, unit, pkg string
	var jobs int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate one compilation unit for a range of constants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cfg, err := ctx.setup(cmd, func(cfg *config.Config) {
				if cfg.Batch == nil {
					cfg.Batch = &config.Batch{Jobs: jobs}
				}
				if cfg.Batch.From == 0 && cfg.Batch.To == 0 {
					cfg.Batch.From, cfg.Batch.To = from, to
				}
				if cmd.Flags().Changed("from") {
					cfg.Batch.From = from
				}
				if cmd.Flags().Changed("to") {
					cfg.Batch.To = to
				}
				if cmd.Flags().Changed("jobs") {
					cfg.Batch.Jobs = jobs
				}
				if cmd.Flags().Changed("output") || cfg.Output == "" {
					cfg.Output = output
				}
				if cmd.Flags().Changed("unit") {
					cfg.Unit = unit
				}
				if cmd.Flags().Changed("package") {
					cfg.Package = pkg
				}
			})
			if err != nil {
				return err
			}
			return ctx.report(runBatch(cmd.Context(), ctx, e, cfg))
		},
	}
	cmd.Flags().Int64Var(&from, "from", 2, "first constant")
	cmd.Flags().Int64Var(&to, "to", 16, "last constant")
	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "parallel searches (number of CPUs when 0)")
	cmd.Flags().StringVar(&unit, "unit", "multiply", "base name of the generated files")
	cmd.Flags().StringVar(&pkg, "package", "mul", "package clause for Go output")
	return cmd
}

func runBatch(parent context.Context, ctx *CommandContext, e *engine.Engine, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	sigctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	constants, err := engine.Range(cfg.Batch.From, cfg.Batch.To)
	if err != nil {
		return err
	}
	files, _, err := e.Batch(sigctx, constants)
	if err != nil {
		return err
	}
	out := cfg.Output
	if out == "" {
		out = "."
	}
	return ctx.writeFiles(files, out, true)
}

func newExplainCmd(ctx *CommandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <constant>",
		Short: "Show the derivation chain chosen for a constant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := constantArg(cmd, args)
			if err != nil {
				return err
			}
			e, _, err := ctx.setup(cmd, nil)
			if err != nil {
				return err
			}
			out, err := e.Explain(c)
			if err != nil {
				return err
			}
			fmt.Fprint(ctx.stdout, out)
			return nil
		},
	}
	cmd.Flags().Int64P("constant", "c", 0, "the constant, for negative values without --")
	return cmd
}

func newWatchCmd(ctx *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job.yaml>",
		Short: "Run a job file and run it again whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			sigctx, stop := signal.NotifyContext(parent, os.Interrupt)
			defer stop()

			if err := ctx.runJob(sigctx, cmd, path); err != nil {
				ctx.log.Error("job failed", "path", path, "err", err)
			}

			fw, err := NewFileWatcher(func(changed string) {
				ctx.log.Info("job file changed", "path", changed)
				if err := ctx.runJob(sigctx, cmd, changed); err != nil {
					ctx.log.Error("job failed", "path", changed, "err", err)
				}
			})
			if err != nil {
				return err
			}
			defer fw.Close()
			if err := fw.AddFile(path); err != nil {
				return err
			}
			fmt.Fprintf(ctx.stderr, "watching %s, press Ctrl-C to stop\n", path)
			return fw.Watch(sigctx)
		},
	}
}

// runJob loads a job file and runs it as a single constant or a batch
func (ctx *CommandContext) runJob(parent context.Context, cmd *cobra.Command, path string) error {
	ctx.ConfigPath = path
	ctx.diags.Clear()
	e, cfg, err := ctx.setup(cmd, nil)
	if err != nil {
		return err
	}

	switch {
	case cfg.Constant != nil:
		files, _, err := e.Single(*cfg.Constant)
		if err == nil {
			err = ctx.writeFiles(files, cfg.Output, false)
		}
		return ctx.report(err)
	case cfg.IsBatch():
		return ctx.report(runBatch(parent, ctx, e, cfg))
	default:
		return fmt.Errorf("%s: a job needs a constant or a batch range", path)
	}
}

func newVersionCmd(ctx *CommandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(ctx.stdout, versionString)
		},
	}
}
