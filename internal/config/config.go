// Completion: 100% - Job files, environment overrides and validation
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"github.com/xyproto/mulgen/internal/cost"
	"github.com/xyproto/mulgen/internal/diag"
	"github.com/xyproto/mulgen/internal/render"
	"github.com/xyproto/mulgen/internal/search"
)

// Environment variables that override job file settings
const (
	EnvLang     = "MULGEN_LANG"
	EnvOutput   = "MULGEN_OUTPUT"
	EnvMultCost = "MULGEN_MULT_COST"
	EnvProfile  = "MULGEN_PROFILE"
	EnvJobs     = "MULGEN_JOBS"
	EnvVerbose  = "MULGEN_VERBOSE"
)

// Costs overrides the cost model. Zero fields keep the profile value.
type Costs struct {
	Profile  string `yaml:"profile" validate:"omitempty,profile"`
	Shift    int    `yaml:"shift" validate:"gte=0"`
	Add      int    `yaml:"add" validate:"gte=0"`
	Sub      int    `yaml:"sub" validate:"gte=0"`
	Negate   int    `yaml:"negate" validate:"gte=0"`
	Multiply int    `yaml:"multiply" validate:"gte=0"`
}

// Batch selects a range of constants
type Batch struct {
	From int64 `yaml:"from"`
	To   int64 `yaml:"to"`
	Jobs int   `yaml:"jobs" validate:"gte=0,lte=1024"`
}

// Config is a code generation job
type Config struct {
	Lang     string `yaml:"lang" validate:"required"`
	Output   string `yaml:"output"`
	Input    string `yaml:"input" validate:"omitempty,ident"`
	Unit     string `yaml:"unit" validate:"omitempty,ident"`
	Package  string `yaml:"package" validate:"omitempty,ident"`
	Harness  bool   `yaml:"harness"`
	Check    bool   `yaml:"check"`
	Constant *int64 `yaml:"constant"`
	Batch    *Batch `yaml:"batch"`
	Costs    Costs  `yaml:"costs"`
	Verbose  bool   `yaml:"verbose"`
}

// Default returns the configuration used when nothing else is given
func Default() Config {
	return Config{
		Lang:  render.LangC.String(),
		Input: "n",
		Costs: Costs{Profile: "generic"},
	}
}

// Load reads a YAML job file on top of the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read job file: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping the fields the document does not set
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse job file: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with the MULGEN_* environment variables
func ApplyEnv(cfg *Config) error {
	env.Load()
	cfg.Lang = env.Str(EnvLang, cfg.Lang)
	cfg.Output = env.Str(EnvOutput, cfg.Output)
	cfg.Costs.Profile = env.Str(EnvProfile, cfg.Costs.Profile)
	if env.Has(EnvMultCost) {
		n := env.Int(EnvMultCost, -1)
		if n < 1 {
			return fmt.Errorf("%s must be a positive integer, got %q", EnvMultCost, env.Str(EnvMultCost))
		}
		cfg.Costs.Multiply = n
	}
	if env.Has(EnvJobs) {
		n := env.Int(EnvJobs, -1)
		if n < 0 {
			return fmt.Errorf("%s must be a non-negative integer, got %q", EnvJobs, env.Str(EnvJobs))
		}
		if cfg.Batch == nil {
			cfg.Batch = &Batch{}
		}
		cfg.Batch.Jobs = n
	}
	if env.Has(EnvVerbose) {
		cfg.Verbose = env.Bool(EnvVerbose)
	}
	return nil
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
		return identRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("profile", func(fl validator.FieldLevel) bool {
		_, err := cost.Profile(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks field constraints, the language name and the constant ranges
func (c Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q (value %v)", strings.ToLower(fe.Namespace()), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	if _, err := render.ParseLang(c.Lang); err != nil {
		return diag.UnknownLanguage(c.Lang, render.LangNames())
	}
	if c.Constant != nil && c.Batch != nil && (c.Batch.From != 0 || c.Batch.To != 0) {
		return errors.New("invalid configuration: a job has either a constant or a batch range, not both")
	}
	for _, v := range c.constants() {
		if v > search.MaxConstant || v < -search.MaxConstant {
			return fmt.Errorf("invalid configuration: constant %d is out of range", v)
		}
	}
	_, err := c.Model()
	return err
}

func (c Config) constants() []int64 {
	var out []int64
	if c.Constant != nil {
		out = append(out, *c.Constant)
	}
	if c.Batch != nil {
		out = append(out, c.Batch.From, c.Batch.To)
	}
	return out
}

// IsBatch reports whether the job describes a range of constants
func (c Config) IsBatch() bool {
	return c.Constant == nil && c.Batch != nil && (c.Batch.From != 0 || c.Batch.To != 0)
}

// LangValue returns the parsed output language
func (c Config) LangValue() (render.Lang, error) {
	return render.ParseLang(c.Lang)
}

// Model returns the cost model: the profile with every non-zero override applied
func (c Config) Model() (cost.Model, error) {
	name := c.Costs.Profile
	if name == "" {
		name = "generic"
	}
	m, err := cost.Profile(name)
	if err != nil {
		return m, err
	}
	for _, o := range []struct {
		dst *int
		v   int
	}{
		{&m.Shift, c.Costs.Shift},
		{&m.Add, c.Costs.Add},
		{&m.Sub, c.Costs.Sub},
		{&m.Negate, c.Costs.Negate},
		{&m.Multiply, c.Costs.Multiply},
	} {
		if o.v > 0 {
			*o.dst = o.v
		}
	}
	return m, m.Validate()
}
