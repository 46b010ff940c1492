package compiler

import (
	"log/slog"
	"sort"

	"github.com/roach88/guardgen/internal/codegen"
	"github.com/roach88/guardgen/internal/diag"
	"github.com/roach88/guardgen/internal/validator"
)

// Options controls what the generated validators accept and report.
type Options struct {
	// CircularRefs guards recursive validators against cyclic data.
	CircularRefs bool `json:"circularRefs"`
	// AllowForeignKeys accepts object keys that are not declared.
	AllowForeignKeys bool `json:"allowForeignKeys"`
	// ExpectedValueFormat selects how the expected side of a failure is
	// reported.
	ExpectedValueFormat codegen.ExpectedFormat `json:"expectedValueFormat"`
	// Refinements attaches predicates to named types.
	Refinements map[string]validator.Refinement `json:"-"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		CircularRefs:        true,
		AllowForeignKeys:    true,
		ExpectedValueFormat: codegen.HumanFriendly,
	}
}

// Validate checks option values.
func (o Options) Validate() error {
	if !o.ExpectedValueFormat.Valid() {
		return diag.Errorf(diag.ErrInvalidConfig, "expectedValueFormat",
			"expected value format must be %q or %q, got %q", codegen.HumanFriendly, codegen.TypeIR, o.ExpectedValueFormat)
	}
	for name, fn := range o.Refinements {
		if fn == nil {
			return diag.Errorf(diag.ErrInvalidConfig, name, "refinement for %q is nil", name)
		}
	}
	return nil
}

// RefinedNames returns the names that carry a refinement, sorted.
func (o Options) RefinedNames() []string {
	names := make([]string, 0, len(o.Refinements))
	for name := range o.Refinements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fingerprint returns the options that affect generated code, as plain
// values suitable for hashing.
func (o Options) Fingerprint() map[string]any {
	refined := make([]any, 0, len(o.Refinements))
	for _, name := range o.RefinedNames() {
		refined = append(refined, name)
	}
	return map[string]any{
		"circularRefs":        o.CircularRefs,
		"allowForeignKeys":    o.AllowForeignKeys,
		"expectedValueFormat": string(o.ExpectedValueFormat),
		"refined":             refined,
	}
}

func (o Options) codegenConfig() codegen.Config {
	refined := make(map[string]bool, len(o.Refinements))
	for name := range o.Refinements {
		refined[name] = true
	}
	return codegen.Config{
		AllowForeignKeys: o.AllowForeignKeys,
		ExpectedFormat:   o.ExpectedValueFormat,
		CircularRefs:     o.CircularRefs,
		Refined:          refined,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithOptions replaces all compile options at once.
func WithOptions(opts Options) Option {
	return func(s *Session) {
		s.opts = opts
	}
}

// WithCircularRefs sets whether recursive validators guard against cyclic
// data. Default: true.
func WithCircularRefs(enabled bool) Option {
	return func(s *Session) {
		s.opts.CircularRefs = enabled
	}
}

// WithAllowForeignKeys sets whether undeclared object keys are accepted.
// Default: true.
func WithAllowForeignKeys(allowed bool) Option {
	return func(s *Session) {
		s.opts.AllowForeignKeys = allowed
	}
}

// WithExpectedValueFormat sets the expected value format.
// Default: codegen.HumanFriendly.
func WithExpectedValueFormat(format codegen.ExpectedFormat) Option {
	return func(s *Session) {
		s.opts.ExpectedValueFormat = format
	}
}

// WithRefinements attaches predicates to named types. Refined aliases are
// not inlined, so the predicate runs wherever the name is used.
func WithRefinements(refinements map[string]validator.Refinement) Option {
	return func(s *Session) {
		s.opts.Refinements = refinements
	}
}

// WithLogger sets the session logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithIDGenerator sets the session ID source. Default: UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Session) {
		s.ids = gen
	}
}
