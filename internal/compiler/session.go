// Package compiler runs the validator compilation pipeline.
//
// A Session owns the declarations reachable from its scope and the
// instance table shared by all of its requests:
//
//	Register -> Resolve -> Instantiate -> Normalize -> Generate
//
// Instances are memoized per session, so compiling a second type that
// reuses a generic instantiation does not expand it again.
package compiler

import (
	"log/slog"
	"sync"

	"github.com/roach88/guardgen/internal/codegen"
	"github.com/roach88/guardgen/internal/diag"
	"github.com/roach88/guardgen/internal/ir"
	"github.com/roach88/guardgen/internal/normalize"
	"github.com/roach88/guardgen/internal/validator"
)

// Session compiles types from one scope.
//
// Thread-safety: Compile and CompileType hold the session lock for the
// whole request, so concurrent requests serialize.
type Session struct {
	id     string
	opts   Options
	logger *slog.Logger
	ids    IDGenerator

	mu           sync.Mutex
	table        *ir.InstanceTable
	registrar    *Registrar
	resolver     *Resolver
	instantiator *Instantiator
	refined      map[string]bool
	requests     int
}

// NewSession creates a session over scope.
func NewSession(scope Scope, opts ...Option) (*Session, error) {
	s := &Session{
		opts:   DefaultOptions(),
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
		table:  ir.NewInstanceTable(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}

	s.id = s.ids.Generate()
	s.logger = s.logger.With("session", s.id)

	s.refined = make(map[string]bool, len(s.opts.Refinements))
	for name := range s.opts.Refinements {
		s.refined[name] = true
	}
	s.registrar = NewRegistrar(scope, s.logger)
	s.resolver = NewResolver(s.registrar, s.refined)
	s.instantiator = NewInstantiator(s.resolver, s.table, s.logger)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Options returns the session options.
func (s *Session) Options() Options {
	return s.opts
}

// Result is the output of one compilation request.
type Result struct {
	// Root is the canonical form of the requested type.
	Root ir.Type
	// Program is the compiled check program.
	Program *codegen.Program
	// Occurrences maps instance keys to reference sites in this request.
	Occurrences map[string]int
	// Instances holds the instances reachable from Root, by key.
	Instances map[string]*ir.Instance
	// Warnings lists recursive declaration groups the session knows about.
	Warnings []RecursionWarning

	refinements map[string]validator.Refinement
}

// Validator binds the program to the session's refinements.
func (r *Result) Validator() (*validator.Validator, error) {
	return validator.New(r.Program, r.refinements)
}

// JavaScript renders the program as a JavaScript module.
func (r *Result) JavaScript() (string, error) {
	return codegen.RenderJS(r.Program)
}

// Compile compiles the declaration called name.
func (s *Session) Compile(name string) (*Result, error) {
	return s.CompileType(ir.Ref(name))
}

// CompileType compiles an arbitrary type expression whose references name
// declarations of the session scope.
func (s *Session) CompileType(root ir.Type) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	logger := s.logger.With("request", s.requests, "type", ir.Describe(root))

	s.registrar.RegisterType(root)
	resolved, err := s.resolver.Resolve(root)
	if err != nil {
		return nil, err
	}
	inst, stats, err := s.instantiator.Instantiate(resolved)
	if err != nil {
		return nil, err
	}
	canonical, err := normalize.New(s.table, logger).WithRefined(s.refined).Normalize(inst)
	if err != nil {
		return nil, err
	}
	if s.impossible(canonical) {
		return nil, diag.Errorf(diag.ErrImpossibleType, ir.Describe(root),
			"type %s can never be satisfied", ir.Describe(root))
	}

	for key, n := range stats {
		if entry, ok := s.table.Get(key); ok {
			entry.Occurrences += n
		}
	}

	warnings := AnalyzeRecursion(s.registrar.Declarations())
	if !s.opts.CircularRefs {
		for _, w := range warnings {
			logger.Warn("recursive type compiled without circular reference guards", "path", w.Path)
		}
	}

	program, err := codegen.NewGenerator(s.table, stats, s.opts.codegenConfig(), logger).Generate(canonical)
	if err != nil {
		return nil, err
	}
	logger.Debug("compiled", "functions", len(program.Functions), "instances", len(stats))

	return &Result{
		Root:        canonical,
		Program:     program,
		Occurrences: stats,
		Instances:   s.reachable(canonical),
		Warnings:    warnings,
		refinements: s.opts.Refinements,
	}, nil
}

// impossible reports whether t is never, directly or through a handle.
func (s *Session) impossible(t ir.Type) bool {
	if h, ok := t.(ir.Handle); ok {
		if body, ok := s.table.Deref(h); ok {
			return ir.IsBottom(body)
		}
	}
	return ir.IsBottom(t)
}

// reachable collects the instances reachable from t through handles.
func (s *Session) reachable(t ir.Type) map[string]*ir.Instance {
	out := make(map[string]*ir.Instance)
	var visit func(ir.Type)
	visit = func(t ir.Type) {
		ir.Walk(t, func(n ir.Type) bool {
			h, ok := n.(ir.Handle)
			if !ok {
				return true
			}
			if _, seen := out[h.Key]; seen {
				return false
			}
			if inst, ok := s.table.Get(h.Key); ok {
				out[h.Key] = inst
				visit(inst.Body)
			}
			return false
		})
	}
	visit(t)
	return out
}

// Instances returns the number of memoized instances.
func (s *Session) Instances() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Len()
}

// Occurrences returns the reference sites of key accumulated over all
// requests of the session.
func (s *Session) Occurrences(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.table.Get(key); ok {
		return inst.Occurrences
	}
	return 0
}
