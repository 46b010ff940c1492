package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/guardgen/internal/codegen"
	"github.com/roach88/guardgen/internal/compiler"
	"github.com/roach88/guardgen/internal/ir"
	"github.com/roach88/guardgen/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	optionFlags
	Output string   // output file (one type) or directory
	Cache  string   // artifact cache database
	Types  []string // types to compile
}

// optionFlags are the compiler option flags shared by compile and check.
type optionFlags struct {
	CircularRefs     bool
	AllowForeignKeys bool
	ExpectedFormat   string
}

func (o *optionFlags) register(cmd *cobra.Command) {
	defaults := compiler.DefaultOptions()
	cmd.Flags().BoolVar(&o.CircularRefs, "circular-refs", defaults.CircularRefs, "guard recursive validators against cyclic data")
	cmd.Flags().BoolVar(&o.AllowForeignKeys, "allow-foreign-keys", defaults.AllowForeignKeys, "accept undeclared object keys")
	cmd.Flags().StringVar(&o.ExpectedFormat, "expected-format", string(defaults.ExpectedValueFormat), "failure expectation format (human-friendly|type-ir)")
}

// compileOptions merges project file values with explicitly set flags.
func (o *optionFlags) compileOptions(cmd *cobra.Command, cfg *Config) (compiler.Options, error) {
	opts, err := cfg.compileOptions()
	if err != nil {
		return compiler.Options{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("circular-refs") {
		opts.CircularRefs = o.CircularRefs
	}
	if flags.Changed("allow-foreign-keys") {
		opts.AllowForeignKeys = o.AllowForeignKeys
	}
	if flags.Changed("expected-format") {
		opts.ExpectedValueFormat = codegen.ExpectedFormat(o.ExpectedFormat)
	}
	return opts, opts.Validate()
}

// CompiledType describes one compiled validator.
type CompiledType struct {
	Type      string   `json:"type"`
	Key       string   `json:"key"`
	Functions int      `json:"functions"`
	Cached    bool     `json:"cached"`
	Recursive []string `json:"recursive,omitempty"`
	Output    string   `json:"output,omitempty"`
	Code      string   `json:"code,omitempty"`
}

// CompileSummary is the result of a compile command.
type CompileSummary struct {
	Source  string         `json:"source"`
	Session string         `json:"session"`
	Types   []CompiledType `json:"types"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [source]",
		Short: "Compile type declarations to JavaScript validators",
		Long: `Compile declarations to self-contained JavaScript validators.

The source file and types default to the source and types fields of the
project file. Flags override project file values. With --cache, compiled
validators are stored in a SQLite database keyed by source digest, type
and options, and reused on the next run.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file, or directory when compiling several types")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "artifact cache database")
	cmd.Flags().StringSliceVarP(&opts.Types, "type", "t", nil, "type to compile (repeatable)")
	opts.optionFlags.register(cmd)

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := loadProjectConfig(opts.Config)
	if err != nil {
		return formatter.Fail(err)
	}
	compileOpts, err := opts.compileOptions(cmd, cfg)
	if err != nil {
		return formatter.Fail(err)
	}

	sourcePath := cfg.resolve(cfg.Source)
	if len(args) > 0 {
		sourcePath = args[0]
	}
	types := opts.Types
	if len(types) == 0 {
		types = cfg.Types
	}
	if len(types) == 0 {
		return formatter.Fail(withCode(ErrCodeGeneric, fmt.Errorf("no types to compile: pass --type or set types in %s", DefaultConfigFile)))
	}
	output := opts.Output
	if output == "" {
		output = cfg.resolve(cfg.Output)
	}
	cachePath := opts.Cache
	if cachePath == "" {
		cachePath = cfg.resolve(cfg.Cache)
	}

	src, err := loadSource(sourcePath)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Loaded %d declaration(s) from %s", len(src.File.Names()), src.Path)

	var cache *store.Store
	if cachePath != "" {
		cache, err = store.Open(cachePath)
		if err != nil {
			return formatter.Fail(withCode(ErrCodeCacheFailed, err))
		}
		defer cache.Close()
	}

	session, err := compiler.NewSession(src.File,
		compiler.WithOptions(compileOpts),
		compiler.WithLogger(opts.newLogger(formatter.GetErrWriter())),
	)
	if err != nil {
		return formatter.Fail(err)
	}

	summary := CompileSummary{Source: src.Path, Session: session.ID()}
	for _, typeName := range types {
		compiled, err := compileOne(cmd.Context(), session, cache, src, typeName)
		if err != nil {
			return formatter.Fail(err)
		}
		if compiled.Cached {
			formatter.VerboseLog("Cache hit for %s (%s)", compiled.Type, compiled.Key)
		}
		summary.Types = append(summary.Types, compiled)
	}

	if output != "" {
		if err := writeOutputs(summary.Types, output); err != nil {
			return formatter.Fail(withCode(ErrCodeWriteFailed, err))
		}
	}

	return outputCompileSuccess(formatter, summary, output != "")
}

// compileOne compiles typeName, going through the cache when there is one.
func compileOne(ctx context.Context, session *compiler.Session, cache *store.Store, src *sourceFile, typeName string) (CompiledType, error) {
	typeName = strings.TrimSpace(typeName)
	options := session.Options().Fingerprint()
	key, err := ir.ArtifactKey(src.Digest, typeName, options)
	if err != nil {
		return CompiledType{}, err
	}
	compiled := CompiledType{Type: typeName, Key: key}

	if cache != nil {
		artifact, ok, err := cache.GetArtifact(ctx, key)
		if err != nil {
			return CompiledType{}, withCode(ErrCodeCacheFailed, err)
		}
		if ok {
			compiled.Functions = artifact.Functions
			compiled.Code = artifact.Code
			compiled.Cached = true
			return compiled, nil
		}
	}

	root, err := parseTypeArg(typeName)
	if err != nil {
		return CompiledType{}, err
	}
	res, err := session.CompileType(root)
	if err != nil {
		return CompiledType{}, err
	}
	code, err := res.JavaScript()
	if err != nil {
		return CompiledType{}, err
	}
	compiled.Code = code
	compiled.Functions = len(res.Program.Functions)
	for _, w := range res.Warnings {
		compiled.Recursive = append(compiled.Recursive, w.Message)
	}

	if cache != nil {
		_, err := cache.PutArtifact(ctx, store.Artifact{
			Key:          key,
			TypeName:     typeName,
			SourceDigest: src.Digest,
			Options:      options,
			Code:         code,
			Functions:    compiled.Functions,
			SessionID:    session.ID(),
		})
		if err != nil {
			return CompiledType{}, withCode(ErrCodeCacheFailed, err)
		}
	}
	return compiled, nil
}

// writeOutputs writes one type to output as a file, or several types
// into output as a directory.
func writeOutputs(types []CompiledType, output string) error {
	info, statErr := os.Stat(output)
	asDir := len(types) > 1 || (statErr == nil && info.IsDir())
	if asDir {
		if err := os.MkdirAll(output, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	for i := range types {
		path := output
		if asDir {
			path = filepath.Join(output, outputName(types[i].Type))
		}
		if err := os.WriteFile(path, []byte(types[i].Code), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		types[i].Output = path
	}
	return nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, summary CompileSummary, written bool) error {
	if formatter.Format == "json" {
		if written {
			for i := range summary.Types {
				summary.Types[i].Code = ""
			}
		}
		return formatter.Success(summary)
	}

	// Without an output path the generated code itself is the output.
	if !written {
		for i, t := range summary.Types {
			if i > 0 {
				fmt.Fprintln(formatter.Writer)
			}
			fmt.Fprint(formatter.Writer, t.Code)
		}
		return nil
	}

	fmt.Fprintf(formatter.Writer, "%s Compiled %d type(s) from %s\n\n", formatter.Mark(true), len(summary.Types), summary.Source)
	for _, t := range summary.Types {
		suffix := ""
		if t.Cached {
			suffix = " " + formatter.Dim("(cached)")
		}
		fmt.Fprintf(formatter.Writer, "  %s: %d function(s) → %s%s\n", formatter.Name(t.Type), t.Functions, t.Output, suffix)
		for _, msg := range t.Recursive {
			fmt.Fprintf(formatter.Writer, "    %s\n", formatter.Dim(msg))
		}
	}
	return nil
}
