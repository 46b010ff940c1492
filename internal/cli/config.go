package cli

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/guardgen/internal/codegen"
	"github.com/roach88/guardgen/internal/compiler"
	"github.com/roach88/guardgen/internal/diag"
)

// DefaultConfigFile is the project file looked up in the working directory.
const DefaultConfigFile = "guardgen.cue"

//go:embed schema/config.cue
var configSchema string

// Config is a decoded guardgen.cue project file.
type Config struct {
	Source              string            `json:"source"`
	Types               []string          `json:"types"`
	Output              string            `json:"output"`
	Cache               string            `json:"cache"`
	CircularRefs        bool              `json:"circularRefs"`
	AllowForeignKeys    bool              `json:"allowForeignKeys"`
	ExpectedValueFormat string            `json:"expectedValueFormat"`
	Refinements         map[string]string `json:"refinements"`

	// Path is the file the config was loaded from.
	Path string `json:"-"`
}

// defaultConfig is used when no project file exists.
func defaultConfig() *Config {
	defaults := compiler.DefaultOptions()
	return &Config{
		CircularRefs:        defaults.CircularRefs,
		AllowForeignKeys:    defaults.AllowForeignKeys,
		ExpectedValueFormat: string(defaults.ExpectedValueFormat),
	}
}

// LoadConfig reads and validates a project file against the embedded
// schema. Schema violations are E204 errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, withCode(ErrCodeNotFound, fmt.Errorf("config file not found: %s", path))
		}
		return nil, withCode(ErrCodeReadFailed, fmt.Errorf("reading config file: %w", err))
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema, cue.Filename("config.cue"))
	if err := schema.Err(); err != nil {
		return nil, diag.Internalf("config", "embedded schema: %v", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, configError(path, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, configError(path, err)
	}

	cfg := &Config{}
	if err := unified.Decode(cfg); err != nil {
		return nil, configError(path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// configError flattens a CUE error list into one E204 error.
func configError(path string, err error) error {
	msgs := make([]string, 0)
	for _, e := range cueerrors.Errors(err) {
		msgs = append(msgs, e.Error())
	}
	sort.Strings(msgs)
	msg := err.Error()
	if len(msgs) > 0 {
		msg = msgs[0]
		if len(msgs) > 1 {
			msg = fmt.Sprintf("%s (and %d more)", msg, len(msgs)-1)
		}
	}
	return diag.Errorf(diag.ErrInvalidConfig, path, "%s", msg)
}

// loadProjectConfig loads the --config file, or ./guardgen.cue when it
// exists, or the defaults.
func loadProjectConfig(explicit string) (*Config, error) {
	if explicit != "" {
		return LoadConfig(explicit)
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return LoadConfig(DefaultConfigFile)
	}
	return defaultConfig(), nil
}

// resolve makes p relative to the project file's directory.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(c.Path), p)
}

// compileOptions converts the config into compiler options.
func (c *Config) compileOptions() (compiler.Options, error) {
	opts := compiler.Options{
		CircularRefs:        c.CircularRefs,
		AllowForeignKeys:    c.AllowForeignKeys,
		ExpectedValueFormat: codegen.ExpectedFormat(c.ExpectedValueFormat),
	}
	if len(c.Refinements) > 0 {
		refinements, err := builtinRefinements(c.Refinements)
		if err != nil {
			return compiler.Options{}, err
		}
		opts.Refinements = refinements
	}
	return opts, opts.Validate()
}
