package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/guardgen/internal/compiler"
	"github.com/roach88/guardgen/internal/validator"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	optionFlags
	Type   string // overrides the case file type
	Source string // declaration source; defaults to the project file source
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Name       string                      `json:"name"`
	Expect     string                      `json:"expect"`
	Valid      bool                        `json:"valid"`
	Passed     bool                        `json:"passed"`
	Violations []validator.ValidationError `json:"violations,omitempty"`
}

// CheckSummary is the result of a check command.
type CheckSummary struct {
	Type   string       `json:"type"`
	Source string       `json:"source"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <cases-file>",
		Short: "Check YAML or JSON values against a type",
		Long: `Validate every value of a case file against a type and report
every violation.

A case passes when the validator's verdict matches its expect field
("pass" by default). The command exits with 1 when any case fails.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Type, "type", "t", "", "type to check against (overrides the case file)")
	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "declaration source file")
	opts.optionFlags.register(cmd)

	return cmd
}

func runCheck(opts *CheckOptions, casesPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := loadProjectConfig(opts.Config)
	if err != nil {
		return formatter.Fail(err)
	}
	compileOpts, err := opts.compileOptions(cmd, cfg)
	if err != nil {
		return formatter.Fail(err)
	}

	cases, err := LoadCases(casesPath)
	if err != nil {
		return formatter.Fail(err)
	}
	typeName := cases.Type
	if opts.Type != "" {
		typeName = opts.Type
	}
	if typeName == "" {
		return formatter.Fail(withCode(ErrCodeBadCases, fmt.Errorf("%s: no type: set type in the case file or pass --type", casesPath)))
	}
	sourcePath := opts.Source
	if sourcePath == "" {
		sourcePath = cfg.resolve(cfg.Source)
	}

	src, err := loadSource(sourcePath)
	if err != nil {
		return formatter.Fail(err)
	}
	session, err := compiler.NewSession(src.File,
		compiler.WithOptions(compileOpts),
		compiler.WithLogger(opts.newLogger(formatter.GetErrWriter())),
	)
	if err != nil {
		return formatter.Fail(err)
	}
	root, err := parseTypeArg(typeName)
	if err != nil {
		return formatter.Fail(err)
	}
	res, err := session.CompileType(root)
	if err != nil {
		return formatter.Fail(err)
	}
	v, err := res.Validator()
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Compiled %s with %d function(s)", typeName, len(res.Program.Functions))

	summary := CheckSummary{Type: typeName, Source: src.Path, Cases: make([]CaseResult, 0, len(cases.Cases))}
	for i := range cases.Cases {
		result, err := checkCase(v, &cases.Cases[i])
		if err != nil {
			return formatter.Fail(err)
		}
		if result.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Cases = append(summary.Cases, result)
	}

	if err := outputCheck(formatter, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d case(s) failed", summary.Failed, len(summary.Cases)))
	}
	return nil
}

// checkCase validates one case. A validator depth overflow on cyclic
// data is reported as an error rather than a crash.
func checkCase(v *validator.Validator, c *Case) (result CaseResult, err error) {
	value, err := c.DecodedValue()
	if err != nil {
		return CaseResult{}, withCode(ErrCodeBadCases, fmt.Errorf("case %q: %w", c.Name, err))
	}

	defer func() {
		if r := recover(); r != nil {
			var overflow *validator.StackOverflowError
			if e, ok := r.(error); ok && errors.As(e, &overflow) {
				err = withCode(ErrCodeGeneric, fmt.Errorf("case %q: %w", c.Name, overflow))
				return
			}
			panic(r)
		}
	}()

	var violations []validator.ValidationError
	valid := v.ValidateDetailed(value, &violations)
	return CaseResult{
		Name:       c.Name,
		Expect:     c.Expect,
		Valid:      valid,
		Passed:     valid == (c.Expect == ExpectPass),
		Violations: violations,
	}, nil
}

func outputCheck(formatter *OutputFormatter, summary CheckSummary) error {
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "Checking %s against %s\n\n", formatter.Name(summary.Type), summary.Source)
	for _, c := range summary.Cases {
		verdict := "valid"
		if !c.Valid {
			verdict = "invalid"
		}
		fmt.Fprintf(formatter.Writer, "%s %s %s\n", formatter.Mark(c.Passed), c.Name, formatter.Dim("("+verdict+", expected "+c.Expect+")"))
		for _, violation := range c.Violations {
			fmt.Fprintf(formatter.Writer, "    %s\n", violation.String())
		}
	}
	fmt.Fprintf(formatter.Writer, "\n%d passed, %d failed\n", summary.Passed, summary.Failed)
	return nil
}
