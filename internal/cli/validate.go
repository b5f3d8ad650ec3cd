package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/derive/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Entities []EntitySummary   `json:"entities,omitempty"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// EntitySummary describes one entity that compiled.
type EntitySummary struct {
	Name    string `json:"name"`
	Table   string `json:"table"`
	Fields  int    `json:"fields"`
	Methods int    `json:"methods"`
}

// ValidationIssue is one schema problem.
type ValidationIssue struct {
	Code    string `json:"code"`
	Entity  string `json:"entity,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [schema-dir]",
		Short: "Check entity declarations and declared methods",
		Long: `Validate the CUE schema: every entity must be well formed and every
declared method must parse and bind to its declared argument types.

All problems are reported, not only the first one.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				rootOpts.SchemaDir = args[0]
			}
			return runValidate(rootOpts, cmd)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg, err := opts.config()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	s, errs := schema.Load(cfg.SchemaDir, schema.LoadModeCollectAll)
	if s == nil {
		// nothing was compiled: the directory itself is unusable
		return f.Fail(ExitCommandError, schema.ErrCodeGeneric, errs[0])
	}
	f.VerboseLog("Found %d CUE file(s) in %s", s.FileCount, cfg.SchemaDir)

	result := ValidationResult{Valid: len(errs) == 0}
	methods := 0
	for _, e := range s.Entities {
		result.Entities = append(result.Entities, EntitySummary{
			Name:    e.Descriptor.Name(),
			Table:   e.Descriptor.Table(),
			Fields:  len(e.Descriptor.Fields()),
			Methods: len(e.Methods),
		})
		methods += len(e.Methods)
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, issue(err))
	}

	if result.Valid {
		return f.Success(result, fmt.Sprintf("✓ Schema valid: %d entities, %d methods", len(s.Entities), methods))
	}

	if f.Format == "json" {
		if err := f.Error(result.Errors[0].Code, result.Errors[0].Message, result); err != nil {
			return err
		}
	} else {
		var b strings.Builder
		b.WriteString("✗ Validation failed\n")
		for _, is := range result.Errors {
			b.WriteByte('\n')
			if is.Line > 0 {
				fmt.Fprintf(&b, "%s:%d:%d\n", is.File, is.Line, is.Column)
			}
			fmt.Fprintf(&b, "  %s: %s\n", is.Code, is.Message)
		}
		fmt.Fprint(f.Writer, b.String())
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func issue(err error) ValidationIssue {
	var se *schema.Error
	if !errors.As(err, &se) {
		return ValidationIssue{Code: schema.ErrCodeGeneric, Message: err.Error()}
	}
	is := ValidationIssue{Code: se.Code, Entity: se.Entity, Message: se.Message}
	if se.Pos.IsValid() {
		is.File = se.Pos.Filename()
		is.Line = se.Pos.Line()
		is.Column = se.Pos.Column()
	}
	return is
}
