package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/derive/internal/codegen"
	"github.com/roach88/derive/internal/schema"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	Output  string
	Package string
}

// GenResult lists the files gen wrote.
type GenResult struct {
	Files []string `json:"files"`
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen [entity...]",
		Short: "Generate typed repositories from the schema",
		Long: `Generate Go bindings for the entities of the schema: a struct, its
descriptor and mapper, and a repository with one typed function per declared
method. Without arguments every entity is generated.

With --output - the code is written to stdout instead of one file per entity.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(opts, cmd, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", ".", "output directory, - for stdout")
	cmd.Flags().StringVarP(&opts.Package, "package", "p", "models", "package name of the generated files")

	return cmd
}

func runGen(opts *GenOptions, cmd *cobra.Command, names []string) error {
	f := opts.formatter(cmd)
	cfg, err := opts.config()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	s, errs := schema.Load(cfg.SchemaDir, schema.LoadModeFailFast)
	if len(errs) > 0 {
		return f.Fail(ExitCommandError, schema.ErrCodeLoadFailed, errs[0])
	}

	var entities []*schema.Entity
	for _, name := range names {
		e, ok := s.Entity(name)
		if !ok {
			return f.Fail(ExitCommandError, ErrCodeUnknownEntity,
				fmt.Errorf("entity %q is not declared in %s", name, cfg.SchemaDir))
		}
		entities = append(entities, e)
	}
	if len(names) == 0 {
		for i := range s.Entities {
			entities = append(entities, &s.Entities[i])
		}
	}

	if opts.Output == "-" {
		for _, e := range entities {
			if err := codegen.Render(cmd.OutOrStdout(), opts.Package, e); err != nil {
				return f.Fail(ExitCommandError, ErrCodeGenerate, err)
			}
		}
		return nil
	}

	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return f.Fail(ExitCommandError, ErrCodeGenerate, err)
	}

	result := GenResult{Files: []string{}}
	for _, e := range entities {
		path := filepath.Join(opts.Output, codegen.FileName(e.Descriptor))
		if err := codegen.Generate(opts.Package, e).Save(path); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGenerate, fmt.Errorf("write %s: %w", path, err))
		}
		f.VerboseLog("Generated %s (%d methods)", path, len(e.Methods))
		result.Files = append(result.Files, path)
	}

	return f.Success(result, "Generated "+strings.Join(result.Files, ", "))
}
