package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/derive/internal/compiler"
	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/methodname"
	"github.com/roach88/derive/internal/queryir"
)

// ParseResult is the JSON form of a parsed method.
type ParseResult struct {
	Entity    string   `json:"entity"`
	Method    string   `json:"method"`
	Action    string   `json:"action"`
	Predicate string   `json:"predicate,omitempty"`
	OrderBy   []string `json:"order_by,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Arguments []string `json:"arguments"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <entity> <method>",
		Short: "Show how a method name is understood",
		Long: `Parse a derived method name against an entity of the schema and print
its action, predicate tree, ordering, limit and the arguments it expects.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, cmd, args[0], args[1])
		},
	}
}

func runParse(opts *RootOptions, cmd *cobra.Command, entityName, method string) error {
	f := opts.formatter(cmd)
	cfg, err := opts.config()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	e, err := loadEntity(f, cfg.SchemaDir, entityName)
	if err != nil {
		return err
	}

	m, err := methodname.Parse(method, e.Descriptor)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeParse, err)
	}

	args := inferArgs(m, e.Descriptor)
	result := ParseResult{
		Entity:    m.Entity,
		Method:    m.Name,
		Action:    string(m.Action),
		Limit:     m.Limit,
		Arguments: make([]string, len(args)),
	}
	if m.Predicate != nil {
		result.Predicate = m.Predicate.String()
	}
	for _, o := range m.OrderBy {
		result.OrderBy = append(result.OrderBy, o.Field+" "+string(o.Direction))
	}

	names := argFields(m)
	described := make([]string, len(args))
	for i, a := range args {
		result.Arguments[i] = a.String()
		described[i] = names[i] + " " + a.String()
	}
	if len(described) == 0 {
		described = []string{"none"}
	}

	return f.Success(result, fmt.Sprintf("%s\narguments: %s", m, strings.Join(described, ", ")))
}

// argFields returns the field each argument is compared with, by position.
func argFields(m *methodname.Method) []string {
	out := make([]string, m.ArgCount)
	for _, c := range queryir.Comparisons(m.Predicate) {
		if c.Op.TakesArgument() {
			out[c.ArgIndex] = c.Field
		}
	}
	return out
}

// inferArgs types every argument after the field it is compared with.
func inferArgs(m *methodname.Method, d *entity.Descriptor) []compiler.ArgType {
	out := make([]compiler.ArgType, m.ArgCount)
	for _, c := range queryir.Comparisons(m.Predicate) {
		if !c.Op.TakesArgument() {
			continue
		}
		f, _ := d.Field(c.Field)
		t := f.Type
		if c.Op == queryir.OpLike {
			t = entity.TypeString
		}
		out[c.ArgIndex] = compiler.ArgType{Type: t, List: c.Op == queryir.OpIn}
	}
	return out
}
