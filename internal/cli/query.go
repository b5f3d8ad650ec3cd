package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/derive/internal/compiler"
	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/methodname"
	"github.com/roach88/derive/internal/repository"
	"github.com/roach88/derive/internal/schema"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Backend  string
	DSN      string
	DataFile string
}

// QueryResult is the JSON form of a query outcome. Exactly one of Rows,
// Count, Exists and Deleted is set, depending on the method's action.
type QueryResult struct {
	Entity  string       `json:"entity"`
	Method  string       `json:"method"`
	Rows    []entity.Row `json:"rows,omitempty"`
	Count   *int64       `json:"count,omitempty"`
	Exists  *bool        `json:"exists,omitempty"`
	Deleted *int64       `json:"deleted,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <entity> <method> [args...]",
		Short: "Run a derived method against the configured backend",
		Long: `Run a derived method against the configured backend.

Arguments are given in call order and parsed after the field they are
compared with: numbers, true/false, RFC 3339 dates, and comma separated
lists for In. The literal null passes a null value; write \null for the
four-letter string "null".

--data saves rows from a YAML file (entity name -> list of rows) before the
query runs, which is mostly useful with the memory backend.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, args[0], args[1], args[2:])
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "backend: memory|sqlite|postgres (overrides config)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "database path or connection string (overrides config)")
	cmd.Flags().StringVar(&opts.DataFile, "data", "", "YAML file of rows to save before querying")

	return cmd
}

// rowMapper lets a repository work on rows directly.
var rowMapper = entity.MapperFuncs[entity.Row]{
	To:   func(r entity.Row) entity.Row { return r },
	From: func(r entity.Row) (entity.Row, error) { return r, nil },
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, entityName, method string, raw []string) error {
	f := opts.formatter(cmd)
	cfg, err := opts.config()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.DSN != "" {
		cfg.DSN = opts.DSN
	}
	if err := cfg.Validate(); err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	logger := newLogger(f.GetErrWriter(), cfg)

	e, err := loadEntity(f, cfg.SchemaDir, entityName)
	if err != nil {
		return err
	}

	backend, closeBackend, err := openBackend(cfg, logger)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBackend, err)
	}
	defer func() {
		if closeErr := closeBackend(); closeErr != nil {
			logger.Error("error closing backend", "backend", cfg.Backend, "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	repo := repository.New(e.Descriptor, entity.Mapper[entity.Row](rowMapper), backend, repository.WithLogger(logger))

	if opts.DataFile != "" {
		n, err := seed(ctx, repo, opts.DataFile)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeBackend, err)
		}
		f.VerboseLog("Saved %d %s row(s) from %s", n, entityName, opts.DataFile)
	}

	parsed, err := repo.Cache().Parse(method)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeParse, err)
	}

	sig := repository.Signature{Name: method, Args: declaredArgs(e, method)}
	if sig.Args == nil {
		sig.Args = inferArgs(parsed, e.Descriptor)
	}
	m, err := repo.Declare(sig)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeBind, err)
	}

	args, err := parseArgs(sig.Args, raw)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeArgument, err)
	}

	result := QueryResult{Entity: entityName, Method: method}
	var text string
	switch {
	case parsed.Action.ReturnsEntities():
		if result.Rows, err = m.Find(ctx, args...); err == nil {
			text = formatRows(e.Descriptor, result.Rows)
		}
	case parsed.Action == methodname.ActionExists:
		var ok bool
		if ok, err = m.Exists(ctx, args...); err == nil {
			result.Exists = &ok
			text = fmt.Sprintf("exists: %t", ok)
		}
	case parsed.Action == methodname.ActionCount:
		var n int64
		if n, err = m.Count(ctx, args...); err == nil {
			result.Count = &n
			text = fmt.Sprintf("count: %d", n)
		}
	default:
		var n int64
		if n, err = m.Delete(ctx, args...); err == nil {
			result.Deleted = &n
			text = fmt.Sprintf("deleted: %d", n)
		}
	}
	if err != nil {
		var be *compiler.BindError
		if errors.As(err, &be) {
			return f.Fail(ExitFailure, ErrCodeBind, err)
		}
		return f.Fail(ExitCommandError, ErrCodeQuery, err)
	}

	return f.Success(result, text)
}

// declaredArgs returns the schema signature of method, nil if the schema
// does not declare it.
func declaredArgs(e *schema.Entity, method string) []compiler.ArgType {
	for _, m := range e.Methods {
		if m.Name == method {
			if m.Args == nil {
				return []compiler.ArgType{}
			}
			return m.Args
		}
	}
	return nil
}

// parseArgs converts command line arguments to values of the declared
// types.
func parseArgs(types []compiler.ArgType, raw []string) ([]any, error) {
	if len(raw) != len(types) {
		return nil, fmt.Errorf("method takes %d argument(s), got %d", len(types), len(raw))
	}
	out := make([]any, len(raw))
	for i, s := range raw {
		v, err := parseArg(types[i], s)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseArg(a compiler.ArgType, s string) (any, error) {
	if a.List {
		list := []any{}
		if s == "" {
			return list, nil
		}
		for _, part := range strings.Split(s, ",") {
			v, err := parseScalar(a.Type, strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	}
	switch s {
	case "null":
		return nil, nil
	case `\null`:
		return parseScalar(a.Type, "null")
	}
	return parseScalar(a.Type, s)
}

func parseScalar(t entity.SemanticType, s string) (any, error) {
	switch t {
	case entity.TypeNumber:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return f, nil
	case entity.TypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", s)
		}
		return b, nil
	case entity.TypeDate:
		if _, err := entity.Coerce(entity.Field{Name: "date", Type: entity.TypeDate}, s); err != nil {
			return nil, fmt.Errorf("%q is not a date", s)
		}
	}
	return s, nil
}

// seed saves the rows listed for the repository's entity in a YAML data
// file and returns how many were saved.
func seed(ctx context.Context, repo *repository.Repository[entity.Row], path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read data file: %w", err)
	}
	var byEntity map[string][]map[string]any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&byEntity); err != nil {
		return 0, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}

	name := repo.Descriptor().Name()
	for i, row := range byEntity[name] {
		if _, err := repo.Save(ctx, entity.Row(row)); err != nil {
			return i, fmt.Errorf("%s row %d: %w", name, i, err)
		}
	}
	return len(byEntity[name]), nil
}

// formatRows renders one line per row, fields in declaration order.
func formatRows(d *entity.Descriptor, rows []entity.Row) string {
	var b strings.Builder
	for _, row := range rows {
		for i, name := range d.FieldNames() {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(name + "=" + formatValue(row[name]))
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "(%d rows)", len(rows))
	return b.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}
