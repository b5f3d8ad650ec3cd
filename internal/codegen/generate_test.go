package codegen

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/derive/internal/schema"
)

func loadTestdata(t *testing.T) *schema.Schema {
	t.Helper()
	s, errs := schema.Load("../../testdata/schema", schema.LoadModeFailFast)
	require.Empty(t, errs)
	return s
}

func entityNamed(t *testing.T, s *schema.Schema, name string) *schema.Entity {
	t.Helper()
	e, ok := s.Entity(name)
	require.True(t, ok, "entity %s", name)
	return e
}

// render renders e and parses the result, failing on invalid Go.
func render(t *testing.T, e *schema.Entity) (string, *ast.File) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "models", e))

	code := buf.String()
	file, err := parser.ParseFile(token.NewFileSet(), FileName(e.Descriptor), code, parser.AllErrors)
	require.NoError(t, err, code)
	return code, file
}

// normalize collapses runs of whitespace so checks ignore gofmt alignment.
func normalize(code string) string {
	return strings.Join(strings.Fields(code), " ")
}

// structFields returns field name -> type expression of struct typeName.
func structFields(t *testing.T, file *ast.File, typeName string) map[string]string {
	t.Helper()
	out := map[string]string{}
	ast.Inspect(file, func(n ast.Node) bool {
		ts, ok := n.(*ast.TypeSpec)
		if !ok || ts.Name.Name != typeName {
			return true
		}
		st, ok := ts.Type.(*ast.StructType)
		require.True(t, ok, "%s is not a struct", typeName)
		for _, f := range st.Fields.List {
			typ := types.ExprString(f.Type)
			if len(f.Names) == 0 {
				out["<embedded>"] = typ
			}
			for _, name := range f.Names {
				out[name.Name] = typ
			}
		}
		return false
	})
	require.NotEmpty(t, out, "struct %s not found", typeName)
	return out
}

func TestGenerate_Struct(t *testing.T) {
	_, file := render(t, entityNamed(t, loadTestdata(t), "User"))

	assert.Equal(t, "models", file.Name.Name)
	assert.Equal(t, map[string]string{
		"ID":        "int64",
		"Email":     "string",
		"Status":    "string",
		"Name":      "*string",
		"CreatedAt": "time.Time",
	}, structFields(t, file, "User"))
}

func TestGenerate_Header(t *testing.T) {
	code, _ := render(t, entityNamed(t, loadTestdata(t), "User"))
	assert.True(t, strings.HasPrefix(code, "// Code generated by derive. DO NOT EDIT."))
}

func TestGenerate_Descriptor(t *testing.T) {
	code, _ := render(t, entityNamed(t, loadTestdata(t), "User"))
	norm := normalize(code)

	assert.Contains(t, norm, `var UserDescriptor = entity.MustDescriptor("User", "id", []entity.Field{`)
	assert.Contains(t, norm, `entity.WithTable("users"))`)
	assert.Contains(t, norm, `Enum: []string{"active", "disabled"}`)
	assert.Contains(t, norm, `Column: "created_at"`)
	assert.Contains(t, norm, `Nullable: true`)
	assert.Contains(t, norm, `Type: entity.TypeDate`)
	assert.Contains(t, code, `"github.com/roach88/derive/internal/entity"`)
}

func TestGenerate_Mapper(t *testing.T) {
	code, _ := render(t, entityNamed(t, loadTestdata(t), "User"))
	norm := normalize(code)

	assert.Contains(t, norm, `var UserMapper entity.Mapper[User] = entity.MapperFuncs[User]{`)
	assert.Contains(t, norm, `v.ID, err = entity.Int64(r, "id")`)
	assert.Contains(t, norm, `v.CreatedAt, err = entity.Time(r, "createdAt")`)
	assert.Contains(t, norm, `v.Name, err = entity.Nullable(r, "name", entity.String)`)
	assert.Contains(t, norm, `if v.Name != nil { r["name"] = *v.Name }`)
}

func TestGenerate_Repository(t *testing.T) {
	code, file := render(t, entityNamed(t, loadTestdata(t), "User"))
	norm := normalize(code)

	fields := structFields(t, file, "UserRepository")
	assert.Equal(t, "*repository.Repository[User]", fields["<embedded>"])
	assert.Equal(t, "func(ctx context.Context, email string) ([]User, error)", fields["FindByEmail"])
	assert.Equal(t, "func(ctx context.Context, status string, email string) ([]User, error)", fields["FindByStatusAndEmail"])
	assert.Equal(t, "func(ctx context.Context, status []string) ([]User, error)", fields["FindByStatusIn"])
	assert.Equal(t, "func(ctx context.Context, createdAt time.Time) ([]User, error)",
		fields["FindTop10ByCreatedAtGreaterThanOrderByCreatedAtDesc"])
	assert.Equal(t, "func(ctx context.Context, email string) (bool, error)", fields["ExistsByEmail"])
	assert.Equal(t, "func(ctx context.Context, status string) (int64, error)", fields["CountByStatus"])
	assert.Equal(t, "func(ctx context.Context, status string) (int64, error)", fields["DeleteByStatus"])

	assert.Contains(t, norm, `func NewUserRepository(backend executor.Backend, opts ...repository.Option) (*UserRepository, error) {`)
	assert.Contains(t, norm, `repo := repository.New[User](UserDescriptor, UserMapper, backend, opts...)`)
	assert.Contains(t, norm, `Name: "findByStatusIn"`)
	assert.Contains(t, norm, `List: true`)
	assert.Contains(t, norm, `return m.Find(ctx, status, email)`)
	assert.Contains(t, norm, `return m.Exists(ctx, email)`)
	assert.Contains(t, norm, `return m.Count(ctx, status)`)
	assert.Contains(t, norm, `return m.Delete(ctx, status)`)
}

func TestGenerate_StringIDAndNumbers(t *testing.T) {
	code, file := render(t, entityNamed(t, loadTestdata(t), "Account"))

	assert.Equal(t, map[string]string{
		"ID":      "string",
		"Owner":   "string",
		"Balance": "float64",
	}, structFields(t, file, "Account"))
	assert.Contains(t, normalize(code), `entity.WithTable("accounts"))`)
	assert.Contains(t, normalize(code), `v.Balance, err = entity.Float64(r, "balance")`)

	fields := structFields(t, file, "AccountRepository")
	assert.Equal(t, "func(ctx context.Context, balance float64) ([]Account, error)", fields["FindByBalanceLessThan"])
}

const edgeSchema = `
entity: Task: {
	fields: {
		id:      {type: "number"}
		type:    {type: "string"}
		ownerId: {type: "string"}
		done:    {type: "boolean", nullable: true}
		due:     {type: "date", nullable: true}
	}
	methods: {
		findFirstByTypeOrderByDueDesc: ["string"]
		findByTypeOrType: ["string", "string"]
		findById: ["number"]
		countByDone: ["boolean"]
		findAll: []
	}
}
`

func TestGenerate_EdgeNames(t *testing.T) {
	s, errs := schema.CompileString("edge.cue", edgeSchema, schema.LoadModeFailFast)
	require.Empty(t, errs)
	code, file := render(t, entityNamed(t, s, "Task"))
	norm := normalize(code)

	assert.Equal(t, map[string]string{
		"ID":      "int64",
		"Type":    "string",
		"OwnerID": "string",
		"Done":    "*bool",
		"Due":     "*time.Time",
	}, structFields(t, file, "Task"))

	fields := structFields(t, file, "TaskRepository")
	assert.Equal(t, "func(ctx context.Context, typeArg string) (Task, bool, error)", fields["FindFirstByTypeOrderByDueDesc"])
	assert.Equal(t, "func(ctx context.Context, typeArg string, typeArg2 string) ([]Task, error)", fields["FindByTypeOrType"])
	assert.Equal(t, "func(ctx context.Context, id int64) ([]Task, error)", fields["FindByID"])
	assert.Equal(t, "func(ctx context.Context, done bool) (int64, error)", fields["CountByDone"])
	assert.Equal(t, "func(ctx context.Context) ([]Task, error)", fields["FindAll"])

	assert.Contains(t, norm, `return m.One(ctx, typeArg)`)
	assert.Contains(t, norm, `v.Done, err = entity.Nullable(r, "done", entity.Bool)`)
	assert.Contains(t, norm, `Name: "findAll"`)
}

func TestFileName(t *testing.T) {
	s := loadTestdata(t)
	assert.Equal(t, "user_gen.go", FileName(entityNamed(t, s, "User").Descriptor))
	assert.Equal(t, "account_gen.go", FileName(entityNamed(t, s, "Account").Descriptor))
}

func TestParamNames(t *testing.T) {
	assert.Equal(t, []string{"email", "status"}, paramNames([]string{"email", "status"}))
	assert.Equal(t, []string{"age", "age2", "age3"}, paramNames([]string{"age", "age", "age"}))
	assert.Equal(t, []string{"typeArg", "ctxArg", "rangeArg"}, paramNames([]string{"type", "ctx", "range"}))
}

func TestExported(t *testing.T) {
	assert.Equal(t, "ID", exported("id"))
	assert.Equal(t, "OwnerID", exported("ownerId"))
	assert.Equal(t, "CreatedAt", exported("createdAt"))
	assert.Equal(t, "FindByEmail", exported("findByEmail"))
	assert.Equal(t, "Ñame", exported("ñame"))
}
