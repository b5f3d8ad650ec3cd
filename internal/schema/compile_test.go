package schema

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/derive/internal/compiler"
	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/methodname"
)

func compileEntity(t *testing.T, src, path string) (*Entity, []error) {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return CompileEntity(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileEntityBasic(t *testing.T) {
	ent, errs := compileEntity(t, `
		entity: User: {
			fields: {
				id:        {type: "number"}
				email:     {type: "string"}
				status:    {type: "enum", values: ["active", "disabled"]}
				name:      {type: "string", nullable: true}
				createdAt: {type: "date", column: "created"}
			}
			methods: {
				findByEmail: ["string"]
				findByStatusIn: ["[]enum"]
				count: []
			}
		}
	`, "entity.User")
	require.Empty(t, errs)
	require.NotNil(t, ent)

	d := ent.Descriptor
	assert.Equal(t, "User", d.Name())
	assert.Equal(t, "users", d.Table())
	assert.Equal(t, "id", d.ID().Name)
	assert.Equal(t, []string{"id", "email", "status", "name", "createdAt"}, d.FieldNames())

	status, _ := d.Field("status")
	assert.Equal(t, []string{"active", "disabled"}, status.Enum)
	name, _ := d.Field("name")
	assert.True(t, name.Nullable)
	created, _ := d.Field("createdAt")
	assert.Equal(t, "created", created.Column)

	require.Len(t, ent.Methods, 3)
	assert.Equal(t, "findByEmail", ent.Methods[0].Name)
	assert.Equal(t, []compiler.ArgType{{Type: entity.TypeString}}, ent.Methods[0].Args)
	assert.Equal(t, methodname.ActionFind, ent.Methods[0].Parsed.Action)
	assert.Equal(t, []compiler.ArgType{{Type: entity.TypeEnum, List: true}}, ent.Methods[1].Args)
	assert.Equal(t, methodname.ActionCount, ent.Methods[2].Parsed.Action)
	assert.True(t, ent.Methods[0].Pos.IsValid())
}

func TestCompileEntityCustomIDAndTable(t *testing.T) {
	ent, errs := compileEntity(t, `
		entity: Account: {
			id: "number"
			table: "ledger_accounts"
			fields: {
				number: {type: "string"}
				owner:  {type: "string"}
			}
		}
	`, "entity.Account")
	require.Empty(t, errs)

	assert.Equal(t, "number", ent.Descriptor.ID().Name)
	assert.Equal(t, "ledger_accounts", ent.Descriptor.Table())
	assert.Empty(t, ent.Methods)
}

func TestCompileEntityErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
		msg  string
	}{
		{
			name: "missing fields",
			src:  `entity: User: {id: "id"}`,
			code: ErrCodeInvalidEntity,
			msg:  "fields are required",
		},
		{
			name: "missing id field",
			src:  `entity: User: {fields: {email: {type: "string"}}}`,
			code: ErrCodeInvalidEntity,
			msg:  "id",
		},
		{
			name: "unknown type",
			src:  `entity: User: {fields: {id: {type: "number"}, score: {type: "float"}}}`,
			code: ErrCodeInvalidField,
			msg:  `unknown semantic type "float"`,
		},
		{
			name: "missing type",
			src:  `entity: User: {fields: {id: {type: "number"}, score: {}}}`,
			code: ErrCodeInvalidField,
			msg:  "field score: type is required",
		},
		{
			name: "nullable not a bool",
			src:  `entity: User: {fields: {id: {type: "number"}, name: {type: "string", nullable: "yes"}}}`,
			code: ErrCodeInvalidField,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ent, errs := compileEntity(t, tc.src, "entity.User")
			assert.Nil(t, ent)
			require.Len(t, errs, 1)
			assert.Equal(t, tc.code, CodeOf(errs[0]))
			assert.Contains(t, errs[0].Error(), tc.msg)
		})
	}
}

func TestCompileEntityMethodErrorsAreCollected(t *testing.T) {
	ent, errs := compileEntity(t, `
		entity: User: {
			fields: {
				id:    {type: "number"}
				email: {type: "string"}
				age:   {type: "number"}
			}
			methods: {
				findByEmail: ["string"]
				findByPhone: ["string"]
				findByAge: ["string"]
				findByEmailAndAge: ["string"]
				findByAgeLessThan: ["decimal"]
			}
		}
	`, "entity.User")
	require.NotNil(t, ent)
	require.Len(t, ent.Methods, 1)
	assert.Equal(t, "findByEmail", ent.Methods[0].Name)

	require.Len(t, errs, 4)
	assert.Equal(t, ErrCodeInvalidMethod, CodeOf(errs[0]))
	assert.ErrorIs(t, errs[0], methodname.ErrUnknownField)

	assert.Equal(t, ErrCodeInvalidSignature, CodeOf(errs[1]))
	assert.True(t, compiler.IsTypeMismatch(errs[1]))

	assert.True(t, compiler.IsArgumentCountMismatch(errs[2]))

	assert.Equal(t, ErrCodeInvalidSignature, CodeOf(errs[3]))
	assert.Contains(t, errs[3].Error(), "decimal")

	// positions point into the source
	var se *Error
	require.True(t, errors.As(errs[0], &se))
	assert.Equal(t, "test.cue", se.Pos.Filename())
	assert.Equal(t, 10, se.Pos.Line())
}

func TestError_Format(t *testing.T) {
	err := &Error{Code: ErrCodeNoEntities, Message: "no entities found in schema"}
	assert.Equal(t, "E105: no entities found in schema", err.Error())

	err = &Error{Code: ErrCodeInvalidField, Entity: "User", Message: "field x: type is required"}
	assert.Equal(t, "E102: User: field x: type is required", err.Error())

	assert.Equal(t, ErrCodeGeneric, CodeOf(errors.New("plain")))
}
