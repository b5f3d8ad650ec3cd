package codegen

import (
	"fmt"
	"io"

	"github.com/dave/jennifer/jen"

	"github.com/roach88/derive/internal/compiler"
	"github.com/roach88/derive/internal/entity"
	"github.com/roach88/derive/internal/methodname"
	"github.com/roach88/derive/internal/queryir"
	"github.com/roach88/derive/internal/schema"
)

const (
	pkgEntity     = "github.com/roach88/derive/internal/entity"
	pkgCompiler   = "github.com/roach88/derive/internal/compiler"
	pkgExecutor   = "github.com/roach88/derive/internal/executor"
	pkgRepository = "github.com/roach88/derive/internal/repository"
)

// Generate renders the bindings of one entity into a file of package pkg.
func Generate(pkg string, e *schema.Entity) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by derive. DO NOT EDIT.")

	genStruct(f, e.Descriptor)
	genDescriptor(f, e.Descriptor)
	genMapper(f, e.Descriptor)
	genRepository(f, e)
	return f
}

// Render writes the generated file for e to w.
func Render(w io.Writer, pkg string, e *schema.Entity) error {
	if err := Generate(pkg, e).Render(w); err != nil {
		return fmt.Errorf("render %s: %w", e.Descriptor.Name(), err)
	}
	return nil
}

// goType is the struct field type of f.
func goType(d *entity.Descriptor, f entity.Field) jen.Code {
	var t *jen.Statement
	switch f.Type {
	case entity.TypeNumber:
		if f.Name == d.ID().Name {
			t = jen.Int64()
		} else {
			t = jen.Float64()
		}
	case entity.TypeBoolean:
		t = jen.Bool()
	case entity.TypeDate:
		t = jen.Qual("time", "Time")
	default:
		t = jen.String()
	}
	if f.Nullable {
		return jen.Op("*").Add(t)
	}
	return t
}

// getter names the entity accessor that reads f out of a Row.
func getter(d *entity.Descriptor, f entity.Field) string {
	switch f.Type {
	case entity.TypeNumber:
		if f.Name == d.ID().Name {
			return "Int64"
		}
		return "Float64"
	case entity.TypeBoolean:
		return "Bool"
	case entity.TypeDate:
		return "Time"
	}
	return "String"
}

func genStruct(f *jen.File, d *entity.Descriptor) {
	f.Commentf("%s is the typed form of the %s entity.", d.Name(), d.Name())
	f.Type().Id(d.Name()).StructFunc(func(g *jen.Group) {
		for _, fd := range d.Fields() {
			g.Id(exported(fd.Name)).Add(goType(d, fd))
		}
	})
}

var semanticTypeNames = map[entity.SemanticType]string{
	entity.TypeString:  "TypeString",
	entity.TypeNumber:  "TypeNumber",
	entity.TypeBoolean: "TypeBoolean",
	entity.TypeDate:    "TypeDate",
	entity.TypeEnum:    "TypeEnum",
}

func genDescriptor(f *jen.File, d *entity.Descriptor) {
	fields := make([]jen.Code, 0, len(d.Fields()))
	for _, fd := range d.Fields() {
		fields = append(fields, jen.Values(jen.DictFunc(func(dict jen.Dict) {
			dict[jen.Id("Name")] = jen.Lit(fd.Name)
			dict[jen.Id("Type")] = jen.Qual(pkgEntity, semanticTypeNames[fd.Type])
			if fd.Nullable {
				dict[jen.Id("Nullable")] = jen.True()
			}
			if len(fd.Enum) > 0 {
				vals := make([]jen.Code, len(fd.Enum))
				for i, v := range fd.Enum {
					vals[i] = jen.Lit(v)
				}
				dict[jen.Id("Enum")] = jen.Index().String().Values(vals...)
			}
			dict[jen.Id("Column")] = jen.Lit(fd.Column)
		})))
	}

	f.Commentf("%sDescriptor describes the %s entity.", d.Name(), d.Name())
	f.Var().Id(d.Name()+"Descriptor").Op("=").Qual(pkgEntity, "MustDescriptor").Call(
		jen.Lit(d.Name()),
		jen.Lit(d.ID().Name),
		jen.Index().Qual(pkgEntity, "Field").Values(fields...),
		jen.Qual(pkgEntity, "WithTable").Call(jen.Lit(d.Table())),
	)
}

func genMapper(f *jen.File, d *entity.Descriptor) {
	name := d.Name()

	to := jen.Id("r").Op(":=").Qual(pkgEntity, "Row").Values(jen.DictFunc(func(dict jen.Dict) {
		for _, fd := range d.Fields() {
			if !fd.Nullable {
				dict[jen.Lit(fd.Name)] = jen.Id("v").Dot(exported(fd.Name))
			}
		}
	}))
	toBody := []jen.Code{to}
	for _, fd := range d.Fields() {
		if fd.Nullable {
			field := jen.Id("v").Dot(exported(fd.Name))
			toBody = append(toBody, jen.If(field.Clone().Op("!=").Nil()).Block(
				jen.Id("r").Index(jen.Lit(fd.Name)).Op("=").Op("*").Add(field.Clone()),
			))
		}
	}
	toBody = append(toBody, jen.Return(jen.Id("r")))

	var fromBody []jen.Code
	fromBody = append(fromBody,
		jen.Var().Id("v").Id(name),
		jen.Var().Id("err").Error(),
	)
	for _, fd := range d.Fields() {
		get := jen.Qual(pkgEntity, getter(d, fd))
		var read *jen.Statement
		if fd.Nullable {
			read = jen.Qual(pkgEntity, "Nullable").Call(jen.Id("r"), jen.Lit(fd.Name), get)
		} else {
			read = get.Call(jen.Id("r"), jen.Lit(fd.Name))
		}
		fromBody = append(fromBody, jen.If(
			jen.List(jen.Id("v").Dot(exported(fd.Name)), jen.Id("err")).Op("=").Add(read),
			jen.Id("err").Op("!=").Nil(),
		).Block(jen.Return(jen.Id(name).Values(), jen.Id("err"))))
	}
	fromBody = append(fromBody, jen.Return(jen.Id("v"), jen.Nil()))

	f.Commentf("%sMapper converts %s values to and from rows.", name, name)
	f.Var().Id(name+"Mapper").Qual(pkgEntity, "Mapper").Types(jen.Id(name)).Op("=").
		Qual(pkgEntity, "MapperFuncs").Types(jen.Id(name)).Values(jen.Dict{
		jen.Id("To"): jen.Func().Params(jen.Id("v").Id(name)).Qual(pkgEntity, "Row").Block(toBody...),
		jen.Id("From"): jen.Func().Params(jen.Id("r").Qual(pkgEntity, "Row")).
			Params(jen.Id(name), jen.Error()).Block(fromBody...),
	})
}

// binding is one declared method as it appears on the repository struct.
type binding struct {
	method schema.Method
	field  string
	params []jen.Code // typed parameters, ctx excluded
	args   []jen.Code // parameter names
	result []jen.Code
	entry  string // Method entry point the closure calls
}

func newBinding(d *entity.Descriptor, m schema.Method) binding {
	b := binding{method: m, field: exported(m.Name)}

	fields := make([]string, m.Parsed.ArgCount)
	for _, c := range queryir.Comparisons(m.Parsed.Predicate) {
		if c.Op.TakesArgument() {
			fields[c.ArgIndex] = c.Field
		}
	}
	for i, name := range paramNames(fields) {
		fd, _ := d.Field(fields[i])
		t := paramType(d, fd, m.Args[i])
		b.params = append(b.params, jen.Id(name).Add(t))
		b.args = append(b.args, jen.Id(name))
	}

	name := d.Name()
	switch {
	case m.Parsed.Action.ReturnsEntities() && m.Parsed.Limit == 1:
		b.entry = "One"
		b.result = []jen.Code{jen.Id(name), jen.Bool(), jen.Error()}
	case m.Parsed.Action.ReturnsEntities():
		b.entry = "Find"
		b.result = []jen.Code{jen.Index().Id(name), jen.Error()}
	case m.Parsed.Action == methodname.ActionExists:
		b.entry = "Exists"
		b.result = []jen.Code{jen.Bool(), jen.Error()}
	case m.Parsed.Action == methodname.ActionCount:
		b.entry = "Count"
		b.result = []jen.Code{jen.Int64(), jen.Error()}
	default:
		b.entry = "Delete"
		b.result = []jen.Code{jen.Int64(), jen.Error()}
	}
	return b
}

// paramType is the Go type of an argument declared as a. Arguments compared
// with the identifier take the identifier's type.
func paramType(d *entity.Descriptor, fd entity.Field, a compiler.ArgType) jen.Code {
	var el *jen.Statement
	switch a.Type {
	case entity.TypeNumber:
		if fd.Name == d.ID().Name {
			el = jen.Int64()
		} else {
			el = jen.Float64()
		}
	case entity.TypeBoolean:
		el = jen.Bool()
	case entity.TypeDate:
		el = jen.Qual("time", "Time")
	default:
		el = jen.String()
	}
	if a.List {
		return jen.Index().Add(el)
	}
	return el
}

func (b binding) funcType() *jen.Statement {
	params := append([]jen.Code{jen.Id("ctx").Qual("context", "Context")}, b.params...)
	return jen.Func().Params(params...).Params(b.result...)
}

func argTypes(args []compiler.ArgType) jen.Code {
	vals := make([]jen.Code, len(args))
	for i, a := range args {
		vals[i] = jen.Values(jen.DictFunc(func(dict jen.Dict) {
			dict[jen.Id("Type")] = jen.Qual(pkgEntity, semanticTypeNames[a.Type])
			if a.List {
				dict[jen.Id("List")] = jen.True()
			}
		}))
	}
	return jen.Index().Qual(pkgCompiler, "ArgType").Values(vals...)
}

func genRepository(f *jen.File, e *schema.Entity) {
	d := e.Descriptor
	name := d.Name()
	repoName := name + "Repository"

	bindings := make([]binding, len(e.Methods))
	for i, m := range e.Methods {
		bindings[i] = newBinding(d, m)
	}

	f.Commentf("%s is the %s repository with its declared derived methods.", repoName, name)
	f.Type().Id(repoName).StructFunc(func(g *jen.Group) {
		g.Op("*").Qual(pkgRepository, "Repository").Types(jen.Id(name))
		if len(bindings) > 0 {
			g.Line()
		}
		for _, b := range bindings {
			g.Id(b.field).Add(b.funcType())
		}
	})

	body := []jen.Code{
		jen.Id("repo").Op(":=").Qual(pkgRepository, "New").Types(jen.Id(name)).Call(
			jen.Id(name+"Descriptor"), jen.Id(name+"Mapper"), jen.Id("backend"), jen.Id("opts").Op("..."),
		),
		jen.Id("r").Op(":=").Op("&").Id(repoName).Values(jen.Dict{jen.Id("Repository"): jen.Id("repo")}),
	}
	for _, b := range bindings {
		call := append([]jen.Code{jen.Id("ctx")}, b.args...)
		params := append([]jen.Code{jen.Id("ctx").Qual("context", "Context")}, b.params...)
		body = append(body, jen.Block(
			jen.List(jen.Id("m"), jen.Id("err")).Op(":=").Id("repo").Dot("Declare").Call(
				jen.Qual(pkgRepository, "Signature").Values(jen.Dict{
					jen.Id("Name"): jen.Lit(b.method.Name),
					jen.Id("Args"): argTypes(b.method.Args),
				}),
			),
			jen.If(jen.Id("err").Op("!=").Nil()).Block(jen.Return(jen.Nil(), jen.Id("err"))),
			jen.Id("r").Dot(b.field).Op("=").Func().Params(params...).Params(b.result...).Block(
				jen.Return(jen.Id("m").Dot(b.entry).Call(call...)),
			),
		))
	}
	body = append(body, jen.Return(jen.Id("r"), jen.Nil()))

	f.Commentf("New%s binds every declared method of %s against backend.", repoName, name)
	f.Func().Id("New"+repoName).Params(
		jen.Id("backend").Qual(pkgExecutor, "Backend"),
		jen.Id("opts").Op("...").Qual(pkgRepository, "Option"),
	).Params(jen.Op("*").Id(repoName), jen.Error()).Block(body...)
}
