package codegen

import (
	"go/token"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/derive/internal/entity"
)

// exported turns a field or method name into an exported Go identifier by
// upper-casing its first letter. A trailing "Id" is spelled "ID".
func exported(name string) string {
	_, size := utf8.DecodeRuneInString(name)
	s := cases.Upper(language.Und).String(name[:size]) + name[size:]
	switch {
	case s == "Id":
		return "ID"
	case strings.HasSuffix(s, "Id"):
		return strings.TrimSuffix(s, "Id") + "ID"
	}
	return s
}

// reserved names are used by the generated closures.
var reserved = map[string]bool{"ctx": true, "m": true, "r": true, "repo": true, "err": true}

// paramNames derives parameter names from the fields the arguments are
// compared with. fields is indexed by argument position.
func paramNames(fields []string) []string {
	out := make([]string, len(fields))
	seen := make(map[string]int, len(fields))
	for i, f := range fields {
		name := f
		if token.IsKeyword(name) || reserved[name] {
			name += "Arg"
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name += strconv.Itoa(n)
		}
		out[i] = name
	}
	return out
}

// FileName is the file Generate output should be saved as, e.g.
// "user_gen.go".
func FileName(d *entity.Descriptor) string {
	return inflect.Underscore(d.Name()) + "_gen.go"
}
