// Package codegen renders Go bindings for entities declared in a schema
// directory: a struct per entity, its Descriptor and Mapper, and a typed
// repository exposing one function per declared derived method.
//
// The output is produced with jennifer, so imports and formatting are
// handled by the renderer:
//
//	s, errs := schema.Load("schema", schema.LoadModeFailFast)
//	...
//	for i := range s.Entities {
//		e := &s.Entities[i]
//		f := codegen.Generate("models", e)
//		f.Save(filepath.Join(out, codegen.FileName(e.Descriptor)))
//	}
//
// Binding happens when NewXRepository runs, so a method name that no longer
// parses against its entity fails at startup rather than on first call.
package codegen
