package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/derive/internal/entity"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Schema is the result of loading entity declarations.
type Schema struct {
	Entities  []Entity // declaration order
	Registry  *entity.Registry
	FileCount int
}

// Entity returns the declaration of the named entity.
func (s *Schema) Entity(name string) (*Entity, bool) {
	for i := range s.Entities {
		if s.Entities[i].Descriptor.Name() == name {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

// Load loads the CUE package in dir and compiles its entities.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func Load(dir string, mode LoadMode) (*Schema, []error) {
	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&Error{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&Error{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&Error{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&Error{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Validate(); err != nil {
		return nil, []error{fromCUE(ErrCodeBuildFailed, "", err)}
	}

	s, errs := compile(value, mode)
	if s != nil {
		s.FileCount = len(cueFiles)
	}
	return s, errs
}

// CompileString compiles entity declarations from CUE source. filename is
// used in error positions.
func CompileString(filename, src string, mode LoadMode) (*Schema, []error) {
	value := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := value.Validate(); err != nil {
		return nil, []error{fromCUE(ErrCodeBuildFailed, "", err)}
	}
	s, errs := compile(value, mode)
	if s != nil {
		s.FileCount = 1
	}
	return s, errs
}

func compile(value cue.Value, mode LoadMode) (*Schema, []error) {
	s := &Schema{Registry: entity.NewRegistry()}
	var errs []error

	entitiesVal := value.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return s, []error{&Error{Code: ErrCodeNoEntities, Message: "no entities found in schema"}}
	}
	iter, err := entitiesVal.Fields()
	if err != nil {
		return s, []error{fromCUE(ErrCodeInvalidEntity, "", err)}
	}

	for iter.Next() {
		ent, entErrs := CompileEntity(iter.Value())
		errs = append(errs, entErrs...)
		if len(errs) > 0 && mode == LoadModeFailFast {
			return s, errs[:1]
		}
		if ent == nil {
			continue
		}
		if _, err := s.Registry.Register(ent.Descriptor); err != nil {
			errs = append(errs, &Error{Code: ErrCodeInvalidEntity, Entity: ent.Descriptor.Name(), Message: err.Error(), Pos: ent.Pos, Err: err})
			if mode == LoadModeFailFast {
				return s, errs
			}
			continue
		}
		s.Entities = append(s.Entities, *ent)
	}

	if len(s.Entities) == 0 && len(errs) == 0 {
		errs = append(errs, &Error{Code: ErrCodeNoEntities, Message: "no entities found in schema"})
	}
	return s, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
