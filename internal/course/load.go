package course

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"
)

// ErrNoCourse is returned when a CUE package has no course value.
var ErrNoCourse = errors.New("no course value found")

// Load reads a course from path. Directories and .cue files are loaded
// as CUE packages; anything else is read as YAML.
func Load(path string) (*Course, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if info.IsDir() {
		return LoadCUE(path)
	}
	if filepath.Ext(path) == ".cue" {
		return LoadCUE(filepath.Dir(path))
	}
	return LoadYAML(path)
}

// LoadYAML reads a course from a YAML file. Unknown fields are rejected.
func LoadYAML(path string) (*Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open course: %w", err)
	}
	defer f.Close()

	var c Course
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse course %s: %w", path, err)
	}
	return &c, nil
}

// ParseYAML decodes a course from YAML bytes.
func ParseYAML(data []byte) (*Course, error) {
	var c Course
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse course: %w", err)
	}
	return &c, nil
}

// LoadCUE loads the CUE package in dir and decodes its top-level
// "course" value.
func LoadCUE(dir string) (*Course, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load cue %s: no instances", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load cue %s: %w", dir, inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("build cue %s: %w", dir, err)
	}
	return decodeCUE(value)
}

// CompileCUE decodes a course from CUE source text.
func CompileCUE(src string) (*Course, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile cue: %w", err)
	}
	return decodeCUE(value)
}

func decodeCUE(value cue.Value) (*Course, error) {
	courseVal := value.LookupPath(cue.ParsePath("course"))
	if !courseVal.Exists() {
		return nil, ErrNoCourse
	}
	if err := courseVal.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("course is not concrete: %w", err)
	}

	var c Course
	if err := courseVal.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode course: %w", err)
	}
	return &c, nil
}
