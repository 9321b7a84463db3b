package compiler

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/shapeq/internal/shape"
)

// ErrInvalidShapes is returned (wrapped) when descriptors compile but fail
// Validate. The individual ValidationErrors are joined into the message.
var ErrInvalidShapes = errors.New("invalid shapes")

// LoadDir loads the CUE package in dir, compiles its shapes, validates them
// and builds a Registry.
func LoadDir(dir string) (*shape.Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("shapes directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("shapes directory: not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	return build(ctx.BuildInstance(inst))
}

// LoadString compiles CUE source text into a Registry.
func LoadString(src string) (*shape.Registry, error) {
	ctx := cuecontext.New()
	return build(ctx.CompileString(src))
}

func build(v cue.Value) (*shape.Registry, error) {
	descriptors, err := CompileShapes(v)
	if err != nil {
		return nil, err
	}

	if verrs := Validate(descriptors); len(verrs) > 0 {
		joined := make([]error, 0, len(verrs)+1)
		joined = append(joined, ErrInvalidShapes)
		for _, ve := range verrs {
			joined = append(joined, ve)
		}
		return nil, errors.Join(joined...)
	}

	return shape.NewRegistry(descriptors...)
}
