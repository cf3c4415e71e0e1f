package compute

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Body is the per-cell work of a bound kernel. It is called once for every (x, y) in the
// dispatch range, possibly concurrently. A body must only write locations owned by its cell.
type Body func(x, y int)

// BindFunc checks a kernel's argument struct and returns the body to run over a range.
type BindFunc func(args interface{}) (Body, error)

// Kernel is a compiled, named data-parallel function.
type Kernel interface {
	Name() string
	Bind(args interface{}) (Body, error)
}

type kernel struct {
	name string
	bind BindFunc
}

func (k kernel) Name() string { return k.name }

func (k kernel) Bind(args interface{}) (Body, error) {
	body, err := k.bind(args)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to bind arguments to kernel %q", k.name)
	}
	return body, nil
}

// Library is a collection of kernel sources, keyed by kernel name.
type Library map[string]BindFunc

// KernelError is returned when a program cannot be built or a kernel cannot be found.
type KernelError struct {
	Name   string
	Reason string
}

func (err *KernelError) Error() string {
	return fmt.Sprintf("kernel %q: %s", err.Name, err.Reason)
}

// Program is a built set of kernels.
type Program struct {
	kernels map[string]Kernel
}

// NewProgram builds a program out of the given libraries. Building fails if a kernel is
// defined twice or has no body.
func NewProgram(libs ...Library) (*Program, error) {
	p := &Program{kernels: make(map[string]Kernel)}
	for _, lib := range libs {
		for name, bind := range lib {
			if bind == nil {
				return nil, errors.WithStack(&KernelError{Name: name, Reason: "no kernel body"})
			}
			if _, ok := p.kernels[name]; ok {
				return nil, errors.WithStack(&KernelError{Name: name, Reason: "defined more than once"})
			}
			p.kernels[name] = kernel{name: name, bind: bind}
		}
	}
	return p, nil
}

// LoadKernel returns the kernel with the given name.
func (p *Program) LoadKernel(name string) (Kernel, error) {
	k, ok := p.kernels[name]
	if !ok {
		return nil, errors.WithStack(&KernelError{Name: name, Reason: "not found in program"})
	}
	return k, nil
}

// Kernels lists the names of the kernels in the program, sorted.
func (p *Program) Kernels() []string {
	retVal := make([]string, 0, len(p.kernels))
	for name := range p.kernels {
		retVal = append(retVal, name)
	}
	sort.Strings(retVal)
	return retVal
}
