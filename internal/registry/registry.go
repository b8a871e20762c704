package registry

import (
	"maps"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"axc/internal/builtins"
	"axc/internal/stdlib"
)

// FuncID identifies a resolved kernel. IDs are stable for a given registry.
type FuncID int

// Kernel is a resolved kernel definition
type Kernel struct {
	ID     FuncID
	Module string
	stdlib.FunctionDefinition
}

// QualifiedName returns module.name
func (k *Kernel) QualifiedName() string {
	return k.Module + "." + k.Name
}

// Registry resolves kernel names used by map, reduce, fold and axis_shift.
// It is read-only once built and safe for concurrent lookups.
type Registry struct {
	kernels   []*Kernel
	qualified map[string]FuncID
	short     map[string]FuncID
}

// New creates a registry holding the standard kernel modules
func New() *Registry {
	r := &Registry{
		qualified: make(map[string]FuncID),
		short:     make(map[string]FuncID),
	}
	modules := stdlib.GetStandardModules()
	for _, name := range stdlib.ModuleOrder {
		r.addModule(modules[name])
	}
	return r
}

func (r *Registry) addModule(mod *stdlib.ModuleDefinition) {
	for _, fnName := range slices.Sorted(maps.Keys(mod.Functions)) {
		r.Register(mod.Name, mod.Functions[fnName])
	}
}

// Register adds a kernel to the registry and returns its ID.
// Unqualified lookups resolve to the first module registering a name.
func (r *Registry) Register(module string, def stdlib.FunctionDefinition) FuncID {
	id := FuncID(len(r.kernels))
	r.kernels = append(r.kernels, &Kernel{ID: id, Module: module, FunctionDefinition: def})
	r.qualified[module+"."+def.Name] = id
	if _, exists := r.short[def.Name]; !exists {
		r.short[def.Name] = id
	}
	return id
}

// ResolveFunction returns the ID of a kernel given either "name" or "module.name"
func (r *Registry) ResolveFunction(name string) (FuncID, error) {
	if strings.Contains(name, ".") {
		if id, ok := r.qualified[name]; ok {
			return id, nil
		}
		return -1, errors.Errorf("unknown kernel %q", name)
	}
	if id, ok := r.short[name]; ok {
		return id, nil
	}
	return -1, errors.Errorf("unknown kernel %q", name)
}

// Kernel returns the kernel for an ID
func (r *Registry) Kernel(id FuncID) (*Kernel, error) {
	if id < 0 || int(id) >= len(r.kernels) {
		return nil, errors.Errorf("invalid kernel id %d", id)
	}
	return r.kernels[id], nil
}

// FunctionOptions returns the options of a kernel: its kind, arity, result dtype
// when fixed, and any kernel specific option such as shift_policy.
func (r *Registry) FunctionOptions(id FuncID) (map[string]any, error) {
	k, err := r.Kernel(id)
	if err != nil {
		return nil, err
	}
	opts := map[string]any{
		"kind":   string(k.Kind),
		"arity":  k.Arity,
		"module": k.Module,
	}
	if k.ResultDType != builtins.Unknown {
		opts["result_dtype"] = string(k.ResultDType)
	}
	for key, value := range k.Options {
		opts[key] = value
	}
	return opts, nil
}

// IsKind checks whether a name resolves to a kernel of the given kind
func (r *Registry) IsKind(name string, kind stdlib.KernelKind) bool {
	id, err := r.ResolveFunction(name)
	if err != nil {
		return false
	}
	return r.kernels[id].Kind == kind
}

// Names returns the qualified names of all kernels, in registration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kernels))
	for _, k := range r.kernels {
		names = append(names, k.QualifiedName())
	}
	return names
}
