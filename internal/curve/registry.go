package curve

import (
	"fmt"
	"sort"
)

type Registry struct {
	fitters map[string]func() Fitter
}

func NewRegistry() *Registry {
	r := &Registry{fitters: make(map[string]func() Fitter)}

	r.fitters["akima"] = func() Fitter { return NewAkima() }
	r.fitters["fritsch-butland"] = func() Fitter { return NewFritschButland() }
	r.fitters["natural"] = func() Fitter { return NewNaturalCubic() }

	return r
}

func (r *Registry) Get(name string) (Fitter, error) {
	fn, ok := r.fitters[name]
	if !ok {
		return nil, fmt.Errorf("unknown curve kind: %s (available: %v)", name, r.List())
	}
	return fn(), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.fitters))
	for name := range r.fitters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
