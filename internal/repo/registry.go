package repo

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"gapipe/internal/filter"
	"gapipe/internal/services"
)

// ParamSpec names one identity parameter and constructs a fresh filter for
// it. Parameter order fixes the identity column order in listings.
type ParamSpec struct {
	Name string
	New  func() filter.Filter
}

// LoadFunc materializes the product behind a located file. The returned value
// is opaque to the repository and the step engine.
type LoadFunc func(ctx context.Context, identity Identity, filename, dir string) (any, error)

// SaveFunc is the optional write counterpart of LoadFunc.
type SaveFunc func(ctx context.Context, identity Identity, data any, filename, dir string) error

// Descriptor declares how one product type is laid out on disk.
type Descriptor struct {
	// Product is the registry key, e.g. "pfsSingle".
	Product string
	// Params lists the identity parameters in canonical order.
	Params []ParamSpec
	// PathRegexps are tried in order against discovered paths; the first
	// structural match wins, so more specific patterns (extra path
	// components such as a date-stamped directory) must come first. Named
	// capture groups must be a subset of the parameter names.
	PathRegexps []*regexp.Regexp
	// DirFormat and FilenameFormat contain {param} placeholders and
	// $variable references.
	DirFormat      string
	FilenameFormat string
	Load           LoadFunc
	Save           SaveFunc
}

func (d *Descriptor) paramNames() map[string]struct{} {
	names := make(map[string]struct{}, len(d.Params))
	for _, p := range d.Params {
		names[p.Name] = struct{}{}
	}
	return names
}

// newFilters instantiates one fresh filter per parameter, keyed by name.
func (d *Descriptor) newFilters() map[string]filter.Filter {
	filters := make(map[string]filter.Filter, len(d.Params))
	for _, p := range d.Params {
		filters[p.Name] = p.New()
	}
	return filters
}

// Registry holds the product descriptors known to the repository.
type Registry struct {
	descriptors map[string]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]*Descriptor)}
}

// Register validates and stores a descriptor. Registration fails when the
// descriptor is structurally unsound: missing parameters or templates,
// duplicate product names, or regex capture groups that name no parameter.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Product == "" {
		return services.Wrap(services.ErrConfiguration, "registry", "register", "descriptor has no product name", nil)
	}
	if _, exists := r.descriptors[d.Product]; exists {
		return services.Wrap(services.ErrConfiguration, "registry", "register",
			fmt.Sprintf("product %q already registered", d.Product), nil)
	}
	if len(d.Params) == 0 {
		return services.Wrap(services.ErrConfiguration, "registry", "register",
			fmt.Sprintf("product %q declares no identity parameters", d.Product), nil)
	}
	if len(d.PathRegexps) == 0 {
		return services.Wrap(services.ErrConfiguration, "registry", "register",
			fmt.Sprintf("product %q declares no path regexes", d.Product), nil)
	}
	if d.DirFormat == "" || d.FilenameFormat == "" {
		return services.Wrap(services.ErrConfiguration, "registry", "register",
			fmt.Sprintf("product %q is missing a path template", d.Product), nil)
	}
	names := d.paramNames()
	if len(names) != len(d.Params) {
		return services.Wrap(services.ErrConfiguration, "registry", "register",
			fmt.Sprintf("product %q has duplicate parameter names", d.Product), nil)
	}
	for _, re := range d.PathRegexps {
		for _, group := range re.SubexpNames() {
			if group == "" {
				continue
			}
			if _, ok := names[group]; !ok {
				return services.Wrap(services.ErrConfiguration, "registry", "register",
					fmt.Sprintf("product %q: capture group %q names no parameter", d.Product, group), nil)
			}
		}
	}
	r.descriptors[d.Product] = d
	return nil
}

// Lookup resolves a product name to its descriptor.
func (r *Registry) Lookup(product string) (*Descriptor, error) {
	d, ok := r.descriptors[product]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "registry", "lookup",
			fmt.Sprintf("unknown product %q", product), nil)
	}
	return d, nil
}

// Products returns the registered product names sorted.
func (r *Registry) Products() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParamNames returns the union of identity parameter names across all
// registered products, sorted. The CLI exposes one repeatable filter flag
// per name.
func (r *Registry) ParamNames() []string {
	seen := make(map[string]struct{})
	for _, d := range r.descriptors {
		for _, p := range d.Params {
			seen[p.Name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
