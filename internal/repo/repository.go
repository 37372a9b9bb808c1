package repo

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"gapipe/internal/filter"
	"gapipe/internal/logging"
	"gapipe/internal/services"
)

// Query constrains a discovery call. Keys are identity parameter names,
// values are filter tokens of the form "VALUE" or "LOW-HIGH".
type Query map[string][]string

// Match pairs a discovered path with the identity parsed out of it.
type Match struct {
	Path     string
	Identity Identity
}

// Repository resolves product queries against the file system. Variables
// ($datadir, $rerundir, ...) are expanded into the descriptors' templates
// before environment variables are consulted.
type Repository struct {
	registry  *Registry
	variables map[string]string
	logger    *slog.Logger
}

func NewRepository(registry *Registry, variables map[string]string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Repository{
		registry:  registry,
		variables: variables,
		logger:    logger.With(logging.FieldComponent, "repo"),
	}
}

func (r *Repository) Registry() *Registry {
	return r.registry
}

// Find discovers every file of the product that satisfies the query. Each
// parameter's glob fragment is substituted into the descriptor's templates,
// the resulting pattern is globbed, and every hit is matched back against the
// regex list (first structural match wins). A file is kept only when all
// constrained filters accept the captured identity fields.
func (r *Repository) Find(product string, q Query) ([]Match, error) {
	desc, filters, err := r.queryFilters(product, q)
	if err != nil {
		return nil, err
	}

	pattern, err := r.globPattern(desc, filters)
	if err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "repo", "find",
			fmt.Sprintf("bad glob pattern %q", pattern), err)
	}
	sort.Strings(paths)
	r.logger.Debug("glob expanded", "product", product, "pattern", pattern, "hits", len(paths))

	matches := make([]Match, 0, len(paths))
	for _, path := range paths {
		identity, ok, err := parsePath(desc, filters, path)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.logger.Debug("path matched no pattern", "product", product, "path", path)
			continue
		}
		if accepted(filters, identity) {
			matches = append(matches, Match{Path: path, Identity: identity})
		}
	}
	return matches, nil
}

// Locate requires the query to resolve to exactly one file. Zero hits and
// multiple hits both fail as not-found; the message distinguishes them.
func (r *Repository) Locate(product string, q Query) (Match, error) {
	matches, err := r.Find(product, q)
	if err != nil {
		return Match{}, err
	}
	desc, filters, err := r.queryFilters(product, q)
	if err != nil {
		return Match{}, err
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return Match{}, services.Wrap(services.ErrNotFound, "repo", "locate",
			fmt.Sprintf("no %s file matches %s", product, describeQuery(desc, filters)), nil)
	default:
		return Match{}, services.Wrap(services.ErrNotFound, "repo", "locate",
			fmt.Sprintf("ambiguous query: %d %s files match %s", len(matches), product, describeQuery(desc, filters)), nil)
	}
}

// Load materializes a product. Exactly one of filename and identity must be
// given. A filename is first parsed back into an identity, then the canonical
// path is re-located, since a caller-supplied path may be incomplete.
func (r *Repository) Load(ctx context.Context, product, filename string, identity Identity) (any, Identity, string, error) {
	if (filename == "") == (identity == nil) {
		return nil, nil, "", services.Wrap(services.ErrValidation, "repo", "load",
			"exactly one of filename and identity must be given", nil)
	}
	desc, err := r.registry.Lookup(product)
	if err != nil {
		return nil, nil, "", err
	}
	if desc.Load == nil {
		return nil, nil, "", services.Wrap(services.ErrConfiguration, "repo", "load",
			fmt.Sprintf("product %q has no load function", product), nil)
	}

	if filename != "" {
		identity, _, err = r.ParseIdentity(product, filename, true)
		if err != nil {
			return nil, nil, "", err
		}
	}
	match, err := r.Locate(product, identityQuery(desc, identity))
	if err != nil {
		return nil, nil, "", err
	}
	dir, base := filepath.Split(match.Path)
	data, err := desc.Load(ctx, match.Identity, base, filepath.Clean(dir))
	if err != nil {
		return nil, nil, "", services.Wrap(services.ErrTransient, "repo", "load",
			fmt.Sprintf("load %s from %s", product, match.Path), err)
	}
	return data, match.Identity, match.Path, nil
}

// Save renders the canonical path for the identity and hands the data to the
// descriptor's save function. Every identity parameter must be present.
func (r *Repository) Save(ctx context.Context, product string, identity Identity, data any) (string, error) {
	desc, err := r.registry.Lookup(product)
	if err != nil {
		return "", err
	}
	if desc.Save == nil {
		return "", services.Wrap(services.ErrConfiguration, "repo", "save",
			fmt.Sprintf("product %q has no save function", product), nil)
	}
	path, err := r.ProductPath(product, identity)
	if err != nil {
		return "", err
	}
	dir, base := filepath.Split(path)
	if err := desc.Save(ctx, identity, data, base, filepath.Clean(dir)); err != nil {
		return "", services.Wrap(services.ErrTransient, "repo", "save",
			fmt.Sprintf("save %s to %s", product, path), err)
	}
	return path, nil
}

// ProductPath renders the canonical path of a fully specified identity.
func (r *Repository) ProductPath(product string, identity Identity) (string, error) {
	desc, err := r.registry.Lookup(product)
	if err != nil {
		return "", err
	}
	fragments := make(map[string]string, len(desc.Params))
	for _, p := range desc.Params {
		v, ok := identity[p.Name]
		if !ok {
			return "", services.Wrap(services.ErrValidation, "repo", "product path",
				fmt.Sprintf("identity is missing parameter %q", p.Name), nil)
		}
		fragments[p.Name] = p.New().FormatValue(v)
	}
	dir, err := expandTemplate(desc.DirFormat, fragments, r.variables)
	if err != nil {
		return "", err
	}
	base, err := expandTemplate(desc.FilenameFormat, fragments, r.variables)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, base), nil
}

// ParseIdentity extracts an identity from a path by trying the product's
// regexes in order. When no pattern matches and required is set, an error is
// returned; otherwise the miss is reported through the bool.
func (r *Repository) ParseIdentity(product, path string, required bool) (Identity, bool, error) {
	desc, err := r.registry.Lookup(product)
	if err != nil {
		return nil, false, err
	}
	identity, ok, err := parsePath(desc, desc.newFilters(), path)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if required {
			return nil, false, services.Wrap(services.ErrValidation, "repo", "parse identity",
				fmt.Sprintf("path %q matches no known %s pattern", path, product), nil)
		}
		r.logger.Warn("path matches no known pattern", "product", product, "path", path)
		return nil, false, nil
	}
	return identity, true, nil
}

// queryFilters instantiates fresh filters for the product and applies the
// query's tokens. Unknown parameter names are rejected.
func (r *Repository) queryFilters(product string, q Query) (*Descriptor, map[string]filter.Filter, error) {
	desc, err := r.registry.Lookup(product)
	if err != nil {
		return nil, nil, err
	}
	filters := desc.newFilters()
	for name, tokens := range q {
		f, ok := filters[name]
		if !ok {
			return nil, nil, services.Wrap(services.ErrValidation, "repo", "query",
				fmt.Sprintf("product %q has no parameter %q", product, name), nil)
		}
		if err := f.Parse(tokens); err != nil {
			return nil, nil, services.Wrap(services.ErrValidation, "repo", "query", "", err)
		}
	}
	return desc, filters, nil
}

func (r *Repository) globPattern(desc *Descriptor, filters map[string]filter.Filter) (string, error) {
	fragments := make(map[string]string, len(filters))
	for name, f := range filters {
		fragments[name] = f.GlobPattern()
	}
	dir, err := expandTemplate(desc.DirFormat, fragments, r.variables)
	if err != nil {
		return "", err
	}
	base, err := expandTemplate(desc.FilenameFormat, fragments, r.variables)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, base), nil
}

// parsePath matches a path against the descriptor's regex list and parses
// every captured field through the matching parameter's scalar parser. A
// structural match with an unparseable field is an error since the pattern
// and its parameter types disagree.
func parsePath(desc *Descriptor, filters map[string]filter.Filter, path string) (Identity, bool, error) {
	slashed := filepath.ToSlash(path)
	for _, re := range desc.PathRegexps {
		m := re.FindStringSubmatch(slashed)
		if m == nil {
			continue
		}
		identity := make(Identity)
		for i, group := range re.SubexpNames() {
			if group == "" || m[i] == "" {
				continue
			}
			v, err := filters[group].ParseValue(m[i])
			if err != nil {
				return nil, false, services.Wrap(services.ErrValidation, "repo", "parse identity",
					fmt.Sprintf("field %q of %s", group, path), err)
			}
			identity[group] = v
		}
		return identity, true, nil
	}
	return nil, false, nil
}

// accepted tests every captured identity field against its filter. Fields
// the regex did not capture are not constrained by construction, since the
// glob already embedded their fragments.
func accepted(filters map[string]filter.Filter, identity Identity) bool {
	for name, v := range identity {
		if f, ok := filters[name]; ok && !f.Match(v) {
			return false
		}
	}
	return true
}

// identityQuery converts a (possibly partial) identity into a query of
// single-scalar tokens, rendered losslessly by each parameter's filter.
func identityQuery(desc *Descriptor, identity Identity) Query {
	q := make(Query, len(identity))
	for _, p := range desc.Params {
		if v, ok := identity[p.Name]; ok {
			q[p.Name] = []string{p.New().FormatValue(v)}
		}
	}
	return q
}

func describeQuery(desc *Descriptor, filters map[string]filter.Filter) string {
	parts := make([]string, 0, len(desc.Params))
	for _, p := range desc.Params {
		f := filters[p.Name]
		if f == nil || f.Empty() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", p.Name, f.String()))
	}
	if len(parts) == 0 {
		return "(unconstrained)"
	}
	return strings.Join(parts, " ")
}
