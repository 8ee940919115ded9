// Package loader loads binding packages and their dependencies and
// drives the ingestion pipeline over their modules.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/nativebind/bindgen/binder"
	"github.com/nativebind/bindgen/config"
	"github.com/nativebind/bindgen/converter"
	"github.com/nativebind/bindgen/ingest"
	"github.com/nativebind/bindgen/logger"
	"github.com/nativebind/bindgen/manifest"
	"github.com/nativebind/bindgen/model"
	"github.com/nativebind/bindgen/symtree"
)

var (
	ErrDependencyCycle = errors.New("dependency cycle")
	ErrVersion         = errors.New("unsatisfied dependency version")
)

// Loader loads packages into a registry. A package loaded once, as
// identified by its absolute manifest path, is reused by every package
// depending on it.
type Loader struct {
	Config   *config.Config
	Registry *model.Registry
	// Source supplies the symbol trees of module headers.
	Source symtree.Source
	Log    *logger.Logger

	loaded  map[string]*model.Package
	loading []string // manifest paths of packages being loaded, outermost first
}

func New(cfg *config.Config, reg *model.Registry, src symtree.Source, log *logger.Logger) *Loader {
	return &Loader{
		Config:   cfg,
		Registry: reg,
		Source:   src,
		Log:      log,
		loaded:   map[string]*model.Package{},
	}
}

// Load loads the package whose manifest is at manifestPath, or in the
// directory manifestPath. All its dependencies are loaded first,
// depth-first in listed order. Every failure to find, read or satisfy
// a manifest is a [*manifest.Error].
func (l *Loader) Load(manifestPath string) (*model.Package, error) {
	path, err := manifest.FindPackage(manifestPath)
	if err != nil {
		return nil, err
	}
	if pkg, ok := l.loaded[path]; ok {
		return pkg, nil
	}
	if i := slices.Index(l.loading, path); i != -1 {
		cycle := append(slices.Clone(l.loading[i:]), path)
		return nil, &manifest.Error{
			Path: path,
			Err:  fmt.Errorf("%w: %v", ErrDependencyCycle, strings.Join(cycle, " -> ")),
		}
	}

	man, err := manifest.LoadPackage(path)
	if err != nil {
		return nil, err
	}

	l.loading = append(l.loading, path)
	defer func() { l.loading = l.loading[:len(l.loading)-1] }()

	pkg := model.NewPackage(man.Name)
	pkg.Namespace = man.Namespace
	pkg.Version = man.Version
	pkg.ManifestPath = man.Path
	pkg.Dir = man.Dir()
	pkg.Platforms = man.Platforms
	pkg.Script, pkg.Managed = man.Targets()

	if _, unknown := manifest.Guards(man.Platforms, l.Config.PlatformGuards); len(unknown) > 0 {
		l.Log.Warnf("%v: package %v: unknown platform tags %v contribute no guard",
			man.Path, man.Name, strings.Join(unknown, ", "))
	}

	if err := l.loadDependencies(pkg, man); err != nil {
		return nil, err
	}

	mods, err := l.loadModules(man)
	if err != nil {
		return nil, err
	}

	if err := l.ingest(pkg, mods); err != nil {
		return nil, err
	}

	l.loaded[path] = pkg
	l.Log.Infof("loaded package %v (%v modules, %v classes, %v skipped declarations)",
		pkg.Name, len(pkg.Modules), len(pkg.Classes()), pkg.NumSkips())
	return pkg, nil
}

func (l *Loader) loadDependencies(pkg *model.Package, man *manifest.Package) error {
	for _, ref := range man.Dependencies {
		rel, want, err := manifest.ParseDependency(ref)
		if err != nil {
			return &manifest.Error{Path: man.Path, Err: err}
		}
		depPath := filepath.FromSlash(rel)
		if !filepath.IsAbs(depPath) {
			depPath = filepath.Join(man.Dir(), depPath)
		}
		dep, err := l.Load(depPath)
		if err != nil {
			if errors.Is(err, ErrDependencyCycle) {
				return err
			}
			return &manifest.Error{
				Path: man.Path,
				Err:  fmt.Errorf("dependency %v: %w", strconv.Quote(ref), err),
			}
		}
		if !manifest.SatisfiesVersion(dep.Version, want) {
			have := dep.Version
			if have == "" {
				have = "no version"
			}
			return &manifest.Error{
				Path: man.Path,
				Err:  fmt.Errorf("dependency %v: %w: %v has %v", strconv.Quote(ref), ErrVersion, dep.Name, have),
			}
		}
		if !slices.Contains(pkg.Dependencies, dep) {
			pkg.Dependencies = append(pkg.Dependencies, dep)
		}
	}
	return nil
}

// module is a module together with its manifest and loaded symbol
// trees, kept until ingestion finishes.
type module struct {
	mod     *model.Module
	man     *manifest.Module
	headers []*symtree.Header
}

func (l *Loader) loadModules(man *manifest.Package) ([]module, error) {
	var res []module
	for _, name := range man.Modules {
		mm, err := manifest.LoadModule(man.Dir(), name)
		if err != nil {
			return nil, err
		}
		mod := &model.Module{
			Name:        name,
			ExcludedOn:  man.ExcludedOn(name),
			ManagedOnly: slices.Contains(man.DotnetModules, name),
		}
		mod.Headers, err = symtree.ExpandHeaders(l.Source, "", mm.Headers)
		if err != nil {
			return nil, &manifest.Error{Path: mm.Path, Err: err}
		}
		var headers []*symtree.Header
		for _, h := range mod.Headers {
			hdr, err := l.Source.Load(h)
			if err != nil {
				return nil, &manifest.Error{Path: mm.Path, Err: fmt.Errorf("header %v: %w", h, err)}
			}
			headers = append(headers, hdr)
		}
		res = append(res, module{mod: mod, man: mm, headers: headers})
	}
	return res, nil
}

// ingest runs the five phases. Each phase finishes on every module
// before the next one starts, since later phases resolve names declared
// by sibling modules.
func (l *Loader) ingest(pkg *model.Package, mods []module) error {
	for _, m := range mods {
		pkg.AddModule(m.mod)
	}
	l.Registry.Add(pkg)

	conv := converter.New(l.Registry, l.Config.Types, pkg.Namespace)
	in := ingest.New(pkg, l.Registry, conv, l.Log)
	b := binder.New(l.Config, l.Log)

	for _, m := range mods {
		in.Preprocess(m.mod, m.man)
	}
	for _, m := range mods {
		in.Visit(m.mod, m.headers)
	}
	for _, m := range mods {
		in.PreprocessClasses(m.mod)
	}
	for _, m := range mods {
		in.ProcessClasses(m.mod)
	}
	for _, m := range mods {
		b.PostProcessClasses(m.mod)
	}
	if err := b.ApplyRules(pkg); err != nil {
		return fmt.Errorf("package %v: %w", pkg.Name, err)
	}
	return nil
}
