// Package bindertest builds binding graphs from inline symbol trees
// for writer tests.
package bindertest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nativebind/bindgen/binder"
	"github.com/nativebind/bindgen/config"
	"github.com/nativebind/bindgen/converter"
	"github.com/nativebind/bindgen/ingest"
	"github.com/nativebind/bindgen/logger"
	"github.com/nativebind/bindgen/manifest"
	"github.com/nativebind/bindgen/model"
	"github.com/nativebind/bindgen/symtree"
)

// Module is a module manifest together with the symbol-tree documents
// of its headers.
type Module struct {
	Manifest *manifest.Module
	Headers  []string
}

// Fixture ingests packages into a shared registry. Packages built
// later may refer to classes of earlier ones.
type Fixture struct {
	Config   *config.Config
	Registry *model.Registry
	Log      *logger.Logger
	LogBuf   *bytes.Buffer
}

func New(cfg *config.Config) *Fixture {
	if cfg == nil {
		cfg = config.Default()
	}
	var buf bytes.Buffer
	return &Fixture{
		Config:   cfg,
		Registry: model.NewRegistry(),
		Log:      logger.New(&buf, "", logger.INFO),
		LogBuf:   &buf,
	}
}

// Package ingests mods as package name in namespace "Atomic" and runs
// the binding decision pass over it.
func (f *Fixture) Package(t testing.TB, name string, mods ...Module) *model.Package {
	t.Helper()
	pkg := model.NewPackage(name)
	pkg.Namespace = "Atomic"
	for _, m := range mods {
		mod := &model.Module{Name: m.Manifest.Name}
		for _, doc := range m.Headers {
			h, err := symtree.ParseHeader([]byte(doc))
			require.NoError(t, err)
			mod.Headers = append(mod.Headers, h.File)
		}
		pkg.AddModule(mod)
	}
	f.Registry.Add(pkg)

	in := ingest.New(pkg, f.Registry, converter.New(f.Registry, f.Config.Types, pkg.Namespace), f.Log)
	for i, m := range mods {
		in.Preprocess(pkg.Modules[i], m.Manifest)
	}
	for i, m := range mods {
		var headers []*symtree.Header
		for _, doc := range m.Headers {
			h, err := symtree.ParseHeader([]byte(doc))
			require.NoError(t, err)
			headers = append(headers, h)
		}
		in.Visit(pkg.Modules[i], headers)
	}
	for _, mod := range pkg.Modules {
		in.PreprocessClasses(mod)
	}
	for _, mod := range pkg.Modules {
		in.ProcessClasses(mod)
	}
	b := binder.New(f.Config, f.Log)
	for _, mod := range pkg.Modules {
		b.PostProcessClasses(mod)
	}
	require.NoError(t, b.ApplyRules(pkg))
	return pkg
}
