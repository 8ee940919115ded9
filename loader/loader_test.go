package loader

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/nativebind/bindgen/config"
	"github.com/nativebind/bindgen/logger"
	"github.com/nativebind/bindgen/manifest"
	"github.com/nativebind/bindgen/model"
	"github.com/nativebind/bindgen/symtree"
)

func extract(t *testing.T, archive string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range txtar.Parse([]byte(archive)).Files {
		p := filepath.Join(dir, filepath.FromSlash(f.Name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), os.ModePerm))
		require.NoError(t, os.WriteFile(p, f.Data, 0666))
	}
	return dir
}

type fixture struct {
	dir    string
	loader *Loader
	log    *bytes.Buffer
}

func newFixture(t *testing.T, archive string) fixture {
	t.Helper()
	dir := extract(t, archive)
	var logBuf bytes.Buffer
	log := logger.New(&logBuf, "", logger.INFO)
	l := New(config.Default(), model.NewRegistry(), symtree.DirSource{Root: filepath.Join(dir, "symbols")}, log)
	return fixture{dir: dir, loader: l, log: &logBuf}
}

const engineArchive = `
-- Core/Package.json --
{"name": "Core", "namespace": "Atomic", "version": "v1.1.0", "platforms": ["windows", "amiga"], "modules": ["Base"]}
-- Core/Base.json --
{"headers": ["Core/*.h"], "classes": ["RefCounted", "Object"]}
-- Extra/Package.json --
{"name": "Extra", "dependencies": ["../Core"]}
-- Atomic/Package.yaml --
name: Atomic
namespace: Atomic
platforms: [windows, linux]
dependencies: ["../Core@v1.0.0", "../Extra"]
modules: [Scene, Components]
moduleExclude: {web: [Components]}
dotnetModules: [Components]
-- Atomic/Scene.toml --
headers = ["Scene/Node.h"]
classes = ["Node", "Foo"]
-- Atomic/Components.json --
{"headers": ["Scene/Component.h"], "classes": ["Component"]}
-- symbols/Core/RefCounted.h.json --
{"decls": [{"kind": "namespace", "name": "Atomic", "members": [
	{"kind": "class", "name": "RefCounted", "line": 3}
]}]}
-- symbols/Core/Object.h.json --
{"decls": [{"kind": "namespace", "name": "Atomic", "members": [
	{"kind": "class", "name": "Object", "line": 5, "bases": ["RefCounted"], "members": [
		{"kind": "function", "name": "GetTypeName", "line": 6, "returnType": "const String&"}
	]}
]}]}
-- symbols/Scene/Node.h.json --
{"decls": [{"kind": "namespace", "name": "Atomic", "members": [
	{"kind": "class", "name": "Node", "line": 4, "bases": ["Atomic::Object"], "members": [
		{"kind": "function", "name": "Node", "line": 5},
		{"kind": "function", "name": "GetComponent", "line": 6, "returnType": "Component*"}
	]},
	{"kind": "class", "name": "Foo", "line": 9, "bases": ["Bar", "Baz"]}
]}]}
-- symbols/Scene/Component.h.json --
{"decls": [{"kind": "namespace", "name": "Atomic", "members": [
	{"kind": "class", "name": "Component", "line": 2, "bases": ["Object"]}
]}]}
`

func TestLoad(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, engineArchive)

	pkg, err := f.loader.Load(filepath.Join(f.dir, "Atomic"))
	require.NoError(err)

	var names []string
	for _, p := range f.loader.Registry.Packages() {
		names = append(names, p.Name)
	}
	require.Equal([]string{"Core", "Extra", "Atomic"}, names)

	core := f.loader.Registry.Package("Core")
	extra := f.loader.Registry.Package("Extra")
	require.Equal([]*model.Package{core, extra}, pkg.Dependencies)
	require.Equal([]*model.Package{core}, extra.Dependencies)
	require.Equal(filepath.Join(f.dir, "Atomic", "Package.yaml"), pkg.ManifestPath)

	require.Equal([]string{"Core/Object.h", "Core/RefCounted.h"}, core.Modules[0].Headers)
	require.Equal(core.Class("RefCounted"), core.Class("Object").Base)

	node := pkg.Class("Node")
	require.Equal(core.Class("Object"), node.Base)
	getComponent := node.Function("GetComponent")
	require.NotNil(getComponent, "class of a sibling module resolves")
	require.Equal(model.ClassRef{Class: pkg.Class("Component")}, getComponent.Return.Type)

	components := pkg.Module("Components")
	require.True(components.ManagedOnly)
	require.Equal([]string{"web"}, components.ExcludedOn)
	require.False(pkg.Module("Scene").ManagedOnly)
}

func TestLoadWarnings(t *testing.T) {
	f := newFixture(t, engineArchive)
	pkg, err := f.loader.Load(filepath.Join(f.dir, "Atomic", "Package.yaml"))
	require.NoError(t, err)

	// Generation goes on with a class whose base is unknown.
	foo := pkg.Class("Foo")
	require.NotNil(t, foo.Decl)
	require.Nil(t, foo.Base)

	log := f.log.String()
	assert.Equal(t, 1, strings.Count(log, "unknown base class"))
	assert.Contains(t, log, "class Foo: unknown base class Bar")
	assert.Contains(t, log, "package Core: unknown platform tags amiga contribute no guard")
	assert.Equal(t, 2, f.loader.Log.Count(logger.WARN))
}

func TestLoadReusesPackages(t *testing.T) {
	f := newFixture(t, engineArchive)
	core, err := f.loader.Load(filepath.Join(f.dir, "Core"))
	require.NoError(t, err)
	atomic, err := f.loader.Load(filepath.Join(f.dir, "Atomic"))
	require.NoError(t, err)
	require.Same(t, core, atomic.Dependencies[0])
	require.Len(t, f.loader.Registry.Packages(), 3)
}

func TestLoadErrors(t *testing.T) {
	for _, tt := range []struct {
		name    string
		archive string
		is      error
		msg     string
	}{
		{
			name: "missing dependency",
			archive: `
-- Atomic/Package.json --
{"name": "Atomic", "dependencies": ["../Nowhere"], "modules": ["Core"]}
-- Atomic/Core.json --
{"classes": ["Node"]}
`,
			is:  fs.ErrNotExist,
			msg: `dependency "../Nowhere"`,
		},
		{
			name: "version",
			archive: `
-- Core/Package.json --
{"name": "Core", "version": "v1.1.0"}
-- Atomic/Package.json --
{"name": "Atomic", "dependencies": ["../Core@v2.0.0"]}
`,
			is:  ErrVersion,
			msg: "Core has v1.1.0",
		},
		{
			name: "unversioned dependency",
			archive: `
-- Core/Package.json --
{"name": "Core"}
-- Atomic/Package.json --
{"name": "Atomic", "dependencies": ["../Core@v1.0.0"]}
`,
			is:  ErrVersion,
			msg: "Core has no version",
		},
		{
			name: "cycle",
			archive: `
-- Atomic/Package.json --
{"name": "Atomic", "dependencies": ["../Core"]}
-- Core/Package.json --
{"name": "Core", "dependencies": ["../Atomic"]}
`,
			is:  ErrDependencyCycle,
			msg: filepath.Join("Core", "Package.json") + " -> ",
		},
		{
			name: "missing module manifest",
			archive: `
-- Atomic/Package.json --
{"name": "Atomic", "modules": ["Core"]}
`,
			is: manifest.ErrNotFound,
		},
		{
			name: "unmatched header pattern",
			archive: `
-- Atomic/Package.json --
{"name": "Atomic", "modules": ["Core"]}
-- Atomic/Core.json --
{"headers": ["Core/*.h"]}
-- symbols/Scene/Node.h.json --
{"decls": []}
`,
			msg: "pattern matches no header",
		},
		{
			name: "missing symbol tree",
			archive: `
-- Atomic/Package.json --
{"name": "Atomic", "modules": ["Core"]}
-- Atomic/Core.json --
{"headers": ["Core/Object.h"]}
`,
			is: fs.ErrNotExist,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.archive)
			_, err := f.loader.Load(filepath.Join(f.dir, "Atomic"))
			require.Error(t, err)
			var mErr *manifest.Error
			require.ErrorAs(t, err, &mErr)
			if tt.is != nil {
				require.ErrorIs(t, err, tt.is)
			}
			if tt.msg != "" {
				require.Contains(t, err.Error(), tt.msg)
			}
			require.Nil(t, f.loader.Registry.Package("Atomic"), "failed package must not be registered")
		})
	}
}

func TestDependencyDOT(t *testing.T) {
	f := newFixture(t, engineArchive)
	pkg, err := f.loader.Load(filepath.Join(f.dir, "Atomic"))
	require.NoError(t, err)

	dot := string(DependencyDOT([]*model.Package{pkg}))
	assert.Equal(t, `digraph packages {
  node [shape=box];
  0 [label="Core\nv1.1.0"]
  1 [label="Extra"]
  2 [label="Atomic"]
  1 -> {0}
  2 -> {0 1}
}
`, dot)
}
