package binder

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativebind/bindgen/config"
	"github.com/nativebind/bindgen/converter"
	"github.com/nativebind/bindgen/ingest"
	"github.com/nativebind/bindgen/logger"
	"github.com/nativebind/bindgen/manifest"
	"github.com/nativebind/bindgen/model"
	"github.com/nativebind/bindgen/symtree"
)

type bound struct {
	pkg *model.Package
	log *bytes.Buffer
}

func bind(t *testing.T, cfg *config.Config, man *manifest.Module, header string) bound {
	t.Helper()
	var logBuf bytes.Buffer
	log := logger.New(&logBuf, "", logger.INFO)

	pkg := model.NewPackage("Atomic")
	reg := model.NewRegistry()
	reg.Add(pkg)
	mod := &model.Module{Name: man.Name}
	pkg.AddModule(mod)

	h, err := symtree.ParseHeader([]byte(header))
	require.NoError(t, err)

	in := ingest.New(pkg, reg, converter.New(reg, cfg.Types, "Atomic"), log)
	in.Preprocess(mod, man)
	in.Visit(mod, []*symtree.Header{h})
	in.PreprocessClasses(mod)
	in.ProcessClasses(mod)

	b := New(cfg, log)
	b.PostProcessClasses(mod)
	require.NoError(t, b.ApplyRules(pkg))
	return bound{pkg: pkg, log: &logBuf}
}

func propertyNames(c *model.Class) []string {
	var res []string
	for _, p := range c.Properties {
		res = append(res, p.Name)
	}
	return res
}

const fooHeader = `{"file": "Foo.h", "decls": [
	{"kind": "class", "name": "Foo", "line": 1, "members": [
		{"kind": "function", "name": "Foo", "line": 2},
		{"kind": "function", "name": "GetValue", "line": 3, "returnType": "int"},
		{"kind": "function", "name": "SetValue", "line": 4, "params": [{"name": "value", "type": "int"}]},
		{"kind": "function", "name": "IsVisible", "line": 5, "returnType": "bool"},
		{"kind": "function", "name": "SetScale", "line": 6, "params": [{"name": "scale", "type": "float"}]},
		{"kind": "function", "name": "GetScale", "line": 7, "returnType": "int"},
		{"kind": "function", "name": "GetCount", "line": 8, "static": true, "returnType": "int"},
		{"kind": "function", "name": "SetCount", "line": 9, "params": [{"name": "count", "type": "int"}]},
		{"kind": "function", "name": "SetTarget", "line": 10, "params": [{"name": "name", "type": "const String&"}]},
		{"kind": "function", "name": "Getter", "line": 11, "returnType": "int"},
		{"kind": "function", "name": "GetOffset", "line": 12, "returnType": "int", "params": [{"name": "i", "type": "int"}]},
		{"kind": "function", "name": "Move", "line": 13, "params": [{"name": "x", "type": "int"}]},
		{"kind": "function", "name": "Move", "line": 14, "params": [{"name": "x", "type": "float"}]}
	]}
]}`

var fooManifest = &manifest.Module{Name: "Core", Classes: []string{"Foo"}}

func TestPairProperties(t *testing.T) {
	require := require.New(t)
	res := bind(t, config.Default(), fooManifest, fooHeader)
	foo := res.pkg.Class("Foo")

	require.Equal([]string{"Value", "Visible", "Target"}, propertyNames(foo))

	value := foo.Property("Value")
	require.Equal(model.Primitive{Kind: model.Int}, value.Type)
	require.Same(foo.Function("GetValue"), value.Getter)
	require.Same(foo.Function("SetValue"), value.Setter)
	require.False(value.Static)

	// Accessors stay plain methods.
	require.NotNil(foo.Function("GetValue"))
	require.NotNil(foo.Function("SetValue"))

	visible := foo.Property("Visible")
	require.Nil(visible.Setter)
	require.Equal(model.Primitive{Kind: model.Bool}, visible.Type)

	target := foo.Property("Target")
	require.Nil(target.Getter)
	require.Equal(model.StringVal{}, target.Type)
}

func TestPairPropertiesMismatch(t *testing.T) {
	res := bind(t, config.Default(), fooManifest, fooHeader)
	foo := res.pkg.Class("Foo")

	assert.Nil(t, foo.Property("Scale"), "int getter and float setter")
	assert.Nil(t, foo.Property("Count"), "static getter and instance setter")
	assert.Nil(t, foo.Property("ter"))
	assert.Nil(t, foo.Property("Offset"))
	assert.Contains(t, res.log.String(), "WARNING: Foo.h:6:0: property Foo.Scale: getter type int does not match setter type float")
	assert.Contains(t, res.log.String(), "WARNING: Foo.h:9:0: property Foo.Count: getter and setter differ in static-ness")
}

func TestMarkOverloads(t *testing.T) {
	res := bind(t, config.Default(), fooManifest, fooHeader)
	foo := res.pkg.Class("Foo")

	var moves []*model.Function
	for _, fn := range foo.Functions {
		if fn.NativeName == "Move" {
			moves = append(moves, fn)
		}
	}
	require.Len(t, moves, 2)
	assert.False(t, moves[0].SkipScript)
	assert.True(t, moves[1].SkipScript)
	assert.False(t, moves[1].SkipManaged)
	assert.Contains(t, res.log.String(), "INFO: Foo.h:14:0: void Foo::Move(float x): overload not bound for script")
}

const shapesHeader = `{"file": "Shapes.h", "decls": [
	{"kind": "class", "name": "Drawable", "line": 1, "members": [
		{"kind": "function", "name": "Draw", "line": 2, "virtual": true, "pure": true}
	]},
	{"kind": "class", "name": "Renderable", "line": 4, "bases": ["Drawable"], "members": [
		{"kind": "function", "name": "Draw", "line": 5, "virtual": true, "pure": true},
		{"kind": "function", "name": "Render", "line": 6, "virtual": true, "pure": true}
	]},
	{"kind": "class", "name": "RefCounted", "line": 8},
	{"kind": "class", "name": "Shape", "line": 10, "bases": ["RefCounted"], "members": [
		{"kind": "function", "name": "Area", "line": 11, "virtual": true, "pure": true, "returnType": "float"}
	]},
	{"kind": "class", "name": "Sprite", "line": 13, "bases": ["Shape", "Renderable"], "members": [
		{"kind": "function", "name": "Area", "line": 14, "returnType": "float"},
		{"kind": "function", "name": "Draw", "line": 15},
		{"kind": "function", "name": "Render", "line": 16},
		{"kind": "function", "name": "Update", "line": 17}
	]},
	{"kind": "class", "name": "Circle", "line": 19, "bases": ["Shape"], "members": [
		{"kind": "function", "name": "Circle", "line": 20, "params": [{"name": "r", "type": "float"}]},
		{"kind": "function", "name": "Area", "line": 21, "returnType": "float"}
	]},
	{"kind": "class", "name": "Pool", "line": 23, "template": true}
]}`

var shapesManifest = &manifest.Module{
	Name:       "Shapes",
	Classes:    []string{"RefCounted", "Shape", "Sprite", "Circle", "Pool"},
	Interfaces: []string{"Drawable", "Renderable"},
}

func TestMarkInheritedInterface(t *testing.T) {
	require := require.New(t)
	res := bind(t, config.Default(), shapesManifest, shapesHeader)

	sprite := res.pkg.Class("Sprite")
	require.Equal(res.pkg.Class("Shape"), sprite.Base)
	require.True(sprite.Function("Draw").InheritedInterface)
	require.True(sprite.Function("Render").InheritedInterface)
	require.False(sprite.Function("Update").InheritedInterface)
	require.False(sprite.Function("Area").InheritedInterface)

	renderable := res.pkg.Class("Renderable")
	require.True(renderable.Function("Draw").InheritedInterface)
	require.False(renderable.Function("Render").InheritedInterface)

	require.False(res.pkg.Class("Drawable").Function("Draw").InheritedInterface)
}

func TestSynthesizeConstructor(t *testing.T) {
	require := require.New(t)
	res := bind(t, config.Default(), shapesManifest, shapesHeader)

	sprite := res.pkg.Class("Sprite")
	ctors := sprite.Constructors()
	require.Len(ctors, 1)
	ctor := ctors[0]
	require.True(ctor.Synthesized)
	require.True(ctor.SkipScript)
	require.False(ctor.SkipManaged)
	require.Equal([]*model.FunctionType{{Type: model.OpaqueHandle{}, Name: NativeInstanceParam}}, ctor.Params)
	require.Equal("Sprite::Sprite(VoidPtr nativeInstance)", ctor.Signature())

	circle := res.pkg.Class("Circle").Constructors()
	require.Len(circle, 1)
	require.False(circle[0].Synthesized)

	require.Empty(res.pkg.Class("Shape").Constructors(), "abstract")
	require.Empty(res.pkg.Class("RefCounted").Constructors(), "reference-counted root")
	require.Empty(res.pkg.Class("Renderable").Constructors(), "interface")
	require.Empty(res.pkg.Class("Pool").Constructors(), "generic")
}

func TestApplyRules(t *testing.T) {
	require := require.New(t)

	cfg := config.Default()
	var renameFn config.Rule
	renameFn.Select.Class = regexp.MustCompile("Foo")
	renameFn.Select.Name = regexp.MustCompile("Move")
	renameFn.Select.Type = "function"
	renameFn.Actions.Rename = "MoveBy"

	var hideProp config.Rule
	hideProp.Select.Name = regexp.MustCompile("Visible")
	hideProp.Select.Type = "property"
	f := false
	hideProp.Actions.Include = &f
	hideProp.Actions.Targets = []string{"script"}

	var renameClass config.Rule
	renameClass.Select.Name = regexp.MustCompile("(F)oo")
	renameClass.Select.Type = "class"
	renameClass.Actions.Rename = `\1ooBar`

	var noCtor config.Rule
	noCtor.Select.Type = "constructor"
	noCtor.Actions.Include = &f
	noCtor.Actions.Targets = []string{"managed"}

	cfg.Rules = []config.Rule{renameFn, hideProp, renameClass, noCtor}
	res := bind(t, cfg, fooManifest, fooHeader)
	foo := res.pkg.Class("Foo")

	require.Equal("FooBar", foo.Name)
	for _, fn := range foo.Functions {
		if fn.NativeName == "Move" {
			require.Equal("MoveBy", fn.Name)
		}
	}
	visible := foo.Property("Visible")
	require.True(visible.SkipScript)
	require.False(visible.SkipManaged)

	ctor := foo.Constructors()[0]
	require.True(ctor.SkipManaged)
	require.False(ctor.SkipScript)
}

func TestApplyRulesConflict(t *testing.T) {
	cfg := config.Default()
	var r config.Rule
	r.Select.Name = regexp.MustCompile("GetScale")
	r.Actions.Rename = "GetValue"
	cfg.Rules = []config.Rule{r}

	log := logger.New(&bytes.Buffer{}, "", logger.INFO)
	pkg := model.NewPackage("Atomic")
	mod := &model.Module{Name: "Core"}
	pkg.AddModule(mod)
	c := model.NewClass("Foo")
	mod.AddClass(c)
	c.AddFunction(&model.Function{Name: "GetScale", NativeName: "GetScale"})
	c.AddFunction(&model.Function{Name: "GetValue", NativeName: "GetValue"})

	err := New(cfg, log).ApplyRules(pkg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "would cause a conflict")
}
