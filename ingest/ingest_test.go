package ingest

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativebind/bindgen/config"
	"github.com/nativebind/bindgen/converter"
	"github.com/nativebind/bindgen/logger"
	"github.com/nativebind/bindgen/manifest"
	"github.com/nativebind/bindgen/model"
	"github.com/nativebind/bindgen/symtree"
)

type result struct {
	pkg *model.Package
	mod *model.Module
	log *bytes.Buffer
}

func ingestModule(t *testing.T, man *manifest.Module, headers ...string) result {
	t.Helper()
	var logBuf bytes.Buffer
	log := logger.New(&logBuf, "", logger.INFO)

	pkg := model.NewPackage("Atomic")
	pkg.Namespace = "Atomic"
	reg := model.NewRegistry()
	reg.Add(pkg)
	mod := &model.Module{Name: man.Name}
	pkg.AddModule(mod)

	var hs []*symtree.Header
	for _, src := range headers {
		h, err := symtree.ParseHeader([]byte(src))
		require.NoError(t, err)
		hs = append(hs, h)
	}

	in := New(pkg, reg, converter.New(reg, config.Default().Types, pkg.Namespace), log)
	in.Preprocess(mod, man)
	in.Visit(mod, hs)
	in.PreprocessClasses(mod)
	in.ProcessClasses(mod)
	return result{pkg: pkg, mod: mod, log: &logBuf}
}

func signatures(c *model.Class) []string {
	var res []string
	for _, fn := range c.Functions {
		res = append(res, fn.Signature())
	}
	return res
}

const sceneHeader = `{
	"file": "Scene/Node.h",
	"comments": [
		{"line": 10, "text": "/// Scene graph node."}
	],
	"decls": [{"kind": "namespace", "name": "Atomic", "members": [
		{"kind": "class", "name": "Drawable", "line": 5, "members": [
			{"kind": "function", "name": "Draw", "line": 6, "virtual": true, "pure": true}
		]},
		{"kind": "class", "name": "Node", "line": 11, "column": 7, "bases": ["Animatable", "Drawable", "Serializable"], "members": [
			{"kind": "function", "name": "Node", "line": 12, "params": [{"name": "context", "type": "Context*"}]},
			{"kind": "function", "name": "~Node", "line": 13, "virtual": true},
			{"kind": "function", "name": "GetValue", "line": 14, "returnType": "int"},
			{"kind": "function", "name": "SetValue", "line": 15, "params": [{"name": "value", "type": "int"}]},
			{"kind": "function", "name": "Log", "line": 16, "variadic": true, "params": [{"name": "fmt", "type": "const char*"}]},
			{"kind": "function", "name": "operator==", "line": 17, "returnType": "bool", "params": [{"name": "rhs", "type": "const Node&"}]},
			{"kind": "function", "name": "Hidden", "line": 18, "access": "private"},
			{"kind": "function", "name": "Attach", "line": 19, "params": [{"name": "d", "type": "Drawable*"}]},
			{"kind": "function", "name": "GetHandle", "line": 20, "returnType": "void*"},
			{"kind": "function", "name": "Update", "line": 21, "virtual": true, "pure": true, "params": [{"name": "dt", "type": "float"}]},
			{"kind": "function", "name": "GetInternal", "line": 22, "returnType": "Node*"},
			{"kind": "function", "name": "GetTextures", "line": 23, "returnType": "Vector<SharedPtr<Texture>>"},
			{"kind": "function", "name": "GetName", "line": 24, "static": true, "returnType": "const String&"}
		]},
		{"kind": "class", "name": "Invisible", "line": 40},
		{"kind": "class", "name": "Texture", "line": 41},
		{"kind": "class", "name": "HashMap", "line": 42, "template": true, "members": [
			{"kind": "function", "name": "Size", "line": 43, "returnType": "unsigned"}
		]},
		{"kind": "enum", "name": "BlendMode", "line": 50, "enumerators": [
			{"name": "BLEND_REPLACE"}, {"name": "BLEND_ADD"}, {"name": "BLEND_ALPHA", "value": 10}, {"name": "BLEND_MAX"}
		]},
		{"kind": "variable", "name": "MAX_NODES", "type": "const int", "init": "1024"},
		{"kind": "variable", "name": "UNIT", "type": "const float", "init": "1.0f"},
		{"kind": "variable", "name": "MASK", "type": "const unsigned", "init": "0xff"},
		{"kind": "variable", "name": "NODE_NAME", "type": "const String", "init": "\"Node\""},
		{"kind": "variable", "name": "NODE_OTHER", "type": "const String", "init": "OtherName"},
		{"kind": "variable", "name": "counter", "type": "int", "init": "0"},
		{"kind": "variable", "name": "ROOT", "type": "const Node*"},
		{"kind": "variable", "name": "DEFAULT_MODE", "type": "const BlendMode", "init": "BLEND_ADD"},
		{"kind": "typedef", "name": "NodeID", "type": "unsigned"}
	]}]
}`

var sceneManifest = &manifest.Module{
	Name:       "Scene",
	Classes:    []string{"Node", "Texture", "HashMap", "Missing"},
	Interfaces: []string{"Drawable"},
	Enums:      []string{"BlendMode"},
	Renames:    map[string]string{"Texture": "Texture2"},
	Excludes:   map[string][]string{"Node": {"GetInternal"}},
	Events:     []string{"NodeAdded"},
}

func TestIngestClass(t *testing.T) {
	require := require.New(t)
	res := ingestModule(t, sceneManifest, sceneHeader)

	require.Len(res.mod.Classes, 5)
	require.Nil(res.pkg.Class("Invisible"))
	require.Equal([]string{"NodeAdded"}, res.mod.Events)

	node := res.pkg.Class("Node")
	require.NotNil(node)
	require.Equal("Scene graph node.", node.Doc)
	require.Equal("Scene/Node.h", node.Header)
	require.Nil(node.Base)
	require.Equal([]*model.Class{res.pkg.Class("Drawable")}, node.Interfaces)
	require.True(node.Abstract)

	// Only the first unknown base is reported.
	require.Equal(1, strings.Count(res.log.String(), "unknown base class"))
	require.Contains(res.log.String(), "Scene/Node.h:11:7: class Node: unknown base class Animatable")
	require.Contains(res.log.String(), "class Missing declared but not found")

	require.Equal("Texture2", res.pkg.Class("Texture").Name)

	hashMap := res.pkg.Class("HashMap")
	require.True(hashMap.Generic)
	require.Empty(hashMap.Functions)

	// Declared but never found classes stay as shells.
	missing := res.pkg.Class("Missing")
	require.NotNil(missing)
	require.Nil(missing.Decl)
}

func TestIngestFunctions(t *testing.T) {
	require := require.New(t)
	res := ingestModule(t, sceneManifest, sceneHeader)
	node := res.pkg.Class("Node")

	require.Equal([]string{
		"Node::~Node()",
		"int Node::GetValue()",
		"void Node::SetValue(int value)",
		"void Node::Attach(Drawable* d)",
		"void Node::Update(float dt)",
		"Vector<SharedPtr<Texture>> Node::GetTextures()",
		"static const String& Node::GetName()",
	}, signatures(node))

	ctors := node.Constructors()
	require.Empty(ctors, "constructor takes an unknown Context*")

	require.True(node.Function("~Node").Destructor)
	require.True(node.Function("Attach").SkipScript)
	require.False(node.Function("Attach").SkipManaged)
	require.True(node.Function("Update").Abstract)
	require.True(node.Function("GetName").Static)
	require.Equal(model.Location{File: "Scene/Node.h", Line: 14}, node.Function("GetValue").Location)

	textures := node.Function("GetTextures").Return.Type
	require.Equal(model.Vector{
		Elem: model.ClassRef{Class: res.pkg.Class("Texture")},
		Wrap: model.OwnSharedPtr,
	}, textures)

	var reasons []error
	for _, err := range res.pkg.Skips.Errors {
		var s *Skip
		require.True(errors.As(err, &s))
		reasons = append(reasons, s.Err)
	}
	require.ErrorIs(errors.Join(reasons...), ErrVariadic)
	require.ErrorIs(errors.Join(reasons...), ErrOperator)
	require.ErrorIs(errors.Join(reasons...), ErrExcluded)
	require.ErrorIs(errors.Join(reasons...), converter.ErrUnsupported)
	require.Contains(res.log.String(), "INFO: Scene/Node.h:16:0: Node::Log: variadic function")
}

func TestIngestInterfaceClass(t *testing.T) {
	res := ingestModule(t, sceneManifest, sceneHeader)
	drawable := res.pkg.Class("Drawable")
	require.True(t, drawable.Interface)
	require.True(t, drawable.Abstract)
	require.Equal(t, []string{"void Drawable::Draw()"}, signatures(drawable))
}

func TestIngestForwardDeclaration(t *testing.T) {
	man := &manifest.Module{Name: "M", Classes: []string{"Foo"}}
	forward := `{"file": "A.h", "decls": [{"kind": "class", "name": "Foo", "line": 1}]}`
	marked := `{"file": "B.h", "decls": [{"kind": "class", "name": "Foo", "line": 2, "forward": true}]}`
	definition := `{"file": "Foo.h", "decls": [{"kind": "class", "name": "Foo", "line": 4, "members": [
		{"kind": "function", "name": "GetValue", "line": 5, "returnType": "int"}
	]}]}`
	later := `{"file": "C.h", "decls": [{"kind": "class", "name": "Foo", "line": 7}]}`

	for _, tt := range []struct {
		name    string
		headers []string
	}{
		{"empty declaration first", []string{forward, definition}},
		{"marked forward first", []string{marked, definition}},
		{"empty declaration after", []string{definition, later}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			res := ingestModule(t, man, tt.headers...)
			foo := res.pkg.Class("Foo")
			require.NotNil(t, foo.Decl)
			assert.Equal(t, "Foo.h", foo.Header)
			assert.Equal(t, []string{"int Foo::GetValue()"}, signatures(foo))
		})
	}

	res := ingestModule(t, man, marked)
	assert.Nil(t, res.pkg.Class("Foo").Decl)
	assert.Contains(t, res.log.String(), "class Foo declared but not found in any header")
}

func TestIngestEnumsAndConstants(t *testing.T) {
	require := require.New(t)
	res := ingestModule(t, sceneManifest, sceneHeader)

	blend := res.pkg.Enum("BlendMode")
	require.True(blend.Found)
	require.Equal([]model.EnumValue{
		{Name: "BLEND_REPLACE", Value: 0},
		{Name: "BLEND_ADD", Value: 1},
		{Name: "BLEND_ALPHA", Value: 10},
		{Name: "BLEND_MAX", Value: 11},
	}, blend.Values)

	var got []string
	for _, c := range res.mod.Constants {
		got = append(got, c.Name+" "+c.Type.String()+" "+c.Value)
	}
	require.Equal([]string{
		"MAX_NODES int 1024",
		"UNIT float 1.0f",
		"MASK unsigned int 0xff",
		`NODE_NAME char "Node"`,
	}, got)
	require.True(res.mod.Constants[3].IsString())
	require.False(res.mod.Constants[2].IsString())
}

func truncationHeader(params string) string {
	return `{"file": "F.h", "decls": [{"kind": "class", "name": "Foo", "line": 1, "members": [
		{"kind": "function", "name": "F", "line": 2, "params": ` + params + `}
	]}]}`
}

func ingestF(t *testing.T, params string) *model.Function {
	t.Helper()
	res := ingestModule(t, &manifest.Module{Name: "M", Classes: []string{"Foo"}}, truncationHeader(params))
	return res.pkg.Class("Foo").Function("F")
}

func TestTruncation(t *testing.T) {
	t.Run("trailing default truncates", func(t *testing.T) {
		fn := ingestF(t, `[{"name": "a", "type": "int"}, {"name": "b", "type": "String", "default": "\"x\""}]`)
		require.NotNil(t, fn)
		require.Equal(t, "void Foo::F(int a)", fn.Signature())
	})
	t.Run("leading unsupported drops", func(t *testing.T) {
		fn := ingestF(t, `[{"name": "b", "type": "String"}, {"name": "a", "type": "int", "default": "1"}]`)
		require.Nil(t, fn)
	})
	t.Run("middle defaulted unsupported drops", func(t *testing.T) {
		fn := ingestF(t, `[{"name": "a", "type": "int", "default": "0"}, {"name": "b", "type": "String", "default": "\"x\""}, {"name": "c", "type": "int", "default": "2"}]`)
		require.Nil(t, fn)
	})
	t.Run("contiguous tail truncates", func(t *testing.T) {
		fn := ingestF(t, `[{"name": "a", "type": "int"}, {"name": "b", "type": "String", "default": "\"x\""}, {"name": "c", "type": "Unknown*", "default": "nullptr"}]`)
		require.NotNil(t, fn)
		require.Equal(t, "void Foo::F(int a)", fn.Signature())
	})
	t.Run("defaults kept on converted params", func(t *testing.T) {
		fn := ingestF(t, `[{"name": "a", "type": "int", "default": "3"}]`)
		require.Equal(t, "void Foo::F(int a = 3)", fn.Signature())
	})
}

// Adding a default to an unconvertible trailing parameter can only add
// a function, never remove one.
func TestTruncationMonotonic(t *testing.T) {
	without := ingestF(t, `[{"name": "a", "type": "int"}, {"name": "b", "type": "String"}]`)
	with := ingestF(t, `[{"name": "a", "type": "int"}, {"name": "b", "type": "String", "default": "\"x\""}]`)
	require.Nil(t, without)
	require.NotNil(t, with)

	accepted := ingestF(t, `[{"name": "a", "type": "int"}, {"name": "b", "type": "const String&"}]`)
	acceptedWithDefault := ingestF(t, `[{"name": "a", "type": "int"}, {"name": "b", "type": "const String&", "default": "\"x\""}]`)
	require.NotNil(t, accepted)
	require.NotNil(t, acceptedWithDefault)
	require.Len(t, acceptedWithDefault.Params, 2)
}

func TestIngestIdempotent(t *testing.T) {
	a := ingestModule(t, sceneManifest, sceneHeader)
	b := ingestModule(t, sceneManifest, sceneHeader)
	require.Equal(t, len(a.mod.Classes), len(b.mod.Classes))
	for i, ca := range a.mod.Classes {
		cb := b.mod.Classes[i]
		require.Equal(t, ca.NativeName, cb.NativeName)
		require.Equal(t, signatures(ca), signatures(cb))
		require.Equal(t, ca.Abstract, cb.Abstract)
	}
	require.Equal(t, a.pkg.NumSkips(), b.pkg.NumSkips())
}

func TestSkipError(t *testing.T) {
	s := &Skip{
		Location: model.Location{File: "A.h", Line: 3, Column: 5},
		Symbol:   "A::F",
		Err:      ErrVariadic,
	}
	assert.Equal(t, "A.h:3:5: A::F: variadic function", s.Error())
	assert.ErrorIs(t, s, ErrVariadic)
}
