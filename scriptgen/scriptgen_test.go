package scriptgen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nativebind/bindgen/binder/bindertest"
	"github.com/nativebind/bindgen/manifest"
	"github.com/nativebind/bindgen/model"
	"github.com/nativebind/bindgen/scriptgen"
)

const nodeHeader = `{"file": "Scene/Node.h",
"comments": [{"line": 9, "endLine": 9, "text": "/// Scene graph node."}],
"decls": [{"kind": "namespace", "name": "Atomic", "members": [
	{"kind": "enum", "name": "CreateMode", "line": 1, "enumerators": [{"name": "REPLICATED"}, {"name": "LOCAL"}]},
	{"kind": "variable", "name": "M_MAX_NODES", "line": 3, "type": "const int", "init": "64"},
	{"kind": "variable", "name": "NODE_TAG", "line": 4, "type": "const String", "init": "\"node\""},
	{"kind": "class", "name": "RefCounted", "line": 6},
	{"kind": "class", "name": "Vector3", "line": 7},
	{"kind": "class", "name": "Node", "line": 10, "bases": ["RefCounted"], "members": [
		{"kind": "function", "name": "Node", "line": 11},
		{"kind": "function", "name": "GetValue", "line": 12, "returnType": "int"},
		{"kind": "function", "name": "SetValue", "line": 13, "params": [{"name": "value", "type": "int"}]},
		{"kind": "function", "name": "GetName", "line": 14, "returnType": "const String&"},
		{"kind": "function", "name": "SetName", "line": 15, "params": [{"name": "name", "type": "const String&"}]},
		{"kind": "function", "name": "Translate", "line": 16, "params": [{"name": "x", "type": "float"}]},
		{"kind": "function", "name": "Translate", "line": 17, "params": [{"name": "x", "type": "float"}, {"name": "y", "type": "float"}]},
		{"kind": "function", "name": "CreateChild", "line": 18, "returnType": "Node*", "params": [
			{"name": "name", "type": "const String&", "default": "String::EMPTY"},
			{"name": "mode", "type": "CreateMode", "default": "REPLICATED"}
		]},
		{"kind": "function", "name": "GetPosition", "line": 19, "returnType": "const Vector3&"},
		{"kind": "function", "name": "SetPosition", "line": 20, "params": [{"name": "position", "type": "const Vector3&"}]},
		{"kind": "function", "name": "GetNumNodes", "line": 21, "static": true, "returnType": "unsigned"},
		{"kind": "function", "name": "GetChildren", "line": 22, "returnType": "const Vector<SharedPtr<Node>>&"}
	]}
]}]}`

const componentHeader = `{"file": "Scene/Component.h", "decls": [
	{"kind": "class", "name": "Component", "line": 1, "bases": ["Node"]}
]}`

func newPackage(t *testing.T) *model.Package {
	t.Helper()
	f := bindertest.New(nil)
	pkg := f.Package(t, "Atomic",
		bindertest.Module{
			Manifest: &manifest.Module{
				Name:         "Scene",
				Classes:      []string{"RefCounted", "Node"},
				NumberArrays: []string{"Vector3"},
				Enums:        []string{"CreateMode"},
				Events:       []string{"NodeAdded"},
			},
			Headers: []string{nodeHeader},
		},
		bindertest.Module{
			Manifest: &manifest.Module{Name: "Components", Classes: []string{"Component"}},
			Headers:  []string{componentHeader},
		},
	)
	pkg.Platforms = []string{"windows", "linux"}
	return pkg
}

func generate(t *testing.T, pkg *model.Package) map[string]string {
	t.Helper()
	f := bindertest.New(nil)
	out, err := scriptgen.New(f.Config, f.Log).Generate(pkg)
	require.NoError(t, err)
	res := map[string]string{}
	for _, p := range out.Paths() {
		res[p], _ = out.File(p)
	}
	return res
}

func TestGenerateFiles(t *testing.T) {
	pkg := newPackage(t)
	pkg.Module("Components").ManagedOnly = true

	files := generate(t, pkg)
	var paths []string
	for p := range files {
		paths = append(paths, p)
	}
	assert.ElementsMatch(t, []string{
		"Atomic/Script/JSModuleScene.cpp",
		"Atomic/Script/JSPackageAtomic.cpp",
	}, paths)

	pkgFile := files["Atomic/Script/JSPackageAtomic.cpp"]
	assert.NotContains(t, pkgFile, "components")
	assert.Contains(t, pkgFile, "void jsb_package_atomic_init(JSVM* vm)")
}

func TestGenerateNoScriptTarget(t *testing.T) {
	pkg := newPackage(t)
	pkg.Script = false
	assert.Empty(t, generate(t, pkg))
}

func TestGenerateProperties(t *testing.T) {
	src := generate(t, newPackage(t))["Atomic/Script/JSModuleScene.cpp"]

	assert.Contains(t, src, `    js_class_push_propertyobject(vm, "Atomic", "Node");
    duk_push_object(ctx);
    duk_push_c_function(ctx, jsb_class_Node_GetValue, 0);
    duk_put_prop_string(ctx, -2, "get");
    duk_push_c_function(ctx, jsb_class_Node_SetValue, 1);
    duk_put_prop_string(ctx, -2, "set");
    duk_put_prop_string(ctx, -2, "value");
`)
	assert.Contains(t, src, `duk_put_prop_string(ctx, -2, "position");`)
	assert.Contains(t, src, `duk_put_prop_string(ctx, -2, "name");`)

	// Getter-only static property.
	assert.Contains(t, src, `    duk_push_object(ctx);
    duk_push_c_function(ctx, jsb_class_Node_GetNumNodes, 0);
    duk_put_prop_string(ctx, -2, "get");
    duk_put_prop_string(ctx, -2, "numNodes");
`)
}

func TestGenerateFunctions(t *testing.T) {
	src := generate(t, newPackage(t))["Atomic/Script/JSModuleScene.cpp"]

	assert.Equal(t, 1, strings.Count(src, "static int jsb_class_Node_Translate(duk_context* ctx)"),
		"later overloads are not bound")
	assert.Contains(t, src, `static int jsb_class_Node_SetName(duk_context* ctx)
{
    String name = duk_to_string(ctx, 0);
    duk_push_this(ctx);
    Node* native = js_to_class_instance<Node>(ctx, -1, 0);
    native->SetName(name);
    return 0;
}
`)
	assert.Contains(t, src, `static int jsb_class_Node_CreateChild(duk_context* ctx)
{
    String name = duk_get_top(ctx) > 0 ? duk_to_string(ctx, 0) : String::EMPTY;
    CreateMode mode = duk_get_top(ctx) > 1 ? (CreateMode) ((int) duk_to_number(ctx, 1)) : REPLICATED;
    duk_push_this(ctx);
    Node* native = js_to_class_instance<Node>(ctx, -1, 0);
    Node* returnValue = native->CreateChild(name, mode);
    js_push_class_object_instance(ctx, returnValue, "Node");
    return 1;
}
`)
	assert.Contains(t, src, "duk_push_c_function(ctx, jsb_class_Node_CreateChild, DUK_VARARGS);")
	assert.Contains(t, src, `    Vector3 position;
    js_to_number_array(ctx, 0, position);
`)
	assert.Contains(t, src, "js_push_number_array(ctx, returnValue);")
	assert.Contains(t, src, "js_push_vector(ctx, returnValue);")
	assert.Contains(t, src, `    js_class_get_constructor(ctx, "Atomic", "Node");
    duk_push_c_function(ctx, jsb_class_Node_GetNumNodes, 0);
    duk_put_prop_string(ctx, -2, "getNumNodes");
`)
}

func TestGenerateClasses(t *testing.T) {
	src := generate(t, newPackage(t))["Atomic/Script/JSModuleScene.cpp"]

	assert.Contains(t, src, "// class Node\n// Scene graph node.\n")
	assert.Contains(t, src, `js_class_declare<Node>(vm, "Atomic", "Node", jsb_class_Node_constructor);`)
	assert.Contains(t, src, `js_class_declare<RefCounted>(vm, "Atomic", "RefCounted", nullptr);`)
	// The synthesized handle constructor is managed only.
	assert.Contains(t, src, `js_class_declare<Vector3>(vm, "Atomic", "Vector3", nullptr);`)
	assert.Contains(t, src, `js_setup_prototype(vm, "Atomic", "Node", "Atomic", "RefCounted");`)
	assert.Contains(t, src, `js_setup_prototype(vm, "Atomic", "RefCounted", "", "");`)
	assert.Less(t, strings.Index(src, "void jsb_package_atomic_preinit_scene(JSVM* vm)"),
		strings.Index(src, "void jsb_package_atomic_init_scene(JSVM* vm)"))
}

func TestGenerateConstants(t *testing.T) {
	src := generate(t, newPackage(t))["Atomic/Script/JSModuleScene.cpp"]

	assert.Contains(t, src, `    js_push_package_object(ctx, "Atomic");
    duk_push_object(ctx);
    duk_push_number(ctx, (double) 0);
    duk_put_prop_string(ctx, -2, "REPLICATED");
    duk_push_number(ctx, (double) 1);
    duk_put_prop_string(ctx, -2, "LOCAL");
    duk_put_prop_string(ctx, -2, "CreateMode");
    duk_push_string(ctx, "NodeAdded");
    duk_put_prop_string(ctx, -2, "NodeAdded");
    duk_push_number(ctx, (double) M_MAX_NODES);
    duk_put_prop_string(ctx, -2, "M_MAX_NODES");
    duk_push_string(ctx, NODE_TAG.CString());
    duk_put_prop_string(ctx, -2, "NODE_TAG");
    duk_pop(ctx);
`)
}

func TestGenerateGuards(t *testing.T) {
	pkg := newPackage(t)
	pkg.Module("Components").ExcludedOn = []string{"web", "ios"}

	files := generate(t, pkg)
	guard := "#if !defined(ATOMIC_PLATFORM_WEB) && !defined(ATOMIC_PLATFORM_IOS)"

	mod := files["Atomic/Script/JSModuleComponents.cpp"]
	assert.Contains(t, mod, guard+"\nnamespace Atomic\n")
	assert.True(t, strings.HasSuffix(mod, "}\n#endif\n"))
	assert.NotContains(t, files["Atomic/Script/JSModuleScene.cpp"], "#if")

	assert.Contains(t, files["Atomic/Script/JSPackageAtomic.cpp"], `    jsb_package_atomic_preinit_scene(vm);
`+guard+`
    jsb_package_atomic_preinit_components(vm);
#endif
    jsb_package_atomic_init_scene(vm);
`)
}
