// Package scriptgen writes bindings for the script runtime.
//
// Every module bound for the script target gets one source file
// registering its classes, constants and enums; every package gets one
// file calling the module registrations in order.
package scriptgen

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/nativebind/bindgen/binder/binderio"
	"github.com/nativebind/bindgen/config"
	"github.com/nativebind/bindgen/logger"
	"github.com/nativebind/bindgen/manifest"
	"github.com/nativebind/bindgen/model"
)

const generatedNotice = "// Generated by bindgen from package %v. Do not edit."

type Generator struct {
	Config *config.Config
	Log    *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) *Generator {
	return &Generator{Config: cfg, Log: log}
}

// PackageFile returns the path of the package registration file.
func PackageFile(pkg *model.Package) string {
	return path.Join(pkg.Name, "Script", "JSPackage"+pkg.Name+".cpp")
}

// ModuleFile returns the path of the module binding file.
func ModuleFile(mod *model.Module) string {
	return path.Join(mod.Package.Name, "Script", "JSModule"+mod.Name+".cpp")
}

// Generate writes the script bindings of pkg. A package without the
// script target yields an empty set.
func (g *Generator) Generate(pkg *model.Package) (*binderio.OutputSet, error) {
	out := binderio.NewOutputSet()
	if !pkg.Script {
		return out, nil
	}
	var mods []*model.Module
	for _, mod := range pkg.Modules {
		if !mod.BoundFor(model.TargetScript) {
			continue
		}
		mods = append(mods, mod)
		var cb binderio.CodeBuilder
		g.writeModule(&cb, mod)
		if err := out.AddCode(ModuleFile(mod), &cb); err != nil {
			return nil, err
		}
	}
	var cb binderio.CodeBuilder
	g.writePackage(&cb, pkg, mods)
	if err := out.AddCode(PackageFile(pkg), &cb); err != nil {
		return nil, err
	}
	g.Log.Infof("package %v: %v script binding files", pkg.Name, out.Len())
	return out, nil
}

func packageID(pkg *model.Package) string {
	return strcase.ToSnake(pkg.Name)
}

func preinitFunc(mod *model.Module) string {
	return "jsb_package_" + packageID(mod.Package) + "_preinit_" + strcase.ToSnake(mod.Name)
}

func initFunc(mod *model.Module) string {
	return "jsb_package_" + packageID(mod.Package) + "_init_" + strcase.ToSnake(mod.Name)
}

// ScriptName is the name a function or property has in script code.
func ScriptName(name string) string {
	return strcase.ToLowerCamel(name)
}

func (g *Generator) moduleGuard(mod *model.Module) string {
	preds, _ := manifest.Guards(mod.ExcludedOn, g.Config.PlatformGuards)
	return binderio.NoneOf(binderio.NativeGuard, preds)
}

func openNamespace(cb *binderio.CodeBuilder, ns string) (closeNamespace func()) {
	if ns == "" {
		return func() {}
	}
	cb.Linef("namespace %v", ns)
	cb.Linef("{")
	cb.Linef("")
	return func() {
		cb.Linef("}")
	}
}

func (g *Generator) writePackage(cb *binderio.CodeBuilder, pkg *model.Package, mods []*model.Module) {
	cb.Linef(generatedNotice, pkg.Name)
	cb.Linef("")
	cb.Linef("#include <AtomicJS/Javascript/JSVM.h>")
	cb.Linef("")
	closeNS := openNamespace(cb, pkg.Namespace)

	for _, mod := range mods {
		endif := cb.If(g.moduleGuard(mod))
		cb.Linef("extern void %v(JSVM* vm);", preinitFunc(mod))
		cb.Linef("extern void %v(JSVM* vm);", initFunc(mod))
		endif()
	}
	cb.Linef("")

	cb.Open("void jsb_package_%v_init(JSVM* vm)", packageID(pkg))
	// Every class is declared before any class is set up, since
	// prototypes may refer to classes of later modules.
	for _, phase := range []func(*model.Module) string{preinitFunc, initFunc} {
		for _, mod := range mods {
			endif := cb.If(g.moduleGuard(mod))
			cb.Linef("%v(vm);", phase(mod))
			endif()
		}
	}
	cb.Close("")
	cb.Linef("")
	closeNS()
}

// scriptClasses returns the classes of mod bound for scripts. Script
// code has no interfaces.
func scriptClasses(mod *model.Module) []*model.Class {
	var res []*model.Class
	for _, c := range mod.Classes {
		if c.BoundFor(model.TargetScript) && !c.Interface {
			res = append(res, c)
		}
	}
	return res
}

// scriptConstructor returns the constructor scripts may call, or nil.
func scriptConstructor(c *model.Class) *model.Function {
	if c.Abstract {
		return nil
	}
	for _, fn := range c.Constructors() {
		if fn.BoundFor(model.TargetScript) {
			return fn
		}
	}
	return nil
}

func (g *Generator) writeModule(cb *binderio.CodeBuilder, mod *model.Module) {
	pkg := mod.Package
	cb.Linef(generatedNotice, pkg.Name)
	cb.Linef("")
	cb.Linef("#include <Duktape/duktape.h>")
	cb.Linef("#include <AtomicJS/Javascript/JSVM.h>")
	cb.Linef("#include <AtomicJS/Javascript/JSAPI.h>")
	cb.Linef("")
	for _, h := range mod.Headers {
		cb.Linef("#include %v", strconv.Quote(h))
	}
	cb.Linef("")

	endif := cb.If(g.moduleGuard(mod))
	closeNS := openNamespace(cb, pkg.Namespace)

	classes := scriptClasses(mod)
	for _, c := range classes {
		writeClass(cb, c)
	}
	writeConstants(cb, mod)

	cb.Open("void %v(JSVM* vm)", preinitFunc(mod))
	for _, c := range classes {
		ctor := "nullptr"
		if scriptConstructor(c) != nil {
			ctor = "jsb_class_" + c.NativeName + "_constructor"
		}
		cb.Linef("js_class_declare<%v>(vm, %v, %v, %v);",
			c.NativeName, strconv.Quote(pkg.Name), strconv.Quote(c.Name), ctor)
	}
	cb.Close("")
	cb.Linef("")

	cb.Open("void %v(JSVM* vm)", initFunc(mod))
	for _, c := range classes {
		basePkg, baseName := "", ""
		if c.Base != nil && c.Base.BoundFor(model.TargetScript) {
			basePkg, baseName = c.Base.Package().Name, c.Base.Name
		}
		cb.Linef("js_setup_prototype(vm, %v, %v, %v, %v);",
			strconv.Quote(pkg.Name), strconv.Quote(c.Name), strconv.Quote(basePkg), strconv.Quote(baseName))
	}
	for _, c := range classes {
		cb.Linef("jsb_class_define_%v(vm);", c.NativeName)
	}
	cb.Linef("jsb_module_%v_constants(vm);", strcase.ToSnake(mod.Name))
	cb.Close("")
	cb.Linef("")

	closeNS()
	endif()
}

func writeClass(cb *binderio.CodeBuilder, c *model.Class) {
	cb.Linef("// class %v", c.Name)
	cb.Comment(c.Doc, "// ")
	cb.Linef("")

	if ctor := scriptConstructor(c); ctor != nil {
		cb.Open("static int jsb_class_%v_constructor(duk_context* ctx)", c.NativeName)
		args := writeArgs(cb, ctor)
		cb.Linef("duk_push_this(ctx);")
		cb.Linef("js_bind_native_instance(ctx, -1, new %v(%v));", c.NativeName, args)
		cb.Linef("return 0;")
		cb.Close("")
		cb.Linef("")
	}

	var methods, statics []*model.Function
	for _, fn := range c.Methods() {
		if !fn.BoundFor(model.TargetScript) {
			continue
		}
		writeFunction(cb, c, fn)
		if fn.Static {
			statics = append(statics, fn)
		} else {
			methods = append(methods, fn)
		}
	}

	pkgName := strconv.Quote(c.Package().Name)
	cb.Open("static void jsb_class_define_%v(JSVM* vm)", c.NativeName)
	cb.Linef("duk_context* ctx = vm->GetJSContext();")
	cb.Linef("js_class_get_prototype(ctx, %v, %v);", pkgName, strconv.Quote(c.Name))
	for _, fn := range methods {
		pushFunction(cb, c, fn)
		cb.Linef("duk_put_prop_string(ctx, -2, %v);", strconv.Quote(ScriptName(fn.Name)))
	}
	cb.Linef("duk_pop(ctx);")
	if len(statics) > 0 {
		cb.Linef("js_class_get_constructor(ctx, %v, %v);", pkgName, strconv.Quote(c.Name))
		for _, fn := range statics {
			pushFunction(cb, c, fn)
			cb.Linef("duk_put_prop_string(ctx, -2, %v);", strconv.Quote(ScriptName(fn.Name)))
		}
		cb.Linef("duk_pop(ctx);")
	}

	var props []*model.Property
	for _, p := range c.Properties {
		if _, _, ok := p.BoundFor(model.TargetScript); ok {
			props = append(props, p)
		}
	}
	if len(props) > 0 {
		cb.Linef("js_class_push_propertyobject(vm, %v, %v);", pkgName, strconv.Quote(c.Name))
		for _, p := range props {
			getter, setter, _ := p.BoundFor(model.TargetScript)
			cb.Linef("duk_push_object(ctx);")
			if getter != nil {
				pushFunction(cb, c, getter)
				cb.Linef(`duk_put_prop_string(ctx, -2, "get");`)
			}
			if setter != nil {
				pushFunction(cb, c, setter)
				cb.Linef(`duk_put_prop_string(ctx, -2, "set");`)
			}
			cb.Linef("duk_put_prop_string(ctx, -2, %v);", strconv.Quote(ScriptName(p.Name)))
		}
		cb.Linef("duk_pop(ctx);")
	}
	cb.Close("")
	cb.Linef("")
}

func functionID(c *model.Class, fn *model.Function) string {
	return "jsb_class_" + c.NativeName + "_" + fn.NativeName
}

func pushFunction(cb *binderio.CodeBuilder, c *model.Class, fn *model.Function) {
	nargs := strconv.Itoa(len(fn.Params))
	for _, p := range fn.Params {
		if p.Default != "" {
			nargs = "DUK_VARARGS"
			break
		}
	}
	cb.Linef("duk_push_c_function(ctx, %v, %v);", functionID(c, fn), nargs)
}

func writeFunction(cb *binderio.CodeBuilder, c *model.Class, fn *model.Function) {
	cb.Comment(fn.Doc, "// ")
	cb.Open("static int %v(duk_context* ctx)", functionID(c, fn))
	args := writeArgs(cb, fn)

	var call string
	if fn.Static {
		call = fmt.Sprintf("%v::%v(%v)", c.NativeName, fn.NativeName, args)
	} else {
		cb.Linef("duk_push_this(ctx);")
		cb.Linef("%v* native = js_to_class_instance<%v>(ctx, -1, 0);", c.NativeName, c.NativeName)
		call = fmt.Sprintf("native->%v(%v)", fn.NativeName, args)
	}

	if fn.Return == nil {
		cb.Linef("%v;", call)
		cb.Linef("return 0;")
	} else {
		cb.Linef("%v returnValue = %v;", fn.Return.NativeString(), call)
		cb.Linef("%v", model.Visit[string](fn.Return.Type, pusher{ft: fn.Return}))
		cb.Linef("return 1;")
	}
	cb.Close("")
	cb.Linef("")
}

// writeArgs reads the script arguments into locals and returns the
// native call arguments.
func writeArgs(cb *binderio.CodeBuilder, fn *model.Function) string {
	var args []string
	for i, p := range fn.Params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%v", i)
		}
		a := model.Visit[argument](p.Type, reader{idx: i})
		switch {
		case a.expr != "" && p.Default != "":
			cb.Linef("%v %v = duk_get_top(ctx) > %v ? %v : %v;", a.ctype, name, i, a.expr, p.Default)
		case a.expr != "":
			cb.Linef("%v %v = %v;", a.ctype, name, a.expr)
		default:
			cb.Linef("%v %v;", a.ctype, name)
			if p.Default != "" {
				cb.Linef("if (duk_get_top(ctx) > %v)", i)
				cb.Indent++
			}
			cb.Linef(a.fill, name)
			if p.Default != "" {
				cb.Indent--
			}
		}
		args = append(args, callArg(p, name, a))
	}
	return strings.Join(args, ", ")
}

func callArg(p *model.FunctionType, name string, a argument) string {
	switch {
	case a.pointer && !p.Pointer:
		return "*" + name
	case !a.pointer && p.Pointer:
		return "&" + name
	default:
		return name
	}
}

func writeConstants(cb *binderio.CodeBuilder, mod *model.Module) {
	cb.Open("static void jsb_module_%v_constants(JSVM* vm)", strcase.ToSnake(mod.Name))
	cb.Linef("duk_context* ctx = vm->GetJSContext();")
	cb.Linef("js_push_package_object(ctx, %v);", strconv.Quote(mod.Package.Name))
	for _, e := range mod.Enums {
		if !e.Found {
			continue
		}
		cb.Linef("duk_push_object(ctx);")
		for _, v := range e.Values {
			cb.Linef("duk_push_number(ctx, (double) %v);", v.Value)
			cb.Linef("duk_put_prop_string(ctx, -2, %v);", strconv.Quote(v.Name))
		}
		cb.Linef("duk_put_prop_string(ctx, -2, %v);", strconv.Quote(e.Name))
	}
	for _, ev := range mod.Events {
		cb.Linef("duk_push_string(ctx, %v);", strconv.Quote(ev))
		cb.Linef("duk_put_prop_string(ctx, -2, %v);", strconv.Quote(ev))
	}
	for _, k := range mod.Constants {
		if k.IsString() {
			cb.Linef("duk_push_string(ctx, %v.CString());", k.Name)
		} else {
			cb.Linef("duk_push_number(ctx, (double) %v);", k.Name)
		}
		cb.Linef("duk_put_prop_string(ctx, -2, %v);", strconv.Quote(k.Name))
	}
	cb.Linef("duk_pop(ctx);")
	cb.Close("")
	cb.Linef("")
}
