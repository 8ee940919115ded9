package managedgen

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"

	"github.com/nativebind/bindgen/binder"
	"github.com/nativebind/bindgen/binder/binderio"
	"github.com/nativebind/bindgen/model"
)

const nativeObject = "NativeObject"

var csKeywords = map[string]bool{
	"base": true, "checked": true, "decimal": true, "delegate": true,
	"event": true, "fixed": true, "foreach": true, "in": true,
	"internal": true, "is": true, "lock": true, "namespace": true,
	"object": true, "operator": true, "out": true, "override": true,
	"params": true, "readonly": true, "ref": true, "sealed": true,
	"string": true, "typeof": true, "uint": true, "ulong": true,
	"unchecked": true, "ushort": true, "using": true, "virtual": true,
}

// ManagedName is the name a class member has in managed code.
func ManagedName(name string) string {
	if name == "" {
		return name
	}
	if unicode.IsLower(rune(name[0])) || strings.Contains(name, "_") {
		return strcase.ToCamel(name)
	}
	return name
}

func paramName(p *model.FunctionType, i int) string {
	name := nativeParamName(p, i)
	if csKeywords[name] {
		return "@" + name
	}
	return name
}

func (g *Generator) writeModule(cb *binderio.CodeBuilder, mod *model.Module) {
	pkg := mod.Package
	cb.Linef(generatedNotice, pkg.Name)
	cb.Linef("")
	endifPlatform := cb.If(g.platformGuard(pkg, binderio.ManagedGuard))
	endifModule := cb.If(g.moduleGuard(mod, binderio.ManagedGuard))

	cb.Linef("using System;")
	cb.Linef("using System.Runtime.InteropServices;")
	cb.Linef("")
	cb.Open("namespace %v", pkg.Name)
	cb.Linef("")
	for _, c := range managedClasses(mod) {
		if c.Interface {
			writeInterface(cb, c)
		} else {
			g.writeClass(cb, c)
		}
	}
	cb.Close("")

	endifModule()
	endifPlatform()
}

func writeInterface(cb *binderio.CodeBuilder, c *model.Class) {
	cb.Comment(c.Doc, "/// ")
	cb.Open("public interface %v%v", c.Name, interfaceList(c, nil))
	for _, fn := range c.Methods() {
		if !fn.BoundFor(model.TargetManaged) || fn.Static {
			continue
		}
		cb.Linef("%v %v(%v);", returnType(fn), ManagedName(fn.Name), managedParams(fn))
	}
	cb.Close("")
	cb.Linef("")
}

func interfaceList(c *model.Class, first []string) string {
	names := first
	for _, i := range c.Interfaces {
		if i.BoundFor(model.TargetManaged) {
			names = append(names, CSharpType(model.ClassRef{Class: i}, c.Package()))
		}
	}
	if len(names) == 0 {
		return ""
	}
	return " : " + strings.Join(names, ", ")
}

func returnType(fn *model.Function) string {
	if fn.Return == nil {
		return "void"
	}
	return CSharpType(fn.Return.Type, fn.Class.Package())
}

// managedParams renders the managed parameter list of fn. Defaults are
// kept only for the longest tail of parameters whose defaults all have
// a managed spelling.
func managedParams(fn *model.Function) string {
	pkg := fn.Class.Package()
	defaults := make([]string, len(fn.Params))
	for i := len(fn.Params) - 1; i >= 0; i-- {
		d, ok := managedDefault(fn.Params[i], pkg)
		if !ok {
			break
		}
		defaults[i] = d
	}
	var res []string
	for i, p := range fn.Params {
		s := CSharpType(p.Type, pkg) + " " + paramName(p, i)
		if model.IsNumberArrayRef(p.Type) {
			s = "ref " + s
		}
		if defaults[i] != "" {
			s += " = " + defaults[i]
		}
		res = append(res, s)
	}
	return strings.Join(res, ", ")
}

// managedDefault translates the native default of p. It reports false
// for a parameter without a default or with one managed code cannot
// express.
func managedDefault(p *model.FunctionType, from *model.Package) (string, bool) {
	d := strings.TrimSpace(p.Default)
	if d == "" {
		return "", false
	}
	switch t := p.Type.(type) {
	case model.Primitive:
		switch {
		case t.Kind == model.Bool:
			return d, d == "true" || d == "false"
		case t.Kind == model.Float:
			d = strings.TrimSuffix(strings.TrimSuffix(d, "f"), "F")
			return d + "f", isNumber(d)
		case t.Kind == model.Double:
			d = strings.TrimSuffix(strings.TrimSuffix(d, "f"), "F")
			return d, isNumber(d)
		default:
			d = trimIntSuffix(d)
			return d, isNumber(d)
		}
	case model.StringVal:
		switch {
		case d == "String::EMPTY" || d == "String()":
			return `""`, true
		case strings.HasPrefix(d, `"`):
			return d, true
		}
	case model.ClassRef:
		if p.Pointer && (d == "nullptr" || d == "0" || d == "NULL") && !t.Class.NumberArray {
			return "null", true
		}
	case model.EnumRef:
		name := d[strings.LastIndex(d, ":")+1:]
		for _, v := range t.Enum.Values {
			if v.Name == name {
				return CSharpType(t, from) + "." + name, true
			}
		}
	case model.OpaqueHandle:
		if d == "nullptr" || d == "0" || d == "NULL" {
			return "default(IntPtr)", true
		}
	}
	return "", false
}

func trimIntSuffix(lit string) string {
	return strings.TrimRight(lit, "uUlL")
}

func isNumber(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return len(s) > 2 && strings.Trim(s[2:], "0123456789abcdefABCDEF") == ""
	}
	dot := false
	for _, r := range s {
		switch {
		case r == '.' && !dot:
			dot = true
		case r < '0' || r > '9':
			return false
		}
	}
	return true
}

// baseName is the managed base class of c.
func baseName(c *model.Class) string {
	if c.Base == nil || !c.Base.BoundFor(model.TargetManaged) {
		return nativeObject
	}
	return CSharpType(model.ClassRef{Class: c.Base}, c.Package())
}

func (g *Generator) writeClass(cb *binderio.CodeBuilder, c *model.Class) {
	pkg := c.Package()
	cb.Comment(c.Doc, "/// ")
	cb.Open("public partial class %v%v", c.Name, interfaceList(c, []string{baseName(c)}))

	funcs := managedFunctions(c)
	hasDefaultCtor := false
	for _, f := range funcs {
		if f.fn.Constructor && len(f.fn.Params) == 0 {
			hasDefaultCtor = true
		}
	}
	if !hasDefaultCtor {
		cb.Linef("protected %v() { }", c.Name)
		cb.Linef("")
	}
	for _, fn := range c.Constructors() {
		if fn.Synthesized && fn.BoundFor(model.TargetManaged) {
			cb.Open("public %v(IntPtr %v)", c.Name, binder.NativeInstanceParam)
			cb.Linef("this.nativeInstance = %v;", binder.NativeInstanceParam)
			cb.Close("")
			cb.Linef("")
		}
	}

	for _, f := range funcs {
		if f.fn.Constructor {
			writeMethod(cb, c, f)
		}
	}

	if g.hasClassID(c) {
		cb.Linef("public static IntPtr ClassID => %v();", classIDSymbol(c))
		cb.Linef("")
	}

	for _, p := range c.Properties {
		getter, setter, ok := p.BoundFor(model.TargetManaged)
		if !ok {
			continue
		}
		static := ""
		if p.Static {
			static = "static "
		}
		cb.Open("public %v%v %v", static, CSharpType(p.Type, pkg), ManagedName(p.Name))
		if getter != nil {
			cb.Linef("get { return %v(); }", ManagedName(getter.Name))
		}
		if setter != nil {
			arg := "value"
			if model.IsNumberArrayRef(p.Type) {
				arg = "ref value"
			}
			cb.Linef("set { %v(%v); }", ManagedName(setter.Name), arg)
		}
		cb.Close("")
		cb.Linef("")
	}

	for _, f := range funcs {
		if !f.fn.Constructor {
			writeMethod(cb, c, f)
		}
	}
	for _, f := range funcs {
		writeExtern(cb, c, f)
	}
	if g.hasClassID(c) {
		cb.Linef("[DllImport(NativeCore.LIBNAME, CallingConvention = CallingConvention.Cdecl)]")
		cb.Linef("private static extern IntPtr %v();", classIDSymbol(c))
		cb.Linef("")
	}
	cb.Close("")
	cb.Linef("")
}

// callArgs returns the P/Invoke call arguments of f.
func callArgs(c *model.Class, f interopFunc) []string {
	var args []string
	if !f.fn.Static && !f.fn.Constructor {
		args = append(args, "nativeInstance")
	}
	for i, p := range f.fn.Params {
		m := marshalParam(p, c.Package())
		args = append(args, fmt.Sprintf(m.toNative, paramName(p, i)))
	}
	return args
}

func writeMethod(cb *binderio.CodeBuilder, c *model.Class, f interopFunc) {
	fn := f.fn
	pkg := c.Package()
	cb.Comment(fn.Doc, "/// ")
	args := callArgs(c, f)

	if fn.Constructor {
		cb.Open("public %v(%v)", c.Name, managedParams(fn))
		cb.Linef("nativeInstance = %v(%v);", f.symbol, strings.Join(args, ", "))
		cb.Close("")
		cb.Linef("")
		return
	}

	static := ""
	if fn.Static {
		static = "static "
	}
	cb.Open("public %v%v %v(%v)", static, returnType(fn), ManagedName(fn.Name), managedParams(fn))
	switch {
	case fn.Return == nil:
		cb.Linef("%v(%v);", f.symbol, strings.Join(args, ", "))
	default:
		m := marshalReturn(fn.Return, pkg)
		cs := returnType(fn)
		switch {
		case m.out && model.IsNumberArrayRef(fn.Return.Type):
			cb.Linef("%v returnValue;", cs)
			cb.Linef("%v(%v);", f.symbol, strings.Join(append(args, "out returnValue"), ", "))
			cb.Linef("return returnValue;")
		case m.out:
			cb.Linef("var returnValue = new %v();", cs)
			cb.Linef("%v(%v);", f.symbol, strings.Join(append(args, "returnValue.Native"), ", "))
			cb.Linef("return returnValue;")
		default:
			call := fmt.Sprintf("%v(%v)", f.symbol, strings.Join(args, ", "))
			cb.Linef("return %v;", fmt.Sprintf(m.fromNative, call))
		}
	}
	cb.Close("")
	cb.Linef("")
}

func writeExtern(cb *binderio.CodeBuilder, c *model.Class, f interopFunc) {
	fn := f.fn
	pkg := c.Package()
	var params []string
	if !fn.Static && !fn.Constructor {
		params = append(params, "IntPtr self")
	}
	for i, p := range fn.Params {
		params = append(params, marshalParam(p, pkg).pinvoke+" "+paramName(p, i))
	}
	ret := "void"
	switch {
	case fn.Constructor:
		ret = "IntPtr"
	case fn.Return != nil:
		m := marshalReturn(fn.Return, pkg)
		switch {
		case m.out && model.IsNumberArrayRef(fn.Return.Type):
			params = append(params, "out "+m.pinvoke+" returnValue")
		case m.out:
			params = append(params, "IntPtr returnValue")
		default:
			ret = m.pinvoke
		}
	}
	if strings.HasPrefix(ret, "[") {
		// Attributed return types are spelled as a return attribute.
		attr, typ, _ := strings.Cut(ret, "] ")
		cb.Linef("[DllImport(NativeCore.LIBNAME, CallingConvention = CallingConvention.Cdecl)]")
		cb.Linef("[return: %v]", strings.TrimPrefix(attr, "["))
		cb.Linef("private static extern %v %v(%v);", typ, f.symbol, strings.Join(params, ", "))
		cb.Linef("")
		return
	}
	cb.Linef("[DllImport(NativeCore.LIBNAME, CallingConvention = CallingConvention.Cdecl)]")
	cb.Linef("private static extern %v %v(%v);", ret, f.symbol, strings.Join(params, ", "))
	cb.Linef("")
}
