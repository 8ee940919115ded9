package managedgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nativebind/bindgen/binder/binderio"
	"github.com/nativebind/bindgen/model"
)

const exportAPI = "ATOMIC_EXPORT_API"

// writeInterop writes the native interop pair of pkg. Interface classes
// have no entry points of their own; their functions are called
// through the implementing class.
func (g *Generator) writeInterop(h, cpp *binderio.CodeBuilder, pkg *model.Package) {
	h.Linef(generatedNotice, pkg.Name)
	h.Linef("")
	h.Linef("#pragma once")
	h.Linef("")
	cpp.Linef(generatedNotice, pkg.Name)
	cpp.Linef("")

	endifH := h.If(g.platformGuard(pkg, binderio.NativeGuard))
	endifCpp := cpp.If(g.platformGuard(pkg, binderio.NativeGuard))

	h.Linef("#include <Atomic/Script/ScriptSystem.h>")
	h.Linef("")
	cpp.Linef("#include %v", strconv.Quote(pkg.Name+"Interop.h"))
	for _, mod := range pkg.Modules {
		if !mod.BoundFor(model.TargetManaged) {
			continue
		}
		endif := cpp.If(g.moduleGuard(mod, binderio.NativeGuard))
		for _, hdr := range mod.Headers {
			cpp.Linef("#include %v", strconv.Quote(hdr))
		}
		endif()
	}
	cpp.Linef("")

	closeH := openNamespace(h, pkg.Namespace)
	closeCpp := openNamespace(cpp, pkg.Namespace)
	h.Open(`extern "C"`)
	cpp.Open(`extern "C"`)

	for _, mod := range pkg.Modules {
		if !mod.BoundFor(model.TargetManaged) {
			continue
		}
		guard := g.moduleGuard(mod, binderio.NativeGuard)
		endifH := h.If(guard)
		endifCpp := cpp.If(guard)
		for _, c := range managedClasses(mod) {
			if c.Interface {
				continue
			}
			g.writeInteropClass(h, cpp, c)
		}
		endifH()
		endifCpp()
	}

	h.Close("")
	cpp.Close("")
	closeH()
	closeCpp()
	endifH()
	endifCpp()
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

func (g *Generator) writeInteropClass(h, cpp *binderio.CodeBuilder, c *model.Class) {
	h.Linef("// %v", c.NativeName)

	if g.hasClassID(c) {
		decl := fmt.Sprintf("%v ClassID %v()", exportAPI, classIDSymbol(c))
		h.Linef("%v;", decl)
		cpp.Open("%v", decl)
		cpp.Linef("return %v::GetClassIDStatic();", c.NativeName)
		cpp.Close("")
		cpp.Linef("")
	}

	for _, f := range managedFunctions(c) {
		decl, body := interopFunction(c, f)
		h.Linef("%v;", decl)
		cpp.Linef("// %v", f.fn.Signature())
		cpp.Open("%v", decl)
		for _, l := range body {
			cpp.Linef("%v", l)
		}
		cpp.Close("")
		cpp.Linef("")
	}
	h.Linef("")
}

// interopFunction returns the declaration and body of the native entry
// point of f.
func interopFunction(c *model.Class, f interopFunc) (decl string, body []string) {
	fn := f.fn
	pkg := c.Package()

	var params, args []string
	if !fn.Static && !fn.Constructor {
		params = append(params, c.NativeName+"* self")
	}
	for i, p := range fn.Params {
		m := marshalParam(p, pkg)
		name := nativeParamName(p, i)
		params = append(params, m.native+" "+name)
		args = append(args, fmt.Sprintf(m.nativeArg, name))
	}

	ret := "void"
	var retM marshal
	if fn.Constructor {
		ret = c.NativeName + "*"
	} else if fn.Return != nil {
		retM = marshalReturn(fn.Return, pkg)
		if retM.out {
			params = append(params, retM.native+" returnValue")
		} else {
			ret = retM.native
		}
	}
	decl = fmt.Sprintf("%v %v %v(%v)", exportAPI, ret, f.symbol, strings.Join(params, ", "))

	argList := strings.Join(args, ", ")
	var call string
	switch {
	case fn.Constructor:
		return decl, []string{fmt.Sprintf("return new %v(%v);", c.NativeName, argList)}
	case fn.Static:
		call = fmt.Sprintf("%v::%v(%v)", c.NativeName, fn.NativeName, argList)
	default:
		call = fmt.Sprintf("self->%v(%v)", fn.NativeName, argList)
	}
	if fn.Return == nil {
		return decl, []string{call + ";"}
	}
	for _, l := range retM.nativeReturn {
		if strings.Contains(l, "%") {
			l = fmt.Sprintf(l, call)
		}
		body = append(body, l)
	}
	return decl, body
}

func nativeParamName(p *model.FunctionType, i int) string {
	if p.Name == "" {
		return fmt.Sprintf("arg%v", i)
	}
	return p.Name
}
