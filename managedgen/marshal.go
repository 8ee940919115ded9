package managedgen

import (
	"fmt"

	"github.com/nativebind/bindgen/model"
)

// CSharpType is the managed type of a bound type as seen from code in
// package from. Classes and enums of other packages are qualified.
func CSharpType(t model.Type, from *model.Package) string {
	return model.Visit[string](t, csType{from: from})
}

type csType struct {
	from *model.Package
}

func (v csType) qualify(pkg *model.Package, name string) string {
	if pkg == nil || pkg == v.from {
		return name
	}
	return pkg.Name + "." + name
}

func (csType) Primitive(t model.Primitive) string {
	switch t.Kind {
	case model.Bool:
		return "bool"
	case model.Char:
		if t.Unsigned {
			return "byte"
		}
		return "sbyte"
	case model.Float:
		return "float"
	case model.Double:
		return "double"
	}
	name := map[model.PrimitiveKind]string{model.Short: "short", model.Int: "int", model.Long: "long"}[t.Kind]
	if t.Unsigned {
		return "u" + name
	}
	return name
}

func (csType) StringVal(model.StringVal) string         { return "string" }
func (csType) StringHashVal(model.StringHashVal) string { return "StringHash" }
func (csType) OpaqueHandle(model.OpaqueHandle) string   { return "IntPtr" }

func (v csType) ClassRef(t model.ClassRef) string {
	return v.qualify(t.Class.Package(), t.Class.Name)
}

func (v csType) EnumRef(t model.EnumRef) string {
	if t.Enum.Module == nil {
		return t.Enum.Name
	}
	return v.qualify(t.Enum.Module.Package, t.Enum.Name)
}

func (v csType) Vector(t model.Vector) string {
	if t.POD {
		return "PODVector<" + model.Visit[string](t.Elem, v) + ">"
	}
	return "Vector<" + model.Visit[string](t.Elem, v) + ">"
}

// marshal describes how a value crosses the managed/native boundary.
//
// Format strings take the managed value (toNative) or the interop call
// (fromNative, native) as their only argument.
type marshal struct {
	// Managed-side P/Invoke type.
	pinvoke string
	// Native-side interop type.
	native string
	// toNative converts a managed argument for the P/Invoke call.
	toNative string
	// fromNative converts the P/Invoke result to the managed value.
	fromNative string
	// nativeArg converts a native interop argument for the native call.
	nativeArg string
	// nativeReturn returns the native call's result from the interop
	// function. Empty for out-parameter returns.
	nativeReturn []string
	// out is set for values returned through a trailing returnValue
	// parameter.
	out bool
}

// marshaler computes the marshal of a function type.
type marshaler struct {
	ft    *model.FunctionType
	from  *model.Package
	isRet bool
}

func marshalParam(ft *model.FunctionType, from *model.Package) marshal {
	return model.Visit[marshal](ft.Type, marshaler{ft: ft, from: from})
}

func marshalReturn(ft *model.FunctionType, from *model.Package) marshal {
	return model.Visit[marshal](ft.Type, marshaler{ft: ft, from: from, isRet: true})
}

func (m marshaler) Primitive(t model.Primitive) marshal {
	cs := CSharpType(t, m.from)
	if t.Kind == model.Bool {
		cs = "[MarshalAs(UnmanagedType.I1)] bool"
	}
	return marshal{
		pinvoke:      cs,
		native:       t.String(),
		toNative:     "%v",
		fromNative:   "%v",
		nativeArg:    "%v",
		nativeReturn: []string{"return %v;"},
	}
}

func (m marshaler) StringVal(model.StringVal) marshal {
	res := marshal{
		pinvoke:    "string",
		native:     "const char*",
		toNative:   "%v",
		fromNative: "%v",
		nativeArg:  "String(%v)",
	}
	if m.isRet {
		res.pinvoke = "IntPtr"
		res.fromNative = "Marshal.PtrToStringAnsi(%v)"
		res.nativeReturn = []string{
			"static String returnValue;",
			"returnValue = %v;",
			"return returnValue.CString();",
		}
	}
	return res
}

func (m marshaler) StringHashVal(model.StringHashVal) marshal {
	return marshal{
		pinvoke:      "uint",
		native:       "unsigned",
		toNative:     "%v.Code",
		fromNative:   "new StringHash(%v)",
		nativeArg:    "StringHash(%v)",
		nativeReturn: []string{"return %v.Value();"},
	}
}

func (m marshaler) Vector(t model.Vector) marshal {
	native := t.String() + "*"
	arg := "*%v"
	if m.ft.Pointer {
		arg = "%v"
	}
	return marshal{
		pinvoke:      "IntPtr",
		native:       native,
		toNative:     "%v.Native",
		fromNative:   "%v",
		nativeArg:    arg,
		nativeReturn: []string{"*returnValue = %v;"},
		out:          true,
	}
}

func (m marshaler) ClassRef(t model.ClassRef) marshal {
	c := t.Class
	cs := CSharpType(t, m.from)
	if c.NumberArray {
		if m.isRet {
			return marshal{
				pinvoke:      cs,
				native:       c.NativeName + "*",
				fromNative:   "%v",
				nativeReturn: []string{"*returnValue = %v;"},
				out:          true,
			}
		}
		return marshal{
			pinvoke:   "ref " + cs,
			native:    c.NativeName + "*",
			toNative:  "ref %v",
			nativeArg: "*%v",
		}
	}
	res := marshal{
		pinvoke:    "IntPtr",
		native:     c.NativeName + "*",
		toNative:   "%v == null ? IntPtr.Zero : %[1]v.NativeInstance",
		fromNative: fmt.Sprintf("NativeCore.WrapNative<%v>(%%v)", cs),
		nativeArg:  "*%v",
	}
	switch {
	case m.ft.Pointer:
		res.nativeArg = "%v"
		res.nativeReturn = []string{"return %v;"}
	case m.ft.SharedReturn:
		res.nativeReturn = []string{
			fmt.Sprintf("SharedPtr<%v> returnValue = %%v;", c.NativeName),
			"return returnValue.Detach();",
		}
	case m.ft.Reference:
		res.nativeReturn = []string{"return &%v;"}
	default:
		res.nativeReturn = []string{fmt.Sprintf("return new %v(%%v);", c.NativeName)}
	}
	return res
}

func (m marshaler) EnumRef(t model.EnumRef) marshal {
	return marshal{
		pinvoke:      CSharpType(t, m.from),
		native:       t.Enum.Name,
		toNative:     "%v",
		fromNative:   "%v",
		nativeArg:    "%v",
		nativeReturn: []string{"return %v;"},
	}
}

func (m marshaler) OpaqueHandle(model.OpaqueHandle) marshal {
	return marshal{
		pinvoke:      "IntPtr",
		native:       "void*",
		toNative:     "%v",
		fromNative:   "%v",
		nativeArg:    "%v",
		nativeReturn: []string{"return %v;"},
	}
}
