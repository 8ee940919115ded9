package scriptgen

import (
	"fmt"
	"strconv"

	"github.com/nativebind/bindgen/model"
)

// argument describes how a script argument becomes a native local.
type argument struct {
	ctype string
	// expr reads the value; if empty, fill (formatted with the local's
	// name) fills a default-constructed local instead.
	expr string
	fill string
	// pointer is set if the local holds a pointer to the value.
	pointer bool
}

// reader reads the script value at stack index idx.
type reader struct {
	idx int
}

func (r reader) Primitive(t model.Primitive) argument {
	if t.Kind == model.Bool {
		return argument{ctype: "bool", expr: fmt.Sprintf("duk_to_boolean(ctx, %v) ? true : false", r.idx)}
	}
	return argument{ctype: t.String(), expr: fmt.Sprintf("(%v) duk_to_number(ctx, %v)", t, r.idx)}
}

func (r reader) StringVal(model.StringVal) argument {
	return argument{ctype: "String", expr: fmt.Sprintf("duk_to_string(ctx, %v)", r.idx)}
}

func (r reader) StringHashVal(model.StringHashVal) argument {
	return argument{ctype: "StringHash", expr: fmt.Sprintf("StringHash(duk_to_string(ctx, %v))", r.idx)}
}

func (r reader) Vector(t model.Vector) argument {
	return argument{ctype: t.String(), fill: "js_to_vector(ctx, " + strconv.Itoa(r.idx) + ", %v);"}
}

func (r reader) ClassRef(t model.ClassRef) argument {
	name := t.Class.NativeName
	if t.Class.NumberArray {
		return argument{ctype: name, fill: "js_to_number_array(ctx, " + strconv.Itoa(r.idx) + ", %v);"}
	}
	return argument{
		ctype:   name + "*",
		expr:    fmt.Sprintf("js_to_class_instance<%v>(ctx, %v, 0)", name, r.idx),
		pointer: true,
	}
}

func (r reader) EnumRef(t model.EnumRef) argument {
	return argument{ctype: t.Enum.Name, expr: fmt.Sprintf("(%v) ((int) duk_to_number(ctx, %v))", t.Enum.Name, r.idx)}
}

func (r reader) OpaqueHandle(model.OpaqueHandle) argument {
	return argument{ctype: "void*", expr: fmt.Sprintf("duk_to_pointer(ctx, %v)", r.idx)}
}

// pusher pushes the local returnValue of type ft.
type pusher struct {
	ft *model.FunctionType
}

func (p pusher) Primitive(t model.Primitive) string {
	if t.Kind == model.Bool {
		return "duk_push_boolean(ctx, returnValue ? 1 : 0);"
	}
	return "duk_push_number(ctx, (double) returnValue);"
}

func (p pusher) StringVal(model.StringVal) string {
	return "duk_push_string(ctx, returnValue.CString());"
}

func (p pusher) StringHashVal(model.StringHashVal) string {
	return "duk_push_string(ctx, returnValue.ToString().CString());"
}

func (p pusher) Vector(model.Vector) string {
	return "js_push_vector(ctx, returnValue);"
}

func (p pusher) ClassRef(t model.ClassRef) string {
	c := t.Class
	var ptr string
	switch {
	case c.NumberArray && !p.ft.Pointer:
		return "js_push_number_array(ctx, returnValue);"
	case p.ft.Pointer:
		ptr = "returnValue"
	case p.ft.SharedReturn:
		ptr = "returnValue.Get()"
	case p.ft.Reference:
		ptr = "&returnValue"
	default:
		ptr = fmt.Sprintf("new %v(returnValue)", c.NativeName)
	}
	return fmt.Sprintf("js_push_class_object_instance(ctx, %v, %v);", ptr, strconv.Quote(c.Name))
}

func (p pusher) EnumRef(model.EnumRef) string {
	return "duk_push_number(ctx, (double) returnValue);"
}

func (p pusher) OpaqueHandle(model.OpaqueHandle) string {
	return "duk_push_pointer(ctx, returnValue);"
}
