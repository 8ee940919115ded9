package model

import (
	"fmt"
	"strings"
)

// Type is the bound (converted) type of a value.
//
// The set of implementations is closed: [Primitive], [StringVal],
// [StringHashVal], [Vector], [ClassRef], [EnumRef] and [OpaqueHandle].
// Use [Visit] with a [Visitor] to switch over it; a new variant adds a
// method to Visitor, so every visitor stops compiling until it handles
// the variant.
//
// Types are comparable with ==.
type Type interface {
	isType()
	String() string
}

type PrimitiveKind int

const (
	Int PrimitiveKind = iota
	Bool
	Char
	Short
	Long
	Float
	Double
)

var primitiveKindNames = [...]string{
	Int:    "int",
	Bool:   "bool",
	Char:   "char",
	Short:  "short",
	Long:   "long",
	Float:  "float",
	Double: "double",
}

func (k PrimitiveKind) String() string {
	if k < 0 || int(k) >= len(primitiveKindNames) {
		return fmt.Sprintf("PrimitiveKind(%d)", int(k))
	}
	return primitiveKindNames[k]
}

// IsFloat reports whether k is a floating point kind.
func (k PrimitiveKind) IsFloat() bool { return k == Float || k == Double }

type Ownership int

const (
	OwnNone Ownership = iota
	OwnSharedPtr
	OwnWeakPtr
)

func (o Ownership) String() string {
	switch o {
	case OwnNone:
		return ""
	case OwnSharedPtr:
		return "SharedPtr"
	case OwnWeakPtr:
		return "WeakPtr"
	default:
		return fmt.Sprintf("Ownership(%d)", int(o))
	}
}

type Primitive struct {
	Kind     PrimitiveKind
	Unsigned bool
}

type StringVal struct{}

type StringHashVal struct{}

type Vector struct {
	Elem Type
	// POD marks the plain-old-data vector alias.
	POD  bool
	Wrap Ownership
}

type ClassRef struct {
	Class *Class
}

type EnumRef struct {
	Enum *Enum
}

type OpaqueHandle struct{}

func (Primitive) isType()     {}
func (StringVal) isType()     {}
func (StringHashVal) isType() {}
func (Vector) isType()        {}
func (ClassRef) isType()      {}
func (EnumRef) isType()       {}
func (OpaqueHandle) isType()  {}

func (t Primitive) String() string {
	if t.Unsigned {
		return "unsigned " + t.Kind.String()
	}
	return t.Kind.String()
}

func (StringVal) String() string     { return "String" }
func (StringHashVal) String() string { return "StringHash" }
func (OpaqueHandle) String() string  { return "VoidPtr" }

func (t Vector) String() string {
	var b strings.Builder
	if t.POD {
		b.WriteString("PODVector<")
	} else {
		b.WriteString("Vector<")
	}
	if t.Wrap != OwnNone {
		b.WriteString(t.Wrap.String())
		b.WriteString("<")
	}
	if t.Elem != nil {
		b.WriteString(t.Elem.String())
	}
	if t.Wrap != OwnNone {
		b.WriteString(">")
	}
	b.WriteString(">")
	return b.String()
}

func (t ClassRef) String() string {
	if t.Class == nil {
		return "<nil class>"
	}
	return t.Class.NativeName
}

func (t EnumRef) String() string {
	if t.Enum == nil {
		return "<nil enum>"
	}
	return t.Enum.Name
}

// Visitor handles each Type variant.
type Visitor[R any] interface {
	Primitive(Primitive) R
	StringVal(StringVal) R
	StringHashVal(StringHashVal) R
	Vector(Vector) R
	ClassRef(ClassRef) R
	EnumRef(EnumRef) R
	OpaqueHandle(OpaqueHandle) R
}

// Visit dispatches t to the matching method of v.
func Visit[R any](t Type, v Visitor[R]) R {
	switch t := t.(type) {
	case Primitive:
		return v.Primitive(t)
	case StringVal:
		return v.StringVal(t)
	case StringHashVal:
		return v.StringHashVal(t)
	case Vector:
		return v.Vector(t)
	case ClassRef:
		return v.ClassRef(t)
	case EnumRef:
		return v.EnumRef(t)
	case OpaqueHandle:
		return v.OpaqueHandle(t)
	default:
		panic(fmt.Sprintf("model.Visit: unknown type %T", t))
	}
}

// IsInterfaceRef reports whether t refers to an interface class.
func IsInterfaceRef(t Type) bool {
	ref, ok := t.(ClassRef)
	return ok && ref.Class != nil && ref.Class.Interface
}

// IsNumberArrayRef reports whether t refers to a number-array class.
func IsNumberArrayRef(t Type) bool {
	ref, ok := t.(ClassRef)
	return ok && ref.Class != nil && ref.Class.NumberArray
}
