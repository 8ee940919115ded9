// Package converter maps native types onto bound [model.Type] values.
package converter

import (
	"strings"

	"github.com/nativebind/bindgen/config"
	"github.com/nativebind/bindgen/model"
	"github.com/nativebind/bindgen/symtree"
)

// MaxTemplateDepth bounds the number of nested template levels a
// vector type may have.
const MaxTemplateDepth = 8

const (
	nameVector     = "Vector"
	nameSharedPtr  = "SharedPtr"
	nameWeakPtr    = "WeakPtr"
	nameString     = "String"
	nameStringHash = "StringHash"
	nameUnsigned   = "unsigned"
)

// Converter converts native types using the classes and enums of a
// registry. It is safe to reuse across calls; it holds no per-call state.
type Converter struct {
	Registry *model.Registry
	Types    config.Types
	// Namespaces are the qualifiers stripped from named types.
	Namespaces []string
}

// New creates a converter stripping the namespaces named by types plus
// namespaces.
func New(reg *model.Registry, types config.Types, namespaces ...string) *Converter {
	c := &Converter{Registry: reg, Types: types}
	for _, ns := range append(namespaces, types.StripNamespaces...) {
		if ns != "" {
			c.Namespaces = append(c.Namespaces, ns)
		}
	}
	return c
}

// BareName strips recognized namespace qualifiers from a type name.
func (c *Converter) BareName(name string) string {
	name = strings.TrimPrefix(name, "::")
	for stripped := true; stripped; {
		stripped = false
		for _, ns := range c.Namespaces {
			if rest, ok := strings.CutPrefix(name, ns+"::"); ok {
				name = rest
				stripped = true
			}
		}
	}
	return name
}

// UnwrapTemplateType follows pointer and reference wrappers, then
// returns the first template argument of the named type. It returns nil
// if there is none.
func UnwrapTemplateType(raw *symtree.Type) *symtree.Type {
	raw = stripIndirection(raw)
	if raw == nil || raw.Kind != symtree.TypeNamed || len(raw.Args) == 0 {
		return nil
	}
	return raw.Args[0]
}

func stripIndirection(raw *symtree.Type) *symtree.Type {
	for raw != nil && (raw.Kind == symtree.TypePointer || raw.Kind == symtree.TypeReference) {
		raw = raw.Elem
	}
	return raw
}

// ConvertType converts a native type to its bound type. Pointer and
// reference wrappers are ignored. It returns nil if the type is
// unsupported.
func (c *Converter) ConvertType(raw *symtree.Type) model.Type {
	t, err := c.convert(raw)
	if err != nil {
		return nil
	}
	return t
}

func (c *Converter) isVector(name string) bool {
	return name == nameVector || (c.Types.PODVector != "" && name == c.Types.PODVector)
}

// convert unwraps nested vectors iteratively, converting the innermost
// element last.
func (c *Converter) convert(raw *symtree.Type) (model.Type, error) {
	var layers []model.Vector
	cur := stripIndirection(raw)
	for {
		if cur == nil || cur.Kind != symtree.TypeNamed {
			break
		}
		name := c.BareName(cur.Name)
		if !c.isVector(name) {
			break
		}
		if len(layers) == MaxTemplateDepth {
			return nil, ErrTemplateDepth
		}
		elem := UnwrapTemplateType(cur)
		if elem == nil {
			return nil, ErrUnsupported
		}
		layer := model.Vector{POD: name != nameVector}
		if inner := stripIndirection(elem); inner != nil && inner.Kind == symtree.TypeNamed {
			switch c.BareName(inner.Name) {
			case nameSharedPtr:
				layer.Wrap = model.OwnSharedPtr
			case nameWeakPtr:
				layer.Wrap = model.OwnWeakPtr
			}
			if layer.Wrap != model.OwnNone {
				elem = UnwrapTemplateType(inner)
				if elem == nil {
					return nil, ErrUnsupported
				}
			}
		}
		layers = append(layers, layer)
		cur = stripIndirection(elem)
	}

	res, err := c.convertLeaf(cur)
	if err != nil {
		return nil, err
	}
	for i := len(layers) - 1; i >= 0; i-- {
		layers[i].Elem = res
		res = layers[i]
	}
	return res, nil
}

func (c *Converter) convertLeaf(raw *symtree.Type) (model.Type, error) {
	if raw == nil {
		return nil, ErrUnsupported
	}
	switch raw.Kind {
	case symtree.TypeInteger:
		var kind model.PrimitiveKind
		switch raw.IntKind {
		case symtree.IntBool:
			kind = model.Bool
		case symtree.IntChar:
			kind = model.Char
		case symtree.IntShort:
			kind = model.Short
		case symtree.IntLong:
			kind = model.Long
		default:
			kind = model.Int
		}
		return model.Primitive{Kind: kind, Unsigned: raw.Unsigned && kind != model.Bool}, nil
	case symtree.TypeFloat:
		if raw.Double {
			return model.Primitive{Kind: model.Double}, nil
		}
		return model.Primitive{Kind: model.Float}, nil
	case symtree.TypeNamed:
		return c.convertNamed(raw)
	default:
		return nil, ErrUnsupported
	}
}

func (c *Converter) convertNamed(raw *symtree.Type) (model.Type, error) {
	name := c.BareName(raw.Name)
	switch {
	case c.Types.VariantVector != "" && name == c.Types.VariantVector:
		variant := c.Registry.FindClass(c.Types.VariantClass)
		if variant == nil {
			return nil, ErrUnsupported
		}
		return model.Vector{Elem: model.ClassRef{Class: variant}}, nil
	case name == nameString:
		return model.StringVal{}, nil
	case name == nameStringHash:
		return model.StringHashVal{}, nil
	case c.Types.OpaqueHandle != "" && name == c.Types.OpaqueHandle:
		return model.OpaqueHandle{}, nil
	}
	if len(raw.Args) > 0 {
		return nil, ErrUnsupported
	}
	if cl := c.Registry.FindClass(name); cl != nil {
		return model.ClassRef{Class: cl}, nil
	}
	if e := c.Registry.FindEnum(name); e != nil {
		return model.EnumRef{Enum: e}, nil
	}
	return nil, ErrUnsupported
}

// ConvertFunctionType converts the type of a parameter, or of a return
// value if isReturn is set, applying the rules for how values may be
// passed. A nil raw type stands for void and is unsupported here.
func (c *Converter) ConvertFunctionType(raw *symtree.Type, isReturn bool) (*model.FunctionType, error) {
	ft, err := c.convertFunctionType(raw, isReturn)
	if err != nil {
		return nil, &TypeError{Type: raw.String(), IsReturn: isReturn, Err: err}
	}
	return ft, nil
}

func (c *Converter) convertFunctionType(raw *symtree.Type, isReturn bool) (*model.FunctionType, error) {
	if raw == nil || raw.Kind == symtree.TypeVoid {
		return nil, ErrUnsupported
	}
	ft := &model.FunctionType{}
	inner := raw
	switch raw.Kind {
	case symtree.TypePointer:
		ft.Pointer = true
		inner = raw.Elem
	case symtree.TypeReference:
		ft.Reference = true
		inner = raw.Elem
	}
	if inner == nil || inner.Kind == symtree.TypePointer || inner.Kind == symtree.TypeReference {
		return nil, ErrUnsupported
	}
	ft.Const = inner.Const

	switch {
	case inner.Kind == symtree.TypeNamed && inner.Name == nameUnsigned && len(inner.Args) == 0:
		ft.Type = model.Primitive{Kind: model.Int, Unsigned: true}
	case isReturn && !ft.Pointer && !ft.Reference &&
		inner.Kind == symtree.TypeNamed && c.BareName(inner.Name) == nameSharedPtr:
		elem := UnwrapTemplateType(inner)
		if elem == nil || elem.Kind != symtree.TypeNamed {
			return nil, ErrUnsupported
		}
		t, err := c.convert(elem)
		if err != nil {
			return nil, err
		}
		if _, ok := t.(model.ClassRef); !ok {
			return nil, ErrUnsupported
		}
		ft.Type = t
		ft.SharedReturn = true
		return ft, nil
	default:
		t, err := c.convert(inner)
		if err != nil {
			return nil, err
		}
		ft.Type = t
	}

	indirect := ft.Pointer || ft.Reference
	switch t := ft.Type.(type) {
	case model.Primitive, model.EnumRef:
		if indirect {
			return nil, ErrValueReference
		}
	case model.StringVal, model.StringHashVal:
		if ft.Pointer || (ft.Reference && !ft.Const) {
			return nil, ErrValueReference
		}
		if !isReturn && !ft.Reference {
			return nil, ErrStringByValue
		}
	case model.ClassRef:
		if ft.Pointer && t.Class.NumberArray {
			return nil, ErrNumberArrayPointer
		}
	}
	return ft, nil
}
