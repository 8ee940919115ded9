// Package binder makes the binding decisions on an ingested package:
// which functions pair into properties, which functions an interface
// re-declares, which classes need a synthesized constructor and how
// bound symbols are named.
package binder

import (
	"unicode"
	"unicode/utf8"

	"github.com/nativebind/bindgen/config"
	"github.com/nativebind/bindgen/digraphutils"
	"github.com/nativebind/bindgen/logger"
	"github.com/nativebind/bindgen/model"
)

// NativeInstanceParam is the parameter name of synthesized
// constructors.
const NativeInstanceParam = "nativeInstance"

type Binder struct {
	Config *config.Config
	Log    *logger.Logger
}

func New(c *config.Config, log *logger.Logger) *Binder {
	return &Binder{Config: c, Log: log}
}

// PostProcessClasses runs the per-class binding decisions on every
// class of mod.
func (b *Binder) PostProcessClasses(mod *model.Module) {
	for _, c := range mod.Classes {
		if !c.Bindable() {
			continue
		}
		b.PairProperties(c)
		MarkInheritedInterface(c)
		b.SynthesizeConstructor(c)
		b.MarkOverloads(c)
	}
}

// accessor classifies fn as a property getter or setter. name is the
// property name.
func accessor(fn *model.Function) (name string, getter, ok bool) {
	if fn.Constructor || fn.Destructor || fn.Synthesized {
		return "", false, false
	}
	cut := func(prefix string) (string, bool) {
		n := fn.NativeName
		if len(n) <= len(prefix) || n[:len(prefix)] != prefix {
			return "", false
		}
		rest := n[len(prefix):]
		r, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return "", false
		}
		return rest, true
	}
	if len(fn.Params) == 0 && fn.Return != nil {
		if rest, ok := cut("Get"); ok {
			return rest, true, true
		}
		if rest, ok := cut("Is"); ok {
			return rest, true, true
		}
	}
	if len(fn.Params) == 1 && fn.Return == nil {
		if rest, ok := cut("Set"); ok {
			return rest, false, true
		}
	}
	return "", false, false
}

// PairProperties groups getters and setters of c by property name. A
// getter and setter pair only if they agree on value type and
// static-ness; otherwise both stay plain methods. The accessor
// functions are kept as methods either way.
func (b *Binder) PairProperties(c *model.Class) {
	type pair struct {
		getter, setter *model.Function
	}
	var names []string
	pairs := map[string]*pair{}
	for _, fn := range c.Functions {
		name, isGetter, ok := accessor(fn)
		if !ok {
			continue
		}
		p := pairs[name]
		if p == nil {
			p = &pair{}
			pairs[name] = p
			names = append(names, name)
		}
		if isGetter && p.getter == nil {
			p.getter = fn
		} else if !isGetter && p.setter == nil {
			p.setter = fn
		}
	}

	for _, name := range names {
		if c.Property(name) != nil {
			continue
		}
		p := pairs[name]
		prop := &model.Property{Name: name, Getter: p.getter, Setter: p.setter}
		switch {
		case p.getter != nil && p.setter != nil:
			getType := p.getter.Return.Type
			setType := p.setter.Params[0].Type
			if getType != setType {
				b.Log.Warnf("%v: property %v.%v: getter type %v does not match setter type %v",
					p.setter.Location, c.NativeName, name, getType, setType)
				continue
			}
			if p.getter.Static != p.setter.Static {
				b.Log.Warnf("%v: property %v.%v: getter and setter differ in static-ness",
					p.setter.Location, c.NativeName, name)
				continue
			}
			prop.Type = getType
			prop.Static = p.getter.Static
		case p.getter != nil:
			prop.Type = p.getter.Return.Type
			prop.Static = p.getter.Static
		default:
			prop.Type = p.setter.Params[0].Type
			prop.Static = p.setter.Static
		}
		c.Properties = append(c.Properties, prop)
	}
}

// MarkInheritedInterface tags every function of c whose name is
// declared by an interface c implements, directly or through other
// interfaces. For an interface class, only the interfaces it extends
// count, not the class itself.
func MarkInheritedInterface(c *model.Class) {
	if len(c.Interfaces) == 0 {
		return
	}
	reachable := digraphutils.Reachable(c.Interfaces, func(i *model.Class) []*model.Class {
		return i.Interfaces
	})
	declared := map[string]bool{}
	for _, iface := range reachable {
		if iface == c {
			continue
		}
		for _, fn := range iface.Functions {
			if !fn.Constructor && !fn.Destructor {
				declared[fn.NativeName] = true
			}
		}
	}
	for _, fn := range c.Functions {
		if declared[fn.NativeName] {
			fn.InheritedInterface = true
		}
	}
}

// NeedsSynthesizedConstructor reports whether c is a concrete class
// without any accepted constructor.
func (b *Binder) NeedsSynthesizedConstructor(c *model.Class) bool {
	if c.Abstract || c.Interface || c.Generic {
		return false
	}
	if c.NativeName == b.Config.Types.RefCountedRoot {
		return false
	}
	return len(c.Constructors()) == 0
}

// SynthesizeConstructor gives c a constructor taking an existing
// native instance handle if it has no constructor of its own.
func (b *Binder) SynthesizeConstructor(c *model.Class) {
	if !b.NeedsSynthesizedConstructor(c) {
		return
	}
	fn := &model.Function{
		Name:        c.NativeName,
		NativeName:  c.NativeName,
		Constructor: true,
		Synthesized: true,
		Params: []*model.FunctionType{
			{Type: model.OpaqueHandle{}, Name: NativeInstanceParam},
		},
	}
	if c.Decl != nil {
		fn.Location = model.Location{File: c.Header, Line: c.Decl.Line, Column: c.Decl.Column}
	}
	// Script code cannot hold native handles.
	fn.SkipScript = true
	c.AddFunction(fn)
}

// MarkOverloads keeps only the first overload of each function name
// (and the first constructor) for the script target.
func (b *Binder) MarkOverloads(c *model.Class) {
	seen := map[string]bool{}
	for _, fn := range c.Functions {
		if fn.Destructor || fn.SkipScript {
			continue
		}
		key := fn.NativeName
		if seen[key] {
			fn.SkipScript = true
			b.Log.Infof("%v: %v: overload not bound for script", fn.Location, fn.Signature())
			continue
		}
		seen[key] = true
	}
}
