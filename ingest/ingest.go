// Package ingest populates the classes, enums and constants of a module
// from symbol trees.
//
// Ingestion runs in phases, each of which the loader applies to every
// module of a package before the next one starts:
//
//  1. [Ingester.Preprocess] registers the names a module manifest declares.
//  2. [Ingester.Visit] binds declarations from the module's headers.
//  3. [Ingester.PreprocessClasses] resolves base classes.
//  4. [Ingester.ProcessClasses] converts member functions.
//
// Declarations that cannot be bound are recorded as [*Skip] diagnostics
// on the package; they never fail ingestion.
package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nativebind/bindgen/converter"
	"github.com/nativebind/bindgen/logger"
	"github.com/nativebind/bindgen/manifest"
	"github.com/nativebind/bindgen/model"
	"github.com/nativebind/bindgen/symtree"
)

var (
	ErrVariadic  = errors.New("variadic function")
	ErrOperator  = errors.New("operator overload")
	ErrExcluded  = errors.New("excluded by module manifest")
	ErrTruncated = errors.New("truncated at defaulted parameter")
)

// Skip is a declaration, or a part of one, left out of the bindings.
type Skip struct {
	Location model.Location
	// Symbol is the skipped declaration, e.g. "Node::SetName".
	Symbol string
	Err    error
}

func (s *Skip) Error() string {
	return fmt.Sprintf("%v: %v: %v", s.Location, s.Symbol, s.Err)
}

func (s *Skip) Unwrap() error {
	return s.Err
}

type Ingester struct {
	Package   *model.Package
	Registry  *model.Registry
	Converter *converter.Converter
	Log       *logger.Logger
}

func New(pkg *model.Package, reg *model.Registry, conv *converter.Converter, log *logger.Logger) *Ingester {
	return &Ingester{Package: pkg, Registry: reg, Converter: conv, Log: log}
}

func (in *Ingester) skip(loc model.Location, symbol string, err error) {
	s := &Skip{Location: loc, Symbol: symbol, Err: err}
	in.Package.AddSkip(s)
	in.Log.Infof("%v", s)
}

// Preprocess creates the classes, interfaces and enums declared by the
// module manifest. They become name-visible through the package
// immediately.
func (in *Ingester) Preprocess(mod *model.Module, man *manifest.Module) {
	mod.Events = append(mod.Events, man.Events...)
	declare := func(name string) *model.Class {
		if c := mod.Class(name); c != nil {
			return c
		}
		if c := in.Package.Class(name); c != nil {
			in.Log.Warnf("module %v: class %v already declared by module %v", mod.Name, name, c.Module.Name)
			return nil
		}
		c := model.NewClass(name)
		if renamed, ok := man.Renames[name]; ok {
			c.Name = renamed
		}
		if ex := man.Excludes[name]; len(ex) > 0 {
			c.Excludes = map[string]bool{}
			for _, fn := range ex {
				c.Excludes[fn] = true
			}
		}
		mod.AddClass(c)
		return c
	}
	for _, name := range man.Classes {
		declare(name)
	}
	for _, name := range man.Interfaces {
		if c := declare(name); c != nil {
			c.Interface = true
		}
	}
	for _, name := range man.NumberArrays {
		if c := declare(name); c != nil {
			c.NumberArray = true
		}
	}
	for _, name := range man.Enums {
		if mod.Enum(name) != nil {
			continue
		}
		mod.AddEnum(&model.Enum{Name: name})
	}
}

// Visit binds the declarations of headers to the module's declared
// classes and enums, and collects module constants. Classes the module
// did not declare are ignored.
func (in *Ingester) Visit(mod *model.Module, headers []*symtree.Header) {
	for _, h := range headers {
		symtree.Walk(h.Decls, func(d *symtree.Decl) {
			switch d.Kind {
			case symtree.DeclClass:
				in.visitClass(mod, h, d)
			case symtree.DeclEnum:
				in.visitEnum(mod, h, d)
			case symtree.DeclVariable:
				in.visitVariable(mod, h, d)
			}
		})
	}
}

func (in *Ingester) visitClass(mod *model.Module, h *symtree.Header, d *symtree.Decl) {
	c := mod.Class(in.Converter.BareName(d.Name))
	if c == nil || d.Forward {
		return
	}
	// An empty declaration bound earlier gives way to a definition.
	if c.Decl != nil && (c.Decl.IsDefinition() || !d.IsDefinition()) {
		return
	}
	c.Decl = d
	c.Source = h
	c.Header = h.File
	c.Generic = d.Template
	c.Doc = h.DocComment(d.Line)
}

func (in *Ingester) visitEnum(mod *model.Module, h *symtree.Header, d *symtree.Decl) {
	e := mod.Enum(in.Converter.BareName(d.Name))
	if e == nil || e.Found {
		return
	}
	e.Found = true
	e.Doc = h.DocComment(d.Line)
	next := int64(0)
	for _, en := range d.Enumerators {
		if en.Value != nil {
			next = *en.Value
		}
		e.Values = append(e.Values, model.EnumValue{Name: en.Name, Value: next})
		next++
	}
}

func (in *Ingester) visitVariable(mod *model.Module, h *symtree.Header, d *symtree.Decl) {
	t := d.Type
	if t == nil || !t.Const {
		return
	}
	switch t.Kind {
	case symtree.TypeInteger, symtree.TypeFloat:
		prim, ok := in.Converter.ConvertType(t).(model.Primitive)
		if !ok {
			return
		}
		mod.Constants = append(mod.Constants, &model.Constant{
			Name:   d.Name,
			Type:   prim,
			Value:  d.Init,
			Module: mod,
		})
	case symtree.TypeNamed:
		if t.Name == "unsigned" && len(t.Args) == 0 {
			mod.Constants = append(mod.Constants, &model.Constant{
				Name:   d.Name,
				Type:   model.Primitive{Kind: model.Int, Unsigned: true},
				Value:  d.Init,
				Module: mod,
			})
			return
		}
		if in.Converter.BareName(t.Name) != "String" || !isQuoted(d.Init) {
			return
		}
		mod.Constants = append(mod.Constants, &model.Constant{
			Name:   d.Name,
			Type:   model.Primitive{Kind: model.Char},
			Value:  d.Init,
			Module: mod,
		})
	}
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// PreprocessClasses resolves base classes. Every class of the package
// and its dependencies is name-visible at this point.
func (in *Ingester) PreprocessClasses(mod *model.Module) {
	for _, c := range mod.Classes {
		if c.Decl == nil {
			in.Log.Warnf("module %v: class %v declared but not found in any header", mod.Name, c.NativeName)
			continue
		}
		for i, base := range c.Decl.Bases {
			name := in.Converter.BareName(base)
			if b := in.Registry.FindConcreteClass(name); b != nil && b != c {
				if c.Base == nil {
					c.Base = b
				}
				continue
			}
			if iface := in.Registry.FindInterface(name); iface != nil && iface != c {
				c.Interfaces = append(c.Interfaces, iface)
				continue
			}
			if i == 0 {
				in.Log.Warnf("%v: class %v: unknown base class %v",
					symtree.Location(c.Header, c.Decl.Line, c.Decl.Column), c.NativeName, base)
			}
		}
	}
	for _, e := range mod.Enums {
		if !e.Found {
			in.Log.Warnf("module %v: enum %v declared but not found in any header", mod.Name, e.Name)
		}
	}
}

// ProcessClasses converts the public member functions of every bound
// class.
func (in *Ingester) ProcessClasses(mod *model.Module) {
	for _, c := range mod.Classes {
		if c.Decl == nil || c.Generic {
			continue
		}
		for _, d := range c.Decl.Members {
			if d.Kind != symtree.DeclFunction || !d.IsPublic() {
				continue
			}
			fn := in.visitFunction(c, c.Source, d)
			if fn == nil {
				continue
			}
			if fn.Abstract {
				c.Abstract = true
			}
			c.AddFunction(fn)
		}
	}
}

func (in *Ingester) visitFunction(c *model.Class, h *symtree.Header, d *symtree.Decl) *model.Function {
	loc := model.Location{File: h.File, Line: d.Line, Column: d.Column}
	symbol := c.NativeName + "::" + d.Name
	switch {
	case d.Variadic:
		in.skip(loc, symbol, ErrVariadic)
		return nil
	case d.IsOperator():
		in.skip(loc, symbol, ErrOperator)
		return nil
	case c.Excludes[d.Name]:
		in.skip(loc, symbol, ErrExcluded)
		return nil
	}

	fn := &model.Function{
		Name:       d.Name,
		NativeName: d.Name,
		Virtual:    d.Virtual,
		Static:     d.Static,
		Abstract:   d.Pure,
		Doc:        h.DocComment(d.Line),
		Location:   loc,
	}
	switch {
	case d.Name == c.NativeName:
		fn.Constructor = true
	case strings.HasPrefix(d.Name, "~"):
		fn.Destructor = true
	}

	if !fn.Constructor && !fn.Destructor && d.Return != nil && d.Return.Kind != symtree.TypeVoid {
		ret, err := in.Converter.ConvertFunctionType(d.Return, true)
		if err != nil {
			in.skip(loc, symbol, err)
			return nil
		}
		fn.Return = ret
	}

	for i, p := range d.Params {
		ft, err := in.Converter.ConvertFunctionType(p.Type, false)
		if err != nil {
			if !in.truncatable(d.Params[i:]) {
				in.skip(loc, symbol, err)
				return nil
			}
			in.skip(loc, symbol, fmt.Errorf("%w %v: %w", ErrTruncated, p.Name, err))
			break
		}
		ft.Name = p.Name
		ft.Default = p.Default
		if model.IsInterfaceRef(ft.Type) {
			fn.SkipScript = true
		}
		fn.Params = append(fn.Params, ft)
	}
	return fn
}

// truncatable reports whether the unconvertible parameter params[0]
// starts a tail of parameters that all have defaults and are all
// unconvertible.
func (in *Ingester) truncatable(params []symtree.Param) bool {
	for i, p := range params {
		if !p.HasDefault() {
			return false
		}
		if i == 0 {
			continue
		}
		if _, err := in.Converter.ConvertFunctionType(p.Type, false); err == nil {
			return false
		}
	}
	return true
}
