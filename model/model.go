// Package model contains the typed binding graph: packages, modules,
// classes, functions and their converted types.
//
// The graph is built by the loader and ingestion passes and is read-only
// input for the binding writers.
package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/nativebind/bindgen/symtree"
)

type Target int

const (
	TargetScript Target = iota
	TargetManaged
)

func (t Target) String() string {
	switch t {
	case TargetScript:
		return "script"
	case TargetManaged:
		return "managed"
	default:
		panic("invalid binding target")
	}
}

type Package struct {
	Name      string
	Namespace string
	Version   string
	// ManifestPath is the absolute path of the package manifest.
	ManifestPath string
	// Dir is the directory containing the manifest.
	Dir       string
	Platforms []string
	// Enabled binding targets.
	Script  bool
	Managed bool

	Dependencies []*Package
	Modules      []*Module

	// Skips collects every non-fatal ingestion diagnostic.
	Skips *multierror.Error

	classes map[string]*Class
	enums   map[string]*Enum
}

func NewPackage(name string) *Package {
	return &Package{
		Name:    name,
		Script:  true,
		Managed: true,
		classes: map[string]*Class{},
		enums:   map[string]*Enum{},
	}
}

// Targets returns the enabled binding targets.
func (p *Package) Targets() []Target {
	var res []Target
	if p.Script {
		res = append(res, TargetScript)
	}
	if p.Managed {
		res = append(res, TargetManaged)
	}
	return res
}

// AddSkip records a non-fatal diagnostic.
func (p *Package) AddSkip(err error) {
	p.Skips = multierror.Append(p.Skips, err)
}

// NumSkips returns the number of recorded diagnostics.
func (p *Package) NumSkips() int {
	if p.Skips == nil {
		return 0
	}
	return len(p.Skips.Errors)
}

// Class looks up a class or interface declared by this package by
// its native name.
func (p *Package) Class(nativeName string) *Class { return p.classes[nativeName] }

// Enum looks up an enum declared by this package.
func (p *Package) Enum(name string) *Enum { return p.enums[name] }

// Classes returns all classes of all modules in declared order.
func (p *Package) Classes() []*Class {
	var res []*Class
	for _, m := range p.Modules {
		res = append(res, m.Classes...)
	}
	return res
}

func (p *Package) Module(name string) *Module {
	for _, m := range p.Modules {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (p *Package) AddModule(m *Module) {
	m.Package = p
	p.Modules = append(p.Modules, m)
}

type Module struct {
	Name    string
	Package *Package
	// Headers are the header paths whose symbol trees are visited.
	Headers   []string
	Classes   []*Class
	Enums     []*Enum
	Constants []*Constant
	Events    []string
	// ExcludedOn lists platform tags this module is not built for.
	ExcludedOn []string
	// ManagedOnly modules are not bound for the script target.
	ManagedOnly bool
}

// AddClass registers c with the module and makes it name-visible
// through the owning package. The first class of a native name wins.
func (m *Module) AddClass(c *Class) {
	c.Module = m
	m.Classes = append(m.Classes, c)
	if m.Package != nil {
		if _, ok := m.Package.classes[c.NativeName]; !ok {
			m.Package.classes[c.NativeName] = c
		}
	}
}

func (m *Module) AddEnum(e *Enum) {
	e.Module = m
	m.Enums = append(m.Enums, e)
	if m.Package != nil {
		if _, ok := m.Package.enums[e.Name]; !ok {
			m.Package.enums[e.Name] = e
		}
	}
}

func (m *Module) Class(nativeName string) *Class {
	for _, c := range m.Classes {
		if c.NativeName == nativeName {
			return c
		}
	}
	return nil
}

func (m *Module) Enum(name string) *Enum {
	for _, e := range m.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// BoundFor reports whether the module produces bindings for target.
func (m *Module) BoundFor(t Target) bool {
	if t == TargetScript && m.ManagedOnly {
		return false
	}
	return true
}

type Class struct {
	// Name is the bound name, NativeName the declared one.
	Name       string
	NativeName string
	Module     *Module
	Header     string

	Base       *Class
	Interfaces []*Class

	Abstract    bool
	Interface   bool
	Generic     bool
	NumberArray bool

	Doc        string
	Functions  []*Function
	Properties []*Property
	SkipFlags

	// Decl and Source are the declaration bound during ingestion. They
	// stay nil for declared classes no visited header defines.
	Decl   *symtree.Decl
	Source *symtree.Header
	// Excludes names functions that must not be bound.
	Excludes map[string]bool
}

func NewClass(nativeName string) *Class {
	return &Class{Name: nativeName, NativeName: nativeName}
}

func (c *Class) Package() *Package {
	if c.Module == nil {
		return nil
	}
	return c.Module.Package
}

func (c *Class) AddFunction(fn *Function) {
	fn.Class = c
	c.Functions = append(c.Functions, fn)
}

// Constructors returns the accepted constructors in declaration order.
func (c *Class) Constructors() []*Function {
	var res []*Function
	for _, fn := range c.Functions {
		if fn.Constructor {
			res = append(res, fn)
		}
	}
	return res
}

// Methods returns all functions that are neither constructors nor
// destructors.
func (c *Class) Methods() []*Function {
	var res []*Function
	for _, fn := range c.Functions {
		if !fn.Constructor && !fn.Destructor {
			res = append(res, fn)
		}
	}
	return res
}

// Function returns the first function with the given bound name.
func (c *Class) Function(name string) *Function {
	for _, fn := range c.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func (c *Class) Property(name string) *Property {
	for _, p := range c.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// InheritsFrom reports whether name is c or one of c's concrete bases.
func (c *Class) InheritsFrom(nativeName string) bool {
	seen := map[*Class]bool{}
	for cl := c; cl != nil && !seen[cl]; cl = cl.Base {
		if cl.NativeName == nativeName {
			return true
		}
		seen[cl] = true
	}
	return false
}

// Bindable reports whether the class gets any bindings.
func (c *Class) Bindable() bool {
	return !c.Generic
}

func (c *Class) String() string {
	if c.Module != nil && c.Module.Package != nil {
		return c.Module.Package.Name + "." + c.NativeName
	}
	return c.NativeName
}

type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	return symtree.Location(l.File, l.Line, l.Column)
}

type Function struct {
	Name       string
	NativeName string
	Class      *Class
	Params     []*FunctionType
	// Return is nil for void functions and constructors.
	Return *FunctionType

	Constructor bool
	Destructor  bool
	Virtual     bool
	Static      bool
	Abstract    bool
	// Synthesized functions have no native declaration.
	Synthesized bool
	// InheritedInterface is set on functions also declared by an
	// interface the class implements.
	InheritedInterface bool

	SkipFlags

	Doc      string
	Location Location
}

// SkipFlags records for which binding targets a symbol is left out.
type SkipFlags struct {
	SkipScript  bool
	SkipManaged bool
}

// Skips reports whether the symbol is left out for target.
func (s *SkipFlags) Skips(t Target) bool {
	switch t {
	case TargetScript:
		return s.SkipScript
	case TargetManaged:
		return s.SkipManaged
	default:
		panic("invalid binding target")
	}
}

func (s *SkipFlags) SetSkip(t Target) {
	switch t {
	case TargetScript:
		s.SkipScript = true
	case TargetManaged:
		s.SkipManaged = true
	default:
		panic("invalid binding target")
	}
}

// Signature returns the native signature, e.g.
// "void Node::SetName(const String& name)".
func (fn *Function) Signature() string {
	var b strings.Builder
	if fn.Static {
		b.WriteString("static ")
	}
	if fn.Return != nil {
		b.WriteString(fn.Return.NativeString())
		b.WriteString(" ")
	} else if !fn.Constructor && !fn.Destructor {
		b.WriteString("void ")
	}
	if fn.Class != nil {
		b.WriteString(fn.Class.NativeName)
		b.WriteString("::")
	}
	b.WriteString(fn.NativeName)
	b.WriteString("(")
	for i, p := range fn.Params {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.NativeString())
		if p.Name != "" {
			b.WriteString(" ")
			b.WriteString(p.Name)
		}
		if p.Default != "" {
			b.WriteString(" = ")
			b.WriteString(p.Default)
		}
	}
	b.WriteString(")")
	return b.String()
}

func (fn *Function) String() string {
	return fmt.Sprintf("%v (%v)", fn.Signature(), fn.Location)
}

// FunctionType is a converted parameter or return type together with
// how it is passed.
type FunctionType struct {
	Type      Type
	Pointer   bool
	Reference bool
	Const     bool
	// SharedReturn marks a by-value SharedPtr<T> return unwrapped to T.
	SharedReturn bool
	Default      string
	Name         string
}

// NativeString renders the native type as it appears in generated
// native code, e.g. "const String&" or "Node*".
func (ft *FunctionType) NativeString() string {
	var b strings.Builder
	if ft.Const {
		b.WriteString("const ")
	}
	switch t := ft.Type.(type) {
	case ClassRef:
		if ft.SharedReturn {
			b.WriteString("SharedPtr<")
			b.WriteString(t.String())
			b.WriteString(">")
			return b.String()
		}
		b.WriteString(t.String())
	default:
		b.WriteString(t.String())
	}
	switch {
	case ft.Pointer:
		b.WriteString("*")
	case ft.Reference:
		b.WriteString("&")
	}
	return b.String()
}

type Enum struct {
	Name   string
	Module *Module
	Values []EnumValue
	Doc    string
	// Found is set once a visited header defined the enum.
	Found bool
}

type EnumValue struct {
	Name  string
	Value int64
}

type Constant struct {
	Name   string
	Type   Primitive
	Value  string
	Module *Module
}

// IsString reports whether the constant holds a string literal. String
// constants are tagged with the Char kind.
func (c *Constant) IsString() bool {
	return c.Type.Kind == Char && strings.HasPrefix(c.Value, `"`)
}

type Property struct {
	Name   string
	Getter *Function
	Setter *Function
	Type   Type
	Static bool
	SkipFlags
}

// Registry is the set of loaded packages, in load order. Class and enum
// lookups search every package in that order; the first match wins.
type Registry struct {
	packages []*Package
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Add(p *Package) {
	if slices.Contains(r.packages, p) {
		return
	}
	r.packages = append(r.packages, p)
}

func (r *Registry) Packages() []*Package { return slices.Clone(r.packages) }

func (r *Registry) Package(name string) *Package {
	for _, p := range r.packages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// FindClass returns the first class or interface with the given native name.
func (r *Registry) FindClass(nativeName string) *Class {
	for _, p := range r.packages {
		if c := p.Class(nativeName); c != nil {
			return c
		}
	}
	return nil
}

// FindConcreteClass is FindClass restricted to non-interface classes.
func (r *Registry) FindConcreteClass(nativeName string) *Class {
	for _, p := range r.packages {
		if c := p.Class(nativeName); c != nil && !c.Interface {
			return c
		}
	}
	return nil
}

// FindInterface is FindClass restricted to interface classes.
func (r *Registry) FindInterface(nativeName string) *Class {
	for _, p := range r.packages {
		if c := p.Class(nativeName); c != nil && c.Interface {
			return c
		}
	}
	return nil
}

func (r *Registry) FindEnum(name string) *Enum {
	for _, p := range r.packages {
		if e := p.Enum(name); e != nil {
			return e
		}
	}
	return nil
}

// BoundFor reports whether c gets bindings for target t. Shells of
// classes no header defined are never bound.
func (c *Class) BoundFor(t Target) bool {
	return c.Bindable() && c.Decl != nil && !c.Skips(t)
}

// BoundFor reports whether fn gets a binding for target t. Interface
// classes leave out functions their own interfaces already declare.
func (fn *Function) BoundFor(t Target) bool {
	if fn.Destructor || fn.Skips(t) {
		return false
	}
	return !(fn.InheritedInterface && fn.Class != nil && fn.Class.Interface)
}

// BoundFor reports whether p gets a binding for target t, and with
// which accessors. An accessor not bound for t is nil.
func (p *Property) BoundFor(t Target) (getter, setter *Function, ok bool) {
	if p.Skips(t) {
		return nil, nil, false
	}
	if p.Getter != nil && p.Getter.BoundFor(t) {
		getter = p.Getter
	}
	if p.Setter != nil && p.Setter.BoundFor(t) {
		setter = p.Setter
	}
	return getter, setter, getter != nil || setter != nil
}
