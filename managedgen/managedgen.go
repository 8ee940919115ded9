// Package managedgen writes bindings for the managed runtime: C#
// wrapper classes per module and the native interop functions they
// call through P/Invoke.
package managedgen

import (
	"fmt"
	"path"

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

// InteropHeader returns the path of the native interop header.
func InteropHeader(pkg *model.Package) string {
	return path.Join(pkg.Name, "Native", pkg.Name+"Interop.h")
}

// InteropSource returns the path of the native interop source.
func InteropSource(pkg *model.Package) string {
	return path.Join(pkg.Name, "Native", pkg.Name+"Interop.cpp")
}

// ModuleFile returns the path of the managed wrappers of mod.
func ModuleFile(mod *model.Module) string {
	return path.Join(mod.Package.Name, "Managed", mod.Name+".cs")
}

// ConstantsFile returns the path of the managed constants of mod.
func ConstantsFile(mod *model.Module) string {
	return path.Join(mod.Package.Name, "Managed", mod.Name+"Constants.cs")
}

// Generate writes the managed bindings of pkg. A package without the
// managed target yields an empty set.
func (g *Generator) Generate(pkg *model.Package) (*binderio.OutputSet, error) {
	out := binderio.NewOutputSet()
	if !pkg.Managed {
		return out, nil
	}

	var h, cpp binderio.CodeBuilder
	g.writeInterop(&h, &cpp, pkg)
	if err := out.AddCode(InteropHeader(pkg), &h); err != nil {
		return nil, err
	}
	if err := out.AddCode(InteropSource(pkg), &cpp); err != nil {
		return nil, err
	}

	for _, mod := range pkg.Modules {
		if !mod.BoundFor(model.TargetManaged) {
			continue
		}
		var cs, consts binderio.CodeBuilder
		g.writeModule(&cs, mod)
		g.writeConstants(&consts, mod)
		if err := out.AddCode(ModuleFile(mod), &cs); err != nil {
			return nil, err
		}
		if err := out.AddCode(ConstantsFile(mod), &consts); err != nil {
			return nil, err
		}
	}
	g.Log.Infof("package %v: %v managed binding files", pkg.Name, out.Len())
	return out, nil
}

// platformGuard is the condition under which any of the package's
// platforms is targeted.
func (g *Generator) platformGuard(pkg *model.Package, s binderio.GuardSyntax) string {
	preds, _ := manifest.Guards(pkg.Platforms, g.Config.PlatformGuards)
	return binderio.AnyOf(s, preds)
}

func (g *Generator) moduleGuard(mod *model.Module, s binderio.GuardSyntax) string {
	preds, _ := manifest.Guards(mod.ExcludedOn, g.Config.PlatformGuards)
	return binderio.NoneOf(s, preds)
}

// managedClasses returns the classes of mod bound for the managed
// target.
func managedClasses(mod *model.Module) []*model.Class {
	var res []*model.Class
	for _, c := range mod.Classes {
		if c.BoundFor(model.TargetManaged) {
			res = append(res, c)
		}
	}
	return res
}

// managedFunctions returns the functions of c bound for the managed
// target that call into native code, paired with their interop entry
// points. Overloads are numbered in declaration order. Synthesized
// constructors wrap an existing instance and have no entry point.
func managedFunctions(c *model.Class) []interopFunc {
	var res []interopFunc
	seen := map[string]int{}
	for _, fn := range c.Functions {
		if !fn.BoundFor(model.TargetManaged) || fn.Synthesized {
			continue
		}
		if fn.Constructor && (c.Abstract || c.Interface) {
			continue
		}
		name := fn.NativeName
		if fn.Constructor {
			name = "Constructor"
		}
		n := seen[name]
		seen[name]++
		res = append(res, interopFunc{
			fn:     fn,
			symbol: fmt.Sprintf("csb_%v_%v_%v_%v", c.Package().Name, c.NativeName, name, n),
		})
	}
	return res
}

type interopFunc struct {
	fn     *model.Function
	symbol string
}

// hasClassID reports whether c exposes the static class id of the
// reference-counted hierarchy.
func (g *Generator) hasClassID(c *model.Class) bool {
	return !c.Interface && c.InheritsFrom(g.Config.Types.RefCountedRoot)
}

func classIDSymbol(c *model.Class) string {
	return fmt.Sprintf("csb_%v_%v_GetClassIDStatic", c.Package().Name, c.NativeName)
}
