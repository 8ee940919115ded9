package managedgen

import (
	"strconv"
	"strings"

	"github.com/nativebind/bindgen/binder/binderio"
	"github.com/nativebind/bindgen/model"
)

// writeConstants writes the enums, constants and events of mod.
func (g *Generator) writeConstants(cb *binderio.CodeBuilder, mod *model.Module) {
	pkg := mod.Package
	cb.Linef(generatedNotice, pkg.Name)
	cb.Linef("")
	endifPlatform := cb.If(g.platformGuard(pkg, binderio.ManagedGuard))
	endifModule := cb.If(g.moduleGuard(mod, binderio.ManagedGuard))

	cb.Open("namespace %v", pkg.Name)
	cb.Linef("")
	for _, e := range mod.Enums {
		if !e.Found {
			continue
		}
		cb.Comment(e.Doc, "/// ")
		cb.Open("public enum %v", e.Name)
		for i, v := range e.Values {
			sep := ","
			if i == len(e.Values)-1 {
				sep = ""
			}
			cb.Linef("%v = %v%v", v.Name, v.Value, sep)
		}
		cb.Close("")
		cb.Linef("")
	}

	var consts []string
	for _, k := range mod.Constants {
		if lit, ok := constantLiteral(k); ok {
			typ := "string"
			if !k.IsString() {
				typ = CSharpType(k.Type, pkg)
			}
			consts = append(consts, "public const "+typ+" "+k.Name+" = "+lit+";")
		}
	}
	if len(consts) > 0 {
		cb.Open("public static partial class Constants")
		for _, l := range consts {
			cb.Linef("%v", l)
		}
		cb.Close("")
		cb.Linef("")
	}

	if len(mod.Events) > 0 {
		cb.Open("public static partial class Events")
		for _, ev := range mod.Events {
			cb.Linef("public const string %v = %v;", ev, strconv.Quote(ev))
		}
		cb.Close("")
		cb.Linef("")
	}
	cb.Close("")

	endifModule()
	endifPlatform()
}

// constantLiteral spells the value of k as a managed literal. Constants
// without a value are left out.
func constantLiteral(k *model.Constant) (string, bool) {
	v := strings.TrimSpace(k.Value)
	if v == "" {
		return "", false
	}
	if k.IsString() {
		return v, true
	}
	switch k.Type.Kind {
	case model.Float:
		return strings.TrimRight(v, "fF") + "f", true
	case model.Double:
		return strings.TrimRight(v, "fF"), true
	case model.Bool:
		return v, true
	default:
		return trimIntSuffix(v), true
	}
}
