package binder

import (
	"github.com/nativebind/bindgen/config/rules"
	"github.com/nativebind/bindgen/model"
)

// ruleTarget is a set of model symbols sharing one rules symbol.
// Overloads share one symbol, so a rule renames or excludes all of
// them.
type ruleTarget struct {
	rename func(string)
	skips  []*model.SkipFlags
}

// ApplyRules runs the configured rules over the bindable classes of
// pkg and its functions, constructors and properties. Renames set the
// bound name; excluded symbols get the skip flag of every target the
// rule excludes them from.
func (b *Binder) ApplyRules(pkg *model.Package) error {
	if len(b.Config.Rules) == 0 {
		return nil
	}

	var symbols []rules.Symbol
	targets := map[rules.Symbol]*ruleTarget{}
	add := func(sym rules.Symbol, skip *model.SkipFlags, rename func(string)) {
		t, ok := targets[sym]
		if !ok {
			t = &ruleTarget{}
			targets[sym] = t
			symbols = append(symbols, sym)
		}
		t.skips = append(t.skips, skip)
		if rename != nil {
			prev := t.rename
			t.rename = func(name string) {
				if prev != nil {
					prev(name)
				}
				rename(name)
			}
		}
	}

	for _, c := range pkg.Classes() {
		if !c.Bindable() {
			continue
		}
		add(rules.Symbol{Name: c.Name, Class: c.Name, Type: rules.SymbolClass},
			&c.SkipFlags, func(name string) { c.Name = name })
		for _, fn := range c.Functions {
			switch {
			case fn.Destructor:
			case fn.Constructor:
				add(rules.Symbol{Name: c.Name, Class: c.Name, Type: rules.SymbolConstructor},
					&fn.SkipFlags, nil)
			default:
				add(rules.Symbol{Name: fn.Name, Class: c.Name, Type: rules.SymbolFunction},
					&fn.SkipFlags, func(name string) { fn.Name = name })
			}
		}
		for _, p := range c.Properties {
			add(rules.Symbol{Name: p.Name, Class: c.Name, Type: rules.SymbolProperty},
				&p.SkipFlags, func(name string) { p.Name = name })
		}
	}

	names, included, err := rules.Execute(b.Config, []rules.PackageSpec{
		{Package: pkg.Name, Symbols: symbols},
	})
	if err != nil {
		return err
	}

	for _, sym := range symbols {
		t := targets[sym]
		if name := names[pkg.Name][sym]; name != sym.Name && t.rename != nil {
			t.rename(name)
		}
		inc := included[pkg.Name][sym]
		for _, skip := range t.skips {
			if !inc.Script {
				skip.SetSkip(model.TargetScript)
			}
			if !inc.Managed {
				skip.SetSkip(model.TargetManaged)
			}
		}
	}
	return nil
}
