// Package rules interprets the [[rule]] entries of a configuration.
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/nativebind/bindgen/config"
)

type SymbolType int

const (
	SymbolClass SymbolType = iota
	SymbolFunction
	SymbolConstructor
	SymbolProperty
)

func (sym SymbolType) String() string {
	switch sym {
	case SymbolClass:
		return "Class"
	case SymbolFunction:
		return "Function"
	case SymbolConstructor:
		return "Constructor"
	case SymbolProperty:
		return "Property"
	default:
		panic("invalid symbol")
	}
}

func SymbolTypeFromString(s string) (SymbolType, bool) {
	for _, sym := range []SymbolType{SymbolClass, SymbolFunction, SymbolConstructor, SymbolProperty} {
		if strings.EqualFold(s, sym.String()) {
			return sym, true
		}
	}
	return -1, false
}

// Symbol identifies a bindable symbol within a package. For classes,
// Class equals Name.
type Symbol struct {
	Name  string
	Class string
	Type  SymbolType
}

type PackageSpec struct {
	Package string
	Symbols []Symbol
}

// Targets says for which binding targets a symbol is included.
type Targets struct {
	Script  bool
	Managed bool
}

// Execute executes renaming and inclusion rules on the given spec.
// Return value names maps package name to symbol to new symbol name,
// while included says for which targets the symbol should be bound.
// Names selectors see the name as renamed by earlier rules.
func Execute(c *config.Config, spec []PackageSpec) (names map[string]map[Symbol]string, included map[string]map[Symbol]Targets, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("execute rules: %w", err)
		}
	}()

	names = map[string]map[Symbol]string{}
	included = map[string]map[Symbol]Targets{}
	taken := map[string]map[Symbol]bool{} // to avoid collisions
	for _, pkg := range spec {
		if _, ok := names[pkg.Package]; ok {
			return nil, nil, fmt.Errorf("duplicate package: %v", pkg.Package)
		}
		names[pkg.Package] = map[Symbol]string{}
		included[pkg.Package] = map[Symbol]Targets{}
		taken[pkg.Package] = map[Symbol]bool{}
		for _, sym := range pkg.Symbols {
			if _, ok := names[pkg.Package][sym]; ok {
				return nil, nil, fmt.Errorf("duplicate %v symbol: %v.%v", sym.Type, pkg.Package, sym.Name)
			}
			names[pkg.Package][sym] = sym.Name
			included[pkg.Package][sym] = Targets{Script: true, Managed: true}
			taken[pkg.Package][sym] = true
		}
	}

	// Backrefs represents the '\1', '\2' etc., which are created by
	// making a capture group in the package, class and/or name selector.
	var backrefs [][]byte

	for ruleIdx, rule := range c.Rules {
		var selType SymbolType = -1
		if rule.Select.Type != "" {
			var ok bool
			selType, ok = SymbolTypeFromString(rule.Select.Type)
			if !ok {
				return nil, nil, fmt.Errorf("rule %v: select: unknown symbol type: %v", ruleIdx+1, rule.Select.Type)
			}
		}
		targets := Targets{Script: len(rule.Actions.Targets) == 0, Managed: len(rule.Actions.Targets) == 0}
		for _, t := range rule.Actions.Targets {
			switch strings.ToLower(t) {
			case "script":
				targets.Script = true
			case "managed":
				targets.Managed = true
			default:
				return nil, nil, fmt.Errorf("rule %v: action: unknown target: %v", ruleIdx+1, t)
			}
		}

		for _, pkg := range spec {
			backrefs = backrefs[:0]
			if rule.Select.Package != nil {
				m := fullMatch(rule.Select.Package.FindSubmatch([]byte(pkg.Package)), pkg.Package)
				if m == nil {
					continue
				}
				backrefs = append(backrefs, m...)
			}
			numPkgBackrefs := len(backrefs)

			for _, sym := range pkg.Symbols {
				backrefs = backrefs[:numPkgBackrefs]
				if selType != -1 && selType != sym.Type {
					continue
				}
				if rule.Select.Class != nil {
					m := fullMatch(rule.Select.Class.FindSubmatch([]byte(sym.Class)), sym.Class)
					if m == nil {
						continue
					}
					backrefs = append(backrefs, m...)
				}
				if rule.Select.Name != nil {
					name := names[pkg.Package][sym]
					m := fullMatch(rule.Select.Name.FindSubmatch([]byte(name)), name)
					if m == nil {
						continue
					}
					backrefs = append(backrefs, m...)
				}

				renameTo := func(newName string) error {
					oldName := names[pkg.Package][sym]
					if newName == oldName {
						return nil
					}
					oldSym := Symbol{Name: oldName, Class: sym.Class, Type: sym.Type}
					newSym := Symbol{Name: newName, Class: sym.Class, Type: sym.Type}
					if taken[pkg.Package][newSym] {
						return fmt.Errorf("renaming %v to %v would cause a conflict",
							strconv.Quote(oldName), strconv.Quote(newName))
					}
					names[pkg.Package][sym] = newName
					taken[pkg.Package][oldSym] = false
					taken[pkg.Package][newSym] = true
					return nil
				}

				if rule.Actions.Rename != "" {
					if err := renameTo(expandBackrefs(rule.Actions.Rename, backrefs)); err != nil {
						return nil, nil, err
					}
				}

				if rule.Actions.Include != nil {
					inc := included[pkg.Package][sym]
					if targets.Script {
						inc.Script = *rule.Actions.Include
					}
					if targets.Managed {
						inc.Managed = *rule.Actions.Include
					}
					included[pkg.Package][sym] = inc
				}

				if rule.Actions.ToCasing != "" {
					name := names[pkg.Package][sym]
					var newName string
					switch rule.Actions.ToCasing {
					case "kebab":
						newName = strcase.ToKebab(name)
					case "camel":
						newName = strcase.ToCamel(name)
					case "lower-camel":
						newName = strcase.ToLowerCamel(name)
					case "snake":
						newName = strcase.ToSnake(name)
					default:
						return nil, nil, fmt.Errorf("action: unknown casing: %v", rule.Actions.ToCasing)
					}
					if err := renameTo(newName); err != nil {
						return nil, nil, err
					}
				}
			}
		}
	}

	return
}

// fullMatch returns the capture groups of m if m matches all of s.
func fullMatch(m [][]byte, s string) [][]byte {
	if len(m) == 0 || len(m[0]) != len(s) {
		return nil
	}
	if len(m) == 1 {
		return [][]byte{}
	}
	return m[1:]
}

func expandBackrefs(tmpl string, backrefs [][]byte) string {
	oldnew := [2 * 9]string{
		`\1`, "",
		`\2`, "",
		`\3`, "",
		`\4`, "",
		`\5`, "",
		`\6`, "",
		`\7`, "",
		`\8`, "",
		`\9`, "",
	}
	for i := range min(len(backrefs), 9) {
		oldnew[2*i+1] = string(backrefs[i])
	}
	return strings.NewReplacer(oldnew[:]...).Replace(tmpl)
}
