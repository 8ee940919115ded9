package loader

import (
	"fmt"
	"strconv"

	"github.com/nativebind/bindgen/digraphutils"
	"github.com/nativebind/bindgen/model"
)

// DependencyDOT renders the dependency graph of the packages reachable
// from roots as graphviz DOT code.
func DependencyDOT(roots []*model.Package) []byte {
	// Dependencies come before their dependents, as they were loaded.
	var nodes []*model.Package
	seen := map[*model.Package]bool{}
	var visit func(p *model.Package)
	visit = func(p *model.Package) {
		if seen[p] {
			return
		}
		seen[p] = true
		for _, d := range p.Dependencies {
			visit(d)
		}
		nodes = append(nodes, p)
	}
	for _, r := range roots {
		visit(r)
	}

	deps := func(p *model.Package) []*model.Package { return p.Dependencies }
	return digraphutils.DOTCode("packages", nodes, deps, `node [shape=box];`,
		func(p *model.Package) string {
			label := p.Name
			if p.Version != "" {
				label += "\n" + p.Version
			}
			return fmt.Sprintf("[label=%v]", strconv.Quote(label))
		})
}
