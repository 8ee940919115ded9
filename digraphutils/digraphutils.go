// Package digraphutils holds helpers for directed graphs given as a node
// list plus an edge function.
package digraphutils

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/nativebind/bindgen/textutils"
)

// Reachable returns roots and every node reachable from them, each
// once, in breadth-first discovery order.
func Reachable[K comparable](roots []K, edges func(K) []K) []K {
	seen := make(map[K]bool, len(roots))
	var res []K
	queue := slices.Clone(roots)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		res = append(res, n)
		queue = append(queue, edges(n)...)
	}
	return res
}

// DOTCode renders nodes and the edges among them as graphviz DOT code.
// Nodes get numeric IDs in list order. attrs returns a node's attribute
// list including brackets, or "". Edges to nodes not in the list are
// dropped.
func DOTCode[K comparable](name string, nodes []K, edges func(K) []K, prelude string, attrs func(K) string) []byte {
	ids := make(map[K]int, len(nodes))
	for i, n := range nodes {
		ids[n] = i
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "digraph %v {\n", name)
	if prelude = strings.TrimSpace(prelude); prelude != "" {
		fmt.Fprintf(&b, "%v\n", textutils.IndentString(prelude, "  ", 1))
	}
	for i, n := range nodes {
		line := strconv.Itoa(i)
		if a := attrs(n); a != "" {
			line += " " + a
		}
		fmt.Fprintf(&b, "  %v\n", line)
	}
	for i, n := range nodes {
		var targets []string
		for _, e := range edges(n) {
			if id, ok := ids[e]; ok {
				targets = append(targets, strconv.Itoa(id))
			}
		}
		if len(targets) > 0 {
			fmt.Fprintf(&b, "  %v -> {%v}\n", i, strings.Join(targets, " "))
		}
	}
	b.WriteString("}\n")
	return b.Bytes()
}
