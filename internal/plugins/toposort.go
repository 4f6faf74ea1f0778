package plugins

import (
	"fmt"
	"sort"
)

// TopoSort orders names so that before[A] = [B] puts A ahead of B and after[A] = [B] puts B
// ahead of A. Among the names that are free to run, the earliest in names goes first, so the
// result is the input order when there are no constraints. Unknown names in constraints are ignored.
func TopoSort(names []string, before, after map[string][]string) ([]string, error) {
	index := make(map[string]int, len(names))
	for i, name := range names {
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}

	edges := make(map[string][]string)
	inDegree := make(map[string]int, len(index))
	seenEdge := make(map[[2]string]bool)
	addEdge := func(from, to string) {
		if _, ok := index[from]; !ok {
			return
		}
		if _, ok := index[to]; !ok {
			return
		}
		if seenEdge[[2]string{from, to}] {
			return
		}
		seenEdge[[2]string{from, to}] = true
		edges[from] = append(edges[from], to)
		inDegree[to]++
	}

	for _, name := range names {
		for _, b := range before[name] {
			addEdge(name, b)
		}
		for _, a := range after[name] {
			addEdge(a, name)
		}
	}

	var ready []string
	for name := range index {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	result := make([]string, 0, len(index))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return index[ready[i]] < index[ready[j]] })
		current := ready[0]
		ready = ready[1:]
		result = append(result, current)

		for _, next := range edges[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(result) != len(index) {
		var cycle []string
		for name := range index {
			if inDegree[name] > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Slice(cycle, func(i, j int) bool { return index[cycle[i]] < index[cycle[j]] })
		return nil, fmt.Errorf("cycle detected in plugin ordering constraints involving: %v", cycle)
	}
	return result, nil
}
