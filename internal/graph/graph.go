// Package graph builds the inheritance graph of declared types and
// computes a PageRank over it.
package graph

import (
	"math"
	"sort"

	"github.com/phobologic/annotate/internal/model"
)

// Edge links a type to the type it extends.
type Edge struct {
	Child  string
	Parent string
}

// Graph is the extends relation over a set of declared types. Parents that
// are not declared are kept on the edges but are not nodes.
type Graph struct {
	nodes   map[string]struct{}
	parents map[string]string
}

// Build creates the graph from type declarations.
func Build(decls []model.TypeDecl) *Graph {
	g := &Graph{
		nodes:   make(map[string]struct{}, len(decls)),
		parents: make(map[string]string),
	}
	for i := range decls {
		name := model.Key(decls[i].Name)
		g.nodes[name] = struct{}{}
		if decls[i].Parent != "" {
			g.parents[name] = model.Key(decls[i].Parent)
		}
	}
	return g
}

// Len returns the number of declared types.
func (g *Graph) Len() int { return len(g.nodes) }

// Edges returns every extends edge sorted by child.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.parents))
	for _, child := range sortedKeys(g.nodes) {
		if parent, ok := g.parents[child]; ok {
			edges = append(edges, Edge{Child: child, Parent: parent})
		}
	}
	return edges
}

// Parent returns the declared parent of name, if it is itself declared.
func (g *Graph) Parent(name string) (string, bool) {
	parent, ok := g.parents[name]
	if !ok {
		return "", false
	}
	_, declared := g.nodes[parent]
	return parent, declared
}

// Children returns the types directly extending name, sorted.
func (g *Graph) Children(name string) []string {
	var children []string
	for child, parent := range g.parents {
		if parent == name {
			children = append(children, child)
		}
	}
	sort.Strings(children)
	return children
}

// Cycles returns every extends cycle. Each cycle starts at its smallest
// name and cycles are sorted by that name.
func (g *Graph) Cycles() [][]string {
	done := make(map[string]bool, len(g.nodes))
	var cycles [][]string

	for _, start := range sortedKeys(g.nodes) {
		if done[start] {
			continue
		}
		pos := make(map[string]int)
		var path []string
		node := start
		for {
			if done[node] {
				break
			}
			if i, ok := pos[node]; ok {
				cycles = append(cycles, rotate(path[i:]))
				break
			}
			pos[node] = len(path)
			path = append(path, node)
			parent, ok := g.Parent(node)
			if !ok {
				break
			}
			node = parent
		}
		for _, n := range path {
			done[n] = true
		}
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// Depth returns the number of declared ancestors of name. Cycles are
// counted once around.
func (g *Graph) Depth(name string) int {
	seen := map[string]bool{name: true}
	depth := 0
	for {
		parent, ok := g.Parent(name)
		if !ok || seen[parent] {
			return depth
		}
		seen[parent] = true
		depth++
		name = parent
	}
}

// Rank applies PageRank over the child to parent edges, so heavily
// extended base types rank highest. Ranks sum to about 1.
func (g *Graph) Rank() map[string]float64 {
	if len(g.nodes) == 0 {
		return nil
	}

	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for child := range g.nodes {
		if parent, ok := g.Parent(child); ok {
			outEdges[child] = append(outEdges[child], parent)
			outDegree[child]++
		}
	}

	if len(outEdges) == 0 {
		uniform := 1.0 / float64(len(g.nodes))
		ranks := make(map[string]float64, len(g.nodes))
		for node := range g.nodes {
			ranks[node] = uniform
		}
		return ranks
	}

	return pageRank(g.nodes, outEdges, outDegree, 0.85, 100, 1e-6)
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (roots have no outgoing edges)
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for src, targets := range outEdges {
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func rotate(cycle []string) []string {
	first := 0
	for i, n := range cycle {
		if n < cycle[first] {
			first = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[first:]...)
	return append(out, cycle[:first]...)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
