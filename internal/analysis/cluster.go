// # internal/analysis/cluster.go
package analysis

import (
	"path"
	"sort"
	"time"

	"mosaicmap/internal/engine/parser"
	"mosaicmap/internal/shared/observability"
)

// packageOf is this package's notion of "package": the directory
// containing the file, matching internal/resolver's own packageOf — both
// packages define it independently since spec.md treats WorkspaceInfo as
// an external collaborator with no package-grouping contract of its own.
func packageOf(filePath string) string {
	dir := path.Dir(filePath)
	if dir == "." {
		return ""
	}
	return dir
}

const (
	clusterThreshold = 10
	clusterMaxSize   = 100
)

// clusterFunc is one function considered by the clusterer, indexed by
// position in the flat functions slice so union-find can work over plain
// ints (the original implementation's own approach).
type clusterFunc struct {
	File     string
	Line     int
	Name     string
	ImplType string
	Package  string
	Params   []string
	Return   string
}

func (f clusterFunc) qualifiedName() string { return QualifiedName(f.ImplType, f.Name) }

// Cluster is one affinity group spec.md §4.9 reports: member count plus
// directed internal/external edge counts (a mutual call between two
// members counts as two edges, per original_source's count_internal_calls
// — see SPEC_FULL.md §3.3).
type Cluster struct {
	Members       []clusterFunc
	InternalEdges int
	ExternalEdges int
}

// ClusterFunctions groups function symbols by pairwise affinity score
// (spec.md §4.9's table), greedily union-finding pairs with score >= 10 in
// descending score order, ties broken by (file, line) of the smaller-index
// member first. A merge that would exceed clusterMaxSize members is
// rejected; singleton clusters are discarded from the output.
func ClusterFunctions(files []parser.FileRecord) []Cluster {
	start := time.Now()
	defer func() { observability.AnalysisDuration.WithLabelValues("cluster").Observe(time.Since(start).Seconds()) }()

	functions := collectClusterFunctions(files)
	if len(functions) == 0 {
		return nil
	}

	adjacency := buildCallAdjacency(files)
	pairs := scorePairs(functions, adjacency)

	clusters := unionFindClusters(functions, pairs)
	internal, external := countClusterEdges(clusters, functions, adjacency)

	out := make([]Cluster, 0, len(clusters))
	for i, members := range clusters {
		if len(members) < 2 {
			continue
		}
		cf := make([]clusterFunc, len(members))
		for j, idx := range members {
			cf[j] = functions[idx]
		}
		sort.Slice(cf, func(a, b int) bool {
			if cf[a].File != cf[b].File {
				return cf[a].File < cf[b].File
			}
			return cf[a].Line < cf[b].Line
		})
		out = append(out, Cluster{Members: cf, InternalEdges: internal[i], ExternalEdges: external[i]})
	}

	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Members) != len(out[j].Members) {
			return len(out[i].Members) > len(out[j].Members)
		}
		return out[i].Members[0].File < out[j].Members[0].File
	})
	observability.ClustersFound.Set(float64(len(out)))
	return out
}

func collectClusterFunctions(files []parser.FileRecord) []clusterFunc {
	var functions []clusterFunc
	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		pkg := packageOf(rec.Path)
		for _, sym := range rec.Parsed.Symbols {
			if sym.Kind != parser.SymbolFunction {
				continue
			}
			params, ret := ParseSignatureTypes(sym.Signature)
			functions = append(functions, clusterFunc{
				File: rec.Path, Line: sym.Line, Name: sym.Name, ImplType: sym.ImplType,
				Package: pkg, Params: params, Return: ret,
			})
		}
	}
	sort.Slice(functions, func(i, j int) bool {
		if functions[i].File != functions[j].File {
			return functions[i].File < functions[j].File
		}
		return functions[i].Line < functions[j].Line
	})
	return functions
}

// buildCallAdjacency maps a qualified caller name to the set of qualified
// callee names it targets anywhere in the workspace, name-based per
// spec.md's call-resolution non-goal.
func buildCallAdjacency(files []parser.FileRecord) map[string]map[string]bool {
	adjacency := make(map[string]map[string]bool)
	for _, rec := range files {
		if rec.Parsed == nil {
			continue
		}
		for _, call := range rec.Parsed.Calls {
			caller := QualifiedName(call.ImplType, call.CallerName)
			for _, edge := range call.Callees {
				if edge.Target == "" {
					continue
				}
				if adjacency[caller] == nil {
					adjacency[caller] = make(map[string]bool)
				}
				adjacency[caller][edge.Target] = true
				if edge.ReceiverType != "" {
					adjacency[caller][QualifiedTarget(edge)] = true
				}
			}
		}
	}
	return adjacency
}

func calls(adjacency map[string]map[string]bool, from, to clusterFunc) bool {
	targets := adjacency[from.qualifiedName()]
	return targets[to.Name] || targets[to.qualifiedName()]
}

type scoredPair struct {
	a, b  int
	score int
}

// scorePairs computes spec.md §4.9's pairwise affinity score for every
// distinct pair of functions, grounded on
// original_source/src/output/clusters.rs::compute_affinity_matrix.
func scorePairs(functions []clusterFunc, adjacency map[string]map[string]bool) []scoredPair {
	var pairs []scoredPair
	for i := 0; i < len(functions); i++ {
		for j := i + 1; j < len(functions); j++ {
			a, b := functions[i], functions[j]
			score := 0

			sameFile := a.File == b.File
			samePackage := a.Package == b.Package

			if a.ImplType != "" && a.ImplType == b.ImplType {
				if sameFile {
					score += 15
				} else if samePackage {
					score += 5
				}
			}

			if calls(adjacency, a, b) {
				score += 5
			}
			if calls(adjacency, b, a) {
				score += 5
			}

			switch {
			case sameFile:
				score += 5
			case samePackage:
				score += 2
			default:
				score -= 3
			}

			score += 2 * sharedTypeCount(a, b)

			if score >= clusterThreshold {
				pairs = append(pairs, scoredPair{a: i, b: j, score: score})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		pa, pb := functions[pairs[i].a], functions[pairs[j].a]
		if pa.File != pb.File {
			return pa.File < pb.File
		}
		if pa.Line != pb.Line {
			return pa.Line < pb.Line
		}
		qa, qb := functions[pairs[i].b], functions[pairs[j].b]
		if qa.File != qb.File {
			return qa.File < qb.File
		}
		return qa.Line < qb.Line
	})
	return pairs
}

func sharedTypeCount(a, b clusterFunc) int {
	typesA := make(map[string]bool)
	for _, p := range a.Params {
		if !isPrimitiveType(p) {
			typesA[p] = true
		}
	}
	if a.Return != "" && !isPrimitiveType(a.Return) {
		typesA[a.Return] = true
	}

	typesB := make(map[string]bool)
	for _, p := range b.Params {
		typesB[p] = true
	}
	if b.Return != "" {
		typesB[b.Return] = true
	}

	count := 0
	for t := range typesA {
		if typesB[t] {
			count++
		}
	}
	return count
}

// unionFind is a plain disjoint-set structure over function indices. No
// pack example provides a union-find implementation for this shape of
// problem (grep across _examples found none); the algorithm itself is
// spec.md §4.9's own specification, not an ambient-stack concern a
// third-party library would normally absorb.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// union merges the roots of a and b if the combined size stays within
// clusterMaxSize, returning whether the merge happened.
func (uf *unionFind) union(a, b int) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return true
	}
	if uf.size[ra]+uf.size[rb] > clusterMaxSize {
		return false
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	return true
}

func unionFindClusters(functions []clusterFunc, pairs []scoredPair) [][]int {
	uf := newUnionFind(len(functions))
	for _, p := range pairs {
		uf.union(p.a, p.b)
	}

	groups := make(map[int][]int)
	for i := range functions {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	roots := make([]int, 0, len(groups))
	for r := range groups {
		roots = append(roots, r)
	}
	sort.Ints(roots)

	out := make([][]int, 0, len(roots))
	for _, r := range roots {
		out = append(out, groups[r])
	}
	return out
}

// countClusterEdges tallies, per cluster, the number of directed call
// edges (by qualified name) whose endpoints both fall inside the cluster
// (internal) versus exactly one (external).
func countClusterEdges(clusters [][]int, functions []clusterFunc, adjacency map[string]map[string]bool) (internal, external []int) {
	internal = make([]int, len(clusters))
	external = make([]int, len(clusters))

	memberOf := make(map[int]int, len(functions))
	for ci, members := range clusters {
		for _, idx := range members {
			memberOf[idx] = ci
		}
	}

	qualifiedIndex := make(map[string][]int, len(functions))
	for i, f := range functions {
		qualifiedIndex[f.qualifiedName()] = append(qualifiedIndex[f.qualifiedName()], i)
		if f.ImplType != "" {
			qualifiedIndex[f.Name] = append(qualifiedIndex[f.Name], i)
		}
	}

	for i, f := range functions {
		ci := memberOf[i]
		seen := make(map[int]bool)
		for target := range adjacency[f.qualifiedName()] {
			for _, j := range qualifiedIndex[target] {
				if j == i || seen[j] {
					continue
				}
				seen[j] = true
				if memberOf[j] == ci {
					internal[ci]++
				} else {
					external[ci]++
				}
			}
		}
	}
	return internal, external
}
