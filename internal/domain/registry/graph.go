package registry

import (
	"slices"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
)

// nodeID indexes the node arena.
type nodeID int32

const noNode nodeID = -1

type edge struct {
	to    nodeID
	props Property
}

// dependsNode is one vertex. Dependencies are kept per category; referencers
// are kept once per referencing node regardless of category.
type dependsNode struct {
	id         asset.AssetIdentifier
	live       bool
	deps       [len(categories)][]edge
	refs       []nodeID
	depsSorted [len(categories)]bool
	refsSorted bool
}

// graph owns every node. Removed slots are reused.
type graph struct {
	nodes []dependsNode
	free  []nodeID
	index map[asset.AssetIdentifier]nodeID
}

func newGraph() *graph {
	return &graph{index: make(map[asset.AssetIdentifier]nodeID)}
}

func (g *graph) len() int { return len(g.index) }

func (g *graph) node(n nodeID) *dependsNode { return &g.nodes[n] }

func (g *graph) find(id asset.AssetIdentifier) (nodeID, bool) {
	n, ok := g.index[id]
	return n, ok
}

func (g *graph) createOrFind(id asset.AssetIdentifier) nodeID {
	if n, ok := g.index[id]; ok {
		return n
	}
	fresh := dependsNode{id: id, live: true, refsSorted: true}
	for i := range fresh.depsSorted {
		fresh.depsSorted[i] = true
	}

	var n nodeID
	if k := len(g.free); k > 0 {
		n = g.free[k-1]
		g.free = g.free[:k-1]
		g.nodes[n] = fresh
	} else {
		n = nodeID(len(g.nodes))
		g.nodes = append(g.nodes, fresh)
	}
	g.index[id] = n
	return n
}

// addDependency links from -> to in category, merging properties into an
// existing edge, and registers from as a referencer of to.
func (g *graph) addDependency(from, to nodeID, c Category, props Property) {
	src := g.node(from)
	slot := categorySlot(c)
	list := src.deps[slot]
	if i := slices.IndexFunc(list, func(e edge) bool { return e.to == to }); i >= 0 {
		list[i].props |= props
	} else {
		src.deps[slot] = append(list, edge{to: to, props: props})
		src.depsSorted[slot] = false
	}
	g.addReferencer(to, from)
}

func (g *graph) addReferencer(n, referencer nodeID) {
	dst := g.node(n)
	if slices.Contains(dst.refs, referencer) {
		return
	}
	dst.refs = append(dst.refs, referencer)
	dst.refsSorted = false
}

// hasDependencyOn reports whether n depends on target in any category.
func (g *graph) hasDependencyOn(n, target nodeID) bool {
	for _, list := range g.node(n).deps {
		for _, e := range list {
			if e.to == target {
				return true
			}
		}
	}
	return false
}

// clearDependencies drops every outgoing edge of n in the categories of mask,
// unlinking the matching referencer entries.
func (g *graph) clearDependencies(n nodeID, mask Category) {
	src := g.node(n)
	var targets []nodeID
	for i, c := range categories {
		if mask&c == 0 {
			continue
		}
		for _, e := range src.deps[i] {
			targets = append(targets, e.to)
		}
		src.deps[i] = nil
		src.depsSorted[i] = true
	}
	for _, t := range targets {
		if !g.hasDependencyOn(n, t) {
			g.removeReferencer(t, n)
		}
	}
}

func (g *graph) removeReferencer(n, referencer nodeID) {
	dst := g.node(n)
	dst.refs = slices.DeleteFunc(dst.refs, func(r nodeID) bool { return r == referencer })
}

func (g *graph) removeDependency(n, target nodeID) {
	src := g.node(n)
	for i := range src.deps {
		src.deps[i] = slices.DeleteFunc(src.deps[i], func(e edge) bool { return e.to == target })
	}
}

// remove unlinks n from all partners and frees its slot.
func (g *graph) remove(n nodeID) {
	node := g.node(n)
	for _, list := range node.deps {
		for _, e := range list {
			if e.to != n {
				g.removeReferencer(e.to, n)
			}
		}
	}
	for _, r := range node.refs {
		if r != n {
			g.removeDependency(r, n)
		}
	}
	delete(g.index, node.id)
	*node = dependsNode{}
	g.free = append(g.free, n)
}

// removeLinksTo drops every edge of n that points at a node in doomed.
func (g *graph) removeLinksTo(n nodeID, doomed map[nodeID]bool) {
	node := g.node(n)
	for i := range node.deps {
		node.deps[i] = slices.DeleteFunc(node.deps[i], func(e edge) bool { return doomed[e.to] })
	}
	node.refs = slices.DeleteFunc(node.refs, func(r nodeID) bool { return doomed[r] })
}

// connectionCount counts dependencies in every category plus referencers.
func (g *graph) connectionCount(n nodeID) int {
	node := g.node(n)
	count := len(node.refs)
	for _, list := range node.deps {
		count += len(list)
	}
	return count
}

// liveNodes returns every live node id sorted by identifier.
func (g *graph) liveNodes() []nodeID {
	ids := make([]nodeID, 0, len(g.index))
	for _, n := range g.index {
		ids = append(ids, n)
	}
	slices.SortFunc(ids, func(a, b nodeID) int {
		return asset.CompareIdentifiers(g.nodes[a].id, g.nodes[b].id)
	})
	return ids
}

// sortAll restores sorted edge lists after bulk insertion.
func (g *graph) sortAll() {
	for _, n := range g.index {
		node := g.node(n)
		for i := range node.deps {
			if !node.depsSorted[i] {
				slices.SortFunc(node.deps[i], func(a, b edge) int { return g.compareNodes(a.to, b.to) })
				node.depsSorted[i] = true
			}
		}
		if !node.refsSorted {
			slices.SortFunc(node.refs, g.compareNodes)
			node.refsSorted = true
		}
	}
}

func (g *graph) compareNodes(a, b nodeID) int {
	return asset.CompareIdentifiers(g.nodes[a].id, g.nodes[b].id)
}

// dependencies lists n's edges in the categories of mask that match q.
func (g *graph) dependencies(n nodeID, mask Category, q DependencyQuery) []Dependency {
	node := g.node(n)
	var out []Dependency
	for i, c := range categories {
		if mask&c == 0 {
			continue
		}
		for _, e := range node.deps[i] {
			if c != CategorySearchableName && !q.Matches(e.props) {
				continue
			}
			out = append(out, Dependency{Identifier: g.nodes[e.to].id, Category: c, Properties: e.props})
		}
	}
	return out
}

// referencers lists nodes depending on n through a matching edge.
func (g *graph) referencers(n nodeID, mask Category, q DependencyQuery) []Dependency {
	var out []Dependency
	for _, r := range g.node(n).refs {
		src := g.node(r)
		for i, c := range categories {
			if mask&c == 0 {
				continue
			}
			for _, e := range src.deps[i] {
				if e.to != n || (c != CategorySearchableName && !q.Matches(e.props)) {
					continue
				}
				out = append(out, Dependency{Identifier: src.id, Category: c, Properties: e.props})
			}
		}
	}
	return out
}
