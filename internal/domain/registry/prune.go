package registry

import (
	"slices"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

// InitializationMode selects how InitializeFromExisting merges.
type InitializationMode int

const (
	// Rebuild resets the state first.
	Rebuild InitializationMode = iota
	// Append adds records, package data and nodes to the current content.
	Append
	// OnlyUpdateExisting refreshes the tags of records already present.
	OnlyUpdateExisting
)

// PruneFilter selects the records that survive a prune. Empty sets disable
// their clause.
type PruneFilter struct {
	RequiredPackages names.Set
	RemovePackages   names.Set
	ChunksToKeep     []int32
}

// verdict decides whether a record goes and whether its package keeps its
// dependency node.
func (f PruneFilter) verdict(a *asset.AssetData, opts *SerializationOptions) (remove, keepDependencies bool) {
	switch {
	case len(f.ChunksToKeep) > 0 && !slices.ContainsFunc(f.ChunksToKeep, a.HasChunk):
		return true, false
	case len(f.RequiredPackages) > 0 && !f.RequiredPackages.Contains(a.PackageName):
		return true, false
	case len(f.RemovePackages) > 0 && f.RemovePackages.Contains(a.PackageName):
		return true, false
	case opts.FilterAssetDataWithNoTags && a.Tags.IsEmpty() && !paths.IsLocalizedPackage(a.PackageName.String()):
		return true, !opts.FilterDependenciesWithNoTags
	}
	return false, false
}

// Prune removes the records rejected by f, then drops dependency nodes
// that no longer belong: searchable names when filtered, and packages left
// without records. A dropped package node loses its outgoing edges but
// survives while anything still references it. Nodes left with no edges
// at all are collected.
func (s *State) Prune(f PruneFilter, opts SerializationOptions) {
	requiredNodes := names.Set{}

	for _, a := range s.sortedAssets() {
		remove, keepDependencies := f.verdict(a, &opts)
		if !remove {
			continue
		}
		pkg := a.PackageName
		s.RemoveRecord(a.ObjectPath, false)
		if keepDependencies {
			requiredNodes.Add(pkg)
		}
	}

	var doomed []nodeID
	for _, n := range s.graph.liveNodes() {
		id := s.graph.node(n).id
		switch {
		case opts.FilterSearchableNames && id.IsValue():
			doomed = append(doomed, n)
		case s.packageWithoutRecords(id, requiredNodes):
			s.graph.clearDependencies(n, CategoryAll)
		}
	}
	for _, n := range doomed {
		s.graph.remove(n)
	}

	s.collectOrphans()
	s.graph.sortAll()
}

func (s *State) packageWithoutRecords(id asset.AssetIdentifier, required names.Set) bool {
	if !id.IsPackage() {
		return false
	}
	_, hasRecords := s.byPackageName[id.PackageName]
	return !hasRecords && !required.Contains(id.PackageName) && !isScriptPackage(id.PackageName)
}

// collectOrphans removes nodes without dependencies or referencers. Script
// packages keep their nodes.
func (s *State) collectOrphans() {
	for _, n := range s.graph.liveNodes() {
		id := s.graph.node(n).id
		if s.graph.connectionCount(n) == 0 && !(id.IsPackage() && isScriptPackage(id.PackageName)) {
			s.graph.remove(n)
		}
	}
}

// InitializeFromExisting copies other into s, applying the tag filters of
// opts to every copied record.
func (s *State) InitializeFromExisting(other *State, opts SerializationOptions, mode InitializationMode) {
	if mode == Rebuild {
		s.Reset()
	}

	for _, a := range other.sortedAssets() {
		tags := opts.FilterTags(a.AssetClass, a.Tags)
		if mode == OnlyUpdateExisting {
			existing, ok := s.byObjectPath[a.ObjectPath]
			if !ok || existing.Tags.Equal(tags) {
				continue
			}
			updated := existing.Clone()
			updated.Tags = tags
			s.UpdateRecord(updated)
			continue
		}
		c := a.Clone()
		c.Tags = tags
		s.AddRecord(c)
	}
	if mode == OnlyUpdateExisting {
		return
	}

	for pkg, d := range other.packageData {
		if isScriptPackage(pkg) || len(s.byPackageName[pkg]) > 0 {
			*s.CreateOrGetAssetPackageData(pkg) = *d
		}
	}

	s.copyGraph(other, func(asset.AssetIdentifier) bool { return true })
}

// InitializeFromExistingAndPrune builds s as the pruned, tag-filtered copy
// of other.
func (s *State) InitializeFromExistingAndPrune(other *State, f PruneFilter, opts SerializationOptions) {
	s.Reset()
	requiredNodes := names.Set{}

	for _, a := range other.sortedAssets() {
		remove, keepDependencies := f.verdict(a, &opts)
		if remove {
			if keepDependencies {
				requiredNodes.Add(a.PackageName)
			}
			continue
		}
		c := a.Clone()
		c.Tags = opts.FilterTags(a.AssetClass, a.Tags)
		s.AddRecord(c)
	}

	for pkg, d := range other.packageData {
		if isScriptPackage(pkg) || len(s.byPackageName[pkg]) > 0 {
			*s.CreateOrGetAssetPackageData(pkg) = *d
		}
	}

	s.copyGraph(other, func(id asset.AssetIdentifier) bool {
		if opts.FilterSearchableNames && id.IsValue() {
			return false
		}
		return !s.packageWithoutRecords(id, requiredNodes)
	})
	s.collectOrphans()
}

// copyGraph duplicates the nodes of other accepted by keep, with the edges
// between them.
func (s *State) copyGraph(other *State, keep func(asset.AssetIdentifier) bool) {
	g := other.graph
	valid := make(map[nodeID]nodeID, g.len())
	for _, n := range g.liveNodes() {
		if id := g.node(n).id; keep(id) {
			valid[n] = s.graph.createOrFind(id)
		}
	}
	for old, fresh := range valid {
		for i, c := range categories {
			for _, e := range g.node(old).deps[i] {
				if to, ok := valid[e.to]; ok {
					s.graph.addDependency(fresh, to, c, e.props)
				}
			}
		}
	}
	s.graph.sortAll()
}
