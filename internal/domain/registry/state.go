package registry

import (
	"slices"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/logging"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

// Script packages whose imports are too common to be worth an edge.
var skippedImportPackages = names.NewSet("/Script/CoreUObject", "/Script/Engine")

// State is the queryable asset index and dependency graph. It is not safe
// for concurrent use; Registry adds locking.
type State struct {
	logger *zap.Logger

	byObjectPath  map[names.Name]*asset.AssetData
	byPackageName map[names.Name][]*asset.AssetData
	byPath        map[names.Name][]*asset.AssetData
	byClass       map[names.Name][]*asset.AssetData
	byTag         map[names.Name][]*asset.AssetData

	graph       *graph
	packageData map[names.Name]*asset.PackageData

	global GlobalFilter
}

// NewState creates an empty state. A nil logger discards output.
func NewState(logger *zap.Logger) *State {
	s := &State{logger: logging.OrNop(logger)}
	s.Reset()
	return s
}

// Reset drops every record, node and package data entry.
func (s *State) Reset() {
	s.byObjectPath = make(map[names.Name]*asset.AssetData)
	s.byPackageName = make(map[names.Name][]*asset.AssetData)
	s.byPath = make(map[names.Name][]*asset.AssetData)
	s.byClass = make(map[names.Name][]*asset.AssetData)
	s.byTag = make(map[names.Name][]*asset.AssetData)
	s.graph = newGraph()
	s.packageData = make(map[names.Name]*asset.PackageData)
}

// NumAssets returns the number of records.
func (s *State) NumAssets() int { return len(s.byObjectPath) }

// NumDependsNodes returns the number of graph nodes.
func (s *State) NumDependsNodes() int { return s.graph.len() }

// NumPackageData returns the number of package data entries.
func (s *State) NumPackageData() int { return len(s.packageData) }

// AddRecord indexes a new record. A record whose object path is already
// present is dropped and the existing one kept.
func (s *State) AddRecord(a *asset.AssetData) bool {
	if _, exists := s.byObjectPath[a.ObjectPath]; exists {
		s.logger.Error("Asset already exists in registry",
			zap.Stringer("object_path", a.ObjectPath),
			zap.Stringer("package", a.PackageName))
		return false
	}
	s.byObjectPath[a.ObjectPath] = a
	s.byPackageName[a.PackageName] = append(s.byPackageName[a.PackageName], a)
	s.byPath[a.PackagePath] = append(s.byPath[a.PackagePath], a)
	s.byClass[a.AssetClass] = append(s.byClass[a.AssetClass], a)
	a.Tags.Range(func(p asset.TagPair) bool {
		s.byTag[p.Key] = append(s.byTag[p.Key], a)
		return true
	})
	return true
}

// UpdateRecord overwrites the record at updated.ObjectPath in place,
// moving it between secondary index buckets as needed.
func (s *State) UpdateRecord(updated *asset.AssetData) bool {
	existing, ok := s.byObjectPath[updated.ObjectPath]
	if !ok {
		s.logger.Error("Cannot update unknown asset",
			zap.Stringer("object_path", updated.ObjectPath),
			zap.Stringer("package", updated.PackageName))
		return false
	}

	if existing.PackageName != updated.PackageName {
		relink(s.byPackageName, existing.PackageName, updated.PackageName, existing)
	}
	if existing.PackagePath != updated.PackagePath {
		relink(s.byPath, existing.PackagePath, updated.PackagePath, existing)
	}
	if existing.AssetClass != updated.AssetClass {
		relink(s.byClass, existing.AssetClass, updated.AssetClass, existing)
	}
	existing.Tags.Range(func(p asset.TagPair) bool {
		if !updated.Tags.Contains(p.Key) {
			unlink(s.byTag, p.Key, existing)
		}
		return true
	})
	updated.Tags.Range(func(p asset.TagPair) bool {
		if !existing.Tags.Contains(p.Key) {
			s.byTag[p.Key] = append(s.byTag[p.Key], existing)
		}
		return true
	})

	*existing = *updated.Clone()
	return true
}

func relink(index map[names.Name][]*asset.AssetData, from, to names.Name, a *asset.AssetData) {
	unlink(index, from, a)
	index[to] = append(index[to], a)
}

func unlink(index map[names.Name][]*asset.AssetData, key names.Name, a *asset.AssetData) {
	list := index[key]
	if i := slices.Index(list, a); i >= 0 {
		list[i] = list[len(list)-1]
		list = list[:len(list)-1]
	}
	if len(list) == 0 {
		delete(index, key)
		return
	}
	index[key] = list
}

// RemoveRecord removes the record at objectPath from every index. When it
// was the last record of its package the package data goes too, and with
// removeDependencyData so does the package's dependency node.
func (s *State) RemoveRecord(objectPath names.Name, removeDependencyData bool) (removedRecord, removedPackageData bool) {
	a, ok := s.byObjectPath[objectPath]
	if !ok {
		s.logger.Error("Cannot remove unknown asset", zap.Stringer("object_path", objectPath))
		return false, false
	}

	delete(s.byObjectPath, objectPath)
	unlink(s.byPackageName, a.PackageName, a)
	unlink(s.byPath, a.PackagePath, a)
	unlink(s.byClass, a.AssetClass, a)
	a.Tags.Range(func(p asset.TagPair) bool {
		unlink(s.byTag, p.Key, a)
		return true
	})

	if _, more := s.byPackageName[a.PackageName]; !more {
		if removeDependencyData {
			s.RemoveDependsNode(asset.PackageIdentifier(a.PackageName))
		}
		s.RemovePackageData(a.PackageName)
		removedPackageData = true
	}
	return true, removedPackageData
}

// AssetByObjectPath returns the record at objectPath.
func (s *State) AssetByObjectPath(objectPath names.Name) (*asset.AssetData, bool) {
	a, ok := s.byObjectPath[objectPath]
	return a, ok
}

// AssetsByPackageName returns the records of one package.
func (s *State) AssetsByPackageName(packageName names.Name) []*asset.AssetData {
	return slices.Clone(s.byPackageName[packageName])
}

// HasAssets reports whether any record lives directly in packagePath.
func (s *State) HasAssets(packagePath names.Name) bool {
	return len(s.byPath[packagePath]) > 0
}

// StripTagForObject removes one tag from a record.
func (s *State) StripTagForObject(objectPath, key names.Name) {
	a, ok := s.byObjectPath[objectPath]
	if !ok || !a.Tags.Contains(key) {
		return
	}
	unlink(s.byTag, key, a)
	a.Tags = a.Tags.Without(key)
}

// GetAssetPackageData returns the package data for packageName.
func (s *State) GetAssetPackageData(packageName names.Name) (asset.PackageData, bool) {
	d, ok := s.packageData[packageName]
	if !ok {
		return asset.PackageData{}, false
	}
	return *d, true
}

// CreateOrGetAssetPackageData returns the mutable package data for
// packageName, creating it when missing.
func (s *State) CreateOrGetAssetPackageData(packageName names.Name) *asset.PackageData {
	if d, ok := s.packageData[packageName]; ok {
		return d
	}
	d := &asset.PackageData{}
	s.packageData[packageName] = d
	return d
}

// RemovePackageData drops the package data for packageName.
func (s *State) RemovePackageData(packageName names.Name) bool {
	if _, ok := s.packageData[packageName]; !ok {
		return false
	}
	delete(s.packageData, packageName)
	return true
}

// DependsNode is a read-only view of one graph node. It is invalid once the
// node is removed.
type DependsNode struct {
	g  *graph
	id nodeID
}

// Identifier returns the node key.
func (n DependsNode) Identifier() asset.AssetIdentifier { return n.g.node(n.id).id }

// ConnectionCount counts dependencies and referencers.
func (n DependsNode) ConnectionCount() int { return n.g.connectionCount(n.id) }

// Dependencies lists outgoing edges in the categories of mask matching q.
func (n DependsNode) Dependencies(mask Category, q DependencyQuery) []Dependency {
	return n.g.dependencies(n.id, mask, q)
}

// Referencers lists incoming edges in the categories of mask matching q.
func (n DependsNode) Referencers(mask Category, q DependencyQuery) []Dependency {
	return n.g.referencers(n.id, mask, q)
}

// FindDependsNode returns the node for id.
func (s *State) FindDependsNode(id asset.AssetIdentifier) (DependsNode, bool) {
	n, ok := s.graph.find(id)
	if !ok {
		return DependsNode{}, false
	}
	return DependsNode{g: s.graph, id: n}, true
}

// CreateOrFindDependsNode returns the node for id, creating it when missing.
func (s *State) CreateOrFindDependsNode(id asset.AssetIdentifier) DependsNode {
	return DependsNode{g: s.graph, id: s.graph.createOrFind(id)}
}

// RemoveDependsNode unlinks the node for id from every partner and drops it.
func (s *State) RemoveDependsNode(id asset.AssetIdentifier) bool {
	n, ok := s.graph.find(id)
	if !ok {
		return false
	}
	s.graph.remove(n)
	return true
}

// AddDependency links from -> to, creating both nodes as needed.
func (s *State) AddDependency(from, to asset.AssetIdentifier, c Category, props Property) {
	src := s.graph.createOrFind(from)
	dst := s.graph.createOrFind(to)
	s.graph.addDependency(src, dst, c, props)
}

// GetDependencies lists the dependencies of id. The bool reports whether
// the node exists.
func (s *State) GetDependencies(id asset.AssetIdentifier, mask Category, q DependencyQuery) ([]asset.AssetIdentifier, bool) {
	n, ok := s.graph.find(id)
	if !ok {
		return nil, false
	}
	return identifiers(s.graph.dependencies(n, mask, q)), true
}

// GetReferencers lists the nodes referencing id.
func (s *State) GetReferencers(id asset.AssetIdentifier, mask Category, q DependencyQuery) ([]asset.AssetIdentifier, bool) {
	n, ok := s.graph.find(id)
	if !ok {
		return nil, false
	}
	return identifiers(s.graph.referencers(n, mask, q)), true
}

func identifiers(deps []Dependency) []asset.AssetIdentifier {
	seen := make(map[asset.AssetIdentifier]bool, len(deps))
	out := make([]asset.AssetIdentifier, 0, len(deps))
	for _, d := range deps {
		if !seen[d.Identifier] {
			seen[d.Identifier] = true
			out = append(out, d.Identifier)
		}
	}
	slices.SortFunc(out, asset.CompareIdentifiers)
	return out
}

// AddDependencyData replaces the package's outgoing edges with those in
// rec and refreshes its package data.
func (s *State) AddDependencyData(rec *asset.DependencyRecord) {
	if rec == nil || rec.PackageName.IsNone() {
		return
	}
	*s.CreateOrGetAssetPackageData(rec.PackageName) = rec.PackageData

	self := s.graph.createOrFind(asset.PackageIdentifier(rec.PackageName))
	s.graph.clearDependencies(self, CategoryAll)

	for i := range rec.Imports {
		pkg, ok := rec.ImportPackageName(i)
		if !ok || pkg == rec.PackageName || skippedImportPackages.Contains(pkg) {
			continue
		}
		props := PropertyHard | PropertyBuild
		if rec.ImportUsedInGameAt(i) {
			props |= PropertyGame
		}
		s.graph.addDependency(self, s.graph.createOrFind(asset.PackageIdentifier(pkg)), CategoryPackage, props)
	}
	for i, pkg := range rec.SoftPackageReferences {
		if pkg.IsNone() || pkg == rec.PackageName {
			continue
		}
		props := PropertyBuild
		if rec.SoftUsedInGameAt(i) {
			props |= PropertyGame
		}
		s.graph.addDependency(self, s.graph.createOrFind(asset.PackageIdentifier(pkg)), CategoryPackage, props)
	}
	for _, entry := range rec.SearchableNames {
		if !entry.Object.IsImport() {
			continue
		}
		slot := entry.Object.ImportSlot()
		if slot >= len(rec.Imports) {
			continue
		}
		pkg, ok := rec.ImportPackageName(slot)
		if !ok {
			continue
		}
		object := rec.Imports[slot].ObjectName
		for _, value := range entry.Names {
			target := s.graph.createOrFind(asset.ValueIdentifier(pkg, object, value))
			s.graph.addDependency(self, target, CategorySearchableName, PropertyNone)
		}
	}
}

// isScriptPackage reports whether name is a code package.
func isScriptPackage(name names.Name) bool {
	return paths.IsScriptPackage(name.String())
}
