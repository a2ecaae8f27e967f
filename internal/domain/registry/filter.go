package registry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

// TagFilter matches records carrying Key, and when HasValue is set, the
// value Value.
type TagFilter struct {
	Key      names.Name
	Value    string
	HasValue bool
}

// Filter is a conjunction of clauses. Each non-empty clause selects a
// candidate set; a record must be in every one.
type Filter struct {
	PackageNames []names.Name
	PackagePaths []names.Name
	ClassNames   []names.Name
	ObjectPaths  []names.Name
	Tags         []TagFilter

	// RecursivePaths also matches records below each package path.
	RecursivePaths bool

	WithPackageFlags    asset.PackageFlags
	WithoutPackageFlags asset.PackageFlags
}

// IsEmpty reports whether no clause is set. Package flag masks alone do not
// make a filter.
func (f Filter) IsEmpty() bool {
	return len(f.PackageNames) == 0 && len(f.PackagePaths) == 0 &&
		len(f.ClassNames) == 0 && len(f.ObjectPaths) == 0 && len(f.Tags) == 0
}

// GlobalFilter hides records from every enumeration. Class entries are
// doublestar patterns, so "*" hides every class and "Editor*" a family.
type GlobalFilter struct {
	ExcludedClasses      []string
	ExcludedPackageFlags asset.PackageFlags
}

// IsEmpty reports whether the filter hides nothing.
func (g GlobalFilter) IsEmpty() bool {
	return len(g.ExcludedClasses) == 0 && g.ExcludedPackageFlags == 0
}

func (g GlobalFilter) excludes(a *asset.AssetData) bool {
	if a.HasAnyPackageFlags(g.ExcludedPackageFlags) {
		return true
	}
	if len(g.ExcludedClasses) == 0 {
		return false
	}
	class := a.AssetClass.String()
	for _, pattern := range g.ExcludedClasses {
		if ok, _ := doublestar.Match(pattern, class); ok {
			return true
		}
	}
	return false
}

// Validate checks every class pattern.
func (g GlobalFilter) Validate() error {
	for _, pattern := range g.ExcludedClasses {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid class pattern %q", pattern)
		}
	}
	return nil
}

// SetGlobalFilter replaces the filter applied to every enumeration. Records
// stay indexed and are still saved, pruned and dumped.
func (s *State) SetGlobalFilter(g GlobalFilter) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.global = g
	return nil
}

// GlobalFilter returns the filter applied to every enumeration.
func (s *State) GlobalFilter() GlobalFilter { return s.global }

type candidateSet map[*asset.AssetData]struct{}

func (c candidateSet) addAll(list []*asset.AssetData) {
	for _, a := range list {
		c[a] = struct{}{}
	}
}

// packagePaths expands the filter paths, adding sub-paths when recursive.
func (s *State) packagePaths(f Filter) []names.Name {
	if !f.RecursivePaths {
		return f.PackagePaths
	}
	out := slices.Clone(f.PackagePaths)
	for path := range s.byPath {
		text := path.String()
		for _, root := range f.PackagePaths {
			prefix := strings.TrimSuffix(root.String(), "/") + "/"
			if path != root && strings.HasPrefix(text, prefix) {
				out = append(out, path)
				break
			}
		}
	}
	return out
}

// EnumerateAssets streams the records matching f, minus those in packages
// listed in skip and those hidden by the global filter, to fn in object
// path order. fn returns false to stop.
// It returns false for an empty filter; use EnumerateAllAssets instead.
func (s *State) EnumerateAssets(f Filter, skip names.Set, fn func(*asset.AssetData) bool) bool {
	if f.IsEmpty() {
		return false
	}

	var sets []candidateSet
	if len(f.PackageNames) > 0 {
		set := candidateSet{}
		for _, n := range f.PackageNames {
			set.addAll(s.byPackageName[n])
		}
		sets = append(sets, set)
	}
	if len(f.PackagePaths) > 0 {
		set := candidateSet{}
		for _, p := range s.packagePaths(f) {
			set.addAll(s.byPath[p])
		}
		sets = append(sets, set)
	}
	if len(f.ClassNames) > 0 {
		set := candidateSet{}
		for _, c := range f.ClassNames {
			set.addAll(s.byClass[c])
		}
		sets = append(sets, set)
	}
	if len(f.ObjectPaths) > 0 {
		set := candidateSet{}
		for _, p := range f.ObjectPaths {
			if a, ok := s.byObjectPath[p]; ok {
				set[a] = struct{}{}
			}
		}
		sets = append(sets, set)
	}
	if len(f.Tags) > 0 {
		set := candidateSet{}
		for _, t := range f.Tags {
			for _, a := range s.byTag[t.Key] {
				if !t.HasValue || a.Tags.ContainsKeyValue(t.Key, t.Value) {
					set[a] = struct{}{}
				}
			}
		}
		sets = append(sets, set)
	}

	// Intersect starting from the smallest set.
	slices.SortFunc(sets, func(a, b candidateSet) int { return len(a) - len(b) })
	matched := make([]*asset.AssetData, 0, len(sets[0]))
	for a := range sets[0] {
		keep := true
		for _, other := range sets[1:] {
			if _, ok := other[a]; !ok {
				keep = false
				break
			}
		}
		if keep {
			matched = append(matched, a)
		}
	}
	sortByObjectPath(matched)

	for _, a := range matched {
		if skip.Contains(a.PackageName) || s.global.excludes(a) ||
			a.HasAnyPackageFlags(f.WithoutPackageFlags) ||
			!a.HasAllPackageFlags(f.WithPackageFlags) {
			continue
		}
		if !fn(a) {
			break
		}
	}
	return true
}

// EnumerateAllAssets streams every record not in a skipped package and not
// hidden by the global filter.
func (s *State) EnumerateAllAssets(skip names.Set, fn func(*asset.AssetData) bool) {
	for _, a := range s.sortedAssets() {
		if skip.Contains(a.PackageName) || s.global.excludes(a) {
			continue
		}
		if !fn(a) {
			return
		}
	}
}

// GetAssets returns copies of the records matching f.
func (s *State) GetAssets(f Filter, skip names.Set) ([]*asset.AssetData, bool) {
	var out []*asset.AssetData
	ok := s.EnumerateAssets(f, skip, func(a *asset.AssetData) bool {
		out = append(out, a.Clone())
		return true
	})
	return out, ok
}

// GetAllAssets returns copies of every record.
func (s *State) GetAllAssets(skip names.Set) []*asset.AssetData {
	out := make([]*asset.AssetData, 0, len(s.byObjectPath))
	s.EnumerateAllAssets(skip, func(a *asset.AssetData) bool {
		out = append(out, a.Clone())
		return true
	})
	return out
}

func (s *State) sortedAssets() []*asset.AssetData {
	all := make([]*asset.AssetData, 0, len(s.byObjectPath))
	for _, a := range s.byObjectPath {
		all = append(all, a)
	}
	sortByObjectPath(all)
	return all
}

func sortByObjectPath(list []*asset.AssetData) {
	slices.SortFunc(list, func(a, b *asset.AssetData) int {
		return names.Compare(a.ObjectPath, b.ObjectPath)
	})
}
