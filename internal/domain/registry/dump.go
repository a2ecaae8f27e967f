package registry

import (
	"bufio"
	"fmt"
	"io"
	"slices"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

// DumpOptions selects the sections Dump writes.
type DumpOptions struct {
	ObjectPath        bool
	PackageName       bool
	Path              bool
	Class             bool
	Tag               bool
	Dependencies      bool
	DependencyDetails bool
	PackageData       bool
}

// DumpAll enables every section.
func DumpAll() DumpOptions {
	return DumpOptions{
		ObjectPath:        true,
		PackageName:       true,
		Path:              true,
		Class:             true,
		Tag:               true,
		DependencyDetails: true,
		PackageData:       true,
	}
}

// ParseDumpSections enables the named sections, for example "ObjectPath".
func ParseDumpSections(sections []string) (DumpOptions, error) {
	var o DumpOptions
	for _, s := range sections {
		switch s {
		case "All":
			o = DumpAll()
		case "ObjectPath":
			o.ObjectPath = true
		case "PackageName":
			o.PackageName = true
		case "Path":
			o.Path = true
		case "Class":
			o.Class = true
		case "Tag":
			o.Tag = true
		case "Dependencies":
			o.Dependencies = true
		case "DependencyDetails":
			o.DependencyDetails = true
		case "PackageData":
			o.PackageData = true
		default:
			return o, fmt.Errorf("unknown dump section %q", s)
		}
	}
	return o, nil
}

// Dump writes a sorted, diffable text rendering of the state.
func (s *State) Dump(out io.Writer, o DumpOptions) error {
	w := bufio.NewWriter(out)

	if o.ObjectPath {
		fmt.Fprintln(w, "--- Begin CachedAssetsByObjectPath ---")
		for _, a := range s.sortedAssets() {
			fmt.Fprintf(w, "\t%s\n", a.ObjectPath)
		}
		fmt.Fprintf(w, "--- End CachedAssetsByObjectPath : %d entries ---\n", len(s.byObjectPath))
	}
	if o.PackageName {
		dumpIndex(w, "CachedAssetsByPackageName", s.byPackageName)
	}
	if o.Path {
		dumpIndex(w, "CachedAssetsByPath", s.byPath)
	}
	if o.Class {
		dumpIndex(w, "CachedAssetsByClass", s.byClass)
	}
	if o.Tag {
		dumpIndex(w, "CachedAssetsByTag", s.byTag)
	}

	if o.Dependencies || o.DependencyDetails {
		nodes := s.graph.liveNodes()
		fmt.Fprintln(w, "--- Begin CachedDependsNodes ---")
		for _, n := range nodes {
			node := s.graph.node(n)
			if !o.DependencyDetails {
				fmt.Fprintf(w, "\t%s : %d connection(s)\n", node.id, s.graph.connectionCount(n))
				continue
			}
			fmt.Fprintf(w, "\t%s\n", node.id)
			deps := s.graph.dependencies(n, CategoryAll, DependencyQuery{})
			slices.SortStableFunc(deps, compareDependencies)
			fmt.Fprintln(w, "\t\tDependencies")
			for _, d := range deps {
				fmt.Fprintf(w, "\t\t\t%s\t{%s: %s}\n", d.Identifier, d.Category, d.Properties)
			}
			refs := s.graph.referencers(n, CategoryAll, DependencyQuery{})
			slices.SortStableFunc(refs, compareDependencies)
			fmt.Fprintln(w, "\t\tReferencers")
			for _, r := range refs {
				fmt.Fprintf(w, "\t\t\t%s\t{%s: %s}\n", r.Identifier, r.Category, r.Properties)
			}
		}
		fmt.Fprintf(w, "--- End CachedDependsNodes : %d entries ---\n", len(nodes))
	}

	if o.PackageData {
		keys := make([]names.Name, 0, len(s.packageData))
		for k := range s.packageData {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, names.Compare)
		fmt.Fprintln(w, "--- Begin CachedPackageData ---")
		for _, k := range keys {
			d := s.packageData[k]
			fmt.Fprintf(w, "\t%s : %d bytes, guid %s\n", k, d.DiskSize, d.PackageGuid)
		}
		fmt.Fprintf(w, "--- End CachedPackageData : %d entries ---\n", len(keys))
	}
	return w.Flush()
}

func dumpIndex(w io.Writer, title string, index map[names.Name][]*asset.AssetData) {
	fmt.Fprintf(w, "--- Begin %s ---\n", title)
	keys := make([]names.Name, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, names.Compare)

	valid := 0
	for _, k := range keys {
		items := slices.Clone(index[k])
		if len(items) == 0 {
			continue
		}
		valid++
		sortByObjectPath(items)
		fmt.Fprintf(w, "\t%s : %d item(s)\n", k, len(items))
		for _, a := range items {
			fmt.Fprintf(w, "\t %s\n", a.ObjectPath)
		}
	}
	fmt.Fprintf(w, "--- End %s : %d entries ---\n", title, valid)
}

func compareDependencies(a, b Dependency) int {
	if a.Category != b.Category {
		return int(a.Category) - int(b.Category)
	}
	return asset.CompareIdentifiers(a.Identifier, b.Identifier)
}
