package main

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/domain/registry"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

// assetView is the JSON shape of one record.
type assetView struct {
	ObjectPath   string            `json:"object_path"`
	PackageName  string            `json:"package_name"`
	PackagePath  string            `json:"package_path"`
	AssetName    string            `json:"asset_name"`
	AssetClass   string            `json:"asset_class"`
	Tags         map[string]string `json:"tags,omitempty"`
	ChunkIDs     []int32           `json:"chunk_ids,omitempty"`
	PackageFlags uint32            `json:"package_flags,omitempty"`
}

func newAssetView(a *asset.AssetData) assetView {
	v := assetView{
		ObjectPath:   a.ObjectPath.String(),
		PackageName:  a.PackageName.String(),
		PackagePath:  a.PackagePath.String(),
		AssetName:    a.AssetName.String(),
		AssetClass:   a.AssetClass.String(),
		ChunkIDs:     a.ChunkIDs,
		PackageFlags: uint32(a.PackageFlags),
	}
	if !a.Tags.IsEmpty() {
		v.Tags = make(map[string]string, a.Tags.Len())
		for _, p := range a.Tags.Pairs() {
			v.Tags[p.Key.String()] = p.Value.String()
		}
	}
	return v
}

type queryResult struct {
	Assets       []assetView `json:"assets,omitempty"`
	Package      string      `json:"package,omitempty"`
	Dependencies []string    `json:"dependencies,omitempty"`
	Referencers  []string    `json:"referencers,omitempty"`
	Redirect     string      `json:"redirects_to,omitempty"`
}

type queryFlags struct {
	classes   []string
	packages  []string
	paths     []string
	objects   []string
	tags      []string
	recursive bool

	deps     string
	refs     string
	category string
	query    string
}

func newQueryCommand(a *app) *cobra.Command {
	f := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a snapshot and print JSON",
		Long: `Query a registry snapshot.

Record filters are combined: a record must match every given flag, and any
value within one flag. --deps and --refs list the dependency graph around a
package instead.`,
		Example: `  assetscan query --class StaticMesh --tag Color=Red
  assetscan query --path /Game/Maps --recursive
  assetscan query --deps /Game/Maps/Arena --flags hard,game`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.loadSnapshot()
			if err != nil {
				return err
			}
			res, err := runQuery(r, f)
			if err != nil {
				return err
			}
			data, err := sonic.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringSliceVar(&f.classes, "class", nil, "asset class names")
	flags.StringSliceVar(&f.packages, "package", nil, "package names")
	flags.StringSliceVar(&f.paths, "path", nil, "package paths")
	flags.StringSliceVar(&f.objects, "object", nil, "object paths")
	flags.StringArrayVar(&f.tags, "tag", nil, "tag key or key=value (repeatable)")
	flags.BoolVar(&f.recursive, "recursive", false, "include sub-paths of --path")
	flags.StringVar(&f.deps, "deps", "", "list dependencies of this package")
	flags.StringVar(&f.refs, "refs", "", "list referencers of this package")
	flags.StringVar(&f.category, "category", "all", "dependency categories: package, manage, searchablename, all")
	flags.StringVar(&f.query, "flags", "", "dependency property flags, e.g. hard,game")
	return cmd
}

func runQuery(r *registry.Registry, f *queryFlags) (*queryResult, error) {
	if f.deps != "" || f.refs != "" {
		return graphQuery(r, f)
	}

	filter := registry.Filter{
		ClassNames:     names.InternAll(f.classes...),
		PackageNames:   names.InternAll(f.packages...),
		PackagePaths:   names.InternAll(f.paths...),
		ObjectPaths:    names.InternAll(f.objects...),
		RecursivePaths: f.recursive,
	}
	for _, t := range f.tags {
		key, value, hasValue := strings.Cut(t, "=")
		filter.Tags = append(filter.Tags, registry.TagFilter{Key: names.Intern(key), Value: value, HasValue: hasValue})
	}

	var list []*asset.AssetData
	if filter.IsEmpty() {
		list = r.GetAllAssets()
	} else {
		list = r.GetAssets(filter)
	}
	res := &queryResult{Assets: make([]assetView, 0, len(list))}
	for _, a := range list {
		res.Assets = append(res.Assets, newAssetView(a))
	}
	return res, nil
}

func graphQuery(r *registry.Registry, f *queryFlags) (*queryResult, error) {
	category, ok := registry.ParseCategory(f.category)
	if !ok {
		return nil, fmt.Errorf("invalid category %q", f.category)
	}
	flags, ok := registry.ParseQueryFlags(f.query)
	if !ok {
		return nil, fmt.Errorf("invalid dependency flags %q", f.query)
	}
	q := registry.NewQuery(flags)

	pkg := f.deps
	lookup := r.GetDependencies
	if pkg == "" {
		pkg = f.refs
		lookup = r.GetReferencers
	}
	id := asset.PackageIdentifier(names.Intern(pkg))
	ids, found := lookup(id, category, q)
	if !found {
		return nil, fmt.Errorf("package %s is not in the dependency graph", pkg)
	}

	res := &queryResult{Package: pkg}
	list := make([]string, 0, len(ids))
	for _, id := range ids {
		list = append(list, id.String())
	}
	if f.deps != "" {
		res.Dependencies = list
	} else {
		res.Referencers = list
	}
	if target, ok := r.ResolveRedirector(id); ok && target != id {
		res.Redirect = target.String()
	}
	return res, nil
}
