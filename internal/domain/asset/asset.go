package asset

import (
	"slices"

	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

// PackageFlags is the package flag bitmask stored in headers and records.
type PackageFlags uint32

const (
	FlagNone         PackageFlags = 0
	FlagEditorOnly   PackageFlags = 0x00000040
	FlagContainsMap  PackageFlags = 0x00020000
	FlagCompiledIn   PackageFlags = 0x00000010
	FlagRequiresL10N PackageFlags = 0x00080000
	// FlagFilterEditorOnly marks content saved with editor data stripped.
	FlagFilterEditorOnly PackageFlags = 0x80000000
)

// RedirectorClass is the class name of redirector assets.
const RedirectorClass = "ObjectRedirector"

var redirectorClass = names.Intern(RedirectorClass)

// AssetData describes one object inside a package.
type AssetData struct {
	ObjectPath   names.Name
	PackageName  names.Name
	PackagePath  names.Name
	AssetName    names.Name
	AssetClass   names.Name
	Tags         TagMap
	ChunkIDs     []int32
	PackageFlags PackageFlags
}

// NewAssetData builds a record, deriving the package path and object path.
func NewAssetData(packageName, assetName, assetClass string, tags TagMap) *AssetData {
	return &AssetData{
		ObjectPath:  names.Intern(paths.ObjectPath(packageName, assetName)),
		PackageName: names.Intern(packageName),
		PackagePath: names.Intern(paths.PackagePath(packageName)),
		AssetName:   names.Intern(assetName),
		AssetClass:  names.Intern(assetClass),
		Tags:        tags,
	}
}

// IsRedirector reports whether the asset is a redirector.
func (a *AssetData) IsRedirector() bool {
	return a.AssetClass == redirectorClass
}

// HasAnyPackageFlags reports whether any of flags is set.
func (a *AssetData) HasAnyPackageFlags(flags PackageFlags) bool {
	return a.PackageFlags&flags != 0
}

// HasAllPackageFlags reports whether every flag in flags is set.
func (a *AssetData) HasAllPackageFlags(flags PackageFlags) bool {
	return a.PackageFlags&flags == flags
}

// HasChunk reports chunk membership.
func (a *AssetData) HasChunk(chunk int32) bool {
	return slices.Contains(a.ChunkIDs, chunk)
}

// Clone returns a copy that shares the immutable tag map.
func (a *AssetData) Clone() *AssetData {
	c := *a
	c.ChunkIDs = slices.Clone(a.ChunkIDs)
	return &c
}

// Equal compares every field; chunk order is irrelevant.
func (a *AssetData) Equal(b *AssetData) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ObjectPath != b.ObjectPath || a.PackageName != b.PackageName ||
		a.PackagePath != b.PackagePath || a.AssetName != b.AssetName ||
		a.AssetClass != b.AssetClass || a.PackageFlags != b.PackageFlags {
		return false
	}
	if len(a.ChunkIDs) != len(b.ChunkIDs) {
		return false
	}
	ac, bc := slices.Clone(a.ChunkIDs), slices.Clone(b.ChunkIDs)
	slices.Sort(ac)
	slices.Sort(bc)
	return slices.Equal(ac, bc) && a.Tags.Equal(b.Tags)
}
