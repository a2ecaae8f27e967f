package asset

import (
	"cmp"

	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

// AssetIdentifier keys a dependency graph node. Exactly one shape is used:
// a package, a value inside a package (searchable name), or a primary asset.
type AssetIdentifier struct {
	PackageName      names.Name
	PrimaryAssetType names.Name
	ObjectName       names.Name
	ValueName        names.Name
}

// PackageIdentifier identifies a whole package.
func PackageIdentifier(pkg names.Name) AssetIdentifier {
	return AssetIdentifier{PackageName: pkg}
}

// ValueIdentifier identifies a searchable name inside a package.
func ValueIdentifier(pkg, object, value names.Name) AssetIdentifier {
	return AssetIdentifier{PackageName: pkg, ObjectName: object, ValueName: value}
}

// PrimaryAssetIdentifier identifies a primary asset grouping.
func PrimaryAssetIdentifier(assetType, assetName names.Name) AssetIdentifier {
	return AssetIdentifier{PrimaryAssetType: assetType, ObjectName: assetName}
}

// IsValid reports whether any field is set.
func (id AssetIdentifier) IsValid() bool {
	return id != AssetIdentifier{}
}

// IsPackage reports whether id names a whole package.
func (id AssetIdentifier) IsPackage() bool {
	return !id.PackageName.IsNone() && id.PrimaryAssetType.IsNone() &&
		id.ObjectName.IsNone() && id.ValueName.IsNone()
}

// IsValue reports whether id names a searchable value.
func (id AssetIdentifier) IsValue() bool {
	return !id.ValueName.IsNone()
}

// IsPrimaryAsset reports whether id names a primary asset.
func (id AssetIdentifier) IsPrimaryAsset() bool {
	return !id.PrimaryAssetType.IsNone()
}

// String renders "Type:Name", "/Pkg", "/Pkg.Object" or "/Pkg.Object::Value".
func (id AssetIdentifier) String() string {
	if id.IsPrimaryAsset() {
		return id.PrimaryAssetType.String() + ":" + id.ObjectName.String()
	}
	s := id.PackageName.String()
	if !id.ObjectName.IsNone() {
		s += "." + id.ObjectName.String()
	}
	if !id.ValueName.IsNone() {
		s += "::" + id.ValueName.String()
	}
	return s
}

// CompareIdentifiers orders identifiers lexically, field by field.
func CompareIdentifiers(a, b AssetIdentifier) int {
	return cmp.Or(
		names.Compare(a.PrimaryAssetType, b.PrimaryAssetType),
		names.Compare(a.PackageName, b.PackageName),
		names.Compare(a.ObjectName, b.ObjectName),
		names.Compare(a.ValueName, b.ValueName),
	)
}
