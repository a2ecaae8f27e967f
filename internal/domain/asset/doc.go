// Package asset defines the records exchanged between the header reader, the
// discovery cache and the registry state.
//
// Components:
//   - AssetData: one discoverable object inside a package, with class, tags,
//     chunk membership and package flags
//   - TagMap: immutable tag container, either loose (pairs stored inline) or
//     fixed (handles into a deduplicated FixedTagStore)
//   - PackageData: per-package disk metadata
//   - AssetIdentifier: key of a dependency graph node
//   - DependencyRecord: imports, soft references and searchable names read
//     from one package header
//
// Loose and fixed tag maps holding the same pairs compare equal.
//
// Example Usage:
//
//	tags := asset.TagMapFromStrings(map[string]string{"Color": "Red"})
//	a := asset.NewAssetData("/Game/A", "A", "Foo", tags)
//	fmt.Println(a.ObjectPath) // /Game/A.A
package asset
