// Package paths maps between local content directories and long package names.
//
// Content lives on disk under mount directories. Each mount has a package
// root, so a file maps to a path-like package name:
//
//	/work/project/Content/Maps/Level.map   (local file)
//	/Game/Maps/Level                       (long package name)
//	/Game/Maps                             (package path)
//	/Game/Maps/Level.Level                 (object path of the main asset)
//
// # Usage
//
//	m, err := paths.ParseMount("Content=/Game")
//	name, ok := m.PackageNameFor("/work/project/Content/Maps/Level.map")
//	dir := paths.PackagePath(name) // /Game/Maps
//
//	if paths.IsScriptPackage(name) {
//	    // code-defined package, never on disk
//	}
package paths
