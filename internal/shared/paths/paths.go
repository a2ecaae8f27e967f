package paths

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Package name prefixes
const (
	ScriptRoot    = "/Script/"
	LocalizedPart = "/L10N/"
)

// InvalidPackageCharacters may not appear in a long package name.
const InvalidPackageCharacters = "\\:*?\"<>|' ,.&!~\n\r\t@#"

// Mount binds a local directory to a package root such as /Game.
type Mount struct {
	LocalPath   string
	PackageRoot string
}

// ParseMount parses "localDir=/Root". Without "=", the root is "/" plus the
// directory's base name.
func ParseMount(value string) (Mount, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Mount{}, fmt.Errorf("empty mount")
	}

	local, root, found := strings.Cut(value, "=")
	local = NormalizeLocal(local)
	if !found {
		root = "/" + filepath.Base(filepath.FromSlash(local))
	}
	root = NormalizePackagePath(root)
	if !strings.HasPrefix(root, "/") || root == "/" {
		return Mount{}, fmt.Errorf("mount %q: package root must look like /Name", value)
	}
	if ContainsInvalidCharacters(strings.TrimPrefix(root, "/")) {
		return Mount{}, fmt.Errorf("mount %q: package root has invalid characters", value)
	}

	return Mount{LocalPath: local, PackageRoot: root}, nil
}

// NormalizeLocal returns an absolute, forward-slash path without a trailing slash.
func NormalizeLocal(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	p = filepath.ToSlash(filepath.Clean(p))
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// NormalizePackagePath strips trailing slashes from a package path.
func NormalizePackagePath(p string) string {
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// IsParentPath reports whether child equals parent or lies beneath it.
func IsParentPath(parent, child string) bool {
	parent = strings.TrimSuffix(parent, "/")
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+"/")
}

// Contains reports whether the local path lies inside the mount.
func (m Mount) Contains(localPath string) bool {
	return IsParentPath(m.LocalPath, localPath)
}

// PackagePathFor maps a local directory inside the mount to its package path.
func (m Mount) PackagePathFor(localDir string) (string, bool) {
	if !m.Contains(localDir) {
		return "", false
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(localDir, m.LocalPath), "/")
	if rel == "" {
		return m.PackageRoot, true
	}
	return m.PackageRoot + "/" + rel, true
}

// PackageNameFor maps a local file inside the mount to its long package name.
func (m Mount) PackageNameFor(localFile string) (string, bool) {
	dir, file := filepath.ToSlash(filepath.Dir(localFile)), filepath.Base(localFile)
	pkgPath, ok := m.PackagePathFor(dir)
	if !ok {
		return "", false
	}
	base := strings.TrimSuffix(file, filepath.Ext(file))
	if base == "" {
		return "", false
	}
	return pkgPath + "/" + base, true
}

// FindMount returns the mount with the longest local path containing localPath.
func FindMount(mounts []Mount, localPath string) (Mount, bool) {
	best := -1
	for i, m := range mounts {
		if m.Contains(localPath) && (best < 0 || len(m.LocalPath) > len(mounts[best].LocalPath)) {
			best = i
		}
	}
	if best < 0 {
		return Mount{}, false
	}
	return mounts[best], true
}

// ContainsInvalidCharacters reports whether s has characters a package name may not carry.
func ContainsInvalidCharacters(s string) bool {
	return strings.ContainsAny(s, InvalidPackageCharacters)
}

// IsScriptPackage reports whether name is a code-defined package.
func IsScriptPackage(name string) bool {
	return strings.HasPrefix(name, ScriptRoot)
}

// IsLocalizedPackage reports whether name lives under a localization folder.
func IsLocalizedPackage(name string) bool {
	return strings.Contains(strings.ToUpper(name), LocalizedPart)
}

// PackagePath returns the directory part of a long package name.
func PackagePath(name string) string {
	i := strings.LastIndex(name, "/")
	if i <= 0 {
		return name
	}
	return name[:i]
}

// AssetName returns the leaf of a long package name.
func AssetName(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}

// ObjectPath joins a package name and an object name.
func ObjectPath(packageName, objectName string) string {
	return packageName + "." + objectName
}

// SplitObjectPath splits "/Game/A.A" into "/Game/A" and "A".
func SplitObjectPath(objectPath string) (string, string) {
	pkg, obj, found := strings.Cut(objectPath, ".")
	if !found {
		return objectPath, ""
	}
	return pkg, obj
}
