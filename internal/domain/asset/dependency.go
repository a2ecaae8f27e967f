package asset

import (
	"github.com/google/uuid"

	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

// PackageData is per-package disk metadata.
type PackageData struct {
	DiskSize    int64
	PackageGuid uuid.UUID
}

// PackageIndex references an object table entry: positive values are
// export i+1, negative values are import -(i+1), zero is null.
type PackageIndex int32

// IsNull reports whether the index references nothing.
func (p PackageIndex) IsNull() bool { return p == 0 }

// IsImport reports whether the index references an import.
func (p PackageIndex) IsImport() bool { return p < 0 }

// IsExport reports whether the index references an export.
func (p PackageIndex) IsExport() bool { return p > 0 }

// ImportSlot returns the import table slot.
func (p PackageIndex) ImportSlot() int { return int(-p) - 1 }

// ExportSlot returns the export table slot.
func (p PackageIndex) ExportSlot() int { return int(p) - 1 }

// ImportIndex returns the index of import slot i.
func ImportIndex(i int) PackageIndex { return PackageIndex(-(i + 1)) }

// ExportIndex returns the index of export slot i.
func ExportIndex(i int) PackageIndex { return PackageIndex(i + 1) }

// ObjectImport is one import table entry. Top-level imports (null outer)
// are packages.
type ObjectImport struct {
	ClassPackage names.Name
	ClassName    names.Name
	OuterIndex   PackageIndex
	ObjectName   names.Name
}

// ObjectExport is one export table entry.
type ObjectExport struct {
	ClassIndex PackageIndex
	OuterIndex PackageIndex
	ObjectName names.Name
}

// SearchableNameEntry lists names searchable through one object.
type SearchableNameEntry struct {
	Object PackageIndex
	Names  []names.Name
}

// DependencyRecord holds the dependency data read from one package.
// ImportUsedInGame and SoftPackageUsedInGame run parallel to their lists.
type DependencyRecord struct {
	PackageName           names.Name
	PackageData           PackageData
	Imports               []ObjectImport
	ImportUsedInGame      []bool
	SoftPackageReferences []names.Name
	SoftPackageUsedInGame []bool
	SearchableNames       []SearchableNameEntry
}

// ImportPackageName walks import i's outer chain to its package.
func (d *DependencyRecord) ImportPackageName(i int) (names.Name, bool) {
	for steps := 0; steps <= len(d.Imports); steps++ {
		if i < 0 || i >= len(d.Imports) {
			return names.None, false
		}
		imp := d.Imports[i]
		if imp.OuterIndex.IsNull() {
			return imp.ObjectName, true
		}
		if !imp.OuterIndex.IsImport() {
			return names.None, false
		}
		i = imp.OuterIndex.ImportSlot()
	}
	return names.None, false
}

// ImportUsedInGameAt reports the used-in-game flag of import i, true when unknown.
func (d *DependencyRecord) ImportUsedInGameAt(i int) bool {
	if i < len(d.ImportUsedInGame) {
		return d.ImportUsedInGame[i]
	}
	return true
}

// SoftUsedInGameAt reports the used-in-game flag of soft reference i, true when unknown.
func (d *DependencyRecord) SoftUsedInGameAt(i int) bool {
	if i < len(d.SoftPackageUsedInGame) {
		return d.SoftPackageUsedInGame[i]
	}
	return true
}

// MarkAllImportsUsedInGame sets every import's used-in-game flag.
func (d *DependencyRecord) MarkAllImportsUsedInGame() {
	d.ImportUsedInGame = make([]bool, len(d.Imports))
	for i := range d.ImportUsedInGame {
		d.ImportUsedInGame[i] = true
	}
}
