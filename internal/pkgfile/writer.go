package pkgfile

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
)

// Import describes an import table entry by name.
type Import struct {
	ClassPackage string
	ClassName    string
	Outer        asset.PackageIndex
	ObjectName   string
	UsedInGame   bool
}

// Export describes an export table entry by name.
type Export struct {
	ClassIndex asset.PackageIndex
	Outer      asset.PackageIndex
	ObjectName string
}

// SoftReference is a soft package reference.
type SoftReference struct {
	PackageName string
	UsedInGame  bool
}

// SearchableNames lists names searchable through one object.
type SearchableNames struct {
	Object asset.PackageIndex
	Names  []string
}

// Tag is one metadata key/value.
type Tag struct {
	Key, Value string
}

// AssetEntry is one object in the metadata block.
type AssetEntry struct {
	ObjectName string
	ClassName  string
	Tags       []Tag
}

// Package describes the header content of a package file to write.
type Package struct {
	Version         int32
	CustomVersions  []CustomVersion
	Flags           asset.PackageFlags
	Guid            uuid.UUID
	Imports         []Import
	Exports         []Export
	SoftReferences  []SoftReference
	SearchableNames []SearchableNames
	Assets          []AssetEntry
}

// NewPackage returns a latest-version package with a random GUID.
func NewPackage() *Package {
	return &Package{Version: VersionLatest, Guid: uuid.New()}
}

// AddAsset appends an asset; tags are written in key order.
func (p *Package) AddAsset(objectName, className string, tags map[string]string) *Package {
	entry := AssetEntry{ObjectName: objectName, ClassName: className}
	for k, v := range tags {
		entry.Tags = append(entry.Tags, Tag{Key: k, Value: v})
	}
	slices.SortFunc(entry.Tags, func(a, b Tag) int { return cmp.Compare(a.Key, b.Key) })
	p.Assets = append(p.Assets, entry)
	return p
}

// AddPackageImport imports a whole package and returns its index.
func (p *Package) AddPackageImport(packageName string, usedInGame bool) asset.PackageIndex {
	return p.AddImport(Import{ClassPackage: "/Script/CoreUObject", ClassName: "Package", ObjectName: packageName, UsedInGame: usedInGame})
}

// AddImport appends an import and returns its index.
func (p *Package) AddImport(imp Import) asset.PackageIndex {
	p.Imports = append(p.Imports, imp)
	return asset.ImportIndex(len(p.Imports) - 1)
}

// AddExport appends an export and returns its index.
func (p *Package) AddExport(exp Export) asset.PackageIndex {
	p.Exports = append(p.Exports, exp)
	return asset.ExportIndex(len(p.Exports) - 1)
}

// AddSoftReference appends a soft package reference.
func (p *Package) AddSoftReference(packageName string, usedInGame bool) *Package {
	p.SoftReferences = append(p.SoftReferences, SoftReference{PackageName: packageName, UsedInGame: usedInGame})
	return p
}

// AddSearchableNames records names searchable through object.
func (p *Package) AddSearchableNames(object asset.PackageIndex, values ...string) *Package {
	p.SearchableNames = append(p.SearchableNames, SearchableNames{Object: object, Names: values})
	return p
}

// WriteFile encodes p to path, creating parent directories.
func WriteFile(path string, p *Package) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type encoder struct {
	buf   bytes.Buffer
	names map[string]int32
	table []string
}

func (e *encoder) nameIndex(s string) int32 {
	if i, ok := e.names[s]; ok {
		return i
	}
	i := int32(len(e.table))
	e.names[s] = i
	e.table = append(e.table, s)
	return i
}

func (e *encoder) u32(v uint32) { binary.Write(&e.buf, binary.LittleEndian, v) }
func (e *encoder) i32(v int32)  { binary.Write(&e.buf, binary.LittleEndian, v) }
func (e *encoder) i64(v int64)  { binary.Write(&e.buf, binary.LittleEndian, v) }
func (e *encoder) str(s string) {
	e.i32(int32(len(s)))
	e.buf.WriteString(s)
}
func (e *encoder) pos() int32 { return int32(e.buf.Len()) }

func (e *encoder) patch32(at int32, v int32) {
	binary.LittleEndian.PutUint32(e.buf.Bytes()[at:], uint32(v))
}

func (e *encoder) patch64(at int32, v int64) {
	binary.LittleEndian.PutUint64(e.buf.Bytes()[at:], uint64(v))
}

func writeBits(e *encoder, bits []bool) {
	e.i32(int32(len(bits)))
	for w := 0; w < (len(bits)+31)/32; w++ {
		var word uint32
		for b := 0; b < 32; b++ {
			if i := w*32 + b; i < len(bits) && bits[i] {
				word |= 1 << b
			}
		}
		e.u32(word)
	}
}

// Encode serializes p in the package file layout for p.Version.
func Encode(p *Package) ([]byte, error) {
	if p.Version < VersionInitial || p.Version > VersionLatest {
		return nil, fmt.Errorf("pkgfile: cannot encode version %d", p.Version)
	}
	e := &encoder{names: make(map[string]int32)}

	for _, imp := range p.Imports {
		e.nameIndex(imp.ClassPackage)
		e.nameIndex(imp.ClassName)
		e.nameIndex(imp.ObjectName)
	}
	for _, exp := range p.Exports {
		e.nameIndex(exp.ObjectName)
	}
	for _, ref := range p.SoftReferences {
		e.nameIndex(ref.PackageName)
	}
	for _, sn := range p.SearchableNames {
		for _, n := range sn.Names {
			e.nameIndex(n)
		}
	}

	e.u32(PackageFileTag)
	e.i32(p.Version)
	e.i32(int32(len(p.CustomVersions)))
	for _, cv := range p.CustomVersions {
		e.buf.Write(cv.Key[:])
		e.i32(cv.Version)
	}
	e.u32(uint32(p.Flags))
	e.buf.Write(p.Guid[:])

	// (count, offset) pairs, offsets patched once sections are placed
	pairs := e.pos()
	for i := 0; i < 5; i++ {
		e.i32(0)
		e.i32(0)
	}
	arOffset := int32(-1)
	if p.Version >= VersionAssetRegistry {
		arOffset = e.pos()
		e.i32(0)
	}

	section := func(slot int, count int) {
		e.patch32(pairs+int32(slot*8), int32(count))
		e.patch32(pairs+int32(slot*8)+4, e.pos())
	}

	section(0, len(e.table))
	for _, s := range e.table {
		e.str(s)
	}

	section(1, len(p.Imports))
	for _, imp := range p.Imports {
		e.i32(e.nameIndex(imp.ClassPackage))
		e.i32(e.nameIndex(imp.ClassName))
		e.i32(int32(imp.Outer))
		e.i32(e.nameIndex(imp.ObjectName))
	}

	section(2, len(p.Exports))
	for _, exp := range p.Exports {
		e.i32(int32(exp.ClassIndex))
		e.i32(int32(exp.Outer))
		e.i32(e.nameIndex(exp.ObjectName))
	}

	section(3, len(p.SoftReferences))
	for _, ref := range p.SoftReferences {
		e.i32(e.nameIndex(ref.PackageName))
	}

	section(4, len(p.SearchableNames))
	for _, sn := range p.SearchableNames {
		e.i32(int32(sn.Object))
		e.i32(int32(len(sn.Names)))
		for _, n := range sn.Names {
			e.i32(e.nameIndex(n))
		}
	}

	if arOffset < 0 {
		return e.buf.Bytes(), nil
	}

	e.patch32(arOffset, e.pos())
	depOffset := int32(-1)
	if p.Version >= VersionDependencyFlags {
		depOffset = e.pos()
		e.i64(0)
	}
	e.i32(int32(len(p.Assets)))
	for _, a := range p.Assets {
		e.str(a.ObjectName)
		e.str(a.ClassName)
		e.i32(int32(len(a.Tags)))
		for _, t := range a.Tags {
			e.str(t.Key)
			e.str(t.Value)
		}
	}

	if depOffset >= 0 {
		e.patch64(depOffset, int64(e.pos()))
		importBits := make([]bool, len(p.Imports))
		for i, imp := range p.Imports {
			importBits[i] = imp.UsedInGame
		}
		softBits := make([]bool, len(p.SoftReferences))
		for i, ref := range p.SoftReferences {
			softBits[i] = ref.UsedInGame
		}
		writeBits(e, importBits)
		writeBits(e, softBits)
	}
	return e.buf.Bytes(), nil
}
