package pkgfile

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
	"github.com/GriffinCanCode/assetregistry/internal/shared/paths"
)

// Minimum encoded sizes used to validate counts.
const (
	minNameSize       = 4
	importRecordSize  = 16
	exportRecordSize  = 12
	softRefSize       = 4
	minSearchableSize = 8
	minAssetSize      = 12
	minTagSize        = 8
)

// Summary is the fixed header at the start of a package file.
type Summary struct {
	FileVersion    int32
	CustomVersions []CustomVersion
	PackageFlags   asset.PackageFlags
	PackageGuid    uuid.UUID

	NameCount, NameOffset             int32
	ImportCount, ImportOffset         int32
	ExportCount, ExportOffset         int32
	SoftRefCount, SoftRefOffset       int32
	SearchableCount, SearchableOffset int32
	AssetRegistryOffset               int32
}

// Reader reads sections of one opened package file.
type Reader struct {
	f           *os.File
	size        int64
	packageName string
	summary     Summary
	names       []names.Name
}

// Open opens path and validates its summary against versions. packageName is
// the long package name the file maps to.
func Open(path, packageName string, versions *CustomVersions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoLoader, err)
	}
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNoLoader, path)
	}

	r := &Reader{f: f, size: info.Size(), packageName: packageName}
	if err := r.readSummary(versions); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Close releases the file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Summary returns the parsed header.
func (r *Reader) Summary() Summary { return r.summary }

// PackageName returns the long package name given to Open.
func (r *Reader) PackageName() string { return r.packageName }

// Size returns the file size in bytes.
func (r *Reader) Size() int64 { return r.size }

func (r *Reader) readSummary(versions *CustomVersions) error {
	c := newCursor(io.NewSectionReader(r.f, 0, r.size), r.size)
	if c.uint32() != PackageFileTag || c.err != nil {
		return ErrMalformedTag
	}

	s := &r.summary
	s.FileVersion = c.int32()
	if c.err != nil {
		return ErrMalformedTag
	}
	if s.FileVersion < VersionMinimum {
		return ErrVersionTooOld
	}
	if s.FileVersion > VersionLatest {
		return ErrVersionTooNew
	}

	n := c.count(20)
	for i := 0; i < n; i++ {
		s.CustomVersions = append(s.CustomVersions, CustomVersion{Key: uuid.UUID(c.guid()), Version: c.int32()})
	}
	if c.err != nil {
		return ErrMalformedTag
	}
	if err := versions.check(s.CustomVersions); err != nil {
		return err
	}

	s.PackageFlags = asset.PackageFlags(c.uint32())
	s.PackageGuid = uuid.UUID(c.guid())
	s.NameCount, s.NameOffset = c.int32(), c.int32()
	s.ImportCount, s.ImportOffset = c.int32(), c.int32()
	s.ExportCount, s.ExportOffset = c.int32(), c.int32()
	s.SoftRefCount, s.SoftRefOffset = c.int32(), c.int32()
	s.SearchableCount, s.SearchableOffset = c.int32(), c.int32()
	if s.FileVersion >= VersionAssetRegistry {
		s.AssetRegistryOffset = c.int32()
	}
	if c.err != nil {
		return ErrMalformedTag
	}
	return nil
}

// section seeks to offset after the bounds check 0 < offset <= size.
func (r *Reader) section(offset int64) (*cursor, error) {
	if offset <= 0 || offset > r.size {
		return nil, fmt.Errorf("%w: offset %d outside file of %d bytes", ErrCorruptSection, offset, r.size)
	}
	return newCursor(io.NewSectionReader(r.f, offset, r.size-offset), r.size-offset), nil
}

// counted opens a section whose count lives in the summary.
func (r *Reader) counted(count, offset int32, recordSize int64) (*cursor, error) {
	if count == 0 {
		return nil, nil
	}
	c, err := r.section(int64(offset))
	if err != nil {
		return nil, err
	}
	if count < 0 || int64(count)*recordSize > c.remaining {
		return nil, fmt.Errorf("%w: count %d does not fit", ErrCorruptSection, count)
	}
	return c, nil
}

func (r *Reader) readNames() error {
	if r.names != nil {
		return nil
	}
	c, err := r.counted(r.summary.NameCount, r.summary.NameOffset, minNameSize)
	if err != nil {
		return err
	}
	table := make([]names.Name, 0, r.summary.NameCount)
	for i := int32(0); c != nil && i < r.summary.NameCount; i++ {
		s := c.string()
		if c.err != nil {
			return fmt.Errorf("name table: %w", c.err)
		}
		table = append(table, names.Intern(s))
	}
	r.names = table
	return nil
}

func (r *Reader) name(c *cursor) names.Name {
	i := c.int32()
	if c.err != nil {
		return names.None
	}
	if i < 0 || int(i) >= len(r.names) {
		c.fail()
		return names.None
	}
	return r.names[i]
}

func (r *Reader) readImports() ([]asset.ObjectImport, error) {
	c, err := r.counted(r.summary.ImportCount, r.summary.ImportOffset, importRecordSize)
	if err != nil || c == nil {
		return nil, err
	}
	imports := make([]asset.ObjectImport, r.summary.ImportCount)
	for i := range imports {
		imports[i] = asset.ObjectImport{
			ClassPackage: r.name(c),
			ClassName:    r.name(c),
			OuterIndex:   asset.PackageIndex(c.int32()),
			ObjectName:   r.name(c),
		}
	}
	if c.err != nil {
		return nil, fmt.Errorf("import table: %w", c.err)
	}
	return imports, nil
}

func (r *Reader) readExports() ([]asset.ObjectExport, error) {
	c, err := r.counted(r.summary.ExportCount, r.summary.ExportOffset, exportRecordSize)
	if err != nil || c == nil {
		return nil, err
	}
	exports := make([]asset.ObjectExport, r.summary.ExportCount)
	for i := range exports {
		exports[i] = asset.ObjectExport{
			ClassIndex: asset.PackageIndex(c.int32()),
			OuterIndex: asset.PackageIndex(c.int32()),
			ObjectName: r.name(c),
		}
	}
	if c.err != nil {
		return nil, fmt.Errorf("export table: %w", c.err)
	}
	return exports, nil
}

// ReadMetadata reads the asset metadata block. Files older than the block
// yield no assets.
func (r *Reader) ReadMetadata() ([]*asset.AssetData, error) {
	if r.summary.FileVersion < VersionAssetRegistry || r.summary.AssetRegistryOffset == 0 {
		return nil, nil
	}
	c, err := r.section(int64(r.summary.AssetRegistryOffset))
	if err != nil {
		return nil, err
	}
	if r.summary.FileVersion >= VersionDependencyFlags {
		c.int64()
	}

	count := c.count(minAssetSize)
	assets := make([]*asset.AssetData, 0, count)
	for i := 0; i < count && c.err == nil; i++ {
		objectName := c.string()
		className := c.string()
		tagCount := c.count(minTagSize)
		pairs := make([]asset.TagPair, 0, tagCount)
		for j := 0; j < tagCount && c.err == nil; j++ {
			key, value := c.string(), c.string()
			if key == "" {
				continue
			}
			pairs = append(pairs, asset.TagPair{Key: names.Intern(key), Value: asset.StringValue(value)})
		}
		if c.err != nil {
			break
		}
		if objectName == "" || paths.ContainsInvalidCharacters(objectName) {
			c.fail()
			break
		}
		a := asset.NewAssetData(r.packageName, objectName, className, asset.NewTagMap(pairs...))
		a.PackageFlags = r.summary.PackageFlags
		assets = append(assets, a)
	}
	if c.err != nil {
		return nil, fmt.Errorf("asset metadata: %w", c.err)
	}
	return assets, nil
}

// ReadMetadataForDistributedBuild reads metadata from files saved with editor
// data stripped. Such files carry no metadata block, so top-level exports
// become assets. When none are found the package name is returned as
// needing a full parse. Files that are not stripped read normally.
func (r *Reader) ReadMetadataForDistributedBuild() ([]*asset.AssetData, []string, error) {
	if r.summary.PackageFlags&asset.FlagFilterEditorOnly == 0 {
		assets, err := r.ReadMetadata()
		return assets, nil, err
	}
	if err := r.readNames(); err != nil {
		return nil, nil, err
	}
	imports, err := r.readImports()
	if err != nil {
		return nil, nil, err
	}
	exports, err := r.readExports()
	if err != nil {
		return nil, nil, err
	}

	var assets []*asset.AssetData
	for _, exp := range exports {
		if !exp.OuterIndex.IsNull() {
			continue
		}
		class := className(exp.ClassIndex, imports, exports)
		if class.IsNone() {
			continue
		}
		a := asset.NewAssetData(r.packageName, exp.ObjectName.String(), class.String(), asset.TagMap{})
		a.PackageFlags = r.summary.PackageFlags
		assets = append(assets, a)
	}
	if len(assets) == 0 {
		return nil, []string{r.packageName}, nil
	}
	return assets, nil, nil
}

func className(index asset.PackageIndex, imports []asset.ObjectImport, exports []asset.ObjectExport) names.Name {
	switch {
	case index.IsImport() && index.ImportSlot() < len(imports):
		return imports[index.ImportSlot()].ObjectName
	case index.IsExport() && index.ExportSlot() < len(exports):
		return exports[index.ExportSlot()].ObjectName
	default:
		return names.None
	}
}

// ReadDependencies reads imports, soft references, searchable names and the
// used-in-game flags. Files saved before the flags existed report every
// reference as used in game.
func (r *Reader) ReadDependencies() (*asset.DependencyRecord, error) {
	if err := r.readNames(); err != nil {
		return nil, err
	}
	rec := &asset.DependencyRecord{
		PackageName: names.Intern(r.packageName),
		PackageData: asset.PackageData{DiskSize: r.size, PackageGuid: r.summary.PackageGuid},
	}

	var err error
	if rec.Imports, err = r.readImports(); err != nil {
		return nil, err
	}
	if rec.SoftPackageReferences, err = r.readSoftReferences(); err != nil {
		return nil, err
	}
	if rec.SearchableNames, err = r.readSearchableNames(); err != nil {
		return nil, err
	}

	if r.summary.FileVersion < VersionDependencyFlags || r.summary.AssetRegistryOffset == 0 {
		rec.ImportUsedInGame = allTrue(len(rec.Imports))
		rec.SoftPackageUsedInGame = allTrue(len(rec.SoftPackageReferences))
		return rec, nil
	}
	if err := r.readDependencyFlags(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Reader) readSoftReferences() ([]names.Name, error) {
	c, err := r.counted(r.summary.SoftRefCount, r.summary.SoftRefOffset, softRefSize)
	if err != nil || c == nil {
		return nil, err
	}
	refs := make([]names.Name, r.summary.SoftRefCount)
	for i := range refs {
		refs[i] = r.name(c)
	}
	if c.err != nil {
		return nil, fmt.Errorf("soft references: %w", c.err)
	}
	return refs, nil
}

func (r *Reader) readSearchableNames() ([]asset.SearchableNameEntry, error) {
	c, err := r.counted(r.summary.SearchableCount, r.summary.SearchableOffset, minSearchableSize)
	if err != nil || c == nil {
		return nil, err
	}
	entries := make([]asset.SearchableNameEntry, 0, r.summary.SearchableCount)
	for i := int32(0); i < r.summary.SearchableCount && c.err == nil; i++ {
		entry := asset.SearchableNameEntry{Object: asset.PackageIndex(c.int32())}
		n := c.count(minNameSize)
		entry.Names = make([]names.Name, 0, n)
		for j := 0; j < n; j++ {
			entry.Names = append(entry.Names, r.name(c))
		}
		entries = append(entries, entry)
	}
	if c.err != nil {
		return nil, fmt.Errorf("searchable names: %w", c.err)
	}
	return entries, nil
}

func (r *Reader) readDependencyFlags(rec *asset.DependencyRecord) error {
	c, err := r.section(int64(r.summary.AssetRegistryOffset))
	if err != nil {
		return err
	}
	offset := c.int64()
	if c.err != nil {
		return fmt.Errorf("dependency flags: %w", c.err)
	}
	if c, err = r.section(offset); err != nil {
		return err
	}

	imports := readBits(c)
	soft := readBits(c)
	if c.err != nil {
		return fmt.Errorf("dependency flags: %w", c.err)
	}
	if len(imports) != len(rec.Imports) || len(soft) != len(rec.SoftPackageReferences) {
		return fmt.Errorf("%w: dependency flag counts do not match tables", ErrCorruptSection)
	}
	rec.ImportUsedInGame = imports
	rec.SoftPackageUsedInGame = soft
	return nil
}

func readBits(c *cursor) []bool {
	n := c.int32()
	if c.err != nil {
		return nil
	}
	words := (int64(n) + 31) / 32
	if n < 0 || words*4 > c.remaining {
		c.fail()
		return nil
	}
	bits := make([]bool, n)
	for w := int64(0); w < words; w++ {
		word := c.uint32()
		for b := int64(0); b < 32; b++ {
			if i := w*32 + b; i < int64(n) {
				bits[i] = word&(1<<b) != 0
			}
		}
	}
	return bits
}

func allTrue(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}
