package codec

import (
	"github.com/google/uuid"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

// Minimum encoded record sizes, used to validate counts before allocating.
const (
	MinAssetDataSize  = 5*4 + 4 + 4 + 4
	MinDependencySize = 4 + 8 + 16 + 4*4
)

// WriteAssetData writes one asset record.
func (w *Writer) WriteAssetData(a *asset.AssetData) {
	w.WriteName(a.PackageName)
	w.WriteName(a.PackagePath)
	w.WriteName(a.AssetName)
	w.WriteName(a.AssetClass)
	w.WriteName(a.ObjectPath)
	w.WriteTagMap(a.Tags)
	w.WriteUint32(uint32(len(a.ChunkIDs)))
	for _, c := range a.ChunkIDs {
		w.WriteInt32(c)
	}
	w.WriteUint32(uint32(a.PackageFlags))
}

// ReadAssetData reads one asset record.
func (r *Reader) ReadAssetData() *asset.AssetData {
	a := &asset.AssetData{
		PackageName: r.ReadName(),
		PackagePath: r.ReadName(),
		AssetName:   r.ReadName(),
		AssetClass:  r.ReadName(),
		ObjectPath:  r.ReadName(),
		Tags:        r.ReadTagMap(),
	}
	if n := r.ReadCount(4); n > 0 {
		a.ChunkIDs = make([]int32, n)
		for i := range a.ChunkIDs {
			a.ChunkIDs[i] = r.ReadInt32()
		}
	}
	a.PackageFlags = asset.PackageFlags(r.ReadUint32())
	return a
}

// WritePackageData writes per-package disk metadata.
func (w *Writer) WritePackageData(d asset.PackageData) {
	w.WriteInt64(d.DiskSize)
	w.payload = append(w.payload, d.PackageGuid[:]...)
}

// ReadPackageData reads per-package disk metadata.
func (r *Reader) ReadPackageData() asset.PackageData {
	d := asset.PackageData{DiskSize: r.ReadInt64()}
	if b := r.next(16); b != nil {
		d.PackageGuid = uuid.UUID(b)
	}
	return d
}

func (w *Writer) writeBools(bits []bool) {
	w.WriteUint32(uint32(len(bits)))
	for _, b := range bits {
		w.WriteBool(b)
	}
}

func (r *Reader) readBools() []bool {
	n := r.ReadCount(1)
	if n == 0 {
		return nil
	}
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = r.ReadBool()
	}
	return bits
}

func (w *Writer) writeNameList(list []names.Name) {
	w.WriteUint32(uint32(len(list)))
	for _, n := range list {
		w.WriteName(n)
	}
}

func (r *Reader) readNameList() []names.Name {
	n := r.ReadCount(4)
	if n == 0 {
		return nil
	}
	list := make([]names.Name, n)
	for i := range list {
		list[i] = r.ReadName()
	}
	return list
}

// WriteDependencyRecord writes dependency data read from a package.
func (w *Writer) WriteDependencyRecord(d *asset.DependencyRecord) {
	w.WriteName(d.PackageName)
	w.WritePackageData(d.PackageData)

	w.WriteUint32(uint32(len(d.Imports)))
	for _, imp := range d.Imports {
		w.WriteName(imp.ClassPackage)
		w.WriteName(imp.ClassName)
		w.WriteInt32(int32(imp.OuterIndex))
		w.WriteName(imp.ObjectName)
	}
	w.writeBools(d.ImportUsedInGame)
	w.writeNameList(d.SoftPackageReferences)
	w.writeBools(d.SoftPackageUsedInGame)

	w.WriteUint32(uint32(len(d.SearchableNames)))
	for _, sn := range d.SearchableNames {
		w.WriteInt32(int32(sn.Object))
		w.writeNameList(sn.Names)
	}
}

// ReadDependencyRecord reads dependency data written by WriteDependencyRecord.
func (r *Reader) ReadDependencyRecord() *asset.DependencyRecord {
	d := &asset.DependencyRecord{
		PackageName: r.ReadName(),
		PackageData: r.ReadPackageData(),
	}
	if n := r.ReadCount(16); n > 0 {
		d.Imports = make([]asset.ObjectImport, n)
		for i := range d.Imports {
			d.Imports[i] = asset.ObjectImport{
				ClassPackage: r.ReadName(),
				ClassName:    r.ReadName(),
				OuterIndex:   asset.PackageIndex(r.ReadInt32()),
				ObjectName:   r.ReadName(),
			}
		}
	}
	d.ImportUsedInGame = r.readBools()
	d.SoftPackageReferences = r.readNameList()
	d.SoftPackageUsedInGame = r.readBools()
	if n := r.ReadCount(8); n > 0 {
		d.SearchableNames = make([]asset.SearchableNameEntry, n)
		for i := range d.SearchableNames {
			d.SearchableNames[i].Object = asset.PackageIndex(r.ReadInt32())
			d.SearchableNames[i].Names = r.readNameList()
		}
	}
	return d
}
