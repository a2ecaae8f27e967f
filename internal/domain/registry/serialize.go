package registry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/assetregistry/internal/codec"
	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

// Snapshot versions
const (
	// SnapshotVersionLegacy stores dependency lists by kind, without
	// per-edge properties.
	SnapshotVersionLegacy uint32 = 1
	// SnapshotVersionDependencyFlags stores per-edge properties.
	SnapshotVersionDependencyFlags uint32 = 2

	SnapshotVersionLatest = SnapshotVersionDependencyFlags
)

// ErrSnapshotVersion reports a snapshot this build cannot read.
var ErrSnapshotVersion = errors.New("registry: unsupported snapshot version")

const (
	identifierSize = 16
	edgeSize       = 5
	minNodeSize    = identifierSize + 4*len(categories)
	minLegacyNode  = identifierSize + 4*6
	minPackageData = 4 + 8 + 16
)

// Properties synthesized for the legacy dependency lists.
var legacyListProperties = [...]struct {
	category Category
	props    Property
}{
	{CategoryPackage, PropertyHard | PropertyGame | PropertyBuild},
	{CategoryPackage, PropertyGame | PropertyBuild},
	{CategorySearchableName, PropertyNone},
	{CategoryManage, PropertyDirect},
	{CategoryManage, PropertyNone},
}

func writeIdentifier(w *codec.Writer, id asset.AssetIdentifier) {
	w.WriteName(id.PackageName)
	w.WriteName(id.PrimaryAssetType)
	w.WriteName(id.ObjectName)
	w.WriteName(id.ValueName)
}

func readIdentifier(r *codec.Reader) asset.AssetIdentifier {
	return asset.AssetIdentifier{
		PackageName:      r.ReadName(),
		PrimaryAssetType: r.ReadName(),
		ObjectName:       r.ReadName(),
		ValueName:        r.ReadName(),
	}
}

// Save writes a snapshot of s. Records, nodes and package data are written
// in sorted order so equal states produce equal bytes.
func (s *State) Save(out io.Writer, opts SerializationOptions, compression codec.Compression) error {
	w := codec.NewWriter()

	assets := s.sortedAssets()
	w.WriteUint32(uint32(len(assets)))
	for _, a := range assets {
		w.WriteAssetData(a)
	}

	sizeAt := w.Offset()
	w.WriteInt64(0)
	start := w.Offset()
	if opts.SerializeDependencies {
		s.saveDependencies(w, &opts)
	} else {
		w.WriteUint32(0)
	}
	w.PatchInt64(sizeAt, w.Offset()-start)

	if opts.SerializePackageData {
		keys := make([]names.Name, 0, len(s.packageData))
		for k := range s.packageData {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, names.Compare)
		w.WriteUint32(uint32(len(keys)))
		for _, k := range keys {
			w.WriteName(k)
			w.WritePackageData(*s.packageData[k])
		}
	} else {
		w.WriteUint32(0)
	}

	strs, tagCount, payload := w.Stats()
	s.logger.Debug("Serializing registry snapshot",
		zap.Int("strings", strs),
		zap.Int("tags", tagCount),
		zap.Int("payload_bytes", payload))

	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], SnapshotVersionLatest)
	if _, err := out.Write(header[:]); err != nil {
		return err
	}
	return w.Flush(out, compression)
}

func (s *State) saveDependencies(w *codec.Writer, opts *SerializationOptions) {
	var nodes []nodeID
	index := make(map[nodeID]int32)
	for _, n := range s.graph.liveNodes() {
		id := s.graph.node(n).id
		if id.IsPackage() ||
			(opts.SerializeSearchableNameDependencies && id.IsValue()) ||
			(opts.SerializeManageDependencies && id.IsPrimaryAsset()) {
			index[n] = int32(len(nodes))
			nodes = append(nodes, n)
		}
	}

	redirects := RedirectCache{}
	w.WriteUint32(uint32(len(nodes)))
	for _, n := range nodes {
		node := s.graph.node(n)
		writeIdentifier(w, node.id)
		for i, c := range categories {
			merged := map[int32]Property{}
			for _, e := range node.deps[i] {
				target := e.to
				if c == CategoryPackage {
					resolved, _ := s.ResolveRedirector(s.graph.node(e.to).id, nil, redirects)
					target, _ = s.graph.find(resolved)
				}
				if at, ok := index[target]; ok {
					merged[at] |= e.props
				}
			}
			targets := make([]int32, 0, len(merged))
			for at := range merged {
				targets = append(targets, at)
			}
			slices.Sort(targets)
			w.WriteUint32(uint32(len(targets)))
			for _, at := range targets {
				w.WriteInt32(at)
				w.WriteUint8(uint8(merged[at]))
			}
		}
	}
}

// Load replaces the content of s with a snapshot. Snapshots written before
// dependency properties existed load with synthesized properties. On
// failure s is left empty.
func (s *State) Load(in io.Reader, opts SerializationOptions, workers int) error {
	if err := s.load(in, opts, workers); err != nil {
		s.logger.Warn("Failed to load registry snapshot", zap.Error(err))
		s.Reset()
		return err
	}
	s.graph.sortAll()
	return nil
}

func (s *State) load(in io.Reader, opts SerializationOptions, workers int) error {
	var header [4]byte
	if _, err := io.ReadFull(in, header[:]); err != nil {
		return fmt.Errorf("registry: reading snapshot header: %w", err)
	}
	version := binary.LittleEndian.Uint32(header[:])
	if version < SnapshotVersionLegacy || version > SnapshotVersionLatest {
		return fmt.Errorf("%w: %d", ErrSnapshotVersion, version)
	}

	r, err := codec.NewReader(in, codec.ReaderOptions{Workers: workers})
	if err != nil {
		return err
	}

	s.Reset()
	count := r.ReadCount(codec.MinAssetDataSize)
	for i := 0; i < count && r.Err() == nil; i++ {
		a := r.ReadAssetData()
		if r.Err() == nil {
			s.AddRecord(a)
		}
	}

	if version >= SnapshotVersionDependencyFlags {
		size := r.ReadInt64()
		if opts.SerializeDependencies {
			s.loadDependencies(r)
		} else {
			r.Skip(size)
		}
	} else {
		s.loadLegacyDependencies(r, opts.SerializeDependencies)
	}

	count = r.ReadCount(minPackageData)
	for i := 0; i < count && r.Err() == nil; i++ {
		name := r.ReadName()
		data := r.ReadPackageData()
		if opts.SerializePackageData && r.Err() == nil {
			*s.CreateOrGetAssetPackageData(name) = data
		}
	}

	return r.Err()
}

func (s *State) loadDependencies(r *codec.Reader) {
	count := r.ReadCount(minNodeSize)
	ids := make([]nodeID, 0, count)
	type pending struct {
		from  nodeID
		to    int32
		cat   Category
		props Property
	}
	var edges []pending
	for i := 0; i < count && r.Err() == nil; i++ {
		n := s.graph.createOrFind(readIdentifier(r))
		ids = append(ids, n)
		for _, c := range categories {
			k := r.ReadCount(edgeSize)
			for j := 0; j < k && r.Err() == nil; j++ {
				to := r.ReadInt32()
				props := Property(r.ReadUint8())
				edges = append(edges, pending{from: n, to: to, cat: c, props: props})
			}
		}
	}
	for _, e := range edges {
		if e.to < 0 || int(e.to) >= len(ids) {
			continue
		}
		s.graph.addDependency(e.from, ids[e.to], e.cat, e.props)
	}
}

func (s *State) loadLegacyDependencies(r *codec.Reader, keep bool) {
	count := r.ReadCount(minLegacyNode)
	ids := make([]nodeID, 0, count)
	type pending struct {
		from nodeID
		to   int32
		list int
	}
	var edges []pending
	for i := 0; i < count && r.Err() == nil; i++ {
		id := readIdentifier(r)
		n := noNode
		if keep {
			n = s.graph.createOrFind(id)
		}
		ids = append(ids, n)
		for list := range legacyListProperties {
			k := r.ReadCount(4)
			for j := 0; j < k && r.Err() == nil; j++ {
				edges = append(edges, pending{from: n, to: r.ReadInt32(), list: list})
			}
		}
		// Referencers are rebuilt from the dependency lists.
		k := r.ReadCount(4)
		for j := 0; j < k && r.Err() == nil; j++ {
			r.ReadInt32()
		}
	}
	if !keep {
		return
	}
	for _, e := range edges {
		if e.to < 0 || int(e.to) >= len(ids) {
			continue
		}
		kind := legacyListProperties[e.list]
		s.graph.addDependency(e.from, ids[e.to], kind.category, kind.props)
	}
}
