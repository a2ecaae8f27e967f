package gather

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/GriffinCanCode/assetregistry/internal/codec"
	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
	"github.com/GriffinCanCode/assetregistry/internal/shared/utils"
)

// Cache file header
const (
	CacheMagic   uint32 = 0x41524743
	CacheVersion uint32 = 1
)

var errBadCacheHeader = errors.New("gather: not a discovery cache file")

// cacheEntry is the cached parse result of one package file.
type cacheEntry struct {
	ModTime      int64
	Extension    string
	Assets       []*asset.AssetData
	Dependencies *asset.DependencyRecord
}

// cacheFilename returns the cache file for the options, or "" when caching is off.
func cacheFilename(o *Options) string {
	switch o.CacheMode {
	case NoCache:
		return ""
	case PerInputHash:
		roots := make([]string, 0, len(o.Mounts))
		for _, m := range o.Mounts {
			roots = append(roots, m.LocalPath)
		}
		return filepath.Join(o.CacheDir, utils.CacheFilename(roots, o.GatherDependencies))
	default:
		return filepath.Join(o.CacheDir, utils.MonolithicCacheFilename)
	}
}

// loadCache reads a cache file. A missing file is an empty cache.
func loadCache(path string, workers int) (map[names.Name]*cacheEntry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[names.Name]*cacheEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 256*1024)
	var header [8]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, errBadCacheHeader
	}
	if binary.LittleEndian.Uint32(header[:4]) != CacheMagic {
		return nil, errBadCacheHeader
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != CacheVersion {
		return nil, fmt.Errorf("gather: cache version %d, want %d", v, CacheVersion)
	}

	r, err := codec.NewReader(br, codec.ReaderOptions{Workers: workers})
	if err != nil {
		return nil, err
	}
	count := r.ReadCount(4 + 8 + 4 + 4 + 1)
	entries := make(map[names.Name]*cacheEntry, count)
	for i := 0; i < count && r.Err() == nil; i++ {
		key := r.ReadName()
		e := &cacheEntry{ModTime: r.ReadInt64(), Extension: r.ReadString()}
		n := r.ReadCount(codec.MinAssetDataSize)
		for j := 0; j < n; j++ {
			e.Assets = append(e.Assets, r.ReadAssetData())
		}
		if r.ReadBool() {
			e.Dependencies = r.ReadDependencyRecord()
		}
		entries[key] = e
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// saveCache writes entries sorted by package name through a temp file.
func saveCache(path string, entries map[names.Name]*cacheEntry, compression codec.Compression) error {
	keys := make([]names.Name, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b names.Name) int { return cmp.Compare(a.String(), b.String()) })

	w := codec.NewWriter()
	w.WriteUint32(uint32(len(keys)))
	for _, k := range keys {
		e := entries[k]
		w.WriteName(k)
		w.WriteInt64(e.ModTime)
		w.WriteString(e.Extension)
		w.WriteUint32(uint32(len(e.Assets)))
		for _, a := range e.Assets {
			w.WriteAssetData(a)
		}
		w.WriteBool(e.Dependencies != nil)
		if e.Dependencies != nil {
			w.WriteDependencyRecord(e.Dependencies)
		}
	}

	return utils.WriteFileAtomic(path, func(out io.Writer) error {
		var header [8]byte
		binary.LittleEndian.PutUint32(header[:4], CacheMagic)
		binary.LittleEndian.PutUint32(header[4:], CacheVersion)
		if _, err := out.Write(header[:]); err != nil {
			return err
		}
		return w.Flush(out, compression)
	})
}
