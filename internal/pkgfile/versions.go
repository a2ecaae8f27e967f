package pkgfile

import (
	"sync"

	"github.com/google/uuid"
)

// PackageFileTag starts every package file.
const PackageFileTag uint32 = 0x9E2A83C1

// File versions
const (
	VersionInitial         int32 = 1
	VersionSearchableNames int32 = 2
	VersionAssetRegistry   int32 = 3
	VersionDependencyFlags int32 = 4

	VersionMinimum = VersionSearchableNames
	VersionLatest  = VersionDependencyFlags
)

// CustomVersion is a feature version saved into a file.
type CustomVersion struct {
	Key     uuid.UUID
	Version int32
}

// CustomVersions is the set of custom versions this process understands.
// Modules loaded late may register more while gathering runs.
type CustomVersions struct {
	mu       sync.RWMutex
	versions map[uuid.UUID]int32
}

// NewCustomVersions creates a registry seeded with versions.
func NewCustomVersions(versions ...CustomVersion) *CustomVersions {
	cv := &CustomVersions{versions: make(map[uuid.UUID]int32, len(versions))}
	for _, v := range versions {
		cv.Register(v.Key, v.Version)
	}
	return cv
}

// Register records the latest known version for key.
func (cv *CustomVersions) Register(key uuid.UUID, version int32) {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	if cv.versions == nil {
		cv.versions = make(map[uuid.UUID]int32)
	}
	cv.versions[key] = version
}

// Latest returns the known version for key.
func (cv *CustomVersions) Latest(key uuid.UUID) (int32, bool) {
	if cv == nil {
		return 0, false
	}
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	v, ok := cv.versions[key]
	return v, ok
}

// check validates the versions a file was saved with.
func (cv *CustomVersions) check(saved []CustomVersion) error {
	for _, s := range saved {
		latest, ok := cv.Latest(s.Key)
		if !ok {
			return ErrCustomVersionMissing
		}
		if s.Version > latest || s.Version < 0 {
			return ErrCustomVersionInvalid
		}
	}
	return nil
}
