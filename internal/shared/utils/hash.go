package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
)

// Hasher computes stable hex digests
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

// Hash computes a hash of the input data
func (h *Hasher) Hash(data []byte) string {
	switch h.algorithm {
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	}
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashFields hashes fields joined by "|" after sorting, so argument order
// does not change the result.
func (h *Hasher) HashFields(fields ...string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)

	return h.HashString(strings.Join(sorted, "|"))
}

// ShortHash returns the first 8 characters of a digest
func ShortHash(full string) string {
	if len(full) < 8 {
		return full
	}
	return full[:8]
}

// MonolithicCacheFilename is the cache file shared by every root set
const MonolithicCacheFilename = "CachedAssetRegistry.bin"

// CacheFilename returns the per-input-hash cache file name for a set of roots.
// Caches written without dependency data get a distinct name so a later run
// that gathers dependencies never reads them.
func CacheFilename(roots []string, gatherDependencies bool) string {
	normalized := make([]string, 0, len(roots))
	for _, r := range roots {
		normalized = append(normalized, strings.ToLower(strings.TrimSuffix(r, "/")))
	}

	name := "CachedAssetRegistry_" + ShortHash(DefaultHasher().HashFields(normalized...))
	if !gatherDependencies {
		name += "NoDeps"
	}
	return name + ".bin"
}
