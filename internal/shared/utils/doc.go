// Package utils provides hashing and file helpers shared by the cache and
// snapshot writers.
//
// Features:
//   - Deterministic field hashing (order independent)
//   - Cache file names derived from the set of content roots
//   - Atomic file replacement through a temporary sibling file
//
// Example Usage:
//
//	name := utils.CacheFilename([]string{"/work/Content"}, true)
//	err := utils.WriteFileAtomic(filepath.Join(dir, name), func(w io.Writer) error {
//	    return enc.Flush(w, codec.CompressionNone)
//	})
package utils
