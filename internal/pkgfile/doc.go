// Package pkgfile reads and writes package file headers.
//
// A package file starts with a summary that records the file version, the
// custom feature versions it was saved with, package flags, a GUID and the
// (count, offset) of each header section:
//
//   - name table: length-prefixed strings referenced by index
//   - import table and export table
//   - soft package references
//   - searchable names
//   - asset metadata block (object name, class, tags) followed by the
//     dependency flags block recording which references are used in game
//
// Every section is reached by seeking to its offset after a bounds check,
// and every count is validated against the bytes left in the file before
// anything is allocated, so truncated or garbage files fail fast with an
// error instead of large allocations.
//
// Example Usage:
//
//	r, err := pkgfile.Open(path, "/Game/Maps/Level", versions)
//	if err != nil {
//	    switch pkgfile.ResultOf(err) {
//	    case pkgfile.CustomVersionMissing:
//	        // retry later
//	    }
//	    return err
//	}
//	defer r.Close()
//	assets, err := r.ReadMetadata()
//	deps, err := r.ReadDependencies()
package pkgfile
