// Package id generates ULIDs used for unique temporary names.
//
// Atomic writes of cache and snapshot files stage data under a sibling
// temporary file whose suffix is a ULID, so concurrent writers in one
// directory never collide and stale temporaries sort by creation time.
//
// Example Usage:
//
//	tmp := path + "." + id.NewTempSuffix()
//	ts, _ := id.Timestamp(strings.TrimPrefix(filepath.Ext(tmp), "."))
package id
