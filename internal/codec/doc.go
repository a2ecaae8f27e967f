// Package codec implements the name-deduplicating binary format shared by the
// discovery cache and registry snapshots.
//
// Writing happens in two passes. Callers write their payload through a
// Writer, which collects every name and string into a string batch and
// every tag pair into a fixed tag store while encoding only small indices
// into the payload. Flush then emits, in order:
//
//  1. stream header: codec version and compression
//  2. string batch: count, fixed 8-byte records, string blob
//  3. fixed tag store: count, fixed 13-byte records
//  4. the payload
//
// Because the string records are fixed size, a Reader decodes the batch
// with several workers in the background while the caller starts decoding
// the payload; name reads block until the batch is ready. Tag maps read
// back are fixed maps resolved lazily against the decoded store.
//
// Example Usage:
//
//	w := codec.NewWriter()
//	w.WriteName(a.ObjectPath)
//	w.WriteTagMap(a.Tags)
//	err := w.Flush(out, codec.CompressionZstd)
//
//	r, err := codec.NewReader(in, codec.ReaderOptions{Workers: 4})
//	path := r.ReadName()
//	tags := r.ReadTagMap()
//	if err := r.Err(); err != nil { ... }
package codec
