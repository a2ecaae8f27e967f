package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

type stringKey struct {
	s    string
	name bool
}

// Writer accumulates a payload plus the side tables it references.
type Writer struct {
	payload []byte
	index   map[stringKey]uint32
	strs    []stringKey
	tags    *asset.FixedTagStore
}

// NewWriter returns an empty writer.
func NewWriter() *Writer {
	return &Writer{
		index: make(map[stringKey]uint32),
		tags:  asset.NewFixedTagStore(),
	}
}

func (w *Writer) stringIndex(s string, name bool) uint32 {
	k := stringKey{s: s, name: name}
	if i, ok := w.index[k]; ok {
		return i
	}
	i := uint32(len(w.strs))
	w.index[k] = i
	w.strs = append(w.strs, k)
	return i
}

// WriteName writes an interned name.
func (w *Writer) WriteName(n names.Name) {
	w.WriteUint32(w.stringIndex(n.String(), true))
}

// WriteString writes a string that is not interned on load.
func (w *Writer) WriteString(s string) {
	w.WriteUint32(w.stringIndex(s, false))
}

// WriteUint8 writes one byte.
func (w *Writer) WriteUint8(v uint8) { w.payload = append(w.payload, v) }

// WriteBool writes a bool as one byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

// WriteUint32 writes a little endian uint32.
func (w *Writer) WriteUint32(v uint32) { w.payload = binary.LittleEndian.AppendUint32(w.payload, v) }

// WriteInt32 writes a little endian int32.
func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

// WriteInt64 writes a little endian int64.
func (w *Writer) WriteInt64(v int64) { w.payload = binary.LittleEndian.AppendUint64(w.payload, uint64(v)) }

// WriteBytes writes a length-prefixed byte slice.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.payload = append(w.payload, b...)
}

// WriteTagMap writes a tag map as handles into the fixed tag store.
func (w *Writer) WriteTagMap(m asset.TagMap) {
	w.WriteUint32(uint32(m.Len()))
	m.Range(func(p asset.TagPair) bool {
		w.WriteUint32(w.tags.Add(p))
		return true
	})
}

// Offset returns the current payload position.
func (w *Writer) Offset() int64 { return int64(len(w.payload)) }

// PatchInt64 overwrites eight payload bytes at offset.
func (w *Writer) PatchInt64(offset int64, v int64) {
	binary.LittleEndian.PutUint64(w.payload[offset:offset+8], uint64(v))
}

// Stats reports side table sizes.
func (w *Writer) Stats() (stringCount, tagCount, payloadBytes int) {
	return len(w.strs), w.tags.Len(), len(w.payload)
}

// Flush writes the header, side tables and payload to out.
func (w *Writer) Flush(out io.Writer, c Compression) error {
	var header [5]byte
	binary.LittleEndian.PutUint32(header[:4], Version)
	header[4] = byte(c)
	if _, err := out.Write(header[:]); err != nil {
		return err
	}

	switch c {
	case CompressionNone:
		return w.writeBody(out)
	case CompressionZstd:
		enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		if err := w.writeBody(enc); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("codec: unknown compression %d", c)
	}
}

func (w *Writer) writeBody(out io.Writer) error {
	// Tag entries reference strings, so index them before the batch is emitted.
	entries := w.tags.Entries()
	records := make([]byte, 0, len(entries)*tagRecordSize)
	for _, e := range entries {
		records = binary.LittleEndian.AppendUint32(records, w.stringIndex(e.Key.String(), true))
		records = append(records, byte(e.Value.Kind()))
		records = binary.LittleEndian.AppendUint64(records, w.tagPayload(e.Value))
	}

	var buf bytes.Buffer
	buf.Grow(16 + len(w.strs)*stringRecordSize)
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(w.strs))))
	var blobLen uint32
	for _, s := range w.strs {
		length := uint32(len(s.s))
		if s.name {
			length |= nameBit
		}
		buf.Write(binary.LittleEndian.AppendUint32(nil, blobLen))
		buf.Write(binary.LittleEndian.AppendUint32(nil, length))
		blobLen += uint32(len(s.s))
	}
	buf.Write(binary.LittleEndian.AppendUint32(nil, blobLen))
	for _, s := range w.strs {
		buf.WriteString(s.s)
	}

	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(entries))))
	buf.Write(records)
	buf.Write(binary.LittleEndian.AppendUint64(nil, uint64(len(w.payload))))

	if _, err := out.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := out.Write(w.payload)
	return err
}

func (w *Writer) tagPayload(v asset.TagValue) uint64 {
	switch v.Kind() {
	case asset.KindString:
		return uint64(w.stringIndex(v.String(), false))
	case asset.KindName:
		return uint64(w.stringIndex(v.String(), true))
	default:
		return v.Payload()
	}
}
