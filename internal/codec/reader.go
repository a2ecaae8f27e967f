package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/assetregistry/internal/domain/asset"
	"github.com/GriffinCanCode/assetregistry/internal/shared/names"
)

// ReaderOptions configures decoding.
type ReaderOptions struct {
	// Workers decoding the string batch; values below 2 decode on one goroutine.
	Workers int
}

// Reader decodes a stream written by Writer. The first error is sticky and
// reported by Err; reads after it return zero values.
type Reader struct {
	payload []byte
	pos     int
	err     error

	stringRecords []byte
	blob          []byte
	tagRecords    []byte
	workers       int

	ready    chan struct{}
	strs     []string
	nameIDs  []names.Name
	isName   []bool
	store    *asset.FixedTagStore
	batchErr error
}

// NewReader reads the whole stream from r and starts decoding the side
// tables in the background.
func NewReader(r io.Reader, opts ReaderOptions) (*Reader, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrTruncated, err)
	}
	if v := binary.LittleEndian.Uint32(header[:4]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}

	var body []byte
	var err error
	switch Compression(header[4]) {
	case CompressionNone:
		body, err = io.ReadAll(r)
	case CompressionZstd:
		var dec *zstd.Decoder
		dec, err = zstd.NewReader(r)
		if err == nil {
			body, err = io.ReadAll(dec)
			dec.Close()
		}
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrCorrupt, header[4])
	}
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	rd := &Reader{workers: opts.Workers, ready: make(chan struct{})}
	if err := rd.split(body); err != nil {
		return nil, err
	}
	go rd.decodeTables()
	return rd, nil
}

// NewReaderBytes decodes a stream held in memory.
func NewReaderBytes(data []byte, opts ReaderOptions) (*Reader, error) {
	return NewReader(bytes.NewReader(data), opts)
}

// split locates the side tables and payload without decoding them.
func (r *Reader) split(body []byte) error {
	take := func(n uint64) ([]byte, bool) {
		if n > uint64(len(body)) {
			return nil, false
		}
		out := body[:n]
		body = body[n:]
		return out, true
	}
	u32 := func() (uint32, bool) {
		b, ok := take(4)
		if !ok {
			return 0, false
		}
		return binary.LittleEndian.Uint32(b), true
	}

	count, ok := u32()
	if !ok {
		return ErrTruncated
	}
	if r.stringRecords, ok = take(uint64(count) * stringRecordSize); !ok {
		return fmt.Errorf("%w: string records", ErrTruncated)
	}
	blobLen, ok := u32()
	if !ok {
		return ErrTruncated
	}
	if r.blob, ok = take(uint64(blobLen)); !ok {
		return fmt.Errorf("%w: string blob", ErrTruncated)
	}
	tagCount, ok := u32()
	if !ok {
		return ErrTruncated
	}
	if r.tagRecords, ok = take(uint64(tagCount) * tagRecordSize); !ok {
		return fmt.Errorf("%w: tag records", ErrTruncated)
	}
	lenBytes, ok := take(8)
	if !ok {
		return ErrTruncated
	}
	if r.payload, ok = take(binary.LittleEndian.Uint64(lenBytes)); !ok {
		return fmt.Errorf("%w: payload", ErrTruncated)
	}
	return nil
}

func (r *Reader) decodeTables() {
	defer close(r.ready)
	if err := r.decodeStrings(); err != nil {
		r.batchErr = err
		return
	}
	r.batchErr = r.decodeTags()
}

func (r *Reader) decodeStrings() error {
	n := len(r.stringRecords) / stringRecordSize
	r.strs = make([]string, n)
	r.nameIDs = make([]names.Name, n)
	r.isName = make([]bool, n)

	decodeRange := func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			rec := r.stringRecords[i*stringRecordSize:]
			offset := uint64(binary.LittleEndian.Uint32(rec))
			length := binary.LittleEndian.Uint32(rec[4:])
			name := length&nameBit != 0
			length &^= nameBit
			if offset+uint64(length) > uint64(len(r.blob)) {
				return fmt.Errorf("%w: string %d outside blob", ErrCorrupt, i)
			}
			s := string(r.blob[offset : offset+uint64(length)])
			r.strs[i] = s
			r.isName[i] = name
			if name {
				r.nameIDs[i] = names.Intern(s)
			}
		}
		return nil
	}

	workers := r.workers
	if workers < 2 || n < 1024 {
		return decodeRange(0, n)
	}
	var g errgroup.Group
	g.SetLimit(workers)
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error { return decodeRange(lo, hi) })
	}
	return g.Wait()
}

func (r *Reader) decodeTags() error {
	n := len(r.tagRecords) / tagRecordSize
	entries := make([]asset.TagPair, n)
	for i := range entries {
		rec := r.tagRecords[i*tagRecordSize:]
		keyIdx := binary.LittleEndian.Uint32(rec)
		kind := asset.TagKind(rec[4])
		payload := binary.LittleEndian.Uint64(rec[5:])

		key, ok := r.nameAt(keyIdx)
		if !ok {
			return fmt.Errorf("%w: tag %d key", ErrCorrupt, i)
		}
		var value asset.TagValue
		switch kind {
		case asset.KindString, asset.KindName:
			if payload >= uint64(len(r.strs)) {
				return fmt.Errorf("%w: tag %d value", ErrCorrupt, i)
			}
			if kind == asset.KindString {
				value = asset.StringValue(r.strs[payload])
			} else {
				v, ok := r.nameAt(uint32(payload))
				if !ok {
					return fmt.Errorf("%w: tag %d value", ErrCorrupt, i)
				}
				value = asset.NameValue(v)
			}
		case asset.KindInt, asset.KindFloat, asset.KindBool:
			value = asset.TagValueFromPayload(kind, payload)
		default:
			return fmt.Errorf("%w: tag %d kind %d", ErrCorrupt, i, kind)
		}
		entries[i] = asset.TagPair{Key: key, Value: value}
	}
	r.store = asset.NewFixedTagStoreFrom(entries)
	return nil
}

func (r *Reader) nameAt(i uint32) (names.Name, bool) {
	if int(i) >= len(r.strs) || !r.isName[i] {
		return names.None, false
	}
	return r.nameIDs[i], true
}

func (r *Reader) waitTables() bool {
	<-r.ready
	if r.batchErr != nil && r.err == nil {
		r.err = r.batchErr
	}
	return r.err == nil
}

// Err returns the first decode error.
func (r *Reader) Err() error {
	if r.err == nil {
		<-r.ready
		if r.batchErr != nil {
			r.err = r.batchErr
		}
	}
	return r.err
}

// Fail records err unless an error is already recorded.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Remaining returns the unread payload bytes.
func (r *Reader) Remaining() int { return len(r.payload) - r.pos }

// Offset returns the payload position.
func (r *Reader) Offset() int64 { return int64(r.pos) }

func (r *Reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.Remaining() {
		r.err = fmt.Errorf("%w: need %d bytes at %d", ErrTruncated, n, r.pos)
		return nil
	}
	b := r.payload[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Skip advances n payload bytes.
func (r *Reader) Skip(n int64) {
	if n > int64(r.Remaining()) {
		r.Fail(fmt.Errorf("%w: skip %d", ErrTruncated, n))
		return
	}
	r.next(int(n))
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadBool reads a one byte bool.
func (r *Reader) ReadBool() bool { return r.ReadUint8() != 0 }

// ReadUint32 reads a little endian uint32.
func (r *Reader) ReadUint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// ReadInt32 reads a little endian int32.
func (r *Reader) ReadInt32() int32 { return int32(r.ReadUint32()) }

// ReadInt64 reads a little endian int64.
func (r *Reader) ReadInt64() int64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

// ReadBytes reads a length-prefixed byte slice.
func (r *Reader) ReadBytes() []byte {
	n := r.ReadUint32()
	b := r.next(int(n))
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}

// ReadCount reads a uint32 element count and checks that count elements of
// at least minSize bytes fit in the remaining payload.
func (r *Reader) ReadCount(minSize int) int {
	n := r.ReadUint32()
	if r.err != nil {
		return 0
	}
	if uint64(n)*uint64(max(minSize, 1)) > uint64(r.Remaining()) {
		r.err = fmt.Errorf("%w: count %d exceeds payload", ErrCorrupt, n)
		return 0
	}
	return int(n)
}

// ReadName reads an interned name, waiting for the string batch.
func (r *Reader) ReadName() names.Name {
	i := r.ReadUint32()
	if r.err != nil || !r.waitTables() {
		return names.None
	}
	n, ok := r.nameAt(i)
	if !ok {
		r.err = fmt.Errorf("%w: name index %d", ErrCorrupt, i)
	}
	return n
}

// ReadString reads a string, waiting for the string batch.
func (r *Reader) ReadString() string {
	i := r.ReadUint32()
	if r.err != nil || !r.waitTables() {
		return ""
	}
	if int(i) >= len(r.strs) {
		r.err = fmt.Errorf("%w: string index %d", ErrCorrupt, i)
		return ""
	}
	return r.strs[i]
}

// ReadTagMap reads a fixed tag map backed by the decoded store.
func (r *Reader) ReadTagMap() asset.TagMap {
	n := r.ReadCount(4)
	if n == 0 || !r.waitTables() {
		return asset.TagMap{}
	}
	handles := make([]uint32, n)
	limit := uint32(r.store.Len())
	for i := range handles {
		handles[i] = r.ReadUint32()
		if r.err == nil && handles[i] >= limit {
			r.err = fmt.Errorf("%w: tag handle %d", ErrCorrupt, handles[i])
		}
	}
	if r.err != nil {
		return asset.TagMap{}
	}
	seen := make(map[names.Name]struct{}, n)
	for _, h := range handles {
		e, _ := r.store.Entry(h)
		if _, dup := seen[e.Key]; dup {
			r.err = fmt.Errorf("%w: duplicate tag key %s", ErrCorrupt, e.Key)
			return asset.TagMap{}
		}
		seen[e.Key] = struct{}{}
	}
	return asset.NewFixedTagMap(r.store, handles)
}
