package pkgfile

import (
	"bufio"
	"encoding/binary"
	"io"
	"unicode/utf8"
)

// maxStringLength bounds a single header string.
const maxStringLength = 1 << 16

// cursor reads little endian values from one section. The first failure is
// sticky; later reads return zero values.
type cursor struct {
	r         *bufio.Reader
	remaining int64
	err       error
	scratch   [8]byte
}

func newCursor(r io.Reader, remaining int64) *cursor {
	return &cursor{r: bufio.NewReaderSize(r, 4096), remaining: remaining}
}

func (c *cursor) fail() {
	if c.err == nil {
		c.err = ErrCorruptSection
	}
}

func (c *cursor) read(n int) []byte {
	if c.err != nil {
		return nil
	}
	if int64(n) > c.remaining {
		c.fail()
		return nil
	}
	var buf []byte
	if n <= len(c.scratch) {
		buf = c.scratch[:n]
	} else {
		buf = make([]byte, n)
	}
	if _, err := io.ReadFull(c.r, buf); err != nil {
		c.fail()
		return nil
	}
	c.remaining -= int64(n)
	return buf
}

func (c *cursor) uint32() uint32 {
	b := c.read(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *cursor) int32() int32 { return int32(c.uint32()) }

func (c *cursor) int64() int64 {
	b := c.read(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (c *cursor) guid() [16]byte {
	var g [16]byte
	if b := c.read(16); b != nil {
		copy(g[:], b)
	}
	return g
}

// count reads an element count and checks that count elements of at least
// minSize bytes fit in what is left.
func (c *cursor) count(minSize int64) int {
	n := c.int32()
	if c.err != nil {
		return 0
	}
	if n < 0 || int64(n)*minSize > c.remaining {
		c.fail()
		return 0
	}
	return int(n)
}

func (c *cursor) string() string {
	n := c.int32()
	if c.err != nil {
		return ""
	}
	if n < 0 || n > maxStringLength {
		c.fail()
		return ""
	}
	b := c.read(int(n))
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		c.fail()
		return ""
	}
	return string(b)
}
