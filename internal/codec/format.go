package codec

import (
	"errors"
	"fmt"
)

// Version is written at the start of every stream.
const Version uint32 = 1

// Compression selects how the stream body is stored.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none" or "zstd"; empty means none.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", s)
	}
}

const (
	stringRecordSize = 8
	tagRecordSize    = 13
	nameBit          = 1 << 31
)

// Decode errors
var (
	ErrVersion   = errors.New("codec: unsupported stream version")
	ErrTruncated = errors.New("codec: truncated stream")
	ErrCorrupt   = errors.New("codec: corrupt stream")
)
