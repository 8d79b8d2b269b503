package vo

import (
	"github.com/dustin/go-humanize"
)

// ByteSize represents a byte count value object.
// It provides type-safe limit checks and human-readable formatting.
type ByteSize struct {
	bytes int64
}

const (
	KB int64 = 1024
	MB int64 = 1024 * KB
	GB int64 = 1024 * MB
)

// ByteSizeFromBytes creates a ByteSize, treating negative counts (such as an
// unknown Content-Length) as zero.
func ByteSizeFromBytes(bytes int64) ByteSize {
	if bytes < 0 {
		bytes = 0
	}
	return ByteSize{bytes: bytes}
}

// ByteSizeFromMB creates a ByteSize from mebibytes.
func ByteSizeFromMB(mb int) ByteSize {
	if mb < 0 {
		mb = 0
	}
	return ByteSize{bytes: int64(mb) * MB}
}

// Bytes returns the size in bytes.
func (bs ByteSize) Bytes() int64 {
	return bs.bytes
}

// IsZero returns true if the size is zero.
func (bs ByteSize) IsZero() bool {
	return bs.bytes == 0
}

// ExceedsLimit checks if this size exceeds the given limit.
func (bs ByteSize) ExceedsLimit(limit ByteSize) bool {
	return bs.bytes > limit.bytes
}

// String returns a human-readable representation such as "100 MiB".
func (bs ByteSize) String() string {
	return humanize.IBytes(uint64(bs.bytes))
}
