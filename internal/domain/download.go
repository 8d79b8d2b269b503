package domain

import (
	"time"

	"github.com/tapestry/safefetch/internal/domain/vo"
)

// Download defaults
const (
	DefaultMaxBytes     = 100 * vo.MB
	DefaultMaxRedirects = 5
	DefaultTimeout      = 300 * time.Second
)

// DownloadSpec describes one bounded download
type DownloadSpec struct {
	Verdict      ValidationVerdict
	Destination  vo.SafeName
	MaxBytes     int64
	MaxRedirects int
	Timeout      time.Duration

	// Overwrite allows replacing an existing file at the destination
	Overwrite bool

	// ExpectedChecksum is an optional hex blake3 digest of the body
	ExpectedChecksum string
}

// NewDownloadSpec creates a spec with default limits
func NewDownloadSpec(verdict ValidationVerdict, destination vo.SafeName) DownloadSpec {
	return DownloadSpec{
		Verdict:      verdict,
		Destination:  destination,
		MaxBytes:     DefaultMaxBytes,
		MaxRedirects: DefaultMaxRedirects,
		Timeout:      DefaultTimeout,
	}
}

// WithDefaults returns a copy with non-positive limits replaced by defaults.
// MaxRedirects of zero is kept: it means "follow none".
func (s DownloadSpec) WithDefaults() DownloadSpec {
	if s.MaxBytes <= 0 {
		s.MaxBytes = DefaultMaxBytes
	}
	if s.MaxRedirects < 0 {
		s.MaxRedirects = DefaultMaxRedirects
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	return s
}

// DownloadResult represents the result of a download operation.
// Ownership of FinalPath passes to the caller only when Completed is true.
type DownloadResult struct {
	FinalPath    string
	BytesWritten int64
	Completed    bool

	// Checksum is the hex blake3 digest of the written bytes
	Checksum string

	// ContentType is the server-declared media type, informational only
	ContentType string

	Duration time.Duration
}
