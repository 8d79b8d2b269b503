// Package verifier checks a downloaded file's leading bytes against the
// format the caller expected. Declared media types are never trusted.
package verifier

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/tapestry/safefetch/internal/domain"
)

// HeaderSize is the most this package ever reads from a file.
const HeaderSize = 8

type signature struct {
	kind   domain.ContentKind
	prefix []byte
}

var signatures = []signature{
	{domain.ContentPDF, []byte("%PDF")},
	{domain.ContentPNG, []byte("\x89PNG\r\n\x1a\n")},
	{domain.ContentJPEG, []byte{0xFF, 0xD8, 0xFF}},
	{domain.ContentGIF, []byte("GIF87a")},
	{domain.ContentGIF, []byte("GIF89a")},
	{domain.ContentZIP, []byte("PK\x03\x04")},
	{domain.ContentGZIP, []byte{0x1F, 0x8B}},
}

// htmlPrefixes are matched case-insensitively after an optional BOM and
// leading whitespace, within what is left of the header.
var htmlPrefixes = [][]byte{
	[]byte("<!doctyp"),
	[]byte("<html"),
	[]byte("<?xml"),
	[]byte("<head"),
	[]byte("<body"),
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Verify reads at most HeaderSize bytes of path and reports the detected
// kind and whether it equals expected. Unreadable files yield
// {false, ContentUnknown}.
func Verify(path string, expected domain.ContentKind) domain.ContentVerdict {
	header, err := readHeader(path)
	if err != nil {
		return domain.ContentVerdict{DetectedKind: domain.ContentUnknown}
	}
	detected := Detect(header)
	return domain.ContentVerdict{
		MatchesExpectedType: detected != domain.ContentUnknown && detected == expected,
		DetectedKind:        detected,
	}
}

// Check is Verify for callers that want an error on mismatch.
func Check(path string, expected domain.ContentKind) error {
	v := Verify(path, expected)
	if !v.MatchesExpectedType {
		return &domain.VerificationMismatchError{Expected: expected, Detected: v.DetectedKind}
	}
	return nil
}

// Detect classifies a file header.
func Detect(header []byte) domain.ContentKind {
	if len(header) > HeaderSize {
		header = header[:HeaderSize]
	}
	for _, s := range signatures {
		if bytes.HasPrefix(header, s.prefix) {
			return s.kind
		}
	}

	rest := bytes.TrimLeft(bytes.TrimPrefix(header, utf8BOM), " \t\r\n")
	if len(rest) == 0 {
		return domain.ContentUnknown
	}
	lower := bytes.ToLower(rest)
	for _, p := range htmlPrefixes {
		// A short tail still counts if it is a prefix of the marker, e.g.
		// "\n\n\n<!doc" leaves only five bytes to compare.
		n := min(len(p), len(lower))
		if n >= 4 && bytes.Equal(lower[:n], p[:n]) {
			return domain.ContentHTML
		}
	}
	return domain.ContentUnknown
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}
