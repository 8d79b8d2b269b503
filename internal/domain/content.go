package domain

import (
	"fmt"
	"strings"
)

// ContentKind identifies a file format by its magic bytes
type ContentKind int

const (
	ContentUnknown ContentKind = iota
	ContentPDF
	ContentPNG
	ContentJPEG
	ContentGIF
	ContentZIP
	ContentGZIP
	ContentHTML
)

var contentKindNames = []string{"unknown", "pdf", "png", "jpeg", "gif", "zip", "gzip", "html"}

func (k ContentKind) String() string {
	if int(k) >= 0 && int(k) < len(contentKindNames) {
		return contentKindNames[k]
	}
	return "unknown"
}

// ParseContentKind maps a user-supplied name ("pdf", "PNG", "jpg") to a ContentKind.
func ParseContentKind(name string) (ContentKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "jpg" {
		name = "jpeg"
	}
	for i, n := range contentKindNames {
		if i > 0 && n == name {
			return ContentKind(i), nil
		}
	}
	return ContentUnknown, fmt.Errorf("unsupported content kind %q", name)
}

// ContentVerdict is the result of checking a file's header.
type ContentVerdict struct {
	MatchesExpectedType bool
	DetectedKind        ContentKind
}
