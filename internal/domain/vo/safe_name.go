package vo

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxNameLength is the default SafeName length in code points.
const DefaultMaxNameLength = 100

// ForbiddenNameChars may never appear in a SafeName.
const ForbiddenNameChars = "/\\:*?\"'<>|`$\x00"

var (
	ErrEmptyName      = errors.New("safe name cannot be empty")
	ErrNameTooLong    = errors.New("safe name exceeds maximum length")
	ErrUnsafeNameChar = errors.New("safe name contains a forbidden character")
	ErrNameTraversal  = errors.New("safe name contains a parent-directory sequence")
	ErrNameEdges      = errors.New("safe name has leading or trailing dots or whitespace")
)

// SafeName is a bare filename that cannot escape its directory or be
// reinterpreted by a shell. The zero value is not a valid name.
type SafeName struct {
	value string
}

// NewSafeName checks every SafeName invariant against s with the given
// maximum length (code points, DefaultMaxNameLength if maxLength <= 0).
func NewSafeName(s string, maxLength int) (SafeName, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxNameLength
	}
	if s == "" {
		return SafeName{}, ErrEmptyName
	}
	if !utf8.ValidString(s) {
		return SafeName{}, fmt.Errorf("%w: invalid utf-8", ErrUnsafeNameChar)
	}
	if n := utf8.RuneCountInString(s); n > maxLength {
		return SafeName{}, fmt.Errorf("%w: %d > %d", ErrNameTooLong, n, maxLength)
	}
	for _, r := range s {
		if strings.ContainsRune(ForbiddenNameChars, r) || unicode.IsControl(r) {
			return SafeName{}, fmt.Errorf("%w: %q", ErrUnsafeNameChar, r)
		}
	}
	if strings.Contains(s, "..") {
		return SafeName{}, ErrNameTraversal
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	if first == '.' || last == '.' || unicode.IsSpace(first) || unicode.IsSpace(last) {
		return SafeName{}, ErrNameEdges
	}
	return SafeName{value: s}, nil
}

// MustSafeName creates a new SafeName, panicking if invalid.
// Use only when the name is known to be valid.
func MustSafeName(s string, maxLength int) SafeName {
	name, err := NewSafeName(s, maxLength)
	if err != nil {
		panic(err)
	}
	return name
}

// String returns the name.
func (n SafeName) String() string {
	return n.value
}

// IsZero returns true for the zero SafeName.
func (n SafeName) IsZero() bool {
	return n.value == ""
}

// Equals checks if two names are equal.
func (n SafeName) Equals(other SafeName) bool {
	return n.value == other.value
}
