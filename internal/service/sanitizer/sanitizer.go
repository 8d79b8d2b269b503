// Package sanitizer turns arbitrary titles and URL basenames into bare
// filenames that are safe to create inside a caller-chosen directory and to
// pass as a single argv element to another process.
package sanitizer

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"

	"github.com/tapestry/safefetch/internal/domain/vo"
)

// Placeholder is returned whenever sanitization leaves nothing usable.
const Placeholder = "unnamed"

// extensionWindow is how close to the end a dot must be to count as an
// extension worth preserving on truncation.
const extensionWindow = 10

var (
	dotRuns        = regexp.MustCompile(`\.\.+`)
	dashRuns       = regexp.MustCompile(`-{2,}`)
	underscoreRuns = regexp.MustCompile(`_{2,}`)
	spaceRuns      = regexp.MustCompile(` {2,}`)
)

var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Sanitize maps raw to a SafeName of at most maxLength code points
// (vo.DefaultMaxNameLength when maxLength <= 0). It never fails and is
// idempotent: Sanitize(Sanitize(x).String(), n) == Sanitize(x, n).
func Sanitize(raw string, maxLength int) vo.SafeName {
	if maxLength <= 0 {
		maxLength = vo.DefaultMaxNameLength
	}

	s := norm.NFC.String(strings.ToValidUTF8(raw, ""))
	// Removing runes can leave a base and a combining mark adjacent.
	s = norm.NFC.String(strings.Map(mapRune, s))

	s = dotRuns.ReplaceAllString(s, "")
	s = dashRuns.ReplaceAllString(s, "-")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = spaceRuns.ReplaceAllString(s, " ")
	// Dropping a dot run can also join a base and a combining mark.
	s = norm.NFC.String(s)
	s = trimEdges(s)

	s = fit(s, maxLength)
	if isReserved(s) {
		s = fit("_"+s, maxLength)
	}

	name, err := vo.NewSafeName(s, maxLength)
	if err != nil {
		return vo.MustSafeName(fit(Placeholder, maxLength), maxLength)
	}
	return name
}

// FromURL derives a SafeName from the last path segment of rawURL, falling
// back to the host when the path has none.
func FromURL(rawURL string, maxLength int) vo.SafeName {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Sanitize("", maxLength)
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		base = u.Hostname()
	}
	return Sanitize(base, maxLength)
}

// mapRune applies the replacement table; -1 drops the rune.
func mapRune(r rune) rune {
	switch r {
	case '\n', '\t':
		return ' '
	case '/', '\\':
		return '_'
	case ':', '|':
		return '-'
	case '`', '$', '*', '?', '"', '\'', '<', '>':
		return -1
	}
	if unicode.In(r, unicode.C) {
		return -1
	}
	return r
}

func trimEdges(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '.' || unicode.IsSpace(r)
	})
}

func trimRightEdges(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return r == '.' || unicode.IsSpace(r)
	})
}

// fit truncates s to max code points, keeping a short extension when the
// stem can still hold at least one character.
func fit(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	if dot := strings.LastIndexByte(s, '.'); dot > 0 {
		ext := s[dot+1:]
		extLen := utf8.RuneCountInString(ext)
		if extLen < extensionWindow && extLen+2 <= max {
			stem := trimRightEdges(truncate(s[:dot], max-extLen-1))
			if stem != "" {
				return stem + "." + ext
			}
		}
	}
	return trimRightEdges(truncate(s, max))
}

// truncate cuts s to at most max code points without splitting a grapheme
// cluster.
func truncate(s string, max int) string {
	var b strings.Builder
	count := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		n := len(g.Runes())
		if count+n > max {
			break
		}
		b.WriteString(g.Str())
		count += n
	}
	return b.String()
}

func isReserved(s string) bool {
	stem, _, _ := strings.Cut(s, ".")
	return windowsReserved[strings.ToUpper(strings.TrimRight(stem, " "))]
}
