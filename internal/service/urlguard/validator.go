// Package urlguard decides whether an externally supplied URL may be fetched.
//
// Validate is a pure function over the URL text and never touches DNS.
// DialControl closes the gap between validation and connection by checking
// the address a hostname actually resolved to.
package urlguard

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"syscall"

	"github.com/tapestry/safefetch/internal/domain"
)

// TraversalWarning is attached to accepted verdicts whose URL text contains
// a parent-directory sequence.
const TraversalWarning = "URL contains path traversal patterns"

var (
	schemePattern    = regexp.MustCompile(`(?i)^https?://`)
	traversalPattern = regexp.MustCompile(`(?i)\.\./|\.\.\\|%2e%2e`)
	numericLabel     = regexp.MustCompile(`(?i)^(0x[0-9a-f]*|[0-9]+)$`)
)

// blockedHostPatterns catch internal hosts written in forms netip does not
// parse, such as bracketless IPv6 prefixes.
var blockedHostPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^localhost$`),
	regexp.MustCompile(`\.localhost$`),
	regexp.MustCompile(`^127\.`),
	regexp.MustCompile(`^10\.`),
	regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[01])\.`),
	regexp.MustCompile(`^192\.168\.`),
	regexp.MustCompile(`^0\.0\.0\.0$`),
	regexp.MustCompile(`^169\.254\.`),
	regexp.MustCompile(`^::1$`),
	regexp.MustCompile(`^fe[89ab][0-9a-f]:`),
	regexp.MustCompile(`^f[cd][0-9a-f]{2}:`),
}

// Validate classifies candidate. Checks run in a fixed order and the first
// failure wins: empty, scheme, parse, credentials, internal host.
func Validate(candidate string) domain.ValidationVerdict {
	raw := strings.TrimSpace(candidate)
	if raw == "" {
		return domain.RejectedVerdict(domain.ReasonEmpty, "No URL provided")
	}

	if !schemePattern.MatchString(raw) {
		return domain.RejectedVerdict(domain.ReasonSchemeNotAllowed,
			fmt.Sprintf("Only HTTP/HTTPS URLs supported. Got: %s...", preview(Redact(raw))))
	}

	u, err := url.Parse(raw)
	if err != nil {
		// url.Error quotes the whole input, userinfo included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return domain.RejectedVerdict(domain.ReasonMalformed, fmt.Sprintf("Invalid URL format: %v", err))
	}
	host := normalizeHost(u.Hostname())
	if host == "" {
		return domain.RejectedVerdict(domain.ReasonMalformed, "URL has no hostname")
	}

	if u.User != nil {
		return domain.RejectedVerdict(domain.ReasonCredentialsEmbedded, "URLs with embedded credentials not allowed")
	}

	if isInternalHost(host) {
		return domain.RejectedVerdict(domain.ReasonInternalNetwork, "Internal/localhost URLs not allowed")
	}
	if isAmbiguousNumeric(host) {
		return domain.RejectedVerdict(domain.ReasonMalformed, "Numeric host is not a canonical IP address")
	}

	var warnings []string
	if traversalPattern.MatchString(raw) {
		warnings = append(warnings, TraversalWarning)
	}

	u.Host = strings.ToLower(u.Host)
	return domain.AcceptedVerdict(u.String(), u.Scheme, host, warnings)
}

// IsInternalAddr reports whether addr is loopback, private, link-local or
// unspecified. IPv4-mapped IPv6 addresses are judged by their IPv4 form.
func IsInternalAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.Is4() && addr.As4()[0] == 0 {
		return true
	}
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsUnspecified()
}

// DialControl is a net.Dialer Control hook that refuses to connect to an
// internal address, whatever name resolved to it.
func DialControl(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: unparseable address %q", domain.ErrAddressRejected, address)
	}
	if IsInternalAddr(addr) {
		return fmt.Errorf("%w: %s %s", domain.ErrAddressRejected, network, addr)
	}
	return nil
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

func isInternalHost(host string) bool {
	for _, p := range blockedHostPatterns {
		if p.MatchString(host) {
			return true
		}
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return IsInternalAddr(addr)
	}
	return false
}

// isAmbiguousNumeric catches hosts like "2130706433", "0x7f.1" or "0177.0.0.1"
// that some resolvers read as IPv4 addresses.
func isAmbiguousNumeric(host string) bool {
	if _, err := netip.ParseAddr(host); err == nil {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if !numericLabel.MatchString(label) {
			return false
		}
	}
	return true
}

// Redact replaces any userinfo in raw with "redacted" so the URL can be
// logged or journaled. Text that does not parse is redacted by its
// authority section.
func Redact(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		if u.User != nil {
			u.User = url.User("redacted")
		}
		return u.String()
	}
	i := strings.Index(raw, "://")
	if i < 0 {
		if strings.Contains(raw, "@") {
			return "<unparseable url>"
		}
		return raw
	}
	rest := raw[i+3:]
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	at := strings.LastIndex(rest[:end], "@")
	if at < 0 {
		return raw
	}
	return raw[:i+3] + "redacted" + rest[at:]
}

func preview(s string) string {
	const n = 30
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
