package domain

// RejectionReason explains why a candidate URL was rejected
type RejectionReason int

const (
	ReasonNone RejectionReason = iota
	ReasonEmpty
	ReasonSchemeNotAllowed
	ReasonMalformed
	ReasonCredentialsEmbedded
	ReasonInternalNetwork
)

func (r RejectionReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonEmpty:
		return "empty"
	case ReasonSchemeNotAllowed:
		return "scheme_not_allowed"
	case ReasonMalformed:
		return "malformed"
	case ReasonCredentialsEmbedded:
		return "credentials_embedded"
	case ReasonInternalNetwork:
		return "internal_network"
	default:
		return "unknown"
	}
}

// ValidationVerdict is the immutable result of validating one candidate URL.
// The zero value is a rejected verdict.
type ValidationVerdict struct {
	accepted bool
	scheme   string
	host     string
	url      string
	reason   RejectionReason
	message  string
	warnings []string
}

// AcceptedVerdict builds an accepted verdict for a normalized URL.
func AcceptedVerdict(url, scheme, host string, warnings []string) ValidationVerdict {
	return ValidationVerdict{
		accepted: true,
		scheme:   scheme,
		host:     host,
		url:      url,
		warnings: append([]string(nil), warnings...),
	}
}

// RejectedVerdict builds a rejected verdict.
func RejectedVerdict(reason RejectionReason, message string) ValidationVerdict {
	return ValidationVerdict{reason: reason, message: message}
}

func (v ValidationVerdict) Accepted() bool          { return v.accepted }
func (v ValidationVerdict) Scheme() string          { return v.scheme }
func (v ValidationVerdict) Host() string            { return v.host }
func (v ValidationVerdict) URL() string             { return v.url }
func (v ValidationVerdict) Reason() RejectionReason { return v.reason }
func (v ValidationVerdict) Message() string         { return v.message }

// Warnings returns non-fatal findings such as traversal patterns in the path.
func (v ValidationVerdict) Warnings() []string {
	return append([]string(nil), v.warnings...)
}

// Err returns a *ValidationError for a rejected verdict, nil otherwise.
func (v ValidationVerdict) Err() error {
	if v.accepted {
		return nil
	}
	if v.reason == ReasonNone {
		return &ValidationError{Reason: ReasonEmpty, Message: "url was never validated"}
	}
	return &ValidationError{Reason: v.reason, Message: v.message}
}
