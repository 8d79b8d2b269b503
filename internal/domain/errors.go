package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Common domain errors
var (
	ErrContractViolation = errors.New("download spec does not carry an accepted verdict")
	ErrSizeLimitExceeded = errors.New("size limit exceeded")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrRedirectRejected  = errors.New("redirect target rejected")
	ErrAddressRejected   = errors.New("resolved address is internal")
	ErrDestinationExists = errors.New("destination already exists")
	ErrInsufficientSpace = errors.New("insufficient space")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrOutsideOutputDir  = errors.New("path escapes output directory")
)

// ValidationError is returned when a candidate URL is rejected.
type ValidationError struct {
	Reason  RejectionReason
	Message string
}

// Error returns the error message
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "url rejected: " + e.Reason.String()
}

// ErrorKind classifies a DownloadError.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindEmpty means a DownloadSpec carried no accepted verdict or no destination.
	// It signals a caller bug and is never retried.
	KindEmpty
	KindNetwork
	KindTimeout
	KindCanceled
	KindHTTPStatus
	KindSizeLimitExceeded
	KindTooManyRedirects
	KindRedirectRejected
	// KindAddressRejected means a hostname resolved to an internal address.
	KindAddressRejected
	KindDestinationExists
	KindInsufficientSpace
	KindChecksumMismatch
	KindIO
)

var kindNames = map[ErrorKind]string{
	KindUnknown:           "unknown",
	KindEmpty:             "empty",
	KindNetwork:           "network_failure",
	KindTimeout:           "timeout",
	KindCanceled:          "canceled",
	KindHTTPStatus:        "http_status",
	KindSizeLimitExceeded: "size_limit_exceeded",
	KindTooManyRedirects:  "too_many_redirects",
	KindRedirectRejected:  "redirect_rejected",
	KindAddressRejected:   "address_rejected",
	KindDestinationExists: "destination_exists",
	KindInsufficientSpace: "insufficient_space",
	KindChecksumMismatch:  "checksum_mismatch",
	KindIO:                "io",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DownloadError is the typed failure returned by the downloader.
type DownloadError struct {
	Kind       ErrorKind
	Detail     string
	StatusCode int
	Err        error
}

// Error returns the error message
func (e *DownloadError) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError creates a new download error
func NewDownloadError(kind ErrorKind, detail string, err error) *DownloadError {
	return &DownloadError{Kind: kind, Detail: detail, Err: err}
}

// KindOf returns the kind of a DownloadError anywhere in err's chain,
// or KindUnknown.
func KindOf(err error) ErrorKind {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsTransient reports whether re-invoking the download might succeed.
// The downloader itself never retries; this is for the caller's policy.
func IsTransient(err error) bool {
	var de *DownloadError
	if !errors.As(err, &de) {
		return false
	}
	switch de.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindHTTPStatus:
		return de.StatusCode >= http.StatusInternalServerError || de.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// VerificationMismatchError reports downloaded content of an unexpected type.
type VerificationMismatchError struct {
	Expected ContentKind
	Detected ContentKind
}

// Error returns the error message
func (e *VerificationMismatchError) Error() string {
	return fmt.Sprintf("content mismatch: expected %s, detected %s", e.Expected, e.Detected)
}
