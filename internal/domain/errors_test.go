package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tapestry/safefetch/internal/domain/vo"
)

func TestDownloadError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *DownloadError
		want string
	}{
		{
			name: "kind detail and cause",
			err:  NewDownloadError(KindSizeLimitExceeded, "body exceeds 1 KiB", ErrSizeLimitExceeded),
			want: "size_limit_exceeded: body exceeds 1 KiB: size limit exceeded",
		},
		{
			name: "kind and detail",
			err:  &DownloadError{Kind: KindHTTPStatus, Detail: "HTTP error 404", StatusCode: 404},
			want: "http_status: HTTP error 404",
		},
		{
			name: "kind only",
			err:  &DownloadError{Kind: KindCanceled},
			want: "canceled",
		},
		{
			name: "unnamed kind",
			err:  &DownloadError{Kind: ErrorKind(99)},
			want: "kind(99)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDownloadError_Unwrap(t *testing.T) {
	err := fmt.Errorf("fetch: %w", NewDownloadError(KindDestinationExists, "/out/a.pdf", ErrDestinationExists))

	if !errors.Is(err, ErrDestinationExists) {
		t.Error("errors.Is should find the sentinel through the DownloadError")
	}
	if got := KindOf(err); got != KindDestinationExists {
		t.Errorf("KindOf() = %v, want %v", got, KindDestinationExists)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindUnknown)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"network", NewDownloadError(KindNetwork, "reset", nil), true},
		{"timeout", NewDownloadError(KindTimeout, "timed out", nil), true},
		{"500", &DownloadError{Kind: KindHTTPStatus, StatusCode: 500}, true},
		{"503 wrapped", fmt.Errorf("x: %w", &DownloadError{Kind: KindHTTPStatus, StatusCode: 503}), true},
		{"429", &DownloadError{Kind: KindHTTPStatus, StatusCode: 429}, true},
		{"404", &DownloadError{Kind: KindHTTPStatus, StatusCode: 404}, false},
		{"size limit", NewDownloadError(KindSizeLimitExceeded, "", ErrSizeLimitExceeded), false},
		{"contract violation", NewDownloadError(KindEmpty, "", ErrContractViolation), false},
		{"canceled", NewDownloadError(KindCanceled, "", nil), false},
		{"address rejected", NewDownloadError(KindAddressRejected, "", ErrAddressRejected), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := RejectedVerdict(ReasonCredentialsEmbedded, "URLs with embedded credentials not allowed").Err()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Err() = %T, want *ValidationError", err)
	}
	if verr.Reason != ReasonCredentialsEmbedded {
		t.Errorf("Reason = %v", verr.Reason)
	}
	if err.Error() != "URLs with embedded credentials not allowed" {
		t.Errorf("Error() = %q", err.Error())
	}

	bare := &ValidationError{Reason: ReasonMalformed}
	if bare.Error() != "url rejected: malformed" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestValidationVerdict_Immutable(t *testing.T) {
	warnings := []string{"w1"}
	v := AcceptedVerdict("https://example.com/", "https", "example.com", warnings)
	warnings[0] = "changed"

	got := v.Warnings()
	if got[0] != "w1" {
		t.Errorf("verdict shares caller slice: %v", got)
	}
	got[0] = "mutated"
	if v.Warnings()[0] != "w1" {
		t.Error("Warnings() exposes internal slice")
	}
	if v.Reason() != ReasonNone || v.Err() != nil {
		t.Errorf("accepted verdict reason = %v, err = %v", v.Reason(), v.Err())
	}
}

func TestVerificationMismatchError(t *testing.T) {
	err := &VerificationMismatchError{Expected: ContentPDF, Detected: ContentHTML}
	if got := err.Error(); got != "content mismatch: expected pdf, detected html" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDownloadSpec_WithDefaults(t *testing.T) {
	v := AcceptedVerdict("https://example.com/a", "https", "example.com", nil)
	name := vo.MustSafeName("a", 0)

	spec := NewDownloadSpec(v, name)
	if spec.MaxBytes != 100*vo.MB || spec.MaxRedirects != 5 || spec.Timeout != 300*time.Second {
		t.Errorf("NewDownloadSpec() limits = %d, %d, %v", spec.MaxBytes, spec.MaxRedirects, spec.Timeout)
	}

	zeroed := DownloadSpec{Verdict: v, Destination: name, MaxRedirects: 0}.WithDefaults()
	if zeroed.MaxBytes != DefaultMaxBytes || zeroed.Timeout != DefaultTimeout {
		t.Errorf("WithDefaults() = %+v", zeroed)
	}
	if zeroed.MaxRedirects != 0 {
		t.Errorf("MaxRedirects = %d, zero must be kept", zeroed.MaxRedirects)
	}

	negative := DownloadSpec{MaxRedirects: -1}.WithDefaults()
	if negative.MaxRedirects != DefaultMaxRedirects {
		t.Errorf("MaxRedirects = %d, want default", negative.MaxRedirects)
	}
}
