package event

import (
	"time"
)

// Event names
const (
	NameURLRejected       = "url.rejected"
	NameDownloadCompleted = "download.completed"
	NameDownloadFailed    = "download.failed"
	NameContentMismatched = "content.mismatched"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	// EventName returns the name of the event
	EventName() string
	// OccurredAt returns when the event occurred
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	Timestamp time.Time
	RequestID string
}

// OccurredAt returns when the event occurred
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func newBase(requestID string) BaseEvent {
	return BaseEvent{Timestamp: time.Now(), RequestID: requestID}
}

// URLRejected is raised when a candidate URL fails validation.
// URL has any credentials redacted.
type URLRejected struct {
	BaseEvent
	URL     string
	Reason  string
	Message string
}

// EventName returns the event name
func (e URLRejected) EventName() string {
	return NameURLRejected
}

// NewURLRejected creates a new URLRejected event
func NewURLRejected(requestID, url, reason, message string) URLRejected {
	return URLRejected{
		BaseEvent: newBase(requestID),
		URL:       url,
		Reason:    reason,
		Message:   message,
	}
}

// DownloadCompleted is raised when a file has been published at its destination
type DownloadCompleted struct {
	BaseEvent
	FinalPath string
	Size      int64
	Checksum  string
	Duration  time.Duration
}

// EventName returns the event name
func (e DownloadCompleted) EventName() string {
	return NameDownloadCompleted
}

// NewDownloadCompleted creates a new DownloadCompleted event
func NewDownloadCompleted(requestID, finalPath string, size int64, checksum string, duration time.Duration) DownloadCompleted {
	return DownloadCompleted{
		BaseEvent: newBase(requestID),
		FinalPath: finalPath,
		Size:      size,
		Checksum:  checksum,
		Duration:  duration,
	}
}

// DownloadFailed is raised when the download step returns an error
type DownloadFailed struct {
	BaseEvent
	Destination string
	Kind        string
	Error       string
	Transient   bool
}

// EventName returns the event name
func (e DownloadFailed) EventName() string {
	return NameDownloadFailed
}

// NewDownloadFailed creates a new DownloadFailed event
func NewDownloadFailed(requestID, destination, kind, errMsg string, transient bool) DownloadFailed {
	return DownloadFailed{
		BaseEvent:   newBase(requestID),
		Destination: destination,
		Kind:        kind,
		Error:       errMsg,
		Transient:   transient,
	}
}

// ContentMismatched is raised when a downloaded file's header does not match
// the expected kind. The file has been removed by the time handlers run.
type ContentMismatched struct {
	BaseEvent
	Path     string
	Expected string
	Detected string
}

// EventName returns the event name
func (e ContentMismatched) EventName() string {
	return NameContentMismatched
}

// NewContentMismatched creates a new ContentMismatched event
func NewContentMismatched(requestID, path, expected, detected string) ContentMismatched {
	return ContentMismatched{
		BaseEvent: newBase(requestID),
		Path:      path,
		Expected:  expected,
		Detected:  detected,
	}
}
