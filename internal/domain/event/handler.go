package event

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// LoggingHandler logs all events
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

// Handle logs the event
func (h *LoggingHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case URLRejected:
		h.logger.Warn("url rejected",
			zap.String("request_id", e.RequestID),
			zap.String("url", e.URL),
			zap.String("reason", e.Reason),
			zap.String("message", e.Message),
		)
	case DownloadCompleted:
		h.logger.Info("download completed",
			zap.String("request_id", e.RequestID),
			zap.String("path", e.FinalPath),
			zap.Int64("size", e.Size),
			zap.String("checksum", e.Checksum),
			zap.Duration("duration", e.Duration),
		)
	case DownloadFailed:
		h.logger.Warn("download failed",
			zap.String("request_id", e.RequestID),
			zap.String("destination", e.Destination),
			zap.String("kind", e.Kind),
			zap.String("error", e.Error),
			zap.Bool("transient", e.Transient),
		)
	case ContentMismatched:
		h.logger.Warn("content mismatch, file removed",
			zap.String("request_id", e.RequestID),
			zap.String("path", e.Path),
			zap.String("expected", e.Expected),
			zap.String("detected", e.Detected),
		)
	default:
		h.logger.Debug("domain event",
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
		)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *LoggingHandler) HandledEvents() []string {
	return []string{"*"}
}

// MetricsHandler counts pipeline outcomes
type MetricsHandler struct {
	rejected        atomic.Int64
	completed       atomic.Int64
	failed          atomic.Int64
	mismatched      atomic.Int64
	bytesDownloaded atomic.Int64
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// Handle updates metrics based on the event
func (h *MetricsHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case URLRejected:
		h.rejected.Add(1)
	case DownloadCompleted:
		h.completed.Add(1)
		h.bytesDownloaded.Add(e.Size)
	case DownloadFailed:
		h.failed.Add(1)
	case ContentMismatched:
		h.mismatched.Add(1)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *MetricsHandler) HandledEvents() []string {
	return []string{
		NameURLRejected,
		NameDownloadCompleted,
		NameDownloadFailed,
		NameContentMismatched,
	}
}

// GetMetrics returns current metrics
func (h *MetricsHandler) GetMetrics() map[string]int64 {
	return map[string]int64{
		"urls_rejected":      h.rejected.Load(),
		"downloads_complete": h.completed.Load(),
		"downloads_failed":   h.failed.Load(),
		"content_mismatched": h.mismatched.Load(),
		"bytes_downloaded":   h.bytesDownloaded.Load(),
	}
}
