// Package pipeline runs one request through validate, sanitize, download
// and verify, and optionally journals the outcome.
package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tapestry/safefetch/internal/domain"
	"github.com/tapestry/safefetch/internal/domain/event"
	"github.com/tapestry/safefetch/internal/domain/vo"
	"github.com/tapestry/safefetch/internal/port"
	"github.com/tapestry/safefetch/internal/service/sanitizer"
	"github.com/tapestry/safefetch/internal/service/urlguard"
	"github.com/tapestry/safefetch/internal/service/verifier"
)

// Fetcher performs the download step
type Fetcher interface {
	Download(ctx context.Context, spec domain.DownloadSpec, outputDir string) (*domain.DownloadResult, error)
}

// Config holds the limits applied to every request
type Config struct {
	MaxBytes      int64
	MaxRedirects  int
	Timeout       time.Duration
	Overwrite     bool
	MaxNameLength int
}

// DefaultConfig returns the default pipeline limits
func DefaultConfig() Config {
	return Config{
		MaxBytes:      domain.DefaultMaxBytes,
		MaxRedirects:  domain.DefaultMaxRedirects,
		Timeout:       domain.DefaultTimeout,
		MaxNameLength: vo.DefaultMaxNameLength,
	}
}

// Request is one caller-initiated fetch
type Request struct {
	URL string

	// Name is an untrusted title for the file; empty derives it from the URL
	Name string

	OutputDir string

	// Expected enables header verification; ContentUnknown skips it
	Expected domain.ContentKind

	ExpectedChecksum string
}

// Outcome collects what each stage produced. Fields after the failing
// stage are zero.
type Outcome struct {
	RequestID string
	Verdict   domain.ValidationVerdict
	Name      vo.SafeName
	Result    *domain.DownloadResult
	Content   *domain.ContentVerdict
}

// Service wires the stages together
type Service struct {
	fetcher Fetcher
	journal port.Journal
	events  event.EventDispatcher
	config  Config
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a pipeline. journal may be nil.
func New(fetcher Fetcher, journal port.Journal, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fetcher: fetcher,
		journal: journal,
		events:  event.NullDispatcher{},
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// WithEvents makes the service report each run's outcome to d
func (s *Service) WithEvents(d event.EventDispatcher) *Service {
	if d == nil {
		d = event.NullDispatcher{}
	}
	s.events = d
	return s
}

// Fetch runs req through every stage. The returned error is a
// *domain.ValidationError, *domain.DownloadError or
// *domain.VerificationMismatchError; a mismatched file is deleted.
func (s *Service) Fetch(ctx context.Context, req Request) (*Outcome, error) {
	out := &Outcome{RequestID: uuid.NewString()}
	log := s.logger.With(zap.String("request_id", out.RequestID))

	entry := &domain.JournalEntry{
		RequestID: out.RequestID,
		URL:       urlguard.Redact(req.URL),
		StartedAt: s.now(),
	}
	defer s.record(ctx, entry, log)

	out.Verdict = urlguard.Validate(req.URL)
	if !out.Verdict.Accepted() {
		s.events.Dispatch(event.NewURLRejected(out.RequestID, entry.URL, out.Verdict.Reason().String(), out.Verdict.Message()))
		entry.Status = domain.JournalStatusRejected
		entry.ErrorKind = out.Verdict.Reason().String()
		entry.Detail = out.Verdict.Message()
		return out, out.Verdict.Err()
	}
	for _, w := range out.Verdict.Warnings() {
		log.Warn(w, zap.String("host", out.Verdict.Host()))
	}

	if req.Name != "" {
		out.Name = sanitizer.Sanitize(req.Name, s.config.MaxNameLength)
	} else {
		out.Name = sanitizer.FromURL(out.Verdict.URL(), s.config.MaxNameLength)
	}
	entry.Destination = out.Name.String()

	spec := domain.NewDownloadSpec(out.Verdict, out.Name)
	spec.MaxBytes = s.config.MaxBytes
	spec.MaxRedirects = s.config.MaxRedirects
	spec.Timeout = s.config.Timeout
	spec.Overwrite = s.config.Overwrite
	spec.ExpectedChecksum = req.ExpectedChecksum

	res, err := s.fetcher.Download(ctx, spec, req.OutputDir)
	if err != nil {
		s.events.Dispatch(event.NewDownloadFailed(out.RequestID, out.Name.String(), domain.KindOf(err).String(), err.Error(), domain.IsTransient(err)))
		entry.Status = domain.JournalStatusFailed
		entry.ErrorKind = domain.KindOf(err).String()
		entry.Detail = err.Error()
		return out, err
	}
	out.Result = res
	entry.FinalPath = res.FinalPath
	entry.Bytes = res.BytesWritten
	entry.Checksum = res.Checksum

	if req.Expected != domain.ContentUnknown {
		cv := verifier.Verify(res.FinalPath, req.Expected)
		out.Content = &cv
		if !cv.MatchesExpectedType {
			mismatch := &domain.VerificationMismatchError{Expected: req.Expected, Detected: cv.DetectedKind}
			if err := os.Remove(res.FinalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Error("failed to remove mismatched file", zap.Error(err))
			}
			res.Completed = false
			s.events.Dispatch(event.NewContentMismatched(out.RequestID, res.FinalPath, req.Expected.String(), cv.DetectedKind.String()))
			entry.Status = domain.JournalStatusMismatch
			entry.ErrorKind = "content_mismatch"
			entry.Detail = mismatch.Error()
			return out, mismatch
		}
	}

	entry.Status = domain.JournalStatusCompleted
	s.events.Dispatch(event.NewDownloadCompleted(out.RequestID, res.FinalPath, res.BytesWritten, res.Checksum, res.Duration))
	return out, nil
}

func (s *Service) record(ctx context.Context, entry *domain.JournalEntry, log *zap.Logger) {
	if s.journal == nil {
		return
	}
	entry.FinishedAt = s.now()
	// The run may have been canceled; its outcome is still worth keeping.
	if _, err := s.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn("failed to record journal entry", zap.Error(err))
	}
}
