// Package downloader fetches one validated URL into one SafeName inside a
// caller-chosen directory, enforcing size, redirect and time limits.
//
// A download either publishes a complete file at the destination or leaves
// nothing behind: bytes are staged in a hidden temp file next to the
// destination and only linked into place once every check has passed.
package downloader

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/tapestry/safefetch/internal/adapter/filesystem"
	"github.com/tapestry/safefetch/internal/domain"
	"github.com/tapestry/safefetch/internal/domain/vo"
	"github.com/tapestry/safefetch/internal/port"
	"github.com/tapestry/safefetch/internal/service/urlguard"
	"github.com/tapestry/safefetch/internal/util/ratelimiter"
)

// DefaultUserAgent is sent unless Options.UserAgent overrides it.
const DefaultUserAgent = "Mozilla/5.0 (compatible; Tapestry/1.0)"

const (
	defaultBufferSize       = 32 * 1024
	defaultProgressInterval = 5 * time.Second
)

// Options configures a Downloader
type Options struct {
	// Transport overrides the HTTP transport. When nil a transport is built
	// that, with VerifyResolvedIP, refuses to connect to internal addresses.
	Transport http.RoundTripper

	UserAgent        string
	VerifyResolvedIP bool
	BufferSize       int
	ProgressInterval time.Duration

	// Progress, when set, is called once per transfer with the declared
	// length (-1 if unknown) and receives a copy of every body byte.
	Progress func(contentLength int64) io.Writer

	// NewFileSystem builds the staging area for an output directory.
	NewFileSystem func(outputDir string, bufferSize int) (port.FileSystem, error)
}

// Downloader performs bounded downloads. It is safe for concurrent use.
type Downloader struct {
	transport http.RoundTripper
	opts      Options
	logger    *zap.Logger
}

// New creates a new Downloader
func New(opts Options, logger *zap.Logger) *Downloader {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.ProgressInterval == 0 {
		opts.ProgressInterval = defaultProgressInterval
	}
	if opts.NewFileSystem == nil {
		opts.NewFileSystem = func(dir string, bufferSize int) (port.FileSystem, error) {
			return filesystem.NewManagerWithBufferSize(dir, bufferSize)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := opts.Transport
	if transport == nil {
		transport = newTransport(opts.VerifyResolvedIP)
	}

	return &Downloader{
		transport: transport,
		opts:      opts,
		logger:    logger,
	}
}

// newTransport clones the default transport. With verify set, every dial is
// checked against the address it actually connects to, and proxies are not
// used since the proxy address would be checked instead of the target.
func newTransport(verify bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	if verify {
		dialer.Control = urlguard.DialControl
		t.Proxy = nil
	}
	t.DialContext = dialer.DialContext
	return t
}

// Download fetches spec into outputDir. On success the returned result is
// Completed and the caller owns FinalPath. On failure the error is a
// *domain.DownloadError and neither the destination nor a temp file exists.
func (d *Downloader) Download(ctx context.Context, spec domain.DownloadSpec, outputDir string) (*domain.DownloadResult, error) {
	start := time.Now()

	if !spec.Verdict.Accepted() || spec.Destination.IsZero() {
		return nil, domain.NewDownloadError(domain.KindEmpty, "spec needs an accepted verdict and a destination", domain.ErrContractViolation)
	}
	// Verdicts can be built by hand; the URL must still pass.
	if v := urlguard.Validate(spec.Verdict.URL()); !v.Accepted() {
		return nil, domain.NewDownloadError(domain.KindEmpty, v.Message(), domain.ErrContractViolation)
	}
	spec = spec.WithDefaults()

	fsys, err := d.opts.NewFileSystem(outputDir, d.opts.BufferSize)
	if err != nil {
		return nil, domain.NewDownloadError(domain.KindIO, "prepare output dir", err)
	}
	dest, err := fsys.Destination(spec.Destination)
	if err != nil {
		return nil, domain.NewDownloadError(domain.KindIO, "resolve destination", err)
	}
	if !spec.Overwrite && fsys.Exists(dest) {
		return nil, domain.NewDownloadError(domain.KindDestinationExists, dest, domain.ErrDestinationExists)
	}

	ctx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.Verdict.URL(), nil)
	if err != nil {
		return nil, domain.NewDownloadError(domain.KindNetwork, "build request", err)
	}
	req.Header.Set("User-Agent", d.opts.UserAgent)

	client := &http.Client{
		Transport:     d.transport,
		CheckRedirect: d.checkRedirect(spec.MaxRedirects),
	}

	d.logger.Debug("starting download",
		zap.String("url", spec.Verdict.URL()),
		zap.String("destination", dest),
		zap.Int64("max_bytes", spec.MaxBytes),
		zap.Duration("timeout", spec.Timeout))

	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(ctx, err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.DownloadError{
			Kind:       domain.KindHTTPStatus,
			Detail:     fmt.Sprintf("HTTP error %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	limit := vo.ByteSizeFromBytes(spec.MaxBytes)
	declared := vo.ByteSizeFromBytes(resp.ContentLength)
	if declared.ExceedsLimit(limit) {
		return nil, domain.NewDownloadError(domain.KindSizeLimitExceeded,
			fmt.Sprintf("declared %s exceeds %s", declared, limit),
			domain.ErrSizeLimitExceeded)
	}
	if !declared.IsZero() {
		if du, err := fsys.GetDiskUsage(); err == nil {
			free := vo.ByteSizeFromBytes(int64(min(du.Free, math.MaxInt64)))
			if declared.ExceedsLimit(free) {
				return nil, domain.NewDownloadError(domain.KindInsufficientSpace,
					fmt.Sprintf("need %s, %s free", declared, free),
					domain.ErrInsufficientSpace)
			}
		}
	}

	hasher := blake3.New()
	sinks := []io.Writer{hasher}
	if d.opts.Progress != nil {
		if w := d.opts.Progress(resp.ContentLength); w != nil {
			sinks = append(sinks, w)
		}
	}

	limiter := ratelimiter.New(d.opts.ProgressInterval)
	limiter.Allow()
	meter := &meteredReader{
		reader: resp.Body,
		limit:  spec.MaxBytes,
		onRead: func(total int64) {
			limiter.Do(func() {
				d.logger.Info("download progress",
					zap.String("destination", dest),
					zap.Stringer("received", vo.ByteSizeFromBytes(total)))
			})
		},
	}

	tempPath, written, err := fsys.WriteTemp(io.TeeReader(meter, io.MultiWriter(sinks...)))
	if err != nil {
		if meter.readErr != nil {
			return nil, classify(ctx, err, "transfer interrupted")
		}
		if errors.Is(err, domain.ErrSizeLimitExceeded) {
			return nil, domain.NewDownloadError(domain.KindSizeLimitExceeded,
				fmt.Sprintf("body exceeds %s", limit), err)
		}
		return nil, domain.NewDownloadError(domain.KindIO, "write temp file", err)
	}

	// Runs after a commit too: a link commit leaves the temp file in place.
	defer func() {
		if err := fsys.Discard(tempPath); err != nil {
			d.logger.Warn("failed to remove temp file", zap.String("path", tempPath), zap.Error(err))
		}
	}()

	checksum := hex.EncodeToString(hasher.Sum(nil))
	if want := spec.ExpectedChecksum; want != "" && !strings.EqualFold(want, checksum) {
		return nil, domain.NewDownloadError(domain.KindChecksumMismatch,
			fmt.Sprintf("want %s, got %s", want, checksum), domain.ErrChecksumMismatch)
	}

	if err := fsys.Commit(tempPath, dest, spec.Overwrite); err != nil {
		if errors.Is(err, domain.ErrDestinationExists) {
			return nil, domain.NewDownloadError(domain.KindDestinationExists, dest, err)
		}
		return nil, domain.NewDownloadError(domain.KindIO, "commit", err)
	}

	result := &domain.DownloadResult{
		FinalPath:    dest,
		BytesWritten: written,
		Completed:    true,
		Checksum:     checksum,
		ContentType:  mediaType(resp.Header.Get("Content-Type")),
		Duration:     time.Since(start),
	}

	d.logger.Info("download complete",
		zap.String("path", dest),
		zap.Int64("bytes", written),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// checkRedirect caps the hop count and re-validates every hop, so a public
// URL cannot bounce the client into the internal network.
func (d *Downloader) checkRedirect(maxRedirects int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return fmt.Errorf("%w: limit is %d", domain.ErrTooManyRedirects, maxRedirects)
		}
		if v := urlguard.Validate(req.URL.String()); !v.Accepted() {
			return fmt.Errorf("%w: %s", domain.ErrRedirectRejected, v.Message())
		}
		d.logger.Debug("following redirect", zap.String("to", req.URL.Redacted()), zap.Int("hop", len(via)))
		return nil
	}
}

// classify maps a transport or read error to a DownloadError kind.
func classify(ctx context.Context, err error, detail string) *domain.DownloadError {
	kind := domain.KindNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, domain.ErrTooManyRedirects):
		kind = domain.KindTooManyRedirects
	case errors.Is(err, domain.ErrRedirectRejected):
		kind = domain.KindRedirectRejected
	case errors.Is(err, domain.ErrAddressRejected):
		kind = domain.KindAddressRejected
	case errors.Is(ctx.Err(), context.Canceled):
		kind = domain.KindCanceled
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		kind = domain.KindTimeout
		detail = "timed out"
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = domain.KindTimeout
		detail = "timed out"
	}
	return domain.NewDownloadError(kind, detail, err)
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return header
	}
	return mt
}

// meteredReader counts body bytes and fails once more than limit arrive.
// Bytes past the limit are never handed to the writer.
type meteredReader struct {
	reader  io.Reader
	limit   int64
	read    int64
	readErr error
	onRead  func(total int64)
}

func (r *meteredReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read += int64(n)

	if r.read > r.limit {
		excess := r.read - r.limit
		return n - int(excess), fmt.Errorf("%w: more than %d bytes", domain.ErrSizeLimitExceeded, r.limit)
	}
	if err != nil && err != io.EOF {
		r.readErr = err
	}
	if n > 0 && r.onRead != nil {
		r.onRead(r.read)
	}
	return n, err
}
