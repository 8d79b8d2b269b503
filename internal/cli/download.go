package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tapestry/safefetch/internal/domain"
	"github.com/tapestry/safefetch/internal/domain/event"
	"github.com/tapestry/safefetch/internal/port"
	"github.com/tapestry/safefetch/internal/service/downloader"
	"github.com/tapestry/safefetch/internal/service/pipeline"
)

const downloadHelp = `
Download a URL into the output directory.

The URL is validated first; rejected URLs exit with status 1 and nothing is
fetched. The destination name is sanitized from the optional second argument,
or derived from the URL path when omitted. Download and verification failures
exit with status 2 and leave no partial file behind.

On success the absolute path of the new file is printed on stdout.
`

type downloadOptions struct {
	expect   string
	checksum string
	progress bool
}

func (a *app) newDownloadCommand() *cobra.Command {
	o := &downloadOptions{}
	cmd := &cobra.Command{
		Use:   "download <url> [destination-name]",
		Short: "Fetch a URL with size, redirect and time limits",
		Long:  downloadHelp,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDownload(cmd.Context(), o, args)
		},
	}

	f := cmd.Flags()
	f.String("output-dir", ".", "directory to write into (created if missing)")
	f.Int("max-size-mb", 100, "maximum body size in MiB")
	f.Int("max-redirects", 5, "maximum number of redirects to follow")
	f.String("timeout", "300s", "wall-clock limit for the whole transfer")
	f.Bool("overwrite", false, "replace an existing file at the destination")
	f.String("user-agent", downloader.DefaultUserAgent, "User-Agent header to send")
	f.Int("max-length", 100, "maximum destination name length in code points")
	f.StringVar(&o.expect, "expect", "", "expected content kind (pdf, png, jpeg, gif, zip, gzip, html)")
	f.StringVar(&o.checksum, "checksum", "", "expected BLAKE3 hex digest of the body")
	f.BoolVar(&o.progress, "progress", false, "show a progress bar on stderr")

	return cmd
}

func (a *app) runDownload(ctx context.Context, o *downloadOptions, args []string) error {
	var expected domain.ContentKind
	if o.expect != "" {
		k, err := domain.ParseContentKind(o.expect)
		if err != nil {
			return usageError(err)
		}
		expected = k
	}

	var journal port.Journal
	store, err := a.openJournal()
	if err != nil {
		return exitError(ExitRejected, err)
	}
	if store != nil {
		defer store.Close()
		journal = store
	}

	dl := a.cfg.Download
	opts := downloader.Options{
		UserAgent:        dl.UserAgent,
		VerifyResolvedIP: dl.VerifyResolvedIP,
		BufferSize:       dl.GetBufferSize(),
		ProgressInterval: dl.GetProgressInterval(),
	}
	if o.progress {
		opts.Progress = a.progressBar
	}

	events, metrics := a.newEventDispatcher()
	defer a.logMetrics(metrics)

	svc := pipeline.New(downloader.New(opts, a.log), journal, pipeline.Config{
		MaxBytes:      dl.GetMaxBytes(),
		MaxRedirects:  dl.MaxRedirects,
		Timeout:       dl.GetTimeout(),
		Overwrite:     dl.Overwrite,
		MaxNameLength: a.cfg.Sanitize.MaxLength,
	}, a.log).WithEvents(events)

	req := pipeline.Request{
		URL:              args[0],
		OutputDir:        dl.OutputDir,
		Expected:         expected,
		ExpectedChecksum: o.checksum,
	}
	if len(args) == 2 {
		req.Name = args[1]
	}

	out, err := svc.Fetch(ctx, req)
	a.printWarnings(out.Verdict.Warnings())
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return exitError(ExitRejected, err)
		}
		return exitError(ExitFailed, err)
	}

	fmt.Fprintln(a.stdout, out.Result.FinalPath)
	return nil
}

// newEventDispatcher logs every pipeline outcome and counts them
func (a *app) newEventDispatcher() (*event.InMemoryDispatcher, *event.MetricsHandler) {
	d := event.NewInMemoryDispatcher()
	m := event.NewMetricsHandler()
	d.Subscribe(event.NewLoggingHandler(a.log))
	d.Subscribe(m)
	return d, m
}

func (a *app) logMetrics(m *event.MetricsHandler) {
	a.log.Debug("download metrics", zap.Any("metrics", m.GetMetrics()))
}

// progressBar renders byte progress on stderr; an unknown length (-1)
// shows a spinner.
func (a *app) progressBar(contentLength int64) io.Writer {
	return progressbar.NewOptions64(contentLength,
		progressbar.OptionSetWriter(a.stderr),
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(a.stderr, "\n")
		}),
	)
}
