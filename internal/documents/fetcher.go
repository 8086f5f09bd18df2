package documents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sedar-crawler/internal/components/assert"
	"sedar-crawler/internal/components/telemetry"
	"sedar-crawler/internal/session"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	report_fetcher_download   = "fetcher.download"
	report_fetcher_invalidate = "fetcher.invalidate"
	report_fetcher_write      = "fetcher.write"
)

var ErrSessionRejected = errors.New("documents: session keeps getting rejected")

type Options struct {
	// Root is the directory the document tree lives under.
	Root string
	// MaxAttempts bounds how many sessions a single fetch may go through,
	// <= 0 means unbounded.
	MaxAttempts int
	// InvalidationHeader is a response header that only shows up when the
	// request did not reach the document.
	InvalidationHeader string
	// InvalidationMarker is a phrase of the consent wall body.
	InvalidationMarker string
}

func DefaultOptions(root string) Options {
	return Options{
		Root:               root,
		MaxAttempts:        10,
		InvalidationHeader: "X-Powered-By",
		InvalidationMarker: "Accept Terms of Use",
	}
}

// Fetcher downloads filing documents through the holder's session, at most
// once per local path.
type Fetcher struct {
	holder *session.Holder
	opts   Options
	tel    telemetry.API
}

func NewFetcher(holder *session.Holder, opts Options, tel telemetry.API) Fetcher {
	assert.NotNil(holder)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.Root)

	if opts.InvalidationHeader == "" && opts.InvalidationMarker == "" {
		defaults := DefaultOptions(opts.Root)
		opts.InvalidationHeader = defaults.InvalidationHeader
		opts.InvalidationMarker = defaults.InvalidationMarker
	}

	return Fetcher{
		holder: holder,
		opts:   opts,
		tel:    telemetry.NewScopedAPI("documents", tel),
	}
}

// Fetch returns the local path of the document at submissionUrl, downloading
// it first if it is not on disk yet. A response that looks like it came from a
// rejected session invalidates the session and the download is retried with a
// fresh one.
func (f Fetcher) Fetch(ctx context.Context, submissionUrl string) (string, error) {
	path, err := LocalPath(f.opts.Root, submissionUrl)
	if err != nil {
		return "", err
	}

	_, err = os.Stat(path)
	if err == nil {
		f.tel.ReportDebug("already downloaded", path)
		return path, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	for attempt := 1; ; attempt++ {
		if f.opts.MaxAttempts > 0 && attempt > f.opts.MaxAttempts {
			err := fmt.Errorf("%w: %s after %d sessions", ErrSessionRejected, submissionUrl, f.opts.MaxAttempts)
			f.tel.ReportBroken(report_fetcher_download, err)
			return "", err
		}

		sess, err := f.holder.EnsureActive(ctx)
		if err != nil {
			return "", err
		}

		f.tel.ReportDebug("downloading", submissionUrl)
		res, err := sess.Http.R().
			SetContext(ctx).
			Get(submissionUrl)
		if err != nil {
			f.tel.ReportWarning(report_fetcher_download, fmt.Errorf("fetch: %w", err), submissionUrl)
			return "", err
		}

		if f.invalidated(res) {
			f.tel.ReportWarning(report_fetcher_invalidate, "session rejected", submissionUrl, attempt)
			f.holder.Invalidate()
			continue
		}
		if res.IsError() {
			err := fmt.Errorf("download %s: status %s", submissionUrl, res.Status())
			f.tel.ReportWarning(report_fetcher_download, err)
			return "", err
		}

		err = writeAtomic(path, res.Body())
		if err != nil {
			f.tel.ReportBroken(report_fetcher_write, err, path)
			return "", err
		}
		f.tel.ReportDebug("downloaded", path, len(res.Body()))
		return path, nil
	}
}

func (f Fetcher) invalidated(res *resty.Response) bool {
	if f.opts.InvalidationHeader != "" && hasHeader(res.Header(), f.opts.InvalidationHeader) {
		return true
	}
	return f.opts.InvalidationMarker != "" &&
		strings.Contains(res.String(), f.opts.InvalidationMarker)
}

func hasHeader(header http.Header, name string) bool {
	_, ok := header[http.CanonicalHeaderKey(name)]
	return ok
}

// writeAtomic never leaves a partially written file at path, since the
// existence of path is what marks a document as downloaded.
func writeAtomic(path string, body []byte) error {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(body)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	err = tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	err = os.Rename(tmp.Name(), path)
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
