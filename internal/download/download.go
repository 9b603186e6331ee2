// Package download retrieves installer scripts over HTTP and caches them on disk.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
)

// Downloader writes the resource at uri to w.
type Downloader interface {
	Download(ctx context.Context, uri string, w io.Writer) error
}

// ProgressFunc receives human readable progress messages.
type ProgressFunc func(msg string)

// HTTP downloads http and https URIs.
type HTTP struct {
	client   *http.Client
	progress ProgressFunc
}

// NewHTTP returns an HTTP downloader. progress may be nil.
func NewHTTP(progress ProgressFunc) *HTTP {
	return &HTTP{
		client: &http.Client{
			Timeout: 0, // Handled by context
		},
		progress: progress,
	}
}

func (h *HTTP) Download(ctx context.Context, uri string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	pw := &progressWriter{
		report: h.progress,
		total:  resp.ContentLength,
		start:  time.Now(),
	}

	if _, err := io.Copy(io.MultiWriter(w, pw), resp.Body); err != nil {
		return err
	}
	pw.finish()
	return nil
}

type progressWriter struct {
	report  ProgressFunc
	total   int64
	written int64
	start   time.Time
	last    time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.written += int64(n)

	if pw.report != nil && time.Since(pw.last) > 500*time.Millisecond {
		pw.last = time.Now()
		pw.report(pw.message())
	}
	return n, nil
}

func (pw *progressWriter) finish() {
	if pw.report != nil {
		pw.report(pw.message())
	}
}

func (pw *progressWriter) message() string {
	if pw.total > 0 {
		elapsed := time.Since(pw.start).Seconds()
		speed := 0.0
		if elapsed > 0 {
			speed = float64(pw.written) / elapsed
		}
		return fmt.Sprintf("%s / %s (%s/s)",
			humanize.Bytes(uint64(pw.written)),
			humanize.Bytes(uint64(pw.total)),
			humanize.Bytes(uint64(speed)))
	}
	return fmt.Sprintf("%s downloaded", humanize.Bytes(uint64(pw.written)))
}

// Cache stores downloads in a directory keyed by the URI's base name.
type Cache struct {
	Downloader Downloader
	// Dir defaults to virtphp under the XDG cache home.
	Dir    string
	Logger *slog.Logger
}

// NewCache wraps d with an on-disk cache in dir.
func NewCache(d Downloader, dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{Downloader: d, Dir: dir, Logger: logger}
}

// Fetch returns a local path holding the resource at uri, downloading it
// only when it is not cached yet.
func (c *Cache) Fetch(ctx context.Context, uri string) (string, error) {
	name, err := fileName(uri)
	if err != nil {
		return "", err
	}

	target, err := c.path(name)
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		c.Logger.Debug("using cached download", "uri", uri, "path", target)
		return target, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), name+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err := c.Downloader.Download(ctx, uri, tmp); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to download %s: %w", uri, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write download: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to store download: %w", err)
	}

	c.Logger.Debug("downloaded", "uri", uri, "path", target)
	return target, nil
}

func (c *Cache) path(name string) (string, error) {
	if c.Dir == "" {
		p, err := xdg.CacheFile(filepath.Join("virtphp", name))
		if err != nil {
			return "", fmt.Errorf("failed to resolve cache path: %w", err)
		}
		return p, nil
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}
	return filepath.Join(c.Dir, name), nil
}

func fileName(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid URI %q: %w", uri, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = u.Host
	}
	return name, nil
}
