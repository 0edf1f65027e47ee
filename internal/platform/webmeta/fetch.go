// Package webmeta fetches a web page and extracts its title and metadata.
package webmeta

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// UnparsableMimeTypes never yield a title; backfill sweeps skip them.
var UnparsableMimeTypes = []string{
	"application/pdf",
	"application/zip",
	"application/octet-stream",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"image/jpeg",
	"image/png",
	"image/gif",
	"video/mp4",
	"audio/mpeg",
}

type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	HostRPS      float64
	HostBurst    int
	UserAgent    string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 2 << 20
	}
	if c.HostBurst < 1 {
		c.HostBurst = 1
	}
	if c.UserAgent == "" {
		c.UserAgent = "ttahub-resources/1.0 (+metadata)"
	}
	return c
}

// Result is what one fetch learned. StatusCode is set whenever a response
// arrived, including on a StatusError.
type Result struct {
	StatusCode int
	MimeType   string
	Title      string
	Metadata   map[string]any
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("unexpected status %d", e.Code) }

var ErrUnsupportedScheme = errors.New("unsupported url scheme")

type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter *hostLimiter
}

func NewFetcher(cfg Config, client *http.Client) *Fetcher {
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		cfg:     cfg,
		client:  client,
		limiter: newHostLimiter(cfg.HostRPS, cfg.HostBurst),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	if err := f.limiter.Wait(ctx, strings.ToLower(u.Hostname())); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &Result{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return out, fmt.Errorf("read body: %w", err)
	}
	out.MimeType = detectMime(resp.Header.Get("Content-Type"), body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &StatusError{Code: resp.StatusCode}
	}
	if !isHTML(out.MimeType) {
		return out, nil
	}
	page, err := ParseHTML(bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("parse html: %w", err)
	}
	out.Title = page.Title
	out.Metadata = page.Metadata()
	return out, nil
}

// detectMime prefers the declared Content-Type and sniffs the body when the
// server sent none or a generic one.
func detectMime(header string, body []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "" && mt != "application/octet-stream" {
		return strings.ToLower(mt)
	}
	if len(body) == 0 {
		return ""
	}
	mt, _, _ := mime.ParseMediaType(mimetype.Detect(body).String())
	return strings.ToLower(mt)
}

func isHTML(mt string) bool {
	return mt == "text/html" || mt == "application/xhtml+xml"
}
