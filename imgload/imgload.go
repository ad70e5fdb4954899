// Package imgload resolves an image source (embedded base64 bytes, a remote
// URL, or a sandboxed local path) into validated raw image bytes plus pixel
// dimensions, normalized to PNG for embedding.
//
// The remote path is the only operation that touches the network. It is
// guarded against internal/loopback targets, bounded by a hard timeout, and
// capped by a byte budget enforced while the body streams in.
package imgload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors classifying every way a load can fail.
var (
	ErrNoSource       = errors.New("imgload: no image source given")
	ErrInvalidEncoding = errors.New("imgload: invalid base64 encoding")
	ErrNotAnImage     = errors.New("imgload: payload is not a decodable image")
	ErrRemoteDisabled = errors.New("imgload: remote images are disabled")
	ErrHostDisallowed = errors.New("imgload: remote host is not allowed")
	ErrTimeout        = errors.New("imgload: remote fetch timed out")
	ErrTooLarge       = errors.New("imgload: image exceeds the byte budget")
	ErrPathNotAllowed = errors.New("imgload: local path is outside the asset directory")
)

// FetchError reports a remote fetch that completed with a non-2xx status.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("imgload: fetching %s: upstream status %d", e.URL, e.Status)
}

// Source identifies where the image bytes come from. Exactly one field
// should be set; Base64 wins over URL, URL over Path.
type Source struct {
	Base64 string // raw base64, URL-safe base64, or a data: URL
	URL    string // http(s) remote image
	Path   string // path relative to the sandbox base directory
}

// Options bound and direct a load.
type Options struct {
	AllowRemote bool
	BaseDir     string        // sandbox for Source.Path, default "assets"
	MaxBytes    int64         // per-image budget, default 15 MB
	Timeout     time.Duration // remote fetch deadline, default 12s
	Client      *http.Client
	UserAgent   string
	Referer     string

	// set only by tests so httptest loopback servers pass the guard
	allowLoopback bool
}

const (
	defaultMaxBytes = 15 << 20
	defaultTimeout  = 12 * time.Second
	defaultBaseDir  = "assets"
)

// Image is a validated, PNG-normalized image ready for embedding.
type Image struct {
	PNG      []byte
	WidthPx  int
	HeightPx int
}

// Load resolves src into validated image bytes, or fails with one of the
// package's classified errors.
func Load(ctx context.Context, src Source, opts Options) (*Image, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.BaseDir == "" {
		opts.BaseDir = defaultBaseDir
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}

	switch {
	case src.Base64 != "":
		raw, err := DecodeBase64(src.Base64)
		if err != nil {
			return nil, err
		}
		if int64(len(raw)) > opts.MaxBytes {
			return nil, fmt.Errorf("%w: base64 payload is %d bytes", ErrTooLarge, len(raw))
		}
		return normalize(raw)
	case src.URL != "":
		return fetchRemote(ctx, src.URL, opts)
	case src.Path != "":
		return readLocal(src.Path, opts)
	default:
		return nil, ErrNoSource
	}
}

func fetchRemote(ctx context.Context, rawURL string, opts Options) (*Image, error) {
	if !opts.AllowRemote {
		return nil, ErrRemoteDisabled
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: only http(s) URLs are accepted", ErrHostDisallowed)
	}
	if err := checkHost(ctx, u.Hostname(), opts.allowLoopback); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHostDisallowed, err)
	}
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}
	req.Header.Set("Accept", "image/*,*/*;q=0.8")
	if opts.Referer != "" {
		req.Header.Set("Referer", opts.Referer)
	}

	resp, err := opts.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, rawURL)
		}
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, rawURL)
		}
		return nil, fmt.Errorf("imgload: fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	// Budget enforced while streaming: one extra byte reveals overflow
	// without buffering the whole oversized body.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, rawURL)
		}
		return nil, fmt.Errorf("imgload: reading %s: %w", rawURL, err)
	}
	if int64(len(raw)) > opts.MaxBytes {
		return nil, fmt.Errorf("%w: remote image at %s", ErrTooLarge, rawURL)
	}
	return normalize(raw)
}

// checkHost is the SSRF guard. The name denylist is the documented minimum;
// any literal or resolved address in a loopback, private, link-local or
// unspecified range is rejected before a request is issued.
func checkHost(ctx context.Context, host string, allowLoopback bool) error {
	host = strings.ToLower(host)
	switch host {
	case "", "localhost", "127.0.0.1", "0.0.0.0":
		if !allowLoopback {
			return fmt.Errorf("%w: %q", ErrHostDisallowed, host)
		}
	}
	if allowLoopback {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if disallowedIP(ip) {
			return fmt.Errorf("%w: %s", ErrHostDisallowed, host)
		}
		return nil
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("imgload: resolving %s: %w", host, err)
	}
	for _, addr := range addrs {
		if disallowedIP(addr.IP) {
			return fmt.Errorf("%w: %s resolves to %s", ErrHostDisallowed, host, addr.IP)
		}
	}
	return nil
}

func disallowedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast()
}

func readLocal(path string, opts Options) (*Image, error) {
	base, err := filepath.Abs(opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("imgload: resolving asset dir: %w", err)
	}
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(base, resolved)
	}
	resolved = filepath.Clean(resolved)
	if resolved != base && !strings.HasPrefix(resolved, base+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
	}
	if info.Size() > opts.MaxBytes {
		return nil, fmt.Errorf("%w: local image %s", ErrTooLarge, path)
	}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("imgload: reading %s: %w", path, err)
	}
	return normalize(raw)
}
