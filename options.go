package docgen

import (
	"net/http"
	"time"
)

// Option is a functional option for configuring an Engine via NewEngine.
type Option func(*Engine)

// WithFontDir sets the directory searched for the DejaVu Unicode font pair.
// If the pair is missing the engine falls back to the built-in Helvetica.
func WithFontDir(dir string) Option {
	return func(e *Engine) {
		e.fontDir = dir
	}
}

// WithAssetDir sets the sandbox directory that local image paths resolve
// against. Paths escaping it are rejected.
func WithAssetDir(dir string) Option {
	return func(e *Engine) {
		e.assetDir = dir
	}
}

// WithHTTPClient sets the client used for remote image fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.client = c
	}
}

// WithMaxImageBytes sets the per-image byte budget enforced while streaming.
func WithMaxImageBytes(n int64) Option {
	return func(e *Engine) {
		e.maxImageBytes = n
	}
}

// WithRemoteTimeout sets the hard deadline for one remote image fetch.
func WithRemoteTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.remoteTimeout = d
	}
}

// Engine renders document descriptors. It holds configuration only; every
// Render call builds its own page state, so one Engine is safe to share
// across concurrent requests without locking.
type Engine struct {
	fontDir       string
	assetDir      string
	client        *http.Client
	maxImageBytes int64
	remoteTimeout time.Duration
}

// Defaults mirror the limits the engine has always shipped with.
const (
	defaultMaxImageBytes = 15 << 20
	defaultRemoteTimeout = 12 * time.Second
	defaultFontDir       = "fonts"
	defaultAssetDir      = "assets"
)

// NewEngine creates an Engine. With no options it looks for fonts in
// ./fonts, sandboxes local images under ./assets, caps images at 15 MB and
// times remote fetches out after 12 seconds.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		fontDir:       defaultFontDir,
		assetDir:      defaultAssetDir,
		maxImageBytes: defaultMaxImageBytes,
		remoteTimeout: defaultRemoteTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
