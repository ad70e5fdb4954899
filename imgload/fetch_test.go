package imgload

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFetchRemoteHappyPath(t *testing.T) {
	raw := pngBytes(t, 10, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("User-Agent = %q, want test-agent", got)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(raw)
	}))
	defer srv.Close()

	img, err := Load(context.Background(), Source{URL: srv.URL + "/pic.png"}, Options{
		AllowRemote:   true,
		UserAgent:     "test-agent",
		allowLoopback: true,
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.WidthPx != 10 || img.HeightPx != 10 {
		t.Errorf("dimensions = %dx%d, want 10x10", img.WidthPx, img.HeightPx)
	}
}

func TestFetchRemoteUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), Source{URL: srv.URL}, Options{
		AllowRemote:   true,
		allowLoopback: true,
	})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Load = %v, want *FetchError", err)
	}
	if fe.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", fe.Status)
	}
}

func TestFetchRemoteOverBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	_, err := Load(context.Background(), Source{URL: srv.URL}, Options{
		AllowRemote:   true,
		MaxBytes:      1024,
		allowLoopback: true,
	})
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Load = %v, want ErrTooLarge", err)
	}
}

func TestFetchRemoteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), Source{URL: srv.URL}, Options{
		AllowRemote:   true,
		Timeout:       50 * time.Millisecond,
		allowLoopback: true,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Load = %v, want ErrTimeout", err)
	}
}

func TestFetchRemoteDisabled(t *testing.T) {
	_, err := Load(context.Background(), Source{URL: "https://example.com/pic.png"}, Options{})
	if !errors.Is(err, ErrRemoteDisabled) {
		t.Errorf("Load = %v, want ErrRemoteDisabled", err)
	}
}

func TestFetchRemoteHostGuard(t *testing.T) {
	// None of these may reach the network.
	urls := []string{
		"http://localhost/a.png",
		"http://127.0.0.1/a.png",
		"http://0.0.0.0/a.png",
		"http://127.0.0.53:8080/a.png",
		"http://10.1.2.3/a.png",
		"http://192.168.0.9/a.png",
		"http://169.254.169.254/latest/meta-data",
		"http://[::1]/a.png",
		"ftp://example.com/a.png",
		"file:///etc/passwd",
	}
	for _, u := range urls {
		_, err := Load(context.Background(), Source{URL: u}, Options{AllowRemote: true})
		if !errors.Is(err, ErrHostDisallowed) {
			t.Errorf("Load(%s) = %v, want ErrHostDisallowed", u, err)
		}
	}
}

func TestReadLocalSandbox(t *testing.T) {
	dir := t.TempDir()
	raw := pngBytes(t, 3, 3)
	if err := os.WriteFile(filepath.Join(dir, "ok.png"), raw, 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := Load(context.Background(), Source{Path: "ok.png"}, Options{BaseDir: dir})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.WidthPx != 3 {
		t.Errorf("WidthPx = %d, want 3", img.WidthPx)
	}

	for _, p := range []string{"../outside.png", "/etc/hostname", "missing.png"} {
		if _, err := Load(context.Background(), Source{Path: p}, Options{BaseDir: dir}); !errors.Is(err, ErrPathNotAllowed) {
			t.Errorf("Load(%s) = %v, want ErrPathNotAllowed", p, err)
		}
	}
}

func TestReadLocalOverBudget(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "big.png"), make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(context.Background(), Source{Path: "big.png"}, Options{BaseDir: dir, MaxBytes: 512})
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Load = %v, want ErrTooLarge", err)
	}
}
