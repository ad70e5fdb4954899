// Package extract pulls plain text out of uploaded documents. It dispatches
// on file extension or MIME type and delegates the actual parsing to the
// tabula readers: PDF through the fluent extractor, DOCX and XLSX through
// their format readers. Plain text passes through with invalid UTF-8
// replaced.
//
// Byte-size ceilings are the caller's job; this package works on whatever it
// is handed.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/docx"
	"github.com/tsawler/tabula/xlsx"
)

// ErrUnsupportedFormat reports a file that is none of PDF, DOCX, XLSX or
// plain text.
var ErrUnsupportedFormat = errors.New("extract: unsupported file format")

// MaxUploadBytes is the inbound ceiling transports should enforce before
// calling Text.
const MaxUploadBytes = 20 << 20

// Text extracts the text content of data, using filename's extension and the
// declared contentType as the format hint.
func Text(filename, contentType string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ct := strings.ToLower(contentType)

	switch {
	case strings.Contains(ct, "pdf") || ext == ".pdf":
		return fromPDF(data)
	case strings.Contains(ct, "wordprocessingml") || ext == ".docx":
		return fromDOCX(data)
	case strings.Contains(ct, "spreadsheetml") || ext == ".xlsx":
		return fromXLSX(data)
	case strings.Contains(ct, "text/plain") || ext == ".txt":
		return strings.ToValidUTF8(string(data), "�"), nil
	default:
		hint := contentType
		if hint == "" {
			hint = ext
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, hint)
	}
}

// The tabula readers open files by path, so uploads round-trip through a
// temp file that is removed before returning.
func withTempFile(data []byte, ext string, fn func(path string) (string, error)) (string, error) {
	f, err := os.CreateTemp("", "extract-*"+ext)
	if err != nil {
		return "", fmt.Errorf("extract: temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("extract: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("extract: closing temp file: %w", err)
	}
	return fn(path)
}

func fromPDF(data []byte) (string, error) {
	return withTempFile(data, ".pdf", func(path string) (string, error) {
		text, _, err := tabula.Open(path).Text()
		if err != nil {
			return "", fmt.Errorf("extract: reading pdf: %w", err)
		}
		return strings.TrimSpace(text), nil
	})
}

func fromDOCX(data []byte) (string, error) {
	return withTempFile(data, ".docx", func(path string) (string, error) {
		r, err := docx.Open(path)
		if err != nil {
			return "", fmt.Errorf("extract: reading docx: %w", err)
		}
		defer r.Close()
		text, err := r.Text()
		if err != nil {
			return "", fmt.Errorf("extract: reading docx: %w", err)
		}
		return strings.TrimSpace(text), nil
	})
}

func fromXLSX(data []byte) (string, error) {
	return withTempFile(data, ".xlsx", func(path string) (string, error) {
		r, err := xlsx.Open(path)
		if err != nil {
			return "", fmt.Errorf("extract: reading xlsx: %w", err)
		}
		defer r.Close()
		text, err := r.Text()
		if err != nil {
			return "", fmt.Errorf("extract: reading xlsx: %w", err)
		}
		return strings.TrimSpace(text), nil
	})
}
