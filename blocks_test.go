package docgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	gofpdf "github.com/lvillar/gofpdf"

	"github.com/lvillar/docgen/imgload"
)

// newLayoutBuilder sets up a builder on a fresh uncompressed A4 page with the
// core-font fallback, so content streams stay inspectable as plain text.
func newLayoutBuilder(t *testing.T) *builder {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetAutoPageBreak(true, footerReserveMM)
	font := resolveFont(pdf, "no-such-fonts")
	pdf.AddPage()
	return &builder{
		ctx:  context.Background(),
		eng:  NewEngine(WithFontDir("no-such-fonts")),
		pdf:  pdf,
		font: font,
	}
}

func TestSafeText(t *testing.T) {
	cases := map[string]string{
		"plain":            "plain",
		"a – b — c":        "a - b - c",
		"line break":  "line break",
		"para break":  "para break",
		"":                 "",
	}
	for in, want := range cases {
		if got := safeText(in); got != want {
			t.Errorf("safeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultLineHeight(t *testing.T) {
	if got := defaultLineHeight(0, 6.0); got != 6.0 {
		t.Errorf("zero should take the default, got %v", got)
	}
	if got := defaultLineHeight(9.5, 6.0); got != 9.5 {
		t.Errorf("explicit value ignored, got %v", got)
	}
}

// textOpRE matches one core-font text-showing operation in an uncompressed
// content stream, capturing the x coordinate (points) and the shown string.
var textOpRE = regexp.MustCompile(`BT ([0-9.]+) [0-9.]+ Td \(([^)]*)\) ?Tj ET`)

func TestBulletListHangingIndent(t *testing.T) {
	b := newLayoutBuilder(t)
	pdf := b.pdf

	// A plain paragraph first, as the left-margin x reference.
	if err := b.renderBlock(0, ContentBlock{Type: BlockParagraph, Text: "marginanchor"}); err != nil {
		t.Fatalf("paragraph: %v", err)
	}

	item := strings.TrimSpace(strings.Repeat("periwinkle ", 40))
	pdf.SetFont(b.font.family, "", 11)
	wrapped := pdf.SplitText(item, b.contentWidth()-bulletIndentMM)
	if len(wrapped) < 3 {
		t.Fatalf("fixture wraps to %d lines, need at least 3", len(wrapped))
	}

	y0 := pdf.GetY()
	if err := b.renderBlock(1, ContentBlock{Type: BlockBulletList, Items: []string{item}}); err != nil {
		t.Fatalf("bullet list: %v", err)
	}
	if got, want := pdf.GetY()-y0, float64(len(wrapped))*6.0+1.5; math.Abs(got-want) > 0.05 {
		t.Errorf("consumed %.2f mm, want %.2f (%d lines wrapped at the narrowed width)",
			got, want, len(wrapped))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("Output: %v", err)
	}
	out := buf.String()

	var anchorX float64
	var itemXs []float64
	for _, m := range textOpRE.FindAllStringSubmatch(out, -1) {
		x, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			t.Fatalf("parsing x %q: %v", m[1], err)
		}
		switch {
		case strings.Contains(m[2], "marginanchor"):
			anchorX = x
		case strings.Contains(m[2], "periwinkle"):
			itemXs = append(itemXs, x)
		}
	}
	if anchorX == 0 || len(itemXs) != len(wrapped) {
		t.Fatalf("found anchor x=%.2f and %d item lines, want %d", anchorX, len(itemXs), len(wrapped))
	}
	for _, x := range itemXs[1:] {
		if math.Abs(x-itemXs[0]) > 0.01 {
			t.Fatalf("continuation lines drift from the first: %v", itemXs)
		}
	}
	k := pdf.GetScaleFactor()
	if gap := itemXs[0] - anchorX; math.Abs(gap-bulletIndentMM*k) > 0.05 {
		t.Errorf("indent = %.2f pt, want %.2f", gap, bulletIndentMM*k)
	}
	if n := strings.Count(out, "•"); n != 1 {
		t.Errorf("bullet glyph drawn %d times, want 1", n)
	}
}

func TestKeyValueWrapsAsOneStrip(t *testing.T) {
	b := newLayoutBuilder(t)
	pdf := b.pdf

	value := strings.TrimSpace(strings.Repeat("cardamom ", 60))
	pdf.SetFont(b.font.family, "", 10)
	stripH := b.textHeight(b.contentWidth(), 7.5, "Spice: "+value)
	if stripH <= 15 {
		t.Fatalf("fixture value too short to wrap: %.2f mm", stripH)
	}

	// 12 mm left: enough for one reserved line, not for the wrapped strip.
	_, pageH := pdf.GetPageSize()
	_, tm, _, _ := pdf.GetMargins()
	pdf.SetY(pageH - footerReserveMM - 12)

	if err := b.renderBlock(0, ContentBlock{
		Type:  BlockKeyValue,
		Pairs: []KV{{Key: "Spice", Value: value}},
	}); err != nil {
		t.Fatalf("key_value: %v", err)
	}

	if got := pdf.PageNo(); got != 2 {
		t.Fatalf("strip should move wholly to a fresh page, ended on page %d", got)
	}
	if wantY := tm + stripH + 3; math.Abs(pdf.GetY()-wantY) > 0.05 {
		t.Errorf("Y = %.2f, want %.2f (strip split across the page break)", pdf.GetY(), wantY)
	}
}

func TestClassifyImageErr(t *testing.T) {
	cases := []struct {
		err    error
		remote bool
		want   Kind
	}{
		{imgload.ErrInvalidEncoding, false, KindInvalidEncoding},
		{imgload.ErrNotAnImage, false, KindNotAnImage},
		{imgload.ErrTimeout, true, KindRemoteFetchTimeout},
		{imgload.ErrHostDisallowed, true, KindHostDisallowed},
		{imgload.ErrRemoteDisabled, true, KindHostDisallowed},
		{imgload.ErrPathNotAllowed, false, KindPathNotAllowed},
		{imgload.ErrTooLarge, true, KindPayloadTooLarge},
		{fmt.Errorf("connection refused"), true, KindRemoteFetchFailed},
		{fmt.Errorf("disk exploded"), false, KindInternal},
	}
	for _, tc := range cases {
		got := classifyImageErr(3, tc.err, tc.remote)
		if got.Kind != tc.want {
			t.Errorf("classifyImageErr(%v, remote=%v).Kind = %v, want %v", tc.err, tc.remote, got.Kind, tc.want)
		}
		if got.Block != 3 {
			t.Errorf("Block = %d, want 3", got.Block)
		}
	}
}

func TestClassifyFetchErrorCarriesStatus(t *testing.T) {
	fe := &imgload.FetchError{URL: "https://cdn.example.com/a.png", Status: 503}
	got := classifyImageErr(0, fe, true)
	if got.Kind != KindRemoteFetchFailed {
		t.Errorf("Kind = %v, want KindRemoteFetchFailed", got.Kind)
	}
	if got.Status != 503 {
		t.Errorf("Status = %d, want 503", got.Status)
	}
	var unwrapped *imgload.FetchError
	if !errors.As(got, &unwrapped) {
		t.Error("FetchError not preserved in the chain")
	}
}
