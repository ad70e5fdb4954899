package docgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	gofpdf "github.com/lvillar/gofpdf"

	"github.com/lvillar/docgen/imgload"
)

const (
	footerReserveMM = 15.0
	bulletIndentMM  = 4.0
	mmPerPx         = 25.4 / 96.0

	userAgent = "Mozilla/5.0 (docgen)"
	referer   = "https://www.google.com/"
)

// builder is the per-request layout state machine: one PDF cursor, one font,
// one image policy. It is created inside RenderDescriptor and discarded with
// the request.
type builder struct {
	ctx         context.Context
	eng         *Engine
	pdf         *gofpdf.Fpdf
	font        fontRef
	allowRemote bool
}

func (b *builder) contentWidth() float64 {
	pageW, _ := b.pdf.GetPageSize()
	lm, _, rm, _ := b.pdf.GetMargins()
	return pageW - lm - rm
}

func (b *builder) leftMargin() float64 {
	lm, _, _, _ := b.pdf.GetMargins()
	return lm
}

// remaining is the vertical room left above the bottom margin.
func (b *builder) remaining() float64 {
	_, pageH := b.pdf.GetPageSize()
	_, _, _, bm := b.pdf.GetMargins()
	return pageH - bm - b.pdf.GetY()
}

// ensureSpace is the page-break primitive: if less than need millimetres
// remain, the current page is finalized and a fresh one started before any
// drawing. A block taller than a whole page therefore starts at the top of a
// fresh page and is allowed to overflow the bottom margin.
func (b *builder) ensureSpace(need float64) {
	if b.remaining() < math.Max(need, 1.0) {
		b.pdf.AddPage()
	}
}

// textHeight measures the wrapped height of txt at the current font.
func (b *builder) textHeight(w, lineH float64, txt string) float64 {
	lines := b.pdf.SplitText(safeText(txt), w)
	n := len(lines)
	if n < 1 {
		n = 1
	}
	return float64(n) * lineH
}

func (b *builder) renderBlock(i int, blk ContentBlock) error {
	fill := false
	if blk.Style != nil && blk.Style.BackgroundColor != nil {
		bg := blk.Style.BackgroundColor
		b.pdf.SetFillColor(bg.R, bg.G, bg.B)
		fill = true
	}
	defer func() {
		if fill {
			b.pdf.SetFillColor(255, 255, 255)
		}
	}()

	switch blk.Type {
	case BlockHeading:
		b.heading(blk, fill)
	case BlockSubheading:
		b.subheading(blk, fill)
	case BlockParagraph:
		b.paragraph(blk, fill)
	case BlockBulletList:
		b.bulletList(blk, fill)
	case BlockKeyValue:
		b.keyValue(blk, fill)
	case BlockSpacer:
		b.spacer(blk)
	case BlockImage:
		return b.image(i, blk)
	case BlockFormInput:
		b.formInput(blk, fill)
	case BlockFormChecklist:
		b.formChoices(blk, fill, false)
	case BlockFormRadio:
		b.formChoices(blk, fill, true)
	default:
		// Unreachable after ParseDescriptor, kept for descriptors built in code.
		return &Error{Kind: KindSchemaInvalid, Block: i, Err: fmt.Errorf("unknown block type %q", blk.Type)}
	}

	if b.pdf.Err() {
		return internalErr(i, b.pdf.Error())
	}
	return nil
}

func (b *builder) heading(blk ContentBlock, fill bool) {
	lineH := defaultLineHeight(blk.LineHeight, 8.5)
	b.ensureSpace(lineH + 4)
	b.pdf.SetFont(b.font.family, "B", 14)
	cw := b.contentWidth()
	b.pdf.MultiCell(cw, lineH, safeText(blk.Text), "", "L", fill)

	lm := b.leftMargin()
	y := b.pdf.GetY()
	b.pdf.SetDrawColor(200, 200, 200)
	b.pdf.Line(lm, y, lm+cw, y)
	b.pdf.SetDrawColor(0, 0, 0)
	b.pdf.Ln(4)
}

func (b *builder) subheading(blk ContentBlock, fill bool) {
	lineH := defaultLineHeight(blk.LineHeight, 7.0)
	b.ensureSpace(lineH + 2)
	b.pdf.SetFont(b.font.family, "B", 11)
	b.pdf.MultiCell(b.contentWidth(), lineH, safeText(blk.Text), "", "L", fill)
	b.pdf.Ln(2)
}

func (b *builder) paragraph(blk ContentBlock, fill bool) {
	lineH := defaultLineHeight(blk.LineHeight, 6.0)
	b.pdf.SetFont(b.font.family, "", 11)
	cw := b.contentWidth()
	b.ensureSpace(b.textHeight(cw, lineH, blk.Text) + 2)

	align := string(blk.Align)
	if align == "" {
		align = "L"
	}
	b.pdf.MultiCell(cw, lineH, safeText(blk.Text), "", align, fill)
	b.pdf.Ln(2)
}

// bulletList draws each item with a bullet glyph in a 4 mm gutter; wrapped
// continuation lines keep the 4 mm hanging indent so they align under the
// item text, not under the glyph. Each item breaks pages independently.
func (b *builder) bulletList(blk ContentBlock, fill bool) {
	if len(blk.Items) == 0 {
		return
	}
	lineH := defaultLineHeight(blk.LineHeight, 6.0)
	b.pdf.SetFont(b.font.family, "", 11)
	cw := b.contentWidth()
	lm := b.leftMargin()

	for _, item := range blk.Items {
		txt := safeText(item)
		b.ensureSpace(b.textHeight(cw-bulletIndentMM, lineH, txt) + 1.5)
		b.pdf.SetX(lm)
		b.pdf.CellFormat(bulletIndentMM, lineH, "•", "", 0, "L", false, 0, "")
		b.pdf.MultiCell(cw-bulletIndentMM, lineH, txt, "", "L", fill)
	}
	b.pdf.Ln(1.5)
}

// keyValue renders a background strip with one "key: value" line per pair,
// in the order the keys appeared in the document.
func (b *builder) keyValue(blk ContentBlock, fill bool) {
	if len(blk.Pairs) == 0 {
		return
	}
	lineH := defaultLineHeight(blk.LineHeight, 7.5)
	if !fill {
		b.pdf.SetFillColor(240, 240, 240)
		fill = true
		defer b.pdf.SetFillColor(255, 255, 255)
	}

	b.pdf.SetFont(b.font.family, "", 10)
	cw := b.contentWidth()

	// Reserve the wrapped height of every pair so a long value cannot split
	// the strip across an automatic page break.
	lines := make([]string, 0, len(blk.Pairs))
	need := 3.0
	for _, kv := range blk.Pairs {
		line := fmt.Sprintf("%s: %s", strings.TrimSpace(kv.Key), strings.TrimSpace(kv.Value))
		lines = append(lines, line)
		need += b.textHeight(cw, lineH, line)
	}
	b.ensureSpace(need)

	for _, line := range lines {
		b.pdf.MultiCell(cw, lineH, safeText(line), "", "L", fill)
	}
	b.pdf.Ln(3)
}

func (b *builder) spacer(blk ContentBlock) {
	if blk.SpacerMM <= 0 {
		return
	}
	h := float64(blk.SpacerMM)
	b.ensureSpace(h)
	b.pdf.Ln(h)
}

func (b *builder) image(i int, blk ContentBlock) error {
	spec := blk.Image

	src := imgload.Source{Base64: spec.Base64Data}
	remote := false
	if spec.Src != "" {
		if strings.HasPrefix(spec.Src, "http") {
			src.URL = spec.Src
			remote = true
		} else {
			src.Path = spec.Src
		}
	}

	img, err := imgload.Load(b.ctx, src, imgload.Options{
		AllowRemote: b.allowRemote,
		BaseDir:     b.eng.assetDir,
		MaxBytes:    b.eng.maxImageBytes,
		Timeout:     b.eng.remoteTimeout,
		Client:      b.eng.client,
		UserAgent:   userAgent,
		Referer:     referer,
	})
	if err != nil {
		return classifyImageErr(i, err, remote)
	}

	naturalW := float64(img.WidthPx) * mmPerPx
	naturalH := float64(img.HeightPx) * mmPerPx
	cw := b.contentWidth()

	finalW, finalH := spec.Width, spec.Height
	switch {
	case finalW == 0 && finalH == 0:
		finalW = math.Min(cw, naturalW)
		finalH = naturalH * (finalW / naturalW)
	case finalW == 0:
		finalW = naturalW * (finalH / naturalH)
	case finalH == 0:
		finalH = naturalH * (finalW / naturalW)
	}
	if finalW > cw {
		scale := cw / finalW
		finalW *= scale
		finalH *= scale
	}

	b.ensureSpace(finalH + 2)

	x := b.leftMargin()
	switch spec.Align {
	case AlignLeft:
	case AlignRight:
		x += cw - finalW
	default: // images center by default
		x += (cw - finalW) / 2
	}

	name := fmt.Sprintf("block-%d", i)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	b.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.PNG))
	y := b.pdf.GetY()
	b.pdf.ImageOptions(name, x, y, finalW, finalH, false, opts, 0, "")
	if b.pdf.Err() {
		return internalErr(i, b.pdf.Error())
	}
	b.pdf.SetY(y + finalH)
	b.pdf.Ln(2)
	return nil
}

func classifyImageErr(block int, err error, remote bool) *Error {
	var fe *imgload.FetchError
	if errors.As(err, &fe) {
		return &Error{Kind: KindRemoteFetchFailed, Block: block, Status: fe.Status, Err: err}
	}

	kind := KindInternal
	switch {
	case errors.Is(err, imgload.ErrInvalidEncoding):
		kind = KindInvalidEncoding
	case errors.Is(err, imgload.ErrNotAnImage):
		kind = KindNotAnImage
	case errors.Is(err, imgload.ErrTimeout):
		kind = KindRemoteFetchTimeout
	case errors.Is(err, imgload.ErrHostDisallowed), errors.Is(err, imgload.ErrRemoteDisabled):
		kind = KindHostDisallowed
	case errors.Is(err, imgload.ErrPathNotAllowed):
		kind = KindPathNotAllowed
	case errors.Is(err, imgload.ErrTooLarge):
		kind = KindPayloadTooLarge
	case errors.Is(err, imgload.ErrNoSource):
		kind = KindSchemaInvalid
	case remote:
		kind = KindRemoteFetchFailed
	}
	return &Error{Kind: kind, Block: block, Err: err}
}

func defaultLineHeight(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

// safeText substitutes the characters the core fonts render badly or that
// break line-splitting: en/em dashes and the Unicode line/paragraph
// separators.
func safeText(s string) string {
	if s == "" {
		return ""
	}
	r := strings.NewReplacer(
		"–", "-",
		"—", "-",
		" ", " ",
		" ", " ",
	)
	return r.Replace(s)
}
