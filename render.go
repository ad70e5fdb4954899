package docgen

import (
	"bytes"
	"context"
	"fmt"

	gofpdf "github.com/lvillar/gofpdf"

	"github.com/lvillar/docgen/widget"
)

// Result is the outcome of one render: the serialized PDF, the number of
// pages produced, and the widget injection diagnostics. The diagnostics are
// always populated, even when no widgets were supplied.
type Result struct {
	PDF     []byte
	Pages   int
	Widgets widget.Report
}

// Render decodes a JSON descriptor and renders it.
func (e *Engine) Render(ctx context.Context, raw []byte) (*Result, error) {
	doc, err := ParseDescriptor(raw)
	if err != nil {
		return nil, err
	}
	return e.RenderDescriptor(ctx, doc)
}

// RenderDescriptor renders a validated descriptor into a PDF.
//
// The pipeline is strictly ordered: page geometry and fonts first, then the
// title, then every content block in sequence (page breaks decided by
// ensureSpace), and only after the page count is fixed the widget overlay.
// Any classified error aborts the render with no partial output; widget page
// misses are reported in the result, never as errors.
func (e *Engine) RenderDescriptor(ctx context.Context, doc *DocumentDescriptor) (*Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	opts := doc.Options

	pdf := gofpdf.New("P", "mm", "A4", e.fontDir)
	if l, t, r, ok := opts.margins(); ok {
		pdf.SetMargins(l, t, r)
	}
	pdf.SetAutoPageBreak(true, footerReserveMM)

	font := resolveFont(pdf, e.fontDir)

	theme := RGB{}
	if opts != nil && opts.ThemeTextColor != nil {
		theme = *opts.ThemeTextColor
	}

	if opts.pageNumbers() {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-footerReserveMM)
			pdf.SetFont(font.family, "", 8)
			pdf.SetTextColor(128, 128, 128)
			pdf.CellFormat(0, 10, fmt.Sprintf("page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
			pdf.SetTextColor(theme.R, theme.G, theme.B)
		})
	}

	pdf.SetTitle(doc.Title, true)
	if opts != nil {
		if opts.Author != "" {
			pdf.SetAuthor(opts.Author, true)
		}
		if opts.Subject != "" {
			pdf.SetSubject(opts.Subject, true)
		}
		if opts.Keywords != "" {
			pdf.SetKeywords(opts.Keywords, true)
		}
	}

	pdf.AddPage()
	pdf.SetTextColor(theme.R, theme.G, theme.B)

	b := &builder{
		ctx:         ctx,
		eng:         e,
		pdf:         pdf,
		font:        font,
		allowRemote: opts.allowRemoteImages(),
	}

	// Title before the first content block.
	pdf.SetFont(font.family, "B", 18)
	b.ensureSpace(12)
	pdf.MultiCell(b.contentWidth(), 10, safeText(doc.Title), "", string(opts.titleAlign()), false)
	pdf.Ln(6)

	for i, blk := range doc.ContentBlocks {
		if err := b.renderBlock(i, blk); err != nil {
			return nil, err
		}
	}

	inj := widget.NewInjector(pdf)
	for _, w := range doc.Widgets {
		inj.Add(toField(w))
	}
	report, err := inj.Inject()
	if err != nil {
		return nil, internalErr(-1, err)
	}

	if pdf.Err() {
		return nil, internalErr(-1, pdf.Error())
	}
	pages := pdf.PageCount()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, internalErr(-1, err)
	}

	return &Result{
		PDF:     buf.Bytes(),
		Pages:   pages,
		Widgets: report,
	}, nil
}

func toField(w Widget) widget.Field {
	f := widget.Field{
		Name:        w.Name,
		Page:        w.Page,
		X:           w.X,
		Y:           w.Y,
		W:           w.W,
		H:           w.H,
		Value:       w.Value,
		FontSize:    w.FontSize,
		Required:    w.Required,
		Checked:     w.Checked,
		ExportValue: w.ExportValue,
	}
	switch w.Type {
	case WidgetCheckbox:
		f.Kind = widget.KindCheckbox
	case WidgetRadio:
		f.Kind = widget.KindRadio
	case WidgetSignature:
		f.Kind = widget.KindSignature
	default:
		f.Kind = widget.KindText
	}
	return f
}
