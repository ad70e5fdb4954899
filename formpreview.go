package docgen

import "math"

// Static form-preview geometry: box/dot edge, gap between label and rows,
// and the height of one ruled input line.
const (
	previewBoxMM  = 5.0
	previewGapMM  = 2.0
	inputRuleMM   = 8.0
	previewTextMM = 2.0 // gap between a box/dot and its caption
)

// formInput draws a label followed by one or more empty ruled boxes, the
// printable stand-in for a text input. Nothing here is interactive; use a
// widget for a fillable field.
func (b *builder) formInput(blk ContentBlock, fill bool) {
	form := blk.Form
	lineH := defaultLineHeight(blk.LineHeight, 6.0)
	lines := form.Lines
	if lines < 1 {
		lines = 1
	}

	b.pdf.SetFont(b.font.family, "", 11)
	cw := b.contentWidth()
	labelH := 0.0
	if form.Label != "" {
		labelH = b.textHeight(cw, lineH, form.Label)
	}
	b.ensureSpace(labelH + float64(lines)*(inputRuleMM+previewGapMM) + 2)

	if form.Label != "" {
		b.pdf.MultiCell(cw, lineH, safeText(form.Label), "", "L", fill)
	}

	lm := b.leftMargin()
	b.pdf.SetDrawColor(120, 120, 120)
	for i := 0; i < lines; i++ {
		y := b.pdf.GetY() + previewGapMM
		b.pdf.Rect(lm, y, cw, inputRuleMM, "D")
		b.pdf.SetY(y + inputRuleMM)
	}
	b.pdf.SetDrawColor(0, 0, 0)
	b.pdf.Ln(2)
}

// formChoices draws a checklist (squares) or radio group (circles) as a grid
// of options in N columns. An empty option list draws nothing beyond the
// label and reserves only the label's height.
func (b *builder) formChoices(blk ContentBlock, fill bool, radio bool) {
	form := blk.Form
	lineH := defaultLineHeight(blk.LineHeight, 6.0)
	cols := form.Columns
	if cols < 1 {
		cols = 2
	}
	rows := (len(form.Options) + cols - 1) / cols
	rowH := math.Max(lineH, previewBoxMM+previewGapMM)

	cw := b.contentWidth()
	labelH := 0.0
	if form.Label != "" {
		b.pdf.SetFont(b.font.family, "B", 11)
		labelH = b.textHeight(cw, lineH, form.Label)
	}
	if labelH == 0 && rows == 0 {
		return
	}
	b.ensureSpace(labelH + float64(rows)*rowH + 2)

	if form.Label != "" {
		b.pdf.MultiCell(cw, lineH, safeText(form.Label), "", "L", fill)
	}

	if rows > 0 {
		lm := b.leftMargin()
		colW := cw / float64(cols)
		startY := b.pdf.GetY() + previewGapMM/2

		b.pdf.SetFont(b.font.family, "", 11)
		b.pdf.SetDrawColor(60, 60, 60)
		for idx, opt := range form.Options {
			row := idx / cols
			col := idx % cols
			x := lm + colW*float64(col)
			y := startY + rowH*float64(row)

			if radio {
				b.pdf.Circle(x+previewBoxMM/2, y+rowH/2, previewBoxMM/2, "D")
			} else {
				b.pdf.Rect(x, y+(rowH-previewBoxMM)/2, previewBoxMM, previewBoxMM, "D")
			}
			b.pdf.SetXY(x+previewBoxMM+previewTextMM, y)
			b.pdf.CellFormat(colW-previewBoxMM-previewTextMM, rowH, safeText(opt), "", 0, "L", false, 0, "")
		}
		b.pdf.SetDrawColor(0, 0, 0)
		b.pdf.SetXY(lm, startY+float64(rows)*rowH)
	}
	b.pdf.Ln(2)
}
