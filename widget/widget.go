// Package widget places interactive AcroForm fields on an already laid-out
// PDF as widget annotations.
//
// The injection pass runs after the page count is fixed: a field addressed to
// a page that does not exist is counted as skipped rather than failing the
// document, since the form overlay is best-effort relative to the static
// content. Radio fields sharing a name form one exclusive group; each button
// carries its own export value.
package widget

import (
	"fmt"
	"strings"

	gofpdf "github.com/lvillar/gofpdf"
)

// Kind is the type of an interactive field.
type Kind int

const (
	KindText      Kind = iota // single-line text input
	KindCheckbox              // on/off checkbox
	KindRadio                 // one button of a named radio group
	KindSignature             // blank signature region
)

// Supported is the number of field kinds this injector understands. It is a
// capability constant, reported regardless of how many fields were submitted.
const Supported = 4

// Field describes one interactive field in document units (same unit as the
// PDF, measured from the top-left corner of the target page).
type Field struct {
	Kind Kind
	Name string
	Page int // 1-based
	X, Y float64
	W, H float64

	Value       string  // text: initial value
	FontSize    float64 // text: display size, default 12
	Required    bool    // text: advisory flag, not enforced
	Checked     bool    // checkbox: initial state
	ExportValue string  // radio: value submitted when selected
}

// Report is the injection outcome. Supported is constant; Injected counts
// successfully placed fields; Skipped counts fields addressed to pages that
// do not exist. All three are reported even when no fields were given.
type Report struct {
	Supported int
	Injected  int
	Skipped   int
}

// Injector collects fields and writes them into a PDF's annotation and
// catalog structures.
type Injector struct {
	pdf    *gofpdf.Fpdf
	fields []Field
}

// NewInjector creates an Injector bound to pdf.
func NewInjector(pdf *gofpdf.Fpdf) *Injector {
	return &Injector{pdf: pdf}
}

// Add queues a field for injection.
func (in *Injector) Add(f Field) {
	in.fields = append(in.fields, f)
}

// Inject places every queued field whose page exists and returns the report.
// It must be called after all pages have been added and before Output.
func (in *Injector) Inject() (Report, error) {
	rep := Report{Supported: Supported}
	if len(in.fields) == 0 {
		return rep, nil
	}

	pages := in.pdf.PageCount()
	k := in.pdf.GetScaleFactor()
	_, pageH := in.pdf.GetPageSize()

	var fieldRefs []string
	for _, f := range in.fields {
		if f.Page < 1 || f.Page > pages {
			rep.Skipped++
			continue
		}
		annot := buildAnnotation(f, k, pageH)
		in.pdf.AddPageAnnotation(f.Page, annot)
		fieldRefs = append(fieldRefs, annot)
		rep.Injected++
	}

	if len(fieldRefs) > 0 {
		acroForm := fmt.Sprintf("/AcroForm <</Fields [%s] /DR <</Font <</Helv <</Type /Font /Subtype /Type1 /BaseFont /Helvetica>>>>>> /DA (/Helv 0 Tf 0 g) /NeedAppearances true>>",
			strings.Join(fieldRefs, " "))
		in.pdf.AddCatalogEntry(acroForm)
	}

	return rep, in.pdf.Error()
}

// buildAnnotation constructs the inline widget dictionary for a field. The
// field's top-down coordinates are flipped into PDF's bottom-up space and
// scaled from document units to points.
func buildAnnotation(f Field, k, pageH float64) string {
	x := f.X * k
	y := (pageH - f.Y - f.H) * k
	w := f.W * k
	h := f.H * k

	var b strings.Builder
	fmt.Fprintf(&b, "<</Type /Annot /Subtype /Widget /T (%s) /Rect [%.2f %.2f %.2f %.2f]",
		escapePDFString(f.Name), x, y, x+w, y+h)

	var ff int
	if f.Required {
		ff |= 1 << 1 // Required
	}

	switch f.Kind {
	case KindText:
		b.WriteString(" /FT /Tx")
		size := f.FontSize
		if size <= 0 {
			size = 12
		}
		fmt.Fprintf(&b, " /DA (/Helv %.1f Tf 0 g)", size)
		if f.Value != "" {
			fmt.Fprintf(&b, " /V (%s)", escapePDFString(f.Value))
		}

	case KindCheckbox:
		b.WriteString(" /FT /Btn")
		if f.Checked {
			b.WriteString(" /V /Yes /AS /Yes")
		} else {
			b.WriteString(" /V /Off /AS /Off")
		}

	case KindRadio:
		b.WriteString(" /FT /Btn")
		ff |= 1 << 14 // NoToggleToOff
		ff |= 1 << 15 // Radio
		b.WriteString(" /V /Off /AS /Off")
		if f.ExportValue != "" {
			fmt.Fprintf(&b, " /Opt [(%s)]", escapePDFString(f.ExportValue))
		}

	case KindSignature:
		// A blank signature field: interactive region, no appearance.
		b.WriteString(" /FT /Sig")
	}

	if ff != 0 {
		fmt.Fprintf(&b, " /Ff %d", ff)
	}
	b.WriteString(">>")
	return b.String()
}

func escapePDFString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `(`, `\(`)
	s = strings.ReplaceAll(s, `)`, `\)`)
	return s
}
