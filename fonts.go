package docgen

import (
	"os"
	"path/filepath"

	gofpdf "github.com/lvillar/gofpdf"
)

// fontRef names the active font family. Once resolved, every drawing call
// goes through it indifferently; no caller branches on which font won.
type fontRef struct {
	family  string
	unicode bool
}

// resolveFont registers the DejaVu Unicode pair from dir if both faces are
// present, otherwise falls back to the built-in Helvetica. The fallback
// cannot render every glyph; that is accepted degradation, not an error.
func resolveFont(pdf *gofpdf.Fpdf, dir string) fontRef {
	regular := absFont(dir, "DejaVuSans.ttf")
	bold := absFont(dir, "DejaVuSans-Bold.ttf")

	if fileExists(regular) && fileExists(bold) {
		pdf.AddUTF8Font("DejaVu", "", regular)
		pdf.AddUTF8Font("DejaVu", "B", bold)
		if !pdf.Err() {
			return fontRef{family: "DejaVu", unicode: true}
		}
		pdf.ClearError()
	}
	return fontRef{family: "Helvetica"}
}

func absFont(dir, name string) string {
	p := filepath.Join(dir, name)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
