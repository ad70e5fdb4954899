package service

import (
	"bytes"
	"fmt"
	"net/http"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var manualMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

func (s *Server) handleManualRaw(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.manualPath)
	if err != nil {
		http.Error(w, "manual not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(data)
}

func (s *Server) handleManualHTML(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.manualPath)
	if err != nil {
		http.Error(w, "manual not found", http.StatusNotFound)
		return
	}

	var body bytes.Buffer
	if err := manualMarkdown.Convert(data, &body); err != nil {
		s.log.Error("manual conversion failed", "err", err)
		http.Error(w, "manual unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html><html><head><meta charset="utf-8"><title>Manual</title>
<style>
body{font:16px/1.6 system-ui,sans-serif;margin:0}
.wrap{max-width:900px;margin:40px auto;padding:0 20px}
pre{background:#f6f8fa;padding:12px;border-radius:8px;overflow:auto}
table{border-collapse:collapse;width:100%%}th,td{border:1px solid #ddd;padding:8px}
h1,h2{border-bottom:1px solid #eee;padding-bottom:.3em}
</style></head><body><div class="wrap">%s</div></body></html>`, body.String())
}
