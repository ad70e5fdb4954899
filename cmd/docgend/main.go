// Command docgend serves the document rendering engine over HTTP.
//
// Endpoints:
//
//	POST /api/create-pdf    render a JSON descriptor into a PDF
//	POST /api/process-file  extract text from an uploaded PDF/DOCX/XLSX/TXT
//	GET  /                  service status
//	GET  /manual, /manual.md rendered and raw manual
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lvillar/docgen"
	"github.com/lvillar/docgen/service"
)

func main() {
	var (
		addr   = flag.String("addr", ":8080", "listen address")
		fonts  = flag.String("fonts", "fonts", "directory holding the DejaVu font pair")
		assets = flag.String("assets", "assets", "sandbox directory for local image paths")
		manual = flag.String("manual", "manual.md", "markdown manual served at /manual")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	engine := docgen.NewEngine(
		docgen.WithFontDir(*fonts),
		docgen.WithAssetDir(*assets),
	)
	srv := service.New(engine,
		service.WithLogger(logger),
		service.WithManualPath(*manual),
	)

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "addr", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
		os.Exit(1)
	}
}
