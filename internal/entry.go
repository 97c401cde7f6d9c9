// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/skillview/internal/catalog"
	"github.com/starford/skillview/internal/fetch"
	"github.com/starford/skillview/internal/locator"
	"github.com/starford/skillview/internal/markdown"
	"github.com/starford/skillview/internal/mcpserver"
	"github.com/starford/skillview/internal/sse"
	"github.com/starford/skillview/internal/storage"
	"github.com/starford/skillview/internal/viewer"
	"github.com/starford/skillview/internal/web"
)

var errConfigRequired = errors.New("config is required")

// Sources bundles what every surface needs to read documents.
type Sources struct {
	Catalog *catalog.Catalog
	Fetcher fetch.Fetcher
	// Host is nil unless the configured site URL is a project page.
	Host *locator.HostContext

	store *storage.FS
}

// Close releases the content root.
func (s *Sources) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// OpenSources builds the catalog, the fetcher and the hosting context from cfg.
func OpenSources(cfg *Config) (*Sources, error) {
	store, err := storage.NewFS(cfg.Content.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	cat := catalog.Default()
	switch {
	case cfg.Catalog.Path != "":
		cat, err = catalog.LoadFile(cfg.Catalog.Path)
	case cfg.Catalog.Discover:
		cat, err = catalog.Discover(store.FS())
	}
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	src := &Sources{
		Catalog: cat,
		Fetcher: &fetch.Router{
			Remote: fetch.NewHTTP(
				fetch.WithTimeout(cfg.Fetch.Timeout),
				fetch.WithRateLimit(cfg.Fetch.RatePerSecond),
				fetch.WithRetry(uint(cfg.Fetch.Retries)+1, 200*time.Millisecond),
			),
			Local: fetch.NewLocal(store),
		},
		store: store,
	}
	if host, ok := locator.DetectURL(cfg.Content.SiteURL); ok {
		src.Host = &host
	}
	return src, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// NewController wires a viewer controller over src. onChange may be nil.
func NewController(src *Sources, logger *slog.Logger, onChange func(viewer.Snapshot)) *viewer.Controller {
	opts := []viewer.Option{
		viewer.WithHost(src.Host),
		viewer.WithRenderer(markdown.NewGoldmark()),
		viewer.WithLogger(logger),
	}
	if onChange != nil {
		opts = append(opts, viewer.WithOnChange(onChange))
	}
	return viewer.New(src.Catalog, src.Fetcher, opts...)
}

func healthy(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_root", cfg.Content.Root),
		slog.String("site_url", cfg.Content.SiteURL),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	src, err := OpenSources(cfg)
	if err != nil {
		return err
	}
	defer src.Close()
	if src.Host != nil {
		logger.Info("Serving documents from repository",
			slog.String("owner", src.Host.Owner),
			slog.String("repo", src.Host.Repo))
	}

	// SSE broker.
	broker := sse.NewBroker(250 * time.Millisecond)
	defer broker.Close()

	ctrl := NewController(src, logger, func(s viewer.Snapshot) {
		broker.PublishView(sse.ViewEvent{
			State:    s.State.String(),
			Seq:      s.Seq,
			Folder:   s.Entry.FolderID,
			Document: s.Document,
			Checksum: s.Checksum,
		})
	})
	defer ctrl.Close()
	ctrl.Start()

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", healthy)
	r.Get("/health/ready", healthy)

	r.Mount("/", web.NewRouter(ctrl, src.Catalog, broker))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open event streams end when the broker closes.
	httpServer.RegisterOnShutdown(broker.Close)

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the catalog over MCP on stdin/stdout until the client
// disconnects. Logs go to the configured output, which must not be stdout.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	out := app.logOutput
	if out == nil {
		out = os.Stderr
	}
	logger := newLogger(app.config, out)
	slog.SetDefault(logger)

	src, err := OpenSources(app.config)
	if err != nil {
		return err
	}
	defer src.Close()

	logger.Info("Starting MCP server", slog.Int("skills", src.Catalog.Len()))
	if err := mcpserver.New(src.Catalog, src.Fetcher, src.Host).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// RenderDocument loads one document synchronously and returns its view.
// An empty document selects the entry's main document.
func RenderDocument(ctx context.Context, src *Sources, logger *slog.Logger, folder, document string) (viewer.View, error) {
	ctrl := NewController(src, logger, nil)
	defer ctrl.Close()

	var err error
	if document == "" {
		err = ctrl.SelectEntry(folder)
	} else {
		err = ctrl.SelectDocument(folder, document)
	}
	if err != nil {
		return viewer.View{}, err
	}

	done := make(chan struct{})
	go func() {
		ctrl.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return viewer.View{}, ctx.Err()
	}
	return ctrl.View(), nil
}
