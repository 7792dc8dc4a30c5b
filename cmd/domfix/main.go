// CLAUDE:SUMMARY CLI entry point for domfix: live reconciliation of a wallet page, or offline rendering of a static page.
// Command domfix keeps a wallet UI consistent with its design.
//
// Usage:
//
//	domfix -config domfix.yaml                                   # live mode, URL from config
//	domfix -url http://localhost:3000 -admin :8086               # live mode with admin surface
//	domfix -render page.html -data wallet.json -screen wallet    # reconcile a static page and print it
package main

import (
	"context"
	"errors"
	"flag"
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
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/domfix/domfix"
	"github.com/hazyhaar/domfix/domfix/dom"
	"github.com/hazyhaar/domfix/shield"
	"github.com/hazyhaar/domfix/wallet"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to domfix.yaml config file")
	pageURL := flag.String("url", "", "wallet page to drive (overrides browser.url)")
	renderPath := flag.String("render", "", "reconcile a static HTML file and print it")
	screen := flag.String("screen", "", "screen to reconcile in render mode (default: initial screen)")
	dataPath := flag.String("data", "", "wallet data JSON for render mode")
	format := flag.String("format", "html", "render output: html or markdown")
	adminAddr := flag.String("admin", "", "admin HTTP address (overrides admin.addr)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := domfix.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = domfix.LoadConfigFile(*configPath); err != nil {
			logger.Error("domfix: fatal", "error", err)
			os.Exit(1)
		}
	}
	if *pageURL != "" {
		cfg.Browser.URL = *pageURL
	}
	if *adminAddr != "" {
		cfg.Admin.Addr = *adminAddr
	}

	var err error
	switch {
	case *renderPath != "":
		err = runRender(ctx, logger, cfg, renderRequest{Page: *renderPath, Data: *dataPath, Screen: *screen, Format: *format})
	case cfg.Browser.URL != "":
		err = runLive(ctx, logger, cfg)
	default:
		fmt.Fprintln(os.Stderr, "usage: domfix -config <file> | -url <url> | -render <file.html> [-data wallet.json] [-screen id]")
		os.Exit(2)
	}
	if err != nil {
		logger.Error("domfix: fatal", "error", err)
		os.Exit(1)
	}
}

// renderRequest is one offline render: a static page reconciled for a
// screen and printed as HTML or markdown.
type renderRequest struct {
	Page   string // HTML file
	Data   string // wallet data JSON, optional
	Screen string // default: the configured initial screen
	Format string // html | markdown
}

func runRender(ctx context.Context, logger *slog.Logger, cfg *domfix.Config, req renderRequest) error {
	return render(ctx, logger, cfg, req, os.Stdout)
}

func render(ctx context.Context, logger *slog.Logger, cfg *domfix.Config, req renderRequest, w io.Writer) error {
	if req.Format == "" {
		req.Format = "html"
	}
	if req.Format != "html" && req.Format != "markdown" {
		return fmt.Errorf("render: unknown format %q", req.Format)
	}
	f, err := os.Open(req.Page)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	doc, err := dom.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	screen := req.Screen
	if screen == "" {
		screen = cfg.InitialScreen
	}
	app := wallet.NewApp(screen)
	wopts := []wallet.Option{wallet.WithHost(app), wallet.WithScreen(screen)}
	if req.Data != "" {
		data, err := wallet.LoadData(req.Data)
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}
		wopts = append(wopts, wallet.WithData(data))
	}

	sinks, led, err := domfix.OpenSinks(cfg.Sinks, logger)
	if err != nil {
		return err
	}
	opts := []domfix.Option{
		domfix.WithLogger(logger),
		domfix.WithDocument(doc),
		domfix.WithWallet(wallet.NewContext(wopts...)),
		domfix.WithNavigator(app),
		domfix.WithSinks(sinks...),
	}
	if led != nil {
		opts = append(opts, domfix.WithLedger(led))
	}
	e, err := domfix.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.Start(ctx); err != nil {
		return err
	}

	p, err := e.Reconcile(ctx, screen)
	if err != nil {
		return err
	}
	logger.Info("domfix: rendered", "screen", p.ScreenID, "applied", p.Applied,
		"mutations", p.Mutations(), "failures", len(p.Failures), "aborted", p.Aborted)

	out, err := e.ScreenHTML(ctx, screen)
	if err != nil {
		return err
	}
	if req.Format == "markdown" {
		if out, err = domfix.Digest(out); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func runLive(ctx context.Context, logger *slog.Logger, cfg *domfix.Config) error {
	lv, err := domfix.OpenLive(ctx, cfg.Browser, cfg.ObservedRoot, logger)
	if err != nil {
		return err
	}
	defer lv.Close()

	sinks, led, err := domfix.OpenSinks(cfg.Sinks, logger)
	if err != nil {
		return err
	}
	opts := append(lv.Options(), domfix.WithLogger(logger), domfix.WithSinks(sinks...))
	if led != nil {
		opts = append(opts, domfix.WithLedger(led))
	}
	e, err := domfix.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer e.Close()
	lv.Bind(e)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})
	if cfg.Admin.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Admin.Addr,
			Handler:           adminRouter(e, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("domfix: admin listening", "addr", cfg.Admin.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}
	return g.Wait()
}

// adminRouter serves the engine's admin routes and its MCP tools on /mcp.
func adminRouter(e *domfix.Engine, logger *slog.Logger) http.Handler {
	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "domfix", Version: version}, nil)
	e.RegisterMCP(mcpSrv)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.AdminStack(logger) {
		r.Use(mw)
	}
	e.RegisterHTTP(r)
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil))
	return r
}
