package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mapty "github.com/claude/mapty"
	"github.com/claude/mapty/internal/app"
	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/geo"
	"github.com/claude/mapty/internal/listview"
	"github.com/claude/mapty/internal/mapview"
	maptymcp "github.com/claude/mapty/internal/mcp"
	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/notify"
	"github.com/claude/mapty/internal/server"
	"github.com/claude/mapty/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("Mapty starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	slot, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer slot.Close()

	// Controller and views
	notes := notify.NewCenter(log)
	scene := mapview.NewScene(mapview.Tiles{URL: cfg.Map.TileURL, Attribution: cfg.Map.Attribution})
	list := listview.New()
	ctrl := app.New(slot, mapview.New(scene, cfg.Map.Zoom), list, notes, log)

	events := app.NewDispatcher(log)
	go events.Run(ctx)

	// A failed restore leaves an empty collection; the app keeps running.
	var restoreErr error
	if err := events.Do(ctx, func() { restoreErr = ctrl.Restore(ctx) }); err != nil {
		log.Error("restore not dispatched", "error", err)
		os.Exit(1)
	}
	if restoreErr != nil {
		log.Warn("restore failed, starting empty", "error", restoreErr)
	}

	srv := server.New(ctrl, events, scene, list, notes, log)

	provider := locationProvider(cfg.Location)
	if b, ok := provider.(*geo.Browser); ok {
		srv.SetLocator(b)
	}
	go locate(ctx, provider, ctrl, events, log)

	if cfg.MCP.Enabled {
		mcpSrv := maptymcp.New(maptymcp.NewLocal(ctrl, events), Version, log)
		srv.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))
		log.Info("mcp endpoint enabled", "path", "/mcp")
	}

	// Serve embedded frontend
	webDist, err := fs.Sub(mapty.WebFS, "web/dist")
	if err != nil {
		log.Error("failed to load embedded frontend", "error", err)
		os.Exit(1)
	}
	srv.SetFrontend(webDist)

	// Start server on tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr)
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	stop()
	log.Info("server stopped")
}

func locationProvider(cfg config.LocationConfig) geo.Provider {
	switch cfg.Source {
	case "static":
		return geo.Static{At: models.Coords{Lat: cfg.Lat, Lng: cfg.Lng}}
	case "none":
		return geo.Denied{}
	}
	return geo.NewBrowser()
}

// locate waits for the one position lookup and hands the result to the
// controller as an event.
func locate(ctx context.Context, p geo.Provider, ctrl *app.Controller, events *app.Dispatcher, log *slog.Logger) {
	at, locErr := p.Locate(ctx)
	if ctx.Err() != nil {
		return
	}
	err := events.Do(ctx, func() {
		if locErr != nil {
			ctrl.MapFailed(locErr)
			return
		}
		ctrl.MapReady(at)
	})
	if err != nil {
		log.Warn("location result dropped", "error", err)
	}
}
