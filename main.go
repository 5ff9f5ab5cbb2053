// Command codenames starts the Codenames live session server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the WebSocket gateway, REST API, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, the word set directory, debug logging, and
// optional ngrok tunneling for easy external access during development.
// Tuning knobs such as the idle timeout come from CODENAMES_* environment
// variables, optionally loaded from a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/codenames/api"
	"github.com/wricardo/mcp-training/codenames/game/session"
	"github.com/wricardo/mcp-training/codenames/game/words"
	"github.com/wricardo/mcp-training/codenames/stats"
	"github.com/wricardo/mcp-training/codenames/telemetry"
	"github.com/wricardo/mcp-training/codenames/transport/mcp"
	"github.com/wricardo/mcp-training/codenames/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Codenames Server"
)

func main() {
	// Load .env file if it exists, before flags read their env sources
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	cmd := newCommand()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd.Name, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "codenames",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.StringFlag{
				Name:    "wordsets-dir",
				Value:   "wordsets",
				Usage:   "Directory containing word set JSON files",
				Sources: cli.EnvVars("WORDSETS_DIR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runHTTPServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with WebSocket, REST API, and MCP endpoint (default)",
				Action:  runHTTPServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action:  runStdioMCP,
			},
		},
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// application holds the long-lived services shared by both modes.
type application struct {
	logger   *zap.Logger
	settings Settings

	manager   *session.Manager
	wordSets  *words.Manager
	counter   *stats.Counter
	store     stats.Store
	collector *stats.AsyncCollector
	hub       *websocket.Hub
	reaper    *session.Reaper

	hubDone   sync.WaitGroup
	flushDone sync.WaitGroup
	stopFlush context.CancelFunc
}

// newApplication wires the session registry, word sets and stats store.
func newApplication(ctx context.Context, wordSetsDir string, settings Settings, logger *zap.Logger) (*application, error) {
	wordSets, err := words.NewManager(wordSetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create word set manager: %w", err)
	}

	store, err := stats.Open(settings.StatsBackend, settings.StatsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats store: %w", err)
	}
	counter, err := stats.Restore(ctx, store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to restore stats: %w", err)
	}

	collector := stats.Async(counter, logger)
	manager := session.NewManager(session.WithLogger(logger))
	hub := websocket.NewHub(manager, collector, logger)

	return &application{
		logger:    logger,
		settings:  settings,
		manager:   manager,
		wordSets:  wordSets,
		counter:   counter,
		store:     store,
		collector: collector,
		hub:       hub,
		// Sweeps run on the hub loop so a removal never lands inside a join or reveal.
		reaper: session.NewReaper(manager, collector, settings.ReapInterval, settings.IdleTimeout, logger,
			session.WithExecutor(hub.Do)),
	}, nil
}

// start launches the hub, the idle reaper and the stats flusher. The hub and
// the reaper stop when ctx is cancelled; wait blocks until everything has.
func (a *application) start(ctx context.Context) {
	a.hubDone.Add(1)
	go func() {
		defer a.hubDone.Done()
		a.hub.Run(ctx)
	}()

	// The flusher outlives ctx so it can persist what the hub reported last.
	flushCtx, stopFlush := context.WithCancel(context.WithoutCancel(ctx))
	a.stopFlush = stopFlush
	a.flushDone.Add(1)
	go func() {
		defer a.flushDone.Done()
		stats.Run(flushCtx, a.counter, a.store, a.settings.StatsFlushInterval, a.logger)
	}()

	a.reaper.Start(ctx)
}

func (a *application) wait() {
	a.reaper.Stop()
	a.hubDone.Wait()
	a.collector.Close()
	if a.stopFlush != nil {
		a.stopFlush()
	}
	a.flushDone.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close stats store", zap.Error(err))
	}
}

// handler builds the HTTP surface. The MCP tools call back into it at baseURL.
func (a *application) handler(baseURL string) http.Handler {
	apiServer := api.NewServer(a.manager, a.wordSets, a.hub, a.counter, a.logger)
	apiServer.Handle("/mcp", mcp.NewClient(baseURL, Version))
	return apiServer
}

func setupTracing(ctx context.Context, settings Settings, logger *zap.Logger) func() {
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: settings.OTelServiceName,
		Endpoint:    settings.OTelEndpoint,
		Disabled:    settings.OTelDisabled,
	})
	if err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
}

// runHTTPServer starts the HTTP server with the WebSocket hub, REST API, and
// an /mcp proxy endpoint. If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	settings, err := LoadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer setupTracing(ctx, settings, logger)()

	app, err := newApplication(ctx, cmd.String("wordsets-dir"), settings, logger)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	handler := app.handler("http://" + addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Starting server",
		zap.String("app", AppName),
		zap.String("version", Version),
		zap.String("addr", addr),
		zap.Duration("idle_timeout", settings.IdleTimeout),
		zap.String("stats_backend", settings.StatsBackend))

	app.start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("websocket", "ws://"+addr+"/ws"),
			zap.String("api", "http://"+addr+"/api"),
			zap.String("mcp", "http://"+addr+"/mcp"))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var tunnels sync.WaitGroup
	if cmd.Bool("ngrok") {
		tunnels.Add(1)
		go func() {
			defer tunnels.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), handler, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err = <-serveErr:
		logger.Error("HTTP server failed", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	tunnels.Wait()
	app.wait()
	logger.Info("Server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled.
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler, logger *zap.Logger) {
	if authToken == "" {
		logger.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("Failed to start ngrok tunnel", zap.Error(err))
		return
	}
	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("Failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	url := tun.URL()
	logger.Info("Ngrok tunnel established",
		zap.String("url", url),
		zap.String("websocket", url+"/ws"),
		zap.String("mcp", url+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn("Ngrok server error", zap.Error(err))
	}
	logger.Info("Ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening on
// --host/--port; otherwise it starts an internal one on a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	externalURL := fmt.Sprintf("http://%s:%d", cmd.String("host"), cmd.Int("port"))
	baseURL := externalURL

	if !apiAvailable(externalURL) {
		logger.Info("No external API server found, starting internal HTTP server")

		settings, err := LoadSettings()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		app, err := newApplication(ctx, cmd.String("wordsets-dir"), settings, logger)
		if err != nil {
			return err
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		httpServer := &http.Server{Handler: app.handler(baseURL)}
		app.start(ctx)
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Internal HTTP server error", zap.Error(err))
			}
		}()
		defer func() {
			httpServer.Close()
			cancel()
			app.wait()
		}()
	} else {
		logger.Info("External API server found, using it for MCP", zap.String("url", externalURL))
	}

	mcpClient := mcp.NewClient(baseURL, Version)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
