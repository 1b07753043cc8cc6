package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kitchensync/internal/bridge"
	"github.com/roach88/kitchensync/internal/bus"
	"github.com/roach88/kitchensync/internal/config"
	"github.com/roach88/kitchensync/internal/engine"
	"github.com/roach88/kitchensync/internal/httpapi"
	"github.com/roach88/kitchensync/internal/store"
)

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr     string
	Database string

	// Ready, when set, is called with the bound address once the server
	// accepts connections (for testing).
	Ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return newServeCommand(&ServeOptions{RootOptions: rootOpts})
}

func newServeCommand(opts *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and change stream",
		Long: `Run the kitchensync server.

The server opens (creating if needed) the SQLite database, serves the REST
API under /api, and streams entity changes to WebSocket subscribers at /ws.
Flags override the config file and KITCHENSYNC_* environment variables.

Example:
  kitchensync serve --addr :8080 --db ./kitchen.db
  kitchensync serve --config ./kitchensync.yaml --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, logger, err := opts.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.HTTPAddr = opts.Addr
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	logger.Info("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return failWith(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	handler := newServerHandler(cfg, st, logger)

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return failWith(ExitCommandError, ErrCodeServer, "failed to listen", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// Streams hang off ctx so they end with a GoingAway close on shutdown;
	// http.Server.Shutdown does not wait for hijacked connections.
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	addr := ln.Addr().String()
	logger.Info("server listening", "addr", addr, "db", cfg.Database)
	fmt.Fprintf(cmd.OutOrStdout(), "kitchensync listening on %s\n", addr)
	if opts.Ready != nil {
		opts.Ready(addr)
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return failWith(ExitFailure, ErrCodeServer, "server error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return failWith(ExitFailure, ErrCodeServer, "graceful shutdown failed", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// newServerHandler wires store, bus, engine, bridge and API into one handler.
func newServerHandler(cfg config.Config, st *store.Store, logger *slog.Logger) http.Handler {
	b := bus.New(logger, bus.WithBacklogWarning(cfg.SubscriberBacklogWarning))
	eng := engine.New(st, b, nil, engine.WithLogger(logger))
	ws := bridge.New(b, logger, bridge.WithOriginPatterns(cfg.AllowedOrigins...))

	auth := httpapi.NewAuth(cfg.Auth.Tokens)
	if !auth.Enabled() {
		logger.Warn("no auth tokens configured, every request is allowed")
	}

	app := httpapi.NewApp(eng, st, ws, auth, logger)
	return httpapi.NewRouter(app)
}
