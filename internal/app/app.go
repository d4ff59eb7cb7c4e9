package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	servernet "roomnav/server/internal/net"
	"roomnav/server/internal/net/ws"
	"roomnav/server/internal/pathfinding"
	"roomnav/server/internal/room"
	"roomnav/server/internal/roommodel"
	"roomnav/server/internal/telemetry"
	"roomnav/server/logging"
	loggingSinks "roomnav/server/logging/sinks"
)

// Server is the assembled process: logging router, rooms, stream hub and
// HTTP handler.
type Server struct {
	cfg     Config
	logger  telemetry.Logger
	router  *logging.Router
	manager *room.Manager
	hub     *ws.Hub
	handler http.Handler
	closers []io.Closer
}

func New(cfg Config) (*Server, error) {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	s := &Server{cfg: cfg, logger: telemetryLogger}

	sinks, err := s.buildSinks(cfg.Logging)
	if err != nil {
		s.closeFiles()
		return nil, err
	}
	router, err := logging.NewRouter(cfg.Logging, logging.SystemClock{}, fallbackLogger, sinks)
	if err != nil {
		s.closeFiles()
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	s.router = router

	metrics := telemetry.WrapMetrics(router.Metrics())
	s.hub = ws.NewHub(ws.HubConfig{
		Logger:    telemetryLogger,
		Metrics:   metrics,
		Publisher: router,
	})
	s.manager = room.NewManager(room.ManagerConfig{
		Options: pathfinding.Options{
			Policy:               cfg.Policy,
			PreventCornerCutting: cfg.PreventCornerCutting,
		},
		Publisher: router,
		Metrics:   metrics,
		Observers: s.hub.Observer,
	})
	s.handler = servernet.NewHTTPHandler(s.manager, servernet.HTTPHandlerConfig{
		Logger:        telemetryLogger,
		Hub:           s.hub,
		Observability: cfg.Observability,
	})
	return s, nil
}

func (s *Server) buildSinks(cfg logging.Config) (map[string]logging.Sink, error) {
	sinks := make(map[string]logging.Sink)
	if cfg.HasSink("console") {
		sinks["console"] = loggingSinks.NewConsole(os.Stdout)
	}
	if cfg.HasSink("json") {
		var w io.Writer = os.Stdout
		if cfg.JSON.FilePath != "" {
			file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("failed to open json log %s: %w", cfg.JSON.FilePath, err)
			}
			s.closers = append(s.closers, file)
			w = file
		}
		sinks["json"] = loggingSinks.NewJSON(w, cfg.JSON.FlushInterval)
	}
	return sinks, nil
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Manager() *room.Manager { return s.manager }

func (s *Server) Router() *logging.Router { return s.router }

// LoadModels applies every model file in the configured directory. Any file
// that fails to parse fails the load; a room that cannot be replaced because
// it is occupied is logged and skipped.
func (s *Server) LoadModels(ctx context.Context) (int, error) {
	if s.cfg.ModelsDir == "" {
		return 0, nil
	}
	models, err := roommodel.LoadDir(s.cfg.ModelsDir)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, model := range models {
		if _, err := s.manager.Apply(ctx, model); err != nil {
			s.logger.Printf("skipping room %q: %v", model.ID, err)
			continue
		}
		loaded++
	}
	return loaded, nil
}

// Reload re-applies the model stored at path.
func (s *Server) Reload(ctx context.Context, path string) error {
	model, err := roommodel.Load(path)
	if err != nil {
		return err
	}
	if _, err := s.manager.Apply(ctx, model); err != nil {
		return err
	}
	s.logger.Printf("reloaded room %q from %s", model.ID, path)
	return nil
}

func (s *Server) watch(ctx context.Context, watcher *roommodel.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-watcher.Events:
			if !ok {
				return
			}
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := s.Reload(ctx, path); err != nil {
				s.logger.Printf("failed to reload %s: %v", path, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Printf("room model watcher: %v", err)
		}
	}
}

// RunTicks advances every room at the configured rate until ctx is done.
func (s *Server) RunTicks(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.manager.Advance(ctx)
		}
	}
}

// Close flushes the logging router and releases any log files.
func (s *Server) Close(ctx context.Context) error {
	err := s.router.Close(ctx)
	if ferr := s.closeFiles(); err == nil {
		err = ferr
	}
	return err
}

func (s *Server) closeFiles() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Run loads the room models, starts the tick loop and serves HTTP until ctx
// is cancelled.
func Run(ctx context.Context, cfg Config) error {
	s, err := New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := s.Close(closeCtx); cerr != nil {
			s.logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loaded, err := s.LoadModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to load room models: %w", err)
	}
	s.logger.Printf("loaded %d rooms from %s", loaded, cfg.ModelsDir)

	if cfg.WatchModels && cfg.ModelsDir != "" {
		watcher, err := roommodel.NewWatcher(cfg.ModelsDir)
		if err != nil {
			s.logger.Printf("room model hot reload disabled: %v", err)
		} else {
			defer watcher.Close()
			go s.watch(ctx, watcher)
		}
	}

	go s.RunTicks(ctx)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: s.handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Printf("server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
