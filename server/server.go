// Package server implements the taskdeck HTTP server and REST API.
package server

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwillim/taskdeck/config"
	"github.com/cwillim/taskdeck/pipeline"
	"github.com/cwillim/taskdeck/provider"
	"github.com/cwillim/taskdeck/server/api"
	"github.com/cwillim/taskdeck/store"
)

// Server is the taskdeck HTTP server.
type Server struct {
	cfg     *config.Config
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger

	handlers *api.Handlers
}

// New creates a new Server wired to the given store and provider. All
// dependencies are passed in explicitly; the server owns none of their
// lifecycles.
func New(cfg *config.Config, st store.Store, prov provider.Provider, ver string, logger *slog.Logger) *Server {
	h := &api.Handlers{
		Store:    st,
		Provider: prov,
		Pipeline: &pipeline.Pipeline{
			Store:        st,
			Provider:     prov,
			Logger:       logger,
			HistoryLimit: cfg.Chat.HistoryLimit,
		},
		Logger:   logger,
		Version:  ver,
		WIPLimit: cfg.Board.WIPLimit,
	}
	return &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		logger:   logger,
		handlers: h,
	}
}

// SetStaticFS sets the embedded filesystem to serve UI files from.
// Call before Start.
func (s *Server) SetStaticFS(fsys fs.FS) {
	s.mux.Handle("/", http.FileServerFS(fsys))
}

// Start registers routes and begins listening.
func (s *Server) Start() error {
	s.handlers.RegisterRoutes(s.mux)

	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":8870"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("server listening", slog.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
