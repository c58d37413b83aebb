package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"gqlbridge/internal/config"
	"gqlbridge/internal/engine"
	"gqlbridge/internal/scripted"
	"gqlbridge/internal/ws"
)

// Server hosts the WebSocket boundary
type Server struct {
	cfg      *config.Config
	wsServer *http.Server
	logger   zerolog.Logger
}

// New creates a new Server
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	parser, err := engine.NewParser(cfg.ParseCacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	profiles := make([]scripted.Profile, 0, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		profiles = append(profiles, scripted.Profile{
			Name:    p.Name,
			Script:  p.Script,
			Default: p.Default,
		})
	}
	connector := scripted.NewConnector(profiles, logger)

	handler := ws.NewHandler(parser, connector, cfg, logger)

	mux := http.NewServeMux()
	mux.Handle("/graphql", handler)

	return &Server{
		cfg: cfg,
		wsServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.WSPort),
			Handler: mux,
		},
		logger: logger.With().Str("component", "server").Logger(),
	}, nil
}

// Start begins serving WebSocket connections
func (s *Server) Start() error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.wsServer.Addr).Msg("WebSocket server listening")
		if err := s.wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down")
	return s.wsServer.Shutdown(ctx)
}
