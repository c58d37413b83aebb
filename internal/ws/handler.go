package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gqlbridge/internal/bridge"
	"gqlbridge/internal/config"
	"gqlbridge/internal/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// Handler handles WebSocket connections. Each connection gets its own
// bridge service over the shared parser and connector.
type Handler struct {
	parser    *engine.Parser
	connector engine.Connector
	cfg       *config.Config
	logger    zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(parser *engine.Parser, connector engine.Connector, cfg *config.Config, logger zerolog.Logger) *Handler {
	return &Handler{
		parser:    parser,
		connector: connector,
		cfg:       cfg,
		logger:    logger.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	h.logger.Info().Str("remoteAddr", r.RemoteAddr).Msg("new WebSocket connection")

	clientLogger := h.logger.With().Str("remoteAddr", r.RemoteAddr).Logger()
	svc := bridge.New(h.parser, h.connector, clientLogger)
	client := NewClient(conn, svc, h.cfg.MaxSubscriptionsPerClient, clientLogger)
	client.Run(r.Context())
}
