package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cwrk-planet/room-relay/internal/domain"
	"github.com/cwrk-planet/room-relay/internal/relay"
	"github.com/cwrk-planet/room-relay/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// Relay is the part of relay.Relay the socket endpoint needs.
type Relay interface {
	Serve(ctx context.Context, roomID string, conn relay.Conn) error
}

type Server struct {
	upgrader websocket.Upgrader
	relay    Relay
	ka       KeepAlive

	// sessions end when base is cancelled; hijacked connections outlive
	// the request context handling
	base context.Context
}

// NewServer accepts sockets for r. allowedOrigins limits the Origin header;
// an empty list accepts any origin.
func NewServer(base context.Context, r Relay, ka KeepAlive, allowedOrigins []string) *Server {
	ka.setDefaults()
	return &Server{
		relay: r,
		ka:    ka,
		base:  base,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// WS endpoint: GET /ws/rooms/{id}
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(chi.URLParam(r, "id"))
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	log := logger.FromContext(r.Context()).With("room_id", roomID)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		log.Warn("ws upgrade failed", "err", err)
		return
	}

	err = s.relay.Serve(s.base, roomID, newWsConn(conn, s.ka))
	switch {
	case err == nil, errors.Is(err, relay.ErrDraining):
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrRoomFull):
		log.Debug("ws session refused", "err", err)
	default:
		log.Warn("ws session refused", "err", err)
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || lo.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return origin == "" || lo.ContainsBy(allowed, func(a string) bool {
			return strings.EqualFold(a, origin)
		})
	}
}
