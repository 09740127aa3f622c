package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cwrk-planet/room-relay/internal/domain"
	"github.com/cwrk-planet/room-relay/pkg/logger"

	"github.com/go-chi/chi/v5"
)

type RoomSvc interface {
	GetRoom(ctx context.Context, id string) (*domain.Room, error)
}

type ChatSvc interface {
	History(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
}

// LiveCounter reports connections held by this instance.
type LiveCounter interface {
	Count(roomID string) int
}

// Check is one readiness probe, e.g. a database ping.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

type Handler struct {
	roomSvc RoomSvc
	chatSvc ChatSvc
	live    LiveCounter
	checks  []Check
}

// NewHandler builds the HTTP handlers. chat may be nil when the archive is off.
func NewHandler(room RoomSvc, chat ChatSvc, live LiveCounter, checks ...Check) *Handler {
	return &Handler{
		roomSvc: room,
		chatSvc: chat,
		live:    live,
		checks:  checks,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	room, err := h.roomSvc.GetRoom(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		logger.FromContext(r.Context()).Error("handler.GetRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, RoomItem{
		ID:               room.ID,
		Name:             room.Name,
		MaxParticipants:  room.MaxParticipants,
		ParticipantCount: room.ParticipantCount,
		LiveHere:         h.live.Count(room.ID),
		IsActive:         room.IsActive,
		CreatedAt:        room.CreatedAt,
	})
}

// GET /rooms/{id}/messages?limit=
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	if h.chatSvc == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "chat archive disabled"})
		return
	}
	roomID := chi.URLParam(r, "id")
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	items, err := h.chatSvc.History(r.Context(), roomID, limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("handler.GetChatHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	resp := ChatHistoryResponse{Items: make([]ChatMessageItem, 0, len(items))}
	for _, m := range items {
		resp.Items = append(resp.Items, ChatMessageItem{
			ID:        m.ID,
			RoomID:    m.RoomID,
			UserID:    m.ParticipantID,
			Username:  m.Username,
			Text:      m.Text,
			CreatedAt: m.CreatedAt.Truncate(time.Millisecond),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GET /readyz
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for _, c := range h.checks {
		if err := c.Fn(ctx); err != nil {
			logger.FromContext(ctx).Warn("readiness check failed", "check", c.Name, "err", err)
			resp.Checks[c.Name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	writeJSON(w, status, resp)
}
