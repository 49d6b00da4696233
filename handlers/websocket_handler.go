package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/bracket-sync/brackets"
	"github.com/Dosada05/bracket-sync/middleware"
	"github.com/Dosada05/bracket-sync/models"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// GradeChecker reports whether a grade is served by this process.
type GradeChecker interface {
	KnownGrade(grade models.Grade) bool
}

type WebSocketHandler struct {
	responder
	hub      *brackets.Hub
	grades   GradeChecker
	upgrader websocket.Upgrader
}

// NewWebSocketHandler accepts connections from the listed origins; "*" allows any.
func NewWebSocketHandler(hub *brackets.Hub, grades GradeChecker, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		responder: newResponder(logger),
		hub:       hub,
		grades:    grades,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// ServeWs godoc
// @Summary Поток событий параллели
// @Tags websocket
// @Description События DOCUMENT_SAVED, CONFLICT_DETECTED, ROUND_GENERATED, STRUCTURAL_ACTION. Токен можно передать в ?token=.
// @Param grade path string true "Параллель"
// @Success 101
// @Security BearerAuth
// @Router /ws/competitions/{grade} [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	grade := chi.URLParam(r, "grade")
	if grade == "" || !h.grades.KnownGrade(models.Grade(grade)) {
		h.errorResponse(w, r, http.StatusNotFound, jsonResponse{"error": "unknown grade"})
		return
	}
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, "authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отправляет HTTP ошибку клиенту, так что здесь просто логируем.
		h.logger.Warn("websocket upgrade failed", slog.String("grade", grade), slog.Any("error", err))
		return
	}

	roomID := brackets.RoomForGrade(grade)
	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: roomID,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("websocket client joined",
		slog.String("room", roomID),
		slog.String("admin", session.Admin),
	)
}
