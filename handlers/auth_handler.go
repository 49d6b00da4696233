package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/bracket-sync/middleware"
	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/services"
)

type AuthHandler struct {
	responder
	authService services.AuthService
	engine      *services.Engine
}

func NewAuthHandler(as services.AuthService, engine *services.Engine, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		responder:   newResponder(logger),
		authService: as,
		engine:      engine,
	}
}

type loginResponse struct {
	Token string             `json:"token"`
	Role  models.SessionRole `json:"role"`
	Admin string             `json:"admin"`
}

// Login godoc
// @Summary Вход администратора
// @Tags auth
// @Description Проверяет токен доступа к хранилищу документов и выдаёт подписанный токен роли. Для президента требуется код.
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Имя администратора, токен доступа и код"
// @Success 200 {object} loginResponse
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Токен доступа отклонён"
// @Failure 403 {object} map[string]string "Неверный код"
// @Failure 429 {object} map[string]string "Слишком много попыток"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	session, token, err := h.authService.Login(r.Context(), input)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.ok(w, r, http.StatusOK, loginResponse{Token: token, Role: session.Role, Admin: session.Admin})
}

// Logout godoc
// @Summary Выход
// @Tags auth
// @Success 204
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, "authentication required")
		return
	}
	h.engine.Logout(session)
	w.WriteHeader(http.StatusNoContent)
}

// Session godoc
// @Summary Текущая сессия
// @Tags auth
// @Description Повторно проверяет подпись токена роли.
// @Produce json
// @Success 200 {object} services.Session
// @Failure 401 {object} map[string]string "Сессия недействительна"
// @Security BearerAuth
// @Router /auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, "authentication required")
		return
	}
	if err := h.authService.Authorize(session, models.RoleLimited); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, session)
}
