package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/bracket-sync/middleware"
	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/services"
	"github.com/go-chi/chi/v5"
)

type CompetitionHandler struct {
	responder
	engine *services.Engine
}

func NewCompetitionHandler(engine *services.Engine, logger *slog.Logger) *CompetitionHandler {
	return &CompetitionHandler{responder: newResponder(logger), engine: engine}
}

// Overview godoc
// @Summary Сводка по всем параллелям
// @Tags competitions
// @Produce json
// @Success 200 {array} services.GradeOverview
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /competitions [get]
func (h *CompetitionHandler) Overview(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, "authentication required")
		return
	}
	overview, err := h.engine.Overview(r.Context(), session)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"grades": overview})
}

// Load godoc
// @Summary Загрузить документ параллели
// @Tags competitions
// @Description Сначала используется кэш; force=true читает документ из хранилища.
// @Produce json
// @Param grade path string true "Параллель"
// @Param force query bool false "Игнорировать кэш"
// @Success 200 {object} services.WorkspaceView
// @Failure 404 {object} map[string]string "Документ не найден"
// @Failure 502 {object} map[string]string "Хранилище недоступно"
// @Security BearerAuth
// @Router /competitions/{grade}/load [post]
func (h *CompetitionHandler) Load(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	grade := models.Grade(chi.URLParam(r, "grade"))
	res, err := ws.Load(r.Context(), grade, queryBool(r, "force"))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.current(w, r, ws, jsonResponse{"fromCache": res.FromCache})
}

// Reload godoc
// @Summary Перечитать документ из хранилища
// @Tags competitions
// @Description Несохранённые изменения и история отмены сбрасываются.
// @Produce json
// @Success 200 {object} services.WorkspaceView
// @Security BearerAuth
// @Router /competitions/reload [post]
func (h *CompetitionHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	if _, err := ws.Reload(r.Context()); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.current(w, r, ws, nil)
}

// Save godoc
// @Summary Сохранить документ
// @Tags competitions
// @Produce json
// @Success 200 {object} map[string]string "Новая версия"
// @Failure 409 {object} map[string]interface{} "Документ изменён другим администратором"
// @Failure 502 {object} map[string]string "Хранилище недоступно"
// @Security BearerAuth
// @Router /competitions/save [post]
func (h *CompetitionHandler) Save(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	token, err := ws.Save(r.Context())
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"version": token})
}

// Current godoc
// @Summary Текущий документ
// @Tags competitions
// @Description Документ, версия и следующий шаг для каждого раунда.
// @Produce json
// @Success 200 {object} services.WorkspaceView
// @Failure 400 {object} map[string]string "Документ не загружен"
// @Security BearerAuth
// @Router /competitions/current [get]
func (h *CompetitionHandler) Current(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	h.current(w, r, ws, nil)
}

// Undo godoc
// @Summary Отменить последнее изменение
// @Tags competitions
// @Produce json
// @Success 200 {object} services.WorkspaceView
// @Security BearerAuth
// @Router /competitions/undo [post]
func (h *CompetitionHandler) Undo(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	applied, err := ws.Undo()
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.current(w, r, ws, jsonResponse{"applied": applied})
}

// Redo godoc
// @Summary Повторить отменённое изменение
// @Tags competitions
// @Produce json
// @Success 200 {object} services.WorkspaceView
// @Security BearerAuth
// @Router /competitions/redo [post]
func (h *CompetitionHandler) Redo(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	applied, err := ws.Redo()
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.current(w, r, ws, jsonResponse{"applied": applied})
}

// StructuralLog godoc
// @Summary Журнал структурных действий
// @Tags audit
// @Description Локальный журнал, переживающий перезагрузку документа (не более 100 записей).
// @Produce json
// @Success 200 {array} models.AuditEntry
// @Security BearerAuth
// @Router /audit/structural [get]
func (h *CompetitionHandler) StructuralLog(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, "authentication required")
		return
	}
	entries, err := h.engine.StructuralLog(r.Context(), session)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"entries": entries})
}
