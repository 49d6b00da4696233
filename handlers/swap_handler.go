package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/bracket-sync/services"
)

type SwapHandler struct {
	responder
	engine *services.Engine
}

func NewSwapHandler(engine *services.Engine, logger *slog.Logger) *SwapHandler {
	return &SwapHandler{responder: newResponder(logger), engine: engine}
}

type switchModeInput struct {
	Code string `json:"code"`
}

// Activate godoc
// @Summary Включить режим обмена команд
// @Tags swap
// @Description Повторно проверяет секретный код. Раунд должен быть разблокирован.
// @Accept json
// @Produce json
// @Param round path int true "Индекс раунда"
// @Param body body switchModeInput true "Секретный код"
// @Success 200 {object} services.SwitchModeView
// @Failure 403 {object} map[string]string "Неверный код или нет прав"
// @Security BearerAuth
// @Router /rounds/{round}/switch-mode [post]
func (h *SwapHandler) Activate(w http.ResponseWriter, r *http.Request) {
	roundIdx, err := getIndexFromURL(r, "round")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	var input switchModeInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	view, err := ws.ActivateSwitchMode(roundIdx, input.Code)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"switchMode": view})
}

// State godoc
// @Summary Состояние режима обмена
// @Tags swap
// @Produce json
// @Success 200 {object} services.SwitchModeView
// @Security BearerAuth
// @Router /switch-mode [get]
func (h *SwapHandler) State(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"switchMode": ws.SwitchMode()})
}

// UnlockTeam godoc
// @Summary Выбрать команду для обмена
// @Tags swap
// @Accept json
// @Produce json
// @Param body body services.TeamLocator true "Раунд, матч и сторона"
// @Success 200 {object} services.SwitchModeView
// @Failure 422 {object} map[string]string "Команду нельзя выбрать"
// @Security BearerAuth
// @Router /switch-mode/unlock [post]
func (h *SwapHandler) UnlockTeam(w http.ResponseWriter, r *http.Request) {
	var loc services.TeamLocator
	if err := readJSON(w, r, &loc); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	view, err := ws.UnlockTeam(loc)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"switchMode": view})
}

// RelockTeam godoc
// @Summary Снять выбор команды
// @Tags swap
// @Accept json
// @Produce json
// @Param body body services.TeamLocator true "Раунд, матч и сторона"
// @Success 200 {object} services.SwitchModeView
// @Security BearerAuth
// @Router /switch-mode/relock [post]
func (h *SwapHandler) RelockTeam(w http.ResponseWriter, r *http.Request) {
	var loc services.TeamLocator
	if err := readJSON(w, r, &loc); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"switchMode": ws.RelockTeam(loc)})
}

// Exit godoc
// @Summary Выйти из режима обмена
// @Tags swap
// @Success 204
// @Security BearerAuth
// @Router /switch-mode [delete]
func (h *SwapHandler) Exit(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	ws.ExitSwitchMode()
	w.WriteHeader(http.StatusNoContent)
}

// Swap godoc
// @Summary Поменять две выбранные команды местами
// @Tags swap
// @Description Изменение сразу сохраняется; при ошибке сохранения оно откатывается.
// @Produce json
// @Success 200 {object} services.SwapResult
// @Failure 409 {object} map[string]interface{} "Конфликт версий"
// @Failure 422 {object} map[string]string "Нужно выбрать ровно две команды"
// @Security BearerAuth
// @Router /switch-mode/swap [post]
func (h *SwapHandler) Swap(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	res, err := ws.ConfirmSwap(r.Context())
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"swap": res})
}
