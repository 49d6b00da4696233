package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Dosada05/bracket-sync/brackets"
	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/services"
)

// PairingHandler drives the round generation workflow of the caller's workspace.
type PairingHandler struct {
	responder
	engine *services.Engine
}

func NewPairingHandler(engine *services.Engine, logger *slog.Logger) *PairingHandler {
	return &PairingHandler{responder: newResponder(logger), engine: engine}
}

type countInput struct {
	Count int `json:"count"`
}

type assignInput struct {
	Match int         `json:"match"`
	Side  models.Side `json:"side"`
	Team  string      `json:"team"`
}

type commitInput struct {
	Phrase string `json:"phrase"`
}

// step runs one pairing transition and answers with the resulting view.
func (h *PairingHandler) step(w http.ResponseWriter, r *http.Request, fn func(*services.Workspace) (brackets.PairingView, error)) {
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	view, err := fn(ws)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"pairing": view})
}

// Begin godoc
// @Summary Начать генерацию следующего раунда
// @Tags pairing
// @Produce json
// @Param round path int true "Индекс исходного раунда"
// @Success 200 {object} brackets.PairingView
// @Failure 422 {object} map[string]string "Раунд не завершён"
// @Security BearerAuth
// @Router /rounds/{round}/pairing [post]
func (h *PairingHandler) Begin(w http.ResponseWriter, r *http.Request) {
	roundIdx, err := getIndexFromURL(r, "round")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	h.step(w, r, func(ws *services.Workspace) (brackets.PairingView, error) {
		return ws.BeginPairing(roundIdx)
	})
}

// State godoc
// @Summary Состояние генерации
// @Tags pairing
// @Produce json
// @Success 200 {object} brackets.PairingView
// @Security BearerAuth
// @Router /pairing [get]
func (h *PairingHandler) State(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, func(ws *services.Workspace) (brackets.PairingView, error) {
		return ws.PairingState(), nil
	})
}

// Options godoc
// @Summary Доступные команды для слота
// @Tags pairing
// @Produce json
// @Param match query int true "Индекс матча"
// @Param side query string true "Сторона (A/B)"
// @Success 200 {array} brackets.TeamOption
// @Security BearerAuth
// @Router /pairing/options [get]
func (h *PairingHandler) Options(w http.ResponseWriter, r *http.Request) {
	matchIdx, err := strconv.Atoi(r.URL.Query().Get("match"))
	if err != nil {
		h.badRequestResponse(w, r, errors.New("match query parameter must be an integer"))
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	options, err := ws.PairingOptions(matchIdx, models.Side(r.URL.Query().Get("side")))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"options": options})
}

// SetCount godoc
// @Summary Задать число матчей
// @Tags pairing
// @Accept json
// @Produce json
// @Param body body countInput true "Число матчей"
// @Success 200 {object} brackets.PairingView
// @Security BearerAuth
// @Router /pairing/count [post]
func (h *PairingHandler) SetCount(w http.ResponseWriter, r *http.Request) {
	var input countInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	h.step(w, r, func(ws *services.Workspace) (brackets.PairingView, error) {
		return ws.SetMatchCount(input.Count)
	})
}

// Assign godoc
// @Summary Назначить команду в слот
// @Tags pairing
// @Accept json
// @Produce json
// @Param body body assignInput true "Матч, сторона и команда (пусто: очистить)"
// @Success 200 {object} brackets.PairingView
// @Security BearerAuth
// @Router /pairing/assign [post]
func (h *PairingHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var input assignInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	h.step(w, r, func(ws *services.Workspace) (brackets.PairingView, error) {
		return ws.AssignTeam(input.Match, input.Side, input.Team)
	})
}

// Submit godoc
// @Summary Отправить пары на проверку
// @Tags pairing
// @Produce json
// @Success 200 {object} brackets.PairingView
// @Security BearerAuth
// @Router /pairing/submit [post]
func (h *PairingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*services.Workspace).SubmitPairing)
}

// Confirm godoc
// @Summary Подтвердить пары
// @Tags pairing
// @Produce json
// @Success 200 {object} brackets.PairingView
// @Security BearerAuth
// @Router /pairing/confirm [post]
func (h *PairingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*services.Workspace).ConfirmPairing)
}

// Back godoc
// @Summary Вернуться на шаг назад
// @Tags pairing
// @Produce json
// @Success 200 {object} brackets.PairingView
// @Security BearerAuth
// @Router /pairing/back [post]
func (h *PairingHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, (*services.Workspace).PairingBack)
}

// Commit godoc
// @Summary Создать раунд
// @Tags pairing
// @Description Требует фразу "CONFIRM". Исходный раунд блокируется, новый раунд сохраняется.
// @Accept json
// @Produce json
// @Param body body commitInput true "Фраза подтверждения"
// @Success 201 {object} models.Round
// @Failure 409 {object} map[string]interface{} "Конфликт версий"
// @Failure 502 {object} map[string]interface{} "Раунд создан локально, но не сохранён"
// @Security BearerAuth
// @Router /pairing/commit [post]
func (h *PairingHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var input commitInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	round, err := ws.CommitPairing(r.Context(), input.Phrase)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, jsonResponse{"round": round})
}

// Cancel godoc
// @Summary Отменить генерацию
// @Tags pairing
// @Success 204
// @Security BearerAuth
// @Router /pairing [delete]
func (h *PairingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	ws.CancelPairing()
	w.WriteHeader(http.StatusNoContent)
}
