package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/services"
)

type RoundHandler struct {
	responder
	engine *services.Engine
}

func NewRoundHandler(engine *services.Engine, logger *slog.Logger) *RoundHandler {
	return &RoundHandler{responder: newResponder(logger), engine: engine}
}

type scoreInput struct {
	Side  models.Side `json:"side"`
	Value string      `json:"value"`
}

type scheduleInput struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type bestLoserInput struct {
	TeamA string `json:"teamA"`
	TeamB string `json:"teamB"`
}

// matchPath reads the round and match indices of /rounds/{round}/matches/{match}.
func (h *RoundHandler) matchPath(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	roundIdx, err := getIndexFromURL(r, "round")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return 0, 0, false
	}
	matchIdx, err := getIndexFromURL(r, "match")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return 0, 0, false
	}
	return roundIdx, matchIdx, true
}

// UpdateScore godoc
// @Summary Изменить счёт команды
// @Tags rounds
// @Description Пустое значение очищает счёт. Изменение локальное до сохранения.
// @Accept json
// @Produce json
// @Param round path int true "Индекс раунда"
// @Param match path int true "Индекс матча"
// @Param body body scoreInput true "Сторона (A/B) и значение"
// @Success 200 {object} models.Match
// @Failure 422 {object} map[string]string "Неверный счёт или раунд заблокирован"
// @Security BearerAuth
// @Router /rounds/{round}/matches/{match}/score [patch]
func (h *RoundHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	roundIdx, matchIdx, ok := h.matchPath(w, r)
	if !ok {
		return
	}
	var input scoreInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	match, err := ws.UpdateScore(roundIdx, matchIdx, input.Side, input.Value)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"match": match})
}

// UpdateSchedule godoc
// @Summary Изменить дату, время или место матча
// @Tags rounds
// @Accept json
// @Produce json
// @Param round path int true "Индекс раунда"
// @Param match path int true "Индекс матча"
// @Param body body scheduleInput true "Поле (date/time/location) и значение"
// @Success 200 {object} models.Match
// @Security BearerAuth
// @Router /rounds/{round}/matches/{match}/schedule [patch]
func (h *RoundHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	roundIdx, matchIdx, ok := h.matchPath(w, r)
	if !ok {
		return
	}
	var input scheduleInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	match, err := ws.UpdateSchedule(roundIdx, matchIdx, input.Field, input.Value)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"match": match})
}

// CreateBestLoser godoc
// @Summary Создать матч лучших проигравших
// @Tags rounds
// @Accept json
// @Produce json
// @Param round path int true "Индекс раунда"
// @Param body body bestLoserInput true "Две проигравшие команды"
// @Success 201 {object} models.Match
// @Failure 422 {object} map[string]string "Матч недоступен для раунда"
// @Failure 502 {object} map[string]interface{} "Матч создан локально, но не сохранён"
// @Security BearerAuth
// @Router /rounds/{round}/best-loser [post]
func (h *RoundHandler) CreateBestLoser(w http.ResponseWriter, r *http.Request) {
	roundIdx, err := getIndexFromURL(r, "round")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	var input bestLoserInput
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	match, err := ws.CreateBestLoserMatch(r.Context(), roundIdx, input.TeamA, input.TeamB)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, jsonResponse{"match": match})
}

// EndTournament godoc
// @Summary Завершить турнир
// @Tags rounds
// @Description Блокирует последний раунд. Изменение локальное до сохранения.
// @Accept json
// @Produce json
// @Param body body services.Confirmation true "Подтверждение"
// @Success 200 {object} services.WorkspaceView
// @Failure 403 {object} map[string]string "Нужна роль ABSOLUTE"
// @Security BearerAuth
// @Router /tournament/end [post]
func (h *RoundHandler) EndTournament(w http.ResponseWriter, r *http.Request) {
	var input services.Confirmation
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	if err := ws.EndTournament(r.Context(), input); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.current(w, r, ws, nil)
}

// UnlockRound godoc
// @Summary Разблокировать финальный раунд
// @Tags rounds
// @Accept json
// @Produce json
// @Param round path int true "Индекс раунда"
// @Param body body services.Confirmation true "Подтверждение"
// @Success 200 {object} services.WorkspaceView
// @Failure 422 {object} map[string]string "Раунд не последний или не заблокирован"
// @Security BearerAuth
// @Router /rounds/{round}/unlock [post]
func (h *RoundHandler) UnlockRound(w http.ResponseWriter, r *http.Request) {
	roundIdx, err := getIndexFromURL(r, "round")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	var input services.Confirmation
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	if err := ws.UnlockFinalRound(r.Context(), roundIdx, input); err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.current(w, r, ws, nil)
}

// DeletePreview godoc
// @Summary Что будет удалено каскадом
// @Tags rounds
// @Produce json
// @Param round path int true "Индекс раунда"
// @Success 200 {object} brackets.RoundSummary
// @Security BearerAuth
// @Router /rounds/{round}/delete-preview [get]
func (h *RoundHandler) DeletePreview(w http.ResponseWriter, r *http.Request) {
	roundIdx, err := getIndexFromURL(r, "round")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	summary, err := ws.DeletePreview(roundIdx)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"preview": summary, "phrase": services.CascadePhrase})
}

// DeleteRound godoc
// @Summary Каскадно удалить раунд и все последующие
// @Tags rounds
// @Description Требует подтверждения и фразы "CONFIRM REVERT". История отмены очищается.
// @Accept json
// @Produce json
// @Param round path int true "Индекс раунда"
// @Param body body services.Confirmation true "Подтверждение и фраза"
// @Success 200 {object} services.CascadeResult
// @Failure 409 {object} map[string]interface{} "Конфликт версий"
// @Failure 502 {object} map[string]interface{} "Удалено локально, но не сохранено"
// @Security BearerAuth
// @Router /rounds/{round} [delete]
func (h *RoundHandler) DeleteRound(w http.ResponseWriter, r *http.Request) {
	roundIdx, err := getIndexFromURL(r, "round")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	var input services.Confirmation
	if err := readJSON(w, r, &input); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	ws, ok := h.workspace(h.engine, w, r)
	if !ok {
		return
	}
	res, err := ws.CascadeDeleteRound(r.Context(), roundIdx, input)
	if err != nil {
		if res != nil && errors.Is(err, services.ErrChangesNotSaved) {
			h.logger.Warn("cascade delete kept locally", slog.Int("round_index", roundIdx), slog.Any("error", err))
			h.errorResponse(w, r, http.StatusBadGateway, jsonResponse{"error": err.Error(), "unsaved": true, "result": res})
			return
		}
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, jsonResponse{"result": res})
}
