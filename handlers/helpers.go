package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/bracket-sync/brackets"
	"github.com/Dosada05/bracket-sync/middleware"
	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/repositories"
	"github.com/Dosada05/bracket-sync/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Паника, т.к. это ошибка программиста (передан не указатель)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// responder пишет ответы и ошибки; встраивается во все обработчики.
type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger.With(slog.String("component", "http"))}
}

func (h responder) ok(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := writeJSON(w, status, data, nil); err != nil {
		h.logger.Error("failed to write response", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
}

func (h responder) errorResponse(w http.ResponseWriter, r *http.Request, status int, body jsonResponse) {
	if err := writeJSON(w, status, body, nil); err != nil {
		h.logger.Error("failed to write error response", slog.String("path", r.URL.Path), slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (h responder) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	message := "the server encountered a problem and could not process your request"
	h.errorResponse(w, r, http.StatusInternalServerError, jsonResponse{"error": message})
}

func (h responder) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	h.errorResponse(w, r, http.StatusBadRequest, jsonResponse{"error": err.Error()})
}

func (h responder) unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	h.errorResponse(w, r, http.StatusUnauthorized, jsonResponse{"error": message})
}

var unprocessable = []error{
	services.ErrValidationFailed,
	services.ErrRoundLocked,
	services.ErrRoundNotLocked,
	services.ErrNotFinalRound,
	services.ErrConfirmationRequired,
	services.ErrConfirmationMismatch,
	services.ErrInvalidLocator,
	services.ErrInvalidScheduleField,
	services.ErrSwapNotAllowed,
	services.ErrSwitchModeInactive,
	services.ErrSwapSelectionFull,
	services.ErrSwapSelectionNotReady,
	models.ErrInvalidScore,
	models.ErrScoreOutOfRange,
	brackets.ErrRoundNotReady,
	brackets.ErrInvalidMatchCount,
	brackets.ErrInvalidSlot,
	brackets.ErrUnknownTeam,
	brackets.ErrTeamAlreadyUsed,
	brackets.ErrIncompletePairing,
	brackets.ErrSelfPairing,
	brackets.ErrDuplicateTeam,
	brackets.ErrWrongPairingState,
	brackets.ErrPhraseMismatch,
	brackets.ErrBestLoserExists,
	brackets.ErrBestLoserNotAllowed,
	brackets.ErrInvalidLoser,
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы
func (h responder) mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Конфликт версий: клиент должен перезагрузить документ
	case errors.Is(err, services.ErrConflict):
		h.errorResponse(w, r, http.StatusConflict, jsonResponse{"error": err.Error(), "reload": true})
	case errors.Is(err, services.ErrSaveInProgress):
		h.errorResponse(w, r, http.StatusConflict, jsonResponse{"error": err.Error()})

	// Изменение применено локально, но не сохранено
	case errors.Is(err, services.ErrChangesNotSaved):
		h.logger.Warn("change kept locally after failed save", slog.String("path", r.URL.Path), slog.Any("error", err))
		h.errorResponse(w, r, http.StatusBadGateway, jsonResponse{"error": err.Error(), "unsaved": true})
	case errors.Is(err, repositories.ErrRetriesExhausted),
		errors.Is(err, models.ErrMalformedDocument):
		h.logger.Warn("document store request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		h.errorResponse(w, r, http.StatusBadGateway, jsonResponse{"error": err.Error()})

	// Ошибки авторизации/доступа
	case errors.Is(err, services.ErrSessionTampered):
		h.errorResponse(w, r, http.StatusUnauthorized, jsonResponse{"error": err.Error(), "logout": true})
	case errors.Is(err, services.ErrNotAuthenticated),
		errors.Is(err, services.ErrInvalidCredential):
		h.unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrChallengeFailed):
		h.errorResponse(w, r, http.StatusForbidden, jsonResponse{"error": err.Error()})

	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUnknownGrade):
		h.errorResponse(w, r, http.StatusNotFound, jsonResponse{"error": err.Error()})

	// Невалидные данные / бизнес-правила
	case isAny(err, unprocessable...):
		h.errorResponse(w, r, http.StatusUnprocessableEntity, jsonResponse{"error": err.Error()})
	case errors.Is(err, models.ErrIndexOutOfRange),
		errors.Is(err, services.ErrNoDocument):
		h.badRequestResponse(w, r, err)

	default:
		h.serverErrorResponse(w, r, err)
	}
}

// workspace returns the caller's workspace; the route must run behind middleware.Authenticate.
func (h responder) workspace(engine *services.Engine, w http.ResponseWriter, r *http.Request) (*services.Workspace, bool) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		h.unauthorizedResponse(w, r, "authentication required")
		return nil, false
	}
	return engine.Workspace(session), true
}

func getIndexFromURL(r *http.Request, paramName string) (int, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, fmt.Errorf("missing %s in URL path", paramName)
	}
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %q", paramName, raw)
	}
	if idx < 0 {
		return 0, fmt.Errorf("%s must not be negative", paramName)
	}
	return idx, nil
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

// current writes the workspace view merged with extra top-level fields.
func (h responder) current(w http.ResponseWriter, r *http.Request, ws *services.Workspace, extra jsonResponse) {
	view, err := ws.Current()
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}
	body := jsonResponse{"competition": view}
	for k, v := range extra {
		body[k] = v
	}
	h.ok(w, r, http.StatusOK, body)
}
