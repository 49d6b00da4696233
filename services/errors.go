package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации
	ErrValidationFailed      = errors.New("validation failed")
	ErrRoundLocked           = errors.New("round is locked")
	ErrRoundNotLocked        = errors.New("round is not locked")
	ErrNotFinalRound         = errors.New("only the final round can be unlocked")
	ErrConfirmationRequired  = errors.New("confirmation required")
	ErrConfirmationMismatch  = errors.New("confirmation phrase does not match")
	ErrInvalidLocator        = errors.New("invalid team locator")
	ErrInvalidScheduleField  = errors.New("schedule field must be date, time or location")
	ErrSwapNotAllowed        = errors.New("cannot swap teams with recorded scores or completed matches")
	ErrSwitchModeInactive    = errors.New("team switch mode is not active for this round")
	ErrSwapSelectionFull     = errors.New("only two teams can be unlocked at a time")
	ErrSwapSelectionNotReady = errors.New("exactly two teams must be unlocked")
	ErrNoDocument            = errors.New("no competition document loaded")
	ErrUnknownGrade          = errors.New("unknown grade")

	// Ошибки аутентификации и авторизации
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredential  = errors.New("access token was rejected by the document store")
	ErrChallengeFailed    = errors.New("structural challenge failed")
	ErrSessionTampered    = errors.New("session integrity check failed")
	ErrForbiddenOperation = errors.New("operation not allowed for the current role")

	// Синхронизация
	ErrConflict        = errors.New("document was changed by someone else, reload it before editing")
	ErrSaveInProgress  = errors.New("a save is already in progress")
	ErrChangesNotSaved = errors.New("changes were applied locally but could not be saved")
)
