package repositories

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Dosada05/bracket-sync/models"
)

var (
	ErrVersionConflict   = errors.New("document version conflict")
	ErrRetriesExhausted  = errors.New("remote request failed")
	ErrKeyNotFound       = errors.New("key not found")
	ErrMalformedDocument = models.ErrMalformedDocument
	ErrMalformedResponse = errors.New("malformed response from document store")
	ErrStoreNotReady     = errors.New("local storage is not initialized")
)

// StatusError is a non-2xx answer from the document store.
type StatusError struct {
	Status  int
	Message string
	Detail  string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (HTTP %d: %s)", e.Message, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

func newStatusError(status int, detail string) *StatusError {
	return &StatusError{Status: status, Message: statusMessage(status), Detail: detail}
}

func statusMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "authentication failed, check the access token"
	case http.StatusForbidden:
		return "access forbidden, the token may have expired or lacks permissions"
	case http.StatusNotFound:
		return "repository or file not found"
	case http.StatusConflict:
		return "conflict detected, the document was modified, reload it"
	case http.StatusUnprocessableEntity:
		return "invalid request, check the data format"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	}
	if status >= 500 {
		return "document store server error"
	}
	return fmt.Sprintf("document store error (%d)", status)
}
