package models

import "errors"

var (
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrInvalidScore      = errors.New("score is not a valid number")
	ErrScoreOutOfRange   = errors.New("score is out of range")
	ErrMalformedDocument = errors.New("malformed competition document")
)
