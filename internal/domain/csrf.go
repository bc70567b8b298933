package domain

import (
	"errors"
	"time"
)

var ErrCSRFValidation = errors.New("CSRF validation failed")

// CSRFToken is a one-time token bound to a session id.
type CSRFToken struct {
	Token     string
	SessionID string
	CreatedAt time.Time
}
