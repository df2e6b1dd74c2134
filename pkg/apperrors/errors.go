package apperrors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrDashboardNotPublic     = errors.New("dashboard is not public")
	ErrQuestionNotAccessible  = errors.New("question is not accessible from this dashboard")
	ErrCredentialsKeyMismatch = errors.New("connection credentials were encrypted with a different key")
)
