package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/quilldata/quill-engine/pkg/adapters/datasource"
	"github.com/quilldata/quill-engine/pkg/apperrors"
	"github.com/quilldata/quill-engine/pkg/logging"
	"github.com/quilldata/quill-engine/pkg/sqlguard"
	"github.com/quilldata/quill-engine/pkg/sqltemplate"
)

// writeQueryError maps a query pipeline error onto the HTTP surface.
//
// Validation failures (bad SQL, missing or unsafe parameters) are caller
// mistakes and return 400 with the precise reason. Access failures return
// 403/404 without revealing what exists. Execution failures return 500;
// driver detail is included only when includeDetail is set, because driver
// messages can leak schema names and connection internals to public viewers.
func writeQueryError(w http.ResponseWriter, logger *zap.Logger, err error, includeDetail bool) {
	var (
		missingErr *sqltemplate.MissingParameterError
		unsafeErr  *sqlguard.UnsafeParameterError
		execErr    *datasource.ExecutionError
	)

	var status int
	var code, message string

	switch {
	case errors.Is(err, sqlguard.ErrSQLTooLong),
		errors.Is(err, sqlguard.ErrMultipleStatements),
		errors.Is(err, sqlguard.ErrNotReadOnly):
		status, code, message = http.StatusBadRequest, "invalid_sql", err.Error()

	case errors.As(err, &missingErr):
		status, code, message = http.StatusBadRequest, "missing_parameter", missingErr.Error()

	case errors.As(err, &unsafeErr):
		status, code, message = http.StatusBadRequest, "unsafe_parameter", unsafeErr.Error()

	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "Resource not found"

	case errors.Is(err, apperrors.ErrDashboardNotPublic):
		status, code, message = http.StatusForbidden, "dashboard_not_public", "Dashboard is not public"

	case errors.Is(err, apperrors.ErrQuestionNotAccessible):
		status, code, message = http.StatusForbidden, "question_not_accessible", "Question is not accessible from this dashboard"

	case errors.Is(err, apperrors.ErrCredentialsKeyMismatch):
		status, code, message = http.StatusInternalServerError, "credentials_unavailable", "Stored credentials could not be decrypted"

	case errors.As(err, &execErr):
		status, code = http.StatusInternalServerError, "execution_failed"
		message = "Query execution failed"
		if includeDetail {
			message = logging.SanitizeError(execErr)
		}

	default:
		status, code, message = http.StatusInternalServerError, "internal_error", "Internal server error"
	}

	if status == http.StatusInternalServerError {
		logger.Error("Query request failed", zap.String("error", logging.SanitizeError(err)))
	}
	if werr := ErrorResponse(w, status, code, message); werr != nil {
		logger.Error("Failed to write error response", zap.Error(werr))
	}
}
