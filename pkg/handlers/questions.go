package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quilldata/quill-engine/pkg/apperrors"
	"github.com/quilldata/quill-engine/pkg/config"
	"github.com/quilldata/quill-engine/pkg/logging"
	"github.com/quilldata/quill-engine/pkg/models"
	"github.com/quilldata/quill-engine/pkg/repositories"
	"github.com/quilldata/quill-engine/pkg/services"
	"github.com/quilldata/quill-engine/pkg/sqlguard"
)

// CreateQuestionRequest for POST body.
type CreateQuestionRequest struct {
	Name         string                  `json:"name"`
	ConnectionID string                  `json:"connection_id"`
	SQLTemplate  string                  `json:"sql_template"`
	Parameters   []models.QueryParameter `json:"parameters,omitempty"`
	RowLimit     int                     `json:"row_limit,omitempty"`
}

// ExecuteQuestionRequest for POST execute body.
type ExecuteQuestionRequest struct {
	Parameters map[string]any `json:"parameters,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

// ExecuteQuestionResponse for query execution results.
type ExecuteQuestionResponse struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// QuestionsHandler handles question-related HTTP requests.
type QuestionsHandler struct {
	questions    repositories.QuestionRepository
	queryService services.QueryService
	cfg          *config.Config
	logger       *zap.Logger
}

// NewQuestionsHandler creates a new questions handler.
func NewQuestionsHandler(
	questions repositories.QuestionRepository,
	queryService services.QueryService,
	cfg *config.Config,
	logger *zap.Logger,
) *QuestionsHandler {
	return &QuestionsHandler{
		questions:    questions,
		queryService: queryService,
		cfg:          cfg,
		logger:       logger,
	}
}

// RegisterRoutes registers the questions handler's routes on the given mux.
func (h *QuestionsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/questions", h.Create)
	mux.HandleFunc("GET /api/questions/{id}", h.Get)
	mux.HandleFunc("DELETE /api/questions/{id}", h.Delete)
	mux.HandleFunc("POST /api/questions/{id}/execute", h.Execute)
}

// Create handles POST /api/questions. The template is gated at save time so
// an unsafe question never enters the catalog, and again at execution time.
func (h *QuestionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "missing_name", "Question name is required")
		return
	}
	if req.SQLTemplate == "" {
		h.writeError(w, http.StatusBadRequest, "missing_sql", "SQL template is required")
		return
	}

	connectionID, err := uuid.Parse(req.ConnectionID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_connection_id", "Invalid connection ID")
		return
	}

	if err := sqlguard.Validate(req.SQLTemplate); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_sql", err.Error())
		return
	}

	now := time.Now().UTC()
	question := &models.Question{
		ID:           uuid.New(),
		Name:         req.Name,
		ConnectionID: connectionID,
		SQLTemplate:  req.SQLTemplate,
		Parameters:   req.Parameters,
		RowLimit:     req.RowLimit,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.questions.Create(r.Context(), question); err != nil {
		h.logger.Error("Failed to create question",
			zap.String("name", req.Name),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "create_failed", "Failed to create question")
		return
	}

	response := ApiResponse{Success: true, Data: question}
	if err := WriteJSON(w, http.StatusCreated, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/questions/{id}
func (h *QuestionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	question, err := h.questions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Question not found")
			return
		}
		h.logger.Error("Failed to get question",
			zap.String("question_id", id.String()),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get question")
		return
	}

	response := ApiResponse{Success: true, Data: question}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/questions/{id}
func (h *QuestionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.questions.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Question not found")
			return
		}
		h.logger.Error("Failed to delete question",
			zap.String("question_id", id.String()),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete question")
		return
	}

	response := ApiResponse{Success: true, Message: "Question deleted"}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Execute handles POST /api/questions/{id}/execute
func (h *QuestionsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req ExecuteQuestionRequest
	// Body is optional for execute
	_ = json.NewDecoder(r.Body).Decode(&req)

	result, err := h.queryService.ExecuteQuestion(r.Context(), id, req.Parameters, req.Limit)
	if err != nil {
		// The authed surface includes driver detail outside production.
		writeQueryError(w, h.logger, err, h.cfg.IsLocal())
		return
	}

	data := ExecuteQuestionResponse{
		Columns:  result.Columns,
		Rows:     result.Rows,
		RowCount: result.RowCount,
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *QuestionsHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_id", "Invalid question ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *QuestionsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
