package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quilldata/quill-engine/pkg/apperrors"
	"github.com/quilldata/quill-engine/pkg/auth"
	"github.com/quilldata/quill-engine/pkg/config"
	"github.com/quilldata/quill-engine/pkg/logging"
	"github.com/quilldata/quill-engine/pkg/models"
	"github.com/quilldata/quill-engine/pkg/repositories"
	"github.com/quilldata/quill-engine/pkg/services"
)

// CreateDashboardRequest for POST body.
type CreateDashboardRequest struct {
	Name    string                    `json:"name"`
	Public  bool                      `json:"public"`
	Filters []models.FilterDefinition `json:"filters,omitempty"`
}

// AddCardRequest for POST card body.
type AddCardRequest struct {
	QuestionID    string                `json:"question_id"`
	ClickBehavior *models.ClickBehavior `json:"click_behavior,omitempty"`
	Position      int                   `json:"position"`
}

// ShareResponse carries a freshly issued share token.
type ShareResponse struct {
	Token string `json:"token"`
}

// PublicExecuteRequest is the body a public viewer sends: card parameters
// (drill-down values) plus dashboard filter values.
type PublicExecuteRequest struct {
	Token        string         `json:"token"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	FilterValues map[string]any `json:"filter_values,omitempty"`
}

// DashboardsHandler handles dashboard HTTP requests, including the public
// (unauthenticated) execution surface gated by share tokens.
type DashboardsHandler struct {
	dashboards   repositories.DashboardRepository
	queryService services.QueryService
	shareTokens  *auth.ShareTokenService
	cfg          *config.Config
	logger       *zap.Logger
}

// NewDashboardsHandler creates a new dashboards handler.
func NewDashboardsHandler(
	dashboards repositories.DashboardRepository,
	queryService services.QueryService,
	shareTokens *auth.ShareTokenService,
	cfg *config.Config,
	logger *zap.Logger,
) *DashboardsHandler {
	return &DashboardsHandler{
		dashboards:   dashboards,
		queryService: queryService,
		shareTokens:  shareTokens,
		cfg:          cfg,
		logger:       logger,
	}
}

// RegisterRoutes registers the dashboards handler's routes on the given mux.
func (h *DashboardsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/dashboards", h.Create)
	mux.HandleFunc("GET /api/dashboards/{id}", h.Get)
	mux.HandleFunc("POST /api/dashboards/{id}/cards", h.AddCard)
	mux.HandleFunc("POST /api/dashboards/{id}/share", h.Share)

	// Public surface: no auth, share token in the body, driver detail
	// always suppressed.
	mux.HandleFunc("POST /api/public/dashboards/{id}/questions/{qid}/execute", h.PublicExecute)
}

// Create handles POST /api/dashboards
func (h *DashboardsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDashboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "missing_name", "Dashboard name is required")
		return
	}

	now := time.Now().UTC()
	dashboard := &models.Dashboard{
		ID:        uuid.New(),
		Name:      req.Name,
		Public:    req.Public,
		Filters:   req.Filters,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.dashboards.Create(r.Context(), dashboard); err != nil {
		h.logger.Error("Failed to create dashboard",
			zap.String("name", req.Name),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "create_failed", "Failed to create dashboard")
		return
	}

	response := ApiResponse{Success: true, Data: dashboard}
	if err := WriteJSON(w, http.StatusCreated, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/dashboards/{id}
func (h *DashboardsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	dashboard, err := h.dashboards.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Dashboard not found")
			return
		}
		h.logger.Error("Failed to get dashboard",
			zap.String("dashboard_id", id.String()),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get dashboard")
		return
	}

	cards, err := h.dashboards.GetCards(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get dashboard cards",
			zap.String("dashboard_id", id.String()),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get dashboard")
		return
	}

	data := struct {
		*models.Dashboard
		Cards []*models.DashboardCard `json:"cards"`
	}{dashboard, cards}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// AddCard handles POST /api/dashboards/{id}/cards
func (h *DashboardsHandler) AddCard(w http.ResponseWriter, r *http.Request) {
	dashboardID, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	var req AddCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_question_id", "Invalid question ID")
		return
	}

	card := &models.DashboardCard{
		ID:            uuid.New(),
		DashboardID:   dashboardID,
		QuestionID:    questionID,
		ClickBehavior: req.ClickBehavior,
		Position:      req.Position,
	}

	if err := h.dashboards.AddCard(r.Context(), card); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Dashboard not found")
			return
		}
		h.logger.Error("Failed to add dashboard card",
			zap.String("dashboard_id", dashboardID.String()),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "create_failed", "Failed to add card")
		return
	}

	response := ApiResponse{Success: true, Data: card}
	if err := WriteJSON(w, http.StatusCreated, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Share handles POST /api/dashboards/{id}/share. It issues a share token
// for a public dashboard; a private dashboard cannot be shared.
func (h *DashboardsHandler) Share(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	dashboard, err := h.dashboards.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Dashboard not found")
			return
		}
		h.logger.Error("Failed to get dashboard",
			zap.String("dashboard_id", id.String()),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to share dashboard")
		return
	}
	if !dashboard.Public {
		h.writeError(w, http.StatusForbidden, "dashboard_not_public", "Dashboard is not public")
		return
	}

	token, err := h.shareTokens.Issue(id)
	if err != nil {
		h.logger.Error("Failed to issue share token",
			zap.String("dashboard_id", id.String()),
			zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to share dashboard")
		return
	}

	response := ApiResponse{Success: true, Data: ShareResponse{Token: token}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// PublicExecute handles POST /api/public/dashboards/{id}/questions/{qid}/execute
//
// The share token must verify and must name the dashboard in the path; the
// dashboard must be public and the question reachable from it. Those checks
// happen inside the service; the token gate happens here.
func (h *DashboardsHandler) PublicExecute(w http.ResponseWriter, r *http.Request) {
	dashboardID, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	questionID, ok := h.parseID(w, r, "qid")
	if !ok {
		return
	}

	var req PublicExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	tokenDashboard, err := h.shareTokens.Verify(req.Token)
	if err != nil || tokenDashboard != dashboardID {
		// Invalid, expired, or scoped to another dashboard: same answer.
		h.writeError(w, http.StatusUnauthorized, "invalid_token", "Invalid share token")
		return
	}

	result, err := h.queryService.ExecuteDashboardQuestion(r.Context(), dashboardID, questionID, req.Parameters, req.FilterValues)
	if err != nil {
		// Never include driver detail on the public surface.
		writeQueryError(w, h.logger, err, false)
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

func (h *DashboardsHandler) parseID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(key))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_id", "Invalid ID in path")
		return uuid.Nil, false
	}
	return id, true
}

func (h *DashboardsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
