package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quilldata/quill-engine/pkg/apperrors"
	"github.com/quilldata/quill-engine/pkg/crypto"
	"github.com/quilldata/quill-engine/pkg/logging"
	"github.com/quilldata/quill-engine/pkg/models"
	"github.com/quilldata/quill-engine/pkg/repositories"
	"github.com/quilldata/quill-engine/pkg/services"
)

// CreateConnectionRequest for POST body. The password travels in the request
// only; it is encrypted before storage and never echoed back.
type CreateConnectionRequest struct {
	Name     string `json:"name"`
	Dialect  string `json:"dialect"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// ConnectionResponse mirrors models.Connection without credential fields.
type ConnectionResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Dialect   string `json:"dialect"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Database  string `json:"database"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ListConnectionsResponse wraps array for frontend compatibility.
type ListConnectionsResponse struct {
	Connections []ConnectionResponse `json:"connections"`
}

// TestConnectionResponse for connection test result.
type TestConnectionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ConnectionsHandler handles connection registry HTTP requests.
type ConnectionsHandler struct {
	connections  repositories.ConnectionRepository
	queryService services.QueryService
	encryptor    *crypto.CredentialEncryptor
	logger       *zap.Logger
}

// NewConnectionsHandler creates a new connections handler.
func NewConnectionsHandler(
	connections repositories.ConnectionRepository,
	queryService services.QueryService,
	encryptor *crypto.CredentialEncryptor,
	logger *zap.Logger,
) *ConnectionsHandler {
	return &ConnectionsHandler{
		connections:  connections,
		queryService: queryService,
		encryptor:    encryptor,
		logger:       logger,
	}
}

// RegisterRoutes registers the connections handler's routes on the given mux.
func (h *ConnectionsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/connections", h.List)
	mux.HandleFunc("POST /api/connections", h.Create)
	mux.HandleFunc("DELETE /api/connections/{id}", h.Delete)
	mux.HandleFunc("POST /api/connections/{id}/test", h.Test)
}

// Create handles POST /api/connections
func (h *ConnectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if req.Name == "" || req.Host == "" || req.User == "" || req.Database == "" {
		h.writeError(w, http.StatusBadRequest, "missing_fields", "name, host, user and database are required")
		return
	}

	dialect, err := models.ParseDialect(req.Dialect)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_dialect", err.Error())
		return
	}

	encrypted, err := h.encryptor.Encrypt(req.Password)
	if err != nil {
		h.logger.Error("Failed to encrypt connection password", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "encryption_failed", "Failed to store credentials")
		return
	}

	now := time.Now().UTC()
	conn := &models.Connection{
		ID:        uuid.New(),
		Name:      req.Name,
		Dialect:   dialect,
		Host:      req.Host,
		Port:      req.Port,
		User:      req.User,
		Database:  req.Database,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.connections.Create(r.Context(), conn, encrypted); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			h.writeError(w, http.StatusConflict, "conflict", "A connection with this name already exists")
			return
		}
		h.logger.Error("Failed to create connection",
			zap.String("name", req.Name),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "create_failed", "Failed to create connection")
		return
	}

	response := ApiResponse{Success: true, Data: toConnectionResponse(conn)}
	if err := WriteJSON(w, http.StatusCreated, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/connections
func (h *ConnectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	conns, err := h.connections.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list connections", zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list connections")
		return
	}

	data := ListConnectionsResponse{
		Connections: make([]ConnectionResponse, len(conns)),
	}
	for i, conn := range conns {
		data.Connections[i] = toConnectionResponse(conn)
	}

	response := ApiResponse{Success: true, Data: data}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/connections/{id}
func (h *ConnectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.connections.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Connection not found")
			return
		}
		h.logger.Error("Failed to delete connection",
			zap.String("connection_id", id.String()),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete connection")
		return
	}

	response := ApiResponse{Success: true, Message: "Connection deleted"}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Test handles POST /api/connections/{id}/test
func (h *ConnectionsHandler) Test(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.queryService.TestConnection(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "Connection not found")
			return
		}
		// A failed test is a valid result, not a server error.
		data := TestConnectionResponse{Success: false, Message: logging.SanitizeError(err)}
		if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	data := TestConnectionResponse{Success: true, Message: "Connection successful"}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ConnectionsHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_id", "Invalid connection ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *ConnectionsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func toConnectionResponse(conn *models.Connection) ConnectionResponse {
	return ConnectionResponse{
		ID:        conn.ID.String(),
		Name:      conn.Name,
		Dialect:   conn.Dialect.String(),
		Host:      conn.Host,
		Port:      conn.Port,
		User:      conn.User,
		Database:  conn.Database,
		CreatedAt: conn.CreatedAt.Format(time.RFC3339),
		UpdatedAt: conn.UpdatedAt.Format(time.RFC3339),
	}
}
