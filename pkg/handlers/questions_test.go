package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quilldata/quill-engine/pkg/adapters/datasource"
	"github.com/quilldata/quill-engine/pkg/config"
	"github.com/quilldata/quill-engine/pkg/sqltemplate"
)

func newQuestionsServer(svc *mockQueryService, repo *mockQuestionRepo, env string) *http.ServeMux {
	cfg := &config.Config{Env: env}
	h := NewQuestionsHandler(repo, svc, cfg, zap.NewNop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func TestQuestionCreateRejectsUnsafeTemplate(t *testing.T) {
	mux := newQuestionsServer(&mockQueryService{}, newMockQuestionRepo(), "local")

	body, _ := json.Marshal(CreateQuestionRequest{
		Name:         "cleanup",
		ConnectionID: uuid.New().String(),
		SQLTemplate:  "DELETE FROM orders",
	})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/questions", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_sql")
}

func TestQuestionCreateAndGet(t *testing.T) {
	repo := newMockQuestionRepo()
	mux := newQuestionsServer(&mockQueryService{}, repo, "local")

	body, _ := json.Marshal(CreateQuestionRequest{
		Name:         "orders by region",
		ConnectionID: uuid.New().String(),
		SQLTemplate:  "SELECT * FROM orders WHERE 1=1 [[AND region = {{region}}]]",
	})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/questions", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/questions/"+created.Data.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "orders by region")
}

func TestQuestionExecute(t *testing.T) {
	svc := &mockQueryService{result: &datasource.QueryResult{
		Columns:  []string{"region", "total"},
		Rows:     []map[string]any{{"region": "west", "total": 42}},
		RowCount: 1,
	}}
	mux := newQuestionsServer(svc, newMockQuestionRepo(), "local")

	questionID := uuid.New()
	body, _ := json.Marshal(ExecuteQuestionRequest{
		Parameters: map[string]any{"region": "west"},
		Limit:      50,
	})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/questions/%s/execute", questionID), bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, questionID, svc.gotQuestionID)
	assert.Equal(t, 50, svc.gotLimit)
	assert.Contains(t, rec.Body.String(), `"row_count":1`)
}

func TestQuestionExecuteMissingParameter(t *testing.T) {
	svc := &mockQueryService{err: &sqltemplate.MissingParameterError{Name: "region"}}
	mux := newQuestionsServer(svc, newMockQuestionRepo(), "local")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/questions/%s/execute", uuid.New()), nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_parameter")
	assert.Contains(t, rec.Body.String(), "region")
}

func TestQuestionExecuteDriverDetailByEnvironment(t *testing.T) {
	execErr := datasource.NewExecutionError(fmt.Errorf(`relation "secret_table" does not exist`))

	local := httptest.NewRecorder()
	newQuestionsServer(&mockQueryService{err: execErr}, newMockQuestionRepo(), "local").
		ServeHTTP(local, httptest.NewRequest(http.MethodPost,
			fmt.Sprintf("/api/questions/%s/execute", uuid.New()), nil))
	assert.Equal(t, http.StatusInternalServerError, local.Code)
	assert.Contains(t, local.Body.String(), "secret_table")

	prod := httptest.NewRecorder()
	newQuestionsServer(&mockQueryService{err: execErr}, newMockQuestionRepo(), "production").
		ServeHTTP(prod, httptest.NewRequest(http.MethodPost,
			fmt.Sprintf("/api/questions/%s/execute", uuid.New()), nil))
	assert.Equal(t, http.StatusInternalServerError, prod.Code)
	assert.NotContains(t, prod.Body.String(), "secret_table")
}

func TestQuestionExecuteInvalidID(t *testing.T) {
	mux := newQuestionsServer(&mockQueryService{}, newMockQuestionRepo(), "local")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/questions/not-a-uuid/execute", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
