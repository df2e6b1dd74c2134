package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quilldata/quill-engine/pkg/adapters/datasource"
	"github.com/quilldata/quill-engine/pkg/apperrors"
	"github.com/quilldata/quill-engine/pkg/auth"
	"github.com/quilldata/quill-engine/pkg/config"
	"github.com/quilldata/quill-engine/pkg/models"
)

type dashboardsTestEnv struct {
	mux         *http.ServeMux
	repo        *mockDashboardRepo
	svc         *mockQueryService
	shareTokens *auth.ShareTokenService
}

func newDashboardsServer(t *testing.T) *dashboardsTestEnv {
	t.Helper()
	env := &dashboardsTestEnv{
		repo:        newMockDashboardRepo(),
		svc:         &mockQueryService{result: &datasource.QueryResult{Columns: []string{"n"}, RowCount: 1}},
		shareTokens: auth.NewShareTokenService("handler-test-secret", time.Hour),
	}
	h := NewDashboardsHandler(env.repo, env.svc, env.shareTokens, &config.Config{Env: "production"}, zap.NewNop())
	env.mux = http.NewServeMux()
	h.RegisterRoutes(env.mux)
	return env
}

func TestDashboardShare(t *testing.T) {
	env := newDashboardsServer(t)

	public := &models.Dashboard{ID: uuid.New(), Name: "sales", Public: true}
	private := &models.Dashboard{ID: uuid.New(), Name: "internal", Public: false}
	env.repo.dashboards[public.ID] = public
	env.repo.dashboards[private.ID] = private

	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/dashboards/%s/share", public.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data ShareResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	got, err := env.shareTokens.Verify(resp.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, public.ID, got)

	// A private dashboard cannot be shared.
	rec = httptest.NewRecorder()
	env.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/dashboards/%s/share", private.ID), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPublicExecute(t *testing.T) {
	env := newDashboardsServer(t)

	dashboardID := uuid.New()
	questionID := uuid.New()
	token, err := env.shareTokens.Issue(dashboardID)
	require.NoError(t, err)

	body, _ := json.Marshal(PublicExecuteRequest{
		Token:        token,
		Parameters:   map[string]any{"order_id": 7},
		FilterValues: map[string]any{"region": "west"},
	})
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/public/dashboards/%s/questions/%s/execute", dashboardID, questionID),
		bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dashboardID, env.svc.gotDashboardID)
	assert.Equal(t, questionID, env.svc.gotQuestionID)
	assert.Equal(t, map[string]any{"region": "west"}, env.svc.gotFilterValues)
}

func TestPublicExecuteTokenGate(t *testing.T) {
	env := newDashboardsServer(t)

	dashboardID := uuid.New()
	otherToken, err := env.shareTokens.Issue(uuid.New())
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage token", "not-a-token"},
		{"token for another dashboard", otherToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(PublicExecuteRequest{Token: tt.token})
			rec := httptest.NewRecorder()
			env.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
				fmt.Sprintf("/api/public/dashboards/%s/questions/%s/execute", dashboardID, uuid.New()),
				bytes.NewReader(body)))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestPublicExecuteAccessErrors(t *testing.T) {
	env := newDashboardsServer(t)

	dashboardID := uuid.New()
	token, err := env.shareTokens.Issue(dashboardID)
	require.NoError(t, err)

	tests := []struct {
		name       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"dashboard went private", apperrors.ErrDashboardNotPublic, http.StatusForbidden, "dashboard_not_public"},
		{"question not reachable", apperrors.ErrQuestionNotAccessible, http.StatusForbidden, "question_not_accessible"},
		{"question deleted", apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.svc.err = tt.svcErr
			body, _ := json.Marshal(PublicExecuteRequest{Token: token})
			rec := httptest.NewRecorder()
			env.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
				fmt.Sprintf("/api/public/dashboards/%s/questions/%s/execute", dashboardID, uuid.New()),
				bytes.NewReader(body)))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantCode)
		})
	}
}

func TestPublicExecuteSuppressesDriverDetail(t *testing.T) {
	env := newDashboardsServer(t)
	env.svc.err = datasource.NewExecutionError(fmt.Errorf(`relation "secret_table" does not exist`))

	dashboardID := uuid.New()
	token, err := env.shareTokens.Issue(dashboardID)
	require.NoError(t, err)

	body, _ := json.Marshal(PublicExecuteRequest{Token: token})
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/public/dashboards/%s/questions/%s/execute", dashboardID, uuid.New()),
		bytes.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret_table")
}

func TestDashboardCreateAndAddCard(t *testing.T) {
	env := newDashboardsServer(t)

	body, _ := json.Marshal(CreateDashboardRequest{
		Name:   "sales overview",
		Public: true,
		Filters: []models.FilterDefinition{
			{Name: "region", Column: "region", DataType: "string", Operator: "eq"},
		},
	})
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dashboards", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	dashboardID := uuid.MustParse(created.Data.ID)

	cardBody, _ := json.Marshal(AddCardRequest{
		QuestionID: uuid.New().String(),
		ClickBehavior: &models.ClickBehavior{
			Enabled:  true,
			Action:   models.ClickActionLinkToQuestion,
			TargetID: uuid.New(),
		},
	})
	rec = httptest.NewRecorder()
	env.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/dashboards/%s/cards", dashboardID), bytes.NewReader(cardBody)))
	require.Equal(t, http.StatusCreated, rec.Code)

	cards, err := env.repo.GetCards(nil, dashboardID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.True(t, cards[0].ClickBehavior.Enabled)
}
