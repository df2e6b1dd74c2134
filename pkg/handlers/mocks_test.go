package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quilldata/quill-engine/pkg/adapters/datasource"
	"github.com/quilldata/quill-engine/pkg/apperrors"
	"github.com/quilldata/quill-engine/pkg/models"
)

// mockQueryService returns canned results and records the last call.
type mockQueryService struct {
	result *datasource.QueryResult
	err    error

	gotQuestionID   uuid.UUID
	gotDashboardID  uuid.UUID
	gotParams       map[string]any
	gotFilterValues map[string]any
	gotLimit        int
	testConnErr     error
}

func (m *mockQueryService) ExecuteQuestion(_ context.Context, questionID uuid.UUID, params map[string]any, limit int) (*datasource.QueryResult, error) {
	m.gotQuestionID = questionID
	m.gotParams = params
	m.gotLimit = limit
	return m.result, m.err
}

func (m *mockQueryService) ExecuteDashboardQuestion(_ context.Context, dashboardID, questionID uuid.UUID, params, filterValues map[string]any) (*datasource.QueryResult, error) {
	m.gotDashboardID = dashboardID
	m.gotQuestionID = questionID
	m.gotParams = params
	m.gotFilterValues = filterValues
	return m.result, m.err
}

func (m *mockQueryService) RunQuery(context.Context, datasource.ConnectionDescriptor, string, []any) (*datasource.QueryResult, error) {
	return m.result, m.err
}

func (m *mockQueryService) TestConnection(context.Context, uuid.UUID) error {
	return m.testConnErr
}

// mockQuestionRepo stores questions in memory.
type mockQuestionRepo struct {
	questions map[uuid.UUID]*models.Question
	createErr error
}

func newMockQuestionRepo() *mockQuestionRepo {
	return &mockQuestionRepo{questions: map[uuid.UUID]*models.Question{}}
}

func (m *mockQuestionRepo) Create(_ context.Context, q *models.Question) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.questions[q.ID] = q
	return nil
}

func (m *mockQuestionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Question, error) {
	q, ok := m.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", id, apperrors.ErrNotFound)
	}
	return q, nil
}

func (m *mockQuestionRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.questions[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.questions, id)
	return nil
}

// mockDashboardRepo stores dashboards and cards in memory.
type mockDashboardRepo struct {
	dashboards map[uuid.UUID]*models.Dashboard
	cards      map[uuid.UUID][]*models.DashboardCard
}

func newMockDashboardRepo() *mockDashboardRepo {
	return &mockDashboardRepo{
		dashboards: map[uuid.UUID]*models.Dashboard{},
		cards:      map[uuid.UUID][]*models.DashboardCard{},
	}
}

func (m *mockDashboardRepo) Create(_ context.Context, d *models.Dashboard) error {
	m.dashboards[d.ID] = d
	return nil
}

func (m *mockDashboardRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Dashboard, error) {
	d, ok := m.dashboards[id]
	if !ok {
		return nil, fmt.Errorf("dashboard %s: %w", id, apperrors.ErrNotFound)
	}
	return d, nil
}

func (m *mockDashboardRepo) AddCard(_ context.Context, card *models.DashboardCard) error {
	m.cards[card.DashboardID] = append(m.cards[card.DashboardID], card)
	return nil
}

func (m *mockDashboardRepo) GetCards(_ context.Context, dashboardID uuid.UUID) ([]*models.DashboardCard, error) {
	return m.cards[dashboardID], nil
}
