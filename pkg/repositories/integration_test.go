//go:build integration

package repositories

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldata/quill-engine/pkg/apperrors"
	"github.com/quilldata/quill-engine/pkg/models"
	"github.com/quilldata/quill-engine/pkg/testhelpers"
)

// repoTestContext holds all repositories wired to the shared test database.
type repoTestContext struct {
	connections ConnectionRepository
	questions   QuestionRepository
	dashboards  DashboardRepository
}

func setupRepoTest(t *testing.T) *repoTestContext {
	t.Helper()
	metaDB := testhelpers.GetMetadataDB(t)
	return &repoTestContext{
		connections: NewConnectionRepository(metaDB.DB),
		questions:   NewQuestionRepository(metaDB.DB),
		dashboards:  NewDashboardRepository(metaDB.DB),
	}
}

func (tc *repoTestContext) createConnection(t *testing.T, ctx context.Context) *models.Connection {
	t.Helper()
	conn := &models.Connection{
		Name:     fmt.Sprintf("warehouse-%s", uuid.New()),
		Dialect:  models.DialectPostgres,
		Host:     "db.example.com",
		Port:     5432,
		User:     "reporting",
		Database: "sales",
	}
	require.NoError(t, tc.connections.Create(ctx, conn, "ciphertext"))
	return conn
}

func TestConnectionRepository(t *testing.T) {
	tc := setupRepoTest(t)
	ctx := context.Background()

	conn := tc.createConnection(t, ctx)
	require.NotEqual(t, uuid.Nil, conn.ID)

	got, encrypted, err := tc.connections.GetByID(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, conn.Name, got.Name)
	assert.Equal(t, models.DialectPostgres, got.Dialect)
	assert.Equal(t, "ciphertext", encrypted)

	// Duplicate name maps the unique violation onto ErrConflict.
	dup := &models.Connection{
		Name: conn.Name, Dialect: models.DialectMySQL,
		Host: "other", Port: 3306, User: "u", Database: "d",
	}
	err = tc.connections.Create(ctx, dup, "ciphertext")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, tc.connections.Delete(ctx, conn.ID))
	_, _, err = tc.connections.GetByID(ctx, conn.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQuestionRepositoryRoundTrip(t *testing.T) {
	tc := setupRepoTest(t)
	ctx := context.Background()

	conn := tc.createConnection(t, ctx)
	question := &models.Question{
		Name:         "orders by region",
		ConnectionID: conn.ID,
		SQLTemplate:  "SELECT * FROM orders WHERE 1=1 [[AND region = {{region}}]]",
		Parameters: []models.QueryParameter{
			{Name: "region", Type: "string", DisplayName: "Region"},
		},
		RowLimit: 500,
	}
	require.NoError(t, tc.questions.Create(ctx, question))

	got, err := tc.questions.GetByID(ctx, question.ID)
	require.NoError(t, err)
	assert.Equal(t, question.SQLTemplate, got.SQLTemplate)
	assert.Equal(t, 500, got.RowLimit)
	require.Len(t, got.Parameters, 1)
	assert.Equal(t, "region", got.Parameters[0].Name)

	require.NoError(t, tc.questions.Delete(ctx, question.ID))
	_, err = tc.questions.GetByID(ctx, question.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDashboardRepositoryCardsSurviveJSON(t *testing.T) {
	tc := setupRepoTest(t)
	ctx := context.Background()

	conn := tc.createConnection(t, ctx)
	question := &models.Question{
		Name:         "order detail",
		ConnectionID: conn.ID,
		SQLTemplate:  "SELECT * FROM orders WHERE id = {{order_id}}",
	}
	require.NoError(t, tc.questions.Create(ctx, question))

	dashboard := &models.Dashboard{
		Name:   "sales overview",
		Public: true,
		Filters: []models.FilterDefinition{
			{Name: "region", DisplayName: "Region", Column: "region", DataType: "string", Operator: "eq"},
		},
	}
	require.NoError(t, tc.dashboards.Create(ctx, dashboard))

	card := &models.DashboardCard{
		DashboardID: dashboard.ID,
		QuestionID:  question.ID,
		ClickBehavior: &models.ClickBehavior{
			Enabled:  true,
			Action:   models.ClickActionLinkToQuestion,
			TargetID: question.ID,
			ParameterMappings: []models.ParameterMapping{
				{SourceColumn: "id", TargetParam: "order_id"},
			},
		},
		Position: 1,
	}
	require.NoError(t, tc.dashboards.AddCard(ctx, card))

	gotDashboard, err := tc.dashboards.GetByID(ctx, dashboard.ID)
	require.NoError(t, err)
	assert.True(t, gotDashboard.Public)
	require.Len(t, gotDashboard.Filters, 1)
	assert.Equal(t, "eq", gotDashboard.Filters[0].Operator)

	cards, err := tc.dashboards.GetCards(ctx, dashboard.ID)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.NotNil(t, cards[0].ClickBehavior)
	assert.Equal(t, models.ClickActionLinkToQuestion, cards[0].ClickBehavior.Action)
	assert.Equal(t, question.ID, cards[0].ClickBehavior.TargetID)
	require.Len(t, cards[0].ClickBehavior.ParameterMappings, 1)
	assert.Equal(t, "order_id", cards[0].ClickBehavior.ParameterMappings[0].TargetParam)
}
