package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quilldata/quill-engine/pkg/adapters/datasource"
	"github.com/quilldata/quill-engine/pkg/apperrors"
	"github.com/quilldata/quill-engine/pkg/crypto"
	"github.com/quilldata/quill-engine/pkg/logging"
	"github.com/quilldata/quill-engine/pkg/models"
	"github.com/quilldata/quill-engine/pkg/repositories"
	"github.com/quilldata/quill-engine/pkg/sqlguard"
	"github.com/quilldata/quill-engine/pkg/sqltemplate"
)

// QueryService renders a question's SQL template, enforces safety
// constraints, and runs the result against the question's connection.
type QueryService interface {
	// ExecuteQuestion runs a saved question with the supplied parameters.
	ExecuteQuestion(ctx context.Context, questionID uuid.UUID, params map[string]any, requestedLimit int) (*datasource.QueryResult, error)

	// ExecuteDashboardQuestion runs a question in a public dashboard
	// context: the dashboard must be public, the question must be
	// accessible from it, and dashboard-level filter values are folded
	// into the rendered query.
	ExecuteDashboardQuestion(ctx context.Context, dashboardID, questionID uuid.UUID, params, filterValues map[string]any) (*datasource.QueryResult, error)

	// RunQuery executes one already-rendered statement against a
	// descriptor, guaranteeing the handle is released on all paths.
	RunQuery(ctx context.Context, desc datasource.ConnectionDescriptor, finalSQL string, values []any) (*datasource.QueryResult, error)

	// TestConnection verifies a registered connection is reachable.
	TestConnection(ctx context.Context, connectionID uuid.UUID) error
}

type queryService struct {
	questions   repositories.QuestionRepository
	connections repositories.ConnectionRepository
	dashboards  repositories.DashboardRepository
	access      AccessService
	encryptor   *crypto.CredentialEncryptor
	timeout     time.Duration
	logger      *zap.Logger

	// connect is datasource.Connect, swappable in tests.
	connect func(ctx context.Context, desc datasource.ConnectionDescriptor) (datasource.Connector, error)
}

// NewQueryService creates a query service with dependencies.
func NewQueryService(
	questions repositories.QuestionRepository,
	connections repositories.ConnectionRepository,
	dashboards repositories.DashboardRepository,
	access AccessService,
	encryptor *crypto.CredentialEncryptor,
	timeout time.Duration,
	logger *zap.Logger,
) QueryService {
	return &queryService{
		questions:   questions,
		connections: connections,
		dashboards:  dashboards,
		access:      access,
		encryptor:   encryptor,
		timeout:     timeout,
		logger:      logger,
		connect:     datasource.Connect,
	}
}

func (s *queryService) ExecuteQuestion(ctx context.Context, questionID uuid.UUID, params map[string]any, requestedLimit int) (*datasource.QueryResult, error) {
	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, q, q.SQLTemplate, params, requestedLimit)
}

func (s *queryService) ExecuteDashboardQuestion(ctx context.Context, dashboardID, questionID uuid.UUID, params, filterValues map[string]any) (*datasource.QueryResult, error) {
	d, err := s.dashboards.GetByID(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	if !d.Public {
		return nil, apperrors.ErrDashboardNotPublic
	}

	// The accessibility check runs before the safety gate: a question the
	// author never exposed is a 403, regardless of what its SQL looks like.
	accessible, err := s.access.IsQuestionAccessible(ctx, dashboardID, questionID)
	if err != nil {
		return nil, err
	}
	if !accessible {
		return nil, apperrors.ErrQuestionNotAccessible
	}

	q, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	template := q.SQLTemplate
	merged := params
	if len(d.Filters) > 0 {
		fragment, bag := sqltemplate.BuildFilterClause(d.Filters, filterValues)
		if fragment != "" {
			template = template + " " + fragment
		}
		// Card-level parameters win over dashboard filter values.
		for k, v := range params {
			bag[k] = v
		}
		merged = bag
	}

	return s.execute(ctx, q, template, merged, 0)
}

// execute is the sequential unit of work for one request: safety gate,
// parameter screening, template rendering, limit enforcement, execution.
// Everything before RunQuery is synchronous and side-effect free.
func (s *queryService) execute(ctx context.Context, q *models.Question, rawTemplate string, params map[string]any, requestedLimit int) (*datasource.QueryResult, error) {
	if err := sqlguard.Validate(rawTemplate); err != nil {
		return nil, err
	}
	if err := sqlguard.ScreenParameters(params); err != nil {
		return nil, err
	}

	conn, encryptedPassword, err := s.connections.GetByID(ctx, q.ConnectionID)
	if err != nil {
		return nil, err
	}

	rendered, err := sqltemplate.Render(rawTemplate, withDefaults(q.Parameters, params), conn.Dialect)
	if err != nil {
		return nil, err
	}

	limit := requestedLimit
	if limit <= 0 {
		limit = q.RowLimit
	}
	finalSQL := sqlguard.EnforceRowLimit(rendered.SQL, rawTemplate, limit)

	password, err := s.encryptor.Decrypt(encryptedPassword)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return nil, apperrors.ErrCredentialsKeyMismatch
		}
		return nil, err
	}

	desc := datasource.ConnectionDescriptor{
		Dialect:  conn.Dialect,
		Host:     conn.Host,
		Port:     conn.Port,
		User:     conn.User,
		Password: password,
		Database: conn.Database,
	}

	return s.RunQuery(ctx, desc, finalSQL, rendered.Values)
}

func (s *queryService) RunQuery(ctx context.Context, desc datasource.ConnectionDescriptor, finalSQL string, values []any) (*datasource.QueryResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	conn, err := s.connect(ctx, desc)
	if err != nil {
		return nil, datasource.NewExecutionError(err)
	}
	defer func() {
		// Release failure is logged and swallowed: the request has already
		// succeeded or failed on its own terms by the time cleanup runs.
		if releaseErr := conn.Release(); releaseErr != nil {
			s.logger.Warn("Failed to release datasource connection",
				zap.String("dialect", desc.Dialect.String()),
				zap.String("host", desc.Host),
				zap.String("error", logging.SanitizeError(releaseErr)),
			)
		}
	}()

	return conn.Query(ctx, finalSQL, values)
}

func (s *queryService) TestConnection(ctx context.Context, connectionID uuid.UUID) error {
	conn, encryptedPassword, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}

	password, err := s.encryptor.Decrypt(encryptedPassword)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return apperrors.ErrCredentialsKeyMismatch
		}
		return err
	}

	desc := datasource.ConnectionDescriptor{
		Dialect:  conn.Dialect,
		Host:     conn.Host,
		Port:     conn.Port,
		User:     conn.User,
		Password: password,
		Database: conn.Database,
	}

	handle, err := s.connect(ctx, desc)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := handle.Release(); releaseErr != nil {
			s.logger.Warn("Failed to release datasource connection",
				zap.String("error", logging.SanitizeError(releaseErr)))
		}
	}()

	return handle.Ping(ctx)
}

// withDefaults returns a copy of params with declared defaults applied for
// parameters the caller did not supply at all. A key supplied as nil or ""
// stays absent on purpose: clearing a filter must not resurrect a default.
func withDefaults(defs []models.QueryParameter, params map[string]any) map[string]any {
	merged := make(map[string]any, len(params)+len(defs))
	for k, v := range params {
		merged[k] = v
	}
	for _, def := range defs {
		if def.Default == nil {
			continue
		}
		if _, supplied := merged[def.Name]; !supplied {
			merged[def.Name] = def.Default
		}
	}
	return merged
}

var _ QueryService = (*queryService)(nil)
