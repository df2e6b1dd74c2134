package mysql

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldata/quill-engine/pkg/adapters/datasource"
)

func TestQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := newFromDB(db)
	defer conn.Release() //nolint:errcheck

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, region FROM orders WHERE region = ? LIMIT 1000")).
		WithArgs("west").
		WillReturnRows(sqlmock.NewRows([]string{"id", "region"}).
			AddRow(int64(1), []byte("west")).
			AddRow(int64(2), []byte("west")))

	result, err := conn.Query(context.Background(),
		"SELECT id, region FROM orders WHERE region = ? LIMIT 1000", []any{"west"})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "region"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, int64(1), result.Rows[0]["id"])
	assert.Equal(t, "west", result.Rows[0]["region"], "text columns are returned as strings, not []byte")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryErrorWrapsExecutionError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := newFromDB(db)
	defer conn.Release() //nolint:errcheck

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	_, err = conn.Query(context.Background(), "SELECT 1", nil)
	require.Error(t, err)

	var execErr *datasource.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestQueryNullValues(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	conn := newFromDB(db)
	defer conn.Release() //nolint:errcheck

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"note"}).AddRow(nil))

	result, err := conn.Query(context.Background(), "SELECT note FROM t", nil)
	require.NoError(t, err)
	assert.Nil(t, result.Rows[0]["note"])
}

func TestRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	conn := newFromDB(db)
	require.NoError(t, conn.Release())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildDSN(t *testing.T) {
	desc := datasource.ConnectionDescriptor{
		Host:     "db.example.com",
		Port:     3307,
		User:     "reporting",
		Password: "pw",
		Database: "sales",
	}
	assert.Equal(t,
		"reporting:pw@tcp(db.example.com:3307)/sales?parseTime=true&charset=utf8mb4",
		buildDSN(desc))

	desc.Port = 0
	assert.Contains(t, buildDSN(desc), "tcp(db.example.com:3306)", "default port applied")
}
