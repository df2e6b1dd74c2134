package sqltemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldata/quill-engine/pkg/models"
)

func TestBuildFilterClause(t *testing.T) {
	defs := []models.FilterDefinition{
		{Name: "region", Column: "region", Operator: "eq"},
		{Name: "total_min", Column: "total", Operator: "gte"},
		{Name: "search", Column: "customer_name", Operator: "like"},
	}
	values := map[string]any{"region": "west", "search": "acme"}

	fragment, bag := BuildFilterClause(defs, values)

	assert.Equal(t,
		"[[AND region = {{region}}]] [[AND total >= {{total_min}}]] [[AND customer_name LIKE {{search}}]]",
		fragment)
	assert.Equal(t, "west", bag["region"])
	assert.Equal(t, "%acme%", bag["search"], "LIKE values are wildcard-wrapped at bind time")
	assert.NotContains(t, bag, "total_min")
}

func TestBuildFilterClauseSkipsUnsafeDefinitions(t *testing.T) {
	defs := []models.FilterDefinition{
		{Name: "a", Column: "region; DROP TABLE x", Operator: "eq"},
		{Name: "b", Column: "total", Operator: "between"}, // unknown operator
		{Name: "c", Column: "status", Operator: "neq"},
	}

	fragment, _ := BuildFilterClause(defs, nil)
	assert.Equal(t, "[[AND status <> {{c}}]]", fragment)
}

func TestBuildFilterClauseRendersThroughTemplate(t *testing.T) {
	defs := []models.FilterDefinition{
		{Name: "region", Column: "region", Operator: "eq"},
		{Name: "total_min", Column: "total", Operator: "gte"},
	}
	values := map[string]any{"region": "west"}

	fragment, bag := BuildFilterClause(defs, values)
	got, err := Render("SELECT * FROM orders WHERE 1=1 "+fragment, bag, models.DialectPostgres)
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM orders WHERE 1=1 AND region = $1 ", got.SQL)
	assert.Equal(t, []any{"west"}, got.Values)
}

func TestBuildFilterClauseEmpty(t *testing.T) {
	fragment, bag := BuildFilterClause(nil, nil)
	assert.Empty(t, fragment)
	assert.Empty(t, bag)
}
