package sqltemplate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quilldata/quill-engine/pkg/models"
)

// filterOperators maps filter metadata operators to SQL comparison operators.
var filterOperators = map[string]string{
	"eq":   "=",
	"neq":  "<>",
	"gt":   ">",
	"gte":  ">=",
	"lt":   "<",
	"lte":  "<=",
	"like": "LIKE",
}

// identifierRegex restricts filter columns to plain identifiers. Filter
// metadata is author-supplied, not viewer-supplied, but column names are
// concatenated into SQL text so they get the strict check anyway.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// BuildFilterClause synthesizes a template fragment from dashboard filter
// metadata, one optional block per definition:
//
//	[[AND region = {{region}}]] [[AND total >= {{total_min}}]]
//
// The fragment goes through Render like any authored template, so filters
// with no supplied value elide naturally. The returned bag is a copy of
// values with LIKE values wrapped in wildcards at bind time (a value
// transform, never SQL concatenation).
//
// Definitions with an unknown operator or a non-identifier column are
// skipped.
func BuildFilterClause(defs []models.FilterDefinition, values map[string]any) (string, map[string]any) {
	bag := make(map[string]any, len(values))
	for k, v := range values {
		bag[k] = v
	}

	var b strings.Builder
	for _, def := range defs {
		op, ok := filterOperators[def.Operator]
		if !ok {
			continue
		}
		if !identifierRegex.MatchString(def.Column) {
			continue
		}

		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "[[AND %s %s {{%s}}]]", def.Column, op, def.Name)

		if def.Operator == "like" {
			if s, isString := bag[def.Name].(string); isString && s != "" {
				bag[def.Name] = "%" + s + "%"
			}
		}
	}

	return b.String(), bag
}
