// Package sqltemplate renders stored SQL templates into dialect-correct
// parameterized statements.
//
// A template may contain optional blocks delimited by [[...]] and named
// placeholders delimited by {{...}}. An optional block is emitted only when
// every placeholder inside it has a bound value; a block with no placeholders
// is an unconditional literal (the brackets are visual grouping only).
// Placeholders outside optional blocks are required.
package sqltemplate

import (
	"fmt"
	"regexp"

	"github.com/quilldata/quill-engine/pkg/models"
)

// placeholderRegex matches {{name}} placeholders. A name is a contiguous run
// of word characters (letters, digits, underscore).
var placeholderRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

// optionalBlockRegex matches [[...]] blocks non-greedily so consecutive
// blocks don't merge. Blocks do not nest. (?s) lets a block span lines.
// An unclosed [[ has no match and passes through as literal text.
var optionalBlockRegex = regexp.MustCompile(`(?s)\[\[(.*?)\]\]`)

// RenderedQuery is the output of template rendering. SQL contains positional
// markers ($1,$2,... for postgres, ? otherwise) whose order matches Values.
type RenderedQuery struct {
	SQL    string `json:"sql"`
	Values []any  `json:"values"`
}

// MissingParameterError reports a required placeholder with no bound value.
// It can only occur for placeholders outside optional blocks: placeholders
// inside blocks either have values or elide the whole block in pass one.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter: %s", e.Name)
}

// Render transforms a SQL template and a parameter bag into a RenderedQuery
// for the given dialect.
//
// Two passes, both left to right:
//  1. Optional-block resolution: each [[...]] is unwrapped if all of its
//     placeholders have usable values (or it has none), otherwise elided.
//  2. Placeholder substitution: each remaining {{name}} becomes a positional
//     marker and appends its value to Values. Repeated names each consume a
//     slot; order of appearance is the only ordering guarantee.
//
// A nil, untyped-nil, or empty-string value counts as absent: a dashboard
// filter cleared by the user elides its clause rather than matching "".
func Render(template string, params map[string]any, dialect models.Dialect) (*RenderedQuery, error) {
	resolved := resolveOptionalBlocks(template, params)

	var (
		values     []any
		position   int
		missingErr *MissingParameterError
	)

	finalSQL := placeholderRegex.ReplaceAllStringFunc(resolved, func(match string) string {
		name := placeholderRegex.FindStringSubmatch(match)[1]

		value, ok := usableValue(params, name)
		if !ok {
			if missingErr == nil {
				missingErr = &MissingParameterError{Name: name}
			}
			return match
		}

		values = append(values, normalizeValue(value))
		position++
		if dialect == models.DialectPostgres {
			return fmt.Sprintf("$%d", position)
		}
		return "?"
	})

	if missingErr != nil {
		return nil, missingErr
	}

	return &RenderedQuery{SQL: finalSQL, Values: values}, nil
}

// resolveOptionalBlocks performs pass one: unwrap or elide every [[...]].
func resolveOptionalBlocks(template string, params map[string]any) string {
	return optionalBlockRegex.ReplaceAllStringFunc(template, func(match string) string {
		inner := match[2 : len(match)-2]

		names := placeholderRegex.FindAllStringSubmatch(inner, -1)
		if len(names) == 0 {
			// Static boilerplate authored with brackets for grouping.
			return inner
		}

		for _, m := range names {
			if _, ok := usableValue(params, m[1]); !ok {
				return ""
			}
		}
		return inner
	})
}

// usableValue reports whether the bag holds a value for name that should
// bind. Absent keys, nils, and empty strings do not bind.
func usableValue(params map[string]any, name string) (any, bool) {
	value, ok := params[name]
	if !ok || value == nil {
		return nil, false
	}
	if s, isString := value.(string); isString && s == "" {
		return nil, false
	}
	return value, true
}

// normalizeValue converts boolean-like strings into real booleans. Some
// drivers require typed parameters for boolean columns and reject "true".
func normalizeValue(value any) any {
	if s, ok := value.(string); ok {
		switch s {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return value
}
