// Package sqlguard applies static safety checks to raw SQL before it is
// rendered and executed against a user-registered database.
//
// These checks are heuristic defense in depth. They do not parse SQL and are
// not a substitute for least-privilege credentials on the target database.
package sqlguard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxSQLLength bounds the raw template size.
	MaxSQLLength = 50000
	// DefaultRowLimit is appended to queries that carry no LIMIT of their own
	// when the caller does not supply a valid limit.
	DefaultRowLimit = 1000
	// MaxRowLimit caps caller-supplied row limits.
	MaxRowLimit = 100000
)

var (
	// ErrSQLTooLong indicates the raw SQL exceeds MaxSQLLength.
	ErrSQLTooLong = fmt.Errorf("SQL too long: maximum %d characters", MaxSQLLength)
	// ErrMultipleStatements indicates a semicolon outside string literals.
	ErrMultipleStatements = errors.New("multiple statements not allowed")
	// ErrNotReadOnly indicates the statement is not a SELECT or WITH query.
	ErrNotReadOnly = errors.New("only SELECT queries allowed")
)

// readOnlyRegex requires the comment-stripped text to start with SELECT or
// WITH at a word boundary.
var readOnlyRegex = regexp.MustCompile(`(?i)^(select|with)\b`)

// limitRegex detects an existing LIMIT clause. A templated limit written as
// LIMIT {{n}} also counts as present, since detection runs on the pre-render
// template text.
var limitRegex = regexp.MustCompile(`(?i)\blimit\s+(\d+|\{\{\w+\}\})`)

// Validate runs the pre-render checks over raw SQL, in order, fast-fail:
// length bound, single-statement bound, read-only bound.
func Validate(rawSQL string) error {
	trimmed := strings.TrimSpace(rawSQL)

	if len(trimmed) > MaxSQLLength {
		return ErrSQLTooLong
	}

	if hasSemicolonOutsideStrings(trimmed) {
		return ErrMultipleStatements
	}

	if !readOnlyRegex.MatchString(stripLeadingComments(trimmed)) {
		return ErrNotReadOnly
	}

	return nil
}

// EnforceRowLimit appends a hard LIMIT to the rendered SQL when the raw
// template carries none. Detection runs against the comment-stripped raw
// text; the append targets the rendered (post-templating) statement.
//
// requestedLimit is used when it is a positive integer, capped at
// MaxRowLimit; otherwise DefaultRowLimit applies. The limit is concatenated
// as a validated integer, never as caller-supplied text.
func EnforceRowLimit(renderedSQL, rawSQL string, requestedLimit int) string {
	if limitRegex.MatchString(stripLeadingComments(strings.TrimSpace(rawSQL))) {
		return renderedSQL
	}

	limit := requestedLimit
	if limit <= 0 {
		limit = DefaultRowLimit
	}
	if limit > MaxRowLimit {
		limit = MaxRowLimit
	}

	return fmt.Sprintf("%s LIMIT %d", renderedSQL, limit)
}

// stripLeadingComments removes a leading run of block comments (/* ... */)
// and line comments (-- to end of line).
func stripLeadingComments(sqlText string) string {
	for {
		sqlText = strings.TrimLeft(sqlText, " \t\n\r")

		switch {
		case strings.HasPrefix(sqlText, "--"):
			if idx := strings.IndexByte(sqlText, '\n'); idx >= 0 {
				sqlText = sqlText[idx+1:]
			} else {
				return ""
			}
		case strings.HasPrefix(sqlText, "/*"):
			if idx := strings.Index(sqlText, "*/"); idx >= 0 {
				sqlText = sqlText[idx+2:]
			} else {
				return ""
			}
		default:
			return sqlText
		}
	}
}

// hasSemicolonOutsideStrings reports whether the SQL contains a semicolon
// outside of single- or double-quoted literals. A trailing semicolon also
// counts: stored templates are single statements with no terminator.
func hasSemicolonOutsideStrings(sqlText string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlText {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handles both backslash escape (\') and SQL doubled quote ('').
			// A doubled quote exits and immediately re-enters on the next
			// quote, which keeps the scan correct.
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}
