// Package logging provides helpers for keeping credentials out of log output.
package logging

import "regexp"

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Matches password=xxx, pwd=xxx, pass=xxx up to the next delimiter.
	// Covers both DSN key-value form and driver error messages that echo it.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches user:pass@host in URL-style connection strings.
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// Matches user:pass@tcp(host:port) in go-sql-driver DSNs.
	mysqlDSNPattern = regexp.MustCompile(`[^:@/\s]+:[^@\s]+@tcp\(`)
)

// SanitizeDSN removes credentials from a connection string before logging.
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return mysqlDSNPattern.ReplaceAllString(sanitized, RedactedText+"@tcp(")
}

// SanitizeError sanitizes an error message that may echo connection
// credentials (drivers include the DSN in connect failures).
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeDSN(err.Error())
}
