package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks credentials in log fields. Request headers are logged by
// the access log, so cookies and authorization values would otherwise leak.
type Redactor struct {
	patterns      []redactPattern
	sensitiveKeys []string
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			{regex: regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`), replacement: "Bearer ***"},
			{regex: regexp.MustCompile(`Basic\s+[a-zA-Z0-9+/]+=*`), replacement: "Basic ***"},
			{regex: regexp.MustCompile(`(password|passwd|pwd)[:=]\s*[^\s&]+`), replacement: "$1=***"},
		},
		sensitiveKeys: []string{
			"authorization", "cookie", "password", "secret", "token", "api_key",
		},
	}
}

// RedactString redacts credentials from a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	if r.isSensitiveKey(a.Key) {
		return slog.String(a.Key, redactValue(a.Value.String()))
	}
	if s := a.Value.String(); s != "" {
		if redacted := r.RedactString(s); redacted != s {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}

func (r *Redactor) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range r.sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// redactValue keeps a short prefix for debugging.
func redactValue(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "***"
	}
	return v[:4] + "***"
}
