// Package logging builds the process-wide structured logger, with
// redaction of credential-shaped fields before they ever reach an output
// sink.
package logging

import (
	"log/slog"
	"os"
)

// sensitiveKeys lists the slog attribute keys this domain ever logs that
// could carry secret material. Values for these keys are replaced before
// the handler formats them.
var sensitiveKeys = map[string]bool{
	"token": true, "bearer_token": true, "access_token": true,
	"refresh_token": true, "client_secret": true, "api_key": true,
	"secret": true, "password": true, "encryption_key": true,
	"credential": true, "authorization": true,
}

// New builds a JSON-handler *slog.Logger at the given level, writing to w
// with redaction applied via ReplaceAttr. Passing a nil w defaults to
// os.Stdout.
func New(level slog.Level, w *os.File) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	})
	return slog.New(handler)
}

// redact scrubs attributes whose key is in sensitiveKeys, regardless of
// group nesting, and masks any URL-shaped value containing userinfo
// (user:pass@host) since profile URLs can carry embedded credentials.
func redact(groups []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[a.Key] {
		return slog.String(a.Key, "[REDACTED]")
	}
	if a.Key == "endpoint" || a.Key == "url" || a.Key == "profile_url" {
		if s, ok := a.Value.Any().(string); ok && containsUserinfo(s) {
			return slog.String(a.Key, maskUserinfo(s))
		}
	}
	return a
}

func containsUserinfo(s string) bool {
	schemeIdx := -1
	for i := 0; i+2 < len(s); i++ {
		if s[i] == ':' && s[i+1] == '/' && s[i+2] == '/' {
			schemeIdx = i + 3
			break
		}
	}
	if schemeIdx < 0 {
		return false
	}
	for i := schemeIdx; i < len(s); i++ {
		switch s[i] {
		case '@':
			return true
		case '/':
			return false
		}
	}
	return false
}

func maskUserinfo(s string) string {
	at := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '@' {
			at = i
			break
		}
	}
	if at < 0 {
		return s
	}
	schemeEnd := 0
	for i := 0; i+2 < len(s); i++ {
		if s[i] == ':' && s[i+1] == '/' && s[i+2] == '/' {
			schemeEnd = i + 3
			break
		}
	}
	return s[:schemeEnd] + "[REDACTED]" + s[at:]
}
