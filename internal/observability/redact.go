// File: internal/observability/redact.go
package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

// sensitiveEnvKeys lists environment variables whose values must never
// appear in logs, prompts echoed for debugging, or PR bodies.
var sensitiveEnvKeys = []string{
	"REMEDY_GEMINI_API_KEY",
	"REMEDY_GITHUB_TOKEN",
	"GEMINI_API_KEY",
	"GITHUB_TOKEN",
}

const redactedPlaceholder = "[REDACTED]"

// Redact replaces every occurrence of a known secret value in text with a
// placeholder. Values shorter than five characters are skipped so that a
// degenerate key cannot blank out ordinary words.
func Redact(text string) string {
	if text == "" {
		return ""
	}
	for _, key := range sensitiveEnvKeys {
		secret := os.Getenv(key)
		if len(secret) <= 4 {
			continue
		}
		text = strings.ReplaceAll(text, secret, redactedPlaceholder)
	}
	return text
}

// RedactedString is a zap field helper that sanitizes the value first.
func RedactedString(key, value string) zap.Field {
	return zap.String(key, Redact(value))
}
