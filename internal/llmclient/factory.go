// internal/llmclient/factory.go
package llmclient

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/config"
)

// NewClient returns the configured LLM client. Without an API key it falls
// back to a canned-response client so the pipeline stays exercisable offline.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	if cfg.APIKey == "" {
		logger.Warn("No Gemini API key configured; using mock LLM client.")
		return &MockClient{}, nil
	}
	return NewGeminiClient(cfg, logger)
}

// MockClient returns a fixed fix suggestion. It exists so that dry runs and
// demos work without network access or credentials.
type MockClient struct{}

// Generate implements schemas.LLMClient.
func (m *MockClient) Generate(_ context.Context, _ schemas.GenerationRequest) (string, error) {
	return `{
  "explanation": "Mock fix: changing expected status code from 200 to 201",
  "diff": "--- a/src/test/java/com/example/Test.java\n+++ b/src/test/java/com/example/Test.java\n@@ -20,7 +20,7 @@\n-        .statusCode(200);\n+        .statusCode(201);\n",
  "confidence": 1.0
}`, nil
}
