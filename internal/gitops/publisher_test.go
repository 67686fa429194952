// File: internal/gitops/publisher_test.go
package gitops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/config"
	"github.com/xkilldash9x/remedy-cli/internal/healer"
)

func testGitHubConfig() config.GitHubConfig {
	return config.GitHubConfig{
		Enabled:      true,
		Owner:        "acme",
		Repo:         "shop-tests",
		BaseBranch:   "master",
		BranchPrefix: "fix/self-healing-",
		Token:        "ghp_test",
		AuthorName:   "remedy-bot",
		AuthorEmail:  "remedy@users.noreply.github.com",
	}
}

func TestSanitizeRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		expected string
	}{
		{"testGetUserStatus", "testgetuserstatus"},
		{"test Get_User/Status", "test-get-user-status"},
		{"Weird---Name!!", "weird-name"},
		{"__leading", "leading"},
		{"trailing__", "trailing"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, sanitizeRef(tc.in), "input %q", tc.in)
	}
}

func TestBranchName(t *testing.T) {
	t.Parallel()
	p := NewPublisher(zaptest.NewLogger(t), testGitHubConfig(), t.TempDir())

	record := schemas.FailureRecord{TestName: "testGetUserStatus"}
	got := p.branchName(record, "0f92c1aa-dead-beef-0000-000000000000")
	assert.Equal(t, "fix/self-healing-testgetuserstatus-0f92c1aa", got)
}

func TestPRBody(t *testing.T) {
	t.Setenv("REMEDY_GITHUB_TOKEN", "ghp_secretsecret")
	p := NewPublisher(zaptest.NewLogger(t), testGitHubConfig(), t.TempDir())

	session := healer.NewSession(3)
	_, _ = session.BeginAttempt()

	record := schemas.FailureRecord{
		TestClass: "com.example.tests.GetUserTest",
		TestName:  "testGetUserStatus",
		Category:  schemas.CategoryAssertion,
	}
	suggestion := schemas.FixSuggestion{
		Explanation: "Endpoint returns 404 for missing users now; token ghp_secretsecret must not leak.",
		Confidence:  0.9,
	}

	body := p.prBody(session, record, suggestion, []string{"src/test/java/com/example/tests/GetUserTest.java"})

	assert.Contains(t, body, "com.example.tests.GetUserTest")
	assert.Contains(t, body, "assertion_mismatch")
	assert.Contains(t, body, "0.90")
	assert.Contains(t, body, "1 of 3")
	assert.Contains(t, body, "src/test/java/com/example/tests/GetUserTest.java")
	assert.NotContains(t, body, "ghp_secretsecret")
}

func TestPublishRequiresMutatedFiles(t *testing.T) {
	t.Parallel()
	p := NewPublisher(zaptest.NewLogger(t), testGitHubConfig(), t.TempDir())

	_, err := p.Publish(context.Background(), healer.NewSession(3), schemas.FailureRecord{}, schemas.FixSuggestion{}, nil)
	assert.ErrorContains(t, err, "no mutated files")
}
