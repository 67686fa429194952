// internal/healer/mocks_test.go
package healer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
)

// mockRunner is a mock implementation of schemas.TestRunner.
type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, repoPath, testFilter string) (*schemas.RunResult, error) {
	args := m.Called(ctx, repoPath, testFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.RunResult), args.Error(1)
}

// mockAnalyzer is a mock implementation of the sourceReader collaborator.
type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Analyze(artifactsPath string) ([]schemas.FailureRecord, error) {
	args := m.Called(artifactsPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.FailureRecord), args.Error(1)
}

func (m *mockAnalyzer) ReadSource(record schemas.FailureRecord) string {
	args := m.Called(record)
	return args.String(0)
}

// mockGenerator is a mock implementation of schemas.FixGenerator.
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Suggest(ctx context.Context, record schemas.FailureRecord, sourceContext string) (*schemas.FixSuggestion, error) {
	args := m.Called(ctx, record, sourceContext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.FixSuggestion), args.Error(1)
}

// mockApplier is a mock implementation of schemas.PatchApplier.
type mockApplier struct {
	mock.Mock
}

func (m *mockApplier) Apply(ctx context.Context, patch string) (*schemas.ApplyReport, error) {
	args := m.Called(ctx, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.ApplyReport), args.Error(1)
}

func (m *mockApplier) Revert() error {
	args := m.Called()
	return args.Error(0)
}

// mockPublisher is a mock implementation of FixPublisher.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, session *Session, record schemas.FailureRecord, suggestion schemas.FixSuggestion, files []string) (string, error) {
	args := m.Called(ctx, session, record, suggestion, files)
	return args.String(0), args.Error(1)
}
