// File: internal/gitops/publisher.go

// Package gitops turns a verified local fix into a pull request: branch,
// commit, push, open PR. Everything here is optional plumbing around the
// repair loop; the fix itself never depends on it.
package gitops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/config"
	"github.com/xkilldash9x/remedy-cli/internal/healer"
	"github.com/xkilldash9x/remedy-cli/internal/observability"
)

// Publisher opens pull requests for verified fixes. It satisfies
// healer.FixPublisher.
type Publisher struct {
	logger   *zap.Logger
	cfg      config.GitHubConfig
	repoPath string
	gh       *github.Client
}

// NewPublisher builds a Publisher over the repository working copy at
// repoPath.
func NewPublisher(logger *zap.Logger, cfg config.GitHubConfig, repoPath string) *Publisher {
	return &Publisher{
		logger:   logger.Named("gitops"),
		cfg:      cfg,
		repoPath: repoPath,
		gh:       github.NewClient(nil).WithAuthToken(cfg.Token),
	}
}

// Publish commits the mutated files on a fresh branch, pushes it, and opens
// a pull request. It returns the PR URL.
func (p *Publisher) Publish(ctx context.Context, session *healer.Session, record schemas.FailureRecord, suggestion schemas.FixSuggestion, files []string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("no mutated files to publish")
	}

	repo, err := git.PlainOpen(p.repoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open git repository at %s: %w", p.repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	branch := p.branchName(record, session.ID)
	// Keep carries the uncommitted fix onto the new branch.
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
		Keep:   true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	p.logger.Info("Created fix branch.", zap.String("branch", branch))

	for _, f := range files {
		if _, err := wt.Add(f); err != nil {
			return "", fmt.Errorf("failed to stage %s: %w", f, err)
		}
	}

	msg := fmt.Sprintf("fix(test): repair %s.%s\n\n%s",
		record.TestClass, record.TestName, observability.Redact(suggestion.Explanation))
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.cfg.AuthorName,
			Email: p.cfg.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit fix: %w", err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth: &githttp.BasicAuth{
			Username: "x-access-token",
			Password: p.cfg.Token,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to push branch %s: %w", branch, err)
	}
	p.logger.Info("Pushed fix branch.", zap.String("branch", branch))

	title := fmt.Sprintf("Auto-repair: %s.%s", record.TestClass, record.TestName)
	pr, _, err := p.gh.PullRequests.Create(ctx, p.cfg.Owner, p.cfg.Repo, &github.NewPullRequest{
		Title:               github.String(title),
		Head:                github.String(branch),
		Base:                github.String(p.cfg.BaseBranch),
		Body:                github.String(p.prBody(session, record, suggestion, files)),
		MaintainerCanModify: github.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to open pull request: %w", err)
	}

	if len(p.cfg.Labels) > 0 {
		_, _, err = p.gh.Issues.AddLabelsToIssue(ctx, p.cfg.Owner, p.cfg.Repo, pr.GetNumber(), p.cfg.Labels)
		if err != nil {
			p.logger.Warn("Failed to label pull request.", zap.Error(err))
		}
	}

	return pr.GetHTMLURL(), nil
}

// branchName derives a stable, ref-safe branch name from the failing test and
// the session identity.
func (p *Publisher) branchName(record schemas.FailureRecord, sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return p.cfg.BranchPrefix + sanitizeRef(record.TestName) + "-" + short
}

// prBody renders the review-facing summary of the repair session. Secrets
// are redacted before anything leaves the process.
func (p *Publisher) prBody(session *healer.Session, record schemas.FailureRecord, suggestion schemas.FixSuggestion, files []string) string {
	var b strings.Builder
	b.WriteString("## Automated test repair\n\n")
	fmt.Fprintf(&b, "**Failing test:** `%s.%s`\n", record.TestClass, record.TestName)
	fmt.Fprintf(&b, "**Failure category:** `%s`\n", record.Category)
	fmt.Fprintf(&b, "**Confidence:** %.2f\n", suggestion.Confidence)
	fmt.Fprintf(&b, "**Attempts:** %d of %d\n\n", session.AttemptCount(), session.MaxAttempts)
	b.WriteString("### Explanation\n\n")
	b.WriteString(suggestion.Explanation)
	b.WriteString("\n\n### Files changed\n\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- `%s`\n", f)
	}
	b.WriteString("\n---\n*Opened by remedy after the fix was verified against the full suite.*\n")
	return observability.Redact(b.String())
}

// sanitizeRef lowercases s and squeezes anything not ref-safe into single
// hyphens.
func sanitizeRef(s string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
