// File: internal/patcher/patcher.go
package patcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
	"go.uber.org/zap"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
	"github.com/xkilldash9x/remedy-cli/internal/llmutil"
)

// Sentinel errors callers branch on.
var (
	// ErrPathDenied means the patch targets a file outside the configured
	// allow-list. Nothing was mutated.
	ErrPathDenied = errors.New("patch targets a path outside the allowed mutation paths")
	// ErrPatchUnapplicable means both application strategies failed. The
	// tree was restored to its pre-attempt state.
	ErrPatchUnapplicable = errors.New("patch could not be applied by any strategy")
	// ErrSnapshotActive means a prior attempt's snapshot is unresolved. A
	// new apply may not begin until it is discarded or reverted.
	ErrSnapshotActive = errors.New("a prior snapshot is still active")
	// ErrNoTargets means the diff names no files the applier could resolve.
	ErrNoTargets = errors.New("patch names no resolvable target files")
)

// gitApplyFunc runs the structured patch-apply step. Injected so tests can
// exercise the strategy pipeline without a git binary or repository.
type gitApplyFunc func(ctx context.Context, repoRoot, patch string) error

// Applier mutates the working tree under snapshot protection, using two
// strategies: a three-way structured apply, then direct line replacement.
// It is the single writer for the tree; the orchestrator's sequential loop
// guarantees no two applies are in flight.
type Applier struct {
	logger       *zap.Logger
	repoRoot     string
	allowedPaths []string
	gitApply     gitApplyFunc

	active *snapshot
}

// New creates a patch applier for the repository at repoRoot. allowedPaths
// are repo-relative prefixes (slash-separated) a patch is permitted to touch.
func New(logger *zap.Logger, repoRoot string, allowedPaths []string) *Applier {
	return &Applier{
		logger:       logger.Named("patcher"),
		repoRoot:     repoRoot,
		allowedPaths: allowedPaths,
		gitApply:     runGitApply,
	}
}

// Apply applies a unified-diff patch to the working tree. On success the
// tree equals its prior state plus exactly the patch and the snapshot is
// discarded. On any failure the tree is byte-identical to its pre-call
// state. Only one apply may be active at a time.
func (a *Applier) Apply(ctx context.Context, patch string) (*schemas.ApplyReport, error) {
	if a.active != nil {
		return nil, ErrSnapshotActive
	}

	patch = llmutil.CleanPatchOutput(patch)
	patch = normalizeWorkspacePaths(patch)

	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to parse unified diff: %w", err)
	}
	if len(fileDiffs) == 0 {
		return nil, ErrNoTargets
	}

	// Resolve the diff's embedded paths against the local tree and rewrite
	// the patch text so the structured apply sees correct paths.
	patch, targets, err := a.resolvePaths(patch, fileDiffs)
	if err != nil {
		return nil, err
	}

	// Allow-list check before any mutation. One out-of-scope target rejects
	// the whole patch, even if other hunks are in scope.
	for _, rel := range targets {
		if !a.pathAllowed(rel) {
			a.logger.Warn("Patch rejected by path allow-list.", zap.String("path", rel))
			return nil, fmt.Errorf("%w: %s", ErrPathDenied, rel)
		}
	}

	snap, err := captureSnapshot(a.repoRoot, targets)
	if err != nil {
		// Capture itself failed: nothing was mutated, nothing to revert.
		return nil, fmt.Errorf("aborting apply: %w", err)
	}
	a.active = snap

	// Strategy 1: structured three-way apply.
	if err := a.gitApply(ctx, a.repoRoot, patch); err == nil {
		a.logger.Info("Patch applied via structured three-way apply.",
			zap.Strings("files", targets))
		a.active = nil
		return &schemas.ApplyReport{Strategy: schemas.StrategyThreeWay, Files: targets}, nil
	} else {
		a.logger.Info("Structured apply failed, falling back to direct replacement.",
			zap.Error(err))
	}

	// A failed structured apply may have left partial state behind; reset
	// to the snapshot before the fallback sees the tree.
	if err := snap.restore(); err != nil {
		return nil, fmt.Errorf("failed to reset tree after structured apply: %w", err)
	}

	// Strategy 2: direct replacement derived from the diff's new content.
	if err := a.applyDirect(fileDiffs); err != nil {
		a.logger.Warn("Direct replacement failed, reverting.", zap.Error(err))
		if restoreErr := snap.restore(); restoreErr != nil {
			return nil, fmt.Errorf("revert after failed apply also failed: %w", restoreErr)
		}
		a.active = nil
		return nil, fmt.Errorf("%w: %s", ErrPatchUnapplicable, err)
	}

	a.logger.Info("Patch applied via direct replacement fallback.",
		zap.Strings("files", targets))
	a.active = nil
	return &schemas.ApplyReport{Strategy: schemas.StrategyReplacement, Files: targets}, nil
}

// Revert restores every file captured in the active snapshot and discards
// it. Idempotent: with no active snapshot it is a no-op, not an error.
func (a *Applier) Revert() error {
	if a.active == nil {
		return nil
	}
	if err := a.active.restore(); err != nil {
		return err
	}
	a.logger.Info("Reverted in-flight patch attempt.",
		zap.Strings("files", a.active.paths()))
	a.active = nil
	return nil
}

// -- Path handling --

// normalizeWorkspacePaths strips the container mount prefix so paths match
// the host checkout. Patches are generated inside the runner environment
// where the repo is mounted at /workspace.
func normalizeWorkspacePaths(patch string) string {
	return strings.ReplaceAll(patch, "/workspace/", "")
}

// stripDiffPrefix removes the conventional a/ or b/ prefix from a diff path.
func stripDiffPrefix(p string) string {
	p = strings.TrimPrefix(p, "a/")
	p = strings.TrimPrefix(p, "b/")
	return p
}

// resolvePaths maps every path named by the diff onto the local tree. A path
// that does not exist under the repo root is searched for by basename; when
// found, the patch text is rewritten to the real location. Paths that stay
// unresolved are kept as-is: they may legitimately be new files.
func (a *Applier) resolvePaths(patch string, fileDiffs []*diff.FileDiff) (string, []string, error) {
	rewrites := make(map[string]string)
	targetSet := make(map[string]bool)

	for _, fd := range fileDiffs {
		orig := stripDiffPrefix(fd.OrigName)
		next := stripDiffPrefix(fd.NewName)

		rel := next
		if rel == "" || rel == "/dev/null" {
			rel = orig
		}
		if rel == "" || rel == "/dev/null" {
			continue
		}

		resolved := a.resolveOne(rel)
		if resolved != rel {
			a.logger.Info("Fixed patch path.",
				zap.String("from", rel), zap.String("to", resolved))
			rewrites[rel] = resolved
		}
		targetSet[resolved] = true
	}

	if len(targetSet) == 0 {
		return "", nil, ErrNoTargets
	}

	// Rewrite the ---/+++ header lines in place, mirroring what the diff
	// parser saw.
	if len(rewrites) > 0 {
		lines := strings.Split(patch, "\n")
		for i, line := range lines {
			if !strings.HasPrefix(line, "--- ") && !strings.HasPrefix(line, "+++ ") {
				continue
			}
			prefix, path := line[:4], strings.TrimSpace(line[4:])
			bare := stripDiffPrefix(path)
			if fixed, ok := rewrites[bare]; ok {
				marker := "a/"
				if prefix == "+++ " {
					marker = "b/"
				}
				lines[i] = prefix + marker + fixed
			}
		}
		patch = strings.Join(lines, "\n")
	}

	targets := make([]string, 0, len(targetSet))
	for rel := range targetSet {
		targets = append(targets, rel)
	}
	sort.Strings(targets)
	return patch, targets, nil
}

// resolveOne returns the repo-relative path for one diff target. If the
// stated path does not exist, the repository is searched for a file with the
// same basename (build and VCS directories excluded).
func (a *Applier) resolveOne(rel string) string {
	if _, err := os.Stat(filepath.Join(a.repoRoot, filepath.FromSlash(rel))); err == nil {
		return rel
	}

	base := filepath.Base(rel)
	var found string
	_ = filepath.WalkDir(a.repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", ".gradle", "build", "target", "node_modules", "vendor":
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == base {
			found = path
			return filepath.SkipAll
		}
		return nil
	})

	if found == "" {
		return rel
	}
	realRel, err := filepath.Rel(a.repoRoot, found)
	if err != nil {
		return rel
	}
	return filepath.ToSlash(realRel)
}

// pathAllowed reports whether a repo-relative path falls under one of the
// configured mutable prefixes.
func (a *Applier) pathAllowed(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, prefix := range a.allowedPaths {
		prefix = filepath.ToSlash(prefix)
		prefix = strings.TrimSuffix(prefix, "/")
		if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
			return true
		}
	}
	return false
}

// runGitApply is the production structured-apply step: git's three-way merge
// with whitespace tolerance, fed over stdin.
func runGitApply(ctx context.Context, repoRoot, patch string) error {
	cmd := exec.CommandContext(ctx, "git", "apply",
		"--3way", "--whitespace=fix", "--ignore-space-change", "--ignore-whitespace", "-")
	cmd.Dir = repoRoot
	cmd.Stdin = strings.NewReader(patch)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git apply failed: %w. Output: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
