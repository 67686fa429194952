// File: internal/patcher/snapshot.go
package patcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// fileState is the captured pre-attempt state of one file. A file the patch
// would create is captured as absent so a revert can remove it again.
type fileState struct {
	content []byte
	mode    fs.FileMode
	existed bool
}

// snapshot is an exclusively-owned capture of every file one patch attempt
// will touch. It is resolved exactly once: discarded after a successful
// apply, restored after a failed one. The applier enforces that at most one
// snapshot is alive at a time.
type snapshot struct {
	root  string
	files map[string]fileState // keyed by repo-relative slash path
}

// captureSnapshot reads the current state of every target path. Capture must
// complete fully before any mutation begins; a read error aborts the whole
// capture so the caller never starts an attempt it cannot undo.
func captureSnapshot(root string, relPaths []string) (*snapshot, error) {
	s := &snapshot{
		root:  root,
		files: make(map[string]fileState, len(relPaths)),
	}

	for _, rel := range relPaths {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if os.IsNotExist(err) {
			s.files[rel] = fileState{existed: false}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot capture failed for %s: %w", rel, err)
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("snapshot capture failed for %s: %w", rel, err)
		}
		s.files[rel] = fileState{
			content: content,
			mode:    info.Mode().Perm(),
			existed: true,
		}
	}

	return s, nil
}

// restore puts every captured file back to its byte-for-byte pre-attempt
// content and removes files the attempt created. The snapshot stays usable
// afterwards; discarding is the caller's decision.
func (s *snapshot) restore() error {
	for rel, state := range s.files {
		abs := filepath.Join(s.root, filepath.FromSlash(rel))
		if !state.existed {
			if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove created file %s: %w", rel, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return fmt.Errorf("failed to restore %s: %w", rel, err)
		}
		if err := os.WriteFile(abs, state.content, state.mode); err != nil {
			return fmt.Errorf("failed to restore %s: %w", rel, err)
		}
	}
	return nil
}

// paths returns the repo-relative paths under snapshot protection.
func (s *snapshot) paths() []string {
	out := make([]string, 0, len(s.files))
	for rel := range s.files {
		out = append(out, rel)
	}
	return out
}
