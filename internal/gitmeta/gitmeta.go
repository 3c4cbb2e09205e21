// Package gitmeta reads repository metadata from the documentation source
// tree so builds can report which revision they rendered.
package gitmeta

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// HeadRevision returns the full HEAD commit hash of the repository containing
// path. The .git directory is detected upward from path.
func HeadRevision(path string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repository at %s: %w", path, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// ShortRevision is a best-effort short hash; it returns "" when path is not
// inside a git repository.
func ShortRevision(path string) string {
	rev, err := HeadRevision(path)
	if err != nil {
		return ""
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return rev
}
