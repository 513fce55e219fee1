package version

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
)

// ReleaseCommit stands in for the commit hash outside a git checkout, such as
// source tarballs.
const ReleaseCommit = "release"

// CommitHash returns the HEAD commit of the repository at root.
func CommitHash(root string) (string, error) {
	repo, err := git.PlainOpen(root)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return ReleaseCommit, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to open repository: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

func CurrentBuildInfo(root string, now time.Time) (BuildInfo, error) {
	hash, err := CommitHash(root)
	if err != nil {
		return BuildInfo{}, err
	}
	return BuildInfo{CommitHash: hash, BuildTime: now.Local()}, nil
}
