// Package scm resolves the "auto" fields of a recipe's source locator from the local git checkout.
package scm

import (
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/rotisserie/eris"

	"github.com/adnn/glfwsandbox/build-tools/pkg/recipe"
)

// Checkout describes the state of a local repository.
type Checkout struct {
	Root     string
	Remote   string
	Revision string
	Dirty    bool
}

// Open finds the repository containing path by walking upwards.
func Open(path string) (*git.Repository, string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, "", eris.Wrapf(err, "no git repository found at %s", path)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, "", eris.Wrap(err, "failed to access worktree")
	}

	return repo, wt.Filesystem.Root(), nil
}

// ProjectRoot returns the top-level directory of the checkout containing path.
func ProjectRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	_, root, err := Open(abs)
	return root, err
}

// Inspect reads the remote, HEAD revision and dirty state of the checkout containing path.
func Inspect(path string) (*Checkout, error) {
	repo, root, err := Open(path)
	if err != nil {
		return nil, err
	}

	result := &Checkout{Root: root}

	remote, err := repo.Remote("origin")
	if err == nil {
		urls := remote.Config().URLs
		if len(urls) > 0 {
			result.Remote = urls[0]
		}
	} else if err != git.ErrRemoteNotFound {
		return nil, eris.Wrap(err, "failed to read remote origin")
	}

	head, err := repo.Head()
	if err != nil {
		return nil, eris.Wrap(err, "failed to resolve HEAD")
	}
	result.Revision = head.Hash().String()

	wt, err := repo.Worktree()
	if err != nil {
		return nil, eris.Wrap(err, "failed to access worktree")
	}

	status, err := wt.Status()
	if err != nil {
		return nil, eris.Wrap(err, "failed to read worktree status")
	}
	result.Dirty = !status.IsClean()

	return result, nil
}

// Resolve replaces "auto" in the locator with values from the checkout at path. Locators without "auto"
// are returned unchanged and don't need a repository.
func Resolve(path string, locator recipe.SCM) (recipe.SCM, error) {
	if locator.URL != recipe.Auto && locator.Revision != recipe.Auto {
		return locator, nil
	}

	if locator.Type != "" && locator.Type != "git" {
		return locator, eris.Errorf("can't resolve %s locators, only git is supported", locator.Type)
	}

	checkout, err := Inspect(path)
	if err != nil {
		return locator, err
	}

	if locator.URL == recipe.Auto {
		if checkout.Remote == "" {
			return locator, eris.New("url is auto but the repository has no origin remote")
		}
		locator.URL = checkout.Remote
	}

	if locator.Revision == recipe.Auto {
		locator.Revision = checkout.Revision
	}

	return locator, nil
}
