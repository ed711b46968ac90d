package shell

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

func resolve(dir, item string) string {
	if filepath.IsAbs(item) || dir == "" {
		return filepath.Clean(item)
	}
	return filepath.Join(dir, item)
}

// expandPatterns resolves glob patterns. The shell already does this on POSIX systems but cmd.exe doesn't.
func expandPatterns(dir string, patterns []string, allowEmpty bool) ([]string, error) {
	items := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = resolve(dir, pattern)
		if !strings.ContainsAny(pattern, "*?[") {
			items = append(items, pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to resolve pattern %s", pattern)
		}

		if matches == nil && !allowEmpty {
			return nil, eris.Errorf("pattern %s produced no matches", pattern)
		}

		items = append(items, matches...)
	}
	return items, nil
}

// splitFlags separates single-letter flags (-rf) from the remaining arguments.
func splitFlags(args []string) (map[rune]bool, []string) {
	flags := map[rune]bool{}
	rest := make([]string, 0, len(args))
	done := false
	for _, arg := range args {
		if !done && arg == "--" {
			done = true
			continue
		}

		if !done && len(arg) > 1 && arg[0] == '-' {
			for _, r := range arg[1:] {
				flags[r] = true
			}
			continue
		}
		rest = append(rest, arg)
	}
	return flags, rest
}

// Move moves items into dest. If more than one item is passed, dest has to be an existing directory.
func Move(dir string, items []string, dest string) error {
	dest = resolve(dir, dest)
	destParent := filepath.Dir(dest)
	info, err := os.Stat(destParent)
	if err != nil {
		return eris.Wrapf(err, "could not find destination directory %s", destParent)
	}

	if !info.IsDir() {
		return eris.Errorf("%s is not a directory", destParent)
	}

	destIsDir := false
	info, err = os.Stat(dest)
	if err == nil {
		destIsDir = info.IsDir()
	} else if !os.IsNotExist(err) {
		return eris.Wrapf(err, "failed to retrieve info about destination %s", dest)
	}

	sources, err := expandPatterns(dir, items, false)
	if err != nil {
		return err
	}

	if len(sources) > 1 && !destIsDir {
		return eris.Errorf("can't move multiple items to %s because it is not a directory", dest)
	}

	for _, item := range sources {
		itemDest := dest
		if destIsDir {
			itemDest = filepath.Join(dest, filepath.Base(item))
		}

		err = os.Rename(item, itemDest)
		if err != nil {
			return eris.Wrapf(err, "failed to move %s to %s", item, itemDest)
		}
	}

	return nil
}

// Remove deletes the given items. Directories require recursive; force ignores missing items.
func Remove(dir string, items []string, recursive, force bool) error {
	targets, err := expandPatterns(dir, items, force)
	if err != nil {
		return err
	}

	for _, item := range targets {
		info, err := os.Stat(item)
		if err != nil {
			if force && os.IsNotExist(err) {
				continue
			}
			return eris.Wrapf(err, "could not stat %s", item)
		}

		if info.IsDir() && !recursive {
			return eris.Errorf("%s is a directory but -r wasn't passed", item)
		}
	}

	for _, item := range targets {
		err := os.RemoveAll(item)
		if err != nil && (!force || !os.IsNotExist(err)) {
			return eris.Wrapf(err, "could not delete %s", item)
		}
	}

	return nil
}

// MakeDir creates directories, including missing parents if requested.
func MakeDir(dir string, items []string, parents bool) error {
	for _, item := range items {
		item = resolve(dir, item)

		var err error
		if parents {
			err = os.MkdirAll(item, 0770)
		} else {
			err = os.Mkdir(item, 0770)
		}

		if err != nil {
			return eris.Wrapf(err, "failed to create %s", item)
		}
	}

	return nil
}

func runMove(dir string, args []string) error {
	_, rest := splitFlags(args)
	if len(rest) < 2 {
		return eris.New("not enough parameters")
	}
	return Move(dir, rest[:len(rest)-1], rest[len(rest)-1])
}

func runRemove(dir string, args []string) error {
	flags, rest := splitFlags(args)
	return Remove(dir, rest, flags['r'] || flags['R'], flags['f'])
}

func runMakeDir(dir string, args []string) error {
	flags, rest := splitFlags(args)
	return MakeDir(dir, rest, flags['p'])
}
