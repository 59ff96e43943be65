// Package filex has small filesystem helpers for the client's local state.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath expands a leading "~/" to the user's home directory and turns
// the result into an absolute path.
func ResolvePath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home dir: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", path, err)
	}
	return abs, nil
}

// EnsureParentDir creates the directory that will hold path (mode 0700) and
// returns the resolved absolute path.
func EnsureParentDir(path string) (string, error) {
	abs, err := ResolvePath(path)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return abs, nil
}
