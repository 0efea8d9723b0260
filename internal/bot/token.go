package bot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTokenPath is read when no token path is configured.
const DefaultTokenPath = "TOKEN"

// ResolveToken returns token when non-empty. Otherwise it reads the file at
// path; a missing or blank file yields ErrTokenNotFound naming the absolute
// path that was tried.
func ResolveToken(token, path string) (string, error) {
	if t := strings.TrimSpace(token); t != "" {
		return t, nil
	}
	if path == "" {
		path = DefaultTokenPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTokenNotFound, abs)
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	t := strings.TrimSpace(string(data))
	if t == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrTokenNotFound, abs)
	}
	return t, nil
}
