package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// StringArg returns a string argument or "".
func StringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// RequiredStringArg returns a non-empty string argument.
func RequiredStringArg(args map[string]any, name string) (string, error) {
	s := strings.TrimSpace(StringArg(args, name))
	if s == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return s, nil
}

// BoolArg returns a boolean argument or false.
func BoolArg(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}

// LimitArg returns a numeric argument clamped to [1, max], or def when it is
// missing. JSON numbers arrive as float64.
func LimitArg(args map[string]any, name string, def, max int64) int64 {
	n := def
	switch v := args[name].(type) {
	case float64:
		n = int64(v)
	case int:
		n = int64(v)
	case int64:
		n = v
	}
	if n < 1 {
		n = 1
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

// SplitAddresses splits a comma-separated address list, dropping empty
// entries.
func SplitAddresses(addresses string) []string {
	if addresses == "" {
		return nil
	}

	parts := strings.Split(addresses, ",")
	result := make([]string, 0, len(parts))
	for _, addr := range parts {
		trimmed := strings.TrimSpace(addr)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ErrAttachmentOutsideDir is returned for an attachment path that leaves the
// configured attachment directory.
var ErrAttachmentOutsideDir = errors.New("attachment is outside the attachment directory")

// AttachmentPaths confines paths to dir. Relative paths are taken relative to
// dir and symlinks are resolved before the check. An empty dir returns paths
// unchanged.
func AttachmentPaths(dir string, paths []string) ([]string, error) {
	if dir == "" {
		return paths, nil
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid attachment directory: %w", err)
	}
	if root, err = resolvePath(root); err != nil {
		return nil, fmt.Errorf("invalid attachment directory: %w", err)
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(root, full)
		}
		full, err := resolvePath(filepath.Clean(full))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve attachment %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, full)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return nil, fmt.Errorf("%w: %s", ErrAttachmentOutsideDir, p)
		}
		out = append(out, full)
	}
	return out, nil
}

// resolvePath resolves the symlinks of the longest existing prefix of p.
func resolvePath(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	parent := filepath.Dir(p)
	if parent == p {
		return p, nil
	}
	dir, err := resolvePath(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(p)), nil
}
