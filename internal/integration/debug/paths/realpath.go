package paths

import (
	"path/filepath"
)

// Resolver resolves a path or file URL to its symlink-free location.
// Failure of any kind is reported as ok == false; callers treat it as
// "no better path is known".
type Resolver interface {
	RealPath(pathOrURL string) (realPath string, ok bool)
}

// RealPathFunc adapts a fallible resolution function to a Resolver.
type RealPathFunc func(pathOrURL string) (string, error)

// RealPath calls f and folds every error into ok == false.
func (f RealPathFunc) RealPath(pathOrURL string) (string, bool) {
	realPath, err := f(pathOrURL)
	if err != nil || realPath == "" {
		return "", false
	}
	return realPath, true
}

// OSResolver resolves paths against the host file system.
type OSResolver struct{}

// RealPath implements Resolver.
func (OSResolver) RealPath(pathOrURL string) (string, bool) {
	return ResolveRealPath(pathOrURL)
}

// ResolveRealPath returns the absolute, symlink-free form of pathOrURL.
// It returns false when the path does not exist, cannot be read, or is not
// a file path at all.
func ResolveRealPath(pathOrURL string) (string, bool) {
	p, err := ToFilePath(pathOrURL)
	if err != nil {
		return "", false
	}

	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", false
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", false
	}
	return abs, true
}
