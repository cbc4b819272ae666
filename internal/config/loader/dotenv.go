package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// DotEnvLoader reads prefixed variables from a .env file. The file is
// parsed without touching the process environment, so real environment
// variables still take precedence when layered after it.
type DotEnvLoader struct {
	fs   FileSystem
	path string
	env  *EnvLoader
}

// NewDotEnvLoader creates a loader for the .env file at path.
func NewDotEnvLoader(path, prefix string) *DotEnvLoader {
	return NewDotEnvLoaderWithFS(DefaultFS(), path, prefix)
}

// NewDotEnvLoaderWithFS creates a .env loader with a custom file system.
func NewDotEnvLoaderWithFS(fsys FileSystem, path, prefix string) *DotEnvLoader {
	return &DotEnvLoader{
		fs:   fsys,
		path: path,
		env:  NewEnvLoader(prefix),
	}
}

// Load reads the file. A missing file is not an error.
func (l *DotEnvLoader) Load() (map[string]any, error) {
	if l.path == "" {
		return nil, nil
	}

	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading env file %s: %w", l.path, err)
	}

	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Path: l.path, Message: err.Error(), Err: err}
	}
	return l.env.LoadVars(vars), nil
}
