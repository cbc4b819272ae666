// Package scriptregex builds the regular expressions a debug adapter uses
// to recognise a local script in the URLs reported by a script engine.
//
// A script regex is anchored at the start of the reported identifier and
// open at the end, so identifiers that carry a query or fragment still
// match. Path segments are joined with a class accepting either separator,
// which keeps segment boundaries explicit. When symlink resolution is
// enabled and the real location differs, the regex is the alternation of
// the as-given and the resolved forms.
package scriptregex

import (
	"strings"

	"github.com/dshills/scriptmatch/internal/integration/debug/paths"
	"github.com/dshills/scriptmatch/internal/integration/debug/pattern"
)

const (
	// slashClass matches a POSIX or a Windows separator.
	slashClass = `[\\/]`

	// rootPrefix matches the root of an absolute path: a slash, or a drive
	// letter with optional leading slash.
	rootPrefix = `(?:\/|\/?\w:` + slashClass + `)`

	// uncPrefix matches the doubled separator in front of a UNC host. A
	// file URL for the share has already spent it on "file://".
	uncPrefix = `(?:` + slashClass + slashClass + `)?`
)

// Builder builds script regexes.
type Builder struct {
	// Resolver finds the real location of a path. Nil uses the host file
	// system.
	Resolver paths.Resolver

	// ResolveSymlinks adds the resolved form of the path to the regex.
	ResolveSymlinks bool

	// CaseSensitive disables case-tolerant matching.
	CaseSensitive bool
}

// NewBuilder creates a builder that resolves symlinks against the host file
// system and matches without regard to case.
func NewBuilder() *Builder {
	return &Builder{
		Resolver:        paths.OSResolver{},
		ResolveSymlinks: true,
	}
}

// BuildScriptRegex builds the script regex for an absolute path or URL
// using the host file system for symlink resolution.
func BuildScriptRegex(pathOrURL string, resolveSymlinks, caseSensitive bool) (string, error) {
	b := &Builder{
		Resolver:        paths.OSResolver{},
		ResolveSymlinks: resolveSymlinks,
		CaseSensitive:   caseSensitive,
	}
	return b.Build(pathOrURL)
}

// Build returns the script regex for pathOrURL. The only error is a
// normalization failure wrapping paths.ErrInvalidURL; failing to resolve a
// symlink is not an error.
func (b *Builder) Build(pathOrURL string) (string, error) {
	linkRegex, err := b.PathRegex(pathOrURL)
	if err != nil {
		return "", err
	}
	if !b.ResolveSymlinks {
		return linkRegex, nil
	}

	realPath, ok := b.RealPath(pathOrURL)
	if !ok {
		return linkRegex, nil
	}

	realRegex, err := b.PathRegex(realPath)
	if err != nil {
		return linkRegex, nil
	}
	if realRegex == linkRegex {
		return linkRegex, nil
	}
	return linkRegex + "|" + realRegex, nil
}

// PathRegex builds the regex for pathOrURL exactly as given, without
// consulting the resolver.
func (b *Builder) PathRegex(pathOrURL string) (string, error) {
	canonical, err := paths.Canonical(pathOrURL)
	if err != nil {
		return "", err
	}

	c := pattern.NewCompiler(b.CaseSensitive)

	var sb strings.Builder
	sb.WriteString(`^(?:`)
	sb.WriteString(c.String("file"))
	sb.WriteString(`:\/\/)?`)
	sb.WriteString(rootPrefix)
	sb.WriteString("?")

	if rest, ok := strings.CutPrefix(canonical, "//"); ok {
		sb.WriteString(uncPrefix)
		canonical = rest
	}

	for i, segment := range strings.Split(canonical, "/") {
		if i > 0 {
			sb.WriteString(slashClass)
		}
		sb.WriteString(c.String(segment))
	}
	return sb.String(), nil
}

// RealPath resolves pathOrURL with the builder's resolver.
func (b *Builder) RealPath(pathOrURL string) (string, bool) {
	return b.resolver().RealPath(pathOrURL)
}

func (b *Builder) resolver() paths.Resolver {
	if b.Resolver == nil {
		return paths.OSResolver{}
	}
	return b.Resolver
}
