package scriptregex

import (
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of compiled regexes a Matcher keeps.
const DefaultCacheSize = 128

// Script is a compiled script regex for one path.
type Script struct {
	// Path is the path or URL the regex was built for.
	Path string

	// Pattern is the regex source, suitable for a breakpoint urlRegex.
	Pattern string

	re *regexp.Regexp
}

// Match reports whether a script identifier refers to this script.
func (s *Script) Match(scriptID string) bool {
	return s.re.MatchString(scriptID)
}

// Regexp returns the compiled regex.
func (s *Script) Regexp() *regexp.Regexp {
	return s.re
}

// Matcher compiles script regexes and keeps recently used programs in a
// bounded cache keyed by pattern text. Only compiled regexes are cached;
// every ForPath call consults the resolver again.
//
// Matcher is safe for concurrent use.
type Matcher struct {
	builder *Builder
	cache   *lru.Cache[string, *regexp.Regexp]
}

// NewMatcher creates a matcher. A nil builder uses NewBuilder; a size of
// zero or less uses DefaultCacheSize.
func NewMatcher(builder *Builder, size int) (*Matcher, error) {
	if builder == nil {
		builder = NewBuilder()
	}
	if size <= 0 {
		size = DefaultCacheSize
	}

	cache, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		return nil, fmt.Errorf("create regex cache: %w", err)
	}

	return &Matcher{builder: builder, cache: cache}, nil
}

// Compile returns the compiled form of a script regex.
func (m *Matcher) Compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := m.cache.Get(pattern); ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile script regex: %w", err)
	}
	m.cache.Add(pattern, re)
	return re, nil
}

// Matches reports whether scriptID matches pattern.
func (m *Matcher) Matches(pattern, scriptID string) (bool, error) {
	re, err := m.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(scriptID), nil
}

// ForPath builds and compiles the script regex for pathOrURL.
func (m *Matcher) ForPath(pathOrURL string) (*Script, error) {
	source, err := m.builder.Build(pathOrURL)
	if err != nil {
		return nil, err
	}

	re, err := m.Compile(source)
	if err != nil {
		return nil, err
	}

	return &Script{Path: pathOrURL, Pattern: source, re: re}, nil
}

// Builder returns the builder used by ForPath.
func (m *Matcher) Builder() *Builder {
	return m.builder
}

// Len returns the number of cached regexes.
func (m *Matcher) Len() int {
	return m.cache.Len()
}
