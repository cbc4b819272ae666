// Package pattern compiles literal path text into regular expression
// fragments that tolerate the case and percent-encoding differences a
// script engine may introduce when it reports a script URL.
//
// Every character is rendered independently. A character contributes a
// Group of equivalent textual forms (raw, escaped, percent-encoded and, for
// case-insensitive matching, the forms of its lower and upper case), and
// the group is rendered as a literal, a character class or a non-capturing
// alternation depending on what it contains.
//
// The produced fragments use only syntax shared by RE2 and ECMAScript
// regular expressions, so a pattern can be compiled locally with regexp and
// also handed to a JavaScript engine as a breakpoint urlRegex.
package pattern

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// metaChars are escaped with a backslash before insertion.
const metaChars = `/\.?*()^${}|[]+`

// Group is the deduplicated set of textual alternatives for one character
// at one position. Alternatives keep their first-insertion order so that
// rendering is deterministic.
type Group struct {
	alts []string
	seen map[string]struct{}
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{seen: make(map[string]struct{})}
}

// Add inserts an alternative. It reports whether the alternative was new.
func (g *Group) Add(alt string) bool {
	if g.seen == nil {
		g.seen = make(map[string]struct{})
	}
	if _, ok := g.seen[alt]; ok {
		return false
	}
	g.seen[alt] = struct{}{}
	g.alts = append(g.alts, alt)
	return true
}

// Len returns the number of distinct alternatives.
func (g *Group) Len() int {
	return len(g.alts)
}

// Alternatives returns a copy of the alternatives in insertion order.
func (g *Group) Alternatives() []string {
	result := make([]string, len(g.alts))
	copy(result, g.alts)
	return result
}

// Render returns the regex fragment for the group.
//
// No alternatives render as the empty string and a single alternative as
// itself. Two or more alternatives that are each a single character become
// a character class; anything else becomes a non-capturing alternation.
func (g *Group) Render() string {
	switch len(g.alts) {
	case 0:
		return ""
	case 1:
		return g.alts[0]
	}

	for _, alt := range g.alts {
		if utf8.RuneCountInString(alt) != 1 {
			return "(?:" + strings.Join(g.alts, "|") + ")"
		}
	}
	return "[" + strings.Join(g.alts, "") + "]"
}

// CodePoint adds the forms of cp to g.
//
// A colon is only ever inserted literally: it separates ports in URLs and
// is rejected by most file systems, so an encoded colon is not expected.
// cp is normally a single code point but may be longer when it is the
// result of a case mapping (the upper case of "ß" is "SS").
func CodePoint(cp string, g *Group) {
	if cp == ":" {
		g.Add(cp)
		return
	}

	if len(cp) == 1 && strings.IndexByte(metaChars, cp[0]) >= 0 {
		g.Add(`\` + cp)
	} else {
		g.Add(cp)
	}

	if encoded := EncodeComponent(cp); encoded != cp {
		g.Add(encoded)
	}
}

// Compiler renders characters and strings. A Compiler holds case mappers,
// which keep internal state, so it must not be shared between goroutines.
// The package-level functions allocate a Compiler per call.
type Compiler struct {
	caseSensitive bool
	lower         cases.Caser
	upper         cases.Caser
}

// NewCompiler creates a compiler.
func NewCompiler(caseSensitive bool) *Compiler {
	c := &Compiler{caseSensitive: caseSensitive}
	if !caseSensitive {
		c.lower = cases.Lower(language.Und)
		c.upper = cases.Upper(language.Und)
	}
	return c
}

// CaseSensitive reports whether the compiler keeps characters as given.
func (c *Compiler) CaseSensitive() bool {
	return c.caseSensitive
}

// Group builds the pattern group for a single character.
func (c *Compiler) Group(r rune) *Group {
	g := NewGroup()
	cp := string(r)
	if c.caseSensitive {
		CodePoint(cp, g)
		return g
	}
	CodePoint(c.lower.String(cp), g)
	CodePoint(c.upper.String(cp), g)
	return g
}

// String renders s one character at a time and concatenates the fragments.
//
// A byte that is not valid UTF-8 cannot appear in an RE2 pattern. It is
// rendered as U+FFFD, which is what regexp decodes the raw byte to in its
// input, or as its percent-encoded form.
func (c *Compiler) String(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteString(InvalidByte(s[i]).Render())
		} else {
			b.WriteString(c.Group(r).Render())
		}
		i += size
	}
	return b.String()
}

// InvalidByte builds the group for a byte that does not start a valid UTF-8
// sequence.
func InvalidByte(v byte) *Group {
	g := NewGroup()
	g.Add(string(utf8.RuneError))
	g.Add(EncodeComponent(string([]byte{v})))
	return g
}

// Compile builds the pattern group for r.
func Compile(r rune, caseSensitive bool) *Group {
	return NewCompiler(caseSensitive).Group(r)
}

// String renders s as a regex fragment.
func String(s string, caseSensitive bool) string {
	return NewCompiler(caseSensitive).String(s)
}

// EncodeComponent percent-encodes s the way a URI component encoder does:
// ASCII letters, digits and -_.!~*'() are kept and every other byte of the
// UTF-8 form becomes %XX with upper-case hex digits.
func EncodeComponent(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	const hex = "0123456789ABCDEF"
	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			buf = append(buf, c)
			continue
		}
		buf = append(buf, '%', hex[c>>4], hex[c&0x0f])
	}
	return string(buf)
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
