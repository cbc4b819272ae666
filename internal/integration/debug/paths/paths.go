// Package paths converts the paths and file URLs handed to a debug adapter
// into the forms used for script matching.
//
// Absoluteness is judged by both POSIX and Windows rules on every host, so
// a matcher built on one operating system still recognises paths reported
// by a debugger running on another.
package paths

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// fileURLPrefix is removed before decoding a file URL into a canonical path.
const fileURLPrefix = "file:///"

var driveLetterRe = regexp.MustCompile(`(?i)^[a-z]:/`)

// IsAbsolutePath reports whether s is absolute under POSIX or Windows rules.
func IsAbsolutePath(s string) bool {
	return IsPosixAbsolute(s) || IsWindowsAbsolute(s)
}

// IsPosixAbsolute reports whether s starts at the POSIX root.
func IsPosixAbsolute(s string) bool {
	return strings.HasPrefix(s, "/")
}

// IsWindowsAbsolute reports whether s is rooted under Windows rules: it
// starts with a separator (including UNC paths) or with a drive letter,
// colon and separator.
func IsWindowsAbsolute(s string) bool {
	if s == "" {
		return false
	}
	if isSeparator(s[0]) {
		return true
	}
	return hasDriveLetter(s) && len(s) > 2 && isSeparator(s[2])
}

// ToFileURL converts an absolute path to a file URL. Any other input must
// already be an absolute URL; otherwise an error wrapping ErrInvalidURL is
// returned.
func ToFileURL(pathOrURL string) (*url.URL, error) {
	if IsAbsolutePath(pathOrURL) {
		return fileURLFromPath(pathOrURL), nil
	}

	u, err := url.Parse(pathOrURL)
	if err != nil {
		return nil, invalidURL(pathOrURL, err)
	}
	if u.Scheme == "" {
		return nil, invalidURL(pathOrURL, nil)
	}
	return u, nil
}

// Canonical returns the canonical path string for pathOrURL: the file URL
// form with the "file:///" prefix removed, percent-decoded, and with a
// leading drive letter stripped. The result always uses forward slashes.
//
// A file URL with a host other than localhost names a UNC share and keeps
// its host as "//host/share/...".
func Canonical(pathOrURL string) (string, error) {
	u, err := ToFileURL(pathOrURL)
	if err != nil {
		return "", err
	}

	if u.Scheme == "file" && strings.EqualFold(u.Host, "localhost") {
		local := *u
		local.Host = ""
		u = &local
	}

	s := u.String()
	if isUNC(u) {
		s = strings.TrimPrefix(s, "file:")
	} else {
		s = strings.TrimPrefix(s, fileURLPrefix)
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return "", invalidURL(pathOrURL, err)
	}
	return TrimDriveLetter(decoded), nil
}

// TrimDriveLetter removes a leading "X:/" prefix, ignoring case.
func TrimDriveLetter(s string) string {
	if loc := driveLetterRe.FindStringIndex(s); loc != nil {
		return s[loc[1]:]
	}
	return s
}

// ToFilePath converts a file URL to a native path. Absolute paths are
// returned unchanged.
func ToFilePath(pathOrURL string) (string, error) {
	if IsAbsolutePath(pathOrURL) {
		return pathOrURL, nil
	}

	u, err := ToFileURL(pathOrURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: %s", ErrNotFileURL, pathOrURL)
	}

	p := u.Path
	if isUNC(u) {
		p = "//" + u.Host + p
	} else if len(p) >= 3 && p[0] == '/' && hasDriveLetter(p[1:]) {
		p = p[1:]
	}
	return filepath.FromSlash(p), nil
}

// fileURLFromPath builds the file URL for an absolute path.
func fileURLFromPath(p string) *url.URL {
	u := &url.URL{Scheme: "file"}

	if !isWindowsForm(p) {
		u.Path = cleanSlashPath(p)
		return u
	}

	p = strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(p, "//") {
		// UNC path: //host/share/...
		rest := strings.TrimLeft(p, "/")
		host, tail, _ := strings.Cut(rest, "/")
		u.Host = host
		u.Path = cleanSlashPath("/" + tail)
		return u
	}
	if hasDriveLetter(p) {
		p = "/" + p
	}
	u.Path = cleanSlashPath(p)
	return u
}

func isUNC(u *url.URL) bool {
	return u.Scheme == "file" && u.Host != "" && !strings.EqualFold(u.Host, "localhost")
}

// isWindowsForm reports whether p should be read with Windows separators.
// Exactly two leading slashes name a UNC share.
func isWindowsForm(p string) bool {
	if strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "///") {
		return true
	}
	return hasDriveLetter(p) || strings.HasPrefix(p, `\`)
}

// cleanSlashPath resolves "." and ".." elements and keeps a trailing slash.
func cleanSlashPath(p string) string {
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

func hasDriveLetter(s string) bool {
	if len(s) < 2 || s[1] != ':' {
		return false
	}
	c := s[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isSeparator(c byte) bool {
	return c == '/' || c == '\\'
}
