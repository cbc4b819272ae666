package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestIsAbsolutePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/usr/bin/node", true},
		{`C:\Users\a\b.js`, true},
		{"c:/Users/a/b.js", true},
		{`\\server\share\a.js`, true},
		{`\rooted\a.js`, true},
		{"./relative.js", false},
		{"relative.js", false},
		{"C:relative.js", false},
		{"file:///home/a.js", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsAbsolutePath(tt.path); got != tt.want {
			t.Errorf("IsAbsolutePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsPosixAndWindowsAbsolute(t *testing.T) {
	if IsPosixAbsolute(`C:\a`) {
		t.Error("drive path is not POSIX absolute")
	}
	if !IsWindowsAbsolute(`C:\a`) {
		t.Error("drive path is Windows absolute")
	}
	if !IsWindowsAbsolute("/a") {
		t.Error("rooted path is Windows absolute")
	}
	if IsWindowsAbsolute("C:") {
		t.Error("bare drive is not absolute")
	}
}

func TestToFileURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/home/user/project", "file:///home/user/project"},
		{"/path/with spaces/file.js", "file:///path/with%20spaces/file.js"},
		{"/a/./b/../c.js", "file:///a/c.js"},
		{"/dir/", "file:///dir/"},
		{`C:\Users\a\b.js`, "file:///C:/Users/a/b.js"},
		{"d:/work/app.js", "file:///d:/work/app.js"},
		{`\\server\share\app.js`, "file://server/share/app.js"},
		{"//server/share/app.js", "file://server/share/app.js"},
		{"/q/what?.js", "file:///q/what%3F.js"},
		{"/h/#tag.js", "file:///h/%23tag.js"},
		{"/caf\u00e9/x.js", "file:///caf%C3%A9/x.js"},
		{"file:///home/user/app.js", "file:///home/user/app.js"},
		{"FILE:///Home/App.js", "file:///Home/App.js"},
		{"http://localhost:3000/app.js", "http://localhost:3000/app.js"},
	}

	for _, tt := range tests {
		u, err := ToFileURL(tt.in)
		if err != nil {
			t.Errorf("ToFileURL(%q) error: %v", tt.in, err)
			continue
		}
		if got := u.String(); got != tt.want {
			t.Errorf("ToFileURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToFileURL_Invalid(t *testing.T) {
	inputs := []string{
		"./relative.js",
		"relative.js",
		"",
		"%zz",
		"://missing-scheme",
	}

	for _, in := range inputs {
		_, err := ToFileURL(in)
		if err == nil {
			t.Errorf("ToFileURL(%q) expected error", in)
			continue
		}
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ToFileURL(%q) error = %v, want ErrInvalidURL", in, err)
		}
		var urlErr *URLError
		if !errors.As(err, &urlErr) {
			t.Errorf("ToFileURL(%q) error is not *URLError", in)
		} else if urlErr.Input != in {
			t.Errorf("URLError.Input = %q, want %q", urlErr.Input, in)
		}
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/home/dev/app.js", "home/dev/app.js"},
		{"file:///home/dev/app.js", "home/dev/app.js"},
		{"/path/with spaces/a.js", "path/with spaces/a.js"},
		{"file:///path/with%20spaces/a.js", "path/with spaces/a.js"},
		{`C:\Users\a\b.js`, "Users/a/b.js"},
		{"file:///c:/Users/a/b.js", "Users/a/b.js"},
		{"/caf\u00e9.js", "caf\u00e9.js"},
		{"/", ""},
		{`\\server\share\a.js`, "//server/share/a.js"},
		{"//server/share/a.js", "//server/share/a.js"},
		{"///home/dev/app.js", "home/dev/app.js"},
		{"file://server/share/my%20a.js", "//server/share/my a.js"},
		{"file://localhost/home/dev/app.js", "home/dev/app.js"},
	}

	for _, tt := range tests {
		got, err := Canonical(tt.in)
		if err != nil {
			t.Errorf("Canonical(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonical_Invalid(t *testing.T) {
	if _, err := Canonical("./relative.js"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("Canonical relative path error = %v, want ErrInvalidURL", err)
	}
}

func TestTrimDriveLetter(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"C:/a/b", "a/b"},
		{"c:/a/b", "a/b"},
		{"a/b", "a/b"},
		{"CD:/a", "CD:/a"},
		{"C:a", "C:a"},
	}

	for _, tt := range tests {
		if got := TrimDriveLetter(tt.in); got != tt.want {
			t.Errorf("TrimDriveLetter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToFilePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/home/a.js", "/home/a.js"},
		{"file:///home/with%20space/a.js", filepath.FromSlash("/home/with space/a.js")},
		{"file:///C:/x/a.js", filepath.FromSlash("C:/x/a.js")},
		{"file://localhost/srv/a.js", filepath.FromSlash("/srv/a.js")},
		{"file://server/share/a.js", filepath.FromSlash("//server/share/a.js")},
	}

	for _, tt := range tests {
		got, err := ToFilePath(tt.in)
		if err != nil {
			t.Errorf("ToFilePath(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToFilePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToFilePath_NotFile(t *testing.T) {
	_, err := ToFilePath("https://example.com/a.js")
	if !errors.Is(err, ErrNotFileURL) {
		t.Errorf("expected ErrNotFileURL, got %v", err)
	}
}

func TestResolveRealPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}

	dir := t.TempDir()
	target := filepath.Join(dir, "real.js")
	if err := os.WriteFile(target, []byte("1"), 0644); err != nil {
		t.Fatalf("write target: %v", err)
	}
	link := filepath.Join(dir, "link.js")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	wantTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatalf("eval target: %v", err)
	}

	got, ok := ResolveRealPath(link)
	if !ok {
		t.Fatal("ResolveRealPath(link) failed")
	}
	if got != wantTarget {
		t.Errorf("ResolveRealPath(link) = %q, want %q", got, wantTarget)
	}

	u, _ := ToFileURL(link)
	got, ok = ResolveRealPath(u.String())
	if !ok || got != wantTarget {
		t.Errorf("ResolveRealPath(url) = %q, %v; want %q", got, ok, wantTarget)
	}
}

func TestResolveRealPath_Failures(t *testing.T) {
	inputs := []string{
		filepath.Join(t.TempDir(), "missing.js"),
		"./relative.js",
		"https://example.com/a.js",
	}

	for _, in := range inputs {
		if got, ok := ResolveRealPath(in); ok || got != "" {
			t.Errorf("ResolveRealPath(%q) = %q, %v; want failure", in, got, ok)
		}
	}
}

func TestRealPathFunc(t *testing.T) {
	ok := RealPathFunc(func(string) (string, error) { return "/real", nil })
	if got, found := ok.RealPath("/link"); !found || got != "/real" {
		t.Errorf("RealPath = %q, %v", got, found)
	}

	failing := RealPathFunc(func(string) (string, error) { return "", os.ErrNotExist })
	if _, found := failing.RealPath("/link"); found {
		t.Error("errors must collapse to not found")
	}

	empty := RealPathFunc(func(string) (string, error) { return "", nil })
	if _, found := empty.RealPath("/link"); found {
		t.Error("empty result must be treated as not found")
	}
}

func TestOSResolver(t *testing.T) {
	var r Resolver = OSResolver{}
	if _, ok := r.RealPath(filepath.Join(t.TempDir(), "nope")); ok {
		t.Error("missing path should not resolve")
	}
}
