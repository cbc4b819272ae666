package linkwatch

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"testing"
	"time"

	"github.com/dshills/scriptmatch/internal/integration/debug/paths"
	"github.com/dshills/scriptmatch/internal/integration/debug/scriptregex"
)

func fileURL(t *testing.T, p string) string {
	t.Helper()
	u, err := paths.ToFileURL(p)
	if err != nil {
		t.Fatalf("ToFileURL(%q): %v", p, err)
	}
	return u.String()
}

func writeFile(t *testing.T, p string) {
	t.Helper()
	if err := os.WriteFile(p, []byte("export {}"), 0644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

func TestNew_InitialPattern(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "app.js")
	writeFile(t, script)

	b := &scriptregex.Builder{}
	w, err := New(b, script)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	want, _ := b.Build(script)
	if w.Pattern() != want {
		t.Errorf("Pattern() = %q, want %q", w.Pattern(), want)
	}
	if len(w.WatchedDirs()) != 1 {
		t.Errorf("WatchedDirs() = %v, want one directory", w.WatchedDirs())
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", "app.js")

	_, err := New(&scriptregex.Builder{}, missing)
	if !errors.Is(err, ErrPathNotExist) {
		t.Errorf("expected ErrPathNotExist, got %v", err)
	}
}

func TestNew_InvalidInput(t *testing.T) {
	_, err := New(&scriptregex.Builder{}, "./relative.js")
	if !errors.Is(err, paths.ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}
}

func TestWatcher_RetargetedSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}

	dir := t.TempDir()
	first := filepath.Join(dir, "v1", "main.js")
	second := filepath.Join(dir, "v2", "main.js")
	for _, p := range []string{first, second} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		writeFile(t, p)
	}

	link := filepath.Join(dir, "current.js")
	if err := os.Symlink(first, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	w, err := New(scriptregex.NewBuilder(), link, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	resolvedSecond, _ := filepath.EvalSymlinks(filepath.Dir(second))
	secondURL := fileURL(t, filepath.Join(resolvedSecond, "main.js"))
	if regexp.MustCompile(w.Pattern()).MatchString(secondURL) {
		t.Fatalf("initial pattern already matches %q", secondURL)
	}

	if err := os.Remove(link); err != nil {
		t.Fatalf("remove link: %v", err)
	}
	if err := os.Symlink(second, link); err != nil {
		t.Fatalf("relink: %v", err)
	}

	select {
	case u := <-w.Updates():
		if u.Previous == u.Pattern {
			t.Error("update should carry a changed pattern")
		}
		if !regexp.MustCompile(u.Pattern).MatchString(secondURL) {
			t.Errorf("updated pattern %q does not match %q", u.Pattern, secondURL)
		}
		if w.Pattern() != u.Pattern {
			t.Error("Pattern() not updated")
		}
	case err := <-w.Errors():
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for update")
	}
}

func TestWatcher_RebuildUnchanged(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "app.js")
	writeFile(t, script)

	w, err := New(&scriptregex.Builder{}, script)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	u, changed, err := w.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if changed {
		t.Error("Rebuild should report no change")
	}
	if u.Pattern != w.Pattern() {
		t.Errorf("Rebuild pattern = %q, want %q", u.Pattern, w.Pattern())
	}
}

func TestWatcher_Close(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "app.js")
	writeFile(t, script)

	w, err := New(&scriptregex.Builder{}, script)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if _, _, err := w.Rebuild(); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Rebuild after Close = %v, want ErrWatcherClosed", err)
	}

	if _, ok := <-w.Updates(); ok {
		t.Error("Updates channel should be closed")
	}
}
