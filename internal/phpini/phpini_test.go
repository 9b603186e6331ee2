package phpini

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drape-io/virtphp/internal/env"
	"github.com/drape-io/virtphp/internal/errs"
)

var testEnv = &env.Environment{Name: "myenv", BasePath: "/path/to/virtphp/project"}

func TestPatchAppends(t *testing.T) {
	input := "foo = \"myfoo\"\nbar = \"mybar\""
	expected := `foo = "myfoo"
bar = "mybar"

;; New VirtPHP include_path value:
include_path = ".:/path/to/virtphp/project/myenv/share/php"


;; New VirtPHP extension_dir value:
extension_dir = "/path/to/virtphp/project/myenv/lib/php"
`

	got, steps := Patch(input, Directives(testEnv))
	if got != expected {
		t.Errorf("Patch() =\n%s\nwant\n%s", got, expected)
	}
	wantSteps := []string{
		"  adding new include_path setting with virtual env path",
		"  adding new extension_dir setting with virtual env path",
	}
	assertSteps(t, steps, wantSteps)
}

func TestPatchReplaces(t *testing.T) {
	input := `foo = "myfoo"
bar = "mybar"
include_path = ".:/path/to/old/share/php"
extension_dir = "/path/to/old/lib/php"`
	expected := `foo = "myfoo"
bar = "mybar"


;; Old include_path value
; include_path = ".:/path/to/old/share/php"
;; New VirtPHP include_path value:
include_path = ".:/path/to/virtphp/project/myenv/share/php"



;; Old extension_dir value
; extension_dir = "/path/to/old/lib/php"
;; New VirtPHP extension_dir value:
extension_dir = "/path/to/virtphp/project/myenv/lib/php"
`

	got, steps := Patch(input, Directives(testEnv))
	if got != expected {
		t.Errorf("Patch() =\n%q\nwant\n%q", got, expected)
	}
	assertSteps(t, steps, []string{
		"  replacing active include_path with virtual env path",
		"  replacing active extension_dir with virtual env path",
	})
}

func TestPatchKeepsBlankLines(t *testing.T) {
	input := "foo = 1\n\n\n  include_path = /old\nbar = 2\n"
	got, _ := Patch(input, Directives(testEnv)[:1])

	if !strings.HasPrefix(got, "foo = 1\n\n\n\n\n;; Old include_path value\n; include_path = /old\n") {
		t.Errorf("blank lines before the directive were lost:\n%q", got)
	}
	if !strings.HasSuffix(got, "\nbar = 2\n") {
		t.Errorf("lines after the directive changed:\n%q", got)
	}
}

func TestPatchIgnoresComments(t *testing.T) {
	input := "; include_path = \".:/old\"\nINCLUDE_PATH=/x\n"
	got, steps := Patch(input, Directives(testEnv)[:1])

	if !strings.HasPrefix(got, "; include_path = \".:/old\"\n") {
		t.Error("commented directive should be left alone")
	}
	if !strings.Contains(got, "; INCLUDE_PATH=/x") {
		t.Error("directive match should be case-insensitive")
	}
	assertSteps(t, steps, []string{"  replacing active include_path with virtual env path"})
}

func TestDefault(t *testing.T) {
	ini := Default(testEnv)
	if !strings.Contains(ini, `include_path = ".:/path/to/virtphp/project/myenv/share/php"`) {
		t.Error("default php.ini does not use the environment include dir")
	}
}

func TestFromCustom(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, _, err := FromCustom(testEnv, filepath.Join(dir, "missing.ini"))
		if !errs.IsKind(err, errs.InvalidArgument) {
			t.Errorf("expected InvalidArgument, got %v", err)
		}
	})

	t.Run("present", func(t *testing.T) {
		path := filepath.Join(dir, "php.ini")
		if err := os.WriteFile(path, []byte("memory_limit = 1G\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		ini, steps, err := FromCustom(testEnv, path)
		if err != nil {
			t.Fatalf("FromCustom() error = %v", err)
		}
		if !strings.HasPrefix(ini, "memory_limit = 1G\n") {
			t.Error("custom settings lost")
		}
		if len(steps) != 2 {
			t.Errorf("expected 2 steps, got %d", len(steps))
		}
	})
}

func assertSteps(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d steps, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, got[i], want[i])
		}
	}
}
