package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/drape-io/virtphp/internal/errs"
)

func TestIsValidName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"foo-Bar_2013", true},
		{"foobar", true},
		{"a", true},
		{"5foo", false},
		{"foo.bar", false},
		{"", false},
		{"-foo", false},
		{"_foo", false},
		{"foo bar", false},
		{"foo/bar", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidName(tt.name); got != tt.expected {
				t.Errorf("IsValidName(%q) = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("valid name", func(t *testing.T) {
		e, err := New("myenv", "/foo/bar")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if e.Path() != "/foo/bar/myenv" {
			t.Errorf("expected /foo/bar/myenv, got %s", e.Path())
		}
		if e.PhpIni() != "/foo/bar/myenv/etc/php.ini" {
			t.Errorf("unexpected php.ini path %s", e.PhpIni())
		}
		if e.ExtensionDir() != "/foo/bar/myenv/lib/php" {
			t.Errorf("unexpected extension dir %s", e.ExtensionDir())
		}
		if e.IncludeDir() != "/foo/bar/myenv/share/php" {
			t.Errorf("unexpected include dir %s", e.IncludeDir())
		}
		if e.Bin("php") != "/foo/bar/myenv/bin/php" {
			t.Errorf("unexpected php wrapper path %s", e.Bin("php"))
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := New("3foo", "/foo/bar")
		if !errs.IsKind(err, errs.InvalidName) {
			t.Errorf("expected InvalidName, got %v", err)
		}
	})
}

func TestDirs(t *testing.T) {
	e := &Environment{Name: "myenv", BasePath: "/base"}
	dirs := e.Dirs()

	want := map[string]bool{
		"/base/myenv/bin":              false,
		"/base/myenv/etc":              false,
		"/base/myenv/lib/php":          false,
		"/base/myenv/share/php":        false,
		"/base/myenv/share/pear/cache": false,
		"/base/myenv/share/pear/www":   false,
	}
	for _, d := range dirs {
		if _, ok := want[d]; ok {
			want[d] = true
		}
	}
	for d, seen := range want {
		if !seen {
			t.Errorf("expected %s in Dirs()", d)
		}
	}
}

func TestNameFromPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"foobar", "foobar"},
		{"/tmp/envs/foobar", "foobar"},
		{"/tmp/envs/foobar/", "foobar"},
		{"/tmp/envs/foobar//", "foobar"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NameFromPath(tt.in); got != tt.want {
			t.Errorf("NameFromPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMarker(t *testing.T) {
	dir := t.TempDir()

	if IsManaged(dir) {
		t.Fatal("empty directory should not be managed")
	}

	if err := WriteMarker(dir, "1.2.3"); err != nil {
		t.Fatalf("WriteMarker() error = %v", err)
	}
	if !IsManaged(dir) {
		t.Error("expected directory to be managed after writing marker")
	}

	version, err := ReadMarker(dir)
	if err != nil {
		t.Fatalf("ReadMarker() error = %v", err)
	}
	if version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", version)
	}

	t.Run("marker directory does not count", func(t *testing.T) {
		other := t.TempDir()
		if err := os.Mkdir(filepath.Join(other, MarkerFile), 0o755); err != nil {
			t.Fatal(err)
		}
		if IsManaged(other) {
			t.Error("a directory named .virtphp is not a marker")
		}
	})
}

func TestSameMajor(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"1.0.0", "1.4.2", true},
		{"1.0.0", "2.0.0", false},
		{"@package_version@", "1.0.0", true},
	}
	for _, tt := range tests {
		if got := SameMajor(tt.a, tt.b); got != tt.want {
			t.Errorf("SameMajor(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
