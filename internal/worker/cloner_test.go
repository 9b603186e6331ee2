package worker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drape-io/virtphp/internal/env"
	"github.com/drape-io/virtphp/internal/errs"
	"github.com/drape-io/virtphp/internal/output"
	"github.com/drape-io/virtphp/internal/pearconf"
	"github.com/drape-io/virtphp/internal/phpser"
)

// canonical resolves symlinks in a temp path so comparisons hold on systems
// where the temp dir is itself a link.
func canonical(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatal(err)
	}
	return resolved
}

func TestClone(t *testing.T) {
	f := newFixture(t)
	source := f.create(t, "foobar")

	res := NewCloner(f.deps(), Request{Name: "foobar2", Source: source}).Execute(context.Background())
	if !res.OK {
		t.Fatalf("clone failed: %v\n%s", res.Err, f.errOut.String())
	}

	dest := canonical(t, filepath.Join(f.base, "foobar2"))
	oldRoot := source + string(os.PathSeparator)

	t.Run("php.ini rewritten", func(t *testing.T) {
		ini := readFile(t, filepath.Join(dest, "etc", "php.ini"))
		if strings.Contains(ini, oldRoot) {
			t.Errorf("php.ini still references %s:\n%s", source, ini)
		}
		if !strings.Contains(ini, filepath.Join(dest, "share", "php")) {
			t.Errorf("php.ini does not reference the clone:\n%s", ini)
		}
	})

	t.Run("scripts rewritten", func(t *testing.T) {
		for _, name := range []string{"activate", "php", "pear", "pecl", "pear.orig", "pecl.orig"} {
			script := readFile(t, filepath.Join(dest, "bin", name))
			if strings.Contains(script, oldRoot) || strings.Contains(script, source+`"`) {
				t.Errorf("bin/%s still references %s:\n%s", name, source, script)
			}
			if !strings.Contains(script, dest) {
				t.Errorf("bin/%s does not reference the clone:\n%s", name, script)
			}
		}
	})

	t.Run("pear launchers run the clone", func(t *testing.T) {
		launcher := readFile(t, filepath.Join(dest, "bin", "pear.orig"))
		if !strings.Contains(launcher, "PHP="+filepath.Join(dest, "bin", "php")+"\n") {
			t.Errorf("pear.orig does not use the clone's php:\n%s", launcher)
		}
		if !strings.Contains(launcher, "INCDIR="+filepath.Join(dest, "share", "php")+"\n") {
			t.Errorf("pear.orig does not use the clone's include dir:\n%s", launcher)
		}
	})

	t.Run("pear.conf rewritten", func(t *testing.T) {
		settings, err := pearconf.Read(filepath.Join(dest, "etc", "pear.conf"))
		if err != nil {
			t.Fatal(err)
		}
		if v, _ := settings.Lookup("bin_dir"); v != phpser.String(filepath.Join(dest, "bin")) {
			t.Errorf("unexpected bin_dir %v", v)
		}
		if v, _ := settings.Lookup("auto_discover"); v != phpser.Int(1) {
			t.Errorf("non-path setting changed: %v", v)
		}
	})

	t.Run("bin permissions", func(t *testing.T) {
		info, err := os.Stat(filepath.Join(dest, "bin", "activate"))
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o755 {
			t.Errorf("expected 0755, got %v", info.Mode().Perm())
		}
	})

	t.Run("source untouched", func(t *testing.T) {
		ini := readFile(t, filepath.Join(source, "etc", "php.ini"))
		if strings.Contains(ini, "foobar2") {
			t.Error("source php.ini was modified")
		}
	})

	t.Run("registry", func(t *testing.T) {
		records, err := f.store.Load()
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := records["foobar"]; !ok {
			t.Error("source record missing")
		}
		if rec, ok := records["foobar2"]; !ok || rec.Path != f.base {
			t.Errorf("unexpected clone record %+v", rec)
		}
	})
}

func TestCloneByName(t *testing.T) {
	f := newFixture(t)
	f.create(t, "foobar")

	dest := filepath.Join(f.root, "elsewhere")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatal(err)
	}

	res := NewCloner(f.deps(), Request{Name: "copy", Source: "foobar", BasePath: dest}).Execute(context.Background())
	if !res.OK {
		t.Fatalf("clone failed: %v", res.Err)
	}
	if !env.IsManaged(filepath.Join(dest, "copy")) {
		t.Error("expected clone under the requested base path")
	}
}

func TestClonePreconditions(t *testing.T) {
	t.Run("invalid name", func(t *testing.T) {
		f := newFixture(t)
		source := f.create(t, "foobar")
		res := NewCloner(f.deps(), Request{Name: "foo.bar", Source: source}).Execute(context.Background())
		if !errs.IsKind(res.Err, errs.InvalidName) {
			t.Fatalf("expected InvalidName, got %v", res.Err)
		}
	})

	t.Run("source without marker", func(t *testing.T) {
		f := newFixture(t)
		source := filepath.Join(f.base, "plain")
		writeFile(t, filepath.Join(source, "etc", "php.ini"), "", 0o644)

		res := NewCloner(f.deps(), Request{Name: "copy", Source: source}).Execute(context.Background())
		if !errs.IsKind(res.Err, errs.InvalidSource) {
			t.Fatalf("expected InvalidSource, got %v", res.Err)
		}
		if _, err := os.Stat(filepath.Join(f.base, "copy")); !errors.Is(err, os.ErrNotExist) {
			t.Error("destination should not be created")
		}
	})

	t.Run("missing source", func(t *testing.T) {
		f := newFixture(t)
		res := NewCloner(f.deps(), Request{Name: "copy", Source: filepath.Join(f.base, "nope")}).Execute(context.Background())
		if !errs.IsKind(res.Err, errs.InvalidSource) {
			t.Fatalf("expected InvalidSource, got %v", res.Err)
		}
	})

	t.Run("destination exists", func(t *testing.T) {
		f := newFixture(t)
		source := f.create(t, "foobar")
		writeFile(t, filepath.Join(f.base, "copy", "keep"), "data", 0o644)

		res := NewCloner(f.deps(), Request{Name: "copy", Source: source}).Execute(context.Background())
		if !errs.IsKind(res.Err, errs.AlreadyExists) {
			t.Fatalf("expected AlreadyExists, got %v", res.Err)
		}
		if readFile(t, filepath.Join(f.base, "copy", "keep")) != "data" {
			t.Error("existing destination must not be touched")
		}
	})

	t.Run("destination inside source", func(t *testing.T) {
		f := newFixture(t)
		source := f.create(t, "foobar")
		res := NewCloner(f.deps(), Request{Name: "copy", Source: source, BasePath: source}).Execute(context.Background())
		if !errs.IsKind(res.Err, errs.InvalidPath) {
			t.Fatalf("expected InvalidPath, got %v", res.Err)
		}
	})
}

func TestCloneFailureCleansUp(t *testing.T) {
	f := newFixture(t)
	source := f.create(t, "foobar")
	if err := os.Remove(filepath.Join(source, "etc", "php.ini")); err != nil {
		t.Fatal(err)
	}

	res := NewCloner(f.deps(), Request{Name: "foobar2", Source: source}).Execute(context.Background())
	if !errs.IsKind(res.Err, errs.CloneFailed) {
		t.Fatalf("expected CloneFailed, got %v", res.Err)
	}
	if _, err := os.Stat(filepath.Join(f.base, "foobar2")); !errors.Is(err, os.ErrNotExist) {
		t.Error("partial clone should be removed")
	}
	if _, ok, _ := f.store.Lookup("foobar2"); ok {
		t.Error("failed clone must not be registered")
	}
	if !strings.Contains(f.errOut.String(), "Error: cloning directory failed.") {
		t.Errorf("expected failure notice, got:\n%s", f.errOut.String())
	}
}

func TestCloneVersionWarning(t *testing.T) {
	f := newFixture(t)
	source := f.create(t, "foobar")
	if err := env.WriteMarker(source, "0.1.0"); err != nil {
		t.Fatal(err)
	}

	res := NewCloner(f.deps(), Request{Name: "foobar2", Source: source}).Execute(context.Background())
	if !res.OK {
		t.Fatalf("clone failed: %v", res.Err)
	}
	if !strings.Contains(f.out.String(), "created by VirtPHP 0.1.0") {
		t.Errorf("expected version warning, got:\n%s", f.out.String())
	}
}

// hookWriter runs fn the first time a write contains trigger.
type hookWriter struct {
	bytes.Buffer
	trigger string
	fn      func()
}

func (w *hookWriter) Write(p []byte) (int, error) {
	if w.fn != nil && bytes.Contains(p, []byte(w.trigger)) {
		w.fn()
		w.fn = nil
	}
	return w.Buffer.Write(p)
}

func TestCloneKeepsDestinationItDidNotCreate(t *testing.T) {
	f := newFixture(t)
	source := f.create(t, "foobar")
	if err := env.WriteMarker(source, "0.1.0"); err != nil {
		t.Fatal(err)
	}

	// The destination shows up between the checks and the copy.
	dest := filepath.Join(f.base, "foobar2")
	out := &hookWriter{trigger: "created by VirtPHP", fn: func() {
		writeFile(t, filepath.Join(dest, "keep"), "data", 0o644)
	}}
	deps := f.deps()
	deps.Printer = output.New(out, f.errOut)

	res := NewCloner(deps, Request{Name: "foobar2", Source: source}).Execute(context.Background())
	if !errs.IsKind(res.Err, errs.CloneFailed) {
		t.Fatalf("expected CloneFailed, got %v", res.Err)
	}
	if readFile(t, filepath.Join(dest, "keep")) != "data" {
		t.Error("a destination the clone did not create must be left alone")
	}
}
