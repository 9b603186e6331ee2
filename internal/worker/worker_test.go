package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/fatih/color"

	"github.com/drape-io/virtphp/internal/config"
	"github.com/drape-io/virtphp/internal/output"
	"github.com/drape-io/virtphp/internal/prompt"
	"github.com/drape-io/virtphp/internal/registry"
	"github.com/drape-io/virtphp/internal/runner"
)

func init() {
	color.NoColor = true
}

type fakeFetcher struct {
	dir   string
	fail  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, uri string) (string, error) {
	f.calls = append(f.calls, uri)
	if err := f.fail[uri]; err != nil {
		return "", err
	}
	path := filepath.Join(f.dir, filepath.Base(uri))
	if err := os.WriteFile(path, []byte("<?php // installer\n"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fixture struct {
	root    string
	base    string
	phpDir  string
	store   *registry.Store
	backend *registry.MemoryBackend
	run     *runner.Fake
	fetch   *fakeFetcher
	confirm *prompt.Fixed
	vars    map[string]string
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	cfg     *config.Config
}

// newFixture lays out a fake system php and scripts the PEAR and Composer
// installers run through an environment's bin/php.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	f := &fixture{
		root:    root,
		base:    filepath.Join(root, "envs"),
		phpDir:  filepath.Join(root, "php", "bin"),
		run:     &runner.Fake{},
		fetch:   &fakeFetcher{dir: filepath.Join(root, "cache")},
		confirm: &prompt.Fixed{Answer: true},
		vars:    map[string]string{},
		out:     &bytes.Buffer{},
		errOut:  &bytes.Buffer{},
	}
	for _, dir := range []string{f.base, f.phpDir, f.fetch.dir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, filepath.Join(f.phpDir, "php"), "#!/bin/sh\n", 0o755)

	f.store, f.backend = registry.NewMemoryStore(f.base)
	f.cfg = config.Default(filepath.Join(root, "home"))
	f.cfg.InstallPath = f.base

	systemPhp := filepath.Join(f.phpDir, "php")
	f.run.Paths = map[string]string{"php": systemPhp}
	f.run.On(systemPhp, runner.Exit(0, "PHP 8.2.10 (cli) (built: Sep  1 2023 10:00:00) (NTS)\n"))
	f.run.Handlers = append(f.run.Handlers, runner.Handler{
		Match: func(c runner.Command) bool {
			return c.Dir != "" && c.Name == filepath.Join(c.Dir, "bin", "php")
		},
		Reply: func(c runner.Command) (runner.Result, error) {
			bin := filepath.Join(c.Dir, "bin")
			if slices.Contains(c.Args, "--filename=composer") {
				return runner.Result{}, os.WriteFile(filepath.Join(bin, "composer"), []byte("phar"), 0o755)
			}
			// PEAR's launchers hard-code the php binary and include dir.
			launcher := fmt.Sprintf("#!/bin/sh\nPHP=%s\nINCDIR=%s\nexec \"$PHP\" -C -q -d include_path=\"$INCDIR\" \"$INCDIR/pearcmd.php\" \"$@\"\n",
				filepath.Join(bin, "php"), filepath.Join(c.Dir, "share", "php"))
			for _, name := range []string{"pear", "pecl"} {
				if err := os.WriteFile(filepath.Join(bin, name), []byte(launcher), 0o755); err != nil {
					return runner.Result{}, err
				}
			}
			return runner.Result{Output: "PEAR installed"}, nil
		},
	})
	return f
}

func (f *fixture) deps() Deps {
	return Deps{
		Registry: f.store,
		Runner:   f.run,
		Fetcher:  f.fetch,
		Printer:  output.New(f.out, f.errOut),
		Confirm:  f.confirm,
		Config:   f.cfg,
		Getenv:   func(k string) string { return f.vars[k] },
	}
}

// failInstaller makes every command carrying arg exit with status 1.
func (f *fixture) failInstaller(arg string) {
	f.run.Handlers = slices.Insert(f.run.Handlers, 0, runner.Handler{
		Match: func(c runner.Command) bool { return slices.Contains(c.Args, arg) },
		Reply: runner.Exit(1, "installer exploded"),
	})
}

func (f *fixture) create(t *testing.T, name string) string {
	t.Helper()
	res := NewCreator(f.deps(), Request{Name: name, BasePath: f.base, PhpBinDir: f.phpDir}).Execute(context.Background())
	if !res.OK {
		t.Fatalf("create %s failed: %v\n%s", name, res.Err, f.errOut.String())
	}
	return filepath.Join(f.base, name)
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestNew(t *testing.T) {
	f := newFixture(t)

	for _, cmd := range Commands() {
		w, err := New(cmd, f.deps(), Request{})
		if err != nil {
			t.Errorf("New(%s) error = %v", cmd, err)
		}
		if w == nil {
			t.Errorf("New(%s) returned nil workflow", cmd)
		}
	}

	if _, err := New("upgrade", f.deps(), Request{}); err == nil {
		t.Error("expected error for unknown command")
	}

	want := []Command{Activate, Clone, Create, Destroy, Show}
	if got := Commands(); !slices.Equal(got, want) {
		t.Errorf("Commands() = %v, want %v", got, want)
	}
}
