package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/drape-io/virtphp/internal/env"
	"github.com/drape-io/virtphp/internal/errs"
	"github.com/drape-io/virtphp/internal/fsutil"
)

// Destroyer removes a managed environment and its registry record.
type Destroyer struct {
	deps Deps

	Target string
}

// NewDestroyer returns a Destroyer for the environment root req.Target.
func NewDestroyer(deps Deps, req Request) *Destroyer {
	return &Destroyer{deps: deps.withDefaults(), Target: req.Target}
}

func (d *Destroyer) Execute(_ context.Context) Result {
	p := d.deps.Printer

	path, err := d.check()
	if err != nil {
		p.Error("%s", err)
		return failed(err)
	}

	ok, err := d.deps.Confirm.Confirm(
		"Are you sure you want to delete this virtual environment?",
		fmt.Sprintf("Directory: %s\nWARNING: ALL FILES WILL BE REMOVED IN THIS DIRECTORY!", path),
	)
	if err != nil {
		p.Error("%s", err)
		return failed(err)
	}
	if !ok {
		p.Comment("This action has been canceled.")
		return failed(errs.New(errs.Canceled, "This action has been canceled."))
	}

	if err := d.Remove(path); err != nil {
		p.Error("%s", err)
		return failed(err)
	}

	p.Banner("Your virtual PHP environment has been destroyed.")
	p.Info("We deleted the contents of: %s", path)
	return succeeded()
}

// check verifies the target is an existing, managed, inactive environment
// and returns its absolute path.
func (d *Destroyer) check() (string, error) {
	path, err := filepath.Abs(d.Target)
	if err != nil {
		return "", errs.Wrap(errs.InvalidPath, err, "invalid path %s", d.Target)
	}

	if !fsutil.Exists(path) {
		return "", errs.New(errs.NotFound, "This directory does not exist!")
	}
	if !env.IsManaged(path) {
		return "", errs.New(errs.NotManaged, "This directory does not contain a valid VirtPHP environment!")
	}

	if active := d.deps.Getenv(d.deps.Config.ActiveEnvVar); active != "" && samePath(active, path) {
		return "", errs.New(errs.ActiveEnvironment, "You must deactivate this virtual environment before destroying it!")
	}
	return path, nil
}

// Remove deletes the tree at path and the registry record named after its
// last segment. It performs no safety checks.
func (d *Destroyer) Remove(path string) error {
	if err := d.removeTree(path); err != nil {
		return err
	}
	return d.unregister(path)
}

func (d *Destroyer) removeTree(path string) error {
	d.deps.Printer.Info("Removing directory structure")
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

func (d *Destroyer) unregister(path string) error {
	d.deps.Printer.Info("Removing environment from list")
	removed, err := d.deps.Registry.Remove(path)
	if err != nil {
		return err
	}
	d.deps.Logger.Debug("environment removed", "path", path, "unregistered", removed)
	return nil
}

// samePath compares two paths after resolving symlinks where possible.
func samePath(a, b string) bool {
	return resolve(a) == resolve(b)
}

func resolve(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
