package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drape-io/virtphp/internal/env"
	"github.com/drape-io/virtphp/internal/errs"
	"github.com/drape-io/virtphp/internal/fsutil"
	"github.com/drape-io/virtphp/internal/pearconf"
	"github.com/drape-io/virtphp/internal/phpser"
	"github.com/drape-io/virtphp/internal/rewrite"
)

// Generated bin scripts that embed the environment root, besides bin/php.
// The .orig scripts are PEAR's own launchers kept behind the wrappers.
var clonedWrappers = []string{
	"pear", "pecl", "peardev", "php-config",
	"pear.orig", "pecl.orig", "peardev.orig",
}

// Cloner copies an existing environment to a new root and repoints every
// generated artifact at it.
type Cloner struct {
	deps Deps

	Name string
	// Source is an environment root or a registered environment name.
	Source string
	// BasePath defaults to the parent directory of the source.
	BasePath string
}

// NewCloner returns a Cloner copying req.Source into req.BasePath/req.Name.
func NewCloner(deps Deps, req Request) *Cloner {
	return &Cloner{deps: deps.withDefaults(), Name: req.Name, Source: req.Source, BasePath: req.BasePath}
}

type clonePlan struct {
	source string
	// sourceNames are the spellings of the source root found in artifacts.
	sourceNames []string
	dest        *env.Environment
}

func (c *Cloner) Execute(_ context.Context) Result {
	p := c.deps.Printer

	pl, err := c.check()
	if err != nil {
		p.Error("%s", err)
		return failed(err)
	}

	c.checkVersion(pl.source)

	if err := os.Mkdir(pl.dest.Path(), fsutil.DirMode); err != nil {
		p.Error("Error: cloning directory failed.")
		err = errs.Wrap(errs.CloneFailed, err, "failed to create %s", pl.dest.Path())
		p.Error("%s", err)
		return failed(err)
	}

	if err := c.copy(pl); err != nil {
		p.Error("Error: cloning directory failed.")
		if rmErr := os.RemoveAll(pl.dest.Path()); rmErr != nil {
			c.deps.Logger.Warn("failed to remove partial clone", "path", pl.dest.Path(), "err", rmErr)
		}
		err = errs.Wrap(errs.CloneFailed, err, "cloning %s failed", pl.source)
		p.Error("%s", err)
		return failed(err)
	}

	if err := c.deps.Registry.Add(pl.dest.Name, pl.dest.BasePath); err != nil {
		p.Error("The clone was created at %s but could not be registered: %s", pl.dest.Path(), err)
		return failed(err)
	}

	p.Banner("Your new cloned virtual php environment has been created.")
	p.Info("Cloned from: %s", pl.source)
	return succeeded()
}

func (c *Cloner) check() (*clonePlan, error) {
	if !env.IsValidName(c.Name) {
		return nil, errs.New(errs.InvalidName, "Sorry, but that is not a valid environment name.")
	}

	source, err := c.sourcePath()
	if err != nil {
		return nil, err
	}
	if !fsutil.IsDir(source) {
		return nil, errs.New(errs.InvalidSource, "Sorry, but there is no VirtPHP environment at that location.")
	}
	if !env.IsManaged(source) {
		return nil, errs.New(errs.InvalidSource, "This directory does not contain a valid VirtPHP environment!")
	}

	names := []string{source}
	if resolved, err := filepath.EvalSymlinks(source); err == nil && resolved != source {
		names = append(names, resolved)
	}

	base := c.BasePath
	if base == "" {
		base = filepath.Dir(source)
	}
	if base, err = filepath.Abs(base); err != nil {
		return nil, errs.Wrap(errs.InvalidPath, err, "invalid destination %s", c.BasePath)
	}
	dest, err := env.New(c.Name, base)
	if err != nil {
		return nil, err
	}
	if within(dest.Path(), source) {
		return nil, errs.New(errs.InvalidPath, "Cannot clone %s into itself.", source)
	}
	if fsutil.Exists(dest.Path()) {
		return nil, errs.New(errs.AlreadyExists, "The directory for this environment already exists (%s).", dest.Path())
	}
	if !fsutil.IsWritable(base) {
		return nil, errs.New(errs.NotWritable,
			"The destination directory is not writable, and thus we cannot create the environment.")
	}

	return &clonePlan{source: source, sourceNames: names, dest: dest}, nil
}

// sourcePath resolves Source as a path, falling back to a registry lookup
// when no such directory exists.
func (c *Cloner) sourcePath() (string, error) {
	if !fsutil.Exists(c.Source) && env.IsValidName(c.Source) {
		rec, ok, err := c.deps.Registry.Lookup(c.Source)
		if err != nil {
			return "", err
		}
		if ok {
			return filepath.Join(rec.Path, rec.Name), nil
		}
	}
	abs, err := filepath.Abs(c.Source)
	if err != nil {
		return "", errs.Wrap(errs.InvalidSource, err, "invalid source %s", c.Source)
	}
	return abs, nil
}

// copy fills the already created destination from the source.
func (c *Cloner) copy(pl *clonePlan) error {
	p := c.deps.Printer
	dest := pl.dest

	// Rewrite to the canonical form of the new root, like the source names.
	target := resolve(dest.Path())

	p.Info("Copying contents of %s to %s", pl.source, target)
	if err := fsutil.Mirror(pl.source, target); err != nil {
		return fmt.Errorf("failed to copy environment: %w", err)
	}

	r := rewrite.NewReplacer(target, pl.sourceNames...)

	p.Info("Updating activate file.")
	if err := fsutil.RewriteFile(dest.Bin("activate"), true, r.Text); err != nil {
		return err
	}

	p.Info("Updating PHP ini file.")
	if err := fsutil.RewriteFile(dest.PhpIni(), false, r.Text); err != nil {
		return err
	}

	p.Info("Updating PHP bin wrapper.")
	if err := fsutil.RewriteFile(dest.Bin("php"), false, r.Text); err != nil {
		return err
	}

	p.Info("Updating virtual PEAR install and config")
	if err := rewritePearConf(dest.PearConf(), r); err != nil {
		return err
	}
	for _, name := range clonedWrappers {
		if err := fsutil.RewriteFile(dest.Bin(name), true, r.Text); err != nil {
			return err
		}
	}

	p.Info("Setting proper permissions on cloned bin directory")
	if err := fsutil.ChmodRecursive(dest.BinDir(), fsutil.ExecMode); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", dest.BinDir(), err)
	}
	return nil
}

// checkVersion warns when the source was made by another major version.
func (c *Cloner) checkVersion(source string) {
	version, err := env.ReadMarker(source)
	if err != nil {
		c.deps.Logger.Debug("unreadable marker", "path", source, "err", err)
		return
	}
	if !env.SameMajor(version, env.Version) {
		c.deps.Printer.Comment("This environment was created by VirtPHP %s and may not work with version %s.",
			version, env.Version)
	}
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func rewritePearConf(path string, r *rewrite.Replacer) error {
	if !fsutil.Exists(path) {
		return nil
	}
	settings, err := pearconf.Read(path)
	if err != nil {
		return err
	}
	return pearconf.Write(path, r.Tree(settings).(*phpser.Array))
}
