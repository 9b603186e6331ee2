package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/drape-io/virtphp/internal/env"
	"github.com/drape-io/virtphp/internal/errs"
	"github.com/drape-io/virtphp/internal/fsutil"
	"github.com/drape-io/virtphp/internal/pearconf"
	"github.com/drape-io/virtphp/internal/phpbin"
	"github.com/drape-io/virtphp/internal/phpini"
	"github.com/drape-io/virtphp/internal/phpser"
	"github.com/drape-io/virtphp/internal/runner"
	"github.com/drape-io/virtphp/internal/templates"
)

// Executables installed by PEAR that are replaced with wrappers. Only pear
// itself is required.
var pearExecutables = []struct {
	name     string
	required bool
}{
	{"pear", true},
	{"pecl", false},
	{"peardev", false},
}

var phpConfigVar = regexp.MustCompile(`(?m)^(prefix|exec_prefix|include_dir|extension_dir)=.*$`)

// Creator builds a new environment.
type Creator struct {
	deps Deps

	Name           string
	BasePath       string
	PhpBinDir      string
	CustomPhpIni   string
	CustomPearConf string
}

// NewCreator returns a Creator for req.Name under req.BasePath.
func NewCreator(deps Deps, req Request) *Creator {
	return &Creator{
		deps:           deps.withDefaults(),
		Name:           req.Name,
		BasePath:       req.BasePath,
		PhpBinDir:      req.PhpBinDir,
		CustomPhpIni:   req.CustomPhpIni,
		CustomPearConf: req.CustomPearConf,
	}
}

// plan is everything the build needs, gathered before the first mutation.
type plan struct {
	env      *env.Environment
	php      *phpbin.Binary
	phpIni   string
	iniSteps []string
	pearConf *phpser.Array
}

func (c *Creator) Execute(ctx context.Context) Result {
	p := c.deps.Printer

	pl, err := c.check(ctx)
	if err != nil {
		p.Error("ERROR: %s", err)
		return failed(err)
	}

	if err := c.build(ctx, pl); err != nil {
		p.Error("ERROR: %s", err)
		c.rollback(pl.env)
		p.Info("System reverted")
		return failed(err)
	}

	p.Banner(fmt.Sprintf("Your virtual php environment (%s) has been created!", c.Name))
	p.Info("You can activate your new environment using: ~$ source %s/bin/activate", pl.env.Path())
	return succeeded()
}

// check validates every input. Nothing on disk is touched except the default
// install folder, which is created when it is missing.
func (c *Creator) check(ctx context.Context) (*plan, error) {
	p := c.deps.Printer
	p.Info("Checking current environment")

	if !env.IsValidName(c.Name) {
		return nil, errs.New(errs.InvalidName, "Sorry, but that is not a valid environment name.")
	}

	base, err := c.basePath()
	if err != nil {
		return nil, err
	}
	e, err := env.New(c.Name, base)
	if err != nil {
		return nil, err
	}

	if fsutil.Exists(e.Path()) {
		return nil, errs.New(errs.AlreadyExists, "The directory for this environment already exists (%s).", e.Path())
	}
	if !fsutil.IsWritable(base) {
		return nil, errs.New(errs.NotWritable,
			"The destination directory is not writable, and thus we cannot create the environment.")
	}

	if home := c.deps.Getenv("HOME"); home != "" && fsutil.Exists(filepath.Join(home, ".pearrc")) {
		p.Comment("There is an old .pearrc file on your system that may prevent this VirtPHP env from being created." +
			" If an error occurs, you may temporarily move the .pearrc file while creating your virtual env.")
	}

	binDir := c.PhpBinDir
	if binDir == "" {
		if binDir, err = phpbin.Detect(c.deps.Runner); err != nil {
			return nil, err
		}
	}
	if binDir, err = filepath.Abs(binDir); err != nil {
		return nil, errs.Wrap(errs.InvalidPhpBinary, err, "invalid php bin directory")
	}
	php, err := phpbin.Validate(ctx, c.deps.Runner, binDir, c.deps.Config.PhpConstraint)
	if err != nil {
		return nil, err
	}
	c.deps.Logger.Debug("using php", "path", php.Path, "version", php.Version)

	pl := &plan{env: e, php: php}

	if c.CustomPearConf != "" {
		p.Info("Getting custom pear.conf info from %s", c.CustomPearConf)
		if pl.pearConf, err = pearconf.ReadCustom(c.CustomPearConf); err != nil {
			return nil, err
		}
	}
	if c.CustomPhpIni != "" {
		if pl.phpIni, pl.iniSteps, err = phpini.FromCustom(e, c.CustomPhpIni); err != nil {
			return nil, err
		}
	} else {
		pl.phpIni = phpini.Default(e)
	}

	return pl, nil
}

// basePath resolves the parent directory of the new environment. The
// configured default folder is created on demand; an explicit path is not.
func (c *Creator) basePath() (string, error) {
	base := c.BasePath
	if base == "" {
		base = c.deps.Config.InstallPath
		if base == "" {
			base = c.deps.Registry.EnvFolder()
		}
		if err := os.MkdirAll(base, fsutil.DirMode); err != nil {
			return "", errs.Wrap(errs.NotWritable, err, "failed to create %s", base)
		}
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", errs.Wrap(errs.InvalidPath, err, "invalid install path %s", base)
	}
	return abs, nil
}

func (c *Creator) build(ctx context.Context, pl *plan) error {
	steps := []func(context.Context, *plan) error{
		c.createStructure,
		c.createMarker,
		c.createPhpIni,
		c.wrapPhpBinary,
		c.installPear,
		c.linkPhpConfig,
		c.installComposer,
		c.installActivate,
		c.register,
	}
	for _, step := range steps {
		if err := step(ctx, pl); err != nil {
			return err
		}
	}
	return nil
}

func (c *Creator) createStructure(_ context.Context, pl *plan) error {
	c.deps.Printer.Info("Creating directory structure")
	for _, dir := range pl.env.Dirs() {
		if err := os.MkdirAll(dir, fsutil.DirMode); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Creator) createMarker(_ context.Context, pl *plan) error {
	c.deps.Printer.Info("Creating VirtPHP version file")
	return env.WriteMarker(pl.env.Path(), env.Version)
}

func (c *Creator) createPhpIni(_ context.Context, pl *plan) error {
	p := c.deps.Printer
	p.Info("Creating custom php.ini")
	if c.CustomPhpIni != "" {
		p.Comment("Configuring custom php.ini from %s", c.CustomPhpIni)
		for _, s := range pl.iniSteps {
			p.Line("%s", s)
		}
	}
	if err := fsutil.WriteFile(pl.env.PhpIni(), []byte(pl.phpIni), fsutil.FileMode); err != nil {
		return fmt.Errorf("failed to write php.ini: %w", err)
	}
	return nil
}

func (c *Creator) wrapPhpBinary(_ context.Context, pl *plan) error {
	c.deps.Printer.Info("Wrapping PHP binary")
	wrapper := templates.PhpWrapper(pl.php.Path, pl.env.PhpIni())
	if err := fsutil.WriteFile(pl.env.Bin("php"), []byte(wrapper), fsutil.ExecMode); err != nil {
		return fmt.Errorf("failed to write php wrapper: %w", err)
	}
	return nil
}

func (c *Creator) installPear(ctx context.Context, pl *plan) error {
	p := c.deps.Printer
	e := pl.env

	p.Info("Downloading pear phar file, this could take a while...")
	phar, err := c.deps.Fetcher.Fetch(ctx, c.deps.Config.PearInstallerURL)
	if err != nil {
		return errs.Wrap(errs.PearInstall, err, "Could not download the PEAR installer")
	}

	p.Info("Installing PEAR")
	_, err = c.deps.Runner.Run(ctx, runner.Command{
		Name: e.Bin("php"),
		Args: []string{phar, "-d", e.IncludeDir(), "-b", e.BinDir(), "-p", e.Bin("php")},
		Dir:  e.Path(),
	})
	if err != nil {
		return errs.Wrap(errs.PearInstall, withOutput(err), "Could not install PEAR")
	}

	p.Info("Saving pear.conf file.")
	if err := pearconf.Write(e.PearConf(), pearconf.Settings(e.Path(), pl.pearConf)); err != nil {
		return errs.Wrap(errs.PearInstall, err, "Could not save pear.conf")
	}

	for _, exe := range pearExecutables {
		bin := e.Bin(exe.name)
		if !fsutil.Exists(bin) {
			if exe.required {
				return errs.New(errs.PearInstall, "PEAR installer did not create %s", bin)
			}
			continue
		}
		orig := bin + ".orig"
		if err := os.Rename(bin, orig); err != nil {
			return errs.Wrap(errs.PearInstall, err, "failed to move %s aside", bin)
		}
		wrapper := templates.PearWrapper(orig, e.PearConf())
		if err := fsutil.WriteFile(bin, []byte(wrapper), fsutil.ExecMode); err != nil {
			return errs.Wrap(errs.PearInstall, err, "failed to write %s wrapper", exe.name)
		}
	}
	return nil
}

// linkPhpConfig points php-config at the environment and links phpize.
// Missing tools only disable native extension builds.
func (c *Creator) linkPhpConfig(ctx context.Context, pl *plan) error {
	p := c.deps.Printer
	e := pl.env

	phpConfig := filepath.Join(pl.php.Dir, "php-config")
	if fsutil.Exists(phpConfig) {
		data, err := os.ReadFile(phpConfig)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", phpConfig, err)
		}
		includeDir, err := phpbin.IncludeDir(ctx, c.deps.Runner, phpConfig)
		if err != nil {
			c.deps.Logger.Warn("keeping system include_dir", "err", err)
		}
		values := map[string]string{
			"prefix":        e.Path(),
			"exec_prefix":   e.Path(),
			"include_dir":   includeDir,
			"extension_dir": e.ExtensionDir(),
		}
		out := phpConfigVar.ReplaceAllStringFunc(string(data), func(line string) string {
			key, _, _ := strings.Cut(line, "=")
			if v := values[key]; v != "" {
				return fmt.Sprintf("%s=\"%s\"", key, v)
			}
			return line
		})
		if err := fsutil.WriteFile(e.Bin("php-config"), []byte(out), fsutil.ExecMode); err != nil {
			return fmt.Errorf("failed to write php-config: %w", err)
		}
	} else {
		p.Comment("%s", missingToolWarning("php-config", pl.php.Dir))
	}

	phpize := filepath.Join(pl.php.Dir, "phpize")
	if fsutil.Exists(phpize) {
		if err := os.Symlink(phpize, e.Bin("phpize")); err != nil {
			return fmt.Errorf("failed to link phpize: %w", err)
		}
	} else {
		p.Comment("%s", missingToolWarning("phpize", pl.php.Dir))
	}
	return nil
}

func missingToolWarning(tool, dir string) string {
	return fmt.Sprintf("Could not find %s in %s. You will be unable to use pecl in this virtual environment."+
		" Install the PHP development package first, and then re-run VirtPHP.", tool, dir)
}

func (c *Creator) installComposer(ctx context.Context, pl *plan) error {
	c.deps.Printer.Info("Installing Composer locally")
	e := pl.env

	installer, err := c.deps.Fetcher.Fetch(ctx, c.deps.Config.ComposerInstallerURL)
	if err != nil {
		return errs.Wrap(errs.ComposerInstall, err, "Could not download the Composer installer")
	}
	_, err = c.deps.Runner.Run(ctx, runner.Command{
		Name: e.Bin("php"),
		Args: []string{installer, "--install-dir=" + e.BinDir(), "--filename=composer"},
		Dir:  e.Path(),
	})
	if err != nil {
		return errs.Wrap(errs.ComposerInstall, withOutput(err), "Could not install Composer")
	}
	return nil
}

func (c *Creator) installActivate(_ context.Context, pl *plan) error {
	c.deps.Printer.Info("Installing activate/deactive script")
	script := templates.Activate(pl.env.Path())
	if err := fsutil.WriteFile(pl.env.Bin("activate"), []byte(script), fsutil.FileMode); err != nil {
		return fmt.Errorf("failed to write activate script: %w", err)
	}
	return nil
}

func (c *Creator) register(_ context.Context, pl *plan) error {
	return c.deps.Registry.Add(pl.env.Name, pl.env.BasePath)
}

// rollback removes the partially built environment. The directory did not
// exist before the build started. A record under the same name that points
// at another base path belongs to a different environment and is kept.
func (c *Creator) rollback(e *env.Environment) {
	d := &Destroyer{deps: c.deps}
	if err := d.removeTree(e.Path()); err != nil {
		c.deps.Printer.Error("failed to revert %s: %s", e.Path(), err)
		return
	}

	rec, ok, err := c.deps.Registry.Lookup(e.Name)
	switch {
	case err != nil:
		c.deps.Printer.Error("failed to revert %s: %s", e.Path(), err)
	case !ok:
	case !samePath(rec.Path, e.BasePath):
		c.deps.Logger.Debug("keeping record of another environment", "name", e.Name, "path", rec.Path)
	default:
		if err := d.unregister(e.Path()); err != nil {
			c.deps.Printer.Error("failed to revert %s: %s", e.Path(), err)
		}
	}
}

// withOutput appends the captured output of a failed process to err.
func withOutput(err error) error {
	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) && strings.TrimSpace(exitErr.Output) != "" {
		return fmt.Errorf("%w\n%s", err, strings.TrimSpace(exitErr.Output))
	}
	return err
}
