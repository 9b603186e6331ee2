package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// LoadResult contains the loaded configuration and any warnings.
type LoadResult struct {
	Config   *Config
	Path     string
	Warnings []string
}

// Default returns the configuration used when no file is present.
// home is the tool home, usually $HOME/.virtphp.
func Default(home string) *Config {
	return &Config{
		InstallPath:          filepath.Join(home, "envs"),
		PhpConstraint:        DefaultPhpConstraint,
		PearInstallerURL:     DefaultPearInstallerURL,
		ComposerInstallerURL: DefaultComposerInstallerURL,
		ActiveEnvVar:         DefaultActiveEnvVar,
		CacheDir:             filepath.Join(xdg.CacheHome, "virtphp"),
	}
}

// Load reads the configuration at path on top of the defaults for home.
// If path is empty, home/config.toml is used. A missing file is not an error.
func Load(path, home string) (*LoadResult, error) {
	if path == "" {
		path = filepath.Join(home, FileName)
	}

	result := &LoadResult{
		Config:   Default(home),
		Path:     path,
		Warnings: []string{},
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	md, err := toml.Decode(string(data), result.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	var unknown []string
	for _, key := range md.Undecoded() {
		unknown = append(unknown, key.String())
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		result.Warnings = append(result.Warnings, formatUnknownKeyWarning(key, path))
	}

	result.Config.InstallPath = expandHome(result.Config.InstallPath)
	result.Config.CacheDir = expandHome(result.Config.CacheDir)
	fillDefaults(result.Config, home)

	return result, nil
}

// fillDefaults restores defaults for keys set to empty strings.
func fillDefaults(cfg *Config, home string) {
	def := Default(home)
	if cfg.InstallPath == "" {
		cfg.InstallPath = def.InstallPath
	}
	if cfg.PhpConstraint == "" {
		cfg.PhpConstraint = def.PhpConstraint
	}
	if cfg.PearInstallerURL == "" {
		cfg.PearInstallerURL = def.PearInstallerURL
	}
	if cfg.ComposerInstallerURL == "" {
		cfg.ComposerInstallerURL = def.ComposerInstallerURL
	}
	if cfg.ActiveEnvVar == "" {
		cfg.ActiveEnvVar = def.ActiveEnvVar
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = def.CacheDir
	}
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(userHome, path[2:])
}

// formatUnknownKeyWarning formats a warning message for unrecognised keys.
func formatUnknownKeyWarning(key, path string) string {
	return fmt.Sprintf("Warning: Unknown key '%s' in %s. It will be ignored.", key, path)
}

// Sample is the commented configuration written by `virtphp init`.
const Sample = `# virtphp configuration file

# Where new environments are created when --install-path is not given.
# install_path = "~/.virtphp/envs"

# Version constraint the wrapped php binary must satisfy.
php_constraint = ">=5.3.0"

# Installers fetched while creating an environment.
pear_installer_url = "https://pear.php.net/install-pear-nozlib.phar"
composer_installer_url = "https://getcomposer.org/installer"

# Variable exported by bin/activate. destroy refuses to remove the
# environment it points at.
active_env_var = "VIRTPHP_ENV_PATH"

# Downloaded installers are cached here.
# cache_dir = "~/.cache/virtphp"
`

// WriteSample writes Sample to path, refusing to overwrite an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(Sample), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
