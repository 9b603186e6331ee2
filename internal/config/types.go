package config

// Config is the virtphp tool configuration.
type Config struct {
	// InstallPath is the default parent directory for new environments.
	InstallPath string `toml:"install_path"`
	// PhpConstraint is a semver constraint the wrapped php must satisfy.
	PhpConstraint string `toml:"php_constraint"`
	// PearInstallerURL is the PEAR bootstrap phar.
	PearInstallerURL string `toml:"pear_installer_url"`
	// ComposerInstallerURL is the Composer installer script.
	ComposerInstallerURL string `toml:"composer_installer_url"`
	// ActiveEnvVar names the variable the activate script exports.
	ActiveEnvVar string `toml:"active_env_var"`
	// CacheDir holds downloaded installers.
	CacheDir string `toml:"cache_dir"`
}

const (
	DefaultPhpConstraint        = ">=5.3.0"
	DefaultPearInstallerURL     = "https://pear.php.net/install-pear-nozlib.phar"
	DefaultComposerInstallerURL = "https://getcomposer.org/installer"
	DefaultActiveEnvVar         = "VIRTPHP_ENV_PATH"

	// FileName is the config file inside the tool home.
	FileName = "config.toml"
)
