// Package templates holds the text artifacts written into an environment.
package templates

import (
	_ "embed"
	"fmt"
	"strings"
)

const (
	IncludePathToken   = "__VIRTPHP_ENV_PHP_INCLUDE_PATH__"
	ExtensionPathToken = "__VIRTPHP_ENV_PHP_EXTENSION_PATH__"
	EnvPathToken       = "__VIRTPHP_ENV_PATH__"
)

//go:embed res/php.ini
var phpIni string

//go:embed res/activate.sh
var activate string

// PhpIni returns the bundled php.ini with the environment's include and
// extension directories filled in.
func PhpIni(includeDir, extensionDir string) string {
	return strings.NewReplacer(
		IncludePathToken, includeDir,
		ExtensionPathToken, extensionDir,
	).Replace(phpIni)
}

// Activate returns the activate/deactivate script for the environment at envPath.
func Activate(envPath string) string {
	return strings.ReplaceAll(activate, EnvPathToken, envPath)
}

// PhpWrapper returns bin/php, which runs the real interpreter with the
// environment's php.ini.
func PhpWrapper(phpBinary, phpIni string) string {
	return fmt.Sprintf("#!/bin/sh\nexec %s -c %s \"$@\"\n", quote(phpBinary), quote(phpIni))
}

// PearWrapper returns a bin/pear or bin/pecl replacement that runs the
// renamed original with the environment's pear.conf.
func PearWrapper(original, pearConf string) string {
	return fmt.Sprintf("#!/bin/sh\nexec %s -c %s \"$@\"\n", quote(original), quote(pearConf))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
