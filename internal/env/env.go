// Package env describes the on-disk layout of a virtual PHP environment.
package env

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/drape-io/virtphp/internal/errs"
)

// Version is written into every environment's marker file.
// Overridden at build time.
var Version = "1.0.0"

// MarkerFile is the sentinel whose presence marks a managed environment.
const MarkerFile = ".virtphp"

var namePattern = regexp.MustCompile(`^[a-zA-Z][0-9a-zA-Z_-]*$`)

// IsValidName reports whether name can be used as an environment name.
func IsValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Environment is a virtual PHP installation rooted at BasePath/Name.
type Environment struct {
	Name     string
	BasePath string
}

// New validates name and returns the environment located under basePath.
func New(name, basePath string) (*Environment, error) {
	if !IsValidName(name) {
		return nil, errs.New(errs.InvalidName,
			"environment name must start with a letter and contain only letters, numbers, dashes, and underscores; %q is invalid", name)
	}
	return &Environment{Name: name, BasePath: basePath}, nil
}

// Path returns the root of the environment tree.
func (e *Environment) Path() string { return filepath.Join(e.BasePath, e.Name) }

func (e *Environment) BinDir() string { return filepath.Join(e.Path(), "bin") }
func (e *Environment) EtcDir() string { return filepath.Join(e.Path(), "etc") }

// ExtensionDir is the environment's extension_dir.
func (e *Environment) ExtensionDir() string { return filepath.Join(e.Path(), "lib", "php") }

// IncludeDir is the environment's include_path entry.
func (e *Environment) IncludeDir() string { return filepath.Join(e.Path(), "share", "php") }

func (e *Environment) PearDir() string  { return filepath.Join(e.Path(), "share", "pear") }
func (e *Environment) PhpIni() string   { return filepath.Join(e.EtcDir(), "php.ini") }
func (e *Environment) PearConf() string { return filepath.Join(e.EtcDir(), "pear.conf") }
func (e *Environment) Marker() string   { return filepath.Join(e.Path(), MarkerFile) }

// Bin returns the path of an executable in the environment's bin directory.
func (e *Environment) Bin(name string) string { return filepath.Join(e.BinDir(), name) }

// PearSubdirs are created under share/pear.
var PearSubdirs = []string{"cache", "cfg", "download", "temp", "tests", "www"}

// Dirs lists every directory of the fixed subtree, parents first.
func (e *Environment) Dirs() []string {
	dirs := []string{
		e.BinDir(),
		e.EtcDir(),
		filepath.Join(e.Path(), "lib"),
		e.ExtensionDir(),
		filepath.Join(e.Path(), "share"),
		e.IncludeDir(),
		e.PearDir(),
	}
	for _, sub := range PearSubdirs {
		dirs = append(dirs, filepath.Join(e.PearDir(), sub))
	}
	return dirs
}

// NameFromPath returns the final path segment, ignoring trailing separators.
func NameFromPath(path string) string {
	trimmed := strings.TrimRight(path, string(os.PathSeparator))
	if trimmed == "" {
		return ""
	}
	return filepath.Base(trimmed)
}

// IsManaged reports whether dir contains the marker file.
func IsManaged(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, MarkerFile))
	return err == nil && !info.IsDir()
}

// WriteMarker writes the marker file into dir.
func WriteMarker(dir, version string) error {
	path := filepath.Join(dir, MarkerFile)
	if err := os.WriteFile(path, []byte(version), 0o644); err != nil {
		return fmt.Errorf("failed to write marker file: %w", err)
	}
	return nil
}

// ReadMarker returns the version recorded in dir's marker file.
func ReadMarker(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if err != nil {
		return "", fmt.Errorf("failed to read marker file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SameMajor reports whether two marker versions share a major version.
// Unparseable versions are treated as compatible.
func SameMajor(a, b string) bool {
	va, err := semver.NewVersion(a)
	if err != nil {
		return true
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return true
	}
	return va.Major() == vb.Major()
}
