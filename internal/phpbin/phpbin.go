// Package phpbin locates and validates the PHP interpreter an environment wraps.
package phpbin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/drape-io/virtphp/internal/errs"
	"github.com/drape-io/virtphp/internal/runner"
)

const versionTimeout = 5 * time.Second

var (
	phpVersionRe = regexp.MustCompile(`PHP (\d+\.\d+(?:\.\d+)?)`)
	anyVersionRe = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)
)

// Binary is a validated PHP installation.
type Binary struct {
	Dir     string
	Path    string
	Version string
}

// Detect returns the directory of the php found on PATH.
func Detect(r runner.Runner) (string, error) {
	path, err := r.LookPath("php")
	if err != nil {
		return "", errs.Wrap(errs.PhpNotFound, err,
			"Can't find php on the system. If php is not in the PATH, please specify its location with --php-bin-dir")
	}
	return filepath.Dir(path), nil
}

// Validate checks that dir holds a php executable that runs and, when
// constraint is non-empty, that its version satisfies it.
func Validate(ctx context.Context, r runner.Runner, dir, constraint string) (*Binary, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errs.New(errs.InvalidPhpBinary, "The specified php bin directory does not exist: %s", dir)
	}

	path := filepath.Join(dir, "php")
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return nil, errs.New(errs.InvalidPhpBinary, "There is no php binary in %s", dir)
	}

	res, err := r.Run(ctx, runner.Command{Name: path, Args: []string{"-v"}, Dir: dir, Timeout: versionTimeout})
	if err != nil {
		return nil, errs.Wrap(errs.InvalidPhpBinary, err, "%s is not a working php binary", path)
	}

	bin := &Binary{Dir: dir, Path: path}
	bin.Version, err = extractVersion(res.Output)
	if err != nil {
		if constraint != "" {
			return nil, errs.Wrap(errs.InvalidPhpBinary, err, "could not determine the version of %s", path)
		}
		return bin, nil
	}

	if constraint == "" {
		return bin, nil
	}
	if err := checkConstraint(bin.Version, constraint); err != nil {
		return nil, errs.Wrap(errs.InvalidPhpBinary, err, "%s is not supported", path)
	}
	return bin, nil
}

// extractVersion finds the interpreter version in `php -v` output.
func extractVersion(output string) (string, error) {
	if m := phpVersionRe.FindStringSubmatch(output); len(m) > 1 {
		return m[1], nil
	}
	for _, line := range strings.Split(output, "\n") {
		if match := anyVersionRe.FindString(strings.TrimSpace(line)); match != "" {
			return match, nil
		}
	}
	return "", errors.New("no version found in output")
}

func checkConstraint(version, constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint '%s': %w", constraint, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("failed to parse php version '%s': %w", version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("php %s does not satisfy %s", version, constraint)
	}
	return nil
}

// IncludeDir asks php-config for the PHP headers directory.
func IncludeDir(ctx context.Context, r runner.Runner, phpConfig string) (string, error) {
	res, err := r.Run(ctx, runner.Command{Name: phpConfig, Args: []string{"--include-dir"}, Timeout: versionTimeout})
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", phpConfig, err)
	}
	return strings.TrimSpace(res.Output), nil
}
