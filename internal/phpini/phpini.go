// Package phpini produces an environment's etc/php.ini.
package phpini

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/drape-io/virtphp/internal/env"
	"github.com/drape-io/virtphp/internal/errs"
	"github.com/drape-io/virtphp/internal/templates"
)

// Directive is an ini setting that must point into the environment.
type Directive struct {
	Key   string
	Value string
}

// Directives returns the settings every environment's php.ini overrides.
func Directives(e *env.Environment) []Directive {
	return []Directive{
		{Key: "include_path", Value: ".:" + e.IncludeDir()},
		{Key: "extension_dir", Value: e.ExtensionDir()},
	}
}

// Default renders the bundled php.ini for e.
func Default(e *env.Environment) string {
	return templates.PhpIni(e.IncludeDir(), e.ExtensionDir())
}

// Patch comments out each active directive in ini and writes the new value
// after it, or appends the directive when it is absent. It returns the new
// text and one progress line per directive.
func Patch(ini string, directives []Directive) (string, []string) {
	var steps []string
	for _, d := range directives {
		re := regexp.MustCompile(`(?mi)^[ \t]*` + regexp.QuoteMeta(d.Key) + `[ \t]*=.*$`)
		if re.MatchString(ini) {
			ini = re.ReplaceAllStringFunc(ini, func(old string) string {
				return fmt.Sprintf("\n\n;; Old %s value\n; %s\n;; New VirtPHP %s value:\n%s = \"%s\"\n",
					d.Key, strings.TrimSpace(old), d.Key, d.Key, d.Value)
			})
			steps = append(steps, fmt.Sprintf("  replacing active %s with virtual env path", d.Key))
			continue
		}
		ini += fmt.Sprintf("\n\n;; New VirtPHP %s value:\n%s = \"%s\"\n", d.Key, d.Key, d.Value)
		steps = append(steps, fmt.Sprintf("  adding new %s setting with virtual env path", d.Key))
	}
	return ini, steps
}

// FromCustom reads a user supplied php.ini and patches it for e.
func FromCustom(e *env.Environment, path string) (string, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, errs.Wrap(errs.InvalidArgument, err, "Unable to read custom php.ini %s", path)
	}
	ini, steps := Patch(string(data), Directives(e))
	return ini, steps, nil
}
