// Package pearconf builds and persists an environment's pear.conf.
package pearconf

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/drape-io/virtphp/internal/errs"
	"github.com/drape-io/virtphp/internal/phpser"
	"github.com/drape-io/virtphp/internal/rewrite"
)

// Placeholder is substituted with the environment root in every setting.
const Placeholder = "{env_path}"

// Header is the first line PEAR writes into its configuration files.
const Header = "#PEAR_Config 0.9\n"

var headerPattern = regexp.MustCompile(`^#PEAR_Config [0-9.]+\r?\n`)

// Default returns the canonical settings, still holding Placeholder.
func Default() *phpser.Array {
	dir := func(rel string) phpser.String { return phpser.String(Placeholder + rel) }

	return phpser.NewArray().
		SetString("php_dir", dir("/share/php")).
		SetString("data_dir", dir("/share/php/data")).
		SetString("www_dir", dir("/share/pear/www")).
		SetString("cfg_dir", dir("/share/pear/cfg")).
		SetString("ext_dir", dir("/lib/php")).
		SetString("doc_dir", dir("/share/php/doc")).
		SetString("test_dir", dir("/share/pear/tests")).
		SetString("cache_dir", dir("/share/pear/cache")).
		SetString("download_dir", dir("/share/pear/download")).
		SetString("temp_dir", dir("/share/pear/temp")).
		SetString("bin_dir", dir("/bin")).
		SetString("__channels", phpser.NewArray().
			SetString("pecl.php.net", phpser.NewArray()).
			SetString("__uri", phpser.NewArray()).
			SetString("doc.php.net", phpser.NewArray())).
		SetString("php_bin", dir("/bin/php")).
		SetString("php_ini", dir("/etc/php.ini")).
		SetString("auto_discover", phpser.Int(1))
}

// Merge overlays defaults on top of custom. String keys present in both take
// the default value; integer keys of defaults are appended.
func Merge(custom, defaults *phpser.Array) *phpser.Array {
	out := phpser.NewArray()
	for _, src := range []*phpser.Array{custom, defaults} {
		if src == nil {
			continue
		}
		for _, e := range src.Entries() {
			if e.Key.IsInt {
				out.Append(e.Value)
				continue
			}
			out.Set(e.Key, e.Value)
		}
	}
	return out
}

// Settings returns the final configuration for an environment rooted at
// envPath, optionally starting from custom settings.
func Settings(envPath string, custom *phpser.Array) *phpser.Array {
	merged := Merge(custom, Default())
	return rewrite.Placeholder(merged, Placeholder, envPath).(*phpser.Array)
}

// Parse decodes a pear.conf document. The #PEAR_Config header is optional.
func Parse(data []byte) (*phpser.Array, error) {
	body := headerPattern.ReplaceAll(data, nil)
	v, err := phpser.Unmarshal(bytes.TrimRight(body, "\r\n"))
	if err != nil {
		return nil, err
	}
	arr, ok := v.(*phpser.Array)
	if !ok {
		return nil, fmt.Errorf("pear config is a %T, not an array", v)
	}
	return arr, nil
}

// Read loads and decodes the pear.conf at path.
func Read(path string) (*phpser.Array, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	arr, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return arr, nil
}

// Encode renders settings in the format PEAR reads.
func Encode(settings *phpser.Array) ([]byte, error) {
	body, err := phpser.Marshal(settings)
	if err != nil {
		return nil, err
	}
	return append([]byte(Header), body...), nil
}

// Write stores settings at path.
func Write(path string, settings *phpser.Array) error {
	data, err := Encode(settings)
	if err != nil {
		return fmt.Errorf("failed to encode pear config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadCustom loads a user supplied pear.conf used as the base of a new
// environment's settings.
func ReadCustom(path string) (*phpser.Array, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, err, "Unable to get contents of custom PEAR config file")
	}
	arr, err := Parse(data)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, err, "Unable to unserialize custom PEAR config file")
	}
	return arr, nil
}
