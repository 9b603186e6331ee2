package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drape-io/virtphp/internal/errs"
)

const (
	// FileName is the registry file inside the tool home.
	FileName = "environments.json"
	// EnvsDir is the default environment folder inside the tool home.
	EnvsDir = "envs"

	dirMode  = 0o755
	fileMode = 0o644
)

// FileBackend stores records as a JSON object in home/environments.json.
type FileBackend struct {
	home string
}

// NewFileStore returns a Store backed by home/environments.json with
// home/envs as the default environment folder.
func NewFileStore(home string, logger *slog.Logger) *Store {
	return NewStore(&FileBackend{home: home}, filepath.Join(home, EnvsDir), logger)
}

// Path returns the registry file location.
func (b *FileBackend) Path() string {
	return filepath.Join(b.home, FileName)
}

// Read loads the registry, creating home, home/envs and an empty object
// file when they are missing. A file that is not valid JSON is an error.
func (b *FileBackend) Read() (map[string]Record, error) {
	if err := b.ensure(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.Path())
	if err != nil {
		return nil, errs.Wrap(errs.RegistryIO, err, "failed to read registry")
	}

	records := make(map[string]Record)
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errs.Wrap(errs.RegistryIO, err, "registry file %s is corrupt", b.Path())
	}
	return records, nil
}

// Write replaces the registry file atomically via a temp file and rename.
func (b *FileBackend) Write(records map[string]Record) error {
	if err := os.MkdirAll(b.home, dirMode); err != nil {
		return errs.Wrap(errs.RegistryIO, err, "failed to create %s", b.home)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errs.Wrap(errs.RegistryIO, err, "failed to encode registry")
	}
	data = append(data, '\n')

	tmp := b.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, fileMode); err != nil {
		return errs.Wrap(errs.RegistryIO, err, "failed to write registry")
	}
	if err := os.Rename(tmp, b.Path()); err != nil {
		_ = os.Remove(tmp)
		return errs.Wrap(errs.RegistryIO, err, "failed to replace registry")
	}
	return nil
}

func (b *FileBackend) ensure() error {
	if err := os.MkdirAll(filepath.Join(b.home, EnvsDir), dirMode); err != nil {
		return errs.Wrap(errs.RegistryIO, err, "failed to create %s", b.home)
	}

	_, err := os.Stat(b.Path())
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return errs.Wrap(errs.RegistryIO, err, "failed to stat registry")
	}
	if err := os.WriteFile(b.Path(), []byte("{}\n"), fileMode); err != nil {
		return errs.Wrap(errs.RegistryIO, err, "failed to create registry")
	}
	return nil
}

// DefaultHome returns $VIRTPHP_HOME, or $HOME/.virtphp when unset.
func DefaultHome() (string, error) {
	if home := os.Getenv("VIRTPHP_HOME"); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(userHome, ".virtphp"), nil
}
