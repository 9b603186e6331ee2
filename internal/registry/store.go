package registry

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drape-io/virtphp/internal/env"
	"github.com/drape-io/virtphp/internal/errs"
)

// Store implements Registry as a read-modify-write cycle over a Backend.
// There is no locking: two concurrent writers can lose an update.
type Store struct {
	backend   Backend
	envFolder string
	logger    *slog.Logger
}

var _ Registry = (*Store)(nil)

// NewStore returns a Store over backend. A nil logger uses slog.Default.
func NewStore(backend Backend, envFolder string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, envFolder: envFolder, logger: logger}
}

func (s *Store) EnvFolder() string {
	return s.envFolder
}

func (s *Store) Load() (map[string]Record, error) {
	records, err := s.backend.Read()
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = make(map[string]Record)
	}
	return records, nil
}

func (s *Store) Lookup(name string) (Record, bool, error) {
	records, err := s.Load()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := records[name]
	return rec, ok, nil
}

func (s *Store) Add(name, path string) error {
	if path == "" {
		path = s.envFolder
	}

	records, err := s.Load()
	if err != nil {
		return err
	}

	records[name] = Record{Name: name, Path: path}
	if err := s.backend.Write(records); err != nil {
		return err
	}

	s.logger.Debug("registry record added", "name", name, "path", path)
	return nil
}

func (s *Store) Remove(pathOrName string) (bool, error) {
	key := env.NameFromPath(pathOrName)

	records, err := s.Load()
	if err != nil {
		return false, err
	}

	if _, ok := records[key]; !ok {
		s.logger.Debug("registry record not present", "name", key)
		return false, nil
	}

	delete(records, key)
	if err := s.backend.Write(records); err != nil {
		return false, err
	}

	s.logger.Debug("registry record removed", "name", key)
	return true, nil
}

func (s *Store) ResyncPath(name, newPath string) (Record, error) {
	records, err := s.Load()
	if err != nil {
		return Record{}, err
	}

	rec, ok := records[name]
	if !ok {
		return Record{}, errs.New(errs.NotFound, "environment %q is not registered", name)
	}

	resolved, err := canonicalPath(newPath)
	if err != nil {
		return Record{}, errs.Wrap(errs.InvalidPath, err, "path %q could not be resolved", newPath)
	}

	rec.Path = resolved
	records[name] = rec
	if err := s.backend.Write(records); err != nil {
		return Record{}, err
	}

	s.logger.Debug("registry record resynced", "name", name, "path", resolved)
	return rec, nil
}

// canonicalPath returns the absolute, symlink-free form of an existing path.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(resolved); err != nil {
		return "", err
	}
	return resolved, nil
}
