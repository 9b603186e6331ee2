// Package registry persists the set of known environments.
package registry

// Record is one registry entry. Path is the base directory that holds
// the environment directory named Name.
type Record struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Registry is the contract the workflows depend on.
type Registry interface {
	// Load returns every record, creating the backing storage if needed.
	Load() (map[string]Record, error)
	// Lookup returns the record for name and whether it exists.
	Lookup(name string) (Record, bool, error)
	// Add inserts or overwrites a record. An empty path means EnvFolder.
	Add(name, path string) error
	// Remove deletes the record keyed by a name or by the last segment of
	// a path. It reports whether a record was removed.
	Remove(pathOrName string) (bool, error)
	// ResyncPath points an existing record at newPath.
	ResyncPath(name, newPath string) (Record, error)
	// EnvFolder is the default parent directory for new environments.
	EnvFolder() string
}

// Backend reads and writes the whole record set at once.
type Backend interface {
	Read() (map[string]Record, error)
	Write(records map[string]Record) error
}
