package registry

import "maps"

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	records map[string]Record
	// Writes counts successful Write calls.
	Writes int
	// Err, when set, fails every Read and Write.
	Err error
}

// NewMemoryStore returns a Store that never touches the filesystem.
func NewMemoryStore(envFolder string) (*Store, *MemoryBackend) {
	b := &MemoryBackend{records: make(map[string]Record)}
	return NewStore(b, envFolder, nil), b
}

func (b *MemoryBackend) Read() (map[string]Record, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	return maps.Clone(b.records), nil
}

func (b *MemoryBackend) Write(records map[string]Record) error {
	if b.Err != nil {
		return b.Err
	}
	b.records = maps.Clone(records)
	b.Writes++
	return nil
}
