package gitsubset

import (
	"fmt"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
)

// mapDir is the directory holding persisted maps, relative to the root of
// the repository's metadata filesystem (".git" for a regular repository).
const mapDir = "subset"

// LoadOidMapFile loads a persisted map named name from fs. The load is
// best-effort: a missing file yields an empty map and malformed lines are
// skipped. name is normally [Filter.Hash], so a changed filter reads a
// different, initially empty, map.
func LoadOidMapFile(fs billy.Filesystem, name string) (*OidMap, error) {
	f, err := fs.Open(path.Join(mapDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return NewOidMap(), nil
		}

		return nil, fmt.Errorf("failed to open map file %s: %w", name, err)
	}
	defer f.Close()

	return LoadOidMap(f)
}

// SaveOidMapFile writes the map to fs under name, fully replacing any
// previous contents.
func SaveOidMapFile(fs billy.Filesystem, name string, m *OidMap) error {
	if err := fs.MkdirAll(mapDir, 0o755); err != nil {
		return fmt.Errorf("failed to create map directory: %w", err)
	}

	f, err := fs.Create(path.Join(mapDir, name))
	if err != nil {
		return fmt.Errorf("failed to create map file %s: %w", name, err)
	}

	if err := m.Persist(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write map file %s: %w", name, err)
	}

	return f.Close()
}
