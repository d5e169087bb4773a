package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"os"
	"path"
)

const VersionsDir = "versions"

// Store reads version manifests from a launcher root laid out as
// versions/<id>/<id>.json. It never merges or caches.
type Store struct {
	Files billy.Filesystem
}

func NewStore(files billy.Filesystem) *Store {
	return &Store{Files: files}
}

func VersionDir(id string) string {
	return path.Join(VersionsDir, id)
}

func ManifestPath(id string) string {
	return path.Join(VersionsDir, id, id+".json")
}

func JarPath(id string) string {
	return path.Join(VersionsDir, id, id+".jar")
}

func (s *Store) Load(id string) (*Manifest, error) {
	return s.LoadFile(id, ManifestPath(id))
}

// LoadIn reads the manifest for id stored under another version's directory,
// which is where override packs keep a copy of their parent.
func (s *Store) LoadIn(dirID, id string) (*Manifest, error) {
	return s.LoadFile(id, path.Join(VersionDir(dirID), id+".json"))
}

func (s *Store) LoadFile(id, p string) (*Manifest, error) {
	raw, err := util.ReadFile(s.Files, p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest %q: %w", id, err)
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, &ParseError{ID: id, Err: err}
	}
	if m.ID == "" {
		m.ID = id
	}
	return m, nil
}

func (s *Store) Exists(id string) bool {
	_, err := s.Files.Stat(ManifestPath(id))
	return err == nil
}

// Save writes raw verbatim, used when installing a manifest from upstream.
func (s *Store) Save(id string, raw []byte) error {
	if _, err := Parse(raw); err != nil {
		return &ParseError{ID: id, Err: err}
	}
	if err := s.Files.MkdirAll(VersionDir(id), 0755); err != nil {
		return err
	}
	return util.WriteFile(s.Files, ManifestPath(id), raw, 0644)
}

func Parse(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
