// Package versions persists previously produced format variants so that
// repeated round-trip conversions are a copy, not a re-encode. Each entry
// is the stored bytes plus a TOML sidecar carrying the ownership and
// permission metadata needed to restore faithfully.
package versions

import (
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/morphd/pkg/errors"
	"github.com/arthur-debert/morphd/pkg/fileops"
	"github.com/arthur-debert/morphd/pkg/logging"
)

// Entry is one persisted (identity, extension) variant.
type Entry struct {
	IdentityKey string
	Extension   string
	StoredPath  string
	Meta        Sidecar
}

// Sidecar is the metadata record stored beside the bytes. The stored file
// itself may be owned by the service account; restore reapplies these.
type Sidecar struct {
	UID        int       `toml:"uid"`
	GID        int       `toml:"gid"`
	Mode       uint32    `toml:"mode"`
	CreatedAt  time.Time `toml:"created_at"`
	SourceExt  string    `toml:"source_ext"`
	SourcePath string    `toml:"source_path"`
	IsDir      bool      `toml:"is_dir"`
}

// Store is the on-disk version store. A fixed root serves every owner;
// an empty root places each owner's history under their own home
// (~/.local/share/morphd/versions), chowned to them.
type Store struct {
	mu   sync.Mutex
	root string
}

// NewStore creates a store. root may be empty for per-owner placement.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Lookup returns the entry for (key, ext), or nil when none exists.
func (s *Store) Lookup(key, ext string, owner fileops.Owner) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.entryDir(key, owner)
	if err != nil {
		return nil, err
	}
	return s.readEntry(dir, key, ext)
}

// Save copies the current bytes of sourcePath into the store under
// (key, ext), capturing owner metadata in the sidecar. At most one entry
// exists per (key, ext); a newer save replaces the older one.
func (s *Store) Save(key, ext, sourcePath string, owner fileops.Owner) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.ensureEntryDir(key, owner)
	if err != nil {
		return nil, err
	}

	stored := filepath.Join(dir, ext+".bin")
	if err := fileops.CopyFile(sourcePath, stored); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStoreIO, "failed to store %s variant for %s", ext, sourcePath)
	}
	return s.writeEntry(dir, key, ext, stored, sourcePath, owner, false)
}

// SaveDir snapshots a directory source as a tar archive under (key, "tar").
// Folder triggers use it so a destroyed source directory stays recoverable.
func (s *Store) SaveDir(key, sourceDir string, owner fileops.Owner) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.ensureEntryDir(key, owner)
	if err != nil {
		return nil, err
	}

	stored := filepath.Join(dir, "tar.bin")
	parent := filepath.Dir(sourceDir)
	name := filepath.Base(sourceDir)
	cmd := exec.Command("tar", "-C", parent, "-cf", stored, name)
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(stored)
		return nil, errors.Wrapf(err, errors.ErrStoreIO,
			"failed to archive %s: %s", sourceDir, strings.TrimSpace(string(out)))
	}
	return s.writeEntry(dir, key, "tar", stored, sourceDir, owner, true)
}

// Restore copies an entry's bytes to destination and reapplies the
// ownership and permission metadata captured at save time.
func (s *Store) Restore(entry *Entry, destination string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fileops.CopyFile(entry.StoredPath, destination); err != nil {
		return errors.Wrapf(err, errors.ErrStoreIO,
			"failed to restore %s to %s", entry.StoredPath, destination)
	}
	restored := fileops.Owner{
		UID:  entry.Meta.UID,
		GID:  entry.Meta.GID,
		Mode: os.FileMode(entry.Meta.Mode),
	}
	if err := restored.Apply(destination); err != nil {
		_ = os.Remove(destination)
		return err
	}
	logger := logging.GetLogger("versions")
	logger.Info().
		Str("key", entry.IdentityKey).
		Str("ext", entry.Extension).
		Str("destination", destination).
		Msg("restored variant from history")
	return nil
}

// Invalidate removes the entry for (key, ext) if present.
func (s *Store) Invalidate(key, ext string, owner fileops.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.entryDir(key, owner)
	if err != nil {
		return err
	}
	for _, name := range []string{ext + ".bin", ext + ".toml"} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, errors.ErrStoreIO, "failed to invalidate %s/%s", key, name)
		}
	}
	return nil
}

func (s *Store) readEntry(dir, key, ext string) (*Entry, error) {
	stored := filepath.Join(dir, ext+".bin")
	sidecar := filepath.Join(dir, ext+".toml")

	if _, err := os.Stat(stored); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrStoreIO, "failed to stat %s", stored)
	}

	data, err := os.ReadFile(sidecar)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStoreCorrupt,
			"entry %s/%s has bytes but no readable sidecar", key, ext)
	}
	var meta Sidecar
	if err := toml.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStoreCorrupt,
			"entry %s/%s sidecar is not valid TOML", key, ext)
	}

	return &Entry{
		IdentityKey: key,
		Extension:   ext,
		StoredPath:  stored,
		Meta:        meta,
	}, nil
}

func (s *Store) writeEntry(dir, key, ext, stored, sourcePath string, owner fileops.Owner, isDir bool) (*Entry, error) {
	meta := Sidecar{
		UID:        owner.UID,
		GID:        owner.GID,
		Mode:       uint32(owner.Mode),
		CreatedAt:  time.Now().UTC(),
		SourceExt:  ext,
		SourcePath: sourcePath,
		IsDir:      isDir,
	}
	data, err := toml.Marshal(meta)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStoreIO, "failed to encode sidecar for %s/%s", key, ext)
	}
	sidecar := filepath.Join(dir, ext+".toml")
	if err := os.WriteFile(sidecar, data, 0644); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStoreIO, "failed to write sidecar %s", sidecar)
	}
	s.chownToOwner(owner, stored, sidecar)

	return &Entry{
		IdentityKey: key,
		Extension:   ext,
		StoredPath:  stored,
		Meta:        meta,
	}, nil
}

// entryDir resolves the directory for key without creating it.
func (s *Store) entryDir(key string, owner fileops.Owner) (string, error) {
	root, err := s.rootFor(owner)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, key), nil
}

func (s *Store) ensureEntryDir(key string, owner fileops.Owner) (string, error) {
	dir, err := s.entryDir(key, owner)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrDirCreate, "failed to create store directory %s", dir)
	}
	// Users own their history so they can inspect it.
	s.chownToOwner(owner, filepath.Dir(dir), dir)
	return dir, nil
}

// rootFor resolves the store root for an owner. A configured root wins;
// otherwise the owner's home is looked up through the passwd database.
func (s *Store) rootFor(owner fileops.Owner) (string, error) {
	if s.root != "" {
		return s.root, nil
	}
	u, err := user.LookupId(strconv.Itoa(owner.UID))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrStoreIO, "no passwd entry for uid %d", owner.UID)
	}
	return filepath.Join(u.HomeDir, ".local", "share", "morphd", "versions"), nil
}

// chownToOwner hands store paths to the owner. Only meaningful (and only
// permitted) when the daemon runs as root.
func (s *Store) chownToOwner(owner fileops.Owner, paths ...string) {
	if os.Geteuid() != 0 {
		return
	}
	logger := logging.GetLogger("versions")
	for _, p := range paths {
		if err := os.Chown(p, owner.UID, owner.GID); err != nil {
			logger.Warn().
				Err(err).Str("path", p).Msg("failed to chown store path")
		}
	}
}
