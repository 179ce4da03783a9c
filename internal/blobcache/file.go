package blobcache

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
)

// FileStore keeps one JSON document per entry under dir/<namespace>/<key>.json.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore returns a FileStore rooted at dir on fsys.
func NewFileStore(fsys afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fsys, dir: dir}
}

func (s *FileStore) entryPath(ns Namespace, key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", eris.Errorf("blobcache: invalid key %q", key)
	}
	return path.Join(s.dir, string(ns), key+".json"), nil
}

// Get reads an entry. A missing file is ErrNotFound.
func (s *FileStore) Get(_ context.Context, ns Namespace, key string) ([]byte, error) {
	p, err := s.entryPath(ns, key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "blobcache: read %s", p)
	}
	return data, nil
}

// Put writes an entry through a temp file and rename so readers never see a
// partial document. An existing entry is kept.
func (s *FileStore) Put(_ context.Context, ns Namespace, key string, payload []byte) error {
	p, err := s.entryPath(ns, key)
	if err != nil {
		return err
	}
	exists, err := afero.Exists(s.fs, p)
	if err != nil {
		return eris.Wrapf(err, "blobcache: stat %s", p)
	}
	if exists {
		return nil
	}
	dir := path.Dir(p)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "blobcache: create %s", dir)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+key+"-*.tmp")
	if err != nil {
		return eris.Wrap(err, "blobcache: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()          //nolint:errcheck
		s.fs.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "blobcache: write %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "blobcache: close %s", tmpName)
	}
	if err := s.fs.Rename(tmpName, p); err != nil {
		s.fs.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "blobcache: rename to %s", p)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
