package store

import (
	"context"
	"os"
	"path/filepath"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"price-catalog/src/pkg/catalog"
)

// FileStore keeps the catalog as one JSON file, rewritten in full on every save.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the catalog file. A missing file is an empty catalog.
func (s *FileStore) Load(ctx context.Context) (entries []catalog.Entry, e *xerr.Error) {
	fileBytes, readErr := os.ReadFile(s.path)
	if os.IsNotExist(readErr) {
		tl.Log(tl.Info, palette.Purple, "Catalog file '%s' does not exist yet, starting %s", s.path, "empty")
		return make([]catalog.Entry, 0), e
	}
	if readErr != nil {
		e = xerr.NewError(readErr, "read catalog file", s.path)
		return nil, e
	}

	return decodeDocument(fileBytes)
}

/*
Save writes the catalog into a temporary file next to the target, syncs it and
renames it over the target, then syncs the directory. A crash before the rename
leaves the previous file untouched.
*/
func (s *FileStore) Save(ctx context.Context, entries []catalog.Entry) (e *xerr.Error) {
	document, e := encodeDocument(entries)
	if e != nil {
		return e
	}

	dirPath := filepath.Dir(s.path)
	mkdirErr := os.MkdirAll(dirPath, 0o755)
	if mkdirErr != nil {
		e = xerr.NewError(mkdirErr, "create catalog directory", dirPath)
		return e
	}

	tmpFile, createErr := os.CreateTemp(dirPath, filepath.Base(s.path)+".*.tmp")
	if createErr != nil {
		e = xerr.NewError(createErr, "create temporary catalog file", dirPath)
		return e
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if e != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	_, writeErr := tmpFile.Write(document)
	if writeErr != nil {
		_ = tmpFile.Close()
		e = xerr.NewError(writeErr, "write temporary catalog file", tmpPath)
		return e
	}
	syncErr := tmpFile.Sync()
	if syncErr != nil {
		_ = tmpFile.Close()
		e = xerr.NewError(syncErr, "sync temporary catalog file", tmpPath)
		return e
	}
	closeErr := tmpFile.Close()
	if closeErr != nil {
		e = xerr.NewError(closeErr, "close temporary catalog file", tmpPath)
		return e
	}

	renameErr := os.Rename(tmpPath, s.path)
	if renameErr != nil {
		e = xerr.NewError(renameErr, "replace catalog file", s.path)
		return e
	}

	e = syncDir(dirPath)
	if e != nil {
		return e
	}

	tl.Log(tl.Verbose, palette.CyanDim, "Wrote %d entries to '%s'", len(entries), s.path)
	return e
}

// syncDir flushes a directory so a rename inside it survives a crash.
func syncDir(dirPath string) (e *xerr.Error) {
	dir, openErr := os.Open(dirPath)
	if openErr != nil {
		e = xerr.NewError(openErr, "open catalog directory", dirPath)
		return e
	}
	defer dir.Close()

	syncErr := dir.Sync()
	if syncErr != nil {
		e = xerr.NewError(syncErr, "sync catalog directory", dirPath)
		return e
	}
	return e
}
