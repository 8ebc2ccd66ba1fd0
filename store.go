package metatile

import (
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/spf13/afero"
	"github.com/yehan2002/errors"
)

// Settings settings for a [Store].
type Settings struct {
	// ReadOnly if the store should be opened in readonly mode.
	// If this is set, all write operation will return [ErrReadOnly].
	// Default: false
	ReadOnly bool

	// The number of unused metatile files kept open.
	// If this value is -1 the cache will be disabled.
	// Default: 20
	CacheSize int

	// Format the style and extension of tiles read from and written to other tile sources.
	// Default: [DefaultFormat]
	Format TileFormat

	// Logger the logger used by the store.
	// Default: a logger that discards all output.
	Logger *slog.Logger

	fs afero.Fs
}

var defaultSettings = Settings{
	CacheSize: 20,
	Format:    DefaultFormat,
	fs:        filesystem,
}

// TileReader reads single tiles.
// Implementations return an error wrapping [ErrNotExist] if the tile does not exist.
type TileReader interface {
	ReadTile(t Tile) ([]byte, error)
}

// TileWriter writes single tiles.
type TileWriter interface {
	WriteTile(t Tile, data []byte) error
}

// Store a directory of metatiles.
// Metatiles are stored at {style}/{z}/{h0}/{h1}/{h2}/{h3}/{h4}.meta relative to the root of the store.
// A Store is safe for concurrent use. Writes replace whole metatile files atomically.
type Store struct {
	inUse map[string]*cachedFile

	lru *simplelru.LRU

	settings Settings
	log      *slog.Logger

	mux sync.RWMutex
}

type cachedFile struct {
	*File
	path  string
	store *Store

	// useCount the number of users for this file.
	// This should only be modified atomically while holding read or write lock of `store`.
	useCount atomic.Int32
	// stale the file was replaced while it was in use.
	// This should only be accessed while holding the write lock of `store`.
	stale bool
}

// CachedFile a metatile file opened by a [Store].
type CachedFile struct {
	*cachedFile
	closer sync.Once
}

// Close releases the file.
// The file may be kept open by the store for later use.
func (c *CachedFile) Close() (err error) {
	c.closer.Do(func() { err = c.store.free(c.cachedFile) })
	return
}

// OpenStore opens the metatile directory at path.
// The directory is created if it does not exist and the store is not read only.
func OpenStore(path string, opt ...Settings) (s *Store, err error) {
	settings := getSettings(opt, filesystem)

	if path, err = filepath.Abs(path); err != nil {
		return nil, err
	}

	info, err := filesystem.Stat(path)
	switch {
	case os.IsNotExist(err) && !settings.ReadOnly:
		if err = filesystem.MkdirAll(path, 0777); err != nil {
			return nil, errors.Wrap("metatile: unable to create store directory", err)
		}
	case err != nil:
		return nil, errors.Wrap("metatile: unable to open store", err)
	case !info.IsDir():
		return nil, errors.Error("metatile: OpenStore: " + path + " is not a directory")
	}

	return OpenStoreFs(afero.NewBasePathFs(filesystem, path), opt...)
}

// OpenStoreFs opens a store with fs as its root.
func OpenStoreFs(fs afero.Fs, opt ...Settings) (s *Store, err error) {
	settings := getSettings(opt, fs)

	s = &Store{inUse: map[string]*cachedFile{}, settings: settings, log: settings.Logger}

	if settings.CacheSize > 0 {
		if s.lru, err = simplelru.NewLRU(settings.CacheSize, nil); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Settings returns the settings of the store.
func (s *Store) Settings() Settings { return s.settings }

// ReadTile reads the given tile.
// This returns [ErrNotExist] if the metatile file does not exist or the tile is empty.
func (s *Store) ReadTile(t Tile) (data []byte, err error) {
	var f *cachedFile
	if f, err = s.get(FromTile(t).Path("")); err != nil {
		return nil, err
	}
	defer s.free(f)

	if data, err = f.ReadTile(t.X, t.Y); err == nil && len(data) == 0 {
		return nil, errors.Cause(ErrNotExist, errors.Error(t.String()))
	}
	return
}

// File opens the given metatile for reading.
// Callers must close the returned file.
func (s *Store) File(m Metatile) (*CachedFile, error) {
	f, err := s.get(m.Path(""))
	if err != nil {
		return nil, err
	}
	return &CachedFile{cachedFile: f}, nil
}

// Exists checks if the metatile file exists.
func (s *Store) Exists(m Metatile) (bool, error) {
	return afero.Exists(s.settings.fs, m.Path(""))
}

// WriteMetatile replaces the given metatile with the given tiles.
// See [File.Write].
func (s *Store) WriteMetatile(m Metatile, tiles map[Point][]byte) error {
	if s.settings.ReadOnly {
		return ErrReadOnly
	}

	path := m.Path("")
	err := writeAtomic(s.settings.fs, path, func(f *File) error { return f.Write(m.X(), m.Y(), m.Z, tiles) })
	if err != nil {
		return err
	}

	s.drop(path)
	s.log.Debug("wrote metatile", "path", path, "tiles", len(tiles))
	return nil
}

// Metatiles returns the metatiles that cover the given bound using the store's style.
func (s *Store) Metatiles(b Bound) iter.Seq[Metatile] { return Cover(b, s.settings.Format.Style) }

// Close closes all cached files.
// Files still in use are closed once they are released.
func (s *Store) Close() (err error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.lru != nil {
		for _, key := range s.lru.Keys() {
			if v, ok := s.lru.Peek(key); ok {
				if closeErr := v.(*cachedFile).File.Close(); err == nil {
					err = closeErr
				}
			}
		}
		s.lru.Purge()
	}

	for path, f := range s.inUse {
		f.stale = true
		delete(s.inUse, path)
	}
	return
}

// get gets the file at path
func (s *Store) get(path string) (f *cachedFile, err error) {
	s.mux.RLock()
	f, ok := s.getFile(path)
	s.mux.RUnlock()

	if !ok {
		s.mux.Lock()
		defer s.mux.Unlock()
		// check if the file was opened while we were waiting for the mux
		if f, ok = s.getFile(path); !ok {

			if s.lru != nil {
				// check if the file is in the lru cache
				if v, ok := s.lru.Get(path); ok {
					s.lru.Remove(path)
					f = v.(*cachedFile)
				}
			}

			// file wasn't in the cache. read file from the disk
			if f == nil {
				var file *File
				if file, err = s.open(path); err != nil {
					return nil, err
				}
				f = &cachedFile{File: file, path: path, store: s}
				s.log.Debug("opened metatile", "path", path)
			}

			f.useCount.Add(1)
			s.inUse[path] = f
		}
	}

	return
}

func (s *Store) open(path string) (*File, error) {
	if exists, err := afero.Exists(s.settings.fs, path); err != nil {
		return nil, errors.Wrap("metatile: unable to stat file", err)
	} else if !exists {
		return nil, errors.Cause(ErrNotExist, errors.Error(path))
	}
	return OpenFs(s.settings.fs, path, ModeRead)
}

func (s *Store) free(f *cachedFile) (err error) {
	s.mux.RLock()
	newCount := f.useCount.Add(-1)
	s.mux.RUnlock()

	if newCount == 0 {
		s.mux.Lock()
		defer s.mux.Unlock()
		if newCount = f.useCount.Load(); newCount == 0 {
			if s.inUse[f.path] == f {
				delete(s.inUse, f.path)
			}

			if s.lru == nil || f.stale {
				// cache is disabled or the file was replaced. close the file
				return f.File.Close()
			}

			// evict the oldest file from the lru if adding a new element will cause a element to be evicted
			// We do this to insure the file gets closed properly and to free all associated resources.
			// We cannot use EvictCallback since there is no way to handle error that occur while closing the file.
			if s.lru.Len() == s.settings.CacheSize {
				if _, old, ok := s.lru.RemoveOldest(); ok {
					old := old.(*cachedFile)
					s.log.Debug("evicted metatile", "path", old.path)
					if err = old.File.Close(); err != nil {
						err = errors.Wrap("metatile.Store: error occurred while evicting file", err)
					}
				}
			}

			if evicted := s.lru.Add(f.path, f); evicted {
				// This should never happen since we manually evicted the oldest element
				panic("metatile.Store: File was incorrectly evicted")
			}
		}
	}
	return
}

// drop removes the file at path from the cache after it has been replaced.
func (s *Store) drop(path string) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.lru != nil {
		if v, ok := s.lru.Peek(path); ok {
			s.lru.Remove(path)
			v.(*cachedFile).File.Close()
		}
	}

	if f, ok := s.inUse[path]; ok {
		f.stale = true
		delete(s.inUse, path)
	}
}

func (s *Store) getFile(path string) (f *cachedFile, ok bool) {
	f, ok = s.inUse[path]
	if ok {
		f.useCount.Add(1)
	}
	return
}

func getSettings(s []Settings, fs afero.Fs) Settings {
	var settings = defaultSettings

	if len(s) == 1 {
		settings = s[0]

		if settings.CacheSize == 0 {
			settings.CacheSize = defaultSettings.CacheSize
		}

		if settings.Format == (TileFormat{}) {
			settings.Format = defaultSettings.Format
		}
	}

	if settings.Logger == nil {
		settings.Logger = slog.New(slog.DiscardHandler)
	}

	settings.fs = fs

	return settings
}
