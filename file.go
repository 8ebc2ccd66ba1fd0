package metatile

import (
	"io"
	"sync"

	"github.com/spf13/afero"
	"github.com/yehan2002/errors"
)

// File a single metatile file.
// A file is opened either for reading or for writing, never both.
type File struct {
	mode   Mode
	header Header
	index  *Index

	read  io.ReaderAt
	write writer
	c     io.Closer

	mux     sync.RWMutex
	closed  bool
	written bool
}

// Open opens the metatile file at the given path.
// Files opened with [ModeRead] have their header and index read immediately.
// Files opened with [ModeWrite] are created or truncated.
func Open(path string, mode Mode) (*File, error) { return OpenFs(filesystem, path, mode) }

// OpenFs opens the metatile file at the given path in fs.
func OpenFs(fs afero.Fs, path string, mode Mode) (f *File, err error) {
	if mode != ModeRead && mode != ModeWrite {
		return nil, errors.Cause(ErrUnsupportedMode, errors.Error(mode.String()))
	}

	file, size, err := openFile(fs, path, mode)
	if err != nil {
		return nil, err
	}

	if mode == ModeWrite {
		return newWriter(file), nil
	}

	if f, err = NewReader(file, size); err != nil {
		file.Close()
		return nil, err
	}
	return f, nil
}

// NewReader reads the metatile from r.
// `size` must be the size of the data in r.
// Closing the returned file closes r.
func NewReader(r ReadAtCloser, size int64) (*File, error) {
	if r == nil {
		return nil, errors.Cause(ErrTruncated, errors.Error("no data"))
	}

	header, index, err := ReadHeader(r, size)
	if err != nil {
		return nil, err
	}
	return &File{mode: ModeRead, header: header, index: index, read: r, c: r}, nil
}

func newWriter(w writer) *File { return &File{mode: ModeWrite, write: w, c: w} }

// Mode the mode the file was opened in.
func (f *File) Mode() Mode { return f.mode }

// Header returns the header of the file.
// For files opened in [ModeWrite] this is only set after [File.Write] returns.
func (f *File) Header() Header {
	f.mux.RLock()
	defer f.mux.RUnlock()
	return f.header
}

// Index returns the index of the file.
// For files opened in [ModeWrite] this is nil until [File.Write] returns.
func (f *File) Index() *Index {
	f.mux.RLock()
	defer f.mux.RUnlock()
	return f.index
}

// Len the number of entries in the index.
func (f *File) Len() int { return int(f.Header().Count) }

// Contains checks if the point is in the index.
func (f *File) Contains(p Point) bool {
	index := f.Index()
	return index != nil && index.Contains(p)
}

// Close closes the file.
// This can be called multiple times.
func (f *File) Close() (err error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	if f.write != nil {
		if err = f.write.Sync(); err != nil {
			f.c.Close()
			return errors.Wrap("metatile: unable to sync file", err)
		}
	}
	return errors.Wrap("metatile: unable to close file", f.c.Close())
}

// check checks if the file is open in the given mode.
// Callers must hold f.mux.
func (f *File) check(mode Mode) error {
	switch {
	case f.closed:
		return ErrClosed
	case f.mode == mode:
		return nil
	case f.mode == ModeRead:
		return ErrReadOnly
	default:
		return ErrWriteOnly
	}
}
