package metatile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/yehan2002/errors"
)

var filesystem afero.Fs = &afero.OsFs{}

// Mode the mode a metatile file is opened in.
type Mode uint8

// supported modes
const (
	// ModeRead opens an existing file for reading.
	ModeRead Mode = 1 + iota
	// ModeWrite creates or truncates a file for writing.
	ModeWrite
)

// ParseMode parses "rb" or "wb" into a [Mode].
func ParseMode(s string) (Mode, error) {
	switch s {
	case "rb":
		return ModeRead, nil
	case "wb":
		return ModeWrite, nil
	}
	return 0, errors.Cause(ErrUnsupportedMode, errors.Error(s))
}

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "rb"
	case ModeWrite:
		return "wb"
	default:
		return "unsupported"
	}
}

// ReadAtCloser an interface that implements io.ReaderAt and io.Closer
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

type noopReadAtCloser struct{ io.ReaderAt }

func (r *noopReadAtCloser) Close() error { return nil }

// NopCloser returns a ReadAtCloser with a no-op Close method wrapping r.
func NopCloser(r io.ReaderAt) ReadAtCloser { return &noopReadAtCloser{r} }

// writer the file a metatile is written to.
type writer interface {
	io.Writer
	io.Closer
	Sync() error
}

var _ writer = afero.File(nil)
var _ ReadAtCloser = afero.File(nil)

func openFile(fs afero.Fs, path string, mode Mode) (f afero.File, size int64, err error) {
	var flags int
	switch mode {
	case ModeRead:
		flags = os.O_RDONLY
	case ModeWrite:
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	default:
		return nil, 0, errors.Cause(ErrUnsupportedMode, errors.Error(mode.String()))
	}

	if f, err = fs.OpenFile(path, flags, 0666); err != nil {
		return nil, 0, errors.Wrap("metatile: unable to open file", err)
	}

	if mode == ModeRead {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, errors.Wrap("metatile: unable to stat file", err)
		}
		size = info.Size()
	}

	return f, size, nil
}

// writeAtomic writes a file by writing to a temporary file in the same directory
// and renaming it to `path` once `write` succeeds.
func writeAtomic(fs afero.Fs, path string, write func(f *File) error) (err error) {
	dir := filepath.Dir(path)
	if err = fs.MkdirAll(dir, 0777); err != nil {
		return errors.Wrap("metatile: unable to create directory", err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return errors.Wrap("metatile: unable to create temporary file", err)
	}
	name := tmp.Name()

	f := newWriter(tmp)
	err = write(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = errors.Wrap("metatile: unable to rename temporary file", fs.Rename(name, path))
	}

	if err != nil {
		fs.Remove(name)
	}
	return err
}
