package archive

import (
	"archive/tar"
	"io"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/FireworkMC/metatile"
	"github.com/yehan2002/errors"
)

// Writer writes tiles to a tar archive.
type Writer struct {
	dst io.Closer
	c   io.WriteCloser
	tw  *tar.Writer

	dirs    map[string]bool
	modTime time.Time

	mux    sync.Mutex
	closed bool
}

var _ metatile.TileWriter = &Writer{}

// Create creates a tar archive at name.
// The compression method is picked from the extension of name.
func Create(name string) (*Writer, error) {
	c, ok := CompressionFor(name)
	if !ok {
		return nil, errors.Cause(ErrArchive, errors.Error("unknown archive type: "+name))
	}

	f, err := filesystem.Create(name)
	if err != nil {
		return nil, errors.Wrap("archive: unable to create archive", err)
	}

	w, err := NewWriter(f, c)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.dst = f
	return w, nil
}

// NewWriter returns a Writer that writes a tar archive compressed with c to dst.
// Closing the writer does not close dst.
func NewWriter(dst io.Writer, c Compression) (*Writer, error) {
	comp, err := c.compressor(dst)
	if err != nil {
		return nil, err
	}
	return &Writer{c: comp, tw: tar.NewWriter(comp), dirs: map[string]bool{}, modTime: time.Now()}, nil
}

// WriteTile adds the tile to the archive at t.Path("").
// WriteTile can be called concurrently.
func (w *Writer) WriteTile(t metatile.Tile, data []byte) error {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return metatile.ErrClosed
	}

	name := path.Clean(filepath.ToSlash(t.Path("")))
	if err := w.mkdirs(path.Dir(name)); err != nil {
		return err
	}

	hdr := &tar.Header{Typeflag: tar.TypeReg, Name: name, Size: int64(len(data)), Mode: 0644, ModTime: w.modTime}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return errors.Wrap("archive: unable to write header", err)
	}
	_, err := w.tw.Write(data)
	return errors.Wrap("archive: unable to write tile", err)
}

// mkdirs writes headers for dir and all of its parents.
func (w *Writer) mkdirs(dir string) error {
	if dir == "." || dir == "/" || w.dirs[dir] {
		return nil
	}
	if err := w.mkdirs(path.Dir(dir)); err != nil {
		return err
	}

	hdr := &tar.Header{Typeflag: tar.TypeDir, Name: dir + "/", Mode: 0755, ModTime: w.modTime}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return errors.Wrap("archive: unable to write header", err)
	}
	w.dirs[dir] = true
	return nil
}

// Close finishes the archive.
// This can be called multiple times.
func (w *Writer) Close() (err error) {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	err = errors.Wrap("archive: unable to finish archive", w.tw.Close())
	if closeErr := w.c.Close(); err == nil {
		err = errors.Wrap("archive: unable to compress", closeErr)
	}
	if w.dst != nil {
		if closeErr := w.dst.Close(); err == nil {
			err = errors.Wrap("archive: unable to close archive", closeErr)
		}
	}
	return err
}
