// Package archive reads and writes trees of individual tiles.
//
// Tiles are stored at {style}/{z}/{x}/{y}{ext} either in a directory or in a
// tar archive that is optionally compressed with gzip or zstd.
package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/FireworkMC/metatile"
	"github.com/spf13/afero"
	"github.com/spf13/afero/tarfs"
	"github.com/yehan2002/errors"
)

const (
	// ErrCompression returned for unsupported compression methods.
	ErrCompression = errors.Error("archive: unsupported compression method")
	// ErrArchive returned if a tar archive cannot be read.
	ErrArchive = errors.Error("archive: invalid tar archive")

	errStop = errors.Error("archive: stop")
)

var filesystem afero.Fs = afero.NewOsFs()

var tilePath = regexp.MustCompile(`^(\d+)/(\d+)/(\d+)(\.\w+)$`)

// Dir a tree of tiles.
type Dir struct {
	fs       afero.Fs
	readOnly bool

	// files the regular files in an archive, nil for directories.
	// tarfs only knows the directories that have their own header.
	files []string
}

var (
	_ metatile.TileReader = &Dir{}
	_ metatile.TileWriter = &Dir{}
)

// NewDir returns a Dir with fs as its root.
func NewDir(fs afero.Fs) *Dir { return &Dir{fs: fs} }

// Open opens the directory or tar archive at path.
// Archives are read into memory and are read only.
func Open(path string) (*Dir, error) {
	info, err := filesystem.Stat(path)
	if err != nil {
		return nil, errors.Wrap("archive: unable to open", err)
	}

	if info.IsDir() {
		return NewDir(afero.NewBasePathFs(filesystem, path)), nil
	}

	c, ok := CompressionFor(path)
	if !ok {
		return nil, errors.Cause(ErrArchive, errors.Error("unknown archive type: "+path))
	}

	f, err := filesystem.Open(path)
	if err != nil {
		return nil, errors.Wrap("archive: unable to open", err)
	}
	defer f.Close()

	return Read(f, c)
}

// Read reads a tar archive compressed with c from r.
// This returns [ErrArchive] if the archive is truncated or malformed.
func Read(r io.Reader, c Compression) (*Dir, error) {
	dec, err := c.decompressor(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var buf bytes.Buffer
	if _, err = io.Copy(&buf, dec); err != nil {
		return nil, errors.Wrap("archive: unable to decompress", err)
	}

	// tarfs panics if an entry is shorter than its header says.
	files, err := scan(buf.Bytes())
	if err != nil {
		return nil, err
	}

	fs := tarfs.New(tar.NewReader(&buf))
	if fs == nil {
		return nil, ErrArchive
	}
	return &Dir{fs: fs, readOnly: true, files: files}, nil
}

// scan reads every entry of the tar archive in data and returns the paths of its regular files.
func scan(data []byte) ([]string, error) {
	files := []string{}
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Cause(ErrArchive, errors.Error(err.Error()))
		}

		if _, err = io.Copy(io.Discard, tr); err != nil {
			return nil, errors.Cause(ErrArchive, errors.Error(hdr.Name+": "+err.Error()))
		}

		if hdr.Typeflag == tar.TypeReg {
			files = append(files, strings.TrimPrefix(path.Clean("/"+hdr.Name), "/"))
		}
	}
	slices.Sort(files)
	return files, nil
}

// ReadTile reads the tile at t.Path("").
// This returns an error matching [metatile.ErrNotExist] if the file does not exist.
func (d *Dir) ReadTile(t metatile.Tile) ([]byte, error) {
	data, err := afero.ReadFile(d.fs, t.Path(""))
	if os.IsNotExist(err) {
		return nil, errors.Cause(metatile.ErrNotExist, errors.Error(t.String()))
	}
	return data, errors.Wrap("archive: unable to read tile", err)
}

// WriteTile writes the tile to t.Path("").
func (d *Dir) WriteTile(t metatile.Tile, data []byte) error {
	if d.readOnly {
		return metatile.ErrReadOnly
	}

	path := t.Path("")
	if err := d.fs.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return errors.Wrap("archive: unable to create directory", err)
	}
	return errors.Wrap("archive: unable to write tile", afero.WriteFile(d.fs, path, data, 0666))
}

// Tiles returns every tile with the given style.
// Files that are not named {z}/{x}/{y}{ext} are skipped.
// Iteration stops after the first error.
func (d *Dir) Tiles(style string) iter.Seq2[metatile.Tile, error] {
	return func(yield func(metatile.Tile, error) bool) {
		root := style
		if root == "" {
			root = "."
		}

		err := d.walk(root, func(path string) error {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}

			t, ok := parseTile(filepath.ToSlash(rel), style)
			if ok && !yield(t, nil) {
				return errStop
			}
			return nil
		})

		if err != nil && err != errStop {
			yield(metatile.Tile{}, errors.Wrap("archive: unable to list tiles", err))
		}
	}
}

// walk calls fn with the path of every file below root.
func (d *Dir) walk(root string, fn func(path string) error) error {
	if d.files == nil {
		return afero.Walk(d.fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			return fn(path)
		})
	}

	for _, name := range d.files {
		if root == "." || strings.HasPrefix(name, root+"/") {
			if err := fn(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Bounds returns the bound of the tiles with the given style at each zoom level.
func (d *Dir) Bounds(style string) (bounds metatile.Bounds, err error) {
	index := map[int]int{}
	for t, err := range d.Tiles(style) {
		if err != nil {
			return nil, err
		}

		i, ok := index[t.Z]
		if !ok {
			index[t.Z] = len(bounds)
			bounds = append(bounds, metatile.Bound{Z: t.Z, MinX: t.X, MaxX: t.X, MinY: t.Y, MaxY: t.Y})
			continue
		}

		b := &bounds[i]
		b.MinX, b.MaxX = min(b.MinX, t.X), max(b.MaxX, t.X)
		b.MinY, b.MaxY = min(b.MinY, t.Y), max(b.MaxY, t.Y)
	}
	return bounds, nil
}

func parseTile(path, style string) (t metatile.Tile, ok bool) {
	match := tilePath.FindStringSubmatch(path)
	if match == nil {
		return t, false
	}

	var v [3]int
	for i := range v {
		var err error
		if v[i], err = strconv.Atoi(match[1+i]); err != nil {
			return t, false
		}
	}
	return metatile.Tile{Z: v[0], X: v[1], Y: v[2], Style: style, Ext: match[4]}, true
}
