package metatile

import (
	"fmt"
	"io"

	"github.com/yehan2002/errors"
)

// ReadTile reads the data of the tile at x,y.
// This returns [ErrTileNotIndexed] if the tile is not in the index.
// Tiles that are indexed but empty return an empty slice.
// ReadTile can be called concurrently.
func (f *File) ReadTile(x, y int) ([]byte, error) {
	f.mux.RLock()
	defer f.mux.RUnlock()

	if err := f.check(ModeRead); err != nil {
		return nil, err
	}
	return f.readTile(Point{x, y})
}

func (f *File) readTile(p Point) ([]byte, error) {
	entry, ok := f.index.Get(p)
	if !ok {
		return nil, errors.Cause(ErrTileNotIndexed, errors.Error(fmt.Sprintf("%s is not in %s", p, f.header)))
	}

	data := make([]byte, entry.Size)
	if err := readFull(f.read, data, int64(entry.Offset)); err != nil {
		return nil, wrapRead("metatile: unable to read tile data", err)
	}
	return data, nil
}

// ReaderFor returns a reader for the data of the tile at x,y.
// The reader is only valid until the file is closed.
func (f *File) ReaderFor(x, y int) (io.Reader, error) {
	f.mux.RLock()
	defer f.mux.RUnlock()

	if err := f.check(ModeRead); err != nil {
		return nil, err
	}

	p := Point{x, y}
	entry, ok := f.index.Get(p)
	if !ok {
		return nil, errors.Cause(ErrTileNotIndexed, errors.Error(fmt.Sprintf("%s is not in %s", p, f.header)))
	}
	return io.NewSectionReader(f.read, int64(entry.Offset), int64(entry.Size)), nil
}

// ReadTiles reads every tile in the index.
// Empty tiles are included with an empty slice.
func (f *File) ReadTiles() (map[Point][]byte, error) {
	f.mux.RLock()
	defer f.mux.RUnlock()

	if err := f.check(ModeRead); err != nil {
		return nil, err
	}

	tiles := make(map[Point][]byte, f.index.Len())
	for p := range f.index.All() {
		data, err := f.readTile(p)
		if err != nil {
			return nil, err
		}
		tiles[p] = data
	}
	return tiles, nil
}
