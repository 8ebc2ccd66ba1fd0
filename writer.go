package metatile

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/valyala/bytebufferpool"
	"github.com/yehan2002/errors"
)

// Write writes a complete metatile to the file.
// x, y and z are written to the header as the metatile's coordinates.
// `tiles` maps the coordinates of each tile to its data. Tiles that are
// missing from the map are written as empty tiles.
// Write can only be called once for each file.
func (f *File) Write(x, y, z int, tiles map[Point][]byte) (err error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	if err = f.check(ModeWrite); err != nil {
		return err
	}
	if f.written {
		return ErrWritten
	}
	// the file contents are undefined after a failed write.
	f.written = true

	w := bufio.NewWriter(f.write)
	header, index, err := encode(w, x, y, z, tiles)
	if err == nil {
		err = errors.Wrap("metatile: unable to write tile data", w.Flush())
	}
	if err == nil {
		f.header, f.index = header, index
	}
	return err
}

// Encode writes a metatile to w.
// See [File.Write].
func Encode(w io.Writer, x, y, z int, tiles map[Point][]byte) error {
	_, _, err := encode(w, x, y, z, tiles)
	return err
}

func encode(w io.Writer, x, y, z int, tiles map[Point][]byte) (h Header, index *Index, err error) {
	// mod_tile always writes a full index, even for zoom levels with less than Size*Size tiles.
	h = Header{Count: Count, X: int32(x), Y: int32(y), Z: int32(z)}

	if index, err = buildIndex(h, tiles); err != nil {
		return h, nil, err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	writeHeader(buf, h, index)
	if _, err = w.Write(buf.B); err != nil {
		return h, nil, errors.Wrap("metatile: unable to write header", err)
	}

	for p := range index.Existing() {
		if _, err = w.Write(tiles[p]); err != nil {
			return h, nil, errors.Wrap("metatile: unable to write tile data", err)
		}
	}

	return h, index, nil
}

// buildIndex computes the location of every tile.
// Empty tiles point to where the next tile starts and take up no space.
func buildIndex(h Header, tiles map[Point][]byte) (*Index, error) {
	index := newIndex(int(h.X), int(h.Y), h.EdgeLength())

	offset := h.DataOffset()
	for n := range index.entries {
		size := int64(len(tiles[index.point(n)]))
		if offset+size > math.MaxInt32 {
			return nil, ErrTooLarge
		}

		index.set(n, Entry{Offset: int32(offset), Size: int32(size)})
		offset += size
	}
	return index, nil
}

// writeHeader appends the header and index table to buf.
func writeHeader(buf *bytebufferpool.ByteBuffer, h Header, index *Index) {
	buf.Write(Magic[:])
	for _, v := range [...]int32{h.Count, h.X, h.Y, h.Z} {
		buf.B = binary.LittleEndian.AppendUint32(buf.B, uint32(v))
	}

	for _, e := range index.entries {
		buf.B = binary.LittleEndian.AppendUint32(buf.B, uint32(e.Offset))
		buf.B = binary.LittleEndian.AppendUint32(buf.B, uint32(e.Size))
	}
}
