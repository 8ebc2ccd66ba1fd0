package metatile

import (
	"fmt"
	"io"
	"iter"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/yehan2002/errors"
	"github.com/yehan2002/fastbytes/v2"
)

const (
	// HeaderSize the size of the fixed part of the header: magic, count, x, y, z.
	HeaderSize = len(Magic) + 4*4
	// EntrySize the size of a single index entry: offset, size.
	EntrySize = 2 * 4
	// MaxCount the maximum number of entries accepted when reading a file.
	MaxCount = 32 * 32
)

// Magic the bytes every metatile file starts with.
var Magic = [4]byte{'M', 'E', 'T', 'A'}

// Header the fixed size header of a metatile file.
type Header struct {
	// Count the number of entries in the index.
	Count int32
	// X, Y the coordinates of the lowest tile in the metatile.
	X, Y int32
	// Z the zoom level.
	Z int32
}

// EdgeLength the number of entries along one edge of the index.
func (h Header) EdgeLength() int { return int(math.Round(math.Sqrt(float64(h.Count)))) }

// DataOffset the offset where the tile data starts.
func (h Header) DataOffset() int64 { return int64(HeaderSize) + int64(EntrySize)*int64(h.Count) }

func (h Header) String() string {
	return fmt.Sprintf("Header(count=%d, x=%d, y=%d, z=%d)", h.Count, h.X, h.Y, h.Z)
}

// Entry the location of a tile in a metatile file.
type Entry struct {
	// Offset the offset of the tile data from the start of the file.
	Offset int32
	// Size the size of the tile data in bytes.
	// If this is zero the tile is empty.
	Size int32
}

// Exists returns if the entry contains any data.
func (e Entry) Exists() bool { return e.Size != 0 }

// Index the index of a metatile file.
// Entries are stored in the same order as the file, ordered by x then y.
type Index struct {
	x, y    int
	edge    int
	entries []Entry
	used    *bitset.BitSet
}

func newIndex(x, y, edge int) *Index {
	return &Index{x: x, y: y, edge: edge, entries: make([]Entry, edge*edge), used: bitset.New(uint(edge * edge))}
}

// pos returns the position of the entry for p in the index.
func (i *Index) pos(p Point) (int, bool) {
	dx, dy := p.X-i.x, p.Y-i.y
	if dx < 0 || dy < 0 || dx >= i.edge || dy >= i.edge {
		return 0, false
	}
	return dx*i.edge + dy, true
}

// point returns the point for the entry at position n.
func (i *Index) point(n int) Point { return Point{i.x + n/i.edge, i.y + n%i.edge} }

func (i *Index) set(n int, e Entry) {
	i.entries[n] = e
	if e.Exists() {
		i.used.Set(uint(n))
	} else {
		i.used.Clear(uint(n))
	}
}

// Get gets the entry for the given point.
func (i *Index) Get(p Point) (e Entry, ok bool) {
	n, ok := i.pos(p)
	if ok {
		e = i.entries[n]
	}
	return
}

// Contains checks if the point is in the index.
func (i *Index) Contains(p Point) bool { _, ok := i.pos(p); return ok }

// Len the number of entries in the index.
func (i *Index) Len() int { return len(i.entries) }

// Populated the number of entries that contain data.
func (i *Index) Populated() int { return int(i.used.Count()) }

// All returns all entries in the order they are stored.
func (i *Index) All() iter.Seq2[Point, Entry] {
	return func(yield func(Point, Entry) bool) {
		for n, e := range i.entries {
			if !yield(i.point(n), e) {
				return
			}
		}
	}
}

// Existing returns the entries that contain data.
func (i *Index) Existing() iter.Seq2[Point, Entry] {
	return func(yield func(Point, Entry) bool) {
		for n, ok := i.used.NextSet(0); ok; n, ok = i.used.NextSet(n + 1) {
			if !yield(i.point(int(n)), i.entries[n]) {
				return
			}
		}
	}
}

// ReadHeader reads the header and index from the given reader.
// `size` is the size of the file and is used to validate the index.
func ReadHeader(r io.ReaderAt, size int64) (h Header, index *Index, err error) {
	var buf [HeaderSize]byte
	if err = readFull(r, buf[:], 0); err != nil {
		return h, nil, wrapRead("metatile: unable to read header", err)
	}

	if [4]byte(buf[:4]) != Magic {
		return h, nil, ErrBadMagic
	}

	var fields [4]uint32
	fastbytes.LittleEndian.ToU32(buf[len(Magic):], fields[:])
	h = Header{Count: int32(fields[0]), X: int32(fields[1]), Y: int32(fields[2]), Z: int32(fields[3])}

	edge := h.EdgeLength()
	if h.Count <= 0 || h.Count > MaxCount || edge*edge != int(h.Count) {
		return h, nil, errors.Cause(ErrHeaderSize, errors.Error(fmt.Sprintf("invalid entry count %d", h.Count)))
	}

	if h.DataOffset() > size {
		return h, nil, errors.Cause(ErrTruncated, errors.Error("file is smaller than the index"))
	}

	table := make([]byte, EntrySize*int(h.Count))
	if err = readFull(r, table, int64(HeaderSize)); err != nil {
		return h, nil, wrapRead("metatile: unable to read index", err)
	}

	raw := make([]uint32, 2*h.Count)
	fastbytes.LittleEndian.ToU32(table, raw)

	index = newIndex(int(h.X), int(h.Y), edge)
	for n := range index.entries {
		e := Entry{Offset: int32(raw[2*n]), Size: int32(raw[2*n+1])}
		if e.Offset < 0 || e.Size < 0 || int64(e.Offset)+int64(e.Size) > size {
			return h, nil, errors.Cause(ErrTruncated, errors.Error(fmt.Sprintf("entry %s is outside the file", index.point(n))))
		}
		index.set(n, e)
	}

	return h, index, nil
}

// readFull reads exactly len(p) bytes at off.
func readFull(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func wrapRead(msg string, err error) error {
	if err == io.ErrUnexpectedEOF {
		return errors.Cause(ErrTruncated, errors.Error(msg))
	}
	return errors.Wrap(msg, err)
}
