// Package metatile reads and writes mod_tile metatiles.
//
// A metatile packs a square block of up to 8x8 map tiles into a single
// container file. The container starts with a header and an index of
// offset/size pairs followed by the tile data.
// Metatiles are stored in a directory tree sharded by the hashes of
// the metatile's coordinates: {basedir}/{style}/{z}/{h0}/{h1}/{h2}/{h3}/{h4}.meta
package metatile

import (
	"fmt"
	"iter"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/yehan2002/errors"
)

const (
	// ErrBadMagic returned if the file does not start with [Magic].
	ErrBadMagic = errors.Error("metatile: invalid magic")
	// ErrHeaderSize returned if the header contains an invalid tile count.
	ErrHeaderSize = errors.Error("metatile: invalid header size")
	// ErrTruncated returned if the file is smaller than its header implies.
	ErrTruncated = errors.Error("metatile: truncated file")
	// ErrUnsupportedMode returned if a file is opened with a mode other than [ModeRead] or [ModeWrite].
	ErrUnsupportedMode = errors.Error("metatile: mode not supported")
	// ErrParse returned if a path cannot be parsed as a tile or metatile path.
	ErrParse = errors.Error("metatile: unable to parse path")
	// ErrTileNotIndexed returned if the tile is not in the index of the metatile.
	ErrTileNotIndexed = errors.Error("metatile: tile not indexed")
	// ErrInvalidHash returned if a hash sequence does not contain exactly [HashCount] bytes.
	ErrInvalidHash = errors.Error("metatile: invalid hash length")
	// ErrClosed the file has already been closed.
	ErrClosed = errors.Error("metatile: file closed")
	// ErrReadOnly the file or store was opened in read-only mode.
	ErrReadOnly = errors.Error("metatile: opened in read-only mode")
	// ErrWriteOnly the file was opened for writing.
	ErrWriteOnly = errors.Error("metatile: file is opened in write mode")
	// ErrWritten the file has already been written to.
	ErrWritten = errors.Error("metatile: file has already been written")
	// ErrTooLarge returned if the tile data does not fit in a metatile file.
	ErrTooLarge = errors.Error("metatile: tile data too large")
	// ErrNotExist returned if a tile does not exist.
	ErrNotExist = errors.Error("metatile: tile does not exist")
)

const (
	// Size the maximum number of tiles along one edge of a metatile.
	Size = 8
	// Count the number of index entries written to every metatile.
	Count = Size * Size
	// Ext the extension of metatile files.
	Ext = ".meta"
	// MaxZoom the maximum zoom level that can be represented by [Hashes].
	MaxZoom = 20
)

var metatilePath = regexp.MustCompile(`(?:^|/)(\w+)/(\d+)/(\d+)/(\d+)/(\d+)/(\d+)/(\d+)\.meta$`)

// Metatile a block of tiles stored in a single file.
// Metatiles are immutable and can be compared using [Metatile.Equal].
type Metatile struct {
	Z      int
	Hashes Hashes
	Style  string

	x, y int
}

// New creates a metatile from its hashes.
func New(z int, hashes Hashes, style string) Metatile {
	x, y := hashes.XY()
	return Metatile{Z: z, Hashes: hashes, Style: style, x: x, y: y}
}

// FromTile returns the metatile that contains the given tile.
func FromTile(t Tile) Metatile { return New(t.Z, ToHashes(t.X, t.Y, Size), t.Style) }

// Parse parses a metatile path with the form style/z/h0/h1/h2/h3/h4.meta.
// Any directories before the style are ignored.
func Parse(path string) (m Metatile, err error) {
	match := metatilePath.FindStringSubmatch(filepath.ToSlash(path))
	if match == nil {
		return m, errors.Cause(ErrParse, errors.Error("not a metatile path: "+path))
	}

	z, err := strconv.ParseUint(match[2], 10, 8)
	if err != nil || z > MaxZoom {
		return m, errors.Cause(ErrParse, errors.Error("invalid zoom: "+match[2]))
	}

	var hashes Hashes
	for i := range hashes {
		v, err := strconv.ParseUint(match[3+i], 10, 8)
		if err != nil {
			return m, errors.Cause(ErrParse, errors.Error("invalid hash: "+match[3+i]))
		}
		hashes[i] = uint8(v)
	}

	return New(int(z), hashes, match[1]), nil
}

// X the lowest x coordinate of the tiles in this metatile.
func (m Metatile) X() int { return m.x }

// Y the lowest y coordinate of the tiles in this metatile.
func (m Metatile) Y() int { return m.y }

// EdgeLength the number of tiles along one edge of the metatile.
// This is smaller than [Size] if there are fewer tiles at the metatile's zoom level.
func (m Metatile) EdgeLength() int {
	if m.Z >= 3 {
		return Size
	}
	return 1 << m.Z
}

// Bound returns the tiles covered by this metatile.
func (m Metatile) Bound() Bound {
	n := m.EdgeLength() - 1
	return Bound{Z: m.Z, MinX: m.x, MaxX: m.x + n, MinY: m.y, MaxY: m.y + n}
}

// Points returns the coordinates of all tiles in the metatile.
// The points are ordered by x then y, matching the order of the index in a metatile file.
func (m Metatile) Points() iter.Seq[Point] { return points(m.x, m.y, m.EdgeLength()) }

// Contains checks if the tile is inside this metatile.
func (m Metatile) Contains(t Tile) bool {
	if t.Style != m.Style || t.Z != m.Z {
		return false
	}
	n := m.EdgeLength()
	return t.X >= m.x && t.X < m.x+n && t.Y >= m.y && t.Y < m.y+n
}

// Equal checks if both metatiles have the same style, zoom and coordinates.
func (m Metatile) Equal(o Metatile) bool {
	return m.Style == o.Style && m.Z == o.Z && m.x == o.x && m.y == o.y
}

// Path returns the path of the metatile file relative to basedir.
func (m Metatile) Path(basedir string) string {
	h := m.Hashes
	return filepath.Join(basedir, m.Style, strconv.Itoa(m.Z),
		strconv.Itoa(int(h[0])), strconv.Itoa(int(h[1])), strconv.Itoa(int(h[2])), strconv.Itoa(int(h[3])),
		strconv.Itoa(int(h[4]))+Ext)
}

func (m Metatile) String() string {
	n := m.EdgeLength() - 1
	return fmt.Sprintf("Metatile(z:%d, x:%d-%d, y:%d-%d, style:%s)", m.Z, m.x, m.x+n, m.y, m.y+n, m.Style)
}

// points yields every point in the n*n square starting at x,y, ordered by x then y.
func points(x, y, n int) iter.Seq[Point] {
	return func(yield func(Point) bool) {
		for px := x; px < x+n; px++ {
			for py := y; py < y+n; py++ {
				if !yield(Point{px, py}) {
					return
				}
			}
		}
	}
}
