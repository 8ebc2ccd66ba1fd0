package metatile

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/yehan2002/errors"
)

var tilePath = regexp.MustCompile(`(?:^|/)(\w+)/(\d+)/(\d+)/(\d+)(\.\w+)$`)

// Point a tile coordinate.
type Point struct{ X, Y int }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// TileFormat the style and extension given to tiles that are created without them.
type TileFormat struct {
	// Style the style of the tiles.
	Style string
	// Ext the file extension of the tiles, including the leading dot.
	Ext string
}

// DefaultFormat the format used when none is given.
var DefaultFormat = TileFormat{Ext: ".png"}

// Tile returns the tile at the given coordinates in this format.
func (f TileFormat) Tile(z, x, y int) Tile { return Tile{Z: z, X: x, Y: y, Style: f.Style, Ext: f.Ext} }

// Tile a single map tile.
// The extension is not part of the tile's identity.
type Tile struct {
	Z, X, Y int
	Style   string
	Ext     string
}

// ParseTile parses a tile path with the form style/z/x/y.ext.
// Any directories before the style are ignored.
func ParseTile(path string) (t Tile, err error) {
	match := tilePath.FindStringSubmatch(filepath.ToSlash(path))
	if match == nil {
		return t, errors.Cause(ErrParse, errors.Error("not a tile path: "+path))
	}

	var v [3]int
	for i := range v {
		if v[i], err = strconv.Atoi(match[2+i]); err != nil {
			return t, errors.Cause(ErrParse, errors.Error("invalid coordinate: "+match[2+i]))
		}
	}

	return Tile{Style: match[1], Z: v[0], X: v[1], Y: v[2], Ext: match[5]}, nil
}

// ParsePath parses either a metatile path or a tile path and returns the metatile containing it.
func ParsePath(path string) (Metatile, error) {
	if strings.HasSuffix(path, Ext) {
		return Parse(path)
	}

	t, err := ParseTile(path)
	if err != nil {
		return Metatile{}, err
	}
	return FromTile(t), nil
}

// TileFromMetatile returns the tile at the anchor of the given metatile.
func TileFromMetatile(m Metatile, ext string) Tile {
	return Tile{Z: m.Z, X: m.X(), Y: m.Y(), Style: m.Style, Ext: ext}
}

// Point the x,y coordinates of the tile.
func (t Tile) Point() Point { return Point{t.X, t.Y} }

// Valid checks if the coordinates of the tile exist at its zoom level.
func (t Tile) Valid() bool {
	return t.Z >= 0 && t.Z <= MaxZoom && t.X >= 0 && t.Y >= 0 && t.X < 1<<t.Z && t.Y < 1<<t.Z
}

// Equal checks if both tiles have the same style and coordinates.
func (t Tile) Equal(o Tile) bool {
	return t.Style == o.Style && t.Z == o.Z && t.X == o.X && t.Y == o.Y
}

// Path returns the path of the tile relative to basedir.
func (t Tile) Path(basedir string) string {
	return filepath.Join(basedir, t.Style, strconv.Itoa(t.Z), strconv.Itoa(t.X), strconv.Itoa(t.Y)+t.Ext)
}

func (t Tile) String() string {
	return fmt.Sprintf("Tile(z:%d, x:%d, y:%d, style:%s, ext:%s)", t.Z, t.X, t.Y, t.Style, t.Ext)
}
