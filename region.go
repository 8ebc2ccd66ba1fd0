package metatile

import (
	"fmt"
	"iter"
)

// Bound a rectangle of tiles at a single zoom level.
// Both the min and max coordinates are inclusive.
type Bound struct {
	Z          int
	MinX, MaxX int
	MinY, MaxY int
}

// Contains checks if the given tile is inside the bound.
// The style of the tile is ignored.
func (b Bound) Contains(t Tile) bool {
	return t.Z == b.Z && t.X >= b.MinX && t.X <= b.MaxX && t.Y >= b.MinY && t.Y <= b.MaxY
}

// Tiles returns all tiles inside the bound ordered by x then y.
func (b Bound) Tiles(f TileFormat) iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		for x := b.MinX; x <= b.MaxX; x++ {
			for y := b.MinY; y <= b.MaxY; y++ {
				if !yield(f.Tile(b.Z, x, y)) {
					return
				}
			}
		}
	}
}

func (b Bound) String() string {
	return fmt.Sprintf("Bound(z:%d x:%d-%d y:%d-%d)", b.Z, b.MinX, b.MaxX, b.MinY, b.MaxY)
}

// Cover returns the metatiles that cover the given bound.
// Metatiles are ordered by x then y.
func Cover(b Bound, style string) iter.Seq[Metatile] {
	return func(yield func(Metatile) bool) {
		start := New(b.Z, ToHashes(b.MinX, b.MinY, Size), style)
		end := New(b.Z, ToHashes(b.MaxX, b.MaxY, Size), style)

		for x := start.x; x <= end.x; x += Size {
			for y := start.y; y <= end.y; y += Size {
				if !yield(New(b.Z, ToHashes(x, y, Size), style)) {
					return
				}
			}
		}
	}
}

// Bounds a list of bounds, usually one per zoom level.
type Bounds []Bound

// ForZoom returns the first bound at the given zoom level.
func (b Bounds) ForZoom(z int) (Bound, bool) {
	for _, bound := range b {
		if bound.Z == z {
			return bound, true
		}
	}
	return Bound{}, false
}

// Contains checks if any of the bounds contain the tile.
func (b Bounds) Contains(t Tile) bool {
	for _, bound := range b {
		if bound.Contains(t) {
			return true
		}
	}
	return false
}

// Tiles returns every tile in each bound.
func (b Bounds) Tiles(f TileFormat) iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		for _, bound := range b {
			for t := range bound.Tiles(f) {
				if !yield(t) {
					return
				}
			}
		}
	}
}
