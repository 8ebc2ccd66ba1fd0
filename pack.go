package metatile

import (
	"errors"
)

// PackMetatile reads every tile in m from src and writes them to the store.
// Tiles that do not exist in src are written as empty tiles.
// Nothing is written if none of the tiles exist; ok reports whether the metatile was written.
func (s *Store) PackMetatile(src TileReader, m Metatile) (ok bool, err error) {
	tiles := map[Point][]byte{}
	for p := range m.Points() {
		t := Tile{Z: m.Z, X: p.X, Y: p.Y, Style: m.Style, Ext: s.settings.Format.Ext}

		data, err := src.ReadTile(t)
		if errors.Is(err, ErrNotExist) {
			continue
		} else if err != nil {
			return false, err
		}

		if len(data) != 0 {
			tiles[p] = data
		}
	}

	if len(tiles) == 0 {
		return false, nil
	}
	return true, s.WriteMetatile(m, tiles)
}

// Pack packs the tiles of every metatile covering b.
// Whole metatiles are written, including tiles outside of b.
// This returns the number of metatiles written.
func (s *Store) Pack(src TileReader, b Bound) (n int, err error) {
	for m := range s.Metatiles(b) {
		var ok bool
		if ok, err = s.PackMetatile(src, m); err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	s.log.Info("packed tiles", "bound", b.String(), "metatiles", n)
	return n, nil
}

// Unpack writes every non-empty tile in m to dst.
// This returns the number of tiles written.
func (s *Store) Unpack(m Metatile, dst TileWriter) (n int, err error) {
	f, err := s.File(m)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	for p := range f.Index().Existing() {
		if !m.Contains(Tile{Z: m.Z, X: p.X, Y: p.Y, Style: m.Style}) {
			// entries outside the tile grid at low zoom levels
			continue
		}

		data, err := f.ReadTile(p.X, p.Y)
		if err != nil {
			return n, err
		}

		if err = dst.WriteTile(Tile{Z: m.Z, X: p.X, Y: p.Y, Style: m.Style, Ext: s.settings.Format.Ext}, data); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
