// Package geo converts between geographic coordinates and tile coordinates.
package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/FireworkMC/metatile"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/yehan2002/errors"
)

const (
	// ErrRange returned if a range does not have the form min:max.
	ErrRange = errors.Error("geo: invalid range")
	// ErrPoint returned if a point does not have the form lat,long.
	ErrPoint = errors.Error("geo: invalid point")
)

// precision the number of decimal places kept by [FromTile].
const precision = 1e4

// LatLong a geographic coordinate in degrees.
type LatLong struct {
	Lat, Long float64
}

func (ll LatLong) point() orb.Point { return orb.Point{ll.Long, ll.Lat} }

func (ll LatLong) String() string { return fmt.Sprintf("LatLong(lat=%g, long=%g)", ll.Lat, ll.Long) }

// ParseLatLong parses a point with the form lat,long.
func ParseLatLong(s string) (ll LatLong, err error) {
	lat, long, ok := strings.Cut(s, ",")
	if !ok {
		return ll, errors.Cause(ErrPoint, errors.Error(s))
	}
	if ll.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return ll, errors.Cause(ErrPoint, errors.Error(s))
	}
	if ll.Long, err = strconv.ParseFloat(strings.TrimSpace(long), 64); err != nil {
		return ll, errors.Cause(ErrPoint, errors.Error(s))
	}
	return ll, nil
}

// ToTile returns the tile containing ll at zoom level z.
// Points beyond the limits of the web mercator projection are snapped to the edge of the map.
func ToTile(ll LatLong, z int) metatile.Tile {
	t := maptile.At(ll.point(), maptile.Zoom(z))
	return metatile.Tile{Z: z, X: int(t.X), Y: int(t.Y)}
}

// FromTile returns the north-west corner of the tile rounded to 4 decimal places.
func FromTile(z, x, y int) LatLong {
	b := maptile.New(uint32(x), uint32(y), maptile.Zoom(z)).Bound()
	p := orb.Round(orb.Point{b.Min.Lon(), b.Max.Lat()}, precision).(orb.Point)
	return LatLong{Lat: p.Lat(), Long: p.Lon()}
}

// LatLongBound a rectangle of geographic coordinates at a zoom level.
// Start is always the north-west corner and End the south-east corner.
type LatLongBound struct {
	Z          int
	Start, End LatLong
}

// NewLatLongBound creates a bound from two latitudes and two longitudes given in any order.
func NewLatLongBound(z int, lat1, lat2, long1, long2 float64) LatLongBound {
	return LatLongBound{
		Z:     z,
		Start: LatLong{Lat: max(lat1, lat2), Long: min(long1, long2)},
		End:   LatLong{Lat: min(lat1, lat2), Long: max(long1, long2)},
	}
}

// Bound returns the tiles covered by the bound.
func (b LatLongBound) Bound() metatile.Bound {
	start, end := ToTile(b.Start, b.Z), ToTile(b.End, b.Z)
	return metatile.Bound{Z: b.Z, MinX: start.X, MaxX: end.X, MinY: start.Y, MaxY: end.Y}
}

func (b LatLongBound) String() string {
	return fmt.Sprintf("LatLongBound(z:%d %s-%s)", b.Z, b.Start, b.End)
}

// ParseRange parses a range with the form min{delim}max.
// A single value is returned as both min and max. The values may be given in any order.
func ParseRange(s, delim string) (lo, hi float64, err error) {
	items := strings.Split(s, delim)
	if len(items) == 1 {
		items = append(items, items[0])
	}
	if len(items) != 2 {
		return 0, 0, errors.Cause(ErrRange, errors.Error(s))
	}

	var v [2]float64
	for i, item := range items {
		if v[i], err = strconv.ParseFloat(strings.TrimSpace(item), 64); err != nil {
			return 0, 0, errors.Cause(ErrRange, errors.Error(s))
		}
	}
	return min(v[0], v[1]), max(v[0], v[1]), nil
}
