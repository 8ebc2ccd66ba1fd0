package geo

import (
	"strings"

	"github.com/FireworkMC/metatile"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
)

// Polygon a ring of geographic coordinates.
type Polygon []LatLong

// Close returns the polygon with its last point prepended if the first and last points differ.
// p is never modified.
func Close(p Polygon) Polygon {
	if len(p) == 0 || p[0] == p[len(p)-1] {
		return p
	}
	closed := make(Polygon, 0, len(p)+1)
	return append(append(closed, p[len(p)-1]), p...)
}

// ParsePolygon parses a polygon with the form lat,long;lat,long;...
func ParsePolygon(s string) (p Polygon, err error) {
	for _, item := range strings.Split(s, ";") {
		if item = strings.TrimSpace(item); item == "" {
			continue
		}
		ll, err := ParseLatLong(item)
		if err != nil {
			return nil, err
		}
		p = append(p, ll)
	}
	return p, nil
}

func (p Polygon) ring() orb.Ring {
	closed := Close(p)
	r := make(orb.Ring, len(closed))
	for i, ll := range closed {
		r[i] = ll.point()
	}
	return r
}

// Contains checks if ll is inside the polygon.
// Polygons with fewer than 3 points contain nothing. Points on an edge are inside.
func (p Polygon) Contains(ll LatLong) bool {
	if len(p) < 3 {
		return false
	}
	return planar.RingContains(p.ring(), ll.point())
}

// Bound returns the smallest bound containing every point of the polygon.
func (p Polygon) Bound(z int) LatLongBound {
	b := p.ring().Bound()
	return NewLatLongBound(z, b.Min.Lat(), b.Max.Lat(), b.Min.Lon(), b.Max.Lon())
}

// Region a set of polygons.
type Region []Polygon

// Contains checks if ll is inside any polygon of the region.
func (r Region) Contains(ll LatLong) bool { return PointInRegion(ll, r) }

// ContainsTile checks if the center of the tile is inside the region.
func (r Region) ContainsTile(t metatile.Tile) bool {
	c := maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z)).Center()
	return r.Contains(LatLong{Lat: c.Lat(), Long: c.Lon()})
}

// Bound returns the tiles covering every polygon in the region at zoom z.
func (r Region) Bound(z int) (b metatile.Bound, ok bool) {
	for _, p := range r {
		if len(p) == 0 {
			continue
		}
		pb := p.Bound(z).Bound()
		if !ok {
			b, ok = pb, true
			continue
		}
		b.MinX, b.MaxX = min(b.MinX, pb.MinX), max(b.MaxX, pb.MaxX)
		b.MinY, b.MaxY = min(b.MinY, pb.MinY), max(b.MaxY, pb.MaxY)
	}
	return
}

// PointInRegion checks if ll is inside any of the polygons.
func PointInRegion(ll LatLong, polygons []Polygon) bool {
	for _, p := range polygons {
		if p.Contains(ll) {
			return true
		}
	}
	return false
}
