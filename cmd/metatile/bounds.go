package main

import (
	"math"

	"github.com/FireworkMC/metatile"
	"github.com/FireworkMC/metatile/geo"
	"github.com/spf13/cobra"
	"github.com/yehan2002/errors"
)

// errBound returned if the bound flags are invalid.
const errBound = errors.Error("invalid bound")

// boundFlags selects the tiles a command works on.
type boundFlags struct {
	zoom     string
	x, y     string
	lat      string
	long     string
	polygons []string
}

func (f *boundFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.zoom, "zoom", "z", "", "Zoom level or range of zoom levels (min:max)")
	flags.StringVarP(&f.x, "x", "x", "", "Range of x coordinates (min:max)")
	flags.StringVarP(&f.y, "y", "y", "", "Range of y coordinates (min:max)")
	flags.StringVar(&f.lat, "lat", "", "Range of latitudes (min:max)")
	flags.StringVar(&f.long, "long", "", "Range of longitudes (min:max)")
	flags.StringArrayVarP(&f.polygons, "polygon", "p", nil, "Polygon with the form lat,long;lat,long;... (repeatable)")
}

// set checks if a zoom level was given.
func (f *boundFlags) set() bool { return f.zoom != "" }

// bounds returns one bound per zoom level and the region the tiles must be inside, if any.
func (f *boundFlags) bounds() (bounds metatile.Bounds, region geo.Region, err error) {
	if !f.set() {
		return nil, nil, errors.Cause(errBound, errors.Error("zoom level must be given"))
	}
	zmin, zmax, err := intRange(f.zoom, 0, metatile.MaxZoom)
	if err != nil {
		return nil, nil, err
	}

	for _, s := range f.polygons {
		p, err := geo.ParsePolygon(s)
		if err != nil {
			return nil, nil, err
		}
		region = append(region, p)
	}

	var lat, long [2]float64
	geographic := f.lat != "" || f.long != ""
	if geographic {
		if lat[0], lat[1], err = geo.ParseRange(f.lat, ":"); err != nil {
			return nil, nil, err
		}
		if long[0], long[1], err = geo.ParseRange(f.long, ":"); err != nil {
			return nil, nil, err
		}
	}

	for z := zmin; z <= zmax; z++ {
		last := 1<<z - 1
		b := metatile.Bound{Z: z, MaxX: last, MaxY: last}

		switch {
		case geographic:
			b = geo.NewLatLongBound(z, lat[0], lat[1], long[0], long[1]).Bound()
		case len(region) != 0:
			b, _ = region.Bound(z)
		}

		if f.x != "" {
			if b.MinX, b.MaxX, err = intRange(f.x, 0, last); err != nil {
				return nil, nil, err
			}
		}
		if f.y != "" {
			if b.MinY, b.MaxY, err = intRange(f.y, 0, last); err != nil {
				return nil, nil, err
			}
		}
		bounds = append(bounds, b)
	}
	return bounds, region, nil
}

// intRange parses a range of integers and clamps it to lo-hi.
func intRange(s string, lo, hi int) (int, int, error) {
	if s == "" {
		return 0, 0, errors.Cause(errBound, errors.Error("empty range"))
	}
	a, b, err := geo.ParseRange(s, ":")
	if err != nil {
		return 0, 0, err
	}
	if a != math.Trunc(a) || b != math.Trunc(b) {
		return 0, 0, errors.Cause(errBound, errors.Error("not an integer range: "+s))
	}
	if int(b) < lo || int(a) > hi {
		return 0, 0, errors.Cause(errBound, errors.Error("range out of bounds: "+s))
	}
	return max(int(a), lo), min(int(b), hi), nil
}

// inRegion checks if any tile of the metatile is inside the region.
// Every metatile is inside an empty region.
func inRegion(m metatile.Metatile, region geo.Region) bool {
	if len(region) == 0 {
		return true
	}
	for p := range m.Points() {
		if region.ContainsTile(metatile.Tile{Z: m.Z, X: p.X, Y: p.Y, Style: m.Style}) {
			return true
		}
	}
	return false
}
