package metatile

import (
	"slices"
	"testing"

	"github.com/yehan2002/is/v2"
)

type regionTest struct{}

func TestRegion(t *testing.T) { is.SuiteP(t, &regionTest{}) }

func (*regionTest) TestCover(is is.Is) {
	b := Bound{Z: 10, MinX: 692, MaxX: 703, MinY: 318, MaxY: 324}

	var got []string
	for m := range Cover(b, "mapname") {
		got = append(got, m.String())
	}

	is.Equal(got, []string{
		"Metatile(z:10, x:688-695, y:312-319, style:mapname)",
		"Metatile(z:10, x:688-695, y:320-327, style:mapname)",
		"Metatile(z:10, x:696-703, y:312-319, style:mapname)",
		"Metatile(z:10, x:696-703, y:320-327, style:mapname)",
	}, "incorrect metatiles")

	// the sequence must be restartable
	is(len(slices.Collect(Cover(b, "mapname"))) == 4, "incorrect number of metatiles on second iteration")
}

func (*regionTest) TestCoverSingle(is is.Is) {
	ms := slices.Collect(Cover(Bound{Z: 1, MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}, ""))
	is(len(ms) == 1, "expected a single metatile got %d", len(ms))
	is(ms[0].EdgeLength() == 2, "incorrect edge length %d", ms[0].EdgeLength())
}

func (*regionTest) TestCoverStop(is is.Is) {
	n := 0
	for range Cover(Bound{Z: 12, MinX: 0, MaxX: 255, MinY: 0, MaxY: 255}, "") {
		if n++; n == 3 {
			break
		}
	}
	is(n == 3, "iteration did not stop")
}

func (*regionTest) TestBoundContains(is is.Is) {
	b := Bound{Z: 15, MinX: 26248, MaxX: 26253, MinY: 10816, MaxY: 10821}
	is(b.Contains(Tile{Z: 15, X: 26248, Y: 10821}), "tile must be contained")
	is(b.Contains(Tile{Z: 15, X: 26249, Y: 10817}), "tile must be contained")
	is(!b.Contains(Tile{Z: 15, X: 26247, Y: 10820}), "tile must not be contained")
	is(!b.Contains(Tile{Z: 14, X: 26249, Y: 10817}), "tile at another zoom must not be contained")
}

func (*regionTest) TestBoundTiles(is is.Is) {
	b := Bound{Z: 4, MinX: 9, MaxX: 10, MinY: 6, MaxY: 6}
	var got []string
	for t := range b.Tiles(DefaultFormat) {
		got = append(got, t.Path(""))
	}
	is.Equal(got, []string{"4/9/6.png", "4/10/6.png"}, "incorrect tiles")
	is(b.String() == "Bound(z:4 x:9-10 y:6-6)", "incorrect string %s", b)
}

func (*regionTest) TestBounds(is is.Is) {
	bounds := Bounds{
		{Z: 12, MinX: 3281, MaxX: 3281, MinY: 1352, MaxY: 1352},
		{Z: 15, MinX: 26248, MaxX: 26253, MinY: 10816, MaxY: 10821},
	}

	is(bounds.Contains(Tile{Z: 12, X: 3281, Y: 1352}), "tile must be contained")
	is(bounds.Contains(Tile{Z: 15, X: 26248, Y: 10821}), "tile must be contained")
	is(!bounds.Contains(Tile{Z: 15, X: 26247, Y: 10820}), "tile must not be contained")

	b, ok := bounds.ForZoom(15)
	is(ok && b.MinX == 26248, "incorrect bound for zoom 15")
	_, ok = bounds.ForZoom(3)
	is(!ok, "unexpected bound for zoom 3")

	is(len(slices.Collect(bounds.Tiles(DefaultFormat))) == 1+36, "incorrect number of tiles")
}
