package metatile

import (
	"errors"
	"testing"

	"github.com/yehan2002/is/v2"
)

type hashTest struct{}

func TestHash(t *testing.T) { is.SuiteP(t, &hashTest{}) }

func (*hashTest) TestToHashes(is is.Is) {
	is.Equal(ToHashes(697, 321, Size), Hashes{0, 0, 33, 180, 128}, "incorrect hashes")
	is.Equal(ToHashes(696, 320, Size), Hashes{0, 0, 33, 180, 128}, "incorrect hashes for aligned coordinates")
	is.Equal(ToHashes(1, 1, Size), Hashes{}, "incorrect hashes at zoom 1")
}

func (*hashTest) TestRoundtrip(is is.Is) {
	coords := []int{0, 1, 7, 8, 9, 255, 256, 697, 4095, 65535, 1<<20 - 9, 1<<20 - 1}
	for _, x := range coords {
		for _, y := range coords {
			gx, gy := ToHashes(x, y, Size).XY()
			is(gx == x&^7 && gy == y&^7, "incorrect roundtrip for %d,%d: got %d,%d", x, y, gx, gy)
		}
	}

	for x := 0; x < 1<<20; x += 4099 {
		y := (1<<20 - 1) - x
		gx, gy := ToHashes(x, y, Size).XY()
		is(gx == x&^7 && gy == y&^7, "incorrect roundtrip for %d,%d: got %d,%d", x, y, gx, gy)
	}
}

func (*hashTest) TestAlign(is is.Is) {
	gx, gy := ToHashes(17, 31, 16).XY()
	is(gx == 16 && gy == 16, "incorrect alignment: got %d,%d", gx, gy)
}

func (*hashTest) TestFromBytes(is is.Is) {
	h, err := HashesFromBytes([]byte{0, 0, 33, 180, 128})
	is(err == nil, "unexpected error: %s", err)
	x, y := h.XY()
	is(x == 696 && y == 320, "incorrect coordinates %d,%d", x, y)

	_, err = HashesFromBytes([]byte{0, 0, 33, 180})
	is(errors.Is(err, ErrInvalidHash), "short hashes must be rejected")
	is(err.Error() == ErrInvalidHash.Error()+": expected 5 bytes got 4", "incorrect error message %q", err)

	_, err = HashesFromBytes([]byte{0, 0, 33, 180, 128, 0})
	is(errors.Is(err, ErrInvalidHash), "long hashes must be rejected")
}
