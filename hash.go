package metatile

import (
	"fmt"

	"github.com/yehan2002/errors"
)

// HashCount the number of hash bytes used to address a metatile.
const HashCount = 5

// Hashes the hash bytes of a metatile.
// Each byte holds 4 bits of x in the high nibble and 4 bits of y in the low nibble,
// with the most significant nibbles in the first byte.
type Hashes [HashCount]uint8

// ToHashes returns the hashes for the metatile containing x,y.
// x and y are aligned down to a multiple of `align`, which must be a power of two.
// Only the lower 20 bits of x and y are encoded.
func ToHashes(x, y, align int) (h Hashes) {
	mask := align - 1
	x &^= mask
	y &^= mask

	for i := HashCount - 1; i >= 0; i-- {
		h[i] = uint8((x&0x0f)<<4 | y&0x0f)
		x >>= 4
		y >>= 4
	}
	return
}

// HashesFromBytes copies the given bytes into a Hashes value.
// This returns [ErrInvalidHash] if b does not contain exactly [HashCount] bytes.
func HashesFromBytes(b []byte) (h Hashes, err error) {
	if len(b) != HashCount {
		return h, errors.Cause(ErrInvalidHash, errors.Error(fmt.Sprintf("expected %d bytes got %d", HashCount, len(b))))
	}
	copy(h[:], b)
	return h, nil
}

// XY returns the anchor coordinates encoded in the hashes.
func (h Hashes) XY() (x, y int) {
	for _, b := range h {
		x = x<<4 | int(b&0xf0)>>4
		y = y<<4 | int(b&0x0f)
	}
	return
}
