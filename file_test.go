package metatile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/yehan2002/is/v2"
)

func init() {
	filesystem = afero.NewMemMapFs()
}

// fixtureSizes the tile sizes of a zoom 1 metatile rendered by mod_tile.
var fixtureSizes = map[Point]int{
	{0, 0}: 25093,
	{0, 1}: 11330,
	{1, 0}: 26298,
	{1, 1}: 10439,
}

// fixtureIndex the expected index of the fixture. Every other entry is empty.
var fixtureIndex = map[Point]Entry{
	{0, 0}: {Offset: 532, Size: 25093},
	{0, 1}: {Offset: 25625, Size: 11330},
	{1, 0}: {Offset: 36955, Size: 26298},
	{1, 1}: {Offset: 63253, Size: 10439},
}

func fixtureTiles() map[Point][]byte {
	tiles := map[Point][]byte{}
	for p, size := range fixtureSizes {
		tiles[p] = bytes.Repeat([]byte{byte(p.X<<4 | p.Y + 1)}, size)
	}
	return tiles
}

// writeFixture writes the fixture to the given path and returns its contents.
func writeFixture(is is.Is, path string) []byte {
	f, err := Open(path, ModeWrite)
	is(err == nil, "unexpected error while creating metatile file: %s", err)
	err = f.Write(0, 0, 1, fixtureTiles())
	is(err == nil, "unexpected error while writing metatile file: %s", err)
	is(f.Close() == nil, "unexpected error while closing file")

	b, err := afero.ReadFile(filesystem, path)
	is(err == nil, "unexpected error while reading metatile file: %s", err)
	return b
}

type fileTest struct{}

func TestFile(t *testing.T) { is.SuiteP(t, &fileTest{}) }

func (*fileTest) TestHeader(is is.Is) {
	writeFixture(is, "header.meta")

	f, err := Open("header.meta", ModeRead)
	is(err == nil, "unexpected error while opening: %s", err)
	defer f.Close()

	is(f.Header().String() == "Header(count=64, x=0, y=0, z=1)", "incorrect header %s", f.Header())
	is(f.Len() == Count, "incorrect length %d", f.Len())
	is(f.Mode() == ModeRead, "incorrect mode")
}

func (*fileTest) TestIndex(is is.Is) {
	writeFixture(is, "index.meta")

	f, err := Open("index.meta", ModeRead)
	is(err == nil, "unexpected error while opening: %s", err)
	defer f.Close()

	index := f.Index()
	is(index.Len() == Count, "incorrect index length %d", index.Len())
	is(index.Populated() == len(fixtureIndex), "incorrect number of populated entries %d", index.Populated())

	n := 0
	for p, e := range index.All() {
		is(p == Point{n / Size, n % Size}, "entries are out of order at %d: %s", n, p)
		if expected, ok := fixtureIndex[p]; ok {
			is(e == expected, "incorrect entry at %s: %v", p, e)
		} else {
			is(e.Size == 0, "expected an empty entry at %s", p)
		}
		n++
	}
	is(n == Count, "incorrect number of entries %d", n)

	// empty entries point to the start of the next tile
	e, _ := index.Get(Point{0, 2})
	is(e == Entry{Offset: 36955}, "incorrect empty entry %v", e)
	e, _ = index.Get(Point{7, 7})
	is(e == Entry{Offset: 73692}, "incorrect empty entry %v", e)

	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			is(f.Contains(Point{x, y}), "%d,%d must be indexed", x, y)
		}
	}
	is(!f.Contains(Point{10, 10}), "10,10 must not be indexed")
	is(!f.Contains(Point{-1, 0}), "-1,0 must not be indexed")

	existing := map[Point]Entry{}
	for p, e := range index.Existing() {
		existing[p] = e
	}
	diff := cmp.Diff(fixtureIndex, existing)
	is(diff == "", "incorrect existing entries (-want +got):\n%s", diff)
}

func (*fileTest) TestReadTile(is is.Is) {
	writeFixture(is, "readtile.meta")

	f, err := Open("readtile.meta", ModeRead)
	is(err == nil, "unexpected error while opening: %s", err)
	defer f.Close()

	data, err := f.ReadTile(1, 1)
	is(err == nil, "unexpected error while reading: %s", err)
	is(len(data) == 10439, "incorrect tile size %d", len(data))
	is.Equal(data, fixtureTiles()[Point{1, 1}], "incorrect tile data")

	data, err = f.ReadTile(1, 0)
	is(err == nil, "unexpected error while reading: %s", err)
	is(len(data) == int(fixtureIndex[Point{1, 0}].Size), "incorrect tile size %d", len(data))

	data, err = f.ReadTile(5, 5)
	is(err == nil, "unexpected error while reading an empty tile: %s", err)
	is(len(data) == 0, "empty tiles must not contain data")

	_, err = f.ReadTile(10, 10)
	is(errors.Is(err, ErrTileNotIndexed), "tiles outside the index must return ErrTileNotIndexed")

	r, err := f.ReaderFor(0, 1)
	is(err == nil, "unexpected error: %s", err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	is(err == nil, "unexpected error: %s", err)
	is.Equal(buf.Bytes(), fixtureTiles()[Point{0, 1}], "incorrect data read")
}

func (*fileTest) TestReadTiles(is is.Is) {
	writeFixture(is, "readtiles.meta")

	f, err := Open("readtiles.meta", ModeRead)
	is(err == nil, "unexpected error while opening: %s", err)
	defer f.Close()

	tiles, err := f.ReadTiles()
	is(err == nil, "unexpected error while reading: %s", err)
	is(len(tiles) == Count, "incorrect number of tiles %d", len(tiles))

	size := 0
	for _, data := range tiles {
		size += len(data)
	}
	is(size == 25093+11330+26298+10439, "incorrect total size %d", size)
}

func (*fileTest) TestWriteRoundtrip(is is.Is) {
	original := writeFixture(is, "roundtrip.meta")
	is(len(original) == 73692, "incorrect file size %d", len(original))

	f, err := Open("roundtrip.meta", ModeRead)
	is(err == nil, "unexpected error while opening: %s", err)
	header := f.Header()
	dense, err := f.ReadTiles()
	is(err == nil, "unexpected error while reading: %s", err)
	is(f.Close() == nil, "unexpected error while closing")

	sparse := map[Point][]byte{}
	for p, data := range dense {
		if len(data) != 0 {
			sparse[p] = data
		}
	}

	for name, tiles := range map[string]map[Point][]byte{"dense.meta": dense, "sparse.meta": sparse} {
		w, err := Open(name, ModeWrite)
		is(err == nil, "unexpected error while creating %s: %s", name, err)
		err = w.Write(int(header.X), int(header.Y), int(header.Z), tiles)
		is(err == nil, "unexpected error while writing %s: %s", name, err)
		is(w.Close() == nil, "unexpected error while closing %s", name)

		written, err := afero.ReadFile(filesystem, name)
		is(err == nil, "unexpected error while reading %s: %s", name, err)
		is(bytes.Equal(original, written), "%s is not identical to the original", name)
	}
}

func (*fileTest) TestEncodeLayout(is is.Is) {
	var buf bytes.Buffer
	err := Encode(&buf, 696, 320, 10, map[Point][]byte{{696, 320}: []byte("abc"), {703, 327}: []byte("de")})
	is(err == nil, "unexpected error: %s", err)

	b := buf.Bytes()
	u32 := binary.LittleEndian.Uint32
	dataOffset := HeaderSize + EntrySize*Count

	is(string(b[:4]) == "META", "incorrect magic")
	is(u32(b[4:]) == Count, "incorrect count")
	is(u32(b[8:]) == 696 && u32(b[12:]) == 320 && u32(b[16:]) == 10, "incorrect coordinates")
	is(u32(b[20:]) == uint32(dataOffset) && u32(b[24:]) == 3, "incorrect first entry")
	is(u32(b[28:]) == uint32(dataOffset+3) && u32(b[32:]) == 0, "incorrect second entry")
	last := HeaderSize + EntrySize*(Count-1)
	is(u32(b[last:]) == uint32(dataOffset+3) && u32(b[last+4:]) == 2, "incorrect last entry")
	is(string(b[dataOffset:]) == "abcde", "incorrect tile data")
}

func (*fileTest) TestModes(is is.Is) {
	writeFixture(is, "modes.meta")

	_, err := Open("modes.meta", Mode(7))
	is(errors.Is(err, ErrUnsupportedMode), "unsupported modes must be rejected")
	_, err = ParseMode("r")
	is(errors.Is(err, ErrUnsupportedMode), "unsupported modes must be rejected")
	m, err := ParseMode("wb")
	is(err == nil && m == ModeWrite, "wb must be parsed as ModeWrite")

	_, err = Open("does-not-exist.meta", ModeRead)
	is(err != nil, "opening a missing file must fail")

	r, err := Open("modes.meta", ModeRead)
	is(err == nil, "unexpected error: %s", err)
	is(errors.Is(r.Write(0, 0, 1, nil), ErrReadOnly), "writing to a read handle must fail")
	is(r.Close() == nil, "unexpected error while closing")
	is(r.Close() == nil, "closing twice must not fail")
	_, err = r.ReadTile(0, 0)
	is(errors.Is(err, ErrClosed), "reading a closed file must fail")

	w, err := Open("modes-write.meta", ModeWrite)
	is(err == nil, "unexpected error: %s", err)
	_, err = w.ReadTile(0, 0)
	is(errors.Is(err, ErrWriteOnly), "reading a write handle must fail")
	_, err = w.ReadTiles()
	is(errors.Is(err, ErrWriteOnly), "reading a write handle must fail")
	is(w.Write(0, 0, 1, nil) == nil, "unexpected error while writing")
	is(errors.Is(w.Write(0, 0, 1, nil), ErrWritten), "writing twice must fail")
	is(w.Header().Count == Count, "header must be set after writing")
	is(w.Close() == nil, "unexpected error while closing")
	is(errors.Is(w.Write(0, 0, 1, nil), ErrClosed), "writing a closed file must fail")
}

func (*fileTest) TestBadMagic(is is.Is) {
	b := writeFixture(is, "magic.meta")
	b[0] = 'X'

	_, err := NewReader(NopCloser(bytes.NewReader(b)), int64(len(b)))
	is(errors.Is(err, ErrBadMagic), "invalid magic must be rejected")
}

func (*fileTest) TestTruncated(is is.Is) {
	b := writeFixture(is, "truncated.meta")

	for _, size := range []int{0, 10, HeaderSize, 100, len(b) - 1} {
		_, err := NewReader(NopCloser(bytes.NewReader(b[:size])), int64(size))
		is(errors.Is(err, ErrTruncated), "truncated file of size %d must be rejected", size)
	}

	_, err := NewReader(nil, 10)
	is(errors.Is(err, ErrTruncated), "missing readers must be rejected")
}

func (*fileTest) TestHeaderSize(is is.Is) {
	for _, count := range []uint32{0, 63, MaxCount + 1, 1 << 31} {
		b := writeFixture(is, "size.meta")
		binary.LittleEndian.PutUint32(b[4:], count)
		_, err := NewReader(NopCloser(bytes.NewReader(b)), int64(len(b)))
		is(errors.Is(err, ErrHeaderSize), "count %d must be rejected", count)
	}
}

func (*fileTest) TestSmallIndex(is is.Is) {
	// files written by other tools may use a smaller metatile size.
	var buf bytes.Buffer
	buf.WriteString("META")
	for _, v := range []uint32{4, 2, 4, 3, 52, 1, 53, 0, 53, 2, 55, 0} {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.WriteString("abc")

	f, err := NewReader(NopCloser(bytes.NewReader(buf.Bytes())), int64(buf.Len()))
	is(err == nil, "unexpected error: %s", err)
	is(f.Index().Len() == 4, "incorrect index length")

	data, err := f.ReadTile(2, 4)
	is(err == nil && string(data) == "a", "incorrect data for 2,4: %q %s", data, err)
	data, err = f.ReadTile(3, 4)
	is(err == nil && string(data) == "bc", "incorrect data for 3,4: %q %s", data, err)
	_, err = f.ReadTile(4, 4)
	is(errors.Is(err, ErrTileNotIndexed), "4,4 must not be indexed")
}

func (*fileTest) TestConcurrentRead(is is.Is) {
	writeFixture(is, "concurrent.meta")

	f, err := Open("concurrent.meta", ModeRead)
	is(err == nil, "unexpected error while opening: %s", err)
	defer f.Close()

	expected := fixtureTiles()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(p Point) {
			defer wg.Done()
			data, err := f.ReadTile(p.X, p.Y)
			if err == nil && !bytes.Equal(data, expected[p]) {
				err = ErrTruncated
			}
			errs <- err
		}(Point{i % 2, (i / 2) % 2})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		is(err == nil, "unexpected error during concurrent read: %s", err)
	}
}
