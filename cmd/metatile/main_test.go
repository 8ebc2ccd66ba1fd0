package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FireworkMC/metatile"
	"github.com/FireworkMC/metatile/archive"
	"github.com/spf13/afero"
	"github.com/yehan2002/is/v2"
)

func execute(args ...string) (stdout, stderr string, code int) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return out.String(), errOut.String(), code
}

type cmdTest struct{ dir func() string }

func TestCmd(t *testing.T) { is.Suite(t, &cmdTest{dir: t.TempDir}) }

func (*cmdTest) TestPath(is is.Is) {
	out, _, code := execute("path", "-d", "/cache", "mapname/10/697/321.png", "mapname/10/0/0/33/180/128.meta")
	is(code == 0, "unexpected exit code %d", code)
	is.Equal(strings.Split(strings.TrimSpace(out), "\n"), []string{
		"/cache/mapname/10/0/0/33/180/128.meta",
		"/cache/mapname/10/696/320.png",
	}, "incorrect paths")

	out, _, _ = execute("path", "--ext", ".webp", "mapname/10/0/0/33/180/128.meta")
	is(strings.TrimSpace(out) == "/var/lib/mod_tile/mapname/10/696/320.webp", "incorrect path %q", out)

	_, stderr, code := execute("path", "not/a/path")
	is(code == 1, "invalid paths must fail")
	is(strings.Contains(stderr, "Error:"), "errors must be printed: %q", stderr)
}

func (*cmdTest) TestCover(is is.Is) {
	out, _, code := execute("cover", "-d", "/tiles", "-s", "mapname", "-z", "10", "-x", "697:705", "-y", "321")
	is(code == 0, "unexpected exit code %d", code)
	is.Equal(strings.Split(strings.TrimSpace(out), "\n"), []string{
		"/tiles/mapname/10/0/0/33/180/128.meta",
		"/tiles/mapname/10/0/0/33/196/0.meta",
	}, "incorrect metatiles")

	out, _, code = execute("cover", "-z", "0:2")
	is(code == 0 && strings.Count(out, "\n") == 3, "low zoom levels must have a single metatile each: %q", out)

	out, _, code = execute("cover", "-z", "10", "-p", "0,0;1,0;1,1;0,1")
	is(code == 0 && strings.Count(out, "\n") == 1, "incorrect polygon cover: %q", out)

	_, _, code = execute("cover", "-x", "1")
	is(code == 1, "zoom levels must be required")
	_, _, code = execute("cover", "-z", "21")
	is(code == 1, "zoom levels above the maximum must fail")
}

func (c *cmdTest) TestPackUnpack(is is.Is) {
	dir := c.dir()
	src, base := filepath.Join(dir, "src"), filepath.Join(dir, "base")

	fs := afero.NewOsFs()
	tiles := map[metatile.Tile][]byte{}
	for t := range (metatile.Bound{Z: 10, MinX: 697, MaxX: 699, MinY: 320, MaxY: 321}).Tiles(metatile.TileFormat{Style: "default", Ext: ".png"}) {
		data := []byte(t.String())
		is(fs.MkdirAll(filepath.Dir(t.Path(src)), 0777) == nil, "unable to create tile directory")
		is(afero.WriteFile(fs, t.Path(src), data, 0666) == nil, "unable to write tile")
		tiles[t] = data
	}

	_, stderr, code := execute("pack", "-q", "-d", base, src)
	is(code == 0, "unexpected exit code %d: %s", code, stderr)
	is(strings.Contains(stderr, "metatiles=1"), "expected a log line: %q", stderr)

	path := filepath.Join(base, "default/10/0/0/33/180/128.meta")
	out, _, code := execute("info", path)
	is(code == 0, "unexpected exit code %d", code)
	is(strings.Contains(out, "Header(count=64, x=696, y=320, z=10)"), "incorrect header: %q", out)
	is(strings.Contains(out, "tiles: 6/64"), "incorrect tile count: %q", out)

	dest := filepath.Join(dir, "out.tar.gz")
	_, stderr, code = execute("unpack", "-q", "-d", base, "-z", "10", "-x", "690:710", "-y", "315:330", dest)
	is(code == 0, "unexpected exit code %d: %s", code, stderr)

	d, err := archive.Open(dest)
	is(err == nil, "unexpected error while opening archive: %s", err)
	for t, data := range tiles {
		got, err := d.ReadTile(t)
		is(err == nil, "unexpected error while reading %s: %s", t, err)
		is.Equal(got, data, "incorrect data for %s", t)
	}

	_, _, code = execute("unpack", "-q", "-d", base, dest)
	is(code == 1, "unpack must require a zoom level")
}

func (c *cmdTest) TestConfigFile(is is.Is) {
	dir := c.dir()
	cfg := filepath.Join(dir, "metatile.yaml")
	is(afero.WriteFile(afero.NewOsFs(), cfg, []byte("base_dir: /srv/tiles\nstyle: osm\next: .jpg\n"), 0666) == nil, "unable to write config")

	out, _, code := execute("path", "-c", cfg, "osm/10/0/0/33/180/128.meta")
	is(code == 0 && strings.TrimSpace(out) == "/srv/tiles/osm/10/696/320.jpg", "incorrect path %q", out)

	out, _, code = execute("path", "-c", cfg, "-d", "/override", "osm/10/0/0/33/180/128.meta")
	is(code == 0 && strings.TrimSpace(out) == "/override/osm/10/696/320.jpg", "flags must override the config file: %q", out)

	_, _, code = execute("path", "-c", filepath.Join(dir, "missing.yaml"), "osm/10/697/321.png")
	is(code == 1, "missing config files must fail")
}
