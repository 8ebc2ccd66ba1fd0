package mbtiles

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/FireworkMC/metatile"
	"github.com/yehan2002/errors"
)

// Metadata the metadata of an MBTiles database.
type Metadata struct {
	Center string
	Format string
	Bounds string

	MinZoom, MaxZoom int
}

// Reader reads tiles from an MBTiles database.
type Reader struct {
	db   *sql.DB
	stmt *sql.Stmt

	flipY    bool
	metadata Metadata
	bounds   metatile.Bounds
}

// Open opens the MBTiles database at path for reading.
// The metadata and the bounds of every zoom level are read immediately.
// The returned Reader must be closed.
func Open(path string, opts ...Option) (r *Reader, err error) {
	c := getConfig(opts)

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, errors.Wrap("mbtiles: unable to open database", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	r = &Reader{db: db, flipY: c.flipY}

	if r.metadata, err = readMetadata(db); err != nil {
		return nil, err
	}

	if r.bounds, err = r.readBounds(); err != nil {
		return nil, err
	}

	if r.stmt, err = db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?"); err != nil {
		return nil, errors.Wrap("mbtiles: unable to prepare query", err)
	}

	c.logger.Debug("opened mbtiles", "path", path, "minzoom", r.metadata.MinZoom, "maxzoom", r.metadata.MaxZoom)
	return r, nil
}

func readMetadata(db *sql.DB) (m Metadata, err error) {
	rows, err := db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return m, errors.Wrap("mbtiles: unable to read metadata", err)
	}
	defer rows.Close()

	var minZoom, maxZoom string
	for rows.Next() {
		var name, value string
		if err = rows.Scan(&name, &value); err != nil {
			return m, errors.Wrap("mbtiles: unable to read metadata", err)
		}

		switch name {
		case "center":
			m.Center = value
		case "format":
			m.Format = value
		case "bounds":
			m.Bounds = value
		case "minzoom":
			minZoom = value
		case "maxzoom":
			maxZoom = value
		}
	}
	if err = rows.Err(); err != nil {
		return m, errors.Wrap("mbtiles: unable to read metadata", err)
	}

	if minZoom == "" || maxZoom == "" {
		// the zoom levels are optional in older databases
		var lo, hi sql.NullInt64
		if err = db.QueryRow("SELECT min(zoom_level), max(zoom_level) FROM tiles").Scan(&lo, &hi); err != nil {
			return m, errors.Wrap("mbtiles: unable to read zoom levels", err)
		}
		m.MinZoom, m.MaxZoom = int(lo.Int64), int(hi.Int64)
	}

	if minZoom != "" {
		if m.MinZoom, err = strconv.Atoi(minZoom); err != nil {
			return m, errors.Cause(ErrMetadata, errors.Error("minzoom: "+minZoom))
		}
	}
	if maxZoom != "" {
		if m.MaxZoom, err = strconv.Atoi(maxZoom); err != nil {
			return m, errors.Cause(ErrMetadata, errors.Error("maxzoom: "+maxZoom))
		}
	}
	return m, nil
}

func (r *Reader) readBounds() (bounds metatile.Bounds, err error) {
	stmt, err := r.db.Prepare("SELECT min(tile_column), max(tile_column), min(tile_row), max(tile_row) FROM tiles WHERE zoom_level = ?")
	if err != nil {
		return nil, errors.Wrap("mbtiles: unable to prepare query", err)
	}
	defer stmt.Close()

	for z := r.metadata.MinZoom; z <= r.metadata.MaxZoom; z++ {
		var minX, maxX, minY, maxY sql.NullInt64
		if err = stmt.QueryRow(z).Scan(&minX, &maxX, &minY, &maxY); err != nil {
			return nil, errors.Wrap("mbtiles: unable to read bounds", err)
		}
		if !minX.Valid {
			// no tiles at this zoom level
			continue
		}

		b := metatile.Bound{Z: z, MinX: int(minX.Int64), MaxX: int(maxX.Int64), MinY: int(minY.Int64), MaxY: int(maxY.Int64)}
		if r.flipY {
			b.MinY, b.MaxY = FlipY(z, b.MaxY), FlipY(z, b.MinY)
		}
		bounds = append(bounds, b)
	}
	return bounds, nil
}

// Metadata returns the metadata of the database.
func (r *Reader) Metadata() Metadata { return r.metadata }

// Bounds returns the bound of the tiles stored at each zoom level.
// Zoom levels without tiles are omitted.
func (r *Reader) Bounds() metatile.Bounds { return r.bounds }

// Contains checks if the tile is inside the bounds of the database.
func (r *Reader) Contains(t metatile.Tile) bool { return r.bounds.Contains(t) }

// ReadTile reads the tile at z, x, y.
// This returns an error matching [ErrNotFound] if the tile does not exist.
func (r *Reader) ReadTile(z, x, y int) (data []byte, err error) {
	row := y
	if r.flipY {
		row = FlipY(z, y)
	}

	if err = r.stmt.QueryRow(z, x, row).Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Cause(ErrNotFound, errors.Cause(metatile.ErrNotExist, errors.Error(fmt.Sprintf("%d/%d/%d", z, x, y))))
		}
		return nil, errors.Wrap("mbtiles: unable to read tile", err)
	}
	return data, nil
}

// TileReader returns r as a [metatile.TileReader].
// The style and extension of requested tiles are ignored.
func (r *Reader) TileReader() metatile.TileReader { return tileReader{r} }

type tileReader struct{ r *Reader }

func (t tileReader) ReadTile(tile metatile.Tile) ([]byte, error) {
	return t.r.ReadTile(tile.Z, tile.X, tile.Y)
}

// Close closes the database.
func (r *Reader) Close() (err error) {
	if r.stmt != nil {
		err = r.stmt.Close()
	}
	if closeErr := r.db.Close(); err == nil {
		err = closeErr
	}
	return errors.Wrap("mbtiles: unable to close database", err)
}
