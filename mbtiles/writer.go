package mbtiles

import (
	"database/sql"
	"log/slog"
	"sync"

	"github.com/FireworkMC/metatile"
	"github.com/yehan2002/errors"
)

// Writer writes tiles to a new MBTiles database.
type Writer struct {
	db     *sql.DB
	tx     *sql.Tx
	stmt   *sql.Stmt
	flipY  bool
	logger *slog.Logger

	mux    sync.Mutex
	closed bool
}

var _ metatile.TileWriter = &Writer{}

// Create creates an MBTiles database at path.
// Tiles are written in a single transaction that is committed by [Writer.Close].
func Create(path string, opts ...Option) (w *Writer, err error) {
	c := getConfig(opts)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap("mbtiles: unable to create database", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB
		);
		CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row);
	`)
	if err != nil {
		return nil, errors.Wrap("mbtiles: unable to create tables", err)
	}

	for name, value := range c.metadata {
		if _, err = db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", name, value); err != nil {
			return nil, errors.Wrap("mbtiles: unable to write metadata", err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, errors.Wrap("mbtiles: unable to start transaction", err)
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return nil, errors.Wrap("mbtiles: unable to prepare query", err)
	}

	return &Writer{db: db, tx: tx, stmt: stmt, flipY: c.flipY, logger: c.logger}, nil
}

// WriteTile writes a single tile. The style and extension of t are ignored.
func (w *Writer) WriteTile(t metatile.Tile, data []byte) error {
	w.mux.Lock()
	defer w.mux.Unlock()
	if w.closed {
		return metatile.ErrClosed
	}

	y := t.Y
	if w.flipY {
		y = FlipY(t.Z, y)
	}
	_, err := w.stmt.Exec(t.Z, t.X, y, data)
	return errors.Wrap("mbtiles: unable to write tile", err)
}

// Close commits all written tiles and closes the database.
// This can be called multiple times.
func (w *Writer) Close() (err error) {
	w.mux.Lock()
	defer w.mux.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err = w.stmt.Close(); err != nil {
		w.tx.Rollback()
		w.db.Close()
		return errors.Wrap("mbtiles: unable to close statement", err)
	}
	if err = w.tx.Commit(); err != nil {
		w.db.Close()
		return errors.Wrap("mbtiles: unable to commit tiles", err)
	}
	w.logger.Debug("mbtiles: committed tiles")
	return errors.Wrap("mbtiles: unable to close database", w.db.Close())
}
