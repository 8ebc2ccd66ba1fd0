// Package mbtiles reads and writes tiles stored in MBTiles databases.
//
// MBTiles stores rows in TMS order, with y counted from the bottom of the map.
// Readers and writers flip y by default so callers use the same xyz coordinates as metatiles.
package mbtiles

import (
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/yehan2002/errors"
)

const (
	// ErrNotFound returned if a tile is not in the database.
	// Errors returned with ErrNotFound also match metatile.ErrNotExist.
	ErrNotFound = errors.Error("mbtiles: tile not found")
	// ErrMetadata returned if the metadata table contains an invalid value.
	ErrMetadata = errors.Error("mbtiles: invalid metadata")
)

type config struct {
	flipY    bool
	metadata map[string]string
	logger   *slog.Logger
}

// Option an option for [Open] and [Create].
type Option func(*config)

// WithFlipY sets whether y coordinates are converted between xyz and TMS.
// Default: true
func WithFlipY(flip bool) Option { return func(c *config) { c.flipY = flip } }

// WithMetadata sets the metadata written by [Create].
func WithMetadata(metadata map[string]string) Option {
	return func(c *config) { c.metadata = metadata }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option { return func(c *config) { c.logger = logger } }

func getConfig(opts []Option) config {
	c := config{flipY: true}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// FlipY converts y between the xyz and TMS tile schemes at zoom level z.
func FlipY(z, y int) int { return (1<<z - 1) - y }
