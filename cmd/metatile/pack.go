package main

import (
	"errors"
	"io"
	"strings"

	"github.com/FireworkMC/metatile"
	"github.com/FireworkMC/metatile/archive"
	"github.com/FireworkMC/metatile/geo"
	"github.com/FireworkMC/metatile/mbtiles"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const mbtilesExt = ".mbtiles"

func isMBTiles(path string) bool { return strings.HasSuffix(strings.ToLower(path), mbtilesExt) }

func (a *app) packCmd() *cobra.Command {
	var bf boundFlags
	var quiet bool
	cmd := &cobra.Command{
		Use:   "pack SOURCE",
		Short: "Pack tiles from a directory, tar archive or mbtiles file into metatiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, bounds, closeSrc, err := a.openSource(args[0])
			if err != nil {
				return err
			}
			defer closeSrc()

			var region geo.Region
			if bf.set() {
				if bounds, region, err = bf.bounds(); err != nil {
					return err
				}
			}

			s, err := a.cfg.OpenStore(a.logger)
			if err != nil {
				return err
			}
			defer s.Close()

			bar := a.progress(cmd, "packing", quiet)
			n := 0
			for _, b := range bounds {
				for m := range s.Metatiles(b) {
					if !inRegion(m, region) {
						continue
					}
					ok, err := s.PackMetatile(src, m)
					if err != nil {
						return err
					}
					if ok {
						n++
					}
					bar.Add(1)
				}
			}
			bar.Finish()

			a.logger.Info("packed tiles", "source", args[0], "metatiles", n)
			return nil
		},
	}
	bf.register(cmd)
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}

func (a *app) unpackCmd() *cobra.Command {
	var bf boundFlags
	var quiet bool
	cmd := &cobra.Command{
		Use:   "unpack DEST",
		Short: "Unpack metatiles into a directory, tar archive or mbtiles file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bounds, region, err := bf.bounds()
			if err != nil {
				return err
			}

			settings := a.cfg.Settings(a.logger)
			settings.ReadOnly = true
			s, err := metatile.OpenStore(a.cfg.BaseDir, settings)
			if err != nil {
				return err
			}
			defer s.Close()

			dst, err := a.openDest(args[0])
			if err != nil {
				return err
			}

			bar := a.progress(cmd, "unpacking", quiet)
			n := 0
			for _, b := range bounds {
				for m := range s.Metatiles(b) {
					if !inRegion(m, region) {
						continue
					}
					count, err := s.Unpack(m, dst)
					if err != nil && !errors.Is(err, metatile.ErrNotExist) {
						dst.Close()
						return err
					}
					n += count
					bar.Add(1)
				}
			}
			bar.Finish()

			if err = dst.Close(); err != nil {
				return err
			}
			a.logger.Info("unpacked tiles", "dest", args[0], "tiles", n)
			return nil
		},
	}
	bf.register(cmd)
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}

// openSource opens a tile source and returns the tiles it contains.
func (a *app) openSource(path string) (metatile.TileReader, metatile.Bounds, func() error, error) {
	if isMBTiles(path) {
		r, err := mbtiles.Open(path, mbtiles.WithLogger(a.logger))
		if err != nil {
			return nil, nil, nil, err
		}
		return r.TileReader(), r.Bounds(), r.Close, nil
	}

	d, err := archive.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	bounds, err := d.Bounds(a.cfg.Style)
	if err != nil {
		return nil, nil, nil, err
	}
	return d, bounds, func() error { return nil }, nil
}

// tileSink a destination for unpacked tiles.
type tileSink interface {
	metatile.TileWriter
	io.Closer
}

type dirSink struct{ *archive.Dir }

func (dirSink) Close() error { return nil }

// openDest creates the destination for unpacked tiles.
func (a *app) openDest(path string) (tileSink, error) {
	if isMBTiles(path) {
		return mbtiles.Create(path, mbtiles.WithLogger(a.logger))
	}
	if _, ok := archive.CompressionFor(path); ok {
		return archive.Create(path)
	}

	if err := a.fs.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	return dirSink{archive.NewDir(afero.NewBasePathFs(a.fs, path))}, nil
}

func (a *app) progress(cmd *cobra.Command, description string, quiet bool) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetVisibility(!quiet),
		progressbar.OptionShowIts(),
		progressbar.OptionShowCount(),
	)
}
