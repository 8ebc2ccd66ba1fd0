package main

import (
	"fmt"
	"strings"

	"github.com/FireworkMC/metatile"
	"github.com/spf13/cobra"
)

func (a *app) pathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path PATH...",
		Short: "Convert between tile and metatile paths",
		Long: "Prints the path of the metatile containing each tile path, " +
			"or the path of the first tile of each metatile path.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				converted, err := convertPath(p, a.cfg.BaseDir, a.cfg.Ext)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), converted)
			}
			return nil
		},
	}
}

// convertPath returns the tile path for metatile paths and the metatile path for tile paths.
func convertPath(p, basedir, ext string) (string, error) {
	if strings.HasSuffix(p, metatile.Ext) {
		m, err := metatile.Parse(p)
		if err != nil {
			return "", err
		}
		return metatile.TileFromMetatile(m, ext).Path(basedir), nil
	}

	t, err := metatile.ParseTile(p)
	if err != nil {
		return "", err
	}
	return metatile.FromTile(t).Path(basedir), nil
}
