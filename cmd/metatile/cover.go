package main

import (
	"fmt"

	"github.com/FireworkMC/metatile"
	"github.com/spf13/cobra"
)

func (a *app) coverCmd() *cobra.Command {
	var bf boundFlags
	cmd := &cobra.Command{
		Use:   "cover",
		Short: "Print the paths of the metatiles covering an area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bounds, region, err := bf.bounds()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, b := range bounds {
				for m := range metatile.Cover(b, a.cfg.Style) {
					if inRegion(m, region) {
						fmt.Fprintln(out, m.Path(a.cfg.BaseDir))
					}
				}
			}
			return nil
		},
	}
	bf.register(cmd)
	return cmd
}
