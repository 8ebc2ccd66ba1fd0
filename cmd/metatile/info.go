package main

import (
	"fmt"

	"github.com/FireworkMC/metatile"
	"github.com/spf13/cobra"
)

func (a *app) infoCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "info FILE...",
		Short: "Print the header and index of metatile files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				if err := a.info(cmd, p, all); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include empty entries")
	return cmd
}

func (a *app) info(cmd *cobra.Command, path string, all bool) error {
	f, err := metatile.OpenFs(a.fs, path, metatile.ModeRead)
	if err != nil {
		return err
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, path)
	if m, err := metatile.Parse(path); err == nil {
		fmt.Fprintf(out, "  %s\n", m)
	}

	index := f.Index()
	fmt.Fprintf(out, "  %s\n  tiles: %d/%d\n", f.Header(), index.Populated(), index.Len())

	entries := index.Existing()
	if all {
		entries = index.All()
	}
	for p, e := range entries {
		fmt.Fprintf(out, "  %-12s offset=%d size=%d\n", p, e.Offset, e.Size)
	}
	return nil
}
