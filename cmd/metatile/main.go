// Command metatile converts paths and moves tiles in and out of mod_tile metatile stores.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/FireworkMC/metatile/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// app the state shared by all commands.
type app struct {
	configPath string
	overrides  config.Config

	cfg    config.Config
	logger *slog.Logger
	fs     afero.Fs
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs, logger: slog.New(slog.DiscardHandler)}

	root := &cobra.Command{
		Use:           "metatile",
		Short:         "Work with mod_tile metatiles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a yaml config file")
	flags.StringVarP(&a.overrides.BaseDir, "basedir", "d", "", "Directory metatiles are stored in")
	flags.StringVarP(&a.overrides.Style, "style", "s", "", "Style of the tiles")
	flags.StringVarP(&a.overrides.Ext, "ext", "e", "", "Extension of individual tiles")
	flags.StringVar(&a.overrides.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		a.pathCmd(),
		a.infoCmd(),
		a.coverCmd(),
		a.packCmd(),
		a.unpackCmd(),
	)
	return root
}

// load reads the config file and applies the flags that were set on top of it.
func (a *app) load(cmd *cobra.Command) (err error) {
	if a.cfg, err = config.Load(a.fs, a.configPath); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("basedir") {
		a.cfg.BaseDir = a.overrides.BaseDir
	}
	if flags.Changed("style") {
		a.cfg.Style = a.overrides.Style
	}
	if flags.Changed("ext") {
		a.cfg.Ext = a.overrides.Ext
	}
	if flags.Changed("log-level") {
		a.cfg.LogLevel = a.overrides.LogLevel
	}
	if err = a.cfg.Validate(); err != nil {
		return err
	}

	a.logger, err = a.cfg.Logger(cmd.ErrOrStderr())
	return err
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(afero.NewOsFs())
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		return 1
	}
	return 0
}

func main() { os.Exit(run(os.Args[1:], os.Stdout, os.Stderr)) }
