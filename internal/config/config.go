// Package config loads the settings of the metatile command.
package config

import (
	"io"
	"log/slog"
	"strings"

	"github.com/FireworkMC/metatile"
	"github.com/spf13/afero"
	"github.com/yehan2002/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalid returned if a config value is invalid.
const ErrInvalid = errors.Error("config: invalid value")

// Config the settings of the metatile command.
type Config struct {
	// BaseDir the directory metatiles are stored in.
	BaseDir string `yaml:"base_dir"`
	// Style the default style.
	Style string `yaml:"style"`
	// Ext the extension of individual tiles, including the leading dot.
	Ext string `yaml:"ext"`
	// CacheSize the number of metatile files kept open. -1 disables the cache.
	CacheSize int `yaml:"cache_size"`
	// ReadOnly prevents the store from being written to.
	ReadOnly bool `yaml:"read_only"`
	// LogLevel one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// LogFormat either text or json.
	LogFormat string `yaml:"log_format"`
}

// Default returns the default config.
func Default() Config {
	return Config{
		BaseDir:   "/var/lib/mod_tile",
		Style:     "default",
		Ext:       ".png",
		CacheSize: 20,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads the yaml file at path from fs on top of the default config.
// If path is empty the default config is returned.
func Load(fs afero.Fs, path string) (c Config, err error) {
	c = Default()
	if path == "" {
		return c, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return c, errors.Wrap("config: unable to read config", err)
	}

	if err = yaml.Unmarshal(data, &c); err != nil {
		return c, errors.Wrap("config: unable to parse "+path, err)
	}
	return c, c.Validate()
}

// Validate checks if the config is valid.
func (c Config) Validate() error {
	if c.Ext != "" && !strings.HasPrefix(c.Ext, ".") {
		return errors.Cause(ErrInvalid, errors.Error("ext must start with a dot: "+c.Ext))
	}
	if c.CacheSize < -1 {
		return errors.Cause(ErrInvalid, errors.Error("cache_size must be -1 or greater"))
	}
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json", "":
	default:
		return errors.Cause(ErrInvalid, errors.Error("log_format must be text or json: "+c.LogFormat))
	}
	return nil
}

func (c Config) level() (level slog.Level, err error) {
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err = level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, errors.Cause(ErrInvalid, errors.Error("log_level: "+c.LogLevel))
	}
	return level, nil
}

// Logger returns a logger that writes to w.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Format returns the style and extension of tiles.
func (c Config) Format() metatile.TileFormat {
	return metatile.TileFormat{Style: c.Style, Ext: c.Ext}
}

// Settings returns the settings of the store.
func (c Config) Settings(logger *slog.Logger) metatile.Settings {
	return metatile.Settings{
		ReadOnly:  c.ReadOnly,
		CacheSize: c.CacheSize,
		Format:    c.Format(),
		Logger:    logger,
	}
}

// OpenStore opens the store at BaseDir.
func (c Config) OpenStore(logger *slog.Logger) (*metatile.Store, error) {
	return metatile.OpenStore(c.BaseDir, c.Settings(logger))
}
