package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// fileConfig is the optional TOML file presetting the blur options, e.g.:
//
//	blur = 4.5
//	scale = 1
//	skip_alpha = true
//	mode = "buffered"
type fileConfig struct {
	Blur      float64 `toml:"blur"`
	Scale     float64 `toml:"scale"`
	SkipAlpha bool    `toml:"skip_alpha"`
	Mode      string  `toml:"mode"`
	Face      bool    `toml:"face"`
	Angle     float64 `toml:"angle"`
	Cascade   string  `toml:"cascade"`
	Workers   int     `toml:"workers"`

	meta toml.MetaData
}

// option binds a TOML key to its command line flag and environment variable.
type option struct {
	key, flag, env string
}

var configOptions = []option{
	{key: "blur", flag: "blur", env: "BOXBLUR_RADIUS"},
	{key: "scale", flag: "scale", env: "BOXBLUR_DOWNSCALE"},
	{key: "skip_alpha", flag: "skip-alpha", env: "BOXBLUR_SKIP_ALPHA"},
	{key: "mode", flag: "mode", env: "BOXBLUR_MODE"},
	{key: "face", flag: "face"},
	{key: "angle", flag: "angle"},
	{key: "cascade", flag: "cc", env: "BOXBLUR_CASCADE"},
	{key: "workers", flag: "conc"},
}

func loadConfig(path string) (*fileConfig, error) {
	var cfg fileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not parse the config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}
	cfg.meta = md
	return &cfg, nil
}

func (c *fileConfig) value(key string) string {
	switch key {
	case "blur":
		return strconv.FormatFloat(c.Blur, 'g', -1, 64)
	case "scale":
		return strconv.FormatFloat(c.Scale, 'g', -1, 64)
	case "skip_alpha":
		return strconv.FormatBool(c.SkipAlpha)
	case "mode":
		return c.Mode
	case "face":
		return strconv.FormatBool(c.Face)
	case "angle":
		return strconv.FormatFloat(c.Angle, 'g', -1, 64)
	case "cascade":
		return c.Cascade
	case "workers":
		return strconv.Itoa(c.Workers)
	}
	return ""
}

// apply copies the options present in the file into fs.
// Flags given on the command line and options set through the environment take precedence.
func (c *fileConfig) apply(fs *flag.FlagSet) error {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	for _, opt := range configOptions {
		if !c.meta.IsDefined(opt.key) || explicit[opt.flag] {
			continue
		}
		if opt.env != "" {
			if _, ok := os.LookupEnv(opt.env); ok {
				continue
			}
		}
		if err := fs.Set(opt.flag, c.value(opt.key)); err != nil {
			return fmt.Errorf("invalid config value for %q: %w", opt.key, err)
		}
	}
	return nil
}
