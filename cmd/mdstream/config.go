package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/mdstream"
	"pkt.systems/pslog"
)

const (
	defaultWidth     = 80
	defaultChunkSize = 3
	defaultDelay     = 20 * time.Millisecond
	defaultStyle     = "auto"
)

// fileConfig is the on-disk configuration. Durations are strings so the
// YAML written by "config init" stays readable.
type fileConfig struct {
	Unit          string         `mapstructure:"unit" yaml:"unit"`
	UnitsPerChunk int            `mapstructure:"units_per_chunk" yaml:"units_per_chunk"`
	Interval      string         `mapstructure:"interval" yaml:"interval"`
	Width         int            `mapstructure:"width" yaml:"width"`
	Pretty        bool           `mapstructure:"pretty" yaml:"pretty"`
	Style         string         `mapstructure:"style" yaml:"style"`
	Simulate      simulateConfig `mapstructure:"simulate" yaml:"simulate"`
}

type simulateConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Chunk   int    `mapstructure:"chunk" yaml:"chunk"`
	Delay   string `mapstructure:"delay" yaml:"delay"`
}

func defaultFileConfig() fileConfig {
	def := mdstream.DefaultConfig()
	return fileConfig{
		Unit:          def.Unit.String(),
		UnitsPerChunk: def.UnitsPerChunk,
		Interval:      def.Interval.String(),
		Style:         defaultStyle,
		Simulate: simulateConfig{
			Chunk: defaultChunkSize,
			Delay: defaultDelay.String(),
		},
	}
}

func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mdstream", "config.yaml"), nil
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"unit":             "unit",
	"units_per_chunk":  "units-per-chunk",
	"interval":         "interval",
	"width":            "width",
	"pretty":           "pretty",
	"style":            "style",
	"simulate.enabled": "simulate",
	"simulate.chunk":   "simulate-chunk",
	"simulate.delay":   "simulate-delay",
}

// loadConfig layers flags over the config file at path over defaults. A
// missing file is not an error.
func loadConfig(path string, flags *pflag.FlagSet) (fileConfig, error) {
	cfg := defaultFileConfig()
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("unit", cfg.Unit)
	v.SetDefault("units_per_chunk", cfg.UnitsPerChunk)
	v.SetDefault("interval", cfg.Interval)
	v.SetDefault("width", cfg.Width)
	v.SetDefault("pretty", cfg.Pretty)
	v.SetDefault("style", cfg.Style)
	v.SetDefault("simulate.enabled", cfg.Simulate.Enabled)
	v.SetDefault("simulate.chunk", cfg.Simulate.Chunk)
	v.SetDefault("simulate.delay", cfg.Simulate.Delay)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return fileConfig{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fileConfig{}, fmt.Errorf("stat config %s: %w", path, err)
		}
	}
	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fileConfig{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// sessionConfig converts the file configuration into a validated session
// configuration.
func (c fileConfig) sessionConfig() (mdstream.Config, error) {
	unit, err := mdstream.ParseUnit(c.Unit)
	if err != nil {
		return mdstream.Config{}, err
	}
	interval, err := time.ParseDuration(strings.TrimSpace(c.Interval))
	if err != nil {
		return mdstream.Config{}, fmt.Errorf("interval %q: %w", c.Interval, err)
	}
	cfg := mdstream.DefaultConfig()
	cfg.Unit = unit
	cfg.UnitsPerChunk = c.UnitsPerChunk
	cfg.Interval = interval
	if err := cfg.Validate(); err != nil {
		return mdstream.Config{}, err
	}
	return cfg, nil
}

func (c fileConfig) simulateDelay() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.Simulate.Delay))
	if err != nil {
		return 0, fmt.Errorf("simulate delay %q: %w", c.Simulate.Delay, err)
	}
	return d, nil
}

// writeDefaultConfig writes the default configuration to path.
func writeDefaultConfig(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists (use --force to overwrite)", path)
		}
	}
	data, err := yaml.Marshal(defaultFileConfig())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the mdstream configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPathArg(args)
			if err != nil {
				return err
			}
			if err := writeDefaultConfig(path, force); err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Info("config written", "path", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	showCmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Print the effective configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPathArg(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(path, nil)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func configPathArg(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return normalizePath(args[0]), nil
	}
	return defaultConfigPath()
}
