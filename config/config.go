/*
 * dt550ctl - Controller configuration.
 *
 * Copyright 2026, dt550ctl contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package config loads the controller's YAML configuration with viper,
// the way config/configparser loaded the teacher's line-oriented DSL:
// global timings, per-unit format/write-lock/attach-path, the
// device-disabled bit, and logging flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/dtape/dt550ctl/dectape"
)

// UnitConfig is one transport's startup configuration.
type UnitConfig struct {
	Attach      string `mapstructure:"attach"`
	Format      string `mapstructure:"format"`
	WriteLocked bool   `mapstructure:"write_locked"`
	Disabled    bool   `mapstructure:"disabled"`
}

// LoggingConfig selects which debug flag classes are active and where
// output goes.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	File     string `mapstructure:"file"`
	Mirror   bool   `mapstructure:"mirror_stderr"`
	Motion   bool   `mapstructure:"motion"`     // MS
	Transfer bool   `mapstructure:"transfer"`   // RW
	Blocks   bool   `mapstructure:"blocks"`     // RA
	Block    int    `mapstructure:"only_block"` // copied to Controller.LogBlock; no effect, as DebugMask never sets LogBL
}

// Config is the full controller configuration.
type Config struct {
	LineTime  int64 `mapstructure:"line_time"`
	AccelTime int64 `mapstructure:"accel_time"`
	DecelTime int64 `mapstructure:"decel_time"`
	Disabled  bool  `mapstructure:"disabled"`

	Units   [dectape.NumUnits]UnitConfig `mapstructure:"units"`
	Logging LoggingConfig                `mapstructure:"logging"`
}

// Default returns a Config carrying the controller's stock timing
// constants and no units attached.
func Default() Config {
	return Config{
		LineTime:  dectape.LineTime,
		AccelTime: dectape.AccelTime,
		DecelTime: dectape.DecelTime,
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads path with viper and merges it over Default(). A missing
// file is not an error; the defaults are returned unchanged. A zero or
// negative line, accel or decel time is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(configType(path))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	v.SetDefault("line_time", cfg.LineTime)
	v.SetDefault("accel_time", cfg.AccelTime)
	v.SetDefault("decel_time", cfg.DecelTime)
	v.SetDefault("logging.level", cfg.Logging.Level)

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.LineTime <= 0 || cfg.AccelTime <= 0 || cfg.DecelTime <= 0 {
		return cfg, fmt.Errorf("config: %s: line_time, accel_time and decel_time must be positive", path)
	}
	return cfg, nil
}

func configType(path string) string {
	if strings.HasSuffix(path, ".json") {
		return "json"
	}
	if strings.HasSuffix(path, ".toml") {
		return "toml"
	}
	return "yaml"
}

// Timing converts the loaded timing fields into a dectape.Timing.
func (c Config) Timing() dectape.Timing {
	return dectape.Timing{
		LineTime:  c.LineTime,
		AccelTime: c.AccelTime,
		DecelTime: c.DecelTime,
	}
}

// DebugMask converts the loaded logging flags into a dectape.DebugFlags.
func (c Config) DebugMask() dectape.DebugFlags {
	var mask dectape.DebugFlags
	if c.Logging.Motion {
		mask |= dectape.LogMS
	}
	if c.Logging.Transfer {
		mask |= dectape.LogRW
	}
	if c.Logging.Blocks {
		mask |= dectape.LogRA
	}
	return mask
}

// ParseFormat converts a config string ("18B"/"16B"/"12B", case
// insensitive, empty defaults to 18B) into a dectape.Format.
func ParseFormat(s string) (dectape.Format, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "18B":
		return dectape.Format18B, nil
	case "16B":
		return dectape.Format16B, nil
	case "12B":
		return dectape.Format12B, nil
	default:
		return 0, fmt.Errorf("config: unknown tape format %q", s)
	}
}
