// Package config loads smoothmesh command settings from TOML or YAML files.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/smoothmesh"
	"gopkg.in/yaml.v3"
)

// Config holds everything the smoothmesh command can be configured with.
// Fields absent from a file keep their defaults.
type Config struct {
	Mode       string  `toml:"mode" yaml:"mode"`
	Iterations int     `toml:"iterations" yaml:"iterations"`
	Smooth     float64 `toml:"smooth" yaml:"smooth"`
	Volume     float64 `toml:"volume" yaml:"volume"`
	Offset     float64 `toml:"offset" yaml:"offset"`
	Envelope   float64 `toml:"envelope" yaml:"envelope"`
	// Weights are authored per-vertex weights in welded vertex order.
	// Empty means every vertex has weight 1.
	Weights []float64 `toml:"weights" yaml:"weights"`
	// WeldTolerance is the distance under which STL vertices are merged.
	// Zero infers it from the model.
	WeldTolerance float64 `toml:"weld_tolerance" yaml:"weld_tolerance"`
	Workers       int     `toml:"workers" yaml:"workers"`
	Preview       Preview `toml:"preview" yaml:"preview"`
}

// Preview configures the PNG rendering of the smoothed mesh.
type Preview struct {
	Width      int    `toml:"width" yaml:"width"`
	Height     int    `toml:"height" yaml:"height"`
	Color      string `toml:"color" yaml:"color"`
	Background string `toml:"background" yaml:"background"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	p := smoothmesh.DefaultParams()
	return Config{
		Mode:       p.Mode.String(),
		Iterations: p.Iterations,
		Smooth:     p.Smooth,
		Volume:     p.Volume,
		Offset:     p.Offset,
		Envelope:   p.Envelope,
		Workers:    1,
		Preview: Preview{
			Width:      960,
			Height:     540,
			Color:      "#468966",
			Background: "#FFF8E3",
		},
	}
}

// Format is a configuration file encoding.
type Format string

const (
	TOML Format = "toml"
	YAML Format = "yaml"
)

// FormatOf returns the format of a file by its extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("config: unsupported file extension %q, want .toml, .yaml or .yml", filepath.Ext(path))
}

// Load reads the configuration file at path on top of the defaults.
func Load(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Decode(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data in the given format on top of the defaults.
func Decode(data []byte, format Format) (Config, error) {
	cfg := Default()
	var err error
	switch format {
	case TOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
		if err != nil && len(bytes.TrimSpace(data)) == 0 {
			err = nil // empty document keeps defaults.
		}
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Params returns the validated smoothing parameters of the configuration.
func (c Config) Params() (smoothmesh.Params, error) {
	mode, err := smoothmesh.ParseMode(c.Mode)
	if err != nil {
		return smoothmesh.Params{}, err
	}
	p := smoothmesh.Params{
		Mode:       mode,
		Iterations: c.Iterations,
		Smooth:     c.Smooth,
		Volume:     c.Volume,
		Offset:     c.Offset,
		Envelope:   c.Envelope,
	}
	if err := p.Validate(); err != nil {
		return smoothmesh.Params{}, err
	}
	return p, nil
}
