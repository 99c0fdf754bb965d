package compiler

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxUnitCost is the default per-unit emission cost ceiling.
	// Blocks estimated above it are split into chained units.
	DefaultMaxUnitCost = 16384

	// DefaultSplitThreshold is the default minimum statement count
	// before a block's emission cost is estimated at all. Smaller blocks
	// are never split.
	DefaultSplitThreshold = 64
)

// Config holds compiler configuration options.
type Config struct {
	// Filename is the source filename, used for error messages.
	Filename string

	// Source is the original source code, used for error messages and
	// recorded on the compiled unit.
	Source string

	// Logger receives scope-entry/exit, slot-allocation and split
	// tracing. Defaults to a no-op logger. The trace output is a
	// developer aid, not a stable contract.
	Logger *zerolog.Logger

	// MaxUnitCost is the per-unit emission cost ceiling. Zero selects
	// DefaultMaxUnitCost.
	MaxUnitCost int

	// SplitThreshold is the statement count that triggers size
	// estimation. Zero selects DefaultSplitThreshold; a negative value
	// disables splitting entirely.
	SplitThreshold int

	// Globals optionally pre-seeds the program-wide global symbol
	// space, so multiple units share slots.
	Globals *Globals

	// Flags optionally sets the initial pragma state of the base scope.
	Flags *Flags
}

// tuningFile is the YAML shape accepted by LoadConfig.
type tuningFile struct {
	MaxUnitCost    int `yaml:"max_unit_cost"`
	SplitThreshold int `yaml:"split_threshold"`
}

// LoadConfig reads splitter tuning from a YAML file, so embedders can
// adjust the unit-size ceiling without recompiling. Omitted keys keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compiler: read config: %w", err)
	}
	var tuning tuningFile
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return nil, fmt.Errorf("compiler: parse config %s: %w", path, err)
	}
	return &Config{
		MaxUnitCost:    tuning.MaxUnitCost,
		SplitThreshold: tuning.SplitThreshold,
	}, nil
}
