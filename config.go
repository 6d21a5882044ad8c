package mdstream

import (
	"fmt"
	"time"
)

const (
	// DefaultUnitsPerChunk is the number of units revealed per tick.
	DefaultUnitsPerChunk = 2
	// DefaultInterval is the tick interval of the typewriter.
	DefaultInterval = 20 * time.Millisecond
	// DefaultMaxCorrections bounds corrective re-applications per command.
	DefaultMaxCorrections = 1
)

// Config paces a session's reveal.
type Config struct {
	Unit          Unit
	UnitsPerChunk int
	Interval      time.Duration
	// MaxCorrections is how many times a command is re-applied after the host
	// reports a size change before the change is treated as oscillation.
	MaxCorrections int
}

// DefaultConfig returns a character-by-character typing pace.
func DefaultConfig() Config {
	return Config{
		Unit:           UnitCharacter,
		UnitsPerChunk:  DefaultUnitsPerChunk,
		Interval:       DefaultInterval,
		MaxCorrections: DefaultMaxCorrections,
	}
}

// Validate reports configuration errors wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.Unit > UnitLine:
		return fmt.Errorf("mdstream: config: unknown unit %d: %w", c.Unit, ErrInvalidConfig)
	case c.UnitsPerChunk <= 0:
		return fmt.Errorf("mdstream: config: UnitsPerChunk must be > 0: %w", ErrInvalidConfig)
	case c.Interval <= 0:
		return fmt.Errorf("mdstream: config: Interval must be > 0: %w", ErrInvalidConfig)
	case c.MaxCorrections < 0:
		return fmt.Errorf("mdstream: config: MaxCorrections must be >= 0: %w", ErrInvalidConfig)
	}
	return nil
}
