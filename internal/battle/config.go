package battle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned when battle tuning parameters are out of range.
var ErrInvalidConfig = errors.New("invalid battle config")

// Config holds the tunable constants of the round loop.
type Config struct {
	// FatigueInterval applies fatigue on every round divisible by it.
	FatigueInterval int
	// FatiguePercent is the attack/defense decay applied per fatigue tick.
	FatiguePercent int
	// MaxRounds caps the battle; the exhaustion comparison runs on this round.
	MaxRounds int
	// MinDamagePercent is the share of attack power dealt when defense absorbs the hit.
	MinDamagePercent int
	// CritMultiplierPercent scales attack power on a critical hit (150 = 1.5x).
	CritMultiplierPercent int
}

// DefaultConfig returns the reference tuning: fatigue 10% every 5 rounds,
// 10000 rounds, 5% minimum damage, 1.5x critical hits.
func DefaultConfig() Config {
	return Config{
		FatigueInterval:       5,
		FatiguePercent:        10,
		MaxRounds:             10000,
		MinDamagePercent:      5,
		CritMultiplierPercent: 150,
	}
}

// Validate checks all parameter ranges.
//
// Postcondition: Returns nil if valid, or an error wrapping ErrInvalidConfig
// describing every violation.
func (c Config) Validate() error {
	var errs []string
	if c.FatigueInterval < 1 {
		errs = append(errs, fmt.Sprintf("fatigue interval must be >= 1, got %d", c.FatigueInterval))
	}
	if c.FatiguePercent < 0 || c.FatiguePercent > 100 {
		errs = append(errs, fmt.Sprintf("fatigue percent must be 0-100, got %d", c.FatiguePercent))
	}
	if c.MaxRounds < 1 {
		errs = append(errs, fmt.Sprintf("max rounds must be >= 1, got %d", c.MaxRounds))
	}
	if c.MinDamagePercent < 0 || c.MinDamagePercent > 100 {
		errs = append(errs, fmt.Sprintf("min damage percent must be 0-100, got %d", c.MinDamagePercent))
	}
	if c.CritMultiplierPercent < 100 {
		errs = append(errs, fmt.Sprintf("crit multiplier percent must be >= 100, got %d", c.CritMultiplierPercent))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}
