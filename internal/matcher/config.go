package matcher

import (
	"fmt"
	"math"

	"doublepost/pkg/errors"
)

// Weights controls the fuzzy score composition. The three weights must sum
// to 1.0.
type Weights struct {
	Amount      float64 `json:"amount"`
	Date        float64 `json:"date"`
	Description float64 `json:"description"`
}

// Config holds the tunable parameters of a reconciliation run.
type Config struct {
	// MinConfidence is the floor below which no suggestion is offered.
	MinConfidence float64 `json:"min_confidence"`

	// DateWindowDays bounds the date proximity score. Candidates farther
	// apart score zero on the date component.
	DateWindowDays int `json:"date_window_days"`

	// AmountTolerance is the maximum relative amount difference that still
	// earns a nonzero amount score.
	AmountTolerance float64 `json:"amount_tolerance"`

	Weights Weights `json:"weights"`
}

// DefaultConfig returns the standard run parameters.
func DefaultConfig() *Config {
	return &Config{
		MinConfidence:   0.1,
		DateWindowDays:  3,
		AmountTolerance: 0.01,
		Weights: Weights{
			Amount:      0.3,
			Date:        0.3,
			Description: 0.4,
		},
	}
}

// Validate checks the configuration before a run. Violations are fatal
// configuration errors raised before any file is read.
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.NewConfigError(
			fmt.Sprintf("min confidence must be between 0 and 1, got %v", c.MinConfidence)).
			WithSuggestion("pass --min-confidence with a value in [0, 1]")
	}
	if c.DateWindowDays < 0 {
		return errors.NewConfigError(
			fmt.Sprintf("date window days cannot be negative, got %d", c.DateWindowDays))
	}
	if c.AmountTolerance <= 0 {
		return errors.NewConfigError(
			fmt.Sprintf("amount tolerance must be positive, got %v", c.AmountTolerance))
	}
	if c.Weights.Amount < 0 || c.Weights.Date < 0 || c.Weights.Description < 0 {
		return errors.NewConfigError("score weights cannot be negative")
	}
	sum := c.Weights.Amount + c.Weights.Date + c.Weights.Description
	if math.Abs(sum-1.0) > 0.001 {
		return errors.NewConfigError(
			fmt.Sprintf("score weights must sum to 1.0, got %v", sum))
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
