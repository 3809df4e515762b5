// Package config glues CLI flag values to the component configurations.
package config

import (
	"context"

	"doublepost/internal/loader"
	"doublepost/internal/matcher"
	"doublepost/internal/models"
	"doublepost/pkg/errors"
	"doublepost/pkg/logger"
)

// CreateMatcherConfig builds a matcher configuration from CLI flag values.
// Weights stay at their defaults; only the run-level knobs are exposed.
func CreateMatcherConfig(minConfidence float64, dateWindowDays int, amountTolerance float64) *matcher.Config {
	config := matcher.DefaultConfig()
	config.MinConfidence = minConfidence
	config.DateWindowDays = dateWindowDays
	config.AmountTolerance = amountTolerance
	return config
}

// LoadInputs loads both transaction files, collecting their per-row errors
// into one summary for the report.
func LoadInputs(ctx context.Context, bankFile, personalFile string, log logger.Logger) (bank, personal []*models.Transaction, loadErrors errors.ErrorSummary, err error) {
	l := loader.NewLoader(log)

	bankResult, err := l.LoadFile(ctx, bankFile, models.SourceBank)
	if err != nil {
		return nil, nil, loadErrors, err
	}
	personalResult, err := l.LoadFile(ctx, personalFile, models.SourcePersonal)
	if err != nil {
		return nil, nil, loadErrors, err
	}

	for _, rowErr := range bankResult.Stats.Errors {
		loadErrors.Add(rowErr)
	}
	for _, rowErr := range personalResult.Stats.Errors {
		loadErrors.Add(rowErr)
	}
	return bankResult.Transactions, personalResult.Transactions, loadErrors, nil
}
