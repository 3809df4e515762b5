// Package signs infers each source's debit sign convention from aggregate
// statistics and aligns the personal ledger to the bank's convention.
package signs

import (
	"fmt"

	"doublepost/internal/models"
	"doublepost/pkg/logger"
)

// DetectConvention infers the debit sign of one source from the sign
// distribution of its amounts. Most ledger rows are debits, so the dominant
// sign is taken to be the debit sign. A tie or an empty source yields unknown.
func DetectConvention(transactions []*models.Transaction) models.SourceConvention {
	conv := models.SourceConvention{DebitSign: models.DebitUnknown}
	for _, tx := range transactions {
		switch {
		case tx.Amount.IsPositive():
			conv.PositiveCount++
		case tx.Amount.IsNegative():
			conv.NegativeCount++
		}
	}
	switch {
	case conv.NegativeCount > conv.PositiveCount:
		conv.DebitSign = models.DebitNegative
	case conv.PositiveCount > conv.NegativeCount:
		conv.DebitSign = models.DebitPositive
	}
	return conv
}

// Normalize aligns the personal ledger's amounts with the bank's sign
// convention, mutating personal amounts in place. Inversion happens only
// when both conventions were inferred and they differ; otherwise amounts are
// left untouched and a warning is recorded. Running Normalize on already
// aligned inputs is a no-op.
func Normalize(bank, personal []*models.Transaction, log logger.Logger) *models.SignConvention {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("signs")

	sc := &models.SignConvention{
		Bank:     DetectConvention(bank),
		Personal: DetectConvention(personal),
	}

	if sc.Bank.DebitSign == models.DebitUnknown {
		sc.Warnings = append(sc.Warnings, warnUnknown("bank", sc.Bank))
	}
	if sc.Personal.DebitSign == models.DebitUnknown {
		sc.Warnings = append(sc.Warnings, warnUnknown("personal", sc.Personal))
	}

	if sc.Bank.DebitSign != models.DebitUnknown &&
		sc.Personal.DebitSign != models.DebitUnknown &&
		sc.Bank.DebitSign != sc.Personal.DebitSign {
		for _, tx := range personal {
			tx.Amount = tx.Amount.Neg()
		}
		sc.Inverted = true
		log.WithFields(logger.Fields{
			"bank_debit_sign":     sc.Bank.DebitSign,
			"personal_debit_sign": sc.Personal.DebitSign,
		}).Info("Inverted personal amounts to match bank sign convention")
	}

	for _, w := range sc.Warnings {
		log.Warn(w)
	}
	return sc
}

func warnUnknown(source string, conv models.SourceConvention) string {
	if conv.PositiveCount == 0 && conv.NegativeCount == 0 {
		return fmt.Sprintf("%s source has no signed amounts; sign inference skipped, amounts used as-is", source)
	}
	return fmt.Sprintf("%s source has an even sign split (%d positive, %d negative); assuming amounts already match",
		source, conv.PositiveCount, conv.NegativeCount)
}
