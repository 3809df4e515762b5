package matcher

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"doublepost/internal/models"
	"doublepost/internal/normalize"
)

// intelligentConfidence is the fixed score of a merchant-prefix match with
// an exact amount. It sits in the high tier regardless of date distance.
const intelligentConfidence = 0.90

// scoreIntelligent checks the exact-amount, first-two-token strategy. Both
// canonical descriptions must have at least two tokens; short descriptions
// fall through to the fuzzy strategy.
func scoreIntelligent(bankCanonical, personalCanonical string, bankAmount, personalAmount decimal.Decimal) (float64, bool) {
	bankPrefix, ok := normalize.FirstTwoTokens(bankCanonical)
	if !ok {
		return 0, false
	}
	personalPrefix, ok := normalize.FirstTwoTokens(personalCanonical)
	if !ok {
		return 0, false
	}
	if bankPrefix != personalPrefix {
		return 0, false
	}
	if !bankAmount.Equal(personalAmount) {
		return 0, false
	}
	return intelligentConfidence, true
}

// scoreAmount compares two amounts in exact decimal arithmetic. Equal
// amounts score 1.0; otherwise the score drops linearly with the relative
// difference, reaching zero at the tolerance.
func scoreAmount(bank, personal decimal.Decimal, tolerance float64) float64 {
	if bank.Equal(personal) {
		return 1.0
	}

	reference := bank.Abs()
	if p := personal.Abs(); p.GreaterThan(reference) {
		reference = p
	}
	if reference.IsZero() {
		return 0.0
	}

	relDiff, _ := bank.Sub(personal).Abs().Div(reference).Float64()
	if relDiff >= tolerance {
		return 0.0
	}
	return 1.0 - relDiff/tolerance
}

// scoreDate scores date proximity linearly within the window. A zero window
// accepts same-day candidates only.
func scoreDate(bank, personal time.Time, windowDays int) float64 {
	days := int(math.Abs(bank.Sub(personal).Hours()) / 24)
	if days > windowDays {
		return 0.0
	}
	if windowDays == 0 {
		return 1.0
	}
	return 1.0 - float64(days)/float64(windowDays)
}

// scoreFuzzy computes the weighted composite of amount, date, and
// description similarity. The result is clamped to [0, 1] and rounded to
// four decimal places so equal evidence always produces equal scores.
func (e *Engine) scoreFuzzy(bank, personal *models.Transaction, bankCanonical, personalCanonical string) float64 {
	amountScore := scoreAmount(bank.Amount, personal.Amount, e.config.AmountTolerance)
	dateScore := scoreDate(bank.Date, personal.Date, e.config.DateWindowDays)
	descScore := Similarity(bankCanonical, personalCanonical)

	score := e.config.Weights.Amount*amountScore +
		e.config.Weights.Date*dateScore +
		e.config.Weights.Description*descScore

	return roundConfidence(clamp01(score))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func roundConfidence(v float64) float64 {
	return math.Round(v*10000) / 10000
}
