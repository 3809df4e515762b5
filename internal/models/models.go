package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies which ledger a transaction row came from.
type Source string

const (
	// SourceBank marks rows from the bank statement export. Bank rows are
	// the source of truth and are never rewritten.
	SourceBank Source = "BANK"
	// SourcePersonal marks rows from the user-maintained record set.
	SourcePersonal Source = "PERSONAL"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// Transaction is a single normalized ledger row. Instances are immutable
// once normalization (including sign correction) has completed.
type Transaction struct {
	// Date is the calendar date of the transaction, truncated to midnight UTC.
	Date time.Time

	// Amount is the exact decimal value. After sign normalization every
	// amount follows the bank's sign convention.
	Amount decimal.Decimal

	// Description is the normalized free-text description: lower-cased,
	// whitespace-collapsed, punctuation-trimmed.
	Description string

	// RawDescription preserves the description as read from the CSV,
	// for display and diagnostics.
	RawDescription string

	// Reconciled marks personal rows already matched in a prior run.
	// Such rows are excluded from candidate generation.
	Reconciled bool

	// Source tells which ledger this row belongs to.
	Source Source

	// Line is the 1-based line number of the row in its CSV file.
	Line int
}

// IsDebit reports whether the amount is negative under the bank convention.
func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// DateKey returns the date formatted as YYYY-MM-DD.
func (t *Transaction) DateKey() string {
	return t.Date.Format("2006-01-02")
}

// String returns a compact representation for logs and reports.
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{%s %s %q line=%d}",
		t.DateKey(), t.Amount.String(), t.Description, t.Line)
}

// ConfidenceTier buckets a continuous confidence score for review
// prioritization.
type ConfidenceTier string

const (
	// TierHigh (>= 0.9): strong enough to auto-accept.
	TierHigh ConfidenceTier = "high"
	// TierMedium (0.5 - 0.9): requires review.
	TierMedium ConfidenceTier = "medium"
	// TierLow (0.1 - 0.5): weak suggestion, shown but not emphasized.
	TierLow ConfidenceTier = "low"
	// TierNone (< 0.1): no candidate offered.
	TierNone ConfidenceTier = "none"
)

// String returns the string representation of ConfidenceTier.
func (ct ConfidenceTier) String() string {
	return string(ct)
}

// TierForConfidence maps a confidence score to its tier. The thresholds are
// fixed by design; they are not configurable.
func TierForConfidence(confidence float64) ConfidenceTier {
	switch {
	case confidence >= 0.9:
		return TierHigh
	case confidence >= 0.5:
		return TierMedium
	case confidence >= 0.1:
		return TierLow
	default:
		return TierNone
	}
}

// MatchStrategy records how a match score was produced.
type MatchStrategy string

const (
	// StrategyIntelligent is the exact-amount plus first-two-token match.
	StrategyIntelligent MatchStrategy = "intelligent"
	// StrategyFuzzy is the weighted amount/date/description composite.
	StrategyFuzzy MatchStrategy = "fuzzy"
	// StrategyManual marks matches created explicitly by the user.
	StrategyManual MatchStrategy = "manual"
)

// MatchStatus is the review decision for a match. Only the external review
// collaborator mutates it; the engine always emits StatusPending.
type MatchStatus string

const (
	StatusPending  MatchStatus = "pending"
	StatusAccepted MatchStatus = "accepted"
	StatusRejected MatchStatus = "rejected"
)

// MatchResult relates one bank transaction to at most one personal
// transaction. PersonalIndex is -1 (and Personal nil) when no candidate
// cleared the caller's confidence floor.
type MatchResult struct {
	BankIndex     int
	Bank          *Transaction
	PersonalIndex int
	Personal      *Transaction
	Confidence    float64
	Tier          ConfidenceTier
	Strategy      MatchStrategy
	Status        MatchStatus
	Reason        string
}

// Matched reports whether a personal candidate was assigned.
func (mr *MatchResult) Matched() bool {
	return mr.PersonalIndex >= 0 && mr.Personal != nil
}

// String returns a compact representation for logs.
func (mr *MatchResult) String() string {
	if !mr.Matched() {
		return fmt.Sprintf("MatchResult{bank=%d unmatched}", mr.BankIndex)
	}
	return fmt.Sprintf("MatchResult{bank=%d personal=%d confidence=%.4f tier=%s strategy=%s}",
		mr.BankIndex, mr.PersonalIndex, mr.Confidence, mr.Tier, mr.Strategy)
}

// DebitSign is the arithmetic sign a source uses for debit (outflow) rows.
type DebitSign string

const (
	DebitNegative DebitSign = "negative"
	DebitPositive DebitSign = "positive"
	// DebitUnknown means the convention could not be inferred, either
	// because the source is empty or the counts tied.
	DebitUnknown DebitSign = "unknown"
)

// SourceConvention is the inferred sign convention of a single source.
type SourceConvention struct {
	DebitSign     DebitSign `json:"debit_sign"`
	PositiveCount int       `json:"positive_count"`
	NegativeCount int       `json:"negative_count"`
}

// SignConvention is the run-level sign inference result. It is computed once
// from aggregate statistics and applied uniformly, never re-derived per row.
type SignConvention struct {
	Bank     SourceConvention `json:"bank"`
	Personal SourceConvention `json:"personal"`

	// Inverted is true when every personal amount was negated to align the
	// personal source with the bank convention.
	Inverted bool `json:"inverted"`

	// Warnings holds non-fatal sign inference warnings, e.g. when a source
	// had zero rows and inference was skipped.
	Warnings []string `json:"warnings,omitempty"`
}

// String returns a human-readable summary for diagnostic display.
func (sc *SignConvention) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "bank debits %s (%d+/%d-), personal debits %s (%d+/%d-)",
		sc.Bank.DebitSign, sc.Bank.PositiveCount, sc.Bank.NegativeCount,
		sc.Personal.DebitSign, sc.Personal.PositiveCount, sc.Personal.NegativeCount)
	if sc.Inverted {
		b.WriteString(", personal amounts inverted")
	}
	return b.String()
}

// ColumnMapping names the resolved CSV columns for each transaction field.
// Either Amount or the Debit/Credit pair must be set.
type ColumnMapping struct {
	Date        string
	Amount      string
	Description string

	// Reconciled is optional and only meaningful on the personal side.
	Reconciled string

	// Debit and Credit support statement formats that split outflows and
	// inflows into separate columns instead of a signed amount column.
	Debit  string
	Credit string
}

// SplitAmount reports whether amounts come from separate debit/credit columns.
func (cm *ColumnMapping) SplitAmount() bool {
	return cm.Debit != "" && cm.Credit != ""
}

// Validate checks that the mapping covers all required fields.
func (cm *ColumnMapping) Validate() error {
	if cm.Date == "" {
		return fmt.Errorf("no date column resolved")
	}
	if cm.Amount == "" && !cm.SplitAmount() {
		return fmt.Errorf("no amount column resolved (need an amount column or a debit/credit pair)")
	}
	if cm.Description == "" {
		return fmt.Errorf("no description column resolved")
	}
	return nil
}
