// Package normalize converts raw CSV field values into canonical forms:
// dates to midnight UTC, amounts to exact decimals, descriptions to
// comparable lower-case text.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"doublepost/internal/models"
	"doublepost/pkg/errors"
)

// AliasLookup resolves a merchant description to its primary name. The alias
// store is the only source of merchant equivalence; no similarity heuristics
// are applied at lookup time.
type AliasLookup interface {
	Lookup(description string) (string, bool)
}

// DateHints disambiguates numeric dates like 03/04/2024.
type DateHints struct {
	// DayFirst interprets the leading component as the day.
	DayFirst bool
}

// unambiguousLayouts are tried before any hint-driven numeric parsing.
var unambiguousLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// InferDateHints scans sample date strings from one file and decides the
// component order once per file, so every row is parsed consistently. A
// leading component above 12 anywhere forces day-first; a middle component
// above 12 forces month-first. Absent evidence, month-first wins.
func InferDateHints(samples []string) DateHints {
	for _, s := range samples {
		first, second, ok := splitNumericDate(s)
		if !ok {
			continue
		}
		if first > 12 {
			return DateHints{DayFirst: true}
		}
		if second > 12 {
			return DateHints{DayFirst: false}
		}
	}
	return DateHints{DayFirst: false}
}

func splitNumericDate(s string) (first, second int, ok bool) {
	s = strings.TrimSpace(s)
	sep := ""
	switch {
	case strings.Contains(s, "/"):
		sep = "/"
	case strings.Contains(s, "-"):
		sep = "-"
	default:
		return 0, 0, false
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return 0, 0, false
	}
	// Year-first strings are unambiguous and carry no ordering evidence.
	if len(parts[0]) == 4 {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(parts[0], "%d", &first); err != nil {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &second); err != nil {
		return 0, 0, false
	}
	return first, second, true
}

// ParseDate parses a date string into midnight UTC. Numeric day/month
// ordering follows hints, with a fallback to the opposite order when the
// hinted order cannot produce a valid date.
func ParseDate(value string, hints DateHints) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range unambiguousLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateToUTC(t), nil
		}
	}

	ordered := [][]string{
		{"01/02/2006", "01-02-2006", "01/02/06", "01-02-06"},
		{"02/01/2006", "02-01-2006", "02/01/06", "02-01-06"},
	}
	if hints.DayFirst {
		ordered[0], ordered[1] = ordered[1], ordered[0]
	}
	for _, layouts := range ordered {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return truncateToUTC(t), nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", value)
}

func truncateToUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// amountReplacer strips currency symbols and separators before decimal
// parsing. Amounts are never routed through floats.
var amountReplacer = strings.NewReplacer(
	"$", "",
	"€", "",
	"£", "",
	",", "",
	" ", "",
)

// ParseAmount parses a monetary string into an exact decimal. Parenthesized
// values are treated as negative per accounting convention.
func ParseAmount(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = amountReplacer.Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q: %w", value, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseSplitAmount combines separate debit and credit columns into one signed
// amount, credit minus debit. At least one of the two must be populated.
func ParseSplitAmount(debit, credit string) (decimal.Decimal, error) {
	debit = strings.TrimSpace(debit)
	credit = strings.TrimSpace(credit)
	if debit == "" && credit == "" {
		return decimal.Zero, fmt.Errorf("both debit and credit are empty")
	}

	d := decimal.Zero
	if debit != "" {
		v, err := ParseAmount(debit)
		if err != nil {
			return decimal.Zero, fmt.Errorf("debit column: %w", err)
		}
		d = v.Abs()
	}
	c := decimal.Zero
	if credit != "" {
		v, err := ParseAmount(credit)
		if err != nil {
			return decimal.Zero, fmt.Errorf("credit column: %w", err)
		}
		c = v.Abs()
	}
	return c.Sub(d), nil
}

// NormalizeDescription lower-cases, collapses internal whitespace, and trims
// surrounding punctuation. Interior punctuation is preserved.
func NormalizeDescription(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, ".,;:!?\"'()[]")
}

// Canonical produces the description form used for matching: the alias
// store's primary name when one exists, lower-cased with apostrophes
// removed. A nil lookup skips alias resolution.
func Canonical(rawDescription string, lookup AliasLookup) string {
	s := strings.TrimSpace(rawDescription)
	if lookup != nil {
		if primary, ok := lookup.Lookup(s); ok {
			s = primary
		}
	}
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "'", "")
}

// FirstTwoTokens returns the first two whitespace tokens joined by a single
// space. ok is false when the string has fewer than two tokens.
func FirstTwoTokens(s string) (string, bool) {
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return "", false
	}
	return tokens[0] + " " + tokens[1], true
}

// ParseReconciled interprets common truthy markers in a reconciled column.
// Anything else, including empty, is false.
func ParseReconciled(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "y", "1", "x":
		return true
	default:
		return false
	}
}

// Row holds the raw field values of one CSV row before normalization.
type Row struct {
	Date        string
	Amount      string
	Debit       string
	Credit      string
	Description string
	Reconciled  string
	Line        int
	Source      models.Source
}

// NormalizeRow converts a raw row into a Transaction. Failures return a
// normalization error carrying the line number; callers collect these and
// continue with the remaining rows.
func NormalizeRow(row Row, hints DateHints) (*models.Transaction, error) {
	date, err := ParseDate(row.Date, hints)
	if err != nil {
		return nil, errors.NewNormalizationError(errors.CodeInvalidDate,
			fmt.Sprintf("invalid date %q: %v", row.Date, err), row.Line)
	}

	var amount decimal.Decimal
	if row.Debit != "" || row.Credit != "" {
		amount, err = ParseSplitAmount(row.Debit, row.Credit)
	} else {
		amount, err = ParseAmount(row.Amount)
	}
	if err != nil {
		return nil, errors.NewNormalizationError(errors.CodeInvalidAmount,
			fmt.Sprintf("invalid amount on row: %v", err), row.Line)
	}

	return &models.Transaction{
		Date:           date,
		Amount:         amount,
		Description:    NormalizeDescription(row.Description),
		RawDescription: strings.TrimSpace(row.Description),
		Reconciled:     ParseReconciled(row.Reconciled),
		Source:         row.Source,
		Line:           row.Line,
	}, nil
}
