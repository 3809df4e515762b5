package loader

import (
	"fmt"
	"strings"

	"doublepost/internal/matcher"
	"doublepost/internal/models"
	"doublepost/pkg/errors"
)

// Header keyword lists, in priority order. Resolution tries exact matches
// first, then substring containment, then fuzzy similarity, so common
// vendor spellings ("Post Date", "Transaction Date", "Amt") all resolve
// without per-bank configuration.
var (
	dateKeywords        = []string{"date", "post date", "posting date", "transaction date", "trans date", "dt"}
	amountKeywords      = []string{"amount", "amt", "value", "usd"}
	descriptionKeywords = []string{"description", "desc", "memo", "merchant", "payee", "details", "narrative"}
	debitKeywords       = []string{"debit", "withdrawal", "withdrawals"}
	creditKeywords      = []string{"credit", "deposit", "deposits"}
	reconciledKeywords  = []string{"reconciled", "cleared", "matched"}
)

// fuzzyHeaderThreshold is the minimum similarity for a fuzzy header match.
const fuzzyHeaderThreshold = 0.6

// ResolveColumns maps CSV headers onto transaction fields. Date and
// description are required; amounts come from either a signed amount column
// or a debit/credit pair. Each header is consumed at most once.
func ResolveColumns(headers []string) (*models.ColumnMapping, error) {
	used := make(map[int]bool, len(headers))
	mapping := &models.ColumnMapping{
		Date:        pickHeader(headers, dateKeywords, used),
		Description: pickHeader(headers, descriptionKeywords, used),
		Debit:       pickHeader(headers, debitKeywords, used),
		Credit:      pickHeader(headers, creditKeywords, used),
		Reconciled:  pickHeader(headers, reconciledKeywords, used),
	}
	// A lone debit or credit column is better treated as the amount column.
	if !mapping.SplitAmount() {
		mapping.Debit = ""
		mapping.Credit = ""
		used = rebuildUsed(headers, mapping)
	}
	if mapping.Amount == "" && !mapping.SplitAmount() {
		mapping.Amount = pickHeader(headers, amountKeywords, used)
	}

	if err := mapping.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryParse, errors.CodeMissingColumn,
			fmt.Sprintf("cannot map CSV headers %v to transaction fields", headers)).
			WithSuggestion("ensure the CSV has date, amount (or debit/credit), and description columns")
	}
	return mapping, nil
}

func rebuildUsed(headers []string, mapping *models.ColumnMapping) map[int]bool {
	used := make(map[int]bool, len(headers))
	for i, h := range headers {
		switch h {
		case mapping.Date, mapping.Description, mapping.Reconciled:
			if h != "" {
				used[i] = true
			}
		}
	}
	return used
}

// pickHeader selects the best unused header for one field. Exact keyword
// matches beat containment matches, which beat fuzzy ones; within a pass the
// keyword list order decides.
func pickHeader(headers []string, keywords []string, used map[int]bool) string {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, kw := range keywords {
		for i, h := range norm {
			if !used[i] && h == kw {
				used[i] = true
				return headers[i]
			}
		}
	}
	for _, kw := range keywords {
		for i, h := range norm {
			if !used[i] && strings.Contains(h, kw) {
				used[i] = true
				return headers[i]
			}
		}
	}
	for _, kw := range keywords {
		for i, h := range norm {
			if !used[i] && matcher.Similarity(h, kw) >= fuzzyHeaderThreshold {
				used[i] = true
				return headers[i]
			}
		}
	}
	return ""
}
