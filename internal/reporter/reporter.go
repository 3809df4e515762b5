// Package reporter renders reconciliation results for terminals, JSON
// consumers, and spreadsheet import.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"doublepost/internal/matcher"
	"doublepost/internal/models"
	"doublepost/pkg/errors"
	"doublepost/pkg/logger"
)

// OutputFormat selects the report rendering.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// ParseFormat validates a format string from the CLI.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatConsole:
		return FormatConsole, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected console, json, or csv)", s)
	}
}

// Report bundles a run result with its provenance for rendering.
type Report struct {
	GeneratedAt  time.Time
	BankFile     string
	PersonalFile string
	Run          *matcher.RunResult

	// LoadErrors collects per-row errors gathered while loading either
	// file, grouped by category in the rendered report.
	LoadErrors errors.ErrorSummary
}

// Reporter renders reports in a fixed format.
type Reporter struct {
	format OutputFormat
	log    logger.Logger
}

// NewReporter creates a reporter for the given format.
func NewReporter(format OutputFormat, log logger.Logger) *Reporter {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Reporter{format: format, log: log.WithComponent("reporter")}
}

// Generate writes the report to w.
func (r *Reporter) Generate(w io.Writer, report *Report) error {
	switch r.format {
	case FormatJSON:
		return r.generateJSON(w, report)
	case FormatCSV:
		return r.generateCSV(w, report)
	default:
		return r.generateConsole(w, report)
	}
}

func (r *Reporter) generateConsole(w io.Writer, report *Report) error {
	run := report.Run
	fmt.Fprintf(w, "Reconciliation Report\n")
	fmt.Fprintf(w, "=====================\n")
	fmt.Fprintf(w, "Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Bank file: %s (%d transactions)\n", report.BankFile, run.Summary.BankCount)
	fmt.Fprintf(w, "Personal file: %s (%d transactions)\n", report.PersonalFile, run.Summary.PersonalCount)
	fmt.Fprintln(w)

	if run.Convention != nil {
		fmt.Fprintf(w, "Sign convention: %s\n", run.Convention)
		for _, warning := range run.Convention.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary\n")
	fmt.Fprintf(w, "-------\n")
	fmt.Fprintf(w, "Matched: %d\n", run.Summary.Matched)
	for _, tier := range []models.ConfidenceTier{models.TierHigh, models.TierMedium, models.TierLow, models.TierNone} {
		if n := run.Summary.TierCounts[tier]; n > 0 {
			fmt.Fprintf(w, "  %-6s %d\n", tier+":", n)
		}
	}
	fmt.Fprintf(w, "Missing from personal records: %d\n", run.Summary.MissingCount)
	fmt.Fprintf(w, "Unmatched personal: %d\n", run.Summary.UnmatchedPersonal)
	if run.Summary.ExcludedReconciled > 0 {
		fmt.Fprintf(w, "Excluded (already reconciled): %d\n", run.Summary.ExcludedReconciled)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Matches\n")
	fmt.Fprintf(w, "-------\n")
	for _, mr := range run.Results {
		if !mr.Matched() {
			continue
		}
		fmt.Fprintf(w, "[%s/%.4f] %s %s %q <-> %s %s %q (%s)\n",
			strings.ToUpper(string(mr.Tier)), mr.Confidence,
			mr.Bank.DateKey(), mr.Bank.Amount.StringFixed(2), mr.Bank.RawDescription,
			mr.Personal.DateKey(), mr.Personal.Amount.StringFixed(2), mr.Personal.RawDescription,
			mr.Reason)
	}

	if len(run.Missing) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Missing from personal records (likely double posts or omissions)\n")
		fmt.Fprintf(w, "----------------------------------------------------------------\n")
		for _, tx := range run.Missing {
			fmt.Fprintf(w, "%s %s %q (line %d)\n", tx.DateKey(), tx.Amount.StringFixed(2), tx.RawDescription, tx.Line)
		}
	}

	if len(run.UnmatchedPersonal) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Unmatched personal transactions\n")
		fmt.Fprintf(w, "-------------------------------\n")
		for _, tx := range run.UnmatchedPersonal {
			fmt.Fprintf(w, "%s %s %q (line %d)\n", tx.DateKey(), tx.Amount.StringFixed(2), tx.RawDescription, tx.Line)
		}
	}

	if report.LoadErrors.HasErrors() {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Rows skipped during load: %d\n", report.LoadErrors.Count())
		byCategory := report.LoadErrors.ByCategory()
		for _, category := range []errors.Category{
			errors.CategoryNormalization, errors.CategoryParse, errors.CategoryFile,
			errors.CategoryConfiguration, errors.CategoryReconciliation, "",
		} {
			grouped := byCategory[category]
			if len(grouped) == 0 {
				continue
			}
			name := string(category)
			if name == "" {
				name = "other"
			}
			fmt.Fprintf(w, "  %s (%d):\n", name, len(grouped))
			for _, err := range grouped {
				fmt.Fprintf(w, "    %v\n", err)
			}
		}
	}
	return nil
}

// jsonReport is the serializable view of a Report.
type jsonReport struct {
	GeneratedAt  time.Time          `json:"generated_at"`
	BankFile     string             `json:"bank_file"`
	PersonalFile string             `json:"personal_file"`
	Run          *matcher.RunResult `json:"run"`
	LoadErrors   []string           `json:"load_errors,omitempty"`
}

func (r *Reporter) generateJSON(w io.Writer, report *Report) error {
	out := jsonReport{
		GeneratedAt:  report.GeneratedAt,
		BankFile:     report.BankFile,
		PersonalFile: report.PersonalFile,
		Run:          report.Run,
	}
	for _, err := range report.LoadErrors.Errors {
		out.LoadErrors = append(out.LoadErrors, err.Error())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

var csvHeader = []string{
	"bank_index", "bank_date", "bank_amount", "bank_description",
	"personal_index", "personal_date", "personal_amount", "personal_description",
	"confidence", "tier", "strategy", "status", "reason",
}

func (r *Reporter) generateCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, mr := range report.Run.Results {
		row := []string{
			strconv.Itoa(mr.BankIndex),
			mr.Bank.DateKey(),
			mr.Bank.Amount.StringFixed(2),
			mr.Bank.RawDescription,
			"", "", "", "",
			strconv.FormatFloat(mr.Confidence, 'f', 4, 64),
			string(mr.Tier),
			string(mr.Strategy),
			string(mr.Status),
			mr.Reason,
		}
		if mr.Matched() {
			row[4] = strconv.Itoa(mr.PersonalIndex)
			row[5] = mr.Personal.DateKey()
			row[6] = mr.Personal.Amount.StringFixed(2)
			row[7] = mr.Personal.RawDescription
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
