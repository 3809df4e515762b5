package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"doublepost/internal/matcher"
	"doublepost/internal/models"
	"doublepost/pkg/errors"
)

func sampleReport() *Report {
	bank := &models.Transaction{
		Date:           time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.NewFromFloat(-45.50),
		RawDescription: "TRADER JOES #552",
		Source:         models.SourceBank,
		Line:           2,
	}
	personal := &models.Transaction{
		Date:           time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.NewFromFloat(-45.50),
		RawDescription: "Trader Joe's",
		Source:         models.SourcePersonal,
		Line:           3,
	}
	missing := &models.Transaction{
		Date:           time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		Amount:         decimal.NewFromFloat(-99.99),
		RawDescription: "MYSTERY CHARGE",
		Source:         models.SourceBank,
		Line:           3,
	}

	run := &matcher.RunResult{
		Results: []*models.MatchResult{
			{
				BankIndex: 0, Bank: bank, PersonalIndex: 0, Personal: personal,
				Confidence: 0.90, Tier: models.TierHigh,
				Strategy: models.StrategyIntelligent, Status: models.StatusPending,
				Reason: "exact amount -45.50 and merchant prefix \"trader joes\"",
			},
			{
				BankIndex: 1, Bank: missing, PersonalIndex: -1,
				Tier: models.TierNone, Status: models.StatusPending,
				Reason: "no candidate reached the 0.10 confidence floor",
			},
		},
		Missing:    []*models.Transaction{missing},
		Convention: &models.SignConvention{Bank: models.SourceConvention{DebitSign: models.DebitNegative}},
		Summary: matcher.Summary{
			BankCount: 2, PersonalCount: 1, Matched: 1, MissingCount: 1,
			TierCounts: map[models.ConfidenceTier]int{models.TierHigh: 1, models.TierNone: 1},
		},
	}

	var loadErrors errors.ErrorSummary
	loadErrors.Add(errors.NewNormalizationError(errors.CodeInvalidDate, "bad date", 9))
	loadErrors.Add(errors.NewParseError(errors.CodeMalformedCSV, "ragged row"))

	return &Report{
		GeneratedAt:  time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
		BankFile:     "bank.csv",
		PersonalFile: "personal.csv",
		Run:          run,
		LoadErrors:   loadErrors,
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"console", "json", "CSV"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) error: %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestConsoleReport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewReporter(FormatConsole, nil).Generate(&buf, sampleReport()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"bank.csv",
		"personal.csv",
		"Matched: 1",
		"Missing from personal records: 1",
		"TRADER JOES #552",
		"MYSTERY CHARGE",
		"Rows skipped during load: 2",
		"normalization (1):",
		"parse (1):",
		"bad date",
		"ragged row",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console report missing %q\n%s", want, out)
		}
	}
}

func TestJSONReport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewReporter(FormatJSON, nil).Generate(&buf, sampleReport()); err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		BankFile string `json:"bank_file"`
		Run      struct {
			Results []struct {
				Confidence float64 `json:"Confidence"`
				Tier       string  `json:"Tier"`
			} `json:"results"`
			Summary struct {
				Matched int `json:"matched"`
			} `json:"summary"`
		} `json:"run"`
		LoadErrors []string `json:"load_errors"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded.BankFile != "bank.csv" {
		t.Errorf("bank_file = %q", decoded.BankFile)
	}
	if decoded.Run.Summary.Matched != 1 {
		t.Errorf("matched = %d, want 1", decoded.Run.Summary.Matched)
	}
	if len(decoded.Run.Results) != 2 {
		t.Errorf("results = %d, want 2", len(decoded.Run.Results))
	}
	if len(decoded.LoadErrors) != 2 {
		t.Errorf("load_errors = %d, want 2", len(decoded.LoadErrors))
	}
}

func TestCSVReport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewReporter(FormatCSV, nil).Generate(&buf, sampleReport()); err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header plus 2", len(records))
	}
	if records[0][0] != "bank_index" {
		t.Errorf("header = %v", records[0])
	}
	matched := records[1]
	if matched[3] != "TRADER JOES #552" || matched[7] != "Trader Joe's" {
		t.Errorf("matched row = %v", matched)
	}
	if matched[8] != "0.9000" {
		t.Errorf("confidence cell = %q, want 0.9000", matched[8])
	}
	unmatched := records[2]
	if unmatched[4] != "" || unmatched[9] != "none" {
		t.Errorf("unmatched row = %v", unmatched)
	}
}
