package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewParseError(CodeMissingColumn, "no date column found").
		WithContext("file", "bank.csv").
		WithSuggestion("add a Date header to the CSV")

	msg := err.Error()
	if !strings.Contains(msg, "parse") {
		t.Errorf("error string %q should contain category", msg)
	}
	if !strings.Contains(msg, CodeMissingColumn) {
		t.Errorf("error string %q should contain code", msg)
	}
	if !strings.Contains(msg, "file=bank.csv") {
		t.Errorf("error string %q should contain context", msg)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("open bank.csv: no such file")
	err := Wrap(cause, CategoryFile, CodeFileNotFound, "cannot read bank file")

	if !strings.Contains(err.Error(), "no such file") {
		t.Errorf("wrapped error %q should mention cause", err.Error())
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(NewNormalizationError(CodeInvalidDate, "bad date", 12)) {
		t.Error("normalization errors must not be fatal")
	}
	if !IsFatal(NewConfigError("min confidence out of range")) {
		t.Error("configuration errors must be fatal")
	}
	if !IsFatal(NewFileError(CodeFileNotFound, "missing file")) {
		t.Error("file errors must be fatal")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"file", NewFileError(CodeFileNotFound, "x"), 2},
		{"parse", NewParseError(CodeMalformedCSV, "x"), 3},
		{"configuration", NewConfigError("x"), 4},
		{"reconciliation", NewReconciliationError(CodeInvalidMatchIndex, "x"), 5},
		{"foreign", fmt.Errorf("plain"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNormalizationErrorCarriesLine(t *testing.T) {
	err := NewNormalizationError(CodeInvalidAmount, "unparseable amount", 42)
	if got := err.Context["line"]; got != 42 {
		t.Errorf("line context = %v, want 42", got)
	}
}

func TestErrorSummary(t *testing.T) {
	var s ErrorSummary
	s.Add(nil)
	s.Add(NewNormalizationError(CodeInvalidDate, "bad date", 3))
	s.Add(NewNormalizationError(CodeInvalidAmount, "bad amount", 7))
	s.Add(NewParseError(CodeMalformedCSV, "ragged row"))

	if s.Count() != 3 {
		t.Errorf("Count() = %d, want 3", s.Count())
	}
	byCat := s.ByCategory()
	if len(byCat[CategoryNormalization]) != 2 {
		t.Errorf("normalization group = %d, want 2", len(byCat[CategoryNormalization]))
	}
	if len(byCat[CategoryParse]) != 1 {
		t.Errorf("parse group = %d, want 1", len(byCat[CategoryParse]))
	}
}

func TestFormatUserErrorIncludesSuggestion(t *testing.T) {
	err := NewConfigError("min confidence must be between 0 and 1").
		WithSuggestion("pass --min-confidence with a value in [0, 1]")

	out := FormatUserError(err)
	if !strings.Contains(out, "Suggestion:") {
		t.Errorf("formatted error %q should include suggestion", out)
	}
}
