package signs

import (
	"testing"

	"github.com/shopspring/decimal"

	"doublepost/internal/models"
)

func txs(amounts ...float64) []*models.Transaction {
	out := make([]*models.Transaction, len(amounts))
	for i, a := range amounts {
		out[i] = &models.Transaction{Amount: decimal.NewFromFloat(a)}
	}
	return out
}

func TestDetectConvention(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		want    models.DebitSign
	}{
		{"mostly negative", []float64{-10, -20, -30, 5}, models.DebitNegative},
		{"mostly positive", []float64{10, 20, 30, -5}, models.DebitPositive},
		{"tie is unknown", []float64{-10, 20}, models.DebitUnknown},
		{"empty is unknown", nil, models.DebitUnknown},
		{"zeros carry no evidence", []float64{0, 0, -10}, models.DebitNegative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := DetectConvention(txs(tt.amounts...))
			if conv.DebitSign != tt.want {
				t.Errorf("DebitSign = %v, want %v", conv.DebitSign, tt.want)
			}
		})
	}
}

func TestNormalizeInvertsOpposingConventions(t *testing.T) {
	// Bank uses negative debits; personal recorded debits as positive.
	bank := txs(-45.50, -12.00, -8.25, 100.00)
	personal := txs(45.50, 12.00, 8.25, -100.00)

	sc := Normalize(bank, personal, nil)

	if !sc.Inverted {
		t.Fatal("opposing conventions should trigger inversion")
	}
	if want := decimal.NewFromFloat(-45.50); !personal[0].Amount.Equal(want) {
		t.Errorf("personal[0] = %s, want %s", personal[0].Amount, want)
	}
	if want := decimal.NewFromFloat(100.00); !personal[3].Amount.Equal(want) {
		t.Errorf("personal[3] = %s, want %s", personal[3].Amount, want)
	}
	// Bank amounts are never touched.
	if want := decimal.NewFromFloat(-45.50); !bank[0].Amount.Equal(want) {
		t.Errorf("bank[0] = %s, want %s", bank[0].Amount, want)
	}
}

func TestNormalizeMatchingConventionsUntouched(t *testing.T) {
	bank := txs(-45.50, -12.00)
	personal := txs(-45.50, -12.00, 3.00)

	sc := Normalize(bank, personal, nil)

	if sc.Inverted {
		t.Error("matching conventions must not invert")
	}
	if want := decimal.NewFromFloat(-45.50); !personal[0].Amount.Equal(want) {
		t.Errorf("personal[0] = %s, want %s", personal[0].Amount, want)
	}
}

func TestNormalizeUnknownConventionWarns(t *testing.T) {
	bank := txs(-45.50, -12.00)
	var personal []*models.Transaction

	sc := Normalize(bank, personal, nil)

	if sc.Inverted {
		t.Error("unknown convention must not invert")
	}
	if len(sc.Warnings) == 0 {
		t.Error("empty personal source should produce a warning")
	}
}

func TestNormalizeTieWarnsAndSkips(t *testing.T) {
	bank := txs(-45.50, -12.00)
	personal := txs(10.00, -10.00)

	sc := Normalize(bank, personal, nil)

	if sc.Inverted {
		t.Error("tied sign counts must not invert")
	}
	if len(sc.Warnings) != 1 {
		t.Errorf("warnings = %d, want 1", len(sc.Warnings))
	}
	if want := decimal.NewFromFloat(10.00); !personal[0].Amount.Equal(want) {
		t.Errorf("personal[0] = %s, want %s", personal[0].Amount, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	bank := txs(-45.50, -12.00)
	personal := txs(45.50, 12.00)

	Normalize(bank, personal, nil)
	// After inversion both sources share the negative-debit convention, so a
	// second pass changes nothing.
	sc := Normalize(bank, personal, nil)

	if sc.Inverted {
		t.Error("second pass should not invert again")
	}
	if want := decimal.NewFromFloat(-45.50); !personal[0].Amount.Equal(want) {
		t.Errorf("personal[0] = %s, want %s", personal[0].Amount, want)
	}
}
