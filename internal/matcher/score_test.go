package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestScoreIntelligent(t *testing.T) {
	tests := []struct {
		name           string
		bankDesc       string
		personalDesc   string
		bankAmount     string
		personalAmount string
		want           bool
	}{
		{"prefix and amount match", "trader joes #552", "trader joes", "-45.50", "-45.50", true},
		{"prefix differs", "whole foods market", "trader joes", "-45.50", "-45.50", false},
		{"amount differs", "trader joes #552", "trader joes", "-45.50", "-45.51", false},
		{"bank description too short", "amazon", "amazon marketplace", "-20.00", "-20.00", false},
		{"personal description too short", "amazon marketplace", "amazon", "-20.00", "-20.00", false},
		{"third token ignored", "shell oil 5771", "shell oil station", "-60.00", "-60.00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, ok := scoreIntelligent(tt.bankDesc, tt.personalDesc, amt(tt.bankAmount), amt(tt.personalAmount))
			if ok != tt.want {
				t.Fatalf("ok = %v, want %v", ok, tt.want)
			}
			if ok && score != intelligentConfidence {
				t.Errorf("score = %v, want %v", score, intelligentConfidence)
			}
		})
	}
}

func TestScoreAmount(t *testing.T) {
	if got := scoreAmount(amt("-45.50"), amt("-45.50"), 0.01); got != 1.0 {
		t.Errorf("exact amounts = %v, want 1.0", got)
	}
	// Differences at or beyond the tolerance score zero.
	if got := scoreAmount(amt("-100.00"), amt("-98.00"), 0.01); got != 0.0 {
		t.Errorf("2%% difference with 1%% tolerance = %v, want 0", got)
	}
	// Differences inside the tolerance decrease linearly.
	got := scoreAmount(amt("-100.00"), amt("-99.50"), 0.01)
	if got <= 0 || got >= 1 {
		t.Errorf("half-tolerance difference = %v, want in (0, 1)", got)
	}
	if want := 0.5; got < want-0.001 || got > want+0.001 {
		t.Errorf("half-tolerance difference = %v, want about %v", got, want)
	}
	if got := scoreAmount(amt("0"), amt("0"), 0.01); got != 1.0 {
		t.Errorf("two zeros = %v, want 1.0", got)
	}
	if got := scoreAmount(amt("0"), amt("5"), 0.01); got != 0.0 {
		t.Errorf("zero vs nonzero = %v, want 0", got)
	}
}

func TestScoreDate(t *testing.T) {
	base := day("2024-03-15")
	tests := []struct {
		name   string
		other  string
		window int
		want   float64
	}{
		{"same day", "2024-03-15", 3, 1.0},
		{"one day", "2024-03-16", 3, 1.0 - 1.0/3.0},
		{"edge of window", "2024-03-18", 3, 0.0},
		{"beyond window", "2024-03-19", 3, 0.0},
		{"before window", "2024-03-11", 3, 0.0},
		{"zero window same day", "2024-03-15", 0, 1.0},
		{"zero window next day", "2024-03-16", 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreDate(base, day(tt.other), tt.window)
			if got < tt.want-0.0001 || got > tt.want+0.0001 {
				t.Errorf("scoreDate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("trader joes", "trader joes"); got != 1.0 {
		t.Errorf("identical strings = %v, want 1.0", got)
	}
	if got := Similarity("joes trader", "trader joes"); got != 1.0 {
		t.Errorf("token order must not matter, got %v", got)
	}
	if got := Similarity("trader joes", "whole foods"); got > 0.5 {
		t.Errorf("unrelated strings = %v, want low", got)
	}
	if got := Similarity("", "trader joes"); got != 0.0 {
		t.Errorf("empty vs nonempty = %v, want 0", got)
	}
	if got := Similarity("", ""); got != 1.0 {
		t.Errorf("two empties = %v, want 1.0", got)
	}
	got := Similarity("trader joes 552", "trader joes")
	if got <= 0.5 || got >= 1.0 {
		t.Errorf("near match = %v, want in (0.5, 1.0)", got)
	}
}

func TestScoreFuzzyBounds(t *testing.T) {
	e, err := NewEngine(DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Exact amount, same day, identical description is the only way to 1.0.
	b := tx("2024-03-15", "-45.50", "trader joes")
	p := tx("2024-03-15", "-45.50", "trader joes")
	if got := e.scoreFuzzy(b, p, "trader joes", "trader joes"); got != 1.0 {
		t.Errorf("perfect triple = %v, want 1.0", got)
	}

	// Any imperfect component keeps the score strictly below 1.0.
	p2 := tx("2024-03-16", "-45.50", "trader joes")
	if got := e.scoreFuzzy(b, p2, "trader joes", "trader joes"); got >= 1.0 {
		t.Errorf("imperfect date = %v, want < 1.0", got)
	}

	// Nothing in common stays at the floor.
	p3 := tx("2024-03-19", "-999.99", "zzz qqq")
	if got := e.scoreFuzzy(b, p3, "trader joes", "zzz qqq"); got < 0 {
		t.Errorf("score = %v, want >= 0", got)
	}
}

func TestScoreFuzzyRounding(t *testing.T) {
	e, err := NewEngine(DefaultConfig(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	b := tx("2024-03-15", "-45.50", "trader joes")
	p := tx("2024-03-16", "-45.50", "trader joes market")
	got := e.scoreFuzzy(b, p, "trader joes", "trader joes market")
	rounded := float64(int(got*10000+0.5)) / 10000
	if got != rounded {
		t.Errorf("score %v is not rounded to four decimal places", got)
	}
}

func BenchmarkScoreFuzzy(b *testing.B) {
	e, _ := NewEngine(DefaultConfig(), nil, nil)
	bank := tx("2024-03-15", "-45.50", "trader joes #552")
	personal := tx("2024-03-16", "-45.50", "trader joes")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.scoreFuzzy(bank, personal, "trader joes #552", "trader joes")
	}
}
