// Package matcher implements the reconciliation engine: candidate
// generation, scoring, and globally greedy one-to-one assignment of bank
// transactions to personal transactions.
package matcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"doublepost/internal/models"
	"doublepost/internal/normalize"
	"doublepost/internal/signs"
	"doublepost/pkg/errors"
	"doublepost/pkg/logger"
)

// Engine performs reconciliation runs. It is safe for reuse across runs but
// not for concurrent use.
type Engine struct {
	config  *Config
	aliases normalize.AliasLookup
	log     logger.Logger
}

// NewEngine creates an engine after validating the configuration. aliases
// may be nil to run without merchant alias resolution.
func NewEngine(config *Config, aliases normalize.AliasLookup, log logger.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Engine{
		config:  config.Clone(),
		aliases: aliases,
		log:     log.WithComponent("matcher"),
	}, nil
}

// Summary aggregates run-level counts for reporting.
type Summary struct {
	BankCount          int                           `json:"bank_count"`
	PersonalCount      int                           `json:"personal_count"`
	Matched            int                           `json:"matched"`
	TierCounts         map[models.ConfidenceTier]int `json:"tier_counts"`
	MissingCount       int                           `json:"missing_count"`
	UnmatchedPersonal  int                           `json:"unmatched_personal"`
	ExcludedReconciled int                           `json:"excluded_reconciled"`
}

// RunResult is the complete output of one reconciliation run.
type RunResult struct {
	// Results holds one entry per bank transaction, in bank file order.
	Results []*models.MatchResult `json:"results"`

	// Missing are bank transactions with no suggestion above the
	// confidence floor. These are the likely double posts or omissions.
	Missing []*models.Transaction `json:"missing"`

	// UnmatchedPersonal are unreconciled personal transactions that no
	// bank transaction claimed.
	UnmatchedPersonal []*models.Transaction `json:"unmatched_personal"`

	// Convention records the sign inference applied to the inputs.
	Convention *models.SignConvention `json:"convention"`

	Summary Summary `json:"summary"`
}

// candidate is one scored bank/personal pairing.
type candidate struct {
	bankIdx     int
	personalIdx int
	score       float64
	strategy    models.MatchStrategy
}

// Reconcile matches bank transactions against personal transactions. Inputs
// must be field-normalized; sign normalization happens here so callers never
// have to reason about conventions. Personal amounts may be mutated in place
// by sign alignment.
func (e *Engine) Reconcile(ctx context.Context, bank, personal []*models.Transaction) (*RunResult, error) {
	start := time.Now()
	e.log.WithFields(logger.Fields{
		"bank_transactions":     len(bank),
		"personal_transactions": len(personal),
		"min_confidence":        e.config.MinConfidence,
	}).Info("Starting reconciliation")

	convention := signs.Normalize(bank, personal, e.log)

	bankCanonical := e.canonicals(bank)
	personalCanonical := e.canonicals(personal)

	eligible, excludedReconciled := e.eligiblePersonal(bank, personal)

	candidates, err := e.scoreCandidates(ctx, bank, personal, bankCanonical, personalCanonical, eligible)
	if err != nil {
		return nil, err
	}

	assignment := assignGreedy(candidates)

	result := e.buildResult(bank, personal, bankCanonical, personalCanonical, assignment, eligible)
	result.Convention = convention
	result.Summary.ExcludedReconciled = excludedReconciled

	e.log.WithFields(logger.Fields{
		"matched":  result.Summary.Matched,
		"missing":  result.Summary.MissingCount,
		"duration": time.Since(start).String(),
	}).Info("Reconciliation complete")
	return result, nil
}

// canonicals precomputes the matching form of every description once per run.
func (e *Engine) canonicals(transactions []*models.Transaction) []string {
	out := make([]string, len(transactions))
	for i, tx := range transactions {
		out[i] = normalize.Canonical(tx.RawDescription, e.aliases)
	}
	return out
}

// eligiblePersonal filters the personal side: reconciled rows are out, and
// so are rows dated after the last bank date plus one day of settlement
// slack. Later rows cannot correspond to anything the statement period
// covers.
func (e *Engine) eligiblePersonal(bank, personal []*models.Transaction) (map[int]bool, int) {
	var cutoff time.Time
	haveCutoff := false
	for _, tx := range bank {
		if tx.Date.After(cutoff) {
			cutoff = tx.Date
		}
		haveCutoff = true
	}
	if haveCutoff {
		cutoff = cutoff.AddDate(0, 0, 1)
	}

	eligible := make(map[int]bool, len(personal))
	excludedReconciled := 0
	for j, tx := range personal {
		if tx.Reconciled {
			excludedReconciled++
			continue
		}
		if haveCutoff && tx.Date.After(cutoff) {
			continue
		}
		eligible[j] = true
	}

	if excludedReconciled > 0 {
		e.log.WithField("count", excludedReconciled).Debug("Excluded already reconciled personal transactions")
	}
	return eligible, excludedReconciled
}

// scoreCandidates produces every bank/personal pairing at or above the
// confidence floor. Both strategies are scored and the higher one wins;
// the intelligent strategy ignores date distance, fuzzy scoring is
// confined to the date window.
func (e *Engine) scoreCandidates(ctx context.Context, bank, personal []*models.Transaction,
	bankCanonical, personalCanonical []string, eligible map[int]bool) ([]candidate, error) {

	var candidates []candidate
	for i, b := range bank {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.CategoryReconciliation,
				"RUN_CANCELLED", "reconciliation cancelled")
		default:
		}

		for j, p := range personal {
			if !eligible[j] {
				continue
			}

			intelligentScore, intelligentOK := scoreIntelligent(bankCanonical[i], personalCanonical[j], b.Amount, p.Amount)

			// Both strategies are evaluated and the higher score wins. A
			// triple-exact pair must reach 1.0 through the fuzzy composite;
			// the fixed 0.90 only carries pairs the window would exclude.
			var fuzzyScore float64
			inWindow := daysApart(b.Date, p.Date) <= e.config.DateWindowDays
			if inWindow {
				fuzzyScore = e.scoreFuzzy(b, p, bankCanonical[i], personalCanonical[j])
			}
			if !intelligentOK && !inWindow {
				continue
			}

			score, strategy := fuzzyScore, models.StrategyFuzzy
			if intelligentOK && intelligentScore > score {
				score, strategy = intelligentScore, models.StrategyIntelligent
			}
			if score >= e.config.MinConfidence {
				candidates = append(candidates, candidate{i, j, score, strategy})
			}
		}
	}
	return candidates, nil
}

func daysApart(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

// assignGreedy resolves one-to-one uniqueness. Candidates are ordered by
// score descending with bank then personal index as deterministic
// tie-breakers, then claimed in a single pass. A transaction losing its best
// candidate automatically falls to its next-best surviving candidate.
func assignGreedy(candidates []candidate) map[int]candidate {
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		if candidates[a].bankIdx != candidates[b].bankIdx {
			return candidates[a].bankIdx < candidates[b].bankIdx
		}
		return candidates[a].personalIdx < candidates[b].personalIdx
	})

	assignment := make(map[int]candidate)
	usedPersonal := make(map[int]bool)
	for _, c := range candidates {
		if _, taken := assignment[c.bankIdx]; taken {
			continue
		}
		if usedPersonal[c.personalIdx] {
			continue
		}
		assignment[c.bankIdx] = c
		usedPersonal[c.personalIdx] = true
	}
	return assignment
}

func (e *Engine) buildResult(bank, personal []*models.Transaction,
	bankCanonical, personalCanonical []string,
	assignment map[int]candidate, eligible map[int]bool) *RunResult {

	result := &RunResult{
		Results: make([]*models.MatchResult, 0, len(bank)),
		Summary: Summary{
			BankCount:     len(bank),
			PersonalCount: len(personal),
			TierCounts:    make(map[models.ConfidenceTier]int),
		},
	}

	claimedPersonal := make(map[int]bool)
	for i, b := range bank {
		mr := &models.MatchResult{
			BankIndex:     i,
			Bank:          b,
			PersonalIndex: -1,
			Tier:          models.TierNone,
			Status:        models.StatusPending,
		}
		if c, ok := assignment[i]; ok {
			p := personal[c.personalIdx]
			mr.PersonalIndex = c.personalIdx
			mr.Personal = p
			mr.Confidence = c.score
			mr.Tier = models.TierForConfidence(c.score)
			mr.Strategy = c.strategy
			mr.Reason = e.matchReason(c, b, p, bankCanonical[i], personalCanonical[c.personalIdx])
			claimedPersonal[c.personalIdx] = true
			result.Summary.Matched++
		} else {
			mr.Reason = fmt.Sprintf("no candidate reached the %.2f confidence floor", e.config.MinConfidence)
			result.Missing = append(result.Missing, b)
		}
		result.Summary.TierCounts[mr.Tier]++
		result.Results = append(result.Results, mr)
	}

	for j, p := range personal {
		if eligible[j] && !claimedPersonal[j] {
			result.UnmatchedPersonal = append(result.UnmatchedPersonal, p)
		}
	}

	result.Summary.MissingCount = len(result.Missing)
	result.Summary.UnmatchedPersonal = len(result.UnmatchedPersonal)
	return result
}

// matchReason builds the human-readable explanation attached to a match.
func (e *Engine) matchReason(c candidate, bank, personal *models.Transaction, bankCanonical, personalCanonical string) string {
	if c.strategy == models.StrategyIntelligent {
		prefix, _ := normalize.FirstTwoTokens(bankCanonical)
		return fmt.Sprintf("exact amount %s and merchant prefix %q", bank.Amount.StringFixed(2), prefix)
	}

	var parts []string
	if bank.Amount.Equal(personal.Amount) {
		parts = append(parts, "exact amount")
	} else {
		parts = append(parts, fmt.Sprintf("amounts %s vs %s", bank.Amount.StringFixed(2), personal.Amount.StringFixed(2)))
	}
	switch days := daysApart(bank.Date, personal.Date); days {
	case 0:
		parts = append(parts, "same day")
	case 1:
		parts = append(parts, "1 day apart")
	default:
		parts = append(parts, fmt.Sprintf("%d days apart", days))
	}
	parts = append(parts, fmt.Sprintf("description similarity %.2f", Similarity(bankCanonical, personalCanonical)))
	return strings.Join(parts, ", ")
}

// CreateManualMatch pairs a bank and personal transaction by explicit user
// choice. The confidence is informational only; manual matches bypass the
// confidence floor and are accepted immediately.
func (e *Engine) CreateManualMatch(bank, personal []*models.Transaction, bankIdx, personalIdx int) (*models.MatchResult, error) {
	if bankIdx < 0 || bankIdx >= len(bank) {
		return nil, errors.NewReconciliationError(errors.CodeInvalidMatchIndex,
			fmt.Sprintf("bank index %d out of range [0, %d)", bankIdx, len(bank)))
	}
	if personalIdx < 0 || personalIdx >= len(personal) {
		return nil, errors.NewReconciliationError(errors.CodeInvalidMatchIndex,
			fmt.Sprintf("personal index %d out of range [0, %d)", personalIdx, len(personal)))
	}

	b := bank[bankIdx]
	p := personal[personalIdx]
	bc := normalize.Canonical(b.RawDescription, e.aliases)
	pc := normalize.Canonical(p.RawDescription, e.aliases)
	confidence := e.scoreFuzzy(b, p, bc, pc)

	return &models.MatchResult{
		BankIndex:     bankIdx,
		Bank:          b,
		PersonalIndex: personalIdx,
		Personal:      p,
		Confidence:    confidence,
		Tier:          models.TierForConfidence(confidence),
		Strategy:      models.StrategyManual,
		Status:        models.StatusAccepted,
		Reason:        "manually matched by user",
	}, nil
}
