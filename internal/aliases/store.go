// Package aliases persists merchant alias mappings in SQLite. The store is
// the single source of merchant equivalence: a bank description and a
// personal description refer to the same merchant only if an alias row says
// so.
package aliases

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"doublepost/pkg/errors"
	"doublepost/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS merchant_aliases (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	primary_name TEXT NOT NULL,
	alias TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	usage_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_merchant_aliases_primary ON merchant_aliases(primary_name);
`

// Alias is one stored alias row.
type Alias struct {
	ID          int64     `json:"id"`
	PrimaryName string    `json:"primary_name"`
	Name        string    `json:"alias"`
	CreatedAt   time.Time `json:"created_at"`
	UsageCount  int       `json:"usage_count"`
}

// Store is a SQLite-backed alias database. It implements
// normalize.AliasLookup.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// Open opens or creates the alias database at path.
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFile, errors.CodeAliasStore,
			"cannot open alias database").WithContext("path", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CategoryFile, errors.CodeAliasStore,
			"cannot initialize alias database").WithContext("path", path)
	}
	return &Store{db: db, log: log.WithComponent("aliases")}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add records that alias refers to the merchant primaryName. Re-adding an
// existing alias updates its primary name.
func (s *Store) Add(ctx context.Context, alias, primaryName string) error {
	alias = strings.TrimSpace(alias)
	primaryName = strings.TrimSpace(primaryName)
	if alias == "" || primaryName == "" {
		return errors.New(errors.CategoryConfiguration, errors.CodeInvalidConfig,
			"alias and primary name must be non-empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchant_aliases (primary_name, alias) VALUES (?, ?)
		ON CONFLICT(alias) DO UPDATE SET primary_name = excluded.primary_name`,
		primaryName, alias)
	if err != nil {
		return errors.Wrap(err, errors.CategoryFile, errors.CodeAliasStore, "cannot store alias")
	}
	s.log.WithFields(logger.Fields{"alias": alias, "primary": primaryName}).Debug("Stored alias")
	return nil
}

// Lookup resolves a description to its primary merchant name. The match is
// exact apart from case and surrounding whitespace; similarity heuristics
// never apply here. Hits bump the alias's usage counter.
func (s *Store) Lookup(description string) (string, bool) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", false
	}

	ctx := context.Background()
	var id int64
	var primary string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, primary_name FROM merchant_aliases WHERE alias = ? COLLATE NOCASE`,
		description).Scan(&id, &primary)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.log.WithError(err).WithField("description", description).Error("Alias lookup failed")
		return "", false
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE merchant_aliases SET usage_count = usage_count + 1 WHERE id = ?`, id); err != nil {
		s.log.WithError(err).Warn("Could not update alias usage count")
	}
	return primary, true
}

// List returns all aliases ordered by primary name, then alias.
func (s *Store) List(ctx context.Context) ([]Alias, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, primary_name, alias, created_at, usage_count
		FROM merchant_aliases ORDER BY primary_name, alias`)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFile, errors.CodeAliasStore, "cannot list aliases")
	}
	defer rows.Close()

	var out []Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.ID, &a.PrimaryName, &a.Name, &a.CreatedAt, &a.UsageCount); err != nil {
			return nil, errors.Wrap(err, errors.CategoryFile, errors.CodeAliasStore, "cannot scan alias row")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryFile, errors.CodeAliasStore, "cannot list aliases")
	}
	return out, nil
}

// Delete removes an alias. Deleting an unknown alias is an error so typos
// surface instead of silently succeeding.
func (s *Store) Delete(ctx context.Context, alias string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM merchant_aliases WHERE alias = ? COLLATE NOCASE`, strings.TrimSpace(alias))
	if err != nil {
		return errors.Wrap(err, errors.CategoryFile, errors.CodeAliasStore, "cannot delete alias")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryFile, errors.CodeAliasStore, "cannot delete alias")
	}
	if n == 0 {
		return errors.New(errors.CategoryFile, errors.CodeAliasStore, "alias not found").
			WithContext("alias", alias)
	}
	return nil
}

// SimilarMatch is one candidate from FindSimilar.
type SimilarMatch struct {
	Alias      Alias
	Similarity float64
}

// FindSimilar returns stored aliases whose name or primary name resembles
// the query, ordered by descending similarity. It exists to help users
// discover which alias to add; the matching engine never calls it.
func (s *Store) FindSimilar(ctx context.Context, query string, threshold float64) ([]SimilarMatch, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var out []SimilarMatch
	for _, a := range all {
		sim := stringSimilarity(q, strings.ToLower(a.Name))
		if p := stringSimilarity(q, strings.ToLower(a.PrimaryName)); p > sim {
			sim = p
		}
		if sim >= threshold {
			out = append(out, SimilarMatch{Alias: a, Similarity: sim})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	return out, nil
}

func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return 1.0 - float64(distance)/float64(maxLen)
}
