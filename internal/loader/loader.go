// Package loader reads transaction CSV files: it resolves column headers,
// infers per-file date conventions, and normalizes rows into transactions,
// collecting per-row failures without aborting the load.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"doublepost/internal/models"
	"doublepost/internal/normalize"
	"doublepost/pkg/errors"
	"doublepost/pkg/logger"
)

// dateSampleLimit caps how many rows feed date-order inference.
const dateSampleLimit = 100

// Stats describes the outcome of one file load.
type Stats struct {
	TotalRows int
	Loaded    int
	Failed    int

	// Errors holds the per-row normalization errors. The load as a whole
	// succeeds as long as the file itself is readable.
	Errors []error
}

// Result is the output of loading one CSV file.
type Result struct {
	Transactions []*models.Transaction
	Mapping      *models.ColumnMapping
	Hints        normalize.DateHints
	Stats        Stats
}

// Loader reads and normalizes transaction CSV files.
type Loader struct {
	log logger.Logger
}

// NewLoader creates a loader.
func NewLoader(log logger.Logger) *Loader {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Loader{log: log.WithComponent("loader")}
}

// LoadFile loads a CSV file from disk.
func (l *Loader) LoadFile(ctx context.Context, path string, source models.Source) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CategoryFile, errors.CodeFileNotFound,
				fmt.Sprintf("file not found: %s", path)).
				WithSuggestion("check the file path")
		}
		return nil, errors.Wrap(err, errors.CategoryFile, errors.CodeFileAccess,
			fmt.Sprintf("cannot open %s", path))
	}
	defer f.Close()
	return l.Load(ctx, f, source, path)
}

// Load loads CSV content from a reader. name is used in diagnostics only.
func (l *Loader) Load(ctx context.Context, r io.Reader, source models.Source, name string) (*Result, error) {
	log := l.log.WithFields(logger.Fields{"file": name, "source": source})

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryParse, errors.CodeMalformedCSV,
			fmt.Sprintf("malformed CSV in %s", name))
	}
	if len(records) == 0 {
		return nil, errors.NewParseError(errors.CodeMalformedCSV,
			fmt.Sprintf("%s is empty, expected a header row", name))
	}
	if err := validateEncoding(records); err != nil {
		return nil, errors.Wrap(err, errors.CategoryParse, errors.CodeInvalidEncoding,
			fmt.Sprintf("%s is not valid UTF-8", name)).
			WithSuggestion("re-export the file as UTF-8")
	}

	headers := records[0]
	mapping, err := ResolveColumns(headers)
	if err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{
		"date_column":        mapping.Date,
		"amount_column":      mapping.Amount,
		"description_column": mapping.Description,
		"split_amount":       mapping.SplitAmount(),
	}).Debug("Resolved CSV columns")

	index := headerIndex(headers)
	rows := records[1:]

	hints := normalize.InferDateHints(dateSamples(rows, index[mapping.Date]))

	result := &Result{
		Transactions: make([]*models.Transaction, 0, len(rows)),
		Mapping:      mapping,
		Hints:        hints,
	}
	for i, record := range rows {
		if i%256 == 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.CategoryFile, "LOAD_CANCELLED",
					fmt.Sprintf("loading %s cancelled", name))
			default:
			}
		}

		line := i + 2
		result.Stats.TotalRows++

		row := normalize.Row{
			Date:        cell(record, index, mapping.Date),
			Amount:      cell(record, index, mapping.Amount),
			Debit:       cell(record, index, mapping.Debit),
			Credit:      cell(record, index, mapping.Credit),
			Description: cell(record, index, mapping.Description),
			Reconciled:  cell(record, index, mapping.Reconciled),
			Line:        line,
			Source:      source,
		}
		tx, err := normalize.NormalizeRow(row, hints)
		if err != nil {
			result.Stats.Failed++
			result.Stats.Errors = append(result.Stats.Errors, err)
			log.WithError(err).WithField("line", line).Debug("Skipping unparseable row")
			continue
		}
		result.Stats.Loaded++
		result.Transactions = append(result.Transactions, tx)
	}

	log.WithFields(logger.Fields{
		"rows":   result.Stats.TotalRows,
		"loaded": result.Stats.Loaded,
		"failed": result.Stats.Failed,
	}).Info("Loaded transaction file")
	return result, nil
}

func headerIndex(headers []string) map[string]int {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, exists := index[h]; !exists {
			index[h] = i
		}
	}
	return index
}

func cell(record []string, index map[string]int, header string) string {
	if header == "" {
		return ""
	}
	i, ok := index[header]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func dateSamples(rows [][]string, dateCol int) []string {
	samples := make([]string, 0, dateSampleLimit)
	for _, record := range rows {
		if len(samples) == dateSampleLimit {
			break
		}
		if dateCol < len(record) {
			samples = append(samples, record[dateCol])
		}
	}
	return samples
}

func validateEncoding(records [][]string) error {
	checked := 0
	for _, record := range records {
		for _, field := range record {
			if !utf8.ValidString(field) {
				return fmt.Errorf("invalid UTF-8 sequence")
			}
		}
		checked++
		if checked >= dateSampleLimit {
			break
		}
	}
	return nil
}
