package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"doublepost/cmd/doublepost/config"
	"doublepost/internal/aliases"
	"doublepost/internal/matcher"
	"doublepost/internal/models"
	"doublepost/internal/normalize"
	"doublepost/internal/reporter"
	"doublepost/pkg/logger"
)

// Flags for the reconcile command
var (
	bankFile        string
	personalFile    string
	minConfidence   float64
	dateWindowDays  int
	amountTolerance float64
	outputFormat    string
	outputFile      string
	autoAcceptHigh  bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a bank statement against personal records",
	Long: `Reconcile compares bank statement transactions with personal records to
find matches, bank charges missing from the personal side, and personal
entries the bank never saw.

Every bank transaction gets at most one personal counterpart. Suggestions
are tiered by confidence: high (>= 0.9), medium (>= 0.5), low (>= 0.1).
High-tier suggestions are accepted automatically unless --auto-accept-high
is disabled; the rest stay pending for review.

Examples:
  # Basic reconciliation
  doublepost reconcile --bank-file statement.csv --personal-file records.csv

  # With a merchant alias database and JSON output
  doublepost reconcile -b statement.csv -p records.csv \
    --aliases-db aliases.db --output-format json --output-file report.json

  # Stricter matching
  doublepost reconcile -b statement.csv -p records.csv \
    --min-confidence 0.5 --date-window 1`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&bankFile, "bank-file", "b", "", "path to the bank statement CSV file (required)")
	reconcileCmd.Flags().StringVarP(&personalFile, "personal-file", "p", "", "path to the personal records CSV file (required)")

	// Matching configuration flags
	reconcileCmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.1, "confidence floor for suggestions (0.0-1.0)")
	reconcileCmd.Flags().IntVar(&dateWindowDays, "date-window", 3, "date window in days for fuzzy matching")
	reconcileCmd.Flags().Float64Var(&amountTolerance, "amount-tolerance", 0.01, "relative amount tolerance for fuzzy matching")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	reconcileCmd.Flags().BoolVar(&autoAcceptHigh, "auto-accept-high", true, "accept high-tier matches automatically")

	reconcileCmd.MarkFlagRequired("bank-file")
	reconcileCmd.MarkFlagRequired("personal-file")

	// Bind flags to viper
	viper.BindPFlag("bank-file", reconcileCmd.Flags().Lookup("bank-file"))
	viper.BindPFlag("personal-file", reconcileCmd.Flags().Lookup("personal-file"))
	viper.BindPFlag("min-confidence", reconcileCmd.Flags().Lookup("min-confidence"))
	viper.BindPFlag("date-window", reconcileCmd.Flags().Lookup("date-window"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("auto-accept-high", reconcileCmd.Flags().Lookup("auto-accept-high"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file and env)
	bankFile = viper.GetString("bank-file")
	personalFile = viper.GetString("personal-file")
	minConfidence = viper.GetFloat64("min-confidence")
	dateWindowDays = viper.GetInt("date-window")
	amountTolerance = viper.GetFloat64("amount-tolerance")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	autoAcceptHigh = viper.GetBool("auto-accept-high")

	if bankFile == "" {
		return fmt.Errorf("bank-file is required")
	}
	if personalFile == "" {
		return fmt.Errorf("personal-file is required")
	}

	// Run parameters are validated before any file is touched.
	if err := config.CreateMatcherConfig(minConfidence, dateWindowDays, amountTolerance).Validate(); err != nil {
		return err
	}
	if _, err := reporter.ParseFormat(outputFormat); err != nil {
		return err
	}

	if err := validateFileExists(bankFile, "bank file"); err != nil {
		return err
	}
	if err := validateFileExists(personalFile, "personal file"); err != nil {
		return err
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := logger.GetGlobalLogger()

	var lookup normalize.AliasLookup
	if dbPath := viper.GetString("aliases-db"); dbPath != "" {
		store, err := aliases.Open(dbPath, log)
		if err != nil {
			return err
		}
		defer store.Close()
		lookup = store
	}

	bank, personal, loadErrors, err := config.LoadInputs(ctx, bankFile, personalFile, log)
	if err != nil {
		return err
	}

	engine, err := matcher.NewEngine(
		config.CreateMatcherConfig(minConfidence, dateWindowDays, amountTolerance), lookup, log)
	if err != nil {
		return err
	}

	var result *matcher.RunResult
	err = logger.TimedOperation("reconcile", log, func() error {
		var runErr error
		result, runErr = engine.Reconcile(ctx, bank, personal)
		return runErr
	})
	if err != nil {
		return err
	}

	if autoAcceptHigh {
		accepted := 0
		for _, mr := range result.Results {
			if mr.Matched() && mr.Tier == models.TierHigh {
				mr.Status = models.StatusAccepted
				accepted++
			}
		}
		if accepted > 0 {
			log.WithField("count", accepted).Info("Auto-accepted high confidence matches")
		}
	}

	format, _ := reporter.ParseFormat(outputFormat)
	report := &reporter.Report{
		GeneratedAt:  time.Now().UTC(),
		BankFile:     bankFile,
		PersonalFile: personalFile,
		Run:          result,
		LoadErrors:   loadErrors,
	}

	output := os.Stdout
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	return reporter.NewReporter(format, log).Generate(output, report)
}
