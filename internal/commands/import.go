package commands

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/quidbooks/quidbooks/internal/bankformat"
	"github.com/quidbooks/quidbooks/internal/config"
	"github.com/quidbooks/quidbooks/internal/csvparse"
	"github.com/quidbooks/quidbooks/internal/domain"
	"github.com/quidbooks/quidbooks/internal/mapping"
	"github.com/quidbooks/quidbooks/internal/match"
	"github.com/quidbooks/quidbooks/internal/review"
	"github.com/quidbooks/quidbooks/internal/rules"
	"github.com/quidbooks/quidbooks/internal/ui"
	"github.com/quidbooks/quidbooks/internal/wizard"
)

func newImportCommand() *cobra.Command {
	var (
		dryRun     bool
		skipDups   bool
		rulesPath  string
		dateCol    string
		descCol    string
		amountCol  string
		incomeCol  string
		expenseCol string
		dateFormat string
	)

	cmd := &cobra.Command{
		Use:   "import <statement.csv>",
		Short: "Import a bank statement into the ledger",
		Long: `Runs the full import flow over a CSV statement: format detection,
parsing, rule-based categorization, duplicate matching against the existing
ledger, and an atomic commit. Exact duplicates are skipped; likely
duplicates are flagged and imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			business, _ := cmd.Flags().GetString("business")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			headers, records, err := readStatement(args[0])
			if err != nil {
				return err
			}

			registry, err := bankformat.LoadEmbedded()
			if err != nil {
				return err
			}
			w, err := wizard.New(registry)
			if err != nil {
				return err
			}

			ui.Step(1, wizard.StepCount, "detecting bank format")
			formatID := w.SelectFile(filepath.Base(args[0]), headers)
			if formatID == bankformat.FormatUnknown {
				ui.Warning("unknown bank format, using manual column mapping")
			} else {
				ui.Success("detected %s", formatID)
			}
			if !w.GoNext() {
				return fmt.Errorf("statement has no usable header row")
			}

			ui.Step(2, wizard.StepCount, "confirming column mapping")
			applyMappingFlags(w, dateCol, descCol, amountCol, incomeCol, expenseCol, dateFormat)
			if !w.GoNext() {
				return fmt.Errorf("column mapping is incomplete: set --date-col, --description-col, --date-format and either --amount-col or --income-col with --expense-col")
			}

			ui.Step(3, wizard.StepCount, "parsing and classifying rows")
			rows, summary, err := parseRows(headers, records, w.Mapping())
			if err != nil {
				return err
			}
			ui.Info("parsed %d of %d rows (%d errors)", summary.Parsed, summary.Total, summary.Errored)
			for _, r := range rows {
				if r.Status == domain.RowStatusParseError {
					ui.Warning("line %d: %s", r.SourceLine, r.ParseErr)
				}
			}

			engine, err := loadRules(rulesPath)
			if err != nil {
				return err
			}
			engine.Categorize(rows)

			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			snapshot, err := s.Snapshot(cmd.Context(), business)
			if err != nil {
				return err
			}
			matcher, err := match.NewMatcher(match.Policy{
				DateToleranceDays: cfg.Matching.DateToleranceDays,
				SimilarityCutoff:  cfg.Matching.SimilarityCutoff,
			})
			if err != nil {
				return err
			}
			candidates := matcher.MatchAll(rows, match.NewSnapshot(snapshot))

			session, err := review.NewSession(business, filepath.Base(args[0]), formatID, candidates)
			if err != nil {
				return err
			}
			w.SetSession(session)
			if !skipDups {
				// Operator vouches for the duplicates; import them too.
				for _, c := range candidates {
					if c.Type == domain.MatchExact {
						if err := session.SetAction(c.Row.ID, domain.ActionImport); err != nil {
							return err
						}
					}
				}
			}
			if !w.GoNext() {
				return fmt.Errorf("cannot reach the confirmation step")
			}

			ui.Step(4, wizard.StepCount, "confirming import")
			bands := rules.BandThresholds{
				High:   cfg.Review.ConfidenceHigh,
				Medium: cfg.Review.ConfidenceMedium,
			}
			printSummary(session, bands)

			if dryRun {
				ui.Info("dry run, nothing committed")
				return nil
			}

			if err := w.BeginImport(); err != nil {
				return err
			}
			defer w.EndImport()

			item, err := session.Commit(cmd.Context(), s, time.Now().UTC())
			if err != nil {
				return err
			}
			ui.Success("committed batch %s (%d income, %d expenses)",
				item.ID, item.IncomeCount, item.ExpenseCount)
			ui.Info("undo with: quidbooks undo %s", item.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify and summarize without committing")
	cmd.Flags().BoolVar(&skipDups, "skip-duplicates", true, "skip rows that exactly match existing ledger records")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "categorization rules file (defaults to the built-in ruleset)")
	cmd.Flags().StringVar(&dateCol, "date-col", "", "date column for unrecognized formats")
	cmd.Flags().StringVar(&descCol, "description-col", "", "description column for unrecognized formats")
	cmd.Flags().StringVar(&amountCol, "amount-col", "", "signed amount column for unrecognized formats")
	cmd.Flags().StringVar(&incomeCol, "income-col", "", "money-in column for unrecognized formats")
	cmd.Flags().StringVar(&expenseCol, "expense-col", "", "money-out column for unrecognized formats")
	cmd.Flags().StringVar(&dateFormat, "date-format", "", "Go date layout, e.g. 02/01/2006")

	return cmd
}

// applyMappingFlags overlays manual column flags on the wizard's mapping.
// Flags the operator did not set leave the detected values alone.
func applyMappingFlags(w *wizard.Wizard, dateCol, descCol, amountCol, incomeCol, expenseCol, dateFormat string) {
	m := w.Mapping()
	if dateCol != "" {
		m.SetDateColumn(dateCol)
	}
	if descCol != "" {
		m.SetDescriptionColumn(descCol)
	}
	if amountCol != "" {
		m.SetAmountColumn(amountCol)
	}
	if incomeCol != "" && expenseCol != "" {
		m.SetSeparateAmountColumns(incomeCol, expenseCol)
	}
	if dateFormat != "" {
		m.SetDateFormat(dateFormat)
	}
}

// parseRows fans large statements across workers; output order matches the
// file either way.
func parseRows(headers []string, records [][]string, m *mapping.ColumnMapping) ([]domain.ImportedRow, csvparse.Summary, error) {
	if len(records) >= 1000 {
		return csvparse.ParseConcurrent(headers, records, m, runtime.NumCPU())
	}
	return csvparse.Parse(headers, records, m)
}

func loadRules(path string) (*rules.Engine, error) {
	if path == "" {
		return rules.LoadEmbedded()
	}
	return rules.LoadFromFile(path)
}

func printSummary(session *review.Session, bands rules.BandThresholds) {
	candidates := session.Candidates()
	sum := session.Summarize()
	ui.Info("income:   %d rows, %s", sum.IncomeCount, sum.IncomeTotal.StringFixed(2))
	ui.Info("expenses: %d rows, %s", sum.ExpenseCount, sum.ExpenseTotal.StringFixed(2))
	if sum.Skipped > 0 {
		ui.Info("skipped:  %d exact duplicates", sum.Skipped)
	}

	likely := 0
	for _, c := range candidates {
		if c.Type == domain.MatchLikely {
			likely++
		}
	}
	if likely > 0 {
		ui.Warning("%d rows look similar to existing records and will import anyway", likely)
	}

	uncategorized, lowConfidence := 0, 0
	for _, c := range candidates {
		if c.Action != domain.ActionImport {
			continue
		}
		if c.Row.Category == "" {
			uncategorized++
		} else if bands.Band(c.Row.Confidence) == rules.BandLow {
			lowConfidence++
		}
	}
	if uncategorized > 0 {
		ui.Warning("%d rows are uncategorized", uncategorized)
	}
	if lowConfidence > 0 {
		ui.Warning("%d rows were categorized with low confidence", lowConfidence)
	}
}
