package commands

import (
	"github.com/spf13/cobra"

	"github.com/quidbooks/quidbooks/internal/analyzer"
	"github.com/quidbooks/quidbooks/internal/config"
	"github.com/quidbooks/quidbooks/internal/domain"
	"github.com/quidbooks/quidbooks/internal/ui"
)

func newAnalyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Scan the ledger for reconciliation problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			business, _ := cmd.Flags().GetString("business")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.Snapshot(cmd.Context(), business)
			if err != nil {
				return err
			}

			a, err := analyzer.New(analyzer.Policy{
				DateGapDays:          cfg.Analyzer.DateGapDays,
				UncategorizedHighPct: cfg.Analyzer.UncategorizedHighPct,
			})
			if err != nil {
				return err
			}

			issues := a.Analyze(records)
			if len(issues) == 0 {
				ui.Success("no reconciliation issues in %d records", len(records))
				return nil
			}

			ui.Header("Reconciliation findings")
			for _, issue := range issues {
				printIssue(issue)
			}
			return nil
		},
	}
}

func printIssue(issue domain.ReconciliationIssue) {
	line := "%s: %s (%d affected)"
	switch issue.Severity {
	case domain.SeverityHigh:
		ui.Error(line, issue.Severity, issue.Category, issue.AffectedCount)
	case domain.SeverityMedium:
		ui.Warning(line, issue.Severity, issue.Category, issue.AffectedCount)
	default:
		ui.Info(line, issue.Severity, issue.Category, issue.AffectedCount)
	}
	for _, sample := range issue.Samples {
		ui.Info("    %s", sample)
	}
	ui.Info("    fix: %s", issue.Remediation)
}
