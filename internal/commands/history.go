package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/quidbooks/quidbooks/internal/config"
	"github.com/quidbooks/quidbooks/internal/domain"
	"github.com/quidbooks/quidbooks/internal/history"
	"github.com/quidbooks/quidbooks/internal/ui"
)

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List committed import batches",
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

			svc, err := history.NewService(s, cfg.Review.UndoWindowDays, time.Now)
			if err != nil {
				return err
			}
			items, err := svc.List(cmd.Context(), business)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				ui.Info("no imports yet for business %q", business)
				return nil
			}

			ui.Header("Import history")
			for i := range items {
				printBatch(svc, &items[i])
			}
			return nil
		},
	}
}

func printBatch(svc *history.Service, item *domain.ImportHistoryItem) {
	ui.Info("%s  %s  %s (%s)", item.ID, item.CommittedAt.Format("2006-01-02 15:04"),
		item.SourceFile, item.BankFormat)
	ui.Info("  %d income (%s), %d expenses (%s)",
		item.IncomeCount, item.IncomeTotal.StringFixed(2),
		item.ExpenseCount, item.ExpenseTotal.StringFixed(2))

	switch item.Status {
	case domain.BatchUndone:
		ui.Info("  undone %s", item.UndoneAt.Format("2006-01-02"))
	case domain.BatchLocked:
		ui.Info("  locked: used in tax submission %s", item.TaxSubmissionUsedAt.Format("2006-01-02"))
	default:
		if ok, reason := svc.CanUndo(item); ok {
			ui.Info("  undoable")
		} else {
			ui.Info("  not undoable: %s", reason)
		}
	}
}
