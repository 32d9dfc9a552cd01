package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/quidbooks/quidbooks/internal/config"
	"github.com/quidbooks/quidbooks/internal/history"
	"github.com/quidbooks/quidbooks/internal/ui"
)

func newUndoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "undo <batch-id>",
		Short: "Reverse a committed import batch",
		Args:  cobra.ExactArgs(1),
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

			err = svc.Undo(cmd.Context(), business, args[0])
			var denied *history.UndoDeniedError
			if errors.As(err, &denied) {
				ui.Error("cannot undo batch %s: %s", denied.BatchID, denied.Reason)
				return err
			}
			if err != nil {
				return err
			}

			ui.Success("batch %s undone, its records left the ledger", args[0])
			return nil
		},
	}
}

func newLockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lock <batch-id>",
		Short: "Mark a batch as used in a filed tax submission",
		Long: `Locks a batch permanently: once its figures have gone into a filed
return, undoing it would corrupt the audit trail. There is no unlock.`,
		Args: cobra.ExactArgs(1),
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
			if err := svc.MarkTaxSubmission(cmd.Context(), business, args[0]); err != nil {
				return err
			}

			ui.Success("batch %s locked", args[0])
			return nil
		},
	}
}
