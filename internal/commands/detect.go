package commands

import (
	"github.com/spf13/cobra"

	"github.com/quidbooks/quidbooks/internal/bankformat"
	"github.com/quidbooks/quidbooks/internal/ui"
)

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <statement.csv>",
		Short: "Detect which bank produced a CSV statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			headers, records, err := readStatement(args[0])
			if err != nil {
				return err
			}

			registry, err := bankformat.LoadEmbedded()
			if err != nil {
				return err
			}

			profile, id := registry.Detect(headers)
			if profile == nil {
				ui.Warning("no known bank format matches (%d data rows, headers: %v)", len(records), headers)
				ui.Info("run 'quidbooks import' with manual column flags")
				return nil
			}

			ui.Success("detected %s (%s)", profile.Name, id)
			m := profile.DefaultMapping()
			ui.Info("  date column:        %s (format %s)", m.DateColumn(), m.DateFormat())
			ui.Info("  description column: %s", m.DescriptionColumn())
			if m.HasSeparateAmountColumns() {
				ui.Info("  amount columns:     %s (in) / %s (out)", m.IncomeColumn(), m.ExpenseColumn())
			} else {
				ui.Info("  amount column:      %s (signed)", m.AmountColumn())
			}
			ui.Info("  data rows:          %d", len(records))
			return nil
		},
	}
}
