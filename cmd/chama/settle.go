package main

import (
	"errors"
	"fmt"
	"io"

	"chama_admin/internal/app"
	"chama_admin/internal/domain/calendar"

	"github.com/spf13/cobra"
)

func settleCmd() *cobra.Command {
	var endID string

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Settle expired cycles and print the cycle board",
		Long: `Settle every active cycle whose end date has passed, then print all cycles.
With --end, settle the given cycle now regardless of its end date.

Examples:
  chama settle
  chama settle --end 6f1c2d9e-0000-4000-8000-000000000000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer st.close()

			bot, err := newBot(cfg, false)
			if err != nil {
				return err
			}
			svc := newServices(cfg, st, notifierFor(cfg, bot))
			out := cmd.OutOrStdout()

			if endID != "" {
				ended, err := svc.cycles.EndCycle(cmd.Context(), cfg.AdminUserID, endID)
				switch {
				case errors.Is(err, app.ErrCycleAlreadyEnded):
					fmt.Fprintf(out, "%s (total %s %s)\n", app.Message(err), ended.TotalSavings.StringFixed(2), cfg.Currency)
				case err != nil:
					return errors.New(app.Message(err))
				default:
					fmt.Fprintf(out, "Ended %q with total %s %s\n", ended.Name, ended.TotalSavings.StringFixed(2), cfg.Currency)
				}
			}

			board, err := svc.cycles.RefreshAndDetectExpired(cmd.Context())
			if err != nil {
				return errors.New(app.Message(err))
			}
			printBoard(out, board, cfg.Currency)
			return nil
		},
	}

	cmd.Flags().StringVar(&endID, "end", "", "ID of an active cycle to end now")
	return cmd
}

func printBoard(out io.Writer, board *app.Board, currency string) {
	for _, msg := range board.Messages {
		fmt.Fprintln(out, msg)
	}
	if len(board.Cycles) == 0 {
		fmt.Fprintln(out, "No cycles yet.")
		return
	}
	for _, c := range board.Cycles {
		fmt.Fprintf(out, "%-36s  %-7s  %s..%s  %s %s  %s\n",
			c.ID, c.Status, calendar.Format(c.StartDate), calendar.Format(c.EndDate),
			c.TotalSavings.StringFixed(2), currency, c.Name)
	}
	if board.Active != nil && board.Progress != nil {
		fmt.Fprintf(out, "Active: %s, %.0f%% complete, %d day(s) remaining\n",
			board.Active.Name, board.Progress.PercentComplete, board.Progress.DaysRemaining)
	}
}
