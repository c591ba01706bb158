package main

import (
	"fmt"
	"time"

	"github.com/ns-gamming/ns-tracker-sub000/internal/notify"
	"github.com/spf13/cobra"
)

func newRemindCommand(a *app) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run one bill reminder sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			today := time.Now().UTC().Truncate(24 * time.Hour)
			if day != "" {
				d, err := time.Parse(dateLayout, day)
				if err != nil {
					return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", day)
				}
				today = d
			}

			ctx, cancel := a.context(5 * time.Minute)
			defer cancel()

			store, err := a.store(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var telegram notify.Sender
			if a.cfg.Telegram.BotToken != "" {
				tg, err := notify.NewTelegram(a.cfg.Telegram.BotToken)
				if err != nil {
					a.log.Warn().Err(err).Msg("Telegram disabled")
				} else {
					telegram = tg
				}
			}

			svc := notify.NewService(store, nil, telegram, a.log)
			sent, err := svc.SendBillReminders(ctx, store.Bills(), today)
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %d reminder(s) for %s.\n", sent, today.Format(dateLayout))
			return err
		},
	}

	cmd.Flags().StringVar(&day, "date", "", "sweep as of this date (YYYY-MM-DD, default today)")
	return cmd
}
