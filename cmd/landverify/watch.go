package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/services/event"
	"github.com/landverify/client-sdk-go/utils"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		op       string
		from     uint64
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [app-id]",
		Short: "Stream new verifications and transfers from the index node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := a.appIDArg(args)
			if err != nil {
				return err
			}
			ledger, err := a.ledger()
			if err != nil {
				return err
			}
			events := event.NewService(a.stateFor(ledger),
				event.WithRoundSource(ledger),
				event.WithPollInterval(interval),
				event.WithLogger(client.NewZapLogger(a.logger)))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, err := events.SubscribeEvents(ctx, &event.EventFilters{AppID: appID, Operation: op, AfterRound: from})
			if err != nil {
				return err
			}
			if !a.jsonMode {
				dimColor.Printf("watching application %d (Ctrl-C to stop)\n", appID)
			}
			for ev := range ch {
				if a.jsonMode {
					if err := printJSON(ev); err != nil {
						return err
					}
					continue
				}
				switch ev.Operation {
				case utils.OpSubmitVerification:
					fmt.Printf("%-10d %s  verified %s\n", ev.Round, utils.EllipseAddress(ev.TxID, 6), ev.DocumentHash)
				case utils.OpTransferLandToken:
					fmt.Printf("%-10d %s  token %d %s → %s\n", ev.Round, utils.EllipseAddress(ev.TxID, 6), ev.TokenID,
						utils.EllipseAddress(ev.Seller, 4), utils.EllipseAddress(ev.Buyer, 4))
				default:
					fmt.Printf("%-10d %s  %s\n", ev.Round, utils.EllipseAddress(ev.TxID, 6), ev.Operation)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&op, "op", "", "only show one operation (submit_verification or transfer_land_token)")
	cmd.Flags().Uint64Var(&from, "from-round", 0, "replay events confirmed after this round")
	cmd.Flags().DurationVar(&interval, "interval", 4*time.Second, "poll interval")
	return cmd
}
