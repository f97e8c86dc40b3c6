package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landverify/client-sdk-go/internal/api"
	"github.com/landverify/client-sdk-go/services/docauth"
	"github.com/landverify/client-sdk-go/services/property"
	"github.com/landverify/client-sdk-go/types"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and WebSocket API for the web interface",
		Long: `Serve the HTTP and WebSocket API for the web interface.

When the ledger configuration is incomplete the server still starts; workflow
endpoints answer with the configuration setup message until it is fixed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			deps := api.Deps{
				Logger:   a.logger,
				Registry: reg,
				Network:  a.v.GetString("LEDGER_NETWORK"),
			}

			if rest, err := a.rest(); err == nil {
				deps.Properties = property.NewService(rest)
				deps.DocAuth = docauth.NewService(rest)
			} else {
				a.logger.Warn("collaborator API disabled", zap.Error(err))
			}

			w, ledger, err := a.workflow()
			switch {
			case err == nil:
				deps.Workflow = w
				deps.Health = ledger.HealthCheck
				deps.State = a.stateFor(ledger)
			case types.IsConfigAbsence(err):
				a.logger.Warn("workflow disabled", zap.String("reason", types.Describe(err)), zap.Error(err))
				deps.ConfigErr = err
				if ledger, lerr := a.ledger(); lerr == nil {
					deps.State = a.stateFor(ledger)
					deps.Health = ledger.HealthCheck
				}
			default:
				return err
			}

			srv := api.NewServer(deps)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
