package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-ledger-api/internal/bootstrap"
	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/pkg/config"
	"github.com/noah-isme/roster-ledger-api/pkg/logger"
)

type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	cmd := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Offline maintenance for the roster ledger",
		Long: "Offline maintenance for the roster ledger. Ledger commands lock the\n" +
			"data directory and fail while roster-api has the ledger open.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return err
			}
			e.cfg, e.logger = cfg, logr
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}
	cmd.AddCommand(
		newImportCmd(e),
		newExportCmd(e),
		newVerifyCmd(e),
		newUserCmd(e),
	)
	return cmd
}

func (e *env) openStore(ctx context.Context) (*ledger.Store, error) {
	return bootstrap.OpenStore(ctx, e.cfg, e.logger)
}
