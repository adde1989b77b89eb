// @title PnL Proof Host API
// @version 1.0
// @description Orchestrates tag discovery, per-swap proving, and recursive aggregation for confidential AMM PnL proofs.
// @host localhost:8080
// @BasePath /api
// @schemes http https
// @accept json
// @produce json
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-pkgz/lgr"
	flags "github.com/jessevdk/go-flags"

	"github.com/lotpnl/pnl-proof-host/internal/api"
	"github.com/lotpnl/pnl-proof-host/internal/config"
	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/logging"
	"github.com/lotpnl/pnl-proof-host/internal/node"
	"github.com/lotpnl/pnl-proof-host/internal/prover"
	"github.com/lotpnl/pnl-proof-host/internal/service"
	"github.com/lotpnl/pnl-proof-host/internal/storage"
)

func main() {
	var cliFlags config.CLIFlags
	if _, err := flags.Parse(&cliFlags); err != nil {
		os.Exit(1)
	}

	cfg := config.Defaults()
	if _, statErr := os.Stat(cliFlags.ConfigPath); statErr == nil {
		loaded, err := config.Load(cliFlags.ConfigPath)
		if err != nil {
			log.Fatalf("failed to load configuration: %v", err)
		}
		cfg = *loaded
	}
	cfg = config.ApplyOverrides(cfg, cliFlags)

	logger, err := logging.NewWithConfig(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("failed to configure logging: %v", err)
	}

	ctx := context.Background()

	nodeClient, err := node.Dial(ctx, logger, node.Config{RPCURL: cfg.Node.RPCURL, Timeout: cfg.Node.Timeout})
	if err != nil {
		log.Fatalf("failed to dial node: %v", err)
	}
	defer nodeClient.Close()

	proverClient, err := prover.NewHTTPClient(prover.Config{BaseURL: cfg.Prover.BaseURL, Timeout: cfg.Prover.Timeout})
	if err != nil {
		log.Fatalf("failed to configure prover client: %v", err)
	}

	store, err := storage.Open(logger, storage.Config{Path: cfg.Storage.Path})
	if err != nil {
		log.Fatalf("failed to open run store: %v", err)
	}
	defer store.Close()

	svc := service.New(nodeClient, proverClient, store, logger)

	if cfg.Run.OracleAddr != "" {
		scheduler, err := buildScheduler(svc, cfg, logger)
		if err != nil {
			log.Fatalf("failed to configure scheduler: %v", err)
		}
		go scheduler.Start(ctx)
		defer scheduler.Stop()
	} else {
		logger.Logf("WARN no run.oracle_addr configured, scheduler disabled; trigger runs via the HTTP API")
	}

	server := api.NewServer(svc, store, logger, &cfg)
	if err := server.Start(); err != nil {
		logger.Logf("ERROR server failed to start: %v", err)
	}
}

// buildScheduler turns the YAML run configuration into a service.Scheduler,
// the one place in the binary that converts operator-facing hex strings
// into field.Element values.
func buildScheduler(svc *service.Service, cfg config.Config, logger lgr.L) (*service.Scheduler, error) {
	oracleAddr, err := field.ParseHex(cfg.Run.OracleAddr)
	if err != nil {
		return nil, err
	}
	assetsSlot, err := field.ParseHex(cfg.Run.AssetsSlot)
	if err != nil {
		return nil, err
	}

	params := service.RunParams{
		MaxIndices: cfg.Run.MaxIndices,
		BatchSize:  cfg.Run.BatchSize,
		OracleAddr: oracleAddr,
		AssetsSlot: assetsSlot,
	}

	interval := cfg.Run.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}

	return service.NewScheduler(svc, interval, params, service.DefaultRunIDFunc, logger), nil
}
