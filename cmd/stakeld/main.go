package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stakeledger/cmd/internal/passphrase"
	"stakeledger/config"
	"stakeledger/core"
	"stakeledger/core/events"
	"stakeledger/indexer"
	"stakeledger/native/staking"
	"stakeledger/observability/logging"
	telemetry "stakeledger/observability/otel"
	"stakeledger/rpc"
	"stakeledger/storage"
)

const (
	operatorPassEnv = "STAKELEDGER_OPERATOR_PASS"
	genesisPathEnv  = "STAKELEDGER_GENESIS"
	envNameEnv      = "STAKELEDGER_ENV"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides STAKELEDGER_GENESIS and config GenesisFile)")
	allowMigrateFlag := flag.Bool("allow-migrate", false, "Allow starting with a mismatched state schema (manual migrations only)")
	flag.Parse()

	if err := run(*configFile, *genesisFlag, *allowMigrateFlag); err != nil {
		slog.Error("stakeld exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configFile, genesisFlag string, allowMigrate bool) error {
	passSource := passphrase.NewSource(operatorPassEnv, "operator keystore")
	cfg, err := config.Load(configFile, config.WithKeystorePassphraseSource(passSource.Get))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := strings.TrimSpace(cfg.Log.Env)
	if value := strings.TrimSpace(os.Getenv(envNameEnv)); value != "" {
		env = value
	}
	logger := logging.SetupWithOptions(logging.Options{
		Service:    "stakeld",
		Env:        env,
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "stakeld",
		Environment: env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("initialise telemetry: %w", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	admin, err := cfg.AdminAddress()
	if err != nil {
		return err
	}
	genesisPath := resolveGenesisPath(genesisFlag, cfg.GenesisFile, os.LookupEnv)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	node, err := core.NewNode(db, core.Options{
		ChainID:        cfg.ChainID,
		Admin:          admin,
		RecordDeposit:  cfg.Staking.RecordDeposit,
		AccountDeposit: cfg.Staking.AccountDeposit,
		GenesisPath:    genesisPath,
		AllowMigrate:   allowMigrate || cfg.AllowMigrate,
		Paused:         pausedModules(cfg.Staking),
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	var eventSource rpc.EventSource
	if dsn := strings.TrimSpace(cfg.Indexer.DSN); dsn != "" {
		store, err := indexer.Open(dsn)
		if err != nil {
			return fmt.Errorf("open event index: %w", err)
		}
		defer store.Close()
		store.SetLogger(logger)
		node.SetEmitter(events.Fanout{store})
		eventSource = store
	} else {
		logger.Warn("event index disabled; stake_listEvents will be unavailable")
	}

	server := rpc.NewServer(node, eventSource, rpc.ServerConfig{
		AuthToken:          cfg.RPC.AuthToken,
		RateLimitPerSecond: cfg.RPC.RateLimitPerSecond,
		RateLimitBurst:     cfg.RPC.RateLimitBurst,
		MaxBodyBytes:       cfg.RPC.MaxBodyBytes,
		ReadTimeout:        time.Duration(cfg.RPC.ReadTimeoutSecs) * time.Second,
		WriteTimeout:       time.Duration(cfg.RPC.WriteTimeoutSecs) * time.Second,
	}, logger)
	if strings.TrimSpace(cfg.RPC.AuthToken) == "" {
		logger.Warn("no RPC auth token configured; stake_sendTransaction is disabled",
			slog.String("env", cfg.RPC.AuthTokenEnv))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rpcErrCh := make(chan error, 1)
	go func() {
		rpcErrCh <- server.Start(cfg.RPCAddress)
		close(rpcErrCh)
	}()
	if err := waitForRPCStartup(cfg.RPCAddress, rpcErrCh, 5*time.Second); err != nil {
		return fmt.Errorf("rpc startup: %w", err)
	}

	logger.Info("stake ledger running",
		slog.String("rpc", cfg.RPCAddress),
		slog.Uint64("chain_id", node.ChainID()),
		slog.Uint64("height", node.Height()),
		slog.String("state_root", node.StateRoot().Hex()))

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err, ok := <-rpcErrCh:
		if ok && err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("rpc server terminated: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("rpc shutdown", slog.Any("error", err))
	}
	return nil
}

func pausedModules(cfg config.StakingConfig) []string {
	if cfg.Paused {
		return []string{staking.ModuleName}
	}
	return nil
}

type envLookupFunc func(string) (string, bool)

// resolveGenesisPath picks the CLI flag, then the environment, then the
// config file. An empty result starts a bare ledger.
func resolveGenesisPath(cliPath, cfgPath string, lookup envLookupFunc) string {
	if trimmed := strings.TrimSpace(cliPath); trimmed != "" {
		return trimmed
	}
	if lookup != nil {
		if value, ok := lookup(genesisPathEnv); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return strings.TrimSpace(cfgPath)
}

func waitForRPCStartup(addr string, errCh <-chan error, timeout time.Duration) error {
	dialAddr := dialAddressFor(addr)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err, ok := <-errCh:
			return exitedEarly(err, ok)
		default:
		}

		conn, err := net.DialTimeout("tcp", dialAddr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case err, ok := <-errCh:
			return exitedEarly(err, ok)
		case <-ticker.C:
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for RPC server to start on %s", addr)
		}
	}
}

func exitedEarly(err error, ok bool) error {
	if ok && err != nil {
		return err
	}
	return fmt.Errorf("RPC server exited before startup confirmation")
}

func dialAddressFor(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
