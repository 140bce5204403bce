package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/alerts"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/config"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/detector"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/observability"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/scrutiny"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/solana"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/storage"
	chstore "github.com/fele-scratch/CEX-WALLET-TRACKER/internal/storage/clickhouse"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/storage/memory"
	pgstore "github.com/fele-scratch/CEX-WALLET-TRACKER/internal/storage/postgres"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/stream"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}

	for _, w := range cfg.Wallets {
		entry := log.WithFields(logrus.Fields{
			"label":   w.Label,
			"address": w.Address,
			"ranges":  len(w.Ranges),
		})
		entry.Info("watching wallet")
		if !domain.IsOnCurve(w.Address) {
			// Exchange hot wallets are keypair-backed; an off-curve
			// address is probably a PDA pasted by mistake.
			entry.Warn("address is not on the ed25519 curve")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics and health server
	if cfg.MetricsPort > 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			addr := fmt.Sprintf(":%d", cfg.MetricsPort)
			log.WithField("addr", addr).Info("starting metrics server")
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server error")
			}
		}()
	}

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)

	store, storeCleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("storage setup failed")
	}
	defer storeCleanup()

	sender := alerts.NewLogSender(log)

	streamCfg := stream.DefaultConfig()
	streamCfg.BaseReconnectDelay = time.Duration(cfg.WSReconnectBaseMs) * time.Millisecond
	streamCfg.MaxReconnectAttempts = cfg.WSMaxReconnectAttempts

	mentions := make([]string, len(cfg.Wallets))
	for i, w := range cfg.Wallets {
		mentions[i] = w.Address
	}

	client := stream.New(cfg.WSEndpoint, mentions, streamCfg, log)
	client.Start(ctx)

	coord := detector.New(detector.Options{
		RPC:             rpc,
		Wallets:         cfg.Wallets,
		Validator:       scrutiny.New(rpc, log),
		Alerts:          sender,
		Store:           store,
		DedupSignatures: cfg.DedupSignatures,
		Log:             log,
	})

	coordDone := make(chan struct{})
	go func() {
		defer close(coordDone)
		coord.Run(ctx, client.Notifications())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-client.Fatal():
		log.WithError(err).Error("stream terminated")
		exitCode = 1
	}

	cancel()
	client.Close()

	// Bounded wait for in-flight notifications to drain.
	select {
	case <-coordDone:
	case <-time.After(time.Duration(cfg.ShutdownTimeoutSec) * time.Second):
		log.Warn("shutdown timed out waiting for in-flight work")
	}

	os.Exit(exitCode)
}

// buildStore selects the event store backend: PostgreSQL when DATABASE_DSN
// is set, ClickHouse when CLICKHOUSE_DSN is set, in-memory otherwise.
// Migrations run on startup for the database backends.
func buildStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (storage.EventStore, func(), error) {
	switch {
	case cfg.DatabaseDSN != "":
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pgstore.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		log.Info("using postgres event store")
		return pgstore.NewEventStore(pool), pool.Close, nil

	case cfg.ClickhouseDSN != "":
		conn, err := chstore.RunMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse setup: %w", err)
		}
		log.Info("using clickhouse event store")
		return chstore.NewEventStore(conn), func() { conn.Close() }, nil

	default:
		log.Info("using in-memory event store")
		return memory.NewEventStore(), func() {}, nil
	}
}
