// Package config loads and validates tracker configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/domain"
	"github.com/fele-scratch/CEX-WALLET-TRACKER/internal/ranges"
)

// Config holds all application configuration.
type Config struct {
	// Solana endpoints
	RPCEndpoint string
	WSEndpoint  string

	// Watched wallets, parsed from WALLET_<i>_* variable groups
	Wallets []domain.WalletWatch

	// Detection
	DedupSignatures bool

	// WebSocket reconnect policy
	WSReconnectBaseMs      int
	WSMaxReconnectAttempts int

	// Storage (both optional; empty disables)
	DatabaseDSN   string
	ClickhouseDSN string

	// Alerts
	AlertMode string // log

	// Metrics/Health
	MetricsPort int

	// Shutdown
	ShutdownTimeoutSec int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		RPCEndpoint:            getEnv("RPC_ENDPOINT", ""),
		WSEndpoint:             getEnv("WS_ENDPOINT", ""),
		DedupSignatures:        getEnvBool("DEDUP_SIGNATURES", false),
		WSReconnectBaseMs:      getEnvInt("WS_RECONNECT_BASE_MS", 3000),
		WSMaxReconnectAttempts: getEnvInt("WS_MAX_RECONNECT_ATTEMPTS", 10),
		DatabaseDSN:            getEnv("DATABASE_DSN", ""),
		ClickhouseDSN:          getEnv("CLICKHOUSE_DSN", ""),
		AlertMode:              getEnv("ALERT_MODE", "log"),
		MetricsPort:            getEnvInt("METRICS_PORT", 9090),
		ShutdownTimeoutSec:     getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10),
	}

	wallets, err := loadWallets()
	if err != nil {
		return nil, err
	}
	cfg.Wallets = wallets

	if cfg.WSEndpoint == "" {
		cfg.WSEndpoint = deriveWSEndpoint(cfg.RPCEndpoint)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadWallets reads indexed WALLET_<i>_LABEL/ADDRESS/RANGES groups starting
// at 1 and stops at the first index with no variables set. A partially set
// group is a configuration error, not the end of the list.
func loadWallets() ([]domain.WalletWatch, error) {
	var wallets []domain.WalletWatch

	for i := 1; ; i++ {
		label := getEnv(fmt.Sprintf("WALLET_%d_LABEL", i), "")
		address := getEnv(fmt.Sprintf("WALLET_%d_ADDRESS", i), "")
		rangeSpec := getEnv(fmt.Sprintf("WALLET_%d_RANGES", i), "")

		if label == "" && address == "" && rangeSpec == "" {
			break
		}
		if address == "" || rangeSpec == "" {
			return nil, fmt.Errorf("wallet group %d is incomplete: WALLET_%d_ADDRESS and WALLET_%d_RANGES are required", i, i, i)
		}
		if label == "" {
			label = fmt.Sprintf("wallet-%d", i)
		}

		if err := domain.ValidateAddress(address); err != nil {
			return nil, fmt.Errorf("WALLET_%d_ADDRESS: %w", i, err)
		}

		rs, err := ranges.Parse(rangeSpec)
		if err != nil {
			return nil, fmt.Errorf("WALLET_%d_RANGES: %w", i, err)
		}

		wallets = append(wallets, domain.WalletWatch{
			Label:   label,
			Address: address,
			Ranges:  rs,
		})
	}

	return wallets, nil
}

// deriveWSEndpoint converts an HTTP RPC endpoint into its WebSocket
// counterpart (http -> ws, https -> wss).
func deriveWSEndpoint(rpcEndpoint string) string {
	switch {
	case strings.HasPrefix(rpcEndpoint, "https://"):
		return "wss://" + strings.TrimPrefix(rpcEndpoint, "https://")
	case strings.HasPrefix(rpcEndpoint, "http://"):
		return "ws://" + strings.TrimPrefix(rpcEndpoint, "http://")
	default:
		return ""
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.RPCEndpoint == "" {
		return fmt.Errorf("RPC_ENDPOINT is required")
	}
	if c.WSEndpoint == "" {
		return fmt.Errorf("WS_ENDPOINT could not be derived from RPC_ENDPOINT %q; set it explicitly", c.RPCEndpoint)
	}
	if len(c.Wallets) == 0 {
		return fmt.Errorf("no wallets configured: set WALLET_1_LABEL, WALLET_1_ADDRESS and WALLET_1_RANGES")
	}
	if c.WSReconnectBaseMs <= 0 {
		return fmt.Errorf("WS_RECONNECT_BASE_MS must be positive, got %d", c.WSReconnectBaseMs)
	}
	if c.WSMaxReconnectAttempts <= 0 {
		return fmt.Errorf("WS_MAX_RECONNECT_ATTEMPTS must be positive, got %d", c.WSMaxReconnectAttempts)
	}
	if c.AlertMode != "log" {
		return fmt.Errorf("invalid ALERT_MODE: %s (valid values: log)", c.AlertMode)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
