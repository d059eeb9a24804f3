// Package cli wires hord's cobra command surface to the core
// components: it loads configuration, constructs the RPC client,
// store, registry and pipeline, and dispatches to them. No domain
// logic lives here.
package cli

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ordhord/hord/internal/bitcoin"
	"github.com/ordhord/hord/internal/config"
	"github.com/ordhord/hord/internal/ingest"
	"github.com/ordhord/hord/internal/inscriptions"
	"github.com/ordhord/hord/internal/metrics"
	"github.com/ordhord/hord/internal/resolver"
	"github.com/ordhord/hord/internal/store"
)

var configPath string

// NewRootCmd builds the `hord` command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hord",
		Short: "hord indexes Bitcoin ordinals inscriptions",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to hord.yaml (defaults are used if omitted)")

	root.AddCommand(newIngestCmd(), newResolveCmd(), newServeMetricsCmd(), newRollbackCmd())
	return root
}

func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

func openStore(cfg config.Config, logger *zap.Logger) (*store.Store, error) {
	return store.Open(cfg.DataDir+"/hord.db", logger)
}

func newIngestCmd() *cobra.Command {
	var start, end int64
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch, compact, persist, and augment blocks in [start, end)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			s, err := openStore(cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			rpc := bitcoin.NewRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword, logger)
			registry := inscriptions.New(s)
			pipeline := ingest.New(rpc, s, registry, cfg.Network, cfg.NetworkThreads, cfg.ActivationHeight, logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return pipeline.Ingest(ctx, start, end)
		},
	}
	cmd.Flags().Int64Var(&start, "start", 0, "first height to ingest (inclusive)")
	cmd.Flags().Int64Var(&end, "end", 0, "last height to ingest (exclusive)")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var height int64
	var txidPrefixHex string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a (block height, txid prefix) cursor to its satoshi's ordinal number",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			s, err := store.OpenReadOnly(cfg.DataDir+"/hord.db", logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			prefix, err := parseTxidPrefix(txidPrefixHex)
			if err != nil {
				return err
			}

			resolvedHeight, offset, ordinal, err := resolver.Resolve(s, uint32(height), prefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "height=%d offset=%d ordinal=%d\n", resolvedHeight, offset, ordinal)
			return nil
		},
	}
	cmd.Flags().Int64Var(&height, "height", 0, "block height the cursor starts at")
	cmd.Flags().StringVar(&txidPrefixHex, "txid-prefix", "", "first 4 bytes of the transaction id, hex-encoded")
	return cmd
}

func parseTxidPrefix(s string) ([4]byte, error) {
	var prefix [4]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return prefix, fmt.Errorf("invalid --txid-prefix: %w", err)
	}
	if len(b) != 4 {
		return prefix, fmt.Errorf("--txid-prefix must decode to exactly 4 bytes, got %d", len(b))
	}
	copy(prefix[:], b)
	return prefix, nil
}

func newServeMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve the Prometheus /metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
			return http.ListenAndServe(cfg.MetricsAddr, mux)
		},
	}
	return cmd
}

func newRollbackCmd() *cobra.Command {
	var from int64
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Delete every persisted block at or above a height (reorg recovery)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			s, err := openStore(cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			if err := s.DeleteBlocksFrom(uint32(from)); err != nil {
				return err
			}
			logger.Info("rolled back", zap.Int64("from", from))
			return nil
		},
	}
	cmd.Flags().Int64Var(&from, "from", 0, "height to roll back from (inclusive)")
	return cmd
}
