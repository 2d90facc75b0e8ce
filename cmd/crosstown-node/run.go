// Crosstown Protocol
// Copyright (C) 2026 Crosstown Project
//
// This file is part of Crosstown.
//
// Crosstown is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Crosstown is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Crosstown. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ALLiDoizCode/crosstown-sub004/config"
	"github.com/ALLiDoizCode/crosstown-sub004/internal/logger"
	"github.com/ALLiDoizCode/crosstown-sub004/internal/metrics"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/bootstrap"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/event"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/health"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/identity"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/lifecycle"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/monitor"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/peers"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/peers/registryclient"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/relay"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/storage"
	"github.com/ALLiDoizCode/crosstown-sub004/pkg/storage/memory"
)

var (
	runConfigDir           string
	runEnvironment         string
	runAdditionalPeersFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bootstrap orchestrator and peer monitor",
	Long: `run loads configuration, establishes this node's identity,
bootstraps against its known and discovered peers, and then keeps
watching its own relay for new peer descriptors until interrupted.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runConfigDir, "config-dir", "", "directory holding <env>.yaml/default.yaml/config.yaml (default: ./config)")
	runCmd.Flags().StringVar(&runEnvironment, "env", "", "environment name, overrides CROSSTOWN_ENV")
	runCmd.Flags().StringVar(&runAdditionalPeersFile, "peers-file", "", "path to a JSON array of additional KnownPeer entries")
}

func runRun(cmd *cobra.Command, args []string) error {
	opts := config.DefaultLoaderOptions()
	if runConfigDir != "" {
		opts.ConfigDir = runConfigDir
	}
	if runEnvironment != "" {
		opts.Environment = runEnvironment
	}

	cfg, err := config.Load(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLoggerFromConfig(cfg.Logging)
	log.Info("starting crosstown-node", logger.String("environment", cfg.Environment))

	keys, err := loadOrGenerateIdentity(cfg.Identity, log)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	log.Info("node identity ready", logger.String("pubkey", string(keys.Pubkey())))

	broadcaster := lifecycle.NewBroadcaster(log)
	phaseTracker := health.NewPhaseTracker(broadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		go func() {
			if err := metrics.StartServer(addr); err != nil {
				log.Error("metrics server stopped", logger.Error(err))
			}
		}()
		log.Info("metrics server listening", logger.String("addr", addr))
	}

	var healthServer *health.Server
	if cfg.Health != nil && cfg.Health.Enabled {
		healthServer, err = health.StartHealthServer(cfg.Health.Port, phaseTracker, log)
		if err != nil {
			return fmt.Errorf("start health server: %w", err)
		}
		log.Info("health server listening", logger.Int("port", cfg.Health.Port))
	}

	peerStore := memory.NewStore()

	registryClient, err := newRegistryClient(cfg.Bootstrap, log)
	if err != nil {
		log.Warn("registry client disabled", logger.Error(err))
	}

	ownDescriptor := ownPeerDescriptor(cfg)
	settlementInfo := settlementInfoFromConfig(cfg.Settlement)

	additionalPeersJSON, err := loadAdditionalPeersJSON(runAdditionalPeersFile)
	if err != nil {
		return fmt.Errorf("load additional peers file: %w", err)
	}

	orchestrator := bootstrap.New(bootstrap.Config{
		Keys:             keys,
		OwnDescriptor:    ownDescriptor,
		RegistryClient:   registryClient,
		RegistryEnabled:  registryClient != nil && cfg.Bootstrap.RegistryEnabled != nil && *cfg.Bootstrap.RegistryEnabled,
		KnownPeers:       knownPeersFromConfig(cfg.Bootstrap.KnownPeers),
		QueryTimeout:     cfg.Relay.QueryTimeout,
		BasePricePerByte: cfg.Bootstrap.BasePricePerByte,
		Concurrency:      cfg.Bootstrap.Concurrency,
		SettlementInfo:   settlementInfo,
		Broadcaster:      broadcaster,
		Logger:           log,
	})

	results := orchestrator.Bootstrap(ctx, additionalPeersJSON)
	log.Info("bootstrap complete", logger.Int("peers", len(results)))
	cachePeerResults(ctx, peerStore, results, log)

	var sub *relay.Subscription
	var relayClient *relay.Client
	if cfg.Relay.OwnRelayURL != "" {
		relayClient, err = relay.Connect(ctx, cfg.Relay.OwnRelayURL)
		if err != nil {
			log.Error("failed to connect to own relay; monitor disabled", logger.Error(err))
		} else {
			mon := monitor.New(monitor.Config{
				Keys:           keys,
				Relay:          relayClient,
				SettlementInfo: settlementInfo,
				Broadcaster:    broadcaster,
				Logger:         log,
			})
			sub, err = mon.Start()
			if err != nil {
				log.Error("failed to start peer monitor", logger.Error(err))
			} else {
				log.Info("peer monitor subscribed", logger.String("relay", cfg.Relay.OwnRelayURL))
			}
		}
	}

	waitForShutdown(log)

	cancel()
	if sub != nil {
		_ = sub.Close()
	}
	if relayClient != nil {
		_ = relayClient.Close()
	}
	if healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = healthServer.Stop(shutdownCtx)
	}
	log.Info("crosstown-node stopped")
	return nil
}

func newLoggerFromConfig(cfg *config.LoggingConfig) *logger.StructuredLogger {
	level := logger.InfoLevel
	output := os.Stdout
	if cfg != nil {
		switch cfg.Level {
		case "debug":
			level = logger.DebugLevel
		case "warn":
			level = logger.WarnLevel
		case "error":
			level = logger.ErrorLevel
		}
		switch cfg.Output {
		case "", "stdout":
		case "stderr":
			output = os.Stderr
		default:
			// #nosec G304 - operator-configured log path is intentional.
			if f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
				output = f
			}
		}
	}
	log := logger.NewLogger(output, level)
	if cfg != nil && cfg.Format == "console" {
		log.SetPrettyPrint(true)
	}
	return log
}

func loadOrGenerateIdentity(cfg *config.IdentityConfig, log logger.Logger) (*identity.KeyPair, error) {
	var secretHex string
	if cfg != nil {
		if cfg.PrivateKeyEnv != "" {
			secretHex = os.Getenv(cfg.PrivateKeyEnv)
		}
		if secretHex == "" && cfg.PrivateKeyPath != "" {
			// #nosec G304 - operator-configured key path is intentional.
			data, err := os.ReadFile(cfg.PrivateKeyPath)
			if err != nil {
				return nil, fmt.Errorf("read private key path: %w", err)
			}
			secretHex = string(data)
		}
	}
	if secretHex == "" {
		log.Warn("no identity key configured; generating an ephemeral key pair")
		return identity.GenerateKeyPair()
	}
	secret, err := hex.DecodeString(trimHex(secretHex))
	if err != nil {
		return nil, fmt.Errorf("decode identity secret: %w", err)
	}
	return identity.KeyPairFromSecret(secret)
}

func trimHex(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}

func newRegistryClient(cfg *config.BootstrapConfig, log logger.Logger) (*registryclient.Client, error) {
	if cfg == nil || cfg.RegistrySigningKeyPath == "" {
		return nil, fmt.Errorf("no registry signing key configured")
	}
	// #nosec G304 - operator-configured key path is intentional.
	data, err := os.ReadFile(cfg.RegistrySigningKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read registry signing key: %w", err)
	}
	signer, err := parseRSASigner(data)
	if err != nil {
		return nil, fmt.Errorf("parse registry signing key: %w", err)
	}
	return registryclient.New(registryclient.Config{
		URL:    cfg.RegistryURL,
		Issuer: cfg.RegistryIssuer,
		Signer: signer,
		KeyID:  cfg.RegistryKeyID,
	}), nil
}

func parseRSASigner(pemBytes []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse PKCS8 key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("key does not implement crypto.Signer")
	}
	return signer, nil
}

func ownPeerDescriptor(cfg *config.Config) event.PeerDescriptor {
	var own config.OwnIlpInfoConfig
	if cfg.Bootstrap != nil {
		own = cfg.Bootstrap.OwnIlpInfo
	}
	descriptor := event.PeerDescriptor{
		IlpAddress:  own.IlpAddress,
		BtpEndpoint: own.BtpEndpoint,
		AssetCode:   own.AssetCode,
		AssetScale:  own.AssetScale,
	}
	if cfg.Settlement != nil {
		descriptor.SupportedChains = cfg.Settlement.SupportedChains
		descriptor.SettlementAddresses = cfg.Settlement.SettlementAddresses
		descriptor.PreferredTokens = cfg.Settlement.PreferredTokens
		descriptor.TokenNetworks = cfg.Settlement.TokenNetworks
	}
	return descriptor
}

func settlementInfoFromConfig(cfg *config.SettlementConfig) *event.SettlementInfo {
	if cfg == nil {
		return nil
	}
	return &event.SettlementInfo{
		SupportedChains:     cfg.SupportedChains,
		SettlementAddresses: cfg.SettlementAddresses,
		PreferredTokens:     cfg.PreferredTokens,
	}
}

func knownPeersFromConfig(known []config.KnownPeerConfig) []peers.KnownPeer {
	out := make([]peers.KnownPeer, 0, len(known))
	for _, kp := range known {
		out = append(out, peers.KnownPeer{
			Pubkey:      kp.Pubkey,
			RelayURL:    kp.RelayURL,
			IlpAddress:  kp.IlpAddress,
			BtpEndpoint: kp.BtpEndpoint,
		})
	}
	return out
}

func loadAdditionalPeersJSON(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	// #nosec G304 - operator-configured peers file path is intentional.
	return os.ReadFile(path)
}

func cachePeerResults(ctx context.Context, store *memory.Store, results []bootstrap.Result, log logger.Logger) {
	peerStore := store.PeerDescriptorStore()
	for _, r := range results {
		entry := &storage.PeerDescriptorEntry{
			Pubkey:      r.Peer.Pubkey,
			RelayURL:    r.Peer.RelayURL,
			IlpAddress:  r.Descriptor.IlpAddress,
			BtpEndpoint: r.Descriptor.BtpEndpoint,
			AssetCode:   r.Descriptor.AssetCode,
			AssetScale:  r.Descriptor.AssetScale,
			Peered:      r.ChannelID != "",
		}
		if err := peerStore.Upsert(ctx, entry); err != nil {
			log.Warn("failed to cache peer descriptor", logger.String("pubkey", r.Peer.Pubkey), logger.Error(err))
		}
	}
}

func waitForShutdown(log logger.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))
}
