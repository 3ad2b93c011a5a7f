package app

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"pairlink/internal/codec"
	"pairlink/internal/domain"
	"pairlink/internal/engine"
	"pairlink/internal/keystore"
	"pairlink/internal/logging"
	"pairlink/internal/relay"
	"pairlink/internal/rpc"
	"pairlink/internal/store"
)

// Wire bundles all stores, services, and the engine for the CLI.
type Wire struct {
	Logger  *zap.Logger
	Keys    domain.KeyManager
	Gateway domain.RelayGateway
	Router  domain.Router
	Engine  domain.Engine

	router *rpc.Router
	engine *engine.Engine
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	logger, err := logging.New(cfg.Development)
	if err != nil {
		return nil, err
	}
	clk := clock.New()

	// File-based stores under the home directory
	keyStorage := store.NewFileKeyStorage(cfg.Home, cfg.Passphrase)
	relationships := store.NewFileRelationshipStore(cfg.Home)
	pending := store.NewFilePendingRequestStore(cfg.Home)
	history := store.NewFileHistoryStore(cfg.Home)

	keys := keystore.New(keyStorage, logger)

	var gateway domain.RelayGateway
	if cfg.RelayURL != "" {
		gateway = relay.NewWebsocket(cfg.RelayURL, cfg.AuthToken, logger, clk)
	} else {
		// Loopback relay for local experimentation
		gateway = relay.NewMemoryHub().Attach()
	}

	router := rpc.New(gateway, codec.New(keys, logger), history, logger, clk)
	eng := engine.New(engine.Config{
		Protocol:      engine.ByName(cfg.Protocol),
		Keys:          keys,
		Router:        router,
		Gateway:       gateway,
		Relationships: relationships,
		Pending:       pending,
		Logger:        logger,
		Clock:         clk,
	})

	return &Wire{
		Logger:  logger,
		Keys:    keys,
		Gateway: gateway,
		Router:  router,
		Engine:  eng,
		router:  router,
		engine:  eng,
	}, nil
}

// Close tears the graph down in dependency order.
func (w *Wire) Close() error {
	var err error
	err = multierr.Append(err, w.engine.Close())
	err = multierr.Append(err, w.Gateway.Close())
	err = multierr.Append(err, w.router.Close())
	_ = w.Logger.Sync()
	return err
}
