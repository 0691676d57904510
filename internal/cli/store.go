package cli

import (
	"context"
	"fmt"

	"github.com/pfrederiksen/devent/internal/config"
	"github.com/pfrederiksen/devent/internal/crypto"
	"github.com/pfrederiksen/devent/internal/kv"
	"github.com/pfrederiksen/devent/internal/logger"
	"github.com/pfrederiksen/devent/internal/notifier"
	"github.com/pfrederiksen/devent/internal/storage"
)

// openStore creates the kv.Store for the configured backend.
func (a *app) openStore(ctx context.Context) (kv.Store, error) {
	cfg := a.cfg
	switch cfg.Backend {
	case config.BackendMemory:
		return kv.NewMemoryStore(cfg.QuotaBytes), nil
	case config.BackendPostgres:
		pool, err := kv.NewPostgresPool(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		return kv.NewPostgresStore(ctx, pool, cfg.QuotaBytes)
	case config.BackendGist:
		return kv.NewGistStore(cfg.GistID, cfg.GitHubToken, cfg.QuotaBytes)
	default:
		return kv.NewFileStore(cfg.DataDir, kv.DefaultNamespace, cfg.QuotaBytes)
	}
}

// newManager wires the store, encryption and change notifications into a
// storage.Manager.
func (a *app) newManager(ctx context.Context) (*storage.Manager, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing %s storage: %w", a.cfg.Backend, err)
	}

	enc, err := crypto.NewEncryptor(a.cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}

	notifiers := notifier.Multi{notifier.NewLogNotifier(a.log)}
	if a.cfg.RabbitMQURL != "" {
		amqpNotifier, err := notifier.NewAMQPNotifier(a.cfg.RabbitMQURL)
		if err != nil {
			// Change publication is optional; storage works without it.
			a.log.Warn("RabbitMQ unavailable, changes will only be logged", logger.Fields{"error": err.Error()})
		} else {
			a.closers = append(a.closers, amqpNotifier.Close)
			notifiers = append(notifiers, amqpNotifier)
		}
	}

	opts := []storage.Option{
		storage.WithLogger(a.log),
		storage.WithMetrics(a.metrics),
		storage.WithClock(a.now),
		storage.WithEncryptor(enc),
		storage.WithNotifier(notifiers),
	}
	if a.cfg.Seed {
		opts = append(opts, storage.WithSeed(storage.SampleEvents()))
	}
	return storage.New(store, opts...), nil
}
