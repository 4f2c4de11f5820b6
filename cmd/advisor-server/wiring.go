// cmd/advisor-server/wiring.go
package main

import (
	"context"
	"fmt"
	"time"

	"advisor-engine/internal/archive"
	"advisor-engine/internal/common/auth"
	awsclient "advisor-engine/internal/common/aws"
	"advisor-engine/internal/common/config"
	"advisor-engine/internal/common/database"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/common/observability"
	"advisor-engine/internal/coordinator"
	"advisor-engine/internal/engine"
	"advisor-engine/internal/escalation"
	"advisor-engine/internal/genai"
	"advisor-engine/internal/store"
	"advisor-engine/pkg/registry"
)

type dependencies struct {
	store    store.Store
	archiver archive.Archiver
	notifier escalation.Notifier
	closers  []func() error
}

func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

// retryWithBackoff retries operation with doubling delays.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, name string) error {
	var err error
	delay := initialDelay
	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i < maxRetries-1 {
			log.Warn(name+" failed, retrying", map[string]interface{}{
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
				"error":       err.Error(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, maxRetries, err)
}

func buildDependencies(ctx context.Context, cfg *config.Config, log logger.Logger) (*dependencies, error) {
	d := &dependencies{archiver: archive.Nop{}, notifier: escalation.Nop{}}

	switch cfg.Store.Backend {
	case config.StoreRedis:
		rc := database.NewRedis(cfg.Store.Redis)
		if err := retryWithBackoff(ctx, func() error { return rc.Ping(ctx) }, 10, time.Second, log, "redis connection"); err != nil {
			return nil, err
		}
		d.closers = append(d.closers, rc.Close)
		d.store = store.NewRedisStore(rc.Client, time.Duration(cfg.Store.TTL)*time.Second)
	case config.StorePostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(ctx, func() error {
			var err error
			if pg, err = database.NewPostgres(cfg.Store.Postgres); err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 10, time.Second, log, "postgres connection")
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, pg.Close)
		ps, err := store.NewPostgresStore(pg.DB, cfg.Store.Postgres.Table)
		if err != nil {
			return nil, err
		}
		if err := ps.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		d.store = ps
	default:
		d.store = store.NewMemoryStore()
	}
	log.Info("conversation store ready", map[string]interface{}{"backend": cfg.Store.Backend})

	if es := cfg.Archive.Elasticsearch; es.Enabled {
		client, err := database.NewElasticsearch(es)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			log.Warn("elasticsearch not reachable, archive writes will be retried per turn", map[string]interface{}{"error": err.Error()})
		}
		d.archiver = archive.NewElasticArchive(client.Client, es.Index)
	}

	if sns := cfg.Escalation.SNS; sns.Enabled {
		client, err := awsclient.NewSNSClient(ctx, sns.Region)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		d.notifier = escalation.NewSNSNotifier(client, sns.TopicARN)
	}
	return d, nil
}

func buildCoordinator(cfg *config.Config, d *dependencies, obs *observability.Observability, log logger.Logger) (*coordinator.Coordinator, error) {
	var opts []engine.Option
	if cfg.Catalog.Path != "" {
		reg, err := registry.LoadRegistry(cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("catalog override: %w", err)
		}
		if opts, err = engine.OptionsFromRegistry(reg); err != nil {
			return nil, err
		}
		log.Info("catalog override loaded", map[string]interface{}{"path": cfg.Catalog.Path, "version": reg.Version})
	}

	ec := cfg.Engine
	eng := engine.New(engine.Config{
		ConfidenceFloor:    ec.ConfidenceFloor,
		KeywordIncrement:   ec.KeywordIncrement,
		FlowBonus:          ec.FlowBonus,
		RepeatPenalty:      ec.RepeatPenalty,
		RepeatPenaltyAfter: ec.RepeatPenaltyAfter,
		StuckThreshold:     ec.StuckThreshold,
		MaxInputRunes:      ec.MaxInputRunes,
		MaxTopics:          ec.MaxTopics,
		DisclaimerBelow:    ec.DisclaimerBelow,
	}, log, opts...)

	repo := store.NewContextRepository(d.store, cfg.Store.MaxHistory, log)

	copts := []coordinator.Option{
		coordinator.WithArchiver(d.archiver),
		coordinator.WithNotifier(d.notifier),
		coordinator.WithObservability(obs),
	}
	if cfg.GenAI.Enabled {
		copts = append(copts, coordinator.WithGenerator(genai.NewClient(genai.Config{
			BaseURL: cfg.GenAI.BaseURL,
			APIKey:  cfg.GenAI.APIKey,
			Timeout: config.GetDuration(cfg.GenAI.Timeout),
		}, log)))
	}
	if kc := cfg.Auth.Keycloak; kc.Enabled {
		copts = append(copts, coordinator.WithVerifier(auth.NewKeycloakClient(kc.URL, kc.Realm, config.GetDuration(kc.Timeout))))
	} else {
		copts = append(copts, coordinator.WithVerifier(auth.StaticVerifier{}))
	}

	return coordinator.New(coordinator.Config{BookingURL: cfg.Escalation.BookingURL}, eng, repo, log, copts...), nil
}
