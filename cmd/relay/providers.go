package main

import (
	"fmt"

	"github.com/kursadbilgin/notify-relay/internal/config"
	"github.com/kursadbilgin/notify-relay/internal/failover"
	"github.com/kursadbilgin/notify-relay/internal/observability"
	"github.com/kursadbilgin/notify-relay/internal/provider"
	"github.com/kursadbilgin/notify-relay/internal/service"
	"go.uber.org/zap"
)

// buildPool creates one sender per configured provider, in PROVIDERS order.
func buildPool(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (*failover.ProviderPool, error) {
	names := cfg.ProviderNames()
	members := make([]failover.Member, 0, len(names))
	for _, name := range names {
		sender, err := provider.New(name, cfg.ProviderSettings(name))
		if err != nil {
			return nil, err
		}
		members = append(members, failover.Member{Name: name, Sender: sender})
	}

	opts := []failover.Option{
		failover.WithFailureThreshold(cfg.FailureThreshold),
		failover.WithCoolDown(cfg.CoolDown()),
	}
	opts = append(opts, service.PoolObservers(logger, metrics)...)

	pool, err := failover.NewProviderPool(members, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider pool: %w", err)
	}
	return pool, nil
}
