package search

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"backoffice/internal/config"
	applog "backoffice/internal/log"
	"backoffice/internal/metrics"
)

// FromConfig builds the configured backend behind a circuit breaker. The
// returned close func releases backend connections.
func FromConfig(ctx context.Context, cfg config.IndexConfig, m *metrics.Metrics) (*Guarded, func() error, error) {
	var (
		inner   Index
		closeFn = func() error { return nil }
	)
	switch cfg.Backend {
	case "", "memory":
		inner = NewMemoryIndex()
	case "elasticsearch", "elastic":
		ei, err := NewElasticIndex(elasticsearch.Config{
			Addresses: cfg.ESAddresses,
			Username:  cfg.ESUsername,
			Password:  cfg.ESPassword,
		}, cfg.ESIndex)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		if err := ei.EnsureIndex(ctx); err != nil {
			// the index is derived data; start anyway and let resync fill it later
			applog.Warn(nil, "index.ensure.fail", err, map[string]any{"index": cfg.ESIndex})
		}
		cancel()
		inner = ei
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		inner = NewRedisIndex(client, cfg.RedisPrefix)
		closeFn = client.Close
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}

	g := NewGuarded(inner, BreakerSettings{
		Failures: cfg.BreakerFailures,
		Cooldown: cfg.BreakerCooldown,
		OnStateChange: func(s gobreaker.State) {
			m.Breaker(int(s))
			applog.Warn(nil, "index.breaker", nil, map[string]any{"state": s.String()})
		},
	})
	return g, closeFn, nil
}
