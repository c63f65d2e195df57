package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/siteassist/insight/internal/config"
	"go.uber.org/fx"
)

const keyIngestLicense = "ingest:license:%s"

// IngestLimiter caps webhook events per license. A nil limiter is valid and
// allows everything.
type IngestLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewIngestLimiter(cfg config.Config) (*IngestLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.IngestPerMinute <= 0 {
		return nil, errors.New("ingest rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &IngestLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    float64(limitCfg.IngestPerMinute) / 60,
		burst:   limitCfg.IngestPerMinute,
	}, nil
}

func (l *IngestLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow reports whether one more event may be ingested for the license.
// Events without a license key share the "anonymous" bucket.
func (l *IngestLimiter) Allow(ctx context.Context, licenseKey string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	key := strings.TrimSpace(licenseKey)
	if key == "" {
		key = "anonymous"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyIngestLicense, key), l.rate, l.burst)
}

var Module = fx.Module("ratelimit",
	fx.Provide(NewIngestLimiter),
)
