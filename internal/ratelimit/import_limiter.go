package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/salesdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyImportAgent = "referral:import:agent:%s"
	keyImportLock  = "referral:import:lock"
)

// ImportLimiter throttles referral report imports per admin and lets only one
// import run at a time across instances. A nil limiter allows everything.
type ImportLimiter struct {
	bucket  *TokenBucket
	locker  *Locker
	rate    float64
	burst   int
	lockTTL time.Duration
}

type Params struct {
	fx.In

	Lc  fx.Lifecycle
	Cfg config.Config
	Log *zap.Logger
}

func NewImportLimiter(p Params) (*ImportLimiter, error) {
	limitCfg := p.Cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	if p.Lc != nil {
		p.Lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}
	if p.Log != nil {
		p.Log.Named("ratelimit").Info("referral import limiter enabled",
			zap.String("redis_addr", addr),
			zap.Float64("rate", limitCfg.ImportRate),
			zap.Int("burst", limitCfg.ImportBurst),
		)
	}

	return newImportLimiter(client, limitCfg)
}

func newImportLimiter(client redis.UniversalClient, limitCfg config.RateLimitConfig) (*ImportLimiter, error) {
	if limitCfg.ImportRate <= 0 || limitCfg.ImportBurst <= 0 {
		return nil, errors.New("referral import rate limit must be positive")
	}
	if limitCfg.ImportLockTTLSeconds <= 0 {
		return nil, errors.New("referral import lock ttl must be positive")
	}

	return &ImportLimiter{
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    limitCfg.ImportRate,
		burst:   limitCfg.ImportBurst,
		lockTTL: time.Duration(limitCfg.ImportLockTTLSeconds) * time.Second,
	}, nil
}

func (l *ImportLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *ImportLimiter) AllowAgent(ctx context.Context, agentID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyImportAgent, strings.TrimSpace(agentID)), l.rate, l.burst)
}

func (l *ImportLimiter) TryLock(ctx context.Context) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, keyImportLock, l.lockTTL)
}

func (l *ImportLimiter) Release(ctx context.Context, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, keyImportLock, token)
}
