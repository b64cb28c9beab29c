// Package citadel assembles the authorization core: policy evaluation,
// risk scoring and the hash-chained audit ledger, wired together from
// configuration. Embedding applications construct a Core once and share it;
// every component is safe for concurrent use.
package citadel

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ameet-kotian/citadel/audit"
	"github.com/ameet-kotian/citadel/cache"
	"github.com/ameet-kotian/citadel/config"
	logger "github.com/ameet-kotian/citadel/logging"
	"github.com/ameet-kotian/citadel/pdp/engine"
	"github.com/ameet-kotian/citadel/policy"
	"github.com/ameet-kotian/citadel/risk"
	"github.com/ameet-kotian/citadel/util"
)

// Core bundles the fully wired authorization components.
type Core struct {
	Engine   *engine.AuthorizationEngine
	Policies *policy.Service
	Scorer   *risk.Scorer
	Audit    *audit.Chain

	auditStore *audit.SQLiteStore
}

// Options control the optional backends. Zero value means in-memory
// everything, which is what tests and embedded setups want.
type Options struct {
	// Redis enables the Redis-backed policy lookup cache. Nil keeps the
	// in-memory TTL cache.
	Redis *redis.Client
	// PersistAudit stores the audit chain in SQLite at the configured path
	// instead of in memory.
	PersistAudit bool
}

// New wires the core from the loaded configuration. Call config.InitConfig
// first; defaults cover every knob.
func New(ctx context.Context, opts Options) (*Core, error) {
	logger.InitLogger()

	conditions, err := engine.NewConditionEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to build condition evaluator: %w", err)
	}

	var (
		auditStore  audit.Store
		sqliteStore *audit.SQLiteStore
	)
	if opts.PersistAudit {
		sqliteStore, err = audit.NewSQLiteStore(ctx, config.GetString("audit.sqlitePath"))
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		auditStore = sqliteStore
	} else {
		auditStore = audit.NewMemoryStore()
	}

	chain, err := audit.NewChain(ctx, auditStore, nil, config.GetInt("audit.queueSize"))
	if err != nil {
		if sqliteStore != nil {
			_ = sqliteStore.Close()
		}
		return nil, err
	}

	var policyCache cache.PolicyCache
	ttl := config.GetDuration("cache.ttl")
	if opts.Redis != nil {
		policyCache = cache.NewRedisCache(opts.Redis, ttl)
	} else {
		policyCache = cache.NewMemoryCache(ttl)
	}

	bus := util.NewEventBus()
	bus.Start(ctx)

	store := policy.NewMemoryStore()
	cachedStore := policy.NewCachedStore(store, policyCache, bus)

	return &Core{
		Engine:     engine.NewAuthorizationEngine(cachedStore, engine.NewPolicyEvaluator(conditions), chain),
		Policies:   policy.NewService(store, conditions, policyCache, chain, bus),
		Scorer:     risk.NewScorer(config.GetStringSlice("risk.highRiskCountries")),
		Audit:      chain,
		auditStore: sqliteStore,
	}, nil
}

// Close drains the audit chain and releases the persistent store.
func (c *Core) Close() error {
	c.Audit.Close()
	if c.auditStore != nil {
		return c.auditStore.Close()
	}
	return nil
}
