package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/clock"
	"github.com/radiusdt/metasync/internal/config"
	"github.com/radiusdt/metasync/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidTenant is returned for tenant IDs that cannot name a database.
var ErrInvalidTenant = errors.New("invalid tenant id")

// TenantPools resolves and caches one PostgreSQL pool per tenant database.
// At most MaxTenants pools stay cached; the least recently used is evicted
// when a new tenant needs room. An evicted pool is closed once every caller
// holding it has released it.
type TenantPools struct {
	cfg       config.DatabaseConfig
	logger    *zap.Logger
	clock     clock.Clock
	open      func(ctx context.Context, tenant string) (*PostgresDB, error)
	onConnect func(ctx context.Context, pool *pgxpool.Pool) error

	opening singleflight.Group

	mu    sync.Mutex
	pools map[string]*tenantPool
}

type tenantPool struct {
	db       *PostgresDB
	lastUsed time.Time
	refs     int
	evicted  bool
}

// NewTenantPools creates a resolver. onConnect, when set, runs once for each
// newly opened pool, typically to apply the schema.
func NewTenantPools(cfg config.DatabaseConfig, logger *zap.Logger, clk clock.Clock, onConnect func(context.Context, *pgxpool.Pool) error) *TenantPools {
	if clk == nil {
		clk = clock.WallClock
	}
	tp := &TenantPools{
		cfg:       cfg,
		logger:    logger,
		clock:     clk,
		onConnect: onConnect,
		pools:     make(map[string]*tenantPool),
	}
	tp.open = func(ctx context.Context, tenant string) (*PostgresDB, error) {
		return NewPostgresDB(ctx, tp.cfg, tenant, tp.logger)
	}
	return tp
}

// Pool returns the tenant's pool, opening it on first use. The pool stays
// open until release is called; release is safe to call more than once.
func (tp *TenantPools) Pool(ctx context.Context, tenant string) (*pgxpool.Pool, func(), error) {
	if !models.ValidTenantID(tenant) {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidTenant, tenant)
	}

	for {
		if pool, release, ok := tp.acquire(tenant); ok {
			return pool, release, nil
		}
		if _, err, _ := tp.opening.Do(tenant, func() (interface{}, error) {
			return nil, tp.openTenant(ctx, tenant)
		}); err != nil {
			return nil, nil, err
		}
		// The opened pool may already be evicted by a burst of other tenants.
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
	}
}

func (tp *TenantPools) acquire(tenant string) (*pgxpool.Pool, func(), bool) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	p, ok := tp.pools[tenant]
	if !ok {
		return nil, nil, false
	}
	p.refs++
	p.lastUsed = tp.clock.Now()

	var once sync.Once
	release := func() { once.Do(func() { tp.release(p) }) }
	return p.db.Pool, release, true
}

func (tp *TenantPools) release(p *tenantPool) {
	tp.mu.Lock()
	p.refs--
	closeNow := p.evicted && p.refs == 0
	tp.mu.Unlock()

	if closeNow {
		p.db.Close()
	}
}

// openTenant dials and prepares a tenant database without holding tp.mu.
func (tp *TenantPools) openTenant(ctx context.Context, tenant string) error {
	tp.mu.Lock()
	_, ok := tp.pools[tenant]
	tp.mu.Unlock()
	if ok {
		return nil
	}

	db, err := tp.open(ctx, tenant)
	if err != nil {
		return fmt.Errorf("failed to open tenant %s database: %w", tenant, err)
	}
	if tp.onConnect != nil {
		if err := tp.onConnect(ctx, db.Pool); err != nil {
			db.Close()
			return fmt.Errorf("failed to prepare tenant %s database: %w", tenant, err)
		}
	}

	tp.mu.Lock()
	var idle []*tenantPool
	if tp.cfg.MaxTenants > 0 && len(tp.pools) >= tp.cfg.MaxTenants {
		idle = tp.evictLocked()
	}
	tp.pools[tenant] = &tenantPool{db: db, lastUsed: tp.clock.Now()}
	tp.mu.Unlock()

	for _, p := range idle {
		p.db.Close()
	}
	return nil
}

// evictLocked drops the least recently used pool from the cache and
// returns it when nobody holds it; a held pool closes on its last release.
func (tp *TenantPools) evictLocked() []*tenantPool {
	var oldest string
	var oldestAt time.Time
	for tenant, p := range tp.pools {
		if oldest == "" || p.lastUsed.Before(oldestAt) {
			oldest, oldestAt = tenant, p.lastUsed
		}
	}
	if oldest == "" {
		return nil
	}
	p := tp.pools[oldest]
	delete(tp.pools, oldest)
	p.evicted = true
	tp.logger.Debug("evicted tenant pool", zap.String("tenant", oldest), zap.Int("in_use", p.refs))
	if p.refs > 0 {
		return nil
	}
	return []*tenantPool{p}
}

// Len returns the number of open tenant pools.
func (tp *TenantPools) Len() int {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return len(tp.pools)
}

// Close closes every idle pool; pools still in use close on release.
func (tp *TenantPools) Close() {
	tp.mu.Lock()
	var idle []*tenantPool
	for tenant, p := range tp.pools {
		delete(tp.pools, tenant)
		p.evicted = true
		if p.refs == 0 {
			idle = append(idle, p)
		}
	}
	tp.mu.Unlock()

	for _, p := range idle {
		p.db.Close()
	}
}
