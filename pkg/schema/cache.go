package schema

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	// Following PostgREST's notification convention: NOTIFY the channel to
	// trigger a metadata reload after DDL changes.
	reloadChannel = "restview"
	reloadPayload = "reload schema"
)

// Cache holds table metadata for one database schema and keeps it current by
// listening for reload notifications. Snapshot reads are safe from any
// goroutine.
type Cache struct {
	pool       *pgxpool.Pool
	conn       *pgx.Conn
	logger     *zap.Logger
	schemaName string
	tables     map[string]Table // key: schema_name.table_name
	watch      chan map[string]Table
	cancel     context.CancelFunc
	mu         sync.RWMutex
}

// NewCache creates a cache over the given pool for one database schema
// (usually "public"). A dedicated connection is hijacked from the pool for
// LISTEN.
func NewCache(pool *pgxpool.Pool, schemaName string, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := pool.Acquire(context.Background())
	if err != nil {
		return nil, fmt.Errorf("pool.Acquire: %w", err)
	}

	return &Cache{
		pool:       pool,
		conn:       conn.Hijack(),
		logger:     logger,
		schemaName: schemaName,
		tables:     make(map[string]Table),
		watch:      make(chan map[string]Table, 1),
	}, nil
}

// Init loads the metadata and starts the notification listener.
func (c *Cache) Init(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if err := c.reload(ctx); err != nil {
		cancel()
		return fmt.Errorf("initial load: %w", err)
	}

	if _, err := c.conn.Exec(ctx, "LISTEN "+reloadChannel); err != nil {
		cancel()
		return fmt.Errorf("listen: %w", err)
	}

	go c.handleUpdates(ctx)
	return nil
}

// Close stops the listener and releases the listening connection. The pool
// is owned by the caller and stays open.
func (c *Cache) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		c.conn.Close(context.Background())
	}
	close(c.watch)
}

// Watch exposes reload events. Each event carries the full new snapshot.
func (c *Cache) Watch() <-chan map[string]Table {
	return c.watch
}

// Snapshot returns a copy of the current table map.
func (c *Cache) Snapshot() map[string]Table {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := make(map[string]Table, len(c.tables))
	maps.Copy(snap, c.tables)
	return snap
}

// Lookup finds a table by bare name within the cache's schema.
func (c *Cache) Lookup(table string) (Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.tables[c.schemaName+"."+table]
	return t, ok
}

func (c *Cache) handleUpdates(ctx context.Context) {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			notification, err := c.conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("notification wait failed", zap.Error(err))
				next := policy.NextBackOff()
				if next == backoff.Stop {
					return
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(next):
				}
				continue
			}
			policy.Reset()

			if notification.Payload == reloadPayload {
				if err := c.reload(ctx); err != nil {
					c.logger.Error("schema reload failed", zap.Error(err))
				}
			}
		}
	}
}

func (c *Cache) reload(ctx context.Context) error {
	tables, err := loadAll(ctx, c.pool, c.schemaName)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.tables = tables
	c.mu.Unlock()

	c.logger.Info("schema cache loaded", zap.Int("tables", len(tables)))

	// drop the event rather than block when nobody is watching
	select {
	case c.watch <- c.Snapshot():
	default:
	}
	return nil
}
