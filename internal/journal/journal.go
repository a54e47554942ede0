// Package journal provides Redis-backed persistence for processed handoffs.
// This package is internal and should not be imported by external projects.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/handoff"
)

// ErrNotFound is returned when a handoff record does not exist.
var ErrNotFound = fmt.Errorf("handoff record not found")

// ErrClosed is returned when the journal has been closed.
var ErrClosed = fmt.Errorf("journal is closed")

// Config configures the journal backend.
type Config struct {
	// Redis address
	Addr string `yaml:"addr" json:"addr"`

	// Password
	Password string `yaml:"password" json:"password"`

	// Database number
	DB int `yaml:"db" json:"db"`

	// Connection pool size
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// Minimum idle connections
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// Per-record TTL
	RecordTTL time.Duration `yaml:"record_ttl" json:"record_ttl"`

	// KeyPrefix namespaces all journal keys
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// MaxRecent bounds the per-status recent lists
	MaxRecent int64 `yaml:"max_recent" json:"max_recent"`
}

// DefaultConfig returns the default journal configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		RecordTTL:    24 * time.Hour,
		KeyPrefix:    "agentrelay",
		MaxRecent:    1000,
	}
}

// Journal is an append-only store of processed handoff requests: one JSON
// record per handoff keyed by ID, plus a bounded recent list per final
// status.
type Journal struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// New connects to Redis and returns a journal. The connection is verified
// with a ping before returning.
func New(config Config, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "agentrelay"
	}
	if config.MaxRecent <= 0 {
		config.MaxRecent = 1000
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	j := &Journal{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "journal")),
	}

	logger.Info("handoff journal initialized",
		zap.String("addr", config.Addr),
		zap.Duration("record_ttl", config.RecordTTL),
	)

	return j, nil
}

func (j *Journal) recordKey(id string) string {
	return fmt.Sprintf("%s:handoff:%s", j.config.KeyPrefix, id)
}

func (j *Journal) recentKey(status handoff.Status) string {
	return fmt.Sprintf("%s:recent:%s", j.config.KeyPrefix, status)
}

// Record persists one processed handoff: the full record under its ID with
// the configured TTL, and the ID pushed onto the bounded recent list for its
// final status.
func (j *Journal) Record(ctx context.Context, req *handoff.Request) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return ErrClosed
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal handoff record: %w", err)
	}

	pipe := j.redis.TxPipeline()
	pipe.Set(ctx, j.recordKey(req.ID), data, j.config.RecordTTL)
	recent := j.recentKey(req.Status)
	pipe.LPush(ctx, recent, req.ID)
	pipe.LTrim(ctx, recent, 0, j.config.MaxRecent-1)
	if _, err := pipe.Exec(ctx); err != nil {
		j.logger.Error("journal record failed", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("journal record failed: %w", err)
	}

	return nil
}

// Get retrieves a journaled handoff by ID. Returns ErrNotFound for unknown
// or expired records.
func (j *Journal) Get(ctx context.Context, id string) (*handoff.Request, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrClosed
	}

	data, err := j.redis.Get(ctx, j.recordKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("journal get failed: %w", err)
	}

	var req handoff.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal handoff record: %w", err)
	}
	return &req, nil
}

// Recent returns up to n of the most recently journaled handoffs with the
// given final status, newest first. Records whose TTL has expired are
// skipped.
func (j *Journal) Recent(ctx context.Context, status handoff.Status, n int64) ([]*handoff.Request, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrClosed
	}

	ids, err := j.redis.LRange(ctx, j.recentKey(status), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("journal recent lookup failed: %w", err)
	}

	out := make([]*handoff.Request, 0, len(ids))
	for _, id := range ids {
		data, err := j.redis.Get(ctx, j.recordKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("journal get failed: %w", err)
		}
		var req handoff.Request
		if err := json.Unmarshal(data, &req); err != nil {
			j.logger.Warn("skipping corrupt journal record", zap.String("id", id), zap.Error(err))
			continue
		}
		out = append(out, &req)
	}
	return out, nil
}

// Ping verifies the Redis connection.
func (j *Journal) Ping(ctx context.Context) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return ErrClosed
	}
	return j.redis.Ping(ctx).Err()
}

// Close releases the Redis client. Close is idempotent.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	j.logger.Info("closing handoff journal")
	return j.redis.Close()
}
