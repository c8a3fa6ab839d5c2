// Package bootstrap assembles the workflow's stores, mailbox integration and
// notifier from configuration. The binaries under cmd/ share it.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"contract_workflow_backend/internal/deadlines"
	"contract_workflow_backend/internal/dedup"
	"contract_workflow_backend/internal/events"
	"contract_workflow_backend/internal/inquiry"
	"contract_workflow_backend/internal/kvstore"
	"contract_workflow_backend/internal/mailbox"
	"contract_workflow_backend/internal/notify"
	"contract_workflow_backend/internal/storage"
	"contract_workflow_backend/internal/vendors"
	"contract_workflow_backend/platform/ai/embeddings"
	"contract_workflow_backend/platform/config"
	"contract_workflow_backend/platform/db"
	"contract_workflow_backend/platform/logger"
	"contract_workflow_backend/platform/qdrant"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	dedupKeyPrefix    = "contracts:dedup:"
	credentialAccount = "mailbox"
	matchThreshold    = 0.6
	vectorMinScore    = 0.55
)

// Components holds everything the binaries wire together.
type Components struct {
	Config   *config.Config
	Log      *logger.Logger
	Location *time.Location

	Pool   *pgxpool.Pool
	SQLite *sql.DB
	Redis  *redis.Client
	KV     kvstore.Store
	Bus    *events.InMemoryBus

	Objects     storage.ObjectStore
	Credentials *mailbox.Manager
	Graph       *mailbox.Client

	Notifier  notify.Notifier
	Templates *notify.Templates

	Vendors   *vendors.Directory
	Deadlines *deadlines.Store
	Inquiries *inquiry.Store
	Matcher   inquiry.Matcher
	Sweeper   *deadlines.Sweeper

	closers []func()
}

// Build connects the configured backends. Connection attempts are retried.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Components, error) {
	loc, err := time.LoadLocation(cfg.GetTargetTimezone())
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	c := &Components{Config: cfg, Log: log, Location: loc, Bus: events.NewInMemoryBus(log)}

	if err := c.openStores(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.openObjects(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.openMailbox(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.openNotifier(); err != nil {
		c.Close()
		return nil, err
	}
	c.openInquiries(ctx)

	c.Vendors = vendors.NewDirectory(c.KV)
	c.Deadlines = deadlines.NewStore(c.KV)
	c.Sweeper = deadlines.NewSweeper(c.Deadlines, c.Notifier, c.Templates, cfg.GetSLAAlertEmail(), loc, log)
	return c, nil
}

// Close releases connections in reverse order of opening.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Components) onClose(fn func()) { c.closers = append(c.closers, fn) }

func (c *Components) needsPostgres() bool {
	return c.Config.GetKVBackend() == "postgres" || c.Config.GetTokenStore() == "postgres"
}

func (c *Components) openStores(ctx context.Context) error {
	cfg := c.Config
	if c.needsPostgres() {
		if err := WithRetry(ctx, c.Log, "database connection", 5, 2*time.Second, func() error {
			p, err := db.NewPool(ctx, cfg)
			if err != nil {
				return err
			}
			c.Pool = p
			return nil
		}); err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		c.onClose(c.Pool.Close)
		if err := db.RunMigrations(ctx, c.Pool); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	switch cfg.GetKVBackend() {
	case "postgres":
		c.KV = kvstore.NewPostgresStore(c.Pool)
	case "sqlite":
		sqlDB, err := db.OpenSQLite(ctx, cfg.GetSQLitePath())
		if err != nil {
			return err
		}
		c.SQLite = sqlDB
		c.onClose(func() { _ = sqlDB.Close() })
		c.KV = kvstore.NewSQLiteStore(sqlDB)
	default:
		c.Log.Warn("KV_BACKEND=memory: vendors, inquiries and deadlines are lost on restart")
		c.KV = kvstore.NewMemoryStore()
	}

	if url := cfg.GetRedisURL(); url != "" {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		c.Redis = redis.NewClient(opt)
		c.onClose(func() { _ = c.Redis.Close() })
	}
	return nil
}

func (c *Components) openObjects(ctx context.Context) error {
	if !c.Config.IsMinIOEnabled() {
		c.Objects = storage.NewMemoryStore()
		return nil
	}
	store, err := storage.NewMinIOStore(c.Config)
	if err != nil {
		return fmt.Errorf("object storage: %w", err)
	}
	if err := WithRetry(ctx, c.Log, "ensure attachments bucket", 5, 2*time.Second, func() error {
		return store.EnsureBucketExists(ctx)
	}); err != nil {
		return fmt.Errorf("ensure attachments bucket: %w", err)
	}
	c.Objects = store
	return nil
}

func (c *Components) openMailbox(ctx context.Context) error {
	var store mailbox.TokenStore
	switch c.Config.GetTokenStore() {
	case "postgres":
		pg, err := mailbox.NewPostgresStore(c.Pool, credentialAccount, c.Config.GetTokenEncryptionSecret())
		if err != nil {
			return err
		}
		store = pg
	default:
		store = mailbox.NewDotenvStore(c.Config.GetTokenDotenvPath())
	}
	creds, err := mailbox.NewManager(ctx, store, mailbox.NewOAuthRefresher(c.Config), c.Log)
	if err != nil {
		return err
	}
	c.Credentials = creds
	c.Graph = mailbox.NewClient(c.Config.GetGraphBaseURL(), creds, c.Log)
	return nil
}

func (c *Components) openNotifier() error {
	templates, err := notify.LoadTemplates(c.Config.GetEmailFromName())
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	c.Templates = templates

	var n notify.Notifier
	switch c.Config.GetMailTransport() {
	case "smtp":
		n = notify.NewSMTPNotifier(c.Config)
	case "noop":
		n = notify.NoopNotifier{Log: c.Log}
	default:
		n = notify.NewGraphNotifier(c.Graph)
	}
	c.Notifier = notify.WithTimeout(n, c.Config.GetNotifyTimeout())
	return nil
}

// openInquiries picks the repository matching the KV backend and layers
// semantic search over token matching when Qdrant and embeddings are set.
func (c *Components) openInquiries(ctx context.Context) {
	var repo inquiry.Repository
	switch {
	case c.Pool != nil && c.Config.GetKVBackend() == "postgres":
		repo = inquiry.NewPostgresRepository(c.Pool)
	case c.SQLite != nil:
		repo = inquiry.NewSQLiteRepository(c.SQLite)
	default:
		repo = inquiry.NewMemoryRepository()
	}
	tokens := inquiry.NewTokenOverlapMatcher(repo, matchThreshold)

	if !c.Config.IsQdrantEnabled() || !c.Config.IsEmbeddingEnabled() {
		c.Inquiries = inquiry.NewStore(repo, nil, c.Log)
		c.Matcher = tokens
		return
	}

	embedder := embeddings.NewClient(c.Config)
	index := qdrant.NewClient(qdrant.Config{
		BaseURL:    c.Config.GetQdrantURL(),
		APIKey:     c.Config.GetQdrantAPIKey(),
		Collection: c.Config.GetQdrantCollection(),
	})
	if err := ensureCollection(ctx, embedder, index); err != nil {
		c.Log.Warn("vector search unavailable, using token matching", "error", err)
		c.Inquiries = inquiry.NewStore(repo, nil, c.Log)
		c.Matcher = tokens
		return
	}
	vector := inquiry.NewVectorMatcher(embedder, index, repo, vectorMinScore)
	c.Inquiries = inquiry.NewStore(repo, vector, c.Log)
	c.Matcher = inquiry.NewFallbackMatcher(vector, tokens, c.Log)
}

// ensureCollection sizes the collection from a probe embedding.
func ensureCollection(ctx context.Context, embedder *embeddings.Client, index *qdrant.Client) error {
	vec, err := embedder.Embed(ctx, "property inquiry")
	if err != nil {
		return fmt.Errorf("probe embedding: %w", err)
	}
	if len(vec) == 0 {
		return errors.New("probe embedding is empty")
	}
	return index.EnsureCollection(ctx, len(vec))
}

// DedupCache is Redis-backed when Redis is configured, so replicas share it.
func (c *Components) DedupCache() dedup.Cache {
	if c.Redis != nil {
		return dedup.NewRedisCache(c.Redis, dedupKeyPrefix, c.Config.GetDedupTTL())
	}
	return dedup.NewMemoryCache(c.Config.GetDedupCapacity(), c.Config.GetDedupTTL())
}

// Health pings the primary store and reports mailbox credentials that could
// not be persisted after a refresh.
func (c *Components) Health() HealthChecker {
	var checks healthChecks
	switch {
	case c.Pool != nil:
		checks = append(checks, c.Pool)
	case c.SQLite != nil:
		checks = append(checks, sqlPinger{c.SQLite})
	}
	if c.Credentials != nil {
		checks = append(checks, c.Credentials)
	}
	if len(checks) == 0 {
		return nil
	}
	return checks
}

// HealthChecker matches http.HealthChecker.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type sqlPinger struct{ db *sql.DB }

func (p sqlPinger) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

type healthChecks []HealthChecker

func (hs healthChecks) Ping(ctx context.Context) error {
	for _, h := range hs {
		if err := h.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// WithRetry runs fn up to attempts times with quadratic backoff.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
