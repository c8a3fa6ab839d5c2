// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// KVConfig selects the key-value backend used by the vendor directory and deadline store.
type KVConfig interface {
	GetKVBackend() string
	GetSQLitePath() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetInternalAPISecret() string
}

// SchedulerConfig provides Redis and asynq settings.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSLASweepCron() string
	GetTargetTimezone() string
}

// DedupConfig provides settings for the delivery deduplication cache.
type DedupConfig interface {
	GetRedisURL() string
	GetDedupCapacity() int
	GetDedupTTL() time.Duration
}

// MailboxConfig provides settings for the mailbox (Graph) integration.
type MailboxConfig interface {
	GetGraphBaseURL() string
	GetOAuthClientID() string
	GetOAuthClientSecret() string
	GetOAuthRedirectURI() string
	GetOAuthTokenURL() string
	GetOAuthScopes() []string
	GetTokenStore() string
	GetTokenDotenvPath() string
	GetTokenEncryptionSecret() string
	GetSubscriptionNotificationURL() string
	GetSubscriptionClientState() string
}

// ReasoningConfig provides settings for the LLM-backed reasoning agents.
type ReasoningConfig interface {
	GetLLMAPIKey() string
	GetLLMBaseURL() string
	GetLLMModel() string
	GetLLMRouterModel() string
	GetReasoningTimeout() time.Duration
}

// NotifyConfig provides settings for outbound notifications.
type NotifyConfig interface {
	GetMailTransport() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetNotifyTimeout() time.Duration
}

// WorkflowConfig provides fixed workflow addresses and the civil timezone.
type WorkflowConfig interface {
	GetInternalAlertEmail() string
	GetSLAAlertEmail() string
	GetTargetTimezone() string
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketAttachments() string
	IsMinIOEnabled() bool
}

// QdrantConfig provides settings for Qdrant vector database.
type QdrantConfig interface {
	GetQdrantURL() string
	GetQdrantAPIKey() string
	GetQdrantCollection() string
	IsQdrantEnabled() bool
}

// EmbeddingConfig provides settings for the embedding API service.
type EmbeddingConfig interface {
	GetEmbeddingAPIURL() string
	GetEmbeddingAPIKey() string
	GetEmbeddingModel() string
	IsEmbeddingEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                         string
	HTTPAddr                    string
	InternalAPISecret           string
	DatabaseURL                 string
	KVBackend                   string
	SQLitePath                  string
	RedisURL                    string
	RedisTLSInsecure            bool
	AsynqQueueName              string
	AsynqConcurrency            int
	SLASweepCron                string
	TargetTimezone              string
	DedupCapacity               int
	DedupTTL                    time.Duration
	GraphBaseURL                string
	OAuthClientID               string
	OAuthClientSecret           string
	OAuthRedirectURI            string
	OAuthTokenURL               string
	OAuthScopes                 []string
	TokenStore                  string
	TokenDotenvPath             string
	TokenEncryptionSecret       string
	SubscriptionNotificationURL string
	SubscriptionClientState     string
	LLMAPIKey                   string
	LLMBaseURL                  string
	LLMModel                    string
	LLMRouterModel              string
	ReasoningTimeout            time.Duration
	MailTransport               string
	SMTPHost                    string
	SMTPPort                    int
	SMTPUsername                string
	SMTPPassword                string
	EmailFromName               string
	EmailFromAddress            string
	NotifyTimeout               time.Duration
	InternalAlertEmail          string
	SLAAlertEmail               string
	MinIOEndpoint               string
	MinIOAccessKey              string
	MinIOSecretKey              string
	MinIOUseSSL                 bool
	MinIOMaxFileSize            int64
	MinioBucketAttachments      string
	QdrantURL                   string
	QdrantAPIKey                string
	QdrantCollection            string
	EmbeddingAPIURL             string
	EmbeddingAPIKey             string
	EmbeddingModel              string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// KVConfig implementation
func (c *Config) GetKVBackend() string  { return c.KVBackend }
func (c *Config) GetSQLitePath() string { return c.SQLitePath }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string          { return c.HTTPAddr }
func (c *Config) GetInternalAPISecret() string { return c.InternalAPISecret }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetSLASweepCron() string   { return c.SLASweepCron }
func (c *Config) GetTargetTimezone() string { return c.TargetTimezone }

// DedupConfig implementation
func (c *Config) GetDedupCapacity() int      { return c.DedupCapacity }
func (c *Config) GetDedupTTL() time.Duration { return c.DedupTTL }

// MailboxConfig implementation
func (c *Config) GetGraphBaseURL() string                { return c.GraphBaseURL }
func (c *Config) GetOAuthClientID() string               { return c.OAuthClientID }
func (c *Config) GetOAuthClientSecret() string           { return c.OAuthClientSecret }
func (c *Config) GetOAuthRedirectURI() string            { return c.OAuthRedirectURI }
func (c *Config) GetOAuthTokenURL() string               { return c.OAuthTokenURL }
func (c *Config) GetOAuthScopes() []string               { return c.OAuthScopes }
func (c *Config) GetTokenStore() string                  { return c.TokenStore }
func (c *Config) GetTokenDotenvPath() string             { return c.TokenDotenvPath }
func (c *Config) GetTokenEncryptionSecret() string       { return c.TokenEncryptionSecret }
func (c *Config) GetSubscriptionNotificationURL() string { return c.SubscriptionNotificationURL }
func (c *Config) GetSubscriptionClientState() string     { return c.SubscriptionClientState }

// ReasoningConfig implementation
func (c *Config) GetLLMAPIKey() string               { return c.LLMAPIKey }
func (c *Config) GetLLMBaseURL() string              { return c.LLMBaseURL }
func (c *Config) GetLLMModel() string                { return c.LLMModel }
func (c *Config) GetLLMRouterModel() string          { return c.LLMRouterModel }
func (c *Config) GetReasoningTimeout() time.Duration { return c.ReasoningTimeout }

// NotifyConfig implementation
func (c *Config) GetMailTransport() string        { return c.MailTransport }
func (c *Config) GetSMTPHost() string             { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string         { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string         { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string        { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string     { return c.EmailFromAddress }
func (c *Config) GetNotifyTimeout() time.Duration { return c.NotifyTimeout }

// WorkflowConfig implementation
func (c *Config) GetInternalAlertEmail() string { return c.InternalAlertEmail }
func (c *Config) GetSLAAlertEmail() string      { return c.SLAAlertEmail }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string          { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string         { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string         { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool              { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64        { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketAttachments() string { return c.MinioBucketAttachments }
func (c *Config) IsMinIOEnabled() bool              { return c.MinIOEndpoint != "" }

// QdrantConfig implementation
func (c *Config) GetQdrantURL() string        { return c.QdrantURL }
func (c *Config) GetQdrantAPIKey() string     { return c.QdrantAPIKey }
func (c *Config) GetQdrantCollection() string { return c.QdrantCollection }
func (c *Config) IsQdrantEnabled() bool {
	return c.QdrantURL != "" && c.QdrantCollection != ""
}

// EmbeddingConfig implementation
func (c *Config) GetEmbeddingAPIURL() string { return c.EmbeddingAPIURL }
func (c *Config) GetEmbeddingAPIKey() string { return c.EmbeddingAPIKey }
func (c *Config) GetEmbeddingModel() string  { return c.EmbeddingModel }
func (c *Config) IsEmbeddingEnabled() bool   { return c.EmbeddingAPIURL != "" }

const defaultOAuthScopes = "openid,email,profile,offline_access,Mail.Read,Mail.Send"

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                         getEnv("APP_ENV", "development"),
		HTTPAddr:                    getEnv("HTTP_ADDR", ":8080"),
		InternalAPISecret:           getEnv("INTERNAL_API_SECRET", ""),
		DatabaseURL:                 getEnv("DATABASE_URL", ""),
		KVBackend:                   strings.ToLower(getEnv("KV_BACKEND", "postgres")),
		SQLitePath:                  getEnv("SQLITE_PATH", "data/workflow.db"),
		RedisURL:                    getEnv("REDIS_URL", ""),
		RedisTLSInsecure:            strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:              getEnv("ASYNQ_QUEUE", "contracts"),
		AsynqConcurrency:            mustInt(getEnv("ASYNQ_CONCURRENCY", "4")),
		SLASweepCron:                getEnv("SLA_SWEEP_CRON", "0 9 * * *"),
		TargetTimezone:              getEnv("TARGET_TIMEZONE", "Australia/Melbourne"),
		DedupCapacity:               mustInt(getEnv("DEDUP_CAPACITY", "1000")),
		DedupTTL:                    mustDuration(getEnv("DEDUP_TTL", "10m")),
		GraphBaseURL:                getEnv("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
		OAuthClientID:               getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret:           getEnv("OAUTH_CLIENT_SECRET", ""),
		OAuthRedirectURI:            getEnv("OAUTH_REDIRECT_URI", ""),
		OAuthTokenURL:               getEnv("OAUTH_TOKEN_URL", "https://login.microsoftonline.com/common/oauth2/v2.0/token"),
		OAuthScopes:                 splitCSV(getEnv("OAUTH_SCOPES", defaultOAuthScopes)),
		TokenStore:                  strings.ToLower(getEnv("TOKEN_STORE", "dotenv")),
		TokenDotenvPath:             getEnv("TOKEN_DOTENV_PATH", ".env"),
		TokenEncryptionSecret:       getEnv("TOKEN_ENCRYPTION_SECRET", ""),
		SubscriptionNotificationURL: getEnv("SUBSCRIPTION_NOTIFICATION_URL", ""),
		SubscriptionClientState:     getEnv("SUBSCRIPTION_CLIENT_STATE", ""),
		LLMAPIKey:                   getEnv("LLM_API_KEY", ""),
		LLMBaseURL:                  getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:                    getEnv("LLM_MODEL", "gpt-4.1"),
		LLMRouterModel:              getEnv("LLM_ROUTER_MODEL", "gpt-4.1-mini"),
		ReasoningTimeout:            mustDuration(getEnv("REASONING_TIMEOUT", "90s")),
		MailTransport:               strings.ToLower(getEnv("MAIL_TRANSPORT", "graph")),
		SMTPHost:                    getEnv("SMTP_HOST", ""),
		SMTPPort:                    mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:                getEnv("SMTP_USERNAME", ""),
		SMTPPassword:                getEnv("SMTP_PASSWORD", ""),
		EmailFromName:               getEnv("EMAIL_FROM_NAME", "OneCorp"),
		EmailFromAddress:            getEnv("EMAIL_FROM_ADDRESS", ""),
		NotifyTimeout:               mustDuration(getEnv("NOTIFY_TIMEOUT", "20s")),
		InternalAlertEmail:          getEnv("INTERNAL_ALERT_EMAIL", ""),
		SLAAlertEmail:               getEnv("SLA_ALERT_EMAIL", ""),
		MinIOEndpoint:               getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:              getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:              getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                 strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:            mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "52428800")),
		MinioBucketAttachments:      getEnv("MINIO_BUCKET_ATTACHMENTS", "mail-attachments"),
		QdrantURL:                   getEnv("QDRANT_URL", ""),
		QdrantAPIKey:                getEnv("QDRANT_API_KEY", ""),
		QdrantCollection:            getEnv("QDRANT_COLLECTION", ""),
		EmbeddingAPIURL:             getEnv("EMBEDDING_API_URL", ""),
		EmbeddingAPIKey:             getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:              getEnv("EMBEDDING_MODEL", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.KVBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when KV_BACKEND is postgres")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("KV_BACKEND must be one of postgres, sqlite, memory (got %q)", c.KVBackend)
	}

	switch c.TokenStore {
	case "dotenv":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when TOKEN_STORE is postgres")
		}
		if c.TokenEncryptionSecret == "" {
			return fmt.Errorf("TOKEN_ENCRYPTION_SECRET is required when TOKEN_STORE is postgres")
		}
	default:
		return fmt.Errorf("TOKEN_STORE must be dotenv or postgres (got %q)", c.TokenStore)
	}

	switch c.MailTransport {
	case "graph", "noop":
	case "smtp":
		if c.SMTPHost == "" || c.EmailFromAddress == "" {
			return fmt.Errorf("SMTP_HOST and EMAIL_FROM_ADDRESS are required when MAIL_TRANSPORT is smtp")
		}
	default:
		return fmt.Errorf("MAIL_TRANSPORT must be graph, smtp or noop (got %q)", c.MailTransport)
	}

	if _, err := time.LoadLocation(c.TargetTimezone); err != nil {
		return fmt.Errorf("TARGET_TIMEZONE %q: %w", c.TargetTimezone, err)
	}
	if c.DedupTTL <= 0 {
		return fmt.Errorf("DEDUP_TTL must be a positive duration")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
