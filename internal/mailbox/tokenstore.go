package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"contract_workflow_backend/platform/tokencrypt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const (
	accessTokenKey  = "ACCESS_TOKEN"
	refreshTokenKey = "REFRESH_TOKEN"
)

// DotenvStore keeps the pair in a dotenv file next to the rest of the
// process configuration. Other keys in the file are preserved; comments are not.
type DotenvStore struct {
	path string
	mu   sync.Mutex
}

// NewDotenvStore creates a store over the dotenv file at path.
func NewDotenvStore(path string) *DotenvStore {
	return &DotenvStore{path: path}
}

func (s *DotenvStore) Load(_ context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := godotenv.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	creds := Credentials{AccessToken: env[accessTokenKey], RefreshToken: env[refreshTokenKey]}
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return Credentials{}, ErrNoCredentials
	}
	return creds, nil
}

func (s *DotenvStore) Save(_ context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := godotenv.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		env = map[string]string{}
	} else if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	env[accessTokenKey] = creds.AccessToken
	env[refreshTokenKey] = creds.RefreshToken
	if err := godotenv.Write(env, s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// PostgresStore keeps the pair AES-GCM encrypted in mailbox_credentials.
type PostgresStore struct {
	pool    *pgxpool.Pool
	account string
	key     []byte
}

// NewPostgresStore creates a store for account. secret is stretched with
// HKDF into the encryption key.
func NewPostgresStore(pool *pgxpool.Pool, account, secret string) (*PostgresStore, error) {
	key, err := tokencrypt.DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, account: account, key: key}, nil
}

func (s *PostgresStore) Load(ctx context.Context) (Credentials, error) {
	var access, refresh string
	var expires *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT access_token, refresh_token, expires_at FROM mailbox_credentials WHERE account = $1`,
		s.account,
	).Scan(&access, &refresh, &expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("load mailbox credentials: %w", err)
	}

	var creds Credentials
	if creds.AccessToken, err = tokencrypt.Decrypt(access, s.key); err != nil {
		return Credentials{}, fmt.Errorf("decrypt access token: %w", err)
	}
	if creds.RefreshToken, err = tokencrypt.Decrypt(refresh, s.key); err != nil {
		return Credentials{}, fmt.Errorf("decrypt refresh token: %w", err)
	}
	if expires != nil {
		creds.Expiry = *expires
	}
	return creds, nil
}

func (s *PostgresStore) Save(ctx context.Context, creds Credentials) error {
	access, err := tokencrypt.Encrypt(creds.AccessToken, s.key)
	if err != nil {
		return err
	}
	refresh, err := tokencrypt.Encrypt(creds.RefreshToken, s.key)
	if err != nil {
		return err
	}
	var expires *time.Time
	if !creds.Expiry.IsZero() {
		expires = &creds.Expiry
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO mailbox_credentials (account, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (account) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = now()
	`, s.account, access, refresh, expires)
	if err != nil {
		return fmt.Errorf("save mailbox credentials: %w", err)
	}
	return nil
}
