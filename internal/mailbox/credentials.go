package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"contract_workflow_backend/platform/logger"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnauthorized marks a mailbox call rejected for an expired or
	// invalid access token. It triggers a refresh.
	ErrUnauthorized = errors.New("mailbox: unauthorized")
	// ErrNoCredentials is returned by a TokenStore holding no token pair.
	ErrNoCredentials = errors.New("mailbox: no stored credentials")
	// ErrNotPersisted is reported by Ping while a refreshed pair exists only
	// in memory.
	ErrNotPersisted = errors.New("mailbox: refreshed credentials not persisted")
)

// Credentials is the access/refresh token pair.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// TokenStore persists the credential pair.
type TokenStore interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
}

// Refresher exchanges a refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Credentials, error)
}

// State is the credential lifecycle state.
type State int

const (
	StateValid State = iota
	StateRefreshing
	StateFailed
	// StateUnpersisted: the refreshed pair works but the store rejected it.
	// A restart in this state loses a rotated refresh token.
	StateUnpersisted
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "VALID"
	case StateRefreshing:
		return "REFRESHING"
	case StateFailed:
		return "FAILED"
	case StateUnpersisted:
		return "UNPERSISTED"
	default:
		return "UNKNOWN"
	}
}

const refreshTimeout = 30 * time.Second

// Manager owns the credential pair. Callers never see the refresh token;
// they run mailbox calls through AuthorizedCall.
type Manager struct {
	store     TokenStore
	refresher Refresher
	log       *logger.Logger

	mu         sync.RWMutex
	creds      Credentials
	generation uint64
	state      State
	persistErr error

	group singleflight.Group
}

// NewManager loads the stored pair. A store without credentials is not an
// error: the manager starts FAILED and the first call surfaces the mailbox's
// own rejection.
func NewManager(ctx context.Context, store TokenStore, refresher Refresher, log *logger.Logger) (*Manager, error) {
	m := &Manager{store: store, refresher: refresher, log: log}
	creds, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoCredentials):
		m.state = StateFailed
		log.Warn("mailbox credentials missing; complete the login flow to connect the mailbox")
	case err != nil:
		return nil, fmt.Errorf("load mailbox credentials: %w", err)
	default:
		m.creds = creds
	}
	return m, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) snapshot() (string, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.AccessToken, m.generation
}

// Ping reports whether the current pair is safely stored. An unpersisted pair
// is written again first.
func (m *Manager) Ping(ctx context.Context) error {
	return m.flushUnpersisted(ctx)
}

// flushUnpersisted retries the store write of a pair that failed to persist.
func (m *Manager) flushUnpersisted(ctx context.Context) error {
	m.mu.RLock()
	pending, creds, gen := m.persistErr != nil, m.creds, m.generation
	m.mu.RUnlock()
	if !pending {
		return nil
	}

	err := m.store.Save(ctx, creds)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return nil
	}
	if err != nil {
		m.persistErr = err
		return fmt.Errorf("%w: %v", ErrNotPersisted, err)
	}
	m.persistErr = nil
	if m.state == StateUnpersisted {
		m.state = StateValid
	}
	m.log.WithContext(ctx).Info("mailbox credentials persisted after earlier failure")
	return nil
}

// AuthorizedCall runs fn with the current access token. When fn fails with
// ErrUnauthorized the pair is refreshed once and fn retried once. If the
// refresh fails, fn's original error is returned.
func (m *Manager) AuthorizedCall(ctx context.Context, fn func(ctx context.Context, accessToken string) error) error {
	if err := m.flushUnpersisted(ctx); err != nil {
		m.log.WithContext(ctx).Error("mailbox credentials still not persisted", "error", err)
	}
	token, gen := m.snapshot()
	err := fn(ctx, token)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	fresh, refreshErr := m.refresh(ctx, gen)
	if refreshErr != nil {
		m.log.WithContext(ctx).Error("mailbox token refresh failed", "error", refreshErr)
		return err
	}
	return fn(ctx, fresh)
}

// refresh returns a token newer than generation seen. Concurrent callers that
// saw the same generation share one refresh.
func (m *Manager) refresh(ctx context.Context, seen uint64) (string, error) {
	m.mu.RLock()
	if m.generation != seen {
		token := m.creds.AccessToken
		m.mu.RUnlock()
		return token, nil
	}
	m.mu.RUnlock()

	v, err, _ := m.group.Do(strconv.FormatUint(seen, 10), func() (any, error) {
		m.mu.Lock()
		if m.generation != seen {
			token := m.creds.AccessToken
			m.mu.Unlock()
			return token, nil
		}
		refreshToken := m.creds.RefreshToken
		m.state = StateRefreshing
		m.mu.Unlock()

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		if refreshToken == "" {
			m.setState(StateFailed)
			return nil, errors.New("no refresh token available")
		}
		creds, err := m.refresher.Refresh(rctx, refreshToken)
		if err != nil {
			m.setState(StateFailed)
			return nil, err
		}
		if creds.RefreshToken == "" {
			creds.RefreshToken = refreshToken
		}
		// The old refresh token may already be revoked, so the new pair is
		// adopted even when it cannot be stored.
		saveErr := m.store.Save(rctx, creds)
		if saveErr != nil {
			saveErr = m.store.Save(rctx, creds)
		}

		m.mu.Lock()
		m.creds = creds
		m.generation++
		m.persistErr = saveErr
		m.state = StateValid
		if saveErr != nil {
			m.state = StateUnpersisted
		}
		m.mu.Unlock()

		if saveErr != nil {
			m.log.WithContext(ctx).Error("refreshed mailbox credentials held in memory only; a restart will require the login flow",
				"error", saveErr)
		} else {
			m.log.WithContext(ctx).Info("mailbox credentials refreshed")
		}
		return creds.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
