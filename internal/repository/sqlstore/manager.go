package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"pricepilot/internal/domain"
	"pricepilot/internal/repository"
)

const initTimeout = 15 * time.Second

// Opener establishes the underlying connection. Open is the production opener.
type Opener func(ctx context.Context, dsn string) (*sql.DB, Dialect, error)

type handle struct {
	db    *sql.DB
	users *UserRepository
}

// Manager lazily opens one database connection for the process lifetime and
// hands the same user store to every caller.
type Manager struct {
	dsn    string
	open   Opener
	logger logrus.FieldLogger

	mu     sync.Mutex
	handle atomic.Pointer[handle]
}

type ManagerOption func(*Manager)

func WithOpener(open Opener) ManagerOption {
	return func(m *Manager) { m.open = open }
}

func WithLogger(logger logrus.FieldLogger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

func NewManager(dsn string, opts ...ManagerOption) *Manager {
	m := &Manager{
		dsn:    strings.TrimSpace(dsn),
		open:   Open,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Users returns the shared user store, connecting and ensuring the schema on first use.
// A failed attempt is not cached; a successful one is never repeated.
func (m *Manager) Users(ctx context.Context) (repository.UserRepository, error) {
	if h := m.handle.Load(); h != nil {
		return h.users, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if h := m.handle.Load(); h != nil {
		return h.users, nil
	}
	if m.dsn == "" {
		return nil, domain.MissingConfig("database.url")
	}

	// detached from the triggering request's cancellation
	initCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), initTimeout)
	defer cancel()

	db, dialect, err := m.open(initCtx, m.dsn)
	if err != nil {
		return nil, fmt.Errorf("connect user store: %w", err)
	}

	users := NewUserRepository(db, dialect)
	if err := users.Init(initCtx); err != nil {
		db.Close()
		return nil, err
	}

	m.handle.Store(&handle{db: db, users: users})
	m.logger.WithField("dialect", dialect.Name).Info("user store connected")
	return users, nil
}

// Close releases the connection if one was opened.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.handle.Swap(nil)
	if h == nil {
		return nil
	}
	return h.db.Close()
}
