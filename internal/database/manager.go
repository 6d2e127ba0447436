package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"liveacademy/internal/logging"
	"liveacademy/internal/metrics"
	dbconfig "liveacademy/pkg/database"
)

// Store errors
var (
	ErrManagerClosed = errors.New("database manager is closed")
	ErrWriteTimeout  = errors.New("write operation timeout")
)

// Manager is the persistent record store
// ARCHITECTURAL DISCOVERY: All writes go through one goroutine; reads use
// the connection pool directly. Read-modify-write operations run entirely
// inside the writer so they observe no interleaved writes.
type Manager struct {
	db           *sql.DB
	driver       string
	psq          sq.StatementBuilderType
	writeTimeout time.Duration
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

type writeOperation struct {
	ctx       context.Context
	operation func(ctx context.Context, db *sql.DB) error
	result    chan error
}

// NewManager opens the configured database and starts the writer
func NewManager(config *dbconfig.Config) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	db, err := sql.Open(config.Driver, config.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := dbconfig.ApplyOptimizations(db, config.Driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply %s optimizations: %w", config.Driver, err)
	}

	return NewManagerWithDB(db, config.Driver, config.WriteTimeout), nil
}

// NewManagerWithDB wraps an already opened handle
func NewManagerWithDB(db *sql.DB, driver string, writeTimeout time.Duration) *Manager {
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	manager := &Manager{
		db:           db,
		driver:       driver,
		psq:          dbconfig.StatementBuilder(driver),
		writeTimeout: writeTimeout,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	manager.wg.Add(1)
	go manager.writeLoop()

	return manager
}

// Migrate applies the embedded schema and validates the result
func (m *Manager) Migrate() error {
	mm := dbconfig.NewMigrationManager(m.db, m.driver)
	if err := mm.ApplyMigrations(); err != nil {
		return err
	}
	return mm.ValidateSchema()
}

// writeLoop processes all write operations in a single goroutine
// FUNCTIONAL DISCOVERY: Failed writes are not retried here; the caller sees
// the error and decides
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			if err := op.ctx.Err(); err != nil {
				op.result <- err
				continue
			}
			start := time.Now()
			err := op.operation(op.ctx, m.db)
			metrics.ObserveDBWrite(err, time.Since(start))
			if err != nil {
				logging.Debug().Err(err).Msg("database write failed")
			}
			op.result <- err

		case <-m.shutdown:
			logging.Info().Msg("database write loop shutting down")
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion
func (m *Manager) executeWrite(ctx context.Context, operation func(ctx context.Context, db *sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrManagerClosed
	}
	m.mu.RUnlock()

	result := make(chan error, 1)
	timer := time.NewTimer(m.writeTimeout)
	defer timer.Stop()

	select {
	case m.writeChannel <- writeOperation{ctx: ctx, operation: operation, result: result}:
	case <-timer.C:
		return ErrWriteTimeout
	case <-ctx.Done():
		return ctx.Err()
	case <-m.shutdown:
		return ErrManagerClosed
	}

	select {
	case err := <-result:
		return err
	case <-m.shutdown:
		// The writer may have finished our operation just before exiting
		select {
		case err := <-result:
			return err
		default:
			return ErrManagerClosed
		}
	}
}

// HealthCheck validates database connectivity
func (m *Manager) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrManagerClosed
	}

	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// GetDB exposes the handle for migrations and diagnostics
func (m *Manager) GetDB() *sql.DB {
	return m.db
}

// Driver returns the configured driver name
func (m *Manager) Driver() string {
	return m.driver
}

// Close stops the writer after in-flight work and closes the handle
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	return m.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
