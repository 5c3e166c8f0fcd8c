// Package sqlite implements the SQLite storage backend for healthstore.
// All SQL executed here is rendered by the request builders; this package
// owns the database lifecycle, the transactional choreography, and the
// hydration between rows and records.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/perch-health/healthstore/internal/request"
	"github.com/perch-health/healthstore/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// dbFileName is the database file created inside Config.DataDir.
const dbFileName = "healthstore.db"

// Store is the attachable SQLite-backed record store. The zero value is
// unusable; call NewStore, then Attach with a Config.
type Store struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	logger   *zap.Logger
	apps     *appInfoTracker
	helpers  map[string]RecordHelper
	tm       *TransactionManager
}

// NewStore creates a detached store. A nil logger disables logging.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger}
}

// Attach opens (or creates) the database under config.DataDir, migrates the
// schema, and builds the record helper registry. Returns
// types.ErrAlreadyAttached when called twice without a Detach.
func (s *Store) Attach(ctx context.Context, config types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(ctx, db, s.logger); err != nil {
		db.Close()
		return err
	}

	apps := newAppInfoTracker()
	if err := apps.load(ctx, db); err != nil {
		db.Close()
		return err
	}

	helpers := map[string]RecordHelper{
		types.RecordTypeSteps:         newStepsHelper(apps),
		types.RecordTypeHeartRate:     newHeartRateHelper(apps),
		types.RecordTypeBloodPressure: newBloodPressureHelper(apps),
	}

	s.db = db
	s.config = config
	s.apps = apps
	s.helpers = helpers
	s.tm = newTransactionManager(db, s.logger, apps, helpers, nowMillis)
	s.attached = true

	s.logger.Info("store attached", zap.String("db", dbPath))
	return nil
}

// Detach closes the database. Idempotent; all operations after Detach return
// types.ErrStoreDetached.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	s.db = nil
	s.tm = nil
	s.helpers = nil
	s.apps = nil
	s.attached = false

	s.logger.Info("store detached")
	return nil
}

// Insert writes the records on behalf of callerPackage and returns their
// UUIDs in input order. Records carrying their own package name keep it;
// records without one are attributed to the caller.
func (s *Store) Insert(ctx context.Context, callerPackage string, records []types.Record) ([]string, error) {
	tm, err := s.manager()
	if err != nil {
		return nil, err
	}
	return tm.UpsertRecords(ctx, records, callerPackage)
}

// Read returns one page of records matching the filter, plus the token for
// the next page ("" on the last page). enforceSelfRead restricts results to
// the caller's own records regardless of the filter's package list.
func (s *Store) Read(ctx context.Context, callerPackage string, filter types.ReadFilter,
	enforceSelfRead bool) ([]types.Record, string, error) {
	tm, err := s.manager()
	if err != nil {
		return nil, "", err
	}

	txn, err := request.NewReadTransactionRequest(s.helpers[filter.RecordType], filter,
		callerPackage, enforceSelfRead, s.historicalAccessStartMillis())
	if err != nil {
		return nil, "", err
	}
	ascending := filter.Ascending
	if txn.PageToken() != nil {
		ascending = txn.PageToken().Ascending
	}
	return tm.ExecuteRead(ctx, txn, ascending)
}

// ReadByIDs returns the caller's records with the given UUIDs. Missing or
// foreign UUIDs are silently absent from the result.
func (s *Store) ReadByIDs(ctx context.Context, callerPackage, recordType string,
	uuids []string) ([]types.Record, error) {
	tm, err := s.manager()
	if err != nil {
		return nil, err
	}
	txn, err := request.NewReadByIDTransactionRequest(s.helpers[recordType], callerPackage, uuids)
	if err != nil {
		return nil, err
	}
	records, _, err := tm.ExecuteRead(ctx, txn, true)
	return records, err
}

// Delete removes the records matched by the filter and returns their UUIDs.
// With enforceOwnership, a matched record owned by another package aborts
// the delete with types.ErrNotOwned.
func (s *Store) Delete(ctx context.Context, callerPackage string, filter types.DeleteFilter,
	enforceOwnership bool) ([]string, error) {
	tm, err := s.manager()
	if err != nil {
		return nil, err
	}
	helper, err := tm.helperFor(filter.RecordType)
	if err != nil {
		return nil, err
	}
	return tm.ExecuteDelete(ctx, helper, filter, callerPackage, enforceOwnership)
}

// Changes returns changelog entries after sinceRowID, oldest first.
func (s *Store) Changes(ctx context.Context, sinceRowID int64, limit int) ([]types.ChangeLog, error) {
	tm, err := s.manager()
	if err != nil {
		return nil, err
	}
	return tm.ChangeLogs(ctx, sinceRowID, limit)
}

// ChangedRecords reads the current contents of the records named by upsert
// entries in logs, scoped to callerPackage. Use after Changes to turn a
// changelog page into record payloads.
func (s *Store) ChangedRecords(ctx context.Context, callerPackage string,
	logs []types.ChangeLog) ([]types.Record, error) {
	tm, err := s.manager()
	if err != nil {
		return nil, err
	}
	return tm.ChangedRecords(ctx, callerPackage, logs)
}

// manager returns the transaction manager under the attachment lock.
func (s *Store) manager() (*TransactionManager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.attached {
		return nil, types.ErrStoreDetached
	}
	return s.tm, nil
}

// historicalAccessStartMillis converts the configured rolling window to an
// absolute lower bound, zero when the window is disabled.
func (s *Store) historicalAccessStartMillis() int64 {
	if s.config.HistoricalAccessDays <= 0 {
		return 0
	}
	return nowMillis() - int64(s.config.HistoricalAccessDays)*24*int64(time.Hour/time.Millisecond)
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// generateUUID returns a new UUID v7 for record identity, falling back to v4
// when the clock-based generator fails.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
