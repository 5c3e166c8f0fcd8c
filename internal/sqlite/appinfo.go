package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// appInfoTracker caches the bidirectional mapping between package names and
// application_info_table row ids. The table only ever grows, so the cache is
// never invalidated, only extended.
type appInfoTracker struct {
	mu          sync.RWMutex
	idByPackage map[string]int64
	packageByID map[int64]string
}

func newAppInfoTracker() *appInfoTracker {
	return &appInfoTracker{
		idByPackage: make(map[string]int64),
		packageByID: make(map[int64]string),
	}
}

// load populates the cache from the database at attach time.
func (t *appInfoTracker) load(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx,
		"SELECT "+ColumnRowID+", "+ColumnPackageName+" FROM "+ApplicationInfoTable)
	if err != nil {
		return fmt.Errorf("loading application info: %w", err)
	}
	defer rows.Close()

	t.mu.Lock()
	defer t.mu.Unlock()
	for rows.Next() {
		var id int64
		var pkg string
		if err := rows.Scan(&id, &pkg); err != nil {
			return fmt.Errorf("scanning application info: %w", err)
		}
		t.idByPackage[pkg] = id
		t.packageByID[id] = pkg
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating application info: %w", err)
	}
	return nil
}

// register inserts a new application row inside the caller's transaction and
// returns its id. It never touches the cache: the insert can still roll back
// with the transaction, so the caller must add the mapping only after a
// successful commit.
func (t *appInfoTracker) register(ctx context.Context, tx *sql.Tx, packageName string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO "+ApplicationInfoTable+" ("+ColumnPackageName+") VALUES (?)", packageName)
	if err != nil {
		return 0, fmt.Errorf("registering package %s: %w", packageName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("registering package %s: %w", packageName, err)
	}
	return id, nil
}

// add records a committed package registration in the cache.
func (t *appInfoTracker) add(packageName string, id int64) {
	t.mu.Lock()
	t.idByPackage[packageName] = id
	t.packageByID[id] = packageName
	t.mu.Unlock()
}

// id returns the app id for a package name, false when unknown.
func (t *appInfoTracker) id(packageName string) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.idByPackage[packageName]
	return id, ok
}

// ids resolves package names to app ids, silently dropping unknown packages.
// Callers decide how to treat an empty result.
func (t *appInfoTracker) ids(packageNames []string) []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]int64, 0, len(packageNames))
	for _, pkg := range packageNames {
		if id, ok := t.idByPackage[pkg]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// packageName returns the package name for an app id, empty when unknown.
func (t *appInfoTracker) packageName(id int64) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.packageByID[id]
}
