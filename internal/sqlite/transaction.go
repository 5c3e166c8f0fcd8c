package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/perch-health/healthstore/internal/request"
	"github.com/perch-health/healthstore/pkg/types"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// TransactionManager executes the statements rendered by the request
// builders. It owns the transactional choreography the builders only
// describe: existence reads before upserts, child-table rewrites, pre-delete
// ownership reads, changelog bookkeeping, and page assembly.
type TransactionManager struct {
	db      *sql.DB
	logger  *zap.Logger
	apps    *appInfoTracker
	helpers map[string]RecordHelper
	now     func() int64
}

func newTransactionManager(db *sql.DB, logger *zap.Logger, apps *appInfoTracker,
	helpers map[string]RecordHelper, now func() int64) *TransactionManager {
	return &TransactionManager{db: db, logger: logger, apps: apps, helpers: helpers, now: now}
}

func (tm *TransactionManager) helperFor(recordType string) (RecordHelper, error) {
	helper, ok := tm.helpers[recordType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownRecordType, recordType)
	}
	return helper, nil
}

// UpsertRecords writes the records in one transaction and returns their
// UUIDs in input order. Each record is attributed to its own metadata
// package name, falling back to fallbackPackage when unset. Missing UUIDs
// are generated, last-modified stamps are always overwritten.
func (tm *TransactionManager) UpsertRecords(ctx context.Context, records []types.Record,
	fallbackPackage string) ([]string, error) {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer tx.Rollback()

	uuids := make([]string, 0, len(records))
	pending := make(map[string]int64)
	for _, rec := range records {
		helper, err := tm.helperFor(rec.RecordType())
		if err != nil {
			return nil, err
		}

		meta := rec.Meta()
		if meta.UUID == "" {
			meta.UUID = generateUUID()
		}
		if meta.PackageName == "" {
			meta.PackageName = fallbackPackage
		}
		if meta.RecordingMethod == "" {
			meta.RecordingMethod = types.RecordingMethodUnknown
		}
		meta.LastModifiedMillis = tm.now()

		appID, err := tm.resolveAppID(ctx, tx, meta.PackageName, pending)
		if err != nil {
			return nil, err
		}
		upsert, err := helper.UpsertRequest(rec, appID)
		if err != nil {
			return nil, err
		}
		_, writtenUUID, err := tm.executeUpsert(ctx, tx, upsert)
		if err != nil {
			return nil, fmt.Errorf("upserting %s %s: %w", rec.RecordType(), meta.UUID, err)
		}
		if writtenUUID != "" {
			meta.UUID = writtenUUID
		}
		if err := tm.appendChangeLog(ctx, tx, meta.UUID, rec.RecordType(), appID,
			types.ChangeOperationUpsert); err != nil {
			return nil, err
		}
		uuids = append(uuids, meta.UUID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing upsert transaction: %w", err)
	}
	// Package registrations become visible to the cache only once they are
	// durable; a rolled-back insert must not leave a dangling app id behind.
	for pkg, id := range pending {
		tm.apps.add(pkg, id)
	}
	tm.logger.Debug("upserted records", zap.Int("count", len(uuids)))
	return uuids, nil
}

// resolveAppID maps a package name to its app id, registering the package
// inside the transaction on first sight. Registrations made by this
// transaction are tracked in pending until commit.
func (tm *TransactionManager) resolveAppID(ctx context.Context, tx *sql.Tx,
	packageName string, pending map[string]int64) (int64, error) {
	if id, ok := tm.apps.id(packageName); ok {
		return id, nil
	}
	if id, ok := pending[packageName]; ok {
		return id, nil
	}
	id, err := tm.apps.register(ctx, tx, packageName)
	if err != nil {
		return 0, err
	}
	pending[packageName] = id
	return id, nil
}

// executeUpsert runs the two-phase insert-or-update for one request. It
// returns the row id of the written row and the uuid it carries: on an
// update this is the stored uuid, which survives even when the caller
// addressed the row by client id with a freshly generated identity.
func (tm *TransactionManager) executeUpsert(ctx context.Context, tx *sql.Tx,
	u *request.UpsertTableRequest) (int64, string, error) {
	writtenUUID := cast.ToString(u.ContentValues()[ColumnUUID])
	if !u.InsertOnly() && !u.UpdateWhereClauses().IsEmpty() {
		existing, err := tm.queryFirstRow(ctx, tx, u.ReadRequest().ReadCommand())
		if err != nil {
			return 0, "", err
		}
		if existing != nil {
			rowID := cast.ToInt64(existing[ColumnRowID])
			// UUIDs are immutable after creation: a match through the client
			// id keeps the stored identity.
			if stored := cast.ToString(existing[ColumnUUID]); stored != "" && stored != writtenUUID {
				u.SetContentValue(ColumnUUID, stored)
				writtenUUID = stored
			}
			if !u.RequiresUpdate(existing) {
				return rowID, writtenUUID, nil
			}
			if err := tm.updateRow(ctx, tx, u); err != nil {
				return 0, "", err
			}
			for _, pair := range u.ChildTablesToWipeOnUpdate() {
				wipe := request.NewDeleteTableRequest(pair.Table).
					SetExtraClauses(request.NewWhereClauses(request.LogicalAnd).
						AddEqualsLong(pair.Column, rowID))
				if _, err := tx.ExecContext(ctx, wipe.DeleteCommand()); err != nil {
					return 0, "", fmt.Errorf("wiping %s: %w", pair.Table, err)
				}
			}
			if err := tm.insertChildren(ctx, tx, u, rowID); err != nil {
				return 0, "", err
			}
			if err := tm.runPostUpsert(ctx, tx, u); err != nil {
				return 0, "", err
			}
			return rowID, writtenUUID, nil
		}
	}

	rowID, err := tm.insertRow(ctx, tx, u)
	if err != nil {
		return 0, "", err
	}
	if err := tm.insertChildren(ctx, tx, u, rowID); err != nil {
		return 0, "", err
	}
	if err := tm.runPostUpsert(ctx, tx, u); err != nil {
		return 0, "", err
	}
	return rowID, writtenUUID, nil
}

func (tm *TransactionManager) insertChildren(ctx context.Context, tx *sql.Tx,
	u *request.UpsertTableRequest, parentRowID int64) error {
	for _, child := range u.ChildRequests() {
		if _, err := tm.insertRow(ctx, tx, child.WithParentKey(parentRowID)); err != nil {
			return fmt.Errorf("inserting child row into %s: %w", child.Table(), err)
		}
	}
	return nil
}

func (tm *TransactionManager) runPostUpsert(ctx context.Context, tx *sql.Tx,
	u *request.UpsertTableRequest) error {
	for _, cmd := range u.PostUpsertCommands() {
		if _, err := tx.ExecContext(ctx, cmd); err != nil {
			return fmt.Errorf("post-upsert command: %w", err)
		}
	}
	return nil
}

// insertRow executes a parameterized INSERT of the request's content values
// and returns the assigned row id. Columns are sorted so the statement text
// is deterministic.
func (tm *TransactionManager) insertRow(ctx context.Context, q querier,
	u *request.UpsertTableRequest) (int64, error) {
	cv := u.ContentValues()
	columns := sortedColumns(cv)
	placeholders := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		placeholders[i] = "?"
		args[i] = cv[col]
	}
	stmt := "INSERT INTO " + u.Table() + " (" + strings.Join(columns, ", ") +
		") VALUES (" + strings.Join(placeholders, ", ") + ")"

	res, err := q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", u.Table(), err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", u.Table(), err)
	}
	return rowID, nil
}

// updateRow executes a parameterized UPDATE addressed by the request's
// uniqueness predicate.
func (tm *TransactionManager) updateRow(ctx context.Context, tx *sql.Tx,
	u *request.UpsertTableRequest) error {
	cv := u.ContentValues()
	columns := sortedColumns(cv)
	assignments := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		assignments[i] = col + " = ?"
		args[i] = cv[col]
	}
	stmt := "UPDATE " + u.Table() + " SET " + strings.Join(assignments, ", ") +
		u.UpdateWhereClauses().Get(true)

	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("updating %s: %w", u.Table(), err)
	}
	return nil
}

// ExecuteRead runs every table read in the transaction request, hydrates the
// rows, attaches child rows, and assembles the next page token. ascending is
// the effective ordering of the primary read; it only matters when the
// request paginates.
func (tm *TransactionManager) ExecuteRead(ctx context.Context,
	txn *request.ReadTransactionRequest, ascending bool) ([]types.Record, string, error) {
	var all []types.Record
	nextToken := ""

	for i, readReq := range txn.ReadRequests() {
		helper, err := tm.helperFor(txn.RecordTypes()[i])
		if err != nil {
			return nil, "", err
		}
		records, times, rowIDs, err := tm.readMainRows(ctx, helper, readReq, txn.PageToken())
		if err != nil {
			return nil, "", err
		}

		if pageSize := txn.PageSize(); pageSize > 0 && len(records) > pageSize {
			token, err := nextPageToken(times, pageSize, txn.PageToken(), ascending)
			if err != nil {
				return nil, "", err
			}
			nextToken = token
			records = records[:pageSize]
			rowIDs = rowIDs[:pageSize]
		}

		if err := tm.hydrateChildren(ctx, helper, records, rowIDs); err != nil {
			return nil, "", err
		}
		all = append(all, records...)
	}
	return all, nextToken, nil
}

// readMainRows scans one table read into records, skipping rows already
// consumed at the page token's boundary time.
func (tm *TransactionManager) readMainRows(ctx context.Context, helper RecordHelper,
	readReq *request.ReadTableRequest, token *request.PageToken) ([]types.Record, []int64, []int64, error) {
	rows, err := tm.queryRows(ctx, tm.db, readReq.ReadCommand())
	if err != nil {
		return nil, nil, nil, err
	}

	skip := int64(0)
	if token != nil {
		skip = token.Offset
	}

	var records []types.Record
	var times, rowIDs []int64
	for _, row := range rows {
		t := cast.ToInt64(row[helper.TimeColumn()])
		if skip > 0 && token != nil && t == token.TimeMillis {
			skip--
			continue
		}
		rec, err := helper.ScanRecord(row)
		if err != nil {
			return nil, nil, nil, err
		}
		rec.Meta().PackageName = tm.apps.packageName(cast.ToInt64(row[ColumnAppInfoID]))
		records = append(records, rec)
		times = append(times, t)
		rowIDs = append(rowIDs, cast.ToInt64(row[ColumnRowID]))
	}
	return records, times, rowIDs, nil
}

// hydrateChildren runs the child read for helpers that have one and folds
// each child row into its parent.
func (tm *TransactionManager) hydrateChildren(ctx context.Context, helper RecordHelper,
	records []types.Record, rowIDs []int64) error {
	hydrator, ok := helper.(childHydrator)
	if !ok || len(records) == 0 {
		return nil
	}
	byRowID := make(map[int64]types.Record, len(records))
	for i, rec := range records {
		byRowID[rowIDs[i]] = rec
	}

	childRows, err := tm.queryRows(ctx, tm.db, hydrator.ChildReadRequest(rowIDs).ReadCommand())
	if err != nil {
		return err
	}
	for _, row := range childRows {
		parent, ok := byRowID[cast.ToInt64(row[ColumnParentRowID])]
		if !ok {
			continue
		}
		if err := hydrator.AttachChildRow(parent, row); err != nil {
			return err
		}
	}
	return nil
}

// nextPageToken encodes the cursor pointing at the first row beyond the
// page. The offset counts kept rows sharing the boundary time, carrying over
// the previous token's offset when the boundary did not advance.
func nextPageToken(times []int64, pageSize int, prev *request.PageToken, ascending bool) (string, error) {
	boundary := times[pageSize]
	offset := int64(0)
	for i := 0; i < pageSize; i++ {
		if times[i] == boundary {
			offset++
		}
	}
	if prev != nil && prev.TimeMillis == boundary {
		offset += prev.Offset
	}
	return request.PageToken{Ascending: ascending, TimeMillis: boundary, Offset: offset}.Encode()
}

// ExecuteDelete removes the records matched by the filter in one
// transaction and returns their UUIDs. When enforceOwnership is set, a row
// owned by another package aborts the whole transaction with
// types.ErrNotOwned.
func (tm *TransactionManager) ExecuteDelete(ctx context.Context, helper RecordHelper,
	filter types.DeleteFilter, callerPackage string, enforceOwnership bool) ([]string, error) {
	appIDs := tm.apps.ids(filter.Packages)
	if len(filter.Packages) > 0 && len(appIDs) == 0 {
		appIDs = []int64{noMatchAppID}
	}

	del := request.NewDeleteTableRequest(helper.MainTable()).
		WithRecordType(helper.RecordType()).
		SetPackageFilter(ColumnAppInfoID, appIDs).
		SetIDFilter(ColumnUUID, filter.UUIDs...)
	if filter.Time.IsSet() {
		del.SetTimeFilter(helper.TimeColumn(), filter.Time.StartMillis, filter.Time.EndMillis)
	}
	if enforceOwnership {
		del.EnforcePackageCheck(ColumnAppInfoID, ColumnUUID)
	}

	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	// The pre-delete read always runs: ownership is verified before rows
	// disappear, and the changelog needs the UUIDs either way.
	targets, err := tm.queryRows(ctx, tx, del.ReadCommand())
	if err != nil {
		return nil, err
	}
	callerID, callerKnown := tm.apps.id(callerPackage)

	deleted := make([]string, 0, len(targets))
	for _, row := range targets {
		uuid := cast.ToString(row[ColumnUUID])
		appID := cast.ToInt64(row[ColumnAppInfoID])
		if del.PackageCheckEnforced() && (!callerKnown || appID != callerID) {
			return nil, fmt.Errorf("%w: %s", types.ErrNotOwned, uuid)
		}
		deleted = append(deleted, uuid)
	}
	if len(filter.UUIDs) > 0 && len(deleted) < len(filter.UUIDs) {
		return nil, fmt.Errorf("%w: %d of %d records", types.ErrNotFound,
			len(filter.UUIDs)-len(deleted), len(filter.UUIDs))
	}

	if _, err := tx.ExecContext(ctx, del.DeleteCommand()); err != nil {
		return nil, fmt.Errorf("deleting from %s: %w", helper.MainTable(), err)
	}
	for i, uuid := range deleted {
		appID := cast.ToInt64(targets[i][ColumnAppInfoID])
		if err := tm.appendChangeLog(ctx, tx, uuid, helper.RecordType(), appID,
			types.ChangeOperationDelete); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing delete transaction: %w", err)
	}
	tm.logger.Debug("deleted records",
		zap.String("record_type", helper.RecordType()), zap.Int("count", len(deleted)))
	return deleted, nil
}

// appendChangeLog records one mutation in the append-only log, inside the
// mutating transaction so log and data commit together.
func (tm *TransactionManager) appendChangeLog(ctx context.Context, tx *sql.Tx,
	uuid, recordType string, appID int64, operation string) error {
	entry := request.NewUpsertTableRequest(ChangeLogsTable, map[string]any{
		ColumnUUID:       uuid,
		ColumnRecordType: recordType,
		ColumnAppInfoID:  appID,
		ColumnOperation:  operation,
		ColumnTime:       tm.now(),
	})
	if _, err := tm.insertRow(ctx, tx, entry); err != nil {
		return fmt.Errorf("appending change log: %w", err)
	}
	return nil
}

// ChangeLogs returns log entries with row id greater than sinceRowID, oldest
// first, at most limit entries.
func (tm *TransactionManager) ChangeLogs(ctx context.Context, sinceRowID int64,
	limit int) ([]types.ChangeLog, error) {
	if limit <= 0 {
		limit = types.DefaultPageSize
	}
	readReq := request.NewReadTableRequest(ChangeLogsTable).
		WithWhere(request.NewWhereClauses(request.LogicalAnd).
			AddGreaterThan(ColumnRowID, sinceRowID)).
		WithOrderBy(request.NewOrderByClause().Add(ColumnRowID, true)).
		WithLimit(int64(limit))

	rows, err := tm.queryRows(ctx, tm.db, readReq.ReadCommand())
	if err != nil {
		return nil, err
	}
	logs := make([]types.ChangeLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, types.ChangeLog{
			RowID:       cast.ToInt64(row[ColumnRowID]),
			UUID:        cast.ToString(row[ColumnUUID]),
			RecordType:  cast.ToString(row[ColumnRecordType]),
			PackageName: tm.apps.packageName(cast.ToInt64(row[ColumnAppInfoID])),
			Operation:   cast.ToString(row[ColumnOperation]),
			TimeMillis:  cast.ToInt64(row[ColumnTime]),
		})
	}
	return logs, nil
}

// ChangedRecords hydrates the current contents of the records named by
// upsert entries in the given changelog slice, scoped to callerPackage the
// way a read-by-id is. Deleted records have no row left and are absent from
// the result.
func (tm *TransactionManager) ChangedRecords(ctx context.Context, callerPackage string,
	logs []types.ChangeLog) ([]types.Record, error) {
	uuidsByType := make(map[string][]string)
	seen := make(map[string]bool, len(logs))
	for _, entry := range logs {
		if entry.Operation != types.ChangeOperationUpsert || seen[entry.UUID] {
			continue
		}
		seen[entry.UUID] = true
		uuidsByType[entry.RecordType] = append(uuidsByType[entry.RecordType], entry.UUID)
	}
	if len(uuidsByType) == 0 {
		return nil, nil
	}

	providers := make(map[string]request.ReadRequestProvider, len(tm.helpers))
	for recordType, helper := range tm.helpers {
		providers[recordType] = helper
	}
	txn, err := request.NewChangelogReadTransactionRequest(providers, callerPackage, uuidsByType)
	if err != nil {
		return nil, err
	}
	records, _, err := tm.ExecuteRead(ctx, txn, true)
	return records, err
}

// readAllRecords hydrates every record of one type, children included,
// ordered by row id. Used by the export path, which bypasses package
// scoping.
func (tm *TransactionManager) readAllRecords(ctx context.Context, helper RecordHelper) ([]types.Record, error) {
	readReq := request.NewReadTableRequest(helper.MainTable()).
		WithRecordType(helper.RecordType()).
		WithOrderBy(request.NewOrderByClause().Add(ColumnRowID, true))

	records, _, rowIDs, err := tm.readMainRows(ctx, helper, readReq, nil)
	if err != nil {
		return nil, err
	}
	if err := tm.hydrateChildren(ctx, helper, records, rowIDs); err != nil {
		return nil, err
	}
	return records, nil
}

// queryRows runs one rendered statement and scans every row into a column
// name keyed map.
func (tm *TransactionManager) queryRows(ctx context.Context, q querier, stmt string) ([]map[string]any, error) {
	tm.logger.Debug("executing query", zap.String("sql", stmt))
	rows, err := q.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}

// queryFirstRow returns the first row of a rendered statement, nil when the
// statement matches nothing.
func (tm *TransactionManager) queryFirstRow(ctx context.Context, q querier, stmt string) (map[string]any, error) {
	rows, err := tm.queryRows(ctx, q, stmt)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func sortedColumns(cv map[string]any) []string {
	columns := make([]string, 0, len(cv))
	for col := range cv {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}
