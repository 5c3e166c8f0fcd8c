package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/perch-health/healthstore/internal/request"
)

// schemaVersion is the version an attached database is brought up to.
// Versions are tracked in PRAGMA user_version; version 0 means a fresh file.
const schemaVersion = 2

// migrate brings the database schema up to schemaVersion. Each step runs in
// its own transaction and bumps user_version on success, so a failed step
// can be retried on the next attach.
func migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	version, err := userVersion(ctx, db)
	if err != nil {
		return err
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, schemaVersion)
	}

	if version == 0 {
		if err := applyStep(ctx, db, 1, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, schemaSQL)
			return err
		}); err != nil {
			return fmt.Errorf("creating base schema: %w", err)
		}
		version = 1
		logger.Info("created base schema")
	}

	if version == 1 {
		if err := applyStep(ctx, db, 2, migrateToV2(ctx)); err != nil {
			return fmt.Errorf("migrating schema to v2: %w", err)
		}
		version = 2
		logger.Info("migrated schema", zap.Int("version", 2))
	}

	return nil
}

// migrateToV2 adds the recording_method column to every record table and
// derived duration columns to the interval record tables.
func migrateToV2(ctx context.Context) func(tx *sql.Tx) error {
	return func(tx *sql.Tx) error {
		recordingMethod := []request.ColumnDef{{Name: ColumnRecordingMethod, Type: "TEXT"}}
		for _, table := range []string{StepsRecordTable, HeartRateRecordTable, BloodPressureTable} {
			alter := request.NewAlterTableRequest(table, recordingMethod)
			commands, err := alter.AddColumnCommands()
			if err != nil {
				return err
			}
			for _, cmd := range commands {
				if _, err := tx.ExecContext(ctx, cmd); err != nil {
					return fmt.Errorf("altering %s: %w", table, err)
				}
			}
		}

		for _, table := range []string{StepsRecordTable, HeartRateRecordTable} {
			alter := request.NewAlterTableRequest(table, nil)
			cmd := alter.AddGeneratedColumnCommand("duration_millis", "INTEGER",
				ColumnEndTime+" - "+ColumnStartTime)
			if _, err := tx.ExecContext(ctx, cmd); err != nil {
				return fmt.Errorf("altering %s: %w", table, err)
			}
		}
		return nil
	}
}

// applyStep runs one migration step transactionally and records the new
// schema version. PRAGMA statements cannot be parameterized; the version is
// a trusted constant.
func applyStep(ctx context.Context, db *sql.DB, version int, step func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := step(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return err
	}
	return tx.Commit()
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}
