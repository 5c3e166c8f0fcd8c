package sqlite

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/perch-health/healthstore/pkg/types"
)

// exportFileName is the JSONL file written by Export and read by Import.
const exportFileName = "records.jsonl"

// recordLine is one exported record: the type tag selects the concrete
// struct on import.
type recordLine struct {
	RecordType string          `json:"record_type"`
	Record     json.RawMessage `json:"record"`
}

// Export writes every stored record to dir/records.jsonl, children included,
// using the temp-file, fsync, rename pattern so a crash never leaves a
// truncated file. Export bypasses package scoping; it is a maintenance
// surface, not an API read.
func (s *Store) Export(ctx context.Context, dir string) (int, error) {
	tm, err := s.manager()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("creating export dir: %w", err)
	}

	var lines []json.RawMessage
	for _, recordType := range types.AllRecordTypes {
		helper, err := tm.helperFor(recordType)
		if err != nil {
			return 0, err
		}
		records, err := tm.readAllRecords(ctx, helper)
		if err != nil {
			return 0, err
		}
		for _, rec := range records {
			payload, err := json.Marshal(rec)
			if err != nil {
				return 0, fmt.Errorf("marshaling %s record: %w", recordType, err)
			}
			line, err := json.Marshal(recordLine{RecordType: recordType, Record: payload})
			if err != nil {
				return 0, fmt.Errorf("marshaling export line: %w", err)
			}
			lines = append(lines, line)
		}
	}

	if err := writeJSONL(filepath.Join(dir, exportFileName), lines); err != nil {
		return 0, err
	}
	s.logger.Info("exported records", zap.Int("count", len(lines)), zap.String("dir", dir))
	return len(lines), nil
}

// Import reads dir/records.jsonl and upserts every parseable record,
// preserving each record's original package attribution. Malformed lines
// are skipped, matching the reader's tolerance on export files that were
// hand-edited.
func (s *Store) Import(ctx context.Context, dir string) (int, error) {
	tm, err := s.manager()
	if err != nil {
		return 0, err
	}

	lines, err := readJSONL(filepath.Join(dir, exportFileName))
	if err != nil {
		return 0, err
	}
	records := make([]types.Record, 0, len(lines))
	for _, line := range lines {
		var entry recordLine
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		rec, err := decodeRecord(entry.RecordType, entry.Record)
		if err != nil {
			s.logger.Warn("skipping unreadable export line", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	if _, err := tm.UpsertRecords(ctx, records, ""); err != nil {
		return 0, err
	}
	s.logger.Info("imported records", zap.Int("count", len(records)), zap.String("dir", dir))
	return len(records), nil
}

// decodeRecord unmarshals one export payload into its concrete record type.
func decodeRecord(recordType string, payload json.RawMessage) (types.Record, error) {
	var rec types.Record
	switch recordType {
	case types.RecordTypeSteps:
		rec = &types.StepsRecord{}
	case types.RecordTypeHeartRate:
		rec = &types.HeartRateRecord{}
	case types.RecordTypeBloodPressure:
		rec = &types.BloodPressureRecord{}
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownRecordType, recordType)
	}
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	return rec, nil
}

// readJSONL reads a JSONL file, returning each non-empty, valid JSON line.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var lines []json.RawMessage
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		lines = append(lines, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return lines, nil
}

// writeJSONL atomically writes lines to path via temp file, fsync, rename.
func writeJSONL(path string, lines []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			cleanup()
			return fmt.Errorf("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			cleanup()
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
