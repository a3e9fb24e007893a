package postgres

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aevon-lab/hookline/internal/core/storage"
	"github.com/lib/pq"
)

// marshalMetadata marshals event metadata to JSON.
//
// Nil or empty metadata produces nil (SQL NULL) rather than JSON "null".
func marshalMetadata(metadata map[string]interface{}) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return b, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventLogRow scans a database row into an EventLogEntry.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanEventLogRow(row scanner) (*storage.EventLogEntry, error) {
	var entry storage.EventLogEntry
	var contestID sql.NullString
	var metadataJSON []byte

	err := row.Scan(
		&entry.ID,
		&entry.ProjectID,
		&entry.EventName,
		&entry.SourceSystem,
		&entry.ActorID,
		&contestID,
		&metadataJSON,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.ContestID = contestID.String
	if len(metadataJSON) > 0 {
		dec := json.NewDecoder(bytes.NewReader(metadataJSON))
		dec.UseNumber()
		if err := dec.Decode(&entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &entry, nil
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// classifyError maps driver errors onto storage sentinels.
func classifyError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case pqUniqueViolation:
		if pqErr.Constraint == "" || pqErr.Constraint == constraintWebhookRequestUQ {
			return fmt.Errorf("%w: %s", storage.ErrDuplicate, pqErr.Message)
		}
	case pqForeignKeyViolation:
		if pqErr.Constraint == "" || pqErr.Constraint == constraintEventActorFK {
			return fmt.Errorf("%w: %s", storage.ErrUnknownActor, pqErr.Message)
		}
	}
	return err
}
