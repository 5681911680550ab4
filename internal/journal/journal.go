// Package journal keeps an append-only record of collector lifecycle
// events (connects, disconnects, fallback switches, dropped writes) so
// operators can reconstruct what the ingest side was doing.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	Seq       int64   `json:"seq"`
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	SessionID *string `json:"session_id,omitempty"`
	CreatedAt int64   `json:"created_at"`
	Payload   *string `json:"payload_json,omitempty"`
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS journal_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			session_id TEXT,
			created_at INTEGER NOT NULL,
			payload_json TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure journal_events table: %w", err)
	}
	return nil
}

func Emit(ctx context.Context, db *sql.DB, typ string, sessionID string, payload any) error {
	if typ == "" {
		return fmt.Errorf("type is required")
	}
	if err := ensureTable(ctx, db); err != nil {
		return err
	}
	now := time.Now().Unix()
	id := uuid.New().String()

	var sessionVal any
	if sessionID != "" {
		sessionVal = sessionID
	}
	var payloadVal any
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		payloadVal = string(b)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO journal_events (id, type, session_id, created_at, payload_json)
		VALUES (?, ?, ?, ?, ?)
	`, id, typ, sessionVal, now, payloadVal)
	if err != nil {
		return fmt.Errorf("failed to insert journal event: %w", err)
	}
	return nil
}

func List(ctx context.Context, db *sql.DB, afterSeq int64, limit int) ([]Event, error) {
	if err := ensureTable(ctx, db); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT seq, id, type, session_id, created_at, payload_json
		FROM journal_events
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var sessionID sql.NullString
		var payload sql.NullString
		if err := rows.Scan(&e.Seq, &e.ID, &e.Type, &sessionID, &e.CreatedAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan journal event: %w", err)
		}
		if sessionID.Valid {
			e.SessionID = &sessionID.String
		}
		if payload.Valid {
			e.Payload = &payload.String
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating journal events: %w", err)
	}
	return out, nil
}
