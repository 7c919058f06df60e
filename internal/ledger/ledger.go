// Package ledger provides an append-only history of what was applied to each light.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventCommandApplied EventType = "command_applied"
	EventCommandFailed  EventType = "command_failed"
	EventReadingApplied EventType = "reading_applied"
	EventReadingFailed  EventType = "reading_failed"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        string         `json:"id"`
	EventType EventType      `json:"event_type"`
	LightID   string         `json:"light_id"`
	Kind      string         `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
	Source    string         `json:"source,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Ledger provides append-only event logging
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Record appends the outcome of applying something to a light. A nil err
// records success.
func (l *Ledger) Record(lightID, kind, source string, payload map[string]any, reading bool, err error) (*Entry, error) {
	entry := &Entry{
		EventType: EventCommandApplied,
		LightID:   lightID,
		Kind:      kind,
		Payload:   payload,
		Source:    source,
	}
	switch {
	case reading && err != nil:
		entry.EventType = EventReadingFailed
	case reading:
		entry.EventType = EventReadingApplied
	case err != nil:
		entry.EventType = EventCommandFailed
	}
	if err != nil {
		entry.Error = err.Error()
	}

	if err := l.Append(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Append adds a new event to the ledger. ID and Timestamp are filled in when empty.
func (l *Ledger) Append(entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC().Truncate(time.Second)
	}

	var payloadJSON []byte
	if entry.Payload != nil {
		var err error
		payloadJSON, err = json.Marshal(entry.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	_, err := l.db.Exec(`
		INSERT INTO command_ledger (event_id, event_type, light_id, kind, timestamp, payload, source, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, string(entry.EventType), entry.LightID, entry.Kind, entry.Timestamp.Unix(),
		string(payloadJSON), entry.Source, entry.Error)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries across all lights, newest first.
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT event_id, event_type, light_id, kind, timestamp, payload, source, error
		FROM command_ledger
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// ForLight returns the newest entries of one light, newest first.
func (l *Ledger) ForLight(lightID string, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT event_id, event_type, light_id, kind, timestamp, payload, source, error
		FROM command_ledger
		WHERE light_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, lightID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).Unix()
	result, err := l.db.Exec(`
		DELETE FROM command_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr, source, errStr sql.NullString
		var timestamp int64

		err := rows.Scan(
			&entry.ID, &entry.EventType, &entry.LightID, &entry.Kind, &timestamp, &payloadStr, &source, &errStr,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		entry.Source = source.String
		entry.Error = errStr.String

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
