// Package journal records device lifecycle events (connections, status
// transitions, configuration pushes) for post-event review.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types recorded by the dispatcher.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventReady        = "ready"
	EventConfigured   = "configured"
)

// Event is a single device journal entry.
type Event struct {
	ID        string         `json:"id"`
	DeviceID  string         `json:"device_id"`
	EventType string         `json:"event_type"`
	Seat      *int           `json:"seat,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter controls which journal events to return.
type Filter struct {
	DeviceID  string // optional: filter by device
	EventType string // optional: filter by event type
	Limit     int    // default 50, max 200
	Offset    int    // pagination offset
}

// ListResult contains paginated journal results.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository defines journal operations.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores journal events in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a journal repository and ensures its
// schema exists.
func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	r := &SQLiteRepository{db: db}
	if err := r.ensureSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) ensureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS device_events (
			id         TEXT PRIMARY KEY,
			device_id  TEXT NOT NULL,
			event_type TEXT NOT NULL,
			seat       INTEGER,
			details    TEXT,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_device_events_device
			ON device_events(device_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating journal schema: %w", err)
	}
	return nil
}

// Create inserts a journal event. The ID and CreatedAt are generated if
// empty.
func (r *SQLiteRepository) Create(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = "evt-" + uuid.NewString()[:8]
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if event.Details != nil {
		b, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshalling event details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	var seat any
	if event.Seat != nil {
		seat = *event.Seat
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_events (id, device_id, event_type, seat, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.DeviceID, event.EventType,
		seat, detailsJSON,
		event.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting journal event: %w", err)
	}
	return nil
}

// List returns journal events matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, filter.EventType)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM device_events %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal events: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, device_id, event_type, seat, details, created_at FROM device_events %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var seat sql.NullInt64
		var detailsJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&event.ID, &event.DeviceID, &event.EventType,
			&seat, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal event: %w", err)
		}

		if seat.Valid {
			s := int(seat.Int64)
			event.Seat = &s
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			var details map[string]any
			if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
				event.Details = details
			}
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
		}
		event.CreatedAt = t

		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal events: %w", err)
	}

	if events == nil {
		events = []Event{}
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}
