package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/event-coordinator/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite. The
// aggregate spans three tables: events, event_members, and event_periods.
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateEvent inserts a new aggregate with its members and periods.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			query := `
				INSERT INTO events (
					id, name, description, scheduling_method, duration_millis,
					window_start, window_end, status, scheduled_time, visibility,
					confirmation_code, created_at, updated_at, version
				)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`

			_, err := r.helper.ExecTx(tx, query,
				event.ID,
				event.Name,
				event.Description,
				event.SchedulingMethod,
				event.DurationMillis,
				nullableInt64(event.WindowStart),
				nullableInt64(event.WindowEnd),
				event.Status,
				nullableInt64(event.ScheduledTime),
				event.Visibility,
				nullableString(event.ConfirmationCode),
				event.CreatedAt.UTC().Format(time.RFC3339),
				event.UpdatedAt.UTC().Format(time.RFC3339),
				event.Version,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}

			if err := r.insertMembersTx(tx, event.ID, event.Members); err != nil {
				return err
			}
			return r.insertPeriodsTx(tx, event.ID, event.Periods)
		})
	})
}

// UpdateEvent replaces the aggregate when the stored version still matches
// expectedVersion. A version mismatch on an existing row yields ErrConflict.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event, expectedVersion int64) error {
	if event.ID == "" {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			query := `
				UPDATE events
				SET name = ?, description = ?, scheduling_method = ?, duration_millis = ?,
					window_start = ?, window_end = ?, status = ?, scheduled_time = ?,
					visibility = ?, confirmation_code = ?, updated_at = ?, version = ?
				WHERE id = ? AND version = ?
			`

			result, err := r.helper.ExecTx(tx, query,
				event.Name,
				event.Description,
				event.SchedulingMethod,
				event.DurationMillis,
				nullableInt64(event.WindowStart),
				nullableInt64(event.WindowEnd),
				event.Status,
				nullableInt64(event.ScheduledTime),
				event.Visibility,
				nullableString(event.ConfirmationCode),
				event.UpdatedAt.UTC().Format(time.RFC3339),
				event.Version,
				event.ID,
				expectedVersion,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if rowsAffected == 0 {
				var exists int
				if err := r.helper.QueryRowTx(tx, "SELECT COUNT(*) FROM events WHERE id = ?", event.ID).Scan(&exists); err != nil {
					return r.mapper.MapError(err)
				}
				if exists == 0 {
					return persistence.ErrNotFound
				}
				return persistence.ErrConflict
			}

			if _, err := r.helper.ExecTx(tx, "DELETE FROM event_members WHERE event_id = ?", event.ID); err != nil {
				return r.mapper.MapError(err)
			}
			if _, err := r.helper.ExecTx(tx, "DELETE FROM event_periods WHERE event_id = ?", event.ID); err != nil {
				return r.mapper.MapError(err)
			}

			if err := r.insertMembersTx(tx, event.ID, event.Members); err != nil {
				return err
			}
			return r.insertPeriodsTx(tx, event.ID, event.Periods)
		})
	})
}

// GetEvent retrieves an aggregate by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	query := eventSelect + " WHERE id = ?"

	event, err := r.scanEvent(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Event{}, err
	}

	events, err := r.attachChildren(ctx, []persistence.Event{event})
	if err != nil {
		return persistence.Event{}, err
	}
	return events[0], nil
}

// ListEvents returns all aggregates ordered by creation timestamp then ID.
func (r *EventRepository) ListEvents(ctx context.Context) ([]persistence.Event, error) {
	query := eventSelect + " ORDER BY created_at ASC, id ASC"

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	events, err := r.scanEvents(rows)
	if err != nil {
		return nil, err
	}
	return r.attachChildren(ctx, events)
}

// ListEventsForUser returns the aggregates the user is a member of.
func (r *EventRepository) ListEventsForUser(ctx context.Context, userID string) ([]persistence.Event, error) {
	if userID == "" {
		return nil, nil
	}

	query := eventSelect + `
		WHERE id IN (SELECT event_id FROM event_members WHERE user_id = ?)
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	events, err := r.scanEvents(rows)
	if err != nil {
		return nil, err
	}
	return r.attachChildren(ctx, events)
}

// DeleteEvent removes an aggregate; members and periods cascade.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.helper.Exec(ctx, "DELETE FROM events WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}

		return nil
	})
}

// ConfirmationCodeExists reports whether any event already carries the code.
func (r *EventRepository) ConfirmationCodeExists(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, nil
	}

	var count int
	err := r.helper.QueryRow(ctx, "SELECT COUNT(*) FROM events WHERE confirmation_code = ?", code).Scan(&count)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return count > 0, nil
}

const eventSelect = `
	SELECT id, name, description, scheduling_method, duration_millis,
		window_start, window_end, status, scheduled_time, visibility,
		confirmation_code, created_at, updated_at, version
	FROM events
`

func (r *EventRepository) insertMembersTx(tx *sql.Tx, eventID string, members []persistence.EventMember) error {
	query := `
		INSERT INTO event_members (event_id, user_id, role, availability, padding_after, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, member := range members {
		_, err := r.helper.ExecTx(tx, query,
			eventID,
			member.UserID,
			member.Role,
			member.Availability,
			nullableInt64(member.PaddingAfterMillis),
			member.Position,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *EventRepository) insertPeriodsTx(tx *sql.Tx, eventID string, periods []persistence.EventPeriod) error {
	query := `
		INSERT INTO event_periods (event_id, kind, start_millis, end_millis)
		VALUES (?, ?, ?, ?)
	`
	for _, period := range periods {
		_, err := r.helper.ExecTx(tx, query, eventID, period.Kind, period.StartMillis, period.EndMillis)
		if err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

func (r *EventRepository) scanEvent(row *sql.Row) (persistence.Event, error) {
	event, err := scanEventRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, persistence.ErrNotFound) {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

func (r *EventRepository) scanEvents(rows *sql.Rows) ([]persistence.Event, error) {
	var events []persistence.Event
	for rows.Next() {
		event, err := scanEventRow(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

func scanEventRow(scanner rowScanner) (persistence.Event, error) {
	var event persistence.Event
	var windowStart, windowEnd, scheduledTime sql.NullInt64
	var confirmationCode sql.NullString
	var createdAtStr, updatedAtStr string

	err := scanner.Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&event.SchedulingMethod,
		&event.DurationMillis,
		&windowStart,
		&windowEnd,
		&event.Status,
		&scheduledTime,
		&event.Visibility,
		&confirmationCode,
		&createdAtStr,
		&updatedAtStr,
		&event.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, err
	}

	event.WindowStart = int64Ptr(windowStart)
	event.WindowEnd = int64Ptr(windowEnd)
	event.ScheduledTime = int64Ptr(scheduledTime)
	if confirmationCode.Valid {
		event.ConfirmationCode = confirmationCode.String
	}

	if event.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return event, nil
}

// attachChildren loads member and period rows for the given events.
func (r *EventRepository) attachChildren(ctx context.Context, events []persistence.Event) ([]persistence.Event, error) {
	if len(events) == 0 {
		return events, nil
	}

	index := make(map[string]int, len(events))
	for i, event := range events {
		index[event.ID] = i
	}

	memberRows, err := r.helper.Query(ctx, `
		SELECT event_id, user_id, role, availability, padding_after, position
		FROM event_members
		ORDER BY event_id, position ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var eventID string
		var member persistence.EventMember
		var padding sql.NullInt64
		if err := memberRows.Scan(&eventID, &member.UserID, &member.Role, &member.Availability, &padding, &member.Position); err != nil {
			return nil, r.mapper.MapError(err)
		}
		member.PaddingAfterMillis = int64Ptr(padding)
		if i, ok := index[eventID]; ok {
			events[i].Members = append(events[i].Members, member)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	periodRows, err := r.helper.Query(ctx, `
		SELECT event_id, kind, start_millis, end_millis
		FROM event_periods
		ORDER BY event_id, kind, start_millis ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer periodRows.Close()

	for periodRows.Next() {
		var eventID string
		var period persistence.EventPeriod
		if err := periodRows.Scan(&eventID, &period.Kind, &period.StartMillis, &period.EndMillis); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if i, ok := index[eventID]; ok {
			events[i].Periods = append(events[i].Periods, period)
		}
	}
	if err := periodRows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return events, nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}
