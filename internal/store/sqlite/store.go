package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cipherhq/ticketrack-sub010/internal/domain"
	"github.com/cipherhq/ticketrack-sub010/internal/store"
)

// Store implements store.CheckInStore on sqlite
type Store struct {
	client *Client
	log    *zap.Logger
}

// NewStore creates a new sqlite-backed check-in store
func NewStore(client *Client, log *zap.Logger) *Store {
	return &Store{
		client: client,
		log:    log,
	}
}

// InitSchema creates the offline cache tables and their indexes
func (s *Store) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL DEFAULT '',
		venue_name TEXT NOT NULL DEFAULT '',
		organizer_id TEXT NOT NULL DEFAULT '',
		cached_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_organizer ON events (organizer_id);

	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		ticket_code TEXT NOT NULL,
		attendee_name TEXT NOT NULL DEFAULT '',
		attendee_email TEXT NOT NULL DEFAULT '',
		ticket_type TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL DEFAULT 1,
		is_checked_in INTEGER NOT NULL DEFAULT 0,
		checked_in_at TEXT,
		checked_in_by TEXT,
		payment_status TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_event ON tickets (event_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_code ON tickets (ticket_code);

	CREATE TABLE IF NOT EXISTS pending_checkins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		is_undo INTEGER NOT NULL DEFAULT 0,
		checked_in_at TEXT NOT NULL DEFAULT '',
		checked_in_by TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		synced_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_pending_event ON pending_checkins (event_id);
	CREATE INDEX IF NOT EXISTS idx_pending_ticket ON pending_checkins (ticket_id);
	CREATE INDEX IF NOT EXISTS idx_pending_status ON pending_checkins (status);
	`

	if _, err := s.client.DB().ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create offline cache schema: %w", err)
	}

	s.log.Info("Local store schema initialized successfully")
	return nil
}

// CacheEventData upserts one event snapshot and bulk-upserts its tickets in a
// single transaction, stamping cached_at on the event.
func (s *Store) CacheEventData(ctx context.Context, eventID string, meta domain.CachedEvent, tickets []domain.CachedTicket) error {
	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cachedAt := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (id, title, start_date, venue_name, organizer_id, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			start_date = excluded.start_date,
			venue_name = excluded.venue_name,
			organizer_id = excluded.organizer_id,
			cached_at = excluded.cached_at`,
		eventID, meta.Title, formatTime(meta.StartDate), meta.VenueName, meta.OrganizerID, formatTime(cachedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert event snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tickets (id, event_id, ticket_code, attendee_name, attendee_email,
			ticket_type, quantity, is_checked_in, checked_in_at, checked_in_by,
			payment_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			event_id = excluded.event_id,
			ticket_code = excluded.ticket_code,
			attendee_name = excluded.attendee_name,
			attendee_email = excluded.attendee_email,
			ticket_type = excluded.ticket_type,
			quantity = excluded.quantity,
			is_checked_in = excluded.is_checked_in,
			checked_in_at = excluded.checked_in_at,
			checked_in_by = excluded.checked_in_by,
			payment_status = excluded.payment_status,
			created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare ticket upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, t := range tickets {
		_, err := stmt.ExecContext(ctx,
			t.ID, eventID, t.TicketCode, t.AttendeeName, t.AttendeeEmail,
			t.TicketType, t.Quantity, boolToInt(t.IsCheckedIn),
			formatNullableTime(t.CheckedInAt), nullableString(t.CheckedInBy),
			t.PaymentStatus, formatTime(t.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to upsert ticket %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache transaction: %w", err)
	}

	s.log.Info("Event data cached",
		zap.String("event_id", eventID),
		zap.Int("ticket_count", len(tickets)))

	return nil
}

const ticketColumns = `id, event_id, ticket_code, attendee_name, attendee_email,
	ticket_type, quantity, is_checked_in, checked_in_at, checked_in_by,
	payment_status, created_at`

// OfflineTickets returns all cached tickets for an event
func (s *Store) OfflineTickets(ctx context.Context, eventID string) ([]domain.CachedTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE event_id = ? ORDER BY attendee_name ASC`, ticketColumns)

	rows, err := s.client.DB().QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached tickets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tickets []domain.CachedTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cached tickets: %w", err)
	}
	return tickets, nil
}

// TicketByCode looks a ticket up via the unique code index
func (s *Store) TicketByCode(ctx context.Context, code string) (*domain.CachedTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_code = ?`, ticketColumns)
	return s.queryOneTicket(ctx, query, code)
}

// TicketByID looks a ticket up by primary key
func (s *Store) TicketByID(ctx context.Context, id string) (*domain.CachedTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id = ?`, ticketColumns)
	return s.queryOneTicket(ctx, query, id)
}

// UpdateTicketLocally merges a patch onto the cached ticket. Returns nil when
// the ticket is not cached; callers treat that as a no-op, not an error.
func (s *Store) UpdateTicketLocally(ctx context.Context, ticketID string, patch store.TicketPatch) (*domain.CachedTicket, error) {
	ticket, err := s.TicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, nil
	}

	if patch.IsCheckedIn != nil {
		ticket.IsCheckedIn = *patch.IsCheckedIn
		ticket.CheckedInAt = patch.CheckedInAt
		ticket.CheckedInBy = patch.CheckedInBy
	}

	_, err = s.client.DB().ExecContext(ctx, `
		UPDATE tickets SET is_checked_in = ?, checked_in_at = ?, checked_in_by = ?
		WHERE id = ?`,
		boolToInt(ticket.IsCheckedIn),
		formatNullableTime(ticket.CheckedInAt),
		nullableString(ticket.CheckedInBy),
		ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to patch cached ticket: %w", err)
	}

	return ticket, nil
}

// QueueCheckIn appends a pending record and returns the assigned identifier
func (s *Store) QueueCheckIn(ctx context.Context, rec domain.PendingCheckIn) (int64, error) {
	res, err := s.client.DB().ExecContext(ctx, `
		INSERT INTO pending_checkins (ticket_id, event_id, is_undo, checked_in_at, checked_in_by, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.TicketID, rec.EventID, boolToInt(rec.IsUndo),
		formatTime(rec.CheckedInAt), rec.CheckedInBy,
		domain.CheckInStatusPending, formatTime(time.Now().UTC()))
	if err != nil {
		return 0, fmt.Errorf("failed to queue check-in: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read queued check-in id: %w", err)
	}
	return id, nil
}

const pendingColumns = `id, ticket_id, event_id, is_undo, checked_in_at, checked_in_by,
	status, error, created_at, synced_at`

// PendingCheckIns returns pending records ordered oldest-first. Ids are
// assigned in creation order (QueueCheckIn stamps created_at itself), so
// ordering by id preserves drain order even when the clock's granularity
// makes created_at collide. Stored RFC3339Nano text trims trailing
// fractional zeros and cannot be compared lexicographically.
func (s *Store) PendingCheckIns(ctx context.Context) ([]domain.PendingCheckIn, error) {
	return s.checkInsWhere(ctx, `status = ?`, domain.CheckInStatusPending)
}

// FailedCheckIns returns terminally failed records that have not been
// requeued yet, oldest first
func (s *Store) FailedCheckIns(ctx context.Context) ([]domain.PendingCheckIn, error) {
	return s.checkInsWhere(ctx, `status = ? AND synced_at IS NULL`, domain.CheckInStatusFailed)
}

func (s *Store) checkInsWhere(ctx context.Context, where string, args ...any) ([]domain.PendingCheckIn, error) {
	query := fmt.Sprintf(`SELECT %s FROM pending_checkins WHERE %s ORDER BY id ASC`, pendingColumns, where)

	rows, err := s.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queued check-ins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.PendingCheckIn
	for rows.Next() {
		rec, err := scanPendingCheckIn(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queued check-ins: %w", err)
	}
	return records, nil
}

// PendingCount counts pending records
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	row := s.client.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_checkins WHERE status = ?`, domain.CheckInStatusPending)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending check-ins: %w", err)
	}
	return count, nil
}

// MarkCheckInSynced transitions a record to synced and stamps synced_at.
// Missing records are a no-op.
func (s *Store) MarkCheckInSynced(ctx context.Context, id int64) error {
	_, err := s.client.DB().ExecContext(ctx, `
		UPDATE pending_checkins SET status = ?, synced_at = ? WHERE id = ?`,
		domain.CheckInStatusSynced, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("failed to mark check-in synced: %w", err)
	}
	return nil
}

// MarkCheckInRequeued stamps a failed record as replayed so the recovery
// query stops returning it. The record keeps its failed status for the
// audit trail.
func (s *Store) MarkCheckInRequeued(ctx context.Context, id int64) error {
	_, err := s.client.DB().ExecContext(ctx, `
		UPDATE pending_checkins SET synced_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("failed to mark check-in requeued: %w", err)
	}
	return nil
}

// MarkCheckInFailed transitions a record to failed with an error string
func (s *Store) MarkCheckInFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.client.DB().ExecContext(ctx, `
		UPDATE pending_checkins SET status = ?, error = ? WHERE id = ?`,
		domain.CheckInStatusFailed, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to mark check-in failed: %w", err)
	}
	return nil
}

// CachedEvent returns the cached snapshot for an event, or nil when absent
func (s *Store) CachedEvent(ctx context.Context, eventID string) (*domain.CachedEvent, error) {
	row := s.client.DB().QueryRowContext(ctx, `
		SELECT id, title, start_date, venue_name, organizer_id, cached_at
		FROM events WHERE id = ?`, eventID)

	var (
		ev        domain.CachedEvent
		startDate string
		cachedAt  string
	)
	err := row.Scan(&ev.ID, &ev.Title, &startDate, &ev.VenueName, &ev.OrganizerID, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cached event: %w", err)
	}

	if ev.StartDate, err = parseTime(startDate); err != nil {
		return nil, err
	}
	if ev.CachedAt, err = parseTime(cachedAt); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ClearEventCache evicts one event snapshot and its tickets
func (s *Store) ClearEventCache(ctx context.Context, eventID string) error {
	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin evict transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID); err != nil {
		return fmt.Errorf("failed to evict event snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("failed to evict event tickets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit evict transaction: %w", err)
	}

	s.log.Info("Event cache cleared", zap.String("event_id", eventID))
	return nil
}

// ClearAllCache wipes events, tickets and the pending queue
func (s *Store) ClearAllCache(ctx context.Context) error {
	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin wipe transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"events", "tickets", "pending_checkins"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to wipe %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit wipe transaction: %w", err)
	}

	s.log.Info("All offline data cleared")
	return nil
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.DB().PingContext(ctx)
}

// Close closes the store
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) queryOneTicket(ctx context.Context, query string, arg any) (*domain.CachedTicket, error) {
	rows, err := s.client.DB().QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query ticket: %w", err)
		}
		return nil, nil
	}
	return scanTicket(rows)
}

func scanTicket(rows *sql.Rows) (*domain.CachedTicket, error) {
	var (
		t           domain.CachedTicket
		isCheckedIn int
		checkedInAt sql.NullString
		checkedInBy sql.NullString
		createdAt   string
	)

	err := rows.Scan(&t.ID, &t.EventID, &t.TicketCode, &t.AttendeeName, &t.AttendeeEmail,
		&t.TicketType, &t.Quantity, &isCheckedIn, &checkedInAt, &checkedInBy,
		&t.PaymentStatus, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan ticket row: %w", err)
	}

	t.IsCheckedIn = isCheckedIn != 0
	if t.CheckedInAt, err = parseNullableTime(checkedInAt); err != nil {
		return nil, err
	}
	if checkedInBy.Valid {
		t.CheckedInBy = &checkedInBy.String
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanPendingCheckIn(rows *sql.Rows) (*domain.PendingCheckIn, error) {
	var (
		rec         domain.PendingCheckIn
		isUndo      int
		checkedInAt string
		createdAt   string
		syncedAt    sql.NullString
	)

	err := rows.Scan(&rec.ID, &rec.TicketID, &rec.EventID, &isUndo, &checkedInAt,
		&rec.CheckedInBy, &rec.Status, &rec.Error, &createdAt, &syncedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending check-in row: %w", err)
	}

	rec.IsUndo = isUndo != 0
	if rec.CheckedInAt, err = parseTime(checkedInAt); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.SyncedAt, err = parseNullableTime(syncedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
