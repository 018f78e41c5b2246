package store

import (
	"context"
	_ "embed"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore backs the engine with Postgres via pgx. The live-slot
// uniqueness is enforced twice: SELECT ... FOR UPDATE inside the insert
// transaction and a partial unique index as a backstop.
type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: db}
}

// EnsureSchema applies the embedded schema. Statements are idempotent and are
// executed one at a time since the extended protocol rejects batched text.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.DB.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) InsertWindow(ctx context.Context, w *AvailabilityWindow) error {
	now := time.Now().UTC()
	q := `INSERT INTO availability_windows
	      (resource_id, date, start_time, end_time, available, kind, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`
	row := s.DB.QueryRow(ctx, q,
		w.ResourceID, w.Date, w.StartTime, w.EndTime, w.Available, w.Kind, now, now)
	if err := row.Scan(&w.ID); err != nil {
		return err
	}
	w.CreatedAt = now
	w.UpdatedAt = now
	return nil
}

func (s *PostgresStore) UpdateWindow(ctx context.Context, w AvailabilityWindow) (bool, error) {
	q := `UPDATE availability_windows
	      SET start_time=$1, end_time=$2, available=$3, kind=$4, updated_at=$5
	      WHERE id=$6 RETURNING id`
	var id int64
	err := s.DB.QueryRow(ctx, q, w.StartTime, w.EndTime, w.Available, w.Kind, time.Now().UTC(), w.ID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) ListWindows(ctx context.Context, resourceID, fromDate, toDate string) ([]AvailabilityWindow, error) {
	q := `SELECT id, resource_id, date, start_time, end_time, available, kind, created_at, updated_at
	      FROM availability_windows
	      WHERE ($1 = '' OR resource_id = $1)
	        AND ($2 = '' OR date >= $2)
	        AND ($3 = '' OR date <= $3)
	      ORDER BY date, start_time, id`
	rows, err := s.DB.Query(ctx, q, resourceID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AvailabilityWindow
	for rows.Next() {
		var w AvailabilityWindow
		if err := rows.Scan(&w.ID, &w.ResourceID, &w.Date, &w.StartTime, &w.EndTime,
			&w.Available, &w.Kind, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetDateAvailability(ctx context.Context, date string, available bool) ([]int64, error) {
	q := `UPDATE availability_windows SET available=$1, updated_at=$2
	      WHERE date=$3 AND available <> $1 RETURNING id`
	rows, err := s.DB.Query(ctx, q, available, time.Now().UTC(), date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changed []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		changed = append(changed, id)
	}
	return changed, rows.Err()
}

func (s *PostgresStore) SetWindowsAvailability(ctx context.Context, ids []int64, available bool) error {
	if len(ids) == 0 {
		return nil
	}
	q := `UPDATE availability_windows SET available=$1, updated_at=$2 WHERE id = ANY($3)`
	_, err := s.DB.Exec(ctx, q, available, time.Now().UTC(), ids)
	return err
}

func (s *PostgresStore) InsertBooking(ctx context.Context, b BookingRecord) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	checkQ := `SELECT id FROM bookings
	           WHERE resource_id=$1 AND date=$2 AND start_time=$3
	             AND status IN ('scheduled','confirmed')
	           FOR UPDATE`
	var existingID string
	err = tx.QueryRow(ctx, checkQ, b.ResourceID, b.Date, b.StartTime).Scan(&existingID)
	if err == nil {
		return ErrSlotTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	insertQ := `INSERT INTO bookings
	    (id, candidate_id, resource_id, date, start_time, duration_minutes, status,
	     interview_type, meeting_reference, reminder_sent, confirmation_sent, notes, created_at)
	    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err = tx.Exec(ctx, insertQ,
		b.ID, b.CandidateID, b.ResourceID, b.Date, b.StartTime, b.DurationMinutes, b.Status,
		b.InterviewType, b.MeetingReference, b.ReminderSent, b.ConfirmationSent, b.Notes, b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSlotTaken
		}
		return err
	}
	return tx.Commit(ctx)
}

const bookingColumns = `id, candidate_id, resource_id, date, start_time, duration_minutes, status,
	interview_type, meeting_reference, reminder_sent, confirmation_sent, notes, created_at, completed_at`

func scanBooking(row pgx.Row) (BookingRecord, error) {
	var b BookingRecord
	var completedAt *time.Time
	err := row.Scan(&b.ID, &b.CandidateID, &b.ResourceID, &b.Date, &b.StartTime,
		&b.DurationMinutes, &b.Status, &b.InterviewType, &b.MeetingReference,
		&b.ReminderSent, &b.ConfirmationSent, &b.Notes, &b.CreatedAt, &completedAt)
	if err != nil {
		return BookingRecord{}, err
	}
	if completedAt != nil {
		b.CompletedAt = *completedAt
	}
	return b, nil
}

func (s *PostgresStore) GetBooking(ctx context.Context, id string) (BookingRecord, bool, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id=$1`
	b, err := scanBooking(s.DB.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return BookingRecord{}, false, nil
	}
	if err != nil {
		return BookingRecord{}, false, err
	}
	return b, true, nil
}

func (s *PostgresStore) UpdateBooking(ctx context.Context, b BookingRecord) error {
	var completedAt *time.Time
	if !b.CompletedAt.IsZero() {
		completedAt = &b.CompletedAt
	}
	q := `UPDATE bookings
	      SET date=$1, start_time=$2, duration_minutes=$3, status=$4, interview_type=$5,
	          meeting_reference=$6, reminder_sent=$7, confirmation_sent=$8, notes=$9, completed_at=$10
	      WHERE id=$11`
	_, err := s.DB.Exec(ctx, q,
		b.Date, b.StartTime, b.DurationMinutes, b.Status, b.InterviewType,
		b.MeetingReference, b.ReminderSent, b.ConfirmationSent, b.Notes, completedAt, b.ID)
	return err
}

func (s *PostgresStore) ListBookingsByDate(ctx context.Context, resourceID, date string) ([]BookingRecord, error) {
	return s.ListBookingsInRange(ctx, resourceID, date, date)
}

func (s *PostgresStore) ListBookingsInRange(ctx context.Context, resourceID, fromDate, toDate string) ([]BookingRecord, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE ($1 = '' OR resource_id = $1)
	        AND ($2 = '' OR date >= $2)
	        AND ($3 = '' OR date <= $3)
	      ORDER BY date, start_time, id`
	rows, err := s.DB.Query(ctx, q, resourceID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookingRecord
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountLiveBookings(ctx context.Context, resourceID, fromDate, toDate string) (int, error) {
	q := `SELECT COUNT(*) FROM bookings
	      WHERE status IN ('scheduled','confirmed')
	        AND ($1 = '' OR resource_id = $1)
	        AND ($2 = '' OR date >= $2)
	        AND ($3 = '' OR date <= $3)`
	var count int
	if err := s.DB.QueryRow(ctx, q, resourceID, fromDate, toDate).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PostgresStore) ListLiveBookingsStartingBetween(ctx context.Context, from, to time.Time) ([]BookingRecord, error) {
	// date/start_time are stored as text; compare on the concatenated key.
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE status IN ('scheduled','confirmed')
	        AND (date || ' ' || start_time) >= $1
	        AND (date || ' ' || start_time) < $2
	      ORDER BY date, start_time, id`
	rows, err := s.DB.Query(ctx, q,
		from.UTC().Format("2006-01-02 15:04"), to.UTC().Format("2006-01-02 15:04"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookingRecord
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertQueueEntry(ctx context.Context, e *QueueEntryRecord) error {
	now := time.Now().UTC()
	if e.AddedAt.IsZero() {
		e.AddedAt = now
	}
	var lastContact *time.Time
	if !e.LastContactAt.IsZero() {
		lastContact = &e.LastContactAt
	}
	q := `INSERT INTO queue_entries
	      (id, candidate_id, priority_score, status, contact_attempts, last_contact_at,
	       preferred_times, urgency_level, added_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := s.DB.Exec(ctx, q,
		e.ID, e.CandidateID, e.PriorityScore, e.Status, e.ContactAttempts, lastContact,
		e.PreferredTimes, e.UrgencyLevel, e.AddedAt, now)
	return err
}

func (s *PostgresStore) UpdateQueueEntry(ctx context.Context, e QueueEntryRecord) error {
	var lastContact *time.Time
	if !e.LastContactAt.IsZero() {
		lastContact = &e.LastContactAt
	}
	q := `UPDATE queue_entries
	      SET priority_score=$1, status=$2, contact_attempts=$3, last_contact_at=$4,
	          preferred_times=$5, urgency_level=$6, updated_at=$7
	      WHERE id=$8`
	_, err := s.DB.Exec(ctx, q,
		e.PriorityScore, e.Status, e.ContactAttempts, lastContact,
		e.PreferredTimes, e.UrgencyLevel, time.Now().UTC(), e.ID)
	return err
}

const queueColumns = `id, candidate_id, priority_score, status, contact_attempts, last_contact_at,
	preferred_times, urgency_level, added_at, updated_at`

func scanQueueEntry(row pgx.Row) (QueueEntryRecord, error) {
	var e QueueEntryRecord
	var lastContact *time.Time
	err := row.Scan(&e.ID, &e.CandidateID, &e.PriorityScore, &e.Status, &e.ContactAttempts,
		&lastContact, &e.PreferredTimes, &e.UrgencyLevel, &e.AddedAt, &e.UpdatedAt)
	if err != nil {
		return QueueEntryRecord{}, err
	}
	if lastContact != nil {
		e.LastContactAt = *lastContact
	}
	return e, nil
}

func (s *PostgresStore) GetQueueEntry(ctx context.Context, id string) (QueueEntryRecord, bool, error) {
	q := `SELECT ` + queueColumns + ` FROM queue_entries WHERE id=$1`
	e, err := scanQueueEntry(s.DB.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return QueueEntryRecord{}, false, nil
	}
	if err != nil {
		return QueueEntryRecord{}, false, err
	}
	return e, true, nil
}

func (s *PostgresStore) ActiveQueueEntryByCandidate(ctx context.Context, candidateID string) (QueueEntryRecord, bool, error) {
	q := `SELECT ` + queueColumns + ` FROM queue_entries
	      WHERE candidate_id=$1 AND status <> 'processed'
	      ORDER BY added_at LIMIT 1`
	e, err := scanQueueEntry(s.DB.QueryRow(ctx, q, candidateID))
	if errors.Is(err, pgx.ErrNoRows) {
		return QueueEntryRecord{}, false, nil
	}
	if err != nil {
		return QueueEntryRecord{}, false, err
	}
	return e, true, nil
}

func (s *PostgresStore) ListQueueEntries(ctx context.Context, status string, limit int) ([]QueueEntryRecord, error) {
	q := `SELECT ` + queueColumns + ` FROM queue_entries
	      WHERE ($1 = '' OR status = $1)
	      ORDER BY priority_score DESC, added_at ASC, id ASC`
	if limit > 0 {
		q += ` LIMIT ` + strconv.Itoa(limit)
	}
	rows, err := s.DB.Query(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueueEntryRecord
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendConversionEvent(ctx context.Context, ev *ConversionEventRecord) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	q := `INSERT INTO conversion_events (candidate_id, from_stage, to_stage, method, notes, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`
	return s.DB.QueryRow(ctx, q,
		ev.CandidateID, ev.FromStage, ev.ToStage, ev.Method, ev.Notes, ev.CreatedAt).Scan(&ev.ID)
}

func (s *PostgresStore) ListConversionEvents(ctx context.Context, candidateID string) ([]ConversionEventRecord, error) {
	q := `SELECT id, candidate_id, from_stage, to_stage, method, notes, created_at
	      FROM conversion_events
	      WHERE ($1 = '' OR candidate_id = $1)
	      ORDER BY id`
	rows, err := s.DB.Query(ctx, q, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConversionEventRecord
	for rows.Next() {
		var ev ConversionEventRecord
		if err := rows.Scan(&ev.ID, &ev.CandidateID, &ev.FromStage, &ev.ToStage,
			&ev.Method, &ev.Notes, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountConversionsByStage(ctx context.Context) (map[string]int, error) {
	q := `SELECT to_stage, COUNT(*) FROM (
	        SELECT DISTINCT ON (candidate_id) candidate_id, to_stage
	        FROM conversion_events ORDER BY candidate_id, id DESC
	      ) latest GROUP BY to_stage`
	rows, err := s.DB.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		counts[stage] = n
	}
	return counts, rows.Err()
}
