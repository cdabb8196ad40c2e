package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xavierca1/institut-pipeline/internal/entity"
)

type DemoRepository struct {
	DB *sql.DB
}

func NewDemoRepository(db *sql.DB) *DemoRepository {
	return &DemoRepository{DB: db}
}

func (r *DemoRepository) CreateSlot(ctx context.Context, s *entity.DemoSlot) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO demo_slots (id, date, duration_minutes, is_available, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.Date, s.DurationMinutes, s.IsAvailable, nullString(s.CreatedBy), s.CreatedAt)
	if err != nil {
		if uniqueConstraint(err) != "" {
			return entity.ErrConflict
		}
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

func (r *DemoRepository) FindSlot(ctx context.Context, id string) (*entity.DemoSlot, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, date, duration_minutes, is_available, created_by, created_at
		FROM demo_slots WHERE id = $1
	`, id)
	slot, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find slot: %w", err)
	}
	return slot, nil
}

// ListOpenSlots pages by (date, id) keyset.
func (r *DemoRepository) ListOpenSlots(ctx context.Context, after time.Time, cursor entity.SlotCursor, limit int) ([]entity.DemoSlot, error) {
	query := `
		SELECT s.id, s.date, s.duration_minutes, s.is_available, s.created_by, s.created_at
		FROM demo_slots s
		WHERE s.is_available
		  AND s.date > $1
		  AND NOT EXISTS (
			SELECT 1 FROM demo_bookings b WHERE b.slot_id = s.id AND b.status <> 'CANCELLED'
		  )`
	args := []any{after}
	if !cursor.Date.IsZero() || cursor.ID != "" {
		query += ` AND (s.date, s.id) > ($2, $3::uuid)`
		args = append(args, cursor.Date, cursor.ID)
	}
	query += ` ORDER BY s.date, s.id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list open slots: %w", err)
	}
	defer rows.Close()

	var out []entity.DemoSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		out = append(out, *slot)
	}
	return out, rows.Err()
}

// CreateBooking locks the slot row so that availability is checked and the
// booking inserted against the same state. The partial unique indexes are
// the last line: a concurrent insert still loses with a 23505.
func (r *DemoRepository) CreateBooking(ctx context.Context, b *entity.DemoBooking) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var available bool
		err := tx.QueryRowContext(ctx, `SELECT is_available FROM demo_slots WHERE id = $1 FOR UPDATE`, b.SlotID).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ErrSlotNotFound
		}
		if err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}
		if !available {
			return entity.ErrSlotUnavailable
		}

		var leadExists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, b.LeadID).Scan(&leadExists); err != nil {
			return fmt.Errorf("check lead: %w", err)
		}
		if !leadExists {
			return entity.ErrLeadNotFound
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO demo_bookings (id, slot_id, lead_id, type, location, notes, status, booked_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			b.ID, b.SlotID, b.LeadID, b.Type, nullString(b.Location), nullString(b.Notes),
			b.Status, nullString(b.BookedBy), b.CreatedAt, b.UpdatedAt,
		)
		switch uniqueConstraint(err) {
		case "":
		case "demo_bookings_slot_holding":
			return entity.ErrSlotUnavailable
		case "demo_bookings_lead_confirmed":
			return entity.ErrLeadAlreadyBooked
		default:
			return entity.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
}

const bookingSelect = `
	SELECT b.id, b.slot_id, b.lead_id, b.type, b.location, b.notes, b.status, s.date, b.booked_by,
		b.created_at, b.updated_at, b.completed_at, b.cancelled_at
	FROM demo_bookings b
	JOIN demo_slots s ON s.id = b.slot_id`

func (r *DemoRepository) FindBooking(ctx context.Context, id string) (*entity.DemoBooking, error) {
	row := r.DB.QueryRowContext(ctx, bookingSelect+` WHERE b.id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return b, nil
}

// UpdateBookingStatus only moves bookings out of CONFIRMED.
func (r *DemoRepository) UpdateBookingStatus(ctx context.Context, b *entity.DemoBooking) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE demo_bookings
		SET status = $2, completed_at = $3, cancelled_at = $4, updated_at = $5
		WHERE id = $1 AND status = 'CONFIRMED'
	`, b.ID, b.Status, b.CompletedAt, b.CancelledAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM demo_bookings WHERE id = $1)`, b.ID).Scan(&exists); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if exists {
		return entity.ErrInvalidBookingState
	}
	return entity.ErrBookingNotFound
}

func (r *DemoRepository) ListBookingsByLead(ctx context.Context, leadID string) ([]*entity.DemoBooking, error) {
	rows, err := r.DB.QueryContext(ctx, bookingSelect+` WHERE b.lead_id = $1 ORDER BY b.created_at DESC, b.id DESC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := []*entity.DemoBooking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanSlot(row rowScanner) (*entity.DemoSlot, error) {
	var (
		s         entity.DemoSlot
		createdBy sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Date, &s.DurationMinutes, &s.IsAvailable, &createdBy, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.CreatedBy = fromNull(createdBy)
	s.Date = s.Date.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

func scanBooking(row rowScanner) (*entity.DemoBooking, error) {
	var (
		b                         entity.DemoBooking
		location, notes, bookedBy sql.NullString
		completedAt, cancelledAt  sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.SlotID, &b.LeadID, &b.Type, &location, &notes, &b.Status, &b.SlotDate, &bookedBy,
		&b.CreatedAt, &b.UpdatedAt, &completedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}
	b.Location = fromNull(location)
	b.Notes = fromNull(notes)
	b.BookedBy = fromNull(bookedBy)
	b.CompletedAt = fromNullTime(completedAt)
	b.CancelledAt = fromNullTime(cancelledAt)
	b.SlotDate = b.SlotDate.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}
