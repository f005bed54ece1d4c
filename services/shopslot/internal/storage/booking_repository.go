package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopslothq/shopslot/libs/db"
	"github.com/shopslothq/shopslot/services/shopslot/internal/model"
)

type BookingRepository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	ShopID          string
	IdempotencyKey  string
	BookingID       string
	StatusCode      int
	ResponsePayload []byte
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, shopID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, shopID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (shop_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (shop_id, idempotency_key) DO NOTHING
	`, shopID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, shopID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, shopID, key, bookingID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET booking_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE shop_id = $1 AND idempotency_key = $2
	`, shopID, key, bookingID, statusCode, response)
	return err
}

// Create inserts a booking after an in-transaction overlap check against
// occupying bookings for the same staff member and date. The conflicting rows
// are locked so two concurrent attempts for the same slot serialize; the
// bookings table's exclusion constraint is the final backstop (mapped to a
// conflict by IsConflict).
func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) (string, error) {
	var conflictID string
	err := tx.QueryRow(ctx, `
		SELECT id::text
		FROM bookings
		WHERE staff_id = $1
			AND date = $2
			AND status IN ('pending', 'confirmed')
			AND start_minute < $4
			AND end_minute > $3
		LIMIT 1
		FOR UPDATE
	`, b.StaffID, b.Date, b.StartMinute, b.EndMinute).Scan(&conflictID)
	if err == nil {
		return "", ErrSlotTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	id := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO bookings
			(id, shop_id, staff_id, service_id, date, start_minute, end_minute, status,
			 guest_name, guest_email, guest_phone, notes, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, id, b.ShopID, b.StaffID, b.ServiceID, b.Date, b.StartMinute, b.EndMinute, string(b.Status),
		b.GuestName, b.GuestEmail, b.GuestPhone, b.Notes, b.Price)
	if err != nil {
		if IsConflict(err) {
			return "", ErrSlotTaken
		}
		return "", err
	}
	return id, nil
}

// ErrSlotTaken reports that an occupying booking already covers the range.
var ErrSlotTaken = errors.New("time slot already booked")

// ListForDay returns the occupying bookings for a date, scoped to a staff
// member when staffID is set, otherwise to the whole shop.
func (r *BookingRepository) ListForDay(ctx context.Context, shopID, staffID string, date time.Time) ([]model.Booking, error) {
	query := `
		SELECT id::text, shop_id::text, staff_id::text, service_id::text, date, start_minute, end_minute, status,
			COALESCE(guest_name, ''), COALESCE(guest_email, ''), COALESCE(guest_phone, ''),
			COALESCE(notes, ''), COALESCE(cancellation_reason, ''), price::text, cancelled_at, created_at
		FROM bookings
		WHERE shop_id = $1 AND date = $2 AND status IN ('pending', 'confirmed')
		ORDER BY start_minute ASC
	`
	args := []any{shopID, date}
	if staffID != "" {
		query = `
		SELECT id::text, shop_id::text, staff_id::text, service_id::text, date, start_minute, end_minute, status,
			COALESCE(guest_name, ''), COALESCE(guest_email, ''), COALESCE(guest_phone, ''),
			COALESCE(notes, ''), COALESCE(cancellation_reason, ''), price::text, cancelled_at, created_at
		FROM bookings
		WHERE shop_id = $1 AND date = $2 AND staff_id = $3 AND status IN ('pending', 'confirmed')
		ORDER BY start_minute ASC
		`
		args = append(args, staffID)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

type ListFilter struct {
	Status  string
	Date    *time.Time
	StaffID string
	Limit   int
}

func (r *BookingRepository) List(ctx context.Context, shopID string, f ListFilter) ([]model.Booking, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, shop_id::text, staff_id::text, service_id::text, date, start_minute, end_minute, status,
			COALESCE(guest_name, ''), COALESCE(guest_email, ''), COALESCE(guest_phone, ''),
			COALESCE(notes, ''), COALESCE(cancellation_reason, ''), price::text, cancelled_at, created_at
		FROM bookings
		WHERE shop_id = $1
			AND ($2 = '' OR status = $2)
			AND ($3::date IS NULL OR date = $3)
			AND ($4 = '' OR staff_id::text = $4)
		ORDER BY date DESC, start_minute DESC
		LIMIT $5
	`, shopID, f.Status, f.Date, f.StaffID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, shopID, bookingID string) (model.Booking, error) {
	row := tx.QueryRow(ctx, `
		SELECT id::text, shop_id::text, staff_id::text, service_id::text, date, start_minute, end_minute, status,
			COALESCE(guest_name, ''), COALESCE(guest_email, ''), COALESCE(guest_phone, ''),
			COALESCE(notes, ''), COALESCE(cancellation_reason, ''), price::text, cancelled_at, created_at
		FROM bookings
		WHERE id = $1 AND shop_id = $2
		FOR UPDATE
	`, bookingID, shopID)
	return scanBooking(row)
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, shopID, bookingID string, status model.Status) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $3, updated_at = now()
		WHERE id = $1 AND shop_id = $2
	`, bookingID, shopID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *BookingRepository) Cancel(ctx context.Context, tx pgx.Tx, shopID, bookingID, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $3,
			updated_at = now()
		WHERE id = $1 AND shop_id = $2
		RETURNING cancelled_at
	`, bookingID, shopID, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

func scanBookings(rows pgx.Rows) ([]model.Booking, error) {
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var status string
	var cancelledAt *time.Time
	err := row.Scan(
		&b.ID,
		&b.ShopID,
		&b.StaffID,
		&b.ServiceID,
		&b.Date,
		&b.StartMinute,
		&b.EndMinute,
		&status,
		&b.GuestName,
		&b.GuestEmail,
		&b.GuestPhone,
		&b.Notes,
		&b.CancellationReason,
		&b.Price,
		&cancelledAt,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.Status(status)
	b.CancelledAt = cancelledAt
	return b, nil
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, shopID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT shop_id::text,
			idempotency_key,
			COALESCE(booking_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE shop_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, shopID, key).Scan(
		&rec.ShopID,
		&rec.IdempotencyKey,
		&rec.BookingID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
