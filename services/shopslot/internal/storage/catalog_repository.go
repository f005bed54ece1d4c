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

// CatalogRepository covers the per-shop catalog: services, staff, staff
// schedules and time off.
type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreateService(ctx context.Context, svc *model.Service) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, shop_id, name, description, duration_minutes, price, buffer_before, buffer_after, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, svc.ShopID, svc.Name, svc.Description, svc.DurationMinutes, svc.Price, svc.BufferBefore, svc.BufferAfter, svc.IsActive)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CatalogRepository) GetService(ctx context.Context, shopID, serviceID string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, shop_id::text, name, COALESCE(description, ''), duration_minutes, price::text,
			buffer_before, buffer_after, is_active, created_at
		FROM services
		WHERE shop_id = $1 AND id = $2 AND is_active
	`, shopID, serviceID).Scan(&s.ID, &s.ShopID, &s.Name, &s.Description, &s.DurationMinutes, &s.Price,
		&s.BufferBefore, &s.BufferAfter, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return model.Service{}, err
	}
	return s, nil
}

func (r *CatalogRepository) ListServices(ctx context.Context, shopID string, limit int) ([]model.Service, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, shop_id::text, name, COALESCE(description, ''), duration_minutes, price::text,
			buffer_before, buffer_after, is_active, created_at
		FROM services
		WHERE shop_id = $1 AND is_active
		ORDER BY name ASC
		LIMIT $2
	`, shopID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.ShopID, &s.Name, &s.Description, &s.DurationMinutes, &s.Price,
			&s.BufferBefore, &s.BufferAfter, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CatalogRepository) CreateStaff(ctx context.Context, st *model.Staff) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO staff (id, shop_id, name, job_title, is_active, accepts_bookings)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, st.ShopID, st.Name, st.JobTitle, st.IsActive, st.AcceptsBookings)
	if err != nil {
		return "", err
	}

	// Default schedule: no explicit times on any weekday, so the staff member
	// inherits the shop's hours until a custom schedule is saved.
	for wd := 0; wd <= 6; wd++ {
		if _, err := tx.Exec(ctx, `
			INSERT INTO staff_hours (staff_id, weekday, start_minute, end_minute, is_day_off)
			VALUES ($1, $2, NULL, NULL, false)
			ON CONFLICT (staff_id, weekday) DO NOTHING
		`, id, wd); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *CatalogRepository) GetStaff(ctx context.Context, shopID, staffID string) (model.Staff, error) {
	var s model.Staff
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, shop_id::text, name, COALESCE(job_title, ''), is_active, accepts_bookings, created_at
		FROM staff
		WHERE shop_id = $1 AND id = $2 AND is_active
	`, shopID, staffID).Scan(&s.ID, &s.ShopID, &s.Name, &s.JobTitle, &s.IsActive, &s.AcceptsBookings, &s.CreatedAt)
	if err != nil {
		return model.Staff{}, err
	}
	return s, nil
}

func (r *CatalogRepository) ListStaff(ctx context.Context, shopID string, limit int) ([]model.Staff, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, shop_id::text, name, COALESCE(job_title, ''), is_active, accepts_bookings, created_at
		FROM staff
		WHERE shop_id = $1 AND is_active
		ORDER BY name ASC
		LIMIT $2
	`, shopID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		var s model.Staff
		if err := rows.Scan(&s.ID, &s.ShopID, &s.Name, &s.JobTitle, &s.IsActive, &s.AcceptsBookings, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CatalogRepository) AssignService(ctx context.Context, shopID, staffID, serviceID string) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO staff_services (staff_id, service_id)
		SELECT st.id, sv.id
		FROM staff st, services sv
		WHERE st.id = $2 AND st.shop_id = $1
		  AND sv.id = $3 AND sv.shop_id = $1
		ON CONFLICT (staff_id, service_id) DO NOTHING
	`, shopID, staffID, serviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either already assigned or an id did not match the shop; verify.
		var ok bool
		if err := r.pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM staff_services ss
				JOIN staff st ON st.id = ss.staff_id
				WHERE ss.staff_id = $2 AND ss.service_id = $3 AND st.shop_id = $1
			)
		`, shopID, staffID, serviceID).Scan(&ok); err != nil {
			return err
		}
		if !ok {
			return pgx.ErrNoRows
		}
	}
	return nil
}

// FirstStaffForService picks the first active, booking-accepting staff member
// assigned to a service, used when the customer leaves the staff choice open.
func (r *CatalogRepository) FirstStaffForService(ctx context.Context, shopID, serviceID string) (model.Staff, error) {
	var s model.Staff
	err := r.pool.QueryRow(ctx, `
		SELECT st.id::text, st.shop_id::text, st.name, COALESCE(st.job_title, ''), st.is_active, st.accepts_bookings, st.created_at
		FROM staff st
		JOIN staff_services ss ON ss.staff_id = st.id
		WHERE st.shop_id = $1 AND ss.service_id = $2 AND st.is_active AND st.accepts_bookings
		ORDER BY st.created_at ASC
		LIMIT 1
	`, shopID, serviceID).Scan(&s.ID, &s.ShopID, &s.Name, &s.JobTitle, &s.IsActive, &s.AcceptsBookings, &s.CreatedAt)
	if err != nil {
		return model.Staff{}, err
	}
	return s, nil
}

// GetStaffHours returns the staff member's rule for one weekday, or nil when
// no rule exists (staff inherits shop hours entirely).
func (r *CatalogRepository) GetStaffHours(ctx context.Context, staffID string, weekday int) (*model.StaffHours, error) {
	var h model.StaffHours
	err := r.pool.QueryRow(ctx, `
		SELECT staff_id::text, weekday, start_minute, end_minute, is_day_off
		FROM staff_hours
		WHERE staff_id = $1 AND weekday = $2
	`, staffID, weekday).Scan(&h.StaffID, &h.Weekday, &h.StartMinute, &h.EndMinute, &h.IsDayOff)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *CatalogRepository) UpsertStaffHours(ctx context.Context, shopID, staffID string, rules []model.StaffHours) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM staff WHERE id = $1 AND shop_id = $2)
	`, staffID, shopID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}

	for _, h := range rules {
		if _, err := tx.Exec(ctx, `
			INSERT INTO staff_hours (staff_id, weekday, start_minute, end_minute, is_day_off)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (staff_id, weekday) DO UPDATE
			SET start_minute = EXCLUDED.start_minute,
				end_minute = EXCLUDED.end_minute,
				is_day_off = EXCLUDED.is_day_off
		`, staffID, h.Weekday, h.StartMinute, h.EndMinute, h.IsDayOff); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *CatalogRepository) CreateTimeOff(ctx context.Context, shopID string, t *model.StaffTimeOff) (string, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM staff WHERE id = $1 AND shop_id = $2)
	`, t.StaffID, shopID).Scan(&exists); err != nil {
		return "", err
	}
	if !exists {
		return "", pgx.ErrNoRows
	}

	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_time_off (id, staff_id, start_date, end_date, reason, is_approved)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, t.StaffID, t.StartDate, t.EndDate, t.Reason, t.IsApproved)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ApprovedTimeOffCovering returns the approved time-off ranges that include
// the given date. Unapproved requests never block availability.
func (r *CatalogRepository) ApprovedTimeOffCovering(ctx context.Context, staffID string, date time.Time) ([]model.StaffTimeOff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, staff_id::text, start_date, end_date, COALESCE(reason, ''), is_approved, created_at
		FROM staff_time_off
		WHERE staff_id = $1 AND is_approved AND start_date <= $2 AND end_date >= $2
	`, staffID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StaffTimeOff
	for rows.Next() {
		var t model.StaffTimeOff
		if err := rows.Scan(&t.ID, &t.StaffID, &t.StartDate, &t.EndDate, &t.Reason, &t.IsApproved, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CatalogRepository) ListTimeOff(ctx context.Context, shopID, staffID string, limit int) ([]model.StaffTimeOff, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT t.id::text, t.staff_id::text, t.start_date, t.end_date, COALESCE(t.reason, ''), t.is_approved, t.created_at
		FROM staff_time_off t
		JOIN staff s ON s.id = t.staff_id
		WHERE s.shop_id = $1 AND t.staff_id = $2
		ORDER BY t.start_date ASC
		LIMIT $3
	`, shopID, staffID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StaffTimeOff
	for rows.Next() {
		var t model.StaffTimeOff
		if err := rows.Scan(&t.ID, &t.StaffID, &t.StartDate, &t.EndDate, &t.Reason, &t.IsApproved, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *CatalogRepository) DeleteTimeOff(ctx context.Context, shopID, timeOffID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM staff_time_off t
		USING staff s
		WHERE t.staff_id = s.id
		  AND s.shop_id = $1
		  AND t.id = $2
	`, shopID, timeOffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
