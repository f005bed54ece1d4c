package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopslothq/shopslot/libs/db"
	"github.com/shopslothq/shopslot/services/shopslot/internal/model"
)

type ShopRepository struct {
	pool *db.Pool
}

func NewShopRepository(pool *db.Pool) *ShopRepository {
	return &ShopRepository{pool: pool}
}

func (r *ShopRepository) Create(ctx context.Context, shop *model.Shop) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO shops (id, slug, name, timezone, is_active, accepts_online_booking)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, shop.Slug, shop.Name, shop.Timezone, shop.IsActive, shop.AcceptsOnlineBooking)
	if err != nil {
		return "", err
	}

	// Default hours: Mon-Fri 09:00-17:00 open, Sat/Sun closed.
	for wd := 0; wd <= 6; wd++ {
		isClosed := wd >= 5
		var openMin, closeMin *int
		if !isClosed {
			o, c := 540, 1020
			openMin, closeMin = &o, &c
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO shop_hours (shop_id, weekday, open_minute, close_minute, is_closed)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (shop_id, weekday) DO NOTHING
		`, id, wd, openMin, closeMin, isClosed); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *ShopRepository) GetBySlug(ctx context.Context, slug string) (model.Shop, error) {
	var s model.Shop
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, slug, name, timezone, is_active, accepts_online_booking, created_at
		FROM shops
		WHERE slug = $1 AND is_active
	`, slug).Scan(&s.ID, &s.Slug, &s.Name, &s.Timezone, &s.IsActive, &s.AcceptsOnlineBooking, &s.CreatedAt)
	if err != nil {
		return model.Shop{}, err
	}
	return s, nil
}

func (r *ShopRepository) GetByID(ctx context.Context, shopID string) (model.Shop, error) {
	var s model.Shop
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, slug, name, timezone, is_active, accepts_online_booking, created_at
		FROM shops
		WHERE id = $1
	`, shopID).Scan(&s.ID, &s.Slug, &s.Name, &s.Timezone, &s.IsActive, &s.AcceptsOnlineBooking, &s.CreatedAt)
	if err != nil {
		return model.Shop{}, err
	}
	return s, nil
}

// GetHours returns the shop's rule for one weekday, or nil when no rule exists.
func (r *ShopRepository) GetHours(ctx context.Context, shopID string, weekday int) (*model.ShopHours, error) {
	var h model.ShopHours
	err := r.pool.QueryRow(ctx, `
		SELECT shop_id::text, weekday, open_minute, close_minute, is_closed
		FROM shop_hours
		WHERE shop_id = $1 AND weekday = $2
	`, shopID, weekday).Scan(&h.ShopID, &h.Weekday, &h.OpenMinute, &h.CloseMinute, &h.IsClosed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *ShopRepository) ListHours(ctx context.Context, shopID string) ([]model.ShopHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT shop_id::text, weekday, open_minute, close_minute, is_closed
		FROM shop_hours
		WHERE shop_id = $1
		ORDER BY weekday ASC
	`, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ShopHours
	for rows.Next() {
		var h model.ShopHours
		if err := rows.Scan(&h.ShopID, &h.Weekday, &h.OpenMinute, &h.CloseMinute, &h.IsClosed); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *ShopRepository) UpsertHours(ctx context.Context, shopID string, rules []model.ShopHours) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, h := range rules {
		if _, err := tx.Exec(ctx, `
			INSERT INTO shop_hours (shop_id, weekday, open_minute, close_minute, is_closed)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (shop_id, weekday) DO UPDATE
			SET open_minute = EXCLUDED.open_minute,
				close_minute = EXCLUDED.close_minute,
				is_closed = EXCLUDED.is_closed
		`, shopID, h.Weekday, h.OpenMinute, h.CloseMinute, h.IsClosed); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ShopRepository) CreateClosure(ctx context.Context, shopID string, date time.Time, reason string) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO shop_closures (id, shop_id, date, reason)
		VALUES ($1, $2, $3, $4)
	`, id, shopID, date, reason)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ShopRepository) ListClosures(ctx context.Context, shopID string, from time.Time, limit int) ([]model.ShopClosure, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, shop_id::text, date, COALESCE(reason, '')
		FROM shop_closures
		WHERE shop_id = $1 AND date >= $2
		ORDER BY date ASC
		LIMIT $3
	`, shopID, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ShopClosure
	for rows.Next() {
		var c model.ShopClosure
		if err := rows.Scan(&c.ID, &c.ShopID, &c.Date, &c.Reason); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// IsConflict reports a unique or exclusion constraint violation.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505")
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
