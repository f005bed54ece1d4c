package storage

import (
	"context"
	"time"
)

// DashboardStats aggregates real booking data for the owner dashboard.
type DashboardStats struct {
	Total         int
	ByStatus      map[string]int
	BookedRevenue string // SUM of price snapshots for confirmed+completed bookings
	PerDay        []DayVolume
}

type DayVolume struct {
	Date  time.Time
	Count int
}

func (r *BookingRepository) Stats(ctx context.Context, shopID string, from, to time.Time) (DashboardStats, error) {
	stats := DashboardStats{ByStatus: map[string]int{}}

	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM bookings
		WHERE shop_id = $1 AND date >= $2 AND date <= $3
		GROUP BY status
	`, shopID, from, to)
	if err != nil {
		return DashboardStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return DashboardStats{}, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if rows.Err() != nil {
		return DashboardStats{}, rows.Err()
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(price), 0)::text
		FROM bookings
		WHERE shop_id = $1 AND date >= $2 AND date <= $3
			AND status IN ('confirmed', 'completed')
	`, shopID, from, to).Scan(&stats.BookedRevenue)
	if err != nil {
		return DashboardStats{}, err
	}

	dayRows, err := r.pool.Query(ctx, `
		SELECT date, COUNT(*)
		FROM bookings
		WHERE shop_id = $1 AND date >= $2 AND date <= $3
		GROUP BY date
		ORDER BY date ASC
	`, shopID, from, to)
	if err != nil {
		return DashboardStats{}, err
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var dv DayVolume
		if err := dayRows.Scan(&dv.Date, &dv.Count); err != nil {
			return DashboardStats{}, err
		}
		stats.PerDay = append(stats.PerDay, dv)
	}
	if dayRows.Err() != nil {
		return DashboardStats{}, dayRows.Err()
	}

	return stats, nil
}
