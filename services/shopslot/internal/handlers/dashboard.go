package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopslothq/shopslot/services/shopslot/internal/storage"
)

// DashboardHandler serves the owner dashboard aggregates, computed from the
// booking store on every request.
type DashboardHandler struct {
	shops    *storage.ShopRepository
	bookings *storage.BookingRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewDashboardHandler(shops *storage.ShopRepository, bookings *storage.BookingRepository, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{shops: shops, bookings: bookings, logger: logger, now: time.Now}
}

type dashboardResponse struct {
	From          string         `json:"from"`
	To            string         `json:"to"`
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"by_status"`
	BookedRevenue string         `json:"booked_revenue"`
	PerDay        []dayVolume    `json:"per_day"`
}

type dayVolume struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats returns booking counts per status, booked revenue and per-day volume
// for a date range (default: the last 30 days including today).
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	shopID := r.Header.Get("X-Shop-Id")
	shop, err := h.shops.GetByID(r.Context(), shopID)
	if err != nil {
		http.Error(w, "shop not found", http.StatusNotFound)
		return
	}

	now := h.now().In(shop.Location())
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -29)

	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		from = d
	}
	if raw := q.Get("to"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			http.Error(w, "invalid to date", http.StatusBadRequest)
			return
		}
		to = d
	}
	if to.Before(from) {
		http.Error(w, "to must not be before from", http.StatusBadRequest)
		return
	}

	stats, err := h.bookings.Stats(r.Context(), shop.ID, from, to)
	if err != nil {
		h.logger.Error("stats query failed", "shop_id", shop.ID, "err", err)
		http.Error(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}

	resp := dashboardResponse{
		From:          from.Format(dateLayout),
		To:            to.Format(dateLayout),
		Total:         stats.Total,
		ByStatus:      stats.ByStatus,
		BookedRevenue: stats.BookedRevenue,
		PerDay:        make([]dayVolume, 0, len(stats.PerDay)),
	}
	for _, dv := range stats.PerDay {
		resp.PerDay = append(resp.PerDay, dayVolume{Date: dv.Date.Format(dateLayout), Count: dv.Count})
	}
	writeJSON(w, http.StatusOK, resp)
}
