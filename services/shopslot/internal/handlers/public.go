package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopslothq/shopslot/services/shopslot/internal/availability"
	"github.com/shopslothq/shopslot/services/shopslot/internal/metrics"
	"github.com/shopslothq/shopslot/services/shopslot/internal/model"
	"github.com/shopslothq/shopslot/services/shopslot/internal/outbox"
	"github.com/shopslothq/shopslot/services/shopslot/internal/storage"
)

// PublicHandler serves the guest-facing booking surface: the booking page
// payload, the slot lookup used on date changes, and booking creation.
type PublicHandler struct {
	shops      *storage.ShopRepository
	catalog    *storage.CatalogRepository
	bookings   *storage.BookingRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
	slots      slotSource
	now        func() time.Time
}

func NewPublicHandler(shops *storage.ShopRepository, catalog *storage.CatalogRepository, bookings *storage.BookingRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		shops:      shops,
		catalog:    catalog,
		bookings:   bookings,
		outboxRepo: outboxRepo,
		logger:     logger,
		slots:      slotSource{shops: shops, catalog: catalog, bookings: bookings},
		now:        time.Now,
	}
}

type bookingPageResponse struct {
	Shop struct {
		Slug     string `json:"slug"`
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
	} `json:"shop"`
	Service struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		DurationMinutes int    `json:"duration_minutes"`
		Price           string `json:"price"`
	} `json:"service"`
	Staff *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"staff,omitempty"`
	Date   string              `json:"date"`
	Dates  []string            `json:"dates"`
	Slots  []availability.Slot `json:"slots"`
	Reason string              `json:"reason,omitempty"`
}

// BookingPage returns everything the public booking page needs for one
// (shop, service, staff, date) selection. A missing or malformed date falls
// back to today in the shop's timezone.
func (h *PublicHandler) BookingPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	shop, err := h.shops.GetBySlug(ctx, strings.TrimSpace(q.Get("shop")))
	if err != nil || !shop.AcceptsOnlineBooking {
		http.Error(w, "shop not found", http.StatusNotFound)
		return
	}
	svc, err := h.catalog.GetService(ctx, shop.ID, strings.TrimSpace(q.Get("service")))
	if err != nil {
		http.Error(w, "service not found", http.StatusNotFound)
		return
	}

	var staff *model.Staff
	if staffID := strings.TrimSpace(q.Get("staff")); staffID != "" {
		st, err := h.catalog.GetStaff(ctx, shop.ID, staffID)
		if err != nil {
			http.Error(w, "staff not found", http.StatusNotFound)
			return
		}
		staff = &st
	}

	now := h.now().In(shop.Location())
	date := dateOrToday(q.Get("date"), now)

	res, err := h.slots.daySlots(ctx, shop, svc, staff, date, now)
	if err != nil {
		h.logger.Error("slot computation failed", "shop_id", shop.ID, "err", err)
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}
	metrics.IncSlotRequests()

	var resp bookingPageResponse
	resp.Shop.Slug = shop.Slug
	resp.Shop.Name = shop.Name
	resp.Shop.Timezone = shop.Timezone
	resp.Service.ID = svc.ID
	resp.Service.Name = svc.Name
	resp.Service.DurationMinutes = svc.DurationMinutes
	resp.Service.Price = svc.Price
	if staff != nil {
		resp.Staff = &struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}{ID: staff.ID, Name: staff.Name}
	}
	resp.Date = date.Format(dateLayout)
	resp.Dates = upcomingDates(now, 14)
	payload := slotsPayload(res)
	resp.Slots = payload.Slots
	resp.Reason = payload.Reason

	writeJSON(w, http.StatusOK, resp)
}

// Slots returns the slot list for one date. Lookup failures and malformed
// dates degrade to an empty list so the page's date picker never breaks.
func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	empty := slotListResponse{Slots: []availability.Slot{}}

	shop, err := h.shops.GetBySlug(ctx, strings.TrimSpace(q.Get("shop")))
	if err != nil || !shop.AcceptsOnlineBooking {
		writeJSON(w, http.StatusOK, empty)
		return
	}
	svc, err := h.catalog.GetService(ctx, shop.ID, strings.TrimSpace(q.Get("service")))
	if err != nil {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	var staff *model.Staff
	if staffID := strings.TrimSpace(q.Get("staff")); staffID != "" {
		st, err := h.catalog.GetStaff(ctx, shop.ID, staffID)
		if err != nil {
			writeJSON(w, http.StatusOK, empty)
			return
		}
		staff = &st
	}

	date, err := parseDate(q.Get("date"))
	if err != nil {
		writeJSON(w, http.StatusOK, empty)
		return
	}

	now := h.now().In(shop.Location())
	res, err := h.slots.daySlots(ctx, shop, svc, staff, date, now)
	if err != nil {
		h.logger.Error("slot computation failed", "shop_id", shop.ID, "err", err)
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}
	metrics.IncSlotRequests()
	writeJSON(w, http.StatusOK, slotsPayload(res))
}

type bookRequest struct {
	Shop       string `json:"shop"`
	ServiceID  string `json:"service_id"`
	StaffID    string `json:"staff_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	Notes      string `json:"notes"`
}

type bookResponse struct {
	BookingID string `json:"booking_id"`
	StaffID   string `json:"staff_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Status    string `json:"status"`
}

// Book creates a confirmed booking for a guest. When no staff member is
// chosen, the first active one assigned to the service takes the booking.
func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Shop = strings.TrimSpace(req.Shop)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.StaffID = strings.TrimSpace(req.StaffID)
	req.GuestName = strings.TrimSpace(req.GuestName)

	if req.Shop == "" || req.ServiceID == "" || req.GuestName == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	start, err := availability.ParseTimeOfDay(req.Time)
	if err != nil {
		http.Error(w, "invalid time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	shop, err := h.shops.GetBySlug(ctx, req.Shop)
	if err != nil || !shop.AcceptsOnlineBooking {
		http.Error(w, "shop not found", http.StatusNotFound)
		return
	}
	svc, err := h.catalog.GetService(ctx, shop.ID, req.ServiceID)
	if err != nil {
		http.Error(w, "service not found", http.StatusNotFound)
		return
	}

	var staff model.Staff
	if req.StaffID != "" {
		staff, err = h.catalog.GetStaff(ctx, shop.ID, req.StaffID)
		if err != nil {
			http.Error(w, "staff not found", http.StatusNotFound)
			return
		}
	} else {
		staff, err = h.catalog.FirstStaffForService(ctx, shop.ID, svc.ID)
		if err != nil {
			http.Error(w, "no staff available for this service", http.StatusNotFound)
			return
		}
	}

	now := h.now().In(shop.Location())
	res, err := h.slots.daySlots(ctx, shop, svc, &staff, date, now)
	if err != nil {
		h.logger.Error("slot computation failed", "shop_id", shop.ID, "err", err)
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}
	if !slotOffered(res, start) {
		metrics.IncBookingConflicts()
		http.Error(w, "slot not available", http.StatusUnprocessableEntity)
		return
	}

	booking := &model.Booking{
		ShopID:      shop.ID,
		StaffID:     staff.ID,
		ServiceID:   svc.ID,
		Date:        date,
		StartMinute: int(start),
		EndMinute:   int(start) + svc.DurationMinutes,
		Status:      model.StatusConfirmed,
		GuestName:   req.GuestName,
		GuestEmail:  strings.TrimSpace(req.GuestEmail),
		GuestPhone:  strings.TrimSpace(req.GuestPhone),
		Notes:       strings.TrimSpace(req.Notes),
		Price:       svc.Price,
	}

	tx, err := h.bookings.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.bookings.LockIdempotencyKey(ctx, tx, shop.ID, idempotencyKey)
		if err != nil {
			http.Error(w, "failed to lock idempotency key", http.StatusInternalServerError)
			return
		}
		if exists && rec.BookingID != "" && rec.StatusCode > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			if len(rec.ResponsePayload) > 0 {
				_, _ = w.Write(rec.ResponsePayload)
				return
			}
			_ = json.NewEncoder(w).Encode(bookResponse{BookingID: rec.BookingID})
			return
		}
	}

	id, err := h.bookings.Create(ctx, tx, booking)
	if err != nil {
		if errors.Is(err, storage.ErrSlotTaken) {
			metrics.IncBookingConflicts()
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create booking", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"booking_id":   id,
		"shop_id":      shop.ID,
		"staff_id":     staff.ID,
		"service_id":   svc.ID,
		"date":         date.Format(dateLayout),
		"start_minute": booking.StartMinute,
		"end_minute":   booking.EndMinute,
		"guest_email":  booking.GuestEmail,
		"guest_phone":  booking.GuestPhone,
		"source":       "public",
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   id,
		EventType:     outbox.EventBookingCreated,
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	respBody, err := json.Marshal(bookResponse{
		BookingID: id,
		StaffID:   staff.ID,
		Date:      date.Format(dateLayout),
		Time:      start.Key(),
		Status:    string(model.StatusConfirmed),
	})
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if idempotencyKey != "" {
		if err := h.bookings.FinalizeIdempotency(ctx, tx, shop.ID, idempotencyKey, id, http.StatusCreated, respBody); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	metrics.IncBookingsCreated("public")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

func slotOffered(res availability.Result, start availability.TimeOfDay) bool {
	for _, s := range res.Slots {
		if s.Start == start {
			return true
		}
	}
	return false
}
