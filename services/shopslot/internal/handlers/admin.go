package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopslothq/shopslot/services/shopslot/internal/availability"
	"github.com/shopslothq/shopslot/services/shopslot/internal/metrics"
	"github.com/shopslothq/shopslot/services/shopslot/internal/model"
	"github.com/shopslothq/shopslot/services/shopslot/internal/outbox"
	"github.com/shopslothq/shopslot/services/shopslot/internal/storage"
)

// AdminHandler serves the owner-facing management surface. Every endpoint
// except shop registration is scoped to the shop named by the X-Shop-Id
// header.
type AdminHandler struct {
	shops      *storage.ShopRepository
	catalog    *storage.CatalogRepository
	bookings   *storage.BookingRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
	now        func() time.Time
}

func NewAdminHandler(shops *storage.ShopRepository, catalog *storage.CatalogRepository, bookings *storage.BookingRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		shops:      shops,
		catalog:    catalog,
		bookings:   bookings,
		outboxRepo: outboxRepo,
		logger:     logger,
		now:        time.Now,
	}
}

func (h *AdminHandler) requireShop(w http.ResponseWriter, r *http.Request) (model.Shop, bool) {
	shopID := strings.TrimSpace(r.Header.Get("X-Shop-Id"))
	if shopID == "" {
		http.Error(w, "X-Shop-Id header required", http.StatusBadRequest)
		return model.Shop{}, false
	}
	shop, err := h.shops.GetByID(r.Context(), shopID)
	if err != nil {
		http.Error(w, "shop not found", http.StatusNotFound)
		return model.Shop{}, false
	}
	return shop, true
}

type createShopRequest struct {
	Slug                 string `json:"slug"`
	Name                 string `json:"name"`
	Timezone             string `json:"timezone"`
	AcceptsOnlineBooking *bool  `json:"accepts_online_booking"`
}

// CreateShop registers a shop and seeds its default weekly hours.
func (h *AdminHandler) CreateShop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	req.Name = strings.TrimSpace(req.Name)
	req.Timezone = strings.TrimSpace(req.Timezone)
	if req.Slug == "" || req.Name == "" {
		http.Error(w, "slug and name required", http.StatusBadRequest)
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		http.Error(w, "invalid timezone", http.StatusBadRequest)
		return
	}

	accepts := true
	if req.AcceptsOnlineBooking != nil {
		accepts = *req.AcceptsOnlineBooking
	}
	id, err := h.shops.Create(r.Context(), &model.Shop{
		Slug:                 req.Slug,
		Name:                 req.Name,
		Timezone:             req.Timezone,
		IsActive:             true,
		AcceptsOnlineBooking: accepts,
	})
	if err != nil {
		if storage.IsConflict(err) {
			http.Error(w, "slug already taken", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create shop", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"shop_id": id})
}

type dayRule struct {
	Weekday  int     `json:"weekday"`
	Open     *string `json:"open"`
	Close    *string `json:"close"`
	IsClosed bool    `json:"is_closed"`
}

type shopHoursRequest struct {
	Hours []dayRule `json:"hours"`
}

// UpdateShopHours replaces the shop's weekly hours rules.
func (h *AdminHandler) UpdateShopHours(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	shop, ok := h.requireShop(w, r)
	if !ok {
		return
	}
	var req shopHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if len(req.Hours) == 0 {
		http.Error(w, "hours required", http.StatusBadRequest)
		return
	}

	rules := make([]model.ShopHours, 0, len(req.Hours))
	for _, d := range req.Hours {
		openMin, closeMin, err := parseDayWindow(d.Weekday, d.Open, d.Close)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rules = append(rules, model.ShopHours{
			ShopID:      shop.ID,
			Weekday:     d.Weekday,
			OpenMinute:  openMin,
			CloseMinute: closeMin,
			IsClosed:    d.IsClosed,
		})
	}
	if err := h.shops.UpsertHours(r.Context(), shop.ID, rules); err != nil {
		http.Error(w, "failed to save hours", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type closureRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type closureItem struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

// Closures creates a full-day closure (POST) or lists the upcoming ones (GET).
func (h *AdminHandler) Closures(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.requireShop(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req closureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		id, err := h.shops.CreateClosure(r.Context(), shop.ID, date, strings.TrimSpace(req.Reason))
		if err != nil {
			http.Error(w, "failed to create closure", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"closure_id": id})
	case http.MethodGet:
		now := h.now().In(shop.Location())
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		closures, err := h.shops.ListClosures(r.Context(), shop.ID, from, 0)
		if err != nil {
			http.Error(w, "failed to list closures", http.StatusInternalServerError)
			return
		}
		items := make([]closureItem, 0, len(closures))
		for _, c := range closures {
			items = append(items, closureItem{ID: c.ID, Date: c.Date.Format(dateLayout), Reason: c.Reason})
		}
		writeJSON(w, http.StatusOK, map[string]any{"closures": items})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createServiceRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
	BufferBefore    int    `json:"buffer_before"`
	BufferAfter     int    `json:"buffer_after"`
}

type serviceItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
	BufferBefore    int    `json:"buffer_before"`
	BufferAfter     int    `json:"buffer_after"`
}

// Services creates a service (POST) or lists the active ones (GET).
func (h *AdminHandler) Services(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.requireShop(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req createServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		if req.DurationMinutes <= 0 {
			http.Error(w, "duration_minutes must be positive", http.StatusBadRequest)
			return
		}
		if req.BufferBefore < 0 || req.BufferAfter < 0 {
			http.Error(w, "buffers must not be negative", http.StatusBadRequest)
			return
		}
		price := strings.TrimSpace(req.Price)
		if price == "" {
			price = "0"
		}
		id, err := h.catalog.CreateService(r.Context(), &model.Service{
			ShopID:          shop.ID,
			Name:            req.Name,
			Description:     strings.TrimSpace(req.Description),
			DurationMinutes: req.DurationMinutes,
			Price:           price,
			BufferBefore:    req.BufferBefore,
			BufferAfter:     req.BufferAfter,
			IsActive:        true,
		})
		if err != nil {
			http.Error(w, "failed to create service", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"service_id": id})
	case http.MethodGet:
		services, err := h.catalog.ListServices(r.Context(), shop.ID, 0)
		if err != nil {
			http.Error(w, "failed to list services", http.StatusInternalServerError)
			return
		}
		items := make([]serviceItem, 0, len(services))
		for _, s := range services {
			items = append(items, serviceItem{
				ID:              s.ID,
				Name:            s.Name,
				Description:     s.Description,
				DurationMinutes: s.DurationMinutes,
				Price:           s.Price,
				BufferBefore:    s.BufferBefore,
				BufferAfter:     s.BufferAfter,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": items})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createStaffRequest struct {
	Name            string `json:"name"`
	JobTitle        string `json:"job_title"`
	AcceptsBookings *bool  `json:"accepts_bookings"`
}

type staffItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	JobTitle        string `json:"job_title,omitempty"`
	AcceptsBookings bool   `json:"accepts_bookings"`
}

// Staff creates a staff member (POST) or lists the active ones (GET). New
// staff start with no explicit schedule and inherit the shop's hours.
func (h *AdminHandler) Staff(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.requireShop(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req createStaffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		accepts := true
		if req.AcceptsBookings != nil {
			accepts = *req.AcceptsBookings
		}
		id, err := h.catalog.CreateStaff(r.Context(), &model.Staff{
			ShopID:          shop.ID,
			Name:            req.Name,
			JobTitle:        strings.TrimSpace(req.JobTitle),
			IsActive:        true,
			AcceptsBookings: accepts,
		})
		if err != nil {
			http.Error(w, "failed to create staff", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"staff_id": id})
	case http.MethodGet:
		staff, err := h.catalog.ListStaff(r.Context(), shop.ID, 0)
		if err != nil {
			http.Error(w, "failed to list staff", http.StatusInternalServerError)
			return
		}
		items := make([]staffItem, 0, len(staff))
		for _, s := range staff {
			items = append(items, staffItem{ID: s.ID, Name: s.Name, JobTitle: s.JobTitle, AcceptsBookings: s.AcceptsBookings})
		}
		writeJSON(w, http.StatusOK, map[string]any{"staff": items})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type staffDayRule struct {
	Weekday  int     `json:"weekday"`
	Start    *string `json:"start"`
	End      *string `json:"end"`
	IsDayOff bool    `json:"is_day_off"`
}

type staffHoursRequest struct {
	StaffID string         `json:"staff_id"`
	Hours   []staffDayRule `json:"hours"`
}

// UpdateStaffHours replaces a staff member's weekly schedule. Nil start or
// end times keep inheriting the shop's hours for that field.
func (h *AdminHandler) UpdateStaffHours(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	shop, ok := h.requireShop(w, r)
	if !ok {
		return
	}
	var req staffHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.StaffID = strings.TrimSpace(req.StaffID)
	if req.StaffID == "" || len(req.Hours) == 0 {
		http.Error(w, "staff_id and hours required", http.StatusBadRequest)
		return
	}

	rules := make([]model.StaffHours, 0, len(req.Hours))
	for _, d := range req.Hours {
		startMin, endMin, err := parseDayWindow(d.Weekday, d.Start, d.End)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rules = append(rules, model.StaffHours{
			StaffID:     req.StaffID,
			Weekday:     d.Weekday,
			StartMinute: startMin,
			EndMinute:   endMin,
			IsDayOff:    d.IsDayOff,
		})
	}
	if err := h.catalog.UpsertStaffHours(r.Context(), shop.ID, req.StaffID, rules); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "staff not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to save hours", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type assignServiceRequest struct {
	StaffID   string `json:"staff_id"`
	ServiceID string `json:"service_id"`
}

// AssignService links a staff member to a service they perform.
func (h *AdminHandler) AssignService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	shop, ok := h.requireShop(w, r)
	if !ok {
		return
	}
	var req assignServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.StaffID = strings.TrimSpace(req.StaffID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.StaffID == "" || req.ServiceID == "" {
		http.Error(w, "staff_id and service_id required", http.StatusBadRequest)
		return
	}
	if err := h.catalog.AssignService(r.Context(), shop.ID, req.StaffID, req.ServiceID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "staff or service not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to assign service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type timeOffRequest struct {
	StaffID    string `json:"staff_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Reason     string `json:"reason"`
	IsApproved *bool  `json:"is_approved"`
}

type timeOffItem struct {
	ID         string `json:"id"`
	StaffID    string `json:"staff_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Reason     string `json:"reason,omitempty"`
	IsApproved bool   `json:"is_approved"`
}

// TimeOff creates (POST), lists (GET) or deletes (DELETE) staff time off.
// Only approved ranges remove a staff member from availability.
func (h *AdminHandler) TimeOff(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.requireShop(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req timeOffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.StaffID = strings.TrimSpace(req.StaffID)
		if req.StaffID == "" {
			http.Error(w, "staff_id required", http.StatusBadRequest)
			return
		}
		start, err := parseDate(req.StartDate)
		if err != nil {
			http.Error(w, "invalid start_date", http.StatusBadRequest)
			return
		}
		end, err := parseDate(req.EndDate)
		if err != nil {
			http.Error(w, "invalid end_date", http.StatusBadRequest)
			return
		}
		if end.Before(start) {
			http.Error(w, "end_date must not be before start_date", http.StatusBadRequest)
			return
		}
		approved := true
		if req.IsApproved != nil {
			approved = *req.IsApproved
		}
		id, err := h.catalog.CreateTimeOff(r.Context(), shop.ID, &model.StaffTimeOff{
			StaffID:    req.StaffID,
			StartDate:  start,
			EndDate:    end,
			Reason:     strings.TrimSpace(req.Reason),
			IsApproved: approved,
		})
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "staff not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to create time off", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"time_off_id": id})
	case http.MethodGet:
		staffID := strings.TrimSpace(r.URL.Query().Get("staff"))
		if staffID == "" {
			http.Error(w, "staff query parameter required", http.StatusBadRequest)
			return
		}
		ranges, err := h.catalog.ListTimeOff(r.Context(), shop.ID, staffID, 0)
		if err != nil {
			http.Error(w, "failed to list time off", http.StatusInternalServerError)
			return
		}
		items := make([]timeOffItem, 0, len(ranges))
		for _, t := range ranges {
			items = append(items, timeOffItem{
				ID:         t.ID,
				StaffID:    t.StaffID,
				StartDate:  t.StartDate.Format(dateLayout),
				EndDate:    t.EndDate.Format(dateLayout),
				Reason:     t.Reason,
				IsApproved: t.IsApproved,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"time_off": items})
	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			http.Error(w, "id query parameter required", http.StatusBadRequest)
			return
		}
		if err := h.catalog.DeleteTimeOff(r.Context(), shop.ID, id); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "time off not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to delete time off", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type manualBookingRequest struct {
	ServiceID  string `json:"service_id"`
	StaffID    string `json:"staff_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	Notes      string `json:"notes"`
}

type bookingItem struct {
	ID          string `json:"id"`
	StaffID     string `json:"staff_id"`
	ServiceID   string `json:"service_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	EndTime     string `json:"end_time"`
	Status      string `json:"status"`
	GuestName   string `json:"guest_name,omitempty"`
	GuestEmail  string `json:"guest_email,omitempty"`
	GuestPhone  string `json:"guest_phone,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Price       string `json:"price"`
	CancelledAt string `json:"cancelled_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// Bookings lists bookings with optional filters (GET) or records a manual
// walk-in/phone booking (POST). Manual bookings skip the online slot grid
// but still go through the overlap check.
func (h *AdminHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.requireShop(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.listBookings(w, r, shop)
	case http.MethodPost:
		h.createManualBooking(w, r, shop)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) listBookings(w http.ResponseWriter, r *http.Request, shop model.Shop) {
	q := r.URL.Query()
	var f storage.ListFilter

	if status := strings.TrimSpace(q.Get("status")); status != "" {
		if !model.Status(status).Valid() {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		f.Status = status
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			http.Error(w, "invalid date filter", http.StatusBadRequest)
			return
		}
		f.Date = &d
	}
	f.StaffID = strings.TrimSpace(q.Get("staff"))
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		f.Limit = n
	}

	list, err := h.bookings.List(r.Context(), shop.ID, f)
	if err != nil {
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}
	items := make([]bookingItem, 0, len(list))
	for _, b := range list {
		items = append(items, toBookingItem(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": items})
}

func (h *AdminHandler) createManualBooking(w http.ResponseWriter, r *http.Request, shop model.Shop) {
	var req manualBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.StaffID = strings.TrimSpace(req.StaffID)
	req.GuestName = strings.TrimSpace(req.GuestName)
	if req.ServiceID == "" || req.StaffID == "" || req.GuestName == "" {
		http.Error(w, "service_id, staff_id and guest_name required", http.StatusBadRequest)
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
	svc, err := h.catalog.GetService(ctx, shop.ID, req.ServiceID)
	if err != nil {
		http.Error(w, "service not found", http.StatusNotFound)
		return
	}
	staff, err := h.catalog.GetStaff(ctx, shop.ID, req.StaffID)
	if err != nil {
		http.Error(w, "staff not found", http.StatusNotFound)
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
		"source":       "manual",
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

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	metrics.IncBookingsCreated("manual")
	writeJSON(w, http.StatusCreated, map[string]string{"booking_id": id})
}

type statusChangeRequest struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// BookingStatus applies a guarded status transition (confirm, complete,
// no-show). Cancellation goes through CancelBooking so a reason and
// timestamp are recorded.
func (h *AdminHandler) BookingStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	shop, ok := h.requireShop(w, r)
	if !ok {
		return
	}
	var req statusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	next := model.Status(strings.TrimSpace(req.Status))
	if req.BookingID == "" || !next.Valid() {
		http.Error(w, "booking_id and a valid status required", http.StatusBadRequest)
		return
	}
	if next == model.StatusCancelled {
		http.Error(w, "use the cancel endpoint", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.bookings.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	booking, err := h.bookings.GetForUpdate(ctx, tx, shop.ID, req.BookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if !booking.Status.CanTransitionTo(next) {
		http.Error(w, "invalid status transition", http.StatusUnprocessableEntity)
		return
	}
	if err := h.bookings.UpdateStatus(ctx, tx, shop.ID, req.BookingID, next); err != nil {
		http.Error(w, "failed to update status", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"booking_id": req.BookingID,
		"shop_id":    shop.ID,
		"from":       string(booking.Status),
		"to":         string(next),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   req.BookingID,
		EventType:     outbox.EventBookingStatusChanged,
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"booking_id": req.BookingID,
		"status":     string(next),
	})
}

type cancelRequest struct {
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

// CancelBooking cancels a pending or confirmed booking, freeing its slot.
func (h *AdminHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	shop, ok := h.requireShop(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.BookingID == "" {
		http.Error(w, "booking_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.bookings.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	booking, err := h.bookings.GetForUpdate(ctx, tx, shop.ID, req.BookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if !booking.Status.CanTransitionTo(model.StatusCancelled) {
		http.Error(w, "booking cannot be cancelled", http.StatusUnprocessableEntity)
		return
	}

	cancelledAt, err := h.bookings.Cancel(ctx, tx, shop.ID, req.BookingID, req.Reason)
	if err != nil {
		http.Error(w, "failed to cancel booking", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"booking_id": req.BookingID,
		"shop_id":    shop.ID,
		"staff_id":   booking.StaffID,
		"date":       booking.Date.Format(dateLayout),
		"reason":     req.Reason,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   req.BookingID,
		EventType:     outbox.EventBookingCancelled,
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"booking_id":   req.BookingID,
		"status":       string(model.StatusCancelled),
		"cancelled_at": cancelledAt.UTC().Format(time.RFC3339),
	})
}

func toBookingItem(b model.Booking) bookingItem {
	item := bookingItem{
		ID:         b.ID,
		StaffID:    b.StaffID,
		ServiceID:  b.ServiceID,
		Date:       b.Date.Format(dateLayout),
		Time:       availability.TimeOfDay(b.StartMinute).Key(),
		EndTime:    availability.TimeOfDay(b.EndMinute).Key(),
		Status:     string(b.Status),
		GuestName:  b.GuestName,
		GuestEmail: b.GuestEmail,
		GuestPhone: b.GuestPhone,
		Notes:      b.Notes,
		Price:      b.Price,
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.CancelledAt != nil {
		item.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

// parseDayWindow validates one weekday rule and converts its times to
// minutes since midnight. Nil times stay nil (closed day, or inherit for
// staff rules).
func parseDayWindow(weekday int, openRaw, closeRaw *string) (*int, *int, error) {
	if weekday < 0 || weekday > 6 {
		return nil, nil, errors.New("weekday must be between 0 and 6")
	}
	var openMin, closeMin *int
	if openRaw != nil {
		t, err := availability.ParseTimeOfDay(*openRaw)
		if err != nil {
			return nil, nil, err
		}
		m := int(t)
		openMin = &m
	}
	if closeRaw != nil {
		t, err := availability.ParseTimeOfDay(*closeRaw)
		if err != nil {
			return nil, nil, err
		}
		m := int(t)
		closeMin = &m
	}
	if openMin != nil && closeMin != nil && *closeMin <= *openMin {
		return nil, nil, errors.New("close time must be after open time")
	}
	return openMin, closeMin, nil
}
