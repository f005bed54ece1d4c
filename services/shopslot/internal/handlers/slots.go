package handlers

import (
	"context"
	"time"

	"github.com/shopslothq/shopslot/services/shopslot/internal/availability"
	"github.com/shopslothq/shopslot/services/shopslot/internal/model"
	"github.com/shopslothq/shopslot/services/shopslot/internal/storage"
)

// slotSource loads the per-day inputs of a slot computation from storage and
// runs the resolver. It is shared by the public booking page, the slots API
// and the booking validation path.
type slotSource struct {
	shops    *storage.ShopRepository
	catalog  *storage.CatalogRepository
	bookings *storage.BookingRepository
}

func (s *slotSource) daySlots(ctx context.Context, shop model.Shop, svc model.Service, staff *model.Staff, date, now time.Time) (availability.Result, error) {
	weekday := availability.WeekdayIndex(date)

	hours, err := s.shops.GetHours(ctx, shop.ID, weekday)
	if err != nil {
		return availability.Result{}, err
	}

	req := availability.Request{
		Date:         date,
		Now:          now,
		Duration:     svc.DurationMinutes,
		BufferBefore: svc.BufferBefore,
		BufferAfter:  svc.BufferAfter,
	}
	if hours != nil {
		req.ShopDay = &availability.ShopDay{
			Open:   minutePtr(hours.OpenMinute),
			Close:  minutePtr(hours.CloseMinute),
			Closed: hours.IsClosed,
		}
	}

	staffID := ""
	if staff != nil {
		staffID = staff.ID

		staffHours, err := s.catalog.GetStaffHours(ctx, staff.ID, weekday)
		if err != nil {
			return availability.Result{}, err
		}
		timeOff, err := s.catalog.ApprovedTimeOffCovering(ctx, staff.ID, date)
		if err != nil {
			return availability.Result{}, err
		}

		sc := &availability.StaffContext{}
		if staffHours != nil {
			sc.Day = &availability.StaffDay{
				Start:  minutePtr(staffHours.StartMinute),
				End:    minutePtr(staffHours.EndMinute),
				DayOff: staffHours.IsDayOff,
			}
		}
		for _, t := range timeOff {
			sc.TimeOff = append(sc.TimeOff, availability.DateRange{Start: t.StartDate, End: t.EndDate})
		}
		req.Staff = sc
	}

	existing, err := s.bookings.ListForDay(ctx, shop.ID, staffID, date)
	if err != nil {
		return availability.Result{}, err
	}
	for _, b := range existing {
		req.Bookings = append(req.Bookings, availability.Booking{
			Start:  availability.TimeOfDay(b.StartMinute),
			End:    availability.TimeOfDay(b.EndMinute),
			Status: b.Status,
		})
	}

	return availability.Resolve(req), nil
}

func minutePtr(m *int) *availability.TimeOfDay {
	if m == nil {
		return nil
	}
	t := availability.TimeOfDay(*m)
	return &t
}

type slotListResponse struct {
	Slots  []availability.Slot `json:"slots"`
	Reason string              `json:"reason,omitempty"`
}

func slotsPayload(res availability.Result) slotListResponse {
	slots := res.Slots
	if slots == nil {
		slots = []availability.Slot{}
	}
	return slotListResponse{Slots: slots, Reason: res.Reason.String()}
}
