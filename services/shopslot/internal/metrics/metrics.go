package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	slotRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shopslot",
			Name:      "slot_requests_total",
			Help:      "Count of availability computations served.",
		},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopslot",
			Name:      "bookings_created_total",
			Help:      "Count of bookings created by source.",
		},
		[]string{"source"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shopslot",
			Name:      "booking_conflicts_total",
			Help:      "Count of booking attempts rejected because the slot was taken.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(slotRequests, bookingsCreated, bookingConflicts)
	})
}

func IncSlotRequests() {
	slotRequests.Inc()
}

func IncBookingsCreated(source string) {
	bookingsCreated.WithLabelValues(source).Inc()
}

func IncBookingConflicts() {
	bookingConflicts.Inc()
}
