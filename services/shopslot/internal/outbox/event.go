package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types emitted by the booking flows. Downstream consumers (reminder
// and notification tooling) subscribe per topic.
const (
	EventBookingCreated       = "booking.created.v1"
	EventBookingCancelled     = "booking.cancelled.v1"
	EventBookingStatusChanged = "booking.status_changed.v1"
)
