package enums

// OutboxEventType names the domain events the outbox can carry.
type OutboxEventType string

const (
	EventBookingCreated        OutboxEventType = "booking.created"
	EventBookingCancelled      OutboxEventType = "booking.cancelled"
	EventBookingPaymentUpdated OutboxEventType = "booking.payment_updated"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateBooking OutboxAggregateType = "booking"
	AggregateEvent   OutboxAggregateType = "event"
)
