// Package queue defines message payloads exchanged over the message broker,
// the publisher that sends them and the consumer that records them.
package queue

// Routing keys. Each doubles as the name of a durable queue.
const (
	BookingCreated    = "booking.created"
	BookingConfirmed  = "booking.confirmed"
	BookingCheckedIn  = "booking.checked_in"
	BookingCheckedOut = "booking.checked_out"
	BookingCancelled  = "booking.cancelled"
	BookingNoShow     = "booking.no_show"
	InquiryReminder   = "inquiry.reminder"
)

// Queues lists every queue the publisher declares and the consumer drains.
var Queues = []string{
	BookingCreated, BookingConfirmed, BookingCheckedIn, BookingCheckedOut,
	BookingCancelled, BookingNoShow, InquiryReminder,
}

// BookingEvent is published after a booking is created or changes status.
// It carries enough for downstream consumers to log or notify without
// querying the primary database.
type BookingEvent struct {
	Type          string   `json:"type"`
	BookingID     uint64   `json:"booking_id"`
	BookingNumber string   `json:"booking_number"`
	GuestName     string   `json:"guest_name"`
	Status        string   `json:"status"`
	RoomNumbers   []string `json:"rooms"`
	CheckIn       string   `json:"check_in"`
	CheckOut      string   `json:"check_out"`
	ActorID       uint64   `json:"actor_id"`
	OccurredAt    string   `json:"occurred_at"`
}

// ReminderEvent is published when an inquiry follow-up comes due.
type ReminderEvent struct {
	Type       string `json:"type"`
	InquiryID  string `json:"inquiry_id"`
	Name       string `json:"name"`
	Contact    string `json:"contact"`
	Note       string `json:"note"`
	RemindAt   string `json:"remind_at"`
	OccurredAt string `json:"occurred_at"`
}
