package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Booking statuses.
const (
	BookingPending    = "pending"
	BookingConfirmed  = "confirmed"
	BookingCheckedIn  = "checked_in"
	BookingCheckedOut = "checked_out"
	BookingCancelled  = "cancelled"
	BookingNoShow     = "no_show"
)

var BookingSources = []string{"manual", "online", "channel_manager"}

var PaymentStatuses = []string{"unpaid", "partial", "paid", "refunded"}

// BookingRoom is one room line of a booking. RoomNumber is a snapshot taken
// when the line was created.
type BookingRoom struct {
	RoomID     uint64          `json:"room_id"`
	RoomNumber string          `json:"room_number"`
	Rate       decimal.Decimal `json:"rate"`
	Guests     int             `json:"guests"`
	ExtraInfo  string          `json:"extra_info"`
}

type Booking struct {
	ID             uint64          `json:"id"`
	BookingNumber  string          `json:"booking_number"`
	GuestName      string          `json:"guest_name"`
	GuestContact   string          `json:"guest_contact"`
	GuestEmail     string          `json:"guest_email"`
	Rooms          []BookingRoom   `json:"rooms"`
	CheckIn        time.Time       `json:"check_in"`
	CheckOut       time.Time       `json:"check_out"`
	Status         string          `json:"status"`
	Source         string          `json:"source"`
	PaymentStatus  string          `json:"payment_status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DepositAmount  decimal.Decimal `json:"deposit_amount"`
	GroupBookingID *uint64         `json:"group_booking_id"`
	Notes          string          `json:"notes"`
	CreatedBy      *uint64         `json:"created_by"`
	CancelledBy    *uint64         `json:"cancelled_by"`
	CancelledAt    *time.Time      `json:"cancelled_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// RoomIDs lists the rooms referenced by the booking's lines.
func (b Booking) RoomIDs() []uint64 {
	ids := make([]uint64, 0, len(b.Rooms))
	for _, r := range b.Rooms {
		ids = append(ids, r.RoomID)
	}
	return ids
}

// Nights is the number of nights between check-in and check-out, at least 1.
func (b Booking) Nights() int {
	n := int(math.Ceil(b.CheckOut.Sub(b.CheckIn).Hours() / 24))
	if n < 1 {
		n = 1
	}
	return n
}

// OverlapsRange is the calendar predicate: a stay is shown for [start, end]
// when it begins no later than end and ends no earlier than start.
func OverlapsRange(checkIn, checkOut, start, end time.Time) bool {
	return !checkIn.After(end) && !checkOut.Before(start)
}

// BookingTransition is a status change applied atomically together with the
// room updates it implies.
type BookingTransition struct {
	BookingID     uint64
	From          string // guard: the status observed before the change
	To            string
	Notes         *string
	CancelledBy   *uint64
	CancelledAt   *time.Time
	RoomIDs       []uint64
	RoomAvailable *bool   // nil leaves availability untouched
	Housekeeping  *string // nil leaves housekeeping status untouched
}
