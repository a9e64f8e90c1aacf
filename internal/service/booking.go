package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/metrics"
	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/queue"
	"github.com/iliyamo/hotel-admin/internal/repository"
)

type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	Get(ctx context.Context, id uint64) (model.Booking, error)
	List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, int, error)
	Calendar(ctx context.Context, start, end time.Time) ([]model.Booking, error)
	Update(ctx context.Context, b *model.Booking) error
	Transition(ctx context.Context, t model.BookingTransition) error
}

// RoomReader is the part of the room store bookings need.
type RoomReader interface {
	Get(ctx context.Context, id uint64) (model.Room, error)
}

// BookingService owns the booking state machine:
//
//	pending -> confirmed -> checked_in -> checked_out
//
// with cancelled reachable from anywhere and no_show from pending or
// confirmed. Each transition updates the booking and its rooms atomically.
type BookingService struct {
	bookings BookingStore
	rooms    RoomReader
	events   EventPublisher
	now      func() time.Time
	number   func(time.Time) string
}

func NewBookingService(bookings BookingStore, rooms RoomReader, events EventPublisher) *BookingService {
	if bookings == nil || rooms == nil {
		panic("booking service: nil store")
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &BookingService{bookings: bookings, rooms: rooms, events: events, now: time.Now, number: BookingNumber}
}

// BookingNumber is "BK", the last 8 digits of the Unix-millis time and a
// random 3-digit suffix.
func BookingNumber(t time.Time) string {
	return fmt.Sprintf("BK%08d%d", t.UnixMilli()%100_000_000, 100+rand.IntN(900))
}

type BookingRoomInput struct {
	RoomID    uint64           `json:"room_id"`
	Rate      *decimal.Decimal `json:"rate"`
	Guests    int              `json:"guests"`
	ExtraInfo string           `json:"extra_info"`
}

type BookingInput struct {
	GuestName      string             `json:"guest_name"`
	GuestContact   string             `json:"guest_contact"`
	GuestEmail     string             `json:"guest_email"`
	Rooms          []BookingRoomInput `json:"rooms"`
	CheckIn        *model.Date        `json:"check_in"`
	CheckOut       *model.Date        `json:"check_out"`
	Status         string             `json:"status"`
	Source         string             `json:"source"`
	PaymentStatus  string             `json:"payment_status"`
	TotalAmount    *decimal.Decimal   `json:"total_amount"`
	DepositAmount  decimal.Decimal    `json:"deposit_amount"`
	GroupBookingID *uint64            `json:"group_booking_id"`
	Notes          string             `json:"notes"`
}

// CreateBooking validates the request, snapshots room numbers and rates and
// stores the booking. Overlapping stays are not rejected.
func (s *BookingService) CreateBooking(ctx context.Context, actor uint64, in BookingInput) (model.Booking, error) {
	fields := map[string]string{}
	if strings.TrimSpace(in.GuestName) == "" {
		fields["guest_name"] = "required"
	}
	if len(in.Rooms) == 0 {
		fields["rooms"] = "required"
	}
	if in.CheckIn == nil {
		fields["check_in"] = "required"
	}
	if in.CheckOut == nil {
		fields["check_out"] = "required"
	}
	if len(fields) > 0 {
		return model.Booking{}, ValidationFields("Missing booking details", fields)
	}
	if in.CheckIn.After(in.CheckOut.Time) {
		return model.Booking{}, Validation("check_in must not be after check_out")
	}

	b := model.Booking{
		GuestName:      strings.TrimSpace(in.GuestName),
		GuestContact:   strings.TrimSpace(in.GuestContact),
		GuestEmail:     strings.TrimSpace(in.GuestEmail),
		CheckIn:        in.CheckIn.Time,
		CheckOut:       in.CheckOut.Time,
		Status:         in.Status,
		Source:         in.Source,
		PaymentStatus:  in.PaymentStatus,
		DepositAmount:  in.DepositAmount,
		GroupBookingID: in.GroupBookingID,
		Notes:          in.Notes,
	}
	if actor != 0 {
		b.CreatedBy = &actor
	}
	if b.Status == "" {
		b.Status = model.BookingConfirmed
	}
	if b.Source == "" {
		b.Source = model.BookingSources[0]
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = model.PaymentStatuses[0]
	}
	if b.Status != model.BookingPending && b.Status != model.BookingConfirmed {
		fields["status"] = "oneof"
	}
	if !model.OneOf(b.Source, model.BookingSources) {
		fields["source"] = "oneof"
	}
	if !model.OneOf(b.PaymentStatus, model.PaymentStatuses) {
		fields["payment_status"] = "oneof"
	}
	if b.DepositAmount.IsNegative() {
		fields["deposit_amount"] = "gte"
	} else if !wholeCents(b.DepositAmount) {
		fields["deposit_amount"] = centsTag
	}
	if in.TotalAmount != nil && !wholeCents(*in.TotalAmount) {
		fields["total_amount"] = centsTag
	}
	if len(fields) > 0 {
		return model.Booking{}, ValidationFields("Invalid booking", fields)
	}

	total := decimal.Zero
	nights := decimal.NewFromInt(int64(b.Nights()))
	for i, line := range in.Rooms {
		if line.RoomID == 0 {
			return model.Booking{}, ValidationFields("Invalid booking", map[string]string{fmt.Sprintf("rooms[%d].room_id", i): "required"})
		}
		room, err := s.rooms.Get(ctx, line.RoomID)
		if errors.Is(err, repository.ErrNotFound) {
			return model.Booking{}, NotFound(fmt.Sprintf("Room %d not found", line.RoomID))
		}
		if err != nil {
			return model.Booking{}, storeErr(err, "Room")
		}
		rate := room.RateFor(b.CheckIn)
		if line.Rate != nil {
			key := fmt.Sprintf("rooms[%d].rate", i)
			if line.Rate.IsNegative() {
				return model.Booking{}, ValidationFields("Invalid booking", map[string]string{key: "gte"})
			}
			if !wholeCents(*line.Rate) {
				return model.Booking{}, ValidationFields("Invalid booking", map[string]string{key: centsTag})
			}
			rate = *line.Rate
		}
		guests := line.Guests
		if guests < 1 {
			guests = 1
		}
		b.Rooms = append(b.Rooms, model.BookingRoom{
			RoomID:     room.ID,
			RoomNumber: room.RoomNumber,
			Rate:       rate,
			Guests:     guests,
			ExtraInfo:  line.ExtraInfo,
		})
		total = total.Add(rate.Mul(nights))
	}
	b.TotalAmount = total
	if in.TotalAmount != nil {
		b.TotalAmount = *in.TotalAmount
	}
	if b.GroupBookingID != nil {
		if _, err := s.bookings.Get(ctx, *b.GroupBookingID); err != nil {
			return model.Booking{}, storeErr(err, "Group booking")
		}
	}

	b.BookingNumber = s.number(s.now())
	if err := s.bookings.Create(ctx, &b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Booking{}, Conflict("Booking number already exists, retry")
		}
		return model.Booking{}, storeErr(err, "Booking")
	}
	s.publish(ctx, queue.BookingCreated, actor, b)
	return b, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	return b, storeErr(err, "Booking")
}

func (s *BookingService) ListBookings(ctx context.Context, f repository.BookingFilter) ([]model.Booking, int, error) {
	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return nil, 0, Validation("startDate must not be after endDate")
	}
	list, total, err := s.bookings.List(ctx, f)
	if err != nil {
		return nil, 0, storeErr(err, "Booking")
	}
	return list, total, nil
}

// BookingPatch holds the editable booking fields; nil means unchanged.
// Status only moves through the transition operations.
type BookingPatch struct {
	GuestName      *string          `json:"guest_name"`
	GuestContact   *string          `json:"guest_contact"`
	GuestEmail     *string          `json:"guest_email"`
	CheckIn        *model.Date      `json:"check_in"`
	CheckOut       *model.Date      `json:"check_out"`
	Source         *string          `json:"source"`
	PaymentStatus  *string          `json:"payment_status"`
	TotalAmount    *decimal.Decimal `json:"total_amount"`
	DepositAmount  *decimal.Decimal `json:"deposit_amount"`
	GroupBookingID *uint64          `json:"group_booking_id"`
	Notes          *string          `json:"notes"`
}

func (s *BookingService) UpdateBooking(ctx context.Context, id uint64, p BookingPatch) (model.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return model.Booking{}, storeErr(err, "Booking")
	}
	if p.GuestName != nil {
		if strings.TrimSpace(*p.GuestName) == "" {
			return model.Booking{}, ValidationFields("Invalid booking", map[string]string{"guest_name": "required"})
		}
		b.GuestName = strings.TrimSpace(*p.GuestName)
	}
	if p.GuestContact != nil {
		b.GuestContact = *p.GuestContact
	}
	if p.GuestEmail != nil {
		b.GuestEmail = *p.GuestEmail
	}
	if p.CheckIn != nil {
		b.CheckIn = p.CheckIn.Time
	}
	if p.CheckOut != nil {
		b.CheckOut = p.CheckOut.Time
	}
	if b.CheckIn.After(b.CheckOut) {
		return model.Booking{}, Validation("check_in must not be after check_out")
	}
	if p.Source != nil {
		if !model.OneOf(*p.Source, model.BookingSources) {
			return model.Booking{}, ValidationFields("Invalid booking", map[string]string{"source": "oneof"})
		}
		b.Source = *p.Source
	}
	if p.PaymentStatus != nil {
		if !model.OneOf(*p.PaymentStatus, model.PaymentStatuses) {
			return model.Booking{}, ValidationFields("Invalid booking", map[string]string{"payment_status": "oneof"})
		}
		b.PaymentStatus = *p.PaymentStatus
	}
	if p.TotalAmount != nil {
		if !wholeCents(*p.TotalAmount) {
			return model.Booking{}, ValidationFields("Invalid booking", map[string]string{"total_amount": centsTag})
		}
		b.TotalAmount = *p.TotalAmount
	}
	if p.DepositAmount != nil {
		if !wholeCents(*p.DepositAmount) {
			return model.Booking{}, ValidationFields("Invalid booking", map[string]string{"deposit_amount": centsTag})
		}
		b.DepositAmount = *p.DepositAmount
	}
	if p.GroupBookingID != nil {
		if *p.GroupBookingID == id {
			return model.Booking{}, Validation("A booking cannot be its own group")
		}
		if _, err := s.bookings.Get(ctx, *p.GroupBookingID); err != nil {
			return model.Booking{}, storeErr(err, "Group booking")
		}
		b.GroupBookingID = p.GroupBookingID
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if err := s.bookings.Update(ctx, &b); err != nil {
		return model.Booking{}, storeErr(err, "Booking")
	}
	return s.GetBooking(ctx, id)
}

// Calendar lists non-cancelled bookings whose stay touches [start, end].
func (s *BookingService) Calendar(ctx context.Context, start, end *time.Time) ([]model.Booking, error) {
	if start == nil || end == nil {
		return nil, Validation("start and end are required (YYYY-MM-DD)")
	}
	if start.After(*end) {
		return nil, Validation("start must not be after end")
	}
	list, err := s.bookings.Calendar(ctx, *start, *end)
	if err != nil {
		return nil, storeErr(err, "Booking")
	}
	out := make([]model.Booking, 0, len(list))
	for _, b := range list {
		if b.Status != model.BookingCancelled && model.OverlapsRange(b.CheckIn, b.CheckOut, *start, *end) {
			out = append(out, b)
		}
	}
	return out, nil
}

// transition describes one state machine edge.
type transition struct {
	event   string
	to      string
	from    []string // nil = any status
	message string   // shown when the current status is not in from
	rooms   func(t *model.BookingTransition)
}

var (
	roomsOccupied = func(t *model.BookingTransition) {
		no, dirty := false, model.HousekeepingDirty
		t.RoomAvailable, t.Housekeeping = &no, &dirty
	}
	roomsFreed = func(t *model.BookingTransition) {
		yes := true
		t.RoomAvailable = &yes
	}
)

var (
	confirmEdge = transition{
		event: queue.BookingConfirmed, to: model.BookingConfirmed,
		from:    []string{model.BookingPending},
		message: "Only pending bookings can be confirmed",
	}
	checkInEdge = transition{
		event: queue.BookingCheckedIn, to: model.BookingCheckedIn,
		from:    []string{model.BookingPending, model.BookingConfirmed},
		message: "Booking cannot be checked in from status %s",
		rooms:   roomsOccupied,
	}
	checkOutEdge = transition{
		event: queue.BookingCheckedOut, to: model.BookingCheckedOut,
		from:    []string{model.BookingCheckedIn},
		message: "Only checked-in bookings can be checked out (status %s)",
		rooms:   roomsFreed,
	}
	noShowEdge = transition{
		event: queue.BookingNoShow, to: model.BookingNoShow,
		from:    []string{model.BookingPending, model.BookingConfirmed},
		message: "Booking cannot be marked no-show from status %s",
	}
	cancelEdge = transition{
		event: queue.BookingCancelled, to: model.BookingCancelled,
		rooms: roomsFreed,
	}
)

func (s *BookingService) ConfirmBooking(ctx context.Context, actor, id uint64) (model.Booking, error) {
	return s.apply(ctx, actor, id, confirmEdge, nil)
}

// CheckIn marks the guest arrived; every booked room becomes unavailable
// and Dirty.
func (s *BookingService) CheckIn(ctx context.Context, actor, id uint64) (model.Booking, error) {
	return s.apply(ctx, actor, id, checkInEdge, nil)
}

// CheckOut frees every booked room. Rooms stay Dirty until housekeeping
// verifies them.
func (s *BookingService) CheckOut(ctx context.Context, actor, id uint64) (model.Booking, error) {
	return s.apply(ctx, actor, id, checkOutEdge, nil)
}

func (s *BookingService) MarkNoShow(ctx context.Context, actor, id uint64) (model.Booking, error) {
	return s.apply(ctx, actor, id, noShowEdge, nil)
}

// CancelBooking cancels from any status, records who and when, appends the
// reason to the notes and frees every room.
func (s *BookingService) CancelBooking(ctx context.Context, actor, id uint64, reason string) (model.Booking, error) {
	return s.apply(ctx, actor, id, cancelEdge, func(b model.Booking, t *model.BookingTransition) {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			reason = "No reason provided"
		}
		notes := b.Notes + "\nCancelled: " + reason
		now := s.now().UTC()
		t.Notes = &notes
		t.CancelledAt = &now
		if actor != 0 {
			t.CancelledBy = &actor
		}
	})
}

func (s *BookingService) apply(ctx context.Context, actor, id uint64, e transition,
	extra func(model.Booking, *model.BookingTransition)) (model.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return model.Booking{}, storeErr(err, "Booking")
	}
	if e.from != nil && !model.OneOf(b.Status, e.from) {
		msg := e.message
		if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, b.Status)
		}
		return model.Booking{}, InvalidTransition(msg)
	}
	t := model.BookingTransition{BookingID: b.ID, From: b.Status, To: e.to, RoomIDs: b.RoomIDs()}
	if e.rooms != nil {
		e.rooms(&t)
	}
	if extra != nil {
		extra(b, &t)
	}
	if err := s.bookings.Transition(ctx, t); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return model.Booking{}, Conflict("Booking status changed by another request, retry")
		}
		return model.Booking{}, storeErr(err, "Booking")
	}
	updated, err := s.bookings.Get(ctx, id)
	if err != nil {
		return model.Booking{}, storeErr(err, "Booking")
	}
	s.publish(ctx, e.event, actor, updated)
	return updated, nil
}

func (s *BookingService) publish(ctx context.Context, key string, actor uint64, b model.Booking) {
	metrics.BookingEvent(key)
	rooms := make([]string, 0, len(b.Rooms))
	for _, r := range b.Rooms {
		rooms = append(rooms, r.RoomNumber)
	}
	ev := queue.BookingEvent{
		Type:          key,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		GuestName:     b.GuestName,
		Status:        b.Status,
		RoomNumbers:   rooms,
		CheckIn:       b.CheckIn.Format("2006-01-02"),
		CheckOut:      b.CheckOut.Format("2006-01-02"),
		ActorID:       actor,
		OccurredAt:    s.now().UTC().Format(time.RFC3339),
	}
	// detached: the request context may end before the broker answers
	go func() {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(pctx, key, ev); err != nil {
			log.Warn().Err(err).Uint64("booking_id", b.ID).Str("event", key).Msg("booking event not published")
		}
	}()
}
