package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/hotel-admin/internal/model"
)

type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingFilter narrows List. Start and End, when both set, select stays
// overlapping the range. GuestName is a case-insensitive substring.
type BookingFilter struct {
	Status     string
	Source     string
	GuestName  string
	RoomNumber string
	Start, End *time.Time
	Page       int
	Limit      int
}

const bookingColumns = `b.id, b.booking_number, b.guest_name, b.guest_contact, b.guest_email, b.check_in, b.check_out,
	b.status, b.source, b.payment_status, b.total_amount, b.deposit_amount, b.group_booking_id,
	COALESCE(b.notes, ''), b.created_by, b.cancelled_by, b.cancelled_at, b.created_at, b.updated_at`

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b                             model.Booking
		group, createdBy, cancelledBy sql.NullInt64
		cancelledAt                   sql.NullTime
	)
	err := row.Scan(&b.ID, &b.BookingNumber, &b.GuestName, &b.GuestContact, &b.GuestEmail, &b.CheckIn, &b.CheckOut,
		&b.Status, &b.Source, &b.PaymentStatus, &b.TotalAmount, &b.DepositAmount, &group,
		&b.Notes, &createdBy, &cancelledBy, &cancelledAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	b.GroupBookingID = nullID(group)
	b.CreatedBy = nullID(createdBy)
	b.CancelledBy = nullID(cancelledBy)
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	b.Rooms = []model.BookingRoom{}
	return b, nil
}

func nullID(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	id := uint64(n.Int64)
	return &id
}

// Create inserts the booking and its room lines. A booking-number collision
// is reported as ErrDuplicate.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO bookings (booking_number, guest_name, guest_contact, guest_email, check_in, check_out, status,
			 source, payment_status, total_amount, deposit_amount, group_booking_id, notes, created_by)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			b.BookingNumber, b.GuestName, b.GuestContact, b.GuestEmail, b.CheckIn, b.CheckOut, b.Status,
			b.Source, b.PaymentStatus, b.TotalAmount, b.DepositAmount, b.GroupBookingID, b.Notes, b.CreatedBy)
		if err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID = uint64(id)
		for _, line := range b.Rooms {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO booking_rooms (booking_id, room_id, room_number, rate, guests, extra_info) VALUES (?,?,?,?,?,?)`,
				b.ID, line.RoomID, line.RoomNumber, line.Rate, line.Guests, line.ExtraInfo); err != nil {
				return err
			}
		}
		return tx.QueryRowContext(ctx, `SELECT created_at, updated_at FROM bookings WHERE id = ?`, b.ID).
			Scan(&b.CreatedAt, &b.UpdatedAt)
	})
}

func (r *BookingRepo) Get(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ?`, id))
	if err != nil {
		return model.Booking{}, notFound(err)
	}
	list := []model.Booking{b}
	if err := r.attachRooms(ctx, list); err != nil {
		return model.Booking{}, err
	}
	return list[0], nil
}

// List returns one page of bookings, newest stay first, and the total match count.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, int, error) {
	where := []string{}
	args := []any{}
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, f.Status)
	}
	if f.Source != "" {
		where = append(where, "b.source = ?")
		args = append(args, f.Source)
	}
	if f.GuestName != "" {
		where = append(where, "LOWER(b.guest_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.GuestName)+"%")
	}
	if f.RoomNumber != "" {
		where = append(where, "EXISTS (SELECT 1 FROM booking_rooms br WHERE br.booking_id = b.id AND br.room_number = ?)")
		args = append(args, f.RoomNumber)
	}
	if f.Start != nil && f.End != nil {
		where = append(where, "b.check_in <= ? AND b.check_out >= ?")
		args = append(args, *f.End, *f.Start)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings b WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := pageBounds(f.Page, f.Limit, 50)
	dataArgs := append(append([]any{}, args...), limit, (page-1)*limit)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE `+cond+` ORDER BY b.check_in DESC, b.id DESC LIMIT ? OFFSET ?`,
		dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachRooms(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Calendar returns every non-cancelled booking whose stay touches [start, end].
func (r *BookingRepo) Calendar(ctx context.Context, start, end time.Time) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings b
		 WHERE b.check_in <= ? AND b.check_out >= ? AND b.status <> ?
		 ORDER BY b.check_in`, end, start, model.BookingCancelled)
	if err != nil {
		return nil, err
	}
	out, err := collectBookings(rows)
	if err != nil {
		return nil, err
	}
	return out, r.attachRooms(ctx, out)
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookingRepo) attachRooms(ctx context.Context, list []model.Booking) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint64, len(list))
	pos := make(map[uint64]int, len(list))
	for i, b := range list {
		ids[i] = b.ID
		pos[b.ID] = i
	}
	ph, args := inList(ids)
	rows, err := r.db.QueryContext(ctx,
		`SELECT booking_id, room_id, room_number, rate, guests, extra_info FROM booking_rooms
		 WHERE booking_id IN (`+ph+`) ORDER BY booking_id, id`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			bookingID uint64
			line      model.BookingRoom
		)
		if err := rows.Scan(&bookingID, &line.RoomID, &line.RoomNumber, &line.Rate, &line.Guests, &line.ExtraInfo); err != nil {
			return err
		}
		if i, ok := pos[bookingID]; ok {
			list[i].Rooms = append(list[i].Rooms, line)
		}
	}
	return rows.Err()
}

// Update writes the editable booking fields. Status is never written here.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET guest_name = ?, guest_contact = ?, guest_email = ?, check_in = ?, check_out = ?,
		 source = ?, payment_status = ?, total_amount = ?, deposit_amount = ?, group_booking_id = ?, notes = ?
		 WHERE id = ?`,
		b.GuestName, b.GuestContact, b.GuestEmail, b.CheckIn, b.CheckOut,
		b.Source, b.PaymentStatus, b.TotalAmount, b.DepositAmount, b.GroupBookingID, b.Notes, b.ID)
	return err
}

// Transition applies a status change and its room side effects in one
// transaction. The booking row is only updated while it still has the
// status the caller observed; otherwise ErrStale is returned and nothing
// changes.
func (r *BookingRepo) Transition(ctx context.Context, t model.BookingTransition) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, notes = COALESCE(?, notes), cancelled_by = COALESCE(?, cancelled_by),
			 cancelled_at = COALESCE(?, cancelled_at) WHERE id = ? AND status = ?`,
			t.To, t.Notes, t.CancelledBy, t.CancelledAt, t.BookingID, t.From)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// a self-transition (cancel of a cancelled booking with identical
			// values) changes no row; tell that apart from a lost race
			var status string
			if err := tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, t.BookingID).Scan(&status); err != nil {
				return notFound(err)
			}
			if status != t.From {
				return ErrStale
			}
		}
		if t.RoomAvailable == nil && t.Housekeeping == nil {
			return nil
		}
		for _, roomID := range t.RoomIDs {
			if _, err := tx.ExecContext(ctx,
				`UPDATE rooms SET is_available = COALESCE(?, is_available), housekeeping_status = COALESCE(?, housekeeping_status)
				 WHERE id = ?`, t.RoomAvailable, t.Housekeeping, roomID); err != nil {
				return err
			}
		}
		return nil
	})
}

// pageBounds normalises page/limit, applying def when limit is unset.
func pageBounds(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > 500 {
		limit = 500
	}
	return page, limit
}
