package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iliyamo/hotel-admin/internal/model"
)

type RoomRepo struct{ db *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// RoomFilter narrows ListRooms; zero values mean "any".
type RoomFilter struct {
	RoomType     string
	Available    *bool
	Housekeeping string
}

const roomColumns = `id, room_number, room_type, base_rate, is_available, housekeeping_status,
	amenities, COALESCE(description, ''), images, created_by, created_at, updated_at`

func scanRoom(row rowScanner) (model.Room, error) {
	var (
		rm                model.Room
		amenities, images []byte
		createdBy         sql.NullInt64
	)
	err := row.Scan(&rm.ID, &rm.RoomNumber, &rm.RoomType, &rm.BaseRate, &rm.IsAvailable, &rm.HousekeepingStatus,
		&amenities, &rm.Description, &images, &createdBy, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return model.Room{}, err
	}
	if rm.Amenities, err = decodeStrings(amenities); err != nil {
		return model.Room{}, fmt.Errorf("decode room %d amenities: %w", rm.ID, err)
	}
	if rm.Images, err = decodeStrings(images); err != nil {
		return model.Room{}, fmt.Errorf("decode room %d images: %w", rm.ID, err)
	}
	if createdBy.Valid {
		id := uint64(createdBy.Int64)
		rm.CreatedBy = &id
	}
	rm.SeasonalRates = []model.SeasonalRate{}
	return rm, nil
}

func decodeStrings(b []byte) ([]string, error) {
	out := []string{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, err
		}
	}
	if out == nil {
		// JSON null
		out = []string{}
	}
	return out, nil
}

func encodeStrings(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO rooms (room_number, room_type, base_rate, is_available, housekeeping_status, amenities, description, images, created_by)
			 VALUES (?,?,?,?,?,?,?,?,?)`,
			rm.RoomNumber, rm.RoomType, rm.BaseRate, rm.IsAvailable, rm.HousekeepingStatus,
			encodeStrings(rm.Amenities), rm.Description, encodeStrings(rm.Images), rm.CreatedBy)
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
		rm.ID = uint64(id)
		if err := insertRates(ctx, tx, rm.ID, rm.SeasonalRates); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT created_at, updated_at FROM rooms WHERE id = ?`, rm.ID).
			Scan(&rm.CreatedAt, &rm.UpdatedAt)
	})
}

func insertRates(ctx context.Context, tx *sql.Tx, roomID uint64, rates []model.SeasonalRate) error {
	for _, s := range rates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO room_seasonal_rates (room_id, season_name, start_date, end_date, price) VALUES (?,?,?,?,?)`,
			roomID, s.SeasonName, s.StartDate.Time, s.EndDate.Time, s.Price); err != nil {
			return err
		}
	}
	return nil
}

func (r *RoomRepo) Get(ctx context.Context, id uint64) (model.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	if err != nil {
		return model.Room{}, notFound(err)
	}
	rates, err := r.rates(ctx, []uint64{id})
	if err != nil {
		return model.Room{}, err
	}
	if list := rates[id]; list != nil {
		rm.SeasonalRates = list
	}
	return rm, nil
}

func (r *RoomRepo) List(ctx context.Context, f RoomFilter) ([]model.Room, error) {
	where := []string{}
	args := []any{}
	if f.RoomType != "" {
		where = append(where, "room_type = ?")
		args = append(args, f.RoomType)
	}
	if f.Available != nil {
		where = append(where, "is_available = ?")
		args = append(args, *f.Available)
	}
	if f.Housekeeping != "" {
		where = append(where, "housekeeping_status = ?")
		args = append(args, f.Housekeeping)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE `+cond+` ORDER BY room_number`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Room{}
	ids := []uint64{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
		ids = append(ids, rm.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	rates, err := r.rates(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if list := rates[out[i].ID]; list != nil {
			out[i].SeasonalRates = list
		}
	}
	return out, nil
}

func (r *RoomRepo) rates(ctx context.Context, roomIDs []uint64) (map[uint64][]model.SeasonalRate, error) {
	ph, args := inList(roomIDs)
	rows, err := r.db.QueryContext(ctx,
		`SELECT room_id, season_name, start_date, end_date, price FROM room_seasonal_rates
		 WHERE room_id IN (`+ph+`) ORDER BY room_id, start_date`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint64][]model.SeasonalRate{}
	for rows.Next() {
		var (
			roomID uint64
			s      model.SeasonalRate
		)
		if err := rows.Scan(&roomID, &s.SeasonName, &s.StartDate.Time, &s.EndDate.Time, &s.Price); err != nil {
			return nil, err
		}
		out[roomID] = append(out[roomID], s)
	}
	return out, rows.Err()
}

// Update rewrites the editable room fields and replaces its seasonal rates.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE rooms SET room_number = ?, room_type = ?, base_rate = ?, is_available = ?, housekeeping_status = ?,
			 amenities = ?, description = ?, images = ? WHERE id = ?`,
			rm.RoomNumber, rm.RoomType, rm.BaseRate, rm.IsAvailable, rm.HousekeepingStatus,
			encodeStrings(rm.Amenities), rm.Description, encodeStrings(rm.Images), rm.ID); err != nil {
			if isDuplicate(err) {
				return ErrDuplicate
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM room_seasonal_rates WHERE room_id = ?`, rm.ID); err != nil {
			return err
		}
		return insertRates(ctx, tx, rm.ID, rm.SeasonalRates)
	})
}

// SetStatus updates availability and/or housekeeping status. Nil leaves the
// column unchanged.
func (r *RoomRepo) SetStatus(ctx context.Context, id uint64, available *bool, housekeeping *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET is_available = COALESCE(?, is_available), housekeeping_status = COALESCE(?, housekeeping_status)
		 WHERE id = ?`, available, housekeeping, id)
	return err
}

func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// inList builds "?,?,?" and the matching argument slice.
func inList(ids []uint64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
