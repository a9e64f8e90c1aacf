package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/repository"
)

type RoomStore interface {
	Create(ctx context.Context, r *model.Room) error
	Get(ctx context.Context, id uint64) (model.Room, error)
	List(ctx context.Context, f repository.RoomFilter) ([]model.Room, error)
	Update(ctx context.Context, r *model.Room) error
	SetStatus(ctx context.Context, id uint64, available *bool, housekeeping *string) error
	Delete(ctx context.Context, id uint64) error
}

type RoomService struct {
	rooms RoomStore
}

func NewRoomService(rooms RoomStore) *RoomService {
	if rooms == nil {
		panic("room service: nil store")
	}
	return &RoomService{rooms: rooms}
}

type RoomInput struct {
	RoomNumber         string               `json:"room_number"`
	RoomType           string               `json:"room_type"`
	BaseRate           decimal.Decimal      `json:"base_rate"`
	SeasonalRates      []model.SeasonalRate `json:"seasonal_rates"`
	IsAvailable        *bool                `json:"is_available"`
	HousekeepingStatus string               `json:"housekeeping_status"`
	Amenities          []string             `json:"amenities"`
	Description        string               `json:"description"`
	Images             []string             `json:"images"`
}

// RoomPatch carries the fields of an update; nil means unchanged.
type RoomPatch struct {
	RoomNumber         *string               `json:"room_number"`
	RoomType           *string               `json:"room_type"`
	BaseRate           *decimal.Decimal      `json:"base_rate"`
	SeasonalRates      *[]model.SeasonalRate `json:"seasonal_rates"`
	IsAvailable        *bool                 `json:"is_available"`
	HousekeepingStatus *string               `json:"housekeeping_status"`
	Amenities          *[]string             `json:"amenities"`
	Description        *string               `json:"description"`
	Images             *[]string             `json:"images"`
}

func checkRoom(r *model.Room) error {
	fields := map[string]string{}
	r.RoomNumber = strings.TrimSpace(r.RoomNumber)
	if r.RoomNumber == "" {
		fields["room_number"] = "required"
	}
	if !model.OneOf(r.RoomType, model.RoomTypes) {
		fields["room_type"] = "oneof"
	}
	if r.BaseRate.IsNegative() {
		fields["base_rate"] = "gte"
	} else if !wholeCents(r.BaseRate) {
		fields["base_rate"] = centsTag
	}
	if !model.OneOf(r.HousekeepingStatus, model.HousekeepingStates) {
		fields["housekeeping_status"] = "oneof"
	}
	for _, s := range r.SeasonalRates {
		if s.StartDate.IsZero() || s.EndDate.IsZero() || s.EndDate.Before(s.StartDate.Time) ||
			s.Price.IsNegative() || !wholeCents(s.Price) {
			fields["seasonal_rates"] = "invalid"
			break
		}
	}
	if len(fields) > 0 {
		return ValidationFields("Invalid room", fields)
	}
	return nil
}

func (s *RoomService) CreateRoom(ctx context.Context, createdBy uint64, in RoomInput) (model.Room, error) {
	r := model.Room{
		RoomNumber:         in.RoomNumber,
		RoomType:           in.RoomType,
		BaseRate:           in.BaseRate,
		SeasonalRates:      in.SeasonalRates,
		IsAvailable:        true,
		HousekeepingStatus: in.HousekeepingStatus,
		Amenities:          in.Amenities,
		Description:        in.Description,
		Images:             in.Images,
	}
	if in.IsAvailable != nil {
		r.IsAvailable = *in.IsAvailable
	}
	if r.HousekeepingStatus == "" {
		r.HousekeepingStatus = model.HousekeepingClean
	}
	if createdBy != 0 {
		r.CreatedBy = &createdBy
	}
	if err := checkRoom(&r); err != nil {
		return model.Room{}, err
	}
	if err := s.rooms.Create(ctx, &r); err != nil {
		return model.Room{}, storeErr(err, "Room number")
	}
	return r, nil
}

func (s *RoomService) ListRooms(ctx context.Context, f repository.RoomFilter) ([]model.Room, error) {
	list, err := s.rooms.List(ctx, f)
	return list, storeErr(err, "Room")
}

func (s *RoomService) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	r, err := s.rooms.Get(ctx, id)
	return r, storeErr(err, "Room")
}

func (s *RoomService) UpdateRoom(ctx context.Context, id uint64, p RoomPatch) (model.Room, error) {
	r, err := s.rooms.Get(ctx, id)
	if err != nil {
		return model.Room{}, storeErr(err, "Room")
	}
	if p.RoomNumber != nil {
		r.RoomNumber = *p.RoomNumber
	}
	if p.RoomType != nil {
		r.RoomType = *p.RoomType
	}
	if p.BaseRate != nil {
		r.BaseRate = *p.BaseRate
	}
	if p.SeasonalRates != nil {
		r.SeasonalRates = *p.SeasonalRates
	}
	if p.IsAvailable != nil {
		r.IsAvailable = *p.IsAvailable
	}
	if p.HousekeepingStatus != nil {
		r.HousekeepingStatus = *p.HousekeepingStatus
	}
	if p.Amenities != nil {
		r.Amenities = *p.Amenities
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Images != nil {
		r.Images = *p.Images
	}
	if err := checkRoom(&r); err != nil {
		return model.Room{}, err
	}
	if err := s.rooms.Update(ctx, &r); err != nil {
		return model.Room{}, storeErr(err, "Room number")
	}
	return s.GetRoom(ctx, id)
}

// UpdateRoomStatus changes availability and/or housekeeping status.
func (s *RoomService) UpdateRoomStatus(ctx context.Context, id uint64, available *bool, housekeeping *string) (model.Room, error) {
	if available == nil && housekeeping == nil {
		return model.Room{}, Validation("Nothing to update: send is_available or housekeeping_status")
	}
	if housekeeping != nil && !model.OneOf(*housekeeping, model.HousekeepingStates) {
		return model.Room{}, ValidationFields("Invalid room status", map[string]string{"housekeeping_status": "oneof"})
	}
	if _, err := s.rooms.Get(ctx, id); err != nil {
		return model.Room{}, storeErr(err, "Room")
	}
	if err := s.rooms.SetStatus(ctx, id, available, housekeeping); err != nil {
		return model.Room{}, storeErr(err, "Room")
	}
	return s.GetRoom(ctx, id)
}

func (s *RoomService) DeleteRoom(ctx context.Context, id uint64) error {
	return storeErr(s.rooms.Delete(ctx, id), "Room")
}
