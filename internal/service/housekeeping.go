package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/repository"
)

// roomConditions maps a task's reported room condition to the room's
// housekeeping status.
var roomConditions = map[string]string{
	"clean":             model.HousekeepingClean,
	"dirty":             model.HousekeepingDirty,
	"needs_maintenance": model.HousekeepingMaintenance,
}

func (s *RecordService) housekeepingHooks() hooks {
	return hooks{
		prepare: func(ctx context.Context, old *model.Document, body map[string]any) error {
			room, err := s.taskRoom(ctx, body)
			if err != nil {
				return err
			}
			body["room_number"] = room.RoomNumber
			if body["status"] == "completed" && blank(body["completed_at"]) {
				body["completed_at"] = s.now().UTC().Format(time.RFC3339)
			}
			return nil
		},
		after: func(ctx context.Context, old *model.Document, doc model.Document) error {
			cond := str(doc.Body, "room_condition")
			if cond == "" || (old != nil && str(old.Body, "room_condition") == cond) {
				return nil
			}
			status := roomConditions[cond]
			id, _ := strconv.ParseUint(str(doc.Body, "room_id"), 10, 64)
			return s.rooms.SetStatus(ctx, id, nil, &status)
		},
	}
}

func (s *RecordService) taskRoom(ctx context.Context, body map[string]any) (model.Room, error) {
	id, err := strconv.ParseUint(str(body, "room_id"), 10, 64)
	if err != nil || id == 0 {
		return model.Room{}, ValidationFields("Invalid housekeeping task", map[string]string{"room_id": "numeric"})
	}
	room, err := s.rooms.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Room{}, NotFound("Room not found")
	}
	if err != nil {
		return model.Room{}, Internal("Internal server error", err)
	}
	return room, nil
}

// VerifyHousekeeping signs a task off: the task is completed with the room
// found clean, and the room becomes Clean and available again.
func (s *RecordService) VerifyHousekeeping(ctx context.Context, actor uint64, id string) (model.Document, error) {
	r := s.resources[KindHousekeeping]
	old, err := s.docs.Get(ctx, KindHousekeeping, id)
	if err != nil {
		return model.Document{}, storeErr(err, r.Label)
	}
	now := s.now().UTC().Format(time.RFC3339)
	changes := map[string]any{
		"status":         "completed",
		"room_condition": "clean",
		"verified_by":    actor,
		"verified_at":    now,
	}
	if blank(old.Body["completed_at"]) {
		changes["completed_at"] = now
	}
	doc, err := s.save(ctx, r, old, changes)
	if err != nil {
		return model.Document{}, err
	}
	roomID, _ := strconv.ParseUint(str(doc.Body, "room_id"), 10, 64)
	available, clean := true, model.HousekeepingClean
	if err := s.rooms.SetStatus(ctx, roomID, &available, &clean); err != nil {
		return model.Document{}, storeErr(err, "Room")
	}
	return doc, nil
}
