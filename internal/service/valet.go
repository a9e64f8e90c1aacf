package service

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-admin/internal/model"
)

// valetHooks stamp the time of each status change: requested_at when the
// guest asks for the car, delivered_at (and out_time) when it is handed
// over. A delivered slip is final.
func (s *RecordService) valetHooks() hooks {
	return hooks{
		prepare: func(ctx context.Context, old *model.Document, body map[string]any) error {
			now := s.now().UTC().Format(time.RFC3339)
			was := ""
			if old != nil {
				was = str(old.Body, "status")
			} else if blank(body["in_time"]) {
				body["in_time"] = now
			}
			status := str(body, "status")
			if was == ValetDelivered && status != ValetDelivered {
				return InvalidTransition("Vehicle already delivered")
			}
			if status == was {
				return nil
			}
			switch status {
			case ValetRequested:
				body["requested_at"] = now
			case ValetDelivered:
				body["delivered_at"] = now
				if blank(body["out_time"]) {
					body["out_time"] = now
				}
			}
			return nil
		},
	}
}

// SetValetStatus moves a slip to Parked, Requested or Delivered.
func (s *RecordService) SetValetStatus(ctx context.Context, id, status string) (model.Document, error) {
	return s.Update(ctx, KindValet, id, map[string]any{"status": status})
}
