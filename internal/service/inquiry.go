package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/hotel-admin/internal/metrics"
	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/queue"
	"github.com/iliyamo/hotel-admin/internal/repository"
)

func (s *RecordService) leadHooks() hooks {
	return hooks{
		prepare: func(ctx context.Context, old *model.Document, body map[string]any) error {
			if id := str(body, "category_id"); id != "" {
				if _, err := s.mustExist(ctx, KindCategories, id, "category_id"); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (s *RecordService) inquiryHooks() hooks {
	return hooks{
		prepare: func(ctx context.Context, old *model.Document, body map[string]any) error {
			status := str(body, "status")
			if status == "" {
				return nil
			}
			_, n, err := s.docs.Find(ctx, repository.DocQuery{
				Kind: KindStatuses, Equals: map[string]string{"name": status}, Limit: 1,
			})
			if err != nil {
				return Internal("Internal server error", err)
			}
			if n == 0 {
				return NotFound("Status not found")
			}
			return nil
		},
		after: func(ctx context.Context, old *model.Document, doc model.Document) error {
			s.armReminder(doc)
			return nil
		},
		removed: func(ctx context.Context, doc model.Document) error {
			if s.reminders != nil {
				s.reminders.Cancel(doc.ID)
			}
			return nil
		},
	}
}

// missedReminderWindow is how far back RestoreReminders looks for reminders
// that came due while the process was down.
const missedReminderWindow = 24 * time.Hour

// armReminder (re)schedules the inquiry's reminder, or cancels it when the
// inquiry no longer has a future reminder_at.
func (s *RecordService) armReminder(doc model.Document) {
	if s.reminders == nil {
		return
	}
	at, err := toTime(doc.Body["reminder_at"])
	if err != nil || !at.After(s.now()) {
		s.reminders.Cancel(doc.ID)
		return
	}
	s.scheduleReminder(doc, at)
}

// reminderSent reports whether the reminder due at `at` already went out.
func reminderSent(doc model.Document, at time.Time) bool {
	sent, err := toTime(doc.Body["reminder_sent_at"])
	return err == nil && !sent.Before(at)
}

func (s *RecordService) scheduleReminder(doc model.Document, at time.Time) {
	ev := queue.ReminderEvent{
		Type:      queue.InquiryReminder,
		InquiryID: doc.ID,
		Name:      str(doc.Body, "name"),
		Contact:   str(doc.Body, "phone"),
		Note:      str(doc.Body, "note"),
		RemindAt:  at.UTC().Format(time.RFC3339),
	}
	s.reminders.Schedule(doc.ID, at, func() error {
		now := s.now().UTC()
		ev.OccurredAt = now.Format(time.RFC3339)
		log.Info().Str("inquiry_id", ev.InquiryID).Str("name", ev.Name).Msg("inquiry reminder due")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.events.Publish(ctx, queue.InquiryReminder, ev)
		metrics.ReminderFired(err == nil)
		if err != nil {
			return err
		}
		return s.markReminderSent(ctx, doc.ID, now)
	})
}

// markReminderSent stamps the inquiry so a restart does not send it again.
// It writes the store directly; the inquiry hooks must not re-run.
func (s *RecordService) markReminderSent(ctx context.Context, id string, at time.Time) error {
	d, err := s.docs.Get(ctx, KindInquiries, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load inquiry %s: %w", id, err)
	}
	d.Body["reminder_sent_at"] = at.Format(time.RFC3339)
	if err := s.docs.Update(ctx, &d); err != nil {
		return fmt.Errorf("mark reminder sent %s: %w", id, err)
	}
	return nil
}

// RestoreReminders re-arms unsent reminders at startup, since the scheduler
// is in-memory. Ones that came due within missedReminderWindow while the
// process was down fire at once; older ones are dropped.
func (s *RecordService) RestoreReminders(ctx context.Context) (int, error) {
	if s.reminders == nil {
		return 0, nil
	}
	since := s.now().UTC().Add(-missedReminderWindow)
	list, _, err := s.docs.Find(ctx, repository.DocQuery{Kind: KindInquiries, RangeField: "reminder_at", From: &since})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range list {
		at, err := toTime(d.Body["reminder_at"])
		if err != nil || reminderSent(d, at) {
			continue
		}
		s.scheduleReminder(d, at)
		n++
	}
	return n, nil
}
