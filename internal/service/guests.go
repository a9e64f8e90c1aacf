package service

import (
	"context"
	"errors"

	"github.com/iliyamo/hotel-admin/internal/model"
)

func (s *RecordService) guestHooks() hooks {
	return hooks{
		removed: func(ctx context.Context, doc model.Document) error {
			removeQuietly(ctx, s.files, str(doc.Body, "id_document"))
			return nil
		},
	}
}

// UploadGuestDocument stores a scan of the guest's ID and links it to the
// guest, replacing any earlier one.
func (s *RecordService) UploadGuestDocument(ctx context.Context, id string, up Upload) (model.Document, error) {
	r := s.resources[KindGuests]
	old, err := s.docs.Get(ctx, KindGuests, id)
	if err != nil {
		return model.Document{}, storeErr(err, r.Label)
	}
	if s.files == nil {
		return model.Document{}, Internal("Uploads are not configured", errors.New("no file store"))
	}
	ref, err := s.files.Put(ctx, "guests/"+id, up.Filename, up.Body)
	if err != nil {
		return model.Document{}, uploadErr(err)
	}
	previous := str(old.Body, "id_document")
	doc, err := s.save(ctx, r, old, map[string]any{"id_document": ref})
	if err != nil {
		removeQuietly(ctx, s.files, ref)
		return model.Document{}, err
	}
	if previous != ref {
		removeQuietly(ctx, s.files, previous)
	}
	return doc, nil
}
