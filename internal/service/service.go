// Package service holds the business rules of the admin backend. Services
// talk to persistence through the small store interfaces declared here and
// return *Error for every failure a client should see.
package service

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/repository"
)

// EventPublisher sends domain events to the broker. Failures never fail the
// operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// FileStore keeps uploaded files; see package storage.
type FileStore interface {
	Put(ctx context.Context, folder, filename string, body io.Reader) (string, error)
	Remove(ctx context.Context, ref string) error
}

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Body     io.Reader
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

// storeErr translates repository failures. what names the entity in
// client-facing messages, e.g. "Room".
func storeErr(err error, what string) error {
	var se *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &se):
		return se
	case errors.Is(err, repository.ErrNotFound):
		return NotFound(what + " not found")
	case errors.Is(err, repository.ErrDuplicate):
		return Conflict(what + " already exists")
	case errors.Is(err, repository.ErrStale):
		return Conflict(what + " was changed by another request, retry")
	}
	return Internal("Internal server error", err)
}

// centsTag is the field error for an amount the DECIMAL(_,2) columns cannot
// hold exactly.
const centsTag = "max_decimals"

// wholeCents reports whether d has at most two fractional digits.
func wholeCents(d decimal.Decimal) bool { return d.Equal(d.Round(2)) }

// removeQuietly drops a replaced upload; a failure only costs disk space.
func removeQuietly(ctx context.Context, files FileStore, ref string) {
	if files == nil || ref == "" {
		return
	}
	if err := files.Remove(ctx, ref); err != nil {
		log.Warn().Err(err).Str("ref", ref).Msg("remove upload failed")
	}
}
