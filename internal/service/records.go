package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/repository"
	"github.com/iliyamo/hotel-admin/internal/scheduler"
)

type DocumentStore interface {
	Insert(ctx context.Context, d *model.Document) error
	Get(ctx context.Context, kind, id string) (model.Document, error)
	Update(ctx context.Context, d *model.Document) error
	Delete(ctx context.Context, kind, id string) error
	Find(ctx context.Context, q repository.DocQuery) ([]model.Document, int, error)
	Sum(ctx context.Context, q repository.DocQuery, field string) (decimal.Decimal, error)
}

// ReminderScheduler runs one-shot tasks keyed by id; see package scheduler.
type ReminderScheduler interface {
	Schedule(id string, at time.Time, task scheduler.Task)
	Cancel(id string) bool
}

// Resource describes one ancillary module stored as documents.
type Resource struct {
	Kind       string // document kind
	Path       string // route segment
	Module     string // permission module
	Label      string // singular name used in messages
	Required   []string
	Enums      map[string][]string
	Defaults   map[string]any
	Numbers    []string // non-negative decimals
	Dates      []string // YYYY-MM-DD or RFC 3339; stored as RFC 3339 UTC
	Filters    []string // equality filters accepted from the query string
	Search     []string // fields matched by ?search=
	RangeField string   // field startDate/endDate apply to; empty means created_at
	Unique     []string // fields whose combined value is unique within the kind
	ReadOnly   []string // maintained by the server, ignored in client input
}

// hooks attach module behaviour to the generic pipeline. prepare runs after
// validation and before the write; old is nil on create. after runs once the
// write succeeded, removed once a delete did.
type hooks struct {
	prepare func(ctx context.Context, old *model.Document, body map[string]any) error
	after   func(ctx context.Context, old *model.Document, doc model.Document) error
	removed func(ctx context.Context, doc model.Document) error
}

// RecordService implements create/list/get/update/delete for every
// ancillary module plus their module-specific operations.
type RecordService struct {
	docs      DocumentStore
	rooms     RoomStore
	files     FileStore
	reminders ReminderScheduler
	events    EventPublisher
	now       func() time.Time

	order     []*Resource
	resources map[string]*Resource
	hooks     map[string]hooks
}

func NewRecordService(docs DocumentStore, rooms RoomStore, files FileStore, reminders ReminderScheduler, events EventPublisher) *RecordService {
	if docs == nil || rooms == nil {
		panic("record service: nil store")
	}
	if events == nil {
		events = nopPublisher{}
	}
	s := &RecordService{
		docs:      docs,
		rooms:     rooms,
		files:     files,
		reminders: reminders,
		events:    events,
		now:       time.Now,
		resources: map[string]*Resource{},
		hooks:     map[string]hooks{},
	}
	for _, r := range catalog() {
		s.order = append(s.order, r)
		s.resources[r.Kind] = r
	}
	s.hooks[KindGuests] = s.guestHooks()
	s.hooks[KindHousekeeping] = s.housekeepingHooks()
	s.hooks[KindInvoices] = s.invoiceHooks()
	s.hooks[KindPayments] = s.paymentHooks()
	s.hooks[KindPurchaseOrders] = s.purchaseOrderHooks()
	s.hooks[KindValet] = s.valetHooks()
	s.hooks[KindLeads] = s.leadHooks()
	s.hooks[KindInquiries] = s.inquiryHooks()
	return s
}

// Resources lists the modules in catalog order.
func (s *RecordService) Resources() []*Resource { return s.order }

func (s *RecordService) resource(kind string) (*Resource, error) {
	r, ok := s.resources[kind]
	if !ok {
		return nil, NotFound("Unknown module " + kind)
	}
	return r, nil
}

var serverFields = []string{"id", "created_at", "updated_at", "created_by"}

// input copies client fields, dropping the ones the server maintains.
func (r *Resource) input(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if model.OneOf(k, serverFields) || model.OneOf(k, r.ReadOnly) {
			continue
		}
		out[k] = v
	}
	return out
}

// normalize parses typed fields in place and checks required and enum
// fields. It returns the per-field problems.
func (r *Resource) normalize(body map[string]any) map[string]string {
	fields := map[string]string{}
	for _, f := range r.Numbers {
		v, ok := body[f]
		if !ok || v == nil {
			continue
		}
		d, err := toDecimal(v)
		switch {
		case err != nil:
			fields[f] = "numeric"
		case d.IsNegative():
			fields[f] = "gte"
		default:
			body[f] = jsonNumber(d)
		}
	}
	for _, f := range r.Dates {
		v, ok := body[f]
		if !ok || v == nil || v == "" {
			continue
		}
		t, err := toTime(v)
		if err != nil {
			fields[f] = "datetime"
			continue
		}
		body[f] = t.UTC().Format(time.RFC3339)
	}
	for f, allowed := range r.Enums {
		v, ok := body[f]
		if !ok || v == nil {
			continue
		}
		if sv, isStr := v.(string); !isStr || !model.OneOf(sv, allowed) {
			fields[f] = "oneof"
		}
	}
	for _, f := range r.Required {
		if blank(body[f]) {
			fields[f] = "required"
		}
	}
	return fields
}

// uniqueKey joins the unique fields, lower-cased. A record missing any of
// them has no key.
func (r *Resource) uniqueKey(body map[string]any) *string {
	if len(r.Unique) == 0 {
		return nil
	}
	parts := make([]string, 0, len(r.Unique))
	for _, f := range r.Unique {
		v := strings.ToLower(strings.TrimSpace(str(body, f)))
		if v == "" {
			return nil
		}
		parts = append(parts, v)
	}
	key := strings.Join(parts, "|")
	return &key
}

func (r *Resource) conflict() error {
	return Conflict(fmt.Sprintf("%s with the same %s already exists", r.Label, strings.Join(r.Unique, " and ")))
}

// Create validates body and stores a new record of kind.
func (s *RecordService) Create(ctx context.Context, actor uint64, kind string, in map[string]any) (model.Document, error) {
	r, err := s.resource(kind)
	if err != nil {
		return model.Document{}, err
	}
	body := r.input(in)
	for k, v := range r.Defaults {
		if _, ok := body[k]; !ok {
			body[k] = v
		}
	}
	if fields := r.normalize(body); len(fields) > 0 {
		return model.Document{}, ValidationFields("Invalid "+strings.ToLower(r.Label), fields)
	}
	h := s.hooks[kind]
	if h.prepare != nil {
		if err := h.prepare(ctx, nil, body); err != nil {
			return model.Document{}, err
		}
	}
	doc := model.Document{Kind: kind, Body: body, UniqueKey: r.uniqueKey(body)}
	if actor != 0 {
		doc.CreatedBy = &actor
	}
	if err := s.docs.Insert(ctx, &doc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Document{}, r.conflict()
		}
		return model.Document{}, storeErr(err, r.Label)
	}
	if h.after != nil {
		if err := h.after(ctx, nil, doc); err != nil {
			return model.Document{}, storeErr(err, r.Label)
		}
	}
	return doc, nil
}

// ListQuery is the query-string side of a list request.
type ListQuery struct {
	Filters  map[string]string
	Search   string
	From, To *time.Time
	Page     int
	Limit    int
}

// List returns a page of records of kind, newest first, and the total
// number of matches. Unknown filters are ignored.
func (s *RecordService) List(ctx context.Context, kind string, lq ListQuery) ([]model.Document, int, error) {
	r, err := s.resource(kind)
	if err != nil {
		return nil, 0, err
	}
	if lq.From != nil && lq.To != nil && lq.From.After(*lq.To) {
		return nil, 0, Validation("startDate must not be after endDate")
	}
	q := repository.DocQuery{
		Kind:       kind,
		Equals:     map[string]string{},
		RangeField: r.RangeField,
		From:       lq.From,
		To:         lq.To,
		Page:       lq.Page,
		Limit:      lq.Limit,
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 50
	}
	for _, f := range r.Filters {
		v, ok := lq.Filters[f]
		if !ok || v == "" {
			continue
		}
		if model.OneOf(f, r.Dates) {
			if t, err := toTime(v); err == nil {
				v = t.UTC().Format(time.RFC3339)
			}
		}
		q.Equals[f] = v
	}
	if lq.Search != "" && len(r.Search) > 0 {
		q.Search, q.SearchFields = lq.Search, r.Search
	}
	list, total, err := s.docs.Find(ctx, q)
	if err != nil {
		return nil, 0, storeErr(err, r.Label)
	}
	return list, total, nil
}

func (s *RecordService) Get(ctx context.Context, kind, id string) (model.Document, error) {
	r, err := s.resource(kind)
	if err != nil {
		return model.Document{}, err
	}
	d, err := s.docs.Get(ctx, kind, id)
	return d, storeErr(err, r.Label)
}

// Update merges patch into the stored record. A null value removes the
// field.
func (s *RecordService) Update(ctx context.Context, kind, id string, patch map[string]any) (model.Document, error) {
	r, err := s.resource(kind)
	if err != nil {
		return model.Document{}, err
	}
	old, err := s.docs.Get(ctx, kind, id)
	if err != nil {
		return model.Document{}, storeErr(err, r.Label)
	}
	return s.save(ctx, r, old, r.input(patch))
}

// save merges changes into old and writes the result through the pipeline.
// changes may carry server-maintained fields; callers filter client input.
func (s *RecordService) save(ctx context.Context, r *Resource, old model.Document, changes map[string]any) (model.Document, error) {
	body := make(map[string]any, len(old.Body)+len(changes))
	for k, v := range old.Body {
		body[k] = v
	}
	for k, v := range changes {
		if v == nil {
			delete(body, k)
			continue
		}
		body[k] = v
	}
	if fields := r.normalize(body); len(fields) > 0 {
		return model.Document{}, ValidationFields("Invalid "+strings.ToLower(r.Label), fields)
	}
	h := s.hooks[r.Kind]
	if h.prepare != nil {
		if err := h.prepare(ctx, &old, body); err != nil {
			return model.Document{}, err
		}
	}
	doc := old
	doc.Body = body
	doc.UniqueKey = r.uniqueKey(body)
	if err := s.docs.Update(ctx, &doc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Document{}, r.conflict()
		}
		return model.Document{}, storeErr(err, r.Label)
	}
	if h.after != nil {
		if err := h.after(ctx, &old, doc); err != nil {
			return model.Document{}, storeErr(err, r.Label)
		}
	}
	return doc, nil
}

func (s *RecordService) Delete(ctx context.Context, kind, id string) error {
	r, err := s.resource(kind)
	if err != nil {
		return err
	}
	doc, err := s.docs.Get(ctx, kind, id)
	if err != nil {
		return storeErr(err, r.Label)
	}
	if err := s.docs.Delete(ctx, kind, id); err != nil {
		return storeErr(err, r.Label)
	}
	if h := s.hooks[kind]; h.removed != nil {
		if err := h.removed(ctx, doc); err != nil {
			log.Error().Err(err).Str("kind", kind).Str("id", id).Msg("follow-up after delete failed")
			return Internal("Internal server error", err)
		}
	}
	return nil
}

// mustExist checks that a referenced record exists.
func (s *RecordService) mustExist(ctx context.Context, kind, id, label string) (model.Document, error) {
	if id == "" {
		return model.Document{}, ValidationFields("Invalid reference", map[string]string{label: "required"})
	}
	d, err := s.docs.Get(ctx, kind, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Document{}, NotFound(s.resources[kind].Label + " not found")
	}
	if err != nil {
		return model.Document{}, Internal("Internal server error", err)
	}
	return d, nil
}

// documentNumber builds INV/PO style numbers the same way booking numbers
// are built.
func documentNumber(prefix string, t time.Time) string {
	return fmt.Sprintf("%s%08d%d", prefix, t.UnixMilli()%100_000_000, 100+rand.IntN(900))
}

// body value helpers

func blank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	}
	return false
}

func str(body map[string]any, f string) string {
	switch x := body[f].(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case json.Number:
		return decimal.NewFromString(x.String())
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	}
	return decimal.Zero, fmt.Errorf("not a number: %v", v)
}

// num reads a numeric field, zero when absent or malformed.
func num(body map[string]any, f string) decimal.Decimal {
	v, ok := body[f]
	if !ok || v == nil {
		return decimal.Zero
	}
	d, err := toDecimal(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func jsonNumber(d decimal.Decimal) json.Number { return json.Number(d.String()) }

func toTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("not a date: %v", v)
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
