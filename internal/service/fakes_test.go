package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/repository"
	"github.com/iliyamo/hotel-admin/internal/scheduler"
)

type fakeAdmins struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.Admin
}

func newFakeAdmins() *fakeAdmins { return &fakeAdmins{rows: map[uint64]model.Admin{}} }

func (f *fakeAdmins) Create(_ context.Context, a *model.Admin, authorize func(first bool) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := authorize(len(f.rows) == 0); err != nil {
		return err
	}
	for _, r := range f.rows {
		if r.Email == a.Email {
			return repository.ErrDuplicate
		}
	}
	f.next++
	a.ID = f.next
	a.CreatedAt = time.Now()
	f.rows[a.ID] = *a
	return nil
}

func (f *fakeAdmins) GetByID(_ context.Context, id uint64) (model.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return model.Admin{}, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeAdmins) GetByEmail(_ context.Context, email string) (model.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Admin{}, repository.ErrNotFound
}

func (f *fakeAdmins) List(context.Context) ([]model.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Admin{}
	for _, a := range f.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAdmins) UpdateProfile(_ context.Context, a *model.Admin) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[a.ID] = *a
	return nil
}

func (f *fakeAdmins) SetRole(_ context.Context, id uint64, roleID *uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.rows[id]
	a.RoleID = roleID
	f.rows[id] = a
	return nil
}

func (f *fakeAdmins) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeRoles struct {
	next uint64
	rows map[uint64]model.Role
}

func newFakeRoles() *fakeRoles { return &fakeRoles{rows: map[uint64]model.Role{}} }

func (f *fakeRoles) Create(_ context.Context, r *model.Role) error {
	for _, x := range f.rows {
		if x.Name == r.Name {
			return repository.ErrDuplicate
		}
	}
	f.next++
	r.ID = f.next
	f.rows[r.ID] = *r
	return nil
}

func (f *fakeRoles) Get(_ context.Context, id uint64) (model.Role, error) {
	r, ok := f.rows[id]
	if !ok {
		return model.Role{}, repository.ErrNotFound
	}
	return r, nil
}

func (f *fakeRoles) List(context.Context) ([]model.Role, error) {
	out := []model.Role{}
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRoles) Update(_ context.Context, r *model.Role) error {
	for _, x := range f.rows {
		if x.Name == r.Name && x.ID != r.ID {
			return repository.ErrDuplicate
		}
	}
	f.rows[r.ID] = *r
	return nil
}

func (f *fakeRoles) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeRooms struct {
	next uint64
	rows map[uint64]model.Room
}

func newFakeRooms() *fakeRooms { return &fakeRooms{rows: map[uint64]model.Room{}} }

func (f *fakeRooms) add(number string, rate int64) model.Room {
	r := model.Room{RoomNumber: number, RoomType: model.RoomStandard, BaseRate: decimal.NewFromInt(rate),
		IsAvailable: true, HousekeepingStatus: model.HousekeepingClean}
	_ = f.Create(context.Background(), &r)
	return r
}

func (f *fakeRooms) Create(_ context.Context, r *model.Room) error {
	for _, x := range f.rows {
		if x.RoomNumber == r.RoomNumber {
			return repository.ErrDuplicate
		}
	}
	f.next++
	r.ID = f.next
	f.rows[r.ID] = *r
	return nil
}

func (f *fakeRooms) Get(_ context.Context, id uint64) (model.Room, error) {
	r, ok := f.rows[id]
	if !ok {
		return model.Room{}, repository.ErrNotFound
	}
	return r, nil
}

func (f *fakeRooms) List(context.Context, repository.RoomFilter) ([]model.Room, error) {
	out := []model.Room{}
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRooms) Update(_ context.Context, r *model.Room) error {
	f.rows[r.ID] = *r
	return nil
}

func (f *fakeRooms) SetStatus(_ context.Context, id uint64, available *bool, hk *string) error {
	r := f.rows[id]
	if available != nil {
		r.IsAvailable = *available
	}
	if hk != nil {
		r.HousekeepingStatus = *hk
	}
	f.rows[id] = r
	return nil
}

func (f *fakeRooms) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

// fakeBookings applies transitions to the shared fake rooms, as the real
// store does in one transaction.
type fakeBookings struct {
	mu    sync.Mutex
	next  uint64
	rows  map[uint64]model.Booking
	rooms *fakeRooms
	stale bool // make the next Transition lose a race
}

func newFakeBookings(rooms *fakeRooms) *fakeBookings {
	return &fakeBookings{rows: map[uint64]model.Booking{}, rooms: rooms}
}

func (f *fakeBookings) Create(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.rows {
		if x.BookingNumber == b.BookingNumber {
			return repository.ErrDuplicate
		}
	}
	f.next++
	b.ID = f.next
	f.rows[b.ID] = *b
	return nil
}

func (f *fakeBookings) Get(_ context.Context, id uint64) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (f *fakeBookings) List(context.Context, repository.BookingFilter) ([]model.Booking, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Booking{}
	for _, b := range f.rows {
		out = append(out, b)
	}
	return out, len(out), nil
}

// Calendar returns everything; range and status filtering is the service's.
func (f *fakeBookings) Calendar(ctx context.Context, _, _ time.Time) ([]model.Booking, error) {
	list, _, err := f.List(ctx, repository.BookingFilter{})
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, err
}

func (f *fakeBookings) Update(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[b.ID] = *b
	return nil
}

func (f *fakeBookings) Transition(ctx context.Context, t model.BookingTransition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[t.BookingID]
	if !ok {
		return repository.ErrNotFound
	}
	if f.stale || b.Status != t.From {
		f.stale = false
		return repository.ErrStale
	}
	b.Status = t.To
	if t.Notes != nil {
		b.Notes = *t.Notes
	}
	if t.CancelledBy != nil {
		b.CancelledBy = t.CancelledBy
	}
	if t.CancelledAt != nil {
		b.CancelledAt = t.CancelledAt
	}
	f.rows[b.ID] = b
	if t.RoomAvailable != nil || t.Housekeeping != nil {
		for _, id := range t.RoomIDs {
			_ = f.rooms.SetStatus(ctx, id, t.RoomAvailable, t.Housekeeping)
		}
	}
	return nil
}

type fakeCollections struct {
	next uint64
	rows map[uint64]model.Collection
}

func newFakeCollections() *fakeCollections { return &fakeCollections{rows: map[uint64]model.Collection{}} }

func (f *fakeCollections) Create(_ context.Context, c *model.Collection) error {
	f.next++
	c.ID = f.next
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeCollections) Get(_ context.Context, id uint64) (model.Collection, error) {
	c, ok := f.rows[id]
	if !ok {
		return model.Collection{}, repository.ErrNotFound
	}
	c.Installments = append([]model.Installment(nil), c.Installments...)
	return c, nil
}

func (f *fakeCollections) List(context.Context, repository.CollectionFilter) ([]model.Collection, error) {
	out := []model.Collection{}
	for _, c := range f.rows {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCollections) Installments(_ context.Context, id uint64) ([]model.Installment, error) {
	c, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c.Installments, nil
}

func (f *fakeCollections) Update(_ context.Context, c *model.Collection) error {
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeCollections) AppendInstallment(_ context.Context, c *model.Collection, in *model.Installment) error {
	in.ID = uint64(len(c.Installments) + 1)
	stored := *c
	stored.Installments = append(append([]model.Installment(nil), c.Installments...), *in)
	f.rows[c.ID] = stored
	return nil
}

func (f *fakeCollections) Delete(_ context.Context, id uint64) error {
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeCollections) Dashboard(context.Context) (model.CollectionDashboard, error) {
	return model.CollectionDashboard{TotalLoans: len(f.rows)}, nil
}

func (f *fakeCollections) YearlyLoanAmount(context.Context, int) ([]model.MonthlyAmount, error) {
	return nil, nil
}

func (f *fakeCollections) YearlyStatusCounts(context.Context, int) ([]model.MonthlyStatus, error) {
	return nil, nil
}

// fakeDocs keeps documents in memory. Find understands Equals and a From
// bound on RangeField; that is all the services rely on.
type fakeDocs struct {
	rows map[string]map[string]model.Document
	// getErr, when set for a kind, fails every Get of that kind
	getErr map[string]error
}

func newFakeDocs() *fakeDocs { return &fakeDocs{rows: map[string]map[string]model.Document{}} }

func (f *fakeDocs) Insert(_ context.Context, d *model.Document) error {
	if f.rows[d.Kind] == nil {
		f.rows[d.Kind] = map[string]model.Document{}
	}
	if d.UniqueKey != nil {
		for _, x := range f.rows[d.Kind] {
			if x.UniqueKey != nil && *x.UniqueKey == *d.UniqueKey {
				return repository.ErrDuplicate
			}
		}
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	f.rows[d.Kind][d.ID] = copyDoc(*d)
	return nil
}

func (f *fakeDocs) Get(_ context.Context, kind, id string) (model.Document, error) {
	if err := f.getErr[kind]; err != nil {
		return model.Document{}, err
	}
	d, ok := f.rows[kind][id]
	if !ok {
		return model.Document{}, repository.ErrNotFound
	}
	return copyDoc(d), nil
}

func (f *fakeDocs) Update(_ context.Context, d *model.Document) error {
	if _, ok := f.rows[d.Kind][d.ID]; !ok {
		return repository.ErrNotFound
	}
	if d.UniqueKey != nil {
		for _, x := range f.rows[d.Kind] {
			if x.ID != d.ID && x.UniqueKey != nil && *x.UniqueKey == *d.UniqueKey {
				return repository.ErrDuplicate
			}
		}
	}
	f.rows[d.Kind][d.ID] = copyDoc(*d)
	return nil
}

func (f *fakeDocs) Delete(_ context.Context, kind, id string) error {
	if _, ok := f.rows[kind][id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows[kind], id)
	return nil
}

func (f *fakeDocs) Find(_ context.Context, q repository.DocQuery) ([]model.Document, int, error) {
	out := []model.Document{}
	for _, d := range f.rows[q.Kind] {
		match := true
		for k, v := range q.Equals {
			if str(d.Body, k) != v {
				match = false
			}
		}
		if q.From != nil && q.RangeField != "" {
			t, err := toTime(d.Body[q.RangeField])
			if err != nil || t.Before(*q.From) {
				match = false
			}
		}
		if match {
			out = append(out, copyDoc(d))
		}
	}
	return out, len(out), nil
}

func (f *fakeDocs) Sum(ctx context.Context, q repository.DocQuery, field string) (decimal.Decimal, error) {
	list, _, _ := f.Find(ctx, q)
	sum := decimal.Zero
	for _, d := range list {
		sum = sum.Add(num(d.Body, field))
	}
	return sum, nil
}

func copyDoc(d model.Document) model.Document {
	body := make(map[string]any, len(d.Body))
	for k, v := range d.Body {
		body[k] = v
	}
	d.Body = body
	return d
}

type fakeScheduler struct {
	tasks map[string]time.Time
	run   map[string]scheduler.Task
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{tasks: map[string]time.Time{}, run: map[string]scheduler.Task{}}
}

func (f *fakeScheduler) Schedule(id string, at time.Time, task scheduler.Task) {
	f.tasks[id] = at
	f.run[id] = task
}

func (f *fakeScheduler) Cancel(id string) bool {
	_, ok := f.tasks[id]
	delete(f.tasks, id)
	delete(f.run, id)
	return ok
}

type fakePublisher struct {
	events chan string
}

func newFakePublisher() *fakePublisher { return &fakePublisher{events: make(chan string, 32)} }

func (f *fakePublisher) Publish(_ context.Context, key string, _ any) error {
	f.events <- key
	return nil
}

func (f *fakePublisher) next() string {
	select {
	case k := <-f.events:
		return k
	case <-time.After(2 * time.Second):
		return "no event"
	}
}
