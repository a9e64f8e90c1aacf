package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/metrics"
	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/repository"
)

// DeriveLedgerState computes what is still owed. A record is closed once
// either the balance or the installment count reaches zero; both are then
// reported as zero.
func DeriveLedgerState(terms model.LoanTerms, paid model.Paid) model.LedgerState {
	st := model.LedgerState{
		RemainingBalance:      terms.LoanAmount.Sub(paid.Amount),
		RemainingInstallments: terms.TotalDueInstallment - paid.Installments,
		Status:                model.LoanOpen,
	}
	if !st.RemainingBalance.IsPositive() || st.RemainingInstallments <= 0 {
		st.Status = model.LoanClosed
		st.RemainingBalance = decimal.Zero
		st.RemainingInstallments = 0
	}
	return st
}

type CollectionStore interface {
	Create(ctx context.Context, c *model.Collection) error
	Get(ctx context.Context, id uint64) (model.Collection, error)
	List(ctx context.Context, f repository.CollectionFilter) ([]model.Collection, error)
	Installments(ctx context.Context, id uint64) ([]model.Installment, error)
	Update(ctx context.Context, c *model.Collection) error
	AppendInstallment(ctx context.Context, c *model.Collection, in *model.Installment) error
	Delete(ctx context.Context, id uint64) error
	Dashboard(ctx context.Context) (model.CollectionDashboard, error)
	YearlyLoanAmount(ctx context.Context, year int) ([]model.MonthlyAmount, error)
	YearlyStatusCounts(ctx context.Context, year int) ([]model.MonthlyStatus, error)
}

type CollectionService struct {
	store CollectionStore
	now   func() time.Time
}

func NewCollectionService(store CollectionStore) *CollectionService {
	if store == nil {
		panic("collection service: nil store")
	}
	return &CollectionService{store: store, now: time.Now}
}

// CollectionInput is used for create (all terms required) and update (nil
// means unchanged).
type CollectionInput struct {
	CustomerName        *string          `json:"customer_name"`
	MobileNo            *string          `json:"mobile_no"`
	GivenAmount         *decimal.Decimal `json:"given_amount"`
	ReferenceBy         *string          `json:"reference_by"`
	AdharCard           *string          `json:"adhar_card"`
	PanCard             *string          `json:"pan_card"`
	LoanAmount          *decimal.Decimal `json:"loan_amount"`
	PerDayCollection    *decimal.Decimal `json:"per_day_collection"`
	TotalDueInstallment *int             `json:"total_due_installment"`
	DayForLoan          *int             `json:"day_for_loan"`
}

func (in CollectionInput) apply(c *model.Collection) {
	if in.CustomerName != nil {
		c.CustomerName = strings.TrimSpace(*in.CustomerName)
	}
	if in.MobileNo != nil {
		c.MobileNo = strings.TrimSpace(*in.MobileNo)
	}
	if in.GivenAmount != nil {
		c.GivenAmount = *in.GivenAmount
	}
	if in.ReferenceBy != nil {
		c.ReferenceBy = *in.ReferenceBy
	}
	if in.AdharCard != nil {
		c.AdharCard = in.AdharCard
	}
	if in.PanCard != nil {
		c.PanCard = in.PanCard
	}
	if in.LoanAmount != nil {
		c.LoanAmount = *in.LoanAmount
	}
	if in.PerDayCollection != nil {
		c.PerDayCollection = *in.PerDayCollection
	}
	if in.TotalDueInstallment != nil {
		c.TotalDueInstallment = *in.TotalDueInstallment
	}
	if in.DayForLoan != nil {
		c.DayForLoan = *in.DayForLoan
	}
}

func checkCollection(c model.Collection) error {
	fields := map[string]string{}
	if c.CustomerName == "" {
		fields["customer_name"] = "required"
	}
	if c.MobileNo == "" {
		fields["mobile_no"] = "required"
	}
	if !c.LoanAmount.IsPositive() {
		fields["loan_amount"] = "gt"
	}
	if !c.PerDayCollection.IsPositive() {
		fields["per_day_collection"] = "gt"
	}
	if c.TotalDueInstallment < 0 {
		fields["total_due_installment"] = "gte"
	}
	if c.DayForLoan < 1 {
		fields["day_for_loan"] = "gte"
	}
	if c.GivenAmount.IsNegative() {
		fields["given_amount"] = "gte"
	}
	for name, v := range map[string]decimal.Decimal{
		"loan_amount": c.LoanAmount, "per_day_collection": c.PerDayCollection, "given_amount": c.GivenAmount,
	} {
		if _, bad := fields[name]; !bad && !wholeCents(v) {
			fields[name] = centsTag
		}
	}
	if len(fields) > 0 {
		return ValidationFields("Invalid collection", fields)
	}
	return nil
}

// settle re-derives the ledger and maintains closed_at.
func (s *CollectionService) settle(c *model.Collection) {
	c.LedgerState = DeriveLedgerState(c.LoanTerms, c.Paid())
	switch {
	case c.Status == model.LoanOpen:
		c.ClosedAt = nil
	case c.ClosedAt == nil:
		now := s.now().UTC()
		c.ClosedAt = &now
	}
}

func (s *CollectionService) CreateCollection(ctx context.Context, createdBy uint64, in CollectionInput) (model.Collection, error) {
	if in.TotalDueInstallment == nil {
		return model.Collection{}, ValidationFields("Invalid collection", map[string]string{"total_due_installment": "required"})
	}
	var c model.Collection
	in.apply(&c)
	if err := checkCollection(c); err != nil {
		return model.Collection{}, err
	}
	if createdBy != 0 {
		c.CreatedBy = &createdBy
	}
	s.settle(&c)
	if err := s.store.Create(ctx, &c); err != nil {
		return model.Collection{}, storeErr(err, "Collection")
	}
	c.Installments = []model.Installment{}
	return c, nil
}

// RecordInstallment appends a payment. Every call counts: repeating a
// request records the payment twice.
func (s *CollectionService) RecordInstallment(ctx context.Context, id uint64, amount decimal.Decimal) (model.Collection, error) {
	if !amount.IsPositive() {
		return model.Collection{}, ValidationFields("Invalid installment", map[string]string{"amount": "gt"})
	}
	if !wholeCents(amount) {
		return model.Collection{}, ValidationFields("Invalid installment", map[string]string{"amount": centsTag})
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Collection{}, storeErr(err, "Collection")
	}
	in := model.Installment{Amount: amount, PaidAt: s.now().UTC()}
	c.TotalPaidAmount = c.TotalPaidAmount.Add(amount)
	c.TotalPaidInstallment++
	s.settle(&c)
	if err := s.store.AppendInstallment(ctx, &c, &in); err != nil {
		return model.Collection{}, storeErr(err, "Collection")
	}
	c.Installments = append(c.Installments, in)
	metrics.InstallmentRecorded()
	return c, nil
}

// UpdateCollection edits customer details and terms; the paid totals stay
// and the ledger is re-derived from them.
func (s *CollectionService) UpdateCollection(ctx context.Context, id uint64, in CollectionInput) (model.Collection, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Collection{}, storeErr(err, "Collection")
	}
	in.apply(&c)
	if err := checkCollection(c); err != nil {
		return model.Collection{}, err
	}
	s.settle(&c)
	if err := s.store.Update(ctx, &c); err != nil {
		return model.Collection{}, storeErr(err, "Collection")
	}
	return c, nil
}

func (s *CollectionService) GetCollection(ctx context.Context, id uint64) (model.Collection, error) {
	c, err := s.store.Get(ctx, id)
	return c, storeErr(err, "Collection")
}

func (s *CollectionService) ListCollections(ctx context.Context, f repository.CollectionFilter) ([]model.Collection, error) {
	if f.Status != "" && f.Status != model.LoanOpen && f.Status != model.LoanClosed {
		return nil, ValidationFields("Invalid filter", map[string]string{"status": "oneof"})
	}
	list, err := s.store.List(ctx, f)
	return list, storeErr(err, "Collection")
}

func (s *CollectionService) InstallmentHistory(ctx context.Context, id uint64) ([]model.Installment, error) {
	list, err := s.store.Installments(ctx, id)
	return list, storeErr(err, "Collection")
}

func (s *CollectionService) DeleteCollection(ctx context.Context, id uint64) error {
	return storeErr(s.store.Delete(ctx, id), "Collection")
}

func (s *CollectionService) Dashboard(ctx context.Context) (model.CollectionDashboard, error) {
	d, err := s.store.Dashboard(ctx)
	return d, storeErr(err, "Collection")
}

func checkYear(year int) error {
	if year < 1970 || year > 9999 {
		return ValidationFields("Invalid year", map[string]string{"year": "range"})
	}
	return nil
}

func (s *CollectionService) YearlyLoanAmount(ctx context.Context, year int) ([]model.MonthlyAmount, error) {
	if err := checkYear(year); err != nil {
		return nil, err
	}
	out, err := s.store.YearlyLoanAmount(ctx, year)
	return out, storeErr(err, "Collection")
}

func (s *CollectionService) YearlyStatusCounts(ctx context.Context, year int) ([]model.MonthlyStatus, error) {
	if err := checkYear(year); err != nil {
		return nil, err
	}
	out, err := s.store.YearlyStatusCounts(ctx, year)
	return out, storeErr(err, "Collection")
}
