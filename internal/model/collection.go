package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LoanOpen   = "open"
	LoanClosed = "closed"
)

// LoanTerms are the inputs of the ledger that admins set and may edit.
type LoanTerms struct {
	LoanAmount          decimal.Decimal `json:"loan_amount"`
	PerDayCollection    decimal.Decimal `json:"per_day_collection"`
	TotalDueInstallment int             `json:"total_due_installment"`
	DayForLoan          int             `json:"day_for_loan"`
}

// Paid are the running totals moved only by recording installments.
type Paid struct {
	Amount       decimal.Decimal `json:"total_paid_amount"`
	Installments int             `json:"total_paid_installment"`
}

// LedgerState is derived from terms and paid totals after every mutation.
type LedgerState struct {
	RemainingBalance      decimal.Decimal `json:"remaining_balance"`
	RemainingInstallments int             `json:"remaining_installments"`
	Status                string          `json:"loan_status"`
}

type Installment struct {
	ID     uint64          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	PaidAt time.Time       `json:"paid_at"`
}

type Collection struct {
	ID           uint64          `json:"id"`
	CustomerName string          `json:"customer_name"`
	MobileNo     string          `json:"mobile_no"`
	GivenAmount  decimal.Decimal `json:"given_amount"`
	ReferenceBy  string          `json:"reference_by"`
	AdharCard    *string         `json:"adhar_card"`
	PanCard      *string         `json:"pan_card"`
	LoanTerms
	TotalPaidAmount      decimal.Decimal `json:"total_paid_amount"`
	TotalPaidInstallment int             `json:"total_paid_installment"`
	LedgerState
	ClosedAt     *time.Time    `json:"closed_at"`
	Installments []Installment `json:"installments,omitempty"`
	CreatedBy    *uint64       `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (c Collection) Paid() Paid {
	return Paid{Amount: c.TotalPaidAmount, Installments: c.TotalPaidInstallment}
}

// CollectionDashboard summarises the whole ledger.
type CollectionDashboard struct {
	TotalLoans       int             `json:"total_loans"`
	OpenLoans        int             `json:"open_loans"`
	ClosedLoans      int             `json:"closed_loans"`
	TotalLoanAmount  decimal.Decimal `json:"total_loan_amount"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	TotalUsers       int             `json:"total_users"`
}

// MonthlyAmount is one month of the yearly loan-amount report.
type MonthlyAmount struct {
	Month  int             `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthlyStatus is one month of the yearly open/close report.
type MonthlyStatus struct {
	Month  int `json:"month"`
	Opened int `json:"opened"`
	Closed int `json:"closed"`
}
