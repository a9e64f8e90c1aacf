package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/model"
	"github.com/iliyamo/hotel-admin/internal/report"
	"github.com/iliyamo/hotel-admin/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// lineItems validates an items array of {quantity, unit_price, ...} and
// rewrites it with parsed numbers and a per-line total. It returns the sum.
func lineItems(body map[string]any, extra func(i int, item map[string]any) error) (decimal.Decimal, error) {
	raw, ok := body["items"].([]any)
	if !ok || len(raw) == 0 {
		return decimal.Zero, ValidationFields("Invalid items", map[string]string{"items": "required"})
	}
	sum := decimal.Zero
	items := make([]any, 0, len(raw))
	for i, v := range raw {
		item, ok := v.(map[string]any)
		if !ok {
			return decimal.Zero, ValidationFields("Invalid items", map[string]string{fmt.Sprintf("items[%d]", i): "object"})
		}
		qty, err := toDecimal(item["quantity"])
		if err != nil || !qty.IsPositive() {
			return decimal.Zero, ValidationFields("Invalid items", map[string]string{fmt.Sprintf("items[%d].quantity", i): "gt"})
		}
		price, err := toDecimal(item["unit_price"])
		if err != nil || price.IsNegative() {
			return decimal.Zero, ValidationFields("Invalid items", map[string]string{fmt.Sprintf("items[%d].unit_price", i): "gte"})
		}
		if extra != nil {
			if err := extra(i, item); err != nil {
				return decimal.Zero, err
			}
		}
		total := qty.Mul(price)
		item["quantity"] = jsonNumber(qty)
		item["unit_price"] = jsonNumber(price)
		item["total"] = jsonNumber(total)
		items = append(items, item)
		sum = sum.Add(total)
	}
	body["items"] = items
	return sum, nil
}

// settleInvoice recomputes balance and status from total and paid amount.
// A cancelled invoice stays cancelled.
func settleInvoice(body map[string]any) {
	total, paid := num(body, "total"), num(body, "paid_amount")
	balance := total.Sub(paid)
	body["paid_amount"] = jsonNumber(paid)
	body["balance"] = jsonNumber(balance)
	if body["status"] == "cancelled" {
		return
	}
	switch {
	case !balance.IsPositive() && total.IsPositive():
		body["status"] = "paid"
	case paid.IsPositive():
		body["status"] = "partial"
	default:
		body["status"] = "unpaid"
	}
}

func (s *RecordService) invoiceHooks() hooks {
	return hooks{
		prepare: func(ctx context.Context, old *model.Document, body map[string]any) error {
			subtotal, err := lineItems(body, func(i int, item map[string]any) error {
				if blank(item["description"]) {
					return ValidationFields("Invalid items", map[string]string{fmt.Sprintf("items[%d].description", i): "required"})
				}
				return nil
			})
			if err != nil {
				return err
			}
			tax := subtotal.Mul(num(body, "tax_rate")).Div(hundred).Round(2)
			discount := num(body, "discount")
			total := subtotal.Add(tax).Sub(discount)
			if total.IsNegative() {
				return ValidationFields("Invalid invoice", map[string]string{"discount": "lte"})
			}
			body["subtotal"] = jsonNumber(subtotal)
			body["tax_amount"] = jsonNumber(tax)
			body["discount"] = jsonNumber(discount)
			body["total"] = jsonNumber(total)
			if old == nil {
				now := s.now()
				body["invoice_number"] = documentNumber("INV", now)
				body["issued_at"] = now.UTC().Format(time.RFC3339)
				body["paid_amount"] = jsonNumber(decimal.Zero)
			}
			settleInvoice(body)
			return nil
		},
	}
}

// paid is what a payment contributes to its invoice.
func paid(body map[string]any) decimal.Decimal {
	if body["status"] != "success" {
		return decimal.Zero
	}
	return num(body, "amount")
}

func (s *RecordService) paymentHooks() hooks {
	return hooks{
		prepare: func(ctx context.Context, old *model.Document, body map[string]any) error {
			if !num(body, "amount").IsPositive() {
				return ValidationFields("Invalid payment", map[string]string{"amount": "gt"})
			}
			invoiceID := str(body, "invoice_id")
			if old != nil && invoiceID != str(old.Body, "invoice_id") {
				return ValidationFields("Invalid payment", map[string]string{"invoice_id": "immutable"})
			}
			if _, err := s.mustExist(ctx, KindInvoices, invoiceID, "invoice_id"); err != nil {
				return err
			}
			if blank(body["paid_at"]) {
				body["paid_at"] = s.now().UTC().Format(time.RFC3339)
			}
			return nil
		},
		after: func(ctx context.Context, old *model.Document, doc model.Document) error {
			delta := paid(doc.Body)
			if old != nil {
				delta = delta.Sub(paid(old.Body))
			}
			return s.applyPayment(ctx, str(doc.Body, "invoice_id"), delta)
		},
		removed: func(ctx context.Context, doc model.Document) error {
			err := s.applyPayment(ctx, str(doc.Body, "invoice_id"), paid(doc.Body).Neg())
			if errors.Is(err, repository.ErrNotFound) {
				// invoice already deleted
				return nil
			}
			return err
		},
	}
}

// applyPayment moves an invoice's paid amount by delta.
func (s *RecordService) applyPayment(ctx context.Context, invoiceID string, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	inv, err := s.docs.Get(ctx, KindInvoices, invoiceID)
	if err != nil {
		return fmt.Errorf("load invoice %s: %w", invoiceID, err)
	}
	inv.Body["paid_amount"] = jsonNumber(num(inv.Body, "paid_amount").Add(delta))
	settleInvoice(inv.Body)
	if err := s.docs.Update(ctx, &inv); err != nil {
		return fmt.Errorf("update invoice %s: %w", invoiceID, err)
	}
	return nil
}

// FinancialReport compares revenue (successful payments) with expenses.
type FinancialReport struct {
	From     *time.Time      `json:"start_date,omitempty"`
	To       *time.Time      `json:"end_date,omitempty"`
	Revenue  decimal.Decimal `json:"total_revenue"`
	Expenses decimal.Decimal `json:"total_expenses"`
	Profit   decimal.Decimal `json:"net_profit"`
}

func (s *RecordService) FinancialReport(ctx context.Context, from, to *time.Time) (FinancialReport, error) {
	if from != nil && to != nil && from.After(*to) {
		return FinancialReport{}, Validation("startDate must not be after endDate")
	}
	revenue, err := s.docs.Sum(ctx, repository.DocQuery{
		Kind: KindPayments, Equals: map[string]string{"status": "success"},
		RangeField: "paid_at", From: from, To: to,
	}, "amount")
	if err != nil {
		return FinancialReport{}, Internal("Internal server error", err)
	}
	expenses, err := s.docs.Sum(ctx, repository.DocQuery{
		Kind: KindExpenses, RangeField: "date", From: from, To: to,
	}, "amount")
	if err != nil {
		return FinancialReport{}, Internal("Internal server error", err)
	}
	return FinancialReport{From: from, To: to, Revenue: revenue, Expenses: expenses, Profit: revenue.Sub(expenses)}, nil
}

// Invoice loads an invoice in printable form.
func (s *RecordService) Invoice(ctx context.Context, id string) (report.Invoice, error) {
	d, err := s.docs.Get(ctx, KindInvoices, id)
	if err != nil {
		return report.Invoice{}, storeErr(err, "Invoice")
	}
	b := d.Body
	inv := report.Invoice{
		Number:     str(b, "invoice_number"),
		IssuedAt:   d.CreatedAt,
		GuestName:  str(b, "guest_name"),
		GuestEmail: str(b, "guest_email"),
		GuestPhone: str(b, "guest_phone"),
		BookingRef: str(b, "booking_id"),
		Status:     str(b, "status"),
		Subtotal:   num(b, "subtotal"),
		Tax:        num(b, "tax_amount"),
		Discount:   num(b, "discount"),
		Total:      num(b, "total"),
		Paid:       num(b, "paid_amount"),
		Balance:    num(b, "balance"),
		Notes:      str(b, "notes"),
	}
	if t, err := toTime(b["issued_at"]); err == nil {
		inv.IssuedAt = t
	}
	if t, err := toTime(b["due_date"]); err == nil {
		inv.DueDate = t.Format("02-Jan-2006")
	}
	items, _ := b["items"].([]any)
	for _, v := range items {
		item, ok := v.(map[string]any)
		if !ok {
			continue
		}
		inv.Lines = append(inv.Lines, report.InvoiceLine{
			Description: str(item, "description"),
			Quantity:    num(item, "quantity"),
			UnitPrice:   num(item, "unit_price"),
			Total:       num(item, "total"),
		})
	}
	return inv, nil
}
