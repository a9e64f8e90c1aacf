// Package report renders printable documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
)

type InvoiceLine struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

// Invoice is everything printed on an invoice.
type Invoice struct {
	Number     string
	IssuedAt   time.Time
	DueDate    string
	GuestName  string
	GuestEmail string
	GuestPhone string
	BookingRef string
	Status     string
	Lines      []InvoiceLine
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	Paid       decimal.Decimal
	Balance    decimal.Decimal
	Notes      string
}

// InvoicePDF renders inv as a one-or-more page A4 PDF.
func InvoicePDF(hotel string, inv Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, hotel, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(190, 8, "INVOICE", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, "Invoice No: "+inv.Number, "LT", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Date: "+inv.IssuedAt.Format("02-Jan-2006"), "RT", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Guest: "+inv.GuestName, "L", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Status: "+inv.Status, "R", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Phone: "+inv.GuestPhone, "LB", 0, "L", false, 0, "")
	due := inv.DueDate
	if due == "" {
		due = "-"
	}
	pdf.CellFormat(95, 7, "Due: "+due, "RB", 1, "L", false, 0, "")
	if inv.BookingRef != "" {
		pdf.CellFormat(190, 7, "Booking: "+inv.BookingRef, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(90, 7, "Description", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Unit Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, l := range inv.Lines {
		pdf.CellFormat(90, 6, l.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, l.Quantity.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, money(l.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(l.Total), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	totals := []struct {
		label string
		value decimal.Decimal
	}{
		{"Subtotal", inv.Subtotal},
		{"Tax", inv.Tax},
		{"Discount", inv.Discount},
		{"Total", inv.Total},
		{"Paid", inv.Paid},
	}
	for _, t := range totals {
		pdf.CellFormat(150, 6, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(t.value), "1", 1, "R", false, 0, "")
	}
	if inv.Balance.IsPositive() {
		pdf.SetFillColor(255, 200, 200) // outstanding
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(150, 8, "Balance Due", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, money(inv.Balance), "1", 1, "R", true, 0, "")

	if inv.Notes != "" {
		pdf.Ln(5)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(190, 5, inv.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string { return fmt.Sprintf("Rs. %s", d.StringFixed(2)) }
