package service

// Document kinds of the ancillary modules.
const (
	KindGuests          = "guests"
	KindHousekeeping    = "housekeeping"
	KindStaffAttendance = "staff_attendance"
	KindInvoices        = "invoices"
	KindPayments        = "payments"
	KindExpenses        = "expenses"
	KindInventoryItems  = "inventory_items"
	KindSuppliers       = "suppliers"
	KindPurchaseOrders  = "purchase_orders"
	KindValet           = "valet_parking"
	KindLeads           = "leads"
	KindCategories      = "categories"
	KindStatuses        = "statuses"
	KindInquiries       = "inquiries"
	KindCatering        = "catering"
	KindEventPackages   = "event_packages"
)

// Valet statuses.
const (
	ValetParked    = "Parked"
	ValetRequested = "Requested"
	ValetDelivered = "Delivered"
)

func catalog() []*Resource {
	return []*Resource{
		{
			Kind: KindGuests, Path: "guests", Module: "guests", Label: "Guest",
			Required: []string{"name", "phone"},
			Enums:    map[string][]string{"id_type": {"passport", "aadhaar", "driving_license", "voter_id", "pan", "other"}},
			Dates:    []string{"date_of_birth"},
			Filters:  []string{"id_type", "nationality", "phone"},
			Search:   []string{"name", "email", "phone"},
			ReadOnly: []string{"id_document"},
		},
		{
			Kind: KindHousekeeping, Path: "housekeeping", Module: "housekeeping", Label: "Housekeeping task",
			Required: []string{"room_id", "task_type"},
			Enums: map[string][]string{
				"status":         {"pending", "in_progress", "completed"},
				"priority":       {"low", "medium", "high"},
				"room_condition": {"clean", "dirty", "needs_maintenance"},
			},
			Defaults: map[string]any{"status": "pending", "priority": "medium"},
			Dates:    []string{"scheduled_for", "completed_at"},
			Filters:  []string{"status", "priority", "room_id", "assigned_to", "task_type"},
			Search:   []string{"room_number", "assigned_to", "notes"},
			ReadOnly: []string{"room_number", "verified_by", "verified_at"},
		},
		{
			Kind: KindStaffAttendance, Path: "staff-attendance", Module: "staff_attendance", Label: "Attendance",
			Required:   []string{"staff_id", "date", "status"},
			Enums:      map[string][]string{"status": {"present", "absent", "late", "half_day", "on_leave"}},
			Dates:      []string{"date", "check_in_time", "check_out_time"},
			Filters:    []string{"staff_id", "status", "date", "department"},
			Search:     []string{"staff_name"},
			RangeField: "date",
			Unique:     []string{"staff_id", "date"},
		},
		{
			Kind: KindInvoices, Path: "invoices", Module: "finance", Label: "Invoice",
			Required: []string{"guest_name", "items"},
			Enums:    map[string][]string{"status": {"unpaid", "partial", "paid", "cancelled"}},
			Numbers:  []string{"tax_rate", "discount"},
			Dates:    []string{"due_date"},
			Filters:  []string{"status", "booking_id"},
			Search:   []string{"guest_name", "invoice_number"},
			Unique:   []string{"invoice_number"},
			ReadOnly: []string{"invoice_number", "issued_at", "subtotal", "tax_amount", "total", "paid_amount", "balance"},
		},
		{
			Kind: KindPayments, Path: "payments", Module: "finance", Label: "Payment",
			Required:   []string{"invoice_id", "amount", "method"},
			Enums:      map[string][]string{"method": {"cash", "card", "upi", "bank_transfer", "online"}, "status": {"pending", "success", "failed", "refunded"}},
			Defaults:   map[string]any{"status": "success"},
			Numbers:    []string{"amount"},
			Dates:      []string{"paid_at"},
			Filters:    []string{"invoice_id", "status", "method"},
			Search:     []string{"reference"},
			RangeField: "paid_at",
		},
		{
			Kind: KindExpenses, Path: "expenses", Module: "finance", Label: "Expense",
			Required:   []string{"category", "amount", "date"},
			Enums:      map[string][]string{"payment_method": {"cash", "card", "upi", "bank_transfer", "cheque"}},
			Numbers:    []string{"amount"},
			Dates:      []string{"date"},
			Filters:    []string{"category", "payment_method"},
			Search:     []string{"description", "vendor"},
			RangeField: "date",
		},
		{
			Kind: KindInventoryItems, Path: "inventory-items", Module: "inventory", Label: "Inventory item",
			Required: []string{"name", "quantity", "unit"},
			Numbers:  []string{"quantity", "unit_price", "reorder_level"},
			Filters:  []string{"category", "unit"},
			Search:   []string{"name", "sku"},
			Unique:   []string{"sku"},
			ReadOnly: []string{"last_restocked_at"},
		},
		{
			Kind: KindSuppliers, Path: "suppliers", Module: "inventory", Label: "Supplier",
			Required: []string{"name"},
			Search:   []string{"name", "contact_person", "phone", "email"},
		},
		{
			Kind: KindPurchaseOrders, Path: "purchase-orders", Module: "inventory", Label: "Purchase order",
			Required: []string{"supplier_id", "items"},
			Enums:    map[string][]string{"status": {"ordered", "received", "cancelled"}},
			Dates:    []string{"expected_date"},
			Filters:  []string{"supplier_id", "status"},
			Search:   []string{"po_number"},
			Unique:   []string{"po_number"},
			ReadOnly: []string{"po_number", "total_amount", "ordered_at", "received_at", "received_by"},
		},
		{
			Kind: KindValet, Path: "valet", Module: "valet_parking", Label: "Valet slip",
			Required: []string{"slip_number", "vehicle_number", "guest_name"},
			Enums:    map[string][]string{"status": {ValetParked, ValetRequested, ValetDelivered}},
			Defaults: map[string]any{"status": ValetParked},
			Dates:    []string{"in_time", "out_time"},
			Filters:  []string{"status", "slip_number", "vehicle_number"},
			Search:   []string{"guest_name", "vehicle_number", "slip_number"},
			Unique:   []string{"slip_number"},
			ReadOnly: []string{"requested_at", "delivered_at"},
		},
		{
			Kind: KindLeads, Path: "leads", Module: "leads", Label: "Lead",
			Required: []string{"name"},
			Enums:    map[string][]string{"status": {"new", "contacted", "qualified", "converted", "lost"}},
			Defaults: map[string]any{"status": "new"},
			Dates:    []string{"follow_up_date"},
			Filters:  []string{"status", "category_id", "source"},
			Search:   []string{"name", "email", "phone"},
		},
		{
			Kind: KindCategories, Path: "categories", Module: "categories", Label: "Category",
			Required: []string{"name"},
			Search:   []string{"name"},
			Unique:   []string{"name"},
		},
		{
			Kind: KindStatuses, Path: "statuses", Module: "statuses", Label: "Status",
			Required: []string{"name"},
			Search:   []string{"name"},
			Unique:   []string{"name"},
		},
		{
			Kind: KindInquiries, Path: "inquiries", Module: "inquiries", Label: "Inquiry",
			Required: []string{"name", "phone"},
			Dates:    []string{"reminder_at", "event_date"},
			Filters:  []string{"status", "source"},
			Search:   []string{"name", "phone", "email"},
			ReadOnly: []string{"reminder_sent_at"},
		},
		{
			Kind: KindCatering, Path: "catering", Module: "catering", Label: "Catering item",
			Required: []string{"name", "price"},
			Enums:    map[string][]string{"food_type": {"veg", "non_veg", "vegan"}},
			Numbers:  []string{"price"},
			Filters:  []string{"category", "food_type"},
			Search:   []string{"name"},
		},
		{
			Kind: KindEventPackages, Path: "event-packages", Module: "event_packages", Label: "Event package",
			Required: []string{"name", "price"},
			Numbers:  []string{"price", "capacity"},
			Filters:  []string{"event_type"},
			Search:   []string{"name"},
		},
	}
}
