package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hotel-admin/internal/model"
)

// AdjustStock moves an item's quantity by delta. Stock cannot go negative.
func (s *RecordService) AdjustStock(ctx context.Context, id string, delta decimal.Decimal) (model.Document, error) {
	r := s.resources[KindInventoryItems]
	old, err := s.docs.Get(ctx, KindInventoryItems, id)
	if err != nil {
		return model.Document{}, storeErr(err, r.Label)
	}
	qty := num(old.Body, "quantity").Add(delta)
	if qty.IsNegative() {
		return model.Document{}, Validation("Insufficient stock")
	}
	changes := map[string]any{"quantity": jsonNumber(qty)}
	if delta.IsPositive() {
		changes["last_restocked_at"] = s.now().UTC().Format(time.RFC3339)
	}
	return s.save(ctx, r, old, changes)
}

func (s *RecordService) purchaseOrderHooks() hooks {
	return hooks{
		prepare: func(ctx context.Context, old *model.Document, body map[string]any) error {
			if old != nil {
				was := str(old.Body, "status")
				if was == "received" {
					return InvalidTransition("Received purchase orders cannot be changed")
				}
				if body["status"] == "received" {
					return InvalidTransition("Use the receive operation to receive a purchase order")
				}
			} else {
				now := s.now()
				body["status"] = "ordered"
				body["po_number"] = documentNumber("PO", now)
				body["ordered_at"] = now.UTC().Format(time.RFC3339)
			}
			if _, err := s.mustExist(ctx, KindSuppliers, str(body, "supplier_id"), "supplier_id"); err != nil {
				return err
			}
			total, err := lineItems(body, func(i int, item map[string]any) error {
				id := str(item, "item_id")
				if id == "" {
					return ValidationFields("Invalid items", map[string]string{fmt.Sprintf("items[%d].item_id", i): "required"})
				}
				stock, err := s.mustExist(ctx, KindInventoryItems, id, "item_id")
				if err != nil {
					return err
				}
				item["name"] = str(stock.Body, "name")
				return nil
			})
			if err != nil {
				return err
			}
			body["total_amount"] = jsonNumber(total)
			return nil
		},
	}
}

// ReceivePurchaseOrder books an order's quantities into stock and marks it
// received. Receiving twice is refused.
func (s *RecordService) ReceivePurchaseOrder(ctx context.Context, actor uint64, id string) (model.Document, error) {
	r := s.resources[KindPurchaseOrders]
	po, err := s.docs.Get(ctx, KindPurchaseOrders, id)
	if err != nil {
		return model.Document{}, storeErr(err, r.Label)
	}
	switch str(po.Body, "status") {
	case "received":
		return model.Document{}, InvalidTransition("Purchase order already received")
	case "cancelled":
		return model.Document{}, InvalidTransition("Cancelled purchase orders cannot be received")
	}
	items, _ := po.Body["items"].([]any)
	// check every line before touching any stock
	for _, v := range items {
		item, _ := v.(map[string]any)
		if _, err := s.mustExist(ctx, KindInventoryItems, str(item, "item_id"), "item_id"); err != nil {
			return model.Document{}, err
		}
	}
	for _, v := range items {
		item, _ := v.(map[string]any)
		if _, err := s.AdjustStock(ctx, str(item, "item_id"), num(item, "quantity")); err != nil {
			return model.Document{}, err
		}
	}
	po.Body["status"] = "received"
	po.Body["received_at"] = s.now().UTC().Format(time.RFC3339)
	po.Body["received_by"] = actor
	if err := s.docs.Update(ctx, &po); err != nil {
		return model.Document{}, storeErr(err, r.Label)
	}
	return po, nil
}
