package fulfillment

import (
	"strconv"

	"github.com/plateful/plateful/app/models"
	"github.com/plateful/plateful/internal/pkg/pos"
)

// BuildPOSOrder translates a stored order into the provider-neutral
// shape. Everything is read from the order's own snapshot columns; the
// live catalog is never consulted, so menu edits between checkout and
// submission cannot change what the kitchen receives.
func BuildPOSOrder(order *models.Order) pos.Order {
	out := pos.Order{
		Reference:           strconv.FormatUint(uint64(order.ID), 10),
		CustomerName:        order.CustomerName,
		CustomerEmail:       order.CustomerEmail,
		CustomerPhone:       order.CustomerPhone,
		OrderType:           pos.OrderType(order.OrderType),
		ScheduledTime:       order.ScheduledTime,
		SpecialInstructions: order.SpecialInstructions,
		Subtotal:            order.Subtotal,
		Tax:                 order.Tax,
		Tip:                 order.Tip,
		Total:               order.Total,
	}
	for i := range order.Items {
		item := &order.Items[i]
		line := pos.OrderItem{
			MenuItemExternalID:  item.ItemExternalID,
			Name:                item.ItemName,
			Quantity:            item.Quantity,
			UnitPrice:           item.UnitPrice,
			SpecialInstructions: item.SpecialInstructions,
		}
		for _, mod := range item.Modifiers() {
			line.Modifiers = append(line.Modifiers, pos.OrderItemModifier{
				ExternalID:      mod.ExternalID,
				Name:            mod.Name,
				PriceAdjustment: mod.PriceAdjustment,
			})
		}
		out.Items = append(out.Items, line)
	}
	return out
}
