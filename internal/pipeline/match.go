package pipeline

// MatchOrders links transport orders to credit-note line items by order
// number and returns how many orders found a counterpart.
//
// Line items are indexed across all notes before matching; when the same
// order number appears in several notes the later note wins, mirroring
// how the carrier issues corrected Gutschriften. The credited total is
// scaled by the order's agreed payment percentage, so a 50% order books
// half of the settled total; the item's freight and toll carry over
// unscaled.
func MatchOrders(orders []*TransportOrder, notes []*CreditNote) int {
	type indexed struct {
		note *CreditNote
		item LineItem
	}
	byOrder := make(map[string]indexed)
	for _, n := range notes {
		for _, it := range n.Items {
			byOrder[it.OrderNumber] = indexed{note: n, item: it}
		}
	}

	matched := 0
	for _, o := range orders {
		hit, ok := byOrder[o.OrderNumber]
		if !ok {
			continue
		}
		o.GutschriftNumber = hit.note.Number
		o.GutschriftDate = hit.note.Date
		o.GutschriftFreight = hit.item.Freight
		o.GutschriftMaut = hit.item.Maut
		o.GutschriftAmount = hit.item.Total * float64(o.PaymentPercent) / 100
		matched++
	}
	return matched
}
