package market

// The resolver derives two prices per bid. Pickup is the FCA price: what the
// goods cost at the bid's own station, loading included. Delivered is the CPT
// price: pickup plus rail transport to the destination. Either can be
// undefined for a given direction and context, so every function returns an
// explicit ok flag instead of a zero sentinel.
//
// Direction-specific math lives in the pricing table below; callers index it
// by Direction instead of branching on the bid type themselves.

type pricing struct {
	pickup    func(b *Bid, hasDest bool) (int64, bool)
	delivered func(b *Bid, hasDest bool) (int64, bool)
	compare   func(b *Bid, hasDest bool, baseToCode string) int64
	less      func(a, b int64) bool
}

var pricingFor = map[Direction]pricing{
	// Sellers quote at the elevator gate: cheapest delivered offer wins.
	Sell: {
		pickup:    sellPickup,
		delivered: sellDelivered,
		compare:   sellCompare,
		less:      func(a, b int64) bool { return a < b },
	},
	// Buyers quote delivered-to-them: highest offer wins.
	Buy: {
		pickup:    buyPickup,
		delivered: buyDelivered,
		compare:   buyCompare,
		less:      func(a, b int64) bool { return a > b },
	},
}

// PickupPrice returns the FCA price of b. destCode is the destination station
// code, empty when the view has no destination; only its presence matters,
// transport figures come from the bid itself.
func PickupPrice(b *Bid, destCode string) (int64, bool) {
	r, ok := pricingFor[b.Direction]
	if !ok {
		return 0, false
	}
	return r.pickup(b, destCode != "")
}

// DeliveredPrice returns the CPT price of b for the same context as
// PickupPrice.
func DeliveredPrice(b *Bid, destCode string) (int64, bool) {
	r, ok := pricingFor[b.Direction]
	if !ok {
		return 0, false
	}
	return r.delivered(b, destCode != "")
}

// ComparePrice returns the ranking key for b: the price an operator would
// actually compare offers by. It is defined in every context the engine
// reaches (undefined combinations cannot occur after cross-checking).
func ComparePrice(b *Bid, destCode, baseToCode string) int64 {
	r, ok := pricingFor[b.Direction]
	if !ok {
		return 0
	}
	return r.compare(b, destCode != "", baseToCode)
}

// transportPrice picks the transport figure matching the bid's own tax mode.
// A bid with no matching figure ships for zero, which is exactly the
// self-to-self case the cross-check salvages.
func transportPrice(b *Bid) int64 {
	switch {
	case b.TaxMode == TaxExcluded && b.TransportPrice != nil:
		return *b.TransportPrice
	case b.TaxMode == TaxIncluded && b.TransportPriceNds != nil:
		return *b.TransportPriceNds
	}
	return 0
}

// loadingFee is the first service price of the origin elevator, zero when
// the elevator lists none.
func loadingFee(b *Bid) int64 {
	if len(b.Elevator.ServicePrices) > 0 {
		return b.Elevator.ServicePrices[0]
	}
	return 0
}

func sellPickup(b *Bid, _ bool) (int64, bool) {
	return b.Price + loadingFee(b), true
}

func sellDelivered(b *Bid, hasDest bool) (int64, bool) {
	if !hasDest {
		return 0, false
	}
	p, _ := sellPickup(b, hasDest)
	return p + transportPrice(b), true
}

func buyDelivered(b *Bid, _ bool) (int64, bool) {
	// A buy offer is already expressed as a delivered price.
	return b.Price, true
}

func buyPickup(b *Bid, hasDest bool) (int64, bool) {
	if !hasDest {
		return 0, false
	}
	p, _ := buyDelivered(b, hasDest)
	return p - transportPrice(b), true
}

func sellCompare(b *Bid, hasDest bool, baseToCode string) int64 {
	if !hasDest {
		p, _ := sellPickup(b, false)
		return p
	}
	if b.Elevator.BaseStationCode == baseToCode {
		// Origin hub is the destination hub: the stated price needs no markup.
		return b.Price
	}
	p, _ := sellDelivered(b, true)
	return p
}

func buyCompare(b *Bid, hasDest bool, _ string) int64 {
	if !hasDest {
		p, _ := buyDelivered(b, false)
		return p
	}
	p, _ := buyPickup(b, true)
	return p
}
