package models

// Item represents a single purchasable line on a receipt.
type Item struct {
	// Name is the receipt text for the line. Names may repeat; items are
	// identified by their position in the bill's item list.
	Name string `json:"name"`

	// Quantity is the total number of units purchased. Always >= 1.
	Quantity int64 `json:"quantity"`

	// UnitPrice is the price per unit in minor currency units. Always >= 0.
	UnitPrice int64 `json:"unit_price"`
}

// ItemClaim is one person's claim on some quantity of one item.
type ItemClaim struct {
	// ItemIndex references an item by position in Bill.Items.
	ItemIndex int `json:"item_index"`

	// Quantity is the number of units claimed. Always >= 1.
	Quantity int64 `json:"quantity"`
}

// PersonClaim is one participant and everything they claimed.
type PersonClaim struct {
	// Name identifies the person in the result. It need not be unique,
	// but results are keyed by it, so duplicates will look alike.
	Name string `json:"name"`

	// Claims may be empty: a person who claimed nothing still appears in
	// the result with whatever even-split share applies.
	Claims []ItemClaim `json:"items"`
}

// AncillaryCharges are the whole-bill fees and discounts, extracted by the
// boundary layer before allocation. Fees add to the bill, discounts subtract.
// All fields are non-negative.
type AncillaryCharges struct {
	HandlingFee  int64 `json:"handling_fee"`
	OtherFee     int64 `json:"other_fee"`
	Discount     int64 `json:"discount"`
	DiscountPlus int64 `json:"discount_plus"`

	// TotalPayment, when nonzero, is the authoritative amount the receipt
	// says was paid. When zero, the total is derived from the items and
	// the other charge fields.
	TotalPayment int64 `json:"total_payment"`
}

// Adjustment is the net effect of fees and discounts on the bill total.
// It may be negative when discounts exceed fees.
func (c AncillaryCharges) Adjustment() int64 {
	return c.HandlingFee + c.OtherFee - c.Discount - c.DiscountPlus
}

// Bill is the full description of a purchase and its participants.
type Bill struct {
	// SessionID is an opaque identifier used only to name rendered output.
	SessionID string `json:"session_id"`

	Items   []Item           `json:"items"`
	People  []PersonClaim    `json:"assignments"`
	Charges AncillaryCharges `json:"charges"`
}

// ItemSubtotal is the full purchase total of all items, regardless of what
// was claimed.
func (b Bill) ItemSubtotal() int64 {
	var sum int64
	for _, it := range b.Items {
		sum += it.Quantity * it.UnitPrice
	}
	return sum
}

// PersonResult is one person's settled share of the bill.
type PersonResult struct {
	Name string `json:"name"`

	// Total is the amount owed in minor currency units.
	Total int64 `json:"total"`

	// Claims echoes the person's input claims unchanged so renderers can
	// itemize without re-deriving anything.
	Claims []ItemClaim `json:"items"`
}
