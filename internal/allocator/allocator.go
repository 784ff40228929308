// Package allocator implements the bill-splitting allocation algorithm.
//
// Each person's share is their raw claimed item cost plus a slice of the
// bill-wide fees and discounts, proportional to how much of the total item
// cost their claims represent:
//
//	share = raw_subtotal + adjustment × (raw_subtotal / bill_subtotal)
//
// All arithmetic stays in int64 minor currency units. Exact shares are kept
// as rationals over the bill subtotal; totals are floored and the leftover
// whole units are handed out by largest fractional remainder (earlier input
// index wins ties), so the results always sum to the target payment when the
// claims cover the whole bill.
package allocator

import (
	"fmt"
	"sort"

	"github.com/patungan-id/patungan/internal/models"
)

// ValidationError reports a malformed bill. It is returned for the first
// invariant violation found; no partial allocation is attempted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid bill: " + e.Reason
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Allocate computes each person's owed share of the bill.
//
// It is pure and deterministic: the same bill always yields the same result
// slice, one entry per person in input order, each echoing its input claims.
//
// Claimed quantities are allowed to exceed an item's purchased quantity
// (lenient policy, matching the reference behavior): shares are computed from
// the raw claimed amounts either way. Unclaimed units are equally fine; their
// cost is simply not distributed to anyone.
func Allocate(bill models.Bill) ([]models.PersonResult, error) {
	if err := validate(bill); err != nil {
		return nil, err
	}

	n := len(bill.People)
	if n == 0 {
		return []models.PersonResult{}, nil
	}

	billSubtotal := bill.ItemSubtotal()
	adjustment := bill.Charges.Adjustment()

	// Raw item subtotal per person, from claimed quantities.
	rawSubtotals := make([]int64, n)
	var claimedSubtotal int64
	for i, person := range bill.People {
		for _, claim := range person.Claims {
			rawSubtotals[i] += claim.Quantity * bill.Items[claim.ItemIndex].UnitPrice
		}
		claimedSubtotal += rawSubtotals[i]
	}

	// Exact share per person as numerator/denominator. With a nonzero item
	// subtotal the denominator is the subtotal itself:
	//
	//	share_i = raw_i × (subtotal + adjustment) / subtotal
	//
	// With a zero subtotal there is nothing to be proportional to, so the
	// adjustment splits evenly across the people who claimed anything
	// (or all people, when nobody claimed).
	numerators := make([]int64, n)
	var denominator int64
	var eligible []int
	if billSubtotal > 0 {
		denominator = billSubtotal
		for i := range numerators {
			numerators[i] = rawSubtotals[i] * (billSubtotal + adjustment)
			if rawSubtotals[i] > 0 {
				eligible = append(eligible, i)
			}
		}
	} else {
		participants := claimHolders(bill.People)
		denominator = int64(len(participants))
		for _, i := range participants {
			numerators[i] = adjustment
		}
		eligible = participants
	}

	totals := make([]int64, n)
	remainders := make([]int64, n)
	var flooredSum, exactSum int64
	for i := range numerators {
		q, r := floorDiv(numerators[i], denominator)
		totals[i], remainders[i] = q, r
		flooredSum += q
		exactSum += numerators[i]
	}

	target := reconciliationTarget(bill, billSubtotal, claimedSubtotal, adjustment, exactSum, denominator)
	distributeResidual(totals, remainders, eligible, target-flooredSum)

	results := make([]models.PersonResult, n)
	for i, person := range bill.People {
		results[i] = models.PersonResult{
			Name:   person.Name,
			Total:  totals[i],
			Claims: append([]models.ItemClaim(nil), person.Claims...),
		}
	}
	return results, nil
}

func validate(bill models.Bill) error {
	for i, item := range bill.Items {
		if item.Name == "" {
			return invalidf("item %d: name is empty", i)
		}
		if item.Quantity < 1 {
			return invalidf("item %d (%s): quantity must be at least 1", i, item.Name)
		}
		if item.UnitPrice < 0 {
			return invalidf("item %d (%s): unit price must not be negative", i, item.Name)
		}
	}
	for _, field := range []struct {
		name  string
		value int64
	}{
		{"handling_fee", bill.Charges.HandlingFee},
		{"other_fee", bill.Charges.OtherFee},
		{"discount", bill.Charges.Discount},
		{"discount_plus", bill.Charges.DiscountPlus},
		{"total_payment", bill.Charges.TotalPayment},
	} {
		if field.value < 0 {
			return invalidf("%s must not be negative", field.name)
		}
	}
	for _, person := range bill.People {
		for _, claim := range person.Claims {
			if claim.ItemIndex < 0 || claim.ItemIndex >= len(bill.Items) {
				return invalidf("unknown item reference %d for %q", claim.ItemIndex, person.Name)
			}
			if claim.Quantity < 1 {
				return invalidf("%q claims item %d with quantity below 1", person.Name, claim.ItemIndex)
			}
		}
	}
	return nil
}

// claimHolders returns the indices of people holding at least one claim,
// falling back to everyone when nobody claimed anything.
func claimHolders(people []models.PersonClaim) []int {
	var holders []int
	for i, p := range people {
		if len(p.Claims) > 0 {
			holders = append(holders, i)
		}
	}
	if len(holders) == 0 {
		holders = make([]int, len(people))
		for i := range people {
			holders[i] = i
		}
	}
	return holders
}

// reconciliationTarget picks the amount the rounded totals must sum to.
//
// When the claims match the item subtotal exactly, the exact shares already
// sum to subtotal + adjustment, and an explicit nonzero total payment
// override is honored as authoritative. Partially and over-claimed bills
// reconcile to the exact claimed sum rounded half-up instead: unclaimed cost
// stays unassigned, over-claimed cost stays with the raw claimed amounts,
// and an override cannot apply to either without shifting that difference
// onto someone. Zero-subtotal bills have no item cost to compare claims
// against, so the override is honored there.
func reconciliationTarget(bill models.Bill, billSubtotal, claimedSubtotal, adjustment, exactSum, denominator int64) int64 {
	exactlyClaimed := billSubtotal > 0 && claimedSubtotal == billSubtotal
	if override := bill.Charges.TotalPayment; override > 0 && (exactlyClaimed || billSubtotal == 0) {
		return override
	}
	if exactlyClaimed {
		return billSubtotal + adjustment
	}
	q, _ := floorDiv(2*exactSum+denominator, 2*denominator)
	return q
}

// distributeResidual hands out the residual whole units, one per eligible
// person, by descending fractional remainder with earlier input index
// breaking ties; deductions start from the smallest remainder instead.
// A residual larger than one unit per eligible person cycles, so even an
// off-receipt override stays spread evenly.
func distributeResidual(totals, remainders []int64, eligible []int, residual int64) {
	if residual == 0 || len(eligible) == 0 {
		return
	}

	order := append([]int(nil), eligible...)
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})

	step := int64(1)
	if residual < 0 {
		step = -1
		residual = -residual
		for l, r := 0, len(order)-1; l < r; l, r = l+1, r-1 {
			order[l], order[r] = order[r], order[l]
		}
	}
	for k := int64(0); k < residual; k++ {
		totals[order[int(k)%len(order)]] += step
	}
}

// floorDiv divides rounding toward negative infinity and returns the
// non-negative remainder. The divisor is always positive here.
func floorDiv(a, b int64) (int64, int64) {
	q := a / b
	r := a % b
	if r < 0 {
		q--
		r += b
	}
	return q, r
}
