package allocator

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/patungan-id/patungan/internal/models"
)

func sumTotals(results []models.PersonResult) int64 {
	var sum int64
	for _, r := range results {
		sum += r.Total
	}
	return sum
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name         string
		bill         models.Bill
		wantErr      bool
		validateFunc func(t *testing.T, results []models.PersonResult)
	}{
		{
			name: "single claimant takes the whole bill",
			bill: models.Bill{
				Items: []models.Item{{Name: "Nasi Goreng", Quantity: 2, UnitPrice: 10000}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 2}}},
				},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				if results[0].Total != 20000 {
					t.Errorf("Andi total = %d, want 20000", results[0].Total)
				}
			},
		},
		{
			name: "handling fee splits proportionally",
			bill: models.Bill{
				Items: []models.Item{
					{Name: "Es Teh", Quantity: 1, UnitPrice: 10000},
					{Name: "Ayam Bakar", Quantity: 1, UnitPrice: 30000},
				},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
					{Name: "Budi", Claims: []models.ItemClaim{{ItemIndex: 1, Quantity: 1}}},
				},
				Charges: models.AncillaryCharges{HandlingFee: 4000},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				// Andi: 10000 + 4000×(10000/40000) = 11000
				// Budi: 30000 + 4000×(30000/40000) = 33000
				if results[0].Total != 11000 {
					t.Errorf("Andi total = %d, want 11000", results[0].Total)
				}
				if results[1].Total != 33000 {
					t.Errorf("Budi total = %d, want 33000", results[1].Total)
				}
				if got := sumTotals(results); got != 44000 {
					t.Errorf("sum = %d, want 44000", got)
				}
			},
		},
		{
			name: "indivisible discount reconciles to the cent",
			bill: models.Bill{
				Items: []models.Item{{Name: "Paket Hemat", Quantity: 3, UnitPrice: 10000}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
					{Name: "Budi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
					{Name: "Citra", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
				},
				Charges: models.AncillaryCharges{Discount: 1},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				// Exact shares are 9999.666… each. Largest remainder (ties to
				// earlier index) leaves the short unit with the last person.
				want := []int64{10000, 10000, 9999}
				for i, w := range want {
					if results[i].Total != w {
						t.Errorf("%s total = %d, want %d", results[i].Name, results[i].Total, w)
					}
				}
				if got := sumTotals(results); got != 29999 {
					t.Errorf("sum = %d, want 29999", got)
				}
			},
		},
		{
			name: "explicit total payment override wins",
			bill: models.Bill{
				Items: []models.Item{{Name: "Bakso", Quantity: 2, UnitPrice: 15000}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
					{Name: "Budi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
				},
				Charges: models.AncillaryCharges{HandlingFee: 2000, TotalPayment: 32500},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				if got := sumTotals(results); got != 32500 {
					t.Errorf("sum = %d, want override 32500", got)
				}
			},
		},
		{
			name: "person with no claims owes nothing",
			bill: models.Bill{
				Items: []models.Item{{Name: "Sate", Quantity: 1, UnitPrice: 25000}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
					{Name: "Budi"},
				},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				if results[1].Total != 0 {
					t.Errorf("Budi total = %d, want 0", results[1].Total)
				}
			},
		},
		{
			name: "unclaimed remainder is not distributed",
			bill: models.Bill{
				Items: []models.Item{{Name: "Kopi", Quantity: 3, UnitPrice: 12000}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
				},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				if results[0].Total != 12000 {
					t.Errorf("Andi total = %d, want 12000 (one claimed unit only)", results[0].Total)
				}
			},
		},
		{
			name: "zero subtotal splits adjustment evenly across claim holders",
			bill: models.Bill{
				Items: []models.Item{{Name: "Promo Gratis", Quantity: 1, UnitPrice: 0}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
					{Name: "Budi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
					{Name: "Citra", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
				},
				Charges: models.AncillaryCharges{HandlingFee: 10001},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				want := []int64{3334, 3334, 3333}
				for i, w := range want {
					if results[i].Total != w {
						t.Errorf("%s total = %d, want %d", results[i].Name, results[i].Total, w)
					}
				}
				if got := sumTotals(results); got != 10001 {
					t.Errorf("sum = %d, want 10001", got)
				}
			},
		},
		{
			name: "no people yields empty result",
			bill: models.Bill{
				Items:   []models.Item{{Name: "Mie Ayam", Quantity: 1, UnitPrice: 15000}},
				Charges: models.AncillaryCharges{HandlingFee: 3000},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				if len(results) != 0 {
					t.Errorf("got %d results, want 0", len(results))
				}
			},
		},
		{
			name: "over-claiming is allowed leniently",
			bill: models.Bill{
				Items: []models.Item{{Name: "Teh Botol", Quantity: 1, UnitPrice: 5000}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 3}}},
				},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				if results[0].Total != 15000 {
					t.Errorf("Andi total = %d, want raw claimed 15000", results[0].Total)
				}
			},
		},
		{
			name: "over-claimed bill keeps raw shares despite an override",
			bill: models.Bill{
				Items: []models.Item{{Name: "Teh Botol", Quantity: 1, UnitPrice: 5000}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 3}}},
				},
				Charges: models.AncillaryCharges{TotalPayment: 5100},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				// Claims exceed the purchased quantity, so the receipt's
				// total payment no longer describes the claimed amounts
				// and must not be reconciled against.
				if results[0].Total != 15000 {
					t.Errorf("Andi total = %d, want raw claimed 15000", results[0].Total)
				}
			},
		},
		{
			name: "zero subtotal override splits across claimants",
			bill: models.Bill{
				Items: []models.Item{{Name: "Promo Gratis", Quantity: 1, UnitPrice: 0}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
					{Name: "Budi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
				},
				Charges: models.AncillaryCharges{TotalPayment: 500},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				want := []int64{250, 250}
				for i, w := range want {
					if results[i].Total != w {
						t.Errorf("%s total = %d, want %d", results[i].Name, results[i].Total, w)
					}
				}
				if got := sumTotals(results); got != 500 {
					t.Errorf("sum = %d, want override 500", got)
				}
			},
		},
		{
			name: "discounts exceeding fees still conserve",
			bill: models.Bill{
				Items: []models.Item{{Name: "Paket Promo", Quantity: 3, UnitPrice: 10000}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 2}}},
					{Name: "Budi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
				},
				Charges: models.AncillaryCharges{Discount: 29999},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				// Derived total is 1; exact shares are 0.666… and 0.333…,
				// so the single unit lands on the larger remainder.
				want := []int64{1, 0}
				for i, w := range want {
					if results[i].Total != w {
						t.Errorf("%s total = %d, want %d", results[i].Name, results[i].Total, w)
					}
				}
				if got := sumTotals(results); got != 1 {
					t.Errorf("sum = %d, want 1", got)
				}
			},
		},
		{
			name: "override below derived total deducts from smallest remainder",
			bill: models.Bill{
				Items: []models.Item{
					{Name: "Nasi Padang", Quantity: 1, UnitPrice: 10000},
					{Name: "Es Jeruk", Quantity: 1, UnitPrice: 5000},
				},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
					{Name: "Budi", Claims: []models.ItemClaim{{ItemIndex: 1, Quantity: 1}}},
				},
				Charges: models.AncillaryCharges{HandlingFee: 100, TotalPayment: 15098},
			},
			validateFunc: func(t *testing.T, results []models.PersonResult) {
				// Floored shares are 10066 and 5033 (remainders 10000 and
				// 5000 over 15000); the missing unit comes off Budi, the
				// smaller remainder.
				want := []int64{10066, 5032}
				for i, w := range want {
					if results[i].Total != w {
						t.Errorf("%s total = %d, want %d", results[i].Name, results[i].Total, w)
					}
				}
				if got := sumTotals(results); got != 15098 {
					t.Errorf("sum = %d, want override 15098", got)
				}
			},
		},
		{
			name: "item index out of range",
			bill: models.Bill{
				Items: []models.Item{{Name: "Sate", Quantity: 1, UnitPrice: 25000}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 1, Quantity: 1}}},
				},
			},
			wantErr: true,
		},
		{
			name: "claim quantity below one",
			bill: models.Bill{
				Items: []models.Item{{Name: "Sate", Quantity: 1, UnitPrice: 25000}},
				People: []models.PersonClaim{
					{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 0}}},
				},
			},
			wantErr: true,
		},
		{
			name: "item quantity below one",
			bill: models.Bill{
				Items: []models.Item{{Name: "Sate", Quantity: 0, UnitPrice: 25000}},
			},
			wantErr: true,
		},
		{
			name: "negative unit price",
			bill: models.Bill{
				Items: []models.Item{{Name: "Sate", Quantity: 1, UnitPrice: -1}},
			},
			wantErr: true,
		},
		{
			name: "empty item name",
			bill: models.Bill{
				Items: []models.Item{{Name: "", Quantity: 1, UnitPrice: 1000}},
			},
			wantErr: true,
		},
		{
			name: "negative fee",
			bill: models.Bill{
				Items:   []models.Item{{Name: "Sate", Quantity: 1, UnitPrice: 25000}},
				Charges: models.AncillaryCharges{HandlingFee: -100},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := Allocate(tt.bill)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("error kind = %T, want *ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validateFunc(t, results)
		})
	}
}

func TestAllocateEchoesClaims(t *testing.T) {
	bill := models.Bill{
		Items: []models.Item{
			{Name: "Nasi Goreng", Quantity: 2, UnitPrice: 18000},
			{Name: "Es Jeruk", Quantity: 2, UnitPrice: 7000},
		},
		People: []models.PersonClaim{
			{Name: "Andi", Claims: []models.ItemClaim{
				{ItemIndex: 0, Quantity: 1},
				{ItemIndex: 1, Quantity: 2},
			}},
			{Name: "Budi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}}},
		},
	}

	results, err := Allocate(bill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, person := range bill.People {
		if results[i].Name != person.Name {
			t.Errorf("result %d name = %q, want %q (input order preserved)", i, results[i].Name, person.Name)
		}
		if !reflect.DeepEqual(results[i].Claims, person.Claims) {
			t.Errorf("result %d claims = %+v, want echo of %+v", i, results[i].Claims, person.Claims)
		}
	}
}

func TestAllocateDeterminism(t *testing.T) {
	bill := models.Bill{
		Items: []models.Item{
			{Name: "Ayam Geprek", Quantity: 3, UnitPrice: 17000},
			{Name: "Es Teh", Quantity: 3, UnitPrice: 5000},
		},
		People: []models.PersonClaim{
			{Name: "Andi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}, {ItemIndex: 1, Quantity: 1}}},
			{Name: "Budi", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}, {ItemIndex: 1, Quantity: 1}}},
			{Name: "Citra", Claims: []models.ItemClaim{{ItemIndex: 0, Quantity: 1}, {ItemIndex: 1, Quantity: 1}}},
		},
		Charges: models.AncillaryCharges{HandlingFee: 9500, Discount: 2000},
	}

	first, err := Allocate(bill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Allocate(bill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated allocation differs:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

// TestAllocateConservation checks the central invariant on generated bills:
// whenever every purchased unit is claimed, the totals sum exactly to
// subtotal + fees - discounts.
func TestAllocateConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 500; trial++ {
		nItems := 1 + rng.Intn(8)
		items := make([]models.Item, nItems)
		for i := range items {
			items[i] = models.Item{
				Name:      "Item",
				Quantity:  1 + int64(rng.Intn(5)),
				UnitPrice: int64(rng.Intn(50)) * 500,
			}
		}

		nPeople := 1 + rng.Intn(6)
		people := make([]models.PersonClaim, nPeople)
		for i := range people {
			people[i] = models.PersonClaim{Name: string(rune('A' + i))}
		}
		// Hand every unit of every item to a random person.
		for idx, item := range items {
			remaining := item.Quantity
			for remaining > 0 {
				take := 1 + rng.Int63n(remaining)
				p := rng.Intn(nPeople)
				people[p].Claims = append(people[p].Claims, models.ItemClaim{ItemIndex: idx, Quantity: take})
				remaining -= take
			}
		}

		subtotal := int64(0)
		for _, it := range items {
			subtotal += it.Quantity * it.UnitPrice
		}
		charges := models.AncillaryCharges{
			HandlingFee:  int64(rng.Intn(20)) * 500,
			OtherFee:     int64(rng.Intn(10)) * 500,
			Discount:     int64(rng.Intn(5)) * 500,
			DiscountPlus: int64(rng.Intn(5)) * 100,
		}
		want := subtotal + charges.Adjustment()
		if want < 0 {
			continue
		}

		results, err := Allocate(models.Bill{Items: items, People: people, Charges: charges})
		if err != nil {
			t.Fatalf("trial %d: unexpected error: %v", trial, err)
		}
		if got := sumTotals(results); got != want {
			t.Fatalf("trial %d: sum = %d, want %d (subtotal=%d adjustment=%d)",
				trial, got, want, subtotal, charges.Adjustment())
		}
		for _, r := range results {
			if r.Total < 0 && charges.Adjustment() >= 0 {
				t.Fatalf("trial %d: %s total = %d, negative with non-negative adjustment", trial, r.Name, r.Total)
			}
		}
	}
}
