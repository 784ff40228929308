// Package models defines the core domain models for Patungan.
//
// # Models
//
//   - Bill: a receipt plus the people splitting it, fully assembled before allocation
//   - Item: a purchasable line with quantity and unit price
//   - ItemClaim / PersonClaim: who consumed how many units of which item
//   - AncillaryCharges: fees and discounts applied across the whole bill
//   - PersonResult: one person's settled total with an echo of their claims
//
// # Design Principles
//
//  1. **Integer money only**: every amount is an int64 in minor currency units
//     (rupiah). Floats would break the exact-sum guarantee the allocator gives.
//  2. **Positional item identity**: claims reference items by index in the
//     bill's item list, never by name — receipt names repeat.
//  3. **Immutable during allocation**: a Bill is fully populated by the
//     boundary layer, never mutated afterwards, and discarded after the
//     result is produced. Nothing here is persisted.
package models
