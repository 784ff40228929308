package service

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/patungan-id/patungan/internal/allocator"
	"github.com/patungan-id/patungan/internal/extractor"
	"github.com/patungan-id/patungan/internal/models"
	"github.com/patungan-id/patungan/internal/renderer"
)

// SplitRequest is the wire shape shared by the compute-only and
// compute-and-render endpoints.
type SplitRequest struct {
	SessionID   string               `json:"session_id"`
	Items       []models.Item        `json:"items" binding:"required"`
	Assignments []models.PersonClaim `json:"assignments"`

	// Ancillary charges may arrive as explicit fields, as sentinel
	// pseudo-items inside Items, or both; the boundary merges them.
	TotalPayment int64 `json:"total_payment"`
	HandlingFee  int64 `json:"handling_fee"`
	OtherFee     int64 `json:"other_fee"`
	Discount     int64 `json:"discount"`
	DiscountPlus int64 `json:"discount_plus"`
}

// SplitService orchestrates the boundary work around the allocator:
// sentinel extraction, bill assembly, rendering, and receipt parsing.
type SplitService struct {
	renderer *renderer.Renderer
}

// NewSplitService creates a SplitService using the given renderer for
// settlement documents.
func NewSplitService(r *renderer.Renderer) *SplitService {
	return &SplitService{renderer: r}
}

// Split assembles a Bill from the request and allocates it.
func (s *SplitService) Split(req SplitRequest) ([]models.PersonResult, error) {
	bill, err := buildBill(req)
	if err != nil {
		slog.Error("Bill assembly failed", "session_id", req.SessionID, "error", err)
		return nil, err
	}

	results, err := allocator.Allocate(bill)
	if err != nil {
		slog.Error("Allocation failed", "session_id", req.SessionID, "error", err)
		return nil, err
	}
	return results, nil
}

// SplitPDF allocates the bill and renders the settlement document,
// returning the path of the written file.
func (s *SplitService) SplitPDF(req SplitRequest) (string, error) {
	bill, err := buildBill(req)
	if err != nil {
		slog.Error("Bill assembly failed", "session_id", req.SessionID, "error", err)
		return "", err
	}

	results, err := allocator.Allocate(bill)
	if err != nil {
		slog.Error("Allocation failed", "session_id", req.SessionID, "error", err)
		return "", err
	}

	path, err := s.renderer.RenderSettlement(bill, results)
	if err != nil {
		slog.Error("Settlement render failed", "session_id", req.SessionID, "error", err)
		return "", err
	}
	slog.Info("Settlement rendered", "session_id", req.SessionID, "path", path, "people", len(results))
	return path, nil
}

// Parse scrapes an uploaded receipt document into structured bill data for
// a subsequent compute request.
func (s *SplitService) Parse(data []byte) (extractor.Receipt, error) {
	receipt, err := extractor.Extract(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		slog.Error("Receipt extraction failed", "error", err)
		return extractor.Receipt{}, err
	}
	slog.Info("Receipt extracted",
		"items", len(receipt.Items),
		"total_price", receipt.TotalPrice,
		"total_payment", receipt.TotalPayment,
	)
	return receipt, nil
}

// buildBill turns a request into a Bill the allocator accepts: sentinel
// pseudo-items are folded into the ancillary charges, removed from the item
// list, and every claim index is remapped onto the cleaned list. The
// allocator itself never sees a sentinel name.
func buildBill(req SplitRequest) (models.Bill, error) {
	charges := models.AncillaryCharges{
		TotalPayment: req.TotalPayment,
		HandlingFee:  req.HandlingFee,
		OtherFee:     req.OtherFee,
		Discount:     req.Discount,
		DiscountPlus: req.DiscountPlus,
	}

	items := make([]models.Item, 0, len(req.Items))
	remap := make([]int, len(req.Items))
	for i, item := range req.Items {
		field := sentinelField(&charges, item.Name)
		if field == nil {
			remap[i] = len(items)
			items = append(items, item)
			continue
		}
		amount := item.UnitPrice
		if item.Quantity > 1 {
			amount = item.Quantity * item.UnitPrice
		}
		if field == &charges.TotalPayment {
			if *field == 0 {
				*field = amount
			}
		} else {
			*field += amount
		}
		remap[i] = -1
	}

	people := make([]models.PersonClaim, len(req.Assignments))
	for i, person := range req.Assignments {
		claims := make([]models.ItemClaim, len(person.Claims))
		for j, claim := range person.Claims {
			mapped := claim
			// Out-of-range indices pass through for the allocator to
			// reject with its own message.
			if claim.ItemIndex >= 0 && claim.ItemIndex < len(remap) {
				idx := remap[claim.ItemIndex]
				if idx < 0 {
					return models.Bill{}, &allocator.ValidationError{
						Reason: "claim by " + person.Name + " references a charge line, not an item",
					}
				}
				mapped.ItemIndex = idx
			}
			claims[j] = mapped
		}
		people[i] = models.PersonClaim{Name: person.Name, Claims: claims}
	}

	return models.Bill{
		SessionID: req.SessionID,
		Items:     items,
		People:    people,
		Charges:   charges,
	}, nil
}

// sentinelField maps a pseudo-item name to the charge field it carries.
// Matching is case-insensitive and whitespace-insensitive; both the
// Indonesian receipt labels and their English equivalents are recognized.
func sentinelField(charges *models.AncillaryCharges, name string) *int64 {
	switch strings.Join(strings.Fields(strings.ToLower(name)), " ") {
	case "total pembayaran", "total payment":
		return &charges.TotalPayment
	case "diskon", "discount":
		return &charges.Discount
	case "diskon plus", "discount plus":
		return &charges.DiscountPlus
	case "biaya penanganan dan pengiriman", "biaya penanganan", "handling fee":
		return &charges.HandlingFee
	case "biaya lainnya", "other fee":
		return &charges.OtherFee
	}
	return nil
}
