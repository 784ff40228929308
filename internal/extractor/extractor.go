// Package extractor scrapes GoFood-style delivery receipts into structured
// bill data. It is a format-specific collaborator of the allocator: the
// layout it understands is exactly the one the vendor exports, and anything
// else yields zero totals rather than an error (a known limitation carried
// over from the reference scraper).
package extractor

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/patungan-id/patungan/internal/models"
)

// Receipt is the structured output of a scraped receipt, shaped for a
// subsequent compute request.
type Receipt struct {
	Items        []models.Item `json:"items"`
	TotalPrice   int64         `json:"total_price"`
	HandlingFee  int64         `json:"handling_fee"`
	OtherFee     int64         `json:"other_fee"`
	Discount     int64         `json:"discount"`
	DiscountPlus int64         `json:"discount_plus"`
	TotalPayment int64         `json:"total_payment"`
}

// ExtractionError reports a document that could not be read at all.
// A readable document that merely fails to match the layout is not an error.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract receipt: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

var (
	// An item block starts with "<qty> <name>", the name may continue over
	// following lines, then "@Rp<unit price>" and "Rp<line total>" close it.
	itemStartRe = regexp.MustCompile(`^(\d+)\s+(.+)$`)
	unitPriceRe = regexp.MustCompile(`^@Rp([\d.]+)$`)
	lineTotalRe = regexp.MustCompile(`^Rp([\d.]+)$`)

	totalPriceRe   = regexp.MustCompile(`(?i)Total harga\s*-?Rp([\d.]+)`)
	handlingFeeRe  = regexp.MustCompile(`(?i)Biaya penanganan dan pengiriman\s*-?Rp([\d.]+)`)
	otherFeeRe     = regexp.MustCompile(`(?i)Biaya lainnya\s*-?Rp([\d.]+)`)
	totalPaymentRe = regexp.MustCompile(`(?i)Total pembayaran\s*-?Rp([\d.]+)`)

	// RE2 has no lookahead, so plain "Diskon" and "Diskon PLUS" are told
	// apart by capturing the optional PLUS suffix.
	discountRe = regexp.MustCompile(`(?i)Diskon( PLUS)?\s*-?Rp([\d.]+)`)
)

// Extract reads a receipt PDF and scrapes items and charge totals from it.
func Extract(r io.ReaderAt, size int64) (receipt Receipt, err error) {
	// The pdf library panics on some malformed documents; surface those
	// as extraction errors like any other unreadable input.
	defer func() {
		if rec := recover(); rec != nil {
			receipt = Receipt{}
			err = &ExtractionError{Err: fmt.Errorf("malformed document: %v", rec)}
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return Receipt{}, &ExtractionError{Err: err}
	}

	var lines []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		lines = append(lines, rowsToLines(page.Content().Text)...)
	}

	return ParseLines(lines), nil
}

// rowsToLines groups positioned text runs into visual rows by Y coordinate
// and joins each row left to right.
func rowsToLines(texts []pdf.Text) []string {
	type row struct {
		y        float64
		contents []string
		xCoords  []float64
	}

	const tolerance = 2.0
	var rows []row

	for _, t := range texts {
		content := strings.TrimSpace(t.S)
		if content == "" {
			continue
		}
		placed := false
		for i := range rows {
			if abs(rows[i].y-t.Y) < tolerance {
				rows[i].contents = append(rows[i].contents, content)
				rows[i].xCoords = append(rows[i].xCoords, t.X)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, row{y: t.Y, contents: []string{content}, xCoords: []float64{t.X}})
		}
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		order := make([]int, len(r.contents))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return r.xCoords[order[a]] < r.xCoords[order[b]] })
		parts := make([]string, len(order))
		for i, idx := range order {
			parts[i] = r.contents[idx]
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return lines
}

// ParseLines scrapes items and labeled amounts from the receipt's text lines.
// Exported so the line-level format can be tested without PDF fixtures.
func ParseLines(lines []string) Receipt {
	receipt := Receipt{Items: parseItems(lines)}

	text := strings.Join(lines, "\n")
	receipt.TotalPrice = extractAmount(totalPriceRe, text)
	receipt.HandlingFee = extractAmount(handlingFeeRe, text)
	receipt.OtherFee = extractAmount(otherFeeRe, text)
	receipt.TotalPayment = extractAmount(totalPaymentRe, text)

	for _, m := range discountRe.FindAllStringSubmatch(text, -1) {
		amount := parseAmount(m[2])
		if m[1] != "" {
			if receipt.DiscountPlus == 0 {
				receipt.DiscountPlus = amount
			}
		} else if receipt.Discount == 0 {
			receipt.Discount = amount
		}
	}
	return receipt
}

func parseItems(lines []string) []models.Item {
	var items []models.Item
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		m := itemStartRe.FindStringSubmatch(line)
		if m == nil {
			i++
			continue
		}
		qty, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || qty < 1 {
			i++
			continue
		}
		name := strings.TrimSpace(m[2])

		// Names wrap: keep absorbing lines until the unit price row.
		j := i + 1
		for j < len(lines) && !unitPriceRe.MatchString(strings.TrimSpace(lines[j])) {
			name += " " + strings.TrimSpace(lines[j])
			j++
		}

		if j+1 < len(lines) {
			unitMatch := unitPriceRe.FindStringSubmatch(strings.TrimSpace(lines[j]))
			totalMatch := lineTotalRe.FindStringSubmatch(strings.TrimSpace(lines[j+1]))
			if unitMatch != nil && totalMatch != nil {
				items = append(items, models.Item{
					Name:      name,
					Quantity:  qty,
					UnitPrice: parseAmount(unitMatch[1]),
				})
				i = j + 2
				continue
			}
		}
		i++
	}
	return items
}

func extractAmount(re *regexp.Regexp, text string) int64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	return parseAmount(m[1])
}

// parseAmount converts a dotted rupiah figure like "12.500" to 12500.
func parseAmount(s string) int64 {
	v, err := strconv.ParseInt(strings.ReplaceAll(s, ".", ""), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
