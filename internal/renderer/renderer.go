// Package renderer produces the printable settlement document from an
// allocated bill. It consumes the allocator's result as-is and never
// recomputes any amount.
package renderer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/patungan-id/patungan/internal/models"
)

// RenderError reports a failure to generate or write the settlement
// document. It is an internal failure, distinct from bill validation.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render settlement: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer writes settlement PDFs into a fixed output directory.
type Renderer struct {
	outputDir string
}

func New(outputDir string) *Renderer {
	return &Renderer{outputDir: outputDir}
}

// RenderSettlement lays out the bill summary and each person's share and
// writes the document to disk, returning its path. The on-disk name carries
// a random suffix so concurrent requests for the same session never collide.
func (r *Renderer) RenderSettlement(bill models.Bill, results []models.PersonResult) (string, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Split Summary "+bill.SessionID, false)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.Cell(0, 10, "Split Summary")
	doc.Ln(8)
	doc.SetFont("Helvetica", "", 10)
	doc.Cell(0, 8, "Session: "+bill.SessionID)
	doc.Ln(12)

	r.writeItemTable(doc, bill)
	r.writeChargeSummary(doc, bill)

	for _, result := range results {
		r.writePersonSection(doc, bill, result)
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", &RenderError{Err: err}
	}
	name := fmt.Sprintf("split_summary_%s_%s.pdf", bill.SessionID, uuid.NewString()[:8])
	path := filepath.Join(r.outputDir, name)
	if err := doc.OutputFileAndClose(path); err != nil {
		return "", &RenderError{Err: err}
	}
	return path, nil
}

func (r *Renderer) writeItemTable(doc *fpdf.Fpdf, bill models.Bill) {
	doc.SetFont("Helvetica", "B", 11)
	doc.Cell(0, 8, "Items")
	doc.Ln(8)

	doc.SetFont("Helvetica", "B", 9)
	doc.CellFormat(90, 7, "Item", "1", 0, "L", false, 0, "")
	doc.CellFormat(20, 7, "Qty", "1", 0, "C", false, 0, "")
	doc.CellFormat(40, 7, "Unit Price", "1", 0, "R", false, 0, "")
	doc.CellFormat(40, 7, "Total", "1", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "", 9)
	for _, item := range bill.Items {
		doc.CellFormat(90, 7, item.Name, "1", 0, "L", false, 0, "")
		doc.CellFormat(20, 7, strconv.FormatInt(item.Quantity, 10), "1", 0, "C", false, 0, "")
		doc.CellFormat(40, 7, formatRupiah(item.UnitPrice), "1", 0, "R", false, 0, "")
		doc.CellFormat(40, 7, formatRupiah(item.Quantity*item.UnitPrice), "1", 1, "R", false, 0, "")
	}
	doc.Ln(4)
}

func (r *Renderer) writeChargeSummary(doc *fpdf.Fpdf, bill models.Bill) {
	rows := []struct {
		label  string
		amount int64
	}{
		{"Item subtotal", bill.ItemSubtotal()},
		{"Handling & delivery fee", bill.Charges.HandlingFee},
		{"Other fees", bill.Charges.OtherFee},
		{"Discount", -bill.Charges.Discount},
		{"Discount PLUS", -bill.Charges.DiscountPlus},
	}

	doc.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		if row.amount == 0 && row.label != "Item subtotal" {
			continue
		}
		doc.CellFormat(150, 6, row.label, "", 0, "L", false, 0, "")
		doc.CellFormat(40, 6, formatRupiah(row.amount), "", 1, "R", false, 0, "")
	}

	total := bill.Charges.TotalPayment
	if total == 0 {
		total = bill.ItemSubtotal() + bill.Charges.Adjustment()
	}
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(150, 7, "Total payment", "T", 0, "L", false, 0, "")
	doc.CellFormat(40, 7, formatRupiah(total), "T", 1, "R", false, 0, "")
	doc.Ln(6)
}

func (r *Renderer) writePersonSection(doc *fpdf.Fpdf, bill models.Bill, result models.PersonResult) {
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(150, 8, result.Name, "", 0, "L", false, 0, "")
	doc.CellFormat(40, 8, formatRupiah(result.Total), "", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "", 9)
	for _, claim := range result.Claims {
		item := bill.Items[claim.ItemIndex]
		line := fmt.Sprintf("%dx %s", claim.Quantity, item.Name)
		doc.CellFormat(150, 6, "    "+line, "", 0, "L", false, 0, "")
		doc.CellFormat(40, 6, formatRupiah(claim.Quantity*item.UnitPrice), "", 1, "R", false, 0, "")
	}
	doc.Ln(2)
}

// formatRupiah renders an amount with dotted thousands separators, e.g.
// -12500 becomes "-Rp12.500".
func formatRupiah(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}
	return sign + "Rp" + string(out)
}
