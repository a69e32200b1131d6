package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"mediastock/internal/model"
)

// WritePDF renders the inventory report to w: header, summary totals, top
// items by quantity, and low-stock alerts.
func WritePDF(w io.Writer, items []model.Item, generatedAt time.Time) error {
	s := Summarize(items)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Church Media Inventory Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Generated on: %s", generatedAt.Format("2006-01-02")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Filtered Results: %d items", s.ItemCount))
	pdf.Ln(10)

	pdf.Cell(0, 8, fmt.Sprintf("Total Stock Value: R %s", s.TotalStockValue.StringFixed(2)))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Average Quantity per Item: %s", s.AverageQuantity.StringFixed(2)))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Top 5 Items by Quantity:")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	for i, item := range s.TopByQuantity {
		pdf.Cell(0, 7, fmt.Sprintf("%d. %s (%s): %d units - Value: R %s",
			i+1, displayName(item), displayCategory(item), item.Quantity, item.TotalValue().StringFixed(2)))
		pdf.Ln(7)
	}

	if len(s.LowStock) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Low Stock Alerts:")
		pdf.Ln(9)
		pdf.SetFont("Helvetica", "", 11)
		for _, item := range s.LowStock {
			if pdf.GetY() > 270 {
				pdf.AddPage()
			}
			pdf.Cell(0, 7, fmt.Sprintf("%s: %d/%d (Reorder needed)",
				displayName(item), item.Quantity, item.MinThreshold))
			pdf.Ln(7)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
