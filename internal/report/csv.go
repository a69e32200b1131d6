package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"mediastock/internal/model"
)

// csvHeader is the fixed column set of the CSV export.
var csvHeader = []string{"Name", "Serial", "Category", "Quantity", "Value", "TotalValue", "Status", "AssignedEvent"}

// WriteCSV writes the items to w in the report CSV format, one row per item.
func WriteCSV(w io.Writer, items []model.Item) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, item := range items {
		row := []string{
			displayName(item),
			item.SerialNumber,
			displayCategory(item),
			strconv.Itoa(item.Quantity),
			item.Value.String(),
			item.TotalValue().StringFixed(2),
			item.Status,
			item.AssignedEvent,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
