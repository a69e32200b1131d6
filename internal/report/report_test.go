package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mediastock/internal/model"
)

func testItems() []model.Item {
	day := func(d int) time.Time {
		return time.Date(2026, time.March, d, 10, 0, 0, 0, time.UTC)
	}
	return []model.Item{
		{
			ID: "1", Name: "Wireless Mic", SerialNumber: "SN-100", Category: "Audio",
			Quantity: 2, MinThreshold: 3, Value: decimal.NewFromInt(1500),
			Status: model.StatusPending, AddedDate: day(1),
		},
		{
			ID: "2", Name: "PTZ Camera", SerialNumber: "SN-200", Category: "Video",
			Quantity: 4, MinThreshold: 1, Value: decimal.NewFromInt(8000),
			Status: model.StatusCompleted, AddedDate: day(2), AssignedEvent: "Easter Service",
		},
		{
			ID: "3", Name: "XLR Cable", SerialNumber: "SN-300", Category: "Accessories",
			Quantity: 20, MinThreshold: 5, Value: decimal.NewFromFloat(89.50),
			Status: model.StatusPending, AddedDate: day(2),
		},
	}
}

func TestFilterSearchMatchesNameAndSerial(t *testing.T) {
	items := testItems()

	got := Filter{Search: "mic"}.Apply(items)
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("search by name: got %+v", got)
	}

	got = Filter{Search: "sn-200"}.Apply(items)
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("search by serial: got %+v", got)
	}
}

func TestFilterByCategoryAndStatus(t *testing.T) {
	items := testItems()

	got := Filter{Category: "Audio"}.Apply(items)
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("category filter: got %+v", got)
	}

	got = Filter{Status: model.StatusPending}.Apply(items)
	if len(got) != 2 {
		t.Errorf("status filter: expected 2 items, got %+v", got)
	}
}

func TestFilterByAddedDay(t *testing.T) {
	items := testItems()

	// Any time on the same UTC day matches.
	on := time.Date(2026, time.March, 2, 23, 59, 0, 0, time.UTC)
	got := Filter{AddedOn: &on}.Apply(items)
	if len(got) != 2 {
		t.Errorf("expected 2 items added on March 2, got %+v", got)
	}
}

func TestFilterCombinesFields(t *testing.T) {
	items := testItems()

	got := Filter{Search: "sn-", Status: model.StatusPending, Category: "Accessories"}.Apply(items)
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("combined filter: got %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(testItems())

	if s.ItemCount != 3 {
		t.Errorf("item count: got %d", s.ItemCount)
	}

	// 2*1500 + 4*8000 + 20*89.50 = 3000 + 32000 + 1790 = 36790
	if want := decimal.NewFromInt(36790); !s.TotalStockValue.Equal(want) {
		t.Errorf("total stock value: got %s, want %s", s.TotalStockValue, want)
	}

	// (2+4+20)/3 = 8.67 rounded to 2 places
	if want := decimal.NewFromFloat(8.67); !s.AverageQuantity.Equal(want) {
		t.Errorf("average quantity: got %s, want %s", s.AverageQuantity, want)
	}

	if len(s.TopByQuantity) != 3 {
		t.Fatalf("top by quantity: got %d items", len(s.TopByQuantity))
	}
	if s.TopByQuantity[0].ID != "3" || s.TopByQuantity[1].ID != "2" {
		t.Errorf("top by quantity out of order: %+v", s.TopByQuantity)
	}

	if len(s.LowStock) != 1 || s.LowStock[0].ID != "1" {
		t.Errorf("low stock: got %+v", s.LowStock)
	}
}

func TestSummarizeCapsTopItems(t *testing.T) {
	var items []model.Item
	for i := 0; i < 8; i++ {
		items = append(items, model.Item{Name: "Item", Quantity: i})
	}

	s := Summarize(items)
	if len(s.TopByQuantity) != 5 {
		t.Errorf("expected top list capped at 5, got %d", len(s.TopByQuantity))
	}
	if s.TopByQuantity[0].Quantity != 7 {
		t.Errorf("expected highest quantity first, got %d", s.TopByQuantity[0].Quantity)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)

	if s.ItemCount != 0 {
		t.Errorf("item count: got %d", s.ItemCount)
	}
	if !s.TotalStockValue.Equal(decimal.Zero) {
		t.Errorf("total stock value: got %s", s.TotalStockValue)
	}
	if !s.AverageQuantity.Equal(decimal.Zero) {
		t.Errorf("average quantity: got %s", s.AverageQuantity)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testItems()); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv back: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}

	wantHeader := []string{"Name", "Serial", "Category", "Quantity", "Value", "TotalValue", "Status", "AssignedEvent"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header column %d: got %q, want %q", i, rows[0][i], col)
		}
	}

	// XLR Cable: 20 * 89.50 = 1790.00
	cable := rows[3]
	if cable[0] != "XLR Cable" || cable[3] != "20" || cable[5] != "1790.00" {
		t.Errorf("unexpected cable row: %v", cable)
	}
	if rows[2][7] != "Easter Service" {
		t.Errorf("expected assigned event in camera row, got %v", rows[2])
	}
}

func TestWriteCSVFallbacks(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []model.Item{{SerialNumber: "SN-1", Quantity: 1}})
	if err != nil {
		t.Fatalf("write csv: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv back: %v", err)
	}
	if rows[1][0] != "Unnamed Item" {
		t.Errorf("expected name fallback, got %q", rows[1][0])
	}
	if rows[1][2] != "Uncategorized" {
		t.Errorf("expected category fallback, got %q", rows[1][2])
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	generatedAt := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)
	if err := WritePDF(&buf, testItems(), generatedAt); err != nil {
		t.Fatalf("write pdf: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "%PDF") {
		t.Errorf("expected PDF output, got prefix %q", buf.String()[:8])
	}
	if buf.Len() < 500 {
		t.Errorf("suspiciously small PDF: %d bytes", buf.Len())
	}
}

func TestWritePDFManyLowStockItems(t *testing.T) {
	// Enough low-stock rows to force a page break.
	var items []model.Item
	for i := 0; i < 80; i++ {
		items = append(items, model.Item{Name: "Par Can", Quantity: 0, MinThreshold: 2})
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, items, time.Now()); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF") {
		t.Error("expected PDF output")
	}
}
