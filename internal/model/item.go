package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Item represents a piece of media equipment tracked by quantity.
// JSON field names match the document shape stored in the inventory
// collection, so documents round-trip unchanged.
type Item struct {
	ID               string          `json:"id"`
	Name             string          `json:"instrumentName"`
	SerialNumber     string          `json:"serialNumber"`
	Description      string          `json:"description,omitempty"`
	Category         string          `json:"category,omitempty"`
	Supplier         string          `json:"supplier,omitempty"`
	CostPrice        decimal.Decimal `json:"costPrice"`
	Value            decimal.Decimal `json:"value"`
	Quantity         int             `json:"quantity"`
	MinThreshold     int             `json:"minThreshold"`
	AssignedEvent    string          `json:"assignedEvent,omitempty"`
	MaintenanceNotes string          `json:"maintenanceNotes,omitempty"`
	Status           string          `json:"status"`
	AddedDate        time.Time       `json:"addedDate"`
	UpdatedDate      *time.Time      `json:"updatedDate,omitempty"`
}

// LowStock reports whether the item is at or below its reorder threshold.
// It is always derived, never stored.
func (i Item) LowStock() bool {
	return i.Quantity <= i.MinThreshold
}

// TotalValue returns quantity times unit value.
func (i Item) TotalValue() decimal.Decimal {
	return i.Value.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
