package model

import "time"

// Movement directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Movement records a single stock receipt or issue against an item.
type Movement struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	Direction string    `json:"direction"`
	Quantity  int       `json:"quantity"`
	Note      string    `json:"note,omitempty"`
	LoggedAt  time.Time `json:"loggedAt"`
}
