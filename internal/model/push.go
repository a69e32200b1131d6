package model

import "time"

// PushSubscription holds a browser push endpoint for low-stock alerts.
type PushSubscription struct {
	ID         string    `json:"id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dhKey"`
	AuthKey    string    `json:"authKey"`
	DeviceName string    `json:"deviceName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
