package notify

import "context"

// Package notify holds the outbound message delivery capability used to hand
// upload links to clients. Delivery is best effort end to end: callers log
// failures and move on, a request mutation never rolls back because a
// message could not be sent.

// GatewayStatus is the process-wide state of the messaging gateway. It is an
// explicit value with defined transitions (disconnected -> pairing -> ready)
// rather than ambient booleans, and is queryable at any time.
type GatewayStatus string

const (
	StatusDisconnected GatewayStatus = "disconnected"
	StatusPairing      GatewayStatus = "pairing"
	StatusReady        GatewayStatus = "ready"
)

// Sender delivers a text message to a contact handle.
type Sender interface {
	Send(ctx context.Context, contactHandle, text string) error
}

// StatusEvents receives gateway status changes for observer fan-out. The QR
// data URL is non-empty only while pairing.
type StatusEvents interface {
	GatewayStatusChanged(status GatewayStatus, qrDataURL string)
}
