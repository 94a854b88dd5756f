// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationEvent is published for every booking lifecycle change a
// passenger should hear about: confirmation, cancellation, hold expiry
// and ticket validation.  It carries enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type NotificationEvent struct {
	Kind       string         `json:"kind"`    // e.g. "booking.confirmed"
	UserID     uint64         `json:"user_id"` // recipient
	Payload    map[string]any `json:"payload"` // event-specific detail
	OccurredAt string         `json:"occurred_at"`
}
