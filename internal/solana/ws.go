package solana

import "context"

// WSClient defines the WebSocket subscription interface used by pool
// discovery.
type WSClient interface {
	// SubscribeLogs subscribes to transaction logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter defines a logs subscription filter.
type LogsFilter struct {
	// Mentions filters logs mentioning any of these addresses. Empty
	// subscribes to all logs.
	Mentions []string
	// Commitment the node should apply before notifying. Defaults to
	// finalized: the sniper must not chase pools that can be rolled back.
	Commitment Commitment
}

// LogNotification is one logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}
