// Package notification delivers overdue-loan notices to loan customers.
package notification

import "context"

// Sender delivers one message to a batch of recipients in a single call.
type Sender interface {
	SendBatch(ctx context.Context, message string, recipients []string) error
}
