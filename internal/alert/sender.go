package alert

import "context"

// Sender delivers operator alerts, primarily chain integrity degradation
// notices raised by the monitor.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}
