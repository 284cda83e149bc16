package ledger

import "context"

// Ledger grants experience to viewers.
type Ledger interface {
	Grant(ctx context.Context, actorID string, amount int, reason string, metadata map[string]string) error
}
