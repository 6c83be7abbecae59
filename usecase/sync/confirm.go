package sync

import (
	"context"

	"github.com/brainbow/syncd/domain"
)

type confirmKey struct{}

// WithConfirmation marks the context as carrying an explicit user
// confirmation for a destructive operation.
func WithConfirmation(ctx context.Context) context.Context {
	return context.WithValue(ctx, confirmKey{}, true)
}

// ConfirmFromContext is a ConfirmFunc that approves deletion only when the
// request context carries an explicit confirmation.
func ConfirmFromContext(ctx context.Context, _ domain.Task) bool {
	confirmed, _ := ctx.Value(confirmKey{}).(bool)
	return confirmed
}
