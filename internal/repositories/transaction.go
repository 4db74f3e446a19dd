package repositories

import (
	"context"
)

// TransactionManager manages database transactions.
// Repositories called with the context handed to fn run inside the transaction.
type TransactionManager interface {
	// WithTransaction executes fn within a transaction, committing on success and rolling back
	// on error or panic
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
