package repository

import (
	"context"

	"gorm.io/gorm"
)

// TransactionManager hands out request-scoped handles to the store.
type TransactionManager interface {
	// DB returns a non-transactional handle bound to ctx.
	DB(ctx context.Context) *gorm.DB
	// WithinTransaction runs fn in a single transaction; fn's error rolls it back.
	// Lock waits inside the transaction are bounded by the configured lock timeout.
	WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
