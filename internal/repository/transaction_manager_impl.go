package repository

import (
	"context"
	"fmt"
	"time"

	domainRepo "clinic-appointment-service/internal/domain/repository"

	"gorm.io/gorm"
)

type transactionManager struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewTransactionManager(db *gorm.DB, lockTimeout time.Duration) domainRepo.TransactionManager {
	return &transactionManager{
		db:          db,
		lockTimeout: lockTimeout,
	}
}

func (m *transactionManager) DB(ctx context.Context) *gorm.DB {
	return m.db.WithContext(ctx)
}

func (m *transactionManager) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.lockTimeout > 0 {
			// SET does not take bind parameters.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", m.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
}
