package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrScopeCommitted reports a second Commit on the same scope.
var ErrScopeCommitted = errors.New("unit of work: scope already committed")

// UnitOfWork hands out transaction scopes. Each logical operation acquires
// exactly one scope; nested scopes are not supported.
type UnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork builds a UnitOfWork over the shared persistence handle.
func NewUnitOfWork(db *gorm.DB) (*UnitOfWork, error) {
	if db == nil {
		return nil, errors.New("unit of work: db is required")
	}
	return &UnitOfWork{db: db}, nil
}

// Scope is a live transaction with a repository bound to it. Mutations made
// through the repository become visible only after Commit; leaving the scope
// without committing discards them.
type Scope struct {
	tx        *gorm.DB
	accounts  *AccountRepository
	committed bool
}

// Accounts returns the account repository bound to this scope's transaction.
func (s *Scope) Accounts() *AccountRepository {
	return s.accounts
}

// Commit persists every mutation made through the scope since entry.
func (s *Scope) Commit() error {
	if s.committed {
		return ErrScopeCommitted
	}
	if err := s.tx.Commit().Error; err != nil {
		return fmt.Errorf("unit of work: commit: %w", err)
	}
	s.committed = true
	return nil
}

// WithinScope begins a transaction, binds a repository to it and invokes fn.
// The transaction is rolled back unless fn called Commit, including on error
// and on panic, so no partial mutation ever escapes an aborted scope.
func (u *UnitOfWork) WithinScope(ctx context.Context, fn func(scope *Scope) error) error {
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("unit of work: begin: %w", tx.Error)
	}

	scope := &Scope{
		tx:       tx,
		accounts: &AccountRepository{tx: tx},
	}

	defer func() {
		if !scope.committed {
			tx.Rollback()
		}
	}()

	return fn(scope)
}
