package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/akovalyov/currex/internal/models"
)

// AccountRepository provides row-level access to accounts. Every operation
// runs against the transaction of the scope that produced the repository;
// nothing here commits on its own.
type AccountRepository struct {
	tx *gorm.DB
}

// FindByEmail loads the account with the given email, or nil when absent.
func (r *AccountRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.tx.First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: find by email: %w", err)
	}
	return &user, nil
}

// FindByID loads the account with the given id, or nil when absent.
func (r *AccountRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	err := r.tx.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: find by id: %w", err)
	}
	return &user, nil
}

// Insert persists a new account row. The store assigns id and registered_at;
// both are populated on the passed struct when Insert returns.
func (r *AccountRepository) Insert(user *models.User) error {
	if err := r.tx.Create(user).Error; err != nil {
		return fmt.Errorf("accounts: insert: %w", err)
	}
	return nil
}

// UpdateFields applies a partial update to the account with the given id.
func (r *AccountRepository) UpdateFields(id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	result := r.tx.Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("accounts: update fields: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("accounts: update fields: no row with id %d", id)
	}
	return nil
}
