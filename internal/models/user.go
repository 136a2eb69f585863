package models

import "time"

// User is the persisted account record. The unique index on email is
// load-bearing: it is what turns a concurrent duplicate registration into a
// constraint violation instead of a silent second row.
type User struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username string `gorm:"size:50;not null" json:"username"`
	Password string `gorm:"size:255;not null" json:"-"`

	Verified bool `gorm:"not null;default:false" json:"verified"`

	// VerificationToken holds the SHA-256 hex digest of the most recently
	// issued confirmation token. Re-registration overwrites it, confirmation
	// clears it; only the current digest validates.
	VerificationToken *string `gorm:"size:64" json:"-"`

	RegisteredAt time.Time `gorm:"column:registered_at;autoCreateTime" json:"registered_at"`
	UpdatedAt    time.Time `json:"-"`
}
