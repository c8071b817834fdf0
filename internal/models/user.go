package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mendelflow/mendelflowgo/internal/access"
	"gorm.io/gorm"
)

// User represents a warehouse staff account
// Standardized: Go (PascalCase) -> DB (snake_case) -> JSON (camelCase)
type User struct {
	ID          string      `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string      `gorm:"uniqueIndex;not null" json:"username"`
	Password    string      `gorm:"not null" json:"-"`
	Email       string      `gorm:"uniqueIndex;not null" json:"email"`
	FullName    string      `json:"fullName"`
	Role        access.Role `gorm:"type:varchar(20);not null;default:'VIEWER'" json:"role"`
	Avatar      string      `json:"avatar,omitempty"`
	Department  string      `json:"department,omitempty"`
	Position    string      `json:"position,omitempty"`
	PhoneNumber string      `json:"phoneNumber,omitempty"`
	IsActive    bool        `gorm:"default:true" json:"isActive"`
	LastLogin   *time.Time  `json:"lastLogin,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID when the caller did not
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// GetRole implements access.Holder. A nil user has no role.
func (u *User) GetRole() access.Role {
	if u == nil {
		return ""
	}
	return u.Role
}
