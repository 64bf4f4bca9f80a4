package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin roles
const (
	RoleSuperAdmin = "super_admin"
	RoleSubAdmin   = "sub_admin"
)

// Admin is a dashboard operator. Super admins manage other admins.
type Admin struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Auth0ID   *string   `gorm:"uniqueIndex" json:"auth0_id"` // linked on first login
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Role      string    `gorm:"not null;default:'sub_admin'" json:"role"` // super_admin or sub_admin
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the Admin model
func (Admin) TableName() string {
	return "admins"
}

func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

// IsSuperAdmin reports whether the admin may manage other admins
func (a Admin) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// IsValidRole reports whether role is an admin role
func IsValidRole(role string) bool {
	return role == RoleSuperAdmin || role == RoleSubAdmin
}
