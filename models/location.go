package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a named delivery area that orders, clients and drivers refer to by name
type Location struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	Address   *string   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Location model
func (Location) TableName() string {
	return "locations"
}

func (l *Location) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
