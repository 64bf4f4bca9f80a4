package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is a delivery recipient
type Client struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName      string    `gorm:"not null" json:"full_name"`
	Location      string    `gorm:"not null" json:"location"`
	PhoneNumber   string    `gorm:"not null" json:"phone_number"`
	HouseImageKey *string   `json:"house_image_key"`
	HouseImageURL *string   `gorm:"-" json:"house_image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Client model
func (Client) TableName() string {
	return "clients"
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
