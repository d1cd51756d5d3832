package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel provides common fields for all database models
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// School is a transacting party that can provide and receive equipment
type School struct {
	BaseModel
	Name         string `json:"name" gorm:"not null"`
	Code         string `json:"code" gorm:"size:50;uniqueIndex"`
	District     string `json:"district"`
	ContactEmail string `json:"contact_email"`
}

// GovernBody is a governing body that can provide equipment to schools
type GovernBody struct {
	BaseModel
	Name         string `json:"name" gorm:"not null"`
	Region       string `json:"region"`
	ContactEmail string `json:"contact_email"`
}

// Equipment is an item type that can be moved between parties
type Equipment struct {
	BaseModel
	Name        string `json:"name" gorm:"not null"`
	Category    string `json:"category" gorm:"size:100;index"`
	Description string `json:"description" gorm:"type:text"`
}

// Sequence holds a named monotonically increasing counter
type Sequence struct {
	Name  string `gorm:"primaryKey;size:100"`
	Value int64  `gorm:"not null;default:0"`
}
