package models

import (
	"time"
)

// TransactionStatus is the lifecycle status of an equipment transaction
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusApproved  TransactionStatus = "approved"
	StatusRejected  TransactionStatus = "rejected"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
	StatusReturned  TransactionStatus = "returned"
)

// ProviderKind selects the directory a provider is resolved against
type ProviderKind string

const (
	ProviderSchool        ProviderKind = "school"
	ProviderGoverningBody ProviderKind = "governing-body"
)

// TransactionKind distinguishes rentals from permanent transfers
type TransactionKind string

const (
	KindRental    TransactionKind = "rental"
	KindPermanent TransactionKind = "permanent"
)

// Transaction 设备流转记录
// A single movement of equipment items from a provider party to a recipient school.
type Transaction struct {
	ID string `json:"id" gorm:"primaryKey;size:32"`

	// Parties (write-once)
	ProviderID   uint         `json:"provider_id" gorm:"not null;index"`
	ProviderKind ProviderKind `json:"provider_kind" gorm:"not null;size:20;index"`
	RecipientID  uint         `json:"recipient_id" gorm:"not null;index"`
	Recipient    *School      `json:"recipient,omitempty" gorm:"foreignKey:RecipientID"`

	TransactionKind TransactionKind   `json:"transaction_kind" gorm:"not null;size:20;index"`
	Status          TransactionStatus `json:"status" gorm:"not null;size:20;index"`

	Items []TransactionItem `json:"items" gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`

	// Rental details, only set for rental transactions
	RentalStartDate     *time.Time `json:"rental_start_date,omitempty" gorm:"index"`
	RentalReturnDueDate *time.Time `json:"rental_return_due_date,omitempty" gorm:"index"`
	RentalReturnedDate  *time.Time `json:"rental_returned_date,omitempty"`

	// Approval metadata
	ApprovedBy *string    `json:"approved_by,omitempty" gorm:"size:100"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`

	Notes              string  `json:"notes" gorm:"type:text"`
	Terms              string  `json:"terms" gorm:"type:text"`
	EquipmentRequestID *string `json:"equipment_request_id,omitempty" gorm:"size:100;index"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	// Resolved provider, not persisted
	Provider *Party `json:"provider,omitempty" gorm:"-"`
}

// TableName 指定表名
func (Transaction) TableName() string {
	return "transactions"
}

// HasRentalDetails reports whether rental dates are recorded.
func (t *Transaction) HasRentalDetails() bool {
	return t.RentalStartDate != nil && t.RentalReturnDueDate != nil
}

// TransactionItem is one line of equipment in a transaction
type TransactionItem struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	TransactionID string     `json:"transaction_id" gorm:"not null;size:32;index"`
	Position      int        `json:"position" gorm:"not null;default:0"`
	EquipmentID   uint       `json:"equipment_id" gorm:"not null;index"`
	Equipment     *Equipment `json:"equipment,omitempty" gorm:"foreignKey:EquipmentID"`
	Quantity      int        `json:"quantity" gorm:"not null"`
	Condition     string     `json:"condition" gorm:"not null;size:50"`
	Notes         string     `json:"notes" gorm:"type:text"`
}

// TransactionStatusHistory records one status change of a transaction
type TransactionStatusHistory struct {
	ID            string            `json:"id" gorm:"primaryKey;size:36"`
	TransactionID string            `json:"transaction_id" gorm:"not null;size:32;index"`
	FromStatus    TransactionStatus `json:"from_status" gorm:"size:20"`
	ToStatus      TransactionStatus `json:"to_status" gorm:"not null;size:20"`
	ChangedBy     string            `json:"changed_by" gorm:"size:100"`
	Note          string            `json:"note" gorm:"type:text"`
	ChangedAt     time.Time         `json:"changed_at" gorm:"not null;index"`
}

// Party is a resolved provider or recipient
type Party struct {
	ID           uint         `json:"id"`
	Kind         ProviderKind `json:"kind"`
	Name         string       `json:"name"`
	ContactEmail string       `json:"contact_email,omitempty"`
}
