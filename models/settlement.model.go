package models

import (
	"time"

	"gorm.io/gorm"
)

// SettlementStatus defines the state of a payment attempt
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "PENDING"
	SettlementSuccess SettlementStatus = "SUCCESS"
	SettlementFailed  SettlementStatus = "FAILED"
)

// Settlement tracks one payment attempt from order creation to gateway confirmation.
// It leaves PENDING exactly once and is never deleted or re-opened.
type Settlement struct {
	gorm.Model
	CourseID      uint   `gorm:"not null;index" json:"courseId"`
	UserID        *uint  `gorm:"index" json:"userId"` // nil until the buyer has an account
	BuyerIdentity string `gorm:"type:varchar(64)" json:"buyerIdentity"`
	BuyerEmail    string `gorm:"type:varchar(255);index" json:"buyerEmail"`

	// Amounts are in paise. Amount = BaseAmount - DiscountAmount + TaxAmount.
	BaseAmount      int64  `gorm:"not null" json:"baseAmount"`
	DiscountAmount  int64  `gorm:"not null;default:0" json:"discountAmount"`
	TaxAmount       int64  `gorm:"not null;default:0" json:"taxAmount"`
	Amount          int64  `gorm:"not null" json:"amount"`
	Currency        string `gorm:"type:varchar(10);default:'INR'" json:"currency"`
	DiscountTokenID *uint  `json:"discountTokenId"`

	IdempotencyKey   *string `gorm:"type:varchar(128);uniqueIndex" json:"-"`
	GatewayOrderID   *string `gorm:"type:varchar(100);uniqueIndex" json:"gatewayOrderId"`
	GatewayPaymentID *string `gorm:"type:varchar(100);index" json:"gatewayPaymentId"`
	GatewaySignature *string `gorm:"type:varchar(255)" json:"-"`
	SettledAmount    int64   `gorm:"default:0" json:"settledAmount"` // amount echoed by the callback

	Status    SettlementStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	SettledAt *time.Time       `json:"settledAt"`
	ClaimedAt *time.Time       `json:"claimedAt"`
}

func (Settlement) TableName() string {
	return "settlements"
}

// IsTerminal reports whether the settlement has left PENDING.
func (s Settlement) IsTerminal() bool {
	return s.Status == SettlementSuccess || s.Status == SettlementFailed
}
