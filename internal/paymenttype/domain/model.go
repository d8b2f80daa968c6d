package domain

import "time"

const (
	AmountTypeFixed          = "fixed"
	AmountTypePartialAllowed = "partial_allowed"
	AmountTypeFlexible       = "flexible"
)

// PaymentType describes one payable obligation of a cooperative. Rows are
// never hard-deleted; historical payments keep referencing deactivated types.
type PaymentType struct {
	ID                  int64     `json:"id" gorm:"primaryKey"`
	CooperativeID       int64     `json:"cooperative_id" gorm:"column:cooperative_id;not null"`
	Name                string    `json:"name" gorm:"type:text;not null"`
	Code                string    `json:"code" gorm:"type:text;not null"`
	Amount              int64     `json:"amount" gorm:"not null"`
	AmountType          string    `json:"amount_type" gorm:"type:text;not null"`
	MinimumAmount       int64     `json:"minimum_amount" gorm:"not null;default:0"`
	AllowPartialPayment bool      `json:"allow_partial_payment" gorm:"not null;default:false"`
	IsActive            bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt           time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PaymentType) TableName() string { return "payment_types" }

// ValidAmountType reports whether value is one of the supported amount rules.
func ValidAmountType(value string) bool {
	switch value {
	case AmountTypeFixed, AmountTypePartialAllowed, AmountTypeFlexible:
		return true
	}
	return false
}

// ValidateBaseAmount checks a requested base amount against the type's rule.
func (t *PaymentType) ValidateBaseAmount(base int64) error {
	if base <= 0 {
		return ErrInvalidAmount
	}
	switch t.AmountType {
	case AmountTypeFixed:
		if base != t.Amount {
			return ErrAmountMismatch
		}
	case AmountTypePartialAllowed:
		// With partial payments switched off the type behaves as fixed:
		// only the configured amount is accepted.
		if !t.AllowPartialPayment {
			if base != t.Amount {
				return ErrAmountMismatch
			}
			return nil
		}
		if base < t.MinimumAmount || base > t.Amount {
			return ErrAmountOutOfRange
		}
	case AmountTypeFlexible:
		// any positive amount
	default:
		return ErrInvalidAmountType
	}
	return nil
}
