package domain

import (
	"context"
	"time"

	paymentdomain "github.com/coopsuite/copay/internal/payment/domain"
)

type Repository interface {
	FindPayment(ctx context.Context, id int64) (*paymentdomain.Payment, error)
	ListUnsettled(ctx context.Context, limit int) ([]paymentdomain.Payment, error)
	ResetFlags(ctx context.Context, paymentID int64, at time.Time) error

	// CreditCooperative increments or lazily creates the balance row.
	CreditCooperative(ctx context.Context, cooperativeID, amount int64, at time.Time) error
	// CreditCopay increments the singleton fee account.
	CreditCopay(ctx context.Context, fee int64, at time.Time) error
	InsertTransaction(ctx context.Context, txn *BalanceTransaction) error

	// SetCooperativeFlag flips cooperative_balance_updated under a
	// flag = FALSE guard; false means another writer got there first.
	SetCooperativeFlag(ctx context.Context, paymentID int64, at time.Time) (bool, error)
	SetFeeFlag(ctx context.Context, paymentID int64, at time.Time) (bool, error)

	GetCooperativeBalance(ctx context.Context, cooperativeID int64) (*CooperativeBalance, error)
	GetCopayBalance(ctx context.Context) (*CopayBalance, error)
	Overview(ctx context.Context) (*Overview, error)
	ListCompletedBetween(ctx context.Context, from, to time.Time) ([]paymentdomain.Payment, error)
}
