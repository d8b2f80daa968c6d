package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/coopsuite/copay/internal/balance/domain"
	paymentdomain "github.com/coopsuite/copay/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func Provide(conn *gorm.DB, genID *snowflake.Node) domain.Repository {
	return &repo{db: conn, genID: genID}
}

func (r *repo) FindPayment(ctx context.Context, id int64) (*paymentdomain.Payment, error) {
	var p paymentdomain.Payment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) ListUnsettled(ctx context.Context, limit int) ([]paymentdomain.Payment, error) {
	var items []paymentdomain.Payment
	stmt := r.db.WithContext(ctx).
		Model(&paymentdomain.Payment{}).
		Where("status = ?", paymentdomain.StatusCompleted).
		Where("cooperative_balance_updated = ? OR fee_balance_updated = ?", false, false).
		Order("created_at asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ResetFlags(ctx context.Context, paymentID int64, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET cooperative_balance_updated = FALSE, fee_balance_updated = FALSE, updated_at = ?
		 WHERE id = ?`,
		at,
		paymentID,
	).Error
}

func (r *repo) CreditCooperative(ctx context.Context, cooperativeID, amount int64, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO cooperative_balances (
			id, cooperative_id, current_balance, total_received, pending_balance,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (cooperative_id) DO UPDATE SET
			current_balance = cooperative_balances.current_balance + ?,
			total_received = cooperative_balances.total_received + ?,
			updated_at = ?`,
		r.genID.Generate().Int64(),
		cooperativeID,
		amount,
		amount,
		at,
		at,
		amount,
		amount,
		at,
	).Error
}

func (r *repo) CreditCopay(ctx context.Context, fee int64, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO copay_balances (
			id, current_balance, total_fees, total_transactions, created_at, updated_at
		) VALUES (1, ?, ?, 1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			current_balance = copay_balances.current_balance + ?,
			total_fees = copay_balances.total_fees + ?,
			total_transactions = copay_balances.total_transactions + 1,
			updated_at = ?`,
		fee,
		fee,
		at,
		at,
		fee,
		fee,
		at,
	).Error
}

func (r *repo) InsertTransaction(ctx context.Context, txn *domain.BalanceTransaction) error {
	if txn.ID == 0 {
		txn.ID = r.genID.Generate().Int64()
	}
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO balance_transactions (
			id, type, cooperative_id, amount, reference_id, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.Type,
		txn.CooperativeID,
		txn.Amount,
		txn.ReferenceID,
		txn.Status,
		txn.CreatedAt,
	).Error
}

func (r *repo) SetCooperativeFlag(ctx context.Context, paymentID int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET cooperative_balance_updated = TRUE, updated_at = ?
		 WHERE id = ? AND cooperative_balance_updated = FALSE`,
		at,
		paymentID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetFeeFlag(ctx context.Context, paymentID int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET fee_balance_updated = TRUE, updated_at = ?
		 WHERE id = ? AND fee_balance_updated = FALSE`,
		at,
		paymentID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) GetCooperativeBalance(ctx context.Context, cooperativeID int64) (*domain.CooperativeBalance, error) {
	var b domain.CooperativeBalance
	err := r.db.WithContext(ctx).
		Where("cooperative_id = ?", cooperativeID).
		First(&b).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *repo) GetCopayBalance(ctx context.Context) (*domain.CopayBalance, error) {
	var b domain.CopayBalance
	err := r.db.WithContext(ctx).
		Where("id = ?", 1).
		First(&b).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *repo) Overview(ctx context.Context) (*domain.Overview, error) {
	var out domain.Overview

	err := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(current_balance), 0) AS total_cooperative_balance,
		        COALESCE(SUM(total_received), 0) AS total_received
		 FROM cooperative_balances`,
	).Scan(&out).Error
	if err != nil {
		return nil, err
	}

	copay, err := r.GetCopayBalance(ctx)
	if err != nil {
		return nil, err
	}
	if copay != nil {
		out.CopayBalance = copay.CurrentBalance
		out.TotalFees = copay.TotalFees
		out.TotalTransactions = copay.TotalTransactions
	}

	err = r.db.WithContext(ctx).
		Model(&paymentdomain.Payment{}).
		Where("status = ?", paymentdomain.StatusCompleted).
		Where("cooperative_balance_updated = ? OR fee_balance_updated = ?", false, false).
		Count(&out.UnsettledPayments).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *repo) ListCompletedBetween(ctx context.Context, from, to time.Time) ([]paymentdomain.Payment, error) {
	var items []paymentdomain.Payment
	err := r.db.WithContext(ctx).
		Model(&paymentdomain.Payment{}).
		Where("status = ?", paymentdomain.StatusCompleted).
		Where("paid_at >= ? AND paid_at < ?", from.UTC(), to.UTC()).
		Order("paid_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
