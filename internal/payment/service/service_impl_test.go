package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/coopsuite/copay/internal/activity/domain"
	"github.com/coopsuite/copay/internal/cache"
	"github.com/coopsuite/copay/internal/clock"
	"github.com/coopsuite/copay/internal/config"
	coopdomain "github.com/coopsuite/copay/internal/cooperative/domain"
	cooprepository "github.com/coopsuite/copay/internal/cooperative/repository"
	"github.com/coopsuite/copay/internal/gateway/adapters"
	gatewaydomain "github.com/coopsuite/copay/internal/gateway/domain"
	"github.com/coopsuite/copay/internal/identity"
	"github.com/coopsuite/copay/internal/payment/domain"
	"github.com/coopsuite/copay/internal/payment/repository"
	ptdomain "github.com/coopsuite/copay/internal/paymenttype/domain"
	ptrepository "github.com/coopsuite/copay/internal/paymenttype/repository"
	ptservice "github.com/coopsuite/copay/internal/paymenttype/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var startTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

const (
	testCoopID      = int64(100)
	suspendedCoopID = int64(101)
	memberID        = int64(7001)
)

type fakeGateway struct {
	calls    int
	initiate func(ctx context.Context, req gatewaydomain.InitiateRequest) (*gatewaydomain.InitiateResult, error)
}

func (f *fakeGateway) Provider() string { return "irembopay" }

func (f *fakeGateway) Initiate(ctx context.Context, req gatewaydomain.InitiateRequest) (*gatewaydomain.InitiateResult, error) {
	f.calls++
	if f.initiate != nil {
		return f.initiate(ctx, req)
	}
	raw, _ := json.Marshal(map[string]string{"status": "PENDING"})
	return &gatewaydomain.InitiateResult{
		GatewayTransactionID: req.Reference,
		InvoiceNumber:        "INV-" + req.Reference,
		PaymentURL:           "https://pay.example/" + req.Reference,
		Status:               gatewaydomain.StatusPending,
		Raw:                  raw,
	}, nil
}

func (f *fakeGateway) GetStatus(ctx context.Context, gatewayTransactionID string) (gatewaydomain.TransactionStatus, error) {
	return gatewaydomain.StatusPending, nil
}

func (f *fakeGateway) VerifyCallback(payload []byte, headers http.Header) error { return nil }

type recordedActivity struct {
	entries []activitydomain.Entry
}

func (a *recordedActivity) Record(ctx context.Context, entry activitydomain.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func (a *recordedActivity) List(ctx context.Context, filter activitydomain.ListFilter) ([]activitydomain.ActivityLog, error) {
	return nil, nil
}

type fixture struct {
	svc      domain.Service
	conn     *gorm.DB
	gateway  *fakeGateway
	activity *recordedActivity
	clock    *clock.FakeClock
	typeID   int64
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ddl := []string{
		`CREATE TABLE payments (
			id INTEGER PRIMARY KEY,
			cooperative_id INTEGER NOT NULL,
			payment_type_id INTEGER NOT NULL,
			payer_id INTEGER NOT NULL,
			base_amount INTEGER NOT NULL,
			fee INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			channel TEXT NOT NULL,
			phone_number TEXT,
			status TEXT NOT NULL,
			idempotency_key TEXT NOT NULL UNIQUE,
			payment_reference TEXT,
			invoice_number TEXT,
			cooperative_balance_updated INTEGER NOT NULL DEFAULT 0,
			fee_balance_updated INTEGER NOT NULL DEFAULT 0,
			failure_reason TEXT,
			paid_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE payment_transactions (
			id INTEGER PRIMARY KEY,
			payment_id INTEGER NOT NULL,
			gateway_transaction_id TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			gateway_response TEXT,
			payment_url TEXT,
			failure_reason TEXT,
			webhook_received INTEGER NOT NULL DEFAULT 0,
			webhook_received_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE payment_types (
			id INTEGER PRIMARY KEY,
			cooperative_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			code TEXT NOT NULL,
			amount INTEGER NOT NULL,
			amount_type TEXT NOT NULL,
			minimum_amount INTEGER NOT NULL DEFAULT 0,
			allow_partial_payment INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (cooperative_id, code)
		)`,
		`CREATE TABLE cooperatives (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	t.Cleanup(func() {
		for _, table := range []string{"payments", "payment_transactions", "payment_types", "cooperatives"} {
			require.NoError(t, conn.Exec(`DROP TABLE `+table).Error)
		}
	})
	return conn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := setupDB(t)
	require.NoError(t, conn.Exec(
		`INSERT INTO cooperatives (id, name, status, created_at, updated_at) VALUES
			(?, 'Koperative Tuzamurane', 'active', ?, ?),
			(?, 'Koperative Iterambere', 'suspended', ?, ?)`,
		testCoopID, startTime, startTime,
		suspendedCoopID, startTime, startTime,
	).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(startTime)
	log := zap.NewNop()

	paymentTypes := ptservice.New(ptservice.Params{
		Log:   log,
		GenID: node,
		Repo:  ptrepository.Provide(conn),
		Cache: cache.NewPaymentTypeCache(),
		Clock: fakeClock,
	})
	created, err := paymentTypes.Create(context.Background(), ptdomain.CreateRequest{
		CooperativeID: testCoopID,
		Name:          "Monthly Dues",
		Code:          "dues",
		Amount:        10000,
		AmountType:    ptdomain.AmountTypeFixed,
	})
	require.NoError(t, err)

	gateway := &fakeGateway{}
	activity := &recordedActivity{}

	svc := New(Params{
		Log:          log,
		GenID:        node,
		Repo:         repository.Provide(conn),
		PaymentTypes: paymentTypes,
		Cooperatives: cooprepository.Provide(conn),
		Gateways:     adapters.NewRegistry(gateway),
		Fees:         config.NewStaticFeeScheduleHolder(config.FeeSchedule{TransactionFee: 500, Currency: "RWF"}),
		Clock:        fakeClock,
		Activity:     activity,
	})

	return &fixture{
		svc:      svc,
		conn:     conn,
		gateway:  gateway,
		activity: activity,
		clock:    fakeClock,
		typeID:   created.ID,
	}
}

func memberCtx() context.Context {
	return identity.WithActor(context.Background(), identity.Actor{
		UserID:        memberID,
		CooperativeID: testCoopID,
		Role:          identity.RoleMember,
	})
}

func TestInitiateAddsFixedFee(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Initiate(memberCtx(), domain.InitiateRequest{
		PaymentTypeID:  f.typeID,
		BaseAmount:     10000,
		Channel:        "momo_mtn",
		PhoneNumber:    "+250788123456",
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)

	assert.False(t, resp.Duplicate)
	assert.Equal(t, int64(10000), resp.Payment.BaseAmount)
	assert.Equal(t, int64(500), resp.Payment.Fee)
	assert.Equal(t, int64(10500), resp.Payment.Amount)
	assert.Equal(t, "RWF", resp.Payment.Currency)
	assert.Equal(t, domain.StatusPending, resp.Payment.Status)
	require.NotNil(t, resp.Payment.PhoneNumber)
	assert.Equal(t, "0788123456", *resp.Payment.PhoneNumber)
	assert.NotEmpty(t, resp.PaymentURL)
	require.NotNil(t, resp.Payment.InvoiceNumber)

	require.Len(t, f.activity.entries, 1)
	assert.Equal(t, activitydomain.ActionPaymentInitiated, f.activity.entries[0].Action)

	var count int64
	require.NoError(t, f.conn.Raw(`SELECT COUNT(*) FROM payment_transactions WHERE payment_id = ?`, resp.Payment.ID).Scan(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInitiateFixedAmountDefaultsToTypeAmount(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Initiate(memberCtx(), domain.InitiateRequest{
		PaymentTypeID:  f.typeID,
		Channel:        "bank_bk",
		IdempotencyKey: "key-default",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10000), resp.Payment.BaseAmount)
	assert.Equal(t, int64(10500), resp.Payment.Amount)
	assert.Nil(t, resp.Payment.PhoneNumber)
}

func TestInitiateIdempotentReplay(t *testing.T) {
	f := newFixture(t)

	req := domain.InitiateRequest{
		PaymentTypeID:  f.typeID,
		BaseAmount:     10000,
		Channel:        "momo_mtn",
		PhoneNumber:    "0788123456",
		IdempotencyKey: "key-replay",
	}

	first, err := f.svc.Initiate(memberCtx(), req)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := f.svc.Initiate(memberCtx(), req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)

	// The replay never reaches the gateway.
	assert.Equal(t, 1, f.gateway.calls)
}

func TestInitiateValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		ctx  context.Context
		req  domain.InitiateRequest
		want error
	}{
		{
			name: "no actor",
			ctx:  context.Background(),
			req:  domain.InitiateRequest{PaymentTypeID: f.typeID, Channel: "momo_mtn", IdempotencyKey: "k"},
			want: domain.ErrForbidden,
		},
		{
			name: "missing idempotency key",
			ctx:  memberCtx(),
			req:  domain.InitiateRequest{PaymentTypeID: f.typeID, Channel: "momo_mtn", PhoneNumber: "0788123456"},
			want: domain.ErrIdempotencyKeyRequired,
		},
		{
			name: "unknown channel",
			ctx:  memberCtx(),
			req:  domain.InitiateRequest{PaymentTypeID: f.typeID, Channel: "cash", IdempotencyKey: "k1"},
			want: domain.ErrInvalidChannel,
		},
		{
			name: "bad phone for mobile money",
			ctx:  memberCtx(),
			req:  domain.InitiateRequest{PaymentTypeID: f.typeID, Channel: "momo_mtn", PhoneNumber: "12345", IdempotencyKey: "k2"},
			want: gatewaydomain.ErrInvalidPhone,
		},
		{
			name: "unknown payment type",
			ctx:  memberCtx(),
			req:  domain.InitiateRequest{PaymentTypeID: 424242, Channel: "momo_mtn", PhoneNumber: "0788123456", IdempotencyKey: "k3"},
			want: domain.ErrInvalidPaymentType,
		},
		{
			name: "fixed amount mismatch",
			ctx:  memberCtx(),
			req:  domain.InitiateRequest{PaymentTypeID: f.typeID, BaseAmount: 9000, Channel: "momo_mtn", PhoneNumber: "0788123456", IdempotencyKey: "k4"},
			want: ptdomain.ErrAmountMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Initiate(tc.ctx, tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}

	assert.Zero(t, f.gateway.calls)
}

func TestInitiateSuspendedCooperative(t *testing.T) {
	f := newFixture(t)

	const suspendedTypeID = int64(555)
	require.NoError(t, f.conn.Exec(
		`INSERT INTO payment_types (
			id, cooperative_id, name, code, amount, amount_type,
			minimum_amount, allow_partial_payment, is_active, created_at, updated_at
		) VALUES (?, ?, 'Monthly Dues', 'dues', 10000, 'fixed', 0, 0, 1, ?, ?)`,
		suspendedTypeID, suspendedCoopID, startTime, startTime,
	).Error)

	ctx := identity.WithActor(context.Background(), identity.Actor{
		UserID:        memberID,
		CooperativeID: suspendedCoopID,
		Role:          identity.RoleMember,
	})

	_, err := f.svc.Initiate(ctx, domain.InitiateRequest{
		PaymentTypeID:  suspendedTypeID,
		Channel:        "momo_mtn",
		PhoneNumber:    "0788123456",
		IdempotencyKey: "key-suspended",
	})
	require.ErrorIs(t, err, coopdomain.ErrSuspended)
	assert.Zero(t, f.gateway.calls)
}

func TestInitiateTargetCooperative(t *testing.T) {
	f := newFixture(t)

	t.Run("defaults to the type's owner", func(t *testing.T) {
		// The actor carries no cooperative of their own; the payment still
		// lands in the cooperative that owns the payment type.
		ctx := identity.WithActor(context.Background(), identity.Actor{
			UserID: memberID,
			Role:   identity.RoleMember,
		})
		resp, err := f.svc.Initiate(ctx, domain.InitiateRequest{
			PaymentTypeID:  f.typeID,
			BaseAmount:     10000,
			Channel:        "bank_bk",
			IdempotencyKey: "key-owner",
		})
		require.NoError(t, err)
		assert.Equal(t, testCoopID, resp.Payment.CooperativeID)
	})

	t.Run("explicit matching target", func(t *testing.T) {
		resp, err := f.svc.Initiate(memberCtx(), domain.InitiateRequest{
			PaymentTypeID:  f.typeID,
			CooperativeID:  testCoopID,
			BaseAmount:     10000,
			Channel:        "bank_bk",
			IdempotencyKey: "key-target",
		})
		require.NoError(t, err)
		assert.Equal(t, testCoopID, resp.Payment.CooperativeID)
	})

	t.Run("target that does not own the type", func(t *testing.T) {
		before := f.gateway.calls
		_, err := f.svc.Initiate(memberCtx(), domain.InitiateRequest{
			PaymentTypeID:  f.typeID,
			CooperativeID:  suspendedCoopID,
			BaseAmount:     10000,
			Channel:        "bank_bk",
			IdempotencyKey: "key-mismatch",
		})
		require.ErrorIs(t, err, domain.ErrInvalidPaymentType)
		assert.Equal(t, before, f.gateway.calls)
	})
}

func TestInitiateInactivePaymentType(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.conn.Exec(`UPDATE payment_types SET is_active = 0 WHERE id = ?`, f.typeID).Error)

	_, err := f.svc.Initiate(memberCtx(), domain.InitiateRequest{
		PaymentTypeID:  f.typeID,
		BaseAmount:     10000,
		Channel:        "momo_mtn",
		PhoneNumber:    "0788123456",
		IdempotencyKey: "key-inactive",
	})
	require.ErrorIs(t, err, ptdomain.ErrInactive)
}

func TestInitiateGatewayFailureMarksPaymentFailed(t *testing.T) {
	f := newFixture(t)
	f.gateway.initiate = func(ctx context.Context, req gatewaydomain.InitiateRequest) (*gatewaydomain.InitiateResult, error) {
		return nil, gatewaydomain.ErrGatewayUnavailable
	}

	_, err := f.svc.Initiate(memberCtx(), domain.InitiateRequest{
		PaymentTypeID:  f.typeID,
		BaseAmount:     10000,
		Channel:        "momo_mtn",
		PhoneNumber:    "0788123456",
		IdempotencyKey: "key-gwfail",
	})
	require.ErrorIs(t, err, domain.ErrGatewayFailed)

	// The payment row is persisted in a terminal state, never left pending.
	var stored domain.Payment
	require.NoError(t, f.conn.Where("idempotency_key = ?", "key-gwfail").First(&stored).Error)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)

	require.Len(t, f.activity.entries, 1)
	assert.Equal(t, activitydomain.ActionPaymentFailed, f.activity.entries[0].Action)
}

func TestGetByIDVisibility(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Initiate(memberCtx(), domain.InitiateRequest{
		PaymentTypeID:  f.typeID,
		BaseAmount:     10000,
		Channel:        "momo_mtn",
		PhoneNumber:    "0788123456",
		IdempotencyKey: "key-vis",
	})
	require.NoError(t, err)
	paymentID := resp.Payment.ID

	t.Run("owner", func(t *testing.T) {
		got, err := f.svc.GetByID(memberCtx(), paymentID)
		require.NoError(t, err)
		assert.Equal(t, paymentID, got.ID)
	})

	t.Run("other member", func(t *testing.T) {
		ctx := identity.WithActor(context.Background(), identity.Actor{
			UserID:        memberID + 1,
			CooperativeID: testCoopID,
			Role:          identity.RoleMember,
		})
		_, err := f.svc.GetByID(ctx, paymentID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("cooperative admin same coop", func(t *testing.T) {
		ctx := identity.WithActor(context.Background(), identity.Actor{
			UserID:        9001,
			CooperativeID: testCoopID,
			Role:          identity.RoleCooperativeAdmin,
		})
		got, err := f.svc.GetByID(ctx, paymentID)
		require.NoError(t, err)
		assert.Equal(t, paymentID, got.ID)
	})

	t.Run("cooperative admin other coop", func(t *testing.T) {
		ctx := identity.WithActor(context.Background(), identity.Actor{
			UserID:        9002,
			CooperativeID: testCoopID + 1,
			Role:          identity.RoleCooperativeAdmin,
		})
		_, err := f.svc.GetByID(ctx, paymentID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("platform admin", func(t *testing.T) {
		ctx := identity.WithActor(context.Background(), identity.Actor{
			UserID: 9003,
			Role:   identity.RolePlatformAdmin,
		})
		got, err := f.svc.GetByID(ctx, paymentID)
		require.NoError(t, err)
		assert.Equal(t, paymentID, got.ID)
	})
}

func TestSearchScopesToRole(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Initiate(memberCtx(), domain.InitiateRequest{
		PaymentTypeID:  f.typeID,
		BaseAmount:     10000,
		Channel:        "momo_mtn",
		PhoneNumber:    "0788123456",
		IdempotencyKey: "key-s1",
	})
	require.NoError(t, err)

	otherCtx := identity.WithActor(context.Background(), identity.Actor{
		UserID:        memberID + 1,
		CooperativeID: testCoopID,
		Role:          identity.RoleMember,
	})
	_, err = f.svc.Initiate(otherCtx, domain.InitiateRequest{
		PaymentTypeID:  f.typeID,
		BaseAmount:     10000,
		Channel:        "bank_bk",
		IdempotencyKey: "key-s2",
	})
	require.NoError(t, err)

	mine, err := f.svc.Search(memberCtx(), domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, memberID, mine[0].PayerID)

	adminCtx := identity.WithActor(context.Background(), identity.Actor{
		UserID:        9001,
		CooperativeID: testCoopID,
		Role:          identity.RoleCooperativeAdmin,
	})
	all, err := f.svc.Search(adminCtx, domain.SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byChannel, err := f.svc.Search(adminCtx, domain.SearchFilter{Channel: "bank_bk"})
	require.NoError(t, err)
	require.Len(t, byChannel, 1)
	assert.Equal(t, "bank_bk", byChannel[0].Channel)
}

func TestListForCooperative(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Initiate(memberCtx(), domain.InitiateRequest{
		PaymentTypeID:  f.typeID,
		BaseAmount:     10000,
		Channel:        "momo_mtn",
		PhoneNumber:    "0788123456",
		IdempotencyKey: "key-list",
	})
	require.NoError(t, err)

	_, err = f.svc.ListForCooperative(memberCtx())
	require.ErrorIs(t, err, domain.ErrForbidden)

	adminCtx := identity.WithActor(context.Background(), identity.Actor{
		UserID:        9001,
		CooperativeID: testCoopID,
		Role:          identity.RoleCooperativeAdmin,
	})
	items, err := f.svc.ListForCooperative(adminCtx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, resp.Payment.ID, items[0].ID)
	require.NotNil(t, items[0].LatestTransactionStatus)
	assert.Equal(t, "pending", *items[0].LatestTransactionStatus)
}
