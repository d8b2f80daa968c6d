package irembopay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coopsuite/copay/internal/gateway/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(baseURL string) domain.Config {
	return domain.Config{
		BaseURL:       baseURL,
		APIKey:        "pk_test",
		SecretKey:     "sk_test",
		WebhookSecret: "whsec_test",
		CallbackURL:   "https://copay.example/api/webhooks/payments/irembopay",
		Timeout:       5 * time.Second,
	}
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestNewValidatesConfig(t *testing.T) {
	log := zap.NewNop()

	_, err := New(domain.Config{APIKey: "pk", WebhookSecret: "whsec"}, log)
	require.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = New(domain.Config{BaseURL: "https://api.example", WebhookSecret: "whsec"}, log)
	require.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = New(domain.Config{BaseURL: "https://api.example", APIKey: "pk"}, log)
	require.ErrorIs(t, err, domain.ErrInvalidConfig)

	client, err := New(testConfig("https://api.example"), log)
	require.NoError(t, err)
	assert.Equal(t, ProviderName, client.Provider())
}

func TestVerifyCallback(t *testing.T) {
	client, err := New(testConfig("https://api.example"), zap.NewNop())
	require.NoError(t, err)

	payload := []byte(`{"data":{"transactionId":"PAY-1","paymentStatus":"PAID"}}`)

	t.Run("valid signature", func(t *testing.T) {
		headers := http.Header{}
		headers.Set(SignatureHeader, sign("whsec_test", payload))
		require.NoError(t, client.VerifyCallback(payload, headers))
	})

	t.Run("wrong secret", func(t *testing.T) {
		headers := http.Header{}
		headers.Set(SignatureHeader, sign("whsec_other", payload))
		require.ErrorIs(t, client.VerifyCallback(payload, headers), domain.ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		headers := http.Header{}
		headers.Set(SignatureHeader, sign("whsec_test", payload))
		tampered := []byte(`{"data":{"transactionId":"PAY-2","paymentStatus":"PAID"}}`)
		require.ErrorIs(t, client.VerifyCallback(tampered, headers), domain.ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		require.ErrorIs(t, client.VerifyCallback(payload, http.Header{}), domain.ErrInvalidSignature)
	})

	t.Run("missing scheme prefix", func(t *testing.T) {
		mac := hmac.New(sha256.New, []byte("whsec_test"))
		_, _ = mac.Write(payload)
		headers := http.Header{}
		headers.Set(SignatureHeader, hex.EncodeToString(mac.Sum(nil)))
		require.ErrorIs(t, client.VerifyCallback(payload, headers), domain.ErrInvalidSignature)
	})
}

func TestInitiateMobileMoney(t *testing.T) {
	var invoiceBody, pushBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer pk_test", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/payments/invoices":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&invoiceBody))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"invoiceNumber":  "INV-880123",
					"transactionId":  invoiceBody["transactionId"],
					"paymentLinkUrl": "https://pay.example/INV-880123",
					"paymentStatus":  "NEW",
				},
			})
		case "/payments/transactions/initiate":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&pushBody))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"referenceId": "REF-1", "status": "PENDING"},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	result, err := client.Initiate(context.Background(), domain.InitiateRequest{
		Reference:   "PAY-42",
		Amount:      10500,
		Currency:    "RWF",
		Channel:     domain.ChannelMomoMTN,
		PhoneNumber: "+250788123456",
		Description: "monthly dues",
	})
	require.NoError(t, err)

	assert.Equal(t, "PAY-42", result.GatewayTransactionID)
	assert.Equal(t, "INV-880123", result.InvoiceNumber)
	assert.Equal(t, "https://pay.example/INV-880123", result.PaymentURL)
	assert.Equal(t, domain.StatusPending, result.Status)

	assert.Equal(t, "MOBILE_MONEY", invoiceBody["paymentChannel"])
	assert.Equal(t, "MTN", invoiceBody["paymentOperator"])
	assert.Equal(t, "0788123456", pushBody["accountIdentifier"])
	assert.Equal(t, "INV-880123", pushBody["invoiceNumber"])
}

func TestInitiateBankSkipsPush(t *testing.T) {
	var pushed bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments/invoices":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"invoiceNumber":  "INV-2",
					"paymentLinkUrl": "https://pay.example/INV-2",
				},
			})
		case "/payments/transactions/initiate":
			pushed = true
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	result, err := client.Initiate(context.Background(), domain.InitiateRequest{
		Reference: "PAY-43",
		Amount:    20500,
		Currency:  "RWF",
		Channel:   domain.ChannelBankBK,
	})
	require.NoError(t, err)

	assert.False(t, pushed)
	assert.Equal(t, "https://pay.example/INV-2", result.PaymentURL)
}

func TestInitiateRejectedInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "duplicate transaction"})
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	_, err = client.Initiate(context.Background(), domain.InitiateRequest{
		Reference: "PAY-44",
		Amount:    500,
		Currency:  "RWF",
		Channel:   domain.ChannelBankBK,
	})
	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}

func TestInitiateUnsupportedChannel(t *testing.T) {
	client, err := New(testConfig("https://api.example"), zap.NewNop())
	require.NoError(t, err)

	_, err = client.Initiate(context.Background(), domain.InitiateRequest{
		Reference: "PAY-45",
		Channel:   "cash",
	})
	require.ErrorIs(t, err, domain.ErrUnsupportedChannel)
}

func TestGetStatusMapping(t *testing.T) {
	status := "PAID"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"paymentStatus": status},
		})
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), zap.NewNop())
	require.NoError(t, err)

	got, err := client.GetStatus(context.Background(), "PAY-42")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got)

	status = "EXPIRED"
	got, err = client.GetStatus(context.Background(), "PAY-42")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got)

	status = "NEW"
	got, err = client.GetStatus(context.Background(), "PAY-42")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got)
}
