package irembopay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coopsuite/copay/internal/gateway/domain"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	ProviderName = "irembopay"

	// SignatureHeader carries the callback HMAC as "sha256=<hex>".
	SignatureHeader = "irembopay-signature"

	secretKeyHeader = "irembopay-secretkey"
)

type Client struct {
	cfg  domain.Config
	http *http.Client
	log  *zap.Logger
}

// New builds a client for the aggregator's REST API. Transient failures on
// the outbound calls are retried with backoff; the caller only sees the
// final outcome.
func New(cfg domain.Config, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ErrInvalidConfig
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, domain.ErrInvalidConfig
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = 3
	retry.RetryWaitMin = 500 * time.Millisecond
	retry.RetryWaitMax = 5 * time.Second
	retry.Logger = nil
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retry.HTTPClient.Timeout = timeout

	return &Client{
		cfg:  cfg,
		http: retry.StandardClient(),
		log:  log.Named("gateway.irembopay"),
	}, nil
}

func (c *Client) Provider() string { return ProviderName }

type invoiceRequest struct {
	TransactionID   string  `json:"transactionId"`
	PaymentAccount  string  `json:"paymentAccountIdentifier"`
	Amount          int64   `json:"amount"`
	Currency        string  `json:"currency"`
	Description     string  `json:"description,omitempty"`
	CallbackURL     string  `json:"callbackUrl,omitempty"`
	ExpiryAt        *string `json:"expiryAt,omitempty"`
	PaymentChannel  string  `json:"paymentChannel,omitempty"`
	PaymentOperator string  `json:"paymentOperator,omitempty"`
}

type invoiceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		InvoiceNumber  string `json:"invoiceNumber"`
		TransactionID  string `json:"transactionId"`
		PaymentLinkURL string `json:"paymentLinkUrl"`
		PaymentStatus  string `json:"paymentStatus"`
	} `json:"data"`
}

type pushRequest struct {
	AccountIdentifier string `json:"accountIdentifier"`
	PaymentProvider   string `json:"paymentProvider"`
	InvoiceNumber     string `json:"invoiceNumber"`
}

type pushResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		ReferenceID string `json:"referenceId"`
		Status      string `json:"status"`
	} `json:"data"`
}

// Initiate creates an invoice for the reference and, for mobile money,
// pushes a collection prompt to the payer's handset. Bank channels get a
// hosted payment link instead.
func (c *Client) Initiate(ctx context.Context, req domain.InitiateRequest) (*domain.InitiateResult, error) {
	channel, ok := domain.LookupChannel(req.Channel)
	if !ok || channel.Provider != ProviderName {
		return nil, domain.ErrUnsupportedChannel
	}

	phone := ""
	if channel.IsMobileMoney() {
		normalized, err := domain.NormalizePhone(req.PhoneNumber)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}

	invoice := invoiceRequest{
		TransactionID:   req.Reference,
		PaymentAccount:  c.cfg.APIKey,
		Amount:          req.Amount,
		Currency:        req.Currency,
		Description:     req.Description,
		CallbackURL:     c.cfg.CallbackURL,
		PaymentChannel:  strings.ToUpper(channel.Kind),
		PaymentOperator: channel.OperatorCode,
	}

	var invoiceResp invoiceResponse
	if err := c.post(ctx, "/payments/invoices", invoice, &invoiceResp); err != nil {
		return nil, err
	}
	if !invoiceResp.Success || invoiceResp.Data.InvoiceNumber == "" {
		c.log.Warn("invoice creation rejected", zap.String("message", invoiceResp.Message))
		return nil, domain.ErrGatewayUnavailable
	}

	result := &domain.InitiateResult{
		GatewayTransactionID: req.Reference,
		InvoiceNumber:        invoiceResp.Data.InvoiceNumber,
		PaymentURL:           invoiceResp.Data.PaymentLinkURL,
		Status:               domain.StatusPending,
	}

	if channel.IsMobileMoney() {
		push := pushRequest{
			AccountIdentifier: phone,
			PaymentProvider:   channel.OperatorCode,
			InvoiceNumber:     invoiceResp.Data.InvoiceNumber,
		}
		var pushResp pushResponse
		if err := c.post(ctx, "/payments/transactions/initiate", push, &pushResp); err != nil {
			return nil, err
		}
		if !pushResp.Success {
			c.log.Warn("collection push rejected", zap.String("message", pushResp.Message))
			return nil, domain.ErrGatewayUnavailable
		}
		raw, _ := json.Marshal(pushResp)
		result.Raw = raw
		return result, nil
	}

	raw, _ := json.Marshal(invoiceResp)
	result.Raw = raw
	return result, nil
}

func (c *Client) GetStatus(ctx context.Context, gatewayTransactionID string) (domain.TransactionStatus, error) {
	endpoint := fmt.Sprintf("%s/payments/invoices/%s", strings.TrimRight(c.cfg.BaseURL, "/"), gatewayTransactionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", domain.ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", domain.ErrInvalidPayload
	}
	if resp.StatusCode >= 400 {
		return "", domain.ErrGatewayUnavailable
	}

	var parsed invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", domain.ErrInvalidPayload
	}
	return mapStatus(parsed.Data.PaymentStatus), nil
}

// VerifyCallback checks the HMAC-SHA256 of the raw payload against the
// shared webhook secret. Comparison is constant time.
func (c *Client) VerifyCallback(payload []byte, headers http.Header) error {
	header := strings.TrimSpace(headers.Get(SignatureHeader))
	if header == "" {
		return domain.ErrInvalidSignature
	}
	provided := strings.TrimPrefix(header, "sha256=")
	if provided == header {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.WebhookSecret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	c.setHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ErrGatewayUnavailable
	}
	if resp.StatusCode >= 500 {
		return domain.ErrGatewayUnavailable
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.ErrInvalidPayload
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.SecretKey != "" {
		req.Header.Set(secretKeyHeader, c.cfg.SecretKey)
	}
}

func mapStatus(raw string) domain.TransactionStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PAID", "SUCCESS", "SUCCESSFUL", "COMPLETED":
		return domain.StatusCompleted
	case "FAILED", "EXPIRED", "REJECTED":
		return domain.StatusFailed
	case "CANCELLED":
		return domain.StatusCancelled
	default:
		return domain.StatusPending
	}
}
