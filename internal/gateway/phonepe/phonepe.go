package phonepe

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zeltonlabs/zelton/internal/config"
	"github.com/zeltonlabs/zelton/internal/gateway/domain"
)

// Client talks to the PhonePe standard checkout API. It implements
// domain.CheckoutGateway.
type Client struct {
	baseURL       string
	clientID      string
	clientSecret  string
	clientVersion string
	httpClient    *http.Client
	log           *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func New(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.PhonePeBaseURL, "/"),
		clientID:      cfg.PhonePeClientID,
		clientSecret:  cfg.PhonePeClientSecret,
		clientVersion: cfg.PhonePeClientVersion,
		httpClient:    &http.Client{Timeout: cfg.PhonePeTimeout},
		log:           log.Named("phonepe"),
	}
}

// token returns a cached OAuth access token, refreshing when it is
// within a minute of expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	form := url.Values{
		"client_id":      {c.clientID},
		"client_secret":  {c.clientSecret},
		"client_version": {c.clientVersion},
		"grant_type":     {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError("oauth", resp)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	c.accessToken = body.AccessToken
	c.tokenExpiry = time.Unix(body.ExpiresAt, 0)
	return c.accessToken, nil
}

func (c *Client) CreateCheckout(ctx context.Context, in domain.CreateCheckoutInput) (*domain.CheckoutSession, error) {
	expiry := domain.ClampCheckoutExpiry(in.ExpireAfter)

	payload := map[string]any{
		"merchantOrderId": in.MerchantOrderID,
		"amount":          in.AmountPaise,
		"expireAfter":     int64(expiry.Seconds()),
		"metaInfo":        metaInfo(in.Metadata),
		"paymentFlow": map[string]any{
			"type": "PG_CHECKOUT",
			"merchantUrls": map[string]any{
				"redirectUrl": in.RedirectURL,
			},
		},
	}

	var body struct {
		OrderID     string `json:"orderId"`
		State       string `json:"state"`
		RedirectURL string `json:"redirectUrl"`
		ExpireAt    int64  `json:"expireAt"` // epoch millis
	}
	if err := c.doJSON(ctx, http.MethodPost, "/checkout/v2/pay", payload, &body); err != nil {
		return nil, err
	}

	c.log.Info("checkout created",
		zap.String("merchant_order_id", in.MerchantOrderID),
		zap.String("order_id", body.OrderID),
		zap.Int64("amount_paise", in.AmountPaise))

	return &domain.CheckoutSession{
		MerchantOrderID: in.MerchantOrderID,
		OrderID:         body.OrderID,
		RedirectURL:     body.RedirectURL,
		ExpireAt:        time.UnixMilli(body.ExpireAt),
		State:           body.State,
	}, nil
}

func (c *Client) GetOrderStatus(ctx context.Context, merchantOrderID string) (*domain.OrderStatus, error) {
	path := fmt.Sprintf("/checkout/v2/order/%s/status?details=true", url.PathEscape(merchantOrderID))

	raw, err := c.doRaw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		OrderID        string `json:"orderId"`
		State          string `json:"state"`
		Amount         int64  `json:"amount"`
		PaymentDetails []struct {
			TransactionID string `json:"transactionId"`
			State         string `json:"state"`
		} `json:"paymentDetails"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	status := &domain.OrderStatus{
		State:          body.State,
		AmountPaise:    body.Amount,
		OrderID:        body.OrderID,
		PaymentDetails: raw,
	}
	if len(body.PaymentDetails) > 0 {
		status.TransactionID = body.PaymentDetails[0].TransactionID
	}
	return status, nil
}

func (c *Client) CreateRefund(ctx context.Context, merchantRefundID, originalOrderID string, amountPaise int64) (*domain.RefundResult, error) {
	payload := map[string]any{
		"merchantRefundId":        merchantRefundID,
		"originalMerchantOrderId": originalOrderID,
		"amount":                  amountPaise,
	}

	var body struct {
		RefundID string `json:"refundId"`
		State    string `json:"state"`
		Amount   int64  `json:"amount"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/payments/v2/refund", payload, &body); err != nil {
		return nil, err
	}

	return &domain.RefundResult{
		MerchantRefundID: merchantRefundID,
		RefundID:         body.RefundID,
		State:            body.State,
		AmountPaise:      body.Amount,
	}, nil
}

// ValidateCallback checks the webhook Authorization header against
// SHA256(username:password) and parses the payload. Signature failure
// is reported before any body inspection.
func (c *Client) ValidateCallback(username, password, authHeader string, body []byte) (*domain.Callback, error) {
	sum := sha256.Sum256([]byte(username + ":" + password))
	expected := hex.EncodeToString(sum[:])
	got := strings.ToLower(strings.TrimSpace(authHeader))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return nil, domain.ErrInvalidCallback
	}

	var envelope struct {
		Type    string `json:"type"`
		Payload struct {
			MerchantOrderID string `json:"merchantOrderId"`
			State           string `json:"state"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domain.ErrInvalidCallback
	}

	return &domain.Callback{
		Type:            envelope.Type,
		MerchantOrderID: envelope.Payload.MerchantOrderID,
		State:           envelope.Payload.State,
		RawData:         body,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	raw, err := c.doRaw(ctx, method, path, payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) doRaw(ctx context.Context, method, path string, payload any) ([]byte, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "O-Bearer "+tok)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode == http.StatusGatewayTimeout:
		return nil, domain.ErrGatewayTimeout
	case resp.StatusCode >= 400:
		c.log.Warn("api call failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return nil, fmt.Errorf("phonepe %s: status %d: %w", path, resp.StatusCode, domain.ErrCheckoutRejected)
	}
	return raw, nil
}

func metaInfo(md map[string]string) map[string]any {
	// PhonePe accepts up to five free-form udf slots.
	info := map[string]any{}
	keys := []string{"udf1", "udf2", "udf3", "udf4", "udf5"}
	i := 0
	for k, v := range md {
		if i >= len(keys) {
			break
		}
		info[keys[i]] = k + "=" + v
		i++
	}
	return info
}

// apiError maps a non-200 response outside the doRaw path (the token
// endpoint) onto the shared gateway sentinels.
func apiError(op string, resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case http.StatusGatewayTimeout:
		return domain.ErrGatewayTimeout
	default:
		return fmt.Errorf("phonepe %s: status %d: %w", op, resp.StatusCode, domain.ErrCheckoutRejected)
	}
}

func mapTransportError(err error) error {
	if strings.Contains(err.Error(), "context deadline exceeded") ||
		strings.Contains(err.Error(), "Client.Timeout") {
		return domain.ErrGatewayTimeout
	}
	return err
}

var _ domain.CheckoutGateway = (*Client)(nil)
