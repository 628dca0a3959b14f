package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/zeltonlabs/zelton/internal/config"
	"github.com/zeltonlabs/zelton/internal/gateway/domain"
)

// Client talks to the Cashfree Payouts V2 API. It implements
// domain.PayoutGateway.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	apiVersion   string
	httpClient   *http.Client
	log          *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.CashfreeBaseURL, "/"),
		clientID:     cfg.CashfreeClientID,
		clientSecret: cfg.CashfreeClientSecret,
		apiVersion:   cfg.CashfreeAPIVersion,
		httpClient:   &http.Client{Timeout: cfg.CashfreeTimeout},
		log:          log.Named("cashfree"),
	}
}

func (c *Client) FetchBeneficiary(ctx context.Context, beneficiaryID string) (*domain.Beneficiary, error) {
	path := "/beneficiary?beneficiary_id=" + url.QueryEscape(beneficiaryID)

	var body beneficiaryBody
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	return body.toDomain(), nil
}

func (c *Client) CreateBeneficiary(ctx context.Context, b domain.Beneficiary) (*domain.Beneficiary, error) {
	instrument := map[string]any{}
	if b.VPA != "" {
		instrument["vpa"] = b.VPA
	} else {
		instrument["bank_account_number"] = b.AccountNumber
		instrument["bank_ifsc"] = b.IFSC
	}

	payload := map[string]any{
		"beneficiary_id":   b.ID,
		"beneficiary_name": b.Name,
		"beneficiary_instrument_details": instrument,
		"beneficiary_contact_details": map[string]any{
			"beneficiary_email": b.Email,
			"beneficiary_phone": b.Phone,
		},
	}

	var body beneficiaryBody
	if err := c.do(ctx, http.MethodPost, "/beneficiary", payload, &body); err != nil {
		return nil, err
	}

	c.log.Info("beneficiary created", zap.String("beneficiary_id", b.ID))
	return body.toDomain(), nil
}

func (c *Client) InitiateTransfer(ctx context.Context, in domain.TransferInput) (*domain.Transfer, error) {
	payload := map[string]any{
		"transfer_id":     in.TransferID,
		"transfer_amount": float64(in.AmountPaise) / 100,
		"transfer_mode":   in.TransferMode,
		"beneficiary_details": map[string]any{
			"beneficiary_id": in.BeneficiaryID,
		},
		"transfer_remarks": in.Remarks,
	}

	raw, err := c.doRaw(ctx, http.MethodPost, "/transfers", payload)
	if err != nil {
		return nil, err
	}

	var body transferBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	c.log.Info("transfer initiated",
		zap.String("transfer_id", in.TransferID),
		zap.String("state", body.Status),
		zap.Int64("amount_paise", in.AmountPaise))

	return body.toDomain(raw), nil
}

func (c *Client) FetchTransfer(ctx context.Context, transferID string) (*domain.Transfer, error) {
	path := "/transfers?transfer_id=" + url.QueryEscape(transferID)

	raw, err := c.doRaw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var body transferBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return body.toDomain(raw), nil
}

type beneficiaryBody struct {
	BeneficiaryID     string `json:"beneficiary_id"`
	BeneficiaryName   string `json:"beneficiary_name"`
	BeneficiaryStatus string `json:"beneficiary_status"`
	InstrumentDetails struct {
		BankAccountNumber string `json:"bank_account_number"`
		BankIFSC          string `json:"bank_ifsc"`
		VPA               string `json:"vpa"`
	} `json:"beneficiary_instrument_details"`
	ContactDetails struct {
		Email string `json:"beneficiary_email"`
		Phone string `json:"beneficiary_phone"`
	} `json:"beneficiary_contact_details"`
}

func (b beneficiaryBody) toDomain() *domain.Beneficiary {
	return &domain.Beneficiary{
		ID:            b.BeneficiaryID,
		Name:          b.BeneficiaryName,
		Email:         b.ContactDetails.Email,
		Phone:         b.ContactDetails.Phone,
		AccountNumber: b.InstrumentDetails.BankAccountNumber,
		IFSC:          b.InstrumentDetails.BankIFSC,
		VPA:           b.InstrumentDetails.VPA,
	}
}

type transferBody struct {
	TransferID  string `json:"transfer_id"`
	ReferenceID string `json:"cf_transfer_id"`
	Status      string `json:"status"`
	TransferUTR string `json:"transfer_utr"`
}

func (t transferBody) toDomain(raw []byte) *domain.Transfer {
	return &domain.Transfer{
		TransferID:  t.TransferID,
		ReferenceID: t.ReferenceID,
		State:       t.Status,
		UTR:         t.TransferUTR,
		RawResponse: raw,
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	raw, err := c.doRaw(ctx, method, path, payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) doRaw(ctx context.Context, method, path string, payload any) ([]byte, error) {
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
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.clientSecret)
	req.Header.Set("x-api-version", c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "context deadline exceeded") ||
			strings.Contains(err.Error(), "Client.Timeout") {
			return nil, domain.ErrGatewayTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrBeneficiaryNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode >= 400:
		c.log.Warn("api call failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return nil, fmt.Errorf("cashfree %s: status %d", path, resp.StatusCode)
	}
	return raw, nil
}

var _ domain.PayoutGateway = (*Client)(nil)
