// Package popbill is a thin HTTP client for the Popbill API surface this
// engine uses: tax invoices, message sending and EasyFin bank statements.
package popbill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	portssvc "github.com/denthub/credit-engine/internal/core/ports/services"
	"github.com/denthub/credit-engine/internal/platform/config"
)

const defaultTimeout = 30 * time.Second

// Client implements portssvc.PopbillClient over Popbill's JSON API.
type Client struct {
	baseURL   string
	linkID    string
	secretKey string
	corpNum   string
	senderNum string

	// Monitored deposit account, used when a statement request names none.
	bankCode      string
	accountNumber string

	httpClient *http.Client
}

// NewClient builds a provider client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.PopbillBaseURL, "/"),
		linkID:        cfg.PopbillLinkID,
		secretKey:     cfg.PopbillSecretKey,
		corpNum:       cfg.PopbillCorpNum,
		senderNum:     cfg.PopbillSenderNum,
		bankCode:      cfg.PopbillBankCode,
		accountNumber: cfg.PopbillAccountNumber,
		httpClient:    &http.Client{Timeout: defaultTimeout},
	}
}

// Ensure Client implements portssvc.PopbillClient
var _ portssvc.PopbillClient = (*Client)(nil)

// apiError is the provider's error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// retryableCodes are provider conditions that clear up on their own: rate
// limits, maintenance windows and statement collection still in progress.
var retryableCodes = map[string]bool{
	"RATE_LIMITED":       true,
	"MAINTENANCE":        true,
	"JOB_IN_PROGRESS":    true,
	"COLLECTING":         true,
	"TEMPORARY_FAILURE":  true,
	"GATEWAY_UNHEALTHY":  true,
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request for %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-pb-linkid", c.linkID)
	req.Header.Set("x-pb-secretkey", c.secretKey)
	req.Header.Set("x-pb-corpnum", c.corpNum)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failures are always worth retrying.
		return &portssvc.ProviderError{Code: "NETWORK", Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &portssvc.ProviderError{Code: "NETWORK", Message: err.Error(), Retryable: true}
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Code == "" {
			apiErr = apiError{Code: fmt.Sprintf("HTTP_%d", resp.StatusCode), Message: strings.TrimSpace(string(raw))}
		}
		return &portssvc.ProviderError{
			Code:      apiErr.Code,
			Message:   apiErr.Message,
			Retryable: retryableCodes[apiErr.Code] || resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	if respBody != nil {
		if err := json.Unmarshal(raw, respBody); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}

func (c *Client) IssueTaxInvoice(ctx context.Context, inv portssvc.TaxInvoice) (string, error) {
	var out struct {
		NtsConfirmNum string `json:"ntsConfirmNum"`
	}
	if err := c.do(ctx, http.MethodPost, "/taxinvoice/issue", inv, &out); err != nil {
		return "", err
	}
	return out.NtsConfirmNum, nil
}

func (c *Client) CancelTaxInvoice(ctx context.Context, mgtKey string) error {
	body := map[string]string{"mgtKey": mgtKey}
	return c.do(ctx, http.MethodPost, "/taxinvoice/cancel", body, nil)
}

func (c *Client) SendKakao(ctx context.Context, msg portssvc.KakaoMessage) (string, error) {
	var out struct {
		ReceiptNum string `json:"receiptNum"`
	}
	req := struct {
		portssvc.KakaoMessage
		SenderNum string `json:"senderNum"`
	}{KakaoMessage: msg, SenderNum: c.senderNum}
	if err := c.do(ctx, http.MethodPost, "/kakao/send", req, &out); err != nil {
		return "", err
	}
	return out.ReceiptNum, nil
}

func (c *Client) SendSMS(ctx context.Context, msg portssvc.TextMessage) (string, error) {
	return c.sendText(ctx, "/message/sms", msg)
}

func (c *Client) SendLMS(ctx context.Context, msg portssvc.TextMessage) (string, error) {
	return c.sendText(ctx, "/message/lms", msg)
}

func (c *Client) sendText(ctx context.Context, path string, msg portssvc.TextMessage) (string, error) {
	var out struct {
		ReceiptNum string `json:"receiptNum"`
	}
	req := struct {
		portssvc.TextMessage
		SenderNum string `json:"senderNum"`
	}{TextMessage: msg, SenderNum: c.senderNum}
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return "", err
	}
	return out.ReceiptNum, nil
}

func (c *Client) RequestBankStatement(ctx context.Context, bankCode, accountNumber, startDate, endDate string) (string, error) {
	if bankCode == "" {
		bankCode = c.bankCode
	}
	if accountNumber == "" {
		accountNumber = c.accountNumber
	}
	var out struct {
		JobID string `json:"jobID"`
	}
	body := map[string]string{
		"bankCode":      bankCode,
		"accountNumber": accountNumber,
		"startDate":     startDate,
		"endDate":       endDate,
	}
	if err := c.do(ctx, http.MethodPost, "/easyfin/bank/request", body, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

func (c *Client) FetchBankStatement(ctx context.Context, jobID string) ([]portssvc.BankStatementEntry, error) {
	var out struct {
		State   string `json:"state"` // COLLECTING | DONE
		Entries []struct {
			TID            string          `json:"tid"`
			Deposit        decimal.Decimal `json:"deposit"`
			Withdraw       decimal.Decimal `json:"withdraw"`
			PrintedContent string          `json:"printedContent"`
			TransDT        string          `json:"transDT"` // RFC3339
		} `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/easyfin/bank/jobs/"+jobID, nil, &out); err != nil {
		return nil, err
	}
	if out.State != "DONE" {
		return nil, &portssvc.ProviderError{Code: "COLLECTING", Message: "statement collection in progress", Retryable: true}
	}

	entries := make([]portssvc.BankStatementEntry, 0, len(out.Entries))
	for _, e := range out.Entries {
		occurredAt, err := time.Parse(time.RFC3339, e.TransDT)
		if err != nil {
			return nil, fmt.Errorf("bad statement timestamp %q: %w", e.TransDT, err)
		}
		entries = append(entries, portssvc.BankStatementEntry{
			ExternalID:     e.TID,
			DepositAmount:  e.Deposit,
			WithdrawAmount: e.Withdraw,
			PrintedContent: e.PrintedContent,
			OccurredAt:     occurredAt,
		})
	}
	return entries, nil
}
