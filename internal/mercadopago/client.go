package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://api.mercadopago.com"

// requestTimeout is fixed: the processor either answers in time or the
// operation fails to the user. No retries.
const requestTimeout = 30 * time.Second

type Config struct {
	AccessToken    string
	Env            string // "test" | "production"
	TestBuyerEmail string
	BaseURL        string
}

// Client is a thin REST wrapper over the Mercado Pago preapproval API.
type Client struct {
	baseURL        string
	accessToken    string
	env            string
	testBuyerEmail string
	httpClient     *http.Client
	logger         *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:        baseURL,
		accessToken:    config.AccessToken,
		env:            config.Env,
		testBuyerEmail: config.TestBuyerEmail,
		httpClient:     &http.Client{Timeout: requestTimeout},
		logger:         logger,
	}
}

// APIError carries the processor's HTTP status and raw body so callers can
// inspect failure details (e.g. the callerId rejection on stale ids).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: status %d: %s", e.StatusCode, e.Body)
}

// IsInvalidCaller reports the 400 the API returns when a stored preapproval
// id belongs to a different caller. The stale id should be discarded.
func IsInvalidCaller(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusBadRequest && strings.Contains(apiErr.Body, "callerId")
}

type AutoRecurring struct {
	CurrencyID        string      `json:"currency_id"`
	TransactionAmount json.Number `json:"transaction_amount"`
	Frequency         int         `json:"frequency"`
	FrequencyType     string      `json:"frequency_type"`
	NextPaymentDate   string      `json:"next_payment_date,omitempty"`
}

type Plan struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	InitPoint string `json:"init_point"`
}

type Preapproval struct {
	ID            string        `json:"id"`
	Status        string        `json:"status"`
	Reason        string        `json:"reason"`
	PayerEmail    string        `json:"payer_email"`
	DateCreated   string        `json:"date_created"`
	AutoRecurring AutoRecurring `json:"auto_recurring"`
}

type searchResult struct {
	Results []Preapproval `json:"results"`
}

type PlanParams struct {
	Amount   int64 // minor units
	Currency string
	Annual   bool
	Reason   string
	BackURL  string
}

// zeroDecimalCurrencies send whole amounts; everything else sends
// amount/100 with two decimals.
var zeroDecimalCurrencies = map[string]bool{
	"CLP": true,
	"PYG": true,
}

// TransactionAmount renders a minor-unit amount the way the API expects it
// for the currency.
func TransactionAmount(amount int64, currency string) json.Number {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return json.Number(strconv.FormatInt(amount, 10))
	}
	major := decimal.NewFromInt(amount).Div(decimal.NewFromInt(100))
	return json.Number(major.StringFixed(2))
}

// BuyerEmail lowercases the payer email, substituting the configured test
// buyer in test mode so sandbox checkouts always use a sandbox account.
func (c *Client) BuyerEmail(payerEmail string) string {
	if c.env == "test" && strings.TrimSpace(c.testBuyerEmail) != "" {
		return strings.ToLower(strings.TrimSpace(c.testBuyerEmail))
	}
	return strings.ToLower(strings.TrimSpace(payerEmail))
}

// CreatePlan creates a preapproval plan and returns it with its init_point,
// the URL the payer is redirected to for card authorization.
func (c *Client) CreatePlan(ctx context.Context, params PlanParams) (*Plan, error) {
	frequency := 1
	if params.Annual {
		frequency = 12
	}
	payload := map[string]interface{}{
		"reason":   shorten(params.Reason, 90),
		"back_url": params.BackURL,
		"auto_recurring": AutoRecurring{
			CurrencyID:        params.Currency,
			TransactionAmount: TransactionAmount(params.Amount, params.Currency),
			Frequency:         frequency,
			FrequencyType:     "months",
		},
	}

	var plan Plan
	if err := c.do(ctx, http.MethodPost, "/preapproval_plan", payload, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *Client) GetPreapproval(ctx context.Context, preapprovalID string) (*Preapproval, error) {
	var p Preapproval
	if err := c.do(ctx, http.MethodGet, "/preapproval/"+url.PathEscape(preapprovalID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) SearchByPlan(ctx context.Context, planID string, limit int) ([]Preapproval, error) {
	q := url.Values{}
	q.Set("preapproval_plan_id", planID)
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")
	q.Set("limit", strconv.Itoa(limit))
	return c.search(ctx, q)
}

func (c *Client) SearchByPayerEmail(ctx context.Context, payerEmail string, limit int) ([]Preapproval, error) {
	q := url.Values{}
	q.Set("payer_email", strings.ToLower(strings.TrimSpace(payerEmail)))
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")
	q.Set("limit", strconv.Itoa(limit))
	return c.search(ctx, q)
}

func (c *Client) SearchAll(ctx context.Context, limit, offset int) ([]Preapproval, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return c.search(ctx, q)
}

func (c *Client) search(ctx context.Context, query url.Values) ([]Preapproval, error) {
	var result searchResult
	if err := c.do(ctx, http.MethodGet, "/preapproval/search?"+query.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("mercadopago request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mercadopago request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Warn("mercadopago error response",
			"method", method, "path", path, "status", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func shorten(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Trackify"
	}
	if len(text) <= n {
		return text
	}
	return text[:n-3] + "..."
}
