package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"bol-invoice-api/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const maxResponseBody = 1 << 20

// Config holds retailer API client configuration
type Config struct {
	BaseURL           string
	TokenURL          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	PollInterval      time.Duration
	MaxPollAttempts   int
	TokenExpiryMargin time.Duration
}

// DefaultConfig returns the production endpoints and conservative limits
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://api.bol.com/retailer",
		TokenURL:          "https://login.bol.com/token",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
		Burst:             5,
		PollInterval:      2 * time.Second,
		MaxPollAttempts:   10,
		TokenExpiryMargin: 60 * time.Second,
	}
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for API and token calls
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClock replaces the clock used for token expiry
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithTokenFetcher replaces the OAuth client-credentials exchange
func WithTokenFetcher(fetch TokenFetcher) Option {
	return func(c *Client) {
		c.fetch = fetch
	}
}

// Client talks to the marketplace retailer API on behalf of many seller accounts
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     *TokenCache
	fetch      TokenFetcher
	now        func() time.Time
	logger     *logrus.Logger
}

// NewClient creates a retailer API client
func NewClient(config Config, logger *logrus.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	if config.MaxPollAttempts <= 0 {
		config.MaxPollAttempts = 1
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetch == nil {
		c.fetch = c.clientCredentialsToken
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	c.limiter = rate.NewLimiter(limit, config.Burst)
	c.tokens = NewTokenCache(c.fetch, config.TokenExpiryMargin, c.now)

	return c
}

// GetOrder fetches an order. A missing order returns nil without error.
func (c *Client) GetOrder(ctx context.Context, creds Credentials, orderID string) (*models.Order, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	endpoint := c.config.BaseURL + "/orders/" + url.PathEscape(orderID)
	status, body, err := c.do(ctx, creds, "get_order", func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if !isSuccess(status) {
		return nil, &APIError{Op: "get_order", StatusCode: status, Body: string(body)}
	}

	var order bolOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", orderID, err)
	}

	return order.toModel(c.now()), nil
}

// UploadInvoice submits an invoice document and returns the process status tracking it
func (c *Client) UploadInvoice(ctx context.Context, creds Credentials, upload InvoiceUpload) (*ProcessStatus, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	metadata, err := json.Marshal(upload.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoice metadata: %w", err)
	}

	endpoint := c.config.BaseURL + "/orders/" + url.PathEscape(upload.MarketplaceOrderID) + "/invoices"
	status, body, err := c.do(ctx, creds, "upload_invoice", func() (*http.Request, error) {
		payload, contentType, err := encodeInvoiceUpload(upload, metadata)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, payload)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, &APIError{Op: "upload_invoice", StatusCode: status, Body: string(body)}
	}

	var process ProcessStatus
	if err := json.Unmarshal(body, &process); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	return &process, nil
}

// GetProcessStatus fetches a process status. An unknown id returns nil without error.
func (c *Client) GetProcessStatus(ctx context.Context, creds Credentials, processStatusID string) (*ProcessStatus, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	endpoint := c.config.BaseURL + "/process-status/" + url.PathEscape(processStatusID)
	status, body, err := c.do(ctx, creds, "get_process_status", func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if !isSuccess(status) {
		return nil, &APIError{Op: "get_process_status", StatusCode: status, Body: string(body)}
	}

	var process ProcessStatus
	if err := json.Unmarshal(body, &process); err != nil {
		return nil, fmt.Errorf("failed to decode process status: %w", err)
	}

	return &process, nil
}

// WaitForProcess polls a process status until it is terminal.
// When the attempts run out the last known status is returned with ErrPollAttemptsExhausted.
func (c *Client) WaitForProcess(ctx context.Context, creds Credentials, processStatusID string) (*ProcessStatus, error) {
	var last *ProcessStatus
	for attempt := 1; attempt <= c.config.MaxPollAttempts; attempt++ {
		process, err := c.GetProcessStatus(ctx, creds, processStatusID)
		if err != nil {
			return last, err
		}
		if process != nil {
			last = process
			if process.IsTerminal() {
				return process, nil
			}
		}

		if attempt == c.config.MaxPollAttempts {
			break
		}

		c.logger.WithFields(logrus.Fields{
			"process_status_id": processStatusID,
			"attempt":           attempt,
		}).Debug("Process still pending")

		timer := time.NewTimer(c.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, ctx.Err()
		case <-timer.C:
		}
	}

	return last, ErrPollAttemptsExhausted
}

// do sends one API call. A 401 drops the cached token and the call is retried once.
func (c *Client) do(ctx context.Context, creds Credentials, op string, build func() (*http.Request, error)) (int, []byte, error) {
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("rate limiter: %w", err)
		}

		token, err := c.tokens.Token(ctx, creds)
		if err != nil {
			return 0, nil, err
		}

		req, err := build()
		if err != nil {
			return 0, nil, fmt.Errorf("failed to build %s request: %w", op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", AcceptHeader)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, fmt.Errorf("marketplace %s request failed: %w", op, err)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		resp.Body.Close()
		if err != nil {
			return 0, nil, fmt.Errorf("failed to read %s response: %w", op, err)
		}

		c.logger.WithFields(logrus.Fields{
			"operation": op,
			"status":    resp.StatusCode,
			"attempt":   attempt,
			"duration":  time.Since(start),
		}).Debug("Marketplace API call")

		if resp.StatusCode == http.StatusUnauthorized && attempt == 1 {
			c.tokens.Invalidate(creds)
			continue
		}

		return resp.StatusCode, body, nil
	}
}

func (c *Client) clientCredentialsToken(ctx context.Context, creds Credentials) (*oauth2.Token, error) {
	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     c.config.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return cfg.Token(ctx)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.config.Timeout)
}

func encodeInvoiceUpload(upload InvoiceUpload, metadata []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileName := upload.FileName
	if fileName == "" {
		fileName = "invoice.pdf"
	}
	fileHeader := make(textproto.MIMEHeader)
	fileHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="invoice"; filename="%s"`, escapeQuotes(fileName)))
	fileHeader.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(fileHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(upload.PDF); err != nil {
		return nil, "", err
	}

	metaHeader := make(textproto.MIMEHeader)
	metaHeader.Set("Content-Disposition", `form-data; name="metadata"`)
	metaHeader.Set("Content-Type", "application/json")
	part, err = writer.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(metadata); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
