package rail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/metrics"
)

const (
	serviceName = "payment-rail"
	mediaType   = "application/vnd.dwolla.v1.hal+json"
	currency    = "USD"

	// tokenSkew refreshes the access token this long before the rail expires it.
	tokenSkew = time.Minute
)

// Client is the subset of the ACH rail API the ledger needs.
type Client interface {
	// CreateTransfer asks the rail to move amount from the source funding source to the
	// destination one and returns the rail's transfer reference.
	CreateTransfer(ctx context.Context, sourceRef, destRef string, amount decimal.Decimal) (string, error)
	CancelTransfer(ctx context.Context, ref string) error
}

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	MaxRetries   uint64

	// InitialInterval is the first backoff wait. Zero uses the backoff package default.
	InitialInterval time.Duration
}

// StatusError is returned when the rail answers with a non-success HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rail responded %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

type client struct {
	cfg  Config
	http *resty.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func New(cfg Config) Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", mediaType)

	return &client{cfg: cfg, http: httpClient}
}

type link struct {
	Href string `json:"href"`
}

type money struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type transferRequest struct {
	Links  map[string]link `json:"_links"`
	Amount money           `json:"amount"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *client) CreateTransfer(ctx context.Context, sourceRef, destRef string, amount decimal.Decimal) (string, error) {
	logger.ExternalServiceCall(serviceName, "CreateTransfer", "source", sourceRef, "destination", destRef, "amount", amount.StringFixed(2))

	body := transferRequest{
		Links: map[string]link{
			"source":      {Href: c.resourceURL("funding-sources", sourceRef)},
			"destination": {Href: c.resourceURL("funding-sources", destRef)},
		},
		Amount: money{Currency: currency, Value: amount.Abs().StringFixed(2)},
	}
	// One key for every attempt so a retried request cannot create a second transfer.
	idempotencyKey := uuid.NewString()

	var ref string
	err := c.retry(ctx, "create_transfer", func(token string) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("Content-Type", mediaType).
			SetHeader("Idempotency-Key", idempotencyKey).
			SetBody(body).
			Post("/transfers")
		if err != nil {
			return err
		}
		if resp.StatusCode() != http.StatusCreated {
			return &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
		}
		ref = lastSegment(resp.Header().Get("Location"))
		if ref == "" {
			return backoff.Permanent(errors.New("rail response has no transfer location"))
		}
		return nil
	})

	logger.ExternalServiceResult(serviceName, "CreateTransfer", err, "transferRef", ref)
	if err != nil {
		return "", err
	}
	return ref, nil
}

func (c *client) CancelTransfer(ctx context.Context, ref string) error {
	logger.ExternalServiceCall(serviceName, "CancelTransfer", "transferRef", ref)

	err := c.retry(ctx, "cancel_transfer", func(token string) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("Content-Type", mediaType).
			SetBody(map[string]string{"status": "cancelled"}).
			Post("/transfers/" + ref)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
		}
		return nil
	})

	logger.ExternalServiceResult(serviceName, "CancelTransfer", err, "transferRef", ref)
	return err
}

// retry runs op with exponential backoff. Transport errors, 5xx and 429 are retried;
// a 401 drops the cached token and is retried once with a fresh one. Any other status
// is permanent.
func (c *client) retry(ctx context.Context, operation string, op func(token string) error) error {
	eb := backoff.NewExponentialBackOff()
	if c.cfg.InitialInterval > 0 {
		eb.InitialInterval = c.cfg.InitialInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.cfg.MaxRetries), ctx)

	reauthorized := false
	err := backoff.RetryNotify(func() error {
		token, err := c.token(ctx)
		if err != nil {
			return permanentUnlessTemporary(err)
		}

		err = op(token)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized && !reauthorized {
			reauthorized = true
			c.invalidateToken()
			return err
		}
		return permanentUnlessTemporary(err)
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("Retrying payment rail request", "operation", operation, "error", err, "wait", wait)
	})

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.RailRequests.WithLabelValues(operation, outcome).Inc()
	return err
}

// token returns a cached OAuth access token, requesting a new one via the client
// credentials grant when it is missing or about to expire.
func (c *client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Add(tokenSkew).Before(c.expiresAt) {
		return c.accessToken, nil
	}

	var tok tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetHeader("Accept", "application/json").
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&tok).
		Post("/token")
	if err != nil {
		return "", fmt.Errorf("request access token: %w", err)
	}
	if resp.IsError() {
		return "", &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	if tok.AccessToken == "" {
		return "", backoff.Permanent(errors.New("rail token response has no access_token"))
	}

	c.accessToken = tok.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func permanentUnlessTemporary(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && !statusErr.Temporary() {
		return backoff.Permanent(err)
	}
	return err
}

func (c *client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

func (c *client) resourceURL(kind, id string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.cfg.BaseURL, "/"), kind, id)
}

func lastSegment(location string) string {
	location = strings.TrimRight(location, "/")
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return location[i+1:]
	}
	return location
}
