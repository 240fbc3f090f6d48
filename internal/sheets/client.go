// Package sheets is a minimal Google Sheets v4 values client.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
	"golang.org/x/time/rate"

	"github.com/onnwee/minimonday/backend/internal/config"
	"github.com/onnwee/minimonday/backend/internal/httpx"
	"github.com/onnwee/minimonday/backend/internal/logger"
	"github.com/onnwee/minimonday/backend/internal/metrics"
	"github.com/onnwee/minimonday/backend/internal/tracing"
)

const (
	// Scope grants read/write access to spreadsheets.
	Scope = "https://www.googleapis.com/auth/spreadsheets"
	// DefaultTokenURL is Google's OAuth2 token endpoint.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"
	DefaultBaseURL  = "https://sheets.googleapis.com"
)

// ErrNoSpreadsheet is returned when no spreadsheet id is configured.
var ErrNoSpreadsheet = errors.New("sheets: spreadsheet id not configured")

// ValueRange mirrors the Sheets API resource of the same name.
type ValueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values"`
}

// UpdateResult summarizes a write.
type UpdateResult struct {
	SpreadsheetID string `json:"spreadsheetId"`
	UpdatedRange  string `json:"updatedRange"`
	UpdatedRows   int    `json:"updatedRows"`
	UpdatedCells  int    `json:"updatedCells"`
}

type appendResponse struct {
	Updates UpdateResult `json:"updates"`
}

// ServiceAccount holds JWT credentials for server-to-server auth.
type ServiceAccount struct {
	Email      string
	PrivateKey string // PEM
	TokenURL   string // defaults to DefaultTokenURL
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	SpreadsheetID string
	Timeout       time.Duration
	UserAgent     string
	RPS           float64 // <= 0 disables client-side limiting
	Burst         int
	Credentials   *ServiceAccount // nil for an unauthenticated client
	Observer      httpx.Observer
}

// Client talks to the Sheets values API.
type Client struct {
	baseURL       string
	spreadsheetID string
	http          *http.Client
	limiter       *rate.Limiter
	obs           httpx.Observer
	log           *slog.Logger
}

// New builds a client. With credentials the transport is wrapped by an
// oauth2 JWT token source that fetches and refreshes access tokens.
func New(opts Options) (*Client, error) {
	if opts.SpreadsheetID == "" {
		return nil, ErrNoSpreadsheet
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	hc := httpx.NewClient(opts.Timeout, opts.UserAgent)
	if sa := opts.Credentials; sa != nil {
		tokenURL := sa.TokenURL
		if tokenURL == "" {
			tokenURL = DefaultTokenURL
		}
		jc := &jwt.Config{
			Email:      sa.Email,
			PrivateKey: []byte(sa.PrivateKey),
			Scopes:     []string{Scope},
			TokenURL:   tokenURL,
		}
		// token requests share the user-agent transport
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		authed := jc.Client(ctx)
		authed.Timeout = opts.Timeout
		hc = authed
	}

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	return &Client{
		baseURL:       opts.BaseURL,
		spreadsheetID: opts.SpreadsheetID,
		http:          hc,
		limiter:       limiter,
		obs:           opts.Observer,
		log:           logger.WithComponent("sheets"),
	}, nil
}

// NewFromConfig builds a client from environment configuration.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	opts := Options{
		BaseURL:       cfg.SheetsBaseURL,
		SpreadsheetID: cfg.SpreadsheetID,
		Timeout:       cfg.HTTPTimeout,
		UserAgent:     cfg.UserAgent,
		RPS:           cfg.SheetsRPS,
		Burst:         cfg.SheetsBurst,
	}
	if cfg.SheetsCredentialsConfigured() {
		opts.Credentials = &ServiceAccount{
			Email:      cfg.GoogleServiceAccountEmail,
			PrivateKey: cfg.GooglePrivateKey,
		}
	}
	if cfg.LogHTTPRetries {
		opts.Observer = httpx.LogObserver("sheets")
	}
	return New(opts)
}

// Get reads the values in rng (A1 notation, e.g. "Tasks!A1:Z").
func (c *Client) Get(ctx context.Context, rng string) (ValueRange, error) {
	var out ValueRange
	err := c.do(ctx, "get", rng, http.MethodGet, c.valuesURL(rng, "", nil), nil, &out)
	return out, err
}

// Append adds rows after the last row of the table found in rng.
func (c *Client) Append(ctx context.Context, rng string, rows [][]string) (UpdateResult, error) {
	q := url.Values{
		"valueInputOption": {"USER_ENTERED"},
		"insertDataOption": {"INSERT_ROWS"},
	}
	var out appendResponse
	err := c.do(ctx, "append", rng, http.MethodPost, c.valuesURL(rng, ":append", q), ValueRange{Range: rng, Values: rows}, &out)
	return out.Updates, err
}

// Update overwrites the cells in rng.
func (c *Client) Update(ctx context.Context, rng string, rows [][]string) (UpdateResult, error) {
	q := url.Values{"valueInputOption": {"USER_ENTERED"}}
	var out UpdateResult
	err := c.do(ctx, "update", rng, http.MethodPut, c.valuesURL(rng, "", q), ValueRange{Range: rng, Values: rows}, &out)
	return out, err
}

// Clear empties the cells in rng, keeping formatting.
func (c *Client) Clear(ctx context.Context, rng string) error {
	return c.do(ctx, "clear", rng, http.MethodPost, c.valuesURL(rng, ":clear", nil), struct{}{}, nil)
}

func (c *Client) valuesURL(rng, verb string, q url.Values) string {
	u := c.baseURL + "/v4/spreadsheets/" + url.PathEscape(c.spreadsheetID) + "/values/" + url.PathEscape(rng) + verb
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, op, rng, method, u string, body, out any) error {
	ctx, span := tracing.StartSpanWith(ctx, "sheets."+op, map[string]string{"sheets.range": rng})

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			tracing.EndSpan(span, err)
			return fmt.Errorf("encode %s request: %w", op, err)
		}
	}

	build := func(ctx context.Context) (*http.Request, error) {
		var req *http.Request
		var err error
		if payload != nil {
			req, err = http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
			if err == nil {
				req.Header.Set("Content-Type", "application/json")
			}
		} else {
			req, err = http.NewRequestWithContext(ctx, method, u, nil)
		}
		return req, err
	}

	start := time.Now()
	err := httpx.DoJSON(ctx, c.http, build, c.wait, c.obs, out)
	metrics.SheetsRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		err = fromTransport(err)
		metrics.SheetsRequests.WithLabelValues(op, statusLabel(err)).Inc()
		c.log.DebugContext(ctx, "sheets request failed", "operation", op, "range", rng, "error", err)
		tracing.EndSpan(span, err)
		return err
	}
	metrics.SheetsRequests.WithLabelValues(op, "success").Inc()
	tracing.EndSpan(span, nil)
	return nil
}

// wait blocks on the client-side limiter.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if !c.limiter.Allow() {
		metrics.SheetsRateLimitWaits.Inc()
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func statusLabel(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.StatusCode/100) + "xx"
	}
	return "error"
}
