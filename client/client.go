package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/domain"
	"github.com/plotwise/seedtrace/internal/usecase"
)

const (
	defaultTimeout = 10 * time.Second

	// Transient fetch failures are retried a bounded number of times with a
	// fixed delay. Mutations are never auto-retried: after an ambiguous
	// network failure a retry could double-submit.
	fetchRetries   = 2
	fetchRetryWait = 500 * time.Millisecond
)

// Service is the operation surface the client-side components run against.
type Service interface {
	FetchOptions(ctx context.Context, site string) ([]seedtrace.Option, error)
	FetchRecords(ctx context.Context, scope seedtrace.Scope, field string) ([]seedtrace.Record, error)
	CheckDuplicate(ctx context.Context, scope seedtrace.Scope, code string) (seedtrace.StatusResult, error)
	SubmitDiscard(ctx context.Context, input usecase.SubmitInput) (*seedtrace.Record, error)
}

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	baseURL   string
	token     string
	userAgent string
}

func New(baseURL string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(5*time.Minute, 10*time.Minute),
		baseURL:   baseURL,
		userAgent: "seedtrace-client",
	}
	httpClient.Transport = c
	return c
}

// WithToken sets the operator bearer token used on every request.
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return http.DefaultTransport.RoundTrip(req)
}

type apiError struct {
	Error string `json:"error"`
}

// do performs one request and decodes either the payload or the error
// envelope. Transport failures and error statuses are normalized into the
// domain taxonomy: callers never see the difference between a refused
// connection, a 5xx, and malformed JSON.
func (c *Client) do(ctx context.Context, method, path string, body, response any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(domain.DependencyUnavailableError{Dependency: "discard service"}, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var envelope apiError
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.Error == "" {
			envelope.Error = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		}
		return resp.StatusCode, normalizeStatus(resp.StatusCode, envelope.Error)
	}

	if response != nil {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return resp.StatusCode, errors.Wrap(domain.DependencyUnavailableError{Dependency: "discard service"}, err.Error())
		}
	}
	return resp.StatusCode, nil
}

// normalizeStatus maps an error status to the taxonomy while keeping the
// server-reported reason verbatim for display.
func normalizeStatus(status int, msg string) error {
	switch status {
	case http.StatusBadRequest:
		return errors.Wrap(domain.ValidationError{}, msg)
	case http.StatusNotFound:
		return errors.Wrap(domain.NotFoundError{}, msg)
	case http.StatusConflict:
		return errors.Wrap(domain.AlreadyDiscardedError{}, msg)
	case http.StatusServiceUnavailable:
		return errors.Wrap(domain.DependencyUnavailableError{}, msg)
	default:
		return errors.Wrap(domain.PersistenceError{}, msg)
	}
}

// getWithRetry runs an idempotent fetch, retrying transient failures with a
// fixed delay. Client-side errors (4xx) are never retried.
func (c *Client) getWithRetry(ctx context.Context, path string, response any) error {
	var lastErr error
	for attempt := 0; attempt <= fetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(fetchRetryWait):
			}
		}
		status, err := c.do(ctx, http.MethodGet, path, nil, response)
		if err == nil {
			return nil
		}
		lastErr = err
		if status >= 400 && status < 500 {
			return err
		}
	}
	return lastErr
}

func (c *Client) FetchOptions(ctx context.Context, site string) ([]seedtrace.Option, error) {
	cacheKey := "options:" + site
	if x, found := c.cache.Get(cacheKey); found {
		return x.([]seedtrace.Option), nil
	}

	var options []seedtrace.Option
	err := c.getWithRetry(ctx, "/api/v1/options?site="+url.QueryEscape(site), &options)
	if err != nil {
		return nil, err
	}

	c.cache.Set(cacheKey, options, cache.DefaultExpiration)
	return options, nil
}

func scopeQuery(scope seedtrace.Scope) url.Values {
	q := url.Values{}
	q.Set("site", scope.Site)
	q.Set("year", scope.Year)
	q.Set("recordType", scope.RecordType)
	return q
}

// FetchRecords returns the scoped record set, optionally narrowed to one
// field. A none-found answer from the server is an empty set here, so loads
// can clear the table instead of erroring.
func (c *Client) FetchRecords(ctx context.Context, scope seedtrace.Scope, field string) ([]seedtrace.Record, error) {
	q := scopeQuery(scope)
	if field != "" {
		q.Set("field", field)
	}

	var records []seedtrace.Record
	err := c.getWithRetry(ctx, "/api/v1/records?"+q.Encode(), &records)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []seedtrace.Record{}, nil
		}
		return nil, err
	}
	return records, nil
}

func (c *Client) CheckDuplicate(ctx context.Context, scope seedtrace.Scope, code string) (seedtrace.StatusResult, error) {
	q := scopeQuery(scope)
	q.Set("barcode", code)

	var result seedtrace.StatusResult
	err := c.getWithRetry(ctx, "/api/v1/barcodes/check?"+q.Encode(), &result)
	if err != nil {
		return seedtrace.StatusResult{}, err
	}
	return result, nil
}

type validatePayload struct {
	seedtrace.Scope
	Barcode string `json:"barcode"`
}

func (c *Client) ValidateAndDiscard(ctx context.Context, scope seedtrace.Scope, code string) (*seedtrace.Record, error) {
	var record seedtrace.Record
	_, err := c.do(ctx, http.MethodPost, "/api/v1/discards/validate", validatePayload{Scope: scope, Barcode: code}, &record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

type batchPayload struct {
	seedtrace.Scope
	Barcodes []string `json:"barcodes"`
}

func (c *Client) ValidateBatch(ctx context.Context, scope seedtrace.Scope, codes []string) (usecase.BatchResult, error) {
	var result usecase.BatchResult
	_, err := c.do(ctx, http.MethodPost, "/api/v1/discards/validate-batch", batchPayload{Scope: scope, Barcodes: codes}, &result)
	if err != nil {
		return usecase.BatchResult{}, err
	}
	return result, nil
}

func (c *Client) UnmarkDiscard(ctx context.Context, scope seedtrace.Scope, code string) (*seedtrace.Record, error) {
	var record seedtrace.Record
	_, err := c.do(ctx, http.MethodPost, "/api/v1/discards/unmark", validatePayload{Scope: scope, Barcode: code}, &record)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyDiscarded) {
			// 409 on the unmark path means the record was never discarded
			return nil, errors.Wrap(domain.NotDiscardedError{Barcode: code}, err.Error())
		}
		return nil, err
	}
	return &record, nil
}

func (c *Client) SubmitDiscard(ctx context.Context, input usecase.SubmitInput) (*seedtrace.Record, error) {
	var record seedtrace.Record
	_, err := c.do(ctx, http.MethodPost, "/api/v1/discards", input, &record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) GetScope(ctx context.Context) (seedtrace.Scope, error) {
	var scope seedtrace.Scope
	err := c.getWithRetry(ctx, "/api/v1/scope", &scope)
	return scope, err
}

func (c *Client) SetScope(ctx context.Context, scope seedtrace.Scope) error {
	_, err := c.do(ctx, http.MethodPut, "/api/v1/scope", scope, nil)
	return err
}
