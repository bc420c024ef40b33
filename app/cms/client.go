// Package cms talks to a Sanity-compatible content API.
package cms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"inkwell/app/config"
	"inkwell/app/logger"

	"github.com/goccy/go-json"
)

var (
	// ErrNoToken is returned by writes when no API token is configured.
	ErrNoToken = errors.New("cms: write requires an API token")
)

// APIError is a non-2xx answer from the content API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cms: status %d: %s", e.StatusCode, e.Message)
}

// Options configures a Client.
type Options struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	UseCDN     bool
	Token      string
	Timeout    time.Duration

	// BaseURL replaces the project host, e.g. for a proxy or a test server.
	BaseURL    string
	HTTPClient *http.Client
}

// OptionsFromConfig maps the server configuration onto client options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ProjectID:  cfg.SanityProjectID,
		Dataset:    cfg.SanityDataset,
		APIVersion: cfg.SanityAPIVersion,
		UseCDN:     cfg.SanityUseCDN,
		Token:      cfg.SanityToken,
		Timeout:    cfg.CMSTimeout,
	}
}

// Client issues queries and mutations against one dataset.
type Client struct {
	opts   Options
	http   *http.Client
	logger *logger.Logger
}

func NewClient(opts Options, log *logger.Logger) *Client {
	if opts.APIVersion == "" {
		opts.APIVersion = "2021-10-21"
	}
	if opts.Dataset == "" {
		opts.Dataset = "production"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		opts:   opts,
		http:   httpClient,
		logger: log,
	}
}

// ProjectID returns the configured project.
func (c *Client) ProjectID() string { return c.opts.ProjectID }

// Dataset returns the configured dataset.
func (c *Client) Dataset() string { return c.opts.Dataset }

func (c *Client) baseURL(cdn bool) string {
	if c.opts.BaseURL != "" {
		return strings.TrimRight(c.opts.BaseURL, "/")
	}
	host := "api"
	// Authenticated requests bypass the CDN.
	if cdn && c.opts.Token == "" {
		host = "apicdn"
	}
	return fmt.Sprintf("https://%s.%s.sanity.io", c.opts.ProjectID, host)
}

func (c *Client) endpoint(kind string, cdn bool) string {
	return fmt.Sprintf("%s/v%s/data/%s/%s", c.baseURL(cdn), c.opts.APIVersion, kind, url.PathEscape(c.opts.Dataset))
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

// Fetch runs a query and decodes its result into out. A null result leaves
// out untouched.
func (c *Client) Fetch(ctx context.Context, query string, params map[string]any, out any) error {
	values := url.Values{}
	values.Set("query", query)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("cms: encode param %s: %w", name, err)
		}
		values.Set("$"+name, string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("query", c.opts.UseCDN)+"?"+values.Encode(), nil)
	if err != nil {
		return fmt.Errorf("cms: build query request: %w", err)
	}
	var resp queryResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("cms: decode result: %w", err)
	}
	return nil
}

// Mutation is one entry of a mutate request.
type Mutation struct {
	Create any `json:"create,omitempty"`
}

// MutationResult reports the document a mutation touched.
type MutationResult struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
}

type mutateResponse struct {
	TransactionID string           `json:"transactionId"`
	Results       []MutationResult `json:"results"`
}

// Mutate applies mutations in one transaction.
func (c *Client) Mutate(ctx context.Context, mutations ...Mutation) ([]MutationResult, error) {
	if c.opts.Token == "" {
		return nil, ErrNoToken
	}
	body, err := json.Marshal(map[string]any{"mutations": mutations})
	if err != nil {
		return nil, fmt.Errorf("cms: encode mutations: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("mutate", false)+"?returnIds=true", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cms: build mutate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp mutateResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("cms transaction %s applied %d mutations", resp.TransactionID, len(resp.Results))
	return resp.Results, nil
}

func (c *Client) do(req *http.Request, out any) error {
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cms: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("cms: read response: %w", err)
	}
	c.logger.Debug("cms %s %s -> %d in %s", req.Method, req.URL.Path, res.StatusCode, time.Since(start))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{StatusCode: res.StatusCode, Message: errorMessage(data, res.Status)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("cms: decode response: %w", err)
	}
	return nil
}

// errorMessage pulls the description out of either error shape the API
// answers with.
func errorMessage(data []byte, fallback string) string {
	var nested struct {
		Error struct {
			Description string `json:"description"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &nested) == nil && nested.Error.Description != "" {
		return nested.Error.Description
	}
	var flat struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &flat) == nil {
		if flat.Message != "" {
			return flat.Message
		}
		if flat.Error != "" {
			return flat.Error
		}
	}
	return fallback
}
