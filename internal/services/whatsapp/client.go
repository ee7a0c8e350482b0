// Package whatsapp talks to the WhatsApp Cloud API (Meta Graph API):
// sending replies, downloading media and decoding webhook payloads.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL of the Graph API
	DefaultBaseURL = "https://graph.facebook.com"

	// DefaultAPIVersion is the Graph API version used for every call
	DefaultAPIVersion = "v22.0"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second)
	DefaultRateLimit = 20

	// maxMediaBytes bounds a downloaded attachment (WhatsApp images are at most 5 MB)
	maxMediaBytes = 16 << 20
)

// Client is a WhatsApp Cloud API client
type Client struct {
	baseURL       string
	apiVersion    string
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
	logger        arbor.ILogger
	limiter       *rate.Limiter
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithAPIVersion sets the Graph API version
func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		c.apiVersion = version
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new WhatsApp Cloud API client
func NewClient(phoneNumberID, accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		apiVersion:    DefaultAPIVersion,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:  common.GetLogger(),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewClientFromConfig creates a client from the whatsapp config section
func NewClientFromConfig(config *common.WhatsAppConfig, logger arbor.ILogger) *Client {
	opts := []ClientOption{
		WithLogger(logger),
		WithRateLimit(config.RateLimit),
		WithHTTPClient(&http.Client{Timeout: common.ParseDuration(config.Timeout, DefaultTimeout)}),
	}
	if config.APIBaseURL != "" {
		opts = append(opts, WithBaseURL(config.APIBaseURL))
	}
	if config.APIVersion != "" {
		opts = append(opts, WithAPIVersion(config.APIVersion))
	}
	return NewClient(config.PhoneNumberID, config.AccessToken, opts...)
}

// APIError represents an error from the Graph API
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// graphError is the error envelope of Graph API responses
type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func newAPIError(resp *http.Response, endpoint string) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	message := strings.TrimSpace(string(body))

	var envelope graphError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Endpoint:   endpoint,
	}
}

// do performs an authorized request and returns the response when the status is 2xx
func (c *Client) do(ctx context.Context, method, reqURL, endpoint string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("WhatsApp API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newAPIError(resp, endpoint)
	}
	return resp, nil
}

func (c *Client) graphURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, strings.TrimLeft(path, "/"))
}

// SendText sends a text message to a WhatsApp user
func (c *Client) SendText(ctx context.Context, to, body string) (*SendResponse, error) {
	if c.phoneNumberID == "" {
		return nil, fmt.Errorf("phone number id is required to send messages")
	}

	payload, err := json.Marshal(SendTextRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             TextBody{Body: body},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	endpoint := "/" + c.phoneNumberID + "/messages"
	resp, err := c.do(ctx, http.MethodPost, c.graphURL(endpoint), endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	var result SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// GetMediaInfo resolves a media id to its temporary download URL
func (c *Client) GetMediaInfo(ctx context.Context, mediaID string) (*MediaInfo, error) {
	endpoint := "/" + mediaID
	resp, err := c.do(ctx, http.MethodGet, c.graphURL(endpoint), endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get media url: %w", err)
	}
	defer resp.Body.Close()

	var info MediaInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode media info: %w", err)
	}
	if info.URL == "" {
		return nil, fmt.Errorf("media %s has no download url", mediaID)
	}
	return &info, nil
}

// FetchMedia resolves and downloads an attachment
func (c *Client) FetchMedia(ctx context.Context, mediaID string) (*models.Media, error) {
	info, err := c.GetMediaInfo(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodGet, info.URL, "/"+mediaID+"/download", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	if len(data) > maxMediaBytes {
		return nil, fmt.Errorf("media %s exceeds %d bytes", mediaID, maxMediaBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = info.MIMEType
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	// Drop parameters such as "; charset=binary"
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return &models.Media{Data: data, MIMEType: mimeType}, nil
}

// DownloadMedia implements interfaces.MediaFetcher; failures are logged and yield nil
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) *models.Media {
	if mediaID == "" {
		return nil
	}
	media, err := c.FetchMedia(ctx, mediaID)
	if err != nil {
		c.logger.Warn().Err(err).Str("media_id", mediaID).Msg("Failed to download WhatsApp media")
		return nil
	}
	c.logger.Debug().
		Str("media_id", mediaID).
		Str("mime_type", media.MIMEType).
		Int("size", len(media.Data)).
		Msg("Downloaded WhatsApp media")
	return media
}
