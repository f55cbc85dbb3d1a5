package robotapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/robowifi/internal/logging"
	"github.com/muurk/robowifi/internal/version"
)

const (
	// DefaultPort is the port the robot HTTP server listens on
	DefaultPort = 31950

	// DefaultTimeout is the default HTTP request timeout.
	// Joining a network blocks POST /wifi/configure until the robot associates.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed GET requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second
)

// API paths
const (
	pathHealth        = "/health"
	pathWifiList      = "/wifi/list"
	pathWifiConfigure = "/wifi/configure"
	pathWifiDiscon    = "/wifi/disconnect"
	pathEapOptions    = "/wifi/eap-options"
	pathWifiKeys      = "/wifi/keys"
)

// APIVersionHeader is required by the robot server on every request.
// "*" asks for the newest API version the robot supports.
const (
	APIVersionHeader = "Opentrons-Version"
	APIVersionAny    = "*"
)

// Client is an HTTP client for a robot's networking API
type Client struct {
	// BaseURL is the base URL for the robot (e.g., "http://192.168.1.20:31950")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed GET requests.
	// POST requests change robot state and are never retried.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool
}

// NewClient creates a new robot API client
// ip: Robot IP address (e.g., "192.168.1.20")
// port: Robot HTTP port (typically 31950)
func NewClient(ip string, port int) *Client {
	return NewClientWithURL(fmt.Sprintf("http://%s:%d", ip, port))
}

// NewClientWithURL creates a new client with a full base URL
// baseURL: Full base URL (e.g., "http://192.168.1.20:31950")
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Health returns the robot's health record, including its API version
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.getJSON(ctx, pathHealth, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// FetchWifiList returns the networks currently visible to the robot
func (c *Client) FetchWifiList(ctx context.Context) ([]WifiNetwork, error) {
	var resp WifiListResponse
	if err := c.getJSON(ctx, pathWifiList, &resp); err != nil {
		return nil, err
	}
	return resp.List, nil
}

// ConfigureWifi asks the robot to join a network
func (c *Client) ConfigureWifi(ctx context.Context, req ConfigureRequest) (*ConfigureResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp ConfigureResponse
	if err := c.postJSON(ctx, pathWifiConfigure, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DisconnectWifi asks the robot to leave a network
func (c *Client) DisconnectWifi(ctx context.Context, ssid string) (*DisconnectResponse, error) {
	if ssid == "" {
		return nil, NewValidationError("SSID cannot be empty")
	}

	var resp DisconnectResponse
	if err := c.postJSON(ctx, pathWifiDiscon, DisconnectRequest{SSID: ssid}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchEapOptions returns the EAP methods the robot supports
func (c *Client) FetchEapOptions(ctx context.Context) ([]EapOption, error) {
	var resp EapOptionsResponse
	if err := c.getJSON(ctx, pathEapOptions, &resp); err != nil {
		return nil, err
	}
	return resp.Options, nil
}

// FetchKeys returns the key files stored on the robot
func (c *Client) FetchKeys(ctx context.Context) ([]WifiKey, error) {
	var resp KeysResponse
	if err := c.getJSON(ctx, pathWifiKeys, &resp); err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

// AddKey uploads a key file (certificate or private key) for EAP authentication
func (c *Client) AddKey(ctx context.Context, name string, r io.Reader) (*WifiKey, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("key", name)
	if err != nil {
		return nil, NewNetworkError("failed to create multipart body", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, NewNetworkError("failed to read key file", err)
	}
	if err := mw.Close(); err != nil {
		return nil, NewNetworkError("failed to finish multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+pathWifiKeys, &body)
	if err != nil {
		return nil, NewNetworkError("failed to create POST request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var key WifiKey
	if err := c.do(req, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// getJSON performs a GET with retries and decodes the response into out
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return NewNetworkError("request cancelled", ctx.Err())
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
		if err != nil {
			return NewNetworkError("failed to create GET request", err)
		}

		err = c.do(req, out)
		if err == nil {
			return nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return err
		}

		logging.Debug("Retrying robot request",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return lastErr
}

// postJSON performs a single POST with a JSON body
func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return NewParseError("failed to encode request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return NewNetworkError("failed to create POST request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// do sends the request and decodes a JSON body into out
func (c *Client) do(req *http.Request, out interface{}) error {
	start := time.Now()

	req.Header.Set(APIVersionHeader, APIVersionAny)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		robotErr := NewNetworkError(req.Method+" request failed", err)
		robotErr.Host = req.URL.Host
		logging.LogRequest(req.Method, req.URL.Path, 0, time.Since(start), robotErr)
		return robotErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewNetworkError("failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := fmt.Sprintf("request failed with status %d", resp.StatusCode)
		var mb messageBody
		if json.Unmarshal(body, &mb) == nil && mb.Message != "" {
			message = mb.Message
		}
		httpErr := NewHTTPError(resp.StatusCode, message)
		httpErr.Host = req.URL.Host
		logging.LogRequest(req.Method, req.URL.Path, resp.StatusCode, time.Since(start), httpErr)
		return httpErr
	}

	logging.LogRequest(req.Method, req.URL.Path, resp.StatusCode, time.Since(start), nil)

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return NewParseError("failed to parse JSON response", err)
	}
	return nil
}
