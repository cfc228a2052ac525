package lubelogger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an authenticated HTTP client for the LubeLogger REST API. It
// carries no retry logic; retry policy belongs to the caller, which knows
// whether a retry budget exists for the current poll cycle. A single
// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// NewClient validates the configuration and builds a client. No network
// I/O happens here; a colon in either credential or a malformed base URL
// fails with ConfigError before anything dials out. Colon is the
// Basic-Auth field separator, so letting one through would silently
// corrupt the Authorization header.
func NewClient(baseURL, username, password string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &ConfigError{Reason: fmt.Sprintf("base URL %q is not a valid http(s) URL", baseURL)}
	}
	if username == "" || password == "" {
		return nil, &ConfigError{Reason: "username and password are required"}
	}
	if strings.Contains(username, ":") {
		return nil, &ConfigError{Reason: "username must not contain a colon"}
	}
	if strings.Contains(password, ":") {
		return nil, &ConfigError{Reason: "password must not contain a colon"}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: "Basic " + credentials,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Vehicles lists the server's vehicle directory.
func (c *Client) Vehicles(ctx context.Context) ([]Vehicle, error) {
	var vehicles []Vehicle
	if err := c.get(ctx, "list vehicles", "/api/vehicles", nil, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// Records lists all records of one category for a vehicle. An empty list
// is a valid, non-error result.
func (c *Client) Records(ctx context.Context, vehicleID int64, category Category) ([]Record, error) {
	path := category.listPath()
	if path == "" {
		return nil, &ConfigError{Reason: fmt.Sprintf("unknown record category %q", category)}
	}
	op := fmt.Sprintf("list %s records", category)
	params := url.Values{"vehicleId": {fmt.Sprintf("%d", vehicleID)}}

	var records []Record
	if err := c.get(ctx, op, path, params, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Reminders lists all maintenance reminders for a vehicle.
func (c *Client) Reminders(ctx context.Context, vehicleID int64) ([]Reminder, error) {
	params := url.Values{"vehicleId": {fmt.Sprintf("%d", vehicleID)}}

	var reminders []Reminder
	if err := c.get(ctx, "list reminders", "/api/vehicle/reminders", params, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

// CreateRecord submits a new record of the given kind. The payload is the
// server-shaped representation built by the write gateway; the vehicle id
// is injected here so the gateway cannot accidentally target the wrong
// vehicle through a stale payload map.
func (c *Client) CreateRecord(ctx context.Context, vehicleID int64, kind WriteKind, payload map[string]any) error {
	path := kind.addPath()
	if path == "" {
		return &ConfigError{Reason: fmt.Sprintf("unknown write kind %q", kind)}
	}

	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["vehicleId"] = vehicleID

	op := fmt.Sprintf("create %s record", kind)
	return c.post(ctx, op, path, body)
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &ConfigError{Reason: fmt.Sprintf("%s: %v", op, err)}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectivityError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthError{Op: op}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{Op: op, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ConnectivityError{Op: op, Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ServerError{Op: op, StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path string, body map[string]any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return &ConfigError{Reason: fmt.Sprintf("%s: %v", op, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return &ConfigError{Reason: fmt.Sprintf("%s: %v", op, err)}
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectivityError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{Op: op}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ValidationError{Reason: fmt.Sprintf("%s: server rejected payload with status %d", op, resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &ServerError{Op: op, StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	// Header presence switches the server to invariant number and date
	// formatting regardless of its configured culture.
	req.Header.Set("culture-invariant", "")
}
