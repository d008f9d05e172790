package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tazhate/eventcal/internal/domain"
)

// Client talks to the event backend's REST API
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// StatusError is a non-2xx response from the backend
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a backend client for baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBasicAuth sets credentials sent with every request
func (c *Client) SetBasicAuth(username, password string) {
	c.username = username
	c.password = password
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// IsConfigured returns true if the client has a base URL
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// doRequest performs an HTTP request and returns the response body
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	return respBody, nil
}

// errorMessage extracts {"error": "..."} or falls back to the raw body
func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// ListEvents returns every event known to the backend
func (c *Client) ListEvents(ctx context.Context) ([]domain.Event, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/events", nil)
	if err != nil {
		return nil, err
	}

	var events []domain.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	return events, nil
}

// ListEventsOn returns the events of one day
func (c *Client) ListEventsOn(ctx context.Context, dateKey string) ([]domain.Event, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/events?date="+url.QueryEscape(dateKey), nil)
	if err != nil {
		return nil, err
	}

	var events []domain.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	return events, nil
}

// GetEvent returns a single event by id
func (c *Client) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/events/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, notFound(err)
	}

	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}

// CreateEvent creates an event and returns it with its backend id
func (c *Client) CreateEvent(ctx context.Context, req domain.NewEvent) (*domain.Event, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/events", req)
	if err != nil {
		return nil, err
	}

	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.ID == "" {
		return nil, fmt.Errorf("backend returned event without id")
	}
	return &event, nil
}

// UpdateEvent replaces an event's fields
func (c *Client) UpdateEvent(ctx context.Context, id string, req domain.NewEvent) (*domain.Event, error) {
	body, err := c.doRequest(ctx, http.MethodPut, "/events/"+url.PathEscape(id), req)
	if err != nil {
		return nil, notFound(err)
	}

	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}

// DeleteEvent deletes an event. A 404 is reported as domain.ErrNotFound.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil)
	return notFound(err)
}

// Upcoming returns events from today through today+days
func (c *Client) Upcoming(ctx context.Context, days int) ([]domain.Event, error) {
	path := "/events/upcoming"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}

	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var events []domain.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	return events, nil
}

// ExportICS returns the iCalendar feed
func (c *Client) ExportICS(ctx context.Context) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, "/events.ics", nil)
}

func notFound(err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", se.Message, domain.ErrNotFound)
	}
	return err
}
