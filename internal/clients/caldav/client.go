package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/tazhate/eventcal/internal/domain"
	"github.com/tazhate/eventcal/internal/ics"
)

// Client mirrors events into a single CalDAV calendar. It is safe for
// concurrent use.
type Client struct {
	baseURL  string
	username string
	password string

	mu           sync.Mutex
	calendarPath string
	httpClient   *http.Client
	client       *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
	}
}

// IsConfigured returns true if the client has a server and credentials
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.username != "" && c.password != ""
}

// SetCalendarPath sets the calendar collection events are written to
func (c *Client) SetCalendarPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calendarPath = path
}

// SetHTTPClient overrides the transport, used by tests
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpClient = httpClient
	c.client = nil
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	httpClient := c.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	authed := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
			base:     httpClient.Transport,
		},
		Timeout: httpClient.Timeout,
	}

	client, err := caldav.NewClient(authed, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{
			Path:        cal.Path,
			DisplayName: cal.Name,
			Description: cal.Description,
		})
	}
	return result, nil
}

// resolveCalendar returns the configured calendar, or the first one found
// on the server
func (c *Client) resolveCalendar(ctx context.Context) (string, error) {
	c.mu.Lock()
	path := c.calendarPath
	c.mu.Unlock()
	if path != "" {
		return path, nil
	}

	cals, err := c.DiscoverCalendars(ctx)
	if err != nil {
		return "", err
	}
	if len(cals) == 0 {
		return "", fmt.Errorf("no calendars found")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calendarPath == "" {
		c.calendarPath = cals[0].Path
	}
	return c.calendarPath, nil
}

func objectPath(calendarPath, uid string) string {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}
	return calendarPath + uid + ".ics"
}

// PutEvent writes an event as an all-day VEVENT. An empty uid creates a
// new object; the UID used is returned.
func (c *Client) PutEvent(ctx context.Context, event domain.Event, uid string) (string, error) {
	client, err := c.connect()
	if err != nil {
		return "", err
	}
	calendarPath, err := c.resolveCalendar(ctx)
	if err != nil {
		return "", err
	}

	if uid == "" {
		uid = generateUID()
	}

	vevent, err := ics.NewEvent(event, uid)
	if err != nil {
		return "", err
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ics.ProductID)
	cal.Children = append(cal.Children, vevent.Component)

	if _, err := client.PutCalendarObject(ctx, objectPath(calendarPath, uid), cal); err != nil {
		return "", fmt.Errorf("put event: %w", err)
	}
	return uid, nil
}

// DeleteEvent deletes an event by UID
func (c *Client) DeleteEvent(ctx context.Context, uid string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	calendarPath, err := c.resolveCalendar(ctx)
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, objectPath(calendarPath, uid)); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// generateUID generates a unique object ID
func generateUID() string {
	return uuid.NewString() + "@eventcal"
}
