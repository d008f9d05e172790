package caldav

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tazhate/eventcal/internal/domain"
)

type recorded struct {
	method string
	path   string
	body   string
	auth   bool
}

func newTestServer(t *testing.T) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		user, pass, ok := r.BasicAuth()
		mu.Lock()
		reqs = append(reqs, recorded{r.Method, r.URL.Path, string(body), ok && user == "u" && pass == "p"})
		mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func TestPutEvent(t *testing.T) {
	srv, requests := newTestServer(t)

	c := NewClient(srv.URL+"/", "u", "p")
	c.SetCalendarPath("/calendars/u/family")
	if !c.IsConfigured() {
		t.Fatal("IsConfigured() = false")
	}

	event := domain.Event{ID: "1", DateKey: "2024-03-10", Description: "Meeting", Color: "blue"}
	uid, err := c.PutEvent(context.Background(), event, "")
	if err != nil {
		t.Fatalf("PutEvent() failed: %v", err)
	}
	if !strings.HasSuffix(uid, "@eventcal") {
		t.Errorf("uid = %q", uid)
	}

	got := requests()
	if len(got) != 1 {
		t.Fatalf("got %d requests, want 1", len(got))
	}
	req := got[0]
	if req.method != http.MethodPut || req.path != "/calendars/u/family/"+uid+".ics" {
		t.Errorf("request = %s %s", req.method, req.path)
	}
	if !req.auth {
		t.Error("request missing basic auth")
	}
	if !strings.Contains(req.body, "DTSTART;VALUE=DATE:20240310") || !strings.Contains(req.body, "UID:"+uid) {
		t.Errorf("body = %s", req.body)
	}

	// Reusing a UID rewrites the same object
	again, err := c.PutEvent(context.Background(), event, uid)
	if err != nil || again != uid {
		t.Errorf("PutEvent(existing uid) = %q, %v", again, err)
	}
}

func TestPutEventConcurrent(t *testing.T) {
	srv, requests := newTestServer(t)

	c := NewClient(srv.URL, "u", "p")
	c.SetCalendarPath("/calendars/u/family")

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := domain.Event{ID: "1", DateKey: "2024-03-10", Description: "Meeting"}
			if _, err := c.PutEvent(context.Background(), event, ""); err != nil {
				t.Errorf("PutEvent() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := requests(); len(got) != n {
		t.Errorf("got %d requests, want %d", len(got), n)
	}
}

func TestDeleteEvent(t *testing.T) {
	srv, requests := newTestServer(t)

	c := NewClient(srv.URL, "u", "p")
	c.SetCalendarPath("/calendars/u/family/")
	if err := c.DeleteEvent(context.Background(), "abc@eventcal"); err != nil {
		t.Fatalf("DeleteEvent() failed: %v", err)
	}

	got := requests()
	if len(got) != 1 || got[0].method != http.MethodDelete || got[0].path != "/calendars/u/family/abc@eventcal.ics" {
		t.Errorf("requests = %+v", got)
	}
}

func TestIsConfigured(t *testing.T) {
	tests := []struct {
		url, user, pass string
		want            bool
	}{
		{"https://dav.example.com", "u", "p", true},
		{"", "u", "p", false},
		{"https://dav.example.com", "", "p", false},
		{"https://dav.example.com", "u", "", false},
	}
	for _, tt := range tests {
		if got := NewClient(tt.url, tt.user, tt.pass).IsConfigured(); got != tt.want {
			t.Errorf("IsConfigured(%q, %q, %q) = %v, want %v", tt.url, tt.user, tt.pass, got, tt.want)
		}
	}
}
