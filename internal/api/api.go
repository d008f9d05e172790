package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/tazhate/eventcal/internal/auth"
	"github.com/tazhate/eventcal/internal/domain"
	"github.com/tazhate/eventcal/internal/ics"
	"github.com/tazhate/eventcal/internal/service"
)

// DefaultUpcomingDays is the window of GET /events/upcoming without ?days
const DefaultUpcomingDays = 7

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the events API
type Server struct {
	events       *service.EventService
	creds        auth.Credentials
	upcomingDays int
	calendarName string
}

// NewServer creates an API server. Basic Auth is enforced on /events* only
// when both credentials are set; password may be an Argon2id hash.
func NewServer(events *service.EventService, username, password string) *Server {
	return &Server{
		events:       events,
		creds:        auth.Credentials{Username: username, Secret: password},
		upcomingDays: DefaultUpcomingDays,
		calendarName: "EventCal",
	}
}

// SetUpcomingDays changes the default upcoming window
func (s *Server) SetUpcomingDays(days int) {
	if days > 0 {
		s.upcomingDays = days
	}
}

// SetCalendarName sets X-WR-CALNAME of the ICS export
func (s *Server) SetCalendarName(name string) {
	s.calendarName = name
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/events", s.basicAuth(s.apiEvents))
	mux.HandleFunc("/events.ics", s.basicAuth(s.apiExportICS))
	mux.HandleFunc("/events/", s.basicAuth(s.apiEvent))
	return mux
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	if !s.creds.Enabled() {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || !s.creds.Check(username, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="EventCal API"`)
			s.jsonError(w, "Unauthorized", http.StatusUnauthorized)
			log.Printf("API: failed auth from %s (user: %s)", r.RemoteAddr, username)
			return
		}
		next(w, r)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("API: encode response: %v", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, err string, status int) {
	s.jsonResponse(w, status, errorResponse{Error: err})
}

// writeError maps service errors to status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		s.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		s.jsonError(w, "Event not found", http.StatusNotFound)
	default:
		log.Printf("API error: %v", err)
		s.jsonError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// GET /events - list events, ?date=YYYY-MM-DD for one day
// POST /events - create event
func (s *Server) apiEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var (
			events []domain.Event
			err    error
		)
		if date := r.URL.Query().Get("date"); date != "" {
			events, err = s.events.ListOn(date)
		} else {
			events, err = s.events.List()
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, events)

	case http.MethodPost:
		req, ok := s.decodeEvent(w, r)
		if !ok {
			return
		}
		event, err := s.events.Create(r.Context(), req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.jsonResponse(w, http.StatusCreated, event)

	default:
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /events/upcoming?days=N
// GET|PUT|DELETE /events/{id}
func (s *Server) apiEvent(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/events/"), "/")
	if id == "" || strings.Contains(id, "/") {
		s.jsonError(w, "Event ID required", http.StatusBadRequest)
		return
	}

	if id == "upcoming" {
		s.apiUpcoming(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		event, err := s.events.Get(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, event)

	case http.MethodPut:
		req, ok := s.decodeEvent(w, r)
		if !ok {
			return
		}
		event, err := s.events.Update(r.Context(), id, req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, event)

	case http.MethodDelete:
		if err := s.events.Delete(r.Context(), id); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) apiUpcoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := s.upcomingDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.jsonError(w, "Invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}

	events, err := s.events.Upcoming(days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, events)
}

// GET /events.ics - iCalendar export of all events
func (s *Server) apiExportICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events, err := s.events.List()
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := ics.Write(&buf, s.calendarName, events); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=events.ics")
	w.Write(buf.Bytes())
}

func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (domain.NewEvent, bool) {
	var req domain.NewEvent
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.jsonError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return req, false
		}
		s.jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return req, false
	}
	return req, true
}
