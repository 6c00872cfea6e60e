// Package web exposes the availability and booking API over HTTP.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookcal/internal/config"
	appLog "bookcal/internal/log"
	bookmail "bookcal/internal/mail"
	"bookcal/internal/model"
)

var bookingsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bookcal_bookings_total",
	Help: "Total accepted booking requests.",
})

// Availability computes bookable slots for a day. *avail.Service satisfies
// it; tests substitute a fake.
type Availability interface {
	Slots(ctx context.Context, day time.Time) ([]model.Slot, error)
}

// Server provides the HTTP API for the booking widget.
type Server struct {
	cfg    *config.Config
	svc    Availability
	sender bookmail.Sender
	mux    *http.ServeMux

	// Per-date cache of computed slot responses. The availability core is
	// stateless; this cache exists only at the HTTP boundary to spare the
	// remote calendar from one query per widget interaction.
	cacheMu   sync.RWMutex
	slotCache map[string]*slotsCache
	cacheTTL  time.Duration
}

// slotsCache holds one cached /api/available-slots response.
type slotsCache struct {
	resp      slotsResponse
	updatedAt time.Time
}

// NewServer constructs a Server.
func NewServer(cfg *config.Config, svc Availability, sender bookmail.Sender) *Server {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	s := &Server{
		cfg:       cfg,
		svc:       svc,
		sender:    sender,
		mux:       http.NewServeMux(),
		slotCache: make(map[string]*slotsCache),
		cacheTTL:  ttl,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health and /metrics with
// HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="BookCal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/api/available-slots", s.handleAvailableSlots)
	s.mux.HandleFunc("/api/booking", s.handleBooking)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// slotsResponse is the JSON response shape for /api/available-slots.
type slotsResponse struct {
	Date  string    `json:"date"`
	Slots []slotDTO `json:"slots"`
}

type slotDTO struct {
	Time  time.Time `json:"time"`
	Label string    `json:"label"`
}

// handleAvailableSlots returns the bookable slots for one day.
//
// GET /api/available-slots?date=2024-04-04
func (s *Server) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		writeError(w, http.StatusBadRequest, "date parameter is required")
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateParam, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	if resp, ok := s.cachedSlots(dateParam); ok {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	slotList, err := s.svc.Slots(r.Context(), day)
	if err != nil {
		// Protocol details stay in the logs; the visitor only sees a
		// generic failure.
		appLog.Error("api available-slots: fetch failed", err, "date", dateParam)
		writeError(w, http.StatusBadGateway, "calendar temporarily unavailable, please retry later")
		return
	}

	resp := slotsResponse{
		Date:  dateParam,
		Slots: make([]slotDTO, 0, len(slotList)),
	}
	for _, sl := range slotList {
		resp.Slots = append(resp.Slots, slotDTO{Time: sl.Start, Label: sl.Label})
	}

	s.storeSlots(dateParam, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) cachedSlots(date string) (slotsResponse, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	c, ok := s.slotCache[date]
	if !ok || time.Since(c.updatedAt) >= s.cacheTTL {
		return slotsResponse{}, false
	}
	return c.resp, true
}

func (s *Server) storeSlots(date string, resp slotsResponse) {
	s.cacheMu.Lock()
	s.slotCache[date] = &slotsCache{resp: resp, updatedAt: time.Now()}
	s.cacheMu.Unlock()
}

// WarmCache precomputes slots for the next days so widget requests hit the
// cache. Called from the cron refresher; failures are logged, not fatal.
func (s *Server) WarmCache(ctx context.Context, days int) {
	if days <= 0 {
		days = 1
	}
	now := time.Now().UTC()

	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, i)
		date := day.Format("2006-01-02")

		slotList, err := s.svc.Slots(ctx, day)
		if err != nil {
			appLog.Error("cache warm: fetch failed", err, "date", date)
			continue
		}

		resp := slotsResponse{
			Date:  date,
			Slots: make([]slotDTO, 0, len(slotList)),
		}
		for _, sl := range slotList {
			resp.Slots = append(resp.Slots, slotDTO{Time: sl.Start, Label: sl.Label})
		}
		s.storeSlots(date, resp)

		appLog.Info("cache warm: slots refreshed", "date", date, "available", len(resp.Slots))
	}
}

// bookingRequest is the JSON body for POST /api/booking, matching the
// widget's form payload.
type bookingRequest struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	IsVideo bool   `json:"isVideo"`
}

// handleBooking accepts an appointment request and dispatches the
// confirmation and notification emails.
func (s *Server) handleBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if msg, ok := validateBooking(req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	b := model.Booking{
		Date:    req.Date,
		Time:    req.Time,
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Message: strings.TrimSpace(req.Message),
		Video:   req.IsVideo,
	}

	subject, body := bookmail.ConfirmationBody(b)
	if err := s.sender.Send(b.Email, subject, body); err != nil {
		appLog.Error("api booking: confirmation mail failed", err, "email", b.Email)
		writeError(w, http.StatusInternalServerError, "booking could not be processed, please retry later")
		return
	}

	if s.cfg.SMTP.NotifyTo != "" {
		subject, body = bookmail.NotificationBody(b)
		if err := s.sender.Send(s.cfg.SMTP.NotifyTo, subject, body); err != nil {
			// The visitor's confirmation already went out; log and move on.
			appLog.Error("api booking: notification mail failed", err)
		}
	}

	bookingsTotal.Inc()
	appLog.Info("api booking: accepted", "date", b.Date, "time", b.Time)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func validateBooking(req bookingRequest) (string, bool) {
	if req.Date == "" || req.Time == "" || req.Name == "" || req.Email == "" {
		return "date, time, name and email are required", false
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return "invalid date, expected YYYY-MM-DD", false
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		return "invalid time, expected HH:MM", false
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "invalid email address", false
	}
	return "", true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
