package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcal/internal/config"
	"bookcal/internal/model"
)

// fakeAvailability returns a canned slot list.
type fakeAvailability struct {
	slots []model.Slot
	err   error
	calls int
}

func (f *fakeAvailability) Slots(_ context.Context, day time.Time) ([]model.Slot, error) {
	f.calls++
	return f.slots, f.err
}

// fakeSender records outgoing mail.
type fakeSender struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SMTP.NotifyTo = "advisor@example.fr"
	cfg.Normalize()
	return cfg
}

func gridSlots() []model.Slot {
	day := time.Date(2024, 4, 4, 0, 0, 0, 0, time.UTC)
	out := make([]model.Slot, 0, 9)
	for h := 9; h < 18; h++ {
		out = append(out, model.Slot{
			Start: day.Add(time.Duration(h) * time.Hour),
			Label: time.Date(2024, 4, 4, h, 0, 0, 0, time.UTC).Format("15:04"),
		})
	}
	return out
}

func TestHealth(t *testing.T) {
	srv := NewServer(testConfig(), &fakeAvailability{}, &fakeSender{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAvailableSlots(t *testing.T) {
	fake := &fakeAvailability{slots: gridSlots()}
	srv := NewServer(testConfig(), fake, &fakeSender{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/available-slots?date=2024-04-04", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Date  string `json:"date"`
		Slots []struct {
			Time  time.Time `json:"time"`
			Label string    `json:"label"`
		} `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "2024-04-04", resp.Date)
	require.Len(t, resp.Slots, 9)
	assert.Equal(t, "09:00", resp.Slots[0].Label)
	assert.Equal(t, "17:00", resp.Slots[8].Label)
}

func TestAvailableSlotsServedFromCache(t *testing.T) {
	fake := &fakeAvailability{slots: gridSlots()}
	srv := NewServer(testConfig(), fake, &fakeSender{})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/available-slots?date=2024-04-04", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// The availability core ran once; repeats hit the response cache.
	assert.Equal(t, 1, fake.calls)
}

func TestAvailableSlotsValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		method string
		status int
	}{
		{name: "missing date", target: "/api/available-slots", method: http.MethodGet, status: http.StatusBadRequest},
		{name: "bad date", target: "/api/available-slots?date=04/04/2024", method: http.MethodGet, status: http.StatusBadRequest},
		{name: "wrong method", target: "/api/available-slots?date=2024-04-04", method: http.MethodPost, status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(testConfig(), &fakeAvailability{}, &fakeSender{})

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAvailableSlotsFetchFailure(t *testing.T) {
	fake := &fakeAvailability{err: errors.New("remote is down")}
	srv := NewServer(testConfig(), fake, &fakeSender{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/available-slots?date=2024-04-04", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	// Protocol details must not leak to the visitor.
	assert.NotContains(t, rec.Body.String(), "remote is down")
}

func TestBooking(t *testing.T) {
	sender := &fakeSender{}
	srv := NewServer(testConfig(), &fakeAvailability{}, sender)

	body := `{"date":"2024-04-04","time":"14:00","name":"Jean Dupont","email":"jean@example.fr","message":"Premier contact","isVideo":true}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/booking", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	// Confirmation to the visitor, notification to the advisor.
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "jean@example.fr", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Body, "Jean Dupont")
	assert.Contains(t, sender.sent[0].Body, "14:00")
	assert.Equal(t, "advisor@example.fr", sender.sent[1].To)
	assert.Contains(t, sender.sent[1].Body, "jean@example.fr")
}

func TestBookingValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: `{}`},
		{name: "missing email", body: `{"date":"2024-04-04","time":"14:00","name":"Jean"}`},
		{name: "bad email", body: `{"date":"2024-04-04","time":"14:00","name":"Jean","email":"not-an-email"}`},
		{name: "bad date", body: `{"date":"04/04/2024","time":"14:00","name":"Jean","email":"jean@example.fr"}`},
		{name: "bad time", body: `{"date":"2024-04-04","time":"2pm","name":"Jean","email":"jean@example.fr"}`},
		{name: "not json", body: `date=2024-04-04`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			srv := NewServer(testConfig(), &fakeAvailability{}, sender)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/booking", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, sender.sent)
		})
	}
}

func TestBookingMailFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	srv := NewServer(testConfig(), &fakeAvailability{}, sender)

	body := `{"date":"2024-04-04","time":"14:00","name":"Jean","email":"jean@example.fr"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/booking", strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "smtp")
}

func TestBasicAuth(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "s3cret"}
	srv := NewServer(cfg, &fakeAvailability{slots: gridSlots()}, &fakeSender{})
	h := srv.Handler()

	// API requires credentials.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/available-slots?date=2024-04-04", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/available-slots?date=2024-04-04", nil)
	req.SetBasicAuth("admin", "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// /health stays open.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWarmCache(t *testing.T) {
	fake := &fakeAvailability{slots: gridSlots()}
	srv := NewServer(testConfig(), fake, &fakeSender{})

	srv.WarmCache(context.Background(), 2)
	assert.Equal(t, 2, fake.calls)

	// A widget request for today is now served without touching the core.
	today := time.Now().UTC().Format("2006-01-02")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/available-slots?date="+today, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, fake.calls)
}
