package calendar

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testServiceAccountKey(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	return string(pem.EncodeToMemory(block))
}

func TestConfigured(t *testing.T) {
	logger := zap.NewNop()

	require.False(t, NewClient("", "", "", "Asia/Kolkata", logger).Configured())
	require.False(t, NewClient("sa@example.iam.gserviceaccount.com", "key", "", "Asia/Kolkata", logger).Configured())
	require.True(t, NewClient("sa@example.iam.gserviceaccount.com", "key", "primary", "Asia/Kolkata", logger).Configured())
}

func TestInsertEvent(t *testing.T) {
	var tokenForm map[string][]string
	var eventPath string
	var eventQuery map[string][]string
	var eventAuth string
	var eventBody map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		tokenForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "test-access-token"})
	})
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		eventPath = r.URL.Path
		eventQuery = r.URL.Query()
		eventAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&eventBody)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Event{ID: "evt_1", HTMLLink: "https://calendar.example/evt_1"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(
		"sa@example.iam.gserviceaccount.com",
		testServiceAccountKey(t),
		"primary",
		"Asia/Kolkata",
		zap.NewNop(),
	)
	client.tokenURL = srv.URL + "/token"
	client.baseURL = srv.URL

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	event, err := client.InsertEvent(context.Background(), EventInput{
		Summary:       "Consultation with Asha",
		Description:   "Career reading",
		Start:         start,
		End:           start.Add(time.Hour),
		AttendeeEmail: "asha@example.com",
		AttendeeName:  "Asha",
		Meet:          true,
	})
	require.NoError(t, err)
	require.Equal(t, "evt_1", event.ID)

	require.Equal(t, []string{"urn:ietf:params:oauth:grant-type:jwt-bearer"}, tokenForm["grant_type"])
	require.NotEmpty(t, tokenForm["assertion"])

	require.Equal(t, "/calendars/primary/events", eventPath)
	require.Equal(t, []string{"1"}, eventQuery["conferenceDataVersion"])
	require.Equal(t, "Bearer test-access-token", eventAuth)

	require.Equal(t, "Consultation with Asha", eventBody["summary"])
	require.Contains(t, eventBody, "conferenceData")

	startBlock, ok := eventBody["start"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Asia/Kolkata", startBlock["timeZone"])

	attendees, ok := eventBody["attendees"].([]any)
	require.True(t, ok)
	require.Len(t, attendees, 1)
}

func TestInsertEventWithoutMeet(t *testing.T) {
	var eventQuery map[string][]string
	var eventBody map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "test-access-token"})
	})
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		eventQuery = r.URL.Query()
		_ = json.NewDecoder(r.Body).Decode(&eventBody)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Event{ID: "evt_2"})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(
		"sa@example.iam.gserviceaccount.com",
		testServiceAccountKey(t),
		"primary",
		"Asia/Kolkata",
		zap.NewNop(),
	)
	client.tokenURL = srv.URL + "/token"
	client.baseURL = srv.URL

	start := time.Now().Add(24 * time.Hour)
	event, err := client.InsertEvent(context.Background(), EventInput{
		Summary: "Consultation",
		Start:   start,
		End:     start.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, "evt_2", event.ID)

	require.Empty(t, eventQuery["conferenceDataVersion"])
	require.NotContains(t, eventBody, "conferenceData")
	require.NotContains(t, eventBody, "attendees")
}

func TestInsertEventBadKey(t *testing.T) {
	client := NewClient(
		"sa@example.iam.gserviceaccount.com",
		"not-a-pem-key",
		"primary",
		"Asia/Kolkata",
		zap.NewNop(),
	)

	_, err := client.InsertEvent(context.Background(), EventInput{
		Summary: "Consultation",
		Start:   time.Now(),
		End:     time.Now().Add(time.Hour),
	})
	require.Error(t, err)
}
