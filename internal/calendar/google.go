// Package calendar syncs confirmed bookings to a Google Calendar via a
// service account. Sync is best-effort: a booking is never failed
// because the calendar call did not go through.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/astrovani/backend/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	defaultBaseURL  = "https://www.googleapis.com/calendar/v3"
	calendarScope   = "https://www.googleapis.com/auth/calendar"
)

type Event struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink,omitempty"`
}

type EventInput struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
	AttendeeName  string
	Meet          bool
}

type Client struct {
	saEmail    string
	saKey      string
	calendarID string
	timezone   string
	tokenURL   string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	cb         *gobreaker.CircuitBreaker
}

func NewClient(saEmail, saKey, calendarID, timezone string, logger *zap.Logger) *Client {
	return &Client{
		saEmail:    saEmail,
		saKey:      saKey,
		calendarID: calendarID,
		timezone:   timezone,
		tokenURL:   defaultTokenURL,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		cb:         utils.NewBreaker("GoogleCalendar", logger),
	}
}

func (c *Client) Configured() bool {
	return c.saEmail != "" && c.saKey != "" && c.calendarID != ""
}

// accessToken exchanges a signed service-account assertion for an
// OAuth access token.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   c.saEmail,
		"scope": calendarScope,
		"aud":   c.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	// Keys injected through env often carry escaped newlines.
	keyPem := strings.ReplaceAll(c.saKey, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(keyPem))
	if err != nil {
		return "", fmt.Errorf("failed to parse service account key: %w", err)
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("google token error: %d %s", res.StatusCode, string(text))
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&token); err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

func (c *Client) InsertEvent(ctx context.Context, in EventInput) (*Event, error) {
	event, err := utils.ExecuteWithBreaker(c.cb, func() (*Event, error) {
		return c.insertEvent(ctx, in)
	})
	if err != nil {
		mylogger.Warn(ctx, c.logger, "Calendar event insert failed",
			zap.String("summary", in.Summary),
			zap.Error(err),
		)
		return nil, err
	}

	return event, nil
}

func (c *Client) insertEvent(ctx context.Context, in EventInput) (*Event, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"summary":     in.Summary,
		"description": in.Description,
		"start":       map[string]string{"dateTime": in.Start.Format(time.RFC3339), "timeZone": c.timezone},
		"end":         map[string]string{"dateTime": in.End.Format(time.RFC3339), "timeZone": c.timezone},
		"reminders":   map[string]any{"useDefault": true},
	}
	if in.AttendeeEmail != "" {
		body["attendees"] = []map[string]string{
			{"email": in.AttendeeEmail, "displayName": in.AttendeeName},
		}
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(c.calendarID))
	if in.Meet {
		body["conferenceData"] = map[string]any{
			"createRequest": map[string]string{"requestId": "req-" + uuid.NewString()},
		}
		endpoint += "?conferenceDataVersion=1"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal calendar event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("calendar insert error: %d %s", res.StatusCode, string(text))
	}

	var event Event
	if err := json.NewDecoder(res.Body).Decode(&event); err != nil {
		return nil, err
	}

	return &event, nil
}
