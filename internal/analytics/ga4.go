// Package analytics reports purchase events to the external
// collectors. Every call here is best-effort: a collector failure is
// logged and swallowed, never surfaced to the webhook response path.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/astrovani/backend/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const defaultGA4BaseURL = "https://www.google-analytics.com"

type GA4Client struct {
	measurementID string
	apiSecret     string
	baseURL       string
	httpClient    *http.Client
	logger        *zap.Logger
	cb            *gobreaker.CircuitBreaker
}

func NewGA4Client(measurementID, apiSecret string, logger *zap.Logger) *GA4Client {
	return &GA4Client{
		measurementID: measurementID,
		apiSecret:     apiSecret,
		baseURL:       defaultGA4BaseURL,
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		logger:        logger,
		cb:            utils.NewBreaker("GA4Collector", logger),
	}
}

func (c *GA4Client) Configured() bool {
	return c.measurementID != "" && c.apiSecret != ""
}

type ga4Event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type ga4Body struct {
	ClientID string     `json:"client_id"`
	Events   []ga4Event `json:"events"`
}

// ReportPurchase sends a Measurement Protocol purchase event. Missing
// credentials are a silent skip, not an error.
func (c *GA4Client) ReportPurchase(ctx context.Context, p Purchase) error {
	if !c.Configured() {
		return nil
	}

	clientID := p.ClientID
	if clientID == "" {
		clientID = "srv." + p.TransactionID
	}

	body := ga4Body{
		ClientID: clientID,
		Events: []ga4Event{
			{
				Name: "purchase",
				Params: map[string]any{
					"transaction_id":       p.TransactionID,
					"value":                p.Value,
					"currency":             p.Currency,
					"engagement_time_msec": 1,
				},
			},
		},
	}

	endpoint := fmt.Sprintf("%s/mp/collect?measurement_id=%s&api_secret=%s",
		c.baseURL,
		url.QueryEscape(c.measurementID),
		url.QueryEscape(c.apiSecret),
	)

	_, err := utils.ExecuteWithBreaker(c.cb, func() (struct{}, error) {
		return struct{}{}, c.post(ctx, endpoint, body)
	})
	if err != nil {
		mylogger.Warn(ctx, c.logger, "GA4 purchase report failed",
			zap.String("transaction_id", p.TransactionID),
			zap.Error(err),
		)
	}

	return err
}

func (c *GA4Client) post(ctx context.Context, endpoint string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal GA4 body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return fmt.Errorf("GA4 collector responded with %d", res.StatusCode)
	}

	return nil
}
