package analytics

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/astrovani/backend/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const defaultMetaBaseURL = "https://graph.facebook.com/v18.0"

type MetaClient struct {
	pixelID    string
	capiToken  string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	cb         *gobreaker.CircuitBreaker
}

func NewMetaClient(pixelID, capiToken string, logger *zap.Logger) *MetaClient {
	return &MetaClient{
		pixelID:    pixelID,
		capiToken:  capiToken,
		baseURL:    defaultMetaBaseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
		cb:         utils.NewBreaker("MetaCAPICollector", logger),
	}
}

func (c *MetaClient) Configured() bool {
	return c.pixelID != "" && c.capiToken != ""
}

type metaUserData struct {
	Em              []string `json:"em,omitempty"`
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
}

type metaEvent struct {
	EventName    string         `json:"event_name"`
	EventTime    int64          `json:"event_time"`
	EventID      string         `json:"event_id"`
	ActionSource string         `json:"action_source"`
	CustomData   map[string]any `json:"custom_data"`
	UserData     metaUserData   `json:"user_data"`
}

// HashEmail normalizes and hashes an email address the way the
// Conversions API expects. Clear-text addresses are never transmitted.
func HashEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func (c *MetaClient) ReportPurchase(ctx context.Context, p Purchase) error {
	if !c.Configured() {
		return nil
	}

	userData := metaUserData{
		ClientIPAddress: p.ClientIP,
		ClientUserAgent: p.UserAgent,
	}
	if hashed := HashEmail(p.Email); hashed != "" {
		userData.Em = []string{hashed}
	}

	event := metaEvent{
		EventName:    "Purchase",
		EventTime:    time.Now().Unix(),
		EventID:      p.EventID,
		ActionSource: "website",
		CustomData: map[string]any{
			"currency": p.Currency,
			"value":    p.Value,
		},
		UserData: userData,
	}

	endpoint := fmt.Sprintf("%s/%s/events?access_token=%s",
		c.baseURL,
		url.PathEscape(c.pixelID),
		url.QueryEscape(c.capiToken),
	)

	_, err := utils.ExecuteWithBreaker(c.cb, func() (struct{}, error) {
		return struct{}{}, c.post(ctx, endpoint, map[string]any{"data": []metaEvent{event}})
	})
	if err != nil {
		mylogger.Warn(ctx, c.logger, "Meta CAPI purchase report failed",
			zap.String("event_id", p.EventID),
			zap.Error(err),
		)
	}

	return err
}

func (c *MetaClient) post(ctx context.Context, endpoint string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal Meta CAPI body: %w", err)
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
		return fmt.Errorf("Meta CAPI responded with %d", res.StatusCode)
	}

	return nil
}
