// Package gateway wraps the Razorpay server-side API used by the
// checkout flow.
package gateway

import (
	"context"
	"fmt"

	"github.com/astrovani/backend/pkg/mylogger"
	"github.com/astrovani/backend/pkg/utils"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Client creates orders on the payment gateway. The returned id is the
// gateway order id the rest of the system keys on.
type Client interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (string, error)
}

type razorpayGateway struct {
	api    *razorpay.Client
	logger *zap.Logger
	cb     *gobreaker.CircuitBreaker
}

func NewClient(keyID, keySecret string, logger *zap.Logger) Client {
	return &razorpayGateway{
		api:    razorpay.NewClient(keyID, keySecret),
		logger: logger,
		cb:     utils.NewBreaker("RazorpayGateway", logger),
	}
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (string, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := utils.ExecuteWithBreaker(g.cb, func() (map[string]interface{}, error) {
		return g.api.Order.Create(data, nil)
	})
	if err != nil {
		mylogger.Warn(ctx, g.logger, "Razorpay order create failed",
			zap.String("receipt", receipt),
			zap.Error(err),
		)
		return "", fmt.Errorf("razorpay order create failed: %w", err)
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay order create returned no id")
	}

	return id, nil
}
