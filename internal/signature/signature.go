// Package signature verifies Razorpay HMAC signatures. Webhook
// verification must run over the exact raw request bytes: parsing the
// body first would change whitespace and key order and break the digest.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyWebhook reports whether headerSignature is the hex HMAC-SHA256
// of rawBody under secret. A missing signature or an unconfigured
// secret is a rejection, never an error.
func VerifyWebhook(rawBody []byte, headerSignature, secret string) bool {
	if headerSignature == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(headerSignature))
}

// VerifyCheckout checks the signature Razorpay hands back to the
// browser after checkout, computed over "<order_id>|<payment_id>"
// with the key secret.
func VerifyCheckout(gatewayOrderID, gatewayPaymentID, headerSignature, keySecret string) bool {
	payload := gatewayOrderID + "|" + gatewayPaymentID
	return VerifyWebhook([]byte(payload), headerSignature, keySecret)
}
