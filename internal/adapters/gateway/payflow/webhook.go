package payflow

import "retail-service/pkg/crypto"

// VerifyWebhookSignature checks the HMAC-SHA256 signature of a webhook
// payload in constant time, before any side effect. A mismatch reveals
// nothing about which byte diverged.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) bool {
	if c.config.WebhookSecret == "" || signature == "" {
		return false
	}
	return crypto.VerifyHMAC(c.config.WebhookSecret, payload, signature)
}
