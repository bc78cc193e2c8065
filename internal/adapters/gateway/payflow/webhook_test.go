package payflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retail-service/pkg/crypto"
)

func TestVerifyWebhookSignature(t *testing.T) {
	client := New(Config{WebhookSecret: "whsec_test"})
	payload := []byte(`{"event":"charge.success","data":{"reference":"ref-1"}}`)

	signature := crypto.SignHMAC("whsec_test", payload)
	assert.True(t, client.VerifyWebhookSignature(payload, signature))
}

func TestVerifyWebhookSignature_Rejections(t *testing.T) {
	client := New(Config{WebhookSecret: "whsec_test"})
	payload := []byte(`{"event":"charge.success"}`)

	assert.False(t, client.VerifyWebhookSignature(payload, ""))
	assert.False(t, client.VerifyWebhookSignature(payload, "deadbeef"))

	wrongSecret := crypto.SignHMAC("whsec_other", payload)
	assert.False(t, client.VerifyWebhookSignature(payload, wrongSecret))

	tampered := crypto.SignHMAC("whsec_test", []byte(`{"event":"charge.failed"}`))
	assert.False(t, client.VerifyWebhookSignature(payload, tampered))
}

func TestVerifyWebhookSignature_NoSecretConfigured(t *testing.T) {
	client := New(Config{})
	payload := []byte(`{}`)

	assert.False(t, client.VerifyWebhookSignature(payload, crypto.SignHMAC("", payload)))
}
