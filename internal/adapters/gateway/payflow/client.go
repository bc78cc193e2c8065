// Package payflow talks to the external payment gateway: hosted checkout
// initialization, transaction verification, recurring plans, and webhook
// signature checks. The platform never touches card data; the gateway's
// checkout page does.
package payflow

import (
	"time"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"
)

type Config struct {
	BaseURL string
	// Secret authenticates API calls; Public is embedded in checkout pages.
	Secret string
	Public string
	// WebhookSecret signs event payloads.
	WebhookSecret string
	// CallbackURL is where the gateway redirects the customer after payment.
	CallbackURL string
	// Timeout bounds each gateway call; it must stay below the enclosing
	// request deadline so a slow gateway degrades to a retryable error.
	Timeout time.Duration
}

type Client struct {
	rest   *resty.Client
	config Config

	// cache holds gateway-side metadata (plan codes). Never tenant-scoped
	// business data.
	cache *gocache.Cache
}

func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	rest := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetAuthToken(config.Secret).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	return &Client{
		rest:   rest,
		config: config,
		cache:  gocache.New(30*time.Minute, time.Hour),
	}
}
