package payflow

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"retail-service/internal/domain/subscription"
	"retail-service/internal/infrastructure/log"
)

// gateway wire shapes

type initializeRequest struct {
	Reference   string            `json:"reference"`
	Amount      int64             `json:"amount"` // smallest currency subunit
	Currency    string            `json:"currency"`
	Email       string            `json:"email"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference     string     `json:"reference"`
		Status        string     `json:"status"`
		Amount        int64      `json:"amount"`
		Currency      string     `json:"currency"`
		PaidAt        *time.Time `json:"paid_at"`
		Authorization struct {
			AuthorizationCode string `json:"authorization_code"`
			Reusable          bool   `json:"reusable"`
		} `json:"authorization"`
	} `json:"data"`
}

// subunits converts a decimal amount to the gateway's integer subunit
// representation.
func subunits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// InitializeTransaction opens a hosted checkout and returns the redirect
// URL for the customer.
//
// Implements: subscription.Gateway
func (c *Client) InitializeTransaction(ctx context.Context, req subscription.InitializeRequest) (subscription.InitializeResponse, error) {
	logger := log.FromContext(ctx).Named("gateway_initialize").With(zap.String("reference", req.Reference))

	body := initializeRequest{
		Reference:   req.Reference,
		Amount:      subunits(req.Amount),
		Currency:    req.Currency,
		Email:       req.Email,
		CallbackURL: c.config.CallbackURL,
		Metadata:    req.Metadata,
	}

	var out initializeResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/transaction/initialize")
	if err != nil {
		logger.Error("failed to reach gateway", zap.Error(err))
		return subscription.InitializeResponse{}, fmt.Errorf("gateway initialize for %s: %w", req.Reference, err)
	}
	if resp.IsError() || !out.Status {
		logger.Error("gateway rejected initialize",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", out.Message),
		)
		return subscription.InitializeResponse{}, fmt.Errorf("gateway initialize for %s failed with HTTP %d: %s", req.Reference, resp.StatusCode(), out.Message)
	}

	logger.Info("checkout initialized")
	return subscription.InitializeResponse{
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
		Reference:        out.Data.Reference,
	}, nil
}

// VerifyTransaction queries the gateway's view of a transaction.
//
// Implements: subscription.Gateway
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (subscription.VerifyResponse, error) {
	logger := log.FromContext(ctx).Named("gateway_verify").With(zap.String("reference", reference))

	var out verifyResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/transaction/verify/" + reference)
	if err != nil {
		logger.Error("failed to reach gateway", zap.Error(err))
		return subscription.VerifyResponse{}, fmt.Errorf("gateway verify for %s: %w", reference, err)
	}
	if resp.IsError() || !out.Status {
		logger.Error("gateway rejected verify",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", out.Message),
		)
		return subscription.VerifyResponse{}, fmt.Errorf("gateway verify for %s failed with HTTP %d: %s", reference, resp.StatusCode(), out.Message)
	}

	var authorization *string
	if out.Data.Authorization.Reusable && out.Data.Authorization.AuthorizationCode != "" {
		code := out.Data.Authorization.AuthorizationCode
		authorization = &code
	}

	logger.Info("transaction verified at gateway", zap.String("status", out.Data.Status))
	return subscription.VerifyResponse{
		Reference:     out.Data.Reference,
		Success:       out.Data.Status == "success",
		Amount:        decimal.NewFromInt(out.Data.Amount).Div(decimal.NewFromInt(100)),
		Currency:      out.Data.Currency,
		PaidAt:        out.Data.PaidAt,
		Authorization: authorization,
	}, nil
}
