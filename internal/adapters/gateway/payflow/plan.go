package payflow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"retail-service/internal/domain/subscription"
	"retail-service/internal/infrastructure/log"
)

type planRequest struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Interval string `json:"interval"`
}

type planResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		PlanCode string `json:"plan_code"`
	} `json:"data"`
}

type subscribeRequest struct {
	Plan          string `json:"plan"`
	Authorization string `json:"authorization"`
	Customer      string `json:"customer"`
}

func interval(c subscription.Cycle) string {
	switch c {
	case subscription.CycleSemiAnnual:
		return "biannually"
	case subscription.CycleAnnual:
		return "annually"
	default:
		return "monthly"
	}
}

// CreateRecurringPlan ensures a gateway plan exists for the tenant's cycle
// and amount, then subscribes the stored authorization to it. Plan codes
// are cached so repeated enables skip the create call.
//
// Implements: subscription.Gateway
func (c *Client) CreateRecurringPlan(ctx context.Context, tenantID string, cycle subscription.Cycle, amount decimal.Decimal, authorization string) error {
	logger := log.FromContext(ctx).Named("gateway_create_plan").With(
		zap.String("tenant_id", tenantID),
		zap.String("cycle", string(cycle)),
	)

	cacheKey := fmt.Sprintf("plan:%s:%s:%s", tenantID, cycle, amount.StringFixed(2))
	planCode, cached := c.cache.Get(cacheKey)
	if !cached {
		var out planResponse
		resp, err := c.rest.R().
			SetContext(ctx).
			SetBody(planRequest{
				Name:     fmt.Sprintf("retail-%s-%s", tenantID, cycle),
				Amount:   subunits(amount),
				Interval: interval(cycle),
			}).
			SetResult(&out).
			Post("/plan")
		if err != nil {
			logger.Error("failed to reach gateway", zap.Error(err))
			return fmt.Errorf("gateway create plan: %w", err)
		}
		if resp.IsError() || !out.Status {
			return fmt.Errorf("gateway create plan failed with HTTP %d: %s", resp.StatusCode(), out.Message)
		}
		planCode = out.Data.PlanCode
		c.cache.Set(cacheKey, planCode, gocache.DefaultExpiration)
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(subscribeRequest{
			Plan:          planCode.(string),
			Authorization: authorization,
		}).
		Post("/subscription")
	if err != nil {
		logger.Error("failed to reach gateway", zap.Error(err))
		return fmt.Errorf("gateway subscribe: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("gateway subscribe failed with HTTP %d", resp.StatusCode())
	}

	logger.Info("recurring plan enabled")
	return nil
}

// DisableAuthorization revokes a stored recurring-charge authorization.
//
// Implements: subscription.Gateway
func (c *Client) DisableAuthorization(ctx context.Context, authorization string) error {
	logger := log.FromContext(ctx).Named("gateway_disable_authorization")

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"authorization_code": authorization}).
		Post("/customer/deactivate_authorization")
	if err != nil {
		logger.Error("failed to reach gateway", zap.Error(err))
		return fmt.Errorf("gateway deactivate authorization: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("gateway deactivate authorization failed with HTTP %d", resp.StatusCode())
	}

	logger.Info("authorization disabled")
	return nil
}
