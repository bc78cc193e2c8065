package billing

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"retail-service/internal/infrastructure/log"
	"retail-service/pkg/errors"
)

// WebhookPayload is the gateway's event envelope.
type WebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// HandleWebhook processes a signature-verified gateway event. Successful
// charge events funnel into Verify, which makes webhook retries and
// duplicates harmless. Unknown events are acknowledged and dropped.
//
// Signature verification happens at the transport layer before the payload
// reaches this method.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte) error {
	logger := log.FromContext(ctx).Named("gateway_webhook")

	var event WebhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return errors.ErrInvalidArgument.WithMessage("malformed webhook payload")
	}
	if event.Data.Reference == "" {
		return errors.ErrInvalidArgument.WithMessage("webhook payload missing reference")
	}

	logger = logger.With(
		zap.String("event", event.Event),
		zap.String("reference", event.Data.Reference),
	)

	switch event.Event {
	case "charge.success", "invoice.payment_succeeded":
		if _, err := s.Verify(ctx, event.Data.Reference); err != nil {
			// Gateway hiccups are retryable; the gateway will redeliver.
			if errors.Is(err, errors.ErrGatewayUnavailable) {
				return err
			}
			// Unknown references and settled transactions are acknowledged
			// so the gateway stops retrying.
			logger.Warn("webhook verify not applied", zap.Error(err))
			return nil
		}
		logger.Info("webhook applied")
		return nil
	case "charge.failed", "invoice.payment_failed":
		txn, err := s.subs.GetByReference(ctx, event.Data.Reference)
		if err != nil {
			return nil
		}
		if txn.Status == "pending" {
			if err := s.subs.MarkFailed(ctx, txn.ID); err != nil {
				return errors.ErrInternal.Wrap(err)
			}
		}
		return nil
	default:
		logger.Debug("ignoring webhook event")
		return nil
	}
}
