// Package notifier publishes billing events onto the NATS stream consumed
// by external delivery services (email, WhatsApp).
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"retail-service/internal/domain/subscription"
	broker "retail-service/pkg/broker/nats"
)

type NATSNotifier struct {
	js      *broker.JetStream
	subject string
}

func NewNATS(js *broker.JetStream, subject string) *NATSNotifier {
	return &NATSNotifier{js: js, subject: subject}
}

// Publish implements subscription.Notifier.
func (n *NATSNotifier) Publish(ctx context.Context, event subscription.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notifier - marshal event: %w", err)
	}
	return n.js.Publish(ctx, n.subject+"."+event.Type, body)
}
