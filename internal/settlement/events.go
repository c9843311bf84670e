package settlement

import (
	"context"
	"encoding/json"

	"github.com/plateora/plateora-backend/pkg/pubsub"
)

// Notifier hands settlement outcomes to the notification pipeline. A
// notifier error is logged and dropped; it never blocks or rolls back the
// settlement that produced it.
type Notifier interface {
	NotifySettled(ctx context.Context, outcome *Outcome) error
}

// PubSubNotifier publishes outcomes to the settlement events topic.
type PubSubNotifier struct {
	client *pubsub.Client
}

// NewPubSubNotifier wraps the shared Pub/Sub client.
func NewPubSubNotifier(client *pubsub.Client) *PubSubNotifier {
	return &PubSubNotifier{client: client}
}

func (n *PubSubNotifier) NotifySettled(ctx context.Context, outcome *Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	_, err = n.client.Publish(ctx, n.client.SettlementTopic(), data, map[string]string{
		"event":      "settlement",
		"outcome":    outcome.Result.String(),
		"listing_id": outcome.ListingID.String(),
	})
	return err
}
