package operator

import (
	"context"

	"github.com/escrow-network/escrowd/internal/core/ports"
)

func (s *Service) AddWebhook(
	ctx context.Context, topic, endpoint, secret string,
) (string, error) {
	return s.pubsub.AddWebhook(ctx, topic, endpoint, secret)
}

func (s *Service) RemoveWebhook(ctx context.Context, id string) error {
	return s.pubsub.RemoveWebhook(ctx, id)
}

func (s *Service) ListWebhooks(
	ctx context.Context, topic string,
) []ports.Subscription {
	return s.pubsub.ListWebhooks(ctx, topic)
}

// ListEventTopics returns every topic webhooks can be registered for.
func (s *Service) ListEventTopics(_ context.Context) []string {
	return s.pubsub.Topics()
}
