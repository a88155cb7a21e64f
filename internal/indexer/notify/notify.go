// Package notify announces published index generations on Kafka so that
// searchers can reload without polling the index root.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/resilience"
)

// IndexComplete is the payload of the index.complete topic.
type IndexComplete struct {
	Generation string    `json:"generation"`
	Root       string    `json:"root"`
	Pages      int       `json:"pages"`
	Domains    int       `json:"domains"`
	CreatedAt  time.Time `json:"created_at"`
}

type Notifier struct {
	producer kafka.Publisher
	retry    resilience.RetryConfig
	logger   *slog.Logger
}

func New(producer kafka.Publisher) *Notifier {
	return &Notifier{
		producer: producer,
		retry: resilience.RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		logger: slog.Default().With("component", "index-notifier"),
	}
}

// WithRetry replaces the publish backoff policy.
func (n *Notifier) WithRetry(cfg resilience.RetryConfig) *Notifier {
	n.retry = cfg
	return n
}

// Notify publishes ev, retrying transient broker failures.
func (n *Notifier) Notify(ctx context.Context, ev IndexComplete) error {
	err := resilience.Retry(ctx, "publish-index-complete", n.retry, func(ctx context.Context) error {
		return n.producer.Publish(ctx, kafka.Event{Key: ev.Generation, Value: ev})
	})
	if err != nil {
		n.logger.Error("index.complete not published, searchers must reload another way",
			"generation", ev.Generation,
			"error", err,
		)
		return err
	}
	n.logger.Info("index.complete published", "generation", ev.Generation, "pages", ev.Pages)
	return nil
}
