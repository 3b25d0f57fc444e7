package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/gamevault/gamevault-backend/pkg/enums"
	"github.com/gamevault/gamevault-backend/pkg/logger"
	"github.com/gamevault/gamevault-backend/pkg/outbox"
	"github.com/gamevault/gamevault-backend/pkg/outbox/payloads"
)

// ConsumerName scopes the processed-event markers in Redis.
const ConsumerName = "listing-rating-worker"

type ratingRecomputer interface {
	RecomputeRating(ctx context.Context, listingID uuid.UUID) error
}

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type processResult struct {
	ack  bool
	nack bool
}

// RatingConsumer folds rating events back into the listing aggregates.
// Ratings are written synchronously on the invoice item; the denormalized
// listing average is refreshed here, off the request path.
type RatingConsumer struct {
	listings     ratingRecomputer
	guard        processedGuard
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewRatingConsumer wires the dependencies for the rating refresh worker.
func NewRatingConsumer(listings ratingRecomputer, guard processedGuard, subscription *pubsub.Subscriber, logg *logger.Logger) (*RatingConsumer, error) {
	if listings == nil {
		return nil, errors.New("listings repository is required")
	}
	if guard == nil {
		return nil, errors.New("idempotency guard is required")
	}
	if subscription == nil {
		return nil, errors.New("domain subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &RatingConsumer{
		listings:     listings,
		guard:        guard,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes domain events until the context is canceled.
func (c *RatingConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *RatingConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	}
	logCtx := c.logg.WithFields(ctx, fields)

	switch eventType {
	case enums.EventInvoiceItemRated, enums.EventListingRatingStale:
	default:
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(msg.Attributes["event_id"])
	if err != nil {
		c.logg.Error(logCtx, "event missing parseable event_id", err)
		return processResult{ack: true}
	}
	fields["event_id"] = eventID.String()
	logCtx = c.logg.WithFields(ctx, fields)

	listingID, err := c.listingIDFor(eventType, msg)
	if err != nil {
		c.logg.Error(logCtx, "failed to resolve listing from event", err)
		return processResult{ack: true}
	}
	fields["listing_id"] = listingID.String()
	logCtx = c.logg.WithFields(ctx, fields)

	processed, err := c.guard.CheckAndMarkProcessed(ctx, ConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if processed {
		c.logg.Info(logCtx, "event already processed, skipping")
		return processResult{ack: true}
	}

	if err := c.listings.RecomputeRating(ctx, listingID); err != nil {
		c.logg.Error(logCtx, "rating recompute failed", err)
		if delErr := c.guard.Delete(ctx, ConsumerName, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to clear processed marker", delErr)
		}
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "listing rating refreshed")
	return processResult{ack: true}
}

func (c *RatingConsumer) listingIDFor(eventType enums.OutboxEventType, msg *pubsub.Message) (uuid.UUID, error) {
	if eventType == enums.EventListingRatingStale {
		return uuid.Parse(msg.Attributes["aggregate_id"])
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return uuid.Nil, fmt.Errorf("decode envelope: %w", err)
	}
	var rated payloads.InvoiceItemRatedEvent
	if err := json.Unmarshal(envelope.Data, &rated); err != nil {
		return uuid.Nil, fmt.Errorf("decode rated payload: %w", err)
	}
	if rated.ListingID == uuid.Nil {
		return uuid.Nil, errors.New("rated payload missing listing id")
	}
	return rated.ListingID, nil
}
