// Package event publishes admin domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/merchantkit/admin-api/internal/domain"
	pkgkafka "github.com/merchantkit/admin-api/pkg/kafka"
)

// Kafka topic constants for admin domain events.
const (
	TopicDiscountCreated = "merchantkit.discount.created"
	TopicDiscountUpdated = "merchantkit.discount.updated"
	TopicDiscountDeleted = "merchantkit.discount.deleted"
	TopicListingUpdated  = "merchantkit.listing.updated"
	TopicPagePublished   = "merchantkit.page.published"
)

// Aggregate type constants.
const (
	AggregateTypeDiscount = "discount"
	AggregateTypeListing  = "listing"
	AggregateTypePage     = "page"
)

// Source identifier for events originating from the admin API.
const SourceAdminAPI = "admin-api"

// DiscountEventData is the payload for discount lifecycle events.
type DiscountEventData struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Type      string  `json:"type"`
	Method    string  `json:"method"`
	Status    string  `json:"status"`
	Code      string  `json:"code,omitempty"`
	Value     float64 `json:"value"`
	ValueUnit string  `json:"value_unit"`
}

// ListingUpdatedData is the payload for a listing.updated event.
type ListingUpdatedData struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Status     string `json:"status"`
	PriceCents int64  `json:"price_cents"`
}

// PagePublishedData is the payload for a page.published event.
type PagePublishedData struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// Publisher is the interface the services publish through. The no-op
// implementation is used when Kafka is disabled in configuration.
type Publisher interface {
	DiscountCreated(ctx context.Context, d *domain.Discount) error
	DiscountUpdated(ctx context.Context, d *domain.Discount) error
	DiscountDeleted(ctx context.Context, id string) error
	ListingUpdated(ctx context.Context, l *domain.Listing) error
	PagePublished(ctx context.Context, p *domain.Page) error
}

// Producer publishes admin domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the admin API.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func (p *Producer) publishDiscount(ctx context.Context, topic string, d *domain.Discount) error {
	data := DiscountEventData{
		ID:        d.ID,
		Title:     d.Title,
		Type:      d.Type,
		Method:    d.Method,
		Status:    d.Status,
		Code:      d.Code,
		Value:     d.Value,
		ValueUnit: d.ValueUnit,
	}

	event, err := pkgkafka.NewEvent(topic, d.ID, AggregateTypeDiscount, SourceAdminAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published discount event",
		slog.String("topic", topic),
		slog.String("discount_id", d.ID),
	)
	return nil
}

// DiscountCreated publishes a discount.created event.
func (p *Producer) DiscountCreated(ctx context.Context, d *domain.Discount) error {
	return p.publishDiscount(ctx, TopicDiscountCreated, d)
}

// DiscountUpdated publishes a discount.updated event.
func (p *Producer) DiscountUpdated(ctx context.Context, d *domain.Discount) error {
	return p.publishDiscount(ctx, TopicDiscountUpdated, d)
}

// DiscountDeleted publishes a discount.deleted event.
func (p *Producer) DiscountDeleted(ctx context.Context, id string) error {
	event, err := pkgkafka.NewEvent(TopicDiscountDeleted, id, AggregateTypeDiscount, SourceAdminAPI, map[string]string{"id": id})
	if err != nil {
		return fmt.Errorf("create discount.deleted event: %w", err)
	}
	if err := p.kafka.Publish(ctx, TopicDiscountDeleted, event); err != nil {
		return fmt.Errorf("publish discount.deleted event: %w", err)
	}
	return nil
}

// ListingUpdated publishes a listing.updated event.
func (p *Producer) ListingUpdated(ctx context.Context, l *domain.Listing) error {
	data := ListingUpdatedData{
		ID:         l.ID,
		Title:      l.Title,
		Slug:       l.Slug,
		Status:     l.Status,
		PriceCents: l.PriceCents,
	}

	event, err := pkgkafka.NewEvent(TopicListingUpdated, l.ID, AggregateTypeListing, SourceAdminAPI, data)
	if err != nil {
		return fmt.Errorf("create listing.updated event: %w", err)
	}
	if err := p.kafka.Publish(ctx, TopicListingUpdated, event); err != nil {
		return fmt.Errorf("publish listing.updated event: %w", err)
	}
	return nil
}

// PagePublished publishes a page.published event.
func (p *Producer) PagePublished(ctx context.Context, page *domain.Page) error {
	data := PagePublishedData{ID: page.ID, Title: page.Title, Slug: page.Slug}

	event, err := pkgkafka.NewEvent(TopicPagePublished, page.ID, AggregateTypePage, SourceAdminAPI, data)
	if err != nil {
		return fmt.Errorf("create page.published event: %w", err)
	}
	if err := p.kafka.Publish(ctx, TopicPagePublished, event); err != nil {
		return fmt.Errorf("publish page.published event: %w", err)
	}
	return nil
}

// NopPublisher discards all events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) DiscountCreated(context.Context, *domain.Discount) error { return nil }
func (NopPublisher) DiscountUpdated(context.Context, *domain.Discount) error { return nil }
func (NopPublisher) DiscountDeleted(context.Context, string) error           { return nil }
func (NopPublisher) ListingUpdated(context.Context, *domain.Listing) error   { return nil }
func (NopPublisher) PagePublished(context.Context, *domain.Page) error       { return nil }
