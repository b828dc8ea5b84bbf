package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

type ProductEventType string

const (
	ProductCreated ProductEventType = "product.created"
	ProductUpdated ProductEventType = "product.updated"
	ProductDeleted ProductEventType = "product.deleted"
)

// ProductEvent is published after every successful product mutation.
// Product is the stored row, omitted for deletions.
type ProductEvent struct {
	EventID   string           `json:"event_id"`
	Type      ProductEventType `json:"type"`
	ProductID string           `json:"product_id"`
	Product   *domain.Product  `json:"product,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewProductEvent(t ProductEventType, productID string, product *domain.Product) ProductEvent {
	return ProductEvent{
		EventID:   uuid.NewString(),
		Type:      t,
		ProductID: productID,
		Product:   product,
		Timestamp: time.Now().UTC(),
	}
}

const UserSignedIn = "user.signed_in"

// SignInEvent is emitted by the identity provider when a user signs in.
type SignInEvent struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Name      *string   `json:"name,omitempty"`
	Image     *string   `json:"image,omitempty"`
	GoogleID  string    `json:"google_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e SignInEvent) UpsertInput() domain.UpsertUserInput {
	return domain.UpsertUserInput{
		Email:    e.Email,
		Username: e.Username,
		Name:     e.Name,
		Image:    e.Image,
		GoogleID: e.GoogleID,
	}
}

// Publisher delivers product events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event ProductEvent) error
	Close() error
}

// NoopPublisher drops every event. It is used when no brokers are
// configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ProductEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
