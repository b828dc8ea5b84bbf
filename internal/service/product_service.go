package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/events"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/media"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/repository"
)

const publishTimeout = 5 * time.Second

type ProductService struct {
	products  repository.ProductRepository
	users     repository.UserRepository
	media     media.Store
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time

	systemUserMu sync.Mutex
	systemUserID string
}

func NewProductService(
	products repository.ProductRepository,
	users repository.UserRepository,
	store media.Store,
	publisher events.Publisher,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		products:  products,
		users:     users,
		media:     store,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// validID rejects ids that could never have been issued, so they read as
// not found instead of reaching storage.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *ProductService) List(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error) {
	f := filter.Normalize()

	products, total, err := s.products.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}

	return &domain.ProductPage{
		Products: products,
		Pagination: domain.Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: domain.TotalPages(total, f.Limit),
		},
	}, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	if !validID(id) {
		return nil, domain.ErrProductNotFound
	}
	return s.products.GetByID(ctx, id)
}

func (s *ProductService) Create(ctx context.Context, in domain.CreateProductInput) (*domain.Product, error) {
	product, err := in.Validate()
	if err != nil {
		return nil, err
	}

	ownerID, err := s.ownerID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.File != nil {
		url, err := s.upload(ctx, *in.File)
		if err != nil {
			return nil, err
		}
		product.Image = &url
	}

	now := s.now()
	product.ID = uuid.NewString()
	product.UserID = &ownerID
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.products.Create(ctx, product); err != nil {
		if in.File != nil {
			s.discardImage(ctx, *product.Image, product.ID)
		}
		s.logger.Error("Failed to save product", zap.String("product_id", product.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.Int("quantity", product.Quantity))
	s.publish(ctx, events.NewProductEvent(events.ProductCreated, product.ID, product))

	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id string, in domain.UpdateProductInput) (*domain.Product, error) {
	if !validID(id) {
		return nil, domain.ErrProductNotFound
	}
	existing, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, err := in.Validate(s.now())
	if err != nil {
		return nil, err
	}

	if in.File != nil {
		if existing.Image != nil {
			s.discardImage(ctx, *existing.Image, id)
		}
		url, err := s.upload(ctx, *in.File)
		if err != nil {
			return nil, err
		}
		patch.Image = domain.Some(url)
	}

	product, err := s.products.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product updated", zap.String("product_id", id))
	s.publish(ctx, events.NewProductEvent(events.ProductUpdated, id, product))

	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrProductNotFound
	}
	existing, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if existing.Image != nil {
		s.discardImage(ctx, *existing.Image, id)
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("product_id", id))
	s.publish(ctx, events.NewProductEvent(events.ProductDeleted, id, nil))

	return nil
}

// ownerID is the authenticated caller, or the shared system user for
// anonymous writes.
func (s *ProductService) ownerID(ctx context.Context, callerID string) (string, error) {
	if callerID != "" {
		return callerID, nil
	}

	s.systemUserMu.Lock()
	defer s.systemUserMu.Unlock()

	if s.systemUserID != "" {
		return s.systemUserID, nil
	}
	user, err := s.users.Upsert(ctx, domain.SystemUser())
	if err != nil {
		return "", fmt.Errorf("failed to resolve system user: %w", err)
	}
	s.systemUserID = user.ID
	return user.ID, nil
}

func (s *ProductService) upload(ctx context.Context, file domain.ImageFile) (string, error) {
	url, err := s.media.Upload(ctx, file)
	if err != nil {
		s.logger.Error("Image upload failed", zap.String("filename", file.Filename), zap.Error(err))
		if !domain.IsUpstream(err) {
			err = &domain.UpstreamError{Op: "upload", Err: err}
		}
		return "", err
	}
	return url, nil
}

// discardImage deletes a hosted image. Failures only leave an orphaned
// object behind, so they are logged and dropped.
func (s *ProductService) discardImage(ctx context.Context, url, productID string) {
	if err := s.media.Delete(ctx, url); err != nil {
		s.logger.Warn("Failed to delete image",
			zap.String("product_id", productID),
			zap.String("url", url),
			zap.Error(err))
	}
}

func (s *ProductService) publish(ctx context.Context, event events.ProductEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish product event",
			zap.String("event_id", event.EventID),
			zap.String("product_id", event.ProductID),
			zap.Error(err))
	}
}
