package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const (
	defaultLowStockThreshold = 5
	defaultCheckTimeout      = 5 * time.Second
	retryBase                = 50 * time.Millisecond
	maxRetries               = 3
)

// Availability is a point-in-time stock classification for a variant.
type Availability struct {
	VariantID         uuid.UUID `json:"variant_id"`
	IsAvailable       bool      `json:"is_available"`
	IsLowStock        bool      `json:"is_low_stock"`
	AvailableQuantity int       `json:"available_quantity"`
}

// ServiceParams groups dependencies for the inventory checker.
type ServiceParams struct {
	Repo              LevelRepository
	LowStockThreshold int
	CheckTimeout      time.Duration
}

type service struct {
	repo              LevelRepository
	lowStockThreshold int
	checkTimeout      time.Duration
}

// NewService builds an inventory checker with the required dependencies.
func NewService(params ServiceParams) (Checker, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory repo is required")
	}
	threshold := params.LowStockThreshold
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	timeout := params.CheckTimeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &service{
		repo:              params.Repo,
		lowStockThreshold: threshold,
		checkTimeout:      timeout,
	}, nil
}

// Check returns the live availability for the variant. The read is bounded
// by a timeout and retried on transient storage errors; a missing inventory
// row reads as out of stock.
func (s *service) Check(ctx context.Context, variantID uuid.UUID) (Availability, error) {
	return s.CheckQuantity(ctx, variantID, 1)
}

// CheckQuantity answers whether the requested quantity is purchasable right
// now.
func (s *service) CheckQuantity(ctx context.Context, variantID uuid.UUID, quantity int) (Availability, error) {
	if variantID == uuid.Nil {
		return Availability{}, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if quantity < 1 {
		quantity = 1
	}

	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	available, err := s.readQuantity(ctx, variantID)
	if err != nil {
		return Availability{}, err
	}

	return s.classify(variantID, available, quantity), nil
}

// readQuantity is an idempotent read, so a bounded retry with backoff is
// safe. Not-found is a definitive answer, not a failure.
func (s *service) readQuantity(ctx context.Context, variantID uuid.UUID) (int, error) {
	var available int
	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		level, err := s.repo.GetLevel(ctx, variantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				available = 0
				return nil
			}
			return retry.RetryableError(err)
		}
		available = level.AvailableQuantity
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading inventory level")
	}
	return available, nil
}

func (s *service) classify(variantID uuid.UUID, available, requested int) Availability {
	return Availability{
		VariantID:         variantID,
		IsAvailable:       available >= requested,
		IsLowStock:        available > 0 && available <= s.lowStockThreshold,
		AvailableQuantity: available,
	}
}
