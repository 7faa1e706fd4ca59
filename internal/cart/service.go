package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/internal/catalog"
	"github.com/quenbyco/storefront-backend/internal/inventory"
	"github.com/quenbyco/storefront-backend/internal/pricing"
	"github.com/quenbyco/storefront-backend/pkg/config"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/quenbyco/storefront-backend/pkg/enums"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/quenbyco/storefront-backend/pkg/logger"
	"github.com/quenbyco/storefront-backend/pkg/metrics"
	"github.com/quenbyco/storefront-backend/pkg/outbox"
	"github.com/quenbyco/storefront-backend/pkg/types"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LineIssue describes why a cart line is not purchasable as-is.
type LineIssue struct {
	ItemID                uuid.UUID `json:"item_id"`
	VariantID             uuid.UUID `json:"variant_id"`
	Code                  string    `json:"code"`
	Message               string    `json:"message"`
	MaxPurchasable        int       `json:"max_purchasable"`
	CurrentUnitPriceCents *int64    `json:"current_unit_price_cents,omitempty"`
}

// Issue codes reported by Validate.
const (
	IssueProductUnavailable = "PRODUCT_UNAVAILABLE"
	IssueOutOfStock         = "OUT_OF_STOCK"
	IssueInsufficientStock  = "INSUFFICIENT_STOCK"
	IssuePriceChanged       = "PRICE_CHANGED"
)

// ValidationReport is the per-line purchasability report.
type ValidationReport struct {
	Valid  bool        `json:"valid"`
	Issues []LineIssue `json:"issues"`
}

// LineFailure records a guest line that could not be merged.
type LineFailure struct {
	VariantID uuid.UUID `json:"variant_id"`
	Reason    string    `json:"reason"`
}

// MergeResult carries the destination cart plus any lines that could not be
// carried over.
type MergeResult struct {
	Summary Summary       `json:"summary"`
	Failed  []LineFailure `json:"failed,omitempty"`
}

// Service exposes business rules for cart management. Identity is always an
// explicit argument; there is no ambient cart.
type Service interface {
	AddItem(ctx context.Context, identity types.Identity, variantID uuid.UUID, quantity int) (Summary, error)
	UpdateQuantity(ctx context.Context, identity types.Identity, itemID uuid.UUID, quantity int) (Summary, error)
	RemoveItem(ctx context.Context, identity types.Identity, itemID uuid.UUID) (Summary, error)
	Clear(ctx context.Context, identity types.Identity) error
	GetSummary(ctx context.Context, identity types.Identity) (Summary, error)
	Validate(ctx context.Context, identity types.Identity) (ValidationReport, error)
	MergeGuestCart(ctx context.Context, sessionID string, userID uuid.UUID) (MergeResult, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	DB      TxRunner
	Items   ItemRepository
	Catalog catalog.ProductRepository
	Levels  inventory.LevelRepository
	Checker inventory.Checker
	Outbox  *outbox.Service
	Logger  *logger.Logger
	Metrics *metrics.StorefrontMetrics
	Config  config.CartConfig
}

type service struct {
	db      TxRunner
	items   ItemRepository
	catalog catalog.ProductRepository
	levels  inventory.LevelRepository
	checker inventory.Checker
	outbox  *outbox.Service
	logg    *logger.Logger
	metrics *metrics.StorefrontMetrics
	cfg     config.CartConfig
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if params.Items == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item repo is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	if params.Levels == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory repo is required")
	}
	if params.Checker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory checker is required")
	}
	return &service{
		db:      params.DB,
		items:   params.Items,
		catalog: params.Catalog,
		levels:  params.Levels,
		checker: params.Checker,
		outbox:  params.Outbox,
		logg:    params.Logger,
		metrics: params.Metrics,
		cfg:     params.Config,
	}, nil
}

// AddItem adds quantity of a variant to the identity's cart. Re-adding an
// existing variant increments the single line; the new total is validated
// against live stock inside the same transaction as the write.
func (s *service) AddItem(ctx context.Context, identity types.Identity, variantID uuid.UUID, quantity int) (Summary, error) {
	if err := identity.Validate(); err != nil {
		return Summary{}, err
	}
	if variantID == uuid.Nil {
		return Summary{}, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if quantity < 1 {
		return Summary{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1")
	}

	if err := s.addQuantityTx(ctx, identity, variantID, quantity); err != nil {
		s.countOp("add_item", "error")
		return Summary{}, err
	}
	s.countOp("add_item", "success")
	return s.GetSummary(ctx, identity)
}

// addQuantityTx performs the additive upsert inside one transaction: lock
// the existing line, re-read stock, validate the combined quantity, write.
func (s *service) addQuantityTx(ctx context.Context, identity types.Identity, variantID uuid.UUID, quantity int) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		catalogTx := s.catalog.WithTx(tx)
		itemsTx := s.items.WithTx(tx)
		levelsTx := s.levels.WithTx(tx)

		variant, product, err := catalogTx.FindVariantWithProduct(ctx, variantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}

		existing, err := itemsTx.FindByVariantForUpdate(ctx, identity, variantID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		newQuantity := quantity
		if existing != nil {
			newQuantity += existing.Quantity
		}
		if s.cfg.MaxQuantityPerLine > 0 && newQuantity > s.cfg.MaxQuantityPerLine {
			return pkgerrors.New(pkgerrors.CodeInvalidQuantity,
				fmt.Sprintf("quantity limit is %d per line", s.cfg.MaxQuantityPerLine))
		}

		available, err := s.availableInTx(ctx, levelsTx, variantID)
		if err != nil {
			return err
		}
		if newQuantity > available {
			return pkgerrors.New(pkgerrors.CodeOutOfStock,
				fmt.Sprintf("only %d available", available))
		}

		if existing != nil {
			_, err := itemsTx.UpdateQuantity(ctx, identity, existing.ID, newQuantity)
			return err
		}

		line := models.CartItem{
			UserID:         identity.UserID,
			SessionID:      identity.SessionID,
			ProductID:      product.ID,
			VariantID:      variant.ID,
			Quantity:       newQuantity,
			ProductName:    product.Title,
			VariantTitle:   variant.Title,
			UnitPriceCents: variant.EffectivePriceCents(product.BasePriceCents),
			Currency:       product.Currency,
			ImageURL:       itemImage(variant, product),
		}
		return itemsTx.Create(ctx, &line)
	})
}

// UpdateQuantity sets a line's quantity. Zero or negative means remove,
// which is a success, not an error.
func (s *service) UpdateQuantity(ctx context.Context, identity types.Identity, itemID uuid.UUID, quantity int) (Summary, error) {
	if err := identity.Validate(); err != nil {
		return Summary{}, err
	}
	if quantity <= 0 {
		return s.RemoveItem(ctx, identity, itemID)
	}
	if s.cfg.MaxQuantityPerLine > 0 && quantity > s.cfg.MaxQuantityPerLine {
		return Summary{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity,
			fmt.Sprintf("quantity limit is %d per line", s.cfg.MaxQuantityPerLine))
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		itemsTx := s.items.WithTx(tx)
		levelsTx := s.levels.WithTx(tx)

		item, err := itemsTx.FindByID(ctx, identity, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		available, err := s.availableInTx(ctx, levelsTx, item.VariantID)
		if err != nil {
			return err
		}
		if quantity > available {
			return pkgerrors.New(pkgerrors.CodeOutOfStock,
				fmt.Sprintf("only %d available", available))
		}

		rows, err := itemsTx.UpdateQuantity(ctx, identity, itemID, quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil
	})
	if err != nil {
		s.countOp("update_quantity", "error")
		return Summary{}, err
	}
	s.countOp("update_quantity", "success")
	return s.GetSummary(ctx, identity)
}

// RemoveItem deletes a line. The ownership predicate makes another owner's
// line look exactly like a missing one.
func (s *service) RemoveItem(ctx context.Context, identity types.Identity, itemID uuid.UUID) (Summary, error) {
	if err := identity.Validate(); err != nil {
		return Summary{}, err
	}
	rows, err := s.items.Delete(ctx, identity, itemID)
	if err != nil {
		s.countOp("remove_item", "error")
		return Summary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	if rows == 0 {
		s.countOp("remove_item", "not_found")
		return Summary{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	s.countOp("remove_item", "success")
	return s.GetSummary(ctx, identity)
}

// Clear removes every line for the identity.
func (s *service) Clear(ctx context.Context, identity types.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	if err := s.items.DeleteByOwner(ctx, identity); err != nil {
		s.countOp("clear", "error")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	s.countOp("clear", "success")
	return nil
}

// GetSummary computes the cart summary with live stock flags. Availability
// is read fresh on every call; nothing here is cacheable.
func (s *service) GetSummary(ctx context.Context, identity types.Identity) (Summary, error) {
	if err := identity.Validate(); err != nil {
		return Summary{}, err
	}
	items, err := s.items.ListByOwner(ctx, identity)
	if err != nil {
		return Summary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}

	dtos := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		availability, err := s.checker.CheckQuantity(ctx, item.VariantID, item.Quantity)
		if err != nil {
			return Summary{}, err
		}
		dtos = append(dtos, ItemDTO{
			ID:                item.ID,
			ProductID:         item.ProductID,
			VariantID:         item.VariantID,
			ProductName:       item.ProductName,
			VariantTitle:      item.VariantTitle,
			Quantity:          item.Quantity,
			UnitPriceCents:    item.UnitPriceCents,
			UnitPrice:         pricing.FormatAmount(item.UnitPriceCents, item.Currency),
			LineTotalCents:    item.LineTotalCents(),
			LineTotal:         pricing.FormatAmount(item.LineTotalCents(), item.Currency),
			ImageURL:          item.ImageURL,
			IsLowStock:        availability.IsLowStock,
			IsOutOfStock:      !availability.IsAvailable,
			AvailableQuantity: availability.AvailableQuantity,
		})
	}

	return buildSummary(dtos, s.cfg), nil
}

// Validate reports per-line problems without mutating the cart. The
// max_purchasable hint supports reduce-to-available flows in the client.
func (s *service) Validate(ctx context.Context, identity types.Identity) (ValidationReport, error) {
	if err := identity.Validate(); err != nil {
		return ValidationReport{}, err
	}
	items, err := s.items.ListByOwner(ctx, identity)
	if err != nil {
		return ValidationReport{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}

	report := ValidationReport{Valid: true}
	for _, item := range items {
		variant, product, err := s.catalog.FindVariantWithProduct(ctx, item.VariantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				report.Issues = append(report.Issues, LineIssue{
					ItemID:         item.ID,
					VariantID:      item.VariantID,
					Code:           IssueProductUnavailable,
					Message:        "product is no longer available",
					MaxPurchasable: 0,
				})
				continue
			}
			return ValidationReport{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}

		availability, err := s.checker.CheckQuantity(ctx, item.VariantID, item.Quantity)
		if err != nil {
			return ValidationReport{}, err
		}
		if !availability.IsAvailable {
			issue := LineIssue{
				ItemID:         item.ID,
				VariantID:      item.VariantID,
				MaxPurchasable: availability.AvailableQuantity,
			}
			if availability.AvailableQuantity == 0 {
				issue.Code = IssueOutOfStock
				issue.Message = "out of stock"
			} else {
				issue.Code = IssueInsufficientStock
				issue.Message = fmt.Sprintf("only %d available", availability.AvailableQuantity)
			}
			report.Issues = append(report.Issues, issue)
		}

		current := variant.EffectivePriceCents(product.BasePriceCents)
		if current != item.UnitPriceCents {
			report.Issues = append(report.Issues, LineIssue{
				ItemID:                item.ID,
				VariantID:             item.VariantID,
				Code:                  IssuePriceChanged,
				Message:               "price has changed since the item was added",
				MaxPurchasable:        availability.AvailableQuantity,
				CurrentUnitPriceCents: &current,
			})
		}
	}
	report.Valid = len(report.Issues) == 0
	return report, nil
}

// MergeGuestCart folds a guest cart into the user's cart on sign-in. Lines
// merge additively one at a time; failures are collected, never fatal for
// the rest. The guest cart is cleared regardless, so a second run no-ops.
func (s *service) MergeGuestCart(ctx context.Context, sessionID string, userID uuid.UUID) (MergeResult, error) {
	if sessionID == "" {
		return MergeResult{}, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if userID == uuid.Nil {
		return MergeResult{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	guest := types.SessionIdentity(sessionID)
	user := types.UserIdentity(userID)

	guestItems, err := s.items.ListByOwner(ctx, guest)
	if err != nil {
		return MergeResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list guest cart")
	}

	var merged int
	var failed []LineFailure
	var collected error
	for _, item := range guestItems {
		if err := s.addQuantityTx(ctx, user, item.VariantID, item.Quantity); err != nil {
			collected = multierr.Append(collected, fmt.Errorf("variant %s: %w", item.VariantID, err))
			failed = append(failed, LineFailure{VariantID: item.VariantID, Reason: err.Error()})
			continue
		}
		merged++
	}

	if len(guestItems) > 0 {
		err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.items.WithTx(tx).DeleteByOwner(ctx, guest); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear guest cart")
			}
			if s.outbox != nil {
				sid := sessionID
				uid := userID.String()
				return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
					EventType:   enums.OutboxEventCartMergedOnAuth,
					AggregateID: userID,
					Owner:       &outbox.OwnerRef{UserID: &uid, SessionID: &sid},
					Data: map[string]any{
						"merged_lines": merged,
						"failed_lines": len(failed),
					},
				})
			}
			return nil
		})
		if err != nil {
			return MergeResult{}, err
		}
	}

	if collected != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":      userID.String(),
			"failed_lines": len(failed),
			"error":        collected.Error(),
		})
		s.logg.Warn(logCtx, "some guest cart lines could not be merged")
	}
	s.countOp("merge", "success")

	summary, err := s.GetSummary(ctx, user)
	if err != nil {
		return MergeResult{}, err
	}
	return MergeResult{Summary: summary, Failed: failed}, nil
}

// availableInTx reads stock under the transaction's lock. A missing row is
// zero stock.
func (s *service) availableInTx(ctx context.Context, levels inventory.LevelRepository, variantID uuid.UUID) (int, error) {
	level, err := levels.GetLevelForUpdate(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read inventory")
	}
	return level.AvailableQuantity, nil
}

func (s *service) countOp(operation, outcome string) {
	if s.metrics != nil {
		s.metrics.IncCartOp(operation, outcome)
	}
}
