package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes persistence operations for catalog data.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads an active product with its active variants ordered by
// position.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("position ASC")
		}).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindVariantByID loads an active variant.
func (r *Repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindVariantWithProduct loads a variant together with its parent product in
// one round trip pair. Both must be active.
func (r *Repository) FindVariantWithProduct(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, *models.Product, error) {
	variant, err := r.FindVariantByID(ctx, variantID)
	if err != nil {
		return nil, nil, err
	}
	var product models.Product
	err = r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", variant.ProductID, true).
		First(&product).Error
	if err != nil {
		return nil, nil, err
	}
	return variant, &product, nil
}

// Search runs a paginated title/description match over active products.
func (r *Repository) Search(ctx context.Context, query string, page, pageSize int) ([]models.Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 24
	}

	base := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true)

	if trimmed := strings.TrimSpace(query); trimmed != "" {
		pattern := "%" + strings.ToLower(trimmed) + "%"
		base = base.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := base.
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("position ASC")
		}).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
