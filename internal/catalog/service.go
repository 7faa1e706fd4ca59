package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/internal/pricing"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/quenbyco/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

const defaultSearchPageSize = 24

// Service exposes catalog reads with computed pricing.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (ProductDTO, error)
	SearchProducts(ctx context.Context, query string, page int) (SearchResultDTO, error)
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo           ProductRepository
	Engine         *pricing.Engine
	Cache          SearchCache
	Logger         *logger.Logger
	SearchCacheTTL time.Duration
	SearchPageSize int
}

type service struct {
	repo     ProductRepository
	engine   *pricing.Engine
	cache    SearchCache
	logg     *logger.Logger
	cacheTTL time.Duration
	pageSize int
}

// NewService builds a catalog service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	if params.Engine == nil {
		params.Engine = pricing.NewEngine()
	}
	pageSize := params.SearchPageSize
	if pageSize <= 0 {
		pageSize = defaultSearchPageSize
	}
	return &service{
		repo:     params.Repo,
		engine:   params.Engine,
		cache:    params.Cache,
		logg:     params.Logger,
		cacheTTL: params.SearchCacheTTL,
		pageSize: pageSize,
	}, nil
}

// GetProduct returns a product with live computed pricing.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (ProductDTO, error) {
	if id == uuid.Nil {
		return ProductDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return ProductDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return toProductDTO(s.engine, *product), nil
}

// SearchProducts runs a cached paginated search. A cache failure degrades to
// a live query, never an error.
func (s *service) SearchProducts(ctx context.Context, query string, page int) (SearchResultDTO, error) {
	if page < 1 {
		page = 1
	}

	cacheKey := ""
	if s.cache != nil && s.cacheTTL > 0 {
		cacheKey = s.cache.CacheKey("catalog", "search", fmt.Sprintf("%s:p%d:s%d", url.QueryEscape(query), page, s.pageSize))
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var result SearchResultDTO
			if unmarshalErr := json.Unmarshal([]byte(cached), &result); unmarshalErr == nil {
				return result, nil
			}
		}
	}

	products, total, err := s.repo.Search(ctx, query, page, s.pageSize)
	if err != nil {
		return SearchResultDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}

	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toProductDTO(s.engine, p))
	}
	result := SearchResultDTO{
		Products: dtos,
		Total:    total,
		Page:     page,
		PageSize: s.pageSize,
	}

	if cacheKey != "" {
		if payload, marshalErr := json.Marshal(result); marshalErr == nil {
			if setErr := s.cache.Set(ctx, cacheKey, string(payload), s.cacheTTL); setErr != nil && s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", setErr.Error()), "search cache write failed")
			}
		}
	}

	return result, nil
}
