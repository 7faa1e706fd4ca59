package controllers

import (
	"net/http"
	"strings"

	"github.com/quenbyco/storefront-backend/api/responses"
	"github.com/quenbyco/storefront-backend/api/validators"
	"github.com/quenbyco/storefront-backend/internal/catalog"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/quenbyco/storefront-backend/pkg/logger"
)

// CatalogSearch lists active products, optionally filtered by a query string.
func CatalogSearch(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		page := validators.QueryInt(r, "page", 1)

		result, err := svc.SearchProducts(r.Context(), query, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CatalogProductDetail returns a single active product with computed pricing.
func CatalogProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := validators.UUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
